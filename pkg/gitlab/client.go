// Package gitlab provides a GitLab REST API client built on the teatime core.
//
// The endpoint passed to New is the API base, typically
// "https://gitlab.example.com/api/v4". Password logins are exchanged for an
// OAuth bearer token against the endpoint's origin, while API keys are sent
// as GitLab private tokens.
package gitlab

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/teatime-io/teatime/internal/transport"
	"github.com/teatime-io/teatime/pkg/teatime"
)

// OAuthTokenPath is the path under the endpoint origin used to exchange
// username/password credentials for a bearer token.
const OAuthTokenPath = "/oauth/token"

// Client is a GitLab API client. It layers GitLab authentication on top of
// the generic teatime client; request, decode, and pagination behavior come
// from the embedded core.
type Client struct {
	*teatime.Client
}

var _ teatime.JSONClient = (*Client)(nil)

type config struct {
	transport teatime.Transport
	coreOpts  []teatime.Option
}

// Option configures a GitLab client.
type Option func(*config)

// WithTransport replaces the default HTTP transport.
func WithTransport(t teatime.Transport) Option {
	return func(c *config) {
		c.transport = t
	}
}

// WithClientOptions forwards options to the underlying teatime client.
func WithClientOptions(opts ...teatime.Option) Option {
	return func(c *config) {
		c.coreOpts = append(c.coreOpts, opts...)
	}
}

// New creates a GitLab client for the given API endpoint.
func New(endpoint string, opts ...Option) (*Client, error) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.transport == nil {
		cfg.transport = transport.New()
	}

	coreOpts := append([]teatime.Option{teatime.WithAuthorizer(teatime.AuthorizerFunc(authorize))}, cfg.coreOpts...)
	core, err := teatime.New(endpoint, cfg.transport, coreOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating GitLab client: %w", err)
	}
	return &Client{Client: core}, nil
}

// authorize attaches the session token to an outgoing request. Tokens
// obtained from a password login are sent as OAuth bearer tokens, personal
// access tokens use the PRIVATE-TOKEN header.
func authorize(token *teatime.Token, req *teatime.Request) error {
	if token == nil || token.Value == "" {
		return nil
	}
	switch token.Kind {
	case teatime.TokenKindPrivate:
		req.Headers.Set("PRIVATE-TOKEN", token.Value)
	default:
		req.Headers.Set("Authorization", "Bearer "+token.Value)
	}
	return nil
}

// Login establishes a session for the given credentials.
//
// NoAuth clears any stored token. APIKey stores the key as a private token
// without any network traffic. UserPass and UserPassTwoFactor perform a
// resource-owner password grant against the endpoint origin's /oauth/token;
// GitLab's password grant has no second-factor field, so the one-time code
// is not transmitted.
func (c *Client) Login(ctx context.Context, creds teatime.Credentials) error {
	switch v := creds.(type) {
	case teatime.NoAuth:
		c.ClearToken()
		return nil
	case teatime.APIKey:
		c.SetToken(&teatime.Token{Value: v.Key, Kind: teatime.TokenKindPrivate})
		return nil
	case teatime.UserPass:
		return c.passwordLogin(ctx, v.Username, v.Password)
	case teatime.UserPassTwoFactor:
		return c.passwordLogin(ctx, v.Username, v.Password)
	default:
		return fmt.Errorf("logging in to GitLab: %w", teatime.ErrUnsupportedCredentials)
	}
}

func (c *Client) passwordLogin(ctx context.Context, username, password string) error {
	origin := teatime.Origin(c.BaseURI())
	target, err := teatime.Abs(origin.String() + OAuthTokenPath)
	if err != nil {
		return fmt.Errorf("building GitLab token URL: %w", err)
	}

	req := teatime.NewRequest(http.MethodPost, target).WithParams(teatime.Params{
		"grant_type": "password",
		"username":   username,
		"password":   password,
	})
	resp, err := c.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("logging in to GitLab: %w", err)
	}
	if !resp.IsSuccess() {
		return &teatime.AuthError{
			Vendor: "gitlab",
			Status: resp.StatusCode,
			Reason: "could not log in with the given username and password",
			Body:   resp.Body,
		}
	}

	doc, err := teatime.DecodeBody(resp)
	if err != nil {
		return fmt.Errorf("logging in to GitLab: %w", err)
	}
	value, ok := teatime.ExtractString(doc, "access_token")
	if !ok {
		return &teatime.AuthError{
			Vendor: "gitlab",
			Status: resp.StatusCode,
			Reason: "could not log in with the given username and password",
			Body:   resp.Body,
		}
	}

	token := &teatime.Token{Value: value, Kind: teatime.TokenKindBearer}
	if expires, ok := teatime.ExtractNumber(doc, "expires_in"); ok && expires > 0 {
		token.ExpiresAt = time.Now().Add(time.Duration(expires) * time.Second)
	}
	c.SetToken(token)
	return nil
}
