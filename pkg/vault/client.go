// Package vault provides a HashiCorp Vault API client built on the teatime
// core.
//
// The endpoint passed to New is the Vault address, for example
// "https://vault.example.com:8200". LDAP logins post to the v1 auth backend
// under the endpoint origin and store the returned client token; subsequent
// requests carry it in the X-Vault-Token header.
package vault

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/teatime-io/teatime/internal/transport"
	"github.com/teatime-io/teatime/pkg/teatime"
)

// TokenHeader is the header Vault reads session tokens from.
const TokenHeader = "X-Vault-Token"

// LDAPLoginPath is the path under the endpoint origin used to exchange
// username/password credentials for a client token. The username is appended
// as the final path segment.
const LDAPLoginPath = "/v1/auth/ldap/login/"

// Client is a Vault API client.
type Client struct {
	*teatime.Client
}

var _ teatime.JSONClient = (*Client)(nil)

type config struct {
	transport teatime.Transport
	coreOpts  []teatime.Option
}

// Option configures a Vault client.
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

// New creates a Vault client for the given address.
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
		return nil, fmt.Errorf("creating Vault client: %w", err)
	}
	return &Client{Client: core}, nil
}

func authorize(token *teatime.Token, req *teatime.Request) error {
	if token == nil || token.Value == "" {
		return nil
	}
	req.Headers.Set(TokenHeader, token.Value)
	return nil
}

// Login establishes a session for the given credentials.
//
// NoAuth clears any stored token. APIKey stores the key as the client token
// without any network traffic. UserPass performs an LDAP login against the
// endpoint origin; UserPassTwoFactor does the same and forwards the one-time
// code as the MFA passcode.
func (c *Client) Login(ctx context.Context, creds teatime.Credentials) error {
	switch v := creds.(type) {
	case teatime.NoAuth:
		c.ClearToken()
		return nil
	case teatime.APIKey:
		c.SetToken(&teatime.Token{Value: v.Key, Kind: teatime.TokenKindVault})
		return nil
	case teatime.UserPass:
		return c.ldapLogin(ctx, v.Username, v.Password, "")
	case teatime.UserPassTwoFactor:
		return c.ldapLogin(ctx, v.Username, v.Password, v.OneTimeCode)
	default:
		return fmt.Errorf("logging in to Vault: %w", teatime.ErrUnsupportedCredentials)
	}
}

func (c *Client) ldapLogin(ctx context.Context, username, password, passcode string) error {
	origin := teatime.Origin(c.BaseURI())
	target, err := teatime.Abs(origin.String() + LDAPLoginPath + url.PathEscape(username))
	if err != nil {
		return fmt.Errorf("building Vault login URL: %w", err)
	}

	params := teatime.Params{"password": password}
	if passcode != "" {
		params.Set("passcode", passcode)
	}

	resp, err := c.Do(ctx, teatime.NewRequest(http.MethodPost, target).WithParams(params))
	if err != nil {
		return fmt.Errorf("logging in to Vault: %w", err)
	}
	if !resp.IsSuccess() {
		return &teatime.AuthError{
			Vendor: "vault",
			Status: resp.StatusCode,
			Reason: "could not retrieve auth token",
			Body:   resp.Body,
		}
	}

	doc, err := teatime.DecodeBody(resp)
	if err != nil {
		return fmt.Errorf("logging in to Vault: %w", err)
	}
	value, ok := teatime.ExtractString(doc, "auth", "client_token")
	if !ok {
		return &teatime.AuthError{
			Vendor: "vault",
			Status: resp.StatusCode,
			Reason: "could not retrieve auth token",
			Body:   resp.Body,
		}
	}

	token := &teatime.Token{Value: value, Kind: teatime.TokenKindVault}
	if lease, ok := teatime.ExtractNumber(doc, "auth", "lease_duration"); ok && lease > 0 {
		token.ExpiresAt = time.Now().Add(time.Duration(lease) * time.Second)
	}
	c.SetToken(token)
	return nil
}

// NextPage always reports no continuation. The Vault API does not use Link
// headers; listing endpoints return complete results in a single response.
func (c *Client) NextPage(resp *teatime.Response) (teatime.Target, bool, error) {
	return teatime.Target{}, false, nil
}

// RequestPaged fetches a collection using Vault's continuation rules. Defined
// on the binding rather than inherited so the walk consults this client's
// NextPage.
func (c *Client) RequestPaged(ctx context.Context, method string, target teatime.Target, params teatime.Params) ([]any, error) {
	return teatime.FetchAllPages(ctx, c, method, target, params, nil)
}
