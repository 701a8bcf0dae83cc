// Package sensu provides a Sensu Core API client built on the teatime core.
//
// The classic Sensu API is unauthenticated; Login accepts any credentials
// and succeeds without network traffic. Requests and pagination behave
// exactly as the embedded core client.
package sensu

import (
	"context"
	"fmt"

	"github.com/teatime-io/teatime/internal/transport"
	"github.com/teatime-io/teatime/pkg/teatime"
)

// Client is a Sensu API client.
type Client struct {
	*teatime.Client
}

var _ teatime.JSONClient = (*Client)(nil)

type config struct {
	transport teatime.Transport
	coreOpts  []teatime.Option
}

// Option configures a Sensu client.
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

// New creates a Sensu client for the given API endpoint, such as
// "http://sensu.example.com:4567".
func New(endpoint string, opts ...Option) (*Client, error) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.transport == nil {
		cfg.transport = transport.New()
	}

	core, err := teatime.New(endpoint, cfg.transport, cfg.coreOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating Sensu client: %w", err)
	}
	return &Client{Client: core}, nil
}

// Login succeeds for every credential kind. The API has no authentication,
// so credentials are accepted and ignored; NoAuth additionally clears any
// token a caller may have stored by hand.
func (c *Client) Login(ctx context.Context, creds teatime.Credentials) error {
	if _, ok := creds.(teatime.NoAuth); ok {
		c.ClearToken()
	}
	return nil
}
