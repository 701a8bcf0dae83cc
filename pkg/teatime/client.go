package teatime

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/teatime-io/teatime/internal/constants"
)

// APIClient is the contract every vendor binding satisfies: a base URI, a
// login flow that stores a session token as a side effect, and the request
// operation the framework supplies through the embedded Client.
type APIClient interface {
	BaseURI() *url.URL
	Login(ctx context.Context, creds Credentials) error
	Do(ctx context.Context, req *Request) (*Response, error)
	Close()
}

// JSONClient layers JSON decoding and autopagination on top of APIClient.
type JSONClient interface {
	APIClient
	RequestJSON(ctx context.Context, method string, target Target, params Params) (any, error)
	RequestPaged(ctx context.Context, method string, target Target, params Params) ([]any, error)
	NextPage(resp *Response) (Target, bool, error)
}

// Authorizer decorates an outgoing request with authentication before
// dispatch. Each binding supplies its own header encoding; the framework
// never hardcodes header names. A nil token means no session is established
// and the request goes out undecorated.
type Authorizer interface {
	Authorize(token *Token, req *Request) error
}

// AuthorizerFunc adapts a function to the Authorizer interface.
type AuthorizerFunc func(token *Token, req *Request) error

// Authorize implements Authorizer.
func (f AuthorizerFunc) Authorize(token *Token, req *Request) error {
	return f(token, req)
}

// Client is the framework core. It owns an immutable base URI, the current
// session token, and exactly one Transport. Bindings embed it and add their
// Login flow and Authorizer.
type Client struct {
	base       *url.URL
	transport  Transport
	tokens     *TokenStore
	authorizer Authorizer
	chain      *InterceptorChain
	logger     Logger
	userAgent  string
	closed     atomic.Bool
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the structured logger used for request debug output.
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithUserAgent overrides the default User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithAuthorizer sets the per-request authentication hook.
func WithAuthorizer(authorizer Authorizer) Option {
	return func(c *Client) {
		c.authorizer = authorizer
	}
}

// WithRequestInterceptor appends a request interceptor to the chain.
func WithRequestInterceptor(interceptor RequestInterceptor) Option {
	return func(c *Client) {
		c.chain.AddRequestInterceptor(interceptor)
	}
}

// WithResponseInterceptor appends a response interceptor to the chain.
func WithResponseInterceptor(interceptor ResponseInterceptor) Option {
	return func(c *Client) {
		c.chain.AddResponseInterceptor(interceptor)
	}
}

// New creates a framework client for the given base endpoint. The endpoint is
// normalized: a missing scheme defaults to https and trailing slashes are
// reduced to one. The transport is required and becomes exclusively owned by
// this client; it is released by Close.
func New(endpoint string, transport Transport, opts ...Option) (*Client, error) {
	if transport == nil {
		return nil, &ConfigurationError{Reason: "transport is required"}
	}

	base, err := NormalizeEndpoint(endpoint)
	if err != nil {
		return nil, err
	}

	client := &Client{
		base:      base,
		transport: transport,
		tokens:    NewTokenStore(),
		chain:     NewInterceptorChain(),
		logger:    NoopLogger{},
		userAgent: constants.DefaultUserAgent,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// NormalizeEndpoint parses a base endpoint, defaulting the scheme to https
// and ensuring the path ends with exactly one slash. A relative endpoint is a
// ConfigurationError.
func NormalizeEndpoint(endpoint string) (*url.URL, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, &ConfigurationError{Reason: "endpoint is empty"}
	}

	if !strings.Contains(endpoint, "://") {
		endpoint = "https://" + endpoint
	}

	endpoint = strings.TrimRight(endpoint, "/") + "/"

	base, err := url.Parse(endpoint)
	if err != nil {
		return nil, &ConfigurationError{Reason: "malformed endpoint " + endpoint + ": " + err.Error()}
	}

	if !base.IsAbs() || base.Host == "" {
		return nil, &ConfigurationError{Reason: ErrRelativeBase.Error() + ": " + endpoint}
	}

	return base, nil
}

// BaseURI returns the client's base URI. Relative targets resolve under it.
func (c *Client) BaseURI() *url.URL {
	return c.base
}

// Token returns the current session token, or nil before a login.
func (c *Client) Token() *Token {
	return c.tokens.Get()
}

// SetToken replaces the current session token. Login flows call this; it is
// exported for callers that obtained a token out of band.
func (c *Client) SetToken(token *Token) {
	c.tokens.Set(token)
}

// ClearToken drops the current session token.
func (c *Client) ClearToken() {
	c.tokens.Clear()
}

// SetAuthorizer replaces the per-request authentication hook. Binding
// constructors call this after embedding the core client.
func (c *Client) SetAuthorizer(authorizer Authorizer) {
	c.authorizer = authorizer
}

// Interceptors exposes the client's interceptor chain.
func (c *Client) Interceptors() *InterceptorChain {
	return c.chain
}

// Logger returns the configured logger.
func (c *Client) Logger() Logger {
	return c.logger
}

// Close releases the transport's resources. The client is unusable afterward.
func (c *Client) Close() {
	if c.closed.CompareAndSwap(false, true) {
		c.transport.Close()
	}
}

// Do executes one API request: resolve the target against the base URI, run
// request interceptors, apply the authentication hook, dispatch through the
// transport, then run response interceptors. Non-2xx statuses are returned
// as responses, not errors; a failed request leaves the client's token and
// base URI untouched.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}

	resolved, err := Resolve(c.base, req.Target)
	if err != nil {
		return nil, err
	}

	if req.Headers == nil {
		req.Headers = make(http.Header)
	}

	interceptErr := c.chain.ExecuteRequestInterceptors(ctx, req)
	if interceptErr != nil {
		return nil, interceptErr
	}

	if c.authorizer != nil {
		authErr := c.authorizer.Authorize(c.tokens.Get(), req)
		if authErr != nil {
			return nil, authErr
		}
	}

	body, err := req.body()
	if err != nil {
		return nil, err
	}

	c.applyDefaultHeaders(req.Headers, body)

	c.logger.Debug("API request", map[string]interface{}{
		"method": req.Method,
		"url":    resolved.String(),
	})

	resp, err := c.transport.RoundTrip(ctx, req.Method, resolved, req.Headers, body)
	if err != nil {
		err = &TransportError{Op: req.Method, URL: resolved.String(), Err: err}
	}

	if resp != nil && resp.URL == "" {
		resp.URL = resolved.String()
	}

	interceptErr = c.chain.ExecuteResponseInterceptors(ctx, req, resp, err)
	if interceptErr != nil {
		return resp, interceptErr
	}

	if err != nil {
		return nil, err
	}

	c.logger.Debug("API response", map[string]interface{}{
		"method":      req.Method,
		"url":         resolved.String(),
		"status_code": resp.StatusCode,
	})

	return resp, nil
}

// Get executes a GET request against the target.
func (c *Client) Get(ctx context.Context, target Target) (*Response, error) {
	return c.Do(ctx, NewRequest(http.MethodGet, target))
}

// Post executes a POST request with JSON parameters.
func (c *Client) Post(ctx context.Context, target Target, params Params) (*Response, error) {
	return c.Do(ctx, NewRequest(http.MethodPost, target).WithParams(params))
}

// Put executes a PUT request with JSON parameters.
func (c *Client) Put(ctx context.Context, target Target, params Params) (*Response, error) {
	return c.Do(ctx, NewRequest(http.MethodPut, target).WithParams(params))
}

// Patch executes a PATCH request with JSON parameters.
func (c *Client) Patch(ctx context.Context, target Target, params Params) (*Response, error) {
	return c.Do(ctx, NewRequest(http.MethodPatch, target).WithParams(params))
}

// Delete executes a DELETE request against the target.
func (c *Client) Delete(ctx context.Context, target Target) (*Response, error) {
	return c.Do(ctx, NewRequest(http.MethodDelete, target))
}

func (c *Client) applyDefaultHeaders(headers http.Header, body []byte) {
	if headers.Get("Accept") == "" {
		headers.Set("Accept", "application/json")
	}

	if headers.Get("User-Agent") == "" {
		headers.Set("User-Agent", c.userAgent)
	}

	if body != nil && headers.Get("Content-Type") == "" {
		headers.Set("Content-Type", "application/json")
	}
}
