package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/wolfeidau/onboard/internal/logger"
)

const (
	// HeaderTenantID carries the global id of the tenant a request acts on.
	HeaderTenantID = "X-Tenant-ID"

	// HeaderRequestID correlates client and server logs.
	HeaderRequestID = "X-Request-ID"
)

// Config holds common client configuration
type Config struct {
	ServerURL string
	Timeout   time.Duration
	Debug     bool

	// CacheDir enables the disk backed response cache when set.
	CacheDir string
}

// DefaultConfig returns a default client configuration
func DefaultConfig() Config {
	return Config{
		ServerURL: "https://localhost:8080",
		Timeout:   30 * time.Second,
		Debug:     false,
	}
}

// Client talks to the onboarding API. A Client is immutable: WithBearer returns a new value bound
// to a token and tenant so requests never pick up credentials from another session.
type Client struct {
	baseURL   string
	timeout   time.Duration
	cacheDir  string
	transport http.RoundTripper
	http      *http.Client

	token    string
	tenantID string
}

// New creates an unauthenticated client with the given configuration
func New(config Config) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(config.ServerURL, "/"),
		timeout:   config.Timeout,
		cacheDir:  config.CacheDir,
		transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	c.http = c.newHTTPClient()

	return c
}

// WithBearer returns a copy of the client that authenticates with token and targets tenantID.
// An empty tenantID sends no tenant header.
func (c *Client) WithBearer(token, tenantID string) *Client {
	clone := *c
	clone.token = token
	clone.tenantID = tenantID
	clone.http = clone.newHTTPClient()
	return &clone
}

// newHTTPClient builds an http.Client whose response cache is scoped to the bound credentials.
// Requests are logged before the cache so hits show up as cached.
func (c *Client) newHTTPClient() *http.Client {
	return &http.Client{
		Timeout:   c.timeout,
		Transport: logger.NewRequests(log.Logger, newCachingTransport(c.transport, c.cacheDir, c.scope())),
	}
}

// BaseURL returns the server URL requests are resolved against.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Token returns the bearer token, empty when unauthenticated.
func (c *Client) Token() string {
	return c.token
}

// TenantID returns the tenant the client is bound to.
func (c *Client) TenantID() string {
	return c.tenantID
}

// Authenticated reports whether requests carry a bearer token.
func (c *Client) Authenticated() bool {
	return c.token != ""
}

// NewRequest creates a request for path, which is either relative to the base URL or absolute
// (links handed out by the server). Absolute URLs must share the scheme and host of the base URL
// so credentials are never sent to another origin.
func (c *Client) NewRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	target, err := c.resolve(path)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderRequestID, uuid.Must(uuid.NewV7()).String())

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.tenantID != "" {
		req.Header.Set(HeaderTenantID, c.tenantID)
	}

	return req, nil
}

// Do sends the request. Non-2xx responses are returned as *APIError.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, decodeAPIError(resp)
	}

	return resp, nil
}

// GetJSON fetches path and decodes the JSON body into v.
func (c *Client) GetJSON(ctx context.Context, path string, v any) error {
	req, err := c.NewRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w from %s: %w", ErrDecode, path, err)
	}

	// Read to EOF so the response is stored by the cache and the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)

	return nil
}

func (c *Client) resolve(path string) (string, error) {
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		return c.baseURL + "/" + strings.TrimLeft(path, "/"), nil
	}

	link, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("failed to parse link %q: %w", path, err)
	}
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse server url: %w", err)
	}

	if !strings.EqualFold(link.Scheme, base.Scheme) || !strings.EqualFold(link.Host, base.Host) {
		return "", fmt.Errorf("%w: %s", ErrForeignOrigin, link.Host)
	}

	return path, nil
}
