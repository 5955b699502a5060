// internal/app/system/apiclient/client.go
package apiclient

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Timeouts are deliberately tight: the reconciliation engine and the
// directory backends must never block indefinitely on a partial network
// outage. They fall back to stale cache instead.
const (
	connectTimeout = 2 * time.Second
	totalTimeout   = 5 * time.Second
)

// ErrNotFound reports a 404 from an entity lookup. It is an expected
// condition, distinct from transport failures and non-2xx error responses.
var ErrNotFound = errors.New("apiclient: resource not found")

// StatusError reports a non-2xx response. The parsed error body, when the
// API supplied one, is preserved so callers can log the details.
type StatusError struct {
	Status int
	Body   []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("apiclient: unexpected status %d", e.Status)
}

// Options configures a Client.
type Options struct {
	// BaseURL of the membership API, e.g. "https://api.example.org".
	BaseURL string
	// APIKey is the service token used when a call site supplies no
	// user-bound token.
	APIKey string
	// HTTPClient overrides the default client (tests).
	HTTPClient *http.Client
	// InsecureSkipVerify disables TLS verification. Tests against httptest
	// TLS servers only; never set in production.
	InsecureSkipVerify bool
}

// Client is a thin wrapper over the membership API: JSON responses, bearer
// token auth, conditional deletes via If-Match, bounded timeouts.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *zap.Logger
}

// Response is the outcome of a single request. Non-2xx responses still carry
// the parsed body when the API returned one (error payloads).
type Response struct {
	Status int
	Body   []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool { return r.Status >= 200 && r.Status < 300 }

// Decode unmarshals the response body into out.
func (r *Response) Decode(out any) error {
	if err := json.Unmarshal(r.Body, out); err != nil {
		return &DecodeError{Err: err}
	}
	return nil
}

// New builds a Client. The zero HTTPClient gets a transport with a 2s
// connect timeout and a 5s total deadline.
func New(opts Options, logger *zap.Logger) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: totalTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: connectTimeout,
				}).DialContext,
				TLSHandshakeTimeout: connectTimeout,
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: opts.InsecureSkipVerify,
				},
			},
		}
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		apiKey:  opts.APIKey,
		http:    httpClient,
		log:     logger,
	}
}

// Get performs a GET request. An empty token falls back to the service key.
func (c *Client) Get(ctx context.Context, path, token string) (*Response, error) {
	return c.do(ctx, http.MethodGet, path, nil, "", token)
}

// Post performs a form-encoded POST request (the session endpoint takes
// form fields, not JSON).
func (c *Client) Post(ctx context.Context, path string, form url.Values, token string) (*Response, error) {
	return c.do(ctx, http.MethodPost, path, strings.NewReader(form.Encode()), "", token)
}

// Delete performs a conditional DELETE carrying the given etag in If-Match.
func (c *Client) Delete(ctx context.Context, path, etag, token string) (*Response, error) {
	return c.do(ctx, http.MethodDelete, path, nil, etag, token)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, etag, token string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return nil, err
	}
	if token == "" {
		token = c.apiKey
	}
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	if etag != "" {
		req.Header.Set("If-Match", etag)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("apiclient: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("apiclient: read %s %s: %w", method, path, err)
	}
	return &Response{Status: resp.StatusCode, Body: payload}, nil
}

// url joins the base URL with a request path. Paths handed back by the API
// in `_links.next.href` are relative and may carry their own query string.
func (c *Client) url(path string) string {
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}
