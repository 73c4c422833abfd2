// Package api is the REST client for the donation backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Veraticus/givedesk/internal/common"
	"golang.org/x/oauth2"
)

// DefaultTimeout bounds every backend call.
const DefaultTimeout = 10 * time.Second

const maxBodyBytes = 32 << 20

// Client talks to the backend REST API.
type Client struct {
	baseURL       *url.URL
	httpClient    *http.Client
	tokens        oauth2.TokenSource
	logger        *slog.Logger
	onAuthExpired func()
	timeout       time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithTokenSource authenticates requests with bearer tokens from ts.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(c *Client) {
		c.tokens = ts
	}
}

// WithHTTPClient replaces the underlying HTTP client. Bearer tokens are still
// added per request when a token source is set.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithAuthExpiredHook is called whenever the backend answers 401 or 403.
func WithAuthExpiredHook(fn func()) Option {
	return func(c *Client) {
		c.onAuthExpired = fn
	}
}

// WithLogger sets the client's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid api base url: %v", common.ErrInvalidConfig, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: api base url must be http or https", common.ErrInvalidConfig)
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	hc := *c.httpClient
	hc.Timeout = c.timeout
	c.httpClient = &hc

	return c, nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// do sends one request and classifies every failure into the common taxonomy.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	op := method + " " + path

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s body: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if err := c.authorize(req); err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransport(op, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("failed to close response body", "error", closeErr)
		}
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, classifyTransport(op, err)
	}

	c.logger.Debug("api request",
		"op", op,
		"status", resp.StatusCode,
		"duration", time.Since(start))

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		if c.onAuthExpired != nil {
			c.onAuthExpired()
		}
		return nil, &common.AuthExpired{StatusCode: resp.StatusCode, Message: bodyMessage(data)}
	case resp.StatusCode >= 400:
		return nil, &common.ServerRejection{StatusCode: resp.StatusCode, Message: bodyMessage(data)}
	}

	return data, nil
}

// authorize adds the bearer token when one is available. Requests without a
// session go out anonymously so sign-in and public donation endpoints work.
func (c *Client) authorize(req *http.Request) error {
	if c.tokens == nil {
		return nil
	}
	tok, err := c.tokens.Token()
	switch {
	case errors.Is(err, common.ErrNotAuthenticated), errors.Is(err, common.ErrTokenExpired):
		return nil
	case err != nil:
		return fmt.Errorf("failed to read session token: %w", err)
	}
	tok.SetAuthHeader(req)
	return nil
}

func classifyTransport(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	timeout := errors.Is(err, context.DeadlineExceeded)
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		timeout = true
	}
	return &common.NetworkError{Op: op, Err: err, Timeout: timeout}
}

func bodyMessage(data []byte) string {
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return ""
	}
	return messageOf(obj)
}
