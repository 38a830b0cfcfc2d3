// Package api is the REST client for the gym backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"gymdesk/internal/adapters/metrics"
)

// DefaultTimeout bounds every request.
const DefaultTimeout = 10 * time.Second

var (
	// ErrNetwork wraps transport failures, timeouts included.
	ErrNetwork = errors.New("network error")
	// ErrUnauthorized is returned on any 401 after the session hook ran.
	ErrUnauthorized = errors.New("session expired, please log in again")
)

// Error is a non-2xx response with the backend's message.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// IsStatus reports whether err is an *Error with the given status code.
func IsStatus(err error, status int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// Option configures a Client.
type Option func(*Client)

// WithToken sets the bearer token source, read on every request.
func WithToken(token func() string) Option {
	return func(c *Client) { c.token = token }
}

// WithUnauthorizedHook sets the callback run when the backend answers 401.
func WithUnauthorizedHook(hook func()) Option {
	return func(c *Client) { c.onUnauthorized = hook }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.HTTPClient = hc }
}

// Client talks to the backend REST API.
type Client struct {
	baseURL        string
	token          func() string
	onUnauthorized func()
	// HTTPClient is used to make requests to the backend
	HTTPClient *http.Client
}

// New creates a client rooted at baseURL (conventionally ending in /api).
// A non-positive timeout falls back to DefaultTimeout.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do sends one JSON request on behalf of the signed-in session.
// PRE: path starts with "/"
// POST: returns ErrNetwork-wrapped errors for transport failures, ErrUnauthorized
// for 401, *Error for other non-2xx responses
func (c *Client) do(ctx context.Context, endpoint, method, path string, in, out any) error {
	return c.send(ctx, endpoint, method, path, in, out, true)
}

// doCredentials sends a request that carries credentials instead of the session token.
// A 401 here means the credentials were rejected, so the unauthorized hook does not run.
// POST: a 401 is returned as *Error with the backend's message
func (c *Client) doCredentials(ctx context.Context, endpoint, method, path string, in, out any) error {
	return c.send(ctx, endpoint, method, path, in, out, false)
}

// send performs the request and decodes the response into out (may be nil).
func (c *Client) send(ctx context.Context, endpoint, method, path string, in, out any, sessionBound bool) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil && sessionBound {
		if tok := c.token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		metrics.ObserveAPI(endpoint, 0, time.Since(start))
		slog.Warn("api_event", "event", "request_failed", "endpoint", endpoint, "error", err)
		return fmt.Errorf("%s %s: %w: %v", method, path, ErrNetwork, err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			slog.Error("failed to close response body", "error", err)
		}
	}(resp.Body)
	metrics.ObserveAPI(endpoint, resp.StatusCode, time.Since(start))

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %v", method, path, ErrNetwork, err)
	}

	if resp.StatusCode == http.StatusUnauthorized && sessionBound {
		slog.Info("api_event", "event", "unauthorized", "endpoint", endpoint)
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Status: resp.StatusCode, Message: errorMessage(resp.StatusCode, respBody)}
	}
	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(unwrap(respBody), out); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", endpoint, err)
	}
	return nil
}

// errorMessage extracts {message} or {error} from an error body.
func errorMessage(status int, body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return fmt.Sprintf("request failed with status %d", status)
}

// unwrap strips a {"data": ...} envelope when the backend uses one.
func unwrap(body []byte) []byte {
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if json.Unmarshal(body, &env) == nil && len(env.Data) > 0 && string(env.Data) != "null" {
		return env.Data
	}
	return body
}
