// Package httpapi implements service.Backend against the task service's
// REST/JSON API.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"taskgate/internal/config"
	"taskgate/internal/service"
)

const (
	// DefaultTimeout is the timeout for API calls.
	DefaultTimeout = 5 * time.Second

	// RequestIDHeader carries a per-call id for log correlation.
	RequestIDHeader = "X-Request-ID"
)

// Client implements service.Backend over HTTP.
type Client struct {
	base    *url.URL
	http    *http.Client
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client (for testing).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid api url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid api url: %q", baseURL)
	}

	c := &Client{
		base:    base,
		http:    http.DefaultClient,
		timeout: DefaultTimeout,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewFromConfig creates a client from CLI configuration.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	return New(cfg.APIURL, WithTimeout(cfg.Timeout), WithLogger(logger))
}

// Tasks implements service.Backend. Each request takes its bearer token
// from tokens.
func (c *Client) Tasks(tokens oauth2.TokenSource) service.TaskService {
	authed := *c
	authed.http = &http.Client{
		Transport: &oauth2.Transport{Source: tokens, Base: c.transport()},
		Timeout:   c.http.Timeout,
	}
	return &taskClient{c: &authed}
}

func (c *Client) transport() http.RoundTripper {
	if c.http.Transport != nil {
		return c.http.Transport
	}
	return http.DefaultTransport
}

// withBearer returns a copy of c that sends a fixed token.
func (c *Client) withBearer(ctx context.Context, token string) *Client {
	authed := *c
	base := &http.Client{Transport: c.transport(), Timeout: c.http.Timeout}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	authed.http = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))
	return &authed
}

// do sends a JSON request and decodes a JSON response into out, if non-nil.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	reqID := uuid.NewString()
	req.Header.Set(RequestIDHeader, reqID)

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		return wrapError(err)
	}
	defer res.Body.Close()

	c.logger.Debug("api call",
		"method", method,
		"path", path,
		"status", res.StatusCode,
		"request_id", reqID,
		"duration", time.Since(start),
	)

	if err := googleapi.CheckResponse(res); err != nil {
		return wrapError(err)
	}
	if out == nil || res.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("invalid response from %s %s: %w", method, path, err)
	}
	return nil
}

// wrapError turns transport and API failures into user-facing errors.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &service.RemoteError{Code: gerr.Code, Message: detail(gerr)}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out")
	}
	return err
}

// detail extracts the API's {"detail": ...} message.
func detail(gerr *googleapi.Error) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal([]byte(gerr.Body), &body); err == nil && len(body.Detail) > 0 {
		var msg string
		if err := json.Unmarshal(body.Detail, &msg); err == nil {
			return msg
		}
		// Validation errors carry a list of {loc, msg} objects.
		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(body.Detail, &items); err == nil {
			msgs := make([]string, 0, len(items))
			for _, it := range items {
				if it.Msg != "" {
					msgs = append(msgs, it.Msg)
				}
			}
			if len(msgs) > 0 {
				return strings.Join(msgs, "; ")
			}
		}
	}
	if gerr.Message != "" {
		return gerr.Message
	}
	return http.StatusText(gerr.Code)
}
