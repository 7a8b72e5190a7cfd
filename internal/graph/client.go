package graph

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// DefaultBaseURL is the Graph v1.0 endpoint.
const DefaultBaseURL = "https://graph.microsoft.com/v1.0"

// maxErrorBody caps how much of an error response body is kept for GraphError.
const maxErrorBody = 64 << 10

// TokenSource provides OAuth2 bearer tokens. Defined at the consumer
// (graph package) per Go convention "accept interfaces, return structs".
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource that always returns the same bearer token.
// Used for delegated user tokens handed in by the caller.
type StaticToken string

// Token returns the wrapped token.
func (t StaticToken) Token(_ context.Context) (string, error) {
	return string(t), nil
}

// Client is an HTTP client for the Microsoft Graph API.
// It handles request construction, authentication, and error
// classification. Every request is issued once; failures surface
// immediately to the caller.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      TokenSource
	logger     *slog.Logger
	userAgent  string
}

// NewClient creates a Graph API client.
// baseURL is typically DefaultBaseURL.
func NewClient(baseURL string, httpClient *http.Client, token TokenSource, logger *slog.Logger, userAgent string) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		token:      token,
		logger:     logger,
		userAgent:  userAgent,
	}
}

// WithToken returns a shallow copy of c that authenticates with ts.
// The HTTP client and logger are shared.
func (c *Client) WithToken(ts TokenSource) *Client {
	clone := *c
	clone.token = ts

	return &clone
}

// BaseURL returns the API base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do executes an authenticated request against the Graph API.
// The path is appended to the client's base URL.
// For non-nil bodies, Content-Type is set to application/json.
// Non-2xx responses are returned as *GraphError with the body consumed.
// The caller is responsible for closing the response body on success.
func (c *Client) Do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	resp, err := c.send(ctx, c.httpClient, method, c.baseURL+path, body, true)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		c.logger.Debug("request succeeded",
			slog.String("method", method),
			slog.String("path", redactSharePath(path)),
			slog.Int("status", resp.StatusCode),
		)

		return resp, nil
	}

	return nil, c.errorFromResponse(resp, method, path)
}

// send builds and executes a single request. When authenticate is false
// no Authorization header is attached.
func (c *Client) send(
	ctx context.Context, hc *http.Client, method, target string, body io.Reader, authenticate bool,
) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("graph: creating request: %w", err)
	}

	if authenticate {
		tok, tokErr := c.token.Token(ctx)
		if tokErr != nil {
			return nil, fmt.Errorf("graph: obtaining token: %w", tokErr)
		}

		req.Header.Set("Authorization", "Bearer "+tok)
	}

	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("graph: request canceled: %w", ctx.Err())
		}

		// The URL in a transport error embeds the share token or the
		// pre-authenticated download credential.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}

		return nil, fmt.Errorf("graph: %s request failed: %w", method, err)
	}

	return resp, nil
}

// errorFromResponse drains and closes resp and wraps its status in a GraphError.
func (c *Client) errorFromResponse(resp *http.Response, method, path string) error {
	errBody, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()

	if readErr != nil {
		errBody = []byte("(failed to read response body)")
	}

	c.logger.Warn("request failed",
		slog.String("method", method),
		slog.String("path", redactSharePath(path)),
		slog.Int("status", resp.StatusCode),
	)

	return &GraphError{
		StatusCode: resp.StatusCode,
		RequestID:  resp.Header.Get("request-id"),
		Message:    string(errBody),
		Err:        classifyStatus(resp.StatusCode),
	}
}
