// Package ankiconnect is a client for the AnkiConnect JSON-RPC interface of
// the remote flashcard store.
package ankiconnect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cdhutch/cnsf/pkg/core"
)

const (
	// DefaultURL is where AnkiConnect listens by default.
	DefaultURL = "http://127.0.0.1:8765"
	// APIVersion is the envelope version sent with every request.
	APIVersion = 6
	// DefaultTimeout bounds a single request.
	DefaultTimeout = 15 * time.Second
)

// Client issues one blocking request per call. It is safe for concurrent use.
type Client struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client for the AnkiConnect endpoint at url.
func New(url string, opts ...Option) *Client {
	if url == "" {
		url = DefaultURL
	}
	c := &Client{
		url:        url,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the endpoint.
func (c *Client) URL() string {
	return c.url
}

type request struct {
	Action  string `json:"action"`
	Version int    `json:"version"`
	Params  any    `json:"params"`
}

type response struct {
	Result json.RawMessage `json:"result"`
	Error  *string         `json:"error"`
}

// RemoteError is a non-null error returned in a response envelope.
type RemoteError struct {
	Action  string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("ankiconnect %s: %s", e.Action, e.Message)
}

// IsDuplicate reports whether the store rejected a create as a duplicate.
// AnkiConnect exposes no structured conflict code, only message text.
func (e *RemoteError) IsDuplicate() bool {
	return strings.Contains(strings.ToLower(e.Message), "duplicate")
}

// Invoke sends one action and decodes its result into out, which may be nil.
// Transport failures are reported as *core.ConfigError since no call can
// succeed without connectivity; an error in the envelope is a *RemoteError.
func (c *Client) Invoke(ctx context.Context, action string, params any, out any) error {
	if params == nil {
		params = struct{}{}
	}
	body, err := json.Marshal(request{Action: action, Version: APIVersion, Params: params})
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", action, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return &core.ConfigError{Component: "ankiconnect", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("ankiconnect request", "action", action)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &core.ConfigError{Component: "ankiconnect", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &core.ConfigError{Component: "ankiconnect", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return &core.ConfigError{
			Component: "ankiconnect",
			Err:       fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(data))),
		}
	}

	var env response
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("decode %s response: %w", action, err)
	}
	if env.Error != nil {
		return &RemoteError{Action: action, Message: *env.Error}
	}
	if out == nil || len(env.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("decode %s result: %w", action, err)
	}
	return nil
}
