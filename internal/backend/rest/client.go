// Package rest implements backend.Backend against the clubhub HTTP API and
// exposes the post, user, and visit collections the CLI views read.
package rest

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

	"github.com/hongminglow/clubhub/internal/backend"
	"github.com/hongminglow/clubhub/internal/notify"
)

// maxResponseBytes bounds decoded response bodies; post lists carry inline images.
const maxResponseBytes = 32 << 20

// ErrNotSignedIn is returned by calls that need a token when none is stored.
var ErrNotSignedIn = errors.New("rest: not signed in")

// APIError is a non-2xx response from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("clubhub api: HTTP %d", e.Status)
	}
	return fmt.Sprintf("clubhub api: HTTP %d: %s", e.Status, e.Message)
}

// IsUnauthorized reports whether err is a 401 from the API.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// Options configures a Client.
type Options struct {
	BaseURL string
	// HTTPClient defaults to a client without an overall timeout so the
	// event stream can stay open; bound calls with their context.
	HTTPClient *http.Client
	// Tokens defaults to a MemoryTokenStore.
	Tokens TokenStore
	Logger *slog.Logger
}

// Client talks to the clubhub API.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenStore
	logger  *slog.Logger
	events  notify.Hub[backend.Event]
	now     func() time.Time
}

var _ backend.Backend = (*Client)(nil)

// New validates opts and builds a client.
func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("rest: invalid base URL %q", opts.BaseURL)
	}
	c := &Client{
		baseURL: base,
		http:    opts.HTTPClient,
		tokens:  opts.Tokens,
		logger:  opts.Logger,
		now:     time.Now,
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.tokens == nil {
		c.tokens = &MemoryTokenStore{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c, nil
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// accessToken returns the stored token, discarding it when expired.
func (c *Client) accessToken() (string, error) {
	tok, err := c.tokens.Load()
	if errors.Is(err, ErrNoToken) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if !tok.ExpiresAt.IsZero() && !c.now().Before(tok.ExpiresAt) {
		c.logger.Debug("discarding expired access token", "expired_at", tok.ExpiresAt)
		c.clearToken()
		return "", nil
	}
	return tok.AccessToken, nil
}

func (c *Client) clearToken() {
	if err := c.tokens.Clear(); err != nil {
		c.logger.Warn("clear stored token failed", "error", err)
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, authed bool, in any) (*http.Request, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if authed {
		token, err := c.accessToken()
		if err != nil {
			return nil, err
		}
		if token == "" {
			return nil, ErrNotSignedIn
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// doJSON sends in as the body and decodes the envelope's data into out.
func (c *Client) doJSON(ctx context.Context, method, path string, authed bool, in, out any) error {
	req, err := c.newRequest(ctx, method, path, authed, in)
	if err != nil {
		return err
	}
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	c.logger.DebugContext(ctx, "api call", "method", method, "path", path, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseError(resp)
	}
	if out == nil {
		return nil
	}
	var env envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&env); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s %s data: %w", method, path, err)
	}
	return nil
}

func parseError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var env envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&env); err == nil {
		apiErr.Message = env.Message
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
