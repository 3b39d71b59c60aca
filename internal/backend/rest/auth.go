package rest

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hongminglow/clubhub/internal/backend"
	"github.com/hongminglow/clubhub/internal/models/dto"
)

func toAccount(a dto.Account) *backend.Account {
	meta := backend.Metadata{}
	for k, v := range a.UserMetadata {
		meta[k] = v
	}
	return &backend.Account{ID: a.ID, Email: a.Email, Metadata: meta, Role: a.Role}
}

// Session returns the account behind the stored token. No token, or a token
// the server no longer accepts, means no session.
func (c *Client) Session(ctx context.Context) (*backend.Account, error) {
	token, err := c.accessToken()
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, nil
	}
	var acct dto.Account
	if err := c.doJSON(ctx, http.MethodGet, "/auth/user", true, nil, &acct); err != nil {
		if IsUnauthorized(err) {
			c.clearToken()
			return nil, nil
		}
		return nil, err
	}
	return toAccount(acct), nil
}

// OnAuthStateChange registers fn for local sign-in/sign-out and for events
// relayed by Watch.
func (c *Client) OnAuthStateChange(fn func(backend.Event)) backend.Subscription {
	return c.events.Subscribe(fn)
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) backend.Result {
	return c.openSession(ctx, "/auth/token", dto.TokenRequest{Email: email, Password: password})
}

func (c *Client) SignUp(ctx context.Context, email, password string, metadata backend.Metadata) backend.Result {
	return c.openSession(ctx, "/auth/signup", dto.SignUpRequest{Email: email, Password: password, Data: metadata})
}

func (c *Client) openSession(ctx context.Context, path string, in any) backend.Result {
	var resp dto.SessionResponse
	if err := c.doJSON(ctx, http.MethodPost, path, false, in, &resp); err != nil {
		return backend.Failed(err)
	}
	if resp.AccessToken == "" {
		return backend.Succeeded(nil)
	}
	if err := c.tokens.Save(Token{AccessToken: resp.AccessToken, ExpiresAt: resp.ExpiresAt}); err != nil {
		return backend.Failed(fmt.Errorf("store access token: %w", err))
	}
	acct := toAccount(resp.User)
	c.events.Publish(backend.Event{Kind: backend.SignedIn, Account: acct})
	return backend.Succeeded(acct)
}

// SignOut revokes the server session when there is one. The stored token is
// cleared and SIGNED_OUT published whatever the server says.
func (c *Client) SignOut(ctx context.Context) error {
	token, err := c.accessToken()
	if err != nil {
		return err
	}
	if token != "" {
		err = c.doJSON(ctx, http.MethodPost, "/auth/logout", true, nil, nil)
	}
	c.clearToken()
	c.events.Publish(backend.Event{Kind: backend.SignedOut})
	return err
}

// Watch relays the server's auth event stream to OnAuthStateChange
// subscribers until the session ends, the stream closes, or ctx is done.
func (c *Client) Watch(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/auth/events", true, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("open event stream: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		err := parseError(resp)
		if IsUnauthorized(err) {
			c.clearToken()
			c.events.Publish(backend.Event{Kind: backend.SignedOut})
		}
		return err
	}

	if err := c.readEvents(resp.Body); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("read event stream: %w", err)
	}
	return nil
}

// readEvents parses server-sent events until SIGNED_OUT or end of stream.
func (c *Client) readEvents(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64<<10), 1<<20)

	var kind string
	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if kind != "" && c.dispatch(backend.EventKind(kind), data.String()) {
				return nil
			}
			kind = ""
			data.Reset()
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			kind = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	return scanner.Err()
}

// dispatch publishes one event and reports whether the session ended.
func (c *Client) dispatch(kind backend.EventKind, data string) bool {
	switch kind {
	case backend.SignedOut:
		c.clearToken()
		c.events.Publish(backend.Event{Kind: backend.SignedOut})
		return true
	case backend.SignedIn, backend.UserUpdated, backend.TokenRefreshed:
		var acct dto.Account
		if err := json.Unmarshal([]byte(data), &acct); err != nil || acct.ID == "" {
			c.logger.Warn("dropping malformed auth event", "kind", kind, "error", err)
			return false
		}
		c.events.Publish(backend.Event{Kind: kind, Account: toAccount(acct)})
	default:
		c.logger.Debug("ignoring unknown auth event", "kind", kind)
	}
	return false
}
