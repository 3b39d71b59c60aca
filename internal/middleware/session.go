package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hongminglow/clubhub/internal/auth"
	"github.com/hongminglow/clubhub/internal/http/respond"
	"github.com/hongminglow/clubhub/internal/storage"
)

// Principal identifies the caller behind a verified bearer token.
type Principal struct {
	UserID    string
	SessionID string
	Email     string
}

type principalKey struct{}

// WithPrincipal stores the principal in the context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal set by RequireSession.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// RequireSession returns middleware that rejects requests without a valid
// bearer token whose server session is still live.
func RequireSession(tokens *auth.TokenManager, sessions storage.SessionRegistry, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				respond.Error(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			claims, err := tokens.Parse(raw)
			if err != nil {
				respond.Error(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			sess, err := sessions.Get(r.Context(), claims.SessionID)
			if err != nil {
				if !errors.Is(err, storage.ErrNotFound) {
					logger.ErrorContext(r.Context(), "session lookup failed", "error", err)
					respond.Error(w, http.StatusInternalServerError, "failed to verify session")
					return
				}
				respond.Error(w, http.StatusUnauthorized, "session has ended")
				return
			}
			if sess.UserID != claims.Subject {
				respond.Error(w, http.StatusUnauthorized, "session has ended")
				return
			}

			ctx := WithPrincipal(r.Context(), Principal{
				UserID:    claims.Subject,
				SessionID: claims.SessionID,
				Email:     claims.Email,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Chain applies middleware so the first listed runs outermost.
func Chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
