package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hongminglow/clubhub/internal/auth"
	"github.com/hongminglow/clubhub/internal/config"
	"github.com/hongminglow/clubhub/internal/http/respond"
	"github.com/hongminglow/clubhub/internal/middleware"
	"github.com/hongminglow/clubhub/internal/models"
	"github.com/hongminglow/clubhub/internal/models/dto"
	"github.com/hongminglow/clubhub/internal/storage"
)

// keepAliveInterval spaces SSE comments and session liveness checks.
const keepAliveInterval = 25 * time.Second

// AuthHandler owns sign-up, sign-in, sign-out, and session endpoints.
type AuthHandler struct {
	users     storage.UserStore
	sessions  storage.SessionRegistry
	tokens    *auth.TokenManager
	cfg       *config.Config
	logger    *slog.Logger
	keepAlive time.Duration
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(users storage.UserStore, sessions storage.SessionRegistry, tokens *auth.TokenManager, cfg *config.Config, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		users:     users,
		sessions:  sessions,
		tokens:    tokens,
		cfg:       cfg,
		logger:    logger,
		keepAlive: keepAliveInterval,
	}
}

// Register attaches auth routes to the mux. Routes needing a session are wrapped with protect.
func (h *AuthHandler) Register(mux *http.ServeMux, protect func(http.Handler) http.Handler) {
	mux.HandleFunc("POST /auth/signup", h.handleSignUp)
	mux.HandleFunc("POST /auth/token", h.handleToken)
	mux.Handle("POST /auth/logout", protect(http.HandlerFunc(h.handleLogout)))
	mux.Handle("GET /auth/user", protect(http.HandlerFunc(h.handleUser)))
	mux.Handle("GET /auth/events", protect(http.HandlerFunc(h.handleEvents)))
}

func (h *AuthHandler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req dto.SignUpRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := auth.ValidateCredentials(req.Email, req.Password); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	role := models.RoleUser
	if h.cfg != nil && h.cfg.IsAdminEmail(req.Email) {
		role = models.RoleAdmin
	}
	user := models.User{
		Email:        strings.TrimSpace(req.Email),
		Name:         strings.TrimSpace(req.Data["name"]),
		Role:         role,
		PasswordHash: passwordHash,
	}
	created, err := h.users.CreateUser(r.Context(), user)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrAlreadyExists):
			respond.Error(w, http.StatusConflict, "user already exists")
		default:
			h.logger.ErrorContext(r.Context(), "create user failed", "error", err)
			respond.Error(w, http.StatusInternalServerError, "failed to create user")
		}
		return
	}

	resp, err := h.openSession(r.Context(), created)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "open session after sign-up failed", "user_id", created.ID, "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to open session")
		return
	}
	h.logger.InfoContext(r.Context(), "user signed up", "user_id", created.ID, "role", created.Role)
	respond.JSON(w, http.StatusOK, "user created successfully", resp)
}

func (h *AuthHandler) handleToken(w http.ResponseWriter, r *http.Request) {
	var req dto.TokenRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		respond.Error(w, http.StatusBadRequest, "email and password are required")
		return
	}
	user, err := h.users.FindByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.logger.ErrorContext(r.Context(), "sign-in lookup failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to fetch user")
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		respond.Error(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	resp, err := h.openSession(r.Context(), user)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "open session failed", "user_id", user.ID, "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to open session")
		return
	}
	respond.JSON(w, http.StatusOK, "login successful", resp)
}

func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.PrincipalFrom(r.Context())
	if err := h.sessions.Delete(r.Context(), p.SessionID); err != nil {
		h.logger.ErrorContext(r.Context(), "delete session failed", "session_id", p.SessionID, "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to sign out")
		return
	}
	ev := models.AuthEvent{Kind: models.EventSignedOut, SessionID: p.SessionID}
	if err := h.sessions.Publish(r.Context(), p.UserID, ev); err != nil {
		h.logger.WarnContext(r.Context(), "publish sign-out failed", "user_id", p.UserID, "error", err)
	}
	respond.JSON(w, http.StatusOK, "signed out", nil)
}

func (h *AuthHandler) handleUser(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.PrincipalFrom(r.Context())
	user, err := h.users.FindByID(r.Context(), p.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusUnauthorized, "account no longer exists")
			return
		}
		h.logger.ErrorContext(r.Context(), "fetch current user failed", "user_id", p.UserID, "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to fetch user")
		return
	}
	respond.JSON(w, http.StatusOK, "ok", dto.AccountFromUser(user))
}

// handleEvents streams the caller's auth events as server-sent events until
// the session ends or the client goes away.
func (h *AuthHandler) handleEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, _ := middleware.PrincipalFrom(ctx)

	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		h.logger.WarnContext(ctx, "clear write deadline failed", "error", err)
	}

	stream, err := h.sessions.Subscribe(ctx, p.UserID)
	if err != nil {
		h.logger.ErrorContext(ctx, "subscribe to auth events failed", "user_id", p.UserID, "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to open event stream")
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	if err := rc.Flush(); err != nil {
		return
	}

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-stream.Events():
			if !ok {
				return
			}
			if !ev.Targets(p.SessionID) {
				continue
			}
			if err := writeEvent(w, ev); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
			if ev.Kind == models.EventSignedOut {
				return
			}
		case <-ticker.C:
			if _, err := h.sessions.Get(ctx, p.SessionID); errors.Is(err, storage.ErrNotFound) {
				_ = writeEvent(w, models.AuthEvent{Kind: models.EventSignedOut, SessionID: p.SessionID})
				_ = rc.Flush()
				return
			}
			fmt.Fprint(w, ": keep-alive\n\n")
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, ev models.AuthEvent) error {
	payload := []byte("{}")
	if ev.User != nil {
		var err error
		if payload, err = json.Marshal(dto.AccountFromUser(*ev.User)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, payload)
	return err
}

func (h *AuthHandler) openSession(ctx context.Context, user models.User) (dto.SessionResponse, error) {
	sess := models.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(h.tokens.TTL()).UTC(),
	}
	if err := h.sessions.Create(ctx, sess); err != nil {
		return dto.SessionResponse{}, fmt.Errorf("create session: %w", err)
	}
	token, err := h.tokens.Generate(user, sess)
	if err != nil {
		return dto.SessionResponse{}, fmt.Errorf("generate token: %w", err)
	}
	return dto.SessionResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   sess.ExpiresAt,
		User:        dto.AccountFromUser(user),
	}, nil
}
