package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/hongminglow/clubhub/internal/http/respond"
	"github.com/hongminglow/clubhub/internal/middleware"
	"github.com/hongminglow/clubhub/internal/models"
	"github.com/hongminglow/clubhub/internal/models/dto"
	"github.com/hongminglow/clubhub/internal/storage"
)

// UsersHandler serves the user admin panel: listing, role changes, deletion.
// It authenticates callers but, like the rest of the backend, leaves role checks to the client.
type UsersHandler struct {
	users    storage.UserStore
	sessions storage.SessionRegistry
	logger   *slog.Logger
}

// NewUsersHandler constructs the handler.
func NewUsersHandler(users storage.UserStore, sessions storage.SessionRegistry, logger *slog.Logger) *UsersHandler {
	return &UsersHandler{users: users, sessions: sessions, logger: logger}
}

// Register attaches user admin routes, all wrapped with protect.
func (h *UsersHandler) Register(mux *http.ServeMux, protect func(http.Handler) http.Handler) {
	mux.Handle("GET /admin/users", protect(http.HandlerFunc(h.handleList)))
	mux.Handle("PATCH /admin/users/{id}", protect(http.HandlerFunc(h.handleUpdateRole)))
	mux.Handle("DELETE /admin/users/{id}", protect(http.HandlerFunc(h.handleDelete)))
}

func (h *UsersHandler) handleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list users failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	respond.JSON(w, http.StatusOK, "ok", nonNil(users))
}

func (h *UsersHandler) handleUpdateRole(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req dto.UpdateRoleRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	role, err := models.ParseRole(req.Role)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	updated, err := h.users.UpdateRole(r.Context(), id, role)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, "user not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "update role failed", "user_id", id, "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to update role")
		return
	}

	ev := models.AuthEvent{Kind: models.EventUserUpdated, User: &updated}
	if err := h.sessions.Publish(r.Context(), id, ev); err != nil {
		h.logger.WarnContext(r.Context(), "publish user update failed", "user_id", id, "error", err)
	}
	h.logger.InfoContext(r.Context(), "role updated", "user_id", id, "role", role)
	respond.JSON(w, http.StatusOK, "role updated", updated)
}

func (h *UsersHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.PrincipalFrom(r.Context())
	id := r.PathValue("id")
	if id == p.UserID {
		respond.Error(w, http.StatusConflict, "you cannot delete your own account")
		return
	}
	if err := h.users.DeleteUser(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, "user not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "delete user failed", "user_id", id, "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to delete user")
		return
	}

	if err := h.sessions.DeleteForUser(r.Context(), id); err != nil {
		h.logger.WarnContext(r.Context(), "revoke sessions failed", "user_id", id, "error", err)
	}
	if err := h.sessions.Publish(r.Context(), id, models.AuthEvent{Kind: models.EventSignedOut}); err != nil {
		h.logger.WarnContext(r.Context(), "publish sign-out failed", "user_id", id, "error", err)
	}
	h.logger.InfoContext(r.Context(), "user deleted", "user_id", id, "by", p.UserID)
	respond.JSON(w, http.StatusOK, "user deleted", nil)
}
