package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hongminglow/clubhub/internal/http/respond"
	"github.com/hongminglow/clubhub/internal/middleware"
	"github.com/hongminglow/clubhub/internal/models"
	"github.com/hongminglow/clubhub/internal/models/dto"
	"github.com/hongminglow/clubhub/internal/storage"
)

// PostsHandler serves the public feed and the admin post collection.
type PostsHandler struct {
	posts  storage.PostStore
	visits storage.VisitStore
	logger *slog.Logger
	now    func() time.Time
}

// NewPostsHandler constructs the handler.
func NewPostsHandler(posts storage.PostStore, visits storage.VisitStore, logger *slog.Logger) *PostsHandler {
	return &PostsHandler{posts: posts, visits: visits, logger: logger, now: time.Now}
}

// Register attaches post routes; admin routes are wrapped with protect.
func (h *PostsHandler) Register(mux *http.ServeMux, protect func(http.Handler) http.Handler) {
	mux.HandleFunc("GET /posts", h.handlePublished)
	mux.Handle("GET /admin/posts", protect(http.HandlerFunc(h.handleList)))
	mux.Handle("POST /admin/posts", protect(http.HandlerFunc(h.handleCreate)))
	mux.Handle("DELETE /admin/posts/{id}", protect(http.HandlerFunc(h.handleDelete)))
	mux.Handle("GET /admin/visits", protect(http.HandlerFunc(h.handleVisits)))
}

func (h *PostsHandler) handlePublished(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.ListPosts(r.Context(), storage.PostQuery{Status: models.StatusPublished})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list published posts failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to list posts")
		return
	}
	if err := h.visits.RecordVisit(r.Context(), h.now().UTC()); err != nil {
		h.logger.WarnContext(r.Context(), "record visit failed", "error", err)
	}
	respond.JSON(w, http.StatusOK, "ok", nonNil(posts))
}

func (h *PostsHandler) handleList(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.ListPosts(r.Context(), storage.PostQuery{})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list posts failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to list posts")
		return
	}
	respond.JSON(w, http.StatusOK, "ok", nonNil(posts))
}

func (h *PostsHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.PrincipalFrom(r.Context())
	var req dto.CreatePostRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	post, err := postFromRequest(req)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	author := p.UserID
	post.Author = &author

	created, err := h.posts.CreatePost(r.Context(), post)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "create post failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to create post")
		return
	}
	h.logger.InfoContext(r.Context(), "post created", "post_id", created.ID, "status", created.Status, "author", author)
	respond.JSON(w, http.StatusCreated, "post created", created)
}

func (h *PostsHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.posts.DeletePost(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, "post not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "delete post failed", "post_id", id, "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to delete post")
		return
	}
	respond.JSON(w, http.StatusOK, "post deleted", nil)
}

// handleVisits lists visit timestamps, optionally limited to the last ?days=N days.
func (h *PostsHandler) handleVisits(w http.ResponseWriter, r *http.Request) {
	var since time.Time
	if raw := r.URL.Query().Get("days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days <= 0 {
			respond.Error(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		since = h.now().AddDate(0, 0, -days)
	}
	visits, err := h.visits.ListVisits(r.Context(), since)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list visits failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to list visits")
		return
	}
	if visits == nil {
		visits = []time.Time{}
	}
	respond.JSON(w, http.StatusOK, "ok", dto.VisitsResponse{Visits: visits})
}

func postFromRequest(req dto.CreatePostRequest) (models.Post, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return models.Post{}, errors.New("title is required")
	}
	typ, err := models.ParsePostType(req.Type)
	if err != nil {
		return models.Post{}, err
	}
	status, err := models.ParsePostStatus(req.Status)
	if err != nil {
		return models.Post{}, err
	}
	if status == models.StatusPublished && strings.TrimSpace(req.Content) == "" {
		return models.Post{}, errors.New("content is required to publish")
	}
	if req.Date != nil {
		if _, err := time.Parse(time.DateOnly, *req.Date); err != nil {
			return models.Post{}, errors.New("date must be formatted YYYY-MM-DD")
		}
	}
	if req.Time != nil {
		if _, err := time.Parse("15:04", *req.Time); err != nil {
			return models.Post{}, errors.New("time must be formatted HH:MM")
		}
	}
	if req.Image != nil && !strings.HasPrefix(*req.Image, "data:image/") {
		return models.Post{}, errors.New("image must be an image data URL")
	}
	return models.Post{
		Title:   title,
		Content: req.Content,
		Type:    typ,
		Status:  status,
		Date:    req.Date,
		Time:    req.Time,
		Image:   req.Image,
	}, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
