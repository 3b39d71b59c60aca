package storage

import (
	"context"
	"errors"
	"time"

	"github.com/hongminglow/clubhub/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// UserStore captures account persistence needed by handlers.
type UserStore interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateRole(ctx context.Context, id string, role models.Role) (models.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// PostQuery narrows ListPosts. A zero value lists everything.
type PostQuery struct {
	Status models.PostStatus
}

// PostStore captures post persistence.
type PostStore interface {
	CreatePost(ctx context.Context, post models.Post) (models.Post, error)
	ListPosts(ctx context.Context, q PostQuery) ([]models.Post, error)
	DeletePost(ctx context.Context, id string) error
}

// VisitStore records anonymous page views for the weekly activity chart.
type VisitStore interface {
	RecordVisit(ctx context.Context, at time.Time) error
	ListVisits(ctx context.Context, since time.Time) ([]time.Time, error)
}

// EventStream delivers auth events for one user until closed.
type EventStream interface {
	Events() <-chan models.AuthEvent
	Close() error
}

// SessionRegistry tracks live server sessions and fans out auth events.
type SessionRegistry interface {
	Create(ctx context.Context, sess models.Session) error
	Get(ctx context.Context, id string) (models.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteForUser(ctx context.Context, userID string) error
	Publish(ctx context.Context, userID string, ev models.AuthEvent) error
	Subscribe(ctx context.Context, userID string) (EventStream, error)
}
