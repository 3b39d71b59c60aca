package views

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/hongminglow/clubhub/internal/models"
	"github.com/hongminglow/clubhub/internal/models/dto"
)

// MaxImageBytes caps images attached to a draft; they travel inline in the request body.
const MaxImageBytes = 5 << 20

// PostCreator persists a post.
type PostCreator interface {
	CreatePost(ctx context.Context, req dto.CreatePostRequest) (models.Post, error)
}

// Draft is the in-progress state of a new post.
type Draft struct {
	Title   string
	Content string
	Type    models.PostType
	// Date is YYYY-MM-DD and Time is HH:MM; both optional.
	Date  string
	Time  string
	Image string
}

// NewDraft returns an empty club draft.
func NewDraft() Draft {
	return Draft{Type: models.PostTypeClub}
}

// LoadImage reads an image file into the draft as a data URL.
func (d *Draft) LoadImage(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}
	if len(b) > MaxImageBytes {
		return fmt.Errorf("image is %d bytes; the limit is %d", len(b), MaxImageBytes)
	}
	mime := http.DetectContentType(b)
	if !strings.HasPrefix(mime, "image/") {
		return fmt.Errorf("%s is not an image (detected %s)", path, mime)
	}
	d.Image = "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(b)
	return nil
}

// Validate checks the draft for the given target status. Publishing also requires content.
func (d Draft) Validate(status models.PostStatus) error {
	if strings.TrimSpace(d.Title) == "" {
		return errors.New("title is required")
	}
	if _, err := models.ParsePostType(string(d.Type)); err != nil {
		return err
	}
	if status == models.StatusPublished && strings.TrimSpace(d.Content) == "" {
		return errors.New("content is required to publish")
	}
	if d.Date != "" {
		if _, err := time.Parse(time.DateOnly, d.Date); err != nil {
			return errors.New("date must be formatted YYYY-MM-DD")
		}
	}
	if d.Time != "" {
		if _, err := time.Parse("15:04", d.Time); err != nil {
			return errors.New("time must be formatted HH:MM")
		}
	}
	return nil
}

// Request builds the create request for status.
func (d Draft) Request(status models.PostStatus) dto.CreatePostRequest {
	return dto.CreatePostRequest{
		Title:   strings.TrimSpace(d.Title),
		Content: d.Content,
		Type:    string(d.Type),
		Status:  string(status),
		Date:    optional(d.Date),
		Time:    optional(d.Time),
		Image:   optional(d.Image),
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Publish validates and sends the draft as a published post.
func (d Draft) Publish(ctx context.Context, c PostCreator) (models.Post, error) {
	return d.submit(ctx, c, models.StatusPublished)
}

// SaveDraft validates and sends the draft unpublished.
func (d Draft) SaveDraft(ctx context.Context, c PostCreator) (models.Post, error) {
	return d.submit(ctx, c, models.StatusDraft)
}

func (d Draft) submit(ctx context.Context, c PostCreator, status models.PostStatus) (models.Post, error) {
	if err := d.Validate(status); err != nil {
		return models.Post{}, err
	}
	post, err := c.CreatePost(ctx, d.Request(status))
	if err != nil {
		return models.Post{}, fmt.Errorf("%s post: %w", status, err)
	}
	return post, nil
}
