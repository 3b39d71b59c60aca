package models

import (
	"fmt"
	"time"
)

// PostType distinguishes club announcements from events.
type PostType string

const (
	PostTypeClub   PostType = "club"
	PostTypeEvents PostType = "events"
)

// PostStatus is the publication state of a post.
type PostStatus string

const (
	StatusDraft     PostStatus = "draft"
	StatusPublished PostStatus = "published"
)

// ParsePostType validates a post type name.
func ParsePostType(s string) (PostType, error) {
	switch PostType(s) {
	case PostTypeClub, PostTypeEvents:
		return PostType(s), nil
	default:
		return "", fmt.Errorf("invalid post type %q (valid options: club, events)", s)
	}
}

// ParsePostStatus validates a post status name.
func ParsePostStatus(s string) (PostStatus, error) {
	switch PostStatus(s) {
	case StatusDraft, StatusPublished:
		return PostStatus(s), nil
	default:
		return "", fmt.Errorf("invalid post status %q (valid options: draft, published)", s)
	}
}

// Post is a club or event announcement.
// Date is a calendar day (YYYY-MM-DD) and Time a wall-clock HH:MM; both optional.
type Post struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	Type      PostType   `json:"type"`
	Status    PostStatus `json:"status"`
	Date      *string    `json:"date,omitempty"`
	Time      *string    `json:"time,omitempty"`
	Image     *string    `json:"image,omitempty"`
	Author    *string    `json:"author,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// IsDraft reports whether the post has not been published yet.
func (p Post) IsDraft() bool { return p.Status == StatusDraft }
