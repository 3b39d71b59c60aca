// Package views holds the list, filter, dashboard, and draft logic behind
// the CLI screens. Everything here works on slices already fetched from the API.
package views

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/hongminglow/clubhub/internal/models"
)

// PostCategory selects posts by type, or drafts by status.
type PostCategory string

const (
	CategoryAll    PostCategory = "all"
	CategoryClub   PostCategory = "club"
	CategoryEvents PostCategory = "events"
	CategoryDraft  PostCategory = "draft"
)

// ParsePostCategory validates a category name; "" means all.
func ParsePostCategory(s string) (PostCategory, error) {
	switch c := PostCategory(strings.ToLower(strings.TrimSpace(s))); c {
	case "":
		return CategoryAll, nil
	case CategoryAll, CategoryClub, CategoryEvents, CategoryDraft:
		return c, nil
	default:
		return "", fmt.Errorf("invalid post filter %q (valid options: all, club, events, draft)", s)
	}
}

// PostFilter is a case-insensitive substring search over title and content
// combined with a category. The search term is used as typed, spaces included.
type PostFilter struct {
	Search   string
	Category PostCategory
}

// Match reports whether p passes the filter.
func (f PostFilter) Match(p models.Post) bool {
	if !f.matchesCategory(p) {
		return false
	}
	term := strings.ToLower(f.Search)
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Title), term) ||
		strings.Contains(strings.ToLower(p.Content), term)
}

func (f PostFilter) matchesCategory(p models.Post) bool {
	switch f.Category {
	case "", CategoryAll:
		return true
	case CategoryDraft:
		return p.IsDraft()
	default:
		return string(p.Type) == string(f.Category)
	}
}

// Apply returns the matching posts in their original order.
func (f PostFilter) Apply(posts []models.Post) []models.Post {
	return lo.Filter(posts, func(p models.Post, _ int) bool { return f.Match(p) })
}
