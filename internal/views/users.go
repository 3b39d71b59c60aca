package views

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/hongminglow/clubhub/internal/models"
)

// UserRow is a user with the drafts they authored.
type UserRow struct {
	models.User
	Drafts []models.Post
}

// AttachDrafts pairs each user with their draft posts, keeping user order.
func AttachDrafts(users []models.User, posts []models.Post) []UserRow {
	byAuthor := lo.GroupBy(
		lo.Filter(posts, func(p models.Post, _ int) bool { return p.IsDraft() && p.Author != nil }),
		func(p models.Post) string { return *p.Author },
	)
	return lo.Map(users, func(u models.User, _ int) UserRow {
		return UserRow{User: u, Drafts: byAuthor[u.ID]}
	})
}

// DraftPresence narrows users by whether they have drafts.
type DraftPresence string

const (
	DraftsAny     DraftPresence = "all"
	DraftsWith    DraftPresence = "with"
	DraftsWithout DraftPresence = "without"
)

// ParseDraftPresence validates a draft filter name; "" means all.
func ParseDraftPresence(s string) (DraftPresence, error) {
	switch d := DraftPresence(strings.ToLower(strings.TrimSpace(s))); d {
	case "":
		return DraftsAny, nil
	case DraftsAny, DraftsWith, DraftsWithout:
		return d, nil
	default:
		return "", fmt.Errorf("invalid draft filter %q (valid options: all, with, without)", s)
	}
}

// UserFilter searches email, name, and draft titles, and narrows by role and drafts.
// An empty Role matches every role.
type UserFilter struct {
	Search string
	Role   models.Role
	Drafts DraftPresence
}

// ParseRoleFilter accepts "all" or "" for every role, otherwise a role name.
func ParseRoleFilter(s string) (models.Role, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "all" {
		return "", nil
	}
	return models.ParseRole(s)
}

func (f UserFilter) Match(row UserRow) bool {
	if f.Role != "" && row.Role != f.Role {
		return false
	}
	switch f.Drafts {
	case DraftsWith:
		if len(row.Drafts) == 0 {
			return false
		}
	case DraftsWithout:
		if len(row.Drafts) > 0 {
			return false
		}
	}

	term := strings.ToLower(f.Search)
	if term == "" {
		return true
	}
	if strings.Contains(strings.ToLower(row.Email), term) || strings.Contains(strings.ToLower(row.Name), term) {
		return true
	}
	return lo.ContainsBy(row.Drafts, func(p models.Post) bool {
		return strings.Contains(strings.ToLower(p.Title), term)
	})
}

func (f UserFilter) Apply(rows []UserRow) []UserRow {
	return lo.Filter(rows, func(r UserRow, _ int) bool { return f.Match(r) })
}
