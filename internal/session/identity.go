package session

import (
	"github.com/hongminglow/clubhub/internal/backend"
	"github.com/hongminglow/clubhub/internal/models"
)

// Lifecycle is the store's readiness: no verdict yet, or a settled verdict.
type Lifecycle int

const (
	Initializing Lifecycle = iota
	Authenticated
	Unauthenticated
)

func (l Lifecycle) String() string {
	switch l {
	case Initializing:
		return "initializing"
	case Authenticated:
		return "authenticated"
	case Unauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Identity is the signed-in principal.
type Identity struct {
	ID    string
	Email string
	Name  string
	// Role is empty when the backend did not report one.
	Role models.Role
}

// IsAdmin reports whether the identity carries the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == models.RoleAdmin
}

func identityFrom(acct *backend.Account) Identity {
	return Identity{
		ID:    acct.ID,
		Email: acct.Email,
		Name:  acct.Name(),
		Role:  models.Role(acct.Role),
	}
}

// Snapshot is a consistent copy of the store state. Identity is nil unless
// Lifecycle is Authenticated.
type Snapshot struct {
	Lifecycle Lifecycle
	Identity  *Identity
}

// IsAdmin is derived from the snapshot's identity.
func (s Snapshot) IsAdmin() bool {
	return s.Identity != nil && s.Identity.IsAdmin()
}
