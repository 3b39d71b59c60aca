package dto

import (
	"time"

	"github.com/hongminglow/clubhub/internal/models"
)

type SignUpRequest struct {
	Email    string            `json:"email"`
	Password string            `json:"password"`
	Data     map[string]string `json:"data,omitempty"`
}

type TokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Account is the wire shape of an authenticated user.
type Account struct {
	ID           string            `json:"id"`
	Email        string            `json:"email"`
	UserMetadata map[string]string `json:"user_metadata"`
	Role         string            `json:"role,omitempty"`
}

type SessionResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        Account   `json:"user"`
}

// AccountFromUser converts a stored user to its wire form.
func AccountFromUser(u models.User) Account {
	meta := map[string]string{}
	if u.Name != "" {
		meta["name"] = u.Name
	}
	return Account{
		ID:           u.ID,
		Email:        u.Email,
		UserMetadata: meta,
		Role:         string(u.Role),
	}
}
