package models

import "time"

// Session is the server-side record behind an access token.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AuthEventKind names a change in a user's authentication state.
type AuthEventKind string

const (
	EventSignedIn    AuthEventKind = "SIGNED_IN"
	EventSignedOut   AuthEventKind = "SIGNED_OUT"
	EventUserUpdated AuthEventKind = "USER_UPDATED"
)

// AuthEvent is published to a user's event channel.
// An empty SessionID addresses every session of the user.
type AuthEvent struct {
	Kind      AuthEventKind `json:"kind"`
	SessionID string        `json:"session_id,omitempty"`
	User      *User         `json:"user,omitempty"`
}

// Targets reports whether the event applies to the given session.
func (e AuthEvent) Targets(sessionID string) bool {
	return e.SessionID == "" || e.SessionID == sessionID
}
