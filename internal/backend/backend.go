// Package backend defines the contract the session store needs from the
// remote auth service. Adapters live in subpackages.
package backend

import "context"

// Metadata is free-form account data; "name" carries the display name.
type Metadata map[string]string

// MetadataName is the metadata key holding the display name.
const MetadataName = "name"

// Account is the identity payload a backend reports for a session.
type Account struct {
	ID       string
	Email    string
	Metadata Metadata
	// Role is empty when the backend supplies none.
	Role string
}

// Name returns the display name from metadata, or "".
func (a Account) Name() string {
	return a.Metadata[MetadataName]
}

// Result is the outcome of a sign-in or sign-up call: success with an
// account, success without one, or failure.
type Result struct {
	Account *Account
	Err     error
}

// Succeeded reports success; account may be nil.
func Succeeded(account *Account) Result {
	return Result{Account: account}
}

// Failed reports a rejected call.
func Failed(err error) Result {
	return Result{Err: err}
}

// OK reports whether the call succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// EventKind names an auth-state change.
type EventKind string

const (
	SignedIn       EventKind = "SIGNED_IN"
	SignedOut      EventKind = "SIGNED_OUT"
	UserUpdated    EventKind = "USER_UPDATED"
	TokenRefreshed EventKind = "TOKEN_REFRESHED"
)

// Event is one auth-state change notification. A nil Account means no session.
type Event struct {
	Kind    EventKind
	Account *Account
}

// Subscription is a releasable registration. Unsubscribe is idempotent.
type Subscription interface {
	Unsubscribe()
}

// Backend is the remote auth collaborator.
type Backend interface {
	// Session returns the current session's account, or nil when there is none.
	Session(ctx context.Context) (*Account, error)
	// OnAuthStateChange registers fn for every auth-state change until the
	// returned subscription is released.
	OnAuthStateChange(fn func(Event)) Subscription
	SignInWithPassword(ctx context.Context, email, password string) Result
	SignUp(ctx context.Context, email, password string, metadata Metadata) Result
	SignOut(ctx context.Context) error
}
