// Package session holds the process-wide record of who is signed in.
//
// A Store starts Initializing, asks the backend once for an existing session,
// and settles on Authenticated or Unauthenticated. From then on it follows
// Login, Register, Logout and the backend's auth-state notifications. Every
// transition replaces the identity wholesale; the last write wins, except the
// startup lookup, which is dropped when any other transition landed first.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hongminglow/clubhub/internal/backend"
	"github.com/hongminglow/clubhub/internal/notify"
)

var (
	// ErrNoStore is the panic value for using a store that was never built with New.
	ErrNoStore = errors.New("session: store used outside an initialized scope")
	// ErrNotConfigured is returned by Login and Register when there is no backend.
	ErrNotConfigured = errors.New("session: no backend configured")
	// ErrRejected wraps the backend's reason for refusing a sign-in or sign-up.
	ErrRejected = errors.New("session: rejected by backend")
)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger for backend failures that are not returned to callers.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCallTimeout bounds each backend call. Zero means no bound beyond the caller's context.
func WithCallTimeout(d time.Duration) Option {
	return func(s *Store) { s.callTimeout = d }
}

// Store is safe for concurrent use. The zero value is not usable; build one with New.
type Store struct {
	backend     backend.Backend
	logger      *slog.Logger
	callTimeout time.Duration

	mu        sync.RWMutex
	lifecycle Lifecycle
	identity  *Identity
	version   uint64

	ready     chan struct{}
	readyOnce sync.Once

	listeners notify.Hub[Snapshot]

	sub        backend.Subscription
	cancel     context.CancelFunc
	loaderDone chan struct{}
	closeOnce  sync.Once
	closed     bool
}

// New builds a store over be and starts the startup session lookup. A nil be
// means no backend is configured: the store is Unauthenticated on return.
// The lookup runs under ctx; Close cancels it.
func New(ctx context.Context, be backend.Backend, opts ...Option) *Store {
	s := &Store{
		backend:    be,
		logger:     slog.Default(),
		ready:      make(chan struct{}),
		loaderDone: make(chan struct{}),
		cancel:     func() {},
	}
	for _, opt := range opts {
		opt(s)
	}

	if be == nil {
		s.lifecycle = Unauthenticated
		s.markReady()
		close(s.loaderDone)
		return s
	}

	s.sub = be.OnAuthStateChange(s.handleEvent)

	loadCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go s.load(loadCtx)
	return s
}

func (s *Store) load(ctx context.Context) {
	defer close(s.loaderDone)

	callCtx, cancel := s.callContext(ctx)
	defer cancel()
	acct, err := s.backend.Session(callCtx)
	if err != nil {
		s.logger.WarnContext(ctx, "session lookup failed", "error", err)
		acct = nil
	}

	s.mu.Lock()
	if s.version != 0 {
		s.mu.Unlock()
		s.logger.DebugContext(ctx, "startup session dropped; a newer transition already landed")
		return
	}
	s.setLocked(acct, nil)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.settled(snap)
}

// handleEvent applies a backend notification. Deliveries that race with
// Close are dropped once the store is closed.
func (s *Store) handleEvent(ev backend.Event) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.logger.Debug("auth state change after close dropped", "kind", ev.Kind)
		return
	}
	s.setLocked(ev.Account, nil)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.logger.Debug("auth state changed", "kind", ev.Kind, "signed_in", ev.Account != nil)
	s.settled(snap)
}

// transition replaces the identity with acct (nil clears it). A non-nil
// name replaces the account's display name, even when empty.
func (s *Store) transition(acct *backend.Account, name *string) {
	s.mu.Lock()
	s.setLocked(acct, name)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.settled(snap)
}

func (s *Store) setLocked(acct *backend.Account, name *string) {
	s.version++
	if acct == nil {
		s.identity = nil
		s.lifecycle = Unauthenticated
		return
	}
	id := identityFrom(acct)
	if name != nil {
		id.Name = *name
	}
	s.identity = &id
	s.lifecycle = Authenticated
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{Lifecycle: s.lifecycle}
	if s.identity != nil {
		id := *s.identity
		snap.Identity = &id
	}
	return snap
}

func (s *Store) settled(snap Snapshot) {
	s.markReady()
	s.listeners.Publish(snap)
}

func (s *Store) markReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

func (s *Store) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.callTimeout > 0 {
		return context.WithTimeout(ctx, s.callTimeout)
	}
	return ctx, func() {}
}

func (s *Store) mustBeInitialized() {
	if s == nil || s.ready == nil {
		panic(ErrNoStore)
	}
}

// Login signs in with email and password. A backend refusal is returned
// wrapped in ErrRejected and leaves the state untouched. A success that
// carries no account is still a success, without a transition.
func (s *Store) Login(ctx context.Context, email, password string) error {
	s.mustBeInitialized()
	if s.backend == nil {
		return ErrNotConfigured
	}
	callCtx, cancel := s.callContext(ctx)
	defer cancel()

	res := s.backend.SignInWithPassword(callCtx, email, password)
	if !res.OK() {
		return fmt.Errorf("%w: %w", ErrRejected, res.Err)
	}
	if res.Account != nil {
		s.transition(res.Account, nil)
	}
	return nil
}

// Register creates an account and signs it in. The display name travels as
// account metadata and, on adoption, the name given here is the one kept.
func (s *Store) Register(ctx context.Context, email, displayName, password string) error {
	s.mustBeInitialized()
	if s.backend == nil {
		return ErrNotConfigured
	}
	callCtx, cancel := s.callContext(ctx)
	defer cancel()

	res := s.backend.SignUp(callCtx, email, password, backend.Metadata{backend.MetadataName: displayName})
	if !res.OK() {
		return fmt.Errorf("%w: %w", ErrRejected, res.Err)
	}
	if res.Account != nil {
		s.transition(res.Account, &displayName)
	}
	return nil
}

// Logout asks the backend to sign out and clears the identity whatever the outcome.
func (s *Store) Logout(ctx context.Context) {
	s.mustBeInitialized()
	if s.backend != nil {
		callCtx, cancel := s.callContext(ctx)
		if err := s.backend.SignOut(callCtx); err != nil {
			s.logger.WarnContext(ctx, "backend sign-out failed; clearing local session anyway", "error", err)
		}
		cancel()
	}
	s.transition(nil, nil)
}

// Identity returns the signed-in identity, if any.
func (s *Store) Identity() (Identity, bool) {
	s.mustBeInitialized()
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return Identity{}, false
	}
	return *s.identity, true
}

func (s *Store) Lifecycle() Lifecycle {
	s.mustBeInitialized()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lifecycle
}

// IsAdmin is recomputed from the current identity on every call.
func (s *Store) IsAdmin() bool {
	s.mustBeInitialized()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity != nil && s.identity.IsAdmin()
}

// Snapshot returns lifecycle and identity read together.
func (s *Store) Snapshot() Snapshot {
	s.mustBeInitialized()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Ready is closed once the store has left Initializing.
func (s *Store) Ready() <-chan struct{} {
	s.mustBeInitialized()
	return s.ready
}

// Wait blocks until the store has left Initializing or ctx is done.
func (s *Store) Wait(ctx context.Context) error {
	s.mustBeInitialized()
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe calls fn with a snapshot after every transition until the
// returned function is called.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.mustBeInitialized()
	return s.listeners.Subscribe(fn).Unsubscribe
}

// Close releases the backend subscription and waits for the startup lookup
// to return. Notifications still in flight are ignored from here on. It is
// safe to call more than once.
func (s *Store) Close() {
	s.mustBeInitialized()
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		if s.sub != nil {
			s.sub.Unsubscribe()
		}
		s.cancel()
		<-s.loaderDone
	})
}
