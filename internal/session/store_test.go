package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/hongminglow/clubhub/internal/backend"
	"github.com/hongminglow/clubhub/internal/logger"
	"github.com/hongminglow/clubhub/internal/mocks"
	"github.com/hongminglow/clubhub/internal/models"
)

var errBadCredentials = errors.New("invalid credentials")

type harness struct {
	store *Store
	be    *mocks.MockBackend
	emit  func(backend.Event)
}

// newHarness builds a store whose startup lookup reports startup (nil for no session)
// and waits for it to settle.
func newHarness(t *testing.T, startup *backend.Account, opts ...Option) *harness {
	t.Helper()
	ctrl := gomock.NewController(t)
	be := mocks.NewMockBackend(ctrl)
	sub := mocks.NewMockSubscription(ctrl)
	h := &harness{be: be}

	be.EXPECT().OnAuthStateChange(gomock.Any()).DoAndReturn(func(fn func(backend.Event)) backend.Subscription {
		h.emit = fn
		return sub
	})
	be.EXPECT().Session(gomock.Any()).Return(startup, nil)
	sub.EXPECT().Unsubscribe().Times(1)

	opts = append([]Option{WithLogger(logger.Discard())}, opts...)
	h.store = New(context.Background(), be, opts...)
	t.Cleanup(h.store.Close)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, h.store.Wait(ctx))
	return h
}

func accountU1() *backend.Account {
	return &backend.Account{ID: "u1", Email: "a@x.com", Metadata: backend.Metadata{}}
}

// assertConsistent checks the lifecycle/identity pairing that must hold after every completed call.
func assertConsistent(t *testing.T, s *Store) {
	t.Helper()
	snap := s.Snapshot()
	_, present := s.Identity()
	switch snap.Lifecycle {
	case Authenticated:
		assert.True(t, present)
		assert.NotNil(t, snap.Identity)
	case Unauthenticated:
		assert.False(t, present)
		assert.Nil(t, snap.Identity)
		assert.False(t, s.IsAdmin())
	default:
		t.Fatalf("unexpected lifecycle %s after a completed call", snap.Lifecycle)
	}
}

func TestNew_WithoutBackend(t *testing.T) {
	s := New(context.Background(), nil, WithLogger(logger.Discard()))
	defer s.Close()

	assert.Equal(t, Unauthenticated, s.Lifecycle())
	select {
	case <-s.Ready():
	default:
		t.Fatal("store without backend must be ready on return")
	}
	_, ok := s.Identity()
	assert.False(t, ok)
	assert.False(t, s.IsAdmin())

	assert.ErrorIs(t, s.Login(context.Background(), "a@x.com", "secret"), ErrNotConfigured)
	assert.ErrorIs(t, s.Register(context.Background(), "a@x.com", "Alice", "secret"), ErrNotConfigured)
	assert.NotPanics(t, func() { s.Logout(context.Background()) })
	assert.Equal(t, Unauthenticated, s.Lifecycle())
}

func TestNew_ExistingSession(t *testing.T) {
	acct := &backend.Account{ID: "u1", Email: "a@x.com", Metadata: backend.Metadata{"name": "Alice"}, Role: "admin"}
	h := newHarness(t, acct)

	id, ok := h.store.Identity()
	require.True(t, ok)
	assert.Equal(t, Identity{ID: "u1", Email: "a@x.com", Name: "Alice", Role: models.RoleAdmin}, id)
	assert.Equal(t, Authenticated, h.store.Lifecycle())
	assert.True(t, h.store.IsAdmin())
}

func TestNew_NoSession(t *testing.T) {
	h := newHarness(t, nil)
	assert.Equal(t, Unauthenticated, h.store.Lifecycle())
	assertConsistent(t, h.store)
}

func TestNew_LookupErrorSettlesUnauthenticated(t *testing.T) {
	ctrl := gomock.NewController(t)
	be := mocks.NewMockBackend(ctrl)
	sub := mocks.NewMockSubscription(ctrl)
	be.EXPECT().OnAuthStateChange(gomock.Any()).Return(sub)
	be.EXPECT().Session(gomock.Any()).Return(nil, errors.New("connection refused"))
	sub.EXPECT().Unsubscribe()

	s := New(context.Background(), be, WithLogger(logger.Discard()))
	defer s.Close()
	require.NoError(t, s.Wait(context.Background()))
	assert.Equal(t, Unauthenticated, s.Lifecycle())
}

func TestLogin_Success(t *testing.T) {
	h := newHarness(t, nil)
	h.be.EXPECT().SignInWithPassword(gomock.Any(), "a@x.com", "secret").Return(backend.Succeeded(accountU1()))

	require.NoError(t, h.store.Login(context.Background(), "a@x.com", "secret"))

	id, ok := h.store.Identity()
	require.True(t, ok)
	assert.Equal(t, Identity{ID: "u1", Email: "a@x.com", Name: ""}, id)
	assert.Equal(t, Authenticated, h.store.Lifecycle())
	assert.False(t, h.store.IsAdmin())
}

func TestLogin_FailureLeavesIdentity(t *testing.T) {
	h := newHarness(t, accountU1())
	before := h.store.Snapshot()
	h.be.EXPECT().SignInWithPassword(gomock.Any(), "a@x.com", "wrong").Return(backend.Failed(errBadCredentials))

	err := h.store.Login(context.Background(), "a@x.com", "wrong")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRejected)
	assert.ErrorIs(t, err, errBadCredentials)
	assert.Equal(t, before, h.store.Snapshot())
}

func TestLogin_FailureWhileSignedOut(t *testing.T) {
	h := newHarness(t, nil)
	h.be.EXPECT().SignInWithPassword(gomock.Any(), gomock.Any(), gomock.Any()).Return(backend.Failed(errBadCredentials))

	assert.ErrorIs(t, h.store.Login(context.Background(), "a@x.com", "wrong"), ErrRejected)
	assert.Equal(t, Unauthenticated, h.store.Lifecycle())
}

func TestLogin_SuccessWithoutAccount(t *testing.T) {
	h := newHarness(t, nil)
	h.be.EXPECT().SignInWithPassword(gomock.Any(), gomock.Any(), gomock.Any()).Return(backend.Succeeded(nil))

	require.NoError(t, h.store.Login(context.Background(), "a@x.com", "secret"))
	_, ok := h.store.Identity()
	assert.False(t, ok)
	assert.Equal(t, Unauthenticated, h.store.Lifecycle())
}

func TestRegister_KeepsCallerName(t *testing.T) {
	h := newHarness(t, nil)
	h.be.EXPECT().
		SignUp(gomock.Any(), "a@x.com", "secret", backend.Metadata{"name": "Alice"}).
		Return(backend.Succeeded(&backend.Account{ID: "u1", Email: "a@x.com"}))

	require.NoError(t, h.store.Register(context.Background(), "a@x.com", "Alice", "secret"))

	id, ok := h.store.Identity()
	require.True(t, ok)
	assert.Equal(t, "Alice", id.Name)
	assert.Equal(t, Authenticated, h.store.Lifecycle())
}

func TestRegister_EmptyCallerNameWins(t *testing.T) {
	h := newHarness(t, nil)
	h.be.EXPECT().
		SignUp(gomock.Any(), "a@x.com", "secret", backend.Metadata{"name": ""}).
		Return(backend.Succeeded(&backend.Account{
			ID:       "u1",
			Email:    "a@x.com",
			Metadata: backend.Metadata{"name": "Echoed"},
		}))

	require.NoError(t, h.store.Register(context.Background(), "a@x.com", "", "secret"))

	id, ok := h.store.Identity()
	require.True(t, ok)
	assert.Equal(t, "", id.Name)
	assert.Equal(t, Authenticated, h.store.Lifecycle())
}

func TestRegister_Rejected(t *testing.T) {
	h := newHarness(t, nil)
	h.be.EXPECT().SignUp(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(backend.Failed(errors.New("user already exists")))

	err := h.store.Register(context.Background(), "a@x.com", "Alice", "secret")
	assert.ErrorIs(t, err, ErrRejected)
	assert.Equal(t, Unauthenticated, h.store.Lifecycle())
}

func TestLogout_Twice(t *testing.T) {
	h := newHarness(t, accountU1())
	gomock.InOrder(
		h.be.EXPECT().SignOut(gomock.Any()).Return(nil),
		h.be.EXPECT().SignOut(gomock.Any()).Return(errors.New("no active session")),
	)

	h.store.Logout(context.Background())
	assert.Equal(t, Unauthenticated, h.store.Lifecycle())
	h.store.Logout(context.Background())
	assert.Equal(t, Unauthenticated, h.store.Lifecycle())
	assertConsistent(t, h.store)
}

func TestLogout_ClearsEvenWhenBackendFails(t *testing.T) {
	h := newHarness(t, accountU1())
	h.be.EXPECT().SignOut(gomock.Any()).Return(errors.New("network down"))

	h.store.Logout(context.Background())
	_, ok := h.store.Identity()
	assert.False(t, ok)
}

func TestNotification_NoSessionClearsIdentity(t *testing.T) {
	h := newHarness(t, nil)
	h.be.EXPECT().SignInWithPassword(gomock.Any(), gomock.Any(), gomock.Any()).Return(backend.Succeeded(accountU1()))
	require.NoError(t, h.store.Login(context.Background(), "a@x.com", "secret"))

	h.emit(backend.Event{Kind: backend.SignedOut})

	assert.Equal(t, Unauthenticated, h.store.Lifecycle())
	_, ok := h.store.Identity()
	assert.False(t, ok)
}

func TestNotification_ReplacesWholesale(t *testing.T) {
	h := newHarness(t, &backend.Account{ID: "u1", Email: "a@x.com", Metadata: backend.Metadata{"name": "Alice"}, Role: "admin"})
	require.True(t, h.store.IsAdmin())

	h.emit(backend.Event{Kind: backend.UserUpdated, Account: &backend.Account{ID: "u1", Email: "a@x.com"}})

	id, ok := h.store.Identity()
	require.True(t, ok)
	assert.Equal(t, Identity{ID: "u1", Email: "a@x.com"}, id)
	assert.False(t, h.store.IsAdmin())
}

func TestNotification_SignsIn(t *testing.T) {
	h := newHarness(t, nil)
	h.emit(backend.Event{Kind: backend.SignedIn, Account: accountU1()})
	assert.Equal(t, Authenticated, h.store.Lifecycle())
}

func TestStartupLookupDroppedAfterNewerTransition(t *testing.T) {
	ctrl := gomock.NewController(t)
	be := mocks.NewMockBackend(ctrl)
	sub := mocks.NewMockSubscription(ctrl)
	release := make(chan struct{})

	be.EXPECT().OnAuthStateChange(gomock.Any()).Return(sub)
	be.EXPECT().Session(gomock.Any()).DoAndReturn(func(context.Context) (*backend.Account, error) {
		<-release
		return &backend.Account{ID: "stale", Email: "old@x.com"}, nil
	})
	be.EXPECT().SignInWithPassword(gomock.Any(), gomock.Any(), gomock.Any()).Return(backend.Succeeded(accountU1()))
	sub.EXPECT().Unsubscribe()

	s := New(context.Background(), be, WithLogger(logger.Discard()))
	assert.Equal(t, Initializing, s.Lifecycle())

	require.NoError(t, s.Login(context.Background(), "a@x.com", "secret"))
	assert.Equal(t, Authenticated, s.Lifecycle())

	close(release)
	s.Close()

	id, ok := s.Identity()
	require.True(t, ok)
	assert.Equal(t, "u1", id.ID)
}

func TestClose_ReleasesSubscriptionOnce(t *testing.T) {
	h := newHarness(t, nil)
	h.store.Close()
	h.store.Close()
}

func TestClose_DropsLateNotifications(t *testing.T) {
	h := newHarness(t, accountU1())
	var calls int
	h.store.Subscribe(func(Snapshot) { calls++ })

	h.store.Close()
	h.emit(backend.Event{Kind: backend.SignedOut})
	h.emit(backend.Event{Kind: backend.UserUpdated, Account: &backend.Account{ID: "u2", Email: "b@x.com"}})

	id, ok := h.store.Identity()
	require.True(t, ok)
	assert.Equal(t, "u1", id.ID)
	assert.Equal(t, Authenticated, h.store.Lifecycle())
	assert.Zero(t, calls)
}

func TestClose_CancelsStartupLookup(t *testing.T) {
	ctrl := gomock.NewController(t)
	be := mocks.NewMockBackend(ctrl)
	sub := mocks.NewMockSubscription(ctrl)
	be.EXPECT().OnAuthStateChange(gomock.Any()).Return(sub)
	be.EXPECT().Session(gomock.Any()).DoAndReturn(func(ctx context.Context) (*backend.Account, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	sub.EXPECT().Unsubscribe()

	s := New(context.Background(), be, WithLogger(logger.Discard()))
	s.Close()
	assert.Equal(t, Unauthenticated, s.Lifecycle())
}

func TestSubscribe_SeesEveryTransition(t *testing.T) {
	h := newHarness(t, nil)
	var mu sync.Mutex
	var seen []Lifecycle
	unsubscribe := h.store.Subscribe(func(s Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, s.Lifecycle)
		if s.Lifecycle == Authenticated {
			assert.NotNil(t, s.Identity)
		}
	})

	h.be.EXPECT().SignInWithPassword(gomock.Any(), gomock.Any(), gomock.Any()).Return(backend.Succeeded(accountU1()))
	h.be.EXPECT().SignOut(gomock.Any()).Return(nil)
	require.NoError(t, h.store.Login(context.Background(), "a@x.com", "secret"))
	h.store.Logout(context.Background())

	unsubscribe()
	h.emit(backend.Event{Kind: backend.SignedIn, Account: accountU1()})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []Lifecycle{Authenticated, Unauthenticated}, seen)
}

func TestSequence_AlwaysConsistent(t *testing.T) {
	h := newHarness(t, nil)
	h.be.EXPECT().SignInWithPassword(gomock.Any(), gomock.Any(), "secret").
		Return(backend.Succeeded(&backend.Account{ID: "u1", Email: "a@x.com", Role: "admin"})).AnyTimes()
	h.be.EXPECT().SignInWithPassword(gomock.Any(), gomock.Any(), "wrong").
		Return(backend.Failed(errBadCredentials)).AnyTimes()
	h.be.EXPECT().SignOut(gomock.Any()).Return(nil).AnyTimes()

	steps := []func(){
		func() { _ = h.store.Login(context.Background(), "a@x.com", "secret") },
		func() { h.store.Logout(context.Background()) },
		func() { h.store.Logout(context.Background()) },
		func() { _ = h.store.Login(context.Background(), "a@x.com", "wrong") },
		func() { _ = h.store.Login(context.Background(), "a@x.com", "secret") },
		func() { _ = h.store.Login(context.Background(), "a@x.com", "wrong") },
		func() { h.store.Logout(context.Background()) },
	}
	for _, step := range steps {
		step()
		assertConsistent(t, h.store)
		if h.store.IsAdmin() {
			_, ok := h.store.Identity()
			assert.True(t, ok)
		}
	}
}

func TestWithCallTimeout(t *testing.T) {
	h := newHarness(t, nil, WithCallTimeout(time.Second))
	h.be.EXPECT().SignInWithPassword(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _, _ string) backend.Result {
			_, ok := ctx.Deadline()
			assert.True(t, ok)
			return backend.Succeeded(nil)
		})

	require.NoError(t, h.store.Login(context.Background(), "a@x.com", "secret"))
}

func TestMisusePanics(t *testing.T) {
	var nilStore *Store
	assert.PanicsWithValue(t, ErrNoStore, func() { nilStore.Lifecycle() })
	assert.PanicsWithValue(t, ErrNoStore, func() { _ = (&Store{}).Login(context.Background(), "a", "b") })
	assert.PanicsWithValue(t, ErrNoStore, func() { (&Store{}).IsAdmin() })
	assert.PanicsWithValue(t, ErrNoStore, func() { FromContext(context.Background()) })
}

func TestContextScope(t *testing.T) {
	s := New(context.Background(), nil)
	ctx := NewContext(context.Background(), s)
	assert.Same(t, s, FromContext(ctx))
}

func TestLifecycleString(t *testing.T) {
	assert.Equal(t, "initializing", Initializing.String())
	assert.Equal(t, "authenticated", Authenticated.String())
	assert.Equal(t, "unauthenticated", Unauthenticated.String())
}
