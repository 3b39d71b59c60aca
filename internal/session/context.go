package session

import "context"

type storeKey struct{}

// NewContext returns a context carrying the store.
func NewContext(ctx context.Context, s *Store) context.Context {
	return context.WithValue(ctx, storeKey{}, s)
}

// FromContext returns the store placed by NewContext. It panics with
// ErrNoStore when there is none.
func FromContext(ctx context.Context) *Store {
	s, _ := ctx.Value(storeKey{}).(*Store)
	if s == nil {
		panic(ErrNoStore)
	}
	return s
}
