// Package mocks provides gomock implementations of the ports the session
// store depends on.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	be := mocks.NewMockBackend(ctrl)
//	be.EXPECT().Session(gomock.Any()).Return(nil, nil)
package mocks

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=backend_mock.go github.com/hongminglow/clubhub/internal/backend Backend,Subscription
