// Package storage contains in-memory doubles for the storage ports.
// They are safe for concurrent use and suitable for handler tests.
package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hongminglow/clubhub/internal/models"
	"github.com/hongminglow/clubhub/internal/storage"
)

// Ensure compile-time conformance to ports.
var (
	_ storage.UserStore       = (*Memory)(nil)
	_ storage.PostStore       = (*Memory)(nil)
	_ storage.VisitStore      = (*Memory)(nil)
	_ storage.SessionRegistry = (*MemorySessions)(nil)
)

// Memory holds users, posts, and visits.
type Memory struct {
	mu     sync.Mutex
	users  []models.User
	posts  []models.Post
	visits []time.Time
	now    func() time.Time
}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{now: time.Now}
}

func (m *Memory) CreateUser(_ context.Context, user models.User) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, user.Email) {
			return models.User{}, storage.ErrAlreadyExists
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	user.CreatedAt = m.now()
	m.users = append(m.users, user)
	return user, nil
}

func (m *Memory) FindByID(_ context.Context, id string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return models.User{}, storage.ErrNotFound
}

func (m *Memory) FindByEmail(_ context.Context, email string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, strings.TrimSpace(email)) {
			return u, nil
		}
	}
	return models.User{}, storage.ErrNotFound
}

func (m *Memory) ListUsers(_ context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.User(nil), m.users...), nil
}

func (m *Memory) UpdateRole(_ context.Context, id string, role models.Role) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.users {
		if m.users[i].ID == id {
			m.users[i].Role = role
			return m.users[i], nil
		}
	}
	return models.User{}, storage.ErrNotFound
}

func (m *Memory) DeleteUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.users {
		if m.users[i].ID == id {
			m.users = append(m.users[:i], m.users[i+1:]...)
			for j := range m.posts {
				if m.posts[j].Author != nil && *m.posts[j].Author == id {
					m.posts[j].Author = nil
				}
			}
			return nil
		}
	}
	return storage.ErrNotFound
}

func (m *Memory) CreatePost(_ context.Context, post models.Post) (models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	post.CreatedAt = m.now()
	m.posts = append(m.posts, post)
	return post, nil
}

func (m *Memory) ListPosts(_ context.Context, q storage.PostQuery) ([]models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Post
	for _, p := range m.posts {
		if q.Status == "" || p.Status == q.Status {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return dateOf(out[i]) > dateOf(out[j])
	})
	return out, nil
}

func dateOf(p models.Post) string {
	if p.Date == nil {
		return ""
	}
	return *p.Date
}

func (m *Memory) DeletePost(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.posts {
		if m.posts[i].ID == id {
			m.posts = append(m.posts[:i], m.posts[i+1:]...)
			return nil
		}
	}
	return storage.ErrNotFound
}

func (m *Memory) RecordVisit(_ context.Context, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.visits = append(m.visits, at)
	return nil
}

func (m *Memory) ListVisits(_ context.Context, since time.Time) ([]time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []time.Time
	for _, v := range m.visits {
		if !v.Before(since) {
			out = append(out, v)
		}
	}
	return out, nil
}

// MemorySessions is an in-process SessionRegistry with channel-based event fan-out.
type MemorySessions struct {
	mu       sync.Mutex
	sessions map[string]models.Session
	streams  map[string][]*memoryStream
}

// NewMemorySessions creates an empty registry.
func NewMemorySessions() *MemorySessions {
	return &MemorySessions{
		sessions: make(map[string]models.Session),
		streams:  make(map[string][]*memoryStream),
	}
}

func (m *MemorySessions) Create(_ context.Context, sess models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = sess
	return nil
}

func (m *MemorySessions) Get(_ context.Context, id string) (models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok || time.Now().After(sess.ExpiresAt) {
		return models.Session{}, storage.ErrNotFound
	}
	return sess, nil
}

func (m *MemorySessions) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *MemorySessions) DeleteForUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, sess := range m.sessions {
		if sess.UserID == userID {
			delete(m.sessions, id)
		}
	}
	return nil
}

// Count returns the number of live sessions.
func (m *MemorySessions) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *MemorySessions) Publish(_ context.Context, userID string, ev models.AuthEvent) error {
	m.mu.Lock()
	streams := append([]*memoryStream(nil), m.streams[userID]...)
	m.mu.Unlock()
	for _, s := range streams {
		s.send(ev)
	}
	return nil
}

func (m *MemorySessions) Subscribe(_ context.Context, userID string) (storage.EventStream, error) {
	s := &memoryStream{events: make(chan models.AuthEvent, 16)}
	s.release = func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		list := m.streams[userID]
		for i := range list {
			if list[i] == s {
				m.streams[userID] = append(list[:i], list[i+1:]...)
				break
			}
		}
	}
	m.mu.Lock()
	m.streams[userID] = append(m.streams[userID], s)
	m.mu.Unlock()
	return s, nil
}

type memoryStream struct {
	mu      sync.Mutex
	closed  bool
	events  chan models.AuthEvent
	release func()
}

func (s *memoryStream) send(ev models.AuthEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.events <- ev:
	default:
	}
}

func (s *memoryStream) Events() <-chan models.AuthEvent { return s.events }

func (s *memoryStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.release()
	close(s.events)
	return nil
}
