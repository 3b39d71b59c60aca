// Package redis provides the Redis-backed session registry and auth event bus.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hongminglow/clubhub/internal/models"
	"github.com/hongminglow/clubhub/internal/storage"
)

var _ storage.SessionRegistry = (*SessionRegistry)(nil)

// SessionRegistry stores sessions as JSON with a TTL matching their expiry,
// indexes them per user, and publishes auth events on per-user channels.
type SessionRegistry struct {
	client redis.UniversalClient
	prefix string
}

// NewSessionRegistry creates a registry using the default "clubhub:" key prefix.
func NewSessionRegistry(client redis.UniversalClient) *SessionRegistry {
	return NewSessionRegistryWithPrefix(client, "clubhub:")
}

// NewSessionRegistryWithPrefix creates a registry with a custom key prefix.
func NewSessionRegistryWithPrefix(client redis.UniversalClient, prefix string) *SessionRegistry {
	return &SessionRegistry{client: client, prefix: prefix}
}

func (r *SessionRegistry) sessionKey(id string) string { return r.prefix + "session:" + id }
func (r *SessionRegistry) userKey(userID string) string {
	return r.prefix + "user_sessions:" + userID
}
func (r *SessionRegistry) channel(userID string) string { return r.prefix + "auth_events:" + userID }

func (r *SessionRegistry) Create(ctx context.Context, sess models.Session) error {
	if sess.ID == "" || sess.UserID == "" {
		return errors.New("session: missing id or user_id")
	}
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return errors.New("session: expires_at must be in the future")
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.sessionKey(sess.ID), data, ttl)
	pipe.SAdd(ctx, r.userKey(sess.UserID), sess.ID)
	// Sessions share one TTL, so the newest session always outlives the index's previous expiry.
	pipe.Expire(ctx, r.userKey(sess.UserID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis save session: %w", err)
	}
	return nil
}

func (r *SessionRegistry) Get(ctx context.Context, id string) (models.Session, error) {
	if id == "" {
		return models.Session{}, storage.ErrNotFound
	}
	data, err := r.client.Get(ctx, r.sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.Session{}, storage.ErrNotFound
		}
		return models.Session{}, fmt.Errorf("redis get: %w", err)
	}

	var sess models.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return models.Session{}, fmt.Errorf("unmarshal session: %w", err)
	}
	if time.Now().After(sess.ExpiresAt) {
		if err := r.Delete(ctx, id); err != nil {
			return models.Session{}, fmt.Errorf("cleanup expired session: %w", err)
		}
		return models.Session{}, storage.ErrNotFound
	}
	return sess, nil
}

func (r *SessionRegistry) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	data, err := r.client.GetDel(ctx, r.sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("redis delete session: %w", err)
	}
	var sess models.Session
	if json.Unmarshal(data, &sess) == nil && sess.UserID != "" {
		if err := r.client.SRem(ctx, r.userKey(sess.UserID), id).Err(); err != nil {
			return fmt.Errorf("redis unindex session: %w", err)
		}
	}
	return nil
}

// DeleteForUser revokes every session the user holds.
func (r *SessionRegistry) DeleteForUser(ctx context.Context, userID string) error {
	ids, err := r.client.SMembers(ctx, r.userKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("redis list user sessions: %w", err)
	}
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, r.sessionKey(id))
	}
	keys = append(keys, r.userKey(userID))
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis delete user sessions: %w", err)
	}
	return nil
}

func (r *SessionRegistry) Publish(ctx context.Context, userID string, ev models.AuthEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal auth event: %w", err)
	}
	return r.client.Publish(ctx, r.channel(userID), data).Err()
}

// Subscribe opens a pub/sub stream for the user's auth events. The stream must be closed.
func (r *SessionRegistry) Subscribe(ctx context.Context, userID string) (storage.EventStream, error) {
	ps := r.client.Subscribe(ctx, r.channel(userID))
	// Wait for the subscription confirmation so no event published afterwards is missed.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}

	stream := &eventStream{
		ps:     ps,
		events: make(chan models.AuthEvent, 8),
		done:   make(chan struct{}),
	}
	go stream.pump()
	return stream, nil
}

type eventStream struct {
	ps     *redis.PubSub
	events chan models.AuthEvent
	done   chan struct{}
	once   sync.Once
}

func (s *eventStream) pump() {
	defer close(s.events)
	for msg := range s.ps.Channel() {
		var ev models.AuthEvent
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			continue
		}
		select {
		case s.events <- ev:
		case <-s.done:
			return
		}
	}
}

func (s *eventStream) Events() <-chan models.AuthEvent { return s.events }

func (s *eventStream) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.ps.Close()
	})
	return err
}
