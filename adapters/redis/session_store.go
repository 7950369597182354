// Package redis keeps visitor sessions in Redis.
package redis

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"rubik/internal/session"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces session keys
const KeyPrefix = "session:"

// SessionStore implements session.Store on Redis; each session is one string key with
// the session TTL as its expiry
type SessionStore struct {
	client redis.UniversalClient
}

// NewSessionStore wraps an existing client
func NewSessionStore(client redis.UniversalClient) *SessionStore {
	return &SessionStore{client: client}
}

// Open connects to the Redis URL (redis://[:password@]host:port/db) and checks it answers
func Open(ctx context.Context, url string) (*SessionStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &SessionStore{client: client}, nil
}

func key(id string) string {
	return KeyPrefix + id
}

func (s *SessionStore) Load(ctx context.Context, id string) (*session.Session, error) {
	data, err := s.client.Get(ctx, key(id)).Bytes()
	if err != nil {
		if stderrors.Is(err, redis.Nil) {
			return nil, session.ErrNotFound
		}
		return nil, fmt.Errorf("redis get session: %w", err)
	}
	return session.Decode(id, data)
}

func (s *SessionStore) Save(ctx context.Context, sess *session.Session, ttl time.Duration) error {
	data, err := session.Encode(sess)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, key(sess.ID()), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, key(id)).Err(); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	return nil
}

// Close releases the client
func (s *SessionStore) Close() error {
	return s.client.Close()
}
