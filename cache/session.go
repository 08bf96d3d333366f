package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrSessionNotFound = errors.New("session not found")

const (
	oauthStatePrefix   = "oauth:state:"
	oauthSessionPrefix = "oauth:session:"
	oauthStateTTL      = 10 * time.Minute
)

// SessionStore keeps OAuth state nonces and Google sign-in sessions.
type SessionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSessionStore(rdb *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{rdb: rdb, ttl: ttl}
}

func (s *SessionStore) TTL() time.Duration { return s.ttl }

func (s *SessionStore) SaveState(ctx context.Context, state string) error {
	return s.rdb.Set(ctx, oauthStatePrefix+state, "1", oauthStateTTL).Err()
}

// ConsumeState deletes state and reports whether it existed. A state is usable once.
func (s *SessionStore) ConsumeState(ctx context.Context, state string) (bool, error) {
	if state == "" {
		return false, nil
	}
	n, err := s.rdb.Del(ctx, oauthStatePrefix+state).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *SessionStore) CreateSession(ctx context.Context, sessionID, userID string) error {
	return s.rdb.Set(ctx, oauthSessionPrefix+sessionID, userID, s.ttl).Err()
}

// SessionUser returns the user id bound to sessionID.
func (s *SessionStore) SessionUser(ctx context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		return "", ErrSessionNotFound
	}
	userID, err := s.rdb.Get(ctx, oauthSessionPrefix+sessionID).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrSessionNotFound
	}
	return userID, err
}

func (s *SessionStore) DeleteSession(ctx context.Context, sessionID string) error {
	return s.rdb.Del(ctx, oauthSessionPrefix+sessionID).Err()
}
