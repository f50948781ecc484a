package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	sessionPrefix     = "session:"
	userSessionPrefix = "user_sessions:"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionStore keeps server side sessions in Redis
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) TTL() time.Duration {
	return s.ttl
}

// Create opens a new session for userID and returns its id
func (s *SessionStore) Create(ctx context.Context, userID uint) (string, error) {
	id := uuid.NewString()
	userKey := userSessionKey(userID)

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, sessionPrefix+id, userID, s.ttl)
	pipe.SAdd(ctx, userKey, id)
	pipe.Expire(ctx, userKey, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return id, nil
}

// Get resolves a session id to its user and slides the expiry
func (s *SessionStore) Get(ctx context.Context, id string) (uint, error) {
	if id == "" {
		return 0, ErrSessionNotFound
	}

	key := sessionPrefix + id
	v, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrSessionNotFound
		}
		return 0, fmt.Errorf("get session: %w", err)
	}
	if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
		return 0, fmt.Errorf("refresh session: %w", err)
	}

	userID, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, ErrSessionNotFound
	}
	return uint(userID), nil
}

// Destroy ends one session. Unknown ids are ignored.
func (s *SessionStore) Destroy(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}

	userID, err := s.Get(ctx, id)
	if err != nil && !errors.Is(err, ErrSessionNotFound) {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, sessionPrefix+id)
	if userID != 0 {
		pipe.SRem(ctx, userSessionKey(userID), id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

// DestroyAll ends every session of userID
func (s *SessionStore) DestroyAll(ctx context.Context, userID uint) error {
	userKey := userSessionKey(userID)
	ids, err := s.client.SMembers(ctx, userKey).Result()
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, sessionPrefix+id)
	}
	keys = append(keys, userKey)

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("destroy sessions: %w", err)
	}
	return nil
}

func userSessionKey(userID uint) string {
	return userSessionPrefix + strconv.FormatUint(uint64(userID), 10)
}
