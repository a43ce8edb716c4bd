package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "session:"

// RedisStore keeps sessions in redis as JSON values. The key TTL must outlive
// the auth token so lazy expiry still observes the stored expiry timestamp
// before the key disappears.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (r *RedisStore) Get(ctx context.Context, userID string) (Session, error) {
	val, err := r.client.Get(ctx, sessionKeyPrefix+userID).Result()
	if err == redis.Nil {
		return Session{UserID: userID, State: StateUnauthenticated}, nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("session get: %w", err)
	}
	var s Session
	if err := json.Unmarshal([]byte(val), &s); err != nil {
		return Session{}, fmt.Errorf("session decode: %w", err)
	}
	return s, nil
}

func (r *RedisStore) Put(ctx context.Context, s Session) error {
	val, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("session encode: %w", err)
	}
	if err := r.client.Set(ctx, sessionKeyPrefix+s.UserID, val, r.ttl).Err(); err != nil {
		return fmt.Errorf("session put: %w", err)
	}
	return nil
}
