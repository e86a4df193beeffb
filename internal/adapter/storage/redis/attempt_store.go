package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// AttemptStore implements ports.FailedAttemptStore with a Redis counter per
// owner. The window starts at the first failure; the counter disappears when
// it expires, which is what unlocks the account.
type AttemptStore struct {
	client *goredis.Client
	prefix string
}

// NewAttemptStore creates a new Redis-backed failed-attempt store.
func NewAttemptStore(client *goredis.Client) *AttemptStore {
	return &AttemptStore{
		client: client,
		prefix: "failed_attempts:",
	}
}

// Increment records a failed attempt and returns the count in the current
// window.
func (s *AttemptStore) Increment(ctx context.Context, ownerID uuid.UUID, window time.Duration) (int64, error) {
	key := s.prefix + ownerID.String()

	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis attempt incr: %w", err)
	}

	// Set expiry only on first increment (new window)
	if count == 1 {
		s.client.Expire(ctx, key, window)
	}

	return count, nil
}

// Count returns the failed attempts in the current window.
func (s *AttemptStore) Count(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	count, err := s.client.Get(ctx, s.prefix+ownerID.String()).Int64()
	if err != nil {
		if err == goredis.Nil {
			return 0, nil
		}
		return 0, fmt.Errorf("redis attempt get: %w", err)
	}
	return count, nil
}

// Reset clears the counter after a successful authorization.
func (s *AttemptStore) Reset(ctx context.Context, ownerID uuid.UUID) error {
	if err := s.client.Del(ctx, s.prefix+ownerID.String()).Err(); err != nil {
		return fmt.Errorf("redis attempt reset: %w", err)
	}
	return nil
}
