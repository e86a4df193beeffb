package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// LeaseStore implements ports.LeaseStore using Redis SET NX. A lease that is
// never released expires with its TTL, so a crashed worker cannot strand a
// withdrawal forever.
type LeaseStore struct {
	client *goredis.Client
	prefix string
}

// NewLeaseStore creates a new Redis-backed lease store.
func NewLeaseStore(client *goredis.Client) *LeaseStore {
	return &LeaseStore{
		client: client,
		prefix: "execution_lease:",
	}
}

// Acquire atomically claims the lease for a transaction.
// Returns true if this caller now holds it, false if another holder exists.
func (s *LeaseStore) Acquire(ctx context.Context, transactionID uuid.UUID, ttl time.Duration) (bool, error) {
	result, err := s.client.SetArgs(ctx, s.prefix+transactionID.String(), 1, goredis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Result()
	if err != nil {
		if err == goredis.Nil {
			// Key already exists, lease held elsewhere
			return false, nil
		}
		return false, fmt.Errorf("redis lease acquire: %w", err)
	}
	return result == "OK", nil
}

// Release drops the lease.
func (s *LeaseStore) Release(ctx context.Context, transactionID uuid.UUID) error {
	if err := s.client.Del(ctx, s.prefix+transactionID.String()).Err(); err != nil {
		return fmt.Errorf("redis lease release: %w", err)
	}
	return nil
}
