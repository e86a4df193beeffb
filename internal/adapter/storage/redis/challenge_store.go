package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"wallet-withdrawal-engine/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
)

// ChallengeStore implements ports.ChallengeStore using Redis. GETDEL makes
// challenge consumption atomic: exactly one caller ever sees a stored
// challenge.
type ChallengeStore struct {
	client *goredis.Client
	prefix string
}

// NewChallengeStore creates a new Redis-backed challenge store.
func NewChallengeStore(client *goredis.Client) *ChallengeStore {
	return &ChallengeStore{
		client: client,
		prefix: "auth_challenge:",
	}
}

// Put stores a challenge with TTL.
func (s *ChallengeStore) Put(ctx context.Context, challenge *domain.AuthChallenge, ttl time.Duration) error {
	payload, err := json.Marshal(challenge)
	if err != nil {
		return fmt.Errorf("marshal challenge: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+challenge.ChallengeID, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis challenge set: %w", err)
	}
	return nil
}

// Consume atomically retrieves and deletes a challenge.
// Returns nil, nil when the challenge expired or was already consumed.
func (s *ChallengeStore) Consume(ctx context.Context, challengeID string) (*domain.AuthChallenge, error) {
	payload, err := s.client.GetDel(ctx, s.prefix+challengeID).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis challenge getdel: %w", err)
	}

	challenge := &domain.AuthChallenge{}
	if err := json.Unmarshal(payload, challenge); err != nil {
		return nil, fmt.Errorf("unmarshal challenge: %w", err)
	}
	return challenge, nil
}
