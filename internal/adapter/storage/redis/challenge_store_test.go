package redis

import (
	"context"
	"testing"
	"time"

	"wallet-withdrawal-engine/internal/core/domain"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testChallenge() *domain.AuthChallenge {
	return &domain.AuthChallenge{
		ChallengeID:   "chal-123",
		CodeChallenge: "s256-digest-value",
		Nonce:         "nonce-abc",
	}
}

func TestChallengeStore_PutAndConsume(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewChallengeStore(client)
	ctx := context.Background()

	challenge := testChallenge()
	require.NoError(t, store.Put(ctx, challenge, 5*time.Minute))

	got, err := store.Consume(ctx, challenge.ChallengeID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, challenge.ChallengeID, got.ChallengeID)
	assert.Equal(t, challenge.CodeChallenge, got.CodeChallenge)
	assert.Equal(t, challenge.Nonce, got.Nonce)
}

func TestChallengeStore_Consume_SingleUse(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewChallengeStore(client)
	ctx := context.Background()

	challenge := testChallenge()
	require.NoError(t, store.Put(ctx, challenge, 5*time.Minute))

	first, err := store.Consume(ctx, challenge.ChallengeID)
	require.NoError(t, err)
	require.NotNil(t, first)

	// Second consume of the same challenge must come back empty
	second, err := store.Consume(ctx, challenge.ChallengeID)
	require.NoError(t, err)
	assert.Nil(t, second, "consumed challenge should not be retrievable again")
}

func TestChallengeStore_Consume_Expired(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewChallengeStore(client)
	ctx := context.Background()

	challenge := testChallenge()
	require.NoError(t, store.Put(ctx, challenge, 1*time.Second))

	s.FastForward(2 * time.Second)

	got, err := store.Consume(ctx, challenge.ChallengeID)
	require.NoError(t, err)
	assert.Nil(t, got, "expired challenge should not be retrievable")
}

func TestChallengeStore_Consume_Unknown(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewChallengeStore(client)

	got, err := store.Consume(context.Background(), "never-issued")
	require.NoError(t, err)
	assert.Nil(t, got)
}
