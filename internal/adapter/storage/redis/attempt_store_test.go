package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttemptStore_IncrementAndCount(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewAttemptStore(client)
	ctx := context.Background()

	ownerID := uuid.New()

	for want := int64(1); want <= 3; want++ {
		count, err := store.Increment(ctx, ownerID, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, count)
	}

	count, err := store.Count(ctx, ownerID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestAttemptStore_Count_NoFailures(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewAttemptStore(client)

	count, err := store.Count(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestAttemptStore_Reset(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewAttemptStore(client)
	ctx := context.Background()

	ownerID := uuid.New()
	_, err := store.Increment(ctx, ownerID, time.Minute)
	require.NoError(t, err)

	require.NoError(t, store.Reset(ctx, ownerID))

	count, err := store.Count(ctx, ownerID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count, "reset should clear the counter")
}

func TestAttemptStore_WindowExpiry(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewAttemptStore(client)
	ctx := context.Background()

	ownerID := uuid.New()
	_, err := store.Increment(ctx, ownerID, time.Minute)
	require.NoError(t, err)

	s.FastForward(61 * time.Second)

	count, err := store.Count(ctx, ownerID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count, "window expiry unlocks the account")

	// A failure after expiry starts a fresh window at 1
	count, err = store.Increment(ctx, ownerID, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestAttemptStore_OwnersIndependent(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewAttemptStore(client)
	ctx := context.Background()

	a := uuid.New()
	b := uuid.New()

	_, err := store.Increment(ctx, a, time.Minute)
	require.NoError(t, err)

	count, err := store.Count(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}
