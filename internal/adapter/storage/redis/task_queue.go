package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const queueKey = "withdrawal:execution_queue"

// TaskQueue implements ports.TaskQueue as a Redis list. LPUSH/BRPOP gives
// FIFO ordering and at-least-once delivery to blocked workers.
type TaskQueue struct {
	client *goredis.Client
}

// NewTaskQueue creates a new Redis-backed task queue.
func NewTaskQueue(client *goredis.Client) *TaskQueue {
	return &TaskQueue{client: client}
}

// Enqueue pushes an execution task.
func (q *TaskQueue) Enqueue(ctx context.Context, transactionID uuid.UUID) error {
	if err := q.client.LPush(ctx, queueKey, transactionID.String()).Err(); err != nil {
		return fmt.Errorf("redis queue push: %w", err)
	}
	return nil
}

// Dequeue blocks up to timeout waiting for a task. ok is false when the
// timeout elapsed with nothing available.
func (q *TaskQueue) Dequeue(ctx context.Context, timeout time.Duration) (uuid.UUID, bool, error) {
	result, err := q.client.BRPop(ctx, timeout, queueKey).Result()
	if err != nil {
		if err == goredis.Nil {
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, fmt.Errorf("redis queue pop: %w", err)
	}

	// BRPOP returns [key, value].
	id, err := uuid.Parse(result[1])
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("malformed task id %q: %w", result[1], err)
	}
	return id, true, nil
}
