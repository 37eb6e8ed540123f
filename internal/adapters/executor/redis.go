package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"goa.design/clue/log"

	"github.com/example/bulkedit/internal/ports/secondary"
)

const defaultBlockTimeout = 5 * time.Second

// RedisExecutor queues tasks on a redis list. Submit pushes with LPUSH and
// Serve pops with BRPOP, so any number of worker processes can share a queue.
type RedisExecutor struct {
	handlers
	client       *redis.Client
	queue        string
	blockTimeout time.Duration
}

// NewRedisExecutor creates an executor backed by the given list key.
func NewRedisExecutor(client *redis.Client, queue string) *RedisExecutor {
	return &RedisExecutor{client: client, queue: queue, blockTimeout: defaultBlockTimeout}
}

// WithBlockTimeout sets how long a single BRPOP waits before Serve checks
// for cancellation again.
func (e *RedisExecutor) WithBlockTimeout(d time.Duration) *RedisExecutor {
	if d > 0 {
		e.blockTimeout = d
	}
	return e
}

// Submit pushes the task onto the queue.
func (e *RedisExecutor) Submit(ctx context.Context, task secondary.Task) error {
	if _, err := e.lookup(task.Name); err != nil {
		return err
	}
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to encode task: %w", err)
	}
	if err := e.client.LPush(ctx, e.queue, payload).Err(); err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}

// Serve pops and runs tasks one at a time until ctx is canceled.
func (e *RedisExecutor) Serve(ctx context.Context) error {
	log.Info(ctx, log.KV{K: "msg", V: "worker listening"}, log.KV{K: "queue", V: e.queue})
	for {
		if ctx.Err() != nil {
			return nil
		}
		task, ok, err := e.pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if !ok {
			continue
		}

		handler, err := e.lookup(task.Name)
		if err != nil {
			log.Error(ctx, err, log.KV{K: "msg", V: "dropping task"}, log.KV{K: "task_id", V: task.ID})
			continue
		}
		runTask(ctx, handler, task)
	}
}

// pop waits for the next task. ok is false when the wait timed out or the
// payload could not be decoded.
func (e *RedisExecutor) pop(ctx context.Context) (secondary.Task, bool, error) {
	var task secondary.Task
	res, err := e.client.BRPop(ctx, e.blockTimeout, e.queue).Result()
	if errors.Is(err, redis.Nil) {
		return task, false, nil
	}
	if err != nil {
		return task, false, fmt.Errorf("failed to pop task: %w", err)
	}

	// res is [key, value].
	if len(res) != 2 {
		return task, false, nil
	}
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		log.Error(ctx, err, log.KV{K: "msg", V: "dropping malformed task"}, log.KV{K: "payload", V: res[1]})
		return task, false, nil
	}
	return task, true, nil
}

// Ensure RedisExecutor implements the interface
var _ secondary.TaskExecutor = (*RedisExecutor)(nil)
