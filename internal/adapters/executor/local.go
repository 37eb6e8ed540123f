// Package executor contains implementations of the task executor port.
package executor

import (
	"context"
	"fmt"
	"sync"

	"goa.design/clue/log"

	"github.com/example/bulkedit/internal/ports/secondary"
)

// handlers maps task names to handlers. Shared by every executor.
type handlers struct {
	mu sync.RWMutex
	m  map[string]secondary.TaskHandler
}

// Register binds a handler to a task name.
func (h *handlers) Register(name string, handler secondary.TaskHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.m == nil {
		h.m = make(map[string]secondary.TaskHandler)
	}
	h.m[name] = handler
}

func (h *handlers) lookup(name string) (secondary.TaskHandler, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	handler, ok := h.m[name]
	if !ok {
		return nil, fmt.Errorf("no handler registered for task %q", name)
	}
	return handler, nil
}

func runTask(ctx context.Context, handler secondary.TaskHandler, task secondary.Task) {
	ctx = log.With(ctx, log.KV{K: "task_id", V: task.ID}, log.KV{K: "task", V: task.Name})
	if err := handler(ctx, task); err != nil {
		log.Error(ctx, err, log.KV{K: "msg", V: "task failed"}, log.KV{K: "session_id", V: task.SessionID})
		return
	}
	log.Debug(ctx, log.KV{K: "msg", V: "task done"}, log.KV{K: "session_id", V: task.SessionID})
}

// LocalExecutor runs tasks on goroutines of the current process.
type LocalExecutor struct {
	handlers
	base context.Context
	wg   sync.WaitGroup
}

// NewLocalExecutor creates an executor whose tasks run under base. Canceling
// base interrupts running tasks.
func NewLocalExecutor(base context.Context) *LocalExecutor {
	return &LocalExecutor{base: base}
}

// Submit starts the task on a new goroutine. The submitting request's
// context is not used by the task.
func (e *LocalExecutor) Submit(ctx context.Context, task secondary.Task) error {
	handler, err := e.lookup(task.Name)
	if err != nil {
		return err
	}
	if err := e.base.Err(); err != nil {
		return fmt.Errorf("executor stopped: %w", err)
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		runTask(e.base, handler, task)
	}()
	return nil
}

// Wait blocks until every submitted task has returned.
func (e *LocalExecutor) Wait() {
	e.wg.Wait()
}

// Ensure LocalExecutor implements the interface
var _ secondary.TaskExecutor = (*LocalExecutor)(nil)
