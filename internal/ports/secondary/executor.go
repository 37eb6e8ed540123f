package secondary

import "context"

// Task is a unit of background work.
type Task struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id,omitempty"`
}

// TaskHandler runs a task. It is called outside the request that submitted it.
type TaskHandler func(ctx context.Context, task Task) error

// TaskExecutor defines the secondary port for running tasks asynchronously.
type TaskExecutor interface {
	// Register binds a handler to a task name. Registration happens at wiring time.
	Register(name string, handler TaskHandler)

	// Submit hands the task off for asynchronous execution. Unknown task
	// names fail immediately.
	Submit(ctx context.Context, task Task) error
}
