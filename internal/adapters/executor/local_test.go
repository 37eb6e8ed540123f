package executor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/bulkedit/internal/ports/secondary"
)

func TestLocalExecutor_RunsRegisteredTasks(t *testing.T) {
	e := NewLocalExecutor(context.Background())
	var ran atomic.Int32
	var seen atomic.Value
	e.Register("commit_session", func(ctx context.Context, task secondary.Task) error {
		ran.Add(1)
		seen.Store(task.SessionID)
		return nil
	})

	require.NoError(t, e.Submit(context.Background(), secondary.Task{ID: "T1", Name: "commit_session", SessionID: "S1"}))
	e.Wait()

	assert.Equal(t, int32(1), ran.Load())
	assert.Equal(t, "S1", seen.Load())
}

func TestLocalExecutor_UnknownTask(t *testing.T) {
	e := NewLocalExecutor(context.Background())
	err := e.Submit(context.Background(), secondary.Task{ID: "T1", Name: "nope"})
	assert.ErrorContains(t, err, "no handler registered")
}

func TestLocalExecutor_DetachedFromRequest(t *testing.T) {
	e := NewLocalExecutor(context.Background())
	var canceled atomic.Bool
	e.Register("commit_session", func(ctx context.Context, task secondary.Task) error {
		canceled.Store(ctx.Err() != nil)
		return nil
	})

	req, cancel := context.WithCancel(context.Background())
	require.NoError(t, e.Submit(req, secondary.Task{ID: "T1", Name: "commit_session"}))
	cancel()
	e.Wait()

	assert.False(t, canceled.Load())
}

func TestLocalExecutor_Stopped(t *testing.T) {
	base, cancel := context.WithCancel(context.Background())
	e := NewLocalExecutor(base)
	e.Register("commit_session", func(ctx context.Context, task secondary.Task) error { return nil })
	cancel()

	err := e.Submit(context.Background(), secondary.Task{ID: "T1", Name: "commit_session"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLocalExecutor_HandlerErrorIsContained(t *testing.T) {
	e := NewLocalExecutor(context.Background())
	e.Register("commit_session", func(ctx context.Context, task secondary.Task) error {
		return errors.New("boom")
	})
	require.NoError(t, e.Submit(context.Background(), secondary.Task{ID: "T1", Name: "commit_session"}))
	e.Wait()
}
