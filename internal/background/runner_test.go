package background

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunner_ErrorsGoToLogSink(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	r := NewRunner(context.Background(), logger)

	var ran atomic.Int32
	r.Go("ok-task", func(context.Context) error {
		ran.Add(1)
		return nil
	})
	r.Go("saved-items-sync", func(context.Context) error {
		ran.Add(1)
		return errors.New("NETWORK_ERROR")
	})
	r.Close()

	assert.Equal(t, int32(2), ran.Load())
	assert.Contains(t, buf.String(), `"task":"saved-items-sync"`)
	assert.Contains(t, buf.String(), "NETWORK_ERROR")
	assert.NotContains(t, buf.String(), "ok-task")
}

func TestRunner_TasksIgnoreParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewRunner(ctx, nil)
	cancel()

	var taskErr error
	r.Go("sync", func(ctx context.Context) error {
		taskErr = ctx.Err()
		return nil
	})
	r.Wait()

	assert.NoError(t, taskErr)
	r.Close()
}

func TestRunner_DropsAfterClose(t *testing.T) {
	r := NewRunner(context.Background(), nil)
	r.Close()

	submitted := r.Go("late", func(context.Context) error { return nil })
	assert.False(t, submitted)
	r.Close()
}
