package batch

import (
	"context"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/parcel-cli/internal/resilience"
)

func noRetry() resilience.RetryConfig {
	return resilience.RetryConfig{MaxAttempts: 1, InitialBackoff: time.Millisecond}
}

func TestDriver_Empty(t *testing.T) {
	d := &Driver[int]{
		Process: func(_ context.Context, n int) (int, error) { return n, nil },
		Write:   func(_ context.Context, _ int) error { return nil },
	}
	stats, err := d.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, stats.Total)
}

func TestDriver_SequentialOrder(t *testing.T) {
	var written []int
	d := &Driver[int]{
		Process: func(_ context.Context, n int) (int, error) { return n * 10, nil },
		Write: func(_ context.Context, n int) error {
			written = append(written, n)
			return nil
		},
		Retry: noRetry(),
	}

	stats, err := d.Run(context.Background(), []int{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, []int{10, 20, 30, 40}, written)
	assert.Equal(t, Stats{Total: 4, Processed: 4}, stats)
}

func TestDriver_ConcurrentPreservesInputOrder(t *testing.T) {
	const n = 200
	items := make([]int, n)
	for i := range items {
		items[i] = i
	}

	var written []int
	d := &Driver[int]{
		Concurrency: 8,
		Process: func(_ context.Context, v int) (int, error) {
			// Uneven latencies so completion order scrambles.
			time.Sleep(time.Duration(v%5) * time.Millisecond)
			return v, nil
		},
		Write: func(_ context.Context, v int) error {
			written = append(written, v)
			return nil
		},
		Retry: noRetry(),
	}

	stats, err := d.Run(context.Background(), items)
	require.NoError(t, err)
	require.Len(t, written, n)
	for i, v := range written {
		assert.Equal(t, i, v)
	}
	assert.Equal(t, n, stats.Processed)
}

func TestDriver_SkippedItemsPassThroughUnchanged(t *testing.T) {
	var written []string
	var processed atomic.Int64
	d := &Driver[string]{
		Skip: func(s string) bool { return s == "skip" },
		Process: func(_ context.Context, s string) (string, error) {
			processed.Add(1)
			return s + "-done", nil
		},
		Write: func(_ context.Context, s string) error {
			written = append(written, s)
			return nil
		},
		Retry: noRetry(),
	}

	stats, err := d.Run(context.Background(), []string{"a", "skip", "b"})
	require.NoError(t, err)
	// Skipped rows still reach the sink, untouched and in position.
	assert.Equal(t, []string{"a-done", "skip", "b-done"}, written)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, int64(2), processed.Load())
}

func TestDriver_FailedItemsAreMarkedAndWritten(t *testing.T) {
	permanent := eris.New("permanent failure")

	var written []string
	d := &Driver[string]{
		Process: func(_ context.Context, s string) (string, error) {
			if s == "bad" {
				return "", permanent
			}
			return s, nil
		},
		Fail: func(s string, _ error) string { return s + "-failed" },
		Write: func(_ context.Context, s string) error {
			written = append(written, s)
			return nil
		},
		Retry: noRetry(),
	}

	stats, err := d.Run(context.Background(), []string{"ok", "bad", "also-ok"})
	require.NoError(t, err) // item failures never fail the run
	assert.Equal(t, []string{"ok", "bad-failed", "also-ok"}, written)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 2, stats.Processed)
}

func TestDriver_RetriesTransientErrors(t *testing.T) {
	var attempts atomic.Int64
	d := &Driver[int]{
		Process: func(_ context.Context, n int) (int, error) {
			if attempts.Add(1) < 3 {
				return 0, resilience.NewTransientError(eris.New("flaky"), 503)
			}
			return n, nil
		},
		Write: func(_ context.Context, _ int) error { return nil },
		Retry: resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond},
	}

	stats, err := d.Run(context.Background(), []int{7})
	require.NoError(t, err)
	assert.Equal(t, int64(3), attempts.Load())
	assert.Equal(t, 1, stats.Processed)
	assert.Zero(t, stats.Failed)
}

func TestDriver_PermanentErrorNotRetried(t *testing.T) {
	var attempts atomic.Int64
	d := &Driver[int]{
		Process: func(_ context.Context, _ int) (int, error) {
			attempts.Add(1)
			return 0, eris.New("bad input")
		},
		Write: func(_ context.Context, _ int) error { return nil },
		Retry: resilience.RetryConfig{MaxAttempts: 5, InitialBackoff: time.Millisecond},
	}

	stats, err := d.Run(context.Background(), []int{1})
	require.NoError(t, err)
	assert.Equal(t, int64(1), attempts.Load())
	assert.Equal(t, 1, stats.Failed)
}

func TestDriver_WriteErrorAbortsRun(t *testing.T) {
	sinkErr := eris.New("disk full")
	var writes atomic.Int64
	d := &Driver[int]{
		Concurrency: 4,
		Process:     func(_ context.Context, n int) (int, error) { return n, nil },
		Write: func(_ context.Context, _ int) error {
			if writes.Add(1) >= 3 {
				return sinkErr
			}
			return nil
		},
		Retry: noRetry(),
	}

	items := make([]int, 100)
	_, err := d.Run(context.Background(), items)
	require.Error(t, err)
	assert.ErrorIs(t, err, sinkErr)
}

func TestDriver_OnResultSeesWrittenItems(t *testing.T) {
	var seen []string
	d := &Driver[string]{
		Process:  func(_ context.Context, s string) (string, error) { return s, nil },
		Write:    func(_ context.Context, _ string) error { return nil },
		OnResult: func(s string) { seen = append(seen, s) },
		Retry:    noRetry(),
	}

	items := make([]string, 10)
	for i := range items {
		items[i] = strconv.Itoa(i)
	}
	_, err := d.Run(context.Background(), items)
	require.NoError(t, err)
	assert.Equal(t, items, seen)
}
