package async

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/patient-intake/internal/common"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestQueueProcessesAllJobs(t *testing.T) {
	var processed atomic.Int64
	q := NewProcessorQueue(func(_ context.Context, _ Job) error {
		processed.Add(1)
		return nil
	}, testLogger(), WithWorkers(3), WithQueueSize(16))

	for i := 0; i < 10; i++ {
		require.NoError(t, q.Enqueue(context.Background(), Job{ID: uuid.New(), Filename: "f.pdf"}))
	}

	q.Shutdown(context.Background())
	assert.Equal(t, int64(10), processed.Load())
}

func TestQueueHandlerErrorDoesNotStopWorkers(t *testing.T) {
	var processed atomic.Int64
	q := NewProcessorQueue(func(_ context.Context, job Job) error {
		processed.Add(1)
		if job.Filename == "bad.pdf" {
			return errors.New("boom")
		}
		return nil
	}, testLogger(), WithWorkers(1))

	require.NoError(t, q.Enqueue(context.Background(), Job{ID: uuid.New(), Filename: "bad.pdf"}))
	require.NoError(t, q.Enqueue(context.Background(), Job{ID: uuid.New(), Filename: "good.pdf"}))

	q.Shutdown(context.Background())
	assert.Equal(t, int64(2), processed.Load(), "the job after a failure still runs")
}

func TestQueueCarriesTraceAndDeadline(t *testing.T) {
	var mu sync.Mutex
	var sawTrace string
	var sawDeadline bool

	q := NewProcessorQueue(func(ctx context.Context, _ Job) error {
		mu.Lock()
		defer mu.Unlock()
		sawTrace = common.RequestIDFromContext(ctx)
		_, sawDeadline = ctx.Deadline()
		return nil
	}, testLogger(), WithWorkers(1), WithProcessTimeout(time.Second))

	require.NoError(t, q.Enqueue(context.Background(), Job{ID: uuid.New(), TraceID: "req-123"}))
	q.Shutdown(context.Background())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "req-123", sawTrace)
	assert.True(t, sawDeadline, "every job runs under the process timeout")
}

func TestQueueEnqueueAfterShutdownIsDropped(t *testing.T) {
	var processed atomic.Int64
	q := NewProcessorQueue(func(_ context.Context, _ Job) error {
		processed.Add(1)
		return nil
	}, testLogger(), WithWorkers(1))

	q.Shutdown(context.Background())
	q.Shutdown(context.Background()) // second call is a no-op

	require.NoError(t, q.Enqueue(context.Background(), Job{ID: uuid.New()}), "late enqueue is dropped, not a panic")
	assert.Equal(t, int64(0), processed.Load())
}

func TestQueueBackpressureBlocksUntilDrained(t *testing.T) {
	release := make(chan struct{})
	var processed atomic.Int64
	q := NewProcessorQueue(func(_ context.Context, _ Job) error {
		<-release
		processed.Add(1)
		return nil
	}, testLogger(), WithWorkers(1), WithQueueSize(1))

	// first job occupies the worker, second fills the buffer
	require.NoError(t, q.Enqueue(context.Background(), Job{ID: uuid.New()}))
	require.NoError(t, q.Enqueue(context.Background(), Job{ID: uuid.New()}))

	enqueued := make(chan struct{})
	go func() {
		// buffer is full; this blocks until the worker makes room
		_ = q.Enqueue(context.Background(), Job{ID: uuid.New()})
		close(enqueued)
	}()

	select {
	case <-enqueued:
		t.Fatal("enqueue should block while the queue is full")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-enqueued:
	case <-time.After(2 * time.Second):
		t.Fatal("enqueue never unblocked")
	}

	q.Shutdown(context.Background())
	assert.Equal(t, int64(3), processed.Load())
}
