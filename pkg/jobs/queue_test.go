package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	var handled int32
	done := make(chan struct{}, 3)
	q := NewQueue("exports", func(ctx context.Context, job Job) error {
		atomic.AddInt32(&handled, 1)
		done <- struct{}{}
		return nil
	}, QueueConfig{Workers: 2})

	q.Start(context.Background())
	defer q.Stop()

	for i := 0; i < 3; i++ {
		require.NoError(t, q.Enqueue(Job{ID: "job", Type: "report"}))
	}
	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("job not processed")
		}
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&handled))
}

func TestQueueRetriesThenGivesUp(t *testing.T) {
	var attempts int32
	gaveUp := make(chan Job, 1)
	q := NewQueue("exports", func(ctx context.Context, job Job) error {
		atomic.AddInt32(&attempts, 1)
		return errors.New("render failed")
	}, QueueConfig{
		MaxRetries: 2,
		RetryDelay: 5 * time.Millisecond,
		OnGiveUp:   func(j Job, err error) { gaveUp <- j },
	})

	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-1"}))

	select {
	case job := <-gaveUp:
		assert.Equal(t, "job-1", job.ID)
		assert.Equal(t, 3, job.Attempt)
	case <-time.After(2 * time.Second):
		t.Fatal("queue never gave up")
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("exports", func(context.Context, Job) error { return nil }, QueueConfig{})
	assert.ErrorIs(t, q.Enqueue(Job{ID: "x"}), ErrNotStarted)
}
