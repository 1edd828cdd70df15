package executor_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/OmGuptaIND/clipcam/executor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSingleWorkerKeepsOrder(t *testing.T) {
	w := executor.NewWorkerExecutor(context.Background(), &executor.WorkerExecutorOptions{
		WorkerCount: 1,
		QueueSize:   16,
	})
	w.Start()

	var mu sync.Mutex
	var got []int

	for i := 0; i < 10; i++ {
		i := i
		require.NoError(t, w.Enqueue(executor.Job{
			JobFunc: func() error {
				mu.Lock()
				got = append(got, i)
				mu.Unlock()
				return nil
			},
		}))
	}

	w.Stop()
	w.Wait()

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
}

func TestRetriesThenFails(t *testing.T) {
	w := executor.NewWorkerExecutor(context.Background(), &executor.WorkerExecutorOptions{
		MaxRetries:   2,
		RetryBackoff: time.Millisecond,
	})
	w.Start()

	attempts := 0
	var failed error
	done := make(chan struct{})

	require.NoError(t, w.Enqueue(executor.Job{
		Id: "flaky",
		JobFunc: func() error {
			attempts++
			return errors.New("nope")
		},
		OnError: func(err error) {
			failed = err
			close(done)
		},
	}))

	<-done
	w.Stop()
	w.Wait()

	assert.Equal(t, 3, attempts)
	assert.EqualError(t, failed, "nope")
}

func TestEnqueueAfterStop(t *testing.T) {
	w := executor.NewWorkerExecutor(context.Background(), &executor.WorkerExecutorOptions{})
	w.Start()
	w.Stop()
	w.Wait()

	err := w.Enqueue(executor.Job{JobFunc: func() error { return nil }})
	assert.ErrorIs(t, err, executor.ErrStopped)
}

func TestStopDrainsQueuedJobs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := executor.NewWorkerExecutor(ctx, &executor.WorkerExecutorOptions{
		WorkerCount: 1,
		QueueSize:   4,
	})
	w.Start()

	release := make(chan struct{})
	var mu sync.Mutex
	var ran []string

	record := func(name string) func() error {
		return func() error {
			mu.Lock()
			ran = append(ran, name)
			mu.Unlock()
			return nil
		}
	}

	require.NoError(t, w.Enqueue(executor.Job{
		Id: "slow",
		JobFunc: func() error {
			<-release
			return record("slow")()
		},
	}))
	require.NoError(t, w.Enqueue(executor.Job{Id: "queued", JobFunc: record("queued")}))

	w.Stop()
	close(release)
	w.Wait()
	cancel()

	assert.Equal(t, []string{"slow", "queued"}, ran)
}
