package executor

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrStopped is returned when a job is enqueued after Stop.
var ErrStopped = errors.New("executor stopped")

type Job struct {
	Id        string
	Ctx       context.Context
	JobFunc   func() error
	OnError   func(error)
	OnSuccess func()
}

type WorkerExecutorOptions struct {
	MaxRetries   int
	WorkerCount  int
	QueueSize    int
	RetryBackoff time.Duration
	Logger       *zap.Logger
}

// WorkerExecutor runs jobs on a fixed set of workers. With a single worker,
// jobs run one at a time in enqueue order.
type WorkerExecutor struct {
	ctx  context.Context
	jobs chan Job
	wg   *sync.WaitGroup
	opts *WorkerExecutorOptions

	mu      sync.RWMutex
	stopped bool
}

func NewWorkerExecutor(ctx context.Context, opts *WorkerExecutorOptions) *WorkerExecutor {
	if opts.WorkerCount <= 0 {
		opts.WorkerCount = 1
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &WorkerExecutor{
		ctx:  ctx,
		jobs: make(chan Job, opts.QueueSize),
		wg:   &sync.WaitGroup{},
		opts: opts,
	}
}

// Enqueue adds a job to the worker queue.
func (w *WorkerExecutor) Enqueue(job Job) error {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.stopped {
		return ErrStopped
	}

	if job.Ctx == nil {
		job.Ctx = w.ctx
	}

	select {
	case w.jobs <- job:
		return nil
	case <-w.ctx.Done():
		return w.ctx.Err()
	}
}

func (w *WorkerExecutor) Start() {
	for i := 0; i < w.opts.WorkerCount; i++ {
		w.wg.Add(1)

		go func() {
			defer w.wg.Done()
			w.spinWorker()
		}()
	}
}

// Wait for all workers to finish.
func (w *WorkerExecutor) Wait() {
	w.wg.Wait()
}

// Stop the worker queue. Jobs already queued still run; call Wait to block
// until they have.
func (w *WorkerExecutor) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	w.stopped = true
	close(w.jobs)
}

// spinWorker processes jobs until the queue is closed and drained.
func (w *WorkerExecutor) spinWorker() {
	for job := range w.jobs {
		if err := job.Ctx.Err(); err != nil {
			w.opts.Logger.Debug("job context is done", zap.String("job", job.Id), zap.Error(err))
			job.fail(err)
			continue
		}

		w.processJob(job)
	}
}

// Process the job, retrying if necessary, and calling the appropriate callbacks.
func (w *WorkerExecutor) processJob(job Job) {
	retryBackOff := w.opts.RetryBackoff

	for i := 0; i <= w.opts.MaxRetries; i++ {
		err := job.JobFunc()

		if err == nil {
			if job.OnSuccess != nil {
				job.OnSuccess()
			}
			return
		}

		if i == w.opts.MaxRetries {
			job.fail(err)
			return
		}

		if retryBackOff != 0 {
			select {
			case <-time.After(retryBackOff):
				w.opts.Logger.Debug("retrying job", zap.String("job", job.Id), zap.Duration("after", retryBackOff))
				retryBackOff *= 2
			case <-job.Ctx.Done():
				job.fail(job.Ctx.Err())
				return
			}
		}
	}
}

func (j Job) fail(err error) {
	if j.OnError != nil {
		j.OnError(err)
	}
}
