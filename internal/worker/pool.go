// Package worker runs independent compile jobs (one per size variant)
// across a bounded pool of goroutines.
package worker

import (
	"context"
	"runtime"
	"sync"

	"github.com/alde/trbk/pkg/progress"
)

// Job is a unit of work, typically one size-variant compile.
type Job interface {
	Process(ctx context.Context) error
	ID() string
}

// Result is the outcome of one job.
type Result struct {
	JobID string
	Error error
}

// Pool manages a fixed set of worker goroutines.
type Pool struct {
	workerCount int
	jobs        chan Job
	results     chan Result
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	progress    *progress.Tracker
}

// NewPool creates a pool. A non-positive count uses one worker per CPU.
func NewPool(workerCount int) *Pool {
	return newPool(workerCount, nil)
}

// NewPoolWithProgress creates a pool that reports per-job progress.
func NewPoolWithProgress(workerCount, totalJobs int) *Pool {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	return newPool(workerCount, progress.NewTracker(workerCount, totalJobs))
}

func newPool(workerCount int, tracker *progress.Tracker) *Pool {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		workerCount: workerCount,
		jobs:        make(chan Job, workerCount*2),
		results:     make(chan Result, workerCount*2),
		ctx:         ctx,
		cancel:      cancel,
		progress:    tracker,
	}
}

// Start launches the workers.
func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop closes the queue, waits for in-flight jobs, and shuts down.
func (p *Pool) Stop() {
	close(p.jobs)
	p.wg.Wait()
	close(p.results)
	p.cancel()

	if p.progress != nil {
		p.progress.Finish()
	}
}

// Submit queues a job, failing it immediately if the pool is stopping.
func (p *Pool) Submit(job Job) {
	select {
	case p.jobs <- job:
	case <-p.ctx.Done():
		p.results <- Result{JobID: job.ID(), Error: p.ctx.Err()}
	}
}

// Results returns the results channel.
func (p *Pool) Results() <-chan Result {
	return p.results
}

// WorkerCount returns the number of workers in the pool.
func (p *Pool) WorkerCount() int {
	return p.workerCount
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			if p.progress != nil {
				p.progress.UpdateWorker(id, job.ID(), false)
			}
			err := job.Process(p.ctx)
			if p.progress != nil {
				p.progress.UpdateWorker(id, job.ID(), true)
			}
			p.results <- Result{JobID: job.ID(), Error: err}

		case <-p.ctx.Done():
			return
		}
	}
}
