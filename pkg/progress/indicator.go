// Package progress tracks and displays multi-worker compile progress.
package progress

import (
	"fmt"
	"sync"
	"time"
)

// workerState is one worker's view: the variant it is compiling and
// how many it has finished.
type workerState struct {
	current   string
	completed int
	updated   time.Time
}

// Tracker aggregates progress across the compile workers and
// periodically redraws a single status line.
type Tracker struct {
	mu          sync.RWMutex
	workers     map[int]*workerState
	totalJobs   int
	completed   int
	startTime   time.Time
	lastDisplay time.Time
	displayRate time.Duration
}

// NewTracker creates a tracker for a worker count and job total.
func NewTracker(workerCount, totalJobs int) *Tracker {
	t := &Tracker{
		workers:     make(map[int]*workerState),
		totalJobs:   totalJobs,
		startTime:   time.Now(),
		displayRate: 500 * time.Millisecond,
	}
	for i := 0; i < workerCount; i++ {
		t.workers[i] = &workerState{updated: time.Now()}
	}
	return t
}

// UpdateWorker records a worker starting or finishing a job.
func (t *Tracker) UpdateWorker(workerID int, jobID string, completed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	w := t.workers[workerID]
	if w == nil {
		return
	}
	w.current = jobID
	w.updated = time.Now()
	if completed {
		w.completed++
		t.completed++
	}

	if time.Since(t.lastDisplay) >= t.displayRate {
		t.display()
		t.lastDisplay = time.Now()
	}
}

// display redraws the status line. Caller holds the lock.
func (t *Tracker) display() {
	if t.totalJobs == 0 {
		return
	}
	elapsed := time.Since(t.startTime)
	percentage := float64(t.completed) / float64(t.totalJobs) * 100

	var eta time.Duration
	if t.completed > 0 {
		perJob := elapsed / time.Duration(t.completed)
		eta = perJob * time.Duration(t.totalJobs-t.completed)
	}

	fmt.Printf("\rCompiling variants: %d/%d (%.0f%%) elapsed %v eta %v   ",
		t.completed, t.totalJobs, percentage,
		elapsed.Round(time.Second), eta.Round(time.Second))
}

// Finish prints the final state and terminates the status line.
func (t *Tracker) Finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.display()
	fmt.Println()
}
