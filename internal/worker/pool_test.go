package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
)

type testJob struct {
	id        string
	err       error
	processed *int32
}

func (j *testJob) ID() string { return j.id }

func (j *testJob) Process(ctx context.Context) error {
	atomic.AddInt32(j.processed, 1)
	return j.err
}

func TestPoolProcessesAllJobs(t *testing.T) {
	pool := NewPool(3)
	pool.Start()

	var processed int32
	const jobCount = 10
	for i := 0; i < jobCount; i++ {
		pool.Submit(&testJob{id: fmt.Sprintf("job-%d", i), processed: &processed})
	}

	for i := 0; i < jobCount; i++ {
		result := <-pool.Results()
		if result.Error != nil {
			t.Errorf("job %s failed: %v", result.JobID, result.Error)
		}
	}
	pool.Stop()

	if got := atomic.LoadInt32(&processed); got != jobCount {
		t.Errorf("processed %d jobs, want %d", got, jobCount)
	}
}

func TestPoolReportsJobErrors(t *testing.T) {
	pool := NewPool(1)
	pool.Start()

	var processed int32
	wantErr := errors.New("variant exploded")
	pool.Submit(&testJob{id: "bad", err: wantErr, processed: &processed})

	result := <-pool.Results()
	pool.Stop()

	if result.JobID != "bad" {
		t.Errorf("result job ID = %q", result.JobID)
	}
	if !errors.Is(result.Error, wantErr) {
		t.Errorf("result error = %v, want %v", result.Error, wantErr)
	}
}

func TestPoolDefaultsWorkerCount(t *testing.T) {
	pool := NewPool(0)
	if pool.WorkerCount() < 1 {
		t.Errorf("worker count = %d, want at least 1", pool.WorkerCount())
	}
}

func TestPoolWithProgress(t *testing.T) {
	pool := NewPoolWithProgress(2, 4)
	pool.Start()

	var processed int32
	for i := 0; i < 4; i++ {
		pool.Submit(&testJob{id: fmt.Sprintf("v%d", i), processed: &processed})
	}
	for i := 0; i < 4; i++ {
		<-pool.Results()
	}
	pool.Stop()

	if got := atomic.LoadInt32(&processed); got != 4 {
		t.Errorf("processed %d jobs, want 4", got)
	}
}
