package downloader

import (
	"context"
	"sync"
)

// Job is a download running in its own goroutine so a front-end can keep
// drawing while the transfer blocks.
type Job struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	result *Result
	err    error
}

// Start runs Download in the background. Observer calls arrive on the job's
// goroutine.
func (d *Downloader) Start(ctx context.Context, req Request, obs Observer) *Job {
	ctx, cancel := context.WithCancel(ctx)
	job := &Job{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(job.done)
		defer cancel()

		res, err := d.Download(ctx, req, obs)

		job.mu.Lock()
		job.result, job.err = res, err
		job.mu.Unlock()
	}()

	return job
}

// Done is closed once the download has finished
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Cancel stops the transfer. The partial file is removed.
func (j *Job) Cancel() {
	j.cancel()
}

// Wait blocks until the download finishes or ctx is done
func (j *Job) Wait(ctx context.Context) (*Result, error) {
	select {
	case <-j.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result, j.err
}
