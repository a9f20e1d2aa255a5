package sessions

import (
	"context"
	"errors"
	"sync"
)

var errWriterClosed = errors.New("session writer closed")

// writeJob is either a write (write != nil) or a flush barrier (done != nil).
type writeJob struct {
	ctx   context.Context
	write func(ctx context.Context)
	done  chan struct{}
}

// writer applies jobs one at a time in the order they were enqueued.
type writer struct {
	jobs chan writeJob

	mu      sync.RWMutex
	closed  bool
	stopped chan struct{}
}

func newWriter(size int) *writer {
	if size <= 0 {
		size = 1
	}
	w := &writer{
		jobs:    make(chan writeJob, size),
		stopped: make(chan struct{}),
	}
	go w.drain()
	return w
}

func (w *writer) drain() {
	defer close(w.stopped)
	for job := range w.jobs {
		if job.done != nil {
			close(job.done)
			continue
		}
		job.write(job.ctx)
	}
}

// enqueue waits for queue capacity. It fails when ctx ends first or the
// writer has been closed.
func (w *writer) enqueue(ctx context.Context, job writeJob) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return errWriterClosed
	}

	select {
	case w.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// flush returns once every job enqueued before the call has been applied.
func (w *writer) flush(ctx context.Context) error {
	done := make(chan struct{})
	if err := w.enqueue(ctx, writeJob{done: done}); err != nil {
		if errors.Is(err, errWriterClosed) {
			<-w.stopped
			return nil
		}
		return err
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close applies the remaining jobs and stops the drain goroutine.
func (w *writer) close() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.jobs)
	}
	w.mu.Unlock()
	<-w.stopped
}
