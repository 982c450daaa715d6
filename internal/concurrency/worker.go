// File: internal/concurrency/worker.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Worker is a single-goroutine deferred executor. Tasks run one at a time in
// submission order, which gives callers a context that never runs
// concurrently with itself.

package concurrency

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/momentics/warplink/affinity"
)

var (
	// ErrWorkerStopped is returned by Post once Stop has begun.
	ErrWorkerStopped = errors.New("worker is stopped")

	// ErrQueueFull is returned by Post when the task queue has no room.
	ErrQueueFull = errors.New("worker queue is full")
)

// TaskFunc is a unit of work to execute.
type TaskFunc func()

// Worker owns one goroutine draining a bounded task queue.
type Worker struct {
	tasks   chan TaskFunc
	stopCh  chan struct{}
	done    chan struct{}
	stopped atomic.Bool
	once    sync.Once

	completed atomic.Int64
}

// NewWorker starts a worker with room for depth queued tasks.
func NewWorker(depth int) *Worker {
	w := newWorker(depth)
	go w.run()
	return w
}

// NewPinnedWorker starts a worker whose goroutine owns an OS thread pinned
// to cpu. It fails if the thread cannot be pinned.
func NewPinnedWorker(depth, cpu int) (*Worker, error) {
	w := newWorker(depth)
	ready := make(chan error, 1)
	go func() {
		// Never unlocked: the thread is discarded when the goroutine ends.
		runtime.LockOSThread()
		if err := affinity.SetAffinity(cpu); err != nil {
			ready <- err
			return
		}
		ready <- nil
		w.run()
	}()
	if err := <-ready; err != nil {
		return nil, err
	}
	return w, nil
}

func newWorker(depth int) *Worker {
	if depth <= 0 {
		depth = 16
	}
	return &Worker{
		tasks:  make(chan TaskFunc, depth),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Post enqueues task without blocking. A full queue is reported as an error
// so the caller can decide whether to retry.
func (w *Worker) Post(task TaskFunc) error {
	if w.stopped.Load() {
		return ErrWorkerStopped
	}
	select {
	case w.tasks <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop prevents new tasks, lets the task in flight finish, drops the rest and
// waits for the goroutine to exit.
func (w *Worker) Stop() {
	w.once.Do(func() {
		w.stopped.Store(true)
		close(w.stopCh)
	})
	<-w.done
}

// Completed returns the number of tasks run so far.
func (w *Worker) Completed() int64 { return w.completed.Load() }

func (w *Worker) run() {
	defer close(w.done)
	for {
		select {
		case <-w.stopCh:
			return
		case task := <-w.tasks:
			// Stop may race with a ready task; honour it first.
			if w.stopped.Load() {
				return
			}
			task()
			w.completed.Add(1)
		}
	}
}
