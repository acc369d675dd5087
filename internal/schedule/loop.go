package schedule

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrLoopClosed is returned by Run once Close has been called
var ErrLoopClosed = errors.New("loop closed")

// Loop is a serial executor. Tasks posted from any goroutine run one at a
// time, in posting order, on the goroutine calling Run or RunPending.
type Loop struct {
	mu     sync.Mutex
	tasks  []func()
	wake   chan struct{}
	closed bool
}

// NewLoop creates an empty loop.
func NewLoop() *Loop {
	return &Loop{
		tasks: make([]func(), 0),
		wake:  make(chan struct{}, 1),
	}
}

// Post queues f. It returns false if the loop is closed.
func (l *Loop) Post(f func()) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.tasks = append(l.tasks, f)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// AfterFunc posts f onto the loop once d has elapsed.
func (l *Loop) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, func() { l.Post(f) })
}

// Len returns the number of queued tasks.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tasks)
}

// RunPending runs every task queued at call time, plus any they queue, and
// returns how many ran.
func (l *Loop) RunPending() int {
	ran := 0
	for {
		batch := l.take()
		if len(batch) == 0 {
			return ran
		}
		for _, f := range batch {
			f()
			ran++
		}
	}
}

// Run executes tasks until ctx is done or the loop is closed.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.RunPending()

		l.mu.Lock()
		closed := l.closed
		l.mu.Unlock()
		if closed {
			return ErrLoopClosed
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Close stops accepting tasks and wakes Run. Queued tasks are dropped.
func (l *Loop) Close() {
	l.mu.Lock()
	l.closed = true
	l.tasks = nil
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// take returns all queued tasks and clears the queue.
func (l *Loop) take() []func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	result := l.tasks
	l.tasks = make([]func(), 0, cap(l.tasks))
	return result
}
