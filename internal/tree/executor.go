package tree

import (
	"context"
	"sync"
)

// Executor runs tree mutations on the tree's single owner. Do returns after fn
// ran. fn must not call Do again.
type Executor interface {
	Do(fn func())
}

// Inline runs functions on the calling goroutine, one at a time.
type Inline struct {
	mu sync.Mutex
}

// Do implements Executor.
func (e *Inline) Do(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	fn()
}

// Loop is an Executor owned by the goroutine calling Run.
type Loop struct {
	queue chan func()
	done  chan struct{}
	once  sync.Once
}

// NewLoop creates a loop whose queue holds size pending functions.
func NewLoop(size int) *Loop {
	return &Loop{
		queue: make(chan func(), size),
		done:  make(chan struct{}),
	}
}

// Run executes queued functions until ctx is done or Stop is called.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			l.Stop()

			return ctx.Err()
		case <-l.done:
			return nil
		case fn := <-l.queue:
			fn()
		}
	}
}

// Stop ends Run. Later calls to Do return without running fn.
func (l *Loop) Stop() {
	l.once.Do(func() { close(l.done) })
}

// Do implements Executor. It must not be called from the owner goroutine.
func (l *Loop) Do(fn func()) {
	ran := make(chan struct{})

	select {
	case l.queue <- func() {
		defer close(ran)

		fn()
	}:
	case <-l.done:
		return
	}

	select {
	case <-ran:
	case <-l.done:
	}
}
