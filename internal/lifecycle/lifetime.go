// Package lifecycle ties asynchronous work to the lifetime of a mounted view.
package lifecycle

import (
	"context"
	"sync"
	"time"
)

// Lifetime is the mounted state of one view instance: a mounted flag, the
// cancellation handles it has issued and the timers it owns. Unmount cancels
// all of them and flips mounted to false, after which Guard never runs again.
type Lifetime struct {
	mu      sync.Mutex
	mounted bool
	ctx     context.Context
	cancel  context.CancelFunc
	handles map[uint64]context.CancelFunc
	nextID  uint64
	tasks   []*PeriodicTask
	timers  []*time.Timer
}

// NewLifetime returns a mounted lifetime whose context derives from parent
func NewLifetime(parent context.Context) *Lifetime {
	ctx, cancel := context.WithCancel(parent)
	return &Lifetime{
		mounted: true,
		ctx:     ctx,
		cancel:  cancel,
		handles: make(map[uint64]context.CancelFunc),
	}
}

// Context is cancelled on unmount
func (l *Lifetime) Context() context.Context {
	return l.ctx
}

// Mounted reports whether the view is still mounted
func (l *Lifetime) Mounted() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mounted
}

// Track registers a cancellation handle. The returned release removes it once
// the request settled. Tracking on an unmounted lifetime cancels immediately.
func (l *Lifetime) Track(cancel context.CancelFunc) (release func()) {
	l.mu.Lock()
	if !l.mounted {
		l.mu.Unlock()
		cancel()
		return func() {}
	}
	id := l.nextID
	l.nextID++
	l.handles[id] = cancel
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		delete(l.handles, id)
		l.mu.Unlock()
	}
}

// Guard runs fn only while mounted, holding the lifetime lock so Unmount
// cannot interleave. fn must not call back into the lifetime.
func (l *Lifetime) Guard(fn func()) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.mounted {
		return false
	}
	fn()
	return true
}

// Handles returns the number of tracked, unsettled handles
func (l *Lifetime) Handles() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.handles)
}

// Every starts a periodic task owned by the lifetime
func (l *Lifetime) Every(initialDelay, interval time.Duration, task func(ctx context.Context)) *PeriodicTask {
	pt := NewPeriodicTask(initialDelay, interval, task)

	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.mounted {
		return pt
	}
	l.tasks = append(l.tasks, pt)
	pt.Start(l.ctx)
	return pt
}

// After runs fn once after delay unless the view unmounts first
func (l *Lifetime) After(delay time.Duration, fn func(ctx context.Context)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.mounted {
		return
	}
	ctx := l.ctx
	l.timers = append(l.timers, time.AfterFunc(delay, func() {
		if ctx.Err() != nil {
			return
		}
		fn(ctx)
	}))
}

// Unmount cancels every handle and timer. It is idempotent and must not be
// called from inside a task owned by this lifetime.
func (l *Lifetime) Unmount() {
	l.mu.Lock()
	if !l.mounted {
		l.mu.Unlock()
		return
	}
	l.mounted = false
	handles := l.handles
	l.handles = make(map[uint64]context.CancelFunc)
	tasks := l.tasks
	l.tasks = nil
	timers := l.timers
	l.timers = nil
	l.cancel()
	l.mu.Unlock()

	for _, cancel := range handles {
		cancel()
	}
	for _, timer := range timers {
		timer.Stop()
	}
	for _, task := range tasks {
		task.Stop()
	}
}
