package lifecycle

import (
	"context"
	"sync"
	"time"
)

// PeriodicTask manages a background task that runs at regular intervals
type PeriodicTask struct {
	initialDelay time.Duration
	interval     time.Duration
	task         func(ctx context.Context)
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	mu           sync.Mutex
	running      bool
}

// NewPeriodicTask creates a task that first runs after initialDelay and then
// every interval. A zero initialDelay waits one full interval before the
// first run.
func NewPeriodicTask(initialDelay, interval time.Duration, task func(ctx context.Context)) *PeriodicTask {
	return &PeriodicTask{
		initialDelay: initialDelay,
		interval:     interval,
		task:         task,
	}
}

// Start begins executing the task. The task context is cancelled by Stop or
// when parent is done.
func (pt *PeriodicTask) Start(parent context.Context) {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	if pt.running || pt.interval <= 0 {
		return
	}

	ctx, cancel := context.WithCancel(parent)
	pt.cancel = cancel
	pt.running = true

	pt.wg.Add(1)
	go func() {
		defer pt.wg.Done()

		first := pt.initialDelay
		if first <= 0 {
			first = pt.interval
		}
		timer := time.NewTimer(first)
		defer timer.Stop()

		select {
		case <-timer.C:
			pt.task(ctx)
		case <-ctx.Done():
			return
		}

		ticker := time.NewTicker(pt.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				pt.task(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop terminates the periodic task execution and waits for a running task
// to return. It must not be called from inside the task.
func (pt *PeriodicTask) Stop() {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	if !pt.running {
		return
	}

	pt.cancel()
	pt.wg.Wait()
	pt.running = false
}

// IsRunning returns true if the task is currently running
func (pt *PeriodicTask) IsRunning() bool {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	return pt.running
}
