package core

import (
	"log"
	"sync"
	"time"
)

// DelayedTaskRunner schedules one-shot functions to run after a delay.
// Every scheduled task is tracked by a handle so pending work can be
// cancelled individually or all at once on shutdown.
type DelayedTaskRunner struct {
	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool
}

func NewDelayedTaskRunner() *DelayedTaskRunner {
	return &DelayedTaskRunner{timers: make(map[string]*time.Timer)}
}

// Schedule runs fn after delay. A task scheduled with an already-used id
// replaces the pending one. Scheduling after StopAll is a no-op.
func (r *DelayedTaskRunner) Schedule(id string, delay time.Duration, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		log.Printf("⚠️ Delayed task runner stopped, dropping task: %s", id)
		return
	}

	if existing, ok := r.timers[id]; ok {
		existing.Stop()
	}

	r.timers[id] = time.AfterFunc(delay, func() {
		r.mu.Lock()
		delete(r.timers, id)
		stopped := r.stopped
		r.mu.Unlock()
		if stopped {
			return
		}
		fn()
	})
}

// Cancel stops a pending task. It returns true if the task had not fired yet.
func (r *DelayedTaskRunner) Cancel(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	timer, ok := r.timers[id]
	if !ok {
		return false
	}
	delete(r.timers, id)
	return timer.Stop()
}

// PendingCount returns the number of tasks that have not fired yet.
func (r *DelayedTaskRunner) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timers)
}

// StopAll cancels every pending task and rejects future scheduling.
func (r *DelayedTaskRunner) StopAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopped = true
	for id, timer := range r.timers {
		timer.Stop()
		delete(r.timers, id)
	}
}
