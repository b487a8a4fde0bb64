// Package schedule runs a function at instants computed one at a time, such
// as every local midnight, with explicit cancel and re-arm.
package schedule

import (
	"sync"
	"time"

	"tableflip.dev/daynotes/pkg/timeutil"
)

// NextFunc returns the first instant strictly after t the task should run at.
type NextFunc func(t time.Time) time.Time

// Task is a cancellable self-rearming timer. After each run, whatever its
// outcome, it arms itself for next(now).
type Task struct {
	clock timeutil.Clock
	next  NextFunc
	fn    func()

	mu      sync.Mutex
	timer   timeutil.Timer
	at      time.Time
	gen     uint64
	running bool
}

// New returns an unarmed Task.
func New(clock timeutil.Clock, next NextFunc, fn func()) *Task {
	if clock == nil {
		clock = timeutil.System
	}
	return &Task{clock: clock, next: next, fn: fn}
}

// Start arms the task for next(now). Starting an armed task re-arms it.
func (t *Task) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gen++
	t.running = true
	t.armLocked(t.next(t.clock.Now()))
}

// Stop disarms the task. A run already in progress completes but does not
// re-arm.
func (t *Task) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gen++
	t.running = false
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.at = time.Time{}
}

// Next returns the instant the task is armed for.
func (t *Task) Next() (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.at, t.running
}

func (t *Task) armLocked(at time.Time) {
	if t.timer != nil {
		t.timer.Stop()
	}
	t.at = at
	gen := t.gen
	d := at.Sub(t.clock.Now())
	if d < 0 {
		d = 0
	}
	t.timer = t.clock.AfterFunc(d, func() { t.fire(gen) })
}

func (t *Task) fire(gen uint64) {
	t.mu.Lock()
	if gen != t.gen {
		t.mu.Unlock()
		return
	}
	at := t.at
	// Wall clock adjustments can wake the timer early; wait out the rest.
	if now := t.clock.Now(); now.Before(at) {
		t.armLocked(at)
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()

	t.fn()

	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.gen {
		return
	}
	from := t.clock.Now()
	if from.Before(at) {
		from = at
	}
	t.armLocked(t.next(from))
}
