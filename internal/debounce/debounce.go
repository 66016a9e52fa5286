// Package debounce commits the last value pushed to it once input has been
// quiet for a fixed delay.
//
// A Debouncer is a two-state machine: idle, or pending with a value and a
// deadline. Each Push enters or re-enters pending and moves the deadline;
// the commit callback runs only when the deadline passes without another Push.
package debounce

import (
	"sync"
	"time"

	"github.com/bep/debounce"
)

type State int

const (
	Idle State = iota
	Pending
)

func (s State) String() string {
	if s == Pending {
		return "pending"
	}
	return "idle"
}

type Debouncer[T any] struct {
	delay    time.Duration
	commit   func(T)
	schedule func(func())
	now      func() time.Time

	mu       sync.Mutex
	state    State
	value    T
	deadline time.Time
	gen      uint64
}

// New returns a Debouncer that calls commit with the settled value after
// delay of quiescence. commit runs on a timer goroutine.
func New[T any](delay time.Duration, commit func(T)) *Debouncer[T] {
	return &Debouncer[T]{
		delay:    delay,
		commit:   commit,
		schedule: debounce.New(delay),
		now:      time.Now,
	}
}

// Push records v as the pending value and restarts the quiet period.
func (d *Debouncer[T]) Push(v T) {
	d.mu.Lock()
	d.state = Pending
	d.value = v
	d.deadline = d.now().Add(d.delay)
	d.gen++
	gen := d.gen
	d.mu.Unlock()

	d.schedule(func() { d.fire(gen) })
}

func (d *Debouncer[T]) fire(gen uint64) {
	d.mu.Lock()
	// A Cancel, Flush or later Push since scheduling wins
	if d.state != Pending || d.gen != gen {
		d.mu.Unlock()
		return
	}
	v := d.value
	d.reset()
	d.mu.Unlock()

	d.commit(v)
}

// Flush commits the pending value immediately. It reports whether there was
// one.
func (d *Debouncer[T]) Flush() bool {
	d.mu.Lock()
	if d.state != Pending {
		d.mu.Unlock()
		return false
	}
	v := d.value
	d.reset()
	d.gen++
	d.mu.Unlock()

	d.commit(v)
	return true
}

// Cancel drops the pending value without committing it.
func (d *Debouncer[T]) Cancel() {
	d.mu.Lock()
	d.reset()
	d.gen++
	d.mu.Unlock()
}

// Pending returns the pending value and its deadline, if any.
func (d *Debouncer[T]) Pending() (value T, deadline time.Time, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != Pending {
		var zero T
		return zero, time.Time{}, false
	}
	return d.value, d.deadline, true
}

func (d *Debouncer[T]) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Debouncer[T]) Delay() time.Duration {
	return d.delay
}

// reset must be called with mu held.
func (d *Debouncer[T]) reset() {
	var zero T
	d.state = Idle
	d.value = zero
	d.deadline = time.Time{}
}
