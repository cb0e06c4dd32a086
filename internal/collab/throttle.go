package collab

import (
	"sync"
	"time"
)

// Clock schedules callbacks. RealClock uses the time package; tests use a
// manual clock.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending callback.
type Timer interface {
	Stop() bool
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Throttle passes values to fn at most once per interval. A value pushed
// after a quiet interval goes out at once; values pushed inside the window
// are coalesced and the latest goes out when the window closes, so the
// final state is never lost.
type Throttle[T any] struct {
	mu       sync.Mutex
	clock    Clock
	interval time.Duration
	fn       func(T)

	last    time.Time
	pending T
	has     bool
	timer   Timer
}

func NewThrottle[T any](interval time.Duration, clock Clock, fn func(T)) *Throttle[T] {
	if clock == nil {
		clock = RealClock{}
	}
	return &Throttle[T]{clock: clock, interval: interval, fn: fn}
}

// Push offers v for delivery.
func (t *Throttle[T]) Push(v T) {
	t.mu.Lock()
	now := t.clock.Now()
	if t.timer == nil && (t.last.IsZero() || now.Sub(t.last) >= t.interval) {
		t.last = now
		t.mu.Unlock()
		t.fn(v)
		return
	}
	t.pending, t.has = v, true
	if t.timer == nil {
		t.timer = t.clock.AfterFunc(t.interval-now.Sub(t.last), t.fire)
	}
	t.mu.Unlock()
}

func (t *Throttle[T]) fire() {
	t.mu.Lock()
	t.timer = nil
	v, ok := t.take()
	if ok {
		t.last = t.clock.Now()
	}
	t.mu.Unlock()
	if ok {
		t.fn(v)
	}
}

func (t *Throttle[T]) take() (T, bool) {
	var zero T
	v, ok := t.pending, t.has
	t.pending, t.has = zero, false
	return v, ok
}

// Flush delivers a coalesced value now instead of at the end of the
// window.
func (t *Throttle[T]) Flush() {
	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	v, ok := t.take()
	if ok {
		t.last = t.clock.Now()
	}
	t.mu.Unlock()
	if ok {
		t.fn(v)
	}
}

// Stop drops any coalesced value.
func (t *Throttle[T]) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.take()
}

// Debounce passes the latest value to fn once no value has been pushed for
// delay.
type Debounce[T any] struct {
	mu    sync.Mutex
	clock Clock
	delay time.Duration
	fn    func(T)

	pending T
	has     bool
	timer   Timer
	gen     uint64
}

func NewDebounce[T any](delay time.Duration, clock Clock, fn func(T)) *Debounce[T] {
	if clock == nil {
		clock = RealClock{}
	}
	return &Debounce[T]{clock: clock, delay: delay, fn: fn}
}

// Push restarts the quiet period with v as the value to deliver.
func (d *Debounce[T]) Push(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending, d.has = v, true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = d.clock.AfterFunc(d.delay, func() { d.fire(gen) })
}

func (d *Debounce[T]) fire(gen uint64) {
	d.mu.Lock()
	// a timer that lost the race with Stop is stale
	if gen != d.gen || !d.has {
		d.mu.Unlock()
		return
	}
	v := d.pending
	var zero T
	d.pending, d.has, d.timer = zero, false, nil
	d.mu.Unlock()
	d.fn(v)
}

// Flush delivers the pending value now.
func (d *Debounce[T]) Flush() {
	d.mu.Lock()
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	v, ok := d.pending, d.has
	var zero T
	d.pending, d.has = zero, false
	d.mu.Unlock()
	if ok {
		d.fn(v)
	}
}

// Pending reports whether a value is waiting.
func (d *Debounce[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.has
}
