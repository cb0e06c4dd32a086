package state

import "sync/atomic"

// LamportClock orders the snapshots this site publishes. Remote stamps only
// push it forward; they never cause a snapshot to be rejected.
type LamportClock struct {
	counter atomic.Uint64
}

// Tick advances the clock for a local event.
func (c *LamportClock) Tick() uint64 {
	return c.counter.Add(1)
}

// Observe moves the clock past a received timestamp.
func (c *LamportClock) Observe(remote uint64) {
	for {
		cur := c.counter.Load()
		if remote <= cur || c.counter.CompareAndSwap(cur, remote) {
			return
		}
	}
}

// Now returns the current value without advancing.
func (c *LamportClock) Now() uint64 {
	return c.counter.Load()
}
