// tick.go - virtual CPU tick clock

package main

import (
	"sync/atomic"
	"time"
)

// tickInterval is the wall-clock period of one simulated tick: approximately
// every 10 ms. Workers and the generator decide when to act by counting
// ticks; wall-clock time elsewhere only paces polling loops and stamps
// human-facing timestamps.
const tickInterval = 10 * time.Millisecond

// Clock is a process-wide monotonic tick counter advanced by a single
// background goroutine. Readers call Now/ActiveTicks without ever
// acquiring a lock; the single writer uses sync/atomic the way
// machine_bus.go's sealed field does for its one-writer invariant.
type Clock struct {
	ticks atomic.Uint64
	activeTicks atomic.Uint64

	stop chan struct{}
	done chan struct{}
}

// NewClock creates a stopped clock; call Start to begin advancing it.
func NewClock() *Clock {
	return &Clock{}
}

// Start launches the background ticker goroutine. Safe to call once.
func (c *Clock) Start() {
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	go c.run()
}

func (c *Clock) run() {
	defer close(c.done)
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.ticks.Add(1)
		}
	}
}

// Stop halts the ticker and waits for the goroutine to exit.
func (c *Clock) Stop() {
	if c.stop == nil {
		return
	}
	close(c.stop)
	<-c.done
}

// Now returns the current tick count. May advance between two calls.
func (c *Clock) Now() uint64 {
	return c.ticks.Load()
}

// MarkActive records that a core issued one instruction on the current
// tick. Called by a worker, never by the tick goroutine itself — this is
// the "tick on which a worker actually issues an instruction" choice
// flags as an open question.
func (c *Clock) MarkActive() {
	c.activeTicks.Add(1)
}

// ActiveTicks returns the cumulative count, summed over cores, of ticks
// on which a core executed an instruction: two cores issuing on the
// same tick add two.
func (c *Clock) ActiveTicks() uint64 {
	return c.activeTicks.Load()
}

// IdleTicks derives idle_ticks = ticks - active_ticks.
func (c *Clock) IdleTicks() uint64 {
	total := c.Now()
	active := c.ActiveTicks()
	if active > total {
		return 0
	}
	return total - active
}
