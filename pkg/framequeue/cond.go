package framequeue

import (
	"sync"
	"time"
)

// Cond is a condition variable whose waits are bounded by a timeout.
//
// sync.Cond has no timed wait, so waiters select on a channel that
// Broadcast closes and replaces. The associated lock must be held when
// calling Broadcast and WaitTimeout.
type Cond struct {
	L  sync.Locker
	ch chan struct{}
}

// NewCond creates a condition bound to l.
func NewCond(l sync.Locker) *Cond {
	return &Cond{L: l, ch: make(chan struct{})}
}

// Broadcast wakes every goroutine waiting on c.
func (c *Cond) Broadcast() {
	close(c.ch)
	c.ch = make(chan struct{})
}

// WaitTimeout unlocks c.L, waits for a Broadcast or for d to elapse, then
// relocks c.L. It reports false on timeout. As with sync.Cond, callers must
// re-check their predicate in a loop.
func (c *Cond) WaitTimeout(d time.Duration) bool {
	ch := c.ch
	c.L.Unlock()
	defer c.L.Lock()

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ch:
		return true
	case <-timer.C:
		return false
	}
}
