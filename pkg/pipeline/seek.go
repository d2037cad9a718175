package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/user/avplay/pkg/framequeue"
)

// SeekRequest is an absolute seek target in milliseconds.
type SeekRequest struct {
	TargetMs int64
	// Backward asks the source to position at or before the target.
	Backward bool
}

// SeekCoordinator implements the request/acknowledge handshake between the
// controller, which asks for seeks, and the decode worker, which runs them.
type SeekCoordinator struct {
	mu      sync.Mutex
	ack     *framequeue.Cond
	pending bool
	req     SeekRequest

	// pendingFlag mirrors pending for lock-free polling by blocked enqueues.
	pendingFlag atomic.Bool
	epoch       atomic.Uint64

	done *atomic.Bool
	poll time.Duration
}

func newSeekCoordinator(done *atomic.Bool, poll time.Duration) *SeekCoordinator {
	c := &SeekCoordinator{done: done, poll: poll}
	c.ack = framequeue.NewCond(&c.mu)
	return c
}

// Request posts req and blocks until the worker acknowledges it.
//
// The wait is split into polling intervals. After each one the shutdown flag
// and ctx are checked, and Request returns false as soon as either fires, so
// a request racing with worker exit never hangs.
func (c *SeekCoordinator) Request(ctx context.Context, req SeekRequest) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.done.Load() {
		return false
	}

	c.req = req
	c.pending = true
	c.pendingFlag.Store(true)

	for c.pending {
		c.ack.WaitTimeout(c.poll)
		if c.done.Load() || ctx.Err() != nil {
			return false
		}
	}
	return true
}

// Serve runs fn for the pending request, if any, while holding the
// coordinator lock, then clears the request and wakes the requester.
// It reports whether a request was served.
func (c *SeekCoordinator) Serve(fn func(SeekRequest)) bool {
	if !c.pendingFlag.Load() {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.pending {
		return false
	}
	c.epoch.Add(1)
	fn(c.req)
	c.epoch.Add(1)
	c.pending = false
	c.pendingFlag.Store(false)
	c.ack.Broadcast()
	return true
}

// Pending reports whether a request is waiting to be served.
func (c *SeekCoordinator) Pending() bool {
	return c.pendingFlag.Load()
}

// Epoch advances twice per served request: once before the worker starts
// flushing and once after it is done, so it is odd while a seek is being
// executed. Consumers holding data across calls compare epochs to detect
// that a seek happened in between.
func (c *SeekCoordinator) Epoch() uint64 {
	return c.epoch.Load()
}

// Wake rouses a blocked requester so it re-checks the shutdown flag.
func (c *SeekCoordinator) Wake() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ack.Broadcast()
}
