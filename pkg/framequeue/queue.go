// Package framequeue provides the bounded ring buffer that carries decoded
// frames from the decode worker to its consumers.
package framequeue

import (
	"sync"
	"time"

	"github.com/user/avplay/pkg/media"
)

const (
	// DefaultCapacity is the number of frames buffered per stream.
	DefaultCapacity = 8

	// DefaultWaitTimeout bounds every blocking wait so cancellation flags are
	// re-checked at least this often.
	DefaultWaitTimeout = 16 * time.Millisecond
)

// Option configures a Queue.
type Option func(*Queue)

// WithWaitTimeout overrides the polling interval of blocking waits.
func WithWaitTimeout(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.waitTimeout = d
		}
	}
}

// Queue is a fixed-capacity FIFO of frame handles.
//
// The queue owns every frame it holds. Frames leave it either through a
// dequeue, which transfers ownership to the caller, or through Flush, which
// releases them.
type Queue struct {
	mu       sync.Mutex
	notFull  *Cond
	notEmpty *Cond

	slots   []*media.Frame
	fillPtr int
	usePtr  int
	count   int

	waitTimeout time.Duration
}

// New creates a queue holding up to capacity frames.
func New(capacity int, opts ...Option) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	q := &Queue{
		slots:       make([]*media.Frame, capacity),
		waitTimeout: DefaultWaitTimeout,
	}
	q.notFull = NewCond(&q.mu)
	q.notEmpty = NewCond(&q.mu)
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue appends f, waiting while the queue is full.
//
// abort is polled after every bounded wait. When it reports true the frame
// is released and Enqueue returns false without queueing it. A nil abort
// never cancels.
func (q *Queue) Enqueue(f *media.Frame, abort func() bool) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.count == len(q.slots) {
		if abort != nil && abort() {
			f.Release()
			return false
		}
		q.notFull.WaitTimeout(q.waitTimeout)
	}

	q.slots[q.fillPtr] = f
	q.fillPtr = (q.fillPtr + 1) % len(q.slots)
	q.count++
	q.notEmpty.Broadcast()
	return true
}

// TryDequeue removes the oldest frame without blocking.
func (q *Queue) TryDequeue() (*media.Frame, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		return nil, false
	}
	return q.take(), true
}

// DequeueWait removes the oldest frame, waiting up to timeout for one to
// arrive. The wait is split into polling intervals.
func (q *Queue) DequeueWait(timeout time.Duration) (*media.Frame, bool) {
	deadline := time.Now().Add(timeout)

	q.mu.Lock()
	defer q.mu.Unlock()

	for q.count == 0 {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, false
		}
		q.notEmpty.WaitTimeout(min(remaining, q.waitTimeout))
	}
	return q.take(), true
}

// take reads the frame at usePtr. Caller holds q.mu and has checked count.
func (q *Queue) take() *media.Frame {
	f := q.slots[q.usePtr]
	q.slots[q.usePtr] = nil
	q.usePtr = (q.usePtr + 1) % len(q.slots)
	q.count--
	q.notFull.Broadcast()
	return f
}

// Flush releases every buffered frame and resets the queue to empty.
// It returns the number of frames released.
//
// Flush always takes the queue lock, so it is safe while a producer is
// blocked in Enqueue or a consumer is polling.
func (q *Queue) Flush() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	released := 0
	for q.count > 0 {
		q.take().Release()
		released++
	}
	q.fillPtr = 0
	q.usePtr = 0
	return released
}

// Len returns the number of buffered frames.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Cap returns the queue capacity.
func (q *Queue) Cap() int {
	return len(q.slots)
}

// positions exposes the ring pointers to tests.
func (q *Queue) positions() (fill, use int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.fillPtr, q.usePtr
}
