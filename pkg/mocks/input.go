package mocks

import (
	"sync"

	"github.com/user/avplay/pkg/ports"
)

// Input is a mock implementation of ports.Input fed by Push.
type Input struct {
	mu     sync.Mutex
	events []ports.Event
	closed bool
}

// NewInput creates an input that will deliver events in order.
func NewInput(events ...ports.Event) *Input {
	return &Input{events: events}
}

// Push queues more events.
func (m *Input) Push(events ...ports.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
}

func (m *Input) Poll() (ports.Event, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.events) == 0 {
		return ports.Event{}, false
	}
	ev := m.events[0]
	m.events = m.events[1:]
	return ev, true
}

func (m *Input) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *Input) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

var _ ports.Input = (*Input)(nil)
