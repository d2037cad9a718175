// Package terminput reads player commands from a terminal in raw mode.
package terminput

import (
	"bytes"
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"github.com/user/avplay/pkg/ports"
)

// Keymap holds the seek offsets bound to the arrow keys.
type Keymap struct {
	// Step is the left/right arrow offset.
	Step time.Duration
	// LongStep is the down/up arrow offset.
	LongStep time.Duration
}

// escapeTimeout is how long an incomplete escape sequence waits for the rest
// of its bytes before it counts as a lone ESC.
const escapeTimeout = 50 * time.Millisecond

// DefaultKeymap returns the stock offsets: 5 s and 60 s.
func DefaultKeymap() Keymap {
	return Keymap{Step: 5 * time.Second, LongStep: 60 * time.Second}
}

// Input implements ports.Input. A reader goroutine decodes key presses into
// a buffered channel; Poll never blocks.
type Input struct {
	events chan ports.Event

	fd      int
	state   *term.State
	closeMu sync.Mutex
	closed  bool
	done    chan struct{}
}

// New puts f into raw mode when it is a terminal and starts reading keys.
// Without a terminal, keys are still read from f as plain bytes.
func New(f *os.File, keys Keymap) (*Input, error) {
	fd := int(f.Fd())
	var state *term.State
	if isatty.IsTerminal(f.Fd()) {
		s, err := term.MakeRaw(fd)
		if err != nil {
			return nil, err
		}
		state = s
	}
	in := newInput(f, keys)
	in.fd = fd
	in.state = state
	return in, nil
}

// NewFromReader reads keys from r. It is used for tests and piped control.
func NewFromReader(r io.Reader, keys Keymap) *Input {
	return newInput(r, keys)
}

func newInput(r io.Reader, keys Keymap) *Input {
	in := &Input{
		events: make(chan ports.Event, 32),
		done:   make(chan struct{}),
	}
	chunks := make(chan []byte, 8)
	go in.read(r, chunks)
	go in.decode(chunks, keys)
	return in
}

func (in *Input) read(r io.Reader, chunks chan<- []byte) {
	defer close(chunks)
	buf := make([]byte, 64)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunks <- bytes.Clone(buf[:n])
		}
		if err != nil {
			return
		}
	}
}

// decode turns chunks into events. An escape sequence split across reads is
// held back until its remaining bytes arrive or escapeTimeout passes.
func (in *Input) decode(chunks <-chan []byte, keys Keymap) {
	defer close(in.done)
	var pending []byte
	var timeout <-chan time.Time
	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				in.emit(Parse(pending, keys))
				return
			}
			events, rest := parse(append(pending, chunk...), keys)
			in.emit(events)
			pending = bytes.Clone(rest)
			timeout = nil
			if len(pending) > 0 {
				timeout = time.After(escapeTimeout)
			}
		case <-timeout:
			in.emit(Parse(pending, keys))
			pending, timeout = nil, nil
		}
	}
}

func (in *Input) emit(events []ports.Event) {
	for _, ev := range events {
		select {
		case in.events <- ev:
		default:
			// Dropped when the controller is not keeping up.
		}
	}
}

// Poll returns the next pending event without blocking.
func (in *Input) Poll() (ports.Event, bool) {
	select {
	case ev := <-in.events:
		return ev, true
	default:
		return ports.Event{}, false
	}
}

// Close restores the terminal state. The reader goroutine ends with the
// process or at end of input.
func (in *Input) Close() error {
	in.closeMu.Lock()
	defer in.closeMu.Unlock()
	if in.closed {
		return nil
	}
	in.closed = true
	if in.state != nil {
		return term.Restore(in.fd, in.state)
	}
	return nil
}

// Parse decodes a chunk of terminal input into events.
//
//	space, p       toggle pause
//	left, right    seek by -Step, +Step
//	down, up       seek by -LongStep, +LongStep
//	9, 0           volume down, up
//	m              toggle mute
//	q, ESC, Ctrl-C quit
//
// ESC followed by '[' or 'O' starts an escape sequence; a lone ESC, also at
// the end of data, is a key press. Unknown keys and sequences are ignored.
func Parse(data []byte, keys Keymap) []ports.Event {
	events, rest := parse(data, keys)
	if len(rest) > 0 {
		events = append(events, ports.Event{Type: ports.EventQuit})
	}
	return events
}

// parse is Parse for a chunk that may end inside an escape sequence. The
// unfinished sequence is returned as rest.
func parse(data []byte, keys Keymap) (events []ports.Event, rest []byte) {
	for i := 0; i < len(data); i++ {
		switch data[i] {
		case ' ', 'p', 'P':
			events = append(events, ports.Event{Type: ports.EventTogglePause})
		case 'q', 'Q', 0x03:
			events = append(events, ports.Event{Type: ports.EventQuit})
		case 'm', 'M':
			events = append(events, ports.Event{Type: ports.EventToggleMute})
		case '9':
			events = append(events, ports.Event{Type: ports.EventVolume, Steps: -1})
		case '0':
			events = append(events, ports.Event{Type: ports.EventVolume, Steps: 1})
		case 0x1b:
			if i+1 == len(data) {
				return events, data[i:]
			}
			if data[i+1] != '[' && data[i+1] != 'O' {
				events = append(events, ports.Event{Type: ports.EventQuit})
				continue
			}
			if i+2 == len(data) {
				return events, data[i:]
			}
			if ev, ok := arrow(data[i+2], keys); ok {
				events = append(events, ev)
			}
			i += 2
		}
	}
	return events, nil
}

func arrow(code byte, keys Keymap) (ports.Event, bool) {
	var offset time.Duration
	switch code {
	case 'C':
		offset = keys.Step
	case 'D':
		offset = -keys.Step
	case 'A':
		offset = keys.LongStep
	case 'B':
		offset = -keys.LongStep
	default:
		return ports.Event{}, false
	}
	return ports.Event{Type: ports.EventSeek, SeekMs: offset.Milliseconds()}, true
}

var _ ports.Input = (*Input)(nil)
