package audiofeed

// DefaultCarryCapacity is the initial size of the carry buffer.
const DefaultCarryCapacity = 32 * 1024

// carryBuffer holds the tail of the last converted chunk that did not fit
// into a device request. Invariant: 0 <= cursor <= valid <= len(buf).
type carryBuffer struct {
	buf    []byte
	cursor int
	valid  int
}

func newCarryBuffer(capacity int) carryBuffer {
	if capacity <= 0 {
		capacity = DefaultCarryCapacity
	}
	return carryBuffer{buf: make([]byte, capacity)}
}

func (c *carryBuffer) remaining() int {
	return c.valid - c.cursor
}

// read copies as much buffered data into out as fits and advances the cursor.
func (c *carryBuffer) read(out []byte) int {
	n := copy(out, c.buf[c.cursor:c.valid])
	c.cursor += n
	return n
}

// store replaces the buffered data with p. It must only be called once the
// previous contents were fully read, so the buffer never holds more than one
// chunk's leftover. It reports whether the buffer had to grow.
func (c *carryBuffer) store(p []byte) bool {
	grew := false
	if len(p) > len(c.buf) {
		c.buf = make([]byte, len(p))
		grew = true
	}
	c.valid = copy(c.buf, p)
	c.cursor = 0
	return grew
}

func (c *carryBuffer) reset() {
	c.cursor = 0
	c.valid = 0
}
