package mocks

import (
	"image"
	"sync"

	"github.com/user/avplay/pkg/media"
	"github.com/user/avplay/pkg/ports"
)

// Scaler is a mock implementation of ports.Scaler that records the
// timestamp of every frame it scales.
type Scaler struct {
	mu  sync.Mutex
	pts []int64

	ScaleFunc func(frame *media.Frame, size media.Size) (image.Image, error)
}

func (m *Scaler) Scale(frame *media.Frame, size media.Size) (image.Image, error) {
	m.mu.Lock()
	m.pts = append(m.pts, frame.PTS)
	m.mu.Unlock()
	if m.ScaleFunc != nil {
		return m.ScaleFunc(frame, size)
	}
	return image.NewRGBA(image.Rect(0, 0, size.Width, size.Height)), nil
}

// ScaledPTS returns the timestamps of scaled frames in call order.
func (m *Scaler) ScaledPTS() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.pts...)
}

var _ ports.Scaler = (*Scaler)(nil)

// Renderer is a mock implementation of ports.Renderer.
type Renderer struct {
	mu        sync.Mutex
	size      media.Size
	presents  int
	viewports []media.Rect
	statuses  []string
	closed    bool

	PresentFunc func(img image.Image, viewport media.Rect, status string) error
	// OnPresent runs after every recorded Present, with the call count.
	OnPresent func(n int)
}

// NewRenderer creates a mock renderer of the given surface size.
func NewRenderer(width, height int) *Renderer {
	return &Renderer{size: media.Size{Width: width, Height: height}}
}

func (m *Renderer) Present(img image.Image, viewport media.Rect, status string) error {
	m.mu.Lock()
	m.presents++
	n := m.presents
	m.viewports = append(m.viewports, viewport)
	m.statuses = append(m.statuses, status)
	m.mu.Unlock()
	if m.OnPresent != nil {
		m.OnPresent(n)
	}
	if m.PresentFunc != nil {
		return m.PresentFunc(img, viewport, status)
	}
	return nil
}

func (m *Renderer) Size() media.Size {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.size
}

// Resize changes the reported surface size.
func (m *Renderer) Resize(width, height int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.size = media.Size{Width: width, Height: height}
}

func (m *Renderer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Presents returns the number of Present calls.
func (m *Renderer) Presents() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.presents
}

// Viewports returns the viewport of every Present call.
func (m *Renderer) Viewports() []media.Rect {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]media.Rect(nil), m.viewports...)
}

// Statuses returns the status line of every Present call.
func (m *Renderer) Statuses() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.statuses...)
}

// Closed reports whether Close was called.
func (m *Renderer) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

var _ ports.Renderer = (*Renderer)(nil)
