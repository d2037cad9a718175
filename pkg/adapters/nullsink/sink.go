// Package nullsink provides a renderer that discards every frame.
package nullsink

import (
	"image"

	"github.com/user/avplay/pkg/media"
	"github.com/user/avplay/pkg/ports"
)

// Sink is a no-op implementation of ports.Renderer.
// It reports a fixed surface size and discards all output.
type Sink struct {
	size     media.Size
	presents int
}

// New creates a new NullSink with the given surface size.
func New(size media.Size) *Sink {
	return &Sink{size: size}
}

// Present counts the frame and discards it.
func (s *Sink) Present(img image.Image, viewport media.Rect, status string) error {
	s.presents++
	return nil
}

// Size returns the fixed surface size.
func (s *Sink) Size() media.Size {
	return s.size
}

// Presents returns how many frames were discarded.
func (s *Sink) Presents() int {
	return s.presents
}

// Close does nothing.
func (s *Sink) Close() error {
	return nil
}

// Ensure Sink implements ports.Renderer
var _ ports.Renderer = (*Sink)(nil)
