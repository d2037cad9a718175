// Package filesink provides a renderer that writes presented frames as PNG
// files, for headless runs and debugging.
package filesink

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"path/filepath"

	"github.com/user/avplay/pkg/adapters/ggrenderer"
	"github.com/user/avplay/pkg/media"
	"github.com/user/avplay/pkg/ports"
)

// Option customises a Sink.
type Option func(*Sink)

// WithEvery writes only every n-th presented frame.
func WithEvery(n int) Option {
	return func(s *Sink) {
		if n > 0 {
			s.every = n
		}
	}
}

// Sink implements ports.Renderer by saving every composed surface.
type Sink struct {
	baseDir    string
	fs         ports.FileSystem
	compositor *ggrenderer.Compositor
	encoder    png.Encoder
	every      int
	presented  int
	written    int
}

// New creates a sink writing size-sized surfaces into baseDir.
func New(baseDir string, size media.Size, bg color.Color, fs ports.FileSystem, opts ...Option) *Sink {
	s := &Sink{
		baseDir:    baseDir,
		fs:         fs,
		compositor: ggrenderer.NewCompositor(size, bg),
		encoder:    png.Encoder{CompressionLevel: png.BestSpeed},
		every:      1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Present composes the frame and saves it as frame-NNNNNN.png.
func (s *Sink) Present(img image.Image, viewport media.Rect, status string) error {
	s.presented++
	if (s.presented-1)%s.every != 0 {
		return nil
	}
	if s.written == 0 {
		if err := s.fs.MkdirAll(s.baseDir); err != nil {
			return fmt.Errorf("create frame directory: %w", err)
		}
	}

	surface := s.compositor.Compose(img, viewport, status)
	var buf bytes.Buffer
	if err := s.encoder.Encode(&buf, surface); err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}

	path := filepath.Join(s.baseDir, fmt.Sprintf("frame-%06d.png", s.written))
	if err := s.fs.WriteFile(path, buf.Bytes()); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	s.written++
	return nil
}

// Size returns the fixed surface size.
func (s *Sink) Size() media.Size {
	return s.compositor.Size()
}

// Written returns how many files were saved.
func (s *Sink) Written() int {
	return s.written
}

// Close does nothing; every frame is already on disk.
func (s *Sink) Close() error {
	return nil
}

var _ ports.Renderer = (*Sink)(nil)
