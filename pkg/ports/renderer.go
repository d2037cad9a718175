package ports

import (
	"image"

	"github.com/user/avplay/pkg/media"
)

// Scaler converts decoded video frames to the size the renderer presents.
type Scaler interface {
	// Scale returns the frame picture resized to size.
	Scale(frame *media.Frame, size media.Size) (image.Image, error)
}

// Renderer presents pictures on the output surface.
// All methods are called from the controller goroutine only.
type Renderer interface {
	// Present draws img into viewport on a cleared surface and shows it.
	// status is a short overlay line; empty means no overlay.
	Present(img image.Image, viewport media.Rect, status string) error

	// Size returns the current surface size. A change between calls is
	// treated as a resize.
	Size() media.Size

	// Close restores the output surface.
	Close() error
}
