// Package termrenderer presents video in a terminal with 24-bit ANSI colors.
// Every character cell shows two pixels stacked vertically using the upper
// half block, so the surface is as wide as the terminal and twice as tall
// as the rows above the status line.
package termrenderer

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"strconv"

	"golang.org/x/term"

	"github.com/user/avplay/pkg/adapters/ggrenderer"
	"github.com/user/avplay/pkg/media"
	"github.com/user/avplay/pkg/ports"
)

const (
	enterScreen = "\x1b[?1049h\x1b[?25l"
	leaveScreen = "\x1b[0m\x1b[?25h\x1b[?1049l"
	home        = "\x1b[H"
	reset       = "\x1b[0m"
	clearLine   = "\x1b[K"
	upperHalf   = "▀"
)

// DefaultSize is used when the terminal size cannot be queried.
var DefaultSize = media.Size{Width: 80, Height: 24}

// SizeFunc reports the terminal size in character cells.
type SizeFunc func() (cols, rows int, err error)

// Renderer implements ports.Renderer on an ANSI terminal.
type Renderer struct {
	out        *bufio.Writer
	cells      SizeFunc
	compositor *ggrenderer.Compositor
	started    bool
	closed     bool
}

// New creates a renderer writing to f, sized from the terminal behind f.
func New(f *os.File, bg color.Color) *Renderer {
	fd := int(f.Fd())
	return NewWithWriter(f, func() (int, int, error) { return term.GetSize(fd) }, bg)
}

// NewWithWriter creates a renderer writing to w with an explicit size source.
func NewWithWriter(w io.Writer, cells SizeFunc, bg color.Color) *Renderer {
	r := &Renderer{
		out:   bufio.NewWriterSize(w, 64*1024),
		cells: cells,
	}
	r.compositor = ggrenderer.NewCompositor(r.Size(), bg)
	return r
}

// Size returns the pixel surface size: one pixel per column and two per
// row, with the last row kept for the status line.
func (r *Renderer) Size() media.Size {
	cols, rows, err := r.cells()
	if err != nil || cols <= 0 || rows <= 1 {
		cols, rows = DefaultSize.Width, DefaultSize.Height
	}
	return media.Size{Width: cols, Height: (rows - 1) * 2}
}

// Present draws img into viewport and writes the whole surface.
func (r *Renderer) Present(img image.Image, viewport media.Rect, status string) error {
	if r.closed {
		return fmt.Errorf("termrenderer: renderer is closed")
	}
	if !r.started {
		r.out.WriteString(enterScreen)
		r.started = true
	}

	r.compositor.Resize(r.Size())
	surface := r.compositor.Compose(img, viewport, "")

	r.out.WriteString(home)
	writeHalfBlocks(r.out, surface)
	r.out.WriteString(reset)
	r.out.WriteString(status)
	r.out.WriteString(clearLine)
	if err := r.out.Flush(); err != nil {
		return fmt.Errorf("termrenderer: write frame: %w", err)
	}
	return nil
}

// Close restores the terminal screen.
func (r *Renderer) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if !r.started {
		return nil
	}
	r.out.WriteString(leaveScreen)
	return r.out.Flush()
}

// writeHalfBlocks emits two pixel rows per line. Escape codes are only
// written when a cell color differs from the previous cell.
func writeHalfBlocks(w *bufio.Writer, img *image.RGBA) {
	b := img.Bounds()
	var fg, bg color.RGBA
	first := true
	for y := b.Min.Y; y+1 < b.Max.Y; y += 2 {
		for x := b.Min.X; x < b.Max.X; x++ {
			top := img.RGBAAt(x, y)
			bottom := img.RGBAAt(x, y+1)
			if first || top != fg {
				writeColor(w, 38, top)
				fg = top
			}
			if first || bottom != bg {
				writeColor(w, 48, bottom)
				bg = bottom
			}
			first = false
			w.WriteString(upperHalf)
		}
		w.WriteString(reset)
		w.WriteString("\r\n")
		first = true
	}
}

func writeColor(w *bufio.Writer, layer int, c color.RGBA) {
	var buf [24]byte
	b := append(buf[:0], "\x1b["...)
	b = strconv.AppendInt(b, int64(layer), 10)
	b = append(b, ";2;"...)
	b = strconv.AppendInt(b, int64(c.R), 10)
	b = append(b, ';')
	b = strconv.AppendInt(b, int64(c.G), 10)
	b = append(b, ';')
	b = strconv.AppendInt(b, int64(c.B), 10)
	b = append(b, 'm')
	w.Write(b)
}

var _ ports.Renderer = (*Renderer)(nil)
