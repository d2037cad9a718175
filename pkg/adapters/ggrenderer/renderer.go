// Package ggrenderer provides frame scaling with golang.org/x/image/draw and
// surface compositing with the gg library. Output adapters build on it.
package ggrenderer

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"

	"github.com/user/avplay/pkg/media"
	"github.com/user/avplay/pkg/ports"
)

// Scaling qualities accepted by NewScaler.
const (
	QualityNearest    = "nearest"
	QualityBilinear   = "bilinear"
	QualityCatmullRom = "catmullrom"
)

// Scaler implements ports.Scaler.
//
// The returned image is reused by the next Scale call, so it must be
// consumed before scaling another frame.
type Scaler struct {
	kernel draw.Interpolator
	dst    *image.RGBA
}

// NewScaler creates a scaler. An unknown quality falls back to bilinear.
func NewScaler(quality string) *Scaler {
	var kernel draw.Interpolator
	switch strings.ToLower(quality) {
	case QualityNearest:
		kernel = draw.NearestNeighbor
	case QualityCatmullRom:
		kernel = draw.CatmullRom
	default:
		kernel = draw.BiLinear
	}
	return &Scaler{kernel: kernel}
}

// Scale resizes the frame picture to size.
func (s *Scaler) Scale(frame *media.Frame, size media.Size) (image.Image, error) {
	if frame == nil || frame.Image == nil {
		return nil, fmt.Errorf("scale: frame has no picture")
	}
	if size.Empty() {
		return nil, fmt.Errorf("scale: empty target size %dx%d", size.Width, size.Height)
	}

	src := frame.Image
	if src.Bounds().Dx() == size.Width && src.Bounds().Dy() == size.Height {
		return src, nil
	}

	if s.dst == nil || s.dst.Bounds().Dx() != size.Width || s.dst.Bounds().Dy() != size.Height {
		s.dst = image.NewRGBA(image.Rect(0, 0, size.Width, size.Height))
	}
	s.kernel.Scale(s.dst, s.dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return s.dst, nil
}

var _ ports.Scaler = (*Scaler)(nil)

// Compositor draws presented pictures onto a surface of fixed size: the
// background, the picture at its viewport and an optional status bar.
type Compositor struct {
	dc   *gg.Context
	size media.Size
	bg   color.Color
	fg   color.Color
	bar  color.Color
}

// NewCompositor creates a compositor for a surface of the given size.
func NewCompositor(size media.Size, bg color.Color) *Compositor {
	c := &Compositor{
		bg:  bg,
		fg:  color.RGBA{R: 0xee, G: 0xe8, B: 0xd5, A: 0xff},
		bar: color.RGBA{A: 0xa0},
	}
	c.Resize(size)
	return c
}

// Resize changes the surface size. The next Compose draws from scratch.
func (c *Compositor) Resize(size media.Size) {
	if size == c.size && c.dc != nil {
		return
	}
	c.size = size
	c.dc = gg.NewContext(max(size.Width, 1), max(size.Height, 1))
}

// Size returns the surface size.
func (c *Compositor) Size() media.Size {
	return c.size
}

// Compose clears the surface, draws img into viewport and overlays status.
// The returned image is the surface itself and changes on the next call.
func (c *Compositor) Compose(img image.Image, viewport media.Rect, status string) *image.RGBA {
	dc := c.dc
	dc.SetColor(c.bg)
	dc.Clear()

	if img != nil && viewport.Width > 0 && viewport.Height > 0 {
		bounds := img.Bounds()
		if bounds.Dx() == viewport.Width && bounds.Dy() == viewport.Height {
			dc.DrawImage(img, viewport.X, viewport.Y)
		} else if bounds.Dx() > 0 && bounds.Dy() > 0 {
			dc.Push()
			dc.Translate(float64(viewport.X), float64(viewport.Y))
			dc.Scale(float64(viewport.Width)/float64(bounds.Dx()), float64(viewport.Height)/float64(bounds.Dy()))
			dc.DrawImage(img, 0, 0)
			dc.Pop()
		}
	}

	if status != "" {
		c.drawStatus(status)
	}

	if rgba, ok := dc.Image().(*image.RGBA); ok {
		return rgba
	}
	out := image.NewRGBA(dc.Image().Bounds())
	draw.Draw(out, out.Bounds(), dc.Image(), image.Point{}, draw.Src)
	return out
}

func (c *Compositor) drawStatus(status string) {
	dc := c.dc
	h := float64(c.size.Height)
	lineHeight := dc.FontHeight() + 8
	if lineHeight > h {
		return
	}

	dc.SetColor(c.bar)
	dc.DrawRectangle(0, h-lineHeight, float64(c.size.Width), lineHeight)
	dc.Fill()

	dc.SetColor(c.fg)
	dc.DrawStringAnchored(status, 8, h-lineHeight/2, 0, 0.35)
}
