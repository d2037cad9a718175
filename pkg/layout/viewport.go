// Package layout computes where video is drawn inside the output surface.
package layout

import "github.com/user/avplay/pkg/media"

// Ratio is a display aspect ratio.
type Ratio struct {
	Num int
	Den int
}

// Valid reports whether both terms are positive.
func (r Ratio) Valid() bool {
	return r.Num > 0 && r.Den > 0
}

// AspectOf returns the aspect ratio of square-pixel video of size s,
// reduced to lowest terms.
func AspectOf(s media.Size) Ratio {
	if s.Empty() {
		return Ratio{Num: 1, Den: 1}
	}
	g := gcd(s.Width, s.Height)
	return Ratio{Num: s.Width / g, Den: s.Height / g}
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// Input holds the parameters of a viewport computation.
type Input struct {
	Window media.Size
	Aspect Ratio
}

// ComputeViewport fits a rectangle of the given aspect ratio into the
// window, as large as possible and centred, leaving bars on the sides or
// at the top and bottom.
//
//	width  = min(height * num / den, window width)
//	height = min(width * den / num, window height)
func ComputeViewport(input Input) media.Rect {
	w, h := input.Window.Width, input.Window.Height
	if w <= 0 || h <= 0 {
		return media.Rect{}
	}
	aspect := input.Aspect
	if !aspect.Valid() {
		aspect = Ratio{Num: w, Den: h}
	}

	vw := min(h*aspect.Num/aspect.Den, w)
	vh := min(w*aspect.Den/aspect.Num, h)
	return media.Rect{
		X:      (w - vw) / 2,
		Y:      (h - vh) / 2,
		Width:  vw,
		Height: vh,
	}
}
