package termrenderer

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/user/avplay/pkg/media"
)

var background = color.RGBA{R: 0x00, G: 0x2b, B: 0x36, A: 0xff}

func fixedSize(cols, rows int) SizeFunc {
	return func() (int, int, error) { return cols, rows, nil }
}

func TestRenderer_Size(t *testing.T) {
	r := NewWithWriter(&bytes.Buffer{}, fixedSize(100, 31), background)
	if got := r.Size(); got != (media.Size{Width: 100, Height: 60}) {
		t.Errorf("Size() = %v, want 100x60", got)
	}
}

func TestRenderer_SizeFallback(t *testing.T) {
	r := NewWithWriter(&bytes.Buffer{}, func() (int, int, error) {
		return 0, 0, errors.New("not a terminal")
	}, background)
	want := media.Size{Width: DefaultSize.Width, Height: (DefaultSize.Height - 1) * 2}
	if got := r.Size(); got != want {
		t.Errorf("Size() = %v, want %v", got, want)
	}
}

func TestRenderer_Present(t *testing.T) {
	var out bytes.Buffer
	r := NewWithWriter(&out, fixedSize(4, 3), background)

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	if err := r.Present(img, media.Rect{Width: 4, Height: 4}, "00:01"); err != nil {
		t.Fatalf("Present failed: %v", err)
	}

	s := out.String()
	if !strings.HasPrefix(s, enterScreen) {
		t.Error("expected the alternate screen to be entered")
	}
	if got := strings.Count(s, upperHalf); got != 8 {
		t.Errorf("wrote %d cells, want 8", got)
	}
	if !strings.Contains(s, "\x1b[38;2;255;0;0m") {
		t.Error("expected a red foreground escape")
	}
	// Consecutive identical cells share one escape per layer and row.
	if got := strings.Count(s, "\x1b[38;2;255;0;0m"); got != 2 {
		t.Errorf("red foreground written %d times, want 2", got)
	}
	if !strings.Contains(s, "00:01"+clearLine) {
		t.Error("expected the status line")
	}
}

func TestRenderer_CloseRestoresScreen(t *testing.T) {
	var out bytes.Buffer
	r := NewWithWriter(&out, fixedSize(2, 2), background)
	if err := r.Present(nil, media.Rect{}, ""); err != nil {
		t.Fatalf("Present failed: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !strings.HasSuffix(out.String(), leaveScreen) {
		t.Error("expected the terminal to be restored")
	}
	if err := r.Present(nil, media.Rect{}, ""); err == nil {
		t.Error("expected Present after Close to fail")
	}
}

func TestRenderer_CloseWithoutPresent(t *testing.T) {
	var out bytes.Buffer
	r := NewWithWriter(&out, fixedSize(2, 2), background)
	if err := r.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("wrote %q without presenting", out.String())
	}
}
