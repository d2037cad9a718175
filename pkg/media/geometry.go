package media

// Size is a width/height pair in pixels.
type Size struct {
	Width  int
	Height int
}

// Empty reports whether the size has no area.
func (s Size) Empty() bool {
	return s.Width <= 0 || s.Height <= 0
}

// Rect is a positioned rectangle in pixels.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Size returns the rectangle dimensions.
func (r Rect) Size() Size {
	return Size{Width: r.Width, Height: r.Height}
}

// StreamInfo describes the playable streams of an opened source.
type StreamInfo struct {
	HasVideo   bool
	VideoCodec string
	VideoSize  Size

	HasAudio    bool
	AudioCodec  string
	AudioFormat AudioFormat

	// DurationMs is zero when unknown.
	DurationMs int64
}
