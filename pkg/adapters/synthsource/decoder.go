package synthsource

import (
	"encoding/binary"
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/user/avplay/pkg/media"
	"github.com/user/avplay/pkg/ports"
)

// slotDecoder holds at most one packet between Send and Receive.
type slotDecoder struct {
	mu      sync.Mutex
	slot    *media.Packet
	drained bool
}

func (d *slotDecoder) send(pkt media.Packet) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.slot != nil {
		return ports.ErrDecoderBusy
	}
	d.slot = &pkt
	d.drained = false
	return nil
}

func (d *slotDecoder) take() (media.Packet, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.slot == nil {
		if d.drained {
			return media.Packet{}, ports.ErrEndOfStream
		}
		return media.Packet{}, ports.ErrNeedInput
	}
	pkt := *d.slot
	d.slot = nil
	return pkt, nil
}

func (d *slotDecoder) Drain() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.drained = true
	return nil
}

func (d *slotDecoder) Reset() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.slot = nil
	d.drained = false
	return nil
}

func (d *slotDecoder) Close() error {
	return d.Reset()
}

// SMPTE-style colour bars.
var bars = []color.RGBA{
	{0xc0, 0xc0, 0xc0, 0xff},
	{0xc0, 0xc0, 0x00, 0xff},
	{0x00, 0xc0, 0xc0, 0xff},
	{0x00, 0xc0, 0x00, 0xff},
	{0xc0, 0x00, 0xc0, 0xff},
	{0xc0, 0x00, 0x00, 0xff},
	{0x00, 0x00, 0xc0, 0xff},
}

// VideoDecoder renders colour bars with a white bar sweeping across once
// per second, so motion and seeks are visible.
type VideoDecoder struct {
	slotDecoder
	size media.Size
	pool sync.Pool
}

// NewVideoDecoder creates a decoder producing frames of size.
func NewVideoDecoder(size media.Size) *VideoDecoder {
	d := &VideoDecoder{size: size}
	d.pool.New = func() any {
		return image.NewRGBA(image.Rect(0, 0, size.Width, size.Height))
	}
	return d
}

func (d *VideoDecoder) Kind() media.Kind { return media.KindVideo }

func (d *VideoDecoder) Send(pkt media.Packet) error { return d.send(pkt) }

func (d *VideoDecoder) Receive() (*media.Frame, error) {
	pkt, err := d.take()
	if err != nil {
		return nil, err
	}
	img := d.pool.Get().(*image.RGBA)
	d.render(img, pkt.PTS)
	return media.NewVideoFrame(pkt.PTS, img, d.recycle), nil
}

func (d *VideoDecoder) recycle(f *media.Frame) {
	if f.Image != nil {
		d.pool.Put(f.Image)
	}
}

func (d *VideoDecoder) render(img *image.RGBA, pts int64) {
	w, h := d.size.Width, d.size.Height
	sweep := int(pts%1000) * w / 1000
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < w; x++ {
			c := bars[x*len(bars)/w]
			if x >= sweep && x < sweep+max(w/40, 1) {
				c = color.RGBA{0xff, 0xff, 0xff, 0xff}
			}
			i := x * 4
			row[i], row[i+1], row[i+2], row[i+3] = c.R, c.G, c.B, c.A
		}
	}
}

var _ ports.Decoder = (*VideoDecoder)(nil)

// AudioDecoder produces a sine tone, ChunkInterval ms per packet.
type AudioDecoder struct {
	slotDecoder
	format media.AudioFormat
	toneHz float64
}

// NewAudioDecoder creates a decoder producing a tone in format.
func NewAudioDecoder(format media.AudioFormat, toneHz float64) *AudioDecoder {
	return &AudioDecoder{format: format, toneHz: toneHz}
}

func (d *AudioDecoder) Kind() media.Kind { return media.KindAudio }

func (d *AudioDecoder) Send(pkt media.Packet) error { return d.send(pkt) }

func (d *AudioDecoder) Receive() (*media.Frame, error) {
	pkt, err := d.take()
	if err != nil {
		return nil, err
	}
	return media.NewAudioFrame(pkt.PTS, d.tone(pkt.PTS), d.format, nil), nil
}

// tone synthesises the chunk starting at pts. The phase is derived from the
// absolute sample index so chunks join without clicks.
func (d *AudioDecoder) tone(pts int64) []byte {
	rate := d.format.SampleRate
	frames := rate * ChunkInterval / 1000
	first := pts * int64(rate) / 1000
	out := make([]byte, frames*d.format.BytesPerFrame())

	off := 0
	for i := 0; i < frames; i++ {
		t := float64(first+int64(i)) / float64(rate)
		v := float32(0.2 * math.Sin(2*math.Pi*d.toneHz*t))
		bits := math.Float32bits(v)
		for c := 0; c < d.format.Channels; c++ {
			binary.LittleEndian.PutUint32(out[off:], bits)
			off += 4
		}
	}
	return out
}

var _ ports.Decoder = (*AudioDecoder)(nil)
