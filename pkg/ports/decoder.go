package ports

import (
	"errors"

	"github.com/user/avplay/pkg/media"
)

var (
	// ErrEndOfStream is returned by Source.ReadPacket when no more input is
	// currently available, and by Decoder.Receive once a drained decoder has
	// emitted its last frame.
	ErrEndOfStream = errors.New("end of stream")

	// ErrNeedInput is returned by Decoder.Receive when no decoded frame is
	// buffered and another packet must be sent first.
	ErrNeedInput = errors.New("decoder needs more input")

	// ErrDecoderBusy is returned by Decoder.Send when the decoder cannot
	// accept input until buffered output has been received.
	ErrDecoderBusy = errors.New("decoder busy")

	// ErrResourceExhausted reports an allocation failure inside a collaborator.
	ErrResourceExhausted = errors.New("resource exhausted")
)

// Source demultiplexes compressed units from an opened media locator.
type Source interface {
	// Info describes the streams the source will deliver.
	Info() media.StreamInfo

	// ReadPacket returns the next compressed unit in decode order.
	// It returns ErrEndOfStream at the end of the input.
	ReadPacket() (media.Packet, error)

	// Seek repositions the source near targetMs. When backward is set the
	// source positions at or before the target, otherwise at or after it.
	Seek(targetMs int64, backward bool) error

	// Close releases the source.
	Close() error
}

// Decoder turns compressed packets of one stream into frames.
//
// The contract follows a send/receive model: Receive is polled first and
// returns ErrNeedInput when nothing is buffered, after which the caller
// sends one packet.
type Decoder interface {
	// Kind returns the stream kind this decoder accepts.
	Kind() media.Kind

	// Send feeds one packet. ErrDecoderBusy means the packet was not
	// consumed and must be sent again after receiving output.
	Send(pkt media.Packet) error

	// Receive returns the next decoded frame, ErrNeedInput, or
	// ErrEndOfStream after Drain once all frames have been emitted.
	Receive() (*media.Frame, error)

	// Drain signals the end of input so buffered frames are flushed out.
	Drain() error

	// Reset discards all internal decoder state, typically after a seek.
	Reset() error

	// Close releases decoder resources.
	Close() error
}

// Media bundles an opened source with the decoders for its streams.
// Video or Audio is nil when the source has no such stream.
type Media struct {
	Source Source
	Video  Decoder
	Audio  Decoder
}

// Close releases the decoders and the source.
func (m Media) Close() error {
	var errs []error
	if m.Video != nil {
		errs = append(errs, m.Video.Close())
	}
	if m.Audio != nil {
		errs = append(errs, m.Audio.Close())
	}
	if m.Source != nil {
		errs = append(errs, m.Source.Close())
	}
	return errors.Join(errs...)
}

// Opener resolves a media locator into a playable Media bundle.
type Opener interface {
	Open(locator string) (Media, error)
}
