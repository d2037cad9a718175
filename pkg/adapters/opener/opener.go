// Package opener resolves a media locator into a source and its decoders.
package opener

import (
	"fmt"
	"strings"

	"github.com/user/avplay/pkg/adapters/ffmpegdecoder"
	"github.com/user/avplay/pkg/adapters/mp4source"
	"github.com/user/avplay/pkg/adapters/synthsource"
	"github.com/user/avplay/pkg/ports"
)

// Opener implements ports.Opener.
//
// "synth:" locators open the built-in generator. Anything else is treated
// as a path to an MP4 file, with an optional file:// prefix, decoded
// through ffmpeg.
type Opener struct {
	logger ports.Logger

	// Overridable for tests.
	openFile func(path string, logger ports.Logger) (ports.Source, error)
	newVideo func(codec string, src ports.Source, logger ports.Logger) (ports.Decoder, error)
	newAudio func(codec string, src ports.Source, logger ports.Logger) (ports.Decoder, error)
}

// New creates an Opener.
func New(logger ports.Logger) *Opener {
	return &Opener{
		logger:   logger,
		openFile: openMP4,
		newVideo: newFFmpegVideo,
		newAudio: newFFmpegAudio,
	}
}

func openMP4(path string, logger ports.Logger) (ports.Source, error) {
	s, err := mp4source.Open(path, logger)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func newFFmpegVideo(codec string, src ports.Source, logger ports.Logger) (ports.Decoder, error) {
	d, err := ffmpegdecoder.NewVideo(codec, src.Info().VideoSize, logger)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func newFFmpegAudio(codec string, src ports.Source, logger ports.Logger) (ports.Decoder, error) {
	d, err := ffmpegdecoder.NewAudio(codec, src.Info().AudioFormat, logger)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Open opens locator. On error nothing is left open.
func (o *Opener) Open(locator string) (ports.Media, error) {
	if strings.HasPrefix(locator, synthsource.Scheme) {
		return synthsource.Open(locator)
	}

	path := strings.TrimPrefix(locator, "file://")
	if path == "" {
		return ports.Media{}, fmt.Errorf("empty locator")
	}

	src, err := o.openFile(path, o.logger)
	if err != nil {
		return ports.Media{}, fmt.Errorf("open %s: %w", path, err)
	}
	m := ports.Media{Source: src}
	info := src.Info()

	if info.HasVideo {
		m.Video, err = o.newVideo(info.VideoCodec, src, o.logger)
		if err != nil {
			m.Close()
			return ports.Media{}, fmt.Errorf("video decoder: %w", err)
		}
	}
	if info.HasAudio {
		m.Audio, err = o.newAudio(info.AudioCodec, src, o.logger)
		if err != nil {
			m.Close()
			return ports.Media{}, fmt.Errorf("audio decoder: %w", err)
		}
	}
	return m, nil
}

var _ ports.Opener = (*Opener)(nil)
