package mp4source

import (
	"fmt"
	"os"

	"github.com/Eyevinn/mp4ff/mp4"
)

// Codec identifies the compression format of a track.
type Codec string

const (
	CodecH264    Codec = "h264"
	CodecAV1     Codec = "av1"
	CodecHEVC    Codec = "hevc"
	CodecAAC     Codec = "aac"
	CodecMP3     Codec = "mp3"
	CodecUnknown Codec = "unknown"
)

// Supported reports whether the player can decode the codec.
func (c Codec) Supported() bool {
	switch c {
	case CodecH264, CodecAAC, CodecMP3:
		return true
	}
	return false
}

// MPEG-4 object type indications carried in the esds box.
const (
	otiAAC     = 0x40
	otiMPEG2LC = 0x67
	otiMP3     = 0x6B
	otiMPEG2L3 = 0x69
)

// DetectFromFile returns the codecs of the first video and audio tracks of
// an MP4 file. A missing track yields CodecUnknown.
func DetectFromFile(path string) (video, audio Codec, err error) {
	f, err := os.Open(path)
	if err != nil {
		return CodecUnknown, CodecUnknown, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	mp4File, err := mp4.DecodeFile(f, mp4.WithDecodeMode(mp4.DecModeLazyMdat))
	if err != nil {
		return CodecUnknown, CodecUnknown, fmt.Errorf("decode mp4: %w", err)
	}
	if mp4File.Moov == nil {
		return CodecUnknown, CodecUnknown, fmt.Errorf("no moov box found")
	}

	video, audio = CodecUnknown, CodecUnknown
	for _, trak := range mp4File.Moov.Traks {
		switch handlerType(trak) {
		case "vide":
			if video == CodecUnknown {
				video = videoCodec(trak)
			}
		case "soun":
			if audio == CodecUnknown {
				audio = audioCodec(trak)
			}
		}
	}
	return video, audio, nil
}

func handlerType(trak *mp4.TrakBox) string {
	if trak.Mdia == nil || trak.Mdia.Hdlr == nil {
		return ""
	}
	return trak.Mdia.Hdlr.HandlerType
}

func sampleDescription(trak *mp4.TrakBox) *mp4.StsdBox {
	if trak.Mdia == nil || trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil {
		return nil
	}
	return trak.Mdia.Minf.Stbl.Stsd
}

func videoCodec(trak *mp4.TrakBox) Codec {
	stsd := sampleDescription(trak)
	if stsd == nil {
		return CodecUnknown
	}
	for _, child := range stsd.Children {
		switch child.Type() {
		case "avc1", "avc3":
			return CodecH264
		case "av01":
			return CodecAV1
		case "hvc1", "hev1":
			return CodecHEVC
		}
	}
	return CodecUnknown
}

func audioCodec(trak *mp4.TrakBox) Codec {
	stsd := sampleDescription(trak)
	if stsd == nil {
		return CodecUnknown
	}
	for _, child := range stsd.Children {
		switch child.Type() {
		case ".mp3":
			return CodecMP3
		case "mp4a":
			ase, ok := child.(*mp4.AudioSampleEntryBox)
			if !ok || ase.Esds == nil {
				return CodecAAC
			}
			switch ase.Esds.DecConfigDescriptor.ObjectType {
			case otiMP3, otiMPEG2L3:
				return CodecMP3
			case otiAAC, otiMPEG2LC:
				return CodecAAC
			}
			return CodecUnknown
		}
	}
	return CodecUnknown
}
