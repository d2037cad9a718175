package mp4source

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/Eyevinn/mp4ff/aac"
	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/user/avplay/pkg/media"
)

// sample locates one access unit in the file. Times are in milliseconds.
type sample struct {
	offset uint64
	size   uint32
	dts    int64
	pts    int64
	sync   bool
}

// track is a demuxed elementary stream with its full sample table.
type track struct {
	kind       media.Kind
	codec      Codec
	timescale  uint32
	durationMs int64
	samples    []sample
	next       int

	// Video
	width, height int
	paramSets     []byte // SPS and PPS in Annex B form

	// Audio
	asc        *aac.AudioSpecificConfig
	sampleRate int
	channels   int
}

func (t *track) done() bool {
	return t.next >= len(t.samples)
}

func (t *track) peekDTS() int64 {
	return t.samples[t.next].dts
}

// seekSync positions the track on a sync sample near targetMs: the last one
// at or before the target when backward, otherwise the first one at or after
// it. Past either end it clamps to the first or last sync sample.
func (t *track) seekSync(targetMs int64, backward bool) int64 {
	first, last := -1, -1
	for i, s := range t.samples {
		if !s.sync {
			continue
		}
		if first < 0 {
			first = i
		}
		last = i
	}
	if first < 0 {
		t.next = len(t.samples)
		return targetMs
	}

	idx := -1
	if backward {
		for i := len(t.samples) - 1; i >= 0; i-- {
			if t.samples[i].sync && t.samples[i].pts <= targetMs {
				idx = i
				break
			}
		}
		if idx < 0 {
			idx = first
		}
	} else {
		for i, s := range t.samples {
			if s.sync && s.pts >= targetMs {
				idx = i
				break
			}
		}
		if idx < 0 {
			idx = last
		}
	}
	t.next = idx
	return t.samples[idx].pts
}

// seekAt positions the track on the first sample with pts at or after
// targetMs. Audio samples are all sync samples.
func (t *track) seekAt(targetMs int64) {
	t.next = sort.Search(len(t.samples), func(i int) bool {
		return t.samples[i].pts >= targetMs
	})
}

func toMs(t uint64, timescale uint32) int64 {
	if timescale == 0 {
		return 0
	}
	return int64(t * 1000 / uint64(timescale))
}

// buildTrack reads the sample table of trak. Unsupported handler types
// return nil.
func buildTrack(trak *mp4.TrakBox) (*track, error) {
	var t *track
	switch handlerType(trak) {
	case "vide":
		t = &track{kind: media.KindVideo, codec: videoCodec(trak)}
	case "soun":
		t = &track{kind: media.KindAudio, codec: audioCodec(trak)}
	default:
		return nil, nil
	}

	if trak.Mdia.Mdhd != nil {
		t.timescale = trak.Mdia.Mdhd.Timescale
		t.durationMs = toMs(trak.Mdia.Mdhd.Duration, t.timescale)
	}
	if t.timescale == 0 {
		t.timescale = 1000
	}
	if trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil {
		return nil, fmt.Errorf("track %d: no sample table found", trak.Tkhd.TrackID)
	}
	stbl := trak.Mdia.Minf.Stbl

	if err := t.readSampleEntry(stbl.Stsd); err != nil {
		return nil, fmt.Errorf("track %d: %w", trak.Tkhd.TrackID, err)
	}
	samples, err := readSamples(stbl, t.timescale)
	if err != nil {
		return nil, fmt.Errorf("track %d: %w", trak.Tkhd.TrackID, err)
	}
	t.samples = samples
	return t, nil
}

func (t *track) readSampleEntry(stsd *mp4.StsdBox) error {
	if stsd == nil {
		return fmt.Errorf("no stsd box found")
	}
	for _, child := range stsd.Children {
		switch entry := child.(type) {
		case *mp4.VisualSampleEntryBox:
			t.width = int(entry.Width)
			t.height = int(entry.Height)
			if entry.AvcC != nil {
				t.paramSets = annexBParameterSets(entry.AvcC.SPSnalus, entry.AvcC.PPSnalus)
			}
			return nil
		case *mp4.AudioSampleEntryBox:
			t.sampleRate = int(entry.SampleRate)
			t.channels = int(entry.ChannelCount)
			if t.codec == CodecAAC && entry.Esds != nil {
				cfg := entry.Esds.DecConfigDescriptor.DecSpecificInfo.DecConfig
				asc, err := aac.DecodeAudioSpecificConfig(bytes.NewReader(cfg))
				if err != nil {
					return fmt.Errorf("decode audio specific config: %w", err)
				}
				t.asc = asc
				if asc.SamplingFrequency > 0 {
					t.sampleRate = asc.SamplingFrequency
				}
			}
			return nil
		}
	}
	return nil
}

// readSamples walks stsz, stsc, stco/co64, stts, ctts and stss once and
// returns every sample in decode order.
func readSamples(stbl *mp4.StblBox, timescale uint32) ([]sample, error) {
	if stbl.Stsz == nil {
		return nil, fmt.Errorf("no stsz box found")
	}
	if stbl.Stsc == nil {
		return nil, fmt.Errorf("no stsc box found")
	}
	if stbl.Stco == nil && stbl.Co64 == nil {
		return nil, fmt.Errorf("no stco or co64 box found")
	}

	count := stbl.Stsz.SampleNumber
	samples := make([]sample, 0, count)

	prevChunk := -1
	var offset uint64
	for nr := uint32(1); nr <= count; nr++ {
		chunkNr, _, err := stbl.Stsc.ChunkNrFromSampleNr(int(nr))
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", nr, err)
		}
		if chunkNr != prevChunk {
			offset, err = chunkOffset(stbl, chunkNr)
			if err != nil {
				return nil, fmt.Errorf("sample %d: %w", nr, err)
			}
			prevChunk = chunkNr
		}
		size := stbl.Stsz.GetSampleSize(int(nr))

		var decodeTime uint64
		if stbl.Stts != nil {
			decodeTime, _ = stbl.Stts.GetDecodeTime(nr)
		}
		presentTime := int64(decodeTime)
		if stbl.Ctts != nil {
			presentTime += int64(stbl.Ctts.GetCompositionTimeOffset(nr))
		}
		presentTime = max(presentTime, 0)

		samples = append(samples, sample{
			offset: offset,
			size:   size,
			dts:    toMs(decodeTime, timescale),
			pts:    toMs(uint64(presentTime), timescale),
			sync:   stbl.Stss == nil || stbl.Stss.IsSyncSample(nr),
		})
		offset += uint64(size)
	}
	return samples, nil
}

func chunkOffset(stbl *mp4.StblBox, chunkNr int) (uint64, error) {
	if stbl.Stco != nil {
		off, err := stbl.Stco.GetOffset(chunkNr)
		if err != nil {
			return 0, fmt.Errorf("get chunk offset: %w", err)
		}
		return off, nil
	}
	if chunkNr < 1 || chunkNr > len(stbl.Co64.ChunkOffset) {
		return 0, fmt.Errorf("chunk nr %d out of range", chunkNr)
	}
	return stbl.Co64.ChunkOffset[chunkNr-1], nil
}
