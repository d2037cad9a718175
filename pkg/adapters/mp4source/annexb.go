package mp4source

import (
	"encoding/binary"
	"fmt"

	"github.com/Eyevinn/mp4ff/aac"
)

var startCode = []byte{0, 0, 0, 1}

// annexBParameterSets joins SPS and PPS NAL units with start codes.
func annexBParameterSets(spss, ppss [][]byte) []byte {
	var out []byte
	for _, sps := range spss {
		out = append(out, startCode...)
		out = append(out, sps...)
	}
	for _, pps := range ppss {
		out = append(out, startCode...)
		out = append(out, pps...)
	}
	return out
}

// avccToAnnexB converts length-prefixed NAL units to start-code prefixed
// ones, optionally preceded by prefix. A truncated trailing unit is dropped.
func avccToAnnexB(prefix, data []byte) []byte {
	out := make([]byte, 0, len(prefix)+len(data)+16)
	out = append(out, prefix...)

	offset := 0
	for offset+4 <= len(data) {
		n := int(binary.BigEndian.Uint32(data[offset:]))
		offset += 4
		if n < 0 || offset+n > len(data) {
			break
		}
		out = append(out, startCode...)
		out = append(out, data[offset:offset+n]...)
		offset += n
	}
	return out
}

// adtsFrame wraps a raw AAC access unit in an ADTS header so it can be fed
// to a decoder reading an elementary stream.
func adtsFrame(asc *aac.AudioSpecificConfig, payload []byte) ([]byte, error) {
	hdr, err := aac.NewADTSHeader(asc.SamplingFrequency, asc.ChannelConfiguration, asc.ObjectType, uint16(len(payload)))
	if err != nil {
		return nil, fmt.Errorf("adts header: %w", err)
	}
	head := hdr.Encode()
	out := make([]byte, 0, len(head)+len(payload))
	out = append(out, head...)
	return append(out, payload...), nil
}
