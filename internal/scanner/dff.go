package scanner

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/harmonia-audio/harmonia/internal/catalog"
)

// dffParser reads a Philips DSDIFF container: big-endian chunk ids with an
// 8-byte big-endian size, a top-level FRM8/DSD form, a "PROP"/"SND " block
// nesting "FS  " (sample rate) and "CHNL" (channel count), and a top-level
// "DSD " chunk carrying the raw 1-bit audio.
type dffParser struct{}

func (dffParser) Parse(path string) (*catalog.Song, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &catalog.ScanError{Path: path, Code: -1, Text: "dff: " + err.Error()}
	}
	defer f.Close()

	var form [16]byte
	if _, err := io.ReadFull(f, form[:]); err != nil {
		return nil, &catalog.ScanError{Path: path, Code: -1, Text: "dff: short header"}
	}
	if string(form[0:4]) != "FRM8" || string(form[12:16]) != "DSD " {
		return nil, &catalog.ScanError{Path: path, Code: -1, Text: "dff: bad FRM8/DSD signature"}
	}

	var channels int
	var sampleRate int
	var audioBytes int64

	for {
		var hdr [12]byte
		n, err := io.ReadFull(f, hdr[:])
		if err != nil || n < 12 {
			break
		}
		id := string(hdr[0:4])
		size := int64(binary.BigEndian.Uint64(hdr[4:12]))

		switch id {
		case "PROP":
			body := make([]byte, size)
			if _, err := io.ReadFull(f, body); err != nil {
				return nil, &catalog.ScanError{Path: path, Code: -1, Text: "dff: short PROP chunk"}
			}
			channels, sampleRate = parseDFFProperty(body)
		case "DSD ":
			audioBytes = size
			if _, err := f.Seek(size, io.SeekCurrent); err != nil {
				break
			}
		default:
			if _, err := f.Seek(size, io.SeekCurrent); err != nil {
				break
			}
		}
		if size%2 == 1 {
			f.Seek(1, io.SeekCurrent)
		}
	}

	if channels != 2 {
		return nil, &catalog.ScanError{Path: path, Code: -2, Text: "dff: unsupported channel count"}
	}
	if !catalog.ValidStreamFacet(sampleRate, 1) {
		return nil, &catalog.ScanError{Path: path, Code: -2, Text: "dff: unsupported sample rate"}
	}

	sampleCount := audioBytes * 8 / int64(channels)

	s := &catalog.Song{
		Codec:          "DFF",
		Channels:       channels,
		SampleRate:     sampleRate,
		BitsPerSample:  1,
		BytesPerSample: 0,
		SampleCount:    sampleCount,
		PCMByteSize:    audioBytes,
	}
	if sampleRate > 0 {
		s.DurationMs = sampleCount * 1000 / int64(sampleRate)
		s.DurationSeconds = float64(sampleCount) / float64(sampleRate)
	}
	return s, nil
}

// parseDFFProperty walks the nested chunks of a "PROP"/"SND " block looking
// for "FS  " (sample rate) and "CHNL" (channel count).
func parseDFFProperty(body []byte) (channels, sampleRate int) {
	if len(body) < 4 || string(body[0:4]) != "SND " {
		return 0, 0
	}
	pos := 4
	for pos+12 <= len(body) {
		id := string(body[pos : pos+4])
		size := int64(binary.BigEndian.Uint64(body[pos+4 : pos+12]))
		start := pos + 12
		end := start + int(size)
		if end > len(body) {
			break
		}
		switch id {
		case "FS  ":
			if size >= 4 {
				sampleRate = int(binary.BigEndian.Uint32(body[start : start+4]))
			}
		case "CHNL":
			if size >= 2 {
				channels = int(binary.BigEndian.Uint16(body[start : start+2]))
			}
		}
		pos = end
		if size%2 == 1 {
			pos++
		}
	}
	return
}
