package scanner

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/harmonia-audio/harmonia/internal/catalog"
)

// wavParser reads a RIFF/WAVE container's "fmt " and "data" chunks.
// WAV is little-endian throughout (§4.1).
type wavParser struct{}

func (wavParser) Parse(path string) (*catalog.Song, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &catalog.ScanError{Path: path, Code: -1, Text: "wav: " + err.Error()}
	}
	defer f.Close()

	var riffHeader [12]byte
	if _, err := io.ReadFull(f, riffHeader[:]); err != nil {
		return nil, &catalog.ScanError{Path: path, Code: -1, Text: "wav: short header"}
	}
	if string(riffHeader[0:4]) != "RIFF" || string(riffHeader[8:12]) != "WAVE" {
		return nil, &catalog.ScanError{Path: path, Code: -1, Text: "wav: bad RIFF/WAVE signature"}
	}

	var fmtChannels, fmtBits uint16
	var fmtRate uint32
	var dataBytes uint32
	haveFmt := false

	for {
		var hdr [8]byte
		if _, err := io.ReadFull(f, hdr[:]); err != nil {
			break
		}
		id := string(hdr[0:4])
		size := binary.LittleEndian.Uint32(hdr[4:8])

		switch id {
		case "fmt ":
			body := make([]byte, size)
			if _, err := io.ReadFull(f, body); err != nil {
				return nil, &catalog.ScanError{Path: path, Code: -1, Text: "wav: short fmt chunk"}
			}
			fmtChannels = binary.LittleEndian.Uint16(body[2:4])
			fmtRate = binary.LittleEndian.Uint32(body[4:8])
			fmtBits = binary.LittleEndian.Uint16(body[14:16])
			haveFmt = true
		case "data":
			dataBytes = size
			if _, err := f.Seek(int64(size), io.SeekCurrent); err != nil {
				dataBytes = 0
			}
		default:
			if _, err := f.Seek(int64(size), io.SeekCurrent); err != nil {
				break
			}
		}
		if size%2 == 1 {
			f.Seek(1, io.SeekCurrent) // chunks are word-aligned
		}
		if haveFmt && dataBytes > 0 {
			break
		}
	}

	if !haveFmt {
		return nil, &catalog.ScanError{Path: path, Code: -1, Text: "wav: missing fmt chunk"}
	}
	if fmtChannels != 2 {
		return nil, &catalog.ScanError{Path: path, Code: -2, Text: "wav: unsupported channel count"}
	}
	if !catalog.ValidStreamFacet(int(fmtRate), int(fmtBits)) {
		return nil, &catalog.ScanError{Path: path, Code: -2, Text: "wav: unsupported sample rate or bit depth"}
	}

	bytesPerSample := int(fmtBits) / 8
	frameBytes := bytesPerSample * int(fmtChannels)
	var sampleCount int64
	if frameBytes > 0 {
		sampleCount = int64(dataBytes) / int64(frameBytes)
	}

	s := &catalog.Song{
		Codec:          "WAV",
		Channels:       int(fmtChannels),
		SampleRate:     int(fmtRate),
		BitsPerSample:  int(fmtBits),
		BytesPerSample: bytesPerSample,
		SampleCount:    sampleCount,
		PCMByteSize:    int64(dataBytes),
	}
	if fmtRate > 0 {
		s.DurationMs = sampleCount * 1000 / int64(fmtRate)
		s.DurationSeconds = float64(sampleCount) / float64(fmtRate)
	}
	return s, nil
}
