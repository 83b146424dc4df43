package scanner

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/harmonia-audio/harmonia/internal/catalog"
)

// aiffParser reads an AIFF/AIFC container's "COMM" and "SSND" chunks.
// AIFF is big-endian throughout, including its IFF chunk sizes (§4.1).
type aiffParser struct{}

func (aiffParser) Parse(path string) (*catalog.Song, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &catalog.ScanError{Path: path, Code: -1, Text: "aiff: " + err.Error()}
	}
	defer f.Close()

	var formHeader [12]byte
	if _, err := io.ReadFull(f, formHeader[:]); err != nil {
		return nil, &catalog.ScanError{Path: path, Code: -1, Text: "aiff: short header"}
	}
	if string(formHeader[0:4]) != "FORM" {
		return nil, &catalog.ScanError{Path: path, Code: -1, Text: "aiff: bad FORM signature"}
	}
	formType := string(formHeader[8:12])
	if formType != "AIFF" && formType != "AIFC" {
		return nil, &catalog.ScanError{Path: path, Code: -1, Text: "aiff: not AIFF/AIFC"}
	}

	var channels, bits uint16
	var rate float64
	var ssndBytes int64
	haveComm := false

	for {
		var hdr [8]byte
		if _, err := io.ReadFull(f, hdr[:]); err != nil {
			break
		}
		id := string(hdr[0:4])
		size := binary.BigEndian.Uint32(hdr[4:8])

		switch id {
		case "COMM":
			body := make([]byte, size)
			if _, err := io.ReadFull(f, body); err != nil {
				return nil, &catalog.ScanError{Path: path, Code: -1, Text: "aiff: short COMM chunk"}
			}
			channels = binary.BigEndian.Uint16(body[0:2])
			bits = binary.BigEndian.Uint16(body[6:8])
			var extended [10]byte
			copy(extended[:], body[8:18])
			rate = decodeIEEEExtended(extended)
			haveComm = true
		case "SSND":
			ssndBytes = int64(size) - 8 // offset+blockSize header within SSND
			if ssndBytes < 0 {
				ssndBytes = 0
			}
			if _, err := f.Seek(int64(size), io.SeekCurrent); err != nil {
				break
			}
		default:
			if _, err := f.Seek(int64(size), io.SeekCurrent); err != nil {
				break
			}
		}
		if size%2 == 1 {
			f.Seek(1, io.SeekCurrent)
		}
		if haveComm && ssndBytes > 0 {
			break
		}
	}

	if !haveComm {
		return nil, &catalog.ScanError{Path: path, Code: -1, Text: "aiff: missing COMM chunk"}
	}
	if channels != 2 {
		return nil, &catalog.ScanError{Path: path, Code: -2, Text: "aiff: unsupported channel count"}
	}
	if !catalog.ValidStreamFacet(int(rate), int(bits)) {
		return nil, &catalog.ScanError{Path: path, Code: -2, Text: "aiff: unsupported sample rate or bit depth"}
	}

	bytesPerSample := int(bits) / 8
	frameBytes := bytesPerSample * int(channels)
	var sampleCount int64
	if frameBytes > 0 {
		sampleCount = ssndBytes / int64(frameBytes)
	}
	sampleRate := int(rate)

	s := &catalog.Song{
		Codec:          "AIFF",
		Channels:       int(channels),
		SampleRate:     sampleRate,
		BitsPerSample:  int(bits),
		BytesPerSample: bytesPerSample,
		SampleCount:    sampleCount,
		PCMByteSize:    ssndBytes,
	}
	if sampleRate > 0 {
		s.DurationMs = sampleCount * 1000 / int64(sampleRate)
		s.DurationSeconds = float64(sampleCount) / float64(sampleRate)
	}
	return s, nil
}
