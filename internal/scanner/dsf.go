package scanner

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/harmonia-audio/harmonia/internal/catalog"
)

// dsfParser reads a Sony DSF (DSD Stream File) container: little-endian
// "DSD ", "fmt " and "data" chunks, each with an 8-byte chunk size. DSD is
// 1-bit audio; the Decoder Adapter is responsible for DSD-over-PCM packing
// at playback time, not this scanner.
type dsfParser struct{}

func (dsfParser) Parse(path string) (*catalog.Song, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &catalog.ScanError{Path: path, Code: -1, Text: "dsf: " + err.Error()}
	}
	defer f.Close()

	var dsdHeader [28]byte
	if _, err := io.ReadFull(f, dsdHeader[:]); err != nil {
		return nil, &catalog.ScanError{Path: path, Code: -1, Text: "dsf: short header"}
	}
	if string(dsdHeader[0:4]) != "DSD " {
		return nil, &catalog.ScanError{Path: path, Code: -1, Text: "dsf: bad DSD signature"}
	}

	var fmtHeader [12]byte
	if _, err := io.ReadFull(f, fmtHeader[:]); err != nil {
		return nil, &catalog.ScanError{Path: path, Code: -1, Text: "dsf: missing fmt chunk"}
	}
	if string(fmtHeader[0:4]) != "fmt " {
		return nil, &catalog.ScanError{Path: path, Code: -1, Text: "dsf: missing fmt chunk"}
	}
	fmtSize := binary.LittleEndian.Uint64(fmtHeader[4:12])
	fmtBody := make([]byte, fmtSize-12)
	if _, err := io.ReadFull(f, fmtBody); err != nil {
		return nil, &catalog.ScanError{Path: path, Code: -1, Text: "dsf: short fmt chunk"}
	}

	channelNum := binary.LittleEndian.Uint32(fmtBody[12:16])
	samplingFreq := binary.LittleEndian.Uint32(fmtBody[16:20])
	sampleCount := binary.LittleEndian.Uint64(fmtBody[24:32])

	var dataHeader [12]byte
	if _, err := io.ReadFull(f, dataHeader[:]); err != nil {
		return nil, &catalog.ScanError{Path: path, Code: -1, Text: "dsf: missing data chunk"}
	}
	if string(dataHeader[0:4]) != "data" {
		return nil, &catalog.ScanError{Path: path, Code: -1, Text: "dsf: missing data chunk"}
	}
	dataSize := binary.LittleEndian.Uint64(dataHeader[4:12]) - 12

	if channelNum != 2 {
		return nil, &catalog.ScanError{Path: path, Code: -2, Text: "dsf: unsupported channel count"}
	}
	if !catalog.ValidStreamFacet(int(samplingFreq), 1) {
		return nil, &catalog.ScanError{Path: path, Code: -2, Text: "dsf: unsupported sample rate"}
	}

	s := &catalog.Song{
		Codec:          "DSF",
		Channels:       int(channelNum),
		SampleRate:     int(samplingFreq),
		BitsPerSample:  1,
		BytesPerSample: 0,
		SampleCount:    int64(sampleCount),
		PCMByteSize:    int64(dataSize),
	}
	if samplingFreq > 0 {
		s.DurationMs = int64(sampleCount) * 1000 / int64(samplingFreq)
		s.DurationSeconds = float64(sampleCount) / float64(samplingFreq)
	}
	return s, nil
}
