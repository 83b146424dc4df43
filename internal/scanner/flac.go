package scanner

import (
	"strconv"
	"strings"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/meta"

	"github.com/harmonia-audio/harmonia/internal/catalog"
)

// flacParser reads only the container's StreamInfo/VorbisComment/Picture
// metadata blocks via mewkiz/flac; it never touches the frame package, so
// no audio is decoded here — frame decode is the Decoder Adapter's job,
// out of this scanner's scope entirely.
type flacParser struct{}

func (flacParser) Parse(path string) (*catalog.Song, error) {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return nil, &catalog.ScanError{Path: path, Code: -1, Text: "flac: " + err.Error()}
	}
	defer stream.Close()

	info := stream.Info
	if info.NChannels != 2 {
		return nil, &catalog.ScanError{Path: path, Code: -2, Text: "flac: unsupported channel count"}
	}
	if !catalog.ValidStreamFacet(int(info.SampleRate), int(info.BitsPerSample)) {
		return nil, &catalog.ScanError{Path: path, Code: -2, Text: "flac: unsupported sample rate or bit depth"}
	}

	s := &catalog.Song{
		Codec:          "FLAC",
		Channels:       int(info.NChannels),
		SampleRate:     int(info.SampleRate),
		BitsPerSample:  int(info.BitsPerSample),
		SampleCount:    int64(info.NSamples),
		BytesPerSample: int(info.BitsPerSample) / 8,
	}
	if info.SampleRate > 0 {
		s.DurationMs = int64(info.NSamples) * 1000 / int64(info.SampleRate)
		s.DurationSeconds = float64(info.NSamples) / float64(info.SampleRate)
	}
	s.PCMByteSize = int64(info.NSamples) * int64(info.NChannels) * int64(s.BytesPerSample)

	for _, block := range stream.Blocks {
		switch body := block.Body.(type) {
		case *meta.VorbisComment:
			applyVorbisComments(s, body.Tags)
		case *meta.Picture:
			s.PictureMIME = body.MIME
			s.PictureData = body.Data
		}
	}
	return s, nil
}

func applyVorbisComments(s *catalog.Song, tags [][2]string) {
	for _, kv := range tags {
		key := strings.ToUpper(kv[0])
		val := kv[1]
		switch key {
		case "ARTIST":
			s.Artist = val
		case "ALBUMARTIST", "ALBUM ARTIST":
			s.AlbumArtist = val
		case "ALBUM":
			s.Album = val
		case "TITLE":
			s.Title = val
		case "GENRE":
			s.Genre = val
		case "COMPOSER":
			s.Composer = val
		case "CONDUCTOR":
			s.Conductor = val
		case "DATE":
			s.Date = val
			s.Year = parseYear(val)
		case "TRACKNUMBER":
			s.Track, s.TrackCount = parseFraction(val)
		case "TRACKTOTAL":
			if n, err := strconv.Atoi(val); err == nil {
				s.TrackCount = n
			}
		case "DISCNUMBER":
			s.Disk, s.DiskCount = parseFraction(val)
		case "DISCTOTAL":
			if n, err := strconv.Atoi(val); err == nil {
				s.DiskCount = n
			}
		case "COMPILATION":
			s.Compilation = val == "1"
		}
	}
}

func parseYear(date string) int {
	if len(date) >= 4 {
		if y, err := strconv.Atoi(date[:4]); err == nil {
			return y
		}
	}
	return 0
}

func parseFraction(v string) (n, total int) {
	parts := strings.SplitN(v, "/", 2)
	n, _ = strconv.Atoi(strings.TrimSpace(parts[0]))
	if len(parts) == 2 {
		total, _ = strconv.Atoi(strings.TrimSpace(parts[1]))
	}
	return
}
