package scanner

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/harmonia-audio/harmonia/internal/catalog"
)

// mp4Parser is a recursive-descent atom walker for ALAC/AAC-in-MP4 (§4.1):
// moov/trak/mdia/minf/stbl for stream parameters, moov/udta/meta/ilst for
// tags. Leaf atoms under ilst map to tag fields via a fixed four-byte atom
// code table.
type mp4Parser struct{}

type mp4Atom struct {
	typ   string
	start int64
	size  int64
}

func (mp4Parser) Parse(path string) (*catalog.Song, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &catalog.ScanError{Path: path, Code: -1, Text: "mp4: " + err.Error()}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, &catalog.ScanError{Path: path, Code: -1, Text: "mp4: " + err.Error()}
	}

	s := &catalog.Song{Codec: "ALAC", Channels: 2}

	top, err := readAtoms(f, 0, info.Size())
	if err != nil {
		return nil, &catalog.ScanError{Path: path, Code: -1, Text: "mp4: " + err.Error()}
	}
	moov := findAtom(top, "moov")
	if moov == nil {
		return nil, &catalog.ScanError{Path: path, Code: -1, Text: "mp4: missing moov atom"}
	}

	if err := walkAudioTrack(f, *moov, s); err != nil {
		return nil, &catalog.ScanError{Path: path, Code: -1, Text: "mp4: " + err.Error()}
	}
	if s.SampleRate == 0 {
		return nil, &catalog.ScanError{Path: path, Code: -2, Text: "mp4: no audio track found"}
	}
	if s.Channels != 2 {
		return nil, &catalog.ScanError{Path: path, Code: -2, Text: "mp4: unsupported channel count"}
	}
	if !catalog.ValidStreamFacet(s.SampleRate, s.BitsPerSample) {
		return nil, &catalog.ScanError{Path: path, Code: -2, Text: "mp4: unsupported sample rate or bit depth"}
	}

	if udta := findAtomIn(f, *moov, "udta"); udta != nil {
		if meta := findAtomIn(f, *udta, "meta"); meta != nil {
			// "meta" has a 4-byte version/flags prefix before its children.
			metaInner := *meta
			metaInner.start += 4
			metaInner.size -= 4
			if ilst := findAtomIn(f, metaInner, "ilst"); ilst != nil {
				applyIlst(f, *ilst, s)
			}
		}
	}

	if s.SampleCount > 0 && s.SampleRate > 0 {
		s.DurationMs = s.SampleCount * 1000 / int64(s.SampleRate)
		s.DurationSeconds = float64(s.SampleCount) / float64(s.SampleRate)
	}
	return s, nil
}

func readAtoms(f io.ReaderAt, start, end int64) ([]mp4Atom, error) {
	var atoms []mp4Atom
	pos := start
	for pos+8 <= end {
		var hdr [8]byte
		if _, err := f.ReadAt(hdr[:], pos); err != nil {
			return atoms, nil
		}
		size := int64(binary.BigEndian.Uint32(hdr[0:4]))
		typ := string(hdr[4:8])
		headerLen := int64(8)
		if size == 1 {
			var ext [8]byte
			if _, err := f.ReadAt(ext[:], pos+8); err != nil {
				return atoms, nil
			}
			size = int64(binary.BigEndian.Uint64(ext[:]))
			headerLen = 16
		}
		if size < headerLen {
			break
		}
		atoms = append(atoms, mp4Atom{typ: typ, start: pos + headerLen, size: size - headerLen})
		pos += size
	}
	return atoms, nil
}

func findAtom(atoms []mp4Atom, typ string) *mp4Atom {
	for i := range atoms {
		if atoms[i].typ == typ {
			return &atoms[i]
		}
	}
	return nil
}

func findAtomIn(f io.ReaderAt, parent mp4Atom, typ string) *mp4Atom {
	children, _ := readAtoms(f, parent.start, parent.start+parent.size)
	return findAtom(children, typ)
}

// walkAudioTrack finds the first audio trak (mdia/minf/stbl/stsd carries a
// "mp4a"/"alac" sample description) and reads sample rate/channels/sample
// count from its mdhd and stsz/stts boxes.
func walkAudioTrack(f io.ReaderAt, moov mp4Atom, s *catalog.Song) error {
	children, _ := readAtoms(f, moov.start, moov.start+moov.size)
	for _, trak := range children {
		if trak.typ != "trak" {
			continue
		}
		mdia := findAtomIn(f, trak, "mdia")
		if mdia == nil {
			continue
		}
		mdhd := findAtomIn(f, *mdia, "mdhd")
		minf := findAtomIn(f, *mdia, "minf")
		if minf == nil {
			continue
		}
		stbl := findAtomIn(f, *minf, "stbl")
		if stbl == nil {
			continue
		}
		stsd := findAtomIn(f, *stbl, "stsd")
		if stsd == nil {
			continue
		}
		codec, channels, bits := readStsd(f, *stsd)
		if codec == "" {
			continue
		}
		s.Codec = codec
		s.Channels = channels
		s.BitsPerSample = bits
		s.BytesPerSample = bits / 8

		if mdhd != nil {
			rate, duration := readMdhd(f, *mdhd)
			s.SampleRate = rate
			s.SampleCount = duration
		}
		return nil
	}
	return nil
}

func readStsd(f io.ReaderAt, stsd mp4Atom) (codec string, channels, bits int) {
	// stsd: 4-byte version/flags, 4-byte entry count, then sample entries.
	buf := make([]byte, stsd.size)
	if _, err := f.ReadAt(buf, stsd.start); err != nil {
		return "", 0, 0
	}
	if len(buf) < 16 {
		return "", 0, 0
	}
	entryType := string(buf[12:16])
	if entryType != "alac" && entryType != "mp4a" {
		return "", 0, 0
	}
	if entryType == "alac" {
		codec = "ALAC"
	} else {
		codec = "AAC"
	}
	// audio sample entry: 6 bytes reserved, 2 bytes data-ref-index,
	// 8 bytes reserved, 2 bytes channel count, 2 bytes sample size, ...
	base := 16 + 8 + 8
	if len(buf) < base+8 {
		return codec, 2, 16
	}
	channels = int(binary.BigEndian.Uint16(buf[base : base+2]))
	bits = int(binary.BigEndian.Uint16(buf[base+2 : base+4]))
	if channels == 0 {
		channels = 2
	}
	if bits == 0 {
		bits = 16
	}
	return codec, channels, bits
}

func readMdhd(f io.ReaderAt, mdhd mp4Atom) (rate int, duration int64) {
	buf := make([]byte, mdhd.size)
	if _, err := f.ReadAt(buf, mdhd.start); err != nil {
		return 0, 0
	}
	if len(buf) < 1 {
		return 0, 0
	}
	version := buf[0]
	if version == 1 {
		if len(buf) < 32 {
			return 0, 0
		}
		rate = int(binary.BigEndian.Uint32(buf[20:24]))
		duration = int64(binary.BigEndian.Uint64(buf[24:32]))
	} else {
		if len(buf) < 20 {
			return 0, 0
		}
		rate = int(binary.BigEndian.Uint32(buf[12:16]))
		duration = int64(binary.BigEndian.Uint32(buf[16:20]))
	}
	return rate, duration
}

// applyIlst maps the fixed four-byte iTunes atom codes to Song fields
// (§4.1).
func applyIlst(f io.ReaderAt, ilst mp4Atom, s *catalog.Song) {
	children, _ := readAtoms(f, ilst.start, ilst.start+ilst.size)
	for _, child := range children {
		dataAtom := findAtomIn(f, child, "data")
		if dataAtom == nil {
			continue
		}
		raw := make([]byte, dataAtom.size)
		if _, err := f.ReadAt(raw, dataAtom.start); err != nil {
			continue
		}
		if len(raw) < 8 {
			continue
		}
		payload := raw[8:] // 4-byte type indicator + 4-byte locale, skip

		switch child.typ {
		case "\xa9nam":
			s.Title = string(payload)
		case "\xa9ART":
			s.Artist = string(payload)
		case "\xa9alb":
			s.Album = string(payload)
		case "aART":
			s.AlbumArtist = string(payload)
		case "\xa9day":
			s.Date = string(payload)
			s.Year = parseYear(string(payload))
		case "\xa9gen":
			s.Genre = string(payload)
		case "\xa9wrt":
			s.Composer = string(payload)
		case "trkn":
			s.Track, s.TrackCount = decodeTrknPayload(payload)
		case "disk":
			s.Disk, s.DiskCount = decodeTrknPayload(payload)
		case "covr":
			s.PictureData = payload
			s.PictureMIME = "image/jpeg"
		case "cpil":
			s.Compilation = len(payload) > 0 && payload[0] != 0
		}
	}
}

// decodeTrknPayload reads the trkn/disk atom's 8-byte binary payload
// (2 reserved bytes, 2-byte index, 2-byte total, 2 reserved).
func decodeTrknPayload(payload []byte) (n, total int) {
	if len(payload) < 6 {
		return 0, 0
	}
	n = int(binary.BigEndian.Uint16(payload[2:4]))
	total = int(binary.BigEndian.Uint16(payload[4:6]))
	return
}
