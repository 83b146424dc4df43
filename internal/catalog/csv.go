package catalog

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// csvFieldNames is the exact 33-field header, in order, for the reference
// library CSV (§4.2, §6).
var csvFieldNames = []string{
	"codec", "artist", "original_artist", "album_artist", "album", "title",
	"genre", "composer", "conductor", "original_album_artist",
	"title_hash", "album_hash", "track", "disk", "year", "date",
	"sample_count", "sample_size", "sample_rate", "bits_per_sample",
	"bytes_per_sample", "channels", "bit_rate", "chunk_size",
	"duration_ms", "seconds", "hms", "path", "mtime", "file_size",
	"file_hash", "config_bitmask", "inserted_at",
}

const csvDelimiter = ";"
const csvMaxBackups = 5

// ConfigBitURLEncoded marks that string fields are URL-encoded in the CSV.
const ConfigBitURLEncoded uint32 = 1 << 0

// SaveToFile writes one header line and one 33-field record per live song,
// rotating the previous file to a timestamped ".bak" (keeping at most
// csvMaxBackups) before overwrite.
func (l *Library) SaveToFile(path string) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if err := rotateBackup(path); err != nil {
		return errors.Wrap(err, "rotating library backup")
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating library file")
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprint(w, strings.Join(csvFieldNames, csvDelimiter))
	fmt.Fprint(w, "\r\n")

	for _, id := range l.order {
		s := l.song(id)
		if s.Deleted {
			continue
		}
		fmt.Fprint(w, l.encodeRecord(s))
		fmt.Fprint(w, "\r\n")
	}
	return w.Flush()
}

func (l *Library) encodeRecord(s *Song) string {
	urlEncoded := s.ConfigBM&ConfigBitURLEncoded != 0
	str := func(v string) string {
		if urlEncoded {
			return url.QueryEscape(v)
		}
		return v
	}
	trackField := strconv.Itoa(s.Track)
	if s.TrackCount > 0 {
		trackField = fmt.Sprintf("%d/%d", s.Track, s.TrackCount)
	}
	diskField := strconv.Itoa(s.Disk)
	if s.DiskCount > 0 {
		diskField = fmt.Sprintf("%d/%d", s.Disk, s.DiskCount)
	}
	hms := formatHMS(s.DurationSeconds)

	fields := []string{
		s.Codec, str(s.Artist), str(s.OriginalArtist), str(s.AlbumArtist), str(s.Album), str(s.Title),
		str(s.Genre), str(s.Composer), str(s.Conductor), str(s.OriginalAlbumArtist),
		s.TitleHash, s.AlbumHash, trackField, diskField, strconv.Itoa(s.Year), s.Date,
		strconv.FormatInt(s.SampleCount, 10), strconv.FormatInt(s.PCMByteSize, 10), strconv.Itoa(s.SampleRate), strconv.Itoa(s.BitsPerSample),
		strconv.Itoa(s.BytesPerSample), strconv.Itoa(s.Channels), strconv.Itoa(s.BitRateKbps), strconv.Itoa(s.ChunkSizeBytes),
		strconv.FormatInt(s.DurationMs, 10), strconv.FormatFloat(s.DurationSeconds, 'f', 2, 64), hms, str(s.Path), strconv.FormatInt(s.ModTime.Unix(), 10), strconv.FormatInt(s.SizeBytes, 10),
		s.FileHash, strconv.FormatUint(uint64(s.ConfigBM), 10), strconv.FormatInt(s.InsertedAt.Unix(), 10),
	}
	return strings.Join(fields, csvDelimiter)
}

func formatHMS(seconds float64) string {
	total := int64(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	sec := total % 60
	return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
}

func rotateBackup(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	stamp := time.Now().UTC().Format("20060102T150405Z")
	backup := fmt.Sprintf("%s.%s.bak", path, stamp)
	if err := os.Rename(path, backup); err != nil {
		return err
	}
	return pruneBackups(path)
}

func pruneBackups(path string) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	var backups []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, base+".") && strings.HasSuffix(name, ".bak") {
			backups = append(backups, filepath.Join(dir, name))
		}
	}
	sort.Strings(backups)
	for len(backups) > csvMaxBackups {
		if err := os.Remove(backups[0]); err != nil {
			return err
		}
		backups = backups[1:]
	}
	return nil
}

// LoadFromFile parses the inverse of SaveToFile, adding every record to
// l's existing songs and skipping the header line. The caller should call
// RebuildIndices afterward.
func (l *Library) LoadFromFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "opening library file")
	}
	defer f.Close()

	l.mu.Lock()
	defer l.mu.Unlock()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	first := true
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if first {
			first = false
			if strings.HasPrefix(line, csvFieldNames[0]) {
				continue
			}
		}
		if line == "" {
			continue
		}
		song, err := decodeRecord(line)
		if err != nil {
			continue
		}
		l.arena = append(l.arena, *song)
		id := SongId(len(l.arena) - 1)
		l.arena[id].ID = id
		l.byFileHash[song.FileHash] = id
		l.order = append(l.order, id)
	}
	return scanner.Err()
}

// RebuildIndices exposes rebuildIndicesLocked for callers (e.g. after
// LoadFromFile) that need to force an index rebuild outside Import/Rescan.
func (l *Library) RebuildIndices() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rebuildIndicesLocked()
}

func decodeRecord(line string) (*Song, error) {
	fields := strings.Split(line, csvDelimiter)
	if len(fields) != len(csvFieldNames) {
		return nil, errors.Errorf("expected %d fields, got %d", len(csvFieldNames), len(fields))
	}
	cfgBM, _ := strconv.ParseUint(fields[31], 10, 32)
	urlEncoded := uint32(cfgBM)&ConfigBitURLEncoded != 0
	str := func(v string) string {
		if urlEncoded {
			if decoded, err := url.QueryUnescape(v); err == nil {
				return decoded
			}
		}
		return v
	}

	track, trackCount := splitFraction(fields[12])
	disk, diskCount := splitFraction(fields[13])
	year, _ := strconv.Atoi(fields[14])
	sampleCount, _ := strconv.ParseInt(fields[16], 10, 64)
	pcmSize, _ := strconv.ParseInt(fields[17], 10, 64)
	sampleRate, _ := strconv.Atoi(fields[18])
	bits, _ := strconv.Atoi(fields[19])
	bytesPerSample, _ := strconv.Atoi(fields[20])
	channels, _ := strconv.Atoi(fields[21])
	bitRate, _ := strconv.Atoi(fields[22])
	chunkSize, _ := strconv.Atoi(fields[23])
	durationMs, _ := strconv.ParseInt(fields[24], 10, 64)
	durationSecs, _ := strconv.ParseFloat(fields[25], 64)
	mtimeUnix, _ := strconv.ParseInt(fields[28], 10, 64)
	fileSize, _ := strconv.ParseInt(fields[29], 10, 64)
	insertedUnix, _ := strconv.ParseInt(fields[32], 10, 64)

	s := &Song{
		Codec:               fields[0],
		Artist:              str(fields[1]),
		OriginalArtist:      str(fields[2]),
		AlbumArtist:         str(fields[3]),
		Album:               str(fields[4]),
		Title:               str(fields[5]),
		Genre:               str(fields[6]),
		Composer:            str(fields[7]),
		Conductor:           str(fields[8]),
		OriginalAlbumArtist: str(fields[9]),
		TitleHash:           fields[10],
		AlbumHash:           fields[11],
		Track:               track,
		TrackCount:          trackCount,
		Disk:                disk,
		DiskCount:           diskCount,
		Year:                year,
		Date:                fields[15],
		SampleCount:         sampleCount,
		PCMByteSize:         pcmSize,
		SampleRate:          sampleRate,
		BitsPerSample:       bits,
		BytesPerSample:      bytesPerSample,
		Channels:            channels,
		BitRateKbps:         bitRate,
		ChunkSizeBytes:      chunkSize,
		DurationMs:          durationMs,
		DurationSeconds:     durationSecs,
		Path:                str(fields[27]),
		ModTime:             time.Unix(mtimeUnix, 0).UTC(),
		SizeBytes:           fileSize,
		FileHash:            fields[30],
		ConfigBM:            uint32(cfgBM),
		InsertedAt:          time.Unix(insertedUnix, 0).UTC(),
		MediaClass:          DeriveMediaClass(sampleRate, bits),
	}
	s.Basename = filepath.Base(s.Path)
	s.Ext = strings.ToLower(filepath.Ext(s.Path))
	s.Folder = filepath.Dir(s.Path)
	s.AlbumSortKey = AlbumSortKey(s.Album, s.AlbumArtist)
	return s, nil
}

func splitFraction(v string) (n, total int) {
	parts := strings.SplitN(v, "/", 2)
	n, _ = strconv.Atoi(parts[0])
	if len(parts) == 2 {
		total, _ = strconv.Atoi(parts[1])
	}
	return
}

// saveErrorsToFile writes the companion errors file: one record per failed
// import, "n;path;error;text;hint".
func saveErrorsToFile(path string, errs []*ScanError) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating errors file")
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for i, e := range errs {
		fmt.Fprintf(w, "%d;%s;%d;%s;%s\r\n", i, e.Path, e.Code, e.Text, e.Hint)
	}
	return w.Flush()
}

// SaveErrorsToFile writes the companion errors file listing every file that
// failed to parse during the most recent Import/Rescan.
func (l *Library) SaveErrorsToFile(path string) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return saveErrorsToFile(path, l.errs)
}
