package playlist

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// mtimeLayout is the on-disk timestamp format for each playlist track line
// (§6 "Playlist text file").
const mtimeLayout = "2006-01-02 15:04:05"

// Save writes the playlist to path as one optional "Name:<displayname>"
// header line followed by one "index:file_hash:path:mtime" line per live
// track.
func (p *Playlist) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating playlist file")
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if p.Name != "" {
		fmt.Fprintf(w, "Name:%s\n", p.Name)
	}
	for _, t := range p.tracks {
		if t.Deleted {
			continue
		}
		fmt.Fprintf(w, "%d:%s:%s:%s\n", t.Index, t.FileHash, t.Path, t.ModTime.Format(mtimeLayout))
	}
	return w.Flush()
}

// SaveAs writes the playlist under a new path, then — only once the new
// file exists on disk — removes oldPath, matching §4.3's rename guarantee
// that a rename never leaves neither file present.
func (p *Playlist) SaveAs(newPath, oldPath string) error {
	if err := p.Save(newPath); err != nil {
		return err
	}
	if oldPath != "" && oldPath != newPath {
		if err := os.Remove(oldPath); err != nil && !os.IsNotExist(err) {
			return errors.Wrap(err, "removing old playlist file")
		}
	}
	return nil
}

// Load reads a playlist file written by Save and returns it as a new
// Playlist.
func Load(path string) (*Playlist, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening playlist file")
	}
	defer f.Close()

	p := newPlaylist("")
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		if name, ok := strings.CutPrefix(line, "Name:"); ok {
			p.Name = name
			continue
		}
		t, changed, err := decodeTrackLine(line)
		if err != nil {
			return nil, errors.Wrapf(err, "decoding playlist line %q", line)
		}
		if changed {
			p.modTime = time.Now()
		}
		p.tracks = append(p.tracks, t)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "reading playlist file")
	}
	p.reindex()
	return p, nil
}

// decodeTrackLine parses one track line. The second return value reports
// whether the mtime field was missing — a timestamp-less entry gets "now"
// and marks the whole list as changed (§6).
func decodeTrackLine(line string) (Track, bool, error) {
	fields := strings.SplitN(line, ":", 4)
	if len(fields) < 3 {
		return Track{}, false, errors.New("expected at least index:file_hash:path")
	}
	idx, err := strconv.Atoi(fields[0])
	if err != nil {
		return Track{}, false, errors.Wrap(err, "parsing index")
	}
	t := Track{Index: idx, FileHash: fields[1], Path: fields[2]}
	if len(fields) < 4 || strings.TrimSpace(fields[3]) == "" {
		t.ModTime = time.Now()
		return t, true, nil
	}
	mtime, err := time.ParseInLocation(mtimeLayout, fields[3], time.Local)
	if err != nil {
		return Track{}, false, errors.Wrap(err, "parsing mtime")
	}
	t.ModTime = mtime
	return t, false, nil
}
