package playlist

import (
	"encoding/json"
	"fmt"
	"strings"
)

// JSONTrack is the wire shape of one track in AsJSON's output.
type JSONTrack struct {
	Index    int    `json:"index"`
	FileHash string `json:"file_hash"`
	Path     string `json:"path"`
	ModTime  int64  `json:"mtime"`
	Active   bool   `json:"active"`
	Title    string `json:"title,omitempty"`
	Artist   string `json:"artist,omitempty"`
	Album    string `json:"album,omitempty"`
}

// Extended carries the optional per-track display fields AsJSON includes
// when extended=true; callers resolve them from the catalog before calling.
type Extended struct {
	Title  string
	Artist string
	Album  string
}

// AsJSON renders up to limit live tracks starting at offset, skipping
// tracks for which filter returns false, marking the track whose file
// hash equals activeHash as active. When extended is non-nil it supplies
// per-file-hash display fields.
func (p *Playlist) AsJSON(limit, offset int, filter func(Track) bool, activeHash string, extended map[string]Extended) ([]byte, error) {
	live := p.Tracks()
	out := make([]JSONTrack, 0, limit)
	skipped := 0
	for _, t := range live {
		if filter != nil && !filter(t) {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		if limit > 0 && len(out) >= limit {
			break
		}
		jt := JSONTrack{
			Index:    t.Index,
			FileHash: t.FileHash,
			Path:     t.Path,
			ModTime:  t.ModTime.Unix(),
			Active:   activeHash != "" && t.FileHash == activeHash,
		}
		if extended != nil {
			if e, ok := extended[t.FileHash]; ok {
				jt.Title, jt.Artist, jt.Album = e.Title, e.Artist, e.Album
			}
		}
		out = append(out, jt)
	}
	return json.Marshal(out)
}

// AsM3U renders up to limit live tracks starting at offset as an extended
// M3U playlist, with paths rewritten relative to webRoot when the track
// path is beneath it.
func (p *Playlist) AsM3U(webRoot string, limit, offset int) string {
	live := p.Tracks()
	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	emitted := 0
	for i, t := range live {
		if i < offset {
			continue
		}
		if limit > 0 && emitted >= limit {
			break
		}
		path := t.Path
		if webRoot != "" && strings.HasPrefix(path, webRoot) {
			path = strings.TrimPrefix(path, webRoot)
			path = strings.TrimPrefix(path, "/")
		}
		fmt.Fprintf(&b, "#EXTINF:-1,%s\n%s\n", t.FileHash, path)
		emitted++
	}
	return b.String()
}
