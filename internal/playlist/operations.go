package playlist

import (
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/harmonia-audio/harmonia/internal/catalog"
)

// Position chooses where a newly-added track lands.
type Position int

const (
	Append Position = iota
	Insert
)

func (p *Playlist) insertAt(pos Position, t Track) {
	if pos == Insert {
		p.tracks = append([]Track{t}, p.tracks...)
	} else {
		p.tracks = append(p.tracks, t)
	}
	p.reindex()
	p.modTime = time.Now()
}

func trackFromSong(s *catalog.Song) Track {
	return Track{FileHash: s.FileHash, Path: s.Path, ModTime: s.ModTime, SongID: uint32(s.ID)}
}

// AddFile resolves path against lib by file hash and appends/inserts it.
func (p *Playlist) AddFile(lib *catalog.Library, path string, pos Position) error {
	hash := catalog.FileHash(path)
	return p.AddByHash(lib, hash, pos)
}

// AddByHash appends/inserts the song with the given file hash.
func (p *Playlist) AddByHash(lib *catalog.Library, fileHash string, pos Position) error {
	id, ok := lib.FindByFileHash(fileHash)
	if !ok {
		return newOpError("add_by_hash", errors.Wrap(ErrTrackNotFound, fileHash))
	}
	song, _ := lib.Song(id)
	p.insertAt(pos, trackFromSong(&song))
	return nil
}

// AddAlbum appends/inserts every song of the given album, in the album's
// stored song order.
func (p *Playlist) AddAlbum(lib *catalog.Library, albumHash string, pos Position) error {
	album, ok := lib.FindByAlbumHash(albumHash)
	if !ok {
		return newOpError("add_album", errors.Wrap(ErrTrackNotFound, albumHash))
	}
	for _, id := range album.Songs {
		song, ok := lib.Song(id)
		if !ok {
			continue
		}
		p.insertAt(pos, trackFromSong(&song))
	}
	return nil
}

// RemoveTrack marks the track at index deleted and moves it to the
// garbage list.
// RemoveTrack marks the track at index deleted and moves it to the
// garbage list. If the track is currently playing (per the engine's
// playing-track callback), it is marked Deferred instead: the engine frees
// it, via ResolveDeferred, once it reports the backing buffer Played.
func (p *Playlist) RemoveTrack(index int, isCurrentlyPlaying bool) error {
	for i := range p.tracks {
		if p.tracks[i].Deleted {
			continue
		}
		if p.tracks[i].Index == index {
			if isCurrentlyPlaying {
				p.tracks[i].Deferred = true
			} else {
				p.tracks[i].Deleted = true
				p.garbage = append(p.garbage, p.tracks[i])
			}
			p.reindex()
			p.modTime = time.Now()
			return nil
		}
	}
	return newOpError("remove_track", ErrIndexOutOfRange)
}

// ResolveDeferred converts a previously-deferred track (§9 "reference
// counting on shared buffers") to deleted once the engine reports its
// backing buffer Played.
func (p *Playlist) ResolveDeferred(fileHash string) {
	for i := range p.tracks {
		if p.tracks[i].Deferred && p.tracks[i].FileHash == fileHash {
			p.tracks[i].Deferred = false
			p.tracks[i].Deleted = true
			p.garbage = append(p.garbage, p.tracks[i])
		}
	}
	p.reindex()
}

// RemoveFile marks every track with the given file hash deleted.
func (p *Playlist) RemoveFile(fileHash string) error {
	found := false
	for i := range p.tracks {
		if p.tracks[i].Deleted || p.tracks[i].FileHash != fileHash {
			continue
		}
		p.tracks[i].Deleted = true
		p.garbage = append(p.garbage, p.tracks[i])
		found = true
	}
	if !found {
		return newOpError("remove_file", ErrTrackNotFound)
	}
	p.reindex()
	p.modTime = time.Now()
	return nil
}

// RemoveAlbum marks every track belonging to the given album deleted.
func (p *Playlist) RemoveAlbum(lib *catalog.Library, albumHash string) error {
	album, ok := lib.FindByAlbumHash(albumHash)
	if !ok {
		return newOpError("remove_album", ErrTrackNotFound)
	}
	hashes := make(map[string]bool, len(album.Songs))
	for _, id := range album.Songs {
		if song, ok := lib.Song(id); ok {
			hashes[song.FileHash] = true
		}
	}
	found := false
	for i := range p.tracks {
		if p.tracks[i].Deleted || !hashes[p.tracks[i].FileHash] {
			continue
		}
		p.tracks[i].Deleted = true
		p.garbage = append(p.garbage, p.tracks[i])
		found = true
	}
	if !found {
		return newOpError("remove_album", ErrTrackNotFound)
	}
	p.reindex()
	p.modTime = time.Now()
	return nil
}

// CollectGarbage drops every garbage track whose file hash is not among
// stillReferenced (e.g. referenced by the playback engine's current track).
func (p *Playlist) CollectGarbage(stillReferenced map[string]bool) {
	kept := p.garbage[:0]
	for _, t := range p.garbage {
		if stillReferenced[t.FileHash] {
			kept = append(kept, t)
			continue
		}
		t.Removed = true
	}
	p.garbage = kept
	live := p.tracks[:0]
	for _, t := range p.tracks {
		if t.Deleted && !stillReferenced[t.FileHash] {
			continue
		}
		live = append(live, t)
	}
	p.tracks = live
	p.reindex()
}

// DeleteOldest erases whole groups of tracks, starting from the group of
// the track with the oldest mod-time, until the live track count is <=
// maxSize. Tracks are grouped by containing directory (albumKeyForTrack),
// not by album hash.
func (p *Playlist) DeleteOldest(maxSize int) {
	for p.Len() > maxSize {
		live := p.Tracks()
		if len(live) == 0 {
			return
		}
		sort.Slice(live, func(a, b int) bool { return live[a].ModTime.Before(live[b].ModTime) })
		oldest := live[0]
		albumPrefix := albumKeyForTrack(oldest)
		removedAny := false
		for i := range p.tracks {
			if p.tracks[i].Deleted {
				continue
			}
			if albumKeyForTrack(p.tracks[i]) == albumPrefix {
				p.tracks[i].Deleted = true
				p.garbage = append(p.garbage, p.tracks[i])
				removedAny = true
			}
		}
		p.reindex()
		if !removedAny {
			return
		}
	}
	p.modTime = time.Now()
}

// albumKeyForTrack groups tracks by containing directory, a stand-in for
// "same album" when only the Track's Path/FileHash are on hand; callers
// that need the real album hash should use RemoveAlbum instead.
func albumKeyForTrack(t Track) string {
	i := len(t.Path) - 1
	for i >= 0 && t.Path[i] != '/' {
		i--
	}
	if i < 0 {
		return t.Path
	}
	return t.Path[:i]
}

// Reorder stably reorders a contiguous region. table lists file hashes in
// their desired order; the lowest-indexed matched live track defines the
// start of the region being reordered.
func (p *Playlist) Reorder(table []string) error {
	if len(table) == 0 {
		return nil
	}
	want := make(map[string]int, len(table))
	for i, h := range table {
		want[h] = i
	}
	live := p.Tracks()
	matchedIdx := make([]int, 0, len(table))
	for i, t := range live {
		if _, ok := want[t.FileHash]; ok {
			matchedIdx = append(matchedIdx, i)
		}
	}
	if len(matchedIdx) == 0 {
		return newOpError("reorder", ErrTrackNotFound)
	}
	start := matchedIdx[0]
	region := make([]Track, 0, len(matchedIdx))
	rest := make([]Track, 0, len(live)-start)
	for _, t := range live[start:] {
		if _, ok := want[t.FileHash]; ok {
			region = append(region, t)
		} else {
			rest = append(rest, t)
		}
	}
	sort.SliceStable(region, func(a, b int) bool {
		return want[region[a].FileHash] < want[region[b].FileHash]
	})
	live = append(append(live[:start:start], region...), rest...)
	newTracks := make([]Track, 0, len(p.tracks))
	liveIdx := 0
	for _, t := range p.tracks {
		if t.Deleted {
			newTracks = append(newTracks, t)
			continue
		}
		newTracks = append(newTracks, live[liveIdx])
		liveIdx++
	}
	p.tracks = newTracks
	p.reindex()
	p.modTime = time.Now()
	return nil
}

// TouchAlbum updates ModTime to now on every live track belonging to the
// given album.
func (p *Playlist) TouchAlbum(lib *catalog.Library, albumHash string) error {
	album, ok := lib.FindByAlbumHash(albumHash)
	if !ok {
		return newOpError("touch_album", ErrTrackNotFound)
	}
	hashes := make(map[string]bool, len(album.Songs))
	for _, id := range album.Songs {
		if song, ok := lib.Song(id); ok {
			hashes[song.FileHash] = true
		}
	}
	now := time.Now()
	for i := range p.tracks {
		if p.tracks[i].Deleted || !hashes[p.tracks[i].FileHash] {
			continue
		}
		p.tracks[i].ModTime = now
	}
	p.modTime = now
	return nil
}

// Rebuild reattaches every track to a fresh SongId after a library reload;
// tracks whose file hash no longer resolves are marked deleted.
func (p *Playlist) Rebuild(lib *catalog.Library) {
	for i := range p.tracks {
		if p.tracks[i].Deleted {
			continue
		}
		id, ok := lib.FindByFileHash(p.tracks[i].FileHash)
		if !ok {
			p.tracks[i].Deleted = true
			p.garbage = append(p.garbage, p.tracks[i])
			continue
		}
		song, _ := lib.Song(id)
		p.tracks[i].SongID = uint32(id)
		p.tracks[i].Path = song.Path
		p.tracks[i].ModTime = song.ModTime
	}
	p.reindex()
}

// NextTrack returns the live track immediately after the one at index, or
// false past the end.
func (p *Playlist) NextTrack(index int) (Track, bool) {
	live := p.Tracks()
	for i, t := range live {
		if t.Index == index && i+1 < len(live) {
			return live[i+1], true
		}
	}
	return Track{}, false
}

// PrevTrack returns the live track immediately before the one at index.
func (p *Playlist) PrevTrack(index int) (Track, bool) {
	live := p.Tracks()
	for i, t := range live {
		if t.Index == index && i > 0 {
			return live[i-1], true
		}
	}
	return Track{}, false
}

// TrackAt returns the live track at index.
func (p *Playlist) TrackAt(index int) (Track, bool) {
	for _, t := range p.tracks {
		if !t.Deleted && t.Index == index {
			return t, true
		}
	}
	return Track{}, false
}

// SongsToShuffleLeft counts live tracks whose Randomized flag is false.
// When the shuffle policy (owned by the playback engine) sees this reach
// zero, it resets every flag and picks a new random order for the set.
func (p *Playlist) SongsToShuffleLeft() int {
	n := 0
	for _, t := range p.tracks {
		if !t.Deleted && !t.Randomized {
			n++
		}
	}
	return n
}

// ResetShuffle clears Randomized on every live track, starting a new
// shuffle cycle.
func (p *Playlist) ResetShuffle() {
	for i := range p.tracks {
		p.tracks[i].Randomized = false
	}
}

// MarkShuffled sets Randomized on the track at index.
func (p *Playlist) MarkShuffled(index int) {
	for i := range p.tracks {
		if !p.tracks[i].Deleted && p.tracks[i].Index == index {
			p.tracks[i].Randomized = true
			return
		}
	}
}
