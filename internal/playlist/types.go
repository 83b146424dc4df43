// Package playlist implements the Playlist Set (§4.3): named, ordered
// queues of Tracks, each Track a reference to a catalog Song by file hash
// rather than an owned copy.
package playlist

import "time"

// Track is one ordered entry in a Playlist. It references a Song by
// FileHash rather than by SongId so a track survives a library rescan that
// reassigns SongIds; Rebuild re-resolves the reference.
type Track struct {
	Index      int
	SongID     uint32 // catalog.SongId of the resolved Song, 0 if unresolved
	FileHash   string
	Path       string
	ModTime    time.Time
	Deleted    bool // moved to the garbage list, pending collection
	Removed    bool // collected out of the garbage list
	Deferred   bool
	Randomized bool
}

// Playlist is one named, ordered queue of Tracks.
type Playlist struct {
	Name    string
	tracks  []Track
	garbage []Track
	modTime time.Time
}

func newPlaylist(name string) *Playlist {
	return &Playlist{Name: name, modTime: time.Time{}}
}

// Len returns the number of live (non-deleted) tracks.
func (p *Playlist) Len() int {
	n := 0
	for _, t := range p.tracks {
		if !t.Deleted {
			n++
		}
	}
	return n
}

// Tracks returns a copy of the live track slice, in order.
func (p *Playlist) Tracks() []Track {
	out := make([]Track, 0, len(p.tracks))
	for _, t := range p.tracks {
		if !t.Deleted {
			out = append(out, t)
		}
	}
	return out
}

func (p *Playlist) reindex() {
	idx := 0
	for i := range p.tracks {
		if p.tracks[i].Deleted {
			continue
		}
		p.tracks[i].Index = idx
		idx++
	}
}

// ModTime returns the last time this playlist was touched, used to order
// the Playlists container's "recent" listing.
func (p *Playlist) ModTime() time.Time {
	return p.modTime
}

// RecentName is the reserved name of the always-present recent playlist.
const RecentName = "state"

// Playlists is the container of every named Playlist plus the bookkeeping
// of which one is selected and which, if any, is currently playing.
type Playlists struct {
	byName   map[string]*Playlist
	order    []string
	selected string
	playing  string
}

// NewPlaylists constructs an empty container already holding the reserved
// recent playlist.
func NewPlaylists() *Playlists {
	ps := &Playlists{byName: make(map[string]*Playlist)}
	recent := newPlaylist(RecentName)
	ps.byName[RecentName] = recent
	ps.order = append(ps.order, RecentName)
	ps.selected = RecentName
	return ps
}

// Names returns every playlist name in creation order.
func (ps *Playlists) Names() []string {
	out := make([]string, len(ps.order))
	copy(out, ps.order)
	return out
}

// Get returns the named playlist, or nil if it does not exist.
func (ps *Playlists) Get(name string) *Playlist {
	return ps.byName[name]
}

// Create adds a new, empty named playlist. The name must be unique and
// must not be the reserved recent-playlist name.
func (ps *Playlists) Create(name string) (*Playlist, error) {
	if name == RecentName {
		return nil, newOpError("create", ErrRecentImmutable)
	}
	if _, exists := ps.byName[name]; exists {
		return nil, newOpError("create", ErrDuplicateName)
	}
	p := newPlaylist(name)
	ps.byName[name] = p
	ps.order = append(ps.order, name)
	return p, nil
}

// Remove deletes a named playlist. Removing the recent playlist instead
// only clears its items; it is never destroyed.
func (ps *Playlists) Remove(name string) error {
	if name == RecentName {
		recent := ps.byName[RecentName]
		recent.tracks = nil
		recent.garbage = nil
		return nil
	}
	if _, exists := ps.byName[name]; !exists {
		return newOpError("remove", ErrTrackNotFound)
	}
	delete(ps.byName, name)
	for i, n := range ps.order {
		if n == name {
			ps.order = append(ps.order[:i], ps.order[i+1:]...)
			break
		}
	}
	if ps.selected == name {
		ps.selected = RecentName
	}
	if ps.playing == name {
		ps.playing = ""
	}
	return nil
}

// Rename changes a playlist's name. Per §4.3, callers must ensure the new
// file exists on disk before the old one is removed; this method only
// updates the in-memory container (see persistence.go's SaveAs/Remove
// sequencing for the on-disk half of that guarantee).
func (ps *Playlists) Rename(oldName, newName string) error {
	if oldName == RecentName || newName == RecentName {
		return newOpError("rename", ErrRecentImmutable)
	}
	p, exists := ps.byName[oldName]
	if !exists {
		return newOpError("rename", ErrTrackNotFound)
	}
	if _, taken := ps.byName[newName]; taken {
		return newOpError("rename", ErrDuplicateName)
	}
	delete(ps.byName, oldName)
	p.Name = newName
	ps.byName[newName] = p
	for i, n := range ps.order {
		if n == oldName {
			ps.order[i] = newName
			break
		}
	}
	if ps.selected == oldName {
		ps.selected = newName
	}
	if ps.playing == oldName {
		ps.playing = newName
	}
	return nil
}

// Selected returns the currently selected playlist, defaulting to the
// recent playlist.
func (ps *Playlists) Selected() *Playlist {
	return ps.byName[ps.selected]
}

// SelectedName reports the currently selected playlist's name.
func (ps *Playlists) SelectedName() string {
	return ps.selected
}

// Select marks name as the selected playlist.
func (ps *Playlists) Select(name string) error {
	if _, exists := ps.byName[name]; !exists {
		return newOpError("select", ErrTrackNotFound)
	}
	ps.selected = name
	return nil
}

// Playing returns the currently playing playlist, or nil if none.
func (ps *Playlists) Playing() *Playlist {
	if ps.playing == "" {
		return nil
	}
	return ps.byName[ps.playing]
}

// SetPlaying marks name as the playing playlist; an empty name clears it.
func (ps *Playlists) SetPlaying(name string) error {
	if name == "" {
		ps.playing = ""
		return nil
	}
	if _, exists := ps.byName[name]; !exists {
		return newOpError("set_playing", ErrTrackNotFound)
	}
	ps.playing = name
	return nil
}

// Recent returns the reserved recent playlist.
func (ps *Playlists) Recent() *Playlist {
	return ps.byName[RecentName]
}

// Adopt registers a Playlist built directly by Load (rather than by
// Create), used at startup to restore every persisted playlist file. The
// recent playlist replaces the container's pre-seeded one instead of
// being rejected as a duplicate.
func (ps *Playlists) Adopt(p *Playlist) error {
	if p.Name == RecentName {
		ps.byName[RecentName] = p
		return nil
	}
	if _, exists := ps.byName[p.Name]; exists {
		return newOpError("adopt", ErrDuplicateName)
	}
	ps.byName[p.Name] = p
	ps.order = append(ps.order, p.Name)
	return nil
}
