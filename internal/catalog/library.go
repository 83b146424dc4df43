package catalog

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// ScanError is returned for a single file skipped during import/rescan.
type ScanError struct {
	Path string
	Code int
	Text string
	Hint string
}

func (e *ScanError) Error() string {
	return e.Path + ": " + e.Text
}

// Parser is the dispatch interface the scanner implements per container
// format; Library.Import/Rescan drive it directly rather than depending on
// the scanner package, keeping the dependency direction A -> B (§2).
type Parser interface {
	// Parse reads path and returns a populated Song (sans Library-level
	// identity/normalization fields) or a *ScanError.
	Parse(path string) (*Song, error)
}

// Letter buckets used by the per-class letter index: 'A'..'Z', '1' for
// non-alphanumeric initials, '2' for compilations.
const (
	LetterOther       = '1'
	LetterCompilation = '2'
)

type artistClassEntry struct {
	classes map[MediaClass]bool
}

// Library owns the Song arena plus every derived index (§3/§4.2). All
// public mutating methods take the exclusive lock; this is the "library
// lock" named in §5's lock ordering (library, then pool).
type Library struct {
	mu sync.RWMutex

	cfg NormalizeOptions
	sortCaseSensitive bool
	sortAlbumsByYear  bool

	arena      []Song // arena[0] is a dummy; real songs start at index 1
	byFileHash map[string]SongId
	order      []SongId // insertion order, excludes tombstoned slots once committed

	albumsByHash    map[string]*Album
	albumSortKeys   []string // sorted keys into albumsBySortKey
	albumsBySortKey map[string]*Album

	// artistIndex[class][artistName] tracks which classes an artist has
	// at least one album in.
	artistIndex map[MediaClass]map[string]bool
	letterIndex map[MediaClass]map[byte]int

	recent []*Album

	errs []*ScanError
}

// NewLibrary constructs an empty Library.
func NewLibrary(opt NormalizeOptions, sortCaseSensitive, sortAlbumsByYear bool) *Library {
	return &Library{
		cfg:               opt,
		sortCaseSensitive: sortCaseSensitive,
		sortAlbumsByYear:  sortAlbumsByYear,
		arena:             make([]Song, 1), // slot 0 reserved for InvalidSongId
		byFileHash:        make(map[string]SongId),
		albumsByHash:      make(map[string]*Album),
		albumsBySortKey:   make(map[string]*Album),
		artistIndex:       make(map[MediaClass]map[string]bool),
		letterIndex:       make(map[MediaClass]map[byte]int),
	}
}

// SongCount returns the number of live (non-deleted) songs.
func (l *Library) SongCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := 0
	for _, id := range l.order {
		if !l.arena[id].Deleted {
			n++
		}
	}
	return n
}

func (l *Library) song(id SongId) *Song {
	return &l.arena[id]
}

// Song returns a copy of the song at id, or false if it does not exist or
// is deleted.
func (l *Library) Song(id SongId) (Song, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if id == InvalidSongId || int(id) >= len(l.arena) || l.arena[id].Deleted {
		return Song{}, false
	}
	return l.arena[id], true
}

// FindByFileHash returns the live song with the given file hash.
func (l *Library) FindByFileHash(hash string) (SongId, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	id, ok := l.byFileHash[hash]
	if !ok || l.arena[id].Deleted {
		return InvalidSongId, false
	}
	return id, true
}

// FindByAlbumHash returns the album with the given hash.
func (l *Library) FindByAlbumHash(hash string) (*Album, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	a, ok := l.albumsByHash[hash]
	return a, ok
}

// FindByFilenamePrefix returns every live song whose basename has the given
// prefix (case-insensitive), in arena order.
func (l *Library) FindByFilenamePrefix(prefix string) []SongId {
	l.mu.RLock()
	defer l.mu.RUnlock()
	prefix = strings.ToLower(prefix)
	var out []SongId
	for _, id := range l.order {
		s := &l.arena[id]
		if s.Deleted {
			continue
		}
		if strings.HasPrefix(strings.ToLower(s.Basename), prefix) {
			out = append(out, id)
		}
	}
	return out
}

// noscanSentinel is the marker file name that excludes a directory's
// contents from import/rescan.
const noscanSentinel = "noscan"

// Import walks paths, scanning every file matching any of patterns
// (shell glob syntax against the basename) via dispatch, adds valid songs,
// and rebuilds the indices. Directories containing a "noscan" file are
// skipped entirely. Returns the count of newly added songs.
func (l *Library) Import(paths []string, patterns []string, parser Parser) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	added := 0
	for _, root := range paths {
		err := l.walk(root, func(path string) {
			if !matchesAny(patterns, filepath.Base(path)) {
				return
			}
			if l.addFileLocked(path, parser) {
				added++
			}
		})
		if err != nil {
			return added, errors.Wrapf(err, "importing %s", root)
		}
	}
	l.rebuildIndicesLocked()
	return added, nil
}

// Rescan marks every existing song not-loaded, re-walks paths, and for a
// file whose hash already exists compares (size, mtime): unchanged files are
// marked loaded in place; changed files are re-parsed into the same Song
// object so playlist references survive. After the walk, the commit at the
// end of this call marks any song still not-loaded deleted and drops it
// from the live order and the file-hash map; its arena slot stays.
func (l *Library) Rescan(paths []string, patterns []string, parser Parser, rebuild bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.arena {
		l.arena[i].Loaded = false
	}

	for _, root := range paths {
		err := l.walk(root, func(path string) {
			if !matchesAny(patterns, filepath.Base(path)) {
				return
			}
			l.rescanFileLocked(path, parser)
		})
		if err != nil {
			return errors.Wrapf(err, "rescanning %s", root)
		}
	}

	l.commitLocked()
	if rebuild {
		l.rebuildIndicesLocked()
	}
	return nil
}

func (l *Library) walk(root string, visit func(path string)) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if _, statErr := os.Stat(filepath.Join(path, noscanSentinel)); statErr == nil {
				return filepath.SkipDir
			}
			return nil
		}
		visit(path)
		return nil
	})
}

func matchesAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, _ := filepath.Match(p, strings.ToLower(name)); ok {
			return true
		}
		if ok, _ := filepath.Match(strings.ToLower(p), strings.ToLower(name)); ok {
			return true
		}
	}
	return false
}

func (l *Library) addFileLocked(path string, parser Parser) bool {
	fh := FileHash(path)
	if _, exists := l.byFileHash[fh]; exists {
		return false
	}
	song, err := parser.Parse(path)
	if err != nil {
		l.recordError(path, err)
		return false
	}
	l.finishSong(song, path, fh)
	l.arena = append(l.arena, *song)
	id := SongId(len(l.arena) - 1)
	l.arena[id].ID = id
	l.byFileHash[fh] = id
	l.order = append(l.order, id)
	return true
}

func (l *Library) rescanFileLocked(path string, parser Parser) {
	fh := FileHash(path)
	info, statErr := os.Stat(path)
	if existingID, ok := l.byFileHash[fh]; ok {
		existing := l.song(existingID)
		if statErr == nil && existing.SizeBytes == info.Size() && existing.ModTime.Equal(info.ModTime()) {
			existing.Loaded = true
			return
		}
		song, err := parser.Parse(path)
		if err != nil {
			l.recordError(path, err)
			return
		}
		l.finishSong(song, path, fh)
		song.ID = existingID
		song.Loaded = true
		*existing = *song
		return
	}
	song, err := parser.Parse(path)
	if err != nil {
		l.recordError(path, err)
		return
	}
	l.finishSong(song, path, fh)
	song.Loaded = true
	l.arena = append(l.arena, *song)
	id := SongId(len(l.arena) - 1)
	l.arena[id].ID = id
	l.byFileHash[fh] = id
	l.order = append(l.order, id)
}

func (l *Library) finishSong(song *Song, path, fh string) {
	song.Path = path
	song.Basename = filepath.Base(path)
	song.Ext = strings.ToLower(filepath.Ext(path))
	song.Folder = filepath.Dir(path)
	song.FileHash = fh
	song.InsertedAt = time.Now()
	if info, err := os.Stat(path); err == nil {
		song.SizeBytes = info.Size()
		song.ModTime = info.ModTime()
	}
	song.MediaClass = DeriveMediaClass(song.SampleRate, song.BitsPerSample)

	Normalize(song, path, l.cfg)
	song.TitleHash = TitleHash(song.Folder, song.AlbumSortKey, song.Title)
	song.AlbumHash = AlbumHash(song.Album, song.AlbumArtist)
}

func (l *Library) recordError(path string, err error) {
	se, ok := err.(*ScanError)
	if !ok {
		se = &ScanError{Path: path, Code: -1, Text: err.Error()}
	}
	l.errs = append(l.errs, se)
}

// Errors returns the scan errors accumulated by the most recent
// Import/Rescan call.
func (l *Library) Errors() []*ScanError {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*ScanError, len(l.errs))
	copy(out, l.errs)
	return out
}

// commitLocked physically removes songs still not-loaded after a rescan
// (tombstone followed by erase, per §3's lifecycle note).
func (l *Library) commitLocked() {
	kept := l.order[:0]
	for _, id := range l.order {
		s := l.song(id)
		if !s.Loaded && !s.Deleted {
			s.Deleted = true
		}
		if !s.Deleted {
			kept = append(kept, id)
		} else {
			delete(l.byFileHash, s.FileHash)
		}
	}
	l.order = kept
}

// RemoveByFileHash marks a song deleted without erasing its arena slot
// (physical erase happens only via commit during the next rescan).
func (l *Library) RemoveByFileHash(hash string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	id, ok := l.byFileHash[hash]
	if !ok {
		return false
	}
	l.arena[id].Deleted = true
	return true
}

// SortField selects a Library.SortBy comparator.
type SortField int

const (
	SortByTime SortField = iota
	SortByAlbum
	SortByArtist
	SortByAlbumArtist
)

// SortBy returns live song ids ordered by field, tie-broken by
// (disk, track, insertion index) as required by §4.2.
func (l *Library) SortBy(field SortField) []SongId {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ids := make([]SongId, 0, len(l.order))
	for _, id := range l.order {
		if !l.arena[id].Deleted {
			ids = append(ids, id)
		}
	}

	less := l.comparator(field)
	sort.SliceStable(ids, func(i, j int) bool {
		return less(&l.arena[ids[i]], &l.arena[ids[j]])
	})
	return ids
}

func (l *Library) comparator(field SortField) func(a, b *Song) bool {
	fold := func(s string) string {
		if l.sortCaseSensitive {
			return s
		}
		return strings.ToLower(s)
	}
	primary := func(a, b *Song) int {
		switch field {
		case SortByTime:
			if a.ModTime.Before(b.ModTime) {
				return -1
			} else if a.ModTime.After(b.ModTime) {
				return 1
			}
			return 0
		case SortByAlbum:
			return naturalCompare(fold(a.Album), fold(b.Album))
		case SortByArtist:
			return naturalCompare(fold(a.Artist), fold(b.Artist))
		case SortByAlbumArtist:
			return naturalCompare(fold(a.AlbumArtist), fold(b.AlbumArtist))
		default:
			return 0
		}
	}
	return func(a, b *Song) bool {
		if c := primary(a, b); c != 0 {
			return c < 0
		}
		if a.Disk != b.Disk {
			return a.Disk < b.Disk
		}
		if a.Track != b.Track {
			return a.Track < b.Track
		}
		return a.ID < b.ID
	}
}

// naturalCompare compares strings treating embedded digit runs as numbers,
// so "track2" sorts before "track10".
func naturalCompare(a, b string) int {
	ai, bi := 0, 0
	for ai < len(a) && bi < len(b) {
		ca, cb := a[ai], b[bi]
		if isDigit(ca) && isDigit(cb) {
			sa := ai
			for ai < len(a) && isDigit(a[ai]) {
				ai++
			}
			sb := bi
			for bi < len(b) && isDigit(b[bi]) {
				bi++
			}
			na, _ := strconv.Atoi(a[sa:ai])
			nb, _ := strconv.Atoi(b[sb:bi])
			if na != nb {
				if na < nb {
					return -1
				}
				return 1
			}
			continue
		}
		if ca != cb {
			if ca < cb {
				return -1
			}
			return 1
		}
		ai++
		bi++
	}
	return len(a) - len(b)
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
