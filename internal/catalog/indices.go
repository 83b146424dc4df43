package catalog

import (
	"sort"
	"strings"
)

// rebuildIndicesLocked recomputes every derived index from scratch (§4.2):
// sort live songs by album-artist, detect compilations album-by-album,
// build album maps, per-class artist sets, per-class letter indices and the
// "recent" album list. Called with l.mu already held for writing.
func (l *Library) rebuildIndicesLocked() {
	live := make([]SongId, 0, len(l.order))
	for _, id := range l.order {
		if !l.arena[id].Deleted {
			live = append(live, id)
		}
	}

	sort.SliceStable(live, func(i, j int) bool {
		return strings.ToLower(l.arena[live[i]].AlbumArtist) < strings.ToLower(l.arena[live[j]].AlbumArtist)
	})

	l.detectCompilationsLocked(live)

	albumsByHash := make(map[string]*Album)
	albumOrder := make([]string, 0)
	for _, id := range live {
		s := l.song(id)
		a, ok := albumsByHash[s.AlbumHash]
		if !ok {
			a = &Album{
				Hash:           s.AlbumHash,
				SortKey:        s.AlbumSortKey,
				Name:           s.Album,
				Artist:         s.AlbumArtist,
				OriginalArtist: s.OriginalAlbumArtist,
				Genre:          s.Genre,
				Compilation:    s.Compilation,
				InsertedAt:     s.InsertedAt,
				Date:           s.Date,
				Year:           s.Year,
				DisplayArtist:  s.DisplayAlbumArtist,
				DisplayAlbum:   s.DisplayAlbum,
			}
			albumsByHash[s.AlbumHash] = a
			albumOrder = append(albumOrder, s.AlbumHash)
		}
		a.Songs = append(a.Songs, id)
		if s.InsertedAt.After(a.InsertedAt) {
			a.InsertedAt = s.InsertedAt
		}
	}
	for _, a := range albumsByHash {
		a.TrackCount = len(a.Songs)
	}

	albumsBySortKey := make(map[string]*Album, len(albumsByHash))
	sortKeys := make([]string, 0, len(albumsByHash))
	for _, a := range albumsByHash {
		albumsBySortKey[a.SortKey] = a
		sortKeys = append(sortKeys, a.SortKey)
	}
	sort.Strings(sortKeys)

	artistIndex := make(map[MediaClass]map[string]bool)
	letterIndex := make(map[MediaClass]map[byte]int)
	ensureClass := func(c MediaClass) {
		if artistIndex[c] == nil {
			artistIndex[c] = make(map[string]bool)
			letterIndex[c] = make(map[byte]int)
		}
	}
	allClasses := []MediaClass{MediaCD, MediaHDCD, MediaDSD, MediaDVD, MediaBD, MediaHR}
	ensureClass(MediaUnknown) // "all" bucket, keyed by MediaUnknown by convention
	for _, c := range allClasses {
		ensureClass(c)
	}

	seenArtistClass := make(map[string]map[MediaClass]bool)
	for _, id := range live {
		s := l.song(id)
		artist := s.AlbumArtist
		if seenArtistClass[artist] == nil {
			seenArtistClass[artist] = make(map[MediaClass]bool)
		}
		if seenArtistClass[artist][s.MediaClass] {
			continue
		}
		seenArtistClass[artist][s.MediaClass] = true

		letter := letterFor(artist, s.Compilation)
		if !artistIndex[MediaUnknown][artist] {
			artistIndex[MediaUnknown][artist] = true
			letterIndex[MediaUnknown][letter]++
		}
		if !artistIndex[s.MediaClass][artist] {
			artistIndex[s.MediaClass][artist] = true
			letterIndex[s.MediaClass][letter]++
		}

		// Deep name inspection additionally buckets the artist under every
		// other qualifying word in the name, on top of the primary letter
		// above; it never touches artistIndex, so ArtistCount stays exactly
		// one membership per artist per class.
		if l.cfg.AllowDeepNameInspection && !s.Compilation {
			for _, extra := range deepLetters(artist) {
				if extra == letter {
					continue
				}
				letterIndex[MediaUnknown][extra]++
				letterIndex[s.MediaClass][extra]++
			}
		}
	}

	recent := make([]*Album, 0, len(albumsByHash))
	for _, a := range albumsByHash {
		if !a.InsertedAt.IsZero() {
			recent = append(recent, a)
		}
	}
	sort.Slice(recent, func(i, j int) bool {
		if !recent[i].InsertedAt.Equal(recent[j].InsertedAt) {
			return recent[i].InsertedAt.After(recent[j].InsertedAt)
		}
		return recent[i].Year > recent[j].Year
	})

	l.albumsByHash = albumsByHash
	l.albumsBySortKey = albumsBySortKey
	l.albumSortKeys = sortKeys
	l.artistIndex = artistIndex
	l.letterIndex = letterIndex
	l.recent = recent
}

// detectCompilationsLocked walks songs sorted by album; if the original
// artist changes across tracks within one album, the album is a
// compilation and its songs' displayed artist becomes the various-artists
// literal, with original_artist preserved (§4.2).
func (l *Library) detectCompilationsLocked(live []SongId) {
	byAlbum := make(map[string][]SongId)
	order := make([]string, 0)
	for _, id := range live {
		s := l.song(id)
		if _, ok := byAlbum[s.AlbumHash]; !ok {
			order = append(order, s.AlbumHash)
		}
		byAlbum[s.AlbumHash] = append(byAlbum[s.AlbumHash], id)
	}

	for _, hash := range order {
		members := byAlbum[hash]
		sort.SliceStable(members, func(i, j int) bool {
			return l.arena[members[i]].Album < l.arena[members[j]].Album
		})
		var first string
		mixed := false
		for i, id := range members {
			s := l.song(id)
			name := s.OriginalArtist
			if name == "" {
				name = s.Artist
			}
			if i == 0 {
				first = name
			} else if name != first {
				mixed = true
			}
		}
		if !mixed {
			continue
		}
		for _, id := range members {
			s := l.song(id)
			if s.OriginalArtist == "" {
				s.OriginalArtist = s.Artist
			}
			s.Artist = variousArtistsLiteral
			s.Compilation = true
			s.DisplayArtist = variousArtistsLiteral
		}
	}
}

// letterFor returns the first-letter navigation bucket for an artist name:
// a compilation always buckets under '2'; otherwise the first character
// after an optional "The " prefix decides: an ASCII letter buckets under
// its upper-cased form, anything else under '1'.
func letterFor(artist string, compilation bool) byte {
	if compilation {
		return LetterCompilation
	}
	name := strings.TrimSpace(artist)
	const prefix = "The "
	if strings.HasPrefix(name, prefix) {
		name = name[len(prefix):]
	}
	if name == "" {
		return LetterOther
	}
	b := name[0]
	if b > 0x7F {
		// ASCII fast-path only; any byte above 0x7F is never a preamble.
		return LetterOther
	}
	if b >= 'a' && b <= 'z' {
		return b - 'a' + 'A'
	}
	if b >= 'A' && b <= 'Z' {
		return b
	}
	return LetterOther
}

// deepLetters returns the extra letter buckets a multi-word artist name
// qualifies for beyond its primary letter (the original's
// filterArtistName/isValidSpace token walk): each word after a space is
// itself a qualifying bucket when it is longer than 3 characters, so
// "Emerson, Lake & Palmer" also indexes under 'L' and 'P' in addition to
// its primary 'E'.
func deepLetters(artist string) []byte {
	name := strings.TrimSpace(artist)
	var out []byte
	for i := 0; i < len(name); i++ {
		if name[i] != ' ' {
			continue
		}
		word := name[i+1:]
		if end := strings.IndexByte(word, ' '); end >= 0 {
			word = word[:end]
		}
		word = strings.TrimFunc(word, func(r rune) bool {
			return !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'))
		})
		if len(word) <= 3 {
			continue
		}
		out = append(out, upperLetter(word[0]))
	}
	return out
}

// upperLetter upper-cases an ASCII letter byte, or returns LetterOther for
// anything that isn't one, mirroring letterFor's classification.
func upperLetter(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - 'a' + 'A'
	}
	if b >= 'A' && b <= 'Z' {
		return b
	}
	return LetterOther
}

// ArtistCount returns the number of distinct album-artists indexed under
// class (MediaUnknown selects the "all" bucket).
func (l *Library) ArtistCount(class MediaClass) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.artistIndex[class])
}

// LetterCounts returns the per-letter artist counts for class.
func (l *Library) LetterCounts(class MediaClass) map[byte]int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[byte]int, len(l.letterIndex[class]))
	for k, v := range l.letterIndex[class] {
		out[k] = v
	}
	return out
}

// Recent returns the "recent" album list (insertion desc, then year desc).
func (l *Library) Recent() []*Album {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*Album, len(l.recent))
	copy(out, l.recent)
	return out
}

// AlbumCount returns the number of distinct albums.
func (l *Library) AlbumCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.albumsByHash)
}
