package catalog

import (
	"html"
	"regexp"
	"strings"
)

// NormalizeOptions controls the optional, configurable steps of
// Normalize; it is filled in from config.LibraryConfig.
type NormalizeOptions struct {
	AllowFullNameSwap         bool
	AllowArtistNameRestore    bool
	AllowTheBandPrefixSwap    bool
	AllowMovePreamble         bool
	AllowVariousArtistsRename bool

	// AllowDeepNameInspection controls the letter-index token walk in
	// rebuildIndicesLocked (indices.go), not Normalize itself; it lives
	// here because it is the same per-library, config-driven switch.
	AllowDeepNameInspection bool
}

const variousArtistsLiteral = "Various Artists"

var variousArtistsMarkers = []string{"sampler", "various", "soundtrack", "compilation", "divers"}

// Normalize applies the scanner's tag-normalization pipeline to a freshly
// parsed Song, in the fixed order spec'd: empty-artist fallback, optional
// full-name swap, optional "The Band" prefix swap, optional move-preamble,
// optional various-artists rename, album-sort-key + hashes, HTML-escape,
// year clamp. It is idempotent: running it twice on its own output is a
// no-op, because every step either already converges (the swaps flip back
// and forth only once, guarded by looking at the current form) or is itself
// pure (hashing, escaping, clamping).
func Normalize(s *Song, sourcePath string, opt NormalizeOptions) {
	// 1. empty-artist fallback.
	if strings.TrimSpace(s.Artist) == "" && strings.TrimSpace(s.AlbumArtist) != "" {
		s.Artist = s.AlbumArtist
	}

	// 2. optional full-name swap, or its opposite restore direction.
	// The two are mutually exclusive: swap re-orders "First Last" to
	// "Last, First"; restore un-swaps "Last, First" back to "First Last".
	switch {
	case opt.AllowFullNameSwap:
		s.Artist = swapFullName(s.Artist)
		s.AlbumArtist = swapFullName(s.AlbumArtist)
	case opt.AllowArtistNameRestore:
		s.Artist = restoreArtistName(s.Artist)
		s.AlbumArtist = restoreArtistName(s.AlbumArtist)
	}

	// 3. optional "The Band" prefix swap.
	if opt.AllowTheBandPrefixSwap {
		s.Artist = swapTheBandPrefix(s.Artist)
		s.AlbumArtist = swapTheBandPrefix(s.AlbumArtist)
	}

	// 4. optional move-preamble on the album title.
	if opt.AllowMovePreamble {
		s.Album = movePreamble(s.Album)
	}

	// 5. optional various-artists rename.
	if opt.AllowVariousArtistsRename && (s.Compilation || pathLooksLikeCompilation(sourcePath)) {
		if s.OriginalArtist == "" {
			s.OriginalArtist = s.Artist
		}
		if s.OriginalAlbumArtist == "" {
			s.OriginalAlbumArtist = s.AlbumArtist
		}
		s.Artist = variousArtistsLiteral
		s.AlbumArtist = variousArtistsLiteral
		s.Compilation = true
	}

	// 6. album-sort key + hashes.
	s.AlbumSortKey = AlbumSortKey(s.Album, s.AlbumArtist)
	s.AlbumSortHash = rollingHash64(s.AlbumSortKey)
	s.ArtistSort = strings.ToLower(s.Artist)
	s.AlbumArtistSort = strings.ToLower(s.AlbumArtist)
	s.ArtistSortHash = rollingHash64(s.ArtistSort)

	// 7. HTML-escape display fields.
	s.DisplayArtist = html.EscapeString(s.Artist)
	s.DisplayAlbumArtist = html.EscapeString(s.AlbumArtist)
	s.DisplayAlbum = html.EscapeString(s.Album)
	s.DisplayTitle = html.EscapeString(s.Title)
	s.DisplayGenre = html.EscapeString(s.Genre)

	// 8. year clamp.
	if s.Year < 1900 {
		s.Year = 1900
	}
	s.YearSort = s.Year
}

// swapFullName converts "First Middle Last" to "Last, First Middle". A name
// already in "Last, First" form (it contains a comma) is left untouched, so
// applying the step twice is a no-op — required for Normalize as a whole to
// be idempotent.
func swapFullName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || strings.Contains(name, ",") {
		return name
	}
	fields := strings.Fields(name)
	if len(fields) < 2 {
		return name
	}
	last := fields[len(fields)-1]
	rest := strings.Join(fields[:len(fields)-1], " ")
	return last + ", " + rest
}

// restoreArtistName converts "Last, First" back to "First Last", the
// opposite of swapFullName. It only fires when the given-name portion is
// short (under 15 characters), the same guard the original uses to avoid
// mangling names that merely happen to contain a comma for other reasons.
// Names with no ", " separator are returned unchanged, so a second pass is
// a no-op.
func restoreArtistName(name string) string {
	sep := strings.Index(name, ", ")
	if sep < 0 {
		return name
	}
	last := name[:sep]
	given := name[sep+2:]
	if last == "" || given == "" || len(given) >= 15 {
		return name
	}
	return given + " " + last
}

// swapTheBandPrefix converts "The Motors" to "Motors, The". A name already
// in "X, The" form is left untouched, keeping the step idempotent.
func swapTheBandPrefix(name string) string {
	if strings.HasSuffix(name, ", The") {
		return name
	}
	const prefix = "The "
	if strings.HasPrefix(name, prefix) {
		return strings.TrimPrefix(name, prefix) + ", The"
	}
	return name
}

var preambleRe = regexp.MustCompile(`^(\[[^\]]*\]|\([^)]*\))\s*`)

// movePreamble rotates a leading bracketed/parenthesized token to the end
// of the album title, e.g. "[Live] Wish You Were Here" ->
// "Wish You Were Here [Live]". Running it twice is a no-op because the
// second pass finds no leading preamble token left to move.
func movePreamble(album string) string {
	loc := preambleRe.FindStringIndex(album)
	if loc == nil {
		return album
	}
	preamble := strings.TrimSpace(album[loc[0]:loc[1]])
	rest := strings.TrimSpace(album[loc[1]:])
	if rest == "" {
		return album
	}
	return rest + " " + preamble
}

func pathLooksLikeCompilation(path string) bool {
	lower := strings.ToLower(path)
	for _, marker := range variousArtistsMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
