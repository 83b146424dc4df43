package catalog

import "testing"

func TestNormalize_Idempotent(t *testing.T) {
	opt := NormalizeOptions{
		AllowFullNameSwap:         true,
		AllowTheBandPrefixSwap:    true,
		AllowMovePreamble:         true,
		AllowVariousArtistsRename: true,
	}

	s := &Song{
		Artist:      "Ludwig van Beethoven",
		AlbumArtist: "The Motors",
		Album:       "[Live] Wish You Were Here",
		Title:       "Track One",
		Year:        1850,
	}

	Normalize(s, "/music/various/comp/track.flac", opt)
	first := *s
	Normalize(s, "/music/various/comp/track.flac", opt)

	if s.Artist != first.Artist || s.AlbumArtist != first.AlbumArtist || s.Album != first.Album {
		t.Fatalf("normalize is not idempotent: first=%+v second=%+v", first, *s)
	}
}

func TestNormalize_EmptyArtistFallsBackToAlbumArtist(t *testing.T) {
	s := &Song{AlbumArtist: "Pink Floyd"}
	Normalize(s, "/music/a.flac", NormalizeOptions{})
	if s.Artist != "Pink Floyd" {
		t.Errorf("want Artist to fall back to %q, got %q", "Pink Floyd", s.Artist)
	}
}

func TestNormalize_TheBandPrefixSwap(t *testing.T) {
	s := &Song{Artist: "The Motors", AlbumArtist: "The Who"}
	Normalize(s, "/music/a.flac", NormalizeOptions{AllowTheBandPrefixSwap: true})
	if s.Artist != "Motors, The" {
		t.Errorf("want %q, got %q", "Motors, The", s.Artist)
	}
	if s.AlbumArtist != "Who, The" {
		t.Errorf("want %q, got %q", "Who, The", s.AlbumArtist)
	}
}

func TestNormalize_MovesLeadingPreamble(t *testing.T) {
	s := &Song{Album: "[Live] Wish You Were Here"}
	Normalize(s, "/music/a.flac", NormalizeOptions{AllowMovePreamble: true})
	if s.Album != "Wish You Were Here [Live]" {
		t.Errorf("want %q, got %q", "Wish You Were Here [Live]", s.Album)
	}
}

func TestNormalize_VariousArtistsRename(t *testing.T) {
	s := &Song{Artist: "Artist A", AlbumArtist: "Artist A", Album: "Compilation"}
	Normalize(s, "/music/Various Artists/comp/track.flac", NormalizeOptions{AllowVariousArtistsRename: true})
	if s.Artist != variousArtistsLiteral {
		t.Errorf("want the artist rewritten to %q, got %q", variousArtistsLiteral, s.Artist)
	}
	if s.OriginalArtist != "Artist A" {
		t.Errorf("want the original artist preserved as %q, got %q", "Artist A", s.OriginalArtist)
	}
}

func TestNormalize_YearClamp(t *testing.T) {
	s := &Song{Year: 1850}
	Normalize(s, "/music/a.flac", NormalizeOptions{})
	if s.Year != 1900 {
		t.Errorf("want the year clamped to 1900, got %d", s.Year)
	}
}
