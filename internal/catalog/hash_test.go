package catalog

import "testing"

func TestFileHash_StableForSamePath(t *testing.T) {
	h1 := FileHash("/music/a.flac")
	h2 := FileHash("/music/a.flac")
	if h1 != h2 {
		t.Fatalf("FileHash for the same path should match: %q != %q", h1, h2)
	}
	if FileHash("/music/a.flac") == FileHash("/music/b.flac") {
		t.Fatalf("different paths should not produce the same FileHash")
	}
}

func TestAlbumHash_ConsistentWithCaseFoldedSortKey(t *testing.T) {
	h1 := AlbumHash("Dark Side Of The Moon", "Pink Floyd")
	h2 := AlbumHash("dark side of the moon", "pink floyd")
	if h1 != h2 {
		t.Fatalf("AlbumHash should be case-insensitive: %q != %q", h1, h2)
	}
}

func TestRollingHash64_CaseInsensitive(t *testing.T) {
	if rollingHash64("ABBA") != rollingHash64("abba") {
		t.Fatalf("rollingHash64 should case-fold its input")
	}
}
