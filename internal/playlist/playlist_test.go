package playlist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/harmonia-audio/harmonia/internal/catalog"
)

type fakeParser struct {
	songs map[string]*catalog.Song
}

func (f fakeParser) Parse(path string) (*catalog.Song, error) {
	s, ok := f.songs[filepath.Base(path)]
	if !ok {
		return nil, &catalog.ScanError{Path: path, Code: -1, Text: "unknown"}
	}
	cp := *s
	return &cp, nil
}

func buildTestLibrary(t *testing.T, dir string, songs map[string]*catalog.Song) (*catalog.Library, map[string]string) {
	t.Helper()
	hashes := make(map[string]string, len(songs))
	for name := range songs {
		p := filepath.Join(dir, name)
		if err := writeEmptyFile(p); err != nil {
			t.Fatal(err)
		}
		hashes[name] = catalog.FileHash(p)
	}
	lib := catalog.NewLibrary(catalog.NormalizeOptions{}, false, false)
	if _, err := lib.Import([]string{dir}, []string{"*"}, fakeParser{songs: songs}); err != nil {
		t.Fatalf("Import: %v", err)
	}
	return lib, hashes
}

func writeEmptyFile(path string) error {
	return os.WriteFile(path, []byte("x"), 0o644)
}

func TestPlaylist_AddFileAppendAndInsert(t *testing.T) {
	dir := t.TempDir()
	songs := map[string]*catalog.Song{
		"a.flac": {Basename: "a.flac"},
		"b.flac": {Basename: "b.flac"},
	}
	lib, _ := buildTestLibrary(t, dir, songs)

	p := newPlaylist("我的歌单")
	for name := range songs {
		if err := p.AddFile(lib, filepath.Join(dir, name), Append); err != nil {
			t.Fatalf("AddFile(%s): %v", name, err)
		}
	}
	if p.Len() != 2 {
		t.Fatalf("want 2 tracks, got %d", p.Len())
	}

	songsC := map[string]*catalog.Song{"c.flac": {Basename: "c.flac"}}
	lib2, _ := buildTestLibrary(t, dir, songsC)
	if err := p.AddFile(lib2, filepath.Join(dir, "c.flac"), Insert); err != nil {
		t.Fatalf("AddFile insert: %v", err)
	}
	tracks := p.Tracks()
	if tracks[0].Path != filepath.Join(dir, "c.flac") {
		t.Fatalf("the inserted track should lead, got order %+v", tracks)
	}
}

func TestPlaylist_RemoveTrackMovesToGarbage(t *testing.T) {
	dir := t.TempDir()
	songs := map[string]*catalog.Song{"a.flac": {Basename: "a.flac"}}
	lib, _ := buildTestLibrary(t, dir, songs)

	p := newPlaylist("test")
	if err := p.AddFile(lib, filepath.Join(dir, "a.flac"), Append); err != nil {
		t.Fatal(err)
	}
	if err := p.RemoveTrack(0, false); err != nil {
		t.Fatalf("RemoveTrack: %v", err)
	}
	if p.Len() != 0 {
		t.Fatalf("want length 0 after removal, got %d", p.Len())
	}
	if len(p.garbage) != 1 {
		t.Fatalf("want garbage length 1, got %d", len(p.garbage))
	}
}

func TestPlaylist_RemoveTrackDefersWhileCurrentlyPlaying(t *testing.T) {
	dir := t.TempDir()
	songs := map[string]*catalog.Song{"a.flac": {Basename: "a.flac"}}
	lib, hashes := buildTestLibrary(t, dir, songs)

	p := newPlaylist("test")
	if err := p.AddFile(lib, filepath.Join(dir, "a.flac"), Append); err != nil {
		t.Fatal(err)
	}
	if err := p.RemoveTrack(0, true); err != nil {
		t.Fatalf("RemoveTrack: %v", err)
	}
	if p.Len() != 1 {
		t.Fatalf("the currently-playing track should still count as alive, got length %d", p.Len())
	}
	p.ResolveDeferred(hashes["a.flac"])
	if p.Len() != 0 {
		t.Fatalf("should count as removed once the engine reports playback finished, got length %d", p.Len())
	}
	if len(p.garbage) != 1 {
		t.Fatalf("want garbage length 1, got %d", len(p.garbage))
	}
}

func TestPlaylist_CollectGarbageOnlyReclaimsUnreferencedEntries(t *testing.T) {
	dir := t.TempDir()
	songs := map[string]*catalog.Song{"a.flac": {Basename: "a.flac"}, "b.flac": {Basename: "b.flac"}}
	lib, hashes := buildTestLibrary(t, dir, songs)

	p := newPlaylist("test")
	for name := range songs {
		if err := p.AddFile(lib, filepath.Join(dir, name), Append); err != nil {
			t.Fatal(err)
		}
	}
	if err := p.RemoveFile(hashes["a.flac"]); err != nil {
		t.Fatal(err)
	}
	if err := p.RemoveFile(hashes["b.flac"]); err != nil {
		t.Fatal(err)
	}
	p.CollectGarbage(map[string]bool{hashes["a.flac"]: true})
	if len(p.garbage) != 1 || p.garbage[0].FileHash != hashes["a.flac"] {
		t.Fatalf("want only referenced garbage entries kept, got %+v", p.garbage)
	}
}

func TestPlaylist_ReorderStablyRearrangesByTable(t *testing.T) {
	dir := t.TempDir()
	songs := map[string]*catalog.Song{"a.flac": {Basename: "a.flac"}, "b.flac": {Basename: "b.flac"}, "c.flac": {Basename: "c.flac"}}
	lib, hashes := buildTestLibrary(t, dir, songs)

	p := newPlaylist("test")
	for _, name := range []string{"a.flac", "b.flac", "c.flac"} {
		if err := p.AddFile(lib, filepath.Join(dir, name), Append); err != nil {
			t.Fatal(err)
		}
	}
	if err := p.Reorder([]string{hashes["c.flac"], hashes["a.flac"]}); err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	tracks := p.Tracks()
	if tracks[0].FileHash != hashes["c.flac"] || tracks[1].FileHash != hashes["a.flac"] {
		t.Fatalf("reorder did not match expectations: %+v", tracks)
	}
}

func TestPlaylist_SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	songs := map[string]*catalog.Song{"a.flac": {Basename: "a.flac"}}
	lib, _ := buildTestLibrary(t, dir, songs)

	p := newPlaylist("我的歌单")
	if err := p.AddFile(lib, filepath.Join(dir, "a.flac"), Append); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(dir, "playlist.txt")
	if err := p.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Name != "我的歌单" {
		t.Fatalf("want the name preserved, got %q", loaded.Name)
	}
	if loaded.Len() != 1 {
		t.Fatalf("want 1 track, got %d", loaded.Len())
	}
}

func TestPlaylists_ReservedNameCannotBeRenamed(t *testing.T) {
	ps := NewPlaylists()
	if err := ps.Rename(RecentName, "x"); err == nil {
		t.Fatal("want renaming a reserved name to fail")
	}
}

func TestPlaylists_RemovingReservedNameOnlyClearsEntries(t *testing.T) {
	dir := t.TempDir()
	songs := map[string]*catalog.Song{"a.flac": {Basename: "a.flac"}}
	lib, _ := buildTestLibrary(t, dir, songs)

	ps := NewPlaylists()
	recent := ps.Recent()
	if err := recent.AddFile(lib, filepath.Join(dir, "a.flac"), Append); err != nil {
		t.Fatal(err)
	}
	if err := ps.Remove(RecentName); err != nil {
		t.Fatalf("Remove(recent) should not error: %v", err)
	}
	if ps.Get(RecentName) == nil {
		t.Fatal("the reserved recent playlist should not be destroyed")
	}
	if ps.Recent().Len() != 0 {
		t.Fatalf("want length 0 after clearing, got %d", ps.Recent().Len())
	}
}

func TestPlaylists_UniqueNameConstraint(t *testing.T) {
	ps := NewPlaylists()
	if _, err := ps.Create("我喜欢的"); err != nil {
		t.Fatal(err)
	}
	if _, err := ps.Create("我喜欢的"); err == nil {
		t.Fatal("want creating a duplicate name to fail")
	}
}

func TestPlaylist_SongsToShuffleLeftCycle(t *testing.T) {
	dir := t.TempDir()
	songs := map[string]*catalog.Song{"a.flac": {Basename: "a.flac"}, "b.flac": {Basename: "b.flac"}}
	lib, _ := buildTestLibrary(t, dir, songs)

	p := newPlaylist("test")
	for name := range songs {
		if err := p.AddFile(lib, filepath.Join(dir, name), Append); err != nil {
			t.Fatal(err)
		}
	}
	if p.SongsToShuffleLeft() != 2 {
		t.Fatalf("want 2 songs left to shuffle, got %d", p.SongsToShuffleLeft())
	}
	p.MarkShuffled(0)
	p.MarkShuffled(1)
	if p.SongsToShuffleLeft() != 0 {
		t.Fatalf("want 0 songs left to shuffle, got %d", p.SongsToShuffleLeft())
	}
	p.ResetShuffle()
	if p.SongsToShuffleLeft() != 2 {
		t.Fatalf("want 2 songs left to shuffle after reset, got %d", p.SongsToShuffleLeft())
	}
}
