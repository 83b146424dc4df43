package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

// fakeParser returns a canned Song per basename, simulating a scanner
// without depending on the scanner package (keeping the A -> B dependency
// direction intact inside this test, same as production code).
type fakeParser struct {
	byBasename map[string]*Song
}

func (p *fakeParser) Parse(path string) (*Song, error) {
	s, ok := p.byBasename[filepath.Base(path)]
	if !ok {
		return nil, &ScanError{Path: path, Code: -999, Text: "unknown file"}
	}
	cp := *s
	return &cp, nil
}

func writeTempFiles(t *testing.T, dir string, names []string) {
	t.Helper()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("x"), 0644); err != nil {
			t.Fatalf("writing temp file failed: %v", err)
		}
	}
}

func TestLibrary_Import_TwoWAVFilesGroupIntoOneAlbum(t *testing.T) {
	dir := t.TempDir()
	writeTempFiles(t, dir, []string{"a.wav", "b.wav"})

	parser := &fakeParser{byBasename: map[string]*Song{
		"a.wav": {Codec: "WAV", Artist: "Floyd", AlbumArtist: "Floyd", Album: "Animals", Title: "Dogs", Channels: 2, SampleRate: 44100, BitsPerSample: 16},
		"b.wav": {Codec: "WAV", Artist: "Floyd", AlbumArtist: "Floyd", Album: "Animals", Title: "Pigs", Channels: 2, SampleRate: 44100, BitsPerSample: 16},
	}}

	lib := NewLibrary(NormalizeOptions{}, false, true)
	n, err := lib.Import([]string{dir}, []string{"*.wav"}, parser)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("want 2 songs imported, got %d", n)
	}
	if got := lib.SongCount(); got != 2 {
		t.Fatalf("want song_count == 2, got %d", got)
	}
	if got := lib.AlbumCount(); got != 1 {
		t.Fatalf("want one album, got %d", got)
	}
	if got := lib.ArtistCount(MediaUnknown); got != 1 {
		t.Fatalf("want one artist, got %d", got)
	}
}

func TestLibrary_Import_NoscanDirectoryIsSkipped(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "skip")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	writeTempFiles(t, sub, []string{"noscan", "c.wav"})

	parser := &fakeParser{byBasename: map[string]*Song{
		"c.wav": {Codec: "WAV", Artist: "X", AlbumArtist: "X", Album: "Y", Title: "Z", Channels: 2, SampleRate: 44100, BitsPerSample: 16},
	}}

	lib := NewLibrary(NormalizeOptions{}, false, true)
	n, err := lib.Import([]string{dir}, []string{"*.wav"}, parser)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("want the noscan directory skipped, but %d songs were imported", n)
	}
}

func TestLibrary_ReimportingUnchangedFilesIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	writeTempFiles(t, dir, []string{"a.wav"})
	parser := &fakeParser{byBasename: map[string]*Song{
		"a.wav": {Codec: "WAV", Artist: "X", AlbumArtist: "X", Album: "Y", Title: "Z", Channels: 2, SampleRate: 44100, BitsPerSample: 16},
	}}

	lib := NewLibrary(NormalizeOptions{}, false, true)
	if _, err := lib.Import([]string{dir}, []string{"*.wav"}, parser); err != nil {
		t.Fatal(err)
	}
	songs, albums, artists := lib.SongCount(), lib.AlbumCount(), lib.ArtistCount(MediaUnknown)

	if err := lib.Rescan([]string{dir}, []string{"*.wav"}, parser, true); err != nil {
		t.Fatalf("Rescan failed: %v", err)
	}
	if lib.SongCount() != songs || lib.AlbumCount() != albums || lib.ArtistCount(MediaUnknown) != artists {
		t.Fatalf("rescanning unchanged files should leave (song_count, album_count, artist_count) unchanged")
	}
}

func TestLibrary_CSVRoundTrip(t *testing.T) {
	dir := t.TempDir()
	writeTempFiles(t, dir, []string{"a.flac"})
	parser := &fakeParser{byBasename: map[string]*Song{
		"a.flac": {Codec: "FLAC", Artist: "Floyd", AlbumArtist: "Floyd", Album: "Animals", Title: "Dogs", Channels: 2, SampleRate: 44100, BitsPerSample: 16, Track: 1, TrackCount: 5},
	}}

	lib := NewLibrary(NormalizeOptions{}, false, true)
	if _, err := lib.Import([]string{dir}, []string{"*.flac"}, parser); err != nil {
		t.Fatal(err)
	}

	csvPath := filepath.Join(dir, "library.csv")
	if err := lib.SaveToFile(csvPath); err != nil {
		t.Fatalf("SaveToFile failed: %v", err)
	}

	loaded := NewLibrary(NormalizeOptions{}, false, true)
	if err := loaded.LoadFromFile(csvPath); err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	loaded.RebuildIndices()

	if loaded.SongCount() != lib.SongCount() {
		t.Fatalf("song_count should match after round-trip: %d != %d", loaded.SongCount(), lib.SongCount())
	}
	id, ok := loaded.FindByFileHash(FileHash(filepath.Join(dir, "a.flac")))
	if !ok {
		t.Fatalf("should be able to find the song by file_hash after round-trip")
	}
	song, _ := loaded.Song(id)
	if song.Title != "Dogs" || song.Track != 1 || song.TrackCount != 5 {
		t.Fatalf("fields do not match after round-trip: %+v", song)
	}
}

func TestLibrary_SortsAlbumsInNaturalOrder(t *testing.T) {
	dir := t.TempDir()
	writeTempFiles(t, dir, []string{"a.wav", "b.wav"})
	parser := &fakeParser{byBasename: map[string]*Song{
		"a.wav": {Codec: "WAV", Artist: "X", AlbumArtist: "X", Album: "Disc 2", Title: "T", Channels: 2, SampleRate: 44100, BitsPerSample: 16},
		"b.wav": {Codec: "WAV", Artist: "X", AlbumArtist: "X", Album: "Disc 10", Title: "T", Channels: 2, SampleRate: 44100, BitsPerSample: 16},
	}}
	lib := NewLibrary(NormalizeOptions{}, false, true)
	if _, err := lib.Import([]string{dir}, []string{"*.wav"}, parser); err != nil {
		t.Fatal(err)
	}
	ids := lib.SortBy(SortByAlbum)
	first, _ := lib.Song(ids[0])
	if first.Album != "Disc 2" {
		t.Fatalf("natural-order sort should place 'Disc 2' before 'Disc 10', got first=%q", first.Album)
	}
}

func TestLibrary_DeepNameInspectionAddsExtraLetterBuckets(t *testing.T) {
	dir := t.TempDir()
	writeTempFiles(t, dir, []string{"a.wav"})
	parser := &fakeParser{byBasename: map[string]*Song{
		"a.wav": {Codec: "WAV", Artist: "Emerson Lake Palmer", AlbumArtist: "Emerson Lake Palmer", Album: "Trilogy", Title: "T", Channels: 2, SampleRate: 44100, BitsPerSample: 16},
	}}

	lib := NewLibrary(NormalizeOptions{AllowDeepNameInspection: true}, false, true)
	if _, err := lib.Import([]string{dir}, []string{"*.wav"}, parser); err != nil {
		t.Fatal(err)
	}

	counts := lib.LetterCounts(MediaUnknown)
	if counts['E'] != 1 {
		t.Fatalf("want the primary letter E counted once, got %d", counts['E'])
	}
	if counts['L'] != 1 {
		t.Fatalf("want deep inspection to add a bucket under L, got %d", counts['L'])
	}
	if counts['P'] != 1 {
		t.Fatalf("want deep inspection to add a bucket under P, got %d", counts['P'])
	}
	if got := lib.ArtistCount(MediaUnknown); got != 1 {
		t.Fatalf("deep inspection must not change artist membership count, got %d", got)
	}
}

func TestLibrary_DeepNameInspectionDisabledByDefault(t *testing.T) {
	dir := t.TempDir()
	writeTempFiles(t, dir, []string{"a.wav"})
	parser := &fakeParser{byBasename: map[string]*Song{
		"a.wav": {Codec: "WAV", Artist: "Emerson Lake Palmer", AlbumArtist: "Emerson Lake Palmer", Album: "Trilogy", Title: "T", Channels: 2, SampleRate: 44100, BitsPerSample: 16},
	}}

	lib := NewLibrary(NormalizeOptions{}, false, true)
	if _, err := lib.Import([]string{dir}, []string{"*.wav"}, parser); err != nil {
		t.Fatal(err)
	}

	counts := lib.LetterCounts(MediaUnknown)
	if counts['L'] != 0 || counts['P'] != 0 {
		t.Fatalf("want no extra letter buckets with deep inspection off, got L=%d P=%d", counts['L'], counts['P'])
	}
}
