package storage

import (
	"testing"

	"github.com/harmonia-audio/harmonia/internal/xdgpaths"
)

func withTempRoot(t *testing.T) {
	t.Helper()
	t.Setenv(xdgpaths.PortableRootEnv, t.TempDir())
	DBManager = &LocalDBManager{}
	t.Cleanup(func() { _ = DBManager.Close() })
}

func TestVolume_SaveAndLoadRoundTrip(t *testing.T) {
	withTempRoot(t)

	if _, ok, err := LoadVolume(); err != nil || ok {
		t.Fatalf("want no persisted volume yet, ok=%v err=%v", ok, err)
	}

	if err := SaveVolume(42); err != nil {
		t.Fatalf("SaveVolume: %v", err)
	}
	got, ok, err := LoadVolume()
	if err != nil || !ok {
		t.Fatalf("LoadVolume: ok=%v err=%v", ok, err)
	}
	if got != 42 {
		t.Fatalf("want volume 42, got %d", got)
	}
}

func TestPlayMode_DefaultsToOrdered(t *testing.T) {
	withTempRoot(t)

	mode, err := LoadPlayMode()
	if err != nil {
		t.Fatalf("LoadPlayMode: %v", err)
	}
	if mode != ModeSequential {
		t.Fatalf("want the default ordered play mode, got %v", mode)
	}

	if err := SavePlayMode(ModeShuffle); err != nil {
		t.Fatalf("SavePlayMode: %v", err)
	}
	mode, err = LoadPlayMode()
	if err != nil || mode != ModeShuffle {
		t.Fatalf("want shuffle persisted, got %v err=%v", mode, err)
	}
}

func TestSnapshot_SaveAndLoadRoundTrip(t *testing.T) {
	withTempRoot(t)

	snap := PlayerSnapshot{PlaylistName: "state", CurIndex: 3, CurFileHash: "abc", PlayedSeconds: 12.5}
	if err := SaveSnapshot(snap); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	got, ok, err := LoadSnapshot()
	if err != nil || !ok {
		t.Fatalf("LoadSnapshot: ok=%v err=%v", ok, err)
	}
	if got.CurIndex != 3 || got.CurFileHash != "abc" {
		t.Fatalf("want the snapshot contents restored, got %+v", got)
	}
}
