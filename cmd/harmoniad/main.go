// Command harmoniad is the daemon entrypoint: it loads configuration,
// scans the library, restores the playlist set and playback position,
// and runs the Playback Engine until signalled to shut down.
package main

import (
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/harmonia-audio/harmonia/internal/buffer"
	"github.com/harmonia-audio/harmonia/internal/catalog"
	"github.com/harmonia-audio/harmonia/internal/config"
	"github.com/harmonia-audio/harmonia/internal/decoder"
	"github.com/harmonia-audio/harmonia/internal/engine"
	"github.com/harmonia-audio/harmonia/internal/obslog"
	"github.com/harmonia-audio/harmonia/internal/playlist"
	"github.com/harmonia-audio/harmonia/internal/scanner"
	"github.com/harmonia-audio/harmonia/internal/sink"
	"github.com/harmonia-audio/harmonia/internal/storage"
	"github.com/harmonia-audio/harmonia/internal/xdgpaths"
)

func main() {
	configPath := flag.String("config", xdgpaths.ConfigFilePath(), "path to the TOML configuration file")
	device := flag.String("device", "default", "audio sink device name")
	flag.Parse()

	obslog.Init(xdgpaths.LogDir())

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("loading configuration", obslog.Error(err))
		os.Exit(1)
	}

	lib := openLibrary(cfg.Library)
	playlists := openPlaylists(cfg.Playlist)

	pool, err := buffer.NewList(poolOptions(cfg.Player))
	if err != nil {
		// A probe failure only degrades sizing (falls back to the
		// minimum), so it is logged, not fatal.
		slog.Warn("sizing buffer pool", obslog.Error(err))
	}

	// No concrete codec or hardware sink ships with the daemon — both are
	// capability interfaces (Decoder, AudioSink) that a deployment wires in
	// separately. sink.Mock stands in as the reference backend so the
	// engine has somewhere to push frames.
	snk := sink.NewMock()
	if vol, ok, err := storage.LoadVolume(); err == nil && ok {
		_ = snk.SetVolume(vol)
	}

	eng := engine.New(pool, snk, unconfiguredDecoder, nextSongFrom(playlists), prevSongFrom(playlists), progressInto(playlists), cfg.Player)
	if err := eng.Open(*device); err != nil {
		slog.Error("opening sink", obslog.Error(err))
		os.Exit(1)
	}

	resumePlayback(playlists)

	waitForShutdown(eng, lib, playlists)
}

func openLibrary(cfg config.LibraryConfig) *catalog.Library {
	lib := catalog.NewLibrary(catalog.NormalizeOptions{
		AllowFullNameSwap:         cfg.AllowFullNameSwap,
		AllowArtistNameRestore:    cfg.AllowArtistNameRestore,
		AllowTheBandPrefixSwap:    cfg.AllowTheBandPrefixSwap,
		AllowMovePreamble:         cfg.AllowMovePreamble,
		AllowVariousArtistsRename: cfg.AllowVariousArtistsRename,
		AllowDeepNameInspection:   cfg.AllowDeepNameInspection,
	}, cfg.SortCaseSensitive, cfg.SortAlbumsByYear)

	path := xdgpaths.LibraryFilePath()
	if err := lib.LoadFromFile(path); err != nil {
		slog.Info("no existing library file, importing from scratch", obslog.Error(err))
	}

	var parser scanner.Dispatcher
	if err := lib.Rescan(cfg.Paths, cfg.Pattern, parser, true); err != nil {
		slog.Error("scanning library paths", obslog.Error(err))
	}
	for _, scanErr := range lib.Errors() {
		slog.Warn("skipped file", slog.String("path", scanErr.Path), slog.String("reason", scanErr.Text))
	}

	if err := lib.SaveToFile(path); err != nil {
		slog.Error("persisting library", obslog.Error(err))
	}
	slog.Info("library ready", slog.Int("songs", lib.SongCount()))
	return lib
}

func openPlaylists(cfg config.PlaylistConfig) *playlist.Playlists {
	playlists := playlist.NewPlaylists()

	dir := xdgpaths.PlaylistDir()
	entries, err := os.ReadDir(dir)
	if err != nil {
		slog.Warn("reading playlist directory", obslog.Error(err))
		return playlists
	}
	for _, ent := range entries {
		if ent.IsDir() || !strings.HasSuffix(ent.Name(), ".txt") {
			continue
		}
		p, err := playlist.Load(filepath.Join(dir, ent.Name()))
		if err != nil {
			slog.Warn("loading playlist file", slog.String("file", ent.Name()), obslog.Error(err))
			continue
		}
		if p.Name == "" {
			p.Name = strings.TrimSuffix(ent.Name(), ".txt")
		}
		if err := playlists.Adopt(p); err != nil {
			slog.Warn("adopting playlist", slog.String("name", p.Name), obslog.Error(err))
		}
	}
	return playlists
}

func poolOptions(cfg config.PlayerConfig) buffer.PoolOptions {
	opt := buffer.DefaultPoolOptions()
	if cfg.MinBufferSize > 0 {
		opt.MinBufferSize = cfg.MinBufferSize
	}
	if cfg.MaxBufferSize > 0 {
		opt.MaxBufferSize = cfg.MaxBufferSize
	}
	if cfg.MaxBufferCount > 0 {
		opt.MaxCount = cfg.MaxBufferCount
	}
	if cfg.MemoryFractionPercent > 0 {
		opt.MemoryFraction = float64(cfg.MemoryFractionPercent) / 100
	}
	return opt
}

// unconfiguredDecoder is the default OpenDecoder: no codec library ships
// with the daemon (§4.4 is a capability interface only), so a deployment
// must supply its own before Play can succeed.
func unconfiguredDecoder(path string) (decoder.Decoder, error) {
	return nil, errors.New("harmoniad: no decoder backend configured for " + path)
}

// nextSongFrom adapts the playing playlist into the engine's NextSong
// callback (§9 "message-passing, not synchronous callback"): find the
// track after afterFileHash and resolve its path from the library.
func nextSongFrom(playlists *playlist.Playlists) engine.NextSong {
	return func(afterFileHash string) (engine.Track, bool) {
		pl := playlists.Playing()
		if pl == nil {
			return engine.Track{}, false
		}
		tracks := pl.Tracks()
		for i, t := range tracks {
			if t.FileHash == afterFileHash {
				next, ok := pl.NextTrack(i)
				if !ok {
					return engine.Track{}, false
				}
				return engine.Track{FileHash: next.FileHash, Path: next.Path}, true
			}
		}
		return engine.Track{}, false
	}
}

// prevSongFrom adapts the playing playlist into the engine's NextSong-shaped
// callback for the Prev skip (§4.5), walking one track earlier instead.
func prevSongFrom(playlists *playlist.Playlists) engine.NextSong {
	return func(beforeFileHash string) (engine.Track, bool) {
		pl := playlists.Playing()
		if pl == nil {
			return engine.Track{}, false
		}
		tracks := pl.Tracks()
		for i, t := range tracks {
			if t.FileHash == beforeFileHash {
				prev, ok := pl.PrevTrack(i)
				if !ok {
					return engine.Track{}, false
				}
				return engine.Track{FileHash: prev.FileHash, Path: prev.Path}, true
			}
		}
		return engine.Track{}, false
	}
}

// progressInto persists the playback position so it survives a restart.
func progressInto(playlists *playlist.Playlists) engine.Progress {
	return func(fileHash string, playedSeconds float64) {
		name := playlists.SelectedName()
		if pl := playlists.Playing(); pl != nil {
			name = pl.Name
		}
		snap := storage.PlayerSnapshot{
			PlaylistName:  name,
			CurFileHash:   fileHash,
			PlayedSeconds: playedSeconds,
		}
		if err := storage.SaveSnapshot(snap); err != nil {
			slog.Warn("saving playback snapshot", obslog.Error(err))
		}
	}
}

// resumePlayback restores the playing playlist recorded in the last
// snapshot and logs the track the daemon was on; it neither queues that
// track nor starts playback.
func resumePlayback(playlists *playlist.Playlists) {
	snap, ok, err := storage.LoadSnapshot()
	if err != nil || !ok {
		return
	}
	if err := playlists.SetPlaying(snap.PlaylistName); err != nil {
		slog.Warn("resuming playlist", slog.String("name", snap.PlaylistName), obslog.Error(err))
		return
	}
	slog.Info("resumed previous session", slog.String("playlist", snap.PlaylistName), slog.String("track", snap.CurFileHash))
}

// waitForShutdown blocks until SIGINT/SIGTERM, then drains playback and
// persists every piece of durable state before exiting.
func waitForShutdown(eng *engine.Engine, lib *catalog.Library, playlists *playlist.Playlists) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutting down")
	_ = eng.Stop()
	_ = eng.Close()

	dir := xdgpaths.PlaylistDir()
	for _, name := range playlists.Names() {
		pl := playlists.Get(name)
		if pl == nil {
			continue
		}
		path := filepath.Join(dir, name+".txt")
		if err := pl.Save(path); err != nil {
			slog.Error("saving playlist", slog.String("name", name), obslog.Error(err))
		}
	}

	if err := lib.SaveToFile(xdgpaths.LibraryFilePath()); err != nil {
		slog.Error("saving library", obslog.Error(err))
	}

	if err := storage.DBManager.Close(); err != nil {
		slog.Error("closing state database", obslog.Error(err))
	}
}
