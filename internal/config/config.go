// Package config defines the root Config structure and loads it with koanf,
// the same stack the teacher uses in internal/configs: defaults via
// koanf/providers/structs, overridden by a TOML file via koanf/providers/file,
// unmarshalled through go-viper/mapstructure with a composed decode hook.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// Config is the root of every configuration value the core consumes,
// exhaustively enumerated in spec §6.
type Config struct {
	Library  LibraryConfig  `koanf:"library"`
	Playlist PlaylistConfig `koanf:"playlist"`
	Player   PlayerConfig   `koanf:"player"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// LibraryConfig controls scanning, normalization and sort behavior (§4.1,
// §4.2, §6).
type LibraryConfig struct {
	Paths   []string `koanf:"paths"`
	Pattern []string `koanf:"patterns"`

	AllowFullNameSwap      bool `koanf:"allowFullNameSwap"`
	AllowGroupNameSwap     bool `koanf:"allowGroupNameSwap"`
	AllowArtistNameRestore bool `koanf:"allowArtistNameRestore"`
	AllowTheBandPrefixSwap bool `koanf:"allowTheBandPrefixSwap"`
	AllowDeepNameInspection bool `koanf:"allowDeepNameInspection"`
	AllowVariousArtistsRename bool `koanf:"allowVariousArtistsRename"`
	AllowMovePreamble      bool `koanf:"allowMovePreamble"`

	SortCaseSensitive bool `koanf:"sortCaseSensitive"`
	SortAlbumsByYear  bool `koanf:"sortAlbumsByYear"`

	URLEncodeCSV bool `koanf:"urlEncodeCsv"`
}

// PlaylistConfig controls the on-disk playlist directory and the recent
// playlist's sentinel name (spec §4.3).
type PlaylistConfig struct {
	Dir               string `koanf:"dir"`
	RecentPlaylistName string `koanf:"recentPlaylistName"`
	RecentMaxSize     int    `koanf:"recentMaxSize"`
}

// PlayerConfig controls the buffer pool and playback engine (§4.5, §6).
type PlayerConfig struct {
	PeriodTimeUS        int64   `koanf:"periodTimeUs"`
	BufferTimeUS        int64   `koanf:"bufferTimeUs"`
	MaxBufferCount      int     `koanf:"maxBufferCount"`
	MinBufferSize       int     `koanf:"minBufferSize"`
	MaxBufferSize       int     `koanf:"maxBufferSize"`
	MemoryFractionPercent int   `koanf:"memoryFractionPercent"`
	SkipFrameSeconds    float64 `koanf:"skipFrameSeconds"`
	Dithered            bool    `koanf:"dithered"`
	IgnoreMixer         bool    `koanf:"ignoreMixer"`
}

// LoggingConfig controls verbosity (§6).
type LoggingConfig struct {
	Verbosity int  `koanf:"verbosity"`
	Debug     bool `koanf:"debug"`
}

// Default returns the lowest-priority fallback configuration.
func Default() *Config {
	return &Config{
		Library: LibraryConfig{
			Paths:   nil,
			Pattern: []string{"*.flac", "*.wav", "*.aif", "*.aiff", "*.dsf", "*.dff", "*.m4a", "*.mp4", "*.aac", "*.mp3"},

			AllowFullNameSwap:         false,
			AllowGroupNameSwap:        false,
			AllowArtistNameRestore:    false,
			AllowTheBandPrefixSwap:    false,
			AllowDeepNameInspection:   true,
			AllowVariousArtistsRename: true,
			AllowMovePreamble:         true,

			SortCaseSensitive: false,
			SortAlbumsByYear:  true,
			URLEncodeCSV:      true,
		},
		Playlist: PlaylistConfig{
			RecentPlaylistName: "state",
			RecentMaxSize:      500,
		},
		Player: PlayerConfig{
			PeriodTimeUS:          1_000_000,
			BufferTimeUS:          4_000_000,
			MaxBufferCount:        32,
			MinBufferSize:         64 * 1024,
			MaxBufferSize:         4 * 1024 * 1024,
			MemoryFractionPercent: 10,
			SkipFrameSeconds:      10,
			Dithered:              true,
			IgnoreMixer:            false,
		},
		Logging: LoggingConfig{
			Verbosity: 1,
			Debug:     false,
		},
	}
}

// Load reads defaults, then overlays the TOML file at path if it exists.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("loading config file %q: %w", path, err)
		}
	}

	cfg := &Config{}
	unmarshalConf := koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: decodeHooks(),
			Result:     cfg,
		},
	}
	if err := k.UnmarshalWithConf("", cfg, unmarshalConf); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	return cfg, nil
}

// BufferTime returns the configured sink ring length as a time.Duration.
func (c *PlayerConfig) BufferTime() time.Duration {
	return time.Duration(c.BufferTimeUS) * time.Microsecond
}

// PeriodTime returns the configured sink period as a time.Duration.
func (c *PlayerConfig) PeriodTime() time.Duration {
	return time.Duration(c.PeriodTimeUS) * time.Microsecond
}
