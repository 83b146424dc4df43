// Package xdgpaths resolves the on-disk layout the daemon uses for
// configuration, the library/playlist text files, the bbolt state database
// and logs, following the XDG base-directory spec. It mirrors the teacher's
// utils/app path manager, including the portable-root escape hatch.
package xdgpaths

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/adrg/xdg"
)

const appDir = "harmonia"

// PortableRootEnv, when set, overrides XDG resolution entirely and roots
// every directory under its value — useful for running the daemon from a
// USB stick or a CI sandbox.
const PortableRootEnv = "HARMONIA_ROOT"

type paths struct {
	isPortable bool
	rootDir    string

	configDir string
	dataDir   string
	stateDir  string
	cacheDir  string

	dbDir  string
	logDir string
}

var (
	resolved paths
	once     sync.Once
)

func resolve() {
	once.Do(func() {
		if root := os.Getenv(PortableRootEnv); root != "" {
			abs, err := filepath.Abs(root)
			if err != nil {
				panic(fmt.Sprintf("xdgpaths: cannot resolve portable root: %v", err))
			}
			resolved.isPortable = true
			resolved.rootDir = abs
			resolved.configDir = abs
			resolved.stateDir = abs
			resolved.dataDir = filepath.Join(abs, "data")
			resolved.cacheDir = filepath.Join(abs, "cache")
		} else {
			resolved.dataDir = filepath.Join(xdg.DataHome, appDir)
			resolved.stateDir = filepath.Join(xdg.StateHome, appDir)
			resolved.cacheDir = filepath.Join(xdg.CacheHome, appDir)
			cfgFile, err := xdg.ConfigFile(appDir)
			if err != nil {
				panic(fmt.Sprintf("xdgpaths: cannot resolve config dir: %v", err))
			}
			resolved.configDir = cfgFile
		}
		resolved.logDir = filepath.Join(resolved.stateDir, "log")
		resolved.dbDir = filepath.Join(resolved.dataDir, "db")

		mustMkdirAll(resolved.configDir, resolved.dataDir, resolved.stateDir, resolved.cacheDir, resolved.logDir, resolved.dbDir)
	})
}

func mustMkdirAll(dirs ...string) {
	for _, d := range dirs {
		if _, err := os.Stat(d); os.IsNotExist(err) {
			if err := os.MkdirAll(d, 0755); err != nil {
				panic(fmt.Sprintf("xdgpaths: cannot create %s: %v", d, err))
			}
		}
	}
}

func ConfigDir() string { resolve(); return resolved.configDir }
func DataDir() string   { resolve(); return resolved.dataDir }
func StateDir() string  { resolve(); return resolved.stateDir }
func CacheDir() string  { resolve(); return resolved.cacheDir }
func DBDir() string     { resolve(); return resolved.dbDir }
func LogDir() string    { resolve(); return resolved.logDir }

// ConfigFilePath returns the default TOML config file path.
func ConfigFilePath() string {
	return filepath.Join(ConfigDir(), "harmonia.toml")
}

// LibraryFilePath returns the default library CSV path.
func LibraryFilePath() string {
	return filepath.Join(DataDir(), "library.csv")
}

// PlaylistDir returns the directory holding persisted playlist text files.
func PlaylistDir() string {
	dir := filepath.Join(DataDir(), "playlists")
	mustMkdirAll(dir)
	return dir
}
