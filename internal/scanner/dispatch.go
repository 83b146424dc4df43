// Package scanner implements the Metadata Scanner (§4.1): one Parser per
// container format, dispatched by file extension, each translated into a
// catalog.Song that the Library then normalizes and indexes.
package scanner

import (
	"path/filepath"
	"strings"

	"github.com/harmonia-audio/harmonia/internal/catalog"
)

// Dispatcher implements catalog.Parser, routing to the concrete parser for
// path's extension.
type Dispatcher struct{}

var byExt = map[string]catalog.Parser{
	".flac": flacParser{},
	".wav":  wavParser{},
	".aif":  aiffParser{},
	".aiff": aiffParser{},
	".dsf":  dsfParser{},
	".dff":  dffParser{},
	".m4a":  mp4Parser{},
	".mp4":  mp4Parser{},
	".aac":  mp4Parser{},
	".mp3":  mp3Parser{},
}

// Parse dispatches path to the parser registered for its extension.
func (Dispatcher) Parse(path string) (*catalog.Song, error) {
	ext := strings.ToLower(filepath.Ext(path))
	parser, ok := byExt[ext]
	if !ok {
		return nil, &catalog.ScanError{Path: path, Code: -999, Text: "unknown file extension"}
	}
	return parser.Parse(path)
}
