// Package decoder defines the Decoder capability (§4.4): a uniform
// open/read/seek/reset/close surface over heterogeneous codec libraries.
// No concrete codec implementation lives here — decoders are external
// collaborators reached only through this interface, per §1's scope note.
package decoder

import (
	"errors"

	"github.com/harmonia-audio/harmonia/internal/buffer"
)

// StreamInfo is the descriptor a successful Open populates, shared with
// the engine so it can size buffers and decide gapless-vs-reopen
// transitions (§4.5 "next song has different stream").
type StreamInfo struct {
	Codec         string
	SampleRate    int
	BitsPerSample int
	Channels      int
	Streamable    bool // MP3/FLAC: incremental; false for random-access formats
	DSD           bool
	DSDBitOrderOE bool // true selects ES_DSD_OE over ES_DSD_NE
}

// Decoder is implemented by one adapter per supported container. All
// methods must return within a small period relative to the engine's
// period-time (§4.4's non-blocking requirement).
type Decoder interface {
	// Open populates and returns the shared stream descriptor.
	Open(path string) (StreamInfo, error)

	// Read decodes into dst until dst has no capacity left or the codec
	// signals end-of-stream, returning the byte count written and
	// io.EOF when the stream is exhausted. Samples are signed
	// little-endian PCM at the source bits-per-sample, channel
	// interleaved (stereo LRLR...); DSD sources pass through as raw
	// 1-bit packed samples.
	Read(dst *buffer.Buffer) (int, error)

	// Seek moves the read position to the given absolute byte offset
	// within the decoded PCM/DSD stream. Streamable codecs may reject
	// seeks that are not time-bounded forward skips.
	Seek(byteOffset int64) error

	// Reset rewinds to the start of the stream without closing it.
	Reset() error

	Close() error
}

// ErrNotSeekable is returned by Seek for streamable codecs asked to jump
// to an absolute position rather than a bounded forward skip.
var ErrNotSeekable = errors.New("decoder: stream does not support absolute seek")
