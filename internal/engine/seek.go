package engine

import "github.com/harmonia-audio/harmonia/internal/buffer"

// align rounds down n to the nearest multiple of word, per §4.5's
// "align(..., word_width)".
func align(n, word int) int {
	if word <= 0 {
		return n
	}
	return (n / word) * word
}

// SeekPercent implements the PositionPercent(p) control command: compute
// the absolute byte for p% of the current song's sample size, locate the
// buffer containing it by summing Written across that song's buffers in
// allocation order, mark earlier buffers Played, the target Playing with
// its read cursor set, and later ones Loaded.
func (e *Engine) SeekPercent(p float64) {
	e.mu.Lock()
	songHash := e.curSong.FileHash
	width := e.curStream.BitsPerSample / 8
	if width == 0 {
		width = 1
	}
	streamable := e.curStream.Streamable
	e.mu.Unlock()

	if streamable {
		// Streamed songs may only Forward (time-bounded), not seek by
		// position.
		return
	}

	e.pool.Lock()
	defer e.pool.Unlock()

	ordered := e.pool.SongBuffersByKeyLocked(songHash)
	totalWritten := 0
	for _, b := range ordered {
		totalWritten += b.Written
	}
	if totalWritten == 0 {
		return
	}

	target := align(int(p/100*float64(totalWritten)), width*2)
	buf, base, ok := e.pool.SeekBufferLocked(songHash, target)
	if !ok {
		return
	}

	for _, b := range ordered {
		if b == buf {
			continue
		}
		// Buffers allocated before the target (lower key) are Played;
		// later ones are Loaded, ready to stream once reached.
		if b.Key < buf.Key {
			b.Status = buffer.Played
		} else {
			b.Status = buffer.Loaded
		}
	}
	buf.Status = buffer.Playing
	buf.Read = target - base
	if buf.Read < 0 {
		buf.Read = 0
	}
}

// Skip implements Forward/Rewind: move by skip_frame_seconds worth of
// bytes, adjusting the read cursor within the current buffer when the
// jump fits, else walking to the neighbouring same-song buffer, else
// seeking to 99.9% (forward) or 0.1% (rewind).
func (e *Engine) Skip(extraSeconds float64, forward bool) {
	e.mu.Lock()
	songHash := e.curSong.FileHash
	rate := e.curStream.SampleRate
	width := e.curStream.BitsPerSample / 8
	skipBase := e.cfg.SkipFrameSeconds
	streamable := e.curStream.Streamable
	e.mu.Unlock()

	if width == 0 {
		width = 1
	}
	skipSeconds := skipBase + extraSeconds
	bytesPerSecond := rate * 2 * width
	skipBytes := align(int(skipSeconds*float64(bytesPerSecond)), width*2)

	if streamable && !forward {
		return // streamed songs may only Forward
	}

	e.pool.Lock()
	buf := e.pool.NextPlayableLocked(songHash)
	e.pool.Unlock()
	if buf == nil {
		return
	}

	e.pool.Lock()
	defer e.pool.Unlock()

	if forward {
		if buf.Read+skipBytes < buf.Written {
			buf.Read += skipBytes
			return
		}
	} else {
		if buf.Read-skipBytes >= 0 {
			buf.Read -= skipBytes
			return
		}
	}

	// Does not fit in the current buffer: walk to the neighbouring buffer
	// owned by the same song before resorting to an edge percent seek.
	if e.skipToNeighbourLocked(songHash, buf, skipBytes, forward) {
		return
	}

	if forward {
		e.pool.Unlock()
		e.SeekPercent(99.9)
		e.pool.Lock()
	} else {
		e.pool.Unlock()
		e.SeekPercent(0.1)
		e.pool.Lock()
	}
}

// skipToNeighbourLocked moves the overshoot from buf into the next (forward)
// or previous (backward) buffer pre-buffered for the same song, per §4.5's
// documented middle step between "doesn't fit in current buffer" and the
// edge-percent fallback. It reports whether the neighbour had enough
// content to absorb the overshoot; pool.mu must already be held.
func (e *Engine) skipToNeighbourLocked(songHash string, buf *buffer.Buffer, skipBytes int, forward bool) bool {
	ordered := e.pool.SongBuffersByKeyLocked(songHash)
	idx := -1
	for i, b := range ordered {
		if b == buf {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}

	var neighbour *buffer.Buffer
	var overshoot int
	if forward {
		if idx+1 >= len(ordered) {
			return false
		}
		neighbour = ordered[idx+1]
		overshoot = (buf.Read + skipBytes) - buf.Written
		if overshoot < 0 || overshoot >= neighbour.Written {
			return false
		}
		buf.Status = buffer.Played
		neighbour.Read = overshoot
	} else {
		if idx == 0 {
			return false
		}
		neighbour = ordered[idx-1]
		overshoot = skipBytes - buf.Read
		if overshoot < 0 || overshoot > neighbour.Written {
			return false
		}
		buf.Status = buffer.Loaded
		neighbour.Read = neighbour.Written - overshoot
	}
	neighbour.Status = buffer.Playing
	return true
}
