package engine

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/harmonia-audio/harmonia/internal/buffer"
)

// producingState tracks the song the producer is currently decoding into,
// which may run ahead of curSong (the song the consumer is playing) by
// exactly one song, for gapless look-ahead (§4.5 "when the song ends,
// look ahead one song via the playing playlist").
type producingState struct {
	track   Track
	decoder interface {
		Read(dst *buffer.Buffer) (int, error)
		Close() error
	}
	stream    streamInfoLike
	exhausted bool // no further song to look ahead to
}

type streamInfoLike struct {
	SampleRate, BitsPerSample, Channels int
}

// producerLoop repeatedly acquires the next empty buffer and drives the
// decoder until the buffer is at least "High" or the song ends; on
// end-of-stream it looks ahead one song via nextSong and continues into
// buffers tagged to that next song. stop is closed to ask the loop to exit
// at its next iteration (an explicit Next/Prev skip, or Close); done is
// closed once it actually has, so a caller tearing down the decoder can
// wait for the producer to stop touching it first.
func (e *Engine) producerLoop(stop, done chan struct{}) {
	defer close(done)

	e.mu.Lock()
	prod := &producingState{
		track:  e.curSong,
		stream: streamInfoLike{e.curStream.SampleRate, e.curStream.BitsPerSample, 2},
	}
	prod.decoder = e.curDecoder
	e.mu.Unlock()

	for {
		e.mu.Lock()
		term := e.terminate
		e.mu.Unlock()
		if term {
			return
		}
		select {
		case <-stop:
			return
		default:
		}

		e.pool.Lock()
		buf := e.pool.NextEmptyLocked(prod.track.FileHash)
		e.pool.Unlock()
		if buf == nil {
			time.Sleep(5 * time.Millisecond)
			continue
		}

		buf.Status = buffer.Buffering
		n, err := prod.decoder.Read(buf)
		buf.Written += n
		switch {
		case err != nil && errors.Is(err, io.EOF):
			buf.Status = buffer.Buffered
			e.advanceProducer(prod)
		case buf.Level() >= buffer.LevelHigh:
			buf.Status = buffer.Buffered
		default:
			buf.Status = buffer.Continue
		}

		if prod.exhausted && buf.Written == 0 {
			// Nothing left to produce and this draw came back empty:
			// release the slot instead of leaving it stuck at Continue.
			e.pool.Lock()
			e.pool.MarkPlayedLocked(buf)
			e.pool.Unlock()
			return
		}
	}
}

// advanceProducer closes the just-finished decoder, asks nextSong for the
// upcoming track, and opens its decoder so the producer can keep filling
// buffers without a gap.
func (e *Engine) advanceProducer(prod *producingState) {
	_ = prod.decoder.Close()

	if e.nextSong == nil {
		prod.exhausted = true
		return
	}
	next, ok := e.nextSong(prod.track.FileHash)
	if !ok {
		prod.exhausted = true
		return
	}
	dec, err := e.openDecode(next.Path)
	if err != nil {
		slog.Error("producer: opening next decoder", slog.String("path", next.Path), slog.Any("error", err))
		prod.exhausted = true
		return
	}
	info, err := dec.Open(next.Path)
	if err != nil {
		slog.Error("producer: decoder open failed", slog.String("path", next.Path), slog.Any("error", err))
		_ = dec.Close()
		prod.exhausted = true
		return
	}
	prod.track = next
	prod.decoder = dec
	prod.stream = streamInfoLike{info.SampleRate, info.BitsPerSample, 2}

	e.mu.Lock()
	e.pendingNext = &next
	e.pendingNextStream = info
	e.mu.Unlock()
}
