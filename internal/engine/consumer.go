package engine

import (
	"log/slog"
	"time"

	"github.com/harmonia-audio/harmonia/internal/buffer"
	"github.com/harmonia-audio/harmonia/internal/decoder"
	"github.com/harmonia-audio/harmonia/internal/errorx"
	"github.com/harmonia-audio/harmonia/internal/sink"
)

// consumerLoop wakes once per period, drains queued control commands,
// copies frames from the current playback buffer into the sink, and
// advances to the next buffer/song as buffers exhaust (§4.5).
func (e *Engine) consumerLoop() {
	period := e.cfg.PeriodTime()
	if period <= 0 {
		period = time.Second
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-e.closeCh:
			return
		case cmd := <-e.cmdCh:
			e.handleCommand(cmd)
		case <-ticker.C:
			e.mu.Lock()
			term := e.terminate
			e.mu.Unlock()
			if term {
				return
			}
			e.tick()
		}
	}
}

func (e *Engine) handleCommand(cmd Command) {
	switch cmd.Kind {
	case CmdPause:
		e.mu.Lock()
		e.setState(Pause)
		e.mu.Unlock()
	case CmdPlay:
		e.mu.Lock()
		e.setState(Play)
		e.mu.Unlock()
	case CmdStop:
		e.mu.Lock()
		e.setState(Stop)
		e.terminate = true
		e.mu.Unlock()
	case CmdForward:
		e.Skip(cmd.Percent, true)
	case CmdRewind:
		e.Skip(cmd.Percent, false)
	case CmdPositionPercent:
		e.SeekPercent(cmd.Percent)
	case CmdNext:
		e.skip(e.nextSong)
	case CmdPrev:
		e.skip(e.prevSong)
	}
}

// skip forces an immediate transition to the track resolve returns (§4.5
// "engine control commands" Next/Prev), abandoning whatever remains
// buffered for the current song rather than waiting for it to drain. A nil
// resolve, or one with nothing left to give, leaves playback where it was.
func (e *Engine) skip(resolve NextSong) {
	if resolve == nil {
		return
	}
	e.mu.Lock()
	fromHash := e.curSong.FileHash
	stop := e.producerStop
	done := e.producerDone
	e.mu.Unlock()

	next, ok := resolve(fromHash)
	if !ok {
		return
	}

	if stop != nil {
		close(stop)
		<-done
	}
	_ = e.curDecoder.Close()
	e.pool.Lock()
	e.pool.ReleaseSongLocked(fromHash)
	e.pool.Unlock()

	dec, err := e.openDecode(next.Path)
	if err != nil {
		e.fail(err)
		return
	}
	info, err := dec.Open(next.Path)
	if err != nil {
		_ = dec.Close()
		e.fail(err)
		return
	}

	e.mu.Lock()
	sameStream := e.curStream.SampleRate == info.SampleRate && e.curStream.BitsPerSample == info.BitsPerSample
	e.mu.Unlock()

	if !sameStream {
		if err := e.sink.Drop(); err != nil {
			slog.Warn("engine: sink drop before skip reopen", slog.Any("error", err))
		}
		if err := e.sink.Close(); err != nil {
			slog.Warn("engine: sink close before skip reopen", slog.Any("error", err))
		}
		if err := e.openSinkForStream(info); err != nil {
			_ = dec.Close()
			e.fail(err)
			return
		}
		if err := e.sink.Start(); err != nil {
			_ = dec.Close()
			e.fail(err)
			return
		}
	}

	newStop := make(chan struct{})
	newDone := make(chan struct{})

	e.mu.Lock()
	e.curDecoder = dec
	e.curStream = info
	e.curSong = next
	e.dopParity = false
	e.pendingNext = nil
	e.pendingNextStream = decoder.StreamInfo{}
	e.playedBytes = 0
	e.producerStop = newStop
	e.producerDone = newDone
	e.setState(Play)
	e.mu.Unlock()

	errorx.WaitGoStart(func() { e.producerLoop(newStop, newDone) })
}

func (e *Engine) tick() {
	e.mu.Lock()
	if e.state == Pause {
		e.mu.Unlock()
		return
	}
	songHash := e.curSong.FileHash
	e.mu.Unlock()

	e.pool.Lock()
	buf := e.pool.NextPlayableLocked(songHash)
	e.pool.Unlock()

	if buf == nil {
		e.onBuffersExhausted(songHash)
		return
	}

	e.playFrom(buf)
}

// onBuffersExhausted is called when no playable buffer remains for the
// current song: either the producer has not kept up (Wait) or it has
// moved on to the next song (gapless advance or Reopen).
func (e *Engine) onBuffersExhausted(songHash string) {
	e.mu.Lock()
	pending := e.pendingNext
	pendingStream := e.pendingNextStream
	e.mu.Unlock()

	if pending == nil {
		e.mu.Lock()
		if e.state == Play {
			e.setState(Wait)
		}
		e.mu.Unlock()
		return
	}

	e.mu.Lock()
	sameStream := pending != nil && e.curStream.SampleRate == pendingStream.SampleRate &&
		e.curStream.BitsPerSample == pendingStream.BitsPerSample
	e.mu.Unlock()

	if sameStream {
		e.completeAdvance(*pending, pendingStream)
		return
	}

	e.reopenForStream(*pending, pendingStream)
}

// completeAdvance performs the gapless same-stream transition: the
// consumer simply starts resolving buffers tagged to the next song.
func (e *Engine) completeAdvance(next Track, info decoder.StreamInfo) {
	e.mu.Lock()
	e.curSong = next
	e.curStream = info
	e.pendingNext = nil
	if e.state == Wait {
		e.setState(Play)
	}
	e.mu.Unlock()
}

// reopenForStream handles a different-stream transition: state goes
// Reopen, the sink is dropped and closed, then reopened with the new
// parameters. No silence frames are written while the sink drains.
func (e *Engine) reopenForStream(next Track, info decoder.StreamInfo) {
	e.mu.Lock()
	e.setState(Reopen)
	e.mu.Unlock()

	if err := e.sink.Drop(); err != nil {
		slog.Warn("engine: sink drop before reopen", slog.Any("error", err))
	}
	if err := e.sink.Close(); err != nil {
		slog.Warn("engine: sink close before reopen", slog.Any("error", err))
	}
	if err := e.openSinkForStream(info); err != nil {
		e.fail(err)
		return
	}
	if err := e.sink.Start(); err != nil {
		e.fail(err)
		return
	}

	e.mu.Lock()
	e.curSong = next
	e.curStream = info
	e.pendingNext = nil
	e.setState(Play)
	e.mu.Unlock()
}

func (e *Engine) fail(err error) {
	slog.Error("engine: unrecoverable failure", slog.Any("error", err))
	e.mu.Lock()
	e.setState(Error)
	e.mu.Unlock()
}

// playFrom copies frames from buf into the sink, applying width
// conversion, and advances buf's read cursor and the played-bytes/
// progress bookkeeping.
func (e *Engine) playFrom(buf *buffer.Buffer) {
	e.mu.Lock()
	dsd := e.curStream.DSD
	e.mu.Unlock()
	if dsd {
		e.playDoP(buf)
		return
	}

	avail, err := e.sink.AvailFrames()
	if err != nil {
		e.recoverUnderrun(err)
		return
	}

	e.mu.Lock()
	containerWidth := e.curStream.BitsPerSample / 8
	if containerWidth == 0 {
		containerWidth = 1
	}
	dithered := e.cfg.Dithered
	e.mu.Unlock()

	frameSize := 2 * containerWidth
	if frameSize <= 0 {
		frameSize = 4
	}
	remaining := buf.Remaining()
	framesAvail := remaining / frameSize
	if framesAvail > avail {
		framesAvail = avail
	}
	if framesAvail <= 0 {
		if buf.Read >= buf.Written {
			e.pool.Lock()
			e.pool.MarkPlayedLocked(buf)
			e.pool.Unlock()
		}
		return
	}

	area, err := e.sink.MmapBegin(framesAvail)
	if err != nil {
		e.recoverUnderrun(err)
		return
	}
	srcWidth := e.curStream.BitsPerSample / 8
	if srcWidth == 0 {
		srcWidth = 1
	}
	src := buf.Data[buf.Read : buf.Read+framesAvail*2*srcWidth]
	converted := src
	if srcWidth != containerWidth {
		converted = decoder.Widen(src, srcWidth*8, containerWidth*8, dithered)
	}
	copy(area.Data, converted)
	if err := e.sink.MmapCommit(framesAvail); err != nil {
		e.recoverUnderrun(err)
		return
	}

	buf.Read += framesAvail * 2 * srcWidth
	e.reportProgress(framesAvail, frameSize)

	if buf.Read >= buf.Written {
		e.pool.Lock()
		e.pool.MarkPlayedLocked(buf)
		e.pool.Unlock()
	}
}

// dopRawFrame is the number of raw source bytes one DoP output word
// consumes per channel: PackDoP folds two consecutive DSD bytes (16
// bits) of a channel into each word, and the source is channel-
// interleaved, so one stereo frame spans 2 bytes * 2 channels.
const dopRawFrame = 4

// playDoP handles a DSD buffer: the channel-interleaved 1-bit DSD bytes
// are split per channel and packed into DoP words via PackDoP, keyed off
// the engine's running marker parity so the 0x05/0xFA alternation stays
// continuous across buffer boundaries (§4.5 "Conversion"). When the
// buffer has no data ready yet, DoPSilence keeps the bitstream alive
// instead of starving the sink, since a DoP receiver drops out of DSD
// lock on a gap.
func (e *Engine) playDoP(buf *buffer.Buffer) {
	avail, err := e.sink.AvailFrames()
	if err != nil {
		e.recoverUnderrun(err)
		return
	}

	e.mu.Lock()
	containerWidth := 3
	parity := e.dopParity
	e.mu.Unlock()

	remaining := buf.Remaining()
	frames := remaining / dopRawFrame
	if frames > avail {
		frames = avail
	}

	if frames <= 0 {
		if avail > 0 {
			lWords, nextParity := decoder.DoPSilence(avail, containerWidth, parity)
			rWords, _ := decoder.DoPSilence(avail, containerWidth, parity)
			if err := e.writeDoPFrames(lWords, rWords, containerWidth, avail); err != nil {
				e.recoverUnderrun(err)
				return
			}
			e.mu.Lock()
			e.dopParity = nextParity
			e.mu.Unlock()
		}
		if buf.Read >= buf.Written {
			e.pool.Lock()
			e.pool.MarkPlayedLocked(buf)
			e.pool.Unlock()
		}
		return
	}

	left := make([]byte, frames*2)
	right := make([]byte, frames*2)
	for i := 0; i < frames*2; i++ {
		left[i] = buf.Data[buf.Read+i*2]
		right[i] = buf.Data[buf.Read+i*2+1]
	}
	lWords, nextParity := decoder.PackDoP(left, containerWidth, parity)
	rWords, _ := decoder.PackDoP(right, containerWidth, parity)

	if err := e.writeDoPFrames(lWords, rWords, containerWidth, frames); err != nil {
		e.recoverUnderrun(err)
		return
	}

	buf.Read += frames * dopRawFrame
	e.reportProgress(frames, dopRawFrame)

	e.mu.Lock()
	e.dopParity = nextParity
	e.mu.Unlock()

	if buf.Read >= buf.Written {
		e.pool.Lock()
		e.pool.MarkPlayedLocked(buf)
		e.pool.Unlock()
	}
}

// writeDoPFrames interleaves the left/right DoP word streams (each
// containerWidth bytes per frame) into the sink's mmap area and commits.
func (e *Engine) writeDoPFrames(lWords, rWords []byte, containerWidth, frames int) error {
	area, err := e.sink.MmapBegin(frames)
	if err != nil {
		return err
	}
	for i := 0; i < frames; i++ {
		dst := area.Data[i*2*containerWidth : (i+1)*2*containerWidth]
		copy(dst[:containerWidth], lWords[i*containerWidth:(i+1)*containerWidth])
		copy(dst[containerWidth:], rWords[i*containerWidth:(i+1)*containerWidth])
	}
	return e.sink.MmapCommit(frames)
}

func (e *Engine) reportProgress(frames, frameSize int) {
	e.mu.Lock()
	e.playedBytes += int64(frames * frameSize)
	rate := e.curStream.SampleRate
	streamable := e.curStream.Streamable
	songHash := e.curSong.FileHash
	playedBytes := e.playedBytes
	cb := e.onProgress
	last := e.lastReport
	e.mu.Unlock()

	if cb == nil || rate == 0 {
		return
	}
	interval := time.Second
	if streamable {
		interval = 22 * time.Second
	}
	if time.Since(last) < interval {
		return
	}
	seconds := float64(playedBytes) / float64(rate*frameSize)
	cb(songHash, seconds)

	e.mu.Lock()
	e.lastReport = time.Now()
	e.mu.Unlock()
}

// recoverUnderrun runs the recovery ladder (§4.5 "Underrun recovery"): a
// fatal error escalates to Error at once; otherwise attempt 1 prepares the
// sink (Drop, without losing state), attempt 2 resumes it (Start) and
// attempt 3 prepares once more. The step is chosen by attempt number alone;
// a failed step's error is not classified as SUSPENDED before resuming.
// Each attempt is logged; after three failed attempts the ladder escalates
// to Error.
func (e *Engine) recoverUnderrun(err error) {
	if sink.ClassifyError(err) == sink.StatusFatal {
		e.fail(err)
		return
	}

	for attempt := 1; attempt <= 3; attempt++ {
		e.mu.Lock()
		e.underrunCount++
		e.mu.Unlock()

		slog.Warn("engine: sink error, running recovery ladder", slog.Int("attempt", attempt), slog.Any("error", err))

		var stepErr error
		if attempt%2 == 1 {
			stepErr = e.sink.Drop() // prepare
		} else {
			stepErr = e.sink.Start() // resume
		}
		if stepErr == nil {
			e.mu.Lock()
			e.underrunCount = 0
			e.mu.Unlock()
			return
		}
		err = stepErr
	}

	e.fail(err)
}
