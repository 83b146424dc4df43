package engine

import (
	"testing"

	"github.com/harmonia-audio/harmonia/internal/buffer"
	"github.com/harmonia-audio/harmonia/internal/config"
	"github.com/harmonia-audio/harmonia/internal/decoder"
	"github.com/harmonia-audio/harmonia/internal/sink"
)

// newSeekTestEngine builds an Engine with two Buffered buffers already
// assigned to songHash, each holding writtenPerBuffer bytes, so
// SeekBufferLocked/Skip have something concrete to walk.
func newSeekTestEngine(t *testing.T, songHash string, writtenPerBuffer int) (*Engine, *buffer.Buffer, *buffer.Buffer) {
	t.Helper()
	pool, err := buffer.NewList(buffer.DefaultPoolOptions())
	if err != nil {
		t.Fatalf("NewList: %v", err)
	}

	pool.Lock()
	b1 := pool.NextEmptyLocked(songHash)
	b1.Status = buffer.Buffered
	b1.Written = writtenPerBuffer
	b2 := pool.NextEmptyLocked(songHash)
	b2.Status = buffer.Buffered
	b2.Written = writtenPerBuffer
	pool.Unlock()

	e := New(pool, sink.NewMock(), nil, nil, nil, nil, config.Default().Player)
	e.mu.Lock()
	e.curSong = Track{FileHash: songHash}
	e.curStream = decoder.StreamInfo{SampleRate: 44100, BitsPerSample: 16, Channels: 2}
	e.mu.Unlock()

	return e, b1, b2
}

func TestSeekPercent_LocatesSecondBufferAndMarksFirstPlayed(t *testing.T) {
	songHash := "songA"
	e, b1, b2 := newSeekTestEngine(t, songHash, 100)

	e.SeekPercent(75) // 75% of 200 bytes = 150, inside b2's [100,200) range

	if b1.Status != buffer.Played {
		t.Fatalf("want the first buffer marked Played, got %v", b1.Status)
	}
	if b2.Status != buffer.Playing {
		t.Fatalf("want the target buffer marked Playing, got %v", b2.Status)
	}
	// 75% of 200 bytes = 150, aligned down to a 4-byte frame = 148;
	// offset within b2 (base 100) is 48.
	if b2.Read != 48 {
		t.Fatalf("want the read cursor at in-buffer offset 48, got %d", b2.Read)
	}
}

func TestSeekPercent_IgnoresStreamableSongs(t *testing.T) {
	songHash := "songA"
	e, b1, b2 := newSeekTestEngine(t, songHash, 100)
	e.mu.Lock()
	e.curStream.Streamable = true
	e.mu.Unlock()

	e.SeekPercent(50)

	if b1.Status != buffer.Buffered || b2.Status != buffer.Buffered {
		t.Fatal("SeekPercent should not change any buffer state for a streamable song")
	}
}

// smallSkipStream configures a tiny effective byte rate so the
// skip_frame_seconds jump fits inside a 100-byte test buffer instead of
// immediately falling through to the edge-percent seek.
func smallSkipStream(e *Engine) {
	e.mu.Lock()
	e.curStream.SampleRate = 1
	e.curStream.BitsPerSample = 8
	e.cfg.SkipFrameSeconds = 5 // bytesPerSecond = 1*2*1 = 2, skipBytes = 10
	e.mu.Unlock()
}

func TestSkip_ForwardWithinCurrentBufferOnlyMovesReadCursor(t *testing.T) {
	songHash := "songA"
	e, b1, _ := newSeekTestEngine(t, songHash, 100)
	smallSkipStream(e)
	b1.Status = buffer.Playing // make it the lowest-key playable buffer

	e.Skip(0, true)

	if b1.Read == 0 {
		t.Fatal("want the read cursor to move forward")
	}
	if b1.Read >= b1.Written {
		t.Fatalf("want the skip to stay within the current buffer, got Read=%d Written=%d", b1.Read, b1.Written)
	}
}

func TestSkip_BackwardPastBufferStartFallsBackTo0Point1Percent(t *testing.T) {
	songHash := "songA"
	e, b1, b2 := newSeekTestEngine(t, songHash, 100)
	smallSkipStream(e)
	b1.Status = buffer.Playing
	b1.Read = 5 // less than the 10-byte skip, so rewind would go negative

	e.Skip(0, false)

	// Falls through to SeekPercent(0.1), which lands near the start of the
	// first buffer and marks it Playing again.
	if b1.Status != buffer.Playing && b2.Status != buffer.Playing {
		t.Fatal("want the rewind to land back near the start buffer")
	}
}

func TestAlign_ZeroWordReturnsUnchanged(t *testing.T) {
	if got := align(17, 0); got != 17 {
		t.Fatalf("want unchanged when word=0, got %d", got)
	}
}
