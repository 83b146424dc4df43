package engine

import (
	"log/slog"
	"sync"
	"time"

	"github.com/harmonia-audio/harmonia/internal/buffer"
	"github.com/harmonia-audio/harmonia/internal/config"
	"github.com/harmonia-audio/harmonia/internal/decoder"
	"github.com/harmonia-audio/harmonia/internal/errorx"
	"github.com/harmonia-audio/harmonia/internal/sink"
)

// Track is the minimal reference the engine needs from the playing
// playlist: enough to open a decoder and to identify the buffers
// allocated for it.
type Track struct {
	FileHash string
	Path     string
}

// OpenDecoder constructs a Decoder for path; the engine never imports a
// concrete codec package itself (§4.4).
type OpenDecoder func(path string) (decoder.Decoder, error)

// NextSong is the one-shot callback the consumer uses to request the next
// track from the playing playlist when the current song's final buffer
// drains (§9 "Callbacks into user code").
type NextSong func(afterFileHash string) (Track, bool)

// Progress is invoked at most once per played second (non-stream songs)
// or once per ~22 seconds of streamed bytes (§4.5).
type Progress func(fileHash string, playedSeconds float64)

// Engine is the Playback Engine: owns the buffer pool, the producer and
// consumer goroutines, and the control state machine.
type Engine struct {
	mu    sync.Mutex
	state State

	pool       *buffer.List
	sink       sink.AudioSink
	openDecode OpenDecoder
	nextSong   NextSong
	prevSong   NextSong
	onProgress Progress

	cfg config.PlayerConfig

	cmdCh   chan Command
	closeCh chan struct{}

	curDecoder  decoder.Decoder
	curStream   decoder.StreamInfo
	curSong     Track
	playedBytes int64
	lastReport  time.Time

	// dopParity is the next DoP marker parity (§4.5 "Conversion"): it
	// must alternate continuously across buffer boundaries, so it lives
	// on the Engine rather than being re-derived per call.
	dopParity bool

	// pendingNext/pendingNextStream are set by the producer once it has
	// looked ahead to the next song (§4.5), and consumed by the
	// consumer when the current song's buffers are exhausted.
	pendingNext       *Track
	pendingNextStream decoder.StreamInfo

	// producerStop/producerDone coordinate tearing down the running
	// producer goroutine for an explicit Next/Prev skip (§4.5 "engine
	// control commands"): producerStop asks it to exit at its next
	// iteration, producerDone is closed once it actually has, so the
	// skip can safely reopen the decoder without racing the old one.
	producerStop chan struct{}
	producerDone chan struct{}

	underrunCount int

	terminate bool
}

// New constructs an Engine. pool must already be sized (buffer.NewList);
// snk is the concrete AudioSink backend (or sink.Mock in tests). prevSong
// mirrors nextSong but walks the playing playlist backwards; either may be
// nil, in which case the corresponding skip command is a no-op.
func New(pool *buffer.List, snk sink.AudioSink, openDecode OpenDecoder, nextSong, prevSong NextSong, onProgress Progress, cfg config.PlayerConfig) *Engine {
	return &Engine{
		state:      Closed,
		pool:       pool,
		sink:       snk,
		openDecode: openDecode,
		nextSong:   nextSong,
		prevSong:   prevSong,
		onProgress: onProgress,
		cfg:        cfg,
		cmdCh:      make(chan Command, 16),
		closeCh:    make(chan struct{}),
	}
}

// State returns the engine's current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) setState(s State) {
	e.state = s
}

// Open transitions Closed -> Idle. It does not open the sink and does not
// use device; Play opens the sink on the "default" device with the
// stream's parameters.
func (e *Engine) Open(device string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	to, err := e.state.next("open")
	if err != nil {
		return err
	}
	e.setState(to)
	return nil
}

// Play begins playback of track, transitioning Idle -> Play. It starts
// the producer and consumer goroutines, which run until Close.
func (e *Engine) Play(track Track) error {
	e.mu.Lock()
	if e.state != Idle && e.state != Stop {
		defer e.mu.Unlock()
		return &StateError{From: e.state, Op: "play"}
	}
	e.mu.Unlock()

	dec, err := e.openDecode(track.Path)
	if err != nil {
		return err
	}
	info, err := dec.Open(track.Path)
	if err != nil {
		_ = dec.Close()
		return err
	}

	stop := make(chan struct{})
	done := make(chan struct{})

	e.mu.Lock()
	e.curDecoder = dec
	e.curStream = info
	e.curSong = track
	e.dopParity = false
	e.producerStop = stop
	e.producerDone = done
	e.setState(Play)
	e.terminate = false
	e.mu.Unlock()

	if err := e.openSinkForStream(info); err != nil {
		return err
	}
	if err := e.sink.Start(); err != nil {
		return err
	}

	errorx.WaitGoStart(func() { e.producerLoop(stop, done) })
	errorx.WaitGoStart(e.consumerLoop)
	return nil
}

func (e *Engine) openSinkForStream(info decoder.StreamInfo) error {
	bits := info.BitsPerSample
	containerWidth := bits / 8
	if info.DSD {
		// DoP wraps DSD in 24-bit PCM words (§4.5 "Conversion"); the sink
		// sees an ordinary 24-bit PCM stream and never knows it's DSD.
		bits = 24
		containerWidth = 3
	}
	if containerWidth == 0 {
		containerWidth = 1
	}
	_, err := e.sink.Open("default", sink.LittleEndian, info.SampleRate, 2, bits, containerWidth)
	if err != nil {
		_, err = e.sink.Open("default", sink.BigEndian, info.SampleRate, 2, bits, containerWidth)
	}
	return err
}

// Pause transitions Play -> Pause.
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	to, err := e.state.next("pause")
	if err != nil {
		return err
	}
	e.setState(to)
	e.enqueueLocked(Command{Kind: CmdPause})
	return nil
}

// Resume transitions Pause -> Play.
func (e *Engine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	to, err := e.state.next("resume")
	if err != nil {
		return err
	}
	e.setState(to)
	e.enqueueLocked(Command{Kind: CmdPlay})
	return nil
}

// Stop transitions any state -> Stop, sets the terminate flag and queues a
// CmdStop when the command channel has room; the producer/consumer loops
// exit at their next iteration without draining the buffers.
func (e *Engine) Stop() error {
	e.mu.Lock()
	e.setState(Stop)
	e.terminate = true
	e.mu.Unlock()
	select {
	case e.cmdCh <- Command{Kind: CmdStop}:
	default:
	}
	return nil
}

// Close transitions Stop -> Closed, releasing the sink.
func (e *Engine) Close() error {
	e.mu.Lock()
	to, err := e.state.next("close")
	if err != nil {
		e.mu.Unlock()
		return err
	}
	e.setState(to)
	e.mu.Unlock()

	close(e.closeCh)
	return e.sink.Close()
}

// Enqueue queues a control command, drained at the next period boundary.
func (e *Engine) Enqueue(cmd Command) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enqueueLocked(cmd)
}

func (e *Engine) enqueueLocked(cmd Command) {
	select {
	case e.cmdCh <- cmd:
	default:
		slog.Warn("engine: command queue full, dropping command")
	}
}
