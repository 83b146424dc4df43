package engine

import (
	"testing"

	"github.com/harmonia-audio/harmonia/internal/buffer"
	"github.com/harmonia-audio/harmonia/internal/config"
	"github.com/harmonia-audio/harmonia/internal/sink"
)

func newTestEngine(t *testing.T, snk sink.AudioSink) *Engine {
	t.Helper()
	pool, err := buffer.NewList(buffer.DefaultPoolOptions())
	if err != nil {
		t.Fatalf("NewList: %v", err)
	}
	return New(pool, snk, nil, nil, nil, nil, config.Default().Player)
}

// failingSink always fails Drop/Start, forcing the ladder to exhaust and
// escalate to Error, per the spec's 6th testable scenario ("the fourth
// escalates to Error").
type failingSink struct {
	*sink.Mock
	dropErr, startErr error
}

func (f *failingSink) Drop() error {
	f.Mock.Drop()
	return f.dropErr
}

func (f *failingSink) Start() error {
	f.Mock.Start()
	return f.startErr
}

func TestRecoverUnderrun_EscalatesToErrorAfterThreePipeFailures(t *testing.T) {
	fs := &failingSink{Mock: sink.NewMock(), dropErr: sink.ErrPipe, startErr: sink.ErrSuspended}
	e := newTestEngine(t, fs)
	e.mu.Lock()
	e.setState(Play)
	e.mu.Unlock()

	e.recoverUnderrun(sink.ErrPipe)

	if e.State() != Error {
		t.Fatalf("want Error state once the ladder is exhausted, got %v", e.State())
	}
}

func TestRecoverUnderrun_RecoversAfterFirstPrepareSucceeds(t *testing.T) {
	mock := sink.NewMock()
	e := newTestEngine(t, mock)
	e.mu.Lock()
	e.setState(Play)
	e.mu.Unlock()

	e.recoverUnderrun(sink.ErrPipe)

	if e.State() == Error {
		t.Fatal("should not enter Error state once prepare succeeds")
	}
	if mock.DropCalls != 1 {
		t.Fatalf("want Drop called once, got %d", mock.DropCalls)
	}
}
