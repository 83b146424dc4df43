// Package errorx provides panic-recovery helpers used at the root of the
// playback engine's long-lived goroutines (producer, consumer).
package errorx

import (
	"log/slog"
	"runtime/debug"
)

// Recover recovers a panic on the calling goroutine, logging it. If ignore is
// true the panic is swallowed and Recover returns true; otherwise it is
// re-raised after logging.
func Recover(ignore bool) (hasCaught bool) {
	err := recover()
	if err != nil {
		slog.Error("catch panic", slog.Any("error", err), slog.Any("stack", string(debug.Stack())))
		if ignore {
			hasCaught = true
			return
		}
		panic(err)
	}
	return
}

// PanicRecoverWrapper runs f under a deferred Recover.
func PanicRecoverWrapper(ignorePanic bool, f func()) {
	defer Recover(ignorePanic)
	f()
}

// Go runs f in a new goroutine, recovering any panic.
func Go(f func(), ignorePanic ...bool) {
	var ignore bool
	if len(ignorePanic) > 0 {
		ignore = ignorePanic[0]
	}
	go PanicRecoverWrapper(ignore, f)
}

// WaitGoStart runs f in a new goroutine and blocks until that goroutine
// has been launched; f itself may not have begun running when
// WaitGoStart returns.
func WaitGoStart(f func(), ignorePanic ...bool) {
	wait := make(chan struct{})
	Go(func() {
		Go(f, ignorePanic...)
		wait <- struct{}{}
	}, ignorePanic...)
	<-wait
}

// resetter is implemented by streamers/decoders that can clear a transient
// error after a retry.
type resetter interface {
	ResetError()
}

// ResetError clears a transient error on i if it supports resetting.
func ResetError(i any) {
	if r, ok := i.(resetter); ok {
		r.ResetError()
	}
}
