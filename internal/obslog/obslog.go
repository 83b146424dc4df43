// Package obslog configures the process-wide structured logger. It mirrors
// the teacher's utils/slogx: a single text handler writing to a log file
// under the state directory, installed once via Init.
package obslog

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

var once sync.Once

// Init installs the default slog.Logger, writing to <dir>/harmonia.log.
// Safe to call more than once; only the first call takes effect.
func Init(dir string) {
	once.Do(func() {
		if err := os.MkdirAll(dir, 0755); err != nil {
			panic(fmt.Sprintf("obslog: cannot create log dir: %v", err))
		}
		f, err := os.OpenFile(filepath.Join(dir, "harmonia.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0666)
		if err != nil {
			panic(fmt.Sprintf("obslog: cannot open log file: %v", err))
		}
		logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{AddSource: true}))
		log.SetOutput(f)
		slog.SetDefault(logger)
	})
}

// Error wraps an error for structured logging; nil-safe.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String("error", fmt.Sprintf("%+v", err))
}
