package volley

import (
	"fmt"
	"io"
	"log/slog"
)

// Observer receives human-readable status lines and per-part transfer
// progress from a session. Both methods are invoked synchronously from the
// session's worker goroutine; implementations must not block for long.
type Observer interface {
	// Log receives a status line describing the step in progress.
	Log(msg string)

	// Progress receives a percentage (0-100) for the in-flight part.
	// Values are monotonically non-decreasing within one part and reset
	// when the next part begins.
	Progress(percent int)
}

// ObserverFuncs adapts plain functions to the Observer interface.
// Nil fields are treated as no-ops.
type ObserverFuncs struct {
	LogFunc      func(msg string)
	ProgressFunc func(percent int)
}

func (o ObserverFuncs) Log(msg string) {
	if o.LogFunc != nil {
		o.LogFunc(msg)
	}
}

func (o ObserverFuncs) Progress(percent int) {
	if o.ProgressFunc != nil {
		o.ProgressFunc(percent)
	}
}

// SlogObserver returns an Observer that forwards status lines to logger at
// Info level and progress updates at Debug level.
func SlogObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return ObserverFuncs{
		LogFunc: func(msg string) { logger.Info(msg) },
		ProgressFunc: func(percent int) {
			logger.Debug(fmt.Sprintf("transfer %d%%", percent))
		},
	}
}

type nopObserver struct{}

func (nopObserver) Log(string)   {}
func (nopObserver) Progress(int) {}
