package main

import (
	"fmt"
	"io"
	"time"
)

// consoleObserver renders session status lines and an in-place progress
// percentage for the part in flight. The session invokes it from a single
// worker goroutine, so no locking is needed.
type consoleObserver struct {
	w        io.Writer
	inFlight bool
}

func newConsoleObserver(w io.Writer) *consoleObserver {
	return &consoleObserver{w: w}
}

func (c *consoleObserver) Log(msg string) {
	if c.inFlight {
		fmt.Fprintln(c.w)
		c.inFlight = false
	}
	fmt.Fprintf(c.w, "%s %s\n", time.Now().Format("15:04:05"), msg)
}

func (c *consoleObserver) Progress(percent int) {
	fmt.Fprintf(c.w, "\r%3d%%", percent)
	if percent >= 100 {
		fmt.Fprintln(c.w)
		c.inFlight = false
		return
	}
	c.inFlight = true
}
