// Package raspberry connects the IR receiver module and the IR LED to the gpio ports of a Raspberry Pi.
package raspberry

import (
	"errors"
	"sync"
	"time"

	"irl/pkg/decoder"
	"irl/pkg/port"
)

var (
	ErrInvalidParam = errors.New("invalid parameters")
	ErrBusy         = errors.New("line already watched")
)

// watchdog forwards the edges of an input line to the capture context.
// If the line stays quiet for the idle time after an edge, the capture context is told so
// and terminates a message without trailing edge.
type watchdog struct {
	mu      sync.Mutex
	capture decoder.Capture
	idle    time.Duration
	timer   *time.Timer
	now     func() port.Micros
}

func (w *watchdog) start(c decoder.Capture) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.capture != nil {
		return ErrBusy
	}
	w.capture = c
	return nil
}

func (w *watchdog) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.capture = nil
	if w.timer != nil {
		w.timer.Stop()
	}
}

// edge is called by the event handler of the line.
func (w *watchdog) edge(ts port.Micros) {
	w.mu.Lock()
	c := w.capture
	if c != nil && w.idle > 0 {
		if w.timer == nil {
			w.timer = time.AfterFunc(w.idle, w.expire)
		} else {
			w.timer.Reset(w.idle)
		}
	}
	w.mu.Unlock()

	if c != nil {
		c.Edge(ts)
	}
}

func (w *watchdog) expire() {
	w.mu.Lock()
	c := w.capture
	w.mu.Unlock()

	if c != nil {
		c.Idle(w.now())
	}
}
