//go:build linux

package raspberry

import (
	"time"

	"github.com/warthog618/gpiod"
	"github.com/womat/debug"
	"golang.org/x/sys/unix"

	"irl/pkg/decoder"
	"irl/pkg/port"
)

// Chip represents a single GPIO chip that controls a set of lines.
type Chip struct {
	gpiodChip *gpiod.Chip
}

// Input is the line connected to the output of an IR receiver module.
// It implements decoder.Source, the edges are stamped by the kernel.
type Input struct {
	watchdog
	chip      *Chip
	offset    int
	options   []gpiod.LineReqOption
	gpiodLine *gpiod.Line
}

// Open opens a GPIO character device, e.g. gpiochip0.
func Open(name string) (*Chip, error) {
	c, err := gpiod.NewChip(name)
	if err != nil {
		return nil, err
	}
	return &Chip{gpiodChip: c}, nil
}

// NewInput prepares the line offset as input.
// The line is requested by Attach and released by Detach.
// Both edges are watched, the capture context is told about a quiet line after idle.
func (c *Chip) NewInput(offset int, terminator string, idle time.Duration) (*Input, error) {
	if offset < 0 {
		return nil, ErrInvalidParam
	}

	options := []gpiod.LineReqOption{gpiod.WithBothEdges, gpiod.AsInput}
	switch terminator {
	case "pullup":
		options = append(options, gpiod.WithPullUp)
	case "pulldown":
		options = append(options, gpiod.WithPullDown)
	case "none", "":
	default:
		return nil, ErrInvalidParam
	}

	in := &Input{chip: c, offset: offset, options: options}
	in.watchdog = watchdog{idle: idle, now: in.Now}
	return in, nil
}

// Attach requests the line and delivers its edges to capture.
func (in *Input) Attach(capture decoder.Capture) error {
	if err := in.start(capture); err != nil {
		return err
	}

	options := append([]gpiod.LineReqOption{gpiod.WithEventHandler(in.handler)}, in.options...)
	l, err := in.chip.gpiodChip.RequestLine(in.offset, options...)
	if err != nil {
		in.stop()
		return err
	}

	in.gpiodLine = l
	debug.DebugLog.Printf("watching gpio line %v", in.offset)
	return nil
}

// Detach releases the line.
//
// It waits for a running event handler to return, so it must not be called from the capture context.
func (in *Input) Detach() error {
	in.stop()
	if in.gpiodLine == nil {
		return nil
	}

	err := in.gpiodLine.Close()
	in.gpiodLine = nil
	debug.DebugLog.Printf("released gpio line %v", in.offset)
	return err
}

// Now returns the monotonic clock, the kernel stamps line events with the same clock.
func (in *Input) Now() port.Micros {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		debug.ErrorLog.Printf("can't read monotonic clock: %v", err)
		return 0
	}
	return port.MicrosOf(time.Duration(ts.Nano()))
}

func (in *Input) handler(evt gpiod.LineEvent) {
	in.edge(port.MicrosOf(evt.Timestamp))
}

// Close releases the Chip.
//
// It does not release any lines which may be requested - they must be detached
// independently.
func (c *Chip) Close() error {
	return c.gpiodChip.Close()
}
