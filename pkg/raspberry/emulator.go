//go:build !linux

package raspberry

import (
	"time"

	"github.com/womat/debug"

	"irl/pkg/decoder"
	"irl/pkg/port"
)

// Chip emulates a GPIO chip on systems without gpio character device.
type Chip struct {
	start time.Time
}

// Input is an emulated input line, edges are injected with EmuEdge.
type Input struct {
	watchdog
	chip   *Chip
	offset int
}

// Open returns an emulated chip, name is ignored.
func Open(name string) (*Chip, error) {
	debug.InfoLog.Printf("gpio chip %v is emulated", name)
	return &Chip{start: time.Now()}, nil
}

// NewInput returns an emulated input line.
func (c *Chip) NewInput(offset int, terminator string, idle time.Duration) (*Input, error) {
	if offset < 0 {
		return nil, ErrInvalidParam
	}
	switch terminator {
	case "pullup", "pulldown", "none", "":
	default:
		return nil, ErrInvalidParam
	}

	in := &Input{chip: c, offset: offset}
	in.watchdog = watchdog{idle: idle, now: in.Now}
	return in, nil
}

func (in *Input) Attach(capture decoder.Capture) error {
	return in.start(capture)
}

func (in *Input) Detach() error {
	in.stop()
	return nil
}

func (in *Input) Now() port.Micros {
	return port.MicrosOf(time.Since(in.chip.start))
}

// EmuEdge emulates an edge of the line at ts.
func (in *Input) EmuEdge(ts port.Micros) {
	in.edge(ts)
}

// Close releases the Chip.
func (c *Chip) Close() error {
	return nil
}

// Output is an emulated output pin, the levels are discarded.
type Output struct {
	pin int
}

// OpenOutput returns an emulated output pin.
func OpenOutput(pin int) (*Output, error) {
	if pin < 0 {
		return nil, ErrInvalidParam
	}
	return &Output{pin: pin}, nil
}

func (o *Output) High() {}

func (o *Output) Low() {}

// Pin returns the pin number that this Output represents.
func (o *Output) Pin() int {
	return o.pin
}

func (o *Output) Close() error {
	return nil
}
