// Package sender transmits IR messages by bit-banging a carrier modulated pulse train on an output line.
package sender

import (
	"time"

	"github.com/womat/debug"

	"irl/pkg/irprotocol"
)

// Line is the output line connected to the IR LED.
type Line interface {
	High()
	Low()
}

// Clock is a monotonic clock.
type Clock interface {
	Now() time.Duration
}

// Masker suspends the reception while a message is sent.
type Masker interface {
	Mask() (unmask func())
}

// Config is used to configure the Device
type Config struct {
	// Line is the output line connected to the IR LED
	Line Line
	// Clock is used for busy waiting, if nil the runtime monotonic clock is used
	Clock Clock
	// DutyCycle is the duty cycle (%) of the modulation carrier signal
	// A value of zero results in a duty cycle of 33%
	DutyCycle int
	// Mask is held while a message is sent (optional)
	Mask Masker
}

// Device is the device for sending IR messages
type Device struct {
	line  Line
	clock Clock
	duty  int
	mask  Masker
}

type monotonic struct {
	start time.Time
}

func (m monotonic) Now() time.Duration {
	return time.Since(m.start)
}

// New returns a new IR sender device
func New(config Config) *Device {
	if config.DutyCycle < 1 || config.DutyCycle > 100 {
		// Default duty cycle for modulation is 33%
		config.DutyCycle = 33
	}
	if config.Clock == nil {
		config.Clock = monotonic{start: time.Now()}
	}

	return &Device{
		line:  config.Line,
		clock: config.Clock,
		duty:  config.DutyCycle,
		mask:  config.Mask,
	}
}

// Transmit sends a message and returns after the last pulse.
//
// The pulses are timed by busy waiting on the monotonic clock, the calling goroutine is blocked
// for the whole message (up to 80 ms). Do not call it from the capture context.
func (s *Device) Transmit(p irprotocol.Protocol, address uint16, command uint32) error {
	pulses, err := Encode(p, address, command)
	if err != nil {
		return err
	}
	t, _ := irprotocol.Lookup(p)

	unmask := func() {}
	if s.mask != nil {
		unmask = s.mask.Mask()
	}
	s.send(t.Carrier, pulses)
	unmask()

	debug.DebugLog.Printf("transmitted %v address 0x%04x command 0x%08x, %v pulses", p, address, command, len(pulses))
	return nil
}

// Repeat sends the NEC repeat code.
// The receiver interprets it as a repeat of the last NEC message, the caller is responsible for the
// repeat period of 108 ms.
func (s *Device) Repeat() error {
	return s.Transmit(irprotocol.NECRepeat, 0, 0)
}

// send drives the line. All deadlines are absolute from the start of the message,
// so the pulse timing does not drift.
func (s *Device) send(carrier uint32, pulses []Pulse) {
	period := time.Second / time.Duration(carrier)
	on := period * time.Duration(s.duty) / 100

	deadline := s.clock.Now()
	for _, p := range pulses {
		end := deadline + p.Duration.Duration()
		if p.Mark {
			s.mark(deadline, end, period, on)
		} else {
			s.line.Low()
			s.spin(end)
		}
		deadline = end
	}
	s.line.Low()
}

// mark toggles the line at the carrier frequency between start and end.
func (s *Device) mark(start, end, period, on time.Duration) {
	for cycle := start; cycle < end; cycle += period {
		s.line.High()
		s.spin(minDuration(cycle+on, end))
		s.line.Low()
		s.spin(minDuration(cycle+period, end))
	}
}

func (s *Device) spin(until time.Duration) {
	for s.clock.Now() < until {
	}
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
