// Package decoder classifies a stream of edge timestamps into IR messages.
//
// Every edge delivers the interval since the previous edge to a Chain of protocol Matchers.
// A Matcher consumes one interval at a time and either continues, rejects or accepts the message.
// The first accepted message is latched by the Receiver until the consumer reads it.
package decoder

import (
	"irl/pkg/irprotocol"
	"irl/pkg/port"
)

// Status is the verdict of a Matcher on an offered interval.
type Status int

const (
	// Continue means the interval fits the protocol, the message is not complete yet.
	Continue Status = iota
	// Reject means the interval does not fit the protocol.
	Reject
	// Accept means the interval completed a valid message.
	Accept
)

func (s Status) String() string {
	switch s {
	case Continue:
		return "continue"
	case Reject:
		return "reject"
	case Accept:
		return "accept"
	}
	return "invalid"
}

// Matcher is the state machine of one protocol (or protocol variant).
type Matcher interface {
	// Protocol returns the protocol the matcher decodes.
	Protocol() irprotocol.Protocol
	// Reset prepares the matcher for a new message; the next offered interval is a header candidate.
	Reset()
	// Offer hands over the interval closed by the edge at timestamp at.
	// The returned data is only valid with Accept.
	Offer(interval, at port.Micros) (Status, irprotocol.Data)
}

// recorder is implemented by matchers which keep the raw intervals of the accepted message.
type recorder interface {
	Timings() []uint16
}

// Policy holds the runtime timing policy of the matchers.
type Policy struct {
	// Tolerance is the multiplicative deviation around a nominal timing (in percent).
	Tolerance uint8
	// Slack is an additive deviation around a nominal timing.
	Slack port.Micros
	// Timeout is the idle time which terminates a message in progress.
	Timeout port.Micros
	// RepeatWindow is the maximal time between a completed message and its repeat code.
	RepeatWindow port.Micros
}

const (
	// DefaultTolerance is the default timing tolerance (in percent)
	DefaultTolerance = 25
	// DefaultTimeout is longer than any interval within a message (the NEC lead mark is 9 ms)
	DefaultTimeout port.Micros = 15_000
	// DefaultRepeatWindow covers the NEC repeat period of 108 ms
	DefaultRepeatWindow port.Micros = 120_000
)

// DefaultPolicy returns the policy used if nothing else is configured.
func DefaultPolicy() Policy {
	return Policy{
		Tolerance:    DefaultTolerance,
		Timeout:      DefaultTimeout,
		RepeatWindow: DefaultRepeatWindow,
	}
}

// deviation returns the permitted deviation around nominal.
func (p Policy) deviation(nominal port.Micros) port.Micros {
	return port.Micros(uint64(nominal)*uint64(p.Tolerance)/100) + p.Slack
}

// match reports whether interval lies within the tolerance window of nominal.
func (p Policy) match(interval, nominal port.Micros) bool {
	d := p.deviation(nominal)
	return uint64(interval)+uint64(d) >= uint64(nominal) && uint64(interval) <= uint64(nominal)+uint64(d)
}

// upper returns the longest interval still matching nominal.
func (p Policy) upper(nominal port.Micros) port.Micros {
	return nominal + p.deviation(nominal)
}
