package decoder

import (
	"irl/pkg/irprotocol"
	"irl/pkg/port"
)

// finishFunc validates a completely received message and converts it to the result.
type finishFunc func(address uint16, command uint32, at port.Micros) (irprotocol.Data, bool)

// frame decodes the messages of a mark/space grammar (irprotocol.Timing).
//
// The intervals of a message are numbered by slot:
//
//	0       lead mark
//	1       lead space
//	2+2i    mark of bit i
//	3+2i    space of bit i
//	2+2n    trail mark (if any)
//
// A protocol without trail mark completes with the first space which is longer than any in-frame space.
type frame struct {
	protocol irprotocol.Protocol
	timing   irprotocol.Timing
	policy   Policy
	finish   finishFunc

	slot int
	bits uint64
}

func newFrame(p irprotocol.Protocol, policy Policy, finish finishFunc) *frame {
	t, _ := irprotocol.Lookup(p)
	f := &frame{protocol: p, timing: t, policy: policy, finish: finish}
	if f.finish == nil {
		f.finish = f.plain
	}
	return f
}

func (f *frame) Protocol() irprotocol.Protocol {
	return f.protocol
}

func (f *frame) Reset() {
	f.slot = 0
	f.bits = 0
}

func (f *frame) Offer(interval, at port.Micros) (Status, irprotocol.Data) {
	t := &f.timing
	slot := f.slot
	f.slot++

	switch slot {
	case 0:
		return f.expect(interval, t.LeadMark)
	case 1:
		return f.expect(interval, t.LeadSpace)
	}

	n := t.Bits()
	i := slot - 2
	bit := i / 2

	if bit >= n {
		if t.TrailMark != 0 && i == 2*n && f.policy.match(interval, t.TrailMark) {
			return f.complete(at)
		}
		return Reject, irprotocol.Data{}
	}

	if i%2 == 0 {
		// mark of the bit
		if !t.PulseWidth() {
			return f.expect(interval, t.ZeroMark)
		}
		return f.decide(bit, interval, t.ZeroMark, t.OneMark)
	}

	// space of the bit
	if bit == n-1 && t.TrailMark == 0 {
		// the last space runs into the gap to the next message
		if interval > f.policy.upper(maxMicros(t.ZeroSpace, t.OneSpace)) {
			return f.complete(at)
		}
		return Reject, irprotocol.Data{}
	}
	if t.PulseWidth() {
		return f.expect(interval, t.ZeroSpace)
	}
	return f.decide(bit, interval, t.ZeroSpace, t.OneSpace)
}

func (f *frame) expect(interval, nominal port.Micros) (Status, irprotocol.Data) {
	if f.policy.match(interval, nominal) {
		return Continue, irprotocol.Data{}
	}
	return Reject, irprotocol.Data{}
}

// decide shifts bit into the accumulator (LSB first).
func (f *frame) decide(bit int, interval, zero, one port.Micros) (Status, irprotocol.Data) {
	switch {
	case f.policy.match(interval, zero):
	case f.policy.match(interval, one):
		f.bits |= 1 << bit
	default:
		return Reject, irprotocol.Data{}
	}
	return Continue, irprotocol.Data{}
}

func (f *frame) complete(at port.Micros) (Status, irprotocol.Data) {
	address, command := f.timing.Unframe(f.bits)
	d, ok := f.finish(address, command, at)
	if !ok {
		return Reject, irprotocol.Data{}
	}
	return Accept, d
}

// plain accepts every message as it is, used for protocols without integrity check (Panasonic, Sony).
func (f *frame) plain(address uint16, command uint32, _ port.Micros) (irprotocol.Data, bool) {
	return irprotocol.Data{Protocol: f.protocol, Address: address, Command: command}, true
}

func maxMicros(a, b port.Micros) port.Micros {
	if a > b {
		return a
	}
	return b
}

// NewPanasonic returns the matcher of the 48 bit Panasonic (Kaseikyo) protocol.
func NewPanasonic(policy Policy) Matcher {
	return newFrame(irprotocol.Panasonic, policy, nil)
}

// NewSony returns the matcher of one of the Sony SIRC variants (Sony8, Sony12, Sony15, Sony20).
// The variants only differ in the count of address bits, a message completes with the gap after its last bit.
func NewSony(p irprotocol.Protocol, policy Policy) Matcher {
	return newFrame(p, policy, nil)
}
