package decoder

import (
	"math"

	"irl/pkg/irprotocol"
	"irl/pkg/port"
)

const (
	// RawMaxIntervals is the capacity of the raw recorder.
	RawMaxIntervals = 128
	// rawMinIntervals is the least count of intervals of a raw message.
	rawMinIntervals = 4

	// HashMaxDuration terminates a hashed message even if the signal continues.
	HashMaxDuration port.Micros = 150_000
	// hashMinIntervals is the least count of intervals of a hashed message (6 mark/space pairs).
	hashMinIntervals = 12

	// FNV-1 32 bit parameters
	fnvBasis = 2166136261
	fnvPrime = 16777619
)

// raw records the durations of an unknown message.
// A message is complete after the idle timeout or if the recorder is full.
type raw struct {
	policy Policy
	buf    [RawMaxIntervals]uint16
	n      int
	total  uint32
}

// NewRaw returns a catch-all matcher which records the raw intervals of a message.
// The result holds the count of intervals as address and the total duration (us) as command,
// the intervals are available with Receiver.Timings.
func NewRaw(policy Policy) Matcher {
	return &raw{policy: policy}
}

func (r *raw) Protocol() irprotocol.Protocol {
	return irprotocol.Raw
}

func (r *raw) Reset() {
	r.n = 0
	r.total = 0
}

func (r *raw) Offer(interval, _ port.Micros) (Status, irprotocol.Data) {
	if interval >= r.policy.Timeout {
		return r.finish()
	}

	v := uint16(math.MaxUint16)
	if interval < math.MaxUint16 {
		v = uint16(interval)
	}
	r.buf[r.n] = v
	r.n++
	r.total += uint32(interval)

	if r.n == len(r.buf) {
		return r.finish()
	}
	return Continue, irprotocol.Data{}
}

func (r *raw) finish() (Status, irprotocol.Data) {
	if r.n < rawMinIntervals {
		return Reject, irprotocol.Data{}
	}
	return Accept, irprotocol.Data{Protocol: irprotocol.Raw, Address: uint16(r.n), Command: r.total}
}

func (r *raw) Timings() []uint16 {
	return r.buf[:r.n]
}

// hash folds the shape of an unknown message into a 32 bit FNV hash.
// Each interval is compared to the interval two edges before (mark to mark, space to space),
// so the hash is reproducible although the absolute timing of a remote varies.
type hash struct {
	policy  Policy
	value   uint32
	n       int
	prev    [2]port.Micros
	elapsed port.Micros
}

// NewHash returns a catch-all matcher which reports a hash of the message as command
// and the count of intervals as address.
func NewHash(policy Policy) Matcher {
	h := &hash{policy: policy}
	h.Reset()
	return h
}

func (h *hash) Protocol() irprotocol.Protocol {
	return irprotocol.Hash
}

func (h *hash) Reset() {
	h.value = fnvBasis
	h.n = 0
	h.elapsed = 0
}

func (h *hash) Offer(interval, _ port.Micros) (Status, irprotocol.Data) {
	if interval >= h.policy.Timeout {
		return h.finish()
	}

	if h.n >= 2 {
		h.value = h.value*fnvPrime ^ compare(h.prev[h.n%2], interval)
	}
	h.prev[h.n%2] = interval
	h.n++

	h.elapsed += interval
	if h.elapsed >= HashMaxDuration {
		return h.finish()
	}
	return Continue, irprotocol.Data{}
}

func (h *hash) finish() (Status, irprotocol.Data) {
	if h.n < hashMinIntervals {
		return Reject, irprotocol.Data{}
	}
	return Accept, irprotocol.Data{Protocol: irprotocol.Hash, Address: uint16(h.n), Command: h.value}
}

// compare returns 0 if val is shorter, 2 if it is longer and 1 if it is about equal (20%) to old.
func compare(old, val port.Micros) uint32 {
	switch {
	case uint64(val)*10 < uint64(old)*8:
		return 0
	case uint64(old)*10 < uint64(val)*8:
		return 2
	}
	return 1
}
