package decoder

import (
	"errors"
	"math"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"irl/pkg/irprotocol"
	"irl/pkg/port"
)

func newReceiver(c *qt.C, protocols ...irprotocol.Protocol) (*Receiver, *fakeSource) {
	chain, err := Build(DefaultPolicy(), protocols...)
	c.Assert(err, qt.IsNil)

	src := &fakeSource{now: 1000}
	r := New(src, chain)
	c.Assert(r.Begin(), qt.IsNil)
	return r, src
}

func TestLatch(t *testing.T) {
	c := qt.New(t)

	var l latch
	c.Assert(l.available(), qt.IsFalse)
	c.Assert(l.read(), qt.Equals, irprotocol.Data{Protocol: irprotocol.NoProtocol})

	l.write(irprotocol.Data{Protocol: irprotocol.NEC, Address: 1, Command: 2})
	c.Assert(l.available(), qt.IsTrue)
	c.Assert(l.read(), qt.Equals, irprotocol.Data{Protocol: irprotocol.NEC, Address: 1, Command: 2})
	c.Assert(l.available(), qt.IsFalse)
	c.Assert(l.read(), qt.Equals, irprotocol.Data{Protocol: irprotocol.NoProtocol})
	// the last protocol is kept without the ready bit
	c.Assert(l.data.Protocol, qt.Equals, irprotocol.NEC.Consumed())

	// last message wins
	l.write(irprotocol.Data{Protocol: irprotocol.Sony12, Address: 1, Command: 1})
	l.write(irprotocol.Data{Protocol: irprotocol.Sony12.Consumed(), Address: 2, Command: 2})
	c.Assert(l.read(), qt.Equals, irprotocol.Data{Protocol: irprotocol.Sony12, Address: 2, Command: 2})

	l.write(irprotocol.Data{Protocol: irprotocol.Raw, Address: 2, Command: 3})
	l.record([]uint16{1, 2})
	l.reset()
	c.Assert(l.available(), qt.IsFalse)
	c.Assert(l.data, qt.Equals, irprotocol.Data{})
	c.Assert(l.rawLen, qt.Equals, 0)
}

func TestReceiverReadOnce(t *testing.T) {
	c := qt.New(t)

	r, src := newReceiver(c, irprotocol.NEC)
	c.Assert(r.Available(), qt.IsFalse)

	src.play(gap)
	src.play(message(irprotocol.NEC, 0x00FF, 0x1A)...)

	c.Assert(r.Available(), qt.IsTrue)
	c.Assert(r.Read(), qt.Equals, irprotocol.Data{Protocol: irprotocol.NEC, Address: 0x00FF, Command: 0x1A})
	c.Assert(r.Available(), qt.IsFalse)
	c.Assert(r.Read(), qt.Equals, irprotocol.Data{Protocol: irprotocol.NoProtocol})

	src.play(gap)
	src.play(message(irprotocol.NEC, 0x01, 0x02)...)
	r.Reset()
	c.Assert(r.Available(), qt.IsFalse)
	c.Assert(r.Read().Protocol, qt.Equals, irprotocol.NoProtocol)
}

func TestReceiverIdle(t *testing.T) {
	c := qt.New(t)

	r, src := newReceiver(c, irprotocol.NEC, irprotocol.Sony12)

	src.play(gap)
	src.play(message(irprotocol.Sony12, 0x01, 0x15)...)
	c.Assert(r.Available(), qt.IsFalse)

	// the watchdog fires before the timeout is reached
	r.Idle(src.now + 1000)
	c.Assert(r.Available(), qt.IsFalse)
	c.Assert(r.chain.Running(), qt.IsTrue)

	r.Idle(src.now + DefaultTimeout)
	c.Assert(r.Read(), qt.Equals, irprotocol.Data{Protocol: irprotocol.Sony12, Address: 0x01, Command: 0x15})
	c.Assert(r.chain.Running(), qt.IsFalse)

	// a partial message is dropped
	src.play(gap)
	src.play(message(irprotocol.NEC, 0x01, 0x02)[:30]...)
	c.Assert(r.chain.Running(), qt.IsTrue)
	src.now += 20_000
	r.Idle(src.now)
	c.Assert(r.chain.Running(), qt.IsFalse)
	c.Assert(r.Available(), qt.IsFalse)
}

func TestReceiverRawTimings(t *testing.T) {
	c := qt.New(t)

	r, src := newReceiver(c, irprotocol.NEC, irprotocol.Raw)
	src.play(gap, 2000, 1000, 300, 900, 300, 70_000)

	c.Assert(r.Read(), qt.Equals, irprotocol.Data{Protocol: irprotocol.Raw, Address: 5, Command: 4500})
	buf := make([]uint16, RawMaxIntervals)
	n := r.Timings(buf)
	c.Assert(buf[:n], qt.DeepEquals, []uint16{2000, 1000, 300, 900, 300})

	// a decoded message has no raw timings
	src.play(message(irprotocol.NEC, 0x01, 0x02)...)
	c.Assert(r.Read().Protocol, qt.Equals, irprotocol.NEC)
	c.Assert(r.Timings(buf), qt.Equals, 0)
}

func TestReceiverClockWrap(t *testing.T) {
	c := qt.New(t)

	chain, err := Build(DefaultPolicy(), irprotocol.NEC)
	c.Assert(err, qt.IsNil)

	src := &fakeSource{now: math.MaxUint32 - 30_000}
	r := New(src, chain)
	c.Assert(r.Begin(), qt.IsNil)

	// the clock wraps within the lead mark of the message
	src.play(25_000)
	src.play(message(irprotocol.NEC, 0x42, 0x24)...)
	c.Assert(src.now < 100_000, qt.IsTrue)
	c.Assert(r.Read(), qt.Equals, irprotocol.Data{Protocol: irprotocol.NEC, Address: 0x42, Command: 0x24})
}

func TestReceiverBeginFailure(t *testing.T) {
	c := qt.New(t)

	chain, err := Build(DefaultPolicy(), irprotocol.NEC)
	c.Assert(err, qt.IsNil)

	errBusy := errors.New("line busy")
	src := &fakeSource{attachErr: errBusy}
	r := New(src, chain)

	err = r.Begin()
	c.Assert(err, qt.ErrorIs, errBusy)
	c.Assert(err, qt.ErrorMatches, "can't attach capture source: line busy")

	// the receiver stays inert
	for _, iv := range append([]port.Micros{gap}, message(irprotocol.NEC, 1, 2)...) {
		src.now += iv
		r.Edge(src.now)
	}
	c.Assert(r.Available(), qt.IsFalse)
	c.Assert(r.End(), qt.Equals, ErrNotAttached)
}

func TestReceiverEnd(t *testing.T) {
	c := qt.New(t)

	r, src := newReceiver(c, irprotocol.NEC)
	src.play(gap)
	src.play(message(irprotocol.NEC, 1, 2)[:10]...)

	c.Assert(r.End(), qt.IsNil)
	c.Assert(src.detached, qt.IsTrue)
	c.Assert(r.chain.Running(), qt.IsFalse)
	c.Assert(r.End(), qt.Equals, ErrNotAttached)

	// edges after End are ignored
	r.Edge(src.now + 9000)
	c.Assert(r.chain.Running(), qt.IsFalse)

	// and a new Begin starts from scratch
	c.Assert(r.Begin(), qt.IsNil)
	src.play(gap)
	src.play(message(irprotocol.NEC, 1, 2)...)
	c.Assert(r.Read().Protocol, qt.Equals, irprotocol.NEC)
}

func TestReceiverTimeout(t *testing.T) {
	c := qt.New(t)

	r, src := newReceiver(c, irprotocol.NEC)
	c.Assert(r.LastEvent(), qt.Equals, port.Micros(1000))

	src.play(500)
	c.Assert(r.LastEvent(), qt.Equals, port.Micros(1500))

	src.now += 2000
	c.Assert(r.Timeout(), qt.Equals, port.Micros(2000))
	c.Assert(r.Protocols(), qt.DeepEquals, []irprotocol.Protocol{irprotocol.NEC})
}

func TestReceiverBeginTwice(t *testing.T) {
	c := qt.New(t)

	r, src := newReceiver(c, irprotocol.NEC)
	c.Assert(r.Begin(), qt.IsNil)
	c.Assert(src.attaches, qt.Equals, 1)

	// the receiver keeps decoding
	src.play(gap)
	src.play(message(irprotocol.NEC, 0x10, 0x20)...)
	c.Assert(r.Read(), qt.Equals, irprotocol.Data{Protocol: irprotocol.NEC, Address: 0x10, Command: 0x20})

	// and releases its source
	c.Assert(r.End(), qt.IsNil)
	c.Assert(src.detached, qt.IsTrue)
	c.Assert(src.capture, qt.IsNil)
}

func TestReceiverMask(t *testing.T) {
	c := qt.New(t)

	r, src := newReceiver(c, irprotocol.NEC)
	unmask := r.Mask()

	started := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		close(started)
		src.capture.Edge(src.now + gap)
	}()

	<-started
	select {
	case <-done:
		c.Fatal("edge was processed while the capture context was masked")
	case <-time.After(50 * time.Millisecond):
	}

	unmask()
	<-done
	c.Assert(r.LastEvent(), qt.Equals, port.Micros(1000)+gap)
}
