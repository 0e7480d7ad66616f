package raspberry

import (
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"irl/pkg/port"
)

type capture struct {
	edges chan port.Micros
	idles chan port.Micros
}

func newCapture() *capture {
	return &capture{edges: make(chan port.Micros, 16), idles: make(chan port.Micros, 16)}
}

func (c *capture) Edge(ts port.Micros) { c.edges <- ts }

func (c *capture) Idle(now port.Micros) { c.idles <- now }

func TestWatchdog(t *testing.T) {
	c := qt.New(t)

	w := &watchdog{idle: 10 * time.Millisecond, now: func() port.Micros { return 4711 }}
	sink := newCapture()
	c.Assert(w.start(sink), qt.IsNil)
	c.Assert(w.start(newCapture()), qt.Equals, ErrBusy)

	w.edge(100)
	c.Assert(<-sink.edges, qt.Equals, port.Micros(100))

	select {
	case now := <-sink.idles:
		c.Assert(now, qt.Equals, port.Micros(4711))
	case <-time.After(time.Second):
		c.Fatal("watchdog did not expire")
	}

	// no edges, no idle reports
	select {
	case <-sink.idles:
		c.Fatal("idle reported without edge")
	case <-time.After(30 * time.Millisecond):
	}
}

func TestWatchdogStop(t *testing.T) {
	c := qt.New(t)

	w := &watchdog{idle: 20 * time.Millisecond, now: func() port.Micros { return 0 }}
	sink := newCapture()
	c.Assert(w.start(sink), qt.IsNil)

	w.edge(1)
	<-sink.edges
	w.stop()

	// edges after stop are dropped
	w.edge(2)
	select {
	case <-sink.edges:
		c.Fatal("edge delivered after stop")
	case <-sink.idles:
		c.Fatal("idle reported after stop")
	case <-time.After(60 * time.Millisecond):
	}

	// the line can be watched again
	c.Assert(w.start(sink), qt.IsNil)
}
