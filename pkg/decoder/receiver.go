package decoder

import (
	"errors"
	"fmt"
	"sync"

	"github.com/womat/debug"

	"irl/pkg/irprotocol"
	"irl/pkg/port"
)

// ErrNotAttached is returned by End if the receiver was not started.
var ErrNotAttached = errors.New("receiver is not attached")

// Capture is the entry point of the capture context.
type Capture interface {
	// Edge is called for each edge on the IR line with the timestamp of the edge.
	Edge(ts port.Micros)
	// Idle is called by a watchdog while the line is quiet.
	Idle(now port.Micros)
}

// Source delivers the edges of the IR receiver line and a monotonic microsecond clock.
type Source interface {
	// Attach starts delivering edges to c.
	Attach(c Capture) error
	// Detach stops delivering edges.
	Detach() error
	// Now returns the current time of the clock the edges are stamped with.
	Now() port.Micros
}

// critical masks the capture context while a consumer accesses shared state.
type critical struct {
	mu sync.Mutex
}

// enter masks the capture context until the returned func is called.
func (c *critical) enter() (leave func()) {
	c.mu.Lock()
	return c.mu.Unlock
}

// Receiver decodes the edges of a Source and latches the last decoded message.
//
// Edge and Idle run in the capture context; all other methods are for the consumer and
// only mask the capture context for the access to the shared state.
type Receiver struct {
	cs     critical
	source Source
	chain  *Chain

	// shared state, guarded by cs
	latch     latch
	lastEvent port.Micros
	attached  bool
}

// New returns a receiver decoding the edges of source with chain.
func New(source Source, chain *Chain) *Receiver {
	return &Receiver{source: source, chain: chain}
}

// Begin attaches the receiver to its source.
// If the source is not available the receiver stays inert.
// Begin on an attached receiver does nothing.
func (r *Receiver) Begin() error {
	leave := r.cs.enter()
	attached := r.attached
	leave()
	if attached {
		debug.DebugLog.Print("receiver is already attached")
		return nil
	}

	if err := r.source.Attach(r); err != nil {
		return fmt.Errorf("can't attach capture source: %w", err)
	}

	leave = r.cs.enter()
	r.attached = true
	r.lastEvent = r.source.Now()
	r.chain.Stop()
	leave()

	debug.DebugLog.Printf("receiver attached, protocols %v", r.chain.Protocols())
	return nil
}

// End detaches the receiver from its source.
func (r *Receiver) End() error {
	leave := r.cs.enter()
	if !r.attached {
		leave()
		return ErrNotAttached
	}
	r.attached = false
	r.chain.Stop()
	leave()

	debug.DebugLog.Print("receiver detached")
	return r.source.Detach()
}

// Edge implements Capture.
func (r *Receiver) Edge(ts port.Micros) {
	defer r.cs.enter()()

	if !r.attached {
		return
	}

	interval := ts.Sub(r.lastEvent)
	r.lastEvent = ts
	if d, ok := r.chain.Feed(interval, ts); ok {
		r.complete(d)
	}
}

// Idle implements Capture. A message in progress is terminated if the line was quiet
// for longer than the timeout.
func (r *Receiver) Idle(now port.Micros) {
	defer r.cs.enter()()

	if !r.attached || !r.chain.Running() {
		return
	}

	gap := now.Sub(r.lastEvent)
	if gap < r.chain.policy.Timeout {
		return
	}
	if d, ok := r.chain.Expire(gap, now); ok {
		r.complete(d)
	}
}

func (r *Receiver) complete(d irprotocol.Data) {
	r.latch.write(d)
	if rec, ok := r.chain.Last().(recorder); ok {
		r.latch.record(rec.Timings())
	}
}

// Available reports whether an unread result is latched.
func (r *Receiver) Available() bool {
	defer r.cs.enter()()
	return r.latch.available()
}

// Read returns the latched result and marks it as read.
// Without an unread result it returns Data with NoProtocol.
func (r *Receiver) Read() irprotocol.Data {
	defer r.cs.enter()()
	return r.latch.read()
}

// Reset discards the latched result.
func (r *Receiver) Reset() {
	defer r.cs.enter()()
	r.latch.reset()
}

// Timings copies the intervals of the last raw result to dst and returns the count of copied intervals.
func (r *Receiver) Timings(dst []uint16) int {
	defer r.cs.enter()()
	return copy(dst, r.latch.raw[:r.latch.rawLen])
}

// LastEvent returns the timestamp of the last edge.
func (r *Receiver) LastEvent() port.Micros {
	defer r.cs.enter()()
	return r.lastEvent
}

// Timeout returns the time elapsed since the last edge.
func (r *Receiver) Timeout() port.Micros {
	last := r.LastEvent()
	return r.source.Now().Sub(last)
}

// Protocols returns the protocols the receiver decodes in priority order.
func (r *Receiver) Protocols() []irprotocol.Protocol {
	return r.chain.Protocols()
}

// Mask suspends the capture context until the returned func is called.
// Edges which arrive meanwhile are processed afterwards.
// A transmission holds the mask, so sending and receiving never interleave.
func (r *Receiver) Mask() (unmask func()) {
	return r.cs.enter()
}
