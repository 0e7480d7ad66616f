package decoder

import (
	"errors"
	"fmt"

	"github.com/womat/debug"

	"irl/pkg/irprotocol"
	"irl/pkg/port"
)

// ErrEmptyChain is returned if a chain is built without protocols.
var ErrEmptyChain = errors.New("empty protocol chain")

// Chain dispatches the intervals of a message to an ordered set of matchers.
//
// While idle, an interval is a header candidate and is offered to all matchers.
// While a message is in progress, an interval is offered to the matchers which did not reject yet.
// The first matcher to accept completes the message; matchers declared earlier win
// if several would accept the same interval. If all matchers reject, the message is dropped silently.
//
// The chain is not safe for concurrent use, it belongs to the capture context.
type Chain struct {
	policy   Policy
	matchers []Matcher
	active   []bool
	running  bool
	last     Matcher
}

// NewChain returns a chain of matchers in priority order.
func NewChain(policy Policy, matchers ...Matcher) *Chain {
	return &Chain{
		policy:   policy,
		matchers: matchers,
		active:   make([]bool, len(matchers)),
	}
}

// Build returns a chain of the matchers of protocols in priority order.
// The NEC matchers of the chain share one NECFamily.
func Build(policy Policy, protocols ...irprotocol.Protocol) (*Chain, error) {
	if len(protocols) == 0 {
		return nil, ErrEmptyChain
	}

	fam := &NECFamily{}
	matchers := make([]Matcher, 0, len(protocols))
	for _, p := range protocols {
		m, err := NewMatcher(p, policy, fam)
		if err != nil {
			return nil, err
		}
		matchers = append(matchers, m)
	}
	debug.DebugLog.Printf("decoder chain %v, tolerance %v%%, timeout %vus", protocols, policy.Tolerance, policy.Timeout)
	return NewChain(policy, matchers...), nil
}

// NewMatcher returns the matcher of protocol p.
func NewMatcher(p irprotocol.Protocol, policy Policy, fam *NECFamily) (Matcher, error) {
	switch p | irprotocol.New {
	case irprotocol.NEC:
		return NewNEC(policy, fam), nil
	case irprotocol.NECExtended:
		return NewNECExtended(policy, fam), nil
	case irprotocol.NECRepeat:
		return NewNECRepeat(policy, fam), nil
	case irprotocol.Panasonic:
		return NewPanasonic(policy), nil
	case irprotocol.Sony8, irprotocol.Sony12, irprotocol.Sony15, irprotocol.Sony20:
		return NewSony(p|irprotocol.New, policy), nil
	case irprotocol.Raw:
		return NewRaw(policy), nil
	case irprotocol.Hash:
		return NewHash(policy), nil
	}
	return nil, fmt.Errorf("no decoder for protocol %v", p)
}

// Protocols returns the protocols of the chain in priority order.
func (c *Chain) Protocols() []irprotocol.Protocol {
	p := make([]irprotocol.Protocol, len(c.matchers))
	for i, m := range c.matchers {
		p[i] = m.Protocol()
	}
	return p
}

// Running reports whether a message is in progress.
func (c *Chain) Running() bool {
	return c.running
}

// Last returns the matcher which completed the last message.
func (c *Chain) Last() Matcher {
	return c.last
}

// Feed offers the interval closed by the edge at timestamp at.
// It returns the result if the interval completed a message.
func (c *Chain) Feed(interval, at port.Micros) (irprotocol.Data, bool) {
	if c.running && interval >= c.policy.Timeout {
		// the message in progress timed out before this edge
		if d, ok := c.Expire(interval, at); ok {
			return d, true
		}
	}

	if !c.running {
		for i, m := range c.matchers {
			m.Reset()
			c.active[i] = true
		}
		c.running = true
	}
	return c.offer(interval, at)
}

// Expire terminates the message in progress after the idle gap.
// The gap is offered as a last interval, so matchers which complete with the
// gap after a message (Sony, raw, hash) are able to finish.
func (c *Chain) Expire(gap, at port.Micros) (irprotocol.Data, bool) {
	if !c.running {
		return irprotocol.Data{}, false
	}

	d, ok := c.offer(gap, at)
	c.running = false
	return d, ok
}

// Stop drops the message in progress.
func (c *Chain) Stop() {
	c.running = false
}

func (c *Chain) offer(interval, at port.Micros) (irprotocol.Data, bool) {
	alive := false
	for i, m := range c.matchers {
		if !c.active[i] {
			continue
		}

		switch st, d := m.Offer(interval, at); st {
		case Accept:
			c.running = false
			c.last = m
			return d, true
		case Reject:
			c.active[i] = false
		default:
			alive = true
		}
	}

	if !alive {
		c.running = false
	}
	return irprotocol.Data{}, false
}
