package decoder

import (
	"fmt"
	"testing"

	qt "github.com/frankban/quicktest"

	"irl/pkg/irprotocol"
	"irl/pkg/port"
)

func TestPolicyMatch(t *testing.T) {
	c := qt.New(t)

	p := DefaultPolicy()
	c.Assert(p.match(9000, 9000), qt.IsTrue)
	c.Assert(p.match(6750, 9000), qt.IsTrue)
	c.Assert(p.match(11250, 9000), qt.IsTrue)
	c.Assert(p.match(6749, 9000), qt.IsFalse)
	c.Assert(p.match(11251, 9000), qt.IsFalse)
	c.Assert(p.match(0xFFFFFFFF, 9000), qt.IsFalse)

	// additive tolerance
	p = Policy{Slack: 100}
	c.Assert(p.match(660, 560), qt.IsTrue)
	c.Assert(p.match(460, 560), qt.IsTrue)
	c.Assert(p.match(661, 560), qt.IsFalse)
	c.Assert(p.upper(560), qt.Equals, port.Micros(660))
}

func TestNECNominal(t *testing.T) {
	c := qt.New(t)

	chain, err := Build(DefaultPolicy(), irprotocol.NEC)
	c.Assert(err, qt.IsNil)

	var now port.Micros
	iv := append([]port.Micros{gap}, message(irprotocol.NEC, 0x00FF, 0x1A)...)
	c.Assert(len(iv), qt.Equals, 1+2+64+1)

	results := feed(chain, &now, iv...)
	c.Assert(results, qt.DeepEquals, []irprotocol.Data{{Protocol: irprotocol.NEC, Address: 0x00FF, Command: 0x1A}})
	c.Assert(chain.Running(), qt.IsFalse)
	c.Assert(chain.Last().Protocol(), qt.Equals, irprotocol.NEC)
}

func TestNECComplementMismatch(t *testing.T) {
	c := qt.New(t)
	timing, _ := irprotocol.Lookup(irprotocol.NEC)

	// bits 24..31 carry the inverted command
	for bit := 24; bit < 32; bit++ {
		iv := flip(message(irprotocol.NEC, 0x00FF, 0x1A), bit, timing)

		c.Run(fmt.Sprintf("bit %d without fallback", bit), func(c *qt.C) {
			chain, err := Build(DefaultPolicy(), irprotocol.NEC, irprotocol.NECExtended)
			c.Assert(err, qt.IsNil)

			var now port.Micros
			results := feed(chain, &now, append(append([]port.Micros{gap}, iv...), gap)...)
			c.Assert(results, qt.HasLen, 0)
		})

		c.Run(fmt.Sprintf("bit %d falls to hash", bit), func(c *qt.C) {
			chain, err := Build(DefaultPolicy(), irprotocol.NEC, irprotocol.Hash)
			c.Assert(err, qt.IsNil)

			var now port.Micros
			results := feed(chain, &now, append(append([]port.Micros{gap}, iv...), gap)...)
			c.Assert(results, qt.HasLen, 1)
			c.Assert(results[0].Protocol, qt.Equals, irprotocol.Hash)
			c.Assert(results[0].Address, qt.Equals, uint16(len(iv)))
		})
	}
}

func TestNECAddress(t *testing.T) {
	c := qt.New(t)

	tests := []struct {
		name     string
		chain    []irprotocol.Protocol
		sent     irprotocol.Protocol
		address  uint16
		expected irprotocol.Data
	}{
		{
			name:     "standard first, standard message",
			chain:    []irprotocol.Protocol{irprotocol.NEC, irprotocol.NECExtended},
			sent:     irprotocol.NEC,
			address:  0x0020,
			expected: irprotocol.Data{Protocol: irprotocol.NEC, Address: 0x20, Command: 0x33},
		},
		{
			name:     "extended first, standard message",
			chain:    []irprotocol.Protocol{irprotocol.NECExtended, irprotocol.NEC},
			sent:     irprotocol.NEC,
			address:  0x0020,
			expected: irprotocol.Data{Protocol: irprotocol.NECExtended, Address: 0xDF20, Command: 0x33},
		},
		{
			name:     "standard first, extended message",
			chain:    []irprotocol.Protocol{irprotocol.NEC, irprotocol.NECExtended},
			sent:     irprotocol.NECExtended,
			address:  0xF00D,
			expected: irprotocol.Data{Protocol: irprotocol.NECExtended, Address: 0xF00D, Command: 0x33},
		},
		{
			name:     "extended first, extended message",
			chain:    []irprotocol.Protocol{irprotocol.NECExtended, irprotocol.NEC},
			sent:     irprotocol.NECExtended,
			address:  0xF00D,
			expected: irprotocol.Data{Protocol: irprotocol.NECExtended, Address: 0xF00D, Command: 0x33},
		},
	}

	for _, test := range tests {
		c.Run(test.name, func(c *qt.C) {
			chain, err := Build(DefaultPolicy(), test.chain...)
			c.Assert(err, qt.IsNil)

			var now port.Micros
			results := feed(chain, &now, append([]port.Micros{gap}, message(test.sent, test.address, 0x33)...)...)
			c.Assert(results, qt.DeepEquals, []irprotocol.Data{test.expected})
		})
	}
}

func TestNECRepeat(t *testing.T) {
	c := qt.New(t)

	first := irprotocol.Data{Protocol: irprotocol.NEC, Address: 0x04, Command: 0x08}
	frame := append([]port.Micros{gap}, message(irprotocol.NEC, 0x04, 0x08)...)
	repeat := message(irprotocol.NECRepeat, 0, 0)

	c.Run("within window", func(c *qt.C) {
		chain, err := Build(DefaultPolicy(), irprotocol.NEC, irprotocol.NECRepeat)
		c.Assert(err, qt.IsNil)

		var now port.Micros
		results := feed(chain, &now, frame...)
		results = append(results, feed(chain, &now, append([]port.Micros{40_000}, repeat...)...)...)
		// a repeat of a repeat measures the window from the previous repeat
		results = append(results, feed(chain, &now, append([]port.Micros{96_000}, repeat...)...)...)
		c.Assert(results, qt.DeepEquals, []irprotocol.Data{first, first, first})
		c.Assert(chain.Last().Protocol(), qt.Equals, irprotocol.NECRepeat)
	})

	c.Run("after window", func(c *qt.C) {
		chain, err := Build(DefaultPolicy(), irprotocol.NEC, irprotocol.NECRepeat)
		c.Assert(err, qt.IsNil)

		var now port.Micros
		results := feed(chain, &now, frame...)
		results = append(results, feed(chain, &now, append([]port.Micros{150_000}, repeat...)...)...)
		c.Assert(results, qt.DeepEquals, []irprotocol.Data{first})
	})

	c.Run("without message", func(c *qt.C) {
		chain, err := Build(DefaultPolicy(), irprotocol.NEC, irprotocol.NECRepeat)
		c.Assert(err, qt.IsNil)

		var now port.Micros
		results := feed(chain, &now, append([]port.Micros{gap}, repeat...)...)
		c.Assert(results, qt.HasLen, 0)
	})
}

func TestPanasonic(t *testing.T) {
	c := qt.New(t)

	chain, err := Build(DefaultPolicy(), irprotocol.NEC, irprotocol.Panasonic)
	c.Assert(err, qt.IsNil)

	var now port.Micros
	results := feed(chain, &now, append([]port.Micros{gap}, message(irprotocol.Panasonic, 0x2002, 0x3D0D0100)...)...)
	c.Assert(results, qt.DeepEquals, []irprotocol.Data{{Protocol: irprotocol.Panasonic, Address: 0x2002, Command: 0x3D0D0100}})
}

func TestSony(t *testing.T) {
	c := qt.New(t)

	all := []irprotocol.Protocol{irprotocol.Sony8, irprotocol.Sony12, irprotocol.Sony15, irprotocol.Sony20}
	tests := []struct {
		protocol irprotocol.Protocol
		address  uint16
		command  uint32
		gap      port.Micros
	}{
		{protocol: irprotocol.Sony8, address: 0x01, command: 0x2A, gap: 6000},
		{protocol: irprotocol.Sony12, address: 0x01, command: 0x15, gap: 6000},
		{protocol: irprotocol.Sony15, address: 0x97, command: 0x7F, gap: 25_000},
		{protocol: irprotocol.Sony20, address: 0x1ABC, command: 0x00, gap: 25_000},
	}

	for _, test := range tests {
		c.Run(test.protocol.String(), func(c *qt.C) {
			chain, err := Build(DefaultPolicy(), all...)
			c.Assert(err, qt.IsNil)

			var now port.Micros
			iv := append([]port.Micros{gap}, message(test.protocol, test.address, test.command)...)
			c.Assert(feed(chain, &now, iv...), qt.HasLen, 0)
			c.Assert(chain.Running(), qt.IsTrue)

			results := feed(chain, &now, test.gap)
			c.Assert(results, qt.DeepEquals, []irprotocol.Data{{Protocol: test.protocol, Address: test.address, Command: test.command}})
		})
	}
}

func TestRaw(t *testing.T) {
	c := qt.New(t)

	chain, err := Build(DefaultPolicy(), irprotocol.NEC, irprotocol.Raw)
	c.Assert(err, qt.IsNil)

	var now port.Micros
	iv := []port.Micros{gap, 3000, 1000, 500, 1500, 500, 500, 70_000}
	results := feed(chain, &now, iv...)
	c.Assert(results, qt.DeepEquals, []irprotocol.Data{{Protocol: irprotocol.Raw, Address: 6, Command: 7000}})
	c.Assert(chain.Last().(recorder).Timings(), qt.DeepEquals, []uint16{3000, 1000, 500, 1500, 500, 500})

	// too short
	results = feed(chain, &now, 3000, 1000, 70_000)
	c.Assert(results, qt.HasLen, 0)
}

func TestRawFull(t *testing.T) {
	c := qt.New(t)

	chain, err := Build(DefaultPolicy(), irprotocol.Raw)
	c.Assert(err, qt.IsNil)

	var now port.Micros
	iv := []port.Micros{gap}
	for i := 0; i < RawMaxIntervals; i++ {
		iv = append(iv, 500)
	}
	results := feed(chain, &now, iv...)
	c.Assert(results, qt.DeepEquals, []irprotocol.Data{{Protocol: irprotocol.Raw, Address: RawMaxIntervals, Command: 500 * RawMaxIntervals}})
}

func TestHashReproducible(t *testing.T) {
	c := qt.New(t)

	jitter := func(iv []port.Micros) []port.Micros {
		out := make([]port.Micros, len(iv))
		for i, v := range iv {
			switch i % 3 {
			case 0:
				out[i] = v * 9 / 10
			case 1:
				out[i] = v * 11 / 10
			default:
				out[i] = v
			}
		}
		return out
	}
	hashOf := func(iv []port.Micros) irprotocol.Data {
		chain, err := Build(DefaultPolicy(), irprotocol.Hash)
		c.Assert(err, qt.IsNil)

		var now port.Micros
		results := feed(chain, &now, append(append([]port.Micros{gap}, iv...), gap)...)
		c.Assert(results, qt.HasLen, 1)
		return results[0]
	}

	nominal := hashOf(message(irprotocol.NEC, 0x10, 0x20))
	c.Assert(nominal.Protocol, qt.Equals, irprotocol.Hash)
	c.Assert(nominal.Address, qt.Equals, uint16(67))
	c.Assert(hashOf(jitter(message(irprotocol.NEC, 0x10, 0x20))), qt.Equals, nominal)
	c.Assert(hashOf(message(irprotocol.NEC, 0x10, 0x21)).Command, qt.Not(qt.Equals), nominal.Command)
}

func TestHashMaxDuration(t *testing.T) {
	c := qt.New(t)

	chain, err := Build(DefaultPolicy(), irprotocol.Hash)
	c.Assert(err, qt.IsNil)

	var now port.Micros
	iv := []port.Micros{gap}
	for i := 0; i < 20; i++ {
		iv = append(iv, 10_000)
	}
	results := feed(chain, &now, iv...)
	c.Assert(results, qt.HasLen, 1)
	// 15 intervals reach 150 ms
	c.Assert(results[0].Address, qt.Equals, uint16(15))
}

func TestNoiseRejection(t *testing.T) {
	c := qt.New(t)

	chain, err := Build(DefaultPolicy(), irprotocol.NEC, irprotocol.NECExtended, irprotocol.NECRepeat,
		irprotocol.Panasonic, irprotocol.Sony20, irprotocol.Sony15, irprotocol.Sony12, irprotocol.Sony8)
	c.Assert(err, qt.IsNil)

	// durations between and beyond all tolerance windows
	noise := []port.Micros{50, 120, 300, 760, 800, 890, 11_300, 12_000, 14_000, 20_000, 60_000}
	var now port.Micros
	var iv []port.Micros
	x := uint32(12345)
	for i := 0; i < 5000; i++ {
		// xorshift
		x ^= x << 13
		x ^= x >> 17
		x ^= x << 5
		iv = append(iv, noise[x%uint32(len(noise))])
	}
	c.Assert(feed(chain, &now, iv...), qt.HasLen, 0)
}

func TestChainTimeout(t *testing.T) {
	c := qt.New(t)

	chain, err := Build(DefaultPolicy(), irprotocol.NEC)
	c.Assert(err, qt.IsNil)

	var now port.Micros
	iv := message(irprotocol.NEC, 0x01, 0x02)
	c.Assert(feed(chain, &now, append([]port.Micros{gap}, iv[:20]...)...), qt.HasLen, 0)
	c.Assert(chain.Running(), qt.IsTrue)

	// the timed out message does not block the next one
	results := feed(chain, &now, append([]port.Micros{gap}, iv...)...)
	c.Assert(results, qt.DeepEquals, []irprotocol.Data{{Protocol: irprotocol.NEC, Address: 0x01, Command: 0x02}})

	_, ok := chain.Expire(gap, now)
	c.Assert(ok, qt.IsFalse)
}

func TestBuild(t *testing.T) {
	c := qt.New(t)

	_, err := Build(DefaultPolicy())
	c.Assert(err, qt.Equals, ErrEmptyChain)

	_, err = Build(DefaultPolicy(), irprotocol.NoProtocol)
	c.Assert(err, qt.ErrorMatches, "no decoder for protocol none")

	chain, err := Build(DefaultPolicy(), irprotocol.Protocols()...)
	c.Assert(err, qt.IsNil)
	c.Assert(chain.Protocols(), qt.DeepEquals, irprotocol.Protocols())

	// consumed tags are accepted as well
	chain, err = Build(DefaultPolicy(), irprotocol.Sony12.Consumed())
	c.Assert(err, qt.IsNil)
	c.Assert(chain.Protocols(), qt.DeepEquals, []irprotocol.Protocol{irprotocol.Sony12})
}
