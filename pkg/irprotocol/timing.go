package irprotocol

import "irl/pkg/port"

// Timing is the transmit/receive grammar of a protocol.
// A message is a lead mark/space pair, one mark/space pair per payload bit and an optional trail mark.
// The payload bits are sent LSB first, address bits before command bits if AddressFirst is set.
type Timing struct {
	// Carrier is the modulation frequency of a mark (Hz).
	Carrier uint32

	LeadMark  port.Micros
	LeadSpace port.Micros
	ZeroMark  port.Micros
	ZeroSpace port.Micros
	OneMark   port.Micros
	OneSpace  port.Micros
	// TrailMark terminates the last space; zero if the protocol has no trail mark.
	TrailMark port.Micros

	AddressBits  uint8
	CommandBits  uint8
	AddressFirst bool
}

const (
	necCarrier       = 38_000
	necLeadMark      = 9000
	necLeadSpace     = 4500
	necRepeatSpace   = 2250
	necBitMark       = 560
	necZeroSpace     = 560
	necOneSpace      = 1690
	necTrailMark     = 560
	panasonicCarrier = 37_000
	panasonicUnit    = 432
	sonyCarrier      = 40_000
	sonyUnit         = 600
)

var (
	necTiming = Timing{
		Carrier:  necCarrier,
		LeadMark: necLeadMark, LeadSpace: necLeadSpace,
		ZeroMark: necBitMark, ZeroSpace: necZeroSpace,
		OneMark: necBitMark, OneSpace: necOneSpace,
		TrailMark:   necTrailMark,
		AddressBits: 16, CommandBits: 16, AddressFirst: true,
	}
	necRepeatTiming = Timing{
		Carrier:  necCarrier,
		LeadMark: necLeadMark, LeadSpace: necRepeatSpace,
		TrailMark: necTrailMark,
	}
	panasonicTiming = Timing{
		Carrier:  panasonicCarrier,
		LeadMark: panasonicUnit * 8, LeadSpace: panasonicUnit * 4,
		ZeroMark: panasonicUnit, ZeroSpace: panasonicUnit,
		OneMark: panasonicUnit, OneSpace: panasonicUnit * 3,
		TrailMark:   panasonicUnit,
		AddressBits: 16, CommandBits: 32, AddressFirst: true,
	}
)

func sonyTiming(addressBits uint8) Timing {
	return Timing{
		Carrier:  sonyCarrier,
		LeadMark: sonyUnit * 4, LeadSpace: sonyUnit,
		ZeroMark: sonyUnit, ZeroSpace: sonyUnit,
		OneMark: sonyUnit * 2, OneSpace: sonyUnit,
		AddressBits: addressBits, CommandBits: 7,
	}
}

var timings = map[Protocol]Timing{
	NEC:         necTiming,
	NECExtended: necTiming,
	NECRepeat:   necRepeatTiming,
	Panasonic:   panasonicTiming,
	Sony8:       sonyTiming(1),
	Sony12:      sonyTiming(5),
	Sony15:      sonyTiming(8),
	Sony20:      sonyTiming(13),
}

// Lookup returns the grammar of p.
// Raw and Hash have no grammar, they are receive only.
func Lookup(p Protocol) (Timing, bool) {
	t, ok := timings[p|New]
	return t, ok
}

// Bits returns the count of payload bits.
func (t Timing) Bits() int {
	return int(t.AddressBits) + int(t.CommandBits)
}

// PulseWidth reports whether a bit is told by its mark (true) or by its space (false).
func (t Timing) PulseWidth() bool {
	return t.ZeroMark != t.OneMark
}

// Frame joins address and command to the bit sequence on air, the first bit sent is bit 0.
func (t Timing) Frame(address uint16, command uint32) uint64 {
	a := uint64(address) & mask(t.AddressBits)
	c := uint64(command) & mask(t.CommandBits)
	if t.AddressFirst {
		return a | c<<t.AddressBits
	}
	return c | a<<t.CommandBits
}

// Unframe splits a received bit sequence into address and command.
func (t Timing) Unframe(bits uint64) (address uint16, command uint32) {
	if t.AddressFirst {
		return uint16(bits & mask(t.AddressBits)), uint32(bits >> t.AddressBits & mask(t.CommandBits))
	}
	return uint16(bits >> t.CommandBits & mask(t.AddressBits)), uint32(bits & mask(t.CommandBits))
}

// Duration returns the nominal on-air length of a message carrying bits.
func (t Timing) Duration(bits uint64) port.Micros {
	d := t.LeadMark + t.LeadSpace + t.TrailMark
	for i := 0; i < t.Bits(); i++ {
		if bits&(1<<i) == 0 {
			d += t.ZeroMark + t.ZeroSpace
		} else {
			d += t.OneMark + t.OneSpace
		}
	}
	return d
}

func mask(n uint8) uint64 {
	return 1<<n - 1
}

// Pack converts the generic (address, command) of p to the fields sent on air.
// Bits beyond the width of the protocol are silently truncated:
//
//	NEC:         8 bit address followed by its complement, 8 bit command followed by its complement
//	NECExtended: 16 bit address, 8 bit command followed by its complement
//	Panasonic:   16 bit address, 32 bit command
//	Sony:        7 bit command, 1/5/8/13 bit address
func Pack(p Protocol, address uint16, command uint32) (wireAddress uint16, wireCommand uint32) {
	cmd := byte(command)
	necCommand := uint32(^cmd)<<8 | uint32(cmd)

	switch p | New {
	case NEC:
		lo, hi := SplitNECAddress(uint16(uint8(address)))
		return uint16(hi)<<8 | uint16(lo), necCommand
	case NECExtended:
		return address, necCommand
	case NECRepeat:
		return 0, 0
	}

	t, ok := Lookup(p)
	if !ok {
		return 0, 0
	}
	return uint16(uint64(address) & mask(t.AddressBits)), uint32(uint64(command) & mask(t.CommandBits))
}
