package decoder

import (
	"irl/pkg/irprotocol"
	"irl/pkg/port"
)

// NECFamily is the memory shared by the NEC matchers of a chain.
// It holds the last completed NEC message, a repeat code re-emits it.
type NECFamily struct {
	last  irprotocol.Data
	at    port.Micros
	valid bool
}

func (fam *NECFamily) remember(d irprotocol.Data, at port.Micros) {
	fam.last = d
	fam.at = at
	fam.valid = true
}

// NewNEC returns the matcher of the standard NEC protocol.
// The address high byte must be the complement of the low byte (8 bit address)
// and the command must be followed by its complement.
func NewNEC(policy Policy, fam *NECFamily) Matcher {
	return newFrame(irprotocol.NEC, policy, func(address uint16, command uint32, at port.Micros) (irprotocol.Data, bool) {
		valid, addr, cmd := irprotocol.SplitRawNECData(command<<16 | uint32(address))
		if !valid || byte(address>>8) != ^byte(address) {
			return irprotocol.Data{}, false
		}

		d := irprotocol.Data{Protocol: irprotocol.NEC, Address: addr, Command: uint32(cmd)}
		fam.remember(d, at)
		return d, true
	})
}

// NewNECExtended returns the matcher of the extended NEC protocol with a 16 bit address.
// Standard NEC messages are valid extended messages as well, so in a chain NEC has to be declared first.
func NewNECExtended(policy Policy, fam *NECFamily) Matcher {
	return newFrame(irprotocol.NECExtended, policy, func(address uint16, command uint32, at port.Micros) (irprotocol.Data, bool) {
		valid, cmd := irprotocol.SplitNECCommand(command)
		if !valid {
			return irprotocol.Data{}, false
		}

		d := irprotocol.Data{Protocol: irprotocol.NECExtended, Address: address, Command: uint32(cmd)}
		fam.remember(d, at)
		return d, true
	})
}

// NewNECRepeat returns the matcher of the NEC repeat code.
// The repeat code carries no payload, it re-emits the last NEC message of fam unchanged
// if it completes within the repeat window of the previous completion.
func NewNECRepeat(policy Policy, fam *NECFamily) Matcher {
	return newFrame(irprotocol.NECRepeat, policy, func(_ uint16, _ uint32, at port.Micros) (irprotocol.Data, bool) {
		if !fam.valid || at.Sub(fam.at) > policy.RepeatWindow {
			return irprotocol.Data{}, false
		}

		fam.at = at
		return fam.last, true
	})
}
