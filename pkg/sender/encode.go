package sender

import (
	"errors"
	"fmt"

	"irl/pkg/irprotocol"
	"irl/pkg/port"
)

// ErrUnsupportedProtocol is returned for protocols without transmit grammar (raw, hash).
var ErrUnsupportedProtocol = errors.New("unsupported protocol")

// Pulse is a mark (modulated carrier) or a space (line held low).
type Pulse struct {
	Mark     bool
	Duration port.Micros
}

// Encode returns the pulse train of a message: lead mark and space, one mark/space pair per bit and the trail mark.
// Address and command bits beyond the width of the protocol are silently truncated (see irprotocol.Pack).
func Encode(p irprotocol.Protocol, address uint16, command uint32) ([]Pulse, error) {
	t, ok := irprotocol.Lookup(p)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedProtocol, p)
	}

	bits := t.Frame(irprotocol.Pack(p, address, command))

	pulses := make([]Pulse, 0, 2*t.Bits()+3)
	pulses = append(pulses, Pulse{Mark: true, Duration: t.LeadMark}, Pulse{Duration: t.LeadSpace})
	for i := 0; i < t.Bits(); i++ {
		if bits&(1<<i) == 0 {
			pulses = append(pulses, Pulse{Mark: true, Duration: t.ZeroMark}, Pulse{Duration: t.ZeroSpace})
		} else {
			pulses = append(pulses, Pulse{Mark: true, Duration: t.OneMark}, Pulse{Duration: t.OneSpace})
		}
	}
	if t.TrailMark != 0 {
		pulses = append(pulses, Pulse{Mark: true, Duration: t.TrailMark})
	}
	return pulses, nil
}

// Duration returns the total duration of pulses.
func Duration(pulses []Pulse) port.Micros {
	var d port.Micros
	for _, p := range pulses {
		d += p.Duration
	}
	return d
}
