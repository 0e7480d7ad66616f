// Package irprotocol holds the consumer IR protocol definitions shared by the decoder and the sender:
// protocol identifiers, the decoded result, the timing grammars and the payload packing rules.
package irprotocol

import (
	"fmt"
	"strings"
)

// Protocol is the unique tag of each protocol.
// The most significant bit (New) tells that a result is ready to be consumed.
// If it is cleared, the last received protocol is still saved but was already read.
type Protocol uint8

const (
	// NoProtocol is the sentinel of an empty result.
	NoProtocol Protocol = 0x00
	// New marks a result which was not read yet.
	New Protocol = 0x80
)

const (
	Raw Protocol = New + 1 + iota
	Hash
	NEC
	NECExtended
	NECRepeat
	Panasonic
	Sony8
	Sony12
	Sony15
	Sony20
)

var names = map[Protocol]string{
	NoProtocol:  "none",
	Raw:         "raw",
	Hash:        "hash",
	NEC:         "nec",
	NECExtended: "nec-extended",
	NECRepeat:   "nec-repeat",
	Panasonic:   "panasonic",
	Sony8:       "sony8",
	Sony12:      "sony12",
	Sony15:      "sony15",
	Sony20:      "sony20",
}

// Protocols returns all named protocols in their default decoding priority.
func Protocols() []Protocol {
	return []Protocol{NEC, NECExtended, NECRepeat, Panasonic, Sony20, Sony15, Sony12, Sony8, Raw, Hash}
}

// Fresh reports whether the tag marks a result which was not read yet.
func (p Protocol) Fresh() bool {
	return p&New != 0
}

// Consumed returns the tag with the ready bit cleared.
func (p Protocol) Consumed() Protocol {
	return p &^ New
}

func (p Protocol) String() string {
	if p == NoProtocol {
		return names[NoProtocol]
	}
	// consumed tags keep their name
	if n, ok := names[p|New]; ok {
		return n
	}
	return fmt.Sprintf("protocol(0x%02x)", uint8(p))
}

// MarshalText implements encoding.TextMarshaler, results are published with protocol names.
func (p Protocol) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Protocol) UnmarshalText(b []byte) error {
	v, err := ParseProtocol(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// ParseProtocol returns the protocol of the (case-insensitive) name.
func ParseProtocol(name string) (Protocol, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for p, n := range names {
		if n == name {
			return p, nil
		}
	}
	return NoProtocol, fmt.Errorf("unknown protocol %q", name)
}
