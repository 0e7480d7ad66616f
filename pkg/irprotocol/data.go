package irprotocol

// Data is the decoded result of a received IR message.
//
// The generic view is (Protocol, Address, Command). The meaning of the bits is protocol specific,
// the accessor methods reinterpret the generic fields for each protocol:
//
//	NEC, NECExtended: Address is 8 bit (NEC) or 16 bit (extended), Command is the 8 bit command
//	                  (its complement is only transmitted for validation)
//	Panasonic:        Address is the 16 bit vendor code, Command the flat 32 bit data word
//	Sony:             Command holds 7 bits, Address the remaining 1, 5, 8 or 13 bits
//	Hash:             Command is the hash of the signal, Address the count of folded intervals
//	Raw:              Command is the total duration (us), Address the count of recorded intervals
type Data struct {
	Protocol Protocol `json:"protocol"`
	Address  uint16   `json:"address"`
	Command  uint32   `json:"command"`
}

// Available reports whether d holds a result.
func (d Data) Available() bool {
	return d.Protocol != NoProtocol
}

func (d Data) AddressLo() uint8 { return uint8(d.Address) }
func (d Data) AddressHi() uint8 { return uint8(d.Address >> 8) }

func (d Data) Command8() uint8   { return uint8(d.Command) }
func (d Data) Command16() uint16 { return uint16(d.Command) }

// CommandLo and CommandHi split the 16 bit command into its bytes.
func (d Data) CommandLo() uint8 { return uint8(d.Command) }
func (d Data) CommandHi() uint8 { return uint8(d.Command >> 8) }

// NECRaw returns the 32 bit word as it was transmitted.
// LSB -> MSB: { address (Low), address (High), cmd, ^cmd }
func (d Data) NECRaw() uint32 {
	if d.Protocol.Consumed() == NECExtended.Consumed() {
		return (uint32(^d.Command8()) << 24) | (uint32(d.Command8()) << 16) | uint32(d.Address)
	}
	return MakeRawNECData(uint16(d.AddressLo()), d.Command8())
}

// SonyCommand returns the 7 command bits of a Sony message.
func (d Data) SonyCommand() uint8 { return uint8(d.Command & 0x7f) }

// SonyDevice returns the device bits (at most 5) of a Sony message.
func (d Data) SonyDevice() uint8 { return uint8(d.Address & 0x1f) }

// SonyExtended returns the 8 extended bits of a Sony20 message.
func (d Data) SonyExtended() uint8 { return uint8(d.Address >> 5) }

// PanasonicVendor returns the 16 bit vendor code (0x2002 for Panasonic devices).
func (d Data) PanasonicVendor() uint16 { return d.Address }
