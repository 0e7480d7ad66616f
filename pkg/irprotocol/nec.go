package irprotocol

// NEC protocol references
// https://www.sbprojects.net/knowledge/ir/nec.php
// https://techdocs.altium.com/display/FPGA/NEC+Infrared+Transmission+Protocol

// SplitRawNECData breaks a raw NEC code into constituent parts performing validation
func SplitRawNECData(data uint32) (valid bool, address uint16, command byte) {
	addrLow := byte(data & 0xff)
	addrHigh := byte((data & 0xff00) >> 8)
	address = MakeNECAddress(addrLow, addrHigh)
	valid, command = SplitNECCommand(data >> 16)
	return
}

// SplitNECCommand returns the command of the 16 bit command field (command, inverted command)
// and whether the inverted command matches
func SplitNECCommand(field uint32) (valid bool, command byte) {
	command = byte(field & 0xff)
	invCmd := byte((field & 0xff00) >> 8)
	return command == ^invCmd, command
}

// MakeRawNECData assembles a raw NEC code from constituent bytes
func MakeRawNECData(address uint16, command byte) uint32 {
	addrLow, addrHigh := SplitNECAddress(address)
	return (uint32(^command) << 24) | (uint32(command) << 16) | (uint32(addrHigh) << 8) | uint32(addrLow)
}

// SplitNECAddress splits an NEC address into low & high bytes
func SplitNECAddress(address uint16) (addrLow, addrHigh byte) {
	addrLow = byte(address & 0xff)
	addrHigh = byte((address & 0xff00) >> 8)
	if addrHigh == 0 {
		// NEC addresses in 8-bit range use inverse validation as addrHigh
		addrHigh = ^addrLow
	}
	return addrLow, addrHigh
}

// MakeNECAddress assembles an NEC address from low & high bytes
func MakeNECAddress(addrLow, addrHigh byte) uint16 {
	if addrHigh == ^addrLow {
		// addrHigh is inverse of addrLow. This is indistinguishable from an 8-bit address
		// with inverse validation, so use the 8-bit address
		return uint16(addrLow)
	}
	return (uint16(addrHigh) << 8) | uint16(addrLow)
}
