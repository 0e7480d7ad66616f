package decoder

import "irl/pkg/irprotocol"

// latch is the single result slot between the capture context and the consumer.
// The ready flag is the top bit of the stored protocol tag: reading clears it but keeps the
// last protocol, a new result overwrites an unread one (last message wins).
type latch struct {
	data irprotocol.Data

	raw    [RawMaxIntervals]uint16
	rawLen int
}

// write is only called by the capture context when a message completes.
func (l *latch) write(d irprotocol.Data) {
	d.Protocol |= irprotocol.New
	l.data = d
	l.rawLen = 0
}

// record stores the raw intervals of the written result.
func (l *latch) record(timings []uint16) {
	l.rawLen = copy(l.raw[:], timings)
}

func (l *latch) available() bool {
	return l.data.Protocol.Fresh()
}

// read drains the latch; without a fresh result it returns the NoProtocol sentinel.
func (l *latch) read() irprotocol.Data {
	if !l.available() {
		return irprotocol.Data{Protocol: irprotocol.NoProtocol}
	}

	d := l.data
	l.data.Protocol = d.Protocol.Consumed()
	return d
}

func (l *latch) reset() {
	l.data = irprotocol.Data{}
	l.rawLen = 0
}
