// Package port holds the time base of the edges of a physical port
package port

import "time"

// Micros is a reading of a free running microsecond clock.
// It has the native width of the capture clock (32 bit) and wraps after ~71.6 minutes.
type Micros uint32

// Sub returns the time elapsed from prev to m.
// The subtraction is modular, so a clock wrap between both readings still yields the correct duration.
func (m Micros) Sub(prev Micros) Micros {
	return m - prev
}

// Duration converts m to a time.Duration.
func (m Micros) Duration() time.Duration {
	return time.Duration(m) * time.Microsecond
}

// MicrosOf truncates d to the width of the microsecond clock.
func MicrosOf(d time.Duration) Micros {
	return Micros(uint64(d / time.Microsecond))
}
