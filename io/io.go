// Package io defines the basic interfaces for working with
// board input ports. Switches, coin mechanisms and analog
// channels (steering, pedals) all end up as a value read
// from a port when the emulated CPU asks for it.
package io

// Port16 defines a 16 bit input port.
type Port16 interface {
	// Input will return the current value being set on the given input port.
	Input() uint16
}

// Fixed is a Port16 which always returns the same value.
type Fixed uint16

// Input implements Port16.
func (f Fixed) Input() uint16 {
	return uint16(f)
}
