// Package memory implements flat byte addressed RAM which reports
// its writes, for video hardware that redraws only what changed.
package memory

import "fmt"

// RAM is a flat RAM bank. Every write is reported to an optional observer
// which lets video hardware track which parts of memory it needs to redraw.
type RAM struct {
	mem   []uint8
	touch func(addr uint32)
}

// NewRAM returns a zeroed RAM bank of the given size.
func NewRAM(size int) (*RAM, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid RAM size %d", size)
	}
	return &RAM{
		mem: make([]uint8, size),
	}, nil
}

// Observe installs f to be called after every write with the address written.
// Only one observer is kept, a later call replaces an earlier one.
func (r *RAM) Observe(f func(addr uint32)) {
	r.touch = f
}

// Read returns the byte at addr. Addresses past the end
// wrap as the address lines simply aren't decoded.
func (r *RAM) Read(addr uint32) uint8 {
	return r.mem[int(addr)%len(r.mem)]
}

// Write stores val at addr and tells the observer.
func (r *RAM) Write(addr uint32, val uint8) {
	addr = uint32(int(addr) % len(r.mem))
	r.mem[addr] = val
	if r.touch != nil {
		r.touch(addr)
	}
}

// PowerOn performs a power on reset. The RAM is cleared
// and the observer is told about every byte.
func (r *RAM) PowerOn() {
	for i := range r.mem {
		r.mem[i] = 0
	}
	if r.touch != nil {
		for i := range r.mem {
			r.touch(uint32(i))
		}
	}
}

// Bytes returns the backing store. Writes done directly through it aren't
// observed.
func (r *RAM) Bytes() []uint8 {
	return r.mem
}
