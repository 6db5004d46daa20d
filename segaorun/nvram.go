package segaorun

import (
	"encoding/binary"
	"fmt"
	"io"
)

// NVRAMSize is the size in bytes of a saved work RAM image.
const NVRAMSize = WorkRAMSize

// SaveNVRAM writes the work RAM to w as big endian words.
func (b *Board) SaveNVRAM(w io.Writer) error {
	if err := binary.Write(w, binary.BigEndian, b.workRAM); err != nil {
		return fmt.Errorf("can't save NVRAM: %v", err)
	}
	return nil
}

// LoadNVRAM fills the work RAM from r. The image isn't validated. A short
// image leaves the rest of RAM untouched and anything past NVRAMSize bytes
// is never read.
func (b *Board) LoadNVRAM(r io.Reader) error {
	buf := make([]byte, NVRAMSize)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return fmt.Errorf("can't load NVRAM: %v", err)
	}
	for i := 0; i+1 < n; i += 2 {
		b.workRAM[i/2] = binary.BigEndian.Uint16(buf[i:])
	}
	if n%2 == 1 {
		// A trailing odd byte is the high half of the last word.
		w := &b.workRAM[n/2]
		*w = *w&0x00FF | uint16(buf[n-1])<<8
	}
	return nil
}
