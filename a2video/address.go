package a2video

// TextOffset returns the memory offset (relative to the page base) of the
// text/lo-res cell at col,row. The memory is interleaved in 128 byte chunks
// holding 3 rows each (rows N, N+8, N+16) so this isn't row major.
func TextOffset(col, row int) uint32 {
	return uint32(((row & 0x07) << 7) | ((row&0x18)*5 + col))
}

// DblTextOffset returns the memory offset of the 80 column text cell at
// col,row. Even columns come from 0x400 and odd ones from 0x800.
func DblTextOffset(col, row int) uint32 {
	off := uint32(0x400)
	if col%2 == 1 {
		off = 0x800
	}
	return TextOffset(col/2, row) + off
}

// HiResOffset returns the memory offset (relative to the page base) of the
// hi-res byte at col for scanline row.
func HiResOffset(col, row int) uint32 {
	return TextOffset(col, row/8) | uint32((row&7)<<10)
}
