package a2video

// ArtifactTable maps a hi-res pixel neighborhood to the color an NTSC monitor
// shows for it. It's indexed by
//
//	colorSet*16 + parity*8 + code
//
// where code is the 3 bit (left, center, right) neighborhood, parity is the
// sub position of the pixel in the color clock and colorSet is bit 7 of the
// byte holding the pixel.
type ArtifactTable [32]uint8

// 2 color sets of 4. The index picked by the neighborhood rules is the same
// for both, bit 7 only shifts the phase (purple/green vs blue/orange).
var artifactColors = [8]uint8{
	Black, Purple, Green, White,
	Black, Blue, Orange, White,
}

// NewArtifactTable builds the lookup table. It's read only after this.
func NewArtifactTable() *ArtifactTable {
	a := &ArtifactTable{}
	for i := 0; i < 8; i++ {
		for j := 0; j < 2; j++ {
			var c int
			if i&0x02 != 0 {
				// Center pixel on. Any neighbor on makes it white, otherwise
				// it's a lone pixel whose color depends on the phase.
				if i&0x05 != 0 {
					c = 3
				} else {
					c = 1
					if j == 1 {
						c = 2
					}
				}
			} else {
				// Center pixel off but both neighbors on fills the gap with
				// the opposite phase color.
				if i&0x05 == 0x05 {
					c = 2
					if j == 1 {
						c = 1
					}
				}
			}
			a[j*8+i] = artifactColors[c]
			a[16+j*8+i] = artifactColors[c+4]
		}
	}
	return a
}

// Lookup returns the pen for the given color set (0/1), parity (0/1) and 3
// bit neighborhood code.
func (a *ArtifactTable) Lookup(colorSet, parity, code uint32) uint8 {
	return a[(colorSet&1)*16+(parity&1)*8+(code&7)]
}
