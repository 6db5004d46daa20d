package a2video

import (
	"image"

	"golang.org/x/sync/errgroup"
)

const (
	kHiResCols = 40
	kHiResBits = 7
)

// drawHiRes renders the scanlines of b inside clip. Rows are split into
// bands which render in parallel. Every band only reads memory and the
// artifact table and only writes its own rows of dst, and all of them are
// done before this returns.
func (v *Video) drawHiRes(dst *image.Paletted, clip image.Rectangle, c Control, b Band) {
	begin, end := b.Begin, b.End
	if begin < clip.Min.Y {
		begin = clip.Min.Y
	}
	if end > clip.Max.Y-1 {
		end = clip.Max.Y - 1
	}
	if end < begin {
		return
	}
	base := kPage1HiRes
	if c.Page2 {
		base = kPage2HiRes
	}
	if c.RAMRD {
		base += kAuxBank
	}
	vram := v.ram[base : base+0x2000]

	rows := end + 1 - begin
	n := v.workers
	if n > rows {
		n = rows
	}
	var g errgroup.Group
	for i := 0; i < n; i++ {
		first := begin + rows*i/n
		last := begin + rows*(i+1)/n - 1
		g.Go(func() error {
			v.hiResRows(dst, vram, first, last, clip.Min.X, clip.Max.X)
			return nil
		})
	}
	g.Wait()
}

// hiResRows renders scanlines first through last (inclusive) and copies
// the pixels in [x0, x1) of each into dst.
func (v *Video) hiResRows(dst *image.Paletted, vram []uint8, first, last, x0, x1 int) {
	// One byte of padding at each end so every real byte has neighbors.
	var row [kHiResCols + 2]uint8
	var line [Width]uint8

	for r := first; r <= last; r++ {
		for col := 0; col < kHiResCols; col++ {
			row[1+col] = vram[HiResOffset(col, r)]
		}
		p := 0
		for col := 0; col < kHiResCols; col++ {
			w := uint32(row[col]&0x7F) |
				uint32(row[col+1]&0x7F)<<7 |
				uint32(row[col+2]&0x7F)<<14
			set := uint32(row[col+1]&0x80) >> 7
			for bit := 0; bit < kHiResBits; bit++ {
				code := (w >> uint(bit+kHiResBits-1)) & 0x07
				pen := v.artifact.Lookup(set, uint32((bit^col)&0x01), code)
				line[p] = pen
				line[p+1] = pen
				p += 2
			}
		}
		o := dst.PixOffset(x0, r)
		copy(dst.Pix[o:o+x1-x0], line[x0:x1])
	}
}
