// Package a2video implements the video generator of an Apple II class home
// computer. Text, 80 column text and lo-res are cached tile maps which only
// redraw cells whose memory changed. Hi-res is redrawn every frame through
// the NTSC artifact color table, split across worker bands.
package a2video

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"runtime"

	"github.com/jmchacon/vidhw/memory"
	"github.com/jmchacon/vidhw/tilemap"
)

const (
	// Width and Height of a rendered frame. Every mode produces 560 pixels per line:
	// 40 cells of 14 (text/lo-res), 80 cells of 7 (80 column text) or 280 hi-res
	// pixels each doubled.
	Width  = 560
	Height = 192

	kTextCols   = 40
	kDblCols    = 80
	kTextRows   = 24
	kCellHeight = 8
	kCellWidth  = 14
	kDblWidth   = 7
	kGlyphs     = 256

	kMixedSplit = 160 // First scanline of the text window in mixed mode.
	kLastLine   = Height - 1

	kPage1Text  = uint32(0x0400)
	kPage2Text  = uint32(0x0800)
	kPage1HiRes = uint32(0x2000)
	kPage2HiRes = uint32(0x4000)
	kAuxBank    = uint32(0x10000)

	// MinRAM is the smallest RAM (main + aux banks) the renderer accepts.
	MinRAM = 0x20000
)

// Pens in Palette.
const (
	Black     = 0
	Magenta   = 1
	DarkBlue  = 2
	Purple    = 3
	DarkGreen = 4
	Grey1     = 5
	Blue      = 6
	LightBlue = 7
	Brown     = 8
	Orange    = 9
	Grey2     = 10
	Pink      = 11
	Green     = 12
	Yellow    = 13
	Aqua      = 14
	White     = 15
)

// Palette is the 16 color palette every pen indexes.
var Palette = color.Palette{
	color.NRGBA{0x00, 0x00, 0x00, 0xFF},
	color.NRGBA{0xE3, 0x1E, 0x60, 0xFF},
	color.NRGBA{0x60, 0x4E, 0xBD, 0xFF},
	color.NRGBA{0xFF, 0x44, 0xFD, 0xFF},
	color.NRGBA{0x00, 0xA3, 0x60, 0xFF},
	color.NRGBA{0x9C, 0x9C, 0x9C, 0xFF},
	color.NRGBA{0x14, 0xCF, 0xFD, 0xFF},
	color.NRGBA{0xD0, 0xC3, 0xFF, 0xFF},
	color.NRGBA{0x60, 0x72, 0x03, 0xFF},
	color.NRGBA{0xFF, 0x6A, 0x3C, 0xFF},
	color.NRGBA{0x9C, 0x9C, 0x9D, 0xFF},
	color.NRGBA{0xFF, 0xA0, 0xD0, 0xFF},
	color.NRGBA{0x14, 0xF5, 0x3C, 0xFF},
	color.NRGBA{0xD0, 0xDD, 0x8D, 0xFF},
	color.NRGBA{0x72, 0xFF, 0xD0, 0xFF},
	color.NRGBA{0xFF, 0xFF, 0xFF, 0xFF},
}

// Control is the set of soft switches the video generator looks at.
// The CPU side owns these, the renderer only reads them.
type Control struct {
	Text  bool // Full screen text.
	Mixed bool // Bottom 4 text rows under graphics.
	HiRes bool // Hi-res instead of lo-res graphics.
	Col80 bool // 80 column text.
	Page2 bool // Display page 2.
	RAMRD bool // Read from the auxiliary 64k bank.
}

// Mode is the kind of generator used for a band of scanlines.
type Mode int

const (
	ModeText Mode = iota
	ModeText80
	ModeLoRes
	ModeHiRes
)

func (m Mode) String() string {
	switch m {
	case ModeText:
		return "text"
	case ModeText80:
		return "text80"
	case ModeLoRes:
		return "lores"
	case ModeHiRes:
		return "hires"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Band is a range of scanlines (inclusive) drawn by a single generator.
type Band struct {
	Mode  Mode
	Begin int
	End   int
}

// Bands returns the (at most 2) scanline bands a frame is split into for
// the given control state.
func Bands(c Control) []Band {
	text := ModeText
	if c.Col80 {
		text = ModeText80
	}
	switch {
	case c.Text:
		return []Band{{text, 0, kLastLine}}
	case c.HiRes && c.Mixed:
		return []Band{{ModeHiRes, 0, kMixedSplit - 1}, {text, kMixedSplit, kLastLine}}
	case c.HiRes:
		return []Band{{ModeHiRes, 0, kLastLine}}
	case c.Mixed:
		return []Band{{ModeLoRes, 0, kMixedSplit - 1}, {text, kMixedSplit, kLastLine}}
	}
	return []Band{{ModeLoRes, 0, kLastLine}}
}

// VideoDef defines the pieces needed to setup the video generator.
type VideoDef struct {
	// RAM holds main memory at 0 and the auxiliary bank at 0x10000. It must be at
	// least MinRAM bytes. Init installs the dirty tracker as its write observer.
	RAM *memory.RAM
	// CharROM holds 256 glyphs of 8 bytes each. Bit 0 of each byte is the leftmost
	// of the 7 pixels in that glyph row.
	CharROM []uint8
	// Workers is the number of bands hi-res rendering is split into. Zero means
	// one per CPU.
	Workers int
}

// Video is one video generator. It isn't safe for concurrent use, Render
// and Touch are expected on the emulation thread.
type Video struct {
	ram      []uint8
	artifact *ArtifactTable
	workers  int

	text    *tilemap.Map
	dblText *tilemap.Map
	lores   *tilemap.Map
	maps    [3]*tilemap.Map

	last Control // Control state seen on the previous frame.

	textGlyphs [kGlyphs][]uint8 // 14x8 (each pixel doubled) per glyph.
	dblGlyphs  [kGlyphs][]uint8 // 7x8 per glyph.
	loresTile  []uint8          // 14x8, top half 0 and bottom half 1.
	loresPens  [2]uint8
	textPens   []uint8
}

// Init returns a full initialized Video.
func Init(def *VideoDef) (*Video, error) {
	if def.RAM == nil {
		return nil, errors.New("RAM must be non-nil")
	}
	if got := len(def.RAM.Bytes()); got < MinRAM {
		return nil, fmt.Errorf("RAM must be at least %d bytes. Got %d", MinRAM, got)
	}
	if got := len(def.CharROM); got < kGlyphs*kCellHeight {
		return nil, fmt.Errorf("CharROM must be at least %d bytes. Got %d", kGlyphs*kCellHeight, got)
	}
	w := def.Workers
	if w <= 0 {
		w = runtime.NumCPU()
	}
	v := &Video{
		ram:      def.RAM.Bytes(),
		artifact: NewArtifactTable(),
		workers:  w,
		textPens: []uint8{Black, White},
	}
	v.decodeGlyphs(def.CharROM)

	v.loresTile = make([]uint8, kCellWidth*kCellHeight)
	for i := kCellWidth * kCellHeight / 2; i < len(v.loresTile); i++ {
		v.loresTile[i] = 1
	}

	var err error
	if v.text, err = tilemap.New(&tilemap.Def{
		Cols:     kTextCols,
		Rows:     kTextRows,
		TileW:    kCellWidth,
		TileH:    kCellHeight,
		Offset:   TextOffset,
		TileInfo: v.textTileInfo,
	}); err != nil {
		return nil, fmt.Errorf("can't create text tilemap: %v", err)
	}
	if v.dblText, err = tilemap.New(&tilemap.Def{
		Cols:     kDblCols,
		Rows:     kTextRows,
		TileW:    kDblWidth,
		TileH:    kCellHeight,
		Offset:   DblTextOffset,
		TileInfo: v.dblTextTileInfo,
	}); err != nil {
		return nil, fmt.Errorf("can't create 80 column tilemap: %v", err)
	}
	if v.lores, err = tilemap.New(&tilemap.Def{
		Cols:     kTextCols,
		Rows:     kTextRows,
		TileW:    kCellWidth,
		TileH:    kCellHeight,
		Offset:   TextOffset,
		TileInfo: v.loresTileInfo,
	}); err != nil {
		return nil, fmt.Errorf("can't create lo-res tilemap: %v", err)
	}
	v.maps = [3]*tilemap.Map{v.text, v.dblText, v.lores}

	def.RAM.Observe(v.Touch)
	return v, nil
}

func (v *Video) decodeGlyphs(rom []uint8) {
	for g := 0; g < kGlyphs; g++ {
		single := make([]uint8, kCellWidth*kCellHeight)
		dbl := make([]uint8, kDblWidth*kCellHeight)
		for y := 0; y < kCellHeight; y++ {
			b := rom[g*kCellHeight+y]
			for x := 0; x < kDblWidth; x++ {
				p := (b >> uint(x)) & 0x01
				dbl[y*kDblWidth+x] = p
				single[y*kCellWidth+x*2] = p
				single[y*kCellWidth+x*2+1] = p
			}
		}
		v.textGlyphs[g] = single
		v.dblGlyphs[g] = dbl
	}
}

func (v *Video) textTileInfo(offset uint32, info *tilemap.Info) {
	info.Pixels = v.textGlyphs[v.ram[v.text.Base()+offset]]
	info.Colors = v.textPens
}

func (v *Video) dblTextTileInfo(offset uint32, info *tilemap.Info) {
	info.Pixels = v.dblGlyphs[v.ram[v.dblText.Base()+offset]]
	info.Colors = v.textPens
}

func (v *Video) loresTileInfo(offset uint32, info *tilemap.Info) {
	ch := v.ram[v.lores.Base()+offset]
	info.Pixels = v.loresTile
	v.loresPens[0] = ch & 0x0F
	v.loresPens[1] = (ch >> 4) & 0x0F
	info.Colors = v.loresPens[:]
}

// NewFrame returns an image sized and paletted for Render.
func NewFrame() *image.Paletted {
	return image.NewPaletted(image.Rect(0, 0, Width, Height), Palette)
}

// Render draws the frame for the given control state into dst, limited to
// clip. dst is expected to use Palette (see NewFrame). An empty clip is a
// no-op.
func (v *Video) Render(c Control, dst *image.Paletted, clip image.Rectangle) {
	if c != v.last {
		v.last = c
		for _, m := range v.maps {
			m.MarkAllDirty()
		}
	}
	clip = clip.Intersect(image.Rect(0, 0, Width, Height)).Intersect(dst.Bounds())
	if clip.Empty() {
		return
	}
	for _, b := range Bands(c) {
		switch b.Mode {
		case ModeText:
			base := kPage1Text
			if c.Page2 {
				base = kPage2Text
			}
			v.drawTilemap(dst, clip, c, b, v.text, base)
		case ModeText80:
			v.drawTilemap(dst, clip, c, b, v.dblText, 0)
		case ModeLoRes:
			base := kPage1Text
			if c.Page2 {
				base = kPage2Text
			}
			v.drawTilemap(dst, clip, c, b, v.lores, base)
		case ModeHiRes:
			v.drawHiRes(dst, clip, c, b)
		}
	}
}

func (v *Video) drawTilemap(dst *image.Paletted, clip image.Rectangle, c Control, b Band, m *tilemap.Map, base uint32) {
	r := clip
	if r.Min.Y < b.Begin {
		r.Min.Y = b.Begin
	}
	if r.Max.Y > b.End+1 {
		r.Max.Y = b.End + 1
	}
	if r.Empty() {
		return
	}
	if c.RAMRD {
		base += kAuxBank
	}
	m.SetBase(base)
	m.Draw(dst, r)
}

// Touch is the write hook for video memory. offset is the absolute RAM
// offset written. Each tile map whose current base is at or below it marks
// the matching tile dirty.
func (v *Video) Touch(offset uint32) {
	for _, m := range v.maps {
		if base := m.Base(); offset >= base {
			m.MarkDirty(offset - base)
		}
	}
}
