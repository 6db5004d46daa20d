package a2video

import (
	"flag"
	"fmt"
	"image"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/go-test/deep"
	"golang.org/x/image/draw"

	"github.com/jmchacon/vidhw/memory"
)

var (
	testImageDir    = flag.String("test_image_dir", "", "If set will generate images from tests to this directory")
	testImageScaler = flag.Float64("test_image_scaler", 1.0, "The amount to rescale the output PNGs")
)

// dumpImage writes i as a PNG if -test_image_dir is set.
func dumpImage(t *testing.T, name string, i *image.Paletted) {
	t.Helper()
	if *testImageDir == "" {
		return
	}
	var n image.Image = i
	if *testImageScaler != 1.0 {
		d := image.NewNRGBA(image.Rect(0, 0, int(float64(i.Bounds().Max.X)**testImageScaler), int(float64(i.Bounds().Max.Y)**testImageScaler)))
		draw.NearestNeighbor.Scale(d, d.Bounds(), i, i.Bounds(), draw.Over, nil)
		n = d
	}
	o, err := os.Create(filepath.Join(*testImageDir, fmt.Sprintf("%s.png", name)))
	if err != nil {
		t.Fatalf("%s: %v", name, err)
	}
	defer o.Close()
	if err := png.Encode(o, n); err != nil {
		t.Fatalf("%s: %v", name, err)
	}
}

// testCharROM returns a char ROM where glyph g has row y set to g^y.
func testCharROM() []uint8 {
	rom := make([]uint8, kGlyphs*kCellHeight)
	for g := 0; g < kGlyphs; g++ {
		for y := 0; y < kCellHeight; y++ {
			rom[g*kCellHeight+y] = uint8(g^y) & 0x7F
		}
	}
	return rom
}

func setup(t *testing.T, workers int) (*Video, *memory.RAM) {
	t.Helper()
	ram, err := memory.NewRAM(MinRAM)
	if err != nil {
		t.Fatalf("Can't create RAM: %v", err)
	}
	v, err := Init(&VideoDef{
		RAM:     ram,
		CharROM: testCharROM(),
		Workers: workers,
	})
	if err != nil {
		t.Fatalf("Can't Init: %v", err)
	}
	return v, ram
}

func TestInitErrors(t *testing.T) {
	small, err := memory.NewRAM(0x1000)
	if err != nil {
		t.Fatalf("Can't create RAM: %v", err)
	}
	big, err := memory.NewRAM(MinRAM)
	if err != nil {
		t.Fatalf("Can't create RAM: %v", err)
	}
	tests := []struct {
		name string
		def  *VideoDef
	}{
		{"nil RAM", &VideoDef{CharROM: testCharROM()}},
		{"short RAM", &VideoDef{RAM: small, CharROM: testCharROM()}},
		{"short char ROM", &VideoDef{RAM: big, CharROM: make([]uint8, 100)}},
	}
	for _, test := range tests {
		if _, err := Init(test.def); err == nil {
			t.Errorf("%s: didn't get an error", test.name)
		}
	}
}

func TestTextOffsetUnique(t *testing.T) {
	seen := make(map[uint32]string)
	for row := 0; row < kTextRows; row++ {
		for col := 0; col < kTextCols; col++ {
			o := TextOffset(col, row)
			if o >= 0x400 {
				t.Errorf("TextOffset(%d, %d) = %.4X is outside of a page", col, row, o)
			}
			if prev, ok := seen[o]; ok {
				t.Errorf("TextOffset(%d, %d) = %.4X aliases %s", col, row, o, prev)
			}
			seen[o] = fmt.Sprintf("%d,%d", col, row)
		}
	}
	// Spot check the well known row starts.
	for row, want := range map[int]uint32{0: 0x000, 1: 0x080, 7: 0x380, 8: 0x028, 16: 0x050, 23: 0x3D0} {
		if got := TextOffset(0, row); got != want {
			t.Errorf("TextOffset(0, %d) = %.4X, want %.4X", row, got, want)
		}
	}
}

func TestDblTextOffset(t *testing.T) {
	for row := 0; row < kTextRows; row++ {
		for col := 0; col < kTextCols; col++ {
			if got, want := DblTextOffset(2*col, row), TextOffset(col, row)+0x400; got != want {
				t.Errorf("DblTextOffset(%d, %d) = %.4X, want %.4X", 2*col, row, got, want)
			}
			if got, want := DblTextOffset(2*col+1, row), TextOffset(col, row)+0x800; got != want {
				t.Errorf("DblTextOffset(%d, %d) = %.4X, want %.4X", 2*col+1, row, got, want)
			}
		}
	}
}

func TestHiResOffset(t *testing.T) {
	seen := make(map[uint32]bool)
	for row := 0; row < Height; row++ {
		for col := 0; col < kHiResCols; col++ {
			o := HiResOffset(col, row)
			if o >= 0x2000 || seen[o] {
				t.Fatalf("HiResOffset(%d, %d) = %.4X is out of range or aliased", col, row, o)
			}
			seen[o] = true
		}
	}
	if got, want := HiResOffset(3, 9), uint32(0x0483); got != want {
		t.Errorf("HiResOffset(3, 9) = %.4X, want %.4X", got, want)
	}
}

func TestBands(t *testing.T) {
	tests := []struct {
		name string
		c    Control
		want []Band
	}{
		{"text", Control{Text: true}, []Band{{ModeText, 0, 191}}},
		{"text ignores graphics", Control{Text: true, HiRes: true, Mixed: true, Page2: true}, []Band{{ModeText, 0, 191}}},
		{"text 80", Control{Text: true, Col80: true}, []Band{{ModeText80, 0, 191}}},
		{"hires mixed", Control{HiRes: true, Mixed: true}, []Band{{ModeHiRes, 0, 159}, {ModeText, 160, 191}}},
		{"hires mixed 80", Control{HiRes: true, Mixed: true, Col80: true}, []Band{{ModeHiRes, 0, 159}, {ModeText80, 160, 191}}},
		{"hires", Control{HiRes: true}, []Band{{ModeHiRes, 0, 191}}},
		{"lores mixed", Control{Mixed: true}, []Band{{ModeLoRes, 0, 159}, {ModeText, 160, 191}}},
		{"lores", Control{}, []Band{{ModeLoRes, 0, 191}}},
		{"lores page 2 aux", Control{Page2: true, RAMRD: true}, []Band{{ModeLoRes, 0, 191}}},
	}
	for _, test := range tests {
		if diff := deep.Equal(Bands(test.c), test.want); diff != nil {
			t.Errorf("%s: %v", test.name, diff)
		}
	}
}

func TestArtifactTable(t *testing.T) {
	a := NewArtifactTable()
	want := &ArtifactTable{
		// Color set 0, parity 0 then 1.
		Black, Black, Purple, White, Black, Green, White, White,
		Black, Black, Green, White, Black, Purple, White, White,
		// Color set 1, parity 0 then 1.
		Black, Black, Blue, White, Black, Orange, White, White,
		Black, Black, Orange, White, Black, Blue, White, White,
	}
	if diff := deep.Equal(a, want); diff != nil {
		t.Errorf("artifact table differs: %v\n%s", diff, spew.Sdump(a))
	}
	for _, i := range []int{0, 8, 16, 24} {
		if a[i] != Black {
			t.Errorf("entry %d is %d, want black", i, a[i])
		}
	}
	for _, i := range []int{7, 15, 23, 31} {
		if a[i] != White {
			t.Errorf("entry %d is %d, want white", i, a[i])
		}
	}
}

// fill sets every pixel of f to pen.
func fill(f *image.Paletted, pen uint8) {
	for i := range f.Pix {
		f.Pix[i] = pen
	}
}

func TestHiResPixels(t *testing.T) {
	tests := []struct {
		name string
		b    uint8
		want []uint8 // First 16 pixels of the line, rest must be black.
	}{
		{"solid", 0x7F, []uint8{15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 0, 0}},
		{"bit 0 set 0", 0x01, []uint8{Purple, Purple, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}},
		{"bit 0 set 1", 0x81, []uint8{Blue, Blue, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}},
		{"bit 1 set 0", 0x02, []uint8{0, 0, Green, Green, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}},
		{"bit 1 set 1", 0x82, []uint8{0, 0, Orange, Orange, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}},
		{"gap fill", 0x05, []uint8{Purple, Purple, Purple, Purple, Purple, Purple, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}},
	}
	for _, test := range tests {
		v, ram := setup(t, 1)
		ram.Write(0x2000, test.b)
		f := NewFrame()
		fill(f, 0xFF)
		v.Render(Control{HiRes: true}, f, f.Bounds())
		line := f.Pix[0:Width]
		if diff := deep.Equal(line[:16], test.want); diff != nil {
			t.Errorf("%s: %v", test.name, diff)
		}
		for x := 16; x < Width; x++ {
			if line[x] != Black {
				t.Errorf("%s: pixel %d is %d, want black", test.name, x, line[x])
				break
			}
		}
		dumpImage(t, t.Name()+test.name, f)
	}
}

func TestHiResParallel(t *testing.T) {
	r := rand.New(rand.NewSource(1977))
	controls := []Control{{HiRes: true}, {HiRes: true, Page2: true, RAMRD: true}}
	// The first worker count renders the reference frame for each control.
	want := make(map[Control]*image.Paletted)
	for _, workers := range []int{1, 2, 3, 7, 16, 192, 500} {
		v, ram := setup(t, workers)
		r.Seed(1977)
		b := ram.Bytes()
		for i := range b {
			b[i] = uint8(r.Intn(256))
		}
		for _, c := range controls {
			f := NewFrame()
			v.Render(c, f, f.Bounds())
			ref, ok := want[c]
			if !ok {
				want[c] = f
				dumpImage(t, fmt.Sprintf("%s_page2_%t", t.Name(), c.Page2), f)
				continue
			}
			if diff := deep.Equal(f.Pix, ref.Pix); diff != nil {
				t.Errorf("%d workers %+v: output differs from 1 worker: %v", workers, c, diff)
			}
		}
	}
	if diff := deep.Equal(want[controls[0]].Pix, want[controls[1]].Pix); diff == nil {
		t.Error("aux page 2 rendered the same as main page 1")
	}
}

func TestHiResClip(t *testing.T) {
	v, ram := setup(t, 4)
	for i := uint32(0x2000); i < 0x4000; i++ {
		ram.Write(i, 0x7F)
	}
	f := NewFrame()
	clip := image.Rect(100, 10, 200, 20)
	v.Render(Control{HiRes: true}, f, clip)
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			want := uint8(Black)
			if (image.Point{x, y}).In(clip) {
				want = White
			}
			if got := f.Pix[f.PixOffset(x, y)]; got != want {
				t.Fatalf("pixel %d,%d is %d, want %d", x, y, got, want)
			}
		}
	}

	// Empty clips do nothing.
	g := NewFrame()
	fill(g, Pink)
	v.Render(Control{HiRes: true}, g, image.Rect(0, 500, 100, 600))
	for i, p := range g.Pix {
		if p != Pink {
			t.Fatalf("empty clip wrote pixel %d", i)
		}
	}
}

func TestText(t *testing.T) {
	v, ram := setup(t, 1)
	// Put glyph 0x41 in the top left and glyph 0x7F at column 1 row 8.
	ram.Write(0x400+TextOffset(0, 0), 0x41)
	ram.Write(0x400+TextOffset(1, 8), 0x7F)
	f := NewFrame()
	v.Render(Control{Text: true}, f, f.Bounds())
	dumpImage(t, t.Name(), f)

	check := func(glyph uint8, x0, y0 int) {
		rom := testCharROM()
		for y := 0; y < kCellHeight; y++ {
			b := rom[int(glyph)*kCellHeight+y]
			for x := 0; x < kCellWidth; x++ {
				want := uint8(Black)
				if (b>>uint(x/2))&1 == 1 {
					want = White
				}
				if got := f.Pix[f.PixOffset(x0+x, y0+y)]; got != want {
					t.Errorf("glyph %.2X pixel %d,%d is %d, want %d", glyph, x, y, got, want)
				}
			}
		}
	}
	check(0x41, 0, 0)
	check(0x7F, 14, 64)
	check(0x00, 28, 0)
}

func TestText80(t *testing.T) {
	v, ram := setup(t, 1)
	ram.Write(0x400+TextOffset(0, 2), 0x11) // Column 0 row 2.
	ram.Write(0x800+TextOffset(0, 2), 0x22) // Column 1 row 2.
	f := NewFrame()
	v.Render(Control{Text: true, Col80: true}, f, f.Bounds())
	rom := testCharROM()
	for i, glyph := range []uint8{0x11, 0x22} {
		for y := 0; y < kCellHeight; y++ {
			b := rom[int(glyph)*kCellHeight+y]
			for x := 0; x < kDblWidth; x++ {
				want := uint8(Black)
				if (b>>uint(x))&1 == 1 {
					want = White
				}
				if got := f.Pix[f.PixOffset(i*kDblWidth+x, 16+y)]; got != want {
					t.Errorf("column %d pixel %d,%d is %d, want %d", i, x, y, got, want)
				}
			}
		}
	}
}

func TestLoRes(t *testing.T) {
	v, ram := setup(t, 1)
	ram.Write(0x400+TextOffset(0, 0), 0x3C)
	ram.Write(0x800+TextOffset(0, 0), 0x5A)
	for _, test := range []struct {
		c        Control
		top, bot uint8
	}{
		{Control{}, 0x0C, 0x03},
		{Control{Page2: true}, 0x0A, 0x05},
	} {
		f := NewFrame()
		v.Render(test.c, f, f.Bounds())
		for y := 0; y < kCellHeight; y++ {
			want := test.top
			if y >= kCellHeight/2 {
				want = test.bot
			}
			for x := 0; x < kCellWidth; x++ {
				if got := f.Pix[f.PixOffset(x, y)]; got != want {
					t.Errorf("%+v: pixel %d,%d is %d, want %d", test.c, x, y, got, want)
				}
			}
		}
		if got := f.Pix[f.PixOffset(kCellWidth, 0)]; got != Black {
			t.Errorf("%+v: next tile is %d, want black", test.c, got)
		}
	}
}

func TestMixed(t *testing.T) {
	v, ram := setup(t, 2)
	ram.Write(0x400+TextOffset(0, 0), 0xFF)  // Lo-res white block.
	ram.Write(0x400+TextOffset(0, 20), 0x00) // Text at row 20 is glyph 0.
	ram.Write(0x2000, 0x7F)
	tests := []struct {
		name string
		c    Control
		top  uint8 // Pixel 0,0.
		text uint8 // Pixel 0,160 (glyph 0 row 0 is blank).
	}{
		{"lores mixed", Control{Mixed: true}, White, Black},
		{"hires mixed", Control{Mixed: true, HiRes: true}, White, Black},
	}
	for _, test := range tests {
		f := NewFrame()
		fill(f, Pink)
		v.Render(test.c, f, f.Bounds())
		if got := f.Pix[f.PixOffset(0, 0)]; got != test.top {
			t.Errorf("%s: top pixel %d, want %d", test.name, got, test.top)
		}
		// glyph 0 row 1 is 0x01 so the second text row has its first 2 pixels lit.
		if got := f.Pix[f.PixOffset(0, 161)]; got != White {
			t.Errorf("%s: text pixel %d, want %d", test.name, got, White)
		}
		if got := f.Pix[f.PixOffset(0, 160)]; got != test.text {
			t.Errorf("%s: text pixel %d, want %d", test.name, got, test.text)
		}
		for i, p := range f.Pix {
			if p == Pink {
				t.Errorf("%s: pixel %d not drawn", test.name, i)
				break
			}
		}
	}
}

func TestDirtyTracking(t *testing.T) {
	v, ram := setup(t, 1)
	c := Control{Text: true}
	f := NewFrame()
	v.Render(c, f, f.Bounds())
	at := func() uint8 { return f.Pix[f.PixOffset(0, 1)] }
	if got := at(); got != White {
		t.Fatalf("glyph 0 row 1 pixel 0 is %d, want white", got)
	}

	// Write behind the tracker's back. Nothing should change.
	ram.Bytes()[0x400] = 0x01
	v.Render(c, f, f.Bounds())
	if got := at(); got != White {
		t.Errorf("untracked write was redrawn: %d", got)
	}

	// A tracked write marks the tile. Marking twice is the same as once.
	ram.Write(0x400, 0x01)
	ram.Write(0x400, 0x01)
	v.Render(c, f, f.Bounds())
	if got := at(); got != Black {
		t.Errorf("tracked write wasn't redrawn: %d", got)
	}

	// A mode flag change invalidates everything.
	ram.Bytes()[0x400] = 0x00
	v.Render(Control{Text: true, HiRes: true}, f, f.Bounds())
	if got := at(); got != White {
		t.Errorf("flag change didn't redraw: %d", got)
	}
}

func TestLoResDirtyUsesLoResBase(t *testing.T) {
	v, ram := setup(t, 1)
	f := NewFrame()
	// Leave the text map on page 1 and the lo-res map on page 2.
	v.Render(Control{Text: true}, f, f.Bounds())
	c := Control{Page2: true}
	v.Render(c, f, f.Bounds())
	if got := f.Pix[0]; got != Black {
		t.Fatalf("lo-res pixel is %d, want black", got)
	}
	ram.Write(0x800, 0xDD)
	v.Render(c, f, f.Bounds())
	if got := f.Pix[0]; got != Yellow {
		t.Errorf("lo-res write on page 2 wasn't redrawn: got %d, want %d", got, Yellow)
	}
}

func TestAuxBank(t *testing.T) {
	v, ram := setup(t, 3)
	ram.Write(0x400, 0x11)
	ram.Write(0x10400, 0x22)
	ram.Write(0x2000, 0x7F)
	ram.Write(0x12000, 0x00)
	tests := []struct {
		name string
		c    Control
		want uint8
	}{
		{"lores main", Control{}, 0x01},
		{"lores aux", Control{RAMRD: true}, 0x02},
		{"hires main", Control{HiRes: true}, White},
		{"hires aux", Control{HiRes: true, RAMRD: true}, Black},
	}
	for _, test := range tests {
		f := NewFrame()
		v.Render(test.c, f, f.Bounds())
		if got := f.Pix[f.PixOffset(2, 0)]; got != test.want {
			t.Errorf("%s: got %d, want %d", test.name, got, test.want)
		}
	}
}
