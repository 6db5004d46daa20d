// Package segaorun implements the board glue for Sega's Out Run hardware
// (also used by Turbo Out Run and Super Hang-On). It owns the memory maps
// of the main and sub 68000s, the shared RAM between them, the custom I/O
// chips and the battery backed work RAM. CPU cores, sound and the video
// chips are external and attach through the mapper and the hooks in
// BoardDef.
package segaorun

import (
	"errors"
	"fmt"

	"github.com/jmchacon/vidhw/io"
	"github.com/jmchacon/vidhw/line"
	"github.com/jmchacon/vidhw/logger"
	"github.com/jmchacon/vidhw/mapper"
)

// Variant is the I/O layout a ROM set uses.
type Variant int

const (
	OutRun Variant = iota
	SuperHangOn
)

func (v Variant) String() string {
	switch v {
	case OutRun:
		return "Out Run"
	case SuperHangOn:
		return "Super Hang-On"
	}
	return fmt.Sprintf("Variant(%d)", int(v))
}

type romset struct {
	variant Variant
	// preset is loaded into the mapper's region registers on every reset.
	// nil means the program sets them up.
	preset []uint8
}

var romsets = map[string]romset{
	"outrun":   {OutRun, nil},
	"outrun2":  {OutRun, nil},
	"outrun1":  {OutRun, nil},
	"outrunb":  {OutRun, StandardLayout},
	"toutrun":  {OutRun, nil},
	"toutrun1": {OutRun, nil},
	"toutrun2": {OutRun, nil},
	"shangon":  {SuperHangOn, nil},
	"shangon1": {SuperHangOn, nil},
	"shangon2": {SuperHangOn, nil},
	"shangon3": {SuperHangOn, nil},
	"shangnle": {SuperHangOn, nil},
}

// VariantFor returns the I/O layout used by the named ROM set.
func VariantFor(name string) (Variant, error) {
	r, ok := romsets[name]
	if !ok {
		return 0, fmt.Errorf("unknown ROM set %q", name)
	}
	return r.variant, nil
}

// Area names a video memory region so writes to it can be reported.
type Area int

const (
	TileRAM Area = iota
	TextRAM
	ColorRAM
	ObjectRAM
)

func (a Area) String() string {
	switch a {
	case TileRAM:
		return "tile RAM"
	case TextRAM:
		return "text RAM"
	case ColorRAM:
		return "color RAM"
	case ObjectRAM:
		return "object RAM"
	}
	return fmt.Sprintf("Area(%d)", int(a))
}

// Sizes in bytes of the board's memories.
const (
	ROMSize       = 0x60000
	WorkRAMSize   = 0x8000
	SubRAMSize    = 0x8000
	TileRAMSize   = 0x10000
	TextRAMSize   = 0x1000
	ColorRAMSize  = 0x2000
	ObjectRAMSize = 0x1000
	RoadRAMSize   = 0x1000
	RoadCtrlSize  = 0x10000
)

// BoardDef defines the pieces needed to setup a Board.
type BoardDef struct {
	// Romset picks the I/O layout (see VariantFor).
	Romset string
	// MainROM and SubROM are the 68000 programs as big endian words. Each may be
	// at most ROMSize bytes. A nil ROM reads as zeros.
	MainROM []uint16
	SubROM  []uint16
	// Inputs are the 4 digital input ports. Unset ports read as open bus.
	Inputs [4]io.Port16
	// ADC are the analog channels (steering, pedals, etc). Super Hang-On
	// only uses the first 4. Unset channels read as 0x0010.
	ADC [8]io.Port16
	// Log gets unmapped and unknown accesses. May be nil.
	Log *logger.Logger
	// SoundLatch gets every byte the main CPU sends to the sound CPU.
	SoundLatch func(uint8)
	// VideoWrite is called after every CPU write to video memory with the
	// byte offset written.
	VideoWrite func(a Area, offset uint32)
	// RoadRead and RoadWrite handle the road generator's control window. If
	// both are nil the window is plain RAM.
	RoadRead  mapper.ReadFunc
	RoadWrite mapper.WriteFunc
	// SpriteDraw is called when an Out Run program kicks off a sprite list
	// draw. May be nil.
	SpriteDraw func()
	// SubCPU and SoundCPU get their reset lines installed if non-nil.
	SubCPU   line.Receiver
	SoundCPU line.Receiver
}

// Board is one Out Run class board.
type Board struct {
	variant Variant
	log     *logger.Logger
	mapper  *mapper.Mapper
	io       ioState
	disp     dispatch
	subReset line.Latch

	mainROM   []uint16
	subROM    []uint16
	workRAM   []uint16
	subRAM    []uint16
	tileRAM   []uint16
	textRAM   []uint16
	colorRAM  []uint16
	objectRAM []uint16
	roadRAM   []uint16
	roadCtrl  []uint16

	videoWrite func(a Area, offset uint32)
}

func loadROM(rom []uint16) ([]uint16, error) {
	if len(rom)*2 > ROMSize {
		return nil, fmt.Errorf("ROM is %d bytes, must be <= %d", len(rom)*2, ROMSize)
	}
	r := make([]uint16, ROMSize/2)
	copy(r, rom)
	return r, nil
}

// Init returns a fully wired Board for def.Romset.
func Init(def *BoardDef) (*Board, error) {
	if def == nil {
		return nil, errors.New("def must be non-nil")
	}
	set, ok := romsets[def.Romset]
	if !ok {
		return nil, fmt.Errorf("unknown ROM set %q", def.Romset)
	}
	v := set.variant
	var err error
	b := &Board{
		variant:    v,
		log:        def.Log,
		workRAM:    make([]uint16, WorkRAMSize/2),
		subRAM:     make([]uint16, SubRAMSize/2),
		tileRAM:    make([]uint16, TileRAMSize/2),
		textRAM:    make([]uint16, TextRAMSize/2),
		colorRAM:   make([]uint16, ColorRAMSize/2),
		objectRAM:  make([]uint16, ObjectRAMSize/2),
		roadRAM:    make([]uint16, RoadRAMSize/2),
		videoWrite: def.VideoWrite,
	}
	if b.mainROM, err = loadROM(def.MainROM); err != nil {
		return nil, fmt.Errorf("can't load main ROM: %v", err)
	}
	if b.subROM, err = loadROM(def.SubROM); err != nil {
		return nil, fmt.Errorf("can't load sub ROM: %v", err)
	}
	road := roadWindow{read: def.RoadRead, write: def.RoadWrite}
	if road.read == nil && road.write == nil {
		b.roadCtrl = make([]uint16, RoadCtrlSize/2)
	}

	b.io = ioState{
		log:        def.Log,
		inputs:     def.Inputs,
		adc:        def.ADC,
		spriteDraw: def.SpriteDraw,
	}
	b.disp = dispatch{log: def.Log}

	if b.mapper, err = mapper.New(&mapper.Def{
		Log:        def.Log,
		SoundLatch: def.SoundLatch,
		Preset:     set.preset,
	}); err != nil {
		return nil, fmt.Errorf("can't create mapper: %v", err)
	}
	if err := b.mapper.Configure(mapper.Main, b.mainTable(road)); err != nil {
		return nil, fmt.Errorf("can't configure main CPU: %v", err)
	}
	if err := b.mapper.Configure(mapper.Sub, b.subTable(road)); err != nil {
		return nil, fmt.Errorf("can't configure sub CPU: %v", err)
	}
	if err := b.mapper.Wire(mapper.Main, ioWindow, b.disp.read, b.disp.write); err != nil {
		return nil, fmt.Errorf("can't wire I/O: %v", err)
	}
	if err := b.mapper.Wire(mapper.Main, registerWindow, b.mapper.RegisterRead, b.mapper.RegisterWrite); err != nil {
		return nil, fmt.Errorf("can't wire mapper registers: %v", err)
	}

	var c CustomIO
	switch v {
	case OutRun:
		c = &outrunIO{&b.io}
	case SuperHangOn:
		c = &shangonIO{&b.io}
	}
	if err := b.disp.configure(c); err != nil {
		return nil, fmt.Errorf("can't configure custom I/O: %v", err)
	}
	if def.SubCPU != nil {
		def.SubCPU.Install(&b.subReset)
	}
	if def.SoundCPU != nil {
		def.SoundCPU.Install(&b.io.soundReset)
	}
	return b, nil
}

// Reset performs a board reset. The memory maps are rebound but no memory
// is cleared so the work RAM and the shared sub CPU RAM keep their contents.
// The mapper goes back to the ROM set's preset, which for most sets leaves
// only ROM and work RAM mapped until the program sets up the rest.
func (b *Board) Reset() error {
	b.io.watchdog = 0
	return b.mapper.Reset()
}

// Variant returns the I/O layout in use.
func (b *Board) Variant() Variant {
	return b.variant
}

// Mapper returns the board's memory mapper.
func (b *Board) Mapper() *mapper.Mapper {
	return b.mapper
}

// Read performs a read by cpu at addr. mask has a bit set for each data
// bit being read.
func (b *Board) Read(cpu mapper.CPU, addr uint32, mask uint16) uint16 {
	return b.mapper.Read(cpu, addr, mask)
}

// Write performs a write by cpu of data at addr. Only the bits set in mask
// are written.
func (b *Board) Write(cpu mapper.CPU, addr uint32, data, mask uint16) {
	b.mapper.Write(cpu, addr, data, mask)
}

// ResetInstruction is called by the main CPU core when it executes RESET.
// That pulses the sub CPU's reset line.
func (b *Board) ResetInstruction() {
	b.subReset.Pulse()
}

// SubReset returns the reset line of the sub CPU.
func (b *Board) SubReset() line.Sender {
	return &b.subReset
}

// SoundReset returns the reset line of the sound CPU.
func (b *Board) SoundReset() line.Sender {
	return &b.io.soundReset
}

// DisplayEnabled returns the display enable bit last written by the game.
func (b *Board) DisplayEnabled() bool {
	return b.io.display
}

// ADCSelect returns the analog channel currently selected.
func (b *Board) ADCSelect() int {
	return b.io.adcSelect
}

// WatchdogCount returns the number of watchdog resets since the last Reset.
func (b *Board) WatchdogCount() int {
	return b.io.watchdog
}

// WorkRAM returns the main CPU work RAM.
func (b *Board) WorkRAM() []uint16 {
	return b.workRAM
}
