// Package mapper implements a declarative bus mapper for 16 bit CPUs on
// arcade boards. Each CPU gets an ordered table of entries which is
// searched first match on every access. Entries are either backed by a
// word slice (RAM or ROM) or dispatch to handler functions, and anything
// which matches no entry is logged and sees open bus.
//
// Entries may also belong to one of the 8 regions of a Sega 315-5195 style
// mapper chip. Those are placed by the region's base register and only
// appear once that register has been written, except for the boot region
// which is live at base 0 from reset.
package mapper

import (
	"errors"
	"fmt"

	"github.com/jmchacon/vidhw/logger"
)

// CPU selects which bus a table belongs to.
type CPU int

const (
	Main CPU = iota
	Sub
	kCPUs
)

func (c CPU) String() string {
	switch c {
	case Main:
		return "main"
	case Sub:
		return "sub"
	}
	return fmt.Sprintf("CPU(%d)", int(c))
}

// OpenBus is the value read from an address nothing responds to.
const OpenBus = uint16(0xFFFF)

const (
	kTag       = "mapper"
	kRegisters = 0x20
	kRegSound  = 0x03

	// RegionBoot is the first of the region register pairs (size, base). The
	// other regions follow every 2 registers up to 0x1E.
	RegionBoot = uint8(0x10)
	kRegions   = 8
	// kPresetMax is the number of region registers a preset can load.
	kPresetMax = kRegisters - int(RegionBoot)
)

// ReadFunc handles a read. offset is the byte offset of the access from the
// entry's base after masking and mask has a bit set for every data bit the
// CPU is reading.
type ReadFunc func(offset uint32, mask uint16) uint16

// WriteFunc handles a write. Only the bits set in mask are being written.
type WriteFunc func(offset uint32, data, mask uint16)

// Entry is one region in a CPU's memory map. An address matches when
//
//	Base <= addr & AddrMask &^ MirrorMask < Base+Size
//
// A zero Entry terminates a table.
type Entry struct {
	CPU        CPU
	Base       uint32
	Size       uint32
	AddrMask   uint32
	MirrorMask uint32
	// Read and Write handle the region. If they're nil and Backing is set the
	// region acts as RAM (or ROM if ROM is set) over the backing words.
	Read  ReadFunc
	Write WriteFunc
	// Backing points at the store for the region. It's dereferenced each time
	// the table is bound so the owner may swap the slice between resets.
	Backing *[]uint16
	// ROM drops every write that doesn't have a Write handler.
	ROM bool
	// Region is the size register of the mapper region the entry lives in
	// (RegionBoot, 0x12, ... 0x1E). Base is then relative to the region's base
	// register, bits 23-16. Zero means a fixed address.
	Region uint8
	Label  string
}

func (e *Entry) sentinel() bool {
	return e.Size == 0 && e.Base == 0 && e.AddrMask == 0 && e.Read == nil && e.Write == nil && e.Backing == nil && e.Label == ""
}

// Match returns whether addr falls inside the entry.
func (e *Entry) Match(addr uint32) bool {
	eff := addr & e.AddrMask &^ e.MirrorMask
	return eff >= e.Base && eff-e.Base < e.Size
}

// Offset returns the byte offset of addr from the start of the entry.
func (e *Entry) Offset(addr uint32) uint32 {
	return (addr & e.AddrMask &^ e.MirrorMask) - e.Base
}

// Window describes a region handed to Wire.
type Window struct {
	Base       uint32
	Size       uint32
	AddrMask   uint32
	MirrorMask uint32
	Region     uint8
	Label      string
}

// Def defines the pieces needed to setup a Mapper.
type Def struct {
	// Log receives unmapped accesses. May be nil.
	Log *logger.Logger
	// SoundLatch is called with the value written to the sound latch register.
	// May be nil.
	SoundLatch func(uint8)
	// Preset is loaded into the region registers (starting at RegionBoot) on
	// every reset, for boards whose program never sets up the mapper itself.
	Preset []uint8
}

// bound is an Entry along with the backing store it was bound to on the last
// Configure/Reset.
type bound struct {
	Entry
	mem []uint16
}

// Mapper holds the memory maps of every CPU on a board.
type Mapper struct {
	log        *logger.Logger
	soundLatch func(uint8)

	tables [kCPUs][]Entry // As passed to Configure.
	wired  [kCPUs][]Entry // As passed to Wire.
	active [kCPUs][]bound

	preset     []uint8
	regs       [kRegisters]uint8
	live       [kRegions]bool
	databusVal uint16
}

// New returns a Mapper with empty tables. Every access is unmapped until
// Configure is called.
func New(def *Def) (*Mapper, error) {
	if def == nil {
		return nil, errors.New("def must be non-nil")
	}
	if len(def.Preset) > kPresetMax {
		return nil, fmt.Errorf("preset has %d registers, max is %d", len(def.Preset), kPresetMax)
	}
	m := &Mapper{
		log:        def.Log,
		soundLatch: def.SoundLatch,
		preset:     append([]uint8(nil), def.Preset...),
	}
	m.loadRegisters()
	return m, nil
}

// loadRegisters clears the registers and loads the preset.
func (m *Mapper) loadRegisters() {
	for i := range m.regs {
		m.regs[i] = 0
	}
	for i := range m.live {
		m.live[i] = false
	}
	m.live[0] = true
	for i, v := range m.preset {
		m.regs[int(RegionBoot)+i] = v
		if i&1 == 1 {
			m.live[i/2] = true
		}
	}
}

func checkCPU(cpu CPU) error {
	if cpu < 0 || cpu >= kCPUs {
		return fmt.Errorf("invalid cpu %v", cpu)
	}
	return nil
}

func checkEntry(e *Entry) error {
	switch {
	case e.Size == 0:
		return fmt.Errorf("%q: size must be non-zero", e.Label)
	case e.AddrMask == 0:
		return fmt.Errorf("%q: address mask must be non-zero", e.Label)
	case e.Base&1 != 0 || e.Size&1 != 0:
		return fmt.Errorf("%q: base %.6X and size %.6X must be word aligned", e.Label, e.Base, e.Size)
	case e.Base&^(e.AddrMask&^e.MirrorMask) != 0:
		return fmt.Errorf("%q: base %.6X can never match address mask %.6X with mirror mask %.6X", e.Label, e.Base, e.AddrMask, e.MirrorMask)
	case e.Read == nil && e.Write == nil && e.Backing == nil:
		return fmt.Errorf("%q: needs handlers or a backing store", e.Label)
	case e.Region != 0 && (e.Region < RegionBoot || e.Region >= kRegisters || e.Region&1 != 0):
		return fmt.Errorf("%q: invalid region register %.2X", e.Label, e.Region)
	}
	return nil
}

// Configure installs table for cpu, replacing any earlier table. The table
// ends at the first zero Entry (or its end). Entries wired with Wire stay
// after the new table.
func (m *Mapper) Configure(cpu CPU, table []Entry) error {
	if err := checkCPU(cpu); err != nil {
		return err
	}
	var t []Entry
	for i := range table {
		e := table[i]
		if e.sentinel() {
			break
		}
		if err := checkEntry(&e); err != nil {
			return fmt.Errorf("can't configure %v entry %d: %v", cpu, i, err)
		}
		e.CPU = cpu
		t = append(t, e)
	}
	old := m.tables[cpu]
	m.tables[cpu] = t
	if err := m.bind(cpu); err != nil {
		m.tables[cpu] = old
		// The old table bound before so this can't fail.
		_ = m.bind(cpu)
		return err
	}
	return nil
}

// Wire appends a handler for w after everything configured for cpu so it's
// only reached if nothing earlier matches.
func (m *Mapper) Wire(cpu CPU, w Window, r ReadFunc, wr WriteFunc) error {
	if err := checkCPU(cpu); err != nil {
		return err
	}
	e := Entry{
		CPU:        cpu,
		Base:       w.Base,
		Size:       w.Size,
		AddrMask:   w.AddrMask,
		MirrorMask: w.MirrorMask,
		Region:     w.Region,
		Read:       r,
		Write:      wr,
		Label:      w.Label,
	}
	if err := checkEntry(&e); err != nil {
		return fmt.Errorf("can't wire %v: %v", cpu, err)
	}
	m.wired[cpu] = append(m.wired[cpu], e)
	return m.bind(cpu)
}

// Reset re-applies every configured table, picking up whatever each Backing
// currently points at. Stores aren't cleared so shared RAM survives. The
// mapper registers are cleared and the preset (if any) is loaded again.
func (m *Mapper) Reset() error {
	m.loadRegisters()
	m.databusVal = 0
	for cpu := CPU(0); cpu < kCPUs; cpu++ {
		if err := m.bind(cpu); err != nil {
			return fmt.Errorf("can't reset: %v", err)
		}
	}
	return nil
}

func (m *Mapper) bind(cpu CPU) error {
	var a []bound
	for _, t := range [][]Entry{m.tables[cpu], m.wired[cpu]} {
		for _, e := range t {
			b := bound{Entry: e}
			if e.Region != 0 {
				if !m.live[(e.Region-RegionBoot)/2] {
					continue
				}
				b.Base += uint32(m.regs[e.Region+1]) << 16
			}
			if e.Backing != nil {
				b.mem = *e.Backing
				if need := int(e.Size / 2); len(b.mem) < need {
					return fmt.Errorf("%v %q: backing store holds %d words, need %d", cpu, e.Label, len(b.mem), need)
				}
			}
			a = append(a, b)
		}
	}
	m.active[cpu] = a
	return nil
}

func (m *Mapper) find(cpu CPU, addr uint32) *bound {
	if cpu < 0 || cpu >= kCPUs {
		return nil
	}
	a := m.active[cpu]
	for i := range a {
		if a[i].Match(addr) {
			return &a[i]
		}
	}
	return nil
}

// Resolve returns a copy of the first entry for cpu which matches addr.
// Region entries carry their current absolute Base.
func (m *Mapper) Resolve(cpu CPU, addr uint32) (Entry, bool) {
	b := m.find(cpu, addr)
	if b == nil {
		return Entry{}, false
	}
	return b.Entry, true
}

// Entries returns a copy of the active table for cpu (configured entries
// then wired ones). Regions which aren't live are left out.
func (m *Mapper) Entries(cpu CPU) []Entry {
	if checkCPU(cpu) != nil {
		return nil
	}
	var ret []Entry
	for _, b := range m.active[cpu] {
		ret = append(ret, b.Entry)
	}
	return ret
}

// Read performs a read by cpu at addr.
func (m *Mapper) Read(cpu CPU, addr uint32, mask uint16) uint16 {
	b := m.find(cpu, addr)
	var val uint16
	switch {
	case b == nil:
		m.log.Logf(kTag, "%v: unmapped read of %.6X & %.4X", cpu, addr, mask)
		val = OpenBus
	case b.Read != nil:
		val = b.Read(b.Offset(addr), mask)
	case b.mem != nil:
		val = b.mem[b.Offset(addr)>>1]
	default:
		m.log.Logf(kTag, "%v: read of write only %q at %.6X & %.4X", cpu, b.Label, addr, mask)
		val = OpenBus
	}
	m.databusVal = val
	return val
}

// Write performs a write by cpu of data at addr.
func (m *Mapper) Write(cpu CPU, addr uint32, data, mask uint16) {
	m.databusVal = data
	b := m.find(cpu, addr)
	switch {
	case b == nil:
		m.log.Logf(kTag, "%v: unmapped write to %.6X = %.4X & %.4X", cpu, addr, data, mask)
	case b.Write != nil:
		b.Write(b.Offset(addr), data, mask)
	case b.ROM:
		// Dropped.
	case b.mem != nil:
		i := b.Offset(addr) >> 1
		b.mem[i] = b.mem[i]&^mask | data&mask
	default:
		m.log.Logf(kTag, "%v: write to read only %q at %.6X = %.4X & %.4X", cpu, b.Label, addr, data, mask)
	}
}

// DatabusVal returns the most recent value seen on any bus.
func (m *Mapper) DatabusVal() uint16 {
	return m.databusVal
}

// ReadRegister returns the mapper register at offset.
func (m *Mapper) ReadRegister(offset uint8) uint8 {
	return m.regs[offset%kRegisters]
}

// WriteRegister updates the mapper register at offset. The sound latch
// register also passes the value on to the sound CPU and region registers
// move their region.
func (m *Mapper) WriteRegister(offset, data uint8) {
	offset %= kRegisters
	m.regs[offset] = data
	switch {
	case offset == kRegSound:
		if m.soundLatch != nil {
			m.soundLatch(data)
		}
	case offset >= RegionBoot:
		if offset&1 == 1 {
			m.live[(offset-RegionBoot)/2] = true
		}
		for cpu := CPU(0); cpu < kCPUs; cpu++ {
			if err := m.bind(cpu); err != nil {
				m.log.Logf(kTag, "can't remap after register %.2X write: %v", offset, err)
			}
		}
	}
}

// RegisterRead is a ReadFunc exposing the registers on the low byte of each
// word so they can be placed in a memory map.
func (m *Mapper) RegisterRead(offset uint32, mask uint16) uint16 {
	return uint16(m.ReadRegister(uint8(offset>>1))) | 0xFF00
}

// RegisterWrite is the WriteFunc matching RegisterRead. Writes which don't
// include the low byte are ignored.
func (m *Mapper) RegisterWrite(offset uint32, data, mask uint16) {
	if mask&0x00FF == 0 {
		return
	}
	m.WriteRegister(uint8(offset>>1), uint8(data))
}
