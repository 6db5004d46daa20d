package segaorun

import (
	"github.com/jmchacon/vidhw/mapper"
)

const (
	kMainMask = uint32(0xFFFFFF)
	kSubMask  = uint32(0x0FFFFF)
)

// Main CPU regions of the 315-5195 mapper (the size register of each pair).
const (
	kRegionROM    = mapper.RegionBoot
	kRegionTile   = uint8(0x12)
	kRegionColor  = uint8(0x14)
	kRegionObject = uint8(0x16)
	kRegionIO     = uint8(0x18)
	kRegionSub    = uint8(0x1A)
)

// StandardLayout is the region setup every Out Run class program leaves
// the mapper in: ROM and work RAM at 0, tile and text RAM at 0x100000,
// color RAM at 0x120000, object RAM at 0x130000, I/O at 0x140000 and the
// sub CPU's space at 0x200000. It's loaded as the register preset for sets
// whose boot code doesn't program the mapper.
var StandardLayout = []uint8{
	0x02, 0x00,
	0x0D, 0x10,
	0x00, 0x12,
	0x0C, 0x13,
	0x08, 0x14,
	0x0F, 0x20,
	0x00, 0x00,
	0x00, 0x00,
}

var (
	ioWindow = mapper.Window{
		Size:     0x4000,
		AddrMask: kMainMask,
		Region:   kRegionIO,
		Label:    "I/O space",
	}
	// 0x20 byte wide registers on odd addresses, repeated through the page.
	registerWindow = mapper.Window{
		Base:       0xFFFF00,
		Size:       0x100,
		AddrMask:   kMainMask,
		MirrorMask: 0x0000C0,
		Label:      "mapper registers",
	}
)

type roadWindow struct {
	read  mapper.ReadFunc
	write mapper.WriteFunc
}

// roadEntry returns the road control entry at base for either CPU.
func (b *Board) roadEntry(base, mask uint32, region uint8, road roadWindow) mapper.Entry {
	e := mapper.Entry{
		Base:     base,
		Size:     RoadCtrlSize,
		AddrMask: mask,
		Region:   region,
		Read:     road.read,
		Write:    road.write,
		Label:    "road control",
	}
	if b.roadCtrl != nil {
		e.Backing = &b.roadCtrl
	}
	return e
}

// videoWriter returns a write handler which updates mem like RAM does and
// then reports the offset written.
func (b *Board) videoWriter(a Area, mem *[]uint16) mapper.WriteFunc {
	return func(offset uint32, data, mask uint16) {
		m := *mem
		i := offset >> 1
		m[i] = m[i]&^mask | data&mask
		if b.videoWrite != nil {
			b.videoWrite(a, offset)
		}
	}
}

// mainTable bases are relative to each entry's region.
func (b *Board) mainTable(road roadWindow) []mapper.Entry {
	return []mapper.Entry{
		{Base: 0x00000, Size: ROMSize, AddrMask: kMainMask, Region: kRegionROM, Backing: &b.mainROM, ROM: true, Label: "CPU 0 ROM"},
		{Base: 0x60000, Size: WorkRAMSize, AddrMask: kMainMask, MirrorMask: 0x018000, Region: kRegionROM, Backing: &b.workRAM, Label: "CPU 0 RAM"},
		{Base: 0x00000, Size: TileRAMSize, AddrMask: kMainMask, Region: kRegionTile, Backing: &b.tileRAM, Write: b.videoWriter(TileRAM, &b.tileRAM), Label: "tile RAM"},
		{Base: 0x10000, Size: TextRAMSize, AddrMask: kMainMask, Region: kRegionTile, Backing: &b.textRAM, Write: b.videoWriter(TextRAM, &b.textRAM), Label: "text RAM"},
		{Base: 0x00000, Size: ColorRAMSize, AddrMask: kMainMask, Region: kRegionColor, Backing: &b.colorRAM, Write: b.videoWriter(ColorRAM, &b.colorRAM), Label: "color RAM"},
		{Base: 0x00000, Size: ObjectRAMSize, AddrMask: kMainMask, Region: kRegionObject, Backing: &b.objectRAM, Write: b.videoWriter(ObjectRAM, &b.objectRAM), Label: "object RAM"},
		{Base: 0x00000, Size: ROMSize, AddrMask: kMainMask, Region: kRegionSub, Backing: &b.subROM, ROM: true, Label: "CPU 1 ROM"},
		{Base: 0x60000, Size: SubRAMSize, AddrMask: kMainMask, MirrorMask: 0x018000, Region: kRegionSub, Backing: &b.subRAM, Label: "CPU 1 RAM"},
		{Base: 0x80000, Size: RoadRAMSize, AddrMask: kMainMask, MirrorMask: 0x00F000, Region: kRegionSub, Backing: &b.roadRAM, Label: "road RAM"},
		b.roadEntry(0x90000, kMainMask, kRegionSub, road),
		{},
	}
}

// subTable is fixed, the sub CPU isn't behind the mapper.
func (b *Board) subTable(road roadWindow) []mapper.Entry {
	return []mapper.Entry{
		{Base: 0x00000, Size: ROMSize, AddrMask: kSubMask, Backing: &b.subROM, ROM: true, Label: "CPU 1 ROM"},
		{Base: 0x60000, Size: SubRAMSize, AddrMask: kSubMask, MirrorMask: 0x18000, Backing: &b.subRAM, Label: "CPU 1 RAM"},
		{Base: 0x80000, Size: RoadRAMSize, AddrMask: kSubMask, MirrorMask: 0x01000, Backing: &b.roadRAM, Label: "road RAM"},
		b.roadEntry(0x90000, kSubMask, 0, road),
		{},
	}
}
