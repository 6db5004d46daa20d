// Package tilemap implements a cached grid of fixed size tiles which is
// only redrawn where it has been marked dirty. Video hardware built on
// character cells (text modes, block graphics) describes each tile through
// a callback and tells the map when the memory backing a tile changes.
package tilemap

import (
	"errors"
	"fmt"
	"image"
)

// Info describes how to draw a single tile. Pixels holds TileW*TileH
// entries (row major) each of which indexes Colors to give the final pen.
type Info struct {
	Pixels []uint8
	Colors []uint8
}

// Def defines the pieces needed to setup a Map.
type Def struct {
	// Cols and Rows give the size of the grid in tiles.
	Cols, Rows int
	// TileW and TileH give the size of a tile in pixels.
	TileW, TileH int
	// Offset maps a tile coordinate to its memory offset (relative to the map's
	// video base). It must be injective over the grid.
	Offset func(col, row int) uint32
	// TileInfo fills in info for the tile whose memory lives at offset (relative to
	// the map's video base).
	TileInfo func(offset uint32, info *Info)
}

// Map is a tile map with per tile dirty tracking. A Map is owned by a
// single renderer and isn't safe for concurrent use.
type Map struct {
	cols, rows   int
	tileW, tileH int
	offset       func(col, row int) uint32
	tileInfo     func(offset uint32, info *Info)

	base     uint32  // Current video base.
	dirty    []bool  // Per tile dirty bits in row major order.
	anyDirty bool    // True if at least one dirty bit is set.
	inverse  []int32 // Memory offset -> tile index (-1 for none).
	tileOffs []uint32
	cache    []uint8 // Decoded pens, (cols*tileW) x (rows*tileH).
	info     Info
}

// New returns a Map with every tile marked dirty.
func New(def *Def) (*Map, error) {
	if def.Cols <= 0 || def.Rows <= 0 || def.TileW <= 0 || def.TileH <= 0 {
		return nil, fmt.Errorf("invalid tilemap geometry %dx%d tiles of %dx%d", def.Cols, def.Rows, def.TileW, def.TileH)
	}
	if def.Offset == nil || def.TileInfo == nil {
		return nil, errors.New("Offset and TileInfo must be non-nil")
	}
	m := &Map{
		cols:     def.Cols,
		rows:     def.Rows,
		tileW:    def.TileW,
		tileH:    def.TileH,
		offset:   def.Offset,
		tileInfo: def.TileInfo,
		dirty:    make([]bool, def.Cols*def.Rows),
		tileOffs: make([]uint32, def.Cols*def.Rows),
		cache:    make([]uint8, def.Cols*def.TileW*def.Rows*def.TileH),
	}
	max := uint32(0)
	for row := 0; row < m.rows; row++ {
		for col := 0; col < m.cols; col++ {
			o := m.offset(col, row)
			m.tileOffs[row*m.cols+col] = o
			if o > max {
				max = o
			}
		}
	}
	m.inverse = make([]int32, max+1)
	for i := range m.inverse {
		m.inverse[i] = -1
	}
	for i, o := range m.tileOffs {
		if m.inverse[o] != -1 {
			return nil, fmt.Errorf("tiles %d and %d both map to memory offset %.4X", m.inverse[o], i, o)
		}
		m.inverse[o] = int32(i)
	}
	m.MarkAllDirty()
	return m, nil
}

// Bounds returns the pixel extent of the map.
func (m *Map) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.cols*m.tileW, m.rows*m.tileH)
}

// Base returns the current video base.
func (m *Map) Base() uint32 {
	return m.base
}

// SetBase records a new video base. The cached tiles are only valid for the
// base they were decoded from so a change marks the whole map dirty.
// Returns true if the base changed.
func (m *Map) SetBase(base uint32) bool {
	if base == m.base {
		return false
	}
	m.base = base
	m.MarkAllDirty()
	return true
}

// MarkAllDirty forces every tile to be redrawn on the next Draw.
func (m *Map) MarkAllDirty() {
	for i := range m.dirty {
		m.dirty[i] = true
	}
	m.anyDirty = true
}

// MarkDirty marks the tile backed by the given memory offset (relative to
// the video base) as dirty. Offsets no tile uses are ignored.
func (m *Map) MarkDirty(offset uint32) {
	if offset >= uint32(len(m.inverse)) {
		return
	}
	if i := m.inverse[offset]; i >= 0 {
		m.dirty[i] = true
		m.anyDirty = true
	}
}

// Dirty returns whether the tile at col,row needs redrawing.
func (m *Map) Dirty(col, row int) bool {
	return m.dirty[row*m.cols+col]
}

// update redraws every dirty tile into the cache.
func (m *Map) update() {
	if !m.anyDirty {
		return
	}
	stride := m.cols * m.tileW
	for i, d := range m.dirty {
		if !d {
			continue
		}
		m.info.Pixels = nil
		m.info.Colors = nil
		m.tileInfo(m.tileOffs[i], &m.info)
		x0 := (i % m.cols) * m.tileW
		y0 := (i / m.cols) * m.tileH
		for y := 0; y < m.tileH; y++ {
			line := m.cache[(y0+y)*stride+x0 : (y0+y)*stride+x0+m.tileW]
			for x := range line {
				p := uint8(0)
				if k := y*m.tileW + x; k < len(m.info.Pixels) {
					p = m.info.Pixels[k]
				}
				if int(p) < len(m.info.Colors) {
					line[x] = m.info.Colors[p]
				} else {
					line[x] = 0
				}
			}
		}
		m.dirty[i] = false
	}
	m.anyDirty = false
}

// Draw brings the cache up to date and copies the part of it inside clip
// into dst. The map is anchored at dst's origin. An empty clip after
// intersecting with the map and dst is a no-op.
func (m *Map) Draw(dst *image.Paletted, clip image.Rectangle) {
	r := clip.Intersect(m.Bounds()).Intersect(dst.Bounds())
	if r.Empty() {
		return
	}
	m.update()
	stride := m.cols * m.tileW
	for y := r.Min.Y; y < r.Max.Y; y++ {
		o := dst.PixOffset(r.Min.X, y)
		copy(dst.Pix[o:o+r.Dx()], m.cache[y*stride+r.Min.X:y*stride+r.Max.X])
	}
}
