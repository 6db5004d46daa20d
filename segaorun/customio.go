package segaorun

import (
	"errors"

	"github.com/jmchacon/vidhw/io"
	"github.com/jmchacon/vidhw/line"
	"github.com/jmchacon/vidhw/logger"
	"github.com/jmchacon/vidhw/mapper"
)

const (
	kTag = "segaorun"

	// kADCDefault is what an analog channel with nothing attached reads as.
	kADCDefault = uint16(0x0010)
	// kWatchdogVal is returned by the watchdog reset read.
	kWatchdogVal = uint16(0x00FF)
)

// CustomIO decodes accesses to the board's I/O window. offset is the byte
// offset inside the window.
type CustomIO interface {
	Read(offset uint32, mask uint16) uint16
	Write(offset uint32, data, mask uint16)
}

// ioState is everything the I/O chips on the board latch or read. Each
// game variant decodes its own address layout onto it.
type ioState struct {
	log        *logger.Logger
	inputs     [4]io.Port16
	adc        [8]io.Port16
	adcSelect  int
	display    bool
	watchdog   int
	soundReset line.Latch
	spriteDraw func()
}

func (s *ioState) input(port int) uint16 {
	if p := s.inputs[port&3]; p != nil {
		return p.Input()
	}
	return mapper.OpenBus
}

// readADC returns the selected analog channel, limited to the first n
// channels the variant can address.
func (s *ioState) readADC(n int) uint16 {
	if p := s.adc[s.adcSelect%n]; p != nil {
		return p.Input()
	}
	return kADCDefault
}

func (s *ioState) setSoundReset(data uint16) {
	// D0 is 1 for normal operation.
	s.soundReset.Set(data&0x01 == 0)
}

// outrunIO decodes the Out Run I/O layout.
type outrunIO struct {
	*ioState
}

func (o *outrunIO) Read(offset uint32, mask uint16) uint16 {
	offset &= 0x7F
	switch offset {
	case 0x00:
		// Unknown, the game reads 0x01 and looks at bits 5 and 3.
	case 0x10, 0x12, 0x14, 0x16:
		return o.input(int(offset>>1) & 3)
	case 0x30:
		return o.readADC(8)
	case 0x60:
		o.watchdog++
		return kWatchdogVal
	}
	o.log.Logf(kTag, "outrun: unknown read access to %.4X & %.4X", offset, mask)
	return mapper.OpenBus
}

func (o *outrunIO) Write(offset uint32, data, mask uint16) {
	offset &= 0x7F
	switch offset {
	case 0x04:
		// D6 watchdog, D5 display enable, D4-D2 ADC select, D1 sprite
		// control, D0 sound reset (1 running).
		o.display = data&0x20 != 0
		o.adcSelect = int(data>>2) & 7
		o.setSoundReset(data)
		return
	case 0x30:
		// ADC trigger.
		return
	case 0x70:
		if o.spriteDraw != nil {
			o.spriteDraw()
		}
		return
	}
	o.log.Logf(kTag, "outrun: unknown write access to %.4X = %.4X & %.4X", offset, data, mask)
}

// shangonIO decodes the Super Hang-On I/O layout.
type shangonIO struct {
	*ioState
}

func (s *shangonIO) Read(offset uint32, mask uint16) uint16 {
	offset &= 0x303F
	switch offset {
	case 0x1000, 0x1002, 0x1004, 0x1006:
		return s.input(int(offset>>1) & 3)
	case 0x3020:
		return s.readADC(4)
	}
	s.log.Logf(kTag, "shangon: unknown read access to %.4X & %.4X", offset, mask)
	return mapper.OpenBus
}

func (s *shangonIO) Write(offset uint32, data, mask uint16) {
	offset &= 0x303F
	switch offset {
	case 0x0000:
		// D7-D6 ADC select, D5 display.
		s.adcSelect = int(data>>6) & 3
		s.display = data&0x20 != 0
		return
	case 0x0020:
		s.setSoundReset(data)
		return
	case 0x3000:
		s.watchdog++
		return
	case 0x3020:
		// ADC trigger.
		return
	}
	s.log.Logf(kTag, "shangon: unknown write access to %.4X = %.4X & %.4X", offset, data, mask)
}

// dispatch routes the I/O window to a CustomIO. It starts with none and
// gets one exactly once.
type dispatch struct {
	log *logger.Logger
	io  CustomIO
}

func (d *dispatch) configure(c CustomIO) error {
	if d.io != nil {
		return errors.New("custom I/O is already configured")
	}
	if c == nil {
		return errors.New("custom I/O must be non-nil")
	}
	d.io = c
	return nil
}

func (d *dispatch) read(offset uint32, mask uint16) uint16 {
	if d.io == nil {
		d.log.Logf(kTag, "unknown read access to I/O %.4X & %.4X", offset, mask)
		return mapper.OpenBus
	}
	return d.io.Read(offset, mask)
}

func (d *dispatch) write(offset uint32, data, mask uint16) {
	if d.io == nil {
		d.log.Logf(kTag, "unknown write access to I/O %.4X = %.4X & %.4X", offset, data, mask)
		return
	}
	d.io.Write(offset, data, mask)
}
