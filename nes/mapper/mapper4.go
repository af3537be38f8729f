package mapper

import (
	"retrocore/core"
	"retrocore/nes/cartridge"
)

// mapper4 is MMC3 (TxROM): eight bank registers selected through
// $8000/$8001, independently switchable PRG/CHR layout via bit 6/7 of
// the bank-select byte, plus a scanline counter clocked by the rising
// edge of PPU address line A12 that the chip uses to generate a
// mid-frame IRQ (split-screen status bars, raster effects).
type mapper4 struct {
	*baseMapper

	bankSelect uint8
	bankReg    [8]uint8
	mirror     uint8
	prgRAMCtrl uint8

	irqLatch   uint8
	irqCounter uint8
	irqReload  bool
	irqEnabled bool
	irqPending bool

	lastA12    uint16
	a12LowFor  int
	chrRAM     []byte
}

func init() {
	RegisterMapper(4, &mapper4{baseMapper: newBaseMapper(4, "MMC3")})
}

func (m *mapper4) New() Mapper {
	return &mapper4{baseMapper: newBaseMapper(4, "MMC3")}
}

func (m *mapper4) Init(rom *cartridge.ROM) {
	m.baseMapper.Init(rom)
	if rom.HasChrRAM() {
		m.chrRAM = make([]byte, rom.ChrRAMSize())
	}
}

func (m *mapper4) RefreshMappings() {}

func (m *mapper4) prgBanks8k() int {
	n := int(m.rom.NumPrgBlocks()) * 2
	if n < 1 {
		n = 1
	}
	return n
}

func (m *mapper4) chrBanks1k() int {
	if m.chrRAM != nil {
		return len(m.chrRAM) / 1024
	}
	n := int(m.rom.NumChrBlocks()) * 8
	if n < 1 {
		n = 1
	}
	return n
}

// prgOffset maps the CPU-visible $8000-$FFFF space (addr 0-based from
// $8000) to a PRG ROM byte offset, honoring bit 6 of bankSelect which
// swaps which 8KB slot is fixed to the second-to-last bank.
func (m *mapper4) prgOffset(addr uint16) int {
	const bank8k = 8192
	banks := m.prgBanks8k()
	slot := int(addr) / bank8k
	within := int(addr) % bank8k

	r6 := int(m.bankReg[6]) % banks
	r7 := int(m.bankReg[7]) % banks
	secondLast := (banks - 2 + banks) % banks
	last := banks - 1

	var bank int
	if m.bankSelect&0x40 == 0 {
		switch slot {
		case 0:
			bank = r6
		case 1:
			bank = r7
		case 2:
			bank = secondLast
		default:
			bank = last
		}
	} else {
		switch slot {
		case 0:
			bank = secondLast
		case 1:
			bank = r7
		case 2:
			bank = r6
		default:
			bank = last
		}
	}
	return bank*bank8k + within
}

// chrOffset maps a PPU-visible CHR address to a byte offset, honoring
// bit 7 of bankSelect which swaps the two 2KB/four 1KB region
// assignment.
func (m *mapper4) chrOffset(addr uint16) int {
	banks := m.chrBanks1k()
	r := func(i int) int { return int(m.bankReg[i]) % banks }

	slot := int(addr) / 1024
	within := int(addr) % 1024

	var regions [8]int
	if m.bankSelect&0x80 == 0 {
		regions = [8]int{r(0) &^ 1, (r(0) &^ 1) + 1, r(1) &^ 1, (r(1) &^ 1) + 1, r(2), r(3), r(4), r(5)}
	} else {
		regions = [8]int{r(2), r(3), r(4), r(5), r(0) &^ 1, (r(0) &^ 1) + 1, r(1) &^ 1, (r(1) &^ 1) + 1}
	}
	bank := regions[slot] % banks
	return bank*1024 + within
}

func (m *mapper4) PrgRead(addr uint16) uint8 {
	if addr < 0x2000 {
		return m.readPrgRAM(addr)
	}
	return m.rom.PrgRead(uint16(m.prgOffset(addr - 0x2000)))
}

func (m *mapper4) PrgWrite(addr uint16, val uint8) {
	if addr < 0x2000 {
		m.writePrgRAM(addr, val)
		return
	}
	cpuAddr := addr - 0x2000 + 0x8000

	even := cpuAddr%2 == 0
	switch {
	case cpuAddr < 0xA000:
		if even {
			m.bankSelect = val
		} else {
			m.bankReg[m.bankSelect&0x07] = val
		}
	case cpuAddr < 0xC000:
		if even {
			m.mirror = val & 0x01
		} else {
			m.prgRAMCtrl = val
		}
	case cpuAddr < 0xE000:
		if even {
			m.irqLatch = val
		} else {
			m.irqReload = true
		}
	default:
		if even {
			m.irqEnabled = false
			m.irqPending = false
		} else {
			m.irqEnabled = true
		}
	}
}

func (m *mapper4) MirroringMode() uint8 {
	if m.mirror == 0 {
		return 1 // vertical
	}
	return 0 // horizontal
}

func (m *mapper4) ChrRead(addr uint16) uint8 {
	off := m.chrOffset(addr)
	if m.chrRAM != nil {
		return m.chrRAM[off%len(m.chrRAM)]
	}
	return m.rom.ChrRead(uint16(off))
}

func (m *mapper4) ChrWrite(addr uint16, val uint8) {
	if m.chrRAM == nil {
		return
	}
	off := m.chrOffset(addr)
	m.chrRAM[off%len(m.chrRAM)] = val
}

// NotifyPPUAddress implements the A12-edge scanline counter: when A12
// of a notified address rises from 0 to 1 after at least 8 consecutive
// notifications with A12 low, the counter clocks, and reaching zero
// while enabled raises the IRQ. The PPU notifies only after the second
// $2006 write and after each $2007 access; its rendering fetches send
// no notifications, so rendering does not clock the counter.
func (m *mapper4) NotifyPPUAddress(addr uint16) {
	a12 := addr & 0x1000
	if a12 != 0 && m.lastA12 == 0 && m.a12LowFor >= 8 {
		m.clockIRQCounter()
	}
	if a12 == 0 {
		m.a12LowFor++
	} else {
		m.a12LowFor = 0
	}
	m.lastA12 = a12
}

func (m *mapper4) clockIRQCounter() {
	if m.irqCounter == 0 || m.irqReload {
		m.irqCounter = m.irqLatch
		m.irqReload = false
	} else {
		m.irqCounter--
	}
	if m.irqCounter == 0 && m.irqEnabled {
		m.irqPending = true
	}
}

func (m *mapper4) IRQPending() bool { return m.irqPending }
func (m *mapper4) ClearIRQ()        { m.irqPending = false }

func (m *mapper4) Encode(e *core.Encoder, prefix string) {
	m.baseMapper.Encode(e, prefix)
	e.WriteUint8(prefix+".bankSelect", m.bankSelect)
	e.WriteBytes(prefix+".bankReg", m.bankReg[:])
	e.WriteUint8(prefix+".mirror", m.mirror)
	e.WriteUint8(prefix+".prgRAMCtrl", m.prgRAMCtrl)
	e.WriteUint8(prefix+".irqLatch", m.irqLatch)
	e.WriteUint8(prefix+".irqCounter", m.irqCounter)
	e.WriteBool(prefix+".irqReload", m.irqReload)
	e.WriteBool(prefix+".irqEnabled", m.irqEnabled)
	e.WriteBool(prefix+".irqPending", m.irqPending)
	e.WriteUint16(prefix+".lastA12", m.lastA12)
	e.WriteUint32(prefix+".a12LowFor", uint32(m.a12LowFor))
	if m.chrRAM != nil {
		e.WriteBytes(prefix+".chrRAM", m.chrRAM)
	}
}

func (m *mapper4) Decode(d *core.Decoder, prefix string) error {
	if err := m.baseMapper.Decode(d, prefix); err != nil {
		return err
	}
	var err error
	read := func(f func() error) {
		if err == nil {
			err = f()
		}
	}
	read(func() (e error) { m.bankSelect, e = d.Uint8(prefix + ".bankSelect"); return })
	read(func() error {
		b, e := d.Field(prefix + ".bankReg")
		if e == nil {
			copy(m.bankReg[:], b)
		}
		return e
	})
	read(func() (e error) { m.mirror, e = d.Uint8(prefix + ".mirror"); return })
	read(func() (e error) { m.prgRAMCtrl, e = d.Uint8(prefix + ".prgRAMCtrl"); return })
	read(func() (e error) { m.irqLatch, e = d.Uint8(prefix + ".irqLatch"); return })
	read(func() (e error) { m.irqCounter, e = d.Uint8(prefix + ".irqCounter"); return })
	read(func() (e error) { m.irqReload, e = d.Bool(prefix + ".irqReload"); return })
	read(func() (e error) { m.irqEnabled, e = d.Bool(prefix + ".irqEnabled"); return })
	read(func() (e error) { m.irqPending, e = d.Bool(prefix + ".irqPending"); return })
	read(func() (e error) { m.lastA12, e = d.Uint16(prefix + ".lastA12"); return })
	read(func() error {
		v, e := d.Uint32(prefix + ".a12LowFor")
		m.a12LowFor = int(v)
		return e
	})
	if err != nil {
		return err
	}
	if m.chrRAM != nil {
		b, e := d.Field(prefix + ".chrRAM")
		if e != nil {
			return e
		}
		copy(m.chrRAM, b)
	}
	return nil
}
