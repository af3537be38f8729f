package mapper

import (
	"retrocore/core"
	"retrocore/nes/cartridge"
)

// mapper1 is MMC1 (SxROM): a 5-bit serial shift register feeding four
// internal registers (control, chr bank 0, chr bank 1, prg bank). A
// write with bit 7 set resets the shift register and forces PRG mode
// 3 (fix last bank, switch first) regardless of the current control
// value.
type mapper1 struct {
	*baseMapper

	shift    uint8
	shiftPos int

	control uint8 // bit0-1: mirroring, bit2-3: prg mode, bit4: chr mode
	chr0    uint8
	chr1    uint8
	prg     uint8

	chrRAM []byte // used when the cartridge declares CHR RAM instead of CHR ROM
}

func init() {
	RegisterMapper(1, &mapper1{baseMapper: newBaseMapper(1, "MMC1")})
}

func (m *mapper1) New() Mapper {
	return &mapper1{baseMapper: newBaseMapper(1, "MMC1"), control: 0x0C, shift: 0x10}
}

func (m *mapper1) Init(rom *cartridge.ROM) {
	m.baseMapper.Init(rom)
	if rom.HasChrRAM() {
		m.chrRAM = make([]byte, rom.ChrRAMSize())
	}
	m.shift = 0x10
	m.control = 0x0C
}

func (m *mapper1) prgBankCount() int {
	n := int(m.rom.NumPrgBlocks())
	if n == 0 {
		n = 1
	}
	return n
}

// MirroringMode derives mirroring from the control register rather
// than the cartridge header: MMC1 boards wire mirroring through the
// mapper. Mode 2 reports vertical (1); modes 0 and 1 (one-screen) and
// mode 3 all report horizontal (0).
func (m *mapper1) MirroringMode() uint8 {
	switch m.control & 0x03 {
	case 2:
		return 1 // vertical
	default:
		return 0 // horizontal / one-screen approximation
	}
}

func (m *mapper1) RefreshMappings() {}

// prgOffset returns the byte offset into PRG ROM for a CPU address
// already translated to the $8000-based PRG window (0-based, so
// $8000 -> 0, $FFFF -> 0x7FFF).
func (m *mapper1) prgOffset(addr uint16) int {
	const bank16k = 16384
	banks := m.prgBankCount()
	bankSel := int(m.prg & 0x0F)

	mode := (m.control >> 2) & 0x03
	switch mode {
	case 0, 1:
		// 32KB mode: ignore low bit of bank select.
		b := (bankSel &^ 1) % banks
		return b*bank16k + int(addr)
	case 2:
		// fix first bank at $8000, switch $C000
		if addr < bank16k {
			return 0*bank16k + int(addr)
		}
		b := bankSel % banks
		return b*bank16k + int(addr-bank16k)
	default: // 3
		// switch $8000, fix last bank at $C000
		if addr < bank16k {
			b := bankSel % banks
			return b*bank16k + int(addr)
		}
		return (banks-1)*bank16k + int(addr-bank16k)
	}
}

func (m *mapper1) PrgRead(addr uint16) uint8 {
	if addr < 0x2000 {
		return m.readPrgRAM(addr)
	}
	return m.rom.PrgRead(uint16(m.prgOffset(addr - 0x2000)))
}

func (m *mapper1) PrgWrite(addr uint16, val uint8) {
	if addr < 0x2000 {
		m.writePrgRAM(addr, val)
		return
	}

	if val&0x80 != 0 {
		m.shift = 0x10
		m.control |= 0x0C
		return
	}

	complete := m.shift&0x01 != 0
	m.shift = (m.shift >> 1) | ((val & 0x01) << 4)
	if !complete {
		return
	}

	result := m.shift
	m.shift = 0x10

	reg := (addr - 0x2000 + 0x8000) // recover the original CPU address range for register selection
	switch {
	case reg < 0xA000:
		m.control = result
	case reg < 0xC000:
		m.chr0 = result
	case reg < 0xE000:
		m.chr1 = result
	default:
		m.prg = result
	}
}

func (m *mapper1) chrOffset(addr uint16) int {
	const bank4k = 4096
	if m.control&0x10 == 0 {
		// 8KB CHR mode: chr0 with its low bit ignored selects the 8KB bank.
		b := int(m.chr0 >> 1)
		return b*8192 + int(addr)
	}
	if addr < bank4k {
		return int(m.chr0)*bank4k + int(addr)
	}
	return int(m.chr1)*bank4k + int(addr-bank4k)
}

func (m *mapper1) ChrRead(addr uint16) uint8 {
	off := m.chrOffset(addr)
	if m.chrRAM != nil {
		return m.chrRAM[off%len(m.chrRAM)]
	}
	return m.rom.ChrRead(uint16(off))
}

func (m *mapper1) ChrWrite(addr uint16, val uint8) {
	if m.chrRAM == nil {
		return
	}
	off := m.chrOffset(addr)
	m.chrRAM[off%len(m.chrRAM)] = val
}

func (m *mapper1) Encode(e *core.Encoder, prefix string) {
	m.baseMapper.Encode(e, prefix)
	e.WriteUint8(prefix+".shift", m.shift)
	e.WriteUint8(prefix+".control", m.control)
	e.WriteUint8(prefix+".chr0", m.chr0)
	e.WriteUint8(prefix+".chr1", m.chr1)
	e.WriteUint8(prefix+".prg", m.prg)
	if m.chrRAM != nil {
		e.WriteBytes(prefix+".chrRAM", m.chrRAM)
	}
}

func (m *mapper1) Decode(d *core.Decoder, prefix string) error {
	if err := m.baseMapper.Decode(d, prefix); err != nil {
		return err
	}
	var err error
	read := func(f func() error) {
		if err == nil {
			err = f()
		}
	}
	read(func() (e error) { m.shift, e = d.Uint8(prefix + ".shift"); return })
	read(func() (e error) { m.control, e = d.Uint8(prefix + ".control"); return })
	read(func() (e error) { m.chr0, e = d.Uint8(prefix + ".chr0"); return })
	read(func() (e error) { m.chr1, e = d.Uint8(prefix + ".chr1"); return })
	read(func() (e error) { m.prg, e = d.Uint8(prefix + ".prg"); return })
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
