package mapper

import "retrocore/core"

// mapper3 is CNROM: PRG is fixed (like NROM), CHR ROM is switched in
// 8KB windows by any write to $8000-$FFFF. Many CNROM boards only
// decode 2 bits of the bank register; we use the full byte masked to
// the cartridge's actual bank count.
type mapper3 struct {
	*baseMapper
	chrBank uint8
}

func init() {
	RegisterMapper(3, &mapper3{baseMapper: newBaseMapper(3, "CNROM")})
}

func (m *mapper3) New() Mapper {
	return &mapper3{baseMapper: newBaseMapper(3, "CNROM")}
}

func (m *mapper3) RefreshMappings() {}

func (m *mapper3) PrgRead(addr uint16) uint8 {
	if addr < 0x2000 {
		return m.readPrgRAM(addr)
	}
	off := addr - 0x2000
	if m.rom.NumPrgBlocks() == 1 {
		off %= 0x4000
	}
	return m.rom.PrgRead(off)
}

func (m *mapper3) PrgWrite(addr uint16, val uint8) {
	if addr < 0x2000 {
		m.writePrgRAM(addr, val)
		return
	}
	m.chrBank = val
}

func (m *mapper3) ChrRead(addr uint16) uint8 {
	banks := m.chrBanks()
	b := int(m.chrBank) % banks
	return m.rom.ChrRead(uint16(b*8192) + addr)
}

func (m *mapper3) ChrWrite(addr uint16, val uint8) {
	if m.rom.HasChrRAM() {
		b := int(m.chrBank) % m.chrBanks()
		m.rom.ChrWrite(uint16(b*8192)+addr, val)
	}
}

func (m *mapper3) chrBanks() int {
	n := int(m.rom.NumChrBlocks())
	if n < 1 {
		n = 1
	}
	return n
}

func (m *mapper3) Encode(e *core.Encoder, prefix string) {
	m.baseMapper.Encode(e, prefix)
	e.WriteUint8(prefix+".chrBank", m.chrBank)
}

func (m *mapper3) Decode(d *core.Decoder, prefix string) error {
	if err := m.baseMapper.Decode(d, prefix); err != nil {
		return err
	}
	b, err := d.Uint8(prefix + ".chrBank")
	if err != nil {
		return err
	}
	m.chrBank = b
	return nil
}
