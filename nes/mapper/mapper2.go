package mapper

import (
	"retrocore/core"
	"retrocore/nes/cartridge"
)

// mapper2 is UxROM: a single 8-bit register switches the $8000-$BFFF
// 16KB window; $C000-$FFFF is hardwired to the last PRG bank. CHR is
// always 8KB of RAM, with no banking.
type mapper2 struct {
	*baseMapper
	bank   uint8
	chrRAM []byte
}

func init() {
	RegisterMapper(2, &mapper2{baseMapper: newBaseMapper(2, "UxROM")})
}

func (m *mapper2) New() Mapper {
	return &mapper2{baseMapper: newBaseMapper(2, "UxROM")}
}

func (m *mapper2) Init(rom *cartridge.ROM) {
	m.baseMapper.Init(rom)
	m.chrRAM = make([]byte, 8192)
}

func (m *mapper2) RefreshMappings() {}

func (m *mapper2) PrgRead(addr uint16) uint8 {
	if addr < 0x2000 {
		return m.readPrgRAM(addr)
	}
	off := addr - 0x2000
	const bank16k = 16384
	banks := int(m.rom.NumPrgBlocks())
	if off < bank16k {
		return m.rom.PrgRead(uint16(int(m.bank)%banks*bank16k) + off)
	}
	return m.rom.PrgRead(uint16((banks-1)*bank16k) + (off - bank16k))
}

func (m *mapper2) PrgWrite(addr uint16, val uint8) {
	if addr < 0x2000 {
		m.writePrgRAM(addr, val)
		return
	}
	m.bank = val & 0x0F
}

func (m *mapper2) ChrRead(addr uint16) uint8 {
	return m.chrRAM[addr%uint16(len(m.chrRAM))]
}

func (m *mapper2) ChrWrite(addr uint16, val uint8) {
	m.chrRAM[addr%uint16(len(m.chrRAM))] = val
}

func (m *mapper2) Encode(e *core.Encoder, prefix string) {
	m.baseMapper.Encode(e, prefix)
	e.WriteUint8(prefix+".bank", m.bank)
	e.WriteBytes(prefix+".chrRAM", m.chrRAM)
}

func (m *mapper2) Decode(d *core.Decoder, prefix string) error {
	if err := m.baseMapper.Decode(d, prefix); err != nil {
		return err
	}
	b, err := d.Uint8(prefix + ".bank")
	if err != nil {
		return err
	}
	m.bank = b
	raw, err := d.Field(prefix + ".chrRAM")
	if err != nil {
		return err
	}
	copy(m.chrRAM, raw)
	return nil
}
