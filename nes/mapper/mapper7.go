package mapper

import "retrocore/core"

// mapper7 is AxROM: a single register selects one 32KB PRG bank and
// one of two single-screen nametables via bit 4. CHR is always RAM.
type mapper7 struct {
	*baseMapper
	bank   uint8
	chrRAM [8192]byte
}

func init() {
	RegisterMapper(7, &mapper7{baseMapper: newBaseMapper(7, "AxROM")})
}

func (m *mapper7) New() Mapper {
	return &mapper7{baseMapper: newBaseMapper(7, "AxROM")}
}

func (m *mapper7) RefreshMappings() {}

func (m *mapper7) PrgRead(addr uint16) uint8 {
	if addr < 0x2000 {
		return m.readPrgRAM(addr)
	}
	banks := int(m.rom.NumPrgBlocks()) / 2
	if banks < 1 {
		banks = 1
	}
	b := int(m.bank&0x07) % banks
	return m.rom.PrgRead(uint16(b*32768) + (addr - 0x2000))
}

func (m *mapper7) PrgWrite(addr uint16, val uint8) {
	if addr < 0x2000 {
		m.writePrgRAM(addr, val)
		return
	}
	m.bank = val
}

// MirroringMode always reports horizontal (0). Bit 4 of the bank
// register, which selects the one-screen nametable page, is kept in
// bank but not consulted, so one-screen page switching is not
// reproduced.
func (m *mapper7) MirroringMode() uint8 {
	return 0
}

func (m *mapper7) ChrRead(addr uint16) uint8 {
	return m.chrRAM[addr%8192]
}

func (m *mapper7) ChrWrite(addr uint16, val uint8) {
	m.chrRAM[addr%8192] = val
}

func (m *mapper7) Encode(e *core.Encoder, prefix string) {
	m.baseMapper.Encode(e, prefix)
	e.WriteUint8(prefix+".bank", m.bank)
	e.WriteBytes(prefix+".chrRAM", m.chrRAM[:])
}

func (m *mapper7) Decode(d *core.Decoder, prefix string) error {
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
	copy(m.chrRAM[:], raw)
	return nil
}
