package mapper

import (
	"math"

	"retrocore/core"
	"retrocore/nes/cartridge"
)

// dummyMapper is a flat, unbanked address space with no real mapper
// semantics; nes.New installs one as the system's mapper until LoadROM
// replaces it.
type dummyMapper struct {
	memory []uint8
	MM     uint8 // mirroring mode - tests can set as needed
}

func (dm *dummyMapper) ID() uint16 {
	return 0
}

func (dm *dummyMapper) New() Mapper {
	return &dummyMapper{memory: make([]uint8, math.MaxUint16+1)}
}

func (dm *dummyMapper) Init(r *cartridge.ROM) {}

func (dm *dummyMapper) Name() string {
	return "dummy mapper"
}

func (dm *dummyMapper) ReadBaseRAM(addr uint16) uint8 {
	return dm.memory[addr]
}

func (dm *dummyMapper) WriteBaseRAM(addr uint16, val uint8) {
	dm.memory[addr] = val
}

func (dm *dummyMapper) PrgRead(addr uint16) uint8 {
	return dm.memory[addr]
}

func (dm *dummyMapper) PrgWrite(addr uint16, val uint8) {
	dm.memory[addr] = val
}

func (dm *dummyMapper) ChrRead(addr uint16) uint8 {
	return dm.memory[addr]
}

func (dm *dummyMapper) ChrWrite(addr uint16, val uint8) {
	dm.memory[addr] = val
}

func (dm *dummyMapper) MirroringMode() uint8 {
	return dm.MM
}

func (dm *dummyMapper) HasSaveRAM() bool {
	return true
}

func (dm *dummyMapper) RefreshMappings() {}

func (dm *dummyMapper) NotifyPPUAddress(addr uint16) {}

func (dm *dummyMapper) IRQPending() bool { return false }
func (dm *dummyMapper) ClearIRQ()        {}

func (dm *dummyMapper) SaveBattery() []byte     { return nil }
func (dm *dummyMapper) LoadBattery(data []byte) {}

func (dm *dummyMapper) Encode(e *core.Encoder, prefix string) {
	e.WriteBytes(prefix+".memory", dm.memory)
}

func (dm *dummyMapper) Decode(d *core.Decoder, prefix string) error {
	b, err := d.Field(prefix + ".memory")
	if err != nil {
		return err
	}
	copy(dm.memory, b)
	return nil
}

// Dummy is a package-level flat-memory mapper outside the Get
// registry; nes.New calls Dummy.New() for its placeholder mapper.
var Dummy *dummyMapper = &dummyMapper{memory: make([]uint8, math.MaxUint16+1)}
