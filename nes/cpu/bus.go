package cpu

// Bus is everything the CPU core needs from its host system: a flat
// 64KB address space. The system package's concrete bus (RAM mirrors,
// PPU/APU registers, mapper windows) implements this; tests can swap
// in a bare byte slice.
type Bus interface {
	Read(addr uint16) uint8
	Write(addr uint16, val uint8)
}
