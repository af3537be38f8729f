// Package mapper implements and registers the cartridge mappers
// referenced numerically by iNES and NES2.0 ROM files.
package mapper

import (
	"fmt"

	"retrocore/core"
	"retrocore/nes/cartridge"
)

// A global registry of mapper prototypes, keyed by mapper id. init()
// in each mapperN.go file registers its prototype; Get clones it for
// a freshly loaded ROM.
var allMappers = map[uint16]Mapper{}

func RegisterMapper(id uint16, m Mapper) {
	if om, ok := allMappers[id]; ok {
		panic(fmt.Sprintf("can't re-register mapper id %d, it's used by %q", id, om.Name()))
	}
	allMappers[id] = m
}

// Get returns a freshly initialized mapper instance for rom, or an
// error if no mapper is registered for its header's mapper number.
func Get(rom *cartridge.ROM) (Mapper, error) {
	id := rom.MapperNum()
	proto, ok := allMappers[id]
	if !ok {
		return nil, fmt.Errorf("unknown mapper id %d", id)
	}

	m := proto.New()
	m.Init(rom)
	return m, nil
}

const (
	NES_BASE_MEMORY = 2048 // 2KB built in RAM
)

// Mapper is the contract the NES system package drives a cartridge
// through. Beyond plain PRG/CHR access, it carries a RefreshMappings
// hook (empty in every mapper here, since each computes its bank
// offsets on every access), and mappers with a scanline counter (MMC3)
// use NotifyPPUAddress to detect the PPU A12 rise that clocks it.
type Mapper interface {
	ID() uint16
	New() Mapper // returns a fresh zero-value instance of the same mapper kind
	Init(*cartridge.ROM)
	Name() string
	ReadBaseRAM(uint16) uint8   // Read from 2k Base memory
	WriteBaseRAM(uint16, uint8) // Write to 2k Base memory
	// PrgRead/PrgWrite address the whole $6000-$FFFF cartridge window
	// as one 0-based space: 0x0000-0x1FFF is PRG RAM ($6000-$7FFF),
	// 0x2000-0x9FFF is PRG ROM ($8000-$FFFF). Writes into the ROM
	// half are mapper register writes, not storage.
	PrgRead(uint16) uint8
	PrgWrite(uint16, uint8)
	ChrRead(uint16) uint8       // Read CHR data
	ChrWrite(uint16, uint8)     // Write CHR data
	MirroringMode() uint8       // Which mirroring mode is tilemap data stored in
	HasSaveRAM() bool           // Whether or not the cartridge exposes Save RAM at 0x6000-0x7FFF
	RefreshMappings()           // no-op in every mapper here; bank offsets are computed on each access

	// NotifyPPUAddress is called with the PPU's VRAM address after the
	// second $2006 write and after each $2007 access, letting
	// A12-edge-triggered mappers (MMC3) drive their scanline IRQ
	// counter. Rendering fetches do not call it.
	NotifyPPUAddress(addr uint16)
	IRQPending() bool
	ClearIRQ()

	SaveBattery() []byte
	LoadBattery([]byte)

	// Encode/Decode serialize the mapper's banking registers and RAM
	// contents into a host save-state stream under keys prefixed with
	// prefix.
	Encode(e *core.Encoder, prefix string)
	Decode(d *core.Decoder, prefix string) error
}

type baseMapper struct {
	id   uint16
	rom  *cartridge.ROM
	name string
	// The base amount of NES RAM (2k) will be accessed here.
	baseRAM []uint8
	// Battery-backed PRG RAM window at $6000-$7FFF, sized from the
	// cartridge header (defaults to 8KB when the header is silent but
	// the mapper needs work RAM regardless of battery backing).
	prgRAM []uint8
}

func newBaseMapper(id uint16, name string) *baseMapper {
	return &baseMapper{
		id:      id,
		name:    name,
		baseRAM: make([]uint8, NES_BASE_MEMORY),
	}
}

func (bm *baseMapper) ReadBaseRAM(addr uint16) uint8 {
	return bm.baseRAM[addr]
}

func (bm *baseMapper) WriteBaseRAM(addr uint16, val uint8) {
	bm.baseRAM[addr] = val
}

func (bm *baseMapper) ID() uint16 {
	return bm.id
}

func (bm *baseMapper) String() string {
	return bm.name
}

func (bm *baseMapper) Name() string {
	return bm.name
}

func (bm *baseMapper) Init(r *cartridge.ROM) {
	bm.rom = r
	sz := r.PrgRAMSize()
	if sz == 0 {
		sz = 8192
	}
	bm.prgRAM = make([]uint8, sz)
}

func (bm *baseMapper) MirroringMode() uint8 {
	return bm.rom.MirroringMode()
}

func (bm *baseMapper) HasSaveRAM() bool {
	return bm.rom.HasSaveRAM()
}

func (bm *baseMapper) readPrgRAM(addr uint16) uint8 {
	if len(bm.prgRAM) == 0 {
		return 0
	}
	return bm.prgRAM[int(addr)%len(bm.prgRAM)]
}

func (bm *baseMapper) writePrgRAM(addr uint16, val uint8) {
	if len(bm.prgRAM) == 0 {
		return
	}
	bm.prgRAM[int(addr)%len(bm.prgRAM)] = val
}

func (bm *baseMapper) SaveBattery() []byte {
	if !bm.HasSaveRAM() {
		return nil
	}
	out := make([]byte, len(bm.prgRAM))
	copy(out, bm.prgRAM)
	return out
}

func (bm *baseMapper) LoadBattery(data []byte) {
	copy(bm.prgRAM, data)
}

// NotifyPPUAddress is a no-op for mappers that don't watch the PPU
// address bus; MMC3 overrides it.
func (bm *baseMapper) NotifyPPUAddress(addr uint16) {}

func (bm *baseMapper) IRQPending() bool { return false }
func (bm *baseMapper) ClearIRQ()        {}

// Encode writes the console RAM and PRG RAM every mapper carries.
// Mappers with their own banking registers override this to also
// write their extra state, calling down to baseMapper.Encode first.
func (bm *baseMapper) Encode(e *core.Encoder, prefix string) {
	e.WriteBytes(prefix+".baseRAM", bm.baseRAM)
	e.WriteBytes(prefix+".prgRAM", bm.prgRAM)
}

func (bm *baseMapper) Decode(d *core.Decoder, prefix string) error {
	b, err := d.Field(prefix + ".baseRAM")
	if err != nil {
		return err
	}
	copy(bm.baseRAM, b)
	p, err := d.Field(prefix + ".prgRAM")
	if err != nil {
		return err
	}
	copy(bm.prgRAM, p)
	return nil
}
