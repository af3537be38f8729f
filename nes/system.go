// Package nes wires the 6502 CPU, 2C02 PPU, 2A03 APU and cartridge
// mapper together into a single core.System: the NES memory map, OAM
// DMA, controller shift registers and the per-frame drive loop that
// the standalone packages don't know about each other.
package nes

import (
	"retrocore/core"
	"retrocore/nes/apu"
	"retrocore/nes/cartridge"
	"retrocore/nes/cpu"
	"retrocore/nes/mapper"
	"retrocore/nes/ppu"
)

const ramSize = 0x0800

// Button bit layout for core.ControllerState.Buttons, matching the
// NES pad's own shift-register wire order (A first out, Right last).
const (
	ButtonA = 1 << iota
	ButtonB
	ButtonSelect
	ButtonStart
	ButtonUp
	ButtonDown
	ButtonLeft
	ButtonRight
)

// padLatch models the 4021 shift register each controller port reads
// through: while strobe is held high the register continuously
// reloads from the live button state, and every read after it goes
// low shifts one bit out, padding with 1s once exhausted.
type padLatch struct {
	buttons uint8
	shift   uint8
	strobe  bool
}

func (p *padLatch) write(strobe bool) {
	p.strobe = strobe
	if strobe {
		p.shift = p.buttons
	}
}

func (p *padLatch) read() uint8 {
	if p.strobe {
		return p.buttons & 0x01
	}
	bit := p.shift & 0x01
	p.shift = (p.shift >> 1) | 0x80
	return bit
}

// System implements core.System for NTSC/PAL Nintendo Entertainment
// System cartridges, per the teacher's console.Bus memory map
// generalized to a pluggable Mapper.
type System struct {
	cpu *cpu.CPU
	ppu *ppu.PPU
	apu *apu.APU
	mpr mapper.Mapper
	rom *cartridge.ROM

	pad1, pad2 padLatch

	cycleCount uint64
	frameCount uint64

	videoReady bool
	videoFrame core.Frame

	events []core.Event
}

// New constructs a System with no cartridge loaded; LoadROM must be
// called before RunFrame produces anything meaningful.
func New() *System {
	s := &System{mpr: mapper.Dummy.New()}
	s.apu = apu.New(s)
	s.cpu = cpu.New(s)
	s.ppu = ppu.New(s)
	return s
}

// --- cpu.Bus, ppu.Bus and apu.Bus, all satisfied by System ---

// Read implements the full CPU memory map.
func (s *System) Read(addr uint16) uint8 {
	switch {
	case addr < 0x2000:
		return s.mpr.ReadBaseRAM(addr & 0x07FF)
	case addr < 0x4000:
		return s.ppu.ReadReg(0x2000 + addr&0x0007)
	case addr == 0x4015:
		return s.apu.ReadStatus()
	case addr == 0x4016:
		return s.pad1.read()
	case addr == 0x4017:
		return s.pad2.read()
	case addr < 0x4020:
		return 0 // unimplemented APU/IO registers; open bus
	case addr < 0x6000:
		return 0 // expansion ROM area, unused by any mapper here
	default:
		return s.mpr.PrgRead(addr - 0x6000)
	}
}

// Write implements the full CPU memory map.
func (s *System) Write(addr uint16, val uint8) {
	switch {
	case addr < 0x2000:
		s.mpr.WriteBaseRAM(addr&0x07FF, val)
	case addr < 0x4000:
		s.ppu.WriteReg(0x2000+addr&0x0007, val)
	case addr == 0x4014:
		s.oamDMA(val)
	case addr == 0x4016:
		// Both controller shift registers share the single $4016
		// strobe line; $4017 only ever reads pad2's shifted bit.
		s.pad1.write(val&0x01 != 0)
		s.pad2.write(val&0x01 != 0)
	case addr >= 0x4000 && addr <= 0x4013, addr == 0x4015, addr == 0x4017:
		s.apu.WriteReg(addr, val)
	case addr < 0x6000:
		// unimplemented expansion registers
	default:
		s.mpr.PrgWrite(addr-0x6000, val)
	}
}

// oamDMA copies the 256-byte page starting at val<<8 into OAM and
// stalls the CPU 513 cycles, or 514 on an odd CPU cycle, matching the
// teacher's console.Bus DMA handling.
func (s *System) oamDMA(page uint8) {
	var buf [256]uint8
	base := uint16(page) << 8
	for i := 0; i < 256; i++ {
		buf[i] = s.Read(base + uint16(i))
	}
	s.ppu.WriteOAMDMA(buf)

	stall := 513
	if s.cycleCount%2 == 1 {
		stall = 514
	}
	s.cpu.AddDMACycles(stall)
}

// ChrRead/ChrWrite/TriggerNMI/NotifyPPUAddress satisfy ppu.Bus.
func (s *System) ChrRead(addr uint16) uint8        { return s.mpr.ChrRead(addr) }
func (s *System) ChrWrite(addr uint16, val uint8)  { s.mpr.ChrWrite(addr, val) }
func (s *System) TriggerNMI()                      { s.cpu.TriggerNMI() }
func (s *System) NotifyPPUAddress(addr uint16) {
	s.mpr.NotifyPPUAddress(addr)
}

// AddDMACycles satisfies apu.Bus for DMC sample fetches.
func (s *System) AddDMACycles(n int) { s.cpu.AddDMACycles(n) }

// --- core.System ---

func (s *System) LoadROM(path string, data []byte) error {
	rom, err := cartridge.New(path, data)
	if err != nil {
		return &core.LoadError{Path: path, Reason: err.Error()}
	}

	m, err := mapper.Get(rom)
	if err != nil {
		return core.NewMapperUnsupportedError(path, rom.MapperNum())
	}

	s.rom = rom
	s.mpr = m
	s.ppu.SetMirroringMode(s.mpr.MirroringMode())
	s.Reset(true)
	return nil
}

// Reset reinitializes CPU/PPU/APU state. The real console's reset
// line only runs into the 6502; PPU and APU state survives a warm
// reset exactly as it does on hardware (a game resuming after
// front-panel reset still sees its old VRAM and sound registers). A
// cold reset additionally zeroes console RAM and rebuilds PPU/APU,
// approximating power-on rather than a documented hardware behavior
// (real RAM contents at power-on are undefined, not zero).
func (s *System) Reset(cold bool) {
	if cold {
		for a := uint16(0); a < ramSize; a++ {
			s.mpr.WriteBaseRAM(a, 0)
		}
		s.apu = apu.New(s)
		s.ppu = ppu.New(s)
		s.ppu.SetMirroringMode(s.mpr.MirroringMode())
		s.cpu = cpu.New(s)
		s.pad1 = padLatch{}
		s.pad2 = padLatch{}
		return
	}
	s.cpu.Reset()
}

// RunFrame steps the CPU, PPU (3 dots per CPU cycle) and APU in
// lockstep until the PPU reports a completed frame, mirroring the
// teacher's Run loop's cpu/ppu cadence but driven frame-at-a-time
// instead of under a context.Context.
func (s *System) RunFrame() {
	for {
		cycles := s.cpu.Step()
		for i := 0; i < cycles; i++ {
			s.cycleCount++
			s.ppu.Tick(3)
			s.apu.Tick(1)
		}

		if s.mpr.IRQPending() || s.apu.IRQPending() {
			s.cpu.AssertIRQ()
		} else {
			s.cpu.ClearIRQ()
		}

		if s.ppu.ConsumeFrame() {
			s.captureVideo()
			s.events = append(s.events, core.EventVBlank)
			return
		}
	}
}

func (s *System) captureVideo() {
	w, h := s.ppu.GetResolution()
	px := s.ppu.GetPixels()
	out := make([]uint32, len(px))
	for i, c := range px {
		out[i] = 0xFF000000 | uint32(c[0])<<16 | uint32(c[1])<<8 | uint32(c[2])
	}
	s.frameCount++
	s.videoFrame = core.Frame{Width: w, Height: h, Scale: 1, Pixels: out, FrameNumber: s.frameCount}
	s.videoReady = true
}

func (s *System) GetState() ([]byte, error) {
	e := core.NewEncoder("nes")
	s.cpu.Encode(e, "cpu")
	s.ppu.Encode(e, "ppu")
	s.apu.Encode(e, "apu")
	s.mpr.Encode(e, "mapper")
	e.WriteUint64("cycleCount", s.cycleCount)
	e.WriteUint64("frameCount", s.frameCount)
	e.WriteUint8("pad1.buttons", s.pad1.buttons)
	e.WriteUint8("pad2.buttons", s.pad2.buttons)
	return e.Bytes(), nil
}

func (s *System) SetState(data []byte) error {
	d, err := core.NewDecoder(data)
	if err != nil {
		return err
	}
	if err := s.cpu.Decode(d, "cpu"); err != nil {
		return err
	}
	if err := s.ppu.Decode(d, "ppu"); err != nil {
		return err
	}
	if err := s.apu.Decode(d, "apu"); err != nil {
		return err
	}
	if err := s.mpr.Decode(d, "mapper"); err != nil {
		return err
	}
	if v, err := d.Uint64("cycleCount"); err == nil {
		s.cycleCount = v
	}
	if v, err := d.Uint64("frameCount"); err == nil {
		s.frameCount = v
	}
	if v, err := d.Uint8("pad1.buttons"); err == nil {
		s.pad1.buttons = v
	}
	if v, err := d.Uint8("pad2.buttons"); err == nil {
		s.pad2.buttons = v
	}
	return nil
}

// SetInput latches a controller's button state. Axes are unused: the
// standard NES pad has no analog input.
func (s *System) SetInput(controller int, state core.ControllerState) {
	switch controller {
	case 0:
		s.pad1.buttons = uint8(state.Buttons)
	case 1:
		s.pad2.buttons = uint8(state.Buttons)
	}
}

func (s *System) PollVideo() (core.Frame, bool) {
	if !s.videoReady {
		return core.Frame{}, false
	}
	s.videoReady = false
	return s.videoFrame, true
}

func (s *System) PollAudio() []int16 {
	return s.apu.DrainSamples()
}

func (s *System) PollNotification() (core.Event, bool) {
	if len(s.events) == 0 {
		return core.EventNone, false
	}
	ev := s.events[0]
	s.events = s.events[1:]
	return ev, true
}

// SaveBattery returns the cartridge's battery-backed RAM, or nil if
// it has none, for the host to write to a .srm file alongside the ROM.
func (s *System) SaveBattery() []byte {
	return s.mpr.SaveBattery()
}

// LoadBattery restores battery-backed RAM from a previously saved
// .srm file's contents.
func (s *System) LoadBattery(data []byte) {
	s.mpr.LoadBattery(data)
}
