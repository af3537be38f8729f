package core

// DmaIncrement is the per-transfer source/destination address
// adjustment mode shared by every hardware DMA engine in §4.5.
type DmaIncrement uint8

const (
	DmaIncrementFixed DmaIncrement = iota
	DmaIncrementUp
	DmaIncrementDown
	DmaIncrementReload // increment, but reload to the base address each repeat (GBA sound FIFO)
)

// DmaTrigger is when a channel fires.
type DmaTrigger uint8

const (
	DmaTriggerImmediate DmaTrigger = iota
	DmaTriggerHBlank
	DmaTriggerVBlank
	DmaTriggerFIFO
	DmaTriggerSpecial // system-specific: start-of-line HDMA reload, cart DMA, etc.
)

// DmaChannel holds the field set common to every system's DMA
// controller (spec §3 "DmaChannel"); a system's own DMA type embeds
// this and adds the registers/behavior its hardware needs on top
// (HDMA line tables, FIFO depth, word/byte granularity quirks).
type DmaChannel struct {
	Source, Dest       uint32
	Length             uint32 // 0 means "maximum" on systems where that's the documented behavior (spec §8: SNES DMA length 0 == 65536 bytes)
	SrcIncrement       DmaIncrement
	DstIncrement       DmaIncrement
	Trigger            DmaTrigger
	Active             bool
	Pending            bool
	Repeat             bool
	CPUToDevice        bool // false = device-to-CPU
	BytesPerTransfer    int // 1 or 2; widened per system where relevant
}

// EffectiveLength returns Length, with the system-specific
// zero-means-maximum convention applied. wrap is the value a zero
// length maps to (65536 on the SNES A-bus DMA controller).
func (c *DmaChannel) EffectiveLength(wrap uint32) uint32 {
	if c.Length == 0 {
		return wrap
	}
	return c.Length
}

// StepAddress applies mode to addr, honoring the byte width of one
// transfer unit.
func StepAddress(addr uint32, mode DmaIncrement, base uint32, unit uint32) uint32 {
	switch mode {
	case DmaIncrementUp:
		return addr + unit
	case DmaIncrementDown:
		return addr - unit
	case DmaIncrementReload:
		return base
	default: // DmaIncrementFixed
		return addr
	}
}
