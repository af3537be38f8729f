// Package apu implements the 2A03's 5-channel audio unit: two pulse
// generators, a triangle, a noise generator and the delta-modulation
// sample channel, all driven off the shared frame sequencer.
package apu

import "retrocore/core"

// NTSC timing constants.
const (
	cpuClockHz      = 1789773.0
	sampleRate      = 44100
	cyclesPerSample = cpuClockHz / sampleRate
)

var lengthTable = [32]uint8{
	10, 254, 20, 2, 40, 4, 80, 6, 160, 8, 60, 10, 14, 12, 26, 14,
	12, 16, 24, 18, 48, 20, 96, 22, 192, 24, 72, 26, 16, 28, 32, 30,
}

var dutyTable = [4][8]uint8{
	{0, 1, 0, 0, 0, 0, 0, 0},
	{0, 1, 1, 0, 0, 0, 0, 0},
	{0, 1, 1, 1, 1, 0, 0, 0},
	{1, 0, 0, 1, 1, 1, 1, 1},
}

var triangleTable = [32]uint8{
	15, 14, 13, 12, 11, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1, 0,
	0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15,
}

var noisePeriodTable = [16]uint16{
	4, 8, 16, 32, 64, 96, 128, 160, 202, 254, 380, 508, 762, 1016, 2034, 4068,
}

var dmcRateTable = [16]uint16{
	428, 380, 340, 320, 286, 254, 226, 214, 190, 160, 142, 128, 106, 84, 72, 54,
}

// Bus is what the DMC channel needs from the host CPU memory map to
// fetch delta-coded sample bytes (starting in $C000-$FFFF, wrapping to
// $8000 past $FFFF) and to
// charge stall cycles onto the CPU for each DMA fetch.
type Bus interface {
	Read(addr uint16) uint8
	AddDMACycles(n int)
}

type envelope struct {
	start       bool
	decay       uint8
	divider     uint8
	loop        bool
	constant    bool
	volume      uint8
}

func (e *envelope) clock() {
	if e.start {
		e.start = false
		e.decay = 15
		e.divider = e.volume
		return
	}
	if e.divider > 0 {
		e.divider--
		return
	}
	e.divider = e.volume
	if e.decay > 0 {
		e.decay--
	} else if e.loop {
		e.decay = 15
	}
}

func (e *envelope) output() uint8 {
	if e.constant {
		return e.volume
	}
	return e.decay
}

type lengthCounter struct {
	value uint8
	halt  bool
}

func (l *lengthCounter) clock() {
	if l.value > 0 && !l.halt {
		l.value--
	}
}

func (l *lengthCounter) active() bool { return l.value > 0 }

type pulse struct {
	enabled bool
	channel2 bool // true selects pulse 2's two's-complement sweep negate (pulse 1 subtracts one more)

	duty       uint8
	dutyPos    uint8
	timerPeriod uint16
	timer      uint16

	length lengthCounter
	env    envelope

	sweepEnabled bool
	sweepPeriod  uint8
	sweepNegate  bool
	sweepShift   uint8
	sweepDivider uint8
	sweepReload  bool
}

func (p *pulse) writeReg(n int, val uint8) {
	switch n {
	case 0:
		p.duty = (val >> 6) & 0x03
		p.length.halt = val&0x20 != 0
		p.env.loop = p.length.halt
		p.env.constant = val&0x10 != 0
		p.env.volume = val & 0x0F
	case 1:
		p.sweepEnabled = val&0x80 != 0
		p.sweepPeriod = (val >> 4) & 0x07
		p.sweepNegate = val&0x08 != 0
		p.sweepShift = val & 0x07
		p.sweepReload = true
	case 2:
		p.timerPeriod = (p.timerPeriod & 0xFF00) | uint16(val)
	case 3:
		p.timerPeriod = (p.timerPeriod & 0x00FF) | (uint16(val&0x07) << 8)
		if p.enabled {
			p.length.value = lengthTable[val>>3]
		}
		p.dutyPos = 0
		p.env.start = true
	}
}

func (p *pulse) setEnabled(v bool) {
	p.enabled = v
	if !v {
		p.length.value = 0
	}
}

func (p *pulse) targetPeriod() uint16 {
	change := p.timerPeriod >> p.sweepShift
	if p.sweepNegate {
		if p.channel2 {
			return p.timerPeriod - change
		}
		return p.timerPeriod - change - 1
	}
	return p.timerPeriod + change
}

func (p *pulse) sweepMuted() bool {
	return p.timerPeriod < 8 || p.targetPeriod() > 0x7FF
}

func (p *pulse) clockSweep() {
	if p.sweepDivider == 0 && p.sweepEnabled && !p.sweepMuted() && p.sweepShift > 0 {
		p.timerPeriod = p.targetPeriod()
	}
	if p.sweepDivider == 0 || p.sweepReload {
		p.sweepDivider = p.sweepPeriod
		p.sweepReload = false
	} else {
		p.sweepDivider--
	}
}

func (p *pulse) clockTimer() {
	if p.timer == 0 {
		p.timer = p.timerPeriod
		p.dutyPos = (p.dutyPos + 1) % 8
	} else {
		p.timer--
	}
}

func (p *pulse) output() uint8 {
	if !p.enabled || !p.length.active() || p.sweepMuted() || p.timerPeriod < 8 {
		return 0
	}
	if dutyTable[p.duty][p.dutyPos] == 0 {
		return 0
	}
	return p.env.output()
}

type triangle struct {
	enabled bool
	timerPeriod uint16
	timer       uint16
	pos         uint8

	length lengthCounter

	linearPeriod uint8
	linear       uint8
	linearReload bool
	control      bool
}

func (t *triangle) writeReg(n int, val uint8) {
	switch n {
	case 0:
		t.control = val&0x80 != 0
		t.length.halt = t.control
		t.linearPeriod = val & 0x7F
	case 1:
	case 2:
		t.timerPeriod = (t.timerPeriod & 0xFF00) | uint16(val)
	case 3:
		t.timerPeriod = (t.timerPeriod & 0x00FF) | (uint16(val&0x07) << 8)
		if t.enabled {
			t.length.value = lengthTable[val>>3]
		}
		t.linearReload = true
	}
}

func (t *triangle) setEnabled(v bool) {
	t.enabled = v
	if !v {
		t.length.value = 0
	}
}

func (t *triangle) clockLinear() {
	if t.linearReload {
		t.linear = t.linearPeriod
	} else if t.linear > 0 {
		t.linear--
	}
	if !t.control {
		t.linearReload = false
	}
}

func (t *triangle) clockTimer() {
	if t.timer == 0 {
		t.timer = t.timerPeriod
		if t.length.active() && t.linear > 0 {
			t.pos = (t.pos + 1) % 32
		}
	} else {
		t.timer--
	}
}

func (t *triangle) output() uint8 {
	if !t.enabled || t.timerPeriod < 2 {
		return 0
	}
	return triangleTable[t.pos]
}

type noise struct {
	enabled bool
	mode    bool
	shift   uint16
	timerPeriod uint16
	timer       uint16

	length lengthCounter
	env    envelope
}

func newNoise() *noise {
	return &noise{shift: 1}
}

func (n *noise) writeReg(addr uint16, val uint8) {
	switch addr {
	case 0x400C:
		n.length.halt = val&0x20 != 0
		n.env.loop = n.length.halt
		n.env.constant = val&0x10 != 0
		n.env.volume = val & 0x0F
	case 0x400E:
		n.mode = val&0x80 != 0
		n.timerPeriod = noisePeriodTable[val&0x0F]
	case 0x400F:
		if n.enabled {
			n.length.value = lengthTable[val>>3]
		}
		n.env.start = true
	}
}

func (n *noise) setEnabled(v bool) {
	n.enabled = v
	if !v {
		n.length.value = 0
	}
}

func (n *noise) clockTimer() {
	if n.timer == 0 {
		n.timer = n.timerPeriod
		bit := uint16(1)
		if n.mode {
			bit = 6
		}
		feedback := (n.shift ^ (n.shift >> bit)) & 1
		n.shift >>= 1
		n.shift |= feedback << 14
	} else {
		n.timer--
	}
}

func (n *noise) output() uint8 {
	if !n.enabled || !n.length.active() || n.shift&1 != 0 {
		return 0
	}
	return n.env.output()
}

// dmc is the delta-modulation channel: it streams 1-bit deltas read
// directly from CPU memory (starting in $C000-$FFFF, wrapping to $8000
// past $FFFF), stalling the CPU
// for each fetch the way real OAM/DMC DMA contends the bus.
type dmc struct {
	bus Bus

	enabled bool
	loop    bool
	irqEnabled bool
	irqPending bool

	rate      uint16
	timer     uint16
	output    uint8

	sampleAddr   uint16
	sampleLength uint16
	curAddr      uint16
	bytesLeft    uint16

	shiftReg  uint8
	bitsLeft  uint8
	silence   bool
}

func (d *dmc) writeReg(addr uint16, val uint8) {
	switch addr {
	case 0x4010:
		d.irqEnabled = val&0x80 != 0
		d.loop = val&0x40 != 0
		d.rate = dmcRateTable[val&0x0F]
		if !d.irqEnabled {
			d.irqPending = false
		}
	case 0x4011:
		d.output = val & 0x7F
	case 0x4012:
		d.sampleAddr = 0xC000 + uint16(val)*64
	case 0x4013:
		d.sampleLength = uint16(val)*16 + 1
	}
}

func (d *dmc) setEnabled(v bool) {
	d.enabled = v
	if !v {
		d.bytesLeft = 0
	} else if d.bytesLeft == 0 {
		d.curAddr = d.sampleAddr
		d.bytesLeft = d.sampleLength
	}
}

func (d *dmc) active() bool { return d.bytesLeft > 0 }

func (d *dmc) clockTimer() {
	if d.timer > 0 {
		d.timer--
		return
	}
	d.timer = d.rate

	if !d.silence {
		if d.shiftReg&1 != 0 {
			if d.output <= 125 {
				d.output += 2
			}
		} else {
			if d.output >= 2 {
				d.output -= 2
			}
		}
	}
	d.shiftReg >>= 1

	if d.bitsLeft > 0 {
		d.bitsLeft--
	}
	if d.bitsLeft == 0 {
		d.bitsLeft = 8
		if d.bytesLeft > 0 {
			d.silence = false
			d.shiftReg = d.bus.Read(d.curAddr)
			d.bus.AddDMACycles(4)
			d.curAddr++
			if d.curAddr == 0 {
				d.curAddr = 0x8000
			}
			d.bytesLeft--
			if d.bytesLeft == 0 {
				if d.loop {
					d.curAddr = d.sampleAddr
					d.bytesLeft = d.sampleLength
				} else if d.irqEnabled {
					d.irqPending = true
				}
			}
		} else {
			d.silence = true
		}
	}
}

// APU is the 2A03's audio unit. Tick is expected to be called once
// per CPU cycle (the CPU's Step return value, fanned out one cycle at
// a time) so the frame sequencer and DMC DMA timing line up with the
// real hardware's clock relationships.
type APU struct {
	pulse1, pulse2 pulse
	triangle       triangle
	noise          *noise
	dmc            *dmc

	frameMode5 bool
	frameInhibitIRQ bool
	frameIRQ   bool
	frameStep  int
	frameCycles float64

	sampleCycles float64
	samples      []int16

	cycle uint64
}

func New(bus Bus) *APU {
	a := &APU{
		noise: newNoise(),
		dmc:   &dmc{bus: bus},
	}
	a.pulse2.channel2 = true
	return a
}

// WriteReg handles a CPU write to $4000-$4013, $4015 or $4017.
func (a *APU) WriteReg(addr uint16, val uint8) {
	switch {
	case addr >= 0x4000 && addr <= 0x4003:
		a.pulse1.writeReg(int(addr-0x4000), val)
	case addr >= 0x4004 && addr <= 0x4007:
		a.pulse2.writeReg(int(addr-0x4004), val)
	case addr >= 0x4008 && addr <= 0x400B:
		a.triangle.writeReg(int(addr-0x4008), val)
	case addr >= 0x400C && addr <= 0x400F:
		a.noise.writeReg(addr, val)
	case addr >= 0x4010 && addr <= 0x4013:
		a.dmc.writeReg(addr, val)
	case addr == 0x4015:
		a.pulse1.setEnabled(val&0x01 != 0)
		a.pulse2.setEnabled(val&0x02 != 0)
		a.triangle.setEnabled(val&0x04 != 0)
		a.noise.setEnabled(val&0x08 != 0)
		a.dmc.setEnabled(val&0x10 != 0)
		a.dmc.irqPending = false
	case addr == 0x4017:
		a.frameMode5 = val&0x80 != 0
		a.frameInhibitIRQ = val&0x40 != 0
		if a.frameInhibitIRQ {
			a.frameIRQ = false
		}
		a.frameStep = 0
		a.frameCycles = 0
		if a.frameMode5 {
			a.clockQuarterFrame()
			a.clockHalfFrame()
		}
	}
}

// ReadStatus implements $4015 reads: channel active bits plus the
// frame and DMC IRQ flags, clearing the frame IRQ flag as a side
// effect (matches real hardware).
func (a *APU) ReadStatus() uint8 {
	var v uint8
	if a.pulse1.length.active() {
		v |= 0x01
	}
	if a.pulse2.length.active() {
		v |= 0x02
	}
	if a.triangle.length.active() {
		v |= 0x04
	}
	if a.noise.length.active() {
		v |= 0x08
	}
	if a.dmc.active() {
		v |= 0x10
	}
	if a.frameIRQ {
		v |= 0x40
	}
	if a.dmc.irqPending {
		v |= 0x80
	}
	a.frameIRQ = false
	return v
}

// IRQPending reports whether the frame sequencer or DMC channel has
// an unacknowledged IRQ request pending for the CPU's IRQ line.
func (a *APU) IRQPending() bool {
	return a.frameIRQ || a.dmc.irqPending
}

func (a *APU) clockQuarterFrame() {
	a.pulse1.env.clock()
	a.pulse2.env.clock()
	a.triangle.clockLinear()
	a.noise.env.clock()
}

func (a *APU) clockHalfFrame() {
	a.pulse1.length.clock()
	a.pulse1.clockSweep()
	a.pulse2.length.clock()
	a.pulse2.clockSweep()
	a.triangle.length.clock()
	a.noise.length.clock()
}

func (a *APU) clockFrameSequencer() {
	step := a.frameStep
	if a.frameMode5 {
		switch step {
		case 0, 2:
			a.clockQuarterFrame()
		case 1, 4:
			a.clockQuarterFrame()
			a.clockHalfFrame()
		}
		a.frameStep = (step + 1) % 5
		return
	}

	switch step {
	case 0, 2:
		a.clockQuarterFrame()
	case 1:
		a.clockQuarterFrame()
		a.clockHalfFrame()
	case 3:
		a.clockQuarterFrame()
		a.clockHalfFrame()
		if !a.frameInhibitIRQ {
			a.frameIRQ = true
		}
	}
	a.frameStep = (step + 1) % 4
}

// mix combines the five channel outputs using the standard non-linear
// approximation from the NESDev wiki's reference mixer formulas.
func mix(p1, p2, tri, noi, d uint8) int16 {
	pulseOut := 0.0
	if p1 != 0 || p2 != 0 {
		pulseOut = 95.88 / (8128.0/(float64(p1)+float64(p2)) + 100.0)
	}
	tndOut := 0.0
	if tri != 0 || noi != 0 || d != 0 {
		tndOut = 159.79 / (1.0/(float64(tri)/8227.0+float64(noi)/12241.0+float64(d)/22638.0) + 100.0)
	}
	return int16((pulseOut + tndOut) * 32767.0)
}

// Tick advances the APU by n CPU cycles.
func (a *APU) Tick(n int) {
	for i := 0; i < n; i++ {
		a.tick()
	}
}

func (a *APU) tick() {
	a.triangle.clockTimer()
	a.dmc.clockTimer()
	if a.cycle%2 == 0 {
		a.pulse1.clockTimer()
		a.pulse2.clockTimer()
		a.noise.clockTimer()
	}
	a.cycle++

	a.frameCycles++
	if a.frameCycles >= cpuClockHz/240.0 {
		a.frameCycles -= cpuClockHz / 240.0
		a.clockFrameSequencer()
	}

	a.sampleCycles++
	if a.sampleCycles >= cyclesPerSample {
		a.sampleCycles -= cyclesPerSample
		a.samples = append(a.samples, mix(a.pulse1.output(), a.pulse2.output(), a.triangle.output(), a.noise.output(), a.dmc.output))
	}
}

// DrainSamples returns and clears the accumulated mono sample buffer,
// expanded to stereo (duplicated L/R) to match PollAudio's
// interleaved-stereo contract.
func (a *APU) DrainSamples() []int16 {
	out := make([]int16, 0, len(a.samples)*2)
	for _, s := range a.samples {
		out = append(out, s, s)
	}
	a.samples = a.samples[:0]
	return out
}

func (e *envelope) encode(enc *core.Encoder, prefix string) {
	enc.WriteBool(prefix+".start", e.start)
	enc.WriteUint8(prefix+".decay", e.decay)
	enc.WriteUint8(prefix+".divider", e.divider)
	enc.WriteBool(prefix+".loop", e.loop)
	enc.WriteBool(prefix+".constant", e.constant)
	enc.WriteUint8(prefix+".volume", e.volume)
}

func (e *envelope) decode(dec *core.Decoder, prefix string) error {
	var err error
	read := func(f func() error) {
		if err == nil {
			err = f()
		}
	}
	read(func() (er error) { e.start, er = dec.Bool(prefix + ".start"); return })
	read(func() (er error) { e.decay, er = dec.Uint8(prefix + ".decay"); return })
	read(func() (er error) { e.divider, er = dec.Uint8(prefix + ".divider"); return })
	read(func() (er error) { e.loop, er = dec.Bool(prefix + ".loop"); return })
	read(func() (er error) { e.constant, er = dec.Bool(prefix + ".constant"); return })
	read(func() (er error) { e.volume, er = dec.Uint8(prefix + ".volume"); return })
	return err
}

func (l *lengthCounter) encode(enc *core.Encoder, prefix string) {
	enc.WriteUint8(prefix+".value", l.value)
	enc.WriteBool(prefix+".halt", l.halt)
}

func (l *lengthCounter) decode(dec *core.Decoder, prefix string) error {
	var err error
	if l.value, err = dec.Uint8(prefix + ".value"); err != nil {
		return err
	}
	l.halt, err = dec.Bool(prefix + ".halt")
	return err
}

func (p *pulse) encode(enc *core.Encoder, prefix string) {
	enc.WriteBool(prefix+".enabled", p.enabled)
	enc.WriteUint8(prefix+".duty", p.duty)
	enc.WriteUint8(prefix+".dutyPos", p.dutyPos)
	enc.WriteUint16(prefix+".timerPeriod", p.timerPeriod)
	enc.WriteUint16(prefix+".timer", p.timer)
	p.length.encode(enc, prefix+".length")
	p.env.encode(enc, prefix+".env")
	enc.WriteBool(prefix+".sweepEnabled", p.sweepEnabled)
	enc.WriteUint8(prefix+".sweepPeriod", p.sweepPeriod)
	enc.WriteBool(prefix+".sweepNegate", p.sweepNegate)
	enc.WriteUint8(prefix+".sweepShift", p.sweepShift)
	enc.WriteUint8(prefix+".sweepDivider", p.sweepDivider)
	enc.WriteBool(prefix+".sweepReload", p.sweepReload)
}

func (p *pulse) decode(dec *core.Decoder, prefix string) error {
	var err error
	read := func(f func() error) {
		if err == nil {
			err = f()
		}
	}
	read(func() (e error) { p.enabled, e = dec.Bool(prefix + ".enabled"); return })
	read(func() (e error) { p.duty, e = dec.Uint8(prefix + ".duty"); return })
	read(func() (e error) { p.dutyPos, e = dec.Uint8(prefix + ".dutyPos"); return })
	read(func() (e error) { p.timerPeriod, e = dec.Uint16(prefix + ".timerPeriod"); return })
	read(func() (e error) { p.timer, e = dec.Uint16(prefix + ".timer"); return })
	read(func() error { return p.length.decode(dec, prefix+".length") })
	read(func() error { return p.env.decode(dec, prefix+".env") })
	read(func() (e error) { p.sweepEnabled, e = dec.Bool(prefix + ".sweepEnabled"); return })
	read(func() (e error) { p.sweepPeriod, e = dec.Uint8(prefix + ".sweepPeriod"); return })
	read(func() (e error) { p.sweepNegate, e = dec.Bool(prefix + ".sweepNegate"); return })
	read(func() (e error) { p.sweepShift, e = dec.Uint8(prefix + ".sweepShift"); return })
	read(func() (e error) { p.sweepDivider, e = dec.Uint8(prefix + ".sweepDivider"); return })
	read(func() (e error) { p.sweepReload, e = dec.Bool(prefix + ".sweepReload"); return })
	return err
}

func (tr *triangle) encode(enc *core.Encoder, prefix string) {
	enc.WriteBool(prefix+".enabled", tr.enabled)
	enc.WriteUint16(prefix+".timerPeriod", tr.timerPeriod)
	enc.WriteUint16(prefix+".timer", tr.timer)
	enc.WriteUint8(prefix+".pos", tr.pos)
	tr.length.encode(enc, prefix+".length")
	enc.WriteUint8(prefix+".linearPeriod", tr.linearPeriod)
	enc.WriteUint8(prefix+".linear", tr.linear)
	enc.WriteBool(prefix+".linearReload", tr.linearReload)
	enc.WriteBool(prefix+".control", tr.control)
}

func (tr *triangle) decode(dec *core.Decoder, prefix string) error {
	var err error
	read := func(f func() error) {
		if err == nil {
			err = f()
		}
	}
	read(func() (e error) { tr.enabled, e = dec.Bool(prefix + ".enabled"); return })
	read(func() (e error) { tr.timerPeriod, e = dec.Uint16(prefix + ".timerPeriod"); return })
	read(func() (e error) { tr.timer, e = dec.Uint16(prefix + ".timer"); return })
	read(func() (e error) { tr.pos, e = dec.Uint8(prefix + ".pos"); return })
	read(func() error { return tr.length.decode(dec, prefix+".length") })
	read(func() (e error) { tr.linearPeriod, e = dec.Uint8(prefix + ".linearPeriod"); return })
	read(func() (e error) { tr.linear, e = dec.Uint8(prefix + ".linear"); return })
	read(func() (e error) { tr.linearReload, e = dec.Bool(prefix + ".linearReload"); return })
	read(func() (e error) { tr.control, e = dec.Bool(prefix + ".control"); return })
	return err
}

func (n *noise) encode(enc *core.Encoder, prefix string) {
	enc.WriteBool(prefix+".enabled", n.enabled)
	enc.WriteBool(prefix+".mode", n.mode)
	enc.WriteUint16(prefix+".shift", n.shift)
	enc.WriteUint16(prefix+".timerPeriod", n.timerPeriod)
	enc.WriteUint16(prefix+".timer", n.timer)
	n.length.encode(enc, prefix+".length")
	n.env.encode(enc, prefix+".env")
}

func (n *noise) decode(dec *core.Decoder, prefix string) error {
	var err error
	read := func(f func() error) {
		if err == nil {
			err = f()
		}
	}
	read(func() (e error) { n.enabled, e = dec.Bool(prefix + ".enabled"); return })
	read(func() (e error) { n.mode, e = dec.Bool(prefix + ".mode"); return })
	read(func() (e error) { n.shift, e = dec.Uint16(prefix + ".shift"); return })
	read(func() (e error) { n.timerPeriod, e = dec.Uint16(prefix + ".timerPeriod"); return })
	read(func() (e error) { n.timer, e = dec.Uint16(prefix + ".timer"); return })
	read(func() error { return n.length.decode(dec, prefix+".length") })
	read(func() error { return n.env.decode(dec, prefix+".env") })
	return err
}

func (d *dmc) encode(enc *core.Encoder, prefix string) {
	enc.WriteBool(prefix+".enabled", d.enabled)
	enc.WriteBool(prefix+".loop", d.loop)
	enc.WriteBool(prefix+".irqEnabled", d.irqEnabled)
	enc.WriteBool(prefix+".irqPending", d.irqPending)
	enc.WriteUint16(prefix+".rate", d.rate)
	enc.WriteUint16(prefix+".timer", d.timer)
	enc.WriteUint8(prefix+".output", d.output)
	enc.WriteUint16(prefix+".sampleAddr", d.sampleAddr)
	enc.WriteUint16(prefix+".sampleLength", d.sampleLength)
	enc.WriteUint16(prefix+".curAddr", d.curAddr)
	enc.WriteUint16(prefix+".bytesLeft", d.bytesLeft)
	enc.WriteUint8(prefix+".shiftReg", d.shiftReg)
	enc.WriteUint8(prefix+".bitsLeft", d.bitsLeft)
	enc.WriteBool(prefix+".silence", d.silence)
}

func (d *dmc) decode(dec *core.Decoder, prefix string) error {
	var err error
	read := func(f func() error) {
		if err == nil {
			err = f()
		}
	}
	read(func() (e error) { d.enabled, e = dec.Bool(prefix + ".enabled"); return })
	read(func() (e error) { d.loop, e = dec.Bool(prefix + ".loop"); return })
	read(func() (e error) { d.irqEnabled, e = dec.Bool(prefix + ".irqEnabled"); return })
	read(func() (e error) { d.irqPending, e = dec.Bool(prefix + ".irqPending"); return })
	read(func() (e error) { d.rate, e = dec.Uint16(prefix + ".rate"); return })
	read(func() (e error) { d.timer, e = dec.Uint16(prefix + ".timer"); return })
	read(func() (e error) { d.output, e = dec.Uint8(prefix + ".output"); return })
	read(func() (e error) { d.sampleAddr, e = dec.Uint16(prefix + ".sampleAddr"); return })
	read(func() (e error) { d.sampleLength, e = dec.Uint16(prefix + ".sampleLength"); return })
	read(func() (e error) { d.curAddr, e = dec.Uint16(prefix + ".curAddr"); return })
	read(func() (e error) { d.bytesLeft, e = dec.Uint16(prefix + ".bytesLeft"); return })
	read(func() (e error) { d.shiftReg, e = dec.Uint8(prefix + ".shiftReg"); return })
	read(func() (e error) { d.bitsLeft, e = dec.Uint8(prefix + ".bitsLeft"); return })
	read(func() (e error) { d.silence, e = dec.Bool(prefix + ".silence"); return })
	return err
}

// Encode appends the full channel and frame-sequencer state to enc
// under keys prefixed with prefix.
func (a *APU) Encode(enc *core.Encoder, prefix string) {
	a.pulse1.encode(enc, prefix+".pulse1")
	a.pulse2.encode(enc, prefix+".pulse2")
	a.triangle.encode(enc, prefix+".triangle")
	a.noise.encode(enc, prefix+".noise")
	a.dmc.encode(enc, prefix+".dmc")
	enc.WriteBool(prefix+".frameMode5", a.frameMode5)
	enc.WriteBool(prefix+".frameInhibitIRQ", a.frameInhibitIRQ)
	enc.WriteBool(prefix+".frameIRQ", a.frameIRQ)
	enc.WriteUint32(prefix+".frameStep", uint32(a.frameStep))
	enc.WriteUint64(prefix+".cycle", a.cycle)
}

// Decode restores the state written by Encode. The sample accumulator
// and frame/sample fractional-cycle counters are not carried across a
// save state; they resynchronize within a few ticks of resuming.
func (a *APU) Decode(dec *core.Decoder, prefix string) error {
	if err := a.pulse1.decode(dec, prefix+".pulse1"); err != nil {
		return err
	}
	if err := a.pulse2.decode(dec, prefix+".pulse2"); err != nil {
		return err
	}
	if err := a.triangle.decode(dec, prefix+".triangle"); err != nil {
		return err
	}
	if err := a.noise.decode(dec, prefix+".noise"); err != nil {
		return err
	}
	if err := a.dmc.decode(dec, prefix+".dmc"); err != nil {
		return err
	}
	var err error
	read := func(f func() error) {
		if err == nil {
			err = f()
		}
	}
	read(func() (e error) { a.frameMode5, e = dec.Bool(prefix + ".frameMode5"); return })
	read(func() (e error) { a.frameInhibitIRQ, e = dec.Bool(prefix + ".frameInhibitIRQ"); return })
	read(func() (e error) { a.frameIRQ, e = dec.Bool(prefix + ".frameIRQ"); return })
	read(func() error {
		v, e := dec.Uint32(prefix + ".frameStep")
		a.frameStep = int(v)
		return e
	})
	read(func() (e error) { a.cycle, e = dec.Uint64(prefix + ".cycle"); return })
	return err
}
