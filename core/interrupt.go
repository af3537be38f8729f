package core

// IRQLine is the shared "pending sources AND enabled sources" polling
// primitive spec §4.6 describes: each system defines its own named
// source bits (as uint32 constants in that system's package) and
// embeds an IRQLine in its CPU state.
type IRQLine struct {
	pending uint32
	enabled uint32
}

// Assert sets src in the pending mask (level- or edge-driven is the
// caller's concern: edge sources should clear themselves back out on
// the same tick if real hardware would).
func (l *IRQLine) Assert(src uint32) { l.pending |= src }

// Clear removes src from the pending mask. Some sources clear
// implicitly on vector dispatch (ARM); others require an explicit
// write-1-to-clear from software (NES $4015) routed here by the
// mapper/memory handler.
func (l *IRQLine) Clear(src uint32) { l.pending &^= src }

// SetEnabled replaces the enable mask wholesale, matching a
// single-register "which sources may interrupt" write.
func (l *IRQLine) SetEnabled(mask uint32) { l.enabled = mask }

func (l *IRQLine) EnableSource(src uint32)  { l.enabled |= src }
func (l *IRQLine) DisableSource(src uint32) { l.enabled &^= src }

// Pending reports whether any enabled source is currently asserted.
// CPU cores call this at their architecture's polling point.
func (l *IRQLine) Pending() bool { return l.pending&l.enabled != 0 }

// Sources returns the raw pending&enabled bitmap, for cores (ARM
// IRQ/FIQ, 65C816 native-mode distinctions) that need to know which
// source fired, not just whether one did.
func (l *IRQLine) Sources() uint32 { return l.pending & l.enabled }

func (l *IRQLine) RawPending() uint32 { return l.pending }
func (l *IRQLine) RawEnabled() uint32 { return l.enabled }
func (l *IRQLine) SetRaw(pending, enabled uint32) {
	l.pending, l.enabled = pending, enabled
}
