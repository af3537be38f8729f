package core

import "fmt"

// RewindSnapshot is one block of a rewind buffer: a run of frames
// whose inputs and (full or delta) state are captured so RewindManager
// can play them back. Invariants (spec §3): len(InputLog) == the
// number of frames this block covers, and a delta block is always
// preceded, somewhere earlier in the buffer, by a full block.
type RewindSnapshot struct {
	FrameCount int
	InputLog   []ControllerState
	State      []byte
	IsFull     bool
}

// RewindManager accumulates snapshots at frame boundaries while
// recording is active. It never inspects System internals directly:
// the host calls Push with the System's current GetState() output and
// the input that was just applied, so RewindManager stays a pure
// bookkeeping layer over opaque state blobs.
type RewindManager struct {
	recording  bool
	snapshots  []RewindSnapshot
	sinceFull  int
	fullPeriod int // force a full snapshot at least this often
}

// NewRewindManager returns a manager that forces a full snapshot every
// fullPeriod pushes (a fullPeriod of 1 disables delta snapshots
// entirely).
func NewRewindManager(fullPeriod int) *RewindManager {
	if fullPeriod < 1 {
		fullPeriod = 1
	}
	return &RewindManager{fullPeriod: fullPeriod}
}

func (m *RewindManager) Start() {
	m.recording = true
	m.snapshots = nil
	m.sinceFull = 0
}

func (m *RewindManager) Stop() {
	m.recording = false
}

func (m *RewindManager) Recording() bool { return m.recording }

// Push records one frame's input and resulting state. forceFull forces a
// full snapshot regardless of the configured period (the caller
// supplies delta bytes precomputed against the prior full snapshot
// when isFull is false; RewindManager itself does not diff state --
// that's system-specific and lives with the System implementation).
func (m *RewindManager) Push(input ControllerState, state []byte, forceFull bool) {
	if !m.recording {
		return
	}

	isFull := forceFull || m.sinceFull == 0
	m.snapshots = append(m.snapshots, RewindSnapshot{
		FrameCount: len(m.snapshots) + 1,
		InputLog:   []ControllerState{input},
		State:      state,
		IsFull:     isFull,
	})

	if isFull {
		m.sinceFull = 1
	} else {
		m.sinceFull++
	}
	if m.sinceFull >= m.fullPeriod {
		m.sinceFull = 0
	}
}

// Snapshots returns the recorded blocks in order. The caller (the
// System implementation, which knows how to apply a delta against its
// own last full state) is responsible for replaying them.
func (m *RewindManager) Snapshots() []RewindSnapshot {
	return m.snapshots
}

// Validate checks the "run of non-full blocks is always preceded by a
// full block" invariant from spec §3.
func (m *RewindManager) Validate() error {
	sawFull := false
	for i, s := range m.snapshots {
		if s.IsFull {
			sawFull = true
			continue
		}
		if !sawFull {
			return fmt.Errorf("rewind: snapshot %d is a delta with no preceding full snapshot", i)
		}
	}
	return nil
}
