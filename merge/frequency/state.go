package frequency

import "fmt"

// State is the frequency merge engine's per-burst state machine (spec.md
// §4.6): Idle -> PreparedRef -> Accumulating(n) -> Deconvolved -> Inverted
// -> BordersCleaned -> Emitted. Transitions require the accumulator to have
// consumed exactly N frames (including the reference with unit weight)
// before leaving Accumulating.
type State int

const (
	Idle State = iota
	PreparedRef
	Accumulating
	Deconvolved
	Inverted
	BordersCleaned
	Emitted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case PreparedRef:
		return "PreparedRef"
	case Accumulating:
		return "Accumulating"
	case Deconvolved:
		return "Deconvolved"
	case Inverted:
		return "Inverted"
	case BordersCleaned:
		return "BordersCleaned"
	case Emitted:
		return "Emitted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// machine tracks the engine's state and the number of frames consumed,
// rejecting any transition out of order. Grounded on the teacher's
// ComputePassState/HALComputePassState enums (backend/native,
// internal/gpu/compute_pass.go), which guard every encoder method with a
// checkRecording-style state assertion.
type machine struct {
	state    State
	consumed int
	total    int
}

func newMachine(total int) *machine {
	return &machine{state: Idle, total: total}
}

func (m *machine) prepareRef() error {
	if m.state != Idle {
		return fmt.Errorf("frequency: PrepareRef from state %s, want Idle", m.state)
	}
	m.state = PreparedRef
	m.consumed = 1 // the reference itself counts as the first consumed frame.
	if m.consumed == m.total {
		m.state = Accumulating
	}
	return nil
}

func (m *machine) accumulate() error {
	if m.state != PreparedRef && m.state != Accumulating {
		return fmt.Errorf("frequency: Accumulate from state %s, want PreparedRef or Accumulating", m.state)
	}
	m.state = Accumulating
	m.consumed++
	return nil
}

func (m *machine) deconvolve() error {
	if m.state != Accumulating || m.consumed != m.total {
		return fmt.Errorf("frequency: Deconvolve from state %s with %d/%d frames consumed", m.state, m.consumed, m.total)
	}
	m.state = Deconvolved
	return nil
}

func (m *machine) invert() error {
	if m.state != Deconvolved {
		return fmt.Errorf("frequency: Invert from state %s, want Deconvolved", m.state)
	}
	m.state = Inverted
	return nil
}

func (m *machine) cleanBorders() error {
	if m.state != Inverted {
		return fmt.Errorf("frequency: CleanBorders from state %s, want Inverted", m.state)
	}
	m.state = BordersCleaned
	return nil
}

func (m *machine) emit() error {
	if m.state != BordersCleaned {
		return fmt.Errorf("frequency: Emit from state %s, want BordersCleaned", m.state)
	}
	m.state = Emitted
	return nil
}
