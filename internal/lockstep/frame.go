package lockstep

import (
	"fmt"

	"iron-and-ash/sim/internal/input"
)

// FrameStatus tracks a frame through its lifecycle. Transitions only move
// forward except for RolledBack, which a rewind applies to any frame the
// abandoned timeline had completed.
type FrameStatus uint8

const (
	// FrameWaitingForInput means the frame has no aggregate input yet.
	FrameWaitingForInput FrameStatus = iota
	// FrameReady means input is bound and the frame can execute.
	FrameReady
	// FrameExecuting means the simulation callback is running.
	FrameExecuting
	// FrameCompleted means the frame executed and was confirmed.
	FrameCompleted
	// FrameRolledBack means a rewind discarded this frame's execution.
	FrameRolledBack
)

func (s FrameStatus) String() string {
	switch s {
	case FrameWaitingForInput:
		return "waiting_for_input"
	case FrameReady:
		return "ready"
	case FrameExecuting:
		return "executing"
	case FrameCompleted:
		return "completed"
	case FrameRolledBack:
		return "rolled_back"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// transition enforces the forward-only lifecycle.
func (s FrameStatus) transition(next FrameStatus) (FrameStatus, error) {
	if next == FrameRolledBack {
		if s != FrameCompleted {
			return s, fmt.Errorf("lockstep: cannot roll back frame in state %s", s)
		}
		return next, nil
	}
	if next != s+1 {
		return s, fmt.Errorf("lockstep: invalid frame transition %s -> %s", s, next)
	}
	return next, nil
}

// FrameRecord is one executed frame in the history journal: the status it
// reached, the aggregate input it executed with, and whether the scheduler
// had to synthesize that input because the buffer was missing the frame.
type FrameRecord struct {
	Frame       uint64
	Status      FrameStatus
	Input       *input.FrameInput
	Synthesized bool
}
