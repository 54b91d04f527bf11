package input

import (
	"fmt"

	"iron-and-ash/sim/internal/fixed"
)

// ActionType enumerates the intents a player can express on a frame.
type ActionType uint8

const (
	ActionNone ActionType = iota
	ActionMove
	ActionStop
	ActionSkill
	ActionAttack
)

// String names the action for logs and replay tooling.
func (t ActionType) String() string {
	switch t {
	case ActionMove:
		return "move"
	case ActionStop:
		return "stop"
	case ActionSkill:
		return "skill"
	case ActionAttack:
		return "attack"
	default:
		return "none"
	}
}

// Flags marks which input categories are present on a player's frame input.
type Flags uint32

const (
	FlagMove Flags = 1 << iota
	FlagStop
	FlagSkill
	FlagAttack
)

// flagFor maps an action onto its category bit.
func flagFor(t ActionType) Flags {
	switch t {
	case ActionMove:
		return FlagMove
	case ActionStop:
		return FlagStop
	case ActionSkill:
		return FlagSkill
	case ActionAttack:
		return FlagAttack
	default:
		return 0
	}
}

// Action is one captured intent: what to do, at what or whom, with which
// skill slot. Positions are raw fixed-point so the wire format round-trips
// bit for bit.
type Action struct {
	Type           ActionType `json:"type"`
	TargetEntityID int64      `json:"targetEntityId,omitempty"`
	TargetPosition fixed.Vec3 `json:"targetPosition"`
	SkillSlot      int32      `json:"skillSlot,omitempty"`
}

// PlayerInput is the ordered action list one player contributed to a frame.
// It stays mutable until the frame executes.
type PlayerInput struct {
	PlayerID int32    `json:"playerId"`
	Actions  []Action `json:"actions,omitempty"`
	Flags    Flags    `json:"inputFlags"`
}

// NewPlayerInput constructs an empty input for the player.
func NewPlayerInput(playerID int32) *PlayerInput {
	return &PlayerInput{PlayerID: playerID}
}

// AddAction appends an action and records its category bit.
func (p *PlayerInput) AddAction(a Action) {
	p.Actions = append(p.Actions, a)
	p.Flags |= flagFor(a.Type)
}

// Merge concatenates the other input's actions onto p and unions the flag
// bitmasks. Nothing is ever replaced: late-arriving duplicates widen the
// frame, they never rewrite it.
func (p *PlayerInput) Merge(other *PlayerInput) {
	if other == nil {
		return
	}
	p.Actions = append(p.Actions, other.Actions...)
	p.Flags |= other.Flags
}

// Empty reports whether the player contributed nothing this frame.
func (p *PlayerInput) Empty() bool {
	return p == nil || p.Flags == 0
}

// Clone returns a deep copy.
func (p *PlayerInput) Clone() *PlayerInput {
	if p == nil {
		return nil
	}
	cloned := &PlayerInput{PlayerID: p.PlayerID, Flags: p.Flags}
	if len(p.Actions) > 0 {
		cloned.Actions = make([]Action, len(p.Actions))
		copy(cloned.Actions, p.Actions)
	}
	return cloned
}

// FrameInput aggregates every player's input for one frame. The slot array
// is fixed-size and indexed by player id, so iteration order is the player
// order and never a map order.
type FrameInput struct {
	Frame   uint64         `json:"frame"`
	Players []*PlayerInput `json:"players"`
}

// NewFrameInput constructs an aggregate with one empty slot per player.
func NewFrameInput(frame uint64, playerCount int) *FrameInput {
	if playerCount < 0 {
		playerCount = 0
	}
	return &FrameInput{Frame: frame, Players: make([]*PlayerInput, playerCount)}
}

// PlayerCount reports the number of slots.
func (f *FrameInput) PlayerCount() int {
	return len(f.Players)
}

// Player returns the slot for a player id, or nil when the id is out of
// range or the slot is still empty.
func (f *FrameInput) Player(playerID int32) *PlayerInput {
	if f == nil || playerID < 0 || int(playerID) >= len(f.Players) {
		return nil
	}
	return f.Players[playerID]
}

// MergePlayer merges the input into the player's slot, creating the slot on
// first contact.
func (f *FrameInput) MergePlayer(in *PlayerInput) error {
	if in == nil {
		return nil
	}
	if in.PlayerID < 0 || int(in.PlayerID) >= len(f.Players) {
		return fmt.Errorf("input: player %d out of range (%d slots)", in.PlayerID, len(f.Players))
	}
	slot := f.Players[in.PlayerID]
	if slot == nil {
		f.Players[in.PlayerID] = in.Clone()
		return nil
	}
	slot.Merge(in)
	return nil
}

// Merge folds every populated slot of other into f.
func (f *FrameInput) Merge(other *FrameInput) error {
	if other == nil {
		return nil
	}
	for _, in := range other.Players {
		if in == nil {
			continue
		}
		if err := f.MergePlayer(in); err != nil {
			return err
		}
	}
	return nil
}

// Complete reports whether every slot carries at least one input category.
func (f *FrameInput) Complete() bool {
	if f == nil || len(f.Players) == 0 {
		return false
	}
	for _, in := range f.Players {
		if in.Empty() {
			return false
		}
	}
	return true
}

// Reset clears the aggregate for reuse as a synthesized empty input,
// keeping the slot array to avoid per-tick churn.
func (f *FrameInput) Reset(frame uint64) {
	f.Frame = frame
	for i, in := range f.Players {
		if in == nil {
			f.Players[i] = NewPlayerInput(int32(i))
			continue
		}
		in.Actions = in.Actions[:0]
		in.Flags = 0
	}
}

// Clone returns a deep copy.
func (f *FrameInput) Clone() *FrameInput {
	if f == nil {
		return nil
	}
	cloned := &FrameInput{Frame: f.Frame, Players: make([]*PlayerInput, len(f.Players))}
	for i, in := range f.Players {
		cloned.Players[i] = in.Clone()
	}
	return cloned
}
