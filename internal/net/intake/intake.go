// Package intake validates client wire input before it reaches the
// deterministic core. Everything past this boundary is trusted to be
// well-formed; everything before it is not.
package intake

import (
	"errors"
	"fmt"

	"iron-and-ash/sim/internal/fixed"
	"iron-and-ash/sim/internal/input"
	"iron-and-ash/sim/internal/net/proto"
)

const (
	// MaxActionsPerMessage bounds a single input message.
	MaxActionsPerMessage = 16
	// MaxSkillSlot is the highest addressable skill bar slot.
	MaxSkillSlot = 9
)

var (
	// ErrTooManyActions reports an oversized action list.
	ErrTooManyActions = errors.New("intake: too many actions in one message")
	// ErrBadActionType reports an unknown action discriminant.
	ErrBadActionType = errors.New("intake: unknown action type")
	// ErrBadSkillSlot reports a skill slot outside the bar.
	ErrBadSkillSlot = errors.New("intake: skill slot out of range")
	// ErrNoActions reports an input message with nothing in it.
	ErrNoActions = errors.New("intake: input carries no actions")
)

// RejectReason maps a validation error onto the wire reject code.
func RejectReason(err error) string {
	switch {
	case errors.Is(err, ErrTooManyActions):
		return proto.RejectTooManyActions
	case err != nil:
		return proto.RejectMalformed
	default:
		return ""
	}
}

// PlayerInput validates the wire actions and converts them into the
// core's input type for the given slot.
func PlayerInput(playerID int32, actions []proto.WireAction) (*input.PlayerInput, error) {
	if len(actions) == 0 {
		return nil, ErrNoActions
	}
	if len(actions) > MaxActionsPerMessage {
		return nil, fmt.Errorf("%d actions: %w", len(actions), ErrTooManyActions)
	}
	out := input.NewPlayerInput(playerID)
	for i, wire := range actions {
		action, err := convertAction(wire)
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}
		out.AddAction(action)
	}
	return out, nil
}

func convertAction(wire proto.WireAction) (input.Action, error) {
	kind := input.ActionType(wire.Type)
	switch kind {
	case input.ActionNone, input.ActionMove, input.ActionStop, input.ActionSkill, input.ActionAttack:
	default:
		return input.Action{}, fmt.Errorf("type %d: %w", wire.Type, ErrBadActionType)
	}
	if kind == input.ActionSkill && (wire.SkillSlot < 0 || wire.SkillSlot > MaxSkillSlot) {
		return input.Action{}, fmt.Errorf("slot %d: %w", wire.SkillSlot, ErrBadSkillSlot)
	}
	return input.Action{
		Type:           kind,
		TargetEntityID: wire.TargetEntityID,
		TargetPosition: fixed.V3(fixed.FromRaw(wire.TargetX), fixed.FromRaw(wire.TargetY), fixed.FromRaw(wire.TargetZ)),
		SkillSlot:      wire.SkillSlot,
	}, nil
}
