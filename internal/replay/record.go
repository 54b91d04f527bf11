// Package replay defines the serializable session record: the initial
// seed, the session settings and the ordered frame-input sequence. Raw
// fixed-point integers go over the wire untouched, so a record replayed
// anywhere reproduces the exact original simulation.
package replay

import (
	"iron-and-ash/sim/internal/fixed"
	"iron-and-ash/sim/internal/input"
	"iron-and-ash/sim/internal/lockstep"
)

// FormatVersion is bumped whenever the record layout changes
// incompatibly.
const FormatVersion = 1

// Settings captures the session configuration a replay must run under.
type Settings struct {
	TickRate          int    `json:"tickRate" jsonschema:"title=Tick rate,description=Logic frames per second"`
	PlayerCount       int    `json:"playerCount" jsonschema:"title=Player count,description=Number of input slots per frame"`
	InputLeadFrames   uint64 `json:"inputLeadFrames" jsonschema:"description=Look-ahead frames for locally submitted input"`
	MaxRollbackFrames uint64 `json:"maxRollbackFrames" jsonschema:"description=Deepest frame distance a rewind may cover"`
	SnapshotInterval  uint64 `json:"snapshotInterval" jsonschema:"description=Frames between automatic snapshots"`
}

// SettingsFromConfig extracts the replay-relevant settings.
func SettingsFromConfig(cfg lockstep.Config) Settings {
	return Settings{
		TickRate:          cfg.TickRate,
		PlayerCount:       cfg.PlayerCount,
		InputLeadFrames:   cfg.InputLeadFrames,
		MaxRollbackFrames: cfg.MaxRollbackFrames,
		SnapshotInterval:  cfg.SnapshotInterval,
	}
}

// Config rebuilds a scheduler config from recorded settings, filling the
// non-recorded knobs from defaults.
func (s Settings) Config() lockstep.Config {
	cfg := lockstep.DefaultConfig()
	cfg.TickRate = s.TickRate
	cfg.PlayerCount = s.PlayerCount
	cfg.InputLeadFrames = s.InputLeadFrames
	cfg.MaxRollbackFrames = s.MaxRollbackFrames
	cfg.SnapshotInterval = s.SnapshotInterval
	return cfg
}

// ActionEntry is one recorded action. TargetX/Y/Z are raw fixed-point
// integers.
type ActionEntry struct {
	Type           uint8 `json:"type" jsonschema:"description=Action type discriminant"`
	TargetEntityID int64 `json:"targetEntityId,omitempty" jsonschema:"description=Entity the action targets"`
	TargetX        int64 `json:"targetX,omitempty" jsonschema:"description=Raw fixed-point X of the target position"`
	TargetY        int64 `json:"targetY,omitempty" jsonschema:"description=Raw fixed-point Y of the target position"`
	TargetZ        int64 `json:"targetZ,omitempty" jsonschema:"description=Raw fixed-point Z of the target position"`
	SkillSlot      int32 `json:"skillSlot,omitempty" jsonschema:"description=Skill bar slot for skill actions"`
}

// PlayerEntry is one player's recorded input within a frame.
type PlayerEntry struct {
	PlayerID int32         `json:"playerId" jsonschema:"description=Input slot index"`
	Actions  []ActionEntry `json:"actions,omitempty" jsonschema:"description=Ordered action list"`
	Flags    uint32        `json:"inputFlags,omitempty" jsonschema:"description=OR-ed input flag bitmask"`
}

// FrameEntry is one frame's aggregate input.
type FrameEntry struct {
	Frame   uint64        `json:"frameNumber" jsonschema:"description=Logic frame the inputs execute on"`
	Players []PlayerEntry `json:"perPlayer,omitempty" jsonschema:"description=Per-player inputs in slot order"`
}

// Record is a complete recorded session.
type Record struct {
	Version  int          `json:"version" jsonschema:"description=Record format version"`
	Seed     int64        `json:"seed" jsonschema:"description=Initial deterministic generator seed"`
	Settings Settings     `json:"settings" jsonschema:"description=Session configuration the replay must run under"`
	Frames   []FrameEntry `json:"frames,omitempty" jsonschema:"description=Ordered frame-input aggregates"`
}

// NewRecord starts an empty record for the seed and settings.
func NewRecord(seed int64, settings Settings) *Record {
	return &Record{Version: FormatVersion, Seed: seed, Settings: settings}
}

// AppendFrame records a frame aggregate, skipping empty player slots.
func (r *Record) AppendFrame(fi *input.FrameInput) {
	if fi == nil {
		return
	}
	entry := FrameEntry{Frame: fi.Frame}
	for _, player := range fi.Players {
		if player == nil || player.Empty() {
			continue
		}
		pe := PlayerEntry{PlayerID: player.PlayerID, Flags: uint32(player.Flags)}
		for _, action := range player.Actions {
			pe.Actions = append(pe.Actions, ActionEntry{
				Type:           uint8(action.Type),
				TargetEntityID: action.TargetEntityID,
				TargetX:        action.TargetPosition.X.Raw(),
				TargetY:        action.TargetPosition.Y.Raw(),
				TargetZ:        action.TargetPosition.Z.Raw(),
				SkillSlot:      action.SkillSlot,
			})
		}
		entry.Players = append(entry.Players, pe)
	}
	r.Frames = append(r.Frames, entry)
}

// FrameInput rebuilds the aggregate for one recorded frame entry.
func (e FrameEntry) FrameInput(playerCount int) (*input.FrameInput, error) {
	fi := input.NewFrameInput(e.Frame, playerCount)
	for _, pe := range e.Players {
		player := input.NewPlayerInput(pe.PlayerID)
		player.Flags = input.Flags(pe.Flags)
		for _, ae := range pe.Actions {
			player.Actions = append(player.Actions, input.Action{
				Type:           input.ActionType(ae.Type),
				TargetEntityID: ae.TargetEntityID,
				TargetPosition: fixed.V3(fixed.FromRaw(ae.TargetX), fixed.FromRaw(ae.TargetY), fixed.FromRaw(ae.TargetZ)),
				SkillSlot:      ae.SkillSlot,
			})
		}
		if err := fi.MergePlayer(player); err != nil {
			return nil, err
		}
	}
	return fi, nil
}
