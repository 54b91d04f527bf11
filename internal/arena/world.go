// Package arena is the reference combat world hosted by the local server
// harness: a bounded ground plane where player avatars move toward
// targets, shove each other apart on contact and trade melee hits. Every
// quantity is fixed-point and every iteration is slot-ordered, so the
// world satisfies the deterministic frame contract end to end.
package arena

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"

	"iron-and-ash/sim/internal/fixed"
	"iron-and-ash/sim/internal/input"
	"iron-and-ash/sim/internal/snapshot"
	"iron-and-ash/sim/internal/spatial"
)

const avatarRecordSize = 8 * 6

// Config sizes the arena.
type Config struct {
	PlayerCount int
	// HalfExtent is the world's half width and half depth around origin.
	HalfExtent fixed.Scalar
	// CellSize is the broad-phase cell edge length.
	CellSize fixed.Scalar
	// MoveSpeed is units per second toward the move target.
	MoveSpeed fixed.Scalar
	// AvatarRadius is every avatar's collision circle radius.
	AvatarRadius fixed.Scalar
	// AttackRange is the melee reach measured between centers.
	AttackRange fixed.Scalar
	// AttackDamage is hit points removed per landed attack.
	AttackDamage int64
	// MaxHealth is the avatar spawn health.
	MaxHealth int64
	// Seed initializes the deterministic generator for spawn placement.
	Seed int64
}

// DefaultConfig is a small two-player arena.
func DefaultConfig() Config {
	return Config{
		PlayerCount:  2,
		HalfExtent:   fixed.FromInt(40),
		CellSize:     fixed.FromInt(5),
		MoveSpeed:    fixed.FromInt(6),
		AvatarRadius: fixed.FromInt(1),
		AttackRange:  fixed.FromInt(3),
		AttackDamage: 10,
		MaxHealth:    100,
		Seed:         1,
	}
}

type avatar struct {
	pos    fixed.Vec3
	target fixed.Vec3
	moving bool
	health int64
}

// World implements the scheduler's simulation contract.
type World struct {
	cfg     Config
	rng     *fixed.Rand
	avatars []avatar
	grid    *spatial.Grid
}

// NewWorld spawns one avatar per player at generator-chosen positions.
func NewWorld(cfg Config) (*World, error) {
	if cfg.PlayerCount <= 0 {
		return nil, errors.New("arena: player count must be positive")
	}
	bounds := spatial.NewRect(cfg.HalfExtent.Neg(), cfg.HalfExtent.Neg(), cfg.HalfExtent, cfg.HalfExtent)
	grid, err := spatial.NewGrid(bounds, cfg.CellSize)
	if err != nil {
		return nil, fmt.Errorf("arena: %w", err)
	}
	w := &World{
		cfg:     cfg,
		rng:     fixed.NewRand(cfg.Seed),
		avatars: make([]avatar, cfg.PlayerCount),
		grid:    grid,
	}
	spawnExtent := cfg.HalfExtent.Sub(cfg.AvatarRadius)
	for i := range w.avatars {
		w.avatars[i] = avatar{
			pos: fixed.V3(
				w.rng.ScalarRange(spawnExtent.Neg(), spawnExtent),
				fixed.Zero,
				w.rng.ScalarRange(spawnExtent.Neg(), spawnExtent),
			),
			health: cfg.MaxHealth,
		}
	}
	return w, nil
}

// Avatar reports one avatar's position and health.
func (w *World) Avatar(playerID int32) (fixed.Vec3, int64, bool) {
	if playerID < 0 || int(playerID) >= len(w.avatars) {
		return fixed.Vec3{}, 0, false
	}
	a := w.avatars[playerID]
	return a.pos, a.health, true
}

// StepFrame advances the arena one frame: apply inputs in slot order,
// integrate movement, then resolve contacts and attacks via the broad
// phase.
func (w *World) StepFrame(frame uint64, dt fixed.Scalar, in *input.FrameInput) error {
	for i := range w.avatars {
		player := in.Player(int32(i))
		if player == nil {
			continue
		}
		for _, action := range player.Actions {
			w.applyAction(int32(i), action)
		}
	}

	w.integrate(dt)
	w.rebuildGrid()
	w.resolveContacts()
	w.resolveAttacks(in)
	return nil
}

func (w *World) applyAction(playerID int32, action input.Action) {
	a := &w.avatars[playerID]
	switch action.Type {
	case input.ActionMove:
		a.target = action.TargetPosition
		a.moving = true
	case input.ActionStop:
		a.moving = false
	}
}

func (w *World) integrate(dt fixed.Scalar) {
	step := w.cfg.MoveSpeed.Mul(dt)
	for i := range w.avatars {
		a := &w.avatars[i]
		if !a.moving || a.health <= 0 {
			continue
		}
		delta := a.target.Sub(a.pos)
		delta.Y = fixed.Zero
		dist := delta.Length()
		if dist <= step {
			a.pos.X = a.target.X
			a.pos.Z = a.target.Z
			a.moving = false
			continue
		}
		dir, ok := delta.Normalized()
		if !ok {
			a.moving = false
			continue
		}
		a.pos = a.pos.Add(dir.Scale(step))
		w.clampToBounds(&a.pos)
	}
}

func (w *World) rebuildGrid() {
	w.grid.Clear()
	for i := range w.avatars {
		if w.avatars[i].health <= 0 {
			continue
		}
		w.grid.Insert(spatial.NewCircle(int64(i), w.avatars[i].pos.Ground(), w.cfg.AvatarRadius))
	}
}

// resolveContacts pushes overlapping avatars apart symmetrically along the
// contact normal. Pair order is ascending ids, so resolution is identical
// on every run.
func (w *World) resolveContacts() {
	for _, pair := range spatial.CollidePairs(w.grid) {
		half := pair.Contact.Depth.Mul(fixed.Half)
		push := pair.Contact.Normal.Scale(half)
		a := &w.avatars[pair.A]
		b := &w.avatars[pair.B]
		a.pos.X = a.pos.X.Sub(push.X)
		a.pos.Z = a.pos.Z.Sub(push.Z)
		b.pos.X = b.pos.X.Add(push.X)
		b.pos.Z = b.pos.Z.Add(push.Z)
		w.clampToBounds(&a.pos)
		w.clampToBounds(&b.pos)
	}
}

// resolveAttacks lands this frame's attack actions against their targets
// when in range. Attacks resolve after movement, in slot order.
func (w *World) resolveAttacks(in *input.FrameInput) {
	rangeSq := w.cfg.AttackRange.Mul(w.cfg.AttackRange)
	for i := range w.avatars {
		player := in.Player(int32(i))
		if player == nil || player.Flags&input.FlagAttack == 0 {
			continue
		}
		if w.avatars[i].health <= 0 {
			continue
		}
		for _, action := range player.Actions {
			if action.Type != input.ActionAttack {
				continue
			}
			target := action.TargetEntityID
			if target < 0 || target >= int64(len(w.avatars)) || target == int64(i) {
				continue
			}
			victim := &w.avatars[target]
			if victim.health <= 0 {
				continue
			}
			if w.avatars[i].pos.DistSq2D(victim.pos) > rangeSq {
				continue
			}
			victim.health -= w.cfg.AttackDamage
			if victim.health < 0 {
				victim.health = 0
			}
		}
	}
}

func (w *World) clampToBounds(pos *fixed.Vec3) {
	limit := w.cfg.HalfExtent.Sub(w.cfg.AvatarRadius)
	pos.X = pos.X.Clamp(limit.Neg(), limit)
	pos.Z = pos.Z.Clamp(limit.Neg(), limit)
}

// CreateSnapshot captures every avatar in slot order plus the generator
// state.
func (w *World) CreateSnapshot(frame uint64) (*snapshot.Snapshot, bool) {
	snap := snapshot.New(frame, w.rng.State())
	for i := range w.avatars {
		a := w.avatars[i]
		data := make([]byte, avatarRecordSize)
		binary.LittleEndian.PutUint64(data[0:], uint64(a.pos.X.Raw()))
		binary.LittleEndian.PutUint64(data[8:], uint64(a.pos.Z.Raw()))
		binary.LittleEndian.PutUint64(data[16:], uint64(a.target.X.Raw()))
		binary.LittleEndian.PutUint64(data[24:], uint64(a.target.Z.Raw()))
		flags := uint64(0)
		if a.moving {
			flags = 1
		}
		binary.LittleEndian.PutUint64(data[32:], flags)
		binary.LittleEndian.PutUint64(data[40:], uint64(a.health))
		snap.Append(snapshot.EntityRecord{EntityID: int64(i), Kind: "avatar", Data: data})
	}
	return snap, true
}

// RestoreSnapshot replaces the world state wholesale. It validates the
// snapshot fully before touching anything.
func (w *World) RestoreSnapshot(snap *snapshot.Snapshot) error {
	if snap == nil {
		return errors.New("arena: nil snapshot")
	}
	if len(snap.Entities) != len(w.avatars) {
		return fmt.Errorf("arena: snapshot has %d avatars, world has %d", len(snap.Entities), len(w.avatars))
	}
	restored := make([]avatar, len(w.avatars))
	for _, record := range snap.Entities {
		if record.EntityID < 0 || record.EntityID >= int64(len(restored)) {
			return fmt.Errorf("arena: snapshot entity %d out of range", record.EntityID)
		}
		if len(record.Data) != avatarRecordSize {
			return fmt.Errorf("arena: snapshot entity %d malformed", record.EntityID)
		}
		restored[record.EntityID] = avatar{
			pos: fixed.V3(
				fixed.FromRaw(int64(binary.LittleEndian.Uint64(record.Data[0:]))),
				fixed.Zero,
				fixed.FromRaw(int64(binary.LittleEndian.Uint64(record.Data[8:]))),
			),
			target: fixed.V3(
				fixed.FromRaw(int64(binary.LittleEndian.Uint64(record.Data[16:]))),
				fixed.Zero,
				fixed.FromRaw(int64(binary.LittleEndian.Uint64(record.Data[24:]))),
			),
			moving: binary.LittleEndian.Uint64(record.Data[32:]) != 0,
			health: int64(binary.LittleEndian.Uint64(record.Data[40:])),
		}
	}
	copy(w.avatars, restored)
	w.rng.Restore(snap.RandState)
	return nil
}

// FrameHash folds the full world state into a 64-bit digest.
func (w *World) FrameHash() uint64 {
	hasher := fnv.New64a()
	var buf [8]byte
	write := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		hasher.Write(buf[:])
	}
	for i := range w.avatars {
		a := w.avatars[i]
		write(uint64(a.pos.X.Raw()))
		write(uint64(a.pos.Z.Raw()))
		write(uint64(a.target.X.Raw()))
		write(uint64(a.target.Z.Raw()))
		if a.moving {
			write(1)
		} else {
			write(0)
		}
		write(uint64(a.health))
	}
	write(w.rng.State())
	return hasher.Sum64()
}
