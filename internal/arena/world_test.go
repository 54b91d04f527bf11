package arena

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"testing"

	"iron-and-ash/sim/internal/fixed"
	"iron-and-ash/sim/internal/input"
	"iron-and-ash/sim/internal/lockstep"
	"iron-and-ash/sim/internal/snapshot"
)

func testWorld(t *testing.T, players int, seed int64) *World {
	t.Helper()
	cfg := DefaultConfig()
	cfg.PlayerCount = players
	cfg.Seed = seed
	world, err := NewWorld(cfg)
	if err != nil {
		t.Fatalf("NewWorld: %v", err)
	}
	return world
}

// placeAvatars pins avatar positions through the snapshot path so tests
// control geometry without depending on spawn randomness.
func placeAvatars(t *testing.T, w *World, positions []fixed.Vec3) {
	t.Helper()
	snap := snapshot.New(0, w.rng.State())
	for i, pos := range positions {
		data := make([]byte, avatarRecordSize)
		binary.LittleEndian.PutUint64(data[0:], uint64(pos.X.Raw()))
		binary.LittleEndian.PutUint64(data[8:], uint64(pos.Z.Raw()))
		binary.LittleEndian.PutUint64(data[40:], uint64(w.cfg.MaxHealth))
		snap.Append(snapshot.EntityRecord{EntityID: int64(i), Kind: "avatar", Data: data})
	}
	if err := w.RestoreSnapshot(snap); err != nil {
		t.Fatalf("RestoreSnapshot: %v", err)
	}
}

func frameWith(t *testing.T, frame uint64, players int, inputs ...*input.PlayerInput) *input.FrameInput {
	t.Helper()
	fi := input.NewFrameInput(frame, players)
	for _, in := range inputs {
		if err := fi.MergePlayer(in); err != nil {
			t.Fatalf("MergePlayer: %v", err)
		}
	}
	return fi
}

func moveTo(playerID int32, x, z int64) *input.PlayerInput {
	in := input.NewPlayerInput(playerID)
	in.AddAction(input.Action{
		Type:           input.ActionMove,
		TargetPosition: fixed.V3(fixed.FromInt(x), fixed.Zero, fixed.FromInt(z)),
	})
	return in
}

func attack(playerID int32, target int64) *input.PlayerInput {
	in := input.NewPlayerInput(playerID)
	in.AddAction(input.Action{Type: input.ActionAttack, TargetEntityID: target})
	return in
}

func TestWorldMovementReachesTarget(t *testing.T) {
	w := testWorld(t, 1, 7)
	placeAvatars(t, w, []fixed.Vec3{fixed.V3(fixed.Zero, fixed.Zero, fixed.Zero)})

	dt, err := fixed.FromInt(1).Div(fixed.FromInt(30))
	if err != nil {
		t.Fatalf("dt: %v", err)
	}
	fi := frameWith(t, 0, 1, moveTo(0, 6, 0))
	if err := w.StepFrame(0, dt, fi); err != nil {
		t.Fatalf("StepFrame: %v", err)
	}
	pos, _, _ := w.Avatar(0)
	if pos.X <= fixed.Zero {
		t.Fatalf("avatar did not move toward target: %+v", pos)
	}

	// Move speed 6 at 30 Hz covers 0.2 per frame; 30 frames covers 6.
	empty := frameWith(t, 0, 1)
	for frame := uint64(1); frame <= 40; frame++ {
		empty.Reset(frame)
		if err := w.StepFrame(frame, dt, empty); err != nil {
			t.Fatalf("StepFrame: %v", err)
		}
	}
	pos, _, _ = w.Avatar(0)
	if pos.X != fixed.FromInt(6) || pos.Z != fixed.Zero {
		t.Fatalf("avatar stopped at %+v, want exactly (6, 0)", pos)
	}
	if w.avatars[0].moving {
		t.Fatalf("avatar still flagged moving at its target")
	}
}

func TestWorldContactsSeparate(t *testing.T) {
	w := testWorld(t, 2, 7)
	// Radius 1 each: centers 1.5 apart overlap by 0.5.
	placeAvatars(t, w, []fixed.Vec3{
		fixed.V3(fixed.Zero, fixed.Zero, fixed.Zero),
		fixed.V3(fixed.FromFloat(1.5), fixed.Zero, fixed.Zero),
	})

	dt, _ := fixed.FromInt(1).Div(fixed.FromInt(30))
	if err := w.StepFrame(0, dt, frameWith(t, 0, 2)); err != nil {
		t.Fatalf("StepFrame: %v", err)
	}

	a, _, _ := w.Avatar(0)
	b, _, _ := w.Avatar(1)
	gap := b.X.Sub(a.X)
	if gap < fixed.FromFloat(1.99) {
		t.Fatalf("avatars still overlapping after resolution: gap %s", gap)
	}
	if a.X >= fixed.Zero || b.X <= fixed.FromFloat(1.5) {
		t.Fatalf("push was not symmetric: a=%s b=%s", a.X, b.X)
	}
}

func TestWorldAttack(t *testing.T) {
	w := testWorld(t, 2, 7)
	placeAvatars(t, w, []fixed.Vec3{
		fixed.V3(fixed.Zero, fixed.Zero, fixed.Zero),
		fixed.V3(fixed.FromInt(10), fixed.Zero, fixed.Zero),
	})
	dt, _ := fixed.FromInt(1).Div(fixed.FromInt(30))

	// Out of range: no damage.
	if err := w.StepFrame(0, dt, frameWith(t, 0, 2, attack(0, 1))); err != nil {
		t.Fatalf("StepFrame: %v", err)
	}
	if _, health, _ := w.Avatar(1); health != w.cfg.MaxHealth {
		t.Fatalf("out-of-range attack landed: health %d", health)
	}

	placeAvatars(t, w, []fixed.Vec3{
		fixed.V3(fixed.Zero, fixed.Zero, fixed.Zero),
		fixed.V3(fixed.FromInt(3), fixed.Zero, fixed.Zero),
	})
	if err := w.StepFrame(1, dt, frameWith(t, 1, 2, attack(0, 1))); err != nil {
		t.Fatalf("StepFrame: %v", err)
	}
	if _, health, _ := w.Avatar(1); health != w.cfg.MaxHealth-w.cfg.AttackDamage {
		t.Fatalf("in-range attack did not land: health %d", health)
	}

	// Self-attacks are ignored.
	if err := w.StepFrame(2, dt, frameWith(t, 2, 2, attack(0, 0))); err != nil {
		t.Fatalf("StepFrame: %v", err)
	}
	if _, health, _ := w.Avatar(0); health != w.cfg.MaxHealth {
		t.Fatalf("self-attack landed: health %d", health)
	}
}

func TestWorldSnapshotRoundTrip(t *testing.T) {
	w := testWorld(t, 3, 21)
	dt, _ := fixed.FromInt(1).Div(fixed.FromInt(30))
	fi := frameWith(t, 0, 3, moveTo(0, 5, 5), moveTo(2, -5, 3))
	if err := w.StepFrame(0, dt, fi); err != nil {
		t.Fatalf("StepFrame: %v", err)
	}

	snap, ok := w.CreateSnapshot(1)
	if !ok {
		t.Fatalf("CreateSnapshot refused")
	}
	want := w.FrameHash()

	// Scramble, then restore.
	empty := frameWith(t, 0, 3)
	for frame := uint64(1); frame < 20; frame++ {
		empty.Reset(frame)
		if err := w.StepFrame(frame, dt, empty); err != nil {
			t.Fatalf("StepFrame: %v", err)
		}
	}
	if err := w.RestoreSnapshot(snap); err != nil {
		t.Fatalf("RestoreSnapshot: %v", err)
	}
	if got := w.FrameHash(); got != want {
		t.Fatalf("restored hash %#x, want %#x", got, want)
	}
}

func TestWorldRestoreRejectsMalformedSnapshots(t *testing.T) {
	w := testWorld(t, 2, 21)
	before := w.FrameHash()

	if err := w.RestoreSnapshot(nil); err == nil {
		t.Fatalf("nil snapshot accepted")
	}
	bad := snapshot.New(0, 1)
	bad.Append(snapshot.EntityRecord{EntityID: 0, Data: []byte{1, 2, 3}})
	if err := w.RestoreSnapshot(bad); err == nil {
		t.Fatalf("truncated snapshot accepted")
	}
	if w.FrameHash() != before {
		t.Fatalf("failed restore mutated world state")
	}
}

// runScripted drives a scheduler-hosted arena through a deterministic
// input script and returns the sha256 over every frame hash.
func runScripted(t *testing.T, seed int64, frames uint64) string {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Seed = seed
	world, err := NewWorld(cfg)
	if err != nil {
		t.Fatalf("NewWorld: %v", err)
	}
	sched, err := lockstep.NewScheduler(lockstep.DefaultConfig(), world, lockstep.Deps{})
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}

	checksum := sha256.New()
	ctx := context.Background()
	var buf [8]byte
	for frame := uint64(0); frame < frames; frame++ {
		switch {
		case frame%5 == 0:
			if err := sched.SubmitPlayerInput(ctx, frame, moveTo(0, int64(frame%20), 10)); err != nil {
				t.Fatalf("submit: %v", err)
			}
		case frame%7 == 0:
			if err := sched.SubmitPlayerInput(ctx, frame, attack(1, 0)); err != nil {
				t.Fatalf("submit: %v", err)
			}
		}
		if err := sched.Step(ctx); err != nil {
			t.Fatalf("Step: %v", err)
		}
		binary.LittleEndian.PutUint64(buf[:], world.FrameHash())
		checksum.Write(buf[:])
	}
	return hex.EncodeToString(checksum.Sum(nil))
}

func TestWorldChecksumStable(t *testing.T) {
	first := runScripted(t, 12345, 200)
	second := runScripted(t, 12345, 200)
	if first != second {
		t.Fatalf("identical scripted runs diverged:\n%s\n%s", first, second)
	}
	other := runScripted(t, 54321, 200)
	if other == first {
		t.Fatalf("different seeds produced identical checksums")
	}
}

func TestWorldRollbackMatchesForwardRun(t *testing.T) {
	build := func() (*World, *lockstep.Scheduler) {
		cfg := DefaultConfig()
		cfg.Seed = 99
		world, err := NewWorld(cfg)
		if err != nil {
			t.Fatalf("NewWorld: %v", err)
		}
		sched, err := lockstep.NewScheduler(lockstep.DefaultConfig(), world, lockstep.Deps{})
		if err != nil {
			t.Fatalf("NewScheduler: %v", err)
		}
		return world, sched
	}

	ctx := context.Background()
	refWorld, refSched := build()
	for frame := uint64(0); frame < 60; frame++ {
		if frame%4 == 0 {
			if err := refSched.SubmitPlayerInput(ctx, frame, moveTo(1, -5, -5)); err != nil {
				t.Fatalf("submit: %v", err)
			}
		}
		if frame == 30 {
			if err := refSched.SubmitPlayerInput(ctx, frame, moveTo(0, 8, 8)); err != nil {
				t.Fatalf("submit: %v", err)
			}
		}
		if err := refSched.Step(ctx); err != nil {
			t.Fatalf("Step: %v", err)
		}
	}

	lateWorld, lateSched := build()
	for frame := uint64(0); frame < 60; frame++ {
		if frame%4 == 0 {
			if err := lateSched.SubmitPlayerInput(ctx, frame, moveTo(1, -5, -5)); err != nil {
				t.Fatalf("submit: %v", err)
			}
		}
		if frame == 45 {
			// The frame 30 input arrives 15 frames late and rewinds.
			if err := lateSched.SubmitPlayerInput(ctx, 30, moveTo(0, 8, 8)); err != nil {
				t.Fatalf("late submit: %v", err)
			}
		}
		if err := lateSched.Step(ctx); err != nil {
			t.Fatalf("Step: %v", err)
		}
	}

	if refWorld.FrameHash() != lateWorld.FrameHash() {
		t.Fatalf("rollback run diverged from forward run: %#x vs %#x", lateWorld.FrameHash(), refWorld.FrameHash())
	}
}
