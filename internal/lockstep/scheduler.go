package lockstep

import (
	"context"
	"errors"
	"fmt"
	"time"

	"iron-and-ash/sim/internal/fixed"
	"iron-and-ash/sim/internal/input"
	"iron-and-ash/sim/internal/snapshot"
	"iron-and-ash/sim/internal/telemetry"
	"iron-and-ash/sim/logging"
	lockstepevents "iron-and-ash/sim/logging/lockstep"
)

const (
	metricFramesTotal       = "lockstep_frames_total"
	metricFramesDropped     = "lockstep_frames_dropped_total"
	metricFramesSynthesized = "lockstep_frames_synthesized_total"
	metricSyncErrors        = "lockstep_sync_errors_total"
	metricCurrentFrame      = "lockstep_current_frame"
)

// ErrLateInput reports an input that targets an already executed frame when
// rollback is disabled or the frame is beyond the rewind window.
var ErrLateInput = errors.New("lockstep: input frame already executed")

// Simulation is the state owner driven by the scheduler. StepFrame must be
// deterministic: the same frame, delta and input always produce the same
// state. CreateSnapshot returns false when the owner cannot capture state
// this frame; RestoreSnapshot must either fully apply the snapshot or leave
// state untouched and return an error.
type Simulation interface {
	StepFrame(frame uint64, dt fixed.Scalar, in *input.FrameInput) error
	CreateSnapshot(frame uint64) (*snapshot.Snapshot, bool)
	RestoreSnapshot(snap *snapshot.Snapshot) error
}

// FrameHasher is optionally implemented by simulations that can produce a
// cheap per-frame state digest for desync detection.
type FrameHasher interface {
	FrameHash() uint64
}

// Deps carries the scheduler's ambient collaborators. Zero fields fall
// back to no-op implementations.
type Deps struct {
	Logger    telemetry.Logger
	Metrics   telemetry.Metrics
	Publisher logging.Publisher
	Clock     logging.Clock
}

func (d Deps) normalized() Deps {
	if d.Logger == nil {
		d.Logger = telemetry.NopLogger()
	}
	if d.Metrics == nil {
		d.Metrics = telemetry.NopMetrics()
	}
	if d.Publisher == nil {
		d.Publisher = logging.NopPublisher()
	}
	if d.Clock == nil {
		d.Clock = logging.SystemClock{}
	}
	return d
}

// Scheduler owns frame progression for one deterministic session. It is
// not synchronized; the hosting layer serializes access.
type Scheduler struct {
	cfg     Config
	deps    Deps
	sim     Simulation
	buffer  *input.Buffer
	store   *snapshot.Store
	journal *journal

	current     uint64
	dt          fixed.Scalar
	accumulator time.Duration
	scratch     *input.FrameInput
	observer    FrameObserver
}

// FrameObserver receives every executed frame's record and the state hash
// the simulation reported for it (zero when the simulation does not hash).
// Hosting layers use it for replay recording and hash broadcasting.
type FrameObserver func(rec FrameRecord, stateHash uint64)

// NewScheduler wires a scheduler over the simulation.
func NewScheduler(cfg Config, sim Simulation, deps Deps) (*Scheduler, error) {
	if sim == nil {
		return nil, errors.New("lockstep: simulation is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	deps = deps.normalized()
	dt, err := fixed.FromInt(1).Div(fixed.FromInt(int64(cfg.TickRate)))
	if err != nil {
		return nil, fmt.Errorf("lockstep: derive frame delta: %w", err)
	}
	journalCap := int(cfg.MaxRollbackFrames + cfg.SnapshotInterval)
	if journalCap <= 0 {
		journalCap = 1
	}
	s := &Scheduler{
		cfg:     cfg,
		deps:    deps,
		sim:     sim,
		buffer:  input.NewBuffer(cfg.PlayerCount, cfg.InputBufferFrames, deps.Logger, deps.Metrics),
		store:   snapshot.NewStore(cfg.SnapshotCapacity, cfg.SnapshotInterval, deps.Metrics),
		journal: newJournal(journalCap, deps.Metrics),
		dt:      dt,
		scratch: input.NewFrameInput(0, cfg.PlayerCount),
	}
	s.store.SetClock(deps.Clock.Now)
	return s, nil
}

// CurrentFrame is the next frame to execute.
func (s *Scheduler) CurrentFrame() uint64 {
	return s.current
}

// FrameDelta is the fixed-point seconds-per-frame the simulation steps by.
func (s *Scheduler) FrameDelta() fixed.Scalar {
	return s.dt
}

// Buffer exposes the input buffer for inspection.
func (s *Scheduler) Buffer() *input.Buffer {
	return s.buffer
}

// Snapshots exposes the snapshot store for inspection.
func (s *Scheduler) Snapshots() *snapshot.Store {
	return s.store
}

// History returns the retained execution records covering [from, to), for
// desync forensics. Records evicted from the journal window are gone.
func (s *Scheduler) History(from, to uint64) []FrameRecord {
	return s.journal.slice(from, to)
}

// SetFrameObserver installs the per-frame observer. The observer runs
// inside the frame path and must not re-enter the scheduler.
func (s *Scheduler) SetFrameObserver(fn FrameObserver) {
	s.observer = fn
}

// Advance converts elapsed wall time into frame executions. When the
// backlog exceeds the catch-up clamp the surplus time is dropped rather
// than spiraling, matching the fixed-timestep loop convention.
func (s *Scheduler) Advance(ctx context.Context, elapsed time.Duration) (int, error) {
	if elapsed < 0 {
		elapsed = 0
	}
	s.accumulator += elapsed
	frameDur := s.cfg.FrameDuration()
	steps := int(s.accumulator / frameDur)
	if steps <= 0 {
		return 0, nil
	}
	if steps > s.cfg.CatchupMaxFrames {
		dropped := steps - s.cfg.CatchupMaxFrames
		steps = s.cfg.CatchupMaxFrames
		s.accumulator = 0
		s.deps.Metrics.Add(metricFramesDropped, uint64(dropped))
		s.deps.Logger.Printf("[lockstep] catch-up clamp dropped %d frames", dropped)
	} else {
		s.accumulator -= time.Duration(steps) * frameDur
	}
	executed := 0
	for i := 0; i < steps; i++ {
		if err := s.Step(ctx); err != nil {
			return executed, err
		}
		executed++
	}
	return executed, nil
}

// Step executes exactly one frame.
func (s *Scheduler) Step(ctx context.Context) error {
	return s.executeFrame(ctx)
}

// SubmitInput schedules a locally captured input for the configured lead
// ahead of the executing frame and returns the frame it was bound to.
func (s *Scheduler) SubmitInput(ctx context.Context, in *input.PlayerInput) (uint64, error) {
	if in == nil {
		return 0, errors.New("lockstep: nil input")
	}
	frame := s.current + s.cfg.InputLeadFrames
	if err := s.SubmitPlayerInput(ctx, frame, in); err != nil {
		return 0, err
	}
	return frame, nil
}

// SubmitPlayerInput binds one player's input to an explicit frame. Inputs
// for already executed frames trigger a rewind when rollback is enabled
// and the frame is inside the window; otherwise they are rejected with
// ErrLateInput.
func (s *Scheduler) SubmitPlayerInput(ctx context.Context, frame uint64, in *input.PlayerInput) error {
	if in == nil {
		return errors.New("lockstep: nil input")
	}
	if frame >= s.current {
		if err := s.buffer.AddPlayerInput(frame, in); err != nil {
			return err
		}
		lockstepevents.InputReceived(ctx, s.deps.Publisher, frame, lockstepevents.InputReceivedPayload{
			PlayerID: int(in.PlayerID),
			Actions:  len(in.Actions),
		})
		return nil
	}
	if !s.cfg.AllowRollback {
		return fmt.Errorf("frame %d behind current %d: %w", frame, s.current, ErrLateInput)
	}
	if s.current-frame > s.cfg.MaxRollbackFrames {
		return fmt.Errorf("frame %d exceeds rollback window of %d: %w", frame, s.cfg.MaxRollbackFrames, ErrLateInput)
	}
	lockstepevents.InputReceived(ctx, s.deps.Publisher, frame, lockstepevents.InputReceivedPayload{
		PlayerID: int(in.PlayerID),
		Actions:  len(in.Actions),
		Late:     true,
	})
	return s.rollbackTo(ctx, frame, func() error {
		return s.buffer.AddPlayerInput(frame, in)
	})
}

// executeFrame runs the next frame end to end: snapshot (on stride), input
// binding, the simulation callback, journaling and confirmation. Callback
// failures surface as sync-error events; bookkeeping still completes so
// the session can keep advancing.
func (s *Scheduler) executeFrame(ctx context.Context) error {
	frame := s.current
	status := FrameWaitingForInput

	if s.store.ShouldSnapshot(frame) {
		s.captureSnapshot(ctx, frame)
	}

	fi, ok := s.buffer.Input(frame)
	synthesized := false
	if !ok {
		s.scratch.Reset(frame)
		fi = s.scratch
		synthesized = true
		s.deps.Metrics.Add(metricFramesSynthesized, 1)
	}
	status, _ = status.transition(FrameReady)

	lockstepevents.FrameStarted(ctx, s.deps.Publisher, frame)
	status, _ = status.transition(FrameExecuting)

	stepErr := s.step(frame, fi)
	if stepErr != nil {
		s.deps.Metrics.Add(metricSyncErrors, 1)
		s.deps.Logger.Printf("[lockstep] frame %d callback failed: %v", frame, stepErr)
		lockstepevents.SyncError(ctx, s.deps.Publisher, frame, lockstepevents.SyncErrorPayload{
			Stage:   "step",
			Message: stepErr.Error(),
		})
	}
	status, _ = status.transition(FrameCompleted)

	rec := FrameRecord{
		Frame:       frame,
		Status:      status,
		Input:       fi.Clone(),
		Synthesized: synthesized,
	}
	s.journal.record(rec)

	payload := lockstepevents.FrameCompletedPayload{InputComplete: fi.Complete()}
	if hasher, ok := s.sim.(FrameHasher); ok {
		payload.StateHash = hasher.FrameHash()
	}
	lockstepevents.FrameCompleted(ctx, s.deps.Publisher, frame, payload)
	if s.observer != nil {
		s.observer(rec, payload.StateHash)
	}

	s.buffer.ConfirmFrame(frame)
	s.current = frame + 1
	s.deps.Metrics.Add(metricFramesTotal, 1)
	s.deps.Metrics.Store(metricCurrentFrame, s.current)
	return nil
}

// step invokes the simulation callback with panic containment. A panic in
// the callback is reported as an error instead of unwinding the session.
func (s *Scheduler) step(frame uint64, fi *input.FrameInput) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lockstep: frame %d panicked: %v", frame, r)
		}
	}()
	return s.sim.StepFrame(frame, s.dt, fi)
}

func (s *Scheduler) captureSnapshot(ctx context.Context, frame uint64) {
	snap, ok := s.sim.CreateSnapshot(frame)
	if !ok || snap == nil {
		return
	}
	snap.Frame = frame
	s.store.Save(snap)
	stored, _ := s.store.GetNearest(frame)
	payload := lockstepevents.SnapshotSavedPayload{
		Entities: len(snap.Entities),
		Stored:   s.store.Count(),
	}
	if stored != nil {
		payload.Hash = stored.Hash
	}
	lockstepevents.SnapshotSaved(ctx, s.deps.Publisher, frame, payload)
}
