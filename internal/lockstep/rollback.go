package lockstep

import (
	"context"
	"errors"
	"fmt"

	lockstepevents "iron-and-ash/sim/logging/lockstep"
)

const (
	metricRollbacks      = "lockstep_rollbacks_total"
	metricReplayedFrames = "lockstep_replayed_frames_total"
)

var (
	// ErrNoSnapshot reports that no stored snapshot covers the rollback
	// target. Session state is left untouched.
	ErrNoSnapshot = errors.New("lockstep: no snapshot at or before target frame")
	// ErrHistoryGap reports that the history journal no longer retains
	// the inputs needed to replay from the restore point.
	ErrHistoryGap = errors.New("lockstep: input history missing for replay range")
	// ErrFutureFrame reports a rollback target that has not executed yet.
	ErrFutureFrame = errors.New("lockstep: cannot roll back to a future frame")
)

// RollbackTo rewinds the session so that target is the next frame to
// execute again, then re-simulates every frame up to where the session was
// before the call. On any failure the session state is left exactly as it
// was.
func (s *Scheduler) RollbackTo(ctx context.Context, target uint64) error {
	return s.rollbackTo(ctx, target, nil)
}

// rollbackTo restores the nearest snapshot at or before target, repopulates
// the input buffer from the journal, applies the caller's injection (the
// late input that triggered the rewind) and replays to the original frame.
// All validation happens before any state mutates.
func (s *Scheduler) rollbackTo(ctx context.Context, target uint64, inject func() error) error {
	if !s.cfg.AllowRollback {
		return errors.New("lockstep: rollback disabled")
	}
	if target > s.current {
		return fmt.Errorf("target %d beyond current %d: %w", target, s.current, ErrFutureFrame)
	}
	resumeAt := s.current

	snap, ok := s.store.GetNearest(target)
	if !ok {
		return fmt.Errorf("target %d: %w", target, ErrNoSnapshot)
	}
	if !s.journal.covers(snap.Frame, resumeAt) {
		return fmt.Errorf("need frames [%d, %d): %w", snap.Frame, resumeAt, ErrHistoryGap)
	}
	retained := s.journal.slice(snap.Frame, resumeAt)
	// Accepted look-ahead inputs for frames the session has not executed yet
	// live only in the buffer; save them before the reset wipes them.
	pending := s.buffer.PendingFrom(resumeAt)

	lockstepevents.RollbackStarted(ctx, s.deps.Publisher, resumeAt, lockstepevents.RollbackPayload{
		TargetFrame:   target,
		RestoredFrame: snap.Frame,
	})

	if err := s.sim.RestoreSnapshot(snap); err != nil {
		return fmt.Errorf("lockstep: restore snapshot %d: %w", snap.Frame, err)
	}

	// Past this point the old timeline is gone; rebuild the buffer from
	// the journaled inputs and re-execute deterministically.
	s.store.RemoveAfter(snap.Frame)
	s.buffer.ResetToFrame(snap.Frame)
	for _, rec := range retained {
		if rec.Synthesized {
			continue
		}
		if err := s.buffer.AddFrameInput(rec.Input.Clone()); err != nil {
			s.deps.Logger.Printf("[lockstep] rollback resubmit frame %d: %v", rec.Frame, err)
		}
	}
	for _, fi := range pending {
		if err := s.buffer.AddFrameInput(fi); err != nil {
			s.deps.Logger.Printf("[lockstep] rollback restore pending frame %d: %v", fi.Frame, err)
		}
	}
	s.journal.rewindTo(snap.Frame)
	s.current = snap.Frame

	if inject != nil {
		if err := inject(); err != nil {
			s.deps.Logger.Printf("[lockstep] rollback inject: %v", err)
		}
	}

	replayed := uint64(0)
	for s.current < resumeAt {
		if err := s.executeFrame(ctxOrBackground(ctx)); err != nil {
			return err
		}
		replayed++
	}
	s.deps.Metrics.Add(metricRollbacks, 1)
	s.deps.Metrics.Add(metricReplayedFrames, replayed)
	lockstepevents.RollbackCompleted(ctx, s.deps.Publisher, s.current, lockstepevents.RollbackPayload{
		TargetFrame:   target,
		RestoredFrame: snap.Frame,
		Replayed:      replayed,
	})
	return nil
}

func ctxOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
