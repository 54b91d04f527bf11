package lockstep

import (
	"context"

	"iron-and-ash/sim/logging"
)

const (
	// EventFrameStarted is emitted when the scheduler begins executing a frame.
	EventFrameStarted logging.EventType = "lockstep.frame_started"
	// EventFrameCompleted is emitted after a frame finishes executing.
	EventFrameCompleted logging.EventType = "lockstep.frame_completed"
	// EventInputReceived is emitted when player input is accepted into the buffer.
	EventInputReceived logging.EventType = "lockstep.input_received"
	// EventSnapshotSaved is emitted when a state snapshot is written to the store.
	EventSnapshotSaved logging.EventType = "lockstep.snapshot_saved"
	// EventRollbackStarted is emitted when the scheduler begins rewinding state.
	EventRollbackStarted logging.EventType = "lockstep.rollback_started"
	// EventRollbackCompleted is emitted after state has been rewound and re-simulated.
	EventRollbackCompleted logging.EventType = "lockstep.rollback_completed"
	// EventSyncError is emitted when a frame callback fails or panics.
	EventSyncError logging.EventType = "lockstep.sync_error"
)

// FrameStarted publishes a debug event as a frame begins.
func FrameStarted(ctx context.Context, pub logging.Publisher, frame uint64) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventFrameStarted,
		Frame:    frame,
		Severity: logging.SeverityDebug,
		Category: logging.CategorySimulation,
	})
}

// FrameCompletedPayload carries post-frame bookkeeping details.
type FrameCompletedPayload struct {
	InputComplete bool   `json:"inputComplete"`
	StateHash     uint64 `json:"stateHash,omitempty"`
}

// FrameCompleted publishes a debug event after a frame finishes.
func FrameCompleted(ctx context.Context, pub logging.Publisher, frame uint64, payload FrameCompletedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventFrameCompleted,
		Frame:    frame,
		Severity: logging.SeverityDebug,
		Category: logging.CategorySimulation,
		Payload:  payload,
	})
}

// InputReceivedPayload identifies the accepted input.
type InputReceivedPayload struct {
	PlayerID int     `json:"playerId"`
	Actions  int     `json:"actions"`
	Late     bool    `json:"late,omitempty"`
	Delay    float64 `json:"delayMillis,omitempty"`
}

// InputReceived publishes a debug event when input lands in the buffer.
func InputReceived(ctx context.Context, pub logging.Publisher, frame uint64, payload InputReceivedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventInputReceived,
		Frame:    frame,
		Severity: logging.SeverityDebug,
		Category: logging.CategorySimulation,
		Payload:  payload,
	})
}

// SnapshotSavedPayload records where the snapshot landed.
type SnapshotSavedPayload struct {
	Entities int    `json:"entities"`
	Hash     uint64 `json:"hash"`
	Stored   int    `json:"stored"`
}

// SnapshotSaved publishes an info event when a snapshot is persisted.
func SnapshotSaved(ctx context.Context, pub logging.Publisher, frame uint64, payload SnapshotSavedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSnapshotSaved,
		Frame:    frame,
		Severity: logging.SeverityInfo,
		Category: logging.CategorySimulation,
		Payload:  payload,
	})
}

// RollbackPayload describes a rewind in progress or completed.
type RollbackPayload struct {
	TargetFrame   uint64 `json:"targetFrame"`
	RestoredFrame uint64 `json:"restoredFrame"`
	Replayed      uint64 `json:"replayed,omitempty"`
}

// RollbackStarted publishes a warn event when the scheduler begins rewinding.
func RollbackStarted(ctx context.Context, pub logging.Publisher, frame uint64, payload RollbackPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventRollbackStarted,
		Frame:    frame,
		Severity: logging.SeverityWarn,
		Category: logging.CategorySimulation,
		Payload:  payload,
	})
}

// RollbackCompleted publishes an info event after re-simulation catches up.
func RollbackCompleted(ctx context.Context, pub logging.Publisher, frame uint64, payload RollbackPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventRollbackCompleted,
		Frame:    frame,
		Severity: logging.SeverityInfo,
		Category: logging.CategorySimulation,
		Payload:  payload,
	})
}

// SyncErrorPayload carries the failure surfaced by a frame callback.
type SyncErrorPayload struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// SyncError publishes an error event when frame execution fails.
func SyncError(ctx context.Context, pub logging.Publisher, frame uint64, payload SyncErrorPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSyncError,
		Frame:    frame,
		Severity: logging.SeverityError,
		Category: logging.CategorySimulation,
		Payload:  payload,
	})
}
