package network

import (
	"context"

	"iron-and-ash/sim/logging"
)

const (
	// EventSessionJoined is emitted when a connection claims an input slot.
	EventSessionJoined logging.EventType = "network.session_joined"
	// EventSessionLeft is emitted when a session releases its slot.
	EventSessionLeft logging.EventType = "network.session_left"
	// EventSeqRegression is emitted when a client resends a command sequence
	// at or below its last acknowledged one.
	EventSeqRegression logging.EventType = "network.seq_regression"
)

// SessionPayload identifies a session and its input slot.
type SessionPayload struct {
	SessionID string `json:"sessionId"`
	PlayerID  int32  `json:"playerId"`
}

// SeqPayload captures command sequence progression details.
type SeqPayload struct {
	SessionID string `json:"sessionId"`
	LastAcked uint64 `json:"lastAcked"`
	Received  uint64 `json:"received"`
}

// SessionJoined publishes an info event when a session binds to a slot.
func SessionJoined(ctx context.Context, pub logging.Publisher, frame uint64, payload SessionPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSessionJoined,
		Frame:    frame,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryNetwork,
		Payload:  payload,
	})
}

// SessionLeft publishes an info event when a session releases its slot.
func SessionLeft(ctx context.Context, pub logging.Publisher, frame uint64, payload SessionPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSessionLeft,
		Frame:    frame,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryNetwork,
		Payload:  payload,
	})
}

// SeqRegression publishes a debug event when a client repeats or rewinds
// its command sequence. Duplicates are expected under client resends.
func SeqRegression(ctx context.Context, pub logging.Publisher, frame uint64, payload SeqPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSeqRegression,
		Frame:    frame,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryNetwork,
		Payload:  payload,
	})
}
