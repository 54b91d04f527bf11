// Package proto defines the JSON wire messages between the session host
// and its clients. Positions travel as raw fixed-point integers; the wire
// never carries floats that could round differently per platform.
package proto

// ProtocolVersion is bumped on incompatible wire changes.
const ProtocolVersion = 1

// Client message types.
const (
	TypeJoin      = "join"
	TypeInput     = "input"
	TypeHeartbeat = "heartbeat"
)

// Server message types.
const (
	TypeWelcome     = "welcome"
	TypeInputAck    = "inputAck"
	TypeInputReject = "inputReject"
	TypeFrame       = "frame"
	TypeError       = "error"
)

// Reject reasons for inputReject messages.
const (
	RejectMalformed      = "malformed"
	RejectUnknownPlayer  = "unknown_player"
	RejectTooManyActions = "too_many_actions"
	RejectStaleFrame     = "stale_frame"
	RejectSessionFull    = "session_full"
)

// WireAction is one action as transmitted. Target coordinates are raw
// fixed-point integers.
type WireAction struct {
	Type           uint8 `json:"type"`
	TargetEntityID int64 `json:"targetEntityId,omitempty"`
	TargetX        int64 `json:"targetX,omitempty"`
	TargetY        int64 `json:"targetY,omitempty"`
	TargetZ        int64 `json:"targetZ,omitempty"`
	SkillSlot      int32 `json:"skillSlot,omitempty"`
}

// ClientMessage is the union of everything a client sends.
type ClientMessage struct {
	Ver     int          `json:"ver,omitempty"`
	Type    string       `json:"type"`
	Seq     *uint64      `json:"seq,omitempty"`
	Frame   *uint64      `json:"frame,omitempty"`
	Actions []WireAction `json:"actions,omitempty"`
	SentAt  int64        `json:"sentAt,omitempty"`
}

// WelcomeMessage confirms a join and assigns the input slot.
type WelcomeMessage struct {
	Ver         int    `json:"ver"`
	Type        string `json:"type"`
	SessionID   string `json:"sessionId"`
	PlayerID    int32  `json:"playerId"`
	TickRate    int    `json:"tickRate"`
	PlayerCount int    `json:"playerCount"`
	Frame       uint64 `json:"frame"`
}

// InputAckMessage confirms an accepted input and the frame it bound to.
type InputAckMessage struct {
	Ver   int    `json:"ver"`
	Type  string `json:"type"`
	Seq   uint64 `json:"seq"`
	Frame uint64 `json:"frame"`
}

// InputRejectMessage reports a refused input.
type InputRejectMessage struct {
	Ver    int    `json:"ver"`
	Type   string `json:"type"`
	Seq    uint64 `json:"seq"`
	Reason string `json:"reason"`
	Retry  bool   `json:"retry,omitempty"`
}

// FrameMessage announces a completed frame and its state hash so clients
// can detect desync against their own prediction.
type FrameMessage struct {
	Ver   int    `json:"ver"`
	Type  string `json:"type"`
	Frame uint64 `json:"frame"`
	Hash  uint64 `json:"hash,omitempty"`
}

// HeartbeatMessage echoes timing so clients can estimate RTT.
type HeartbeatMessage struct {
	Ver        int    `json:"ver"`
	Type       string `json:"type"`
	ServerTime int64  `json:"serverTime"`
	ClientTime int64  `json:"clientTime"`
	RTTMillis  int64  `json:"rtt"`
}

// ErrorMessage carries a session-fatal failure before close.
type ErrorMessage struct {
	Ver     int    `json:"ver"`
	Type    string `json:"type"`
	Message string `json:"message"`
}
