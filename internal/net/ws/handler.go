// Package ws terminates websocket clients for the local session host.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	nethttp "net/http"
	"time"

	"github.com/gorilla/websocket"

	"iron-and-ash/sim/internal/hub"
	"iron-and-ash/sim/internal/net/intake"
	"iron-and-ash/sim/internal/net/proto"
	"iron-and-ash/sim/internal/telemetry"
	"iron-and-ash/sim/logging"
	"iron-and-ash/sim/logging/network"
)

// HandlerConfig tunes the websocket endpoint.
type HandlerConfig struct {
	Logger    telemetry.Logger
	Publisher logging.Publisher
}

// Handler upgrades connections and pumps client messages into the hub.
type Handler struct {
	hub      *hub.Hub
	logger   telemetry.Logger
	pub      logging.Publisher
	upgrader websocket.Upgrader
}

// NewHandler constructs the websocket endpoint over the hub.
func NewHandler(h *hub.Hub, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.NopLogger()
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}

	return &Handler{
		hub:      h,
		logger:   logger,
		pub:      cfg.Publisher,
		upgrader: upgrader,
	}
}

// Handle serves one websocket client for the lifetime of its connection.
func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("[ws] upgrade failed: %v", err)
		return
	}

	session, err := h.hub.Subscribe(conn)
	if err != nil {
		reason := "session rejected"
		if errors.Is(err, hub.ErrSessionFull) {
			reason = proto.RejectSessionFull
		}
		message := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
		conn.WriteMessage(websocket.CloseMessage, message)
		conn.Close()
		return
	}
	defer h.hub.Disconnect(session.ID)

	if err := session.WriteJSON(h.hub.Welcome(session)); err != nil {
		return
	}

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg proto.ClientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			h.logger.Printf("[ws] discarding malformed message from %s: %v", session.ID, err)
			continue
		}

		switch msg.Type {
		case proto.TypeInput:
			if !h.handleInput(session, msg) {
				return
			}
		case proto.TypeHeartbeat:
			if !h.handleHeartbeat(session, msg) {
				return
			}
		case proto.TypeJoin:
			// Join is implicit in the upgrade; re-send the welcome for
			// clients that ask again after a reconnect.
			if err := session.WriteJSON(h.hub.Welcome(session)); err != nil {
				return
			}
		default:
			h.logger.Printf("[ws] unknown message type %q from %s", msg.Type, session.ID)
		}
	}
}

// handleInput validates and forwards one input message. It returns false
// when the session write path failed and the loop should end.
func (h *Handler) handleInput(session *hub.Session, msg proto.ClientMessage) bool {
	seq := uint64(0)
	if msg.Seq != nil {
		seq = *msg.Seq
	}
	if seq > 0 {
		if last := session.LastCommandSeq(); last > 0 && seq <= last {
			network.SeqRegression(context.Background(), h.pub, h.hub.Scheduler().CurrentFrame(), network.SeqPayload{
				SessionID: session.ID,
				LastAcked: last,
				Received:  seq,
			})
			ack := proto.InputAckMessage{Ver: proto.ProtocolVersion, Type: proto.TypeInputAck, Seq: seq}
			return session.WriteJSON(ack) == nil
		}
	}

	in, err := intake.PlayerInput(session.PlayerID, msg.Actions)
	if err != nil {
		h.logger.Printf("[ws] rejecting input from %s: %v", session.ID, err)
		if seq == 0 {
			return true
		}
		reject := proto.InputRejectMessage{
			Ver:    proto.ProtocolVersion,
			Type:   proto.TypeInputReject,
			Seq:    seq,
			Reason: intake.RejectReason(err),
		}
		return session.WriteJSON(reject) == nil
	}

	h.hub.SubmitInput(session, msg.Frame, in, seq)
	return true
}

func (h *Handler) handleHeartbeat(session *hub.Session, msg proto.ClientMessage) bool {
	now := time.Now()
	ack := proto.HeartbeatMessage{
		Ver:        proto.ProtocolVersion,
		Type:       proto.TypeHeartbeat,
		ServerTime: now.UnixMilli(),
		ClientTime: msg.SentAt,
	}
	if msg.SentAt > 0 {
		ack.RTTMillis = now.UnixMilli() - msg.SentAt
	}
	return session.WriteJSON(ack) == nil
}
