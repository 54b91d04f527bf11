package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"iron-and-ash/sim/internal/fixed"
	"iron-and-ash/sim/internal/hub"
	"iron-and-ash/sim/internal/input"
	"iron-and-ash/sim/internal/lockstep"
	"iron-and-ash/sim/internal/net/proto"
	"iron-and-ash/sim/internal/snapshot"
)

// nullSim accepts every frame without mutating anything.
type nullSim struct{}

func (nullSim) StepFrame(frame uint64, dt fixed.Scalar, in *input.FrameInput) error { return nil }

func (nullSim) CreateSnapshot(frame uint64) (*snapshot.Snapshot, bool) {
	snap := snapshot.New(frame, 0)
	snap.Stamp()
	return snap, true
}

func (nullSim) RestoreSnapshot(snap *snapshot.Snapshot) error { return nil }

func testHub(t *testing.T, players int) *hub.Hub {
	t.Helper()
	cfg := hub.DefaultConfig()
	cfg.Lockstep.TickRate = 10
	cfg.Lockstep.PlayerCount = players
	cfg.SimulatedDelay = 0
	cfg.RecordReplay = false
	h, err := hub.NewHub(cfg, nullSim{}, lockstep.Deps{})
	if err != nil {
		t.Fatalf("NewHub: %v", err)
	}
	return h
}

func dial(t *testing.T, baseURL string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(websocketURL(t, baseURL), nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		t.Fatalf("failed to open websocket connection: %v", err)
	}
	t.Cleanup(func() {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
		if resp != nil {
			resp.Body.Close()
		}
	})
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func websocketURL(t *testing.T, baseURL string) string {
	t.Helper()
	parsed, err := url.Parse(baseURL)
	if err != nil {
		t.Fatalf("failed to parse test server url: %v", err)
	}
	parsed.Scheme = "ws"
	parsed.Path = "/"
	return parsed.String()
}

// readUntil reads messages until one matches the wanted type.
func readUntil(t *testing.T, conn *websocket.Conn, msgType string) map[string]any {
	t.Helper()
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read while waiting for %q: %v", msgType, err)
		}
		var decoded map[string]any
		if err := json.Unmarshal(payload, &decoded); err != nil {
			t.Fatalf("failed to decode websocket payload: %v", err)
		}
		if decoded["type"] == msgType {
			return decoded
		}
	}
}

func TestHandleSendsWelcome(t *testing.T) {
	h := testHub(t, 2)
	handler := NewHandler(h, HandlerConfig{})
	srv := httptest.NewServer(http.HandlerFunc(handler.Handle))
	t.Cleanup(srv.Close)

	conn := dial(t, srv.URL)
	welcome := readUntil(t, conn, proto.TypeWelcome)
	if got := welcome["playerId"].(float64); got != 0 {
		t.Fatalf("welcome playerId = %v, want 0", got)
	}
	if got := welcome["tickRate"].(float64); got != 10 {
		t.Fatalf("welcome tickRate = %v, want 10", got)
	}
	if welcome["sessionId"].(string) == "" {
		t.Fatal("welcome carries empty session id")
	}
}

func TestHandleClosesWhenSessionFull(t *testing.T) {
	h := testHub(t, 1)
	handler := NewHandler(h, HandlerConfig{})
	srv := httptest.NewServer(http.HandlerFunc(handler.Handle))
	t.Cleanup(srv.Close)

	first := dial(t, srv.URL)
	readUntil(t, first, proto.TypeWelcome)

	second := dial(t, srv.URL)
	for {
		if _, _, err := second.ReadMessage(); err != nil {
			if closeErr, ok := err.(*websocket.CloseError); ok {
				if closeErr.Code != websocket.ClosePolicyViolation {
					t.Fatalf("close code = %d, want policy violation", closeErr.Code)
				}
			}
			return
		}
	}
}

func TestHandleAcksInput(t *testing.T) {
	h := testHub(t, 1)
	handler := NewHandler(h, HandlerConfig{})
	srv := httptest.NewServer(http.HandlerFunc(handler.Handle))
	t.Cleanup(srv.Close)

	conn := dial(t, srv.URL)
	readUntil(t, conn, proto.TypeWelcome)

	seq := uint64(1)
	msg := proto.ClientMessage{
		Ver:  proto.ProtocolVersion,
		Type: proto.TypeInput,
		Seq:  &seq,
		Actions: []proto.WireAction{
			{Type: uint8(input.ActionMove), TargetX: 2_000_000},
		},
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write input: %v", err)
	}

	// The read loop enqueues the input asynchronously; ticks with no
	// elapsed time deliver it without executing a frame.
	stopTicking := make(chan struct{})
	defer close(stopTicking)
	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stopTicking:
				return
			case <-ticker.C:
				h.Tick(context.Background(), 0)
			}
		}
	}()

	ack := readUntil(t, conn, proto.TypeInputAck)
	if got := ack["seq"].(float64); got != 1 {
		t.Fatalf("ack seq = %v, want 1", got)
	}
}

func TestHandleRejectsMalformedInput(t *testing.T) {
	h := testHub(t, 1)
	handler := NewHandler(h, HandlerConfig{})
	srv := httptest.NewServer(http.HandlerFunc(handler.Handle))
	t.Cleanup(srv.Close)

	conn := dial(t, srv.URL)
	readUntil(t, conn, proto.TypeWelcome)

	seq := uint64(3)
	msg := proto.ClientMessage{
		Ver:  proto.ProtocolVersion,
		Type: proto.TypeInput,
		Seq:  &seq,
		Actions: []proto.WireAction{
			{Type: 250},
		},
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write input: %v", err)
	}

	reject := readUntil(t, conn, proto.TypeInputReject)
	if got := reject["seq"].(float64); got != 3 {
		t.Fatalf("reject seq = %v, want 3", got)
	}
	if got := reject["reason"].(string); got != proto.RejectMalformed {
		t.Fatalf("reject reason = %q, want %q", got, proto.RejectMalformed)
	}
}

func TestHandleHeartbeat(t *testing.T) {
	h := testHub(t, 1)
	handler := NewHandler(h, HandlerConfig{})
	srv := httptest.NewServer(http.HandlerFunc(handler.Handle))
	t.Cleanup(srv.Close)

	conn := dial(t, srv.URL)
	readUntil(t, conn, proto.TypeWelcome)

	msg := proto.ClientMessage{
		Ver:    proto.ProtocolVersion,
		Type:   proto.TypeHeartbeat,
		SentAt: time.Now().UnixMilli(),
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write heartbeat: %v", err)
	}

	pong := readUntil(t, conn, proto.TypeHeartbeat)
	if pong["serverTime"].(float64) <= 0 {
		t.Fatal("heartbeat reply carries no server time")
	}
}
