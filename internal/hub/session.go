package hub

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

// Conn is the subset of a websocket connection the hub writes to.
// *websocket.Conn satisfies it; tests substitute a recorder.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Session is one connected client bound to an input slot. Writes are
// serialized by a per-session mutex because the hub tick and the read
// loop both send.
type Session struct {
	ID       string
	PlayerID int32

	mu      sync.Mutex
	conn    Conn
	lastSeq atomic.Uint64
	closed  bool
}

func newSession(id string, playerID int32, conn Conn) *Session {
	return &Session{ID: id, PlayerID: playerID, conn: conn}
}

// WriteJSON marshals and sends a message on the session connection.
func (s *Session) WriteJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return websocket.ErrCloseSent
	}
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// LastCommandSeq reports the newest acknowledged client sequence.
func (s *Session) LastCommandSeq() uint64 {
	return s.lastSeq.Load()
}

// StoreLastCommandSeq records an acknowledged client sequence.
func (s *Session) StoreLastCommandSeq(seq uint64) {
	s.lastSeq.Store(seq)
}

func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.conn.Close()
}
