// Package hub hosts one lockstep session: it owns the scheduler, accepts
// client sessions, funnels their inputs through the simulated-delay queue
// and broadcasts completed frames. It is the local server harness used to
// exercise the deterministic core under realistic latency without a real
// network.
package hub

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"iron-and-ash/sim/internal/input"
	"iron-and-ash/sim/internal/latency"
	"iron-and-ash/sim/internal/lockstep"
	"iron-and-ash/sim/internal/net/proto"
	"iron-and-ash/sim/internal/replay"
	"iron-and-ash/sim/internal/telemetry"
	"iron-and-ash/sim/logging"
	"iron-and-ash/sim/logging/network"
)

const (
	metricSessionsActive  = "hub_sessions_active"
	metricInputsDelivered = "hub_inputs_delivered_total"
	metricInputsRejected  = "hub_inputs_rejected_total"
	metricDelayQueueLen   = "hub_delay_queue_len"
)

// ErrSessionFull reports that every input slot is taken.
var ErrSessionFull = errors.New("hub: all player slots are occupied")

// Config tunes the session host.
type Config struct {
	Lockstep lockstep.Config
	// SimulatedDelay holds every inbound input for this long before the
	// scheduler sees it, modeling network latency locally.
	SimulatedDelay time.Duration
	// DelayJitter adds up to this much extra randomized delay per input.
	DelayJitter time.Duration
	// RecordReplay enables capturing the session into a replay record.
	RecordReplay bool
	// Seed is the deterministic generator seed recorded for replays.
	Seed int64
}

// DefaultConfig is a local two-player harness with 80ms simulated delay.
func DefaultConfig() Config {
	return Config{
		Lockstep:       lockstep.DefaultConfig(),
		SimulatedDelay: 80 * time.Millisecond,
		RecordReplay:   true,
	}
}

type pendingInput struct {
	session *Session
	frame   *uint64
	in      *input.PlayerInput
	seq     uint64
}

// Hub serializes all access to the scheduler behind one mutex; the
// scheduler itself is single-threaded by contract.
type Hub struct {
	mu       sync.Mutex
	cfg      Config
	sched    *lockstep.Scheduler
	deps     lockstep.Deps
	delay    *latency.Queue
	sessions map[string]*Session
	slots    []*Session
	record   *replay.Record
	recIndex map[uint64]int
	lastTick time.Time
}

// NewHub wires a hub over the simulation.
func NewHub(cfg Config, sim lockstep.Simulation, deps lockstep.Deps) (*Hub, error) {
	sched, err := lockstep.NewScheduler(cfg.Lockstep, sim, deps)
	if err != nil {
		return nil, err
	}
	if deps.Clock == nil {
		deps.Clock = logging.SystemClock{}
	}
	if deps.Metrics == nil {
		deps.Metrics = telemetry.NopMetrics()
	}
	if deps.Logger == nil {
		deps.Logger = telemetry.NopLogger()
	}
	h := &Hub{
		cfg:      cfg,
		sched:    sched,
		deps:     deps,
		delay:    latency.NewQueue(cfg.SimulatedDelay, deps.Clock),
		sessions: make(map[string]*Session),
		slots:    make([]*Session, cfg.Lockstep.PlayerCount),
	}
	if cfg.DelayJitter > 0 {
		h.delay.SetJitter(cfg.DelayJitter)
	}
	if cfg.RecordReplay {
		h.record = replay.NewRecord(cfg.Seed, replay.SettingsFromConfig(cfg.Lockstep))
		h.recIndex = make(map[uint64]int)
	}
	sched.SetFrameObserver(h.observeFrame)
	return h, nil
}

// Scheduler exposes the underlying scheduler for inspection.
func (h *Hub) Scheduler() *lockstep.Scheduler {
	return h.sched
}

// Subscribe binds a connection to the lowest free input slot.
func (h *Hub) Subscribe(conn Conn) (*Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	slot := int32(-1)
	for i, existing := range h.slots {
		if existing == nil {
			slot = int32(i)
			break
		}
	}
	if slot < 0 {
		return nil, ErrSessionFull
	}
	session := newSession(uuid.NewString(), slot, conn)
	h.slots[slot] = session
	h.sessions[session.ID] = session
	h.deps.Metrics.Store(metricSessionsActive, uint64(len(h.sessions)))
	h.deps.Logger.Printf("[hub] session %s joined slot %d", session.ID, slot)
	network.SessionJoined(context.Background(), h.deps.Publisher, h.sched.CurrentFrame(), network.SessionPayload{
		SessionID: session.ID,
		PlayerID:  session.PlayerID,
	})
	return session, nil
}

// Disconnect releases the session and its slot.
func (h *Hub) Disconnect(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	session, ok := h.sessions[sessionID]
	if !ok {
		return
	}
	delete(h.sessions, sessionID)
	if int(session.PlayerID) < len(h.slots) && h.slots[session.PlayerID] == session {
		h.slots[session.PlayerID] = nil
	}
	session.close()
	h.deps.Metrics.Store(metricSessionsActive, uint64(len(h.sessions)))
	h.deps.Logger.Printf("[hub] session %s left slot %d", session.ID, session.PlayerID)
	network.SessionLeft(context.Background(), h.deps.Publisher, h.sched.CurrentFrame(), network.SessionPayload{
		SessionID: session.ID,
		PlayerID:  session.PlayerID,
	})
}

// Welcome builds the join confirmation for a session.
func (h *Hub) Welcome(session *Session) proto.WelcomeMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	return proto.WelcomeMessage{
		Ver:         proto.ProtocolVersion,
		Type:        proto.TypeWelcome,
		SessionID:   session.ID,
		PlayerID:    session.PlayerID,
		TickRate:    h.cfg.Lockstep.TickRate,
		PlayerCount: h.cfg.Lockstep.PlayerCount,
		Frame:       h.sched.CurrentFrame(),
	}
}

// SubmitInput enqueues a validated input behind the simulated delay. A nil
// frame targets the scheduler's configured input lead once delivered.
func (h *Hub) SubmitInput(session *Session, frame *uint64, in *input.PlayerInput, seq uint64) {
	h.delay.Push(pendingInput{session: session, frame: frame, in: in, seq: seq})
}

// Tick delivers due inputs and advances the simulation by the elapsed wall
// time. It is the hub's single mutation path.
func (h *Hub) Tick(ctx context.Context, elapsed time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, item := range h.delay.Drain() {
		pending, ok := item.Payload.(pendingInput)
		if !ok {
			continue
		}
		h.deliver(ctx, pending)
	}
	h.deps.Metrics.Store(metricDelayQueueLen, uint64(h.delay.Len()))

	_, err := h.sched.Advance(ctx, elapsed)
	return err
}

func (h *Hub) deliver(ctx context.Context, pending pendingInput) {
	var bound uint64
	var err error
	if pending.frame != nil {
		bound = *pending.frame
		err = h.sched.SubmitPlayerInput(ctx, bound, pending.in)
	} else {
		bound, err = h.sched.SubmitInput(ctx, pending.in)
	}
	if err != nil {
		h.deps.Metrics.Add(metricInputsRejected, 1)
		h.deps.Logger.Printf("[hub] input from slot %d rejected: %v", pending.in.PlayerID, err)
		if pending.session != nil && pending.seq > 0 {
			reject := proto.InputRejectMessage{
				Ver:    proto.ProtocolVersion,
				Type:   proto.TypeInputReject,
				Seq:    pending.seq,
				Reason: proto.RejectStaleFrame,
				// Stale and late inputs cannot succeed on resend; anything
				// else, such as a full buffer window, is worth retrying.
				Retry: !errors.Is(err, input.ErrStaleInput) && !errors.Is(err, lockstep.ErrLateInput),
			}
			_ = pending.session.WriteJSON(reject)
		}
		return
	}
	h.deps.Metrics.Add(metricInputsDelivered, 1)
	if pending.session != nil && pending.seq > 0 {
		ack := proto.InputAckMessage{
			Ver:   proto.ProtocolVersion,
			Type:  proto.TypeInputAck,
			Seq:   pending.seq,
			Frame: bound,
		}
		_ = pending.session.WriteJSON(ack)
		pending.session.StoreLastCommandSeq(pending.seq)
	}
}

// observeFrame runs inside the scheduler's frame path: it appends to the
// replay record (rewriting the suffix when a rollback re-executes frames)
// and broadcasts the completed frame to every session.
func (h *Hub) observeFrame(rec lockstep.FrameRecord, stateHash uint64) {
	if h.record != nil {
		if idx, reexecuted := h.recIndex[rec.Frame]; reexecuted {
			h.record.Frames = h.record.Frames[:idx]
			for frame, i := range h.recIndex {
				if i >= idx {
					delete(h.recIndex, frame)
				}
			}
		}
		h.recIndex[rec.Frame] = len(h.record.Frames)
		h.record.AppendFrame(rec.Input)
	}

	msg := proto.FrameMessage{
		Ver:   proto.ProtocolVersion,
		Type:  proto.TypeFrame,
		Frame: rec.Frame,
		Hash:  stateHash,
	}
	for _, session := range h.sessions {
		_ = session.WriteJSON(msg)
	}
}

// ReplayDocument snapshots the recorded session, or nil when recording is
// disabled.
func (h *Hub) ReplayDocument() *replay.Document {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.record == nil {
		return nil
	}
	cloned := *h.record
	cloned.Frames = append([]replay.FrameEntry(nil), h.record.Frames...)
	doc := replay.NewDocument(&cloned)
	doc.SetMeta("capturedAtFrame", h.sched.CurrentFrame())
	doc.SetMeta("simulatedDelayMillis", h.cfg.SimulatedDelay.Milliseconds())
	return doc
}

// Run drives the hub at the configured tick rate until the context ends.
func (h *Hub) Run(ctx context.Context) error {
	interval := h.cfg.Lockstep.FrameDuration()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	h.mu.Lock()
	h.lastTick = h.deps.Clock.Now()
	h.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			now := h.deps.Clock.Now()
			h.mu.Lock()
			elapsed := now.Sub(h.lastTick)
			h.lastTick = now
			h.mu.Unlock()
			if err := h.Tick(ctx, elapsed); err != nil {
				return fmt.Errorf("hub: tick: %w", err)
			}
		}
	}
}
