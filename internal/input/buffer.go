package input

import (
	"errors"
	"fmt"
	"sort"

	"iron-and-ash/sim/internal/telemetry"
)

const (
	metricStaleInputDrops  = "input_stale_drops_total"
	metricBufferEvictions  = "input_buffer_evictions_total"
	metricBufferedFrames   = "input_buffered_frames"
	defaultMaxFrames       = 180
	noConfirmedFrame int64 = -1
)

// ErrStaleInput reports an input that targets a frame at or before the last
// confirmed frame. The frame is already committed history; accepting the
// input would rewrite it.
var ErrStaleInput = errors.New("input: frame already confirmed")

// Buffer is the frame-indexed store of pending frame inputs. It is owned
// exclusively by the scheduler and therefore unsynchronized; hosting layers
// serialize access the same way they serialize ticks.
type Buffer struct {
	playerCount int
	maxFrames   int
	confirmed   int64
	frames      map[uint64]*FrameInput
	order       []uint64
	logger      telemetry.Logger
	metrics     telemetry.Metrics
}

// NewBuffer constructs a buffer for the given player count. maxFrames bounds
// retention; zero or negative falls back to a sane default.
func NewBuffer(playerCount, maxFrames int, logger telemetry.Logger, metrics telemetry.Metrics) *Buffer {
	if maxFrames <= 0 {
		maxFrames = defaultMaxFrames
	}
	if logger == nil {
		logger = telemetry.NopLogger()
	}
	if metrics == nil {
		metrics = telemetry.NopMetrics()
	}
	return &Buffer{
		playerCount: playerCount,
		maxFrames:   maxFrames,
		confirmed:   noConfirmedFrame,
		frames:      make(map[uint64]*FrameInput),
		order:       make([]uint64, 0, maxFrames),
		logger:      logger,
		metrics:     metrics,
	}
}

// LastConfirmed reports the confirmation watermark, or -1 before any frame
// has been confirmed.
func (b *Buffer) LastConfirmed() int64 {
	return b.confirmed
}

// Len reports the number of buffered frames.
func (b *Buffer) Len() int {
	return len(b.order)
}

// Input returns the aggregate buffered for a frame.
func (b *Buffer) Input(frame uint64) (*FrameInput, bool) {
	fi, ok := b.frames[frame]
	return fi, ok
}

// AddFrameInput inserts or merges a whole-frame aggregate. Frames at or
// before the confirmation watermark are dropped with ErrStaleInput.
func (b *Buffer) AddFrameInput(fi *FrameInput) error {
	if fi == nil {
		return nil
	}
	if b.stale(fi.Frame) {
		b.dropStale(fi.Frame)
		return fmt.Errorf("frame %d at or before confirmed %d: %w", fi.Frame, b.confirmed, ErrStaleInput)
	}
	existing, ok := b.frames[fi.Frame]
	if !ok {
		b.insert(fi.Frame, fi.Clone())
		return nil
	}
	return existing.Merge(fi)
}

// AddPlayerInput inserts or merges a single player's input for a frame.
func (b *Buffer) AddPlayerInput(frame uint64, in *PlayerInput) error {
	if in == nil {
		return nil
	}
	if b.stale(frame) {
		b.dropStale(frame)
		return fmt.Errorf("frame %d at or before confirmed %d: %w", frame, b.confirmed, ErrStaleInput)
	}
	existing, ok := b.frames[frame]
	if !ok {
		fresh := NewFrameInput(frame, b.playerCount)
		if err := fresh.MergePlayer(in); err != nil {
			return err
		}
		b.insert(frame, fresh)
		return nil
	}
	return existing.MergePlayer(in)
}

// ConfirmFrame advances the watermark and evicts every frame at or below
// it. Frames beyond the watermark stay buffered however far ahead they are.
func (b *Buffer) ConfirmFrame(frame uint64) {
	if int64(frame) <= b.confirmed {
		return
	}
	b.confirmed = int64(frame)
	idx := 0
	for idx < len(b.order) && b.order[idx] <= frame {
		delete(b.frames, b.order[idx])
		idx++
	}
	if idx > 0 {
		b.order = append(b.order[:0], b.order[idx:]...)
		b.storeOccupancy()
	}
}

// PendingFrom returns clones of every buffered aggregate for frames at or
// above frame, in ascending frame order. Rollbacks use it to carry accepted
// look-ahead inputs across a buffer reset.
func (b *Buffer) PendingFrom(frame uint64) []*FrameInput {
	var out []*FrameInput
	for _, buffered := range b.order {
		if buffered < frame {
			continue
		}
		out = append(out, b.frames[buffered].Clone())
	}
	return out
}

// ResetToFrame rewinds the watermark to frame-1 and evicts every buffered
// frame at or above frame, so a rollback replay can repopulate them.
func (b *Buffer) ResetToFrame(frame uint64) {
	b.confirmed = int64(frame) - 1
	idx := len(b.order)
	for idx > 0 && b.order[idx-1] >= frame {
		delete(b.frames, b.order[idx-1])
		idx--
	}
	if idx < len(b.order) {
		b.order = b.order[:idx]
		b.storeOccupancy()
	}
}

// stale reports whether the frame is at or before the watermark.
func (b *Buffer) stale(frame uint64) bool {
	return int64(frame) <= b.confirmed
}

func (b *Buffer) dropStale(frame uint64) {
	b.metrics.Add(metricStaleInputDrops, 1)
	b.logger.Printf("[input] dropping stale input frame=%d confirmed=%d", frame, b.confirmed)
}

// insert places a new frame into the store, keeping the order index sorted
// and enforcing the retention cap by evicting the oldest frames first.
func (b *Buffer) insert(frame uint64, fi *FrameInput) {
	b.frames[frame] = fi
	pos := sort.Search(len(b.order), func(i int) bool { return b.order[i] >= frame })
	b.order = append(b.order, 0)
	copy(b.order[pos+1:], b.order[pos:])
	b.order[pos] = frame
	for len(b.order) > b.maxFrames {
		oldest := b.order[0]
		delete(b.frames, oldest)
		b.order = b.order[1:]
		b.metrics.Add(metricBufferEvictions, 1)
		b.logger.Printf("[input] buffer over capacity, evicting frame=%d", oldest)
	}
	b.storeOccupancy()
}

func (b *Buffer) storeOccupancy() {
	b.metrics.Store(metricBufferedFrames, uint64(len(b.order)))
}
