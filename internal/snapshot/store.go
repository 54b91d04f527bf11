package snapshot

import (
	"sort"
	"time"

	"iron-and-ash/sim/internal/telemetry"
)

const (
	metricSnapshotsSaved   = "snapshot_saved_total"
	metricSnapshotsEvicted = "snapshot_evicted_total"
	metricSnapshotsStored  = "snapshot_stored"

	defaultMaxSnapshots   = 30
	defaultKeyframeStride = 10
)

// Store keeps periodic full-state snapshots keyed by frame. Eviction is
// oldest-keyed-first on overflow: creation recency, never access recency.
type Store struct {
	maxCount int
	interval uint64
	snaps    []*Snapshot
	clock    func() time.Time
	metrics  telemetry.Metrics
}

// NewStore constructs a store capturing every interval-th frame and
// retaining at most maxCount snapshots.
func NewStore(maxCount int, interval uint64, metrics telemetry.Metrics) *Store {
	if maxCount <= 0 {
		maxCount = defaultMaxSnapshots
	}
	if interval == 0 {
		interval = defaultKeyframeStride
	}
	if metrics == nil {
		metrics = telemetry.NopMetrics()
	}
	return &Store{
		maxCount: maxCount,
		interval: interval,
		snaps:    make([]*Snapshot, 0, maxCount),
		clock:    time.Now,
		metrics:  metrics,
	}
}

// SetClock overrides the informational timestamp source. Tests pin it.
func (s *Store) SetClock(clock func() time.Time) {
	if clock != nil {
		s.clock = clock
	}
}

// Interval reports the key-frame stride.
func (s *Store) Interval() uint64 {
	return s.interval
}

// ShouldSnapshot reports whether the frame sits on the key-frame stride.
func (s *Store) ShouldSnapshot(frame uint64) bool {
	return frame%s.interval == 0
}

// Count reports the number of stored snapshots.
func (s *Store) Count() int {
	return len(s.snaps)
}

// Save hash-stamps and stores a snapshot, replacing any existing snapshot
// for the same frame, then evicts the single oldest snapshot if the
// capacity ceiling is exceeded.
func (s *Store) Save(snap *Snapshot) {
	if snap == nil {
		return
	}
	stored := snap.Clone()
	stored.TakenAt = s.clock()
	stored.Stamp()

	pos := sort.Search(len(s.snaps), func(i int) bool { return s.snaps[i].Frame >= stored.Frame })
	if pos < len(s.snaps) && s.snaps[pos].Frame == stored.Frame {
		s.snaps[pos] = stored
	} else {
		s.snaps = append(s.snaps, nil)
		copy(s.snaps[pos+1:], s.snaps[pos:])
		s.snaps[pos] = stored
	}
	s.metrics.Add(metricSnapshotsSaved, 1)

	if len(s.snaps) > s.maxCount {
		s.snaps = append(s.snaps[:0], s.snaps[1:]...)
		s.metrics.Add(metricSnapshotsEvicted, 1)
	}
	s.metrics.Store(metricSnapshotsStored, uint64(len(s.snaps)))
}

// GetNearest returns the highest-keyed snapshot at or before the frame.
func (s *Store) GetNearest(frame uint64) (*Snapshot, bool) {
	pos := sort.Search(len(s.snaps), func(i int) bool { return s.snaps[i].Frame > frame })
	if pos == 0 {
		return nil, false
	}
	return s.snaps[pos-1], true
}

// Latest returns the newest stored snapshot.
func (s *Store) Latest() (*Snapshot, bool) {
	if len(s.snaps) == 0 {
		return nil, false
	}
	return s.snaps[len(s.snaps)-1], true
}

// Oldest returns the oldest stored snapshot.
func (s *Store) Oldest() (*Snapshot, bool) {
	if len(s.snaps) == 0 {
		return nil, false
	}
	return s.snaps[0], true
}

// RemoveAfter deletes every snapshot keyed beyond the frame and reports how
// many were dropped. Rollback calls it so stale future snapshots from the
// discarded timeline cannot be reused.
func (s *Store) RemoveAfter(frame uint64) int {
	pos := sort.Search(len(s.snaps), func(i int) bool { return s.snaps[i].Frame > frame })
	removed := len(s.snaps) - pos
	if removed > 0 {
		s.snaps = s.snaps[:pos]
		s.metrics.Add(metricSnapshotsEvicted, uint64(removed))
		s.metrics.Store(metricSnapshotsStored, uint64(len(s.snaps)))
	}
	return removed
}

// Frames lists the stored snapshot keys in ascending order.
func (s *Store) Frames() []uint64 {
	frames := make([]uint64, len(s.snaps))
	for i, snap := range s.snaps {
		frames[i] = snap.Frame
	}
	return frames
}
