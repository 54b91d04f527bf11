package snapshot

import (
	"hash/fnv"
	"time"
)

// EntityRecord is one opaque per-entity state blob supplied by the state
// owner. The core hashes records but never interprets them.
type EntityRecord struct {
	EntityID int64  `json:"entityId"`
	Kind     string `json:"kind,omitempty"`
	Data     []byte `json:"data,omitempty"`
}

// Snapshot is a full-state capture for one frame: the caller's entity
// records in insertion order, the deterministic generator's state, and a
// hash folding all of it. TakenAt is informational only and never hashed;
// wall clocks differ between machines, hashes must not.
type Snapshot struct {
	Frame     uint64         `json:"frame"`
	TakenAt   time.Time      `json:"takenAt"`
	RandState uint64         `json:"randState"`
	Entities  []EntityRecord `json:"entities,omitempty"`
	Hash      uint64         `json:"hash"`
}

// New constructs a snapshot shell for the frame. The caller appends entity
// records in its canonical order before handing the snapshot to the store.
func New(frame uint64, randState uint64) *Snapshot {
	return &Snapshot{Frame: frame, RandState: randState}
}

// Append adds an entity record. Records hash in append order, so callers
// must append in a stable order (insertion order of their world, sorted
// ids, anything repeatable, just never map iteration order).
func (s *Snapshot) Append(record EntityRecord) {
	s.Entities = append(s.Entities, record)
}

// CalculateHash folds the frame number, generator state and every entity
// record, in order, into a 64-bit FNV-1a hash. It is a pure function of
// those fields: two snapshots with equal contents hash equally on every
// platform, and record order matters by design.
func (s *Snapshot) CalculateHash() uint64 {
	hasher := fnv.New64a()
	var buf [8]byte
	writeU64 := func(v uint64) {
		for i := 0; i < 8; i++ {
			buf[i] = byte(v >> (8 * i))
		}
		hasher.Write(buf[:])
	}
	writeU64(s.Frame)
	writeU64(s.RandState)
	for _, record := range s.Entities {
		writeU64(uint64(record.EntityID))
		writeU64(uint64(len(record.Kind)))
		hasher.Write([]byte(record.Kind))
		writeU64(uint64(len(record.Data)))
		hasher.Write(record.Data)
	}
	return hasher.Sum64()
}

// Stamp recomputes and stores the hash, returning it for convenience.
func (s *Snapshot) Stamp() uint64 {
	s.Hash = s.CalculateHash()
	return s.Hash
}

// Clone returns a deep copy so stored snapshots cannot be mutated through
// retained caller references.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	cloned := &Snapshot{
		Frame:     s.Frame,
		TakenAt:   s.TakenAt,
		RandState: s.RandState,
		Hash:      s.Hash,
	}
	if len(s.Entities) > 0 {
		cloned.Entities = make([]EntityRecord, len(s.Entities))
		for i, record := range s.Entities {
			copied := record
			if len(record.Data) > 0 {
				copied.Data = append([]byte(nil), record.Data...)
			}
			cloned.Entities[i] = copied
		}
	}
	return cloned
}
