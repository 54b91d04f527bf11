package snapshot

import (
	"testing"
	"time"
)

func newTestStore(maxCount int, interval uint64) *Store {
	s := NewStore(maxCount, interval, nil)
	base := time.Unix(0, 0).UTC()
	s.SetClock(func() time.Time { return base })
	return s
}

func snapshotFor(frame uint64) *Snapshot {
	snap := New(frame, 42)
	snap.Append(EntityRecord{EntityID: 1, Kind: "actor", Data: []byte{byte(frame)}})
	return snap
}

func TestStoreShouldSnapshot(t *testing.T) {
	s := newTestStore(30, 10)
	for _, frame := range []uint64{0, 10, 20, 300} {
		if !s.ShouldSnapshot(frame) {
			t.Fatalf("frame %d should be a key frame", frame)
		}
	}
	for _, frame := range []uint64{1, 9, 15, 301} {
		if s.ShouldSnapshot(frame) {
			t.Fatalf("frame %d should not be a key frame", frame)
		}
	}
}

func TestStoreCapacityEvictsOldest(t *testing.T) {
	// 31 saves into a 30-slot store: the single oldest key goes.
	s := newTestStore(30, 10)
	for frame := uint64(0); frame <= 300; frame += 10 {
		s.Save(snapshotFor(frame))
	}

	if s.Count() != 30 {
		t.Fatalf("count = %d, want 30", s.Count())
	}
	if _, ok := s.GetNearest(9); ok {
		t.Fatal("frame 0 should have been evicted")
	}
	oldest, ok := s.Oldest()
	if !ok || oldest.Frame != 10 {
		t.Fatalf("oldest = %+v, want frame 10", oldest)
	}
	latest, ok := s.Latest()
	if !ok || latest.Frame != 300 {
		t.Fatalf("latest = %+v, want frame 300", latest)
	}
}

func TestStoreGetNearest(t *testing.T) {
	s := newTestStore(30, 10)
	for _, frame := range []uint64{0, 10, 20, 30} {
		s.Save(snapshotFor(frame))
	}

	cases := []struct {
		frame uint64
		want  uint64
		ok    bool
	}{
		{0, 0, true},
		{5, 0, true},
		{10, 10, true},
		{29, 20, true},
		{99, 30, true},
	}
	for _, tc := range cases {
		snap, ok := s.GetNearest(tc.frame)
		if ok != tc.ok {
			t.Fatalf("GetNearest(%d) ok = %v, want %v", tc.frame, ok, tc.ok)
		}
		if ok && snap.Frame != tc.want {
			t.Fatalf("GetNearest(%d) = frame %d, want %d", tc.frame, snap.Frame, tc.want)
		}
	}

	empty := newTestStore(30, 10)
	if _, ok := empty.GetNearest(100); ok {
		t.Fatal("empty store returned a snapshot")
	}
}

func TestStoreRemoveAfter(t *testing.T) {
	s := newTestStore(30, 10)
	for _, frame := range []uint64{0, 10, 20, 30, 40} {
		s.Save(snapshotFor(frame))
	}

	if removed := s.RemoveAfter(20); removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}
	if s.Count() != 3 {
		t.Fatalf("count = %d, want 3", s.Count())
	}
	if snap, ok := s.GetNearest(99); !ok || snap.Frame != 20 {
		t.Fatalf("nearest after removal = %+v, want frame 20", snap)
	}
	if removed := s.RemoveAfter(99); removed != 0 {
		t.Fatalf("removing beyond the end removed %d", removed)
	}
}

func TestStoreSaveReplacesSameFrame(t *testing.T) {
	s := newTestStore(30, 10)
	s.Save(snapshotFor(10))
	replacement := New(10, 99)
	s.Save(replacement)

	if s.Count() != 1 {
		t.Fatalf("count = %d, want 1", s.Count())
	}
	snap, _ := s.GetNearest(10)
	if snap.RandState != 99 {
		t.Fatalf("replacement not stored, rand state = %d", snap.RandState)
	}
}

func TestSnapshotHashIsPureAndOrderSensitive(t *testing.T) {
	build := func(order []int64) *Snapshot {
		snap := New(7, 1234)
		for _, id := range order {
			snap.Append(EntityRecord{EntityID: id, Kind: "actor", Data: []byte{1, 2, 3}})
		}
		return snap
	}

	a := build([]int64{1, 2, 3})
	b := build([]int64{1, 2, 3})
	if a.CalculateHash() != b.CalculateHash() {
		t.Fatal("identical snapshots hashed differently")
	}
	if a.CalculateHash() != a.CalculateHash() {
		t.Fatal("hash is not pure")
	}

	reordered := build([]int64{3, 2, 1})
	if a.CalculateHash() == reordered.CalculateHash() {
		t.Fatal("record order must affect the hash")
	}

	// The informational timestamp must not affect the hash.
	a.TakenAt = time.Unix(1000, 0)
	b.TakenAt = time.Unix(2000, 0)
	if a.CalculateHash() != b.CalculateHash() {
		t.Fatal("timestamp leaked into the hash")
	}
}

func TestStoreSaveClones(t *testing.T) {
	s := newTestStore(30, 10)
	snap := snapshotFor(10)
	s.Save(snap)

	snap.Entities[0].Data[0] = 0xFF
	stored, _ := s.GetNearest(10)
	if stored.Entities[0].Data[0] == 0xFF {
		t.Fatal("store retained a reference to caller memory")
	}
	if stored.Hash == 0 {
		t.Fatal("store did not stamp the hash")
	}
}
