package fixed

import "hash/fnv"

// Linear congruential constants (Knuth's MMIX parameters). The generator is
// intentionally primitive: a single 64-bit state advanced by one multiply
// and one add, so the sequence is identical on every platform and the state
// round-trips through snapshots as a plain integer.
const (
	lcgMultiplier uint64 = 6364136223846793005
	lcgIncrement  uint64 = 1442695040888963407
)

// Rand is the deterministic pseudo-random generator used inside the
// simulation. It is not safe for concurrent use; the scheduler owns exactly
// one per simulation and rollback restores it wholesale.
type Rand struct {
	state uint64
}

// NewRand seeds a generator. Identical seeds produce identical infinite
// sequences.
func NewRand(seed int64) *Rand {
	return &Rand{state: uint64(seed)}
}

// NewRandLabeled derives a generator from a root seed and a label, so
// subsystems can draw from independent streams without coordinating offsets.
func NewRandLabeled(seed int64, label string) *Rand {
	hasher := fnv.New64a()
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(uint64(seed) >> (8 * i))
	}
	hasher.Write(buf[:])
	hasher.Write([]byte{0})
	hasher.Write([]byte(label))
	return &Rand{state: hasher.Sum64()}
}

// Next advances the generator and returns the new 64-bit state.
func (r *Rand) Next() uint64 {
	r.state = r.state*lcgMultiplier + lcgIncrement
	return r.state
}

// Uint32 returns the high 32 bits of the next step, which are the better
// half of an LCG's output.
func (r *Rand) Uint32() uint32 {
	return uint32(r.Next() >> 32)
}

// IntN returns a value in [0, n). Zero or negative bounds return zero.
func (r *Rand) IntN(n int64) int64 {
	if n <= 0 {
		return 0
	}
	return int64(r.Next() % uint64(n))
}

// Scalar01 returns a fixed-point value in [0, 1).
func (r *Rand) Scalar01() Scalar {
	return Scalar(int64(r.Next() % Scale))
}

// ScalarRange returns a fixed-point value in [min, max). A degenerate range
// returns min.
func (r *Rand) ScalarRange(min, max Scalar) Scalar {
	if max <= min {
		return min
	}
	span := uint64(max - min)
	return min + Scalar(int64(r.Next()%span))
}

// AngleDeg returns a fixed-point angle in [0°, 360°).
func (r *Rand) AngleDeg() Scalar {
	return Scalar(int64(r.Next() % uint64(FullCircle)))
}

// State exposes the raw generator state for snapshotting.
func (r *Rand) State() uint64 {
	return r.state
}

// Restore overwrites the generator state, typically during rollback.
func (r *Rand) Restore(state uint64) {
	r.state = state
}
