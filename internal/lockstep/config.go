package lockstep

import (
	"fmt"
	"time"
)

// Config tunes the frame scheduler. Zero values fall back to the defaults
// below; Validate rejects combinations that cannot work.
type Config struct {
	// TickRate is the number of logic frames per second.
	TickRate int
	// PlayerCount fixes the input slot width for every frame.
	PlayerCount int
	// InputLeadFrames is how far ahead of the executing frame locally
	// submitted input is scheduled.
	InputLeadFrames uint64
	// MaxRollbackFrames bounds how far behind the executing frame a late
	// input may land and still trigger a rewind.
	MaxRollbackFrames uint64
	// SnapshotInterval is the frame stride between automatic snapshots.
	SnapshotInterval uint64
	// SnapshotCapacity caps how many snapshots the store retains.
	SnapshotCapacity int
	// InputBufferFrames caps how many future frames of input are buffered.
	InputBufferFrames int
	// CatchupMaxFrames clamps how many frames a single Advance call may
	// execute when wall time runs ahead of the simulation.
	CatchupMaxFrames int
	// AllowRollback enables rewinding for late inputs and explicit
	// RollbackTo calls. When false late inputs are rejected outright.
	AllowRollback bool
}

// DefaultConfig mirrors a 30 Hz two-player session with a two second
// rollback window.
func DefaultConfig() Config {
	return Config{
		TickRate:          30,
		PlayerCount:       2,
		InputLeadFrames:   2,
		MaxRollbackFrames: 60,
		SnapshotInterval:  10,
		SnapshotCapacity:  30,
		InputBufferFrames: 120,
		CatchupMaxFrames:  5,
		AllowRollback:     true,
	}
}

// Validate applies defaults and rejects unusable settings.
func (c *Config) Validate() error {
	if c.TickRate <= 0 {
		c.TickRate = 30
	}
	if c.PlayerCount <= 0 {
		return fmt.Errorf("lockstep: player count must be positive, got %d", c.PlayerCount)
	}
	if c.SnapshotInterval == 0 {
		c.SnapshotInterval = 10
	}
	if c.SnapshotCapacity <= 0 {
		c.SnapshotCapacity = 30
	}
	if c.InputBufferFrames <= 0 {
		c.InputBufferFrames = 120
	}
	if c.CatchupMaxFrames <= 0 {
		c.CatchupMaxFrames = 5
	}
	if c.AllowRollback && c.MaxRollbackFrames == 0 {
		c.MaxRollbackFrames = uint64(c.TickRate) * 2
	}
	return nil
}

// FrameDuration is the wall-clock budget of one frame.
func (c Config) FrameDuration() time.Duration {
	if c.TickRate <= 0 {
		return time.Second / 30
	}
	return time.Second / time.Duration(c.TickRate)
}
