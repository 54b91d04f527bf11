package logging

import "time"

// Clock abstracts wall-clock reads so hosting layers and tests can pin
// time. Simulation decisions never read it; only scheduling and timestamps
// do.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts functions into the Clock interface.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}

// SystemClock reads the real wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}
