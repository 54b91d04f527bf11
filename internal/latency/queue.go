// Package latency simulates network delay for local testing. Items are
// timestamped on enqueue and only handed back once their deadline passes,
// letting a single process exercise the same late-input paths a real
// network produces.
package latency

import (
	"sync"
	"time"

	"iron-and-ash/sim/logging"
)

// Item is one delayed payload. Ready compares against the release
// deadline stamped at enqueue time.
type Item struct {
	Payload  any
	Enqueued time.Time
	Release  time.Time
}

// Queue delays items by a fixed duration plus optional jitter. It is
// strictly pull-based: callers poll Drain from their own loop, so the
// queue never invokes anything and cannot perturb simulation ordering.
//
// Queue is safe for one producer and one consumer goroutine.
type Queue struct {
	mu     sync.Mutex
	items  []Item
	delay  time.Duration
	jitter time.Duration
	seed   uint64
	clock  logging.Clock
}

// NewQueue builds a queue with the given base delay. A nil clock uses the
// system clock.
func NewQueue(delay time.Duration, clock logging.Clock) *Queue {
	if clock == nil {
		clock = logging.SystemClock{}
	}
	if delay < 0 {
		delay = 0
	}
	return &Queue{delay: delay, clock: clock, seed: 0x9e3779b97f4a7c15}
}

// SetJitter adds up to jitter of extra randomized delay per item. The
// jitter source is a local generator, not the simulation's: delivery
// timing is allowed to vary, simulation results are not.
func (q *Queue) SetJitter(jitter time.Duration) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if jitter < 0 {
		jitter = 0
	}
	q.jitter = jitter
}

// Delay reports the configured base delay.
func (q *Queue) Delay() time.Duration {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.delay
}

// Len is the number of items still waiting.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Push stamps the payload and schedules its release.
func (q *Queue) Push(payload any) {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := q.clock.Now()
	release := now.Add(q.delay)
	if q.jitter > 0 {
		q.seed = q.seed*6364136223846793005 + 1442695040888963407
		release = release.Add(time.Duration(q.seed % uint64(q.jitter)))
	}
	q.items = append(q.items, Item{Payload: payload, Enqueued: now, Release: release})
}

// Drain removes and returns every item whose deadline has passed, in
// enqueue order. It returns nil when nothing is due.
func (q *Queue) Drain() []Item {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := q.clock.Now()
	var due []Item
	remaining := q.items[:0]
	for _, item := range q.items {
		if item.Release.After(now) {
			remaining = append(remaining, item)
			continue
		}
		due = append(due, item)
	}
	q.items = remaining
	return due
}

// Flush removes and returns every item regardless of deadline, in enqueue
// order. Shutdown paths use it so delayed inputs are not silently lost.
func (q *Queue) Flush() []Item {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}
