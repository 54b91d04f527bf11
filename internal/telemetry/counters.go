package telemetry

import (
	"sort"
	"sync"
)

// Counters is a concurrency-safe Metrics implementation backed by a plain
// map. It exists for the hosting layer and tests; simulation code only ever
// sees the Metrics interface.
type Counters struct {
	mu     sync.RWMutex
	values map[string]uint64
}

// NewCounters constructs an empty counter set.
func NewCounters() *Counters {
	return &Counters{values: make(map[string]uint64)}
}

// Add increments a counter.
func (c *Counters) Add(key string, delta uint64) {
	if c == nil || key == "" {
		return
	}
	c.mu.Lock()
	c.values[key] += delta
	c.mu.Unlock()
}

// Store overwrites a gauge-style value.
func (c *Counters) Store(key string, value uint64) {
	if c == nil || key == "" {
		return
	}
	c.mu.Lock()
	c.values[key] = value
	c.mu.Unlock()
}

// Value reads a single counter.
func (c *Counters) Value(key string) uint64 {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.values[key]
}

// Snapshot copies every counter, sorted by key so output is stable.
func (c *Counters) Snapshot() []CounterSample {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	samples := make([]CounterSample, 0, len(c.values))
	for key, value := range c.values {
		samples = append(samples, CounterSample{Key: key, Value: value})
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i].Key < samples[j].Key })
	return samples
}

// CounterSample is one key/value pair from a Snapshot.
type CounterSample struct {
	Key   string `json:"key"`
	Value uint64 `json:"value"`
}

var _ Metrics = (*Counters)(nil)
