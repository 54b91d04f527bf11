package lockstep

import "iron-and-ash/sim/internal/telemetry"

const metricJournalEvictions = "lockstep_journal_evictions_total"

// journal retains the most recent executed frames so a rewind can replay
// the exact inputs the abandoned timeline ran with. Records are stored in
// ascending frame order; capacity evicts oldest-first.
type journal struct {
	records  []FrameRecord
	capacity int
	metrics  telemetry.Metrics
}

func newJournal(capacity int, metrics telemetry.Metrics) *journal {
	if capacity <= 0 {
		capacity = 1
	}
	if metrics == nil {
		metrics = telemetry.NopMetrics()
	}
	return &journal{
		records:  make([]FrameRecord, 0, capacity),
		capacity: capacity,
		metrics:  metrics,
	}
}

func (j *journal) record(rec FrameRecord) {
	j.records = append(j.records, rec)
	if len(j.records) > j.capacity {
		evicted := len(j.records) - j.capacity
		j.records = append(j.records[:0], j.records[evicted:]...)
		j.metrics.Add(metricJournalEvictions, uint64(evicted))
	}
}

// oldest returns the lowest retained frame, or false when empty.
func (j *journal) oldest() (uint64, bool) {
	if len(j.records) == 0 {
		return 0, false
	}
	return j.records[0].Frame, true
}

// covers reports whether every frame in [from, to) is retained.
func (j *journal) covers(from, to uint64) bool {
	if from >= to {
		return true
	}
	if len(j.records) == 0 {
		return false
	}
	return j.records[0].Frame <= from && j.records[len(j.records)-1].Frame >= to-1
}

// slice returns the retained records covering [from, to) in frame order.
func (j *journal) slice(from, to uint64) []FrameRecord {
	var out []FrameRecord
	for i := range j.records {
		if j.records[i].Frame < from {
			continue
		}
		if j.records[i].Frame >= to {
			break
		}
		out = append(out, j.records[i])
	}
	return out
}

// rewindTo drops every record at or beyond frame and marks nothing; the
// replay re-records frames as they execute again.
func (j *journal) rewindTo(frame uint64) {
	idx := len(j.records)
	for idx > 0 && j.records[idx-1].Frame >= frame {
		idx--
	}
	j.records = j.records[:idx]
}

func (j *journal) len() int {
	return len(j.records)
}
