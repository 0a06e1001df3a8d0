package stats

import (
	"sync"
	"time"
)

// Snapshot is one complete stats collection cycle for a port. Counters
// holds cumulative values keyed by counter name; a name missing from the
// map has never been collected. Snapshots are immutable once published.
type Snapshot struct {
	TimestampSec int64
	Counters     map[string]uint64
	QueueLenAvg  float64
	InPktLens    Histogram
	OutPktLens   Histogram
}

// NewSnapshot returns an empty snapshot stamped with now.
func NewSnapshot(now time.Time) *Snapshot {
	return &Snapshot{
		TimestampSec: now.Unix(),
		Counters:     make(map[string]uint64, len(rawCounterNames)+1),
	}
}

// Clone copies the snapshot so the next cycle can be prepared without
// mutating what readers may already hold.
func (s *Snapshot) Clone(now time.Time) *Snapshot {
	next := NewSnapshot(now)
	if s == nil {
		return next
	}
	for name, v := range s.Counters {
		next.Counters[name] = v
	}
	next.QueueLenAvg = s.QueueLenAvg
	next.InPktLens = s.InPktLens
	next.OutPktLens = s.OutPktLens
	return next
}

// Counter returns the cumulative value for name and whether it has ever
// been collected.
func (s *Snapshot) Counter(name string) (uint64, bool) {
	if s == nil {
		return 0, false
	}
	v, ok := s.Counters[name]
	return v, ok
}

// Latest publishes the most recent complete snapshot for a port. Writers
// swap in a fully built snapshot; readers never observe a cycle in
// progress.
type Latest struct {
	mu   sync.RWMutex
	snap *Snapshot
}

// Load returns the current snapshot, or nil when no cycle has completed.
func (l *Latest) Load() *Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snap
}

// Store atomically replaces the published snapshot.
func (l *Latest) Store(s *Snapshot) {
	l.mu.Lock()
	l.snap = s
	l.mu.Unlock()
}
