package stats

import (
	"sync"
	"testing"
	"time"
)

func TestNonPauseDelta(t *testing.T) {
	tests := []struct {
		name                   string
		prevDiscards, curDiscards uint64
		prevPause, curPause    uint64
		want                   uint64
		wantOK                 bool
	}{
		{"both advance", 100, 150, 20, 30, 40, true},
		{"no pause", 100, 150, 0, 0, 50, true},
		{"all pause", 100, 150, 50, 100, 0, true},
		{"pause exceeds discards", 100, 110, 0, 50, 0, true},
		{"discard rollover", 1 << 63, 5, 0, 0, 0, false},
		{"pause rollover", 100, 150, 1 << 63, 5, 0, false},
		{"idle", 100, 100, 20, 20, 0, true},
	}
	for _, tc := range tests {
		got, ok := NonPauseDelta(tc.prevDiscards, tc.curDiscards, tc.prevPause, tc.curPause)
		if got != tc.want || ok != tc.wantOK {
			t.Errorf("%s: NonPauseDelta() = (%d, %v), want (%d, %v)",
				tc.name, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestNonPauseNeverExceedsDiscards(t *testing.T) {
	// For any monotonic sample pair the derived increment cannot exceed
	// the raw discard increment.
	samples := []struct{ pd, cd, pp, cp uint64 }{
		{0, 10, 0, 0},
		{0, 10, 0, 10},
		{0, 10, 0, 3},
		{5, 5, 1, 4},
	}
	for _, s := range samples {
		got, ok := NonPauseDelta(s.pd, s.cd, s.pp, s.cp)
		if !ok {
			t.Fatalf("unexpected rollover for %+v", s)
		}
		if got > s.cd-s.pd {
			t.Errorf("delta %d exceeds raw discard delta %d for %+v", got, s.cd-s.pd, s)
		}
	}
}

func TestSnapshotClone(t *testing.T) {
	now := time.Unix(1000, 0)
	orig := NewSnapshot(now)
	orig.Counters[InBytes] = 42
	orig.QueueLenAvg = 1.5

	next := orig.Clone(time.Unix(2000, 0))
	if next.TimestampSec != 2000 {
		t.Errorf("clone timestamp = %d, want 2000", next.TimestampSec)
	}
	if v, ok := next.Counter(InBytes); !ok || v != 42 {
		t.Errorf("clone inBytes = (%d, %v), want (42, true)", v, ok)
	}

	next.Counters[InBytes] = 99
	if v, _ := orig.Counter(InBytes); v != 42 {
		t.Errorf("mutating clone changed original: inBytes = %d", v)
	}
}

func TestSnapshotCloneNil(t *testing.T) {
	var s *Snapshot
	next := s.Clone(time.Unix(10, 0))
	if next == nil || next.Counters == nil {
		t.Fatal("Clone on nil snapshot must return a usable snapshot")
	}
	if _, ok := next.Counter(InBytes); ok {
		t.Error("clone of nil snapshot should have no counters")
	}
}

func TestLatestPublishesCompleteSnapshots(t *testing.T) {
	var latest Latest
	names := AllCounterNames()

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := uint64(0); ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			s := NewSnapshot(time.Unix(int64(i), 0))
			for _, n := range names {
				s.Counters[n] = i
			}
			latest.Store(s)
		}
	}()

	for i := 0; i < 1000; i++ {
		s := latest.Load()
		if s == nil {
			continue
		}
		want, ok := s.Counter(names[0])
		if !ok {
			t.Fatalf("read %d: snapshot missing %s", i, names[0])
		}
		for _, n := range names {
			v, ok := s.Counter(n)
			if !ok || v != want {
				t.Fatalf("read %d: torn snapshot, %s = (%d, %v), want %d", i, n, v, ok, want)
			}
		}
	}
	close(stop)
	wg.Wait()
}

func TestRollingAverage(t *testing.T) {
	var r RollingAverage
	if got := r.Value(); got != 0 {
		t.Errorf("empty average = %v, want 0", got)
	}
	r.Add(10)
	r.Add(20)
	r.Add(30)
	if got := r.Value(); got != 20 {
		t.Errorf("average = %v, want 20", got)
	}
	r.Reset()
	if got := r.Value(); got != 0 {
		t.Errorf("average after reset = %v, want 0", got)
	}
}

func TestStatKey(t *testing.T) {
	if got := StatKey("eth1/1/1", InBytes); got != "eth1/1/1.inBytes" {
		t.Errorf("StatKey = %q", got)
	}
}

func TestCounterNameSets(t *testing.T) {
	raw := RawCounterNames()
	all := AllCounterNames()
	if len(all) != len(raw)+1 {
		t.Fatalf("AllCounterNames has %d entries, want %d", len(all), len(raw)+1)
	}
	seen := make(map[string]bool, len(all))
	for _, n := range all {
		if seen[n] {
			t.Errorf("duplicate counter name %q", n)
		}
		seen[n] = true
	}
	if !seen[InNonPauseDiscards] {
		t.Error("derived counter missing from AllCounterNames")
	}
}
