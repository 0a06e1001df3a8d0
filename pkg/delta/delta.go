// Package delta diffs two desired port tables and routes each difference
// to exactly one reconciliation operation.
package delta

import (
	"fmt"
	"sort"

	"github.com/veesix-networks/osvswitch/pkg/ports"
)

// Change pairs the previous and next desired state of one port.
type Change struct {
	Old ports.DesiredPort
	New ports.DesiredPort
}

// Delta partitions the differences between two desired tables. The three
// sets are disjoint and ports identical on both sides appear in none of
// them. Entries are ordered by port ID so application is deterministic.
type Delta struct {
	Added   []ports.DesiredPort
	Changed []Change
	Removed []ports.DesiredPort
}

// Compute diffs prev against next.
func Compute(prev, next map[ports.PortID]ports.DesiredPort) Delta {
	var d Delta
	for id, p := range next {
		old, ok := prev[id]
		if !ok {
			d.Added = append(d.Added, p)
			continue
		}
		if !old.Equal(p) {
			d.Changed = append(d.Changed, Change{Old: old, New: p})
		}
	}
	for id, p := range prev {
		if _, ok := next[id]; !ok {
			d.Removed = append(d.Removed, p)
		}
	}
	sort.Slice(d.Added, func(i, j int) bool { return d.Added[i].ID < d.Added[j].ID })
	sort.Slice(d.Changed, func(i, j int) bool { return d.Changed[i].New.ID < d.Changed[j].New.ID })
	sort.Slice(d.Removed, func(i, j int) bool { return d.Removed[i].ID < d.Removed[j].ID })
	return d
}

// Empty reports whether the delta carries no work.
func (d Delta) Empty() bool {
	return len(d.Added) == 0 && len(d.Changed) == 0 && len(d.Removed) == 0
}

func (d Delta) String() string {
	return fmt.Sprintf("added=%d changed=%d removed=%d", len(d.Added), len(d.Changed), len(d.Removed))
}

// Ops receives the partitioned differences. Implementations own the
// bound-state bookkeeping: creating an already bound port or touching an
// unbound one must come back as a consistency violation, not be papered
// over here.
type Ops interface {
	CreatePort(p ports.DesiredPort) error
	ChangePort(old, next ports.DesiredPort) error
	RemovePort(p ports.DesiredPort) error
}

// Apply walks the delta in removal, creation, change order, visiting
// every entry exactly once. The first error stops the walk.
func (d Delta) Apply(ops Ops) error {
	for _, p := range d.Removed {
		if err := ops.RemovePort(p); err != nil {
			return fmt.Errorf("removing port %d: %w", p.ID, err)
		}
	}
	for _, p := range d.Added {
		if err := ops.CreatePort(p); err != nil {
			return fmt.Errorf("creating port %d: %w", p.ID, err)
		}
	}
	for _, c := range d.Changed {
		if err := ops.ChangePort(c.Old, c.New); err != nil {
			return fmt.Errorf("changing port %d: %w", c.New.ID, err)
		}
	}
	return nil
}
