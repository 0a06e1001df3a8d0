// Package southbound is the hardware boundary of the agent. A Backend
// drives one vendor implementation (the BCM style unit controller or
// the SAI style adapter); the Switch service sits above it, owns the
// applied desired state and turns whole-table updates into deltas.
package southbound

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/veesix-networks/osvswitch/pkg/delta"
	"github.com/veesix-networks/osvswitch/pkg/ports"
	"github.com/veesix-networks/osvswitch/pkg/stats"
)

// ErrUnavailable reports that no backend is attached.
var ErrUnavailable = fmt.Errorf("southbound hardware unavailable")

// PortStatus is the live hardware view of one port.
type PortStatus struct {
	ID          ports.PortID      `json:"id"`
	Name        string            `json:"name"`
	Enabled     bool              `json:"enabled"`
	Up          bool              `json:"up"`
	SpeedMbps   int32             `json:"speed_mbps"`
	FECEnabled  bool              `json:"fec_enabled"`
	Loopback    string            `json:"loopback"`
	IngressVlan ports.VlanID      `json:"ingress_vlan"`
	Transmitter string            `json:"transmitter"`
	Mirrors     map[string]string `json:"mirrors,omitempty"`
}

// Backend is one vendor hardware implementation.
type Backend interface {
	// Init attaches to the unit. On a cold boot every port is forced
	// electrically down; on a warm boot cached link state is seeded
	// from hardware instead.
	Init(ctx context.Context) error

	// Apply reconciles hardware with a computed delta.
	Apply(d delta.Delta) error

	// Adopt rebinds previously applied configuration after a warm boot
	// without reprogramming hardware.
	Adopt(d ports.DesiredPort) error

	// UpdateStats runs one collection cycle across all bound ports.
	UpdateStats(now time.Time)

	// UpdateLinkStatus feeds a linkscan transition into the cached
	// link state consulted by the flap avoidance policy.
	UpdateLinkStatus(id ports.PortID, up bool)

	PortStatus(id ports.PortID) (PortStatus, error)
	PortStatuses() []PortStatus
	PortCounters() []PortCounters
	Snapshot(id ports.PortID) (*stats.Snapshot, bool)

	WarmBooted() bool
	Close() error
}

// Switch owns the desired port table and feeds differences to the
// backend. Apply calls are serialized; view methods may run
// concurrently with them.
type Switch struct {
	backend Backend

	mu      sync.Mutex
	applied map[ports.PortID]ports.DesiredPort
}

// NewSwitch wraps a backend. The applied table starts empty: the first
// Apply sees every configured port as an addition.
func NewSwitch(b Backend) *Switch {
	return &Switch{
		backend: b,
		applied: make(map[ports.PortID]ports.DesiredPort),
	}
}

// SeedApplied installs a previously persisted desired table without
// reprogramming hardware, used when warm booting to make the next Apply
// a true incremental delta. Each port is adopted by the backend so its
// bookkeeping matches the hardware the agent re-attached to.
func (s *Switch) SeedApplied(table map[ports.PortID]ports.DesiredPort) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]ports.PortID, 0, len(table))
	for id := range table {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	applied := make(map[ports.PortID]ports.DesiredPort, len(table))
	for _, id := range ids {
		p := table[id]
		if err := s.backend.Adopt(p); err != nil {
			return fmt.Errorf("adopting port %d: %w", id, err)
		}
		applied[id] = p
	}
	s.applied = applied
	return nil
}

// Apply diffs the desired table against what was last applied and
// reconciles the difference. On failure the applied table keeps its old
// value; the caller decides whether to retry the whole table.
func (s *Switch) Apply(desired map[ports.PortID]ports.DesiredPort) (delta.Delta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := delta.Compute(s.applied, desired)
	if d.Empty() {
		return d, nil
	}
	if err := s.backend.Apply(d); err != nil {
		return d, err
	}
	s.applied = make(map[ports.PortID]ports.DesiredPort, len(desired))
	for id, p := range desired {
		s.applied[id] = p
	}
	return d, nil
}

// Applied returns a copy of the currently applied desired table.
func (s *Switch) Applied() map[ports.PortID]ports.DesiredPort {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[ports.PortID]ports.DesiredPort, len(s.applied))
	for id, p := range s.applied {
		out[id] = p
	}
	return out
}

// Backend exposes the attached vendor implementation.
func (s *Switch) Backend() Backend { return s.backend }

func (s *Switch) Init(ctx context.Context) error { return s.backend.Init(ctx) }

func (s *Switch) UpdateStats(now time.Time) { s.backend.UpdateStats(now) }

func (s *Switch) UpdateLinkStatus(id ports.PortID, up bool) {
	s.backend.UpdateLinkStatus(id, up)
}

func (s *Switch) PortStatus(id ports.PortID) (PortStatus, error) {
	return s.backend.PortStatus(id)
}

func (s *Switch) PortStatuses() []PortStatus { return s.backend.PortStatuses() }

func (s *Switch) PortCounters() []PortCounters { return s.backend.PortCounters() }

func (s *Switch) Snapshot(id ports.PortID) (*stats.Snapshot, bool) {
	return s.backend.Snapshot(id)
}

func (s *Switch) WarmBooted() bool { return s.backend.WarmBooted() }

func (s *Switch) Close() error { return s.backend.Close() }
