// Package bcm drives a unit through the vendor's native SDK surface.
// It keeps one Port controller per physical port for the life of the
// process; desired configuration binds and unbinds controllers but
// never destroys them.
package bcm

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/veesix-networks/osvswitch/pkg/delta"
	"github.com/veesix-networks/osvswitch/pkg/logger"
	"github.com/veesix-networks/osvswitch/pkg/mirror"
	"github.com/veesix-networks/osvswitch/pkg/platform"
	"github.com/veesix-networks/osvswitch/pkg/ports"
	"github.com/veesix-networks/osvswitch/pkg/qsfp"
	"github.com/veesix-networks/osvswitch/pkg/southbound"
	"github.com/veesix-networks/osvswitch/pkg/southbound/sdk"
	"github.com/veesix-networks/osvswitch/pkg/stats"
)

// Switch is the BCM style backend for one unit.
type Switch struct {
	unit    sdk.Unit
	plat    platform.Platform
	mirrors *mirror.Registry
	qsfp    qsfp.Source
	queues  *QueueManager
	logger  *slog.Logger

	mmuLossy bool
	warm     bool

	mu    sync.RWMutex
	ports map[ports.PortID]*Port
}

// NewSwitch builds the backend. The qsfp source may be nil on boards
// with no pluggable optics; technology detection then degrades to
// unknown. One controller is created per platform port.
func NewSwitch(unit sdk.Unit, plat platform.Platform, mirrors *mirror.Registry, qsfpSrc qsfp.Source) *Switch {
	s := &Switch{
		unit:     unit,
		plat:     plat,
		mirrors:  mirrors,
		qsfp:     qsfpSrc,
		logger:   logger.Component(logger.BCM),
		mmuLossy: plat.MMULossy(),
		ports:    make(map[ports.PortID]*Port),
	}
	s.queues = NewQueueManager(unit, plat)
	for _, pp := range plat.Ports() {
		s.ports[pp.ID] = newPort(s, pp)
	}
	return s
}

// Init attaches to the unit. Cold boots force every port electrically
// down so hardware starts from a known state; warm boots instead seed
// the cached link status from what the hardware already reports.
func (s *Switch) Init(ctx context.Context) error {
	s.warm = s.unit.WarmBooted()
	ids := s.portIDs()
	for _, id := range ids {
		p := s.port(id)
		if s.warm {
			up, err := s.unit.PortLinkStatusGet(id)
			if err != nil {
				s.logger.Warn("link status read failed at warm boot, assuming down", "port", id, "error", err)
				up = false
			}
			p.setLinkUp(up)
			continue
		}
		if err := southbound.CheckSDK(s.unit.PortEnableSet(id, false), "force disable at cold boot", id); err != nil {
			return err
		}
	}
	s.logger.Info("unit initialized", "device", s.unit.Info().Name, "ports", len(ids), "warm_boot", s.warm, "mmu_lossy", s.mmuLossy)
	return nil
}

func (s *Switch) WarmBooted() bool { return s.warm }

func (s *Switch) port(id ports.PortID) *Port {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ports[id]
}

func (s *Switch) portIDs() []ports.PortID {
	s.mu.RLock()
	ids := make([]ports.PortID, 0, len(s.ports))
	for id := range s.ports {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Apply reconciles hardware with the delta.
func (s *Switch) Apply(d delta.Delta) error {
	return d.Apply(s)
}

// CreatePort binds desired configuration to a physical port. Creating
// an already bound port means the caller's bookkeeping has diverged
// from ours, which is fatal by contract.
func (s *Switch) CreatePort(d ports.DesiredPort) error {
	p := s.port(d.ID)
	if p == nil {
		return southbound.Unsupportedf("no physical port %d on platform %s", d.ID, s.plat.Name())
	}
	if p.isBound() {
		return southbound.Consistencyf("create for port %d which is already bound", d.ID)
	}
	p.bind()
	p.applyName(d.Name)
	if d.Enabled {
		return p.enable(d)
	}
	return p.disable(d)
}

// Adopt rebinds a port after a warm boot. Hardware already runs the
// adopted configuration, so only the software bookkeeping changes.
func (s *Switch) Adopt(d ports.DesiredPort) error {
	p := s.port(d.ID)
	if p == nil {
		return southbound.Unsupportedf("no physical port %d on platform %s", d.ID, s.plat.Name())
	}
	if p.isBound() {
		return southbound.Consistencyf("adopt for port %d which is already bound", d.ID)
	}
	p.bind()
	p.applyName(d.Name)
	return nil
}

// ChangePort reconciles a bound port with its next desired state.
func (s *Switch) ChangePort(old, next ports.DesiredPort) error {
	p := s.port(next.ID)
	if p == nil || !p.isBound() {
		return southbound.Consistencyf("change for port %d which is not bound", next.ID)
	}
	switch {
	case next.Enabled && !old.Enabled:
		return p.enable(next)
	case !next.Enabled && old.Enabled:
		return p.disable(next)
	case next.Enabled:
		return p.program(next)
	default:
		p.applyName(next.Name)
		return nil
	}
}

// RemovePort tears the port down and unbinds its controller.
func (s *Switch) RemovePort(d ports.DesiredPort) error {
	p := s.port(d.ID)
	if p == nil || !p.isBound() {
		return southbound.Consistencyf("remove for port %d which is not bound", d.ID)
	}
	p.teardownMirrors()
	if err := p.disable(d); err != nil {
		return err
	}
	p.unbind()
	return nil
}

// UpdateStats runs one collection cycle over every bound port.
func (s *Switch) UpdateStats(now time.Time) {
	for _, id := range s.portIDs() {
		p := s.port(id)
		if p != nil && p.isBound() {
			p.updateStats(now)
		}
	}
}

// UpdateLinkStatus records a linkscan transition for flap avoidance.
func (s *Switch) UpdateLinkStatus(id ports.PortID, up bool) {
	if p := s.port(id); p != nil {
		p.setLinkUp(up)
	}
}

// PortStatus reads the live hardware state of one port.
func (s *Switch) PortStatus(id ports.PortID) (southbound.PortStatus, error) {
	p := s.port(id)
	if p == nil {
		return southbound.PortStatus{}, southbound.Unsupportedf("no physical port %d", id)
	}
	return p.status()
}

// PortStatuses reads every bound port, skipping ports whose reads fail.
func (s *Switch) PortStatuses() []southbound.PortStatus {
	var out []southbound.PortStatus
	for _, id := range s.portIDs() {
		p := s.port(id)
		if p == nil || !p.isBound() {
			continue
		}
		st, err := p.status()
		if err != nil {
			s.logger.Warn("status read failed", "port", id, "error", err)
			continue
		}
		out = append(out, st)
	}
	return out
}

// PortCounters flattens the latest snapshot of every reporting port.
func (s *Switch) PortCounters() []southbound.PortCounters {
	var out []southbound.PortCounters
	for _, id := range s.portIDs() {
		p := s.port(id)
		if p == nil || !p.isBound() {
			continue
		}
		name := p.portName()
		if name == "" {
			continue
		}
		out = append(out, southbound.BuildPortCounters(name, p.latest.Load()))
	}
	return out
}

// Snapshot returns the latest published snapshot for a port.
func (s *Switch) Snapshot(id ports.PortID) (*stats.Snapshot, bool) {
	p := s.port(id)
	if p == nil {
		return nil, false
	}
	snap := p.latest.Load()
	return snap, snap != nil
}

// Close stops every mirror binding regardless of port state, so no
// hardware mirror session outlives its software owner, then detaches
// from the unit.
func (s *Switch) Close() error {
	for _, id := range s.portIDs() {
		if p := s.port(id); p != nil {
			p.teardownMirrors()
		}
	}
	return s.unit.Close()
}
