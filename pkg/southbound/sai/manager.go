package sai

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/veesix-networks/osvswitch/pkg/delta"
	"github.com/veesix-networks/osvswitch/pkg/logger"
	"github.com/veesix-networks/osvswitch/pkg/platform"
	"github.com/veesix-networks/osvswitch/pkg/ports"
	"github.com/veesix-networks/osvswitch/pkg/qsfp"
	"github.com/veesix-networks/osvswitch/pkg/southbound"
	"github.com/veesix-networks/osvswitch/pkg/stats"
)

// defaultMTU is programmed when the desired port carries no explicit
// MTU.
const defaultMTU = 9412

const fabricPrefix = "fab"

const techQueryTimeout = 10 * time.Second

// handle is one live port object and its last applied attribute record.
type handle struct {
	id    ports.PortID
	oid   ObjectID
	lanes []uint32

	mu     sync.Mutex
	name   string
	attrs  Attributes
	linkUp bool
	tech   ports.TransmitterTech
	prev   *stats.Snapshot
	latest stats.Latest
}

func (h *handle) portName() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.name
}

// Manager is the SAI style backend: a port object per configured port,
// programmed by attribute diff.
type Manager struct {
	adapter Adapter
	plat    platform.Platform
	qsfp    qsfp.Source
	logger  *slog.Logger

	mmuLossy bool
	warm     bool

	mu      sync.RWMutex
	handles map[ports.PortID]*handle
}

// NewManager builds the backend. The qsfp source may be nil; media
// detection then degrades to unknown.
func NewManager(adapter Adapter, plat platform.Platform, qsfpSrc qsfp.Source) *Manager {
	return &Manager{
		adapter:  adapter,
		plat:     plat,
		qsfp:     qsfpSrc,
		logger:   logger.Component(logger.SAI),
		mmuLossy: plat.MMULossy(),
		handles:  make(map[ports.PortID]*handle),
	}
}

// Init records the boot type. Port objects only exist once desired
// configuration creates them, so a cold boot has nothing to force down.
func (m *Manager) Init(ctx context.Context) error {
	m.warm = m.adapter.WarmBooted()
	m.logger.Info("adapter initialized", "warm_boot", m.warm, "mmu_lossy", m.mmuLossy)
	return nil
}

func (m *Manager) WarmBooted() bool { return m.warm }

func (m *Manager) handle(id ports.PortID) *handle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.handles[id]
}

func (m *Manager) handleIDs() []ports.PortID {
	m.mu.RLock()
	ids := make([]ports.PortID, 0, len(m.handles))
	for id := range m.handles {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Apply reconciles the adapter with the delta.
func (m *Manager) Apply(d delta.Delta) error {
	return d.Apply(m)
}

// CreatePort allocates a port object carrying the full desired
// attribute record. A second create for the same port means the
// caller's bookkeeping has diverged, which is fatal by contract.
func (m *Manager) CreatePort(d ports.DesiredPort) error {
	m.mu.Lock()
	if _, exists := m.handles[d.ID]; exists {
		m.mu.Unlock()
		return southbound.Consistencyf("create for port %d which already has an object", d.ID)
	}
	m.mu.Unlock()

	lanes, attrs, err := m.attributesFromPort(d, nil)
	if err != nil {
		return err
	}
	oid, err := m.adapter.CreatePort(attrs)
	if err := southbound.CheckSDK(err, "create port object", d.ID); err != nil {
		return err
	}
	h := &handle{id: d.ID, oid: oid, lanes: lanes, name: d.Name, attrs: attrs}
	h.tech = m.detectTech(h, d.Name)

	m.mu.Lock()
	m.handles[d.ID] = h
	m.mu.Unlock()
	m.logger.Info("port object created", "port", d.ID, "name", d.Name, "oid", oid, "speed_mbps", attrs.SpeedMbps)
	return nil
}

// ChangePort diffs the previous attribute record against the next one
// and writes only the attributes that differ. A lane change cannot be
// expressed on a live object; the object is recreated instead.
func (m *Manager) ChangePort(old, next ports.DesiredPort) error {
	h := m.handle(next.ID)
	if h == nil {
		return southbound.Consistencyf("change for port %d which has no object", next.ID)
	}

	lanes, attrs, err := m.attributesFromPort(next, h)
	if err != nil {
		return err
	}
	if !LanesEqual(h.lanes, lanes) {
		m.logger.Info("lane assignment changed, recreating port object", "port", next.ID)
		if err := m.RemovePort(old); err != nil {
			return err
		}
		return m.CreatePort(next)
	}

	h.mu.Lock()
	prevAttrs := h.attrs
	h.mu.Unlock()

	for _, upd := range Diff(prevAttrs, attrs) {
		if err := southbound.CheckSDK(m.adapter.SetPortAttribute(h.oid, upd), "set "+upd.ID.String(), next.ID); err != nil {
			return err
		}
	}
	m.applyName(h, next.Name)
	h.mu.Lock()
	h.attrs = attrs
	h.mu.Unlock()
	return nil
}

// RemovePort destroys the object and forgets the handle.
func (m *Manager) RemovePort(d ports.DesiredPort) error {
	h := m.handle(d.ID)
	if h == nil {
		return southbound.Consistencyf("remove for port %d which has no object", d.ID)
	}
	if err := southbound.CheckSDK(m.adapter.RemovePort(h.oid), "remove port object", d.ID); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.handles, d.ID)
	m.mu.Unlock()
	m.logger.Info("port object removed", "port", d.ID, "name", d.Name)
	return nil
}

// Adopt re-attaches to an object created by the previous agent run,
// resolved by its lane assignment. Hardware keeps whatever the previous
// run programmed; only the software handle is rebuilt.
func (m *Manager) Adopt(d ports.DesiredPort) error {
	m.mu.Lock()
	if _, exists := m.handles[d.ID]; exists {
		m.mu.Unlock()
		return southbound.Consistencyf("adopt for port %d which already has an object", d.ID)
	}
	m.mu.Unlock()

	lanes, _, err := m.attributesFromPort(d, nil)
	if err != nil {
		return err
	}
	oid, found := m.adapter.FindPort(lanes)
	if !found {
		// The previous run never got this object created; fall back to
		// a fresh create so the adopted table converges.
		m.logger.Warn("no existing object to adopt, creating", "port", d.ID)
		return m.CreatePort(d)
	}
	attrs, err := m.adapter.GetPortAttributes(oid)
	if err := southbound.CheckSDK(err, "read adopted attributes", d.ID); err != nil {
		return err
	}
	up, err := m.adapter.PortOperStatus(oid)
	if err := southbound.CheckSDK(err, "read adopted link status", d.ID); err != nil {
		return err
	}
	h := &handle{id: d.ID, oid: oid, lanes: lanes, name: d.Name, attrs: attrs, linkUp: up}

	m.mu.Lock()
	m.handles[d.ID] = h
	m.mu.Unlock()
	m.logger.Info("port object adopted", "port", d.ID, "name", d.Name, "oid", oid)
	return nil
}

func (m *Manager) applyName(h *handle, newName string) {
	h.mu.Lock()
	old := h.name
	if old == newName {
		h.mu.Unlock()
		return
	}
	h.name = newName
	h.prev = nil
	h.mu.Unlock()
	h.latest.Store(nil)
	if old != "" {
		m.logger.Info("port renamed, counters reinitialized", "port", h.id, "old", old, "new", newName)
	}
}

// attributesFromPort maps declarative port state onto the adapter's
// attribute record. The lanes for the desired speed come back alongside
// so callers can detect flex transitions.
func (m *Manager) attributesFromPort(d ports.DesiredPort, h *handle) ([]uint32, Attributes, error) {
	speed := d.Speed
	if speed == ports.SpeedDefault {
		max, err := m.plat.MaxSpeed(d.ID)
		if err != nil {
			return nil, Attributes{}, southbound.Unsupportedf("port %d: %v", d.ID, err)
		}
		speed = max
	}
	lanes, err := m.plat.LanesForSpeed(d.ID, speed)
	if err != nil {
		return nil, Attributes{}, southbound.Unsupportedf("port %d: %v", d.ID, err)
	}

	fec := FECNone
	if d.FEC == ports.FECOn {
		fec = FECRS
	}

	fc := FlowControlDisable
	switch {
	case d.Pause.Tx && d.Pause.Rx:
		fc = FlowControlBothEnable
	case d.Pause.Tx:
		fc = FlowControlTxOnly
	case d.Pause.Rx:
		fc = FlowControlRxOnly
	}

	loop := LoopbackDisabled
	switch d.Loopback {
	case ports.LoopbackPHY:
		loop = LoopbackPHY
	case ports.LoopbackMAC:
		loop = LoopbackMAC
	}

	var media MediaType
	switch m.techFor(d, h) {
	case ports.TransmitterCopper:
		media = MediaCopper
	case ports.TransmitterOptical:
		media = MediaFiber
	default:
		media = MediaUnknown
	}

	mtu := d.MTU
	if mtu == 0 {
		mtu = defaultMTU
	}

	return lanes, Attributes{
		HwLanes:     lanes,
		AdminState:  d.Enabled,
		SpeedMbps:   speed.Mbps(),
		FEC:         fec,
		FlowControl: fc,
		Loopback:    loop,
		Media:       media,
		PortVlan:    d.IngressVlan,
		MTU:         mtu,
	}, nil
}

// techFor returns the handle's memoized technology, detecting it first
// when no handle exists yet (object creation).
func (m *Manager) techFor(d ports.DesiredPort, h *handle) ports.TransmitterTech {
	if h != nil {
		h.mu.Lock()
		tech := h.tech
		h.mu.Unlock()
		if tech != ports.TransmitterUnknown {
			return tech
		}
		return m.detectTech(h, d.Name)
	}
	return m.detect(d.Name)
}

// detectTech classifies and memoizes the handle's media.
func (m *Manager) detectTech(h *handle, name string) ports.TransmitterTech {
	tech := m.detect(name)
	if tech != ports.TransmitterUnknown {
		h.mu.Lock()
		h.tech = tech
		h.mu.Unlock()
	}
	return tech
}

func (m *Manager) detect(name string) ports.TransmitterTech {
	if strings.HasPrefix(name, fabricPrefix) {
		return ports.TransmitterCopper
	}
	if m.qsfp == nil {
		return ports.TransmitterUnknown
	}
	ctx, cancel := context.WithTimeout(context.Background(), techQueryTimeout)
	defer cancel()
	tech, err := m.qsfp.TransmitterTech(ctx, name)
	if err != nil {
		m.logger.Warn("transmitter technology query failed", "name", name, "error", err)
		return ports.TransmitterUnknown
	}
	return tech
}

// UpdateLinkStatus records a link transition on the handle.
func (m *Manager) UpdateLinkStatus(id ports.PortID, up bool) {
	if h := m.handle(id); h != nil {
		h.mu.Lock()
		h.linkUp = up
		h.mu.Unlock()
	}
}

// PortStatus reads one port's live state from the adapter.
func (m *Manager) PortStatus(id ports.PortID) (southbound.PortStatus, error) {
	h := m.handle(id)
	if h == nil {
		return southbound.PortStatus{}, southbound.Unsupportedf("no object for port %d", id)
	}
	return m.status(h)
}

func (m *Manager) status(h *handle) (southbound.PortStatus, error) {
	st := southbound.PortStatus{ID: h.id}

	h.mu.Lock()
	st.Name = h.name
	st.Up = h.linkUp
	st.Transmitter = h.tech.String()
	h.mu.Unlock()

	attrs, err := m.adapter.GetPortAttributes(h.oid)
	if err := southbound.CheckSDK(err, "read attributes", h.id); err != nil {
		return st, err
	}
	st.Enabled = attrs.AdminState
	st.SpeedMbps = attrs.SpeedMbps
	st.FECEnabled = attrs.FEC == FECRS
	st.IngressVlan = attrs.PortVlan
	switch attrs.Loopback {
	case LoopbackPHY:
		st.Loopback = ports.LoopbackPHY.String()
	case LoopbackMAC:
		st.Loopback = ports.LoopbackMAC.String()
	default:
		st.Loopback = ports.LoopbackNone.String()
	}
	return st, nil
}

// PortStatuses reads every handle, skipping ports whose reads fail.
func (m *Manager) PortStatuses() []southbound.PortStatus {
	var out []southbound.PortStatus
	for _, id := range m.handleIDs() {
		h := m.handle(id)
		if h == nil {
			continue
		}
		st, err := m.status(h)
		if err != nil {
			m.logger.Warn("status read failed", "port", id, "error", err)
			continue
		}
		out = append(out, st)
	}
	return out
}

// PortCounters flattens the latest snapshot of every reporting port.
func (m *Manager) PortCounters() []southbound.PortCounters {
	var out []southbound.PortCounters
	for _, id := range m.handleIDs() {
		h := m.handle(id)
		if h == nil {
			continue
		}
		name := h.portName()
		if name == "" {
			continue
		}
		out = append(out, southbound.BuildPortCounters(name, h.latest.Load()))
	}
	return out
}

// Snapshot returns the latest published snapshot for a port.
func (m *Manager) Snapshot(id ports.PortID) (*stats.Snapshot, bool) {
	h := m.handle(id)
	if h == nil {
		return nil, false
	}
	snap := h.latest.Load()
	return snap, snap != nil
}

// Close removes every object so no hardware state outlives the agent on
// a clean cold shutdown, then detaches from the adapter.
func (m *Manager) Close() error {
	for _, id := range m.handleIDs() {
		h := m.handle(id)
		if h == nil {
			continue
		}
		if err := m.adapter.RemovePort(h.oid); err != nil {
			m.logger.Warn("removing port object at shutdown failed", "port", id, "error", err)
		}
	}
	m.mu.Lock()
	m.handles = make(map[ports.PortID]*handle)
	m.mu.Unlock()
	return m.adapter.Close()
}
