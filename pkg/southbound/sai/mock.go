package sai

import (
	"fmt"
	"sync"

	"github.com/veesix-networks/osvswitch/pkg/ports"
	"github.com/veesix-networks/osvswitch/pkg/southbound/sdk"
)

// Mock is an in-memory Adapter recording every call, used by tests and
// the simulator composition.
type Mock struct {
	mu sync.Mutex

	objects map[ObjectID]*mockObject
	nextOID ObjectID

	warm   bool
	closed bool

	calls []string
	errs  map[string]sdk.Code
}

type mockObject struct {
	attrs  Attributes
	operUp bool
	stats  map[StatID]uint64
}

func NewMock() *Mock {
	return &Mock{
		objects: make(map[ObjectID]*mockObject),
		errs:    make(map[string]sdk.Code),
	}
}

// record logs a mutating call. Callers hold m.mu.
func (m *Mock) record(format string, args ...any) {
	m.calls = append(m.calls, fmt.Sprintf(format, args...))
}

func (m *Mock) check(op string) error {
	if m.closed {
		return sdk.Errorf(sdk.CodeUnit, "%s on closed adapter", op)
	}
	if code, ok := m.errs[op]; ok {
		return sdk.Errorf(code, "%s", op)
	}
	return nil
}

func (m *Mock) WarmBooted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.warm
}

func (m *Mock) CreatePort(attrs Attributes) (ObjectID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextOID++
	oid := m.nextOID
	m.record("CreatePort(%v, speed=%d)", attrs.HwLanes, attrs.SpeedMbps)
	if err := m.check("CreatePort"); err != nil {
		return 0, err
	}
	for _, o := range m.objects {
		if LanesEqual(o.attrs.HwLanes, attrs.HwLanes) {
			return 0, sdk.Errorf(sdk.CodeExists, "CreatePort: lanes %v in use", attrs.HwLanes)
		}
	}
	m.objects[oid] = &mockObject{attrs: attrs, stats: make(map[StatID]uint64)}
	return oid, nil
}

func (m *Mock) RemovePort(oid ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("RemovePort(%d)", oid)
	if err := m.check("RemovePort"); err != nil {
		return err
	}
	if _, ok := m.objects[oid]; !ok {
		return sdk.Errorf(sdk.CodeNotFound, "RemovePort: %d", oid)
	}
	delete(m.objects, oid)
	return nil
}

func (m *Mock) FindPort(lanes []uint32) (ObjectID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for oid, o := range m.objects {
		if LanesEqual(o.attrs.HwLanes, lanes) {
			return oid, true
		}
	}
	return 0, false
}

func (m *Mock) SetPortAttribute(oid ObjectID, upd AttrUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("SetPortAttribute(%d, %v=%v)", oid, upd.ID, upd.Value)
	if err := m.check("SetPortAttribute"); err != nil {
		return err
	}
	o, ok := m.objects[oid]
	if !ok {
		return sdk.Errorf(sdk.CodeNotFound, "SetPortAttribute: %d", oid)
	}
	switch upd.ID {
	case AttrAdminState:
		o.attrs.AdminState = upd.Value.(bool)
		o.operUp = o.attrs.AdminState
	case AttrSpeed:
		o.attrs.SpeedMbps = upd.Value.(int32)
	case AttrFECMode:
		o.attrs.FEC = upd.Value.(FECMode)
	case AttrFlowControl:
		o.attrs.FlowControl = upd.Value.(FlowControl)
	case AttrInternalLoopback:
		o.attrs.Loopback = upd.Value.(Loopback)
	case AttrMediaType:
		o.attrs.Media = upd.Value.(MediaType)
	case AttrPortVlanID:
		o.attrs.PortVlan = upd.Value.(ports.VlanID)
	case AttrMTU:
		o.attrs.MTU = upd.Value.(int)
	default:
		return sdk.Errorf(sdk.CodeParam, "SetPortAttribute: unknown attribute %v", upd.ID)
	}
	return nil
}

func (m *Mock) GetPortAttributes(oid ObjectID) (Attributes, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("GetPortAttributes"); err != nil {
		return Attributes{}, err
	}
	o, ok := m.objects[oid]
	if !ok {
		return Attributes{}, sdk.Errorf(sdk.CodeNotFound, "GetPortAttributes: %d", oid)
	}
	return o.attrs, nil
}

func (m *Mock) PortOperStatus(oid ObjectID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("PortOperStatus"); err != nil {
		return false, err
	}
	o, ok := m.objects[oid]
	if !ok {
		return false, sdk.Errorf(sdk.CodeNotFound, "PortOperStatus: %d", oid)
	}
	return o.operUp, nil
}

func (m *Mock) GetPortStats(oid ObjectID, ids []StatID) (map[StatID]uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("GetPortStats"); err != nil {
		return nil, err
	}
	o, ok := m.objects[oid]
	if !ok {
		return nil, sdk.Errorf(sdk.CodeNotFound, "GetPortStats: %d", oid)
	}
	out := make(map[StatID]uint64, len(ids))
	for _, id := range ids {
		out[id] = o.stats[id]
	}
	return out, nil
}

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Test hooks. None of these appear in the call log.

func (m *Mock) SetWarmBooted(warm bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warm = warm
}

// FailWith makes every call to the named operation return code until
// ClearFailure.
func (m *Mock) FailWith(op string, code sdk.Code) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[op] = code
}

func (m *Mock) ClearFailure(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.errs, op)
}

// Calls returns a copy of the mutating call log.
func (m *Mock) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount counts logged calls whose text starts with prefix.
func (m *Mock) CallCount(prefix string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func (m *Mock) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// AdvanceCounters adds deltas to an object's cumulative counters.
func (m *Mock) AdvanceCounters(oid ObjectID, deltas map[StatID]uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.objects[oid]; ok {
		for id, d := range deltas {
			o.stats[id] += d
		}
	}
}

// SetCounter writes an absolute counter value, letting tests simulate
// rollover.
func (m *Mock) SetCounter(oid ObjectID, id StatID, value uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.objects[oid]; ok {
		o.stats[id] = value
	}
}

// SetOperStatus flips an object's physical link state.
func (m *Mock) SetOperStatus(oid ObjectID, up bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.objects[oid]; ok {
		o.operUp = up
	}
}

// ObjectCount reports how many port objects exist.
func (m *Mock) ObjectCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

// SeedObject installs a pre-existing object, as a warm boot would find
// it.
func (m *Mock) SeedObject(attrs Attributes) ObjectID {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextOID++
	m.objects[m.nextOID] = &mockObject{attrs: attrs, operUp: attrs.AdminState, stats: make(map[StatID]uint64)}
	return m.nextOID
}
