// Package sim is a software implementation of one switching unit. It
// keeps the full register and table state in memory, records every
// mutating call, and lets tests inject vendor errors and link flaps.
package sim

import (
	"fmt"
	"sync"
	"time"

	"github.com/veesix-networks/osvswitch/pkg/ports"
	"github.com/veesix-networks/osvswitch/pkg/southbound/sdk"
)

type portState struct {
	enabled  bool
	linkUp   bool
	speed    int32
	maxSpeed int32
	mode     ports.InterfaceMode
	lanes    int32
	fec      ports.FECMode
	phy      map[sdk.PhyControl]uint32

	untaggedVlan ports.VlanID
	filterIn     bool
	filterEg     bool

	pauseTx  bool
	pauseRx  bool
	sampleIn int
	sampleEg int
	loopback ports.LoopbackMode

	counterOn bool
	stats     map[sdk.StatType]uint64
	histIn    [sdk.NumPktLenBuckets]uint64
	histOut   [sdk.NumPktLenBuckets]uint64

	queues    map[int]ports.QueueSettings
	queueLens map[int]uint64

	mirrors map[ports.Direction]sdk.MirrorDestID
}

type vlanState struct {
	members  sdk.PortBitmap
	untagged sdk.PortBitmap
}

type mirrorDest struct {
	dest  sdk.MirrorDest
	bound int
}

type hostIf struct {
	port ports.PortID
	name string
}

// Unit is an in-memory sdk.Unit.
type Unit struct {
	mu sync.Mutex

	ports       map[ports.PortID]*portState
	vlans       map[ports.VlanID]*vlanState
	mirrorDests map[sdk.MirrorDestID]*mirrorDest
	nextMirror  sdk.MirrorDestID
	hostIfs     map[int]hostIf
	nextHostIf  int

	warm        bool
	resourceAPI bool
	closed      bool

	calls     []string
	errs      map[string]sdk.Code
	statFails map[statKey]sdk.Code

	linkscan bool
	linkCh   chan sdk.LinkEvent
}

type statKey struct {
	port ports.PortID
	stat sdk.StatType
}

// New returns a unit exposing the given logical ports. Ports come up
// electrically disabled with link down, the default VLAN as their
// untagged VLAN and a 100G speed ceiling.
func New(ids []ports.PortID) *Unit {
	u := &Unit{
		ports:       make(map[ports.PortID]*portState, len(ids)),
		vlans:       map[ports.VlanID]*vlanState{1: {}},
		mirrorDests: make(map[sdk.MirrorDestID]*mirrorDest),
		hostIfs:     make(map[int]hostIf),
		resourceAPI: true,
		errs:        make(map[string]sdk.Code),
		statFails:   make(map[statKey]sdk.Code),
		linkCh:      make(chan sdk.LinkEvent, 64),
	}
	for _, id := range ids {
		u.ports[id] = newPortState()
	}
	return u
}

func newPortState() *portState {
	return &portState{
		maxSpeed:     100_000,
		untaggedVlan: 1,
		phy:          make(map[sdk.PhyControl]uint32),
		stats:        make(map[sdk.StatType]uint64),
		queues:       make(map[int]ports.QueueSettings),
		queueLens:    make(map[int]uint64),
		mirrors:      make(map[ports.Direction]sdk.MirrorDestID),
	}
}

func (u *Unit) Info() sdk.DeviceInfo {
	return sdk.DeviceInfo{Unit: 0, Name: "sim", Revision: "1"}
}

func (u *Unit) WarmBooted() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.warm
}

func (u *Unit) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return nil
	}
	u.closed = true
	close(u.linkCh)
	return nil
}

// record logs a mutating call. Callers hold u.mu.
func (u *Unit) record(format string, args ...any) {
	u.calls = append(u.calls, fmt.Sprintf(format, args...))
}

// check returns the injected error for op, or a unit error after Close.
// Callers hold u.mu.
func (u *Unit) check(op string) error {
	if u.closed {
		return sdk.Errorf(sdk.CodeUnit, "%s on closed unit", op)
	}
	if code, ok := u.errs[op]; ok {
		return sdk.Errorf(code, "%s", op)
	}
	return nil
}

func (u *Unit) port(id ports.PortID, op string) (*portState, error) {
	p, ok := u.ports[id]
	if !ok {
		return nil, sdk.Errorf(sdk.CodePort, "%s: port %d", op, id)
	}
	return p, nil
}

// Test hooks. None of these appear in the call log.

// SetWarmBooted marks the unit as having attached to existing state.
func (u *Unit) SetWarmBooted(warm bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.warm = warm
}

// SetResourceAPISupported flips the unified resource API capability so
// tests can force the legacy programming path.
func (u *Unit) SetResourceAPISupported(ok bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.resourceAPI = ok
}

// FailWith makes every call to the named operation return code until
// ClearFailure. Operation names match the sdk.Unit method names.
func (u *Unit) FailWith(op string, code sdk.Code) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.errs[op] = code
}

func (u *Unit) ClearFailure(op string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.errs, op)
}

// FailStat makes StatGet for one counter on one port fail with code
// while other counters keep working.
func (u *Unit) FailStat(port ports.PortID, stat sdk.StatType, code sdk.Code) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.statFails[statKey{port, stat}] = code
}

func (u *Unit) ClearStatFailure(port ports.PortID, stat sdk.StatType) {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.statFails, statKey{port, stat})
}

// Calls returns a copy of the mutating call log.
func (u *Unit) Calls() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]string, len(u.calls))
	copy(out, u.calls)
	return out
}

// CallCount counts logged calls whose text starts with prefix.
func (u *Unit) CallCount(prefix string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	n := 0
	for _, c := range u.calls {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func (u *Unit) ResetCalls() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls = nil
}

// SetLinkState flips the physical link and, when linkscan is enabled,
// emits the transition as a link event.
func (u *Unit) SetLinkState(id ports.PortID, up bool) {
	u.mu.Lock()
	p, ok := u.ports[id]
	if !ok || u.closed {
		u.mu.Unlock()
		return
	}
	p.linkUp = up
	emit := u.linkscan
	u.mu.Unlock()
	if emit {
		u.linkCh <- sdk.LinkEvent{Port: id, Up: up, At: time.Now()}
	}
}

// PortSeed is a complete register file used to pre-populate hardware
// state before the agent attaches, as a warm boot would find it.
type PortSeed struct {
	Enabled      bool
	LinkUp       bool
	SpeedMbps    int32
	Mode         ports.InterfaceMode
	Lanes        int32
	FEC          ports.FECMode
	UntaggedVlan ports.VlanID
	PauseTx      bool
	PauseRx      bool
	Loopback     ports.LoopbackMode
}

// SeedPort replaces the port's register file with s.
func (u *Unit) SeedPort(id ports.PortID, s PortSeed) {
	u.mu.Lock()
	defer u.mu.Unlock()
	p, ok := u.ports[id]
	if !ok {
		p = newPortState()
		u.ports[id] = p
	}
	p.enabled = s.Enabled
	p.linkUp = s.LinkUp
	p.speed = s.SpeedMbps
	p.mode = s.Mode
	p.lanes = s.Lanes
	p.fec = s.FEC
	p.untaggedVlan = s.UntaggedVlan
	p.pauseTx = s.PauseTx
	p.pauseRx = s.PauseRx
	p.loopback = s.Loopback
}

// AdvanceCounters adds deltas to the port's cumulative counters.
func (u *Unit) AdvanceCounters(id ports.PortID, deltas map[sdk.StatType]uint64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	p, ok := u.ports[id]
	if !ok {
		return
	}
	for stat, d := range deltas {
		p.stats[stat] += d
	}
}

// SetCounter writes an absolute counter value, letting tests simulate
// hardware counter rollover.
func (u *Unit) SetCounter(id ports.PortID, stat sdk.StatType, value uint64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if p, ok := u.ports[id]; ok {
		p.stats[stat] = value
	}
}

// SetPktLenHistograms writes the packet length histogram vectors.
func (u *Unit) SetPktLenHistograms(id ports.PortID, in, out [sdk.NumPktLenBuckets]uint64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if p, ok := u.ports[id]; ok {
		p.histIn = in
		p.histOut = out
	}
}

// SetQueueLength sets the instantaneous depth of one egress queue.
func (u *Unit) SetQueueLength(id ports.PortID, queue int, length uint64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if p, ok := u.ports[id]; ok {
		p.queueLens[queue] = length
	}
}

// VlanMembers reports the member and untagged bitmaps of a VLAN.
func (u *Unit) VlanMembers(vlan ports.VlanID) (members, untagged sdk.PortBitmap, ok bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	v, ok := u.vlans[vlan]
	if !ok {
		return sdk.PortBitmap{}, sdk.PortBitmap{}, false
	}
	return v.members, v.untagged, true
}

// MirrorBinding reports the destination bound to (port, direction).
func (u *Unit) MirrorBinding(id ports.PortID, dir ports.Direction) (sdk.MirrorDestID, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	p, ok := u.ports[id]
	if !ok {
		return 0, false
	}
	dest, ok := p.mirrors[dir]
	return dest, ok
}

// MirrorDestCount reports how many mirror destinations exist.
func (u *Unit) MirrorDestCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.mirrorDests)
}
