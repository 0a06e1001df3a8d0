package bcm

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/veesix-networks/osvswitch/pkg/platform"
	"github.com/veesix-networks/osvswitch/pkg/ports"
	"github.com/veesix-networks/osvswitch/pkg/southbound"
	"github.com/veesix-networks/osvswitch/pkg/southbound/sdk"
	"github.com/veesix-networks/osvswitch/pkg/stats"
)

// fabricPrefix marks fixed backplane links. Those always run copper and
// report unknown when queried, so the transceiver daemon is skipped.
const fabricPrefix = "fab"

const techQueryTimeout = 10 * time.Second

// Port is the controller for one physical port. It lives for the whole
// process; bind/unbind tracks whether desired configuration currently
// owns it.
type Port struct {
	sw     *Switch
	id     ports.PortID
	phys   platform.PhysicalPort
	queues *PortQueues
	logger *slog.Logger

	mu      sync.Mutex
	bound   bool
	name    string
	linkUp  bool
	mirrors map[ports.Direction]string

	// techMu serializes the blocking transceiver query so concurrent
	// first callers do not issue duplicates.
	techMu sync.Mutex
	tech   ports.TransmitterTech

	prev     *stats.Snapshot
	queueAvg stats.RollingAverage
	histMu   sync.Mutex
	latest   stats.Latest
}

func newPort(sw *Switch, phys platform.PhysicalPort) *Port {
	p := &Port{
		sw:      sw,
		id:      phys.ID,
		phys:    phys,
		logger:  sw.logger.With("port", phys.ID),
		mirrors: make(map[ports.Direction]string),
	}
	p.queues = sw.queues.ForPort(phys.ID)
	return p
}

func (p *Port) isBound() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bound
}

func (p *Port) bind() {
	p.mu.Lock()
	p.bound = true
	p.mu.Unlock()
}

func (p *Port) unbind() {
	p.mu.Lock()
	p.bound = false
	p.name = ""
	p.prev = nil
	p.mu.Unlock()
	p.latest.Store(nil)
	p.queueAvg.Reset()
}

func (p *Port) portName() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.name
}

func (p *Port) setLinkUp(up bool) {
	p.mu.Lock()
	p.linkUp = up
	p.mu.Unlock()
}

// isUp is the cached oper status. An admin-disabled port never carries
// link, so this stands in for the combined link and admin test the flap
// avoidance policy wants.
func (p *Port) isUp() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.linkUp
}

// applyName records the port's externally visible name. A rename
// retires every counter published under the old name and starts
// accumulation over.
func (p *Port) applyName(newName string) {
	p.mu.Lock()
	old := p.name
	if old == newName {
		p.mu.Unlock()
		return
	}
	p.name = newName
	p.prev = nil
	p.mu.Unlock()
	p.queues.SetPortName(newName)
	if old != "" {
		p.latest.Store(nil)
		p.queueAvg.Reset()
		p.logger.Info("port renamed, counters reinitialized", "old", old, "new", newName)
	}
}

// program reconciles hardware with the desired state. The step order is
// fixed: later steps depend on earlier ones having taken effect.
func (p *Port) program(d ports.DesiredPort) error {
	unit := p.sw.unit
	p.applyName(d.Name)

	// Ingress VLAN, written only on mismatch.
	if d.IngressVlan != 0 {
		cur, err := unit.PortUntaggedVlanGet(p.id)
		if err := southbound.CheckSDK(err, "read ingress vlan", p.id); err != nil {
			return err
		}
		if cur != d.IngressVlan {
			if err := southbound.CheckSDK(unit.PortUntaggedVlanSet(p.id, d.IngressVlan), "set ingress vlan", p.id); err != nil {
				return err
			}
		}
	}

	if err := p.programSpeed(d); err != nil {
		return err
	}

	// Mirror bindings are re-asserted before the remaining steps, which
	// may re-derive mirror-dependent state.
	for _, dir := range []ports.Direction{ports.Ingress, ports.Egress} {
		if err := p.updateMirror(d.Mirror(dir), dir); err != nil {
			return err
		}
	}

	tx, rx, err := unit.PortPauseGet(p.id)
	if err := southbound.CheckSDK(err, "read pause", p.id); err != nil {
		return err
	}
	if tx != d.Pause.Tx || rx != d.Pause.Rx {
		if err := southbound.CheckSDK(unit.PortPauseSet(p.id, d.Pause.Tx, d.Pause.Rx), "set pause", p.id); err != nil {
			return err
		}
	}

	if d.TxSettings != nil {
		if err := p.programTxSettings(*d.TxSettings); err != nil {
			return err
		}
	}

	in, eg, err := unit.PortSampleRateGet(p.id)
	if err := southbound.CheckSDK(err, "read sflow rates", p.id); err != nil {
		return err
	}
	if in != d.SflowIngressRate || eg != d.SflowEgressRate {
		if err := southbound.CheckSDK(unit.PortSampleRateSet(p.id, d.SflowIngressRate, d.SflowEgressRate), "set sflow rates", p.id); err != nil {
			return err
		}
	}

	loop, err := unit.PortLoopbackGet(p.id)
	if err := southbound.CheckSDK(err, "read loopback", p.id); err != nil {
		return err
	}
	if loop != d.Loopback {
		if err := southbound.CheckSDK(unit.PortLoopbackSet(p.id, d.Loopback), "set loopback", p.id); err != nil {
			return err
		}
	}

	return p.queues.CreateQueues(d.Queues)
}

// programSpeed applies the speed, interface mode and FEC, suppressing
// disruptive writes on a healthy up port. A speed or mode write resets
// the physical layer state machine even when the written value matches
// the current one, so on an up port running at the desired speed no
// write is issued at all. Down ports are always written, which
// finalizes pending lane transitions left by flex reconfiguration.
func (p *Port) programSpeed(d ports.DesiredPort) error {
	unit := p.sw.unit

	desired := d.Speed
	if desired == ports.SpeedDefault {
		max, err := unit.PortSpeedMax(p.id)
		if err := southbound.CheckSDK(err, "read max speed", p.id); err != nil {
			return err
		}
		desired = ports.Speed(max)
	}

	cur, err := unit.PortSpeedGet(p.id)
	if err := southbound.CheckSDK(err, "read speed", p.id); err != nil {
		return err
	}
	up := p.isUp()

	if p.sw.plat.SupportsPortResourceAPI() {
		return p.programPortResource(d, desired, up)
	}

	// Legacy path: interface mode and speed as separate writes, then
	// FEC independently.
	tech := p.transmitterTech(d.Name)
	mode, err := southbound.ResolveInterfaceMode(desired, tech)
	if err != nil {
		return err
	}
	curMode, merr := unit.PortInterfaceGet(p.id)
	if err := southbound.CheckSDK(merr, "read interface mode", p.id); err != nil {
		return err
	}
	if curMode != mode || !up {
		if err := southbound.CheckSDK(unit.PortInterfaceSet(p.id, mode), "set interface mode", p.id); err != nil {
			return err
		}
	}
	if !up || cur != desired.Mbps() {
		if up {
			p.logger.Warn("forcing speed change on up port", "current_mbps", cur, "desired_mbps", desired.Mbps())
		}
		if err := southbound.CheckSDK(unit.PortSpeedSet(p.id, desired.Mbps()), "set speed", p.id); err != nil {
			return err
		}
	}

	curFEC, ferr := unit.PhyControlGet(p.id, sdk.PhyControlForwardErrorCorrection)
	if err := southbound.CheckSDK(ferr, "read fec", p.id); err != nil {
		return err
	}
	wantFEC := sdk.PhyFECOff
	if d.FEC == ports.FECOn {
		wantFEC = sdk.PhyFECOn
	}
	if curFEC != wantFEC {
		if err := southbound.CheckSDK(unit.PhyControlSet(p.id, sdk.PhyControlForwardErrorCorrection, wantFEC), "set fec", p.id); err != nil {
			return err
		}
	}
	return nil
}

// programPortResource programs speed, lane count and FEC as one atomic
// call. The same flap avoidance applies: an up port with a fully
// matching resource record is left alone.
func (p *Port) programPortResource(d ports.DesiredPort, desired ports.Speed, up bool) error {
	unit := p.sw.unit

	lanes, err := p.sw.plat.LanesForSpeed(p.id, desired)
	if err != nil {
		return southbound.Unsupportedf("port %d: %v", p.id, err)
	}
	want := sdk.PortResource{
		Port:      p.id,
		Lanes:     int32(len(lanes)),
		SpeedMbps: desired.Mbps(),
		FEC:       d.FEC,
	}
	cur, rerr := unit.PortResourceGet(p.id)
	if err := southbound.CheckSDK(rerr, "read port resource", p.id); err != nil {
		return err
	}
	if up && cur == want {
		return nil
	}
	if up && cur.SpeedMbps != want.SpeedMbps {
		p.logger.Warn("forcing speed change on up port", "current_mbps", cur.SpeedMbps, "desired_mbps", want.SpeedMbps)
	}
	return southbound.CheckSDK(unit.PortResourceSet(p.id, want), "program port resource", p.id)
}

func (p *Port) programTxSettings(t ports.TxSettings) error {
	unit := p.sw.unit
	writes := []struct {
		control sdk.PhyControl
		value   uint32
	}{
		{sdk.PhyControlTxFIRDriveCurrent, t.DriveCurrent},
		{sdk.PhyControlTxFIRPre, t.PreTap},
		{sdk.PhyControlTxFIRMain, t.MainTap},
		{sdk.PhyControlTxFIRPost, t.PostTap},
	}
	for _, w := range writes {
		if err := southbound.CheckSDK(unit.PhyControlSet(p.id, w.control, w.value), "set tx tuning", p.id); err != nil {
			return err
		}
	}
	return nil
}

// transmitterTech classifies the port's media, memoized once known.
// Fabric ports are copper by construction; front panel ports ask the
// transceiver daemon, and a failed or inconclusive query degrades to
// unknown so the resolver's per-speed defaults apply.
func (p *Port) transmitterTech(name string) ports.TransmitterTech {
	p.techMu.Lock()
	defer p.techMu.Unlock()
	if p.tech != ports.TransmitterUnknown {
		return p.tech
	}
	if strings.HasPrefix(name, fabricPrefix) {
		p.tech = ports.TransmitterCopper
		return p.tech
	}
	if p.sw.qsfp == nil {
		return ports.TransmitterUnknown
	}
	ctx, cancel := context.WithTimeout(context.Background(), techQueryTimeout)
	defer cancel()
	tech, err := p.sw.qsfp.TransmitterTech(ctx, name)
	if err != nil {
		p.logger.Warn("transmitter technology query failed", "name", name, "error", err)
		return ports.TransmitterUnknown
	}
	if tech != ports.TransmitterUnknown {
		p.tech = tech
	}
	return tech
}

// enable brings the port into service: VLAN membership, filtering, full
// reconciliation, counter collection, then electrical enable. Calling
// it on an enabled port reapplies the same state and changes nothing.
func (p *Port) enable(d ports.DesiredPort) error {
	unit := p.sw.unit

	for _, m := range d.Vlans {
		if err := p.addToVlan(m); err != nil {
			return err
		}
	}
	if err := southbound.CheckSDK(unit.PortVlanFilterSet(p.id, true, true), "set vlan filtering", p.id); err != nil {
		return err
	}
	if err := p.program(d); err != nil {
		return err
	}
	if err := unit.PortCounterEnable(p.id); err != nil && !sdk.IsExists(err) {
		return southbound.CheckSDK(err, "enable counter collection", p.id)
	}
	if err := southbound.CheckSDK(unit.PortEnableSet(p.id, true), "enable port", p.id); err != nil {
		return err
	}
	p.logger.Info("port enabled", "name", d.Name, "speed", d.Speed.String())
	return nil
}

// addToVlan places the port into a VLAN. Untagged membership also puts
// the port into the VLAN's untagged egress set; tagged membership
// leaves that set empty.
func (p *Port) addToVlan(m ports.VlanMembership) error {
	unit := p.sw.unit
	if err := unit.VlanCreate(m.Vlan); err != nil && !sdk.IsExists(err) {
		return southbound.CheckSDK(err, "create vlan", p.id)
	}
	pbm := sdk.NewPortBitmap(p.id)
	var ubm sdk.PortBitmap
	if !m.Tagged {
		ubm = pbm
	}
	return southbound.CheckSDK(unit.VlanPortAdd(m.Vlan, pbm, ubm), "add to vlan", p.id)
}

// disable takes the port out of service: VLAN and counter teardown
// happen before the electrical disable so no stale state survives.
// It is a no-op on an already disabled port.
func (p *Port) disable(d ports.DesiredPort) error {
	unit := p.sw.unit

	vlans, err := unit.VlanList()
	if err := southbound.CheckSDK(err, "list vlans", p.id); err != nil {
		return err
	}
	self := sdk.NewPortBitmap(p.id)
	for _, vlan := range vlans {
		members, _, merr := unit.VlanPortGet(vlan)
		if err := southbound.CheckSDK(merr, "read vlan members", p.id); err != nil {
			return err
		}
		if !members.Contains(p.id) {
			continue
		}
		if err := southbound.CheckSDK(unit.VlanPortRemove(vlan, self), "remove from vlan", p.id); err != nil {
			return err
		}
	}

	if err := unit.PortCounterDisable(p.id); err != nil && !sdk.IsNotFound(err) {
		return southbound.CheckSDK(err, "disable counter collection", p.id)
	}
	if err := southbound.CheckSDK(unit.PortSampleRateSet(p.id, 0, 0), "stop sflow sampling", p.id); err != nil {
		return err
	}
	if err := southbound.CheckSDK(unit.PortEnableSet(p.id, false), "disable port", p.id); err != nil {
		return err
	}
	p.logger.Info("port disabled", "name", d.Name)
	return nil
}

// status reads the port's live hardware state.
func (p *Port) status() (southbound.PortStatus, error) {
	unit := p.sw.unit
	st := southbound.PortStatus{ID: p.id}

	p.mu.Lock()
	st.Name = p.name
	st.Up = p.linkUp
	if len(p.mirrors) > 0 {
		st.Mirrors = make(map[string]string, len(p.mirrors))
		for dir, name := range p.mirrors {
			st.Mirrors[dir.String()] = name
		}
	}
	p.mu.Unlock()

	p.techMu.Lock()
	st.Transmitter = p.tech.String()
	p.techMu.Unlock()

	enabled, err := unit.PortEnableGet(p.id)
	if err := southbound.CheckSDK(err, "read admin state", p.id); err != nil {
		return st, err
	}
	st.Enabled = enabled

	speed, err := unit.PortSpeedGet(p.id)
	if err := southbound.CheckSDK(err, "read speed", p.id); err != nil {
		return st, err
	}
	st.SpeedMbps = speed

	fec, err := unit.PhyControlGet(p.id, sdk.PhyControlForwardErrorCorrection)
	if err := southbound.CheckSDK(err, "read fec", p.id); err != nil {
		return st, err
	}
	st.FECEnabled = fec == sdk.PhyFECOn

	loop, err := unit.PortLoopbackGet(p.id)
	if err := southbound.CheckSDK(err, "read loopback", p.id); err != nil {
		return st, err
	}
	st.Loopback = loop.String()

	vlan, err := unit.PortUntaggedVlanGet(p.id)
	if err := southbound.CheckSDK(err, "read ingress vlan", p.id); err != nil {
		return st, err
	}
	st.IngressVlan = vlan

	return st, nil
}
