package sim

import (
	"time"

	"github.com/veesix-networks/osvswitch/pkg/ports"
	"github.com/veesix-networks/osvswitch/pkg/southbound/sdk"
)

// PortEnableSet models a connected peer: enabling a port brings the
// link up, disabling it takes the link down.
func (u *Unit) PortEnableSet(id ports.PortID, enable bool) error {
	u.mu.Lock()
	u.record("PortEnableSet(%d, %v)", id, enable)
	if err := u.check("PortEnableSet"); err != nil {
		u.mu.Unlock()
		return err
	}
	p, err := u.port(id, "PortEnableSet")
	if err != nil {
		u.mu.Unlock()
		return err
	}
	transition := p.linkUp != enable
	p.enabled = enable
	p.linkUp = enable
	emit := u.linkscan && transition
	u.mu.Unlock()
	if emit {
		u.linkCh <- sdk.LinkEvent{Port: id, Up: enable, At: time.Now()}
	}
	return nil
}

func (u *Unit) PortEnableGet(id ports.PortID) (bool, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.check("PortEnableGet"); err != nil {
		return false, err
	}
	p, err := u.port(id, "PortEnableGet")
	if err != nil {
		return false, err
	}
	return p.enabled, nil
}

func (u *Unit) PortLinkStatusGet(id ports.PortID) (bool, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.check("PortLinkStatusGet"); err != nil {
		return false, err
	}
	p, err := u.port(id, "PortLinkStatusGet")
	if err != nil {
		return false, err
	}
	return p.linkUp, nil
}

func (u *Unit) PortSpeedSet(id ports.PortID, mbps int32) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.record("PortSpeedSet(%d, %d)", id, mbps)
	if err := u.check("PortSpeedSet"); err != nil {
		return err
	}
	p, err := u.port(id, "PortSpeedSet")
	if err != nil {
		return err
	}
	if mbps > p.maxSpeed {
		return sdk.Errorf(sdk.CodeParam, "PortSpeedSet: %d exceeds max %d", mbps, p.maxSpeed)
	}
	p.speed = mbps
	return nil
}

func (u *Unit) PortSpeedGet(id ports.PortID) (int32, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.check("PortSpeedGet"); err != nil {
		return 0, err
	}
	p, err := u.port(id, "PortSpeedGet")
	if err != nil {
		return 0, err
	}
	return p.speed, nil
}

func (u *Unit) PortSpeedMax(id ports.PortID) (int32, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.check("PortSpeedMax"); err != nil {
		return 0, err
	}
	p, err := u.port(id, "PortSpeedMax")
	if err != nil {
		return 0, err
	}
	return p.maxSpeed, nil
}

// SetMaxSpeed adjusts the hardware speed ceiling. Test hook.
func (u *Unit) SetMaxSpeed(id ports.PortID, mbps int32) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if p, ok := u.ports[id]; ok {
		p.maxSpeed = mbps
	}
}

func (u *Unit) PortInterfaceSet(id ports.PortID, mode ports.InterfaceMode) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.record("PortInterfaceSet(%d, %v)", id, mode)
	if err := u.check("PortInterfaceSet"); err != nil {
		return err
	}
	p, err := u.port(id, "PortInterfaceSet")
	if err != nil {
		return err
	}
	p.mode = mode
	return nil
}

func (u *Unit) PortInterfaceGet(id ports.PortID) (ports.InterfaceMode, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.check("PortInterfaceGet"); err != nil {
		return ports.ModeUnknown, err
	}
	p, err := u.port(id, "PortInterfaceGet")
	if err != nil {
		return ports.ModeUnknown, err
	}
	return p.mode, nil
}

func (u *Unit) PortResourceSupported() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.resourceAPI
}

func (u *Unit) PortResourceGet(id ports.PortID) (sdk.PortResource, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.check("PortResourceGet"); err != nil {
		return sdk.PortResource{}, err
	}
	p, err := u.port(id, "PortResourceGet")
	if err != nil {
		return sdk.PortResource{}, err
	}
	return sdk.PortResource{Port: id, Lanes: p.lanes, SpeedMbps: p.speed, FEC: p.fec}, nil
}

func (u *Unit) PortResourceSet(id ports.PortID, res sdk.PortResource) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.record("PortResourceSet(%d, lanes=%d speed=%d fec=%v)", id, res.Lanes, res.SpeedMbps, res.FEC)
	if err := u.check("PortResourceSet"); err != nil {
		return err
	}
	p, err := u.port(id, "PortResourceSet")
	if err != nil {
		return err
	}
	if !u.resourceAPI {
		return sdk.Errorf(sdk.CodeUnavail, "PortResourceSet")
	}
	if res.SpeedMbps > p.maxSpeed {
		return sdk.Errorf(sdk.CodeParam, "PortResourceSet: %d exceeds max %d", res.SpeedMbps, p.maxSpeed)
	}
	p.lanes = res.Lanes
	p.speed = res.SpeedMbps
	p.fec = res.FEC
	return nil
}

func (u *Unit) PhyControlSet(id ports.PortID, control sdk.PhyControl, value uint32) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.record("PhyControlSet(%d, %v, %d)", id, control, value)
	if err := u.check("PhyControlSet"); err != nil {
		return err
	}
	p, err := u.port(id, "PhyControlSet")
	if err != nil {
		return err
	}
	p.phy[control] = value
	if control == sdk.PhyControlForwardErrorCorrection {
		if value == sdk.PhyFECOn {
			p.fec = ports.FECOn
		} else {
			p.fec = ports.FECOff
		}
	}
	return nil
}

func (u *Unit) PhyControlGet(id ports.PortID, control sdk.PhyControl) (uint32, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.check("PhyControlGet"); err != nil {
		return 0, err
	}
	p, err := u.port(id, "PhyControlGet")
	if err != nil {
		return 0, err
	}
	return p.phy[control], nil
}

func (u *Unit) PortUntaggedVlanGet(id ports.PortID) (ports.VlanID, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.check("PortUntaggedVlanGet"); err != nil {
		return 0, err
	}
	p, err := u.port(id, "PortUntaggedVlanGet")
	if err != nil {
		return 0, err
	}
	return p.untaggedVlan, nil
}

func (u *Unit) PortUntaggedVlanSet(id ports.PortID, vlan ports.VlanID) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.record("PortUntaggedVlanSet(%d, %d)", id, vlan)
	if err := u.check("PortUntaggedVlanSet"); err != nil {
		return err
	}
	p, err := u.port(id, "PortUntaggedVlanSet")
	if err != nil {
		return err
	}
	p.untaggedVlan = vlan
	return nil
}

func (u *Unit) PortVlanFilterSet(id ports.PortID, ingress, egress bool) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.record("PortVlanFilterSet(%d, %v, %v)", id, ingress, egress)
	if err := u.check("PortVlanFilterSet"); err != nil {
		return err
	}
	p, err := u.port(id, "PortVlanFilterSet")
	if err != nil {
		return err
	}
	p.filterIn = ingress
	p.filterEg = egress
	return nil
}

func (u *Unit) PortPauseGet(id ports.PortID) (tx, rx bool, err error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.check("PortPauseGet"); err != nil {
		return false, false, err
	}
	p, err := u.port(id, "PortPauseGet")
	if err != nil {
		return false, false, err
	}
	return p.pauseTx, p.pauseRx, nil
}

func (u *Unit) PortPauseSet(id ports.PortID, tx, rx bool) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.record("PortPauseSet(%d, %v, %v)", id, tx, rx)
	if err := u.check("PortPauseSet"); err != nil {
		return err
	}
	p, err := u.port(id, "PortPauseSet")
	if err != nil {
		return err
	}
	p.pauseTx = tx
	p.pauseRx = rx
	return nil
}

func (u *Unit) PortSampleRateGet(id ports.PortID) (ingress, egress int, err error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.check("PortSampleRateGet"); err != nil {
		return 0, 0, err
	}
	p, err := u.port(id, "PortSampleRateGet")
	if err != nil {
		return 0, 0, err
	}
	return p.sampleIn, p.sampleEg, nil
}

func (u *Unit) PortSampleRateSet(id ports.PortID, ingress, egress int) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.record("PortSampleRateSet(%d, %d, %d)", id, ingress, egress)
	if err := u.check("PortSampleRateSet"); err != nil {
		return err
	}
	p, err := u.port(id, "PortSampleRateSet")
	if err != nil {
		return err
	}
	p.sampleIn = ingress
	p.sampleEg = egress
	return nil
}

func (u *Unit) PortLoopbackGet(id ports.PortID) (ports.LoopbackMode, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.check("PortLoopbackGet"); err != nil {
		return ports.LoopbackNone, err
	}
	p, err := u.port(id, "PortLoopbackGet")
	if err != nil {
		return ports.LoopbackNone, err
	}
	return p.loopback, nil
}

func (u *Unit) PortLoopbackSet(id ports.PortID, mode ports.LoopbackMode) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.record("PortLoopbackSet(%d, %v)", id, mode)
	if err := u.check("PortLoopbackSet"); err != nil {
		return err
	}
	p, err := u.port(id, "PortLoopbackSet")
	if err != nil {
		return err
	}
	p.loopback = mode
	return nil
}

func (u *Unit) PortCounterEnable(id ports.PortID) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.record("PortCounterEnable(%d)", id)
	if err := u.check("PortCounterEnable"); err != nil {
		return err
	}
	p, err := u.port(id, "PortCounterEnable")
	if err != nil {
		return err
	}
	if p.counterOn {
		return sdk.Errorf(sdk.CodeExists, "PortCounterEnable: port %d", id)
	}
	p.counterOn = true
	return nil
}

func (u *Unit) PortCounterDisable(id ports.PortID) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.record("PortCounterDisable(%d)", id)
	if err := u.check("PortCounterDisable"); err != nil {
		return err
	}
	p, err := u.port(id, "PortCounterDisable")
	if err != nil {
		return err
	}
	p.counterOn = false
	return nil
}

func (u *Unit) StatGet(id ports.PortID, stat sdk.StatType) (uint64, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.check("StatGet"); err != nil {
		return 0, err
	}
	if code, ok := u.statFails[statKey{id, stat}]; ok {
		return 0, sdk.Errorf(code, "StatGet(%d, %d)", id, int(stat))
	}
	p, err := u.port(id, "StatGet")
	if err != nil {
		return 0, err
	}
	if !p.counterOn {
		return 0, sdk.Errorf(sdk.CodeDisabled, "StatGet: collection off for port %d", id)
	}
	return p.stats[stat], nil
}

func (u *Unit) PortPktLenHistograms(id ports.PortID) (in, out [sdk.NumPktLenBuckets]uint64, err error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.check("PortPktLenHistograms"); err != nil {
		return in, out, err
	}
	p, err := u.port(id, "PortPktLenHistograms")
	if err != nil {
		return in, out, err
	}
	return p.histIn, p.histOut, nil
}
