package sim

import (
	"sort"
	"time"

	"github.com/veesix-networks/osvswitch/pkg/ports"
	"github.com/veesix-networks/osvswitch/pkg/southbound/sdk"
)

func (u *Unit) VlanCreate(vlan ports.VlanID) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.record("VlanCreate(%d)", vlan)
	if err := u.check("VlanCreate"); err != nil {
		return err
	}
	if _, ok := u.vlans[vlan]; ok {
		return sdk.Errorf(sdk.CodeExists, "VlanCreate: vlan %d", vlan)
	}
	u.vlans[vlan] = &vlanState{}
	return nil
}

func (u *Unit) VlanDestroy(vlan ports.VlanID) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.record("VlanDestroy(%d)", vlan)
	if err := u.check("VlanDestroy"); err != nil {
		return err
	}
	if _, ok := u.vlans[vlan]; !ok {
		return sdk.Errorf(sdk.CodeNotFound, "VlanDestroy: vlan %d", vlan)
	}
	delete(u.vlans, vlan)
	return nil
}

func (u *Unit) VlanPortAdd(vlan ports.VlanID, pbm, ubm sdk.PortBitmap) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.record("VlanPortAdd(%d, %v, %v)", vlan, pbm, ubm)
	if err := u.check("VlanPortAdd"); err != nil {
		return err
	}
	v, ok := u.vlans[vlan]
	if !ok {
		return sdk.Errorf(sdk.CodeNotFound, "VlanPortAdd: vlan %d", vlan)
	}
	for _, id := range pbm.Ports() {
		v.members.Add(id)
	}
	for _, id := range ubm.Ports() {
		v.untagged.Add(id)
	}
	return nil
}

func (u *Unit) VlanPortRemove(vlan ports.VlanID, pbm sdk.PortBitmap) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.record("VlanPortRemove(%d, %v)", vlan, pbm)
	if err := u.check("VlanPortRemove"); err != nil {
		return err
	}
	v, ok := u.vlans[vlan]
	if !ok {
		return sdk.Errorf(sdk.CodeNotFound, "VlanPortRemove: vlan %d", vlan)
	}
	for _, id := range pbm.Ports() {
		v.members.Remove(id)
		v.untagged.Remove(id)
	}
	return nil
}

func (u *Unit) VlanPortGet(vlan ports.VlanID) (pbm, ubm sdk.PortBitmap, err error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.check("VlanPortGet"); err != nil {
		return pbm, ubm, err
	}
	v, ok := u.vlans[vlan]
	if !ok {
		return pbm, ubm, sdk.Errorf(sdk.CodeNotFound, "VlanPortGet: vlan %d", vlan)
	}
	return v.members, v.untagged, nil
}

func (u *Unit) VlanList() ([]ports.VlanID, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.check("VlanList"); err != nil {
		return nil, err
	}
	out := make([]ports.VlanID, 0, len(u.vlans))
	for vlan := range u.vlans {
		out = append(out, vlan)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (u *Unit) MirrorDestCreate(dest sdk.MirrorDest) (sdk.MirrorDestID, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.nextMirror++
	id := u.nextMirror
	u.record("MirrorDestCreate(%d, dest=%d)", id, dest.DestPort)
	if err := u.check("MirrorDestCreate"); err != nil {
		return 0, err
	}
	u.mirrorDests[id] = &mirrorDest{dest: dest}
	return id, nil
}

func (u *Unit) MirrorDestDestroy(id sdk.MirrorDestID) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.record("MirrorDestDestroy(%d)", id)
	if err := u.check("MirrorDestDestroy"); err != nil {
		return err
	}
	d, ok := u.mirrorDests[id]
	if !ok {
		return sdk.Errorf(sdk.CodeNotFound, "MirrorDestDestroy: dest %d", id)
	}
	if d.bound > 0 {
		return sdk.Errorf(sdk.CodeBusy, "MirrorDestDestroy: dest %d has %d bindings", id, d.bound)
	}
	delete(u.mirrorDests, id)
	return nil
}

func (u *Unit) PortMirrorEnable(id ports.PortID, dir ports.Direction, dest sdk.MirrorDestID) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.record("PortMirrorEnable(%d, %v, %d)", id, dir, dest)
	if err := u.check("PortMirrorEnable"); err != nil {
		return err
	}
	p, err := u.port(id, "PortMirrorEnable")
	if err != nil {
		return err
	}
	d, ok := u.mirrorDests[dest]
	if !ok {
		return sdk.Errorf(sdk.CodeBadID, "PortMirrorEnable: dest %d", dest)
	}
	if _, bound := p.mirrors[dir]; bound {
		return sdk.Errorf(sdk.CodeExists, "PortMirrorEnable: port %d %v already mirrored", id, dir)
	}
	p.mirrors[dir] = dest
	d.bound++
	return nil
}

func (u *Unit) PortMirrorDisable(id ports.PortID, dir ports.Direction, dest sdk.MirrorDestID) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.record("PortMirrorDisable(%d, %v, %d)", id, dir, dest)
	if err := u.check("PortMirrorDisable"); err != nil {
		return err
	}
	p, err := u.port(id, "PortMirrorDisable")
	if err != nil {
		return err
	}
	bound, ok := p.mirrors[dir]
	if !ok || bound != dest {
		return sdk.Errorf(sdk.CodeNotFound, "PortMirrorDisable: port %d %v not bound to %d", id, dir, dest)
	}
	delete(p.mirrors, dir)
	if d, ok := u.mirrorDests[dest]; ok {
		d.bound--
	}
	return nil
}

func (u *Unit) HostIfCreate(id ports.PortID, name string) (int, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.record("HostIfCreate(%d, %q)", id, name)
	if err := u.check("HostIfCreate"); err != nil {
		return 0, err
	}
	if _, err := u.port(id, "HostIfCreate"); err != nil {
		return 0, err
	}
	for _, h := range u.hostIfs {
		if h.name == name {
			return 0, sdk.Errorf(sdk.CodeExists, "HostIfCreate: name %q", name)
		}
	}
	u.nextHostIf++
	u.hostIfs[u.nextHostIf] = hostIf{port: id, name: name}
	return u.nextHostIf, nil
}

func (u *Unit) HostIfDestroy(id int) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.record("HostIfDestroy(%d)", id)
	if err := u.check("HostIfDestroy"); err != nil {
		return err
	}
	if _, ok := u.hostIfs[id]; !ok {
		return sdk.Errorf(sdk.CodeNotFound, "HostIfDestroy: %d", id)
	}
	delete(u.hostIfs, id)
	return nil
}

func (u *Unit) PortQueueSet(id ports.PortID, q ports.QueueSettings) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.record("PortQueueSet(%d, queue=%d stream=%v)", id, q.ID, q.Stream)
	if err := u.check("PortQueueSet"); err != nil {
		return err
	}
	p, err := u.port(id, "PortQueueSet")
	if err != nil {
		return err
	}
	max, _ := u.queueCount(q.Stream)
	if q.ID < 0 || q.ID >= max {
		return sdk.Errorf(sdk.CodeParam, "PortQueueSet: queue %d out of range", q.ID)
	}
	p.queues[queueSlot(q.Stream, q.ID)] = q
	return nil
}

func (u *Unit) PortQueueCountGet(id ports.PortID, stream ports.StreamType) (int, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.check("PortQueueCountGet"); err != nil {
		return 0, err
	}
	if _, err := u.port(id, "PortQueueCountGet"); err != nil {
		return 0, err
	}
	n, ok := u.queueCount(stream)
	if !ok {
		return 0, sdk.Errorf(sdk.CodeParam, "PortQueueCountGet: stream %v", stream)
	}
	return n, nil
}

func (u *Unit) queueCount(stream ports.StreamType) (int, bool) {
	switch stream {
	case ports.StreamUnicast:
		return 8, true
	case ports.StreamMulticast:
		return 4, true
	}
	return 0, false
}

// queueSlot packs stream and queue id into one key so unicast and
// multicast queues with the same id do not collide.
func queueSlot(stream ports.StreamType, id int) int {
	if stream == ports.StreamMulticast {
		return 0x100 + id
	}
	return id
}

func (u *Unit) QueueLengthGet(id ports.PortID, queue int) (uint64, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.check("QueueLengthGet"); err != nil {
		return 0, err
	}
	p, err := u.port(id, "QueueLengthGet")
	if err != nil {
		return 0, err
	}
	return p.queueLens[queue], nil
}

func (u *Unit) LinkscanEnable(interval time.Duration) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.record("LinkscanEnable(%v)", interval)
	if err := u.check("LinkscanEnable"); err != nil {
		return err
	}
	u.linkscan = true
	return nil
}

func (u *Unit) LinkscanDisable() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.record("LinkscanDisable()")
	if err := u.check("LinkscanDisable"); err != nil {
		return err
	}
	u.linkscan = false
	return nil
}

func (u *Unit) LinkEvents() <-chan sdk.LinkEvent {
	return u.linkCh
}

// QueueConfig reports the programmed settings for one queue. Test hook.
func (u *Unit) QueueConfig(id ports.PortID, stream ports.StreamType, queue int) (ports.QueueSettings, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	p, ok := u.ports[id]
	if !ok {
		return ports.QueueSettings{}, false
	}
	q, ok := p.queues[queueSlot(stream, queue)]
	return q, ok
}
