package sim

import (
	"testing"

	"github.com/veesix-networks/osvswitch/pkg/ports"
	"github.com/veesix-networks/osvswitch/pkg/southbound/sdk"
)

func newUnit() *Unit {
	return New([]ports.PortID{1, 2, 3, 4})
}

func TestPortRegisters(t *testing.T) {
	u := newUnit()

	if err := u.PortSpeedSet(1, 100_000); err != nil {
		t.Fatalf("PortSpeedSet: %v", err)
	}
	if got, _ := u.PortSpeedGet(1); got != 100_000 {
		t.Errorf("speed = %d", got)
	}
	if err := u.PortSpeedSet(1, 400_000); err == nil {
		t.Error("speed above max accepted")
	}

	if vlan, _ := u.PortUntaggedVlanGet(1); vlan != 1 {
		t.Errorf("default untagged vlan = %d, want 1", vlan)
	}

	if _, err := u.PortSpeedGet(99); sdk.CodeOf(err) != sdk.CodePort {
		t.Errorf("unknown port error = %v", err)
	}
}

func TestEnableDrivesLink(t *testing.T) {
	u := newUnit()
	if err := u.LinkscanEnable(0); err != nil {
		t.Fatal(err)
	}
	if err := u.PortEnableSet(2, true); err != nil {
		t.Fatal(err)
	}
	if up, _ := u.PortLinkStatusGet(2); !up {
		t.Error("link down after enable")
	}
	ev := <-u.LinkEvents()
	if ev.Port != 2 || !ev.Up {
		t.Errorf("link event = %+v", ev)
	}

	if err := u.PortEnableSet(2, false); err != nil {
		t.Fatal(err)
	}
	ev = <-u.LinkEvents()
	if ev.Port != 2 || ev.Up {
		t.Errorf("link event = %+v", ev)
	}
}

func TestCounterAttachSemantics(t *testing.T) {
	u := newUnit()
	if _, err := u.StatGet(1, sdk.StatInBytes); sdk.CodeOf(err) != sdk.CodeDisabled {
		t.Errorf("StatGet before attach = %v", err)
	}
	if err := u.PortCounterEnable(1); err != nil {
		t.Fatalf("PortCounterEnable: %v", err)
	}
	if err := u.PortCounterEnable(1); !sdk.IsExists(err) {
		t.Errorf("second attach = %v, want exists", err)
	}
	u.AdvanceCounters(1, map[sdk.StatType]uint64{sdk.StatInBytes: 500})
	if v, err := u.StatGet(1, sdk.StatInBytes); err != nil || v != 500 {
		t.Errorf("StatGet = (%d, %v)", v, err)
	}
}

func TestInjectedFailures(t *testing.T) {
	u := newUnit()
	u.FailWith("PortPauseSet", sdk.CodeFail)
	if err := u.PortPauseSet(1, true, true); sdk.CodeOf(err) != sdk.CodeFail {
		t.Errorf("injected failure = %v", err)
	}
	u.ClearFailure("PortPauseSet")
	if err := u.PortPauseSet(1, true, true); err != nil {
		t.Errorf("after clear: %v", err)
	}

	u.PortCounterEnable(2)
	u.FailStat(2, sdk.StatInErrors, sdk.CodeTimeout)
	if _, err := u.StatGet(2, sdk.StatInErrors); sdk.CodeOf(err) != sdk.CodeTimeout {
		t.Errorf("stat failure = %v", err)
	}
	if _, err := u.StatGet(2, sdk.StatInBytes); err != nil {
		t.Errorf("unrelated stat failed: %v", err)
	}
}

func TestCallLog(t *testing.T) {
	u := newUnit()
	u.PortSpeedSet(1, 40_000)
	u.PortSpeedSet(2, 40_000)
	u.PortSpeedGet(1)
	if n := u.CallCount("PortSpeedSet("); n != 2 {
		t.Errorf("PortSpeedSet count = %d, want 2", n)
	}
	if n := u.CallCount("PortSpeedGet"); n != 0 {
		t.Error("reads must not appear in the call log")
	}
	u.ResetCalls()
	if len(u.Calls()) != 0 {
		t.Error("ResetCalls left entries")
	}
}

func TestVlanTable(t *testing.T) {
	u := newUnit()
	if err := u.VlanPortAdd(100, sdk.NewPortBitmap(1), sdk.NewPortBitmap(1)); !sdk.IsNotFound(err) {
		t.Errorf("add to missing vlan = %v", err)
	}
	if err := u.VlanCreate(100); err != nil {
		t.Fatal(err)
	}
	if err := u.VlanCreate(100); !sdk.IsExists(err) {
		t.Errorf("duplicate create = %v", err)
	}
	if err := u.VlanPortAdd(100, sdk.NewPortBitmap(1, 2), sdk.NewPortBitmap(1)); err != nil {
		t.Fatal(err)
	}
	members, untagged, ok := u.VlanMembers(100)
	if !ok || members.Count() != 2 || untagged.Count() != 1 || !untagged.Contains(1) {
		t.Errorf("vlan 100: members=%v untagged=%v", members, untagged)
	}
	if err := u.VlanPortRemove(100, sdk.NewPortBitmap(1)); err != nil {
		t.Fatal(err)
	}
	members, untagged, _ = u.VlanMembers(100)
	if members.Contains(1) || untagged.Contains(1) {
		t.Error("port 1 still in vlan after removal")
	}
}

func TestMirrorBindings(t *testing.T) {
	u := newUnit()
	id, err := u.MirrorDestCreate(sdk.MirrorDest{DestPort: 4})
	if err != nil {
		t.Fatal(err)
	}
	if err := u.PortMirrorEnable(1, ports.Ingress, id); err != nil {
		t.Fatal(err)
	}
	if err := u.PortMirrorEnable(1, ports.Ingress, id); !sdk.IsExists(err) {
		t.Errorf("double enable = %v", err)
	}
	if err := u.MirrorDestDestroy(id); sdk.CodeOf(err) != sdk.CodeBusy {
		t.Errorf("destroy while bound = %v", err)
	}
	if err := u.PortMirrorDisable(1, ports.Ingress, id); err != nil {
		t.Fatal(err)
	}
	if err := u.PortMirrorDisable(1, ports.Ingress, id); !sdk.IsNotFound(err) {
		t.Errorf("double disable = %v", err)
	}
	if err := u.MirrorDestDestroy(id); err != nil {
		t.Errorf("destroy after unbind: %v", err)
	}
}

func TestSeedPort(t *testing.T) {
	u := newUnit()
	u.SeedPort(3, PortSeed{
		Enabled:      true,
		LinkUp:       true,
		SpeedMbps:    40_000,
		Mode:         ports.ModeXLAUI,
		UntaggedVlan: 200,
	})
	if en, _ := u.PortEnableGet(3); !en {
		t.Error("seeded port not enabled")
	}
	if sp, _ := u.PortSpeedGet(3); sp != 40_000 {
		t.Errorf("seeded speed = %d", sp)
	}
	if m, _ := u.PortInterfaceGet(3); m != ports.ModeXLAUI {
		t.Errorf("seeded mode = %v", m)
	}
	if len(u.Calls()) != 0 {
		t.Error("seeding must not touch the call log")
	}
}
