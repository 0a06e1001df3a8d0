package sai

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/veesix-networks/osvswitch/pkg/platform"
	"github.com/veesix-networks/osvswitch/pkg/ports"
	"github.com/veesix-networks/osvswitch/pkg/qsfp"
	"github.com/veesix-networks/osvswitch/pkg/southbound"
	"github.com/veesix-networks/osvswitch/pkg/southbound/sdk"
	"github.com/veesix-networks/osvswitch/pkg/stats"
)

func newTestManager(t *testing.T) (*Mock, *platform.Fake, *Manager) {
	t.Helper()
	plat := platform.NewFake(false)
	adapter := NewMock()
	src := qsfp.NewStatic(map[string]ports.TransmitterTech{
		"port1": ports.TransmitterCopper,
		"port2": ports.TransmitterOptical,
	})
	mgr := NewManager(adapter, plat, src)
	if err := mgr.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return adapter, plat, mgr
}

func desired(id ports.PortID) ports.DesiredPort {
	return ports.DesiredPort{
		ID:          id,
		Name:        fmt.Sprintf("port%d", id),
		Enabled:     true,
		Speed:       ports.SpeedTwentyFiveG,
		IngressVlan: 1,
	}
}

func TestCreatePortAttributes(t *testing.T) {
	adapter, _, mgr := newTestManager(t)
	d := desired(1)
	d.Speed = ports.SpeedDefault
	d.FEC = ports.FECOn
	d.Pause = ports.PauseConfig{Tx: true, Rx: true}
	d.Loopback = ports.LoopbackMAC
	d.IngressVlan = 42

	if err := mgr.CreatePort(d); err != nil {
		t.Fatalf("CreatePort: %v", err)
	}
	oid, ok := adapter.FindPort([]uint32{0, 1, 2, 3})
	if !ok {
		t.Fatal("default speed on a master port did not claim the full lane group")
	}
	attrs, err := adapter.GetPortAttributes(oid)
	if err != nil {
		t.Fatalf("GetPortAttributes: %v", err)
	}
	if !attrs.AdminState {
		t.Error("admin state not up")
	}
	if attrs.SpeedMbps != 100_000 {
		t.Errorf("speed = %d, want 100000 from platform maximum", attrs.SpeedMbps)
	}
	if attrs.FEC != FECRS {
		t.Errorf("fec = %v, want %v", attrs.FEC, FECRS)
	}
	if attrs.FlowControl != FlowControlBothEnable {
		t.Errorf("flow control = %v, want %v", attrs.FlowControl, FlowControlBothEnable)
	}
	if attrs.Loopback != LoopbackMAC {
		t.Errorf("loopback = %v, want %v", attrs.Loopback, LoopbackMAC)
	}
	if attrs.Media != MediaCopper {
		t.Errorf("media = %v, want %v", attrs.Media, MediaCopper)
	}
	if attrs.PortVlan != 42 {
		t.Errorf("port vlan = %d, want 42", attrs.PortVlan)
	}
	if attrs.MTU != defaultMTU {
		t.Errorf("mtu = %d, want %d", attrs.MTU, defaultMTU)
	}
}

func TestChangePortWritesOnlyChangedAttributes(t *testing.T) {
	adapter, _, mgr := newTestManager(t)
	d := desired(2)
	if err := mgr.CreatePort(d); err != nil {
		t.Fatalf("CreatePort: %v", err)
	}
	adapter.ResetCalls()

	next := d
	next.IngressVlan = 200
	if err := mgr.ChangePort(d, next); err != nil {
		t.Fatalf("ChangePort: %v", err)
	}
	if n := adapter.CallCount("SetPortAttribute"); n != 1 {
		t.Fatalf("change of one attribute issued %d writes, want 1: %v", n, adapter.Calls())
	}
	attrs, _ := adapter.GetPortAttributes(mustFind(t, adapter, []uint32{1}))
	if attrs.PortVlan != 200 {
		t.Errorf("port vlan = %d, want 200", attrs.PortVlan)
	}
}

func TestChangePortUnchangedWritesNothing(t *testing.T) {
	adapter, _, mgr := newTestManager(t)
	d := desired(2)
	if err := mgr.CreatePort(d); err != nil {
		t.Fatalf("CreatePort: %v", err)
	}
	adapter.ResetCalls()

	if err := mgr.ChangePort(d, d); err != nil {
		t.Fatalf("ChangePort: %v", err)
	}
	if n := adapter.CallCount("SetPortAttribute"); n != 0 {
		t.Errorf("identical reapply issued %d writes, want 0: %v", n, adapter.Calls())
	}
}

func TestLaneChangeRecreatesObject(t *testing.T) {
	adapter, _, mgr := newTestManager(t)
	d := desired(1)
	d.Speed = ports.SpeedHundredG
	if err := mgr.CreatePort(d); err != nil {
		t.Fatalf("CreatePort: %v", err)
	}
	adapter.ResetCalls()

	next := d
	next.Speed = ports.SpeedTwentyFiveG
	if err := mgr.ChangePort(d, next); err != nil {
		t.Fatalf("ChangePort: %v", err)
	}
	if n := adapter.CallCount("RemovePort"); n != 1 {
		t.Errorf("lane change removed %d objects, want 1", n)
	}
	if n := adapter.CallCount("CreatePort"); n != 1 {
		t.Errorf("lane change created %d objects, want 1", n)
	}
	if _, ok := adapter.FindPort([]uint32{0}); !ok {
		t.Error("recreated object does not hold the narrowed lane set")
	}
	attrs, _ := adapter.GetPortAttributes(mustFind(t, adapter, []uint32{0}))
	if attrs.SpeedMbps != 25_000 {
		t.Errorf("speed after recreate = %d, want 25000", attrs.SpeedMbps)
	}
}

func TestConsistencyViolations(t *testing.T) {
	_, _, mgr := newTestManager(t)
	d := desired(1)
	if err := mgr.CreatePort(d); err != nil {
		t.Fatalf("CreatePort: %v", err)
	}
	if err := mgr.CreatePort(d); !southbound.IsConsistency(err) {
		t.Errorf("double create returned %v, want consistency error", err)
	}
	other := desired(2)
	if err := mgr.ChangePort(other, other); !southbound.IsConsistency(err) {
		t.Errorf("change without object returned %v, want consistency error", err)
	}
	if err := mgr.RemovePort(other); !southbound.IsConsistency(err) {
		t.Errorf("remove without object returned %v, want consistency error", err)
	}
	if err := mgr.Adopt(d); !southbound.IsConsistency(err) {
		t.Errorf("adopt over live object returned %v, want consistency error", err)
	}
}

func TestVendorFailureCarriesContext(t *testing.T) {
	adapter, _, mgr := newTestManager(t)
	adapter.FailWith("CreatePort", sdk.CodeResource)

	err := mgr.CreatePort(desired(1))
	if err == nil {
		t.Fatal("CreatePort succeeded despite injected failure")
	}
	var ve *southbound.VendorError
	if !errors.As(err, &ve) {
		t.Fatalf("error %v does not carry vendor context", err)
	}
	if ve.Port != 1 {
		t.Errorf("vendor error port = %d, want 1", ve.Port)
	}
}

func TestStatsCycleAndNonPauseDiscards(t *testing.T) {
	adapter, _, mgr := newTestManager(t)
	d := desired(1)
	if err := mgr.CreatePort(d); err != nil {
		t.Fatalf("CreatePort: %v", err)
	}
	oid := mustFind(t, adapter, []uint32{0})

	// First cycle initializes both source samples, no derivation yet.
	mgr.UpdateStats(time.Unix(100, 0))
	snap, ok := mgr.Snapshot(1)
	if !ok {
		t.Fatal("no snapshot after first cycle")
	}
	if v, _ := snap.Counter(stats.InNonPauseDiscards); v != 0 {
		t.Errorf("derived counter = %d after first cycle, want 0", v)
	}

	adapter.AdvanceCounters(oid, map[StatID]uint64{
		StatIfInDiscards:    50,
		StatIfInPauseFrames: 20,
	})
	mgr.UpdateStats(time.Unix(110, 0))
	snap, _ = mgr.Snapshot(1)
	if v, _ := snap.Counter(stats.InNonPauseDiscards); v != 30 {
		t.Errorf("derived counter = %d, want 30", v)
	}
	if v, _ := snap.Counter(stats.InDiscards); v != 50 {
		t.Errorf("raw discards = %d, want 50", v)
	}

	// A pause-only interval must not move the derived counter.
	adapter.AdvanceCounters(oid, map[StatID]uint64{StatIfInPauseFrames: 10})
	mgr.UpdateStats(time.Unix(120, 0))
	snap, _ = mgr.Snapshot(1)
	if v, _ := snap.Counter(stats.InNonPauseDiscards); v != 30 {
		t.Errorf("derived counter moved to %d on pause-only interval, want 30", v)
	}
}

func TestStatsRolloverSkipsDerivation(t *testing.T) {
	adapter, _, mgr := newTestManager(t)
	if err := mgr.CreatePort(desired(1)); err != nil {
		t.Fatalf("CreatePort: %v", err)
	}
	oid := mustFind(t, adapter, []uint32{0})

	adapter.AdvanceCounters(oid, map[StatID]uint64{
		StatIfInDiscards:    1000,
		StatIfInPauseFrames: 400,
	})
	mgr.UpdateStats(time.Unix(100, 0))
	adapter.AdvanceCounters(oid, map[StatID]uint64{
		StatIfInDiscards:    50,
		StatIfInPauseFrames: 20,
	})
	mgr.UpdateStats(time.Unix(110, 0))
	snap, _ := mgr.Snapshot(1)
	want, _ := snap.Counter(stats.InNonPauseDiscards)

	// Pause counter wraps backwards: the cycle must carry the raw value
	// but leave the derived counter untouched.
	adapter.SetCounter(oid, StatIfInPauseFrames, 5)
	adapter.AdvanceCounters(oid, map[StatID]uint64{StatIfInDiscards: 30})
	mgr.UpdateStats(time.Unix(120, 0))
	snap, _ = mgr.Snapshot(1)
	if v, _ := snap.Counter(stats.InNonPauseDiscards); v != want {
		t.Errorf("derived counter = %d across rollover, want %d", v, want)
	}
	if v, _ := snap.Counter(stats.InPause); v != 5 {
		t.Errorf("raw pause = %d, want the post-rollover value 5", v)
	}
}

func TestStatFailureKeepsPreviousValues(t *testing.T) {
	adapter, _, mgr := newTestManager(t)
	if err := mgr.CreatePort(desired(1)); err != nil {
		t.Fatalf("CreatePort: %v", err)
	}
	oid := mustFind(t, adapter, []uint32{0})

	adapter.AdvanceCounters(oid, map[StatID]uint64{StatIfInOctets: 9000})
	mgr.UpdateStats(time.Unix(100, 0))

	adapter.FailWith("GetPortStats", sdk.CodeTimeout)
	adapter.AdvanceCounters(oid, map[StatID]uint64{StatIfInOctets: 1000})
	mgr.UpdateStats(time.Unix(110, 0))

	snap, _ := mgr.Snapshot(1)
	if v, _ := snap.Counter(stats.InBytes); v != 9000 {
		t.Errorf("inBytes = %d after failed bulk read, want stale 9000", v)
	}
	if snap.TimestampSec != 110 {
		t.Errorf("snapshot timestamp = %d, want 110", snap.TimestampSec)
	}
}

func TestRenameReinitializesCounters(t *testing.T) {
	adapter, _, mgr := newTestManager(t)
	d := desired(1)
	if err := mgr.CreatePort(d); err != nil {
		t.Fatalf("CreatePort: %v", err)
	}
	oid := mustFind(t, adapter, []uint32{0})
	adapter.AdvanceCounters(oid, map[StatID]uint64{StatIfInOctets: 500})
	mgr.UpdateStats(time.Unix(100, 0))

	next := d
	next.Name = "renamed1"
	if err := mgr.ChangePort(d, next); err != nil {
		t.Fatalf("ChangePort: %v", err)
	}
	if snap, ok := mgr.Snapshot(1); ok {
		t.Errorf("snapshot survived rename: %+v", snap)
	}
}

func TestAdoptByLanes(t *testing.T) {
	adapter, _, mgr := newTestManager(t)
	seeded := adapter.SeedObject(Attributes{
		HwLanes:    []uint32{0, 1, 2, 3},
		AdminState: true,
		SpeedMbps:  100_000,
		MTU:        defaultMTU,
	})

	d := desired(1)
	d.Speed = ports.SpeedHundredG
	if err := mgr.Adopt(d); err != nil {
		t.Fatalf("Adopt: %v", err)
	}
	if n := adapter.CallCount("CreatePort"); n != 0 {
		t.Errorf("adoption created %d objects, want 0", n)
	}
	st, err := mgr.PortStatus(1)
	if err != nil {
		t.Fatalf("PortStatus: %v", err)
	}
	if !st.Enabled || st.SpeedMbps != 100_000 {
		t.Errorf("adopted status = %+v, want enabled at 100000 Mbps", st)
	}
	if !st.Up {
		t.Error("adopted link status not seeded from hardware")
	}

	// Subsequent changes must target the adopted object.
	next := d
	next.IngressVlan = 7
	if err := mgr.ChangePort(d, next); err != nil {
		t.Fatalf("ChangePort after adopt: %v", err)
	}
	attrs, _ := adapter.GetPortAttributes(seeded)
	if attrs.PortVlan != 7 {
		t.Errorf("change after adopt wrote vlan %d to the wrong object", attrs.PortVlan)
	}
}

func TestAdoptWithoutObjectFallsBackToCreate(t *testing.T) {
	adapter, _, mgr := newTestManager(t)
	if err := mgr.Adopt(desired(2)); err != nil {
		t.Fatalf("Adopt: %v", err)
	}
	if n := adapter.CallCount("CreatePort"); n != 1 {
		t.Errorf("fallback created %d objects, want 1", n)
	}
	if _, ok := adapter.FindPort([]uint32{1}); !ok {
		t.Error("fallback object missing")
	}
}

func TestCloseRemovesAllObjects(t *testing.T) {
	adapter, _, mgr := newTestManager(t)
	for _, id := range []ports.PortID{1, 2, 3} {
		if err := mgr.CreatePort(desired(id)); err != nil {
			t.Fatalf("CreatePort(%d): %v", id, err)
		}
	}
	if err := mgr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if n := adapter.ObjectCount(); n != 0 {
		t.Errorf("%d objects survived shutdown, want 0", n)
	}
}

func mustFind(t *testing.T, adapter *Mock, lanes []uint32) ObjectID {
	t.Helper()
	oid, ok := adapter.FindPort(lanes)
	if !ok {
		t.Fatalf("no object on lanes %v", lanes)
	}
	return oid
}
