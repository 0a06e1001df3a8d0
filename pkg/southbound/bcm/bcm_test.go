package bcm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/veesix-networks/osvswitch/pkg/mirror"
	"github.com/veesix-networks/osvswitch/pkg/platform"
	"github.com/veesix-networks/osvswitch/pkg/ports"
	"github.com/veesix-networks/osvswitch/pkg/qsfp"
	"github.com/veesix-networks/osvswitch/pkg/southbound"
	"github.com/veesix-networks/osvswitch/pkg/southbound/sdk"
	"github.com/veesix-networks/osvswitch/pkg/southbound/sdk/sim"
	"github.com/veesix-networks/osvswitch/pkg/stats"
)

func newTestBackend(t *testing.T) (*sim.Unit, *platform.Fake, *Switch) {
	t.Helper()
	plat := platform.NewFake(false)
	var ids []ports.PortID
	for _, pp := range plat.Ports() {
		ids = append(ids, pp.ID)
	}
	unit := sim.New(ids)
	reg := mirror.NewRegistry(unit)
	if err := reg.Sync([]mirror.Session{
		{Name: "m1", DestPort: 30},
		{Name: "m2", DestPort: 31},
	}); err != nil {
		t.Fatalf("mirror sync: %v", err)
	}
	src := qsfp.NewStatic(map[string]ports.TransmitterTech{
		"port1": ports.TransmitterCopper,
	})
	return unit, plat, NewSwitch(unit, plat, reg, src)
}

func desired(id ports.PortID) ports.DesiredPort {
	return ports.DesiredPort{
		ID:          id,
		Name:        fmt.Sprintf("port%d", id),
		Enabled:     true,
		IngressVlan: 1,
		Vlans:       []ports.VlanMembership{{Vlan: 100, Tagged: false}},
	}
}

func TestInitColdBootForcesPortsDown(t *testing.T) {
	unit, plat, sw := newTestBackend(t)
	unit.SeedPort(1, sim.PortSeed{Enabled: true, LinkUp: true, SpeedMbps: 100_000})

	if err := sw.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if n := unit.CallCount("PortEnableSet"); n != len(plat.Ports()) {
		t.Errorf("cold boot disabled %d ports, want %d", n, len(plat.Ports()))
	}
	if enabled, _ := unit.PortEnableGet(1); enabled {
		t.Error("port 1 still enabled after cold boot")
	}
}

func TestInitWarmBootSeedsLinkStatus(t *testing.T) {
	unit, _, sw := newTestBackend(t)
	unit.SetWarmBooted(true)
	unit.SeedPort(1, sim.PortSeed{Enabled: true, LinkUp: true, SpeedMbps: 100_000})

	if err := sw.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if n := unit.CallCount("PortEnableSet"); n != 0 {
		t.Errorf("warm boot issued %d PortEnableSet calls, want 0", n)
	}
	if !sw.WarmBooted() {
		t.Error("WarmBooted() = false after warm init")
	}
	if !sw.port(1).isUp() {
		t.Error("cached link status not seeded from hardware")
	}
}

func TestEnableIdempotent(t *testing.T) {
	unit, _, sw := newTestBackend(t)
	d := desired(1)
	if err := sw.CreatePort(d); err != nil {
		t.Fatalf("CreatePort: %v", err)
	}

	members, untagged, ok := unit.VlanMembers(100)
	if !ok || !members.Contains(1) || !untagged.Contains(1) {
		t.Fatalf("untagged membership not programmed: members=%v untagged=%v", members, untagged)
	}

	// Second enable must converge without error and leave hardware
	// unchanged; the duplicate counter attach comes back as CodeExists
	// and is tolerated.
	if err := sw.port(1).enable(d); err != nil {
		t.Fatalf("second enable: %v", err)
	}
	members2, untagged2, _ := unit.VlanMembers(100)
	if members2 != members || untagged2 != untagged {
		t.Error("second enable changed VLAN membership")
	}
	if enabled, _ := unit.PortEnableGet(1); !enabled {
		t.Error("port not enabled after double enable")
	}
}

func TestDisableIdempotent(t *testing.T) {
	unit, _, sw := newTestBackend(t)
	d := desired(1)
	if err := sw.CreatePort(d); err != nil {
		t.Fatalf("CreatePort: %v", err)
	}
	p := sw.port(1)
	if err := p.disable(d); err != nil {
		t.Fatalf("disable: %v", err)
	}
	if err := p.disable(d); err != nil {
		t.Fatalf("second disable: %v", err)
	}
	if members, _, ok := unit.VlanMembers(100); ok && members.Contains(1) {
		t.Error("port still a VLAN member after disable")
	}
	if enabled, _ := unit.PortEnableGet(1); enabled {
		t.Error("port still enabled after disable")
	}
}

func TestTaggedMembershipLeavesUntaggedSetEmpty(t *testing.T) {
	unit, _, sw := newTestBackend(t)
	d := desired(1)
	d.Vlans = []ports.VlanMembership{{Vlan: 200, Tagged: true}}
	if err := sw.CreatePort(d); err != nil {
		t.Fatalf("CreatePort: %v", err)
	}
	members, untagged, ok := unit.VlanMembers(200)
	if !ok || !members.Contains(1) {
		t.Fatal("tagged membership not programmed")
	}
	if untagged.Contains(1) {
		t.Error("tagged membership leaked into the untagged egress set")
	}
}

func TestFlapAvoidanceOnUpPort(t *testing.T) {
	unit, _, sw := newTestBackend(t)
	d := desired(1)
	if err := sw.CreatePort(d); err != nil {
		t.Fatalf("CreatePort: %v", err)
	}
	sw.UpdateLinkStatus(1, true)
	unit.ResetCalls()

	// Port is up and already at its desired (max) speed: reprogramming
	// must not touch speed, mode or the resource record.
	if err := sw.port(1).program(d); err != nil {
		t.Fatalf("program: %v", err)
	}
	for _, op := range []string{"PortResourceSet", "PortSpeedSet", "PortInterfaceSet"} {
		if n := unit.CallCount(op); n != 0 {
			t.Errorf("%s issued %d times on healthy up port, want 0", op, n)
		}
	}
}

func TestDownPortAlwaysReprogrammed(t *testing.T) {
	unit, plat, sw := newTestBackend(t)
	plat.SetPortResourceAPI(false)
	d := desired(1)
	if err := sw.CreatePort(d); err != nil {
		t.Fatalf("CreatePort: %v", err)
	}
	sw.UpdateLinkStatus(1, false)
	unit.ResetCalls()

	// Speed and mode already match, but the port is down: both writes
	// are still issued to finalize pending lane transitions.
	if err := sw.port(1).program(d); err != nil {
		t.Fatalf("program: %v", err)
	}
	if n := unit.CallCount("PortSpeedSet"); n != 1 {
		t.Errorf("PortSpeedSet issued %d times on down port, want 1", n)
	}
	if n := unit.CallCount("PortInterfaceSet"); n != 1 {
		t.Errorf("PortInterfaceSet issued %d times on down port, want 1", n)
	}
}

func TestSpeedChangeOnUpPortStillWritten(t *testing.T) {
	unit, plat, sw := newTestBackend(t)
	plat.SetPortResourceAPI(false)
	d := desired(1)
	if err := sw.CreatePort(d); err != nil {
		t.Fatalf("CreatePort: %v", err)
	}
	sw.UpdateLinkStatus(1, true)
	unit.ResetCalls()

	d.Speed = ports.SpeedFortyG
	if err := sw.port(1).program(d); err != nil {
		t.Fatalf("program: %v", err)
	}
	if n := unit.CallCount("PortSpeedSet"); n != 1 {
		t.Errorf("mismatched speed on up port issued %d writes, want 1", n)
	}
	if speed, _ := unit.PortSpeedGet(1); speed != 40_000 {
		t.Errorf("speed = %d, want 40000", speed)
	}
}

func TestProgrammedSpeedMatchesHardwareRecord(t *testing.T) {
	unit, plat, sw := newTestBackend(t)

	// Resource path: the record read back from hardware carries the
	// configured Mbps value.
	d := desired(1)
	d.Speed = ports.SpeedTwentyFiveG
	if err := sw.CreatePort(d); err != nil {
		t.Fatalf("CreatePort: %v", err)
	}
	res, err := unit.PortResourceGet(1)
	if err != nil {
		t.Fatalf("PortResourceGet: %v", err)
	}
	if res.SpeedMbps != d.Speed.Mbps() {
		t.Errorf("resource speed = %d, want %d", res.SpeedMbps, d.Speed.Mbps())
	}

	// Legacy path: same check through the plain speed register.
	plat.SetPortResourceAPI(false)
	d2 := desired(5)
	d2.Speed = ports.SpeedHundredG
	if err := sw.CreatePort(d2); err != nil {
		t.Fatalf("CreatePort: %v", err)
	}
	speed, err := unit.PortSpeedGet(5)
	if err != nil {
		t.Fatalf("PortSpeedGet: %v", err)
	}
	if speed != d2.Speed.Mbps() {
		t.Errorf("speed register = %d, want %d", speed, d2.Speed.Mbps())
	}
}

func TestTxTuningProgrammed(t *testing.T) {
	unit, plat, sw := newTestBackend(t)
	plat.SetPortResourceAPI(false)
	d := desired(1)
	d.TxSettings = &ports.TxSettings{DriveCurrent: 0x1f, PreTap: 4, MainTap: 60, PostTap: 12}
	if err := sw.CreatePort(d); err != nil {
		t.Fatalf("CreatePort: %v", err)
	}

	reads := []struct {
		control sdk.PhyControl
		want    uint32
	}{
		{sdk.PhyControlTxFIRDriveCurrent, d.TxSettings.DriveCurrent},
		{sdk.PhyControlTxFIRPre, d.TxSettings.PreTap},
		{sdk.PhyControlTxFIRMain, d.TxSettings.MainTap},
		{sdk.PhyControlTxFIRPost, d.TxSettings.PostTap},
	}
	for _, r := range reads {
		v, err := unit.PhyControlGet(1, r.control)
		if err != nil {
			t.Fatalf("PhyControlGet(%v): %v", r.control, err)
		}
		if v != r.want {
			t.Errorf("phy control %v = %d, want %d", r.control, v, r.want)
		}
	}
}

func TestLegacyPathProgramsFEC(t *testing.T) {
	unit, plat, sw := newTestBackend(t)
	plat.SetPortResourceAPI(false)
	d := desired(1)
	d.FEC = ports.FECOn
	if err := sw.CreatePort(d); err != nil {
		t.Fatalf("CreatePort: %v", err)
	}
	v, err := unit.PhyControlGet(1, sdk.PhyControlForwardErrorCorrection)
	if err != nil {
		t.Fatalf("PhyControlGet: %v", err)
	}
	if v != sdk.PhyFECOn {
		t.Errorf("fec = %d, want on", v)
	}
}

func TestMirrorRebindSymmetry(t *testing.T) {
	unit, _, sw := newTestBackend(t)
	d := desired(1)
	if err := sw.CreatePort(d); err != nil {
		t.Fatalf("CreatePort: %v", err)
	}
	p := sw.port(1)
	if err := p.updateMirror("m1", ports.Ingress); err != nil {
		t.Fatalf("bind m1: %v", err)
	}
	unit.ResetCalls()

	if err := p.updateMirror("m2", ports.Ingress); err != nil {
		t.Fatalf("rebind m2: %v", err)
	}
	if n := unit.CallCount("PortMirrorDisable"); n != 1 {
		t.Errorf("rebind issued %d stops, want exactly 1", n)
	}
	if n := unit.CallCount("PortMirrorEnable"); n != 1 {
		t.Errorf("rebind issued %d starts, want exactly 1", n)
	}
	id, bound := unit.MirrorBinding(1, ports.Ingress)
	if !bound {
		t.Fatal("no mirror bound after rebind")
	}
	m2, _ := sw.mirrors.Lookup("m2")
	if id != m2.ID() {
		t.Errorf("bound destination %d, want m2's %d", id, m2.ID())
	}
}

func TestMirrorReassertSameName(t *testing.T) {
	unit, _, sw := newTestBackend(t)
	if err := sw.CreatePort(desired(1)); err != nil {
		t.Fatalf("CreatePort: %v", err)
	}
	p := sw.port(1)
	if err := p.updateMirror("m1", ports.Egress); err != nil {
		t.Fatalf("bind: %v", err)
	}
	unit.ResetCalls()

	// Same name again: still one stop followed by one start, so the
	// hardware session is re-asserted after steps that may reset it.
	if err := p.updateMirror("m1", ports.Egress); err != nil {
		t.Fatalf("re-assert: %v", err)
	}
	if n := unit.CallCount("PortMirrorDisable"); n != 1 {
		t.Errorf("re-assert issued %d stops, want 1", n)
	}
	if n := unit.CallCount("PortMirrorEnable"); n != 1 {
		t.Errorf("re-assert issued %d starts, want 1", n)
	}
}

func TestMirrorUnknownNameIsConsistencyError(t *testing.T) {
	_, _, sw := newTestBackend(t)
	if err := sw.CreatePort(desired(1)); err != nil {
		t.Fatalf("CreatePort: %v", err)
	}
	err := sw.port(1).updateMirror("ghost", ports.Ingress)
	if err == nil || !southbound.IsConsistency(err) {
		t.Errorf("unknown mirror produced %v, want consistency violation", err)
	}
}

func TestRemovePortTearsDownMirrors(t *testing.T) {
	unit, _, sw := newTestBackend(t)
	d := desired(1)
	d.IngressMirror = "m1"
	d.EgressMirror = "m2"
	if err := sw.CreatePort(d); err != nil {
		t.Fatalf("CreatePort: %v", err)
	}
	if _, bound := unit.MirrorBinding(1, ports.Ingress); !bound {
		t.Fatal("ingress mirror not bound by create")
	}
	if err := sw.RemovePort(d); err != nil {
		t.Fatalf("RemovePort: %v", err)
	}
	if _, bound := unit.MirrorBinding(1, ports.Ingress); bound {
		t.Error("ingress mirror survived removal")
	}
	if _, bound := unit.MirrorBinding(1, ports.Egress); bound {
		t.Error("egress mirror survived removal")
	}
}

func TestCloseStopsAllMirrors(t *testing.T) {
	unit, _, sw := newTestBackend(t)
	d := desired(1)
	d.IngressMirror = "m1"
	if err := sw.CreatePort(d); err != nil {
		t.Fatalf("CreatePort: %v", err)
	}
	if err := sw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, bound := unit.MirrorBinding(1, ports.Ingress); bound {
		t.Error("mirror binding outlived the backend")
	}
}

func TestDeltaConsistencyViolations(t *testing.T) {
	_, _, sw := newTestBackend(t)
	d := desired(1)
	if err := sw.CreatePort(d); err != nil {
		t.Fatalf("CreatePort: %v", err)
	}
	if err := sw.CreatePort(d); !southbound.IsConsistency(err) {
		t.Errorf("double create produced %v, want consistency violation", err)
	}
	other := desired(2)
	if err := sw.ChangePort(other, other); !southbound.IsConsistency(err) {
		t.Errorf("change of unbound port produced %v, want consistency violation", err)
	}
	if err := sw.RemovePort(other); !southbound.IsConsistency(err) {
		t.Errorf("remove of unbound port produced %v, want consistency violation", err)
	}
}

func TestQueueOutOfRangeIsUnsupported(t *testing.T) {
	_, _, sw := newTestBackend(t)
	d := desired(1)
	d.Queues = []ports.QueueSettings{{ID: 12, Stream: ports.StreamUnicast, Weight: 1}}
	err := sw.CreatePort(d)
	if err == nil || !southbound.IsUnsupported(err) {
		t.Errorf("out of range queue produced %v, want unsupported", err)
	}
}

func TestQueueProgramming(t *testing.T) {
	unit, _, sw := newTestBackend(t)
	d := desired(1)
	d.Queues = []ports.QueueSettings{{ID: 3, Stream: ports.StreamUnicast, Weight: 7, ReservedBytes: 1024}}
	if err := sw.CreatePort(d); err != nil {
		t.Fatalf("CreatePort: %v", err)
	}
	q, ok := unit.QueueConfig(1, ports.StreamUnicast, 3)
	if !ok {
		t.Fatal("queue 3 not programmed")
	}
	if q.Weight != 7 || q.ReservedBytes != 1024 {
		t.Errorf("queue programmed as %+v", q)
	}
}

func TestVendorFailureAbortsAndCarriesContext(t *testing.T) {
	unit, _, sw := newTestBackend(t)
	unit.FailWith("PortVlanFilterSet", sdk.CodeFail)
	err := sw.CreatePort(desired(1))
	if err == nil {
		t.Fatal("expected enable to fail")
	}
	var verr *southbound.VendorError
	if !errors.As(err, &verr) {
		t.Fatalf("error %v does not carry vendor context", err)
	}
	if verr.Port != 1 {
		t.Errorf("vendor error port = %d, want 1", verr.Port)
	}
	if enabled, _ := unit.PortEnableGet(1); enabled {
		t.Error("port was enabled despite an earlier step failing")
	}
}

func setupStatsPort(t *testing.T, sw *Switch) *Port {
	t.Helper()
	if err := sw.CreatePort(desired(1)); err != nil {
		t.Fatalf("CreatePort: %v", err)
	}
	return sw.port(1)
}

func TestStatsCycleAndNonPauseDiscards(t *testing.T) {
	unit, _, sw := newTestBackend(t)
	p := setupStatsPort(t, sw)

	now := time.Unix(1000, 0)
	sw.UpdateStats(now)
	snap, ok := sw.Snapshot(1)
	if !ok {
		t.Fatal("no snapshot after first cycle")
	}
	if snap.TimestampSec != 1000 {
		t.Errorf("timestamp = %d, want 1000", snap.TimestampSec)
	}
	if _, ok := snap.Counter(stats.InNonPauseDiscards); ok {
		t.Error("derived counter computed on the very first cycle")
	}

	unit.AdvanceCounters(1, map[sdk.StatType]uint64{
		sdk.StatInDiscards: 50,
		sdk.StatInPause:    20,
	})
	sw.UpdateStats(now.Add(time.Second))
	snap, _ = sw.Snapshot(1)
	if v, _ := snap.Counter(stats.InNonPauseDiscards); v != 30 {
		t.Errorf("non-pause discards = %d, want 30", v)
	}

	// Pure pause traffic: the derived counter must not move.
	unit.AdvanceCounters(1, map[sdk.StatType]uint64{
		sdk.StatInDiscards: 10,
		sdk.StatInPause:    10,
	})
	sw.UpdateStats(now.Add(2 * time.Second))
	snap, _ = sw.Snapshot(1)
	if v, _ := snap.Counter(stats.InNonPauseDiscards); v != 30 {
		t.Errorf("non-pause discards moved to %d on pure pause traffic", v)
	}

	raw, _ := snap.Counter(stats.InDiscards)
	if derived, _ := snap.Counter(stats.InNonPauseDiscards); derived > raw {
		t.Errorf("derived %d exceeds raw discards %d", derived, raw)
	}

	if !p.isBound() {
		t.Fatal("port unexpectedly unbound")
	}
}

func TestStatsRolloverSkipsCycle(t *testing.T) {
	unit, _, sw := newTestBackend(t)
	setupStatsPort(t, sw)

	unit.AdvanceCounters(1, map[sdk.StatType]uint64{
		sdk.StatInDiscards: 100,
		sdk.StatInPause:    40,
	})
	now := time.Unix(2000, 0)
	sw.UpdateStats(now)
	sw.UpdateStats(now.Add(time.Second))
	snap, _ := sw.Snapshot(1)
	before, _ := snap.Counter(stats.InNonPauseDiscards)

	// Simulated wraparound: pause counter goes backwards.
	unit.SetCounter(1, sdk.StatInPause, 3)
	sw.UpdateStats(now.Add(2 * time.Second))
	snap, _ = sw.Snapshot(1)
	if after, _ := snap.Counter(stats.InNonPauseDiscards); after != before {
		t.Errorf("rollover cycle changed derived counter %d -> %d", before, after)
	}
}

func TestStatFetchFailureLeavesCounterStale(t *testing.T) {
	unit, _, sw := newTestBackend(t)
	setupStatsPort(t, sw)

	unit.AdvanceCounters(1, map[sdk.StatType]uint64{
		sdk.StatInBytes:  1000,
		sdk.StatOutBytes: 2000,
	})
	sw.UpdateStats(time.Unix(3000, 0))

	unit.FailStat(1, sdk.StatInBytes, sdk.CodeTimeout)
	unit.AdvanceCounters(1, map[sdk.StatType]uint64{
		sdk.StatInBytes:  500,
		sdk.StatOutBytes: 500,
	})
	sw.UpdateStats(time.Unix(3001, 0))

	snap, _ := sw.Snapshot(1)
	if v, _ := snap.Counter(stats.InBytes); v != 1000 {
		t.Errorf("failed counter advanced to %d, want stale 1000", v)
	}
	if v, _ := snap.Counter(stats.OutBytes); v != 2500 {
		t.Errorf("healthy counter = %d, want 2500; one failure must not abort the cycle", v)
	}
}

func TestStatsNoopWithoutName(t *testing.T) {
	_, _, sw := newTestBackend(t)
	d := desired(1)
	d.Name = ""
	if err := sw.CreatePort(d); err != nil {
		t.Fatalf("CreatePort: %v", err)
	}
	sw.UpdateStats(time.Unix(100, 0))
	if _, ok := sw.Snapshot(1); ok {
		t.Error("unnamed port published a snapshot")
	}
}

func TestRenameReinitializesCounters(t *testing.T) {
	unit, _, sw := newTestBackend(t)
	d := desired(1)
	if err := sw.CreatePort(d); err != nil {
		t.Fatalf("CreatePort: %v", err)
	}
	unit.AdvanceCounters(1, map[sdk.StatType]uint64{sdk.StatInBytes: 42})
	sw.UpdateStats(time.Unix(100, 0))
	if _, ok := sw.Snapshot(1); !ok {
		t.Fatal("no snapshot before rename")
	}

	renamed := d
	renamed.Name = "uplink1"
	if err := sw.ChangePort(d, renamed); err != nil {
		t.Fatalf("ChangePort: %v", err)
	}
	if _, ok := sw.Snapshot(1); ok {
		t.Error("snapshot survived a rename; counters must reinitialize")
	}
	sw.UpdateStats(time.Unix(101, 0))
	snap, ok := sw.Snapshot(1)
	if !ok {
		t.Fatal("no snapshot after rename and fresh cycle")
	}
	if _, ok := snap.Counter(stats.InNonPauseDiscards); ok {
		t.Error("derived counter survived the rename")
	}
}

func TestSnapshotAtomicityUnderConcurrency(t *testing.T) {
	unit, _, sw := newTestBackend(t)
	setupStatsPort(t, sw)
	sw.UpdateStats(time.Unix(1, 0))

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var lastTS int64
			for {
				select {
				case <-stop:
					return
				default:
				}
				snap, ok := sw.Snapshot(1)
				if !ok {
					continue
				}
				if snap.TimestampSec < lastTS {
					t.Errorf("snapshot timestamp went backwards: %d after %d", snap.TimestampSec, lastTS)
					return
				}
				lastTS = snap.TimestampSec
				// A published snapshot always carries the full raw
				// counter set; a partially built cycle must never leak.
				for _, name := range stats.RawCounterNames() {
					if _, ok := snap.Counter(name); !ok {
						t.Errorf("published snapshot missing %s", name)
						return
					}
				}
			}
		}()
	}

	for cycle := 0; cycle < 200; cycle++ {
		unit.AdvanceCounters(1, map[sdk.StatType]uint64{
			sdk.StatInBytes:  100,
			sdk.StatOutBytes: 100,
		})
		sw.UpdateStats(time.Unix(int64(cycle+2), 0))
	}
	close(stop)
	wg.Wait()
}
