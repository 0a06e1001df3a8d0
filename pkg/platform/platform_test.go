package platform

import (
	"testing"

	"github.com/veesix-networks/osvswitch/pkg/ports"
)

func TestFakeLayout(t *testing.T) {
	p := NewFake(false)
	all := p.Ports()
	if len(all) != 32 {
		t.Fatalf("fake platform has %d ports, want 32", len(all))
	}

	wantMasters := []ports.PortID{1, 5, 9, 13, 17, 21, 25, 29}
	seen := make(map[ports.PortID]int)
	for _, pp := range all {
		seen[pp.Master]++
	}
	for _, m := range wantMasters {
		if seen[m] != 4 {
			t.Errorf("master %d has %d members, want 4", m, seen[m])
		}
	}

	master, err := p.MasterOf(7)
	if err != nil || master != 5 {
		t.Errorf("MasterOf(7) = (%d, %v), want (5, nil)", master, err)
	}

	lanes, err := p.Lanes(2)
	if err != nil || len(lanes) != 1 || lanes[0] != 1 {
		t.Errorf("Lanes(2) = (%v, %v)", lanes, err)
	}

	if !p.MMULossy() {
		t.Error("fake platform should default to lossy MMU")
	}
	if NewFake(true).MMULossy() {
		t.Error("lossless fake platform reports lossy")
	}
	if qs := p.DefaultQueues(ports.StreamUnicast); qs != nil {
		t.Errorf("fake platform has queue defaults: %v", qs)
	}
}

func TestTomahawkLayout(t *testing.T) {
	p, err := New("tomahawk", false)
	if err != nil {
		t.Fatalf("New(tomahawk): %v", err)
	}
	all := p.Ports()
	if len(all) != 128 {
		t.Fatalf("tomahawk has %d ports, want 128", len(all))
	}
	name, err := p.PortName(1)
	if err != nil || name != "eth1/1/1" {
		t.Errorf("PortName(1) = (%q, %v)", name, err)
	}
	name, _ = p.PortName(8)
	if name != "eth1/2/4" {
		t.Errorf("PortName(8) = %q, want eth1/2/4", name)
	}
	if qs := p.DefaultQueues(ports.StreamUnicast); len(qs) != 8 {
		t.Errorf("tomahawk unicast queue defaults = %d, want 8", len(qs))
	}
	if qs := p.DefaultQueues(ports.StreamMulticast); len(qs) != 4 {
		t.Errorf("tomahawk multicast queue defaults = %d, want 4", len(qs))
	}
}

func TestUnknownPlatform(t *testing.T) {
	if _, err := New("trident9", false); err == nil {
		t.Error("expected error for unknown platform")
	}
	if _, err := New("fake", false); err != nil {
		t.Errorf("New(fake): %v", err)
	}
}

func TestLanesForSpeed(t *testing.T) {
	p := NewFake(false)

	lanes, err := p.LanesForSpeed(1, ports.SpeedHundredG)
	if err != nil {
		t.Fatalf("LanesForSpeed(1, 100G): %v", err)
	}
	if len(lanes) != 4 || lanes[0] != 0 || lanes[3] != 3 {
		t.Errorf("100G lanes = %v, want [0 1 2 3]", lanes)
	}

	lanes, err = p.LanesForSpeed(5, ports.SpeedFiftyG)
	if err != nil || len(lanes) != 2 || lanes[0] != 4 {
		t.Errorf("50G lanes for port 5 = (%v, %v), want lanes 4-5", lanes, err)
	}

	lanes, err = p.LanesForSpeed(2, ports.SpeedTwentyFiveG)
	if err != nil || len(lanes) != 1 || lanes[0] != 1 {
		t.Errorf("25G lanes for port 2 = (%v, %v), want [1]", lanes, err)
	}

	// 100G from the third member would run past the group boundary.
	if _, err := p.LanesForSpeed(3, ports.SpeedHundredG); err == nil {
		t.Error("expected error for 100G on a subport")
	}
}

func TestLookupUnknownPort(t *testing.T) {
	p := NewFake(false)
	if _, err := p.Lanes(200); err == nil {
		t.Error("Lanes(200) should fail")
	}
	if _, err := p.PortName(200); err == nil {
		t.Error("PortName(200) should fail")
	}
	if _, err := p.MasterOf(200); err == nil {
		t.Error("MasterOf(200) should fail")
	}
}
