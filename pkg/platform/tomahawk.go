package platform

import (
	"fmt"

	"github.com/veesix-networks/osvswitch/pkg/ports"
)

// tomahawk models a 32x100G board: 32 lane groups of 4 serdes lanes,
// logical ports 1..128, master ports 1, 5, 9, ... 125. Each group can
// run as one 100G/40G port or flex into 4x25G/4x10G.
type tomahawk struct {
	portIndex
	lossy bool
}

func newTomahawk(lossless bool) *tomahawk {
	list := make([]PhysicalPort, 0, 128)
	for group := 0; group < 32; group++ {
		master := ports.PortID(group*4 + 1)
		for sub := 0; sub < 4; sub++ {
			id := master + ports.PortID(sub)
			list = append(list, PhysicalPort{
				ID:     id,
				Master: master,
				Lanes:  []uint32{uint32(group*4 + sub)},
				Name:   fmt.Sprintf("eth1/%d/%d", group+1, sub+1),
			})
		}
	}
	return &tomahawk{portIndex: newPortIndex(list), lossy: !lossless}
}

func (t *tomahawk) Name() string { return "tomahawk" }

func (t *tomahawk) Ports() []PhysicalPort { return t.ports() }

func (t *tomahawk) Lanes(id ports.PortID) ([]uint32, error) { return t.lanes(id) }

func (t *tomahawk) PortName(id ports.PortID) (string, error) { return t.portName(id) }

func (t *tomahawk) MasterOf(id ports.PortID) (ports.PortID, error) { return t.masterOf(id) }

func (t *tomahawk) LanesForSpeed(id ports.PortID, speed ports.Speed) ([]uint32, error) {
	return t.lanesForSpeed(id, speed)
}

func (t *tomahawk) MaxSpeed(id ports.PortID) (ports.Speed, error) { return t.maxSpeed(id) }

func (t *tomahawk) SupportsPortResourceAPI() bool { return true }

func (t *tomahawk) MMULossy() bool { return t.lossy }

// DefaultQueues ships the standard layout: eight weighted round robin
// unicast queues and four multicast queues.
func (t *tomahawk) DefaultQueues(stream ports.StreamType) []ports.QueueSettings {
	var n int
	switch stream {
	case ports.StreamUnicast:
		n = 8
	case ports.StreamMulticast:
		n = 4
	default:
		return nil
	}
	qs := make([]ports.QueueSettings, n)
	for i := range qs {
		qs[i] = ports.QueueSettings{ID: i, Stream: stream, Weight: 1}
	}
	return qs
}
