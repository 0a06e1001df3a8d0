package platform

import (
	"fmt"

	"github.com/veesix-networks/osvswitch/pkg/ports"
)

// Fake is the software test board: eight lane groups of four lanes with
// master ports 1, 5, 9, 13, 17, 21, 25, 29. It ships no default queue
// layout, so only explicitly configured queues get programmed.
type Fake struct {
	portIndex
	lossy       bool
	resourceAPI bool
}

// NewFake returns the test board, lossy unless lossless is set.
func NewFake(lossless bool) *Fake {
	list := make([]PhysicalPort, 0, 32)
	for group := 0; group < 8; group++ {
		master := ports.PortID(group*4 + 1)
		for sub := 0; sub < 4; sub++ {
			id := master + ports.PortID(sub)
			list = append(list, PhysicalPort{
				ID:     id,
				Master: master,
				Lanes:  []uint32{uint32(group*4 + sub)},
				Name:   fmt.Sprintf("port%d", id),
			})
		}
	}
	return &Fake{portIndex: newPortIndex(list), lossy: !lossless, resourceAPI: true}
}

func (f *Fake) Name() string { return "fake" }

func (f *Fake) Ports() []PhysicalPort { return f.ports() }

func (f *Fake) Lanes(id ports.PortID) ([]uint32, error) { return f.lanes(id) }

func (f *Fake) PortName(id ports.PortID) (string, error) { return f.portName(id) }

func (f *Fake) MasterOf(id ports.PortID) (ports.PortID, error) { return f.masterOf(id) }

func (f *Fake) LanesForSpeed(id ports.PortID, speed ports.Speed) ([]uint32, error) {
	return f.lanesForSpeed(id, speed)
}

func (f *Fake) MaxSpeed(id ports.PortID) (ports.Speed, error) { return f.maxSpeed(id) }

func (f *Fake) SupportsPortResourceAPI() bool { return f.resourceAPI }

// SetPortResourceAPI flips the board onto the legacy programming path.
func (f *Fake) SetPortResourceAPI(ok bool) { f.resourceAPI = ok }

func (f *Fake) MMULossy() bool { return f.lossy }

func (f *Fake) DefaultQueues(stream ports.StreamType) []ports.QueueSettings { return nil }
