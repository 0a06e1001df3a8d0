// Package platform describes the board a unit is mounted on: which
// logical ports exist, which serdes lanes back them, and the per-board
// defaults the reconciler consults.
package platform

import (
	"fmt"

	"github.com/veesix-networks/osvswitch/pkg/ports"
)

// PhysicalPort ties a logical port to its serdes lanes. Master is the
// first port of the lane group; ports in the same group share it and
// flex together.
type PhysicalPort struct {
	ID     ports.PortID
	Master ports.PortID
	Lanes  []uint32
	Name   string
}

// Platform is one supported board.
type Platform interface {
	Name() string

	// Ports lists every logical port the board exposes, ordered by ID.
	Ports() []PhysicalPort

	// Lanes returns the serdes lanes backing the port.
	Lanes(id ports.PortID) ([]uint32, error)

	// LanesForSpeed returns the lanes the port occupies when running at
	// speed: consecutive lanes of its group starting at its own, one
	// per 25G/10G of bandwidth depending on the serdes generation.
	LanesForSpeed(id ports.PortID, speed ports.Speed) ([]uint32, error)

	// MaxSpeed reports the fastest speed the port can run at in its
	// current lane grouping: the full group bandwidth for a master
	// port, a single lane's worth for a subport.
	MaxSpeed(id ports.PortID) (ports.Speed, error)

	// SupportsPortResourceAPI reports whether speed, lane count and FEC
	// are programmed through the unified resource call instead of the
	// legacy per-attribute setters.
	SupportsPortResourceAPI() bool

	// PortName returns the front panel name for the port.
	PortName(id ports.PortID) (string, error)

	// MasterOf returns the master port of the lane group id belongs to.
	MasterOf(id ports.PortID) (ports.PortID, error)

	// MMULossy reports whether the MMU runs in lossy mode. Derived
	// non-pause discard accounting only applies on lossy boards.
	MMULossy() bool

	// DefaultQueues returns the board's default egress queue layout for
	// the stream type, or nil when the board ships no defaults and only
	// explicitly configured queues are programmed.
	DefaultQueues(stream ports.StreamType) []ports.QueueSettings
}

// New returns the platform registered under name. Lossless flips the
// MMU out of the default lossy mode on boards that support it.
func New(name string, lossless bool) (Platform, error) {
	switch name {
	case "tomahawk":
		return newTomahawk(lossless), nil
	case "fake":
		return NewFake(lossless), nil
	default:
		return nil, fmt.Errorf("unknown platform %q", name)
	}
}

// portIndex builds the shared lookup structures from a port list.
type portIndex struct {
	list []PhysicalPort
	byID map[ports.PortID]*PhysicalPort
}

func newPortIndex(list []PhysicalPort) portIndex {
	idx := portIndex{list: list, byID: make(map[ports.PortID]*PhysicalPort, len(list))}
	for i := range idx.list {
		idx.byID[idx.list[i].ID] = &idx.list[i]
	}
	return idx
}

func (x portIndex) ports() []PhysicalPort {
	out := make([]PhysicalPort, len(x.list))
	copy(out, x.list)
	return out
}

func (x portIndex) lanes(id ports.PortID) ([]uint32, error) {
	p, ok := x.byID[id]
	if !ok {
		return nil, fmt.Errorf("no such port %d", id)
	}
	lanes := make([]uint32, len(p.Lanes))
	copy(lanes, p.Lanes)
	return lanes, nil
}

func (x portIndex) portName(id ports.PortID) (string, error) {
	p, ok := x.byID[id]
	if !ok {
		return "", fmt.Errorf("no such port %d", id)
	}
	return p.Name, nil
}

func (x portIndex) masterOf(id ports.PortID) (ports.PortID, error) {
	p, ok := x.byID[id]
	if !ok {
		return 0, fmt.Errorf("no such port %d", id)
	}
	return p.Master, nil
}

func (x portIndex) maxSpeed(id ports.PortID) (ports.Speed, error) {
	p, ok := x.byID[id]
	if !ok {
		return ports.SpeedDefault, fmt.Errorf("no such port %d", id)
	}
	if p.ID == p.Master {
		return ports.SpeedHundredG, nil
	}
	return ports.SpeedTwentyFiveG, nil
}

// laneCount is the number of serdes lanes a speed occupies on a 25G
// serdes board.
func laneCount(speed ports.Speed) int {
	switch speed {
	case ports.SpeedHundredG, ports.SpeedFortyG:
		return 4
	case ports.SpeedFiftyG:
		return 2
	default:
		return 1
	}
}

// lanesForSpeed collects the consecutive group lanes the port occupies
// at the given speed, starting at the port's own lane.
func (x portIndex) lanesForSpeed(id ports.PortID, speed ports.Speed) ([]uint32, error) {
	p, ok := x.byID[id]
	if !ok {
		return nil, fmt.Errorf("no such port %d", id)
	}
	need := laneCount(speed)
	lanes := make([]uint32, 0, need)
	for sub := 0; sub < need; sub++ {
		member, ok := x.byID[id+ports.PortID(sub)]
		if !ok || member.Master != p.Master {
			return nil, fmt.Errorf("port %d: speed %v needs %d lanes but the group ends after %d", id, speed, need, sub)
		}
		lanes = append(lanes, member.Lanes...)
	}
	return lanes, nil
}
