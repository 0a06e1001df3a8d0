package sdk

import (
	"math/bits"
	"strconv"
	"strings"

	"github.com/veesix-networks/osvswitch/pkg/ports"
)

// MaxPorts bounds the logical port space of a unit.
const MaxPorts = 256

// PortBitmap is a fixed size set of logical ports, the shape VLAN and
// trunk operations take at the SDK boundary.
type PortBitmap struct {
	words [MaxPorts / 64]uint64
}

// NewPortBitmap returns a bitmap containing the given ports.
func NewPortBitmap(ids ...ports.PortID) PortBitmap {
	var b PortBitmap
	for _, id := range ids {
		b.Add(id)
	}
	return b
}

func (b *PortBitmap) Add(id ports.PortID) {
	if id >= MaxPorts {
		return
	}
	b.words[id/64] |= 1 << (id % 64)
}

func (b *PortBitmap) Remove(id ports.PortID) {
	if id >= MaxPorts {
		return
	}
	b.words[id/64] &^= 1 << (id % 64)
}

func (b PortBitmap) Contains(id ports.PortID) bool {
	if id >= MaxPorts {
		return false
	}
	return b.words[id/64]&(1<<(id%64)) != 0
}

func (b PortBitmap) IsEmpty() bool {
	for _, w := range b.words {
		if w != 0 {
			return false
		}
	}
	return true
}

func (b PortBitmap) Count() int {
	n := 0
	for _, w := range b.words {
		n += bits.OnesCount64(w)
	}
	return n
}

// Ports lists the members in ascending order.
func (b PortBitmap) Ports() []ports.PortID {
	out := make([]ports.PortID, 0, b.Count())
	for wi, w := range b.words {
		for w != 0 {
			bit := bits.TrailingZeros64(w)
			out = append(out, ports.PortID(wi*64+bit))
			w &= w - 1
		}
	}
	return out
}

func (b PortBitmap) String() string {
	members := b.Ports()
	parts := make([]string, len(members))
	for i, id := range members {
		parts[i] = strconv.FormatUint(uint64(id), 10)
	}
	return "{" + strings.Join(parts, ",") + "}"
}
