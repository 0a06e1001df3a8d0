// Package sai drives a unit through an attribute-oriented adapter, the
// shape standardized switch abstraction layers expose: ports are
// objects created from an attribute list, and every later change is a
// single-attribute set. Reconciliation is an attribute diff, so
// unchanged attributes are never rewritten and a healthy up port is
// left alone.
package sai

import (
	"fmt"

	"github.com/veesix-networks/osvswitch/pkg/ports"
)

// ObjectID names a port object allocated by the adapter.
type ObjectID uint64

// AttrID selects one port attribute.
type AttrID int

const (
	AttrAdminState AttrID = iota
	AttrSpeed
	AttrFECMode
	AttrFlowControl
	AttrInternalLoopback
	AttrMediaType
	AttrPortVlanID
	AttrMTU
)

func (a AttrID) String() string {
	switch a {
	case AttrAdminState:
		return "admin-state"
	case AttrSpeed:
		return "speed"
	case AttrFECMode:
		return "fec-mode"
	case AttrFlowControl:
		return "flow-control"
	case AttrInternalLoopback:
		return "internal-loopback"
	case AttrMediaType:
		return "media-type"
	case AttrPortVlanID:
		return "port-vlan-id"
	case AttrMTU:
		return "mtu"
	}
	return fmt.Sprintf("attr-%d", int(a))
}

// FECMode is the adapter's FEC encoding.
type FECMode int

const (
	FECNone FECMode = iota
	FECRS
)

// FlowControl is the adapter's global flow control mode, derived from
// the pause tx/rx pair.
type FlowControl int

const (
	FlowControlDisable FlowControl = iota
	FlowControlTxOnly
	FlowControlRxOnly
	FlowControlBothEnable
)

// Loopback is the adapter's internal loopback encoding.
type Loopback int

const (
	LoopbackDisabled Loopback = iota
	LoopbackPHY
	LoopbackMAC
)

// MediaType is the adapter's media encoding.
type MediaType int

const (
	MediaUnknown MediaType = iota
	MediaCopper
	MediaFiber
)

// Attributes is the full attribute record of one port object. HwLanes
// is create-only: lane assignment cannot change on a live object, the
// port must be removed and recreated.
type Attributes struct {
	HwLanes     []uint32
	AdminState  bool
	SpeedMbps   int32
	FEC         FECMode
	FlowControl FlowControl
	Loopback    Loopback
	Media       MediaType
	PortVlan    ports.VlanID
	MTU         int
}

// AttrUpdate is one attribute write.
type AttrUpdate struct {
	ID    AttrID
	Value any
}

// Diff lists the single-attribute writes turning old into next, in
// fixed attribute order. Lane changes do not diff; callers detect them
// separately and recreate the object.
func Diff(old, next Attributes) []AttrUpdate {
	var out []AttrUpdate
	if old.AdminState != next.AdminState {
		out = append(out, AttrUpdate{AttrAdminState, next.AdminState})
	}
	if old.SpeedMbps != next.SpeedMbps {
		out = append(out, AttrUpdate{AttrSpeed, next.SpeedMbps})
	}
	if old.FEC != next.FEC {
		out = append(out, AttrUpdate{AttrFECMode, next.FEC})
	}
	if old.FlowControl != next.FlowControl {
		out = append(out, AttrUpdate{AttrFlowControl, next.FlowControl})
	}
	if old.Loopback != next.Loopback {
		out = append(out, AttrUpdate{AttrInternalLoopback, next.Loopback})
	}
	if old.Media != next.Media {
		out = append(out, AttrUpdate{AttrMediaType, next.Media})
	}
	if old.PortVlan != next.PortVlan {
		out = append(out, AttrUpdate{AttrPortVlanID, next.PortVlan})
	}
	if old.MTU != next.MTU {
		out = append(out, AttrUpdate{AttrMTU, next.MTU})
	}
	return out
}

// LanesEqual reports whether two lane lists assign the same serdes
// lanes in the same order.
func LanesEqual(a, b []uint32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// StatID selects one counter for GetPortStats.
type StatID int

const (
	StatIfInOctets StatID = iota
	StatIfInUcastPkts
	StatIfInMulticastPkts
	StatIfInBroadcastPkts
	StatIfInDiscards
	StatIfInErrors
	StatIfInPauseFrames
	StatIfInIpv4HdrErrors
	StatIfInIpv6HdrErrors
	StatIfOutOctets
	StatIfOutUcastPkts
	StatIfOutMulticastPkts
	StatIfOutBroadcastPkts
	StatIfOutDiscards
	StatIfOutErrors
	StatIfOutPauseFrames
	StatIfOutEcnMarked
)

// Adapter is the vendor abstraction layer surface the manager programs
// against. Implementations must be safe for concurrent use.
type Adapter interface {
	// WarmBooted reports whether the adapter attached to pre-existing
	// object state rather than resetting the unit.
	WarmBooted() bool

	// CreatePort allocates a port object from the full attribute record.
	CreatePort(attrs Attributes) (ObjectID, error)

	// RemovePort destroys the object. Fails when the object is unknown.
	RemovePort(oid ObjectID) error

	// FindPort resolves an existing object by its lane assignment, the
	// stable hardware key that survives agent restarts. Warm boots use
	// it to re-adopt objects created by the previous run.
	FindPort(lanes []uint32) (ObjectID, bool)

	// SetPortAttribute writes one attribute on a live object.
	SetPortAttribute(oid ObjectID, upd AttrUpdate) error

	// GetPortAttributes reads the full attribute record back.
	GetPortAttributes(oid ObjectID) (Attributes, error)

	// PortOperStatus reports the physical link state.
	PortOperStatus(oid ObjectID) (bool, error)

	// GetPortStats reads the requested counters in one bulk call.
	// Counters the hardware cannot serve are absent from the result,
	// not zero.
	GetPortStats(oid ObjectID, ids []StatID) (map[StatID]uint64, error)

	Close() error
}
