// Package sdk defines the surface of the switch vendor SDK that the
// agent programs against. A Unit is one ASIC instance. Real units wrap
// the vendor libraries; the sim subpackage provides a software unit for
// development and tests.
package sdk

import (
	"time"

	"github.com/veesix-networks/osvswitch/pkg/ports"
)

// Unit is a single switching ASIC. Implementations must be safe for
// concurrent use: the reconciliation loop, the stats loop and linkscan
// all issue calls independently.
type Unit interface {
	// Device identification and teardown.
	Info() DeviceInfo
	Close() error

	// WarmBooted reports whether the unit attached to pre-existing
	// hardware state rather than resetting it.
	WarmBooted() bool

	// Electrical port state.
	PortEnableSet(port ports.PortID, enable bool) error
	PortEnableGet(port ports.PortID) (bool, error)
	PortLinkStatusGet(port ports.PortID) (bool, error)

	// Speed in Mbps. PortSpeedMax reports the port's hardware ceiling.
	PortSpeedSet(port ports.PortID, mbps int32) error
	PortSpeedGet(port ports.PortID) (int32, error)
	PortSpeedMax(port ports.PortID) (int32, error)

	// Serdes interface mode.
	PortInterfaceSet(port ports.PortID, mode ports.InterfaceMode) error
	PortInterfaceGet(port ports.PortID) (ports.InterfaceMode, error)

	// Unified port resource API. PortResourceSupported reports whether
	// the generation supports programming speed, lane count and FEC as
	// one atomic operation; when false callers fall back to the
	// individual setters.
	PortResourceSupported() bool
	PortResourceGet(port ports.PortID) (PortResource, error)
	PortResourceSet(port ports.PortID, res PortResource) error

	// Low level PHY knobs: FEC and TX FIR tuning.
	PhyControlSet(port ports.PortID, control PhyControl, value uint32) error
	PhyControlGet(port ports.PortID, control PhyControl) (uint32, error)

	// Ingress (port-default) VLAN.
	PortUntaggedVlanGet(port ports.PortID) (ports.VlanID, error)
	PortUntaggedVlanSet(port ports.PortID, vlan ports.VlanID) error

	// VLAN table. VlanPortAdd places every port of pbm into the member
	// set and the subset in ubm into the untagged-egress set.
	VlanCreate(vlan ports.VlanID) error
	VlanDestroy(vlan ports.VlanID) error
	VlanPortAdd(vlan ports.VlanID, pbm, ubm PortBitmap) error
	VlanPortRemove(vlan ports.VlanID, pbm PortBitmap) error
	VlanPortGet(vlan ports.VlanID) (pbm, ubm PortBitmap, err error)
	VlanList() ([]ports.VlanID, error)

	// Membership filtering drops frames tagged with VLANs the port is
	// not a member of, in the given directions.
	PortVlanFilterSet(port ports.PortID, ingress, egress bool) error

	// Flow control pause frames.
	PortPauseGet(port ports.PortID) (tx, rx bool, err error)
	PortPauseSet(port ports.PortID, tx, rx bool) error

	// sFlow packet sampling. A rate of n samples one in n packets; zero
	// disables sampling in that direction.
	PortSampleRateGet(port ports.PortID) (ingress, egress int, err error)
	PortSampleRateSet(port ports.PortID, ingress, egress int) error

	// Diagnostics loopback.
	PortLoopbackGet(port ports.PortID) (ports.LoopbackMode, error)
	PortLoopbackSet(port ports.PortID, mode ports.LoopbackMode) error

	// Counter collection attach and detach. Attaching an already
	// attached port fails with CodeExists, which callers tolerate.
	PortCounterEnable(port ports.PortID) error
	PortCounterDisable(port ports.PortID) error

	// StatGet reads one software-accumulated cumulative counter. Values
	// may lag the hardware by one collection interval.
	StatGet(port ports.PortID, stat StatType) (uint64, error)

	// PortPktLenHistograms reads the in and out packet length histogram
	// vectors in one call.
	PortPktLenHistograms(port ports.PortID) (in, out [NumPktLenBuckets]uint64, err error)

	// Egress queues.
	PortQueueSet(port ports.PortID, q ports.QueueSettings) error
	PortQueueCountGet(port ports.PortID, stream ports.StreamType) (int, error)
	QueueLengthGet(port ports.PortID, queue int) (uint64, error)

	// Mirroring. A destination is created once and bound to ports per
	// direction; destroying it requires all bindings to be gone.
	MirrorDestCreate(dest MirrorDest) (MirrorDestID, error)
	MirrorDestDestroy(id MirrorDestID) error
	PortMirrorEnable(port ports.PortID, dir ports.Direction, id MirrorDestID) error
	PortMirrorDisable(port ports.PortID, dir ports.Direction, id MirrorDestID) error

	// Host interface (CPU punt path) netdevices backed by the ASIC.
	HostIfCreate(port ports.PortID, name string) (int, error)
	HostIfDestroy(id int) error

	// Linkscan. Events carry debounced physical link transitions.
	LinkscanEnable(interval time.Duration) error
	LinkscanDisable() error
	LinkEvents() <-chan LinkEvent
}
