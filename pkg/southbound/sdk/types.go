package sdk

import (
	"time"

	"github.com/veesix-networks/osvswitch/pkg/ports"
)

// DeviceInfo identifies an attached ASIC.
type DeviceInfo struct {
	Unit     int
	Name     string
	Revision string
}

// PortResource is the unified port programming record: speed, lane
// count and FEC applied as one atomic hardware operation on generations
// that support it.
type PortResource struct {
	Port      ports.PortID
	Lanes     int32
	SpeedMbps int32
	FEC       ports.FECMode
}

// PhyControl selects a low level PHY knob for PhyControlSet/Get.
type PhyControl int

const (
	PhyControlForwardErrorCorrection PhyControl = iota
	PhyControlTxFIRPre
	PhyControlTxFIRMain
	PhyControlTxFIRPost
	PhyControlTxFIRDriveCurrent
)

func (c PhyControl) String() string {
	switch c {
	case PhyControlForwardErrorCorrection:
		return "fec"
	case PhyControlTxFIRPre:
		return "tx-fir-pre"
	case PhyControlTxFIRMain:
		return "tx-fir-main"
	case PhyControlTxFIRPost:
		return "tx-fir-post"
	case PhyControlTxFIRDriveCurrent:
		return "tx-fir-drive-current"
	}
	return "unknown"
}

// FEC values for PhyControlForwardErrorCorrection.
const (
	PhyFECOff uint32 = 0
	PhyFECOn  uint32 = 1
)

// StatType selects a hardware counter for StatGet.
type StatType int

const (
	StatInBytes StatType = iota
	StatInUnicastPkts
	StatInMulticastPkts
	StatInBroadcastPkts
	StatInDiscards
	StatInErrors
	StatInPause
	StatInIpv4HdrErrors
	StatInIpv6HdrErrors
	StatOutBytes
	StatOutUnicastPkts
	StatOutMulticastPkts
	StatOutBroadcastPkts
	StatOutDiscards
	StatOutErrors
	StatOutPause
	StatOutEcn
	numStatTypes
)

// NumPktLenBuckets is the bucket count of the MMU packet length
// histograms.
const NumPktLenBuckets = 10

// MirrorDestID names an allocated mirror destination on the unit.
type MirrorDestID int32

// MirrorDest describes where mirrored traffic is sent. A zero Tunnel
// means plain local SPAN to DestPort; otherwise the ASIC encapsulates
// each mirrored frame for the remote collector.
type MirrorDest struct {
	DestPort ports.PortID
	Tunnel   *MirrorTunnel
}

// MirrorTunnel is the precomputed encapsulation for a remote mirror
// destination. Header holds the full bytes prepended to each mirrored
// frame, TruncateTo the payload cap (zero keeps whole frames).
type MirrorTunnel struct {
	Header     []byte
	TruncateTo int
}

// LinkEvent is one debounced physical link transition.
type LinkEvent struct {
	Port ports.PortID
	Up   bool
	At   time.Time
}
