package ports

import "fmt"

// PortID is the vendor logical port number, stable across the life of the
// agent process.
type PortID uint32

type VlanID uint16

// Direction qualifies port-scoped features that exist per traffic
// direction (mirroring, sampling, filtering).
type Direction uint8

const (
	Ingress Direction = iota
	Egress
)

func (d Direction) String() string {
	if d == Ingress {
		return "ingress"
	}
	return "egress"
}

// Speed is the configured port speed in Mbps. The zero value means
// "default": program the maximum the hardware reports for the port.
type Speed int32

const (
	SpeedDefault     Speed = 0
	SpeedGigE        Speed = 1_000
	SpeedXG          Speed = 10_000
	SpeedTwentyG     Speed = 20_000
	SpeedTwentyFiveG Speed = 25_000
	SpeedFortyG      Speed = 40_000
	SpeedFiftyG      Speed = 50_000
	SpeedHundredG    Speed = 100_000
)

func (s Speed) Mbps() int32 {
	return int32(s)
}

func (s Speed) String() string {
	switch s {
	case SpeedDefault:
		return "default"
	case SpeedGigE:
		return "1G"
	case SpeedXG:
		return "10G"
	case SpeedTwentyG:
		return "20G"
	case SpeedTwentyFiveG:
		return "25G"
	case SpeedFortyG:
		return "40G"
	case SpeedFiftyG:
		return "50G"
	case SpeedHundredG:
		return "100G"
	}
	return fmt.Sprintf("%dMbps", int(s))
}

type FECMode uint8

const (
	FECOff FECMode = iota
	FECOn
)

func (f FECMode) String() string {
	if f == FECOn {
		return "on"
	}
	return "off"
}

// InterfaceMode is the physical-layer encoding the ASIC runs a port at
// for a given speed and media type.
type InterfaceMode uint8

const (
	ModeUnknown InterfaceMode = iota
	ModeCR
	ModeCR2
	ModeCR4
	ModeSFI
	ModeCAUI
	ModeXLAUI
	ModeGMII
)

func (m InterfaceMode) String() string {
	switch m {
	case ModeCR:
		return "CR"
	case ModeCR2:
		return "CR2"
	case ModeCR4:
		return "CR4"
	case ModeSFI:
		return "SFI"
	case ModeCAUI:
		return "CAUI"
	case ModeXLAUI:
		return "XLAUI"
	case ModeGMII:
		return "GMII"
	}
	return "unknown"
}

type LoopbackMode uint8

const (
	LoopbackNone LoopbackMode = iota
	LoopbackPHY
	LoopbackMAC
)

func (l LoopbackMode) String() string {
	switch l {
	case LoopbackPHY:
		return "phy"
	case LoopbackMAC:
		return "mac"
	}
	return "none"
}

// TransmitterTech classifies the port's link medium. Unknown is a valid
// long-term state for ports whose optics cannot be interrogated.
type TransmitterTech uint8

const (
	TransmitterUnknown TransmitterTech = iota
	TransmitterCopper
	TransmitterOptical
)

func (t TransmitterTech) String() string {
	switch t {
	case TransmitterCopper:
		return "copper"
	case TransmitterOptical:
		return "optical"
	}
	return "unknown"
}

// VlanMembership describes one VLAN a port belongs to. Untagged
// membership also places the port in the VLAN's untagged-egress set.
type VlanMembership struct {
	Vlan   VlanID `yaml:"vlan" json:"vlan"`
	Tagged bool   `yaml:"tagged" json:"tagged"`
}

type PauseConfig struct {
	Tx bool `yaml:"tx" json:"tx"`
	Rx bool `yaml:"rx" json:"rx"`
}

// TxSettings are SerDes transmit tuning values programmed per lane.
// They are raw non-negative register values.
type TxSettings struct {
	DriveCurrent uint32 `yaml:"drive_current" json:"drive_current"`
	PreTap       uint32 `yaml:"pre_tap" json:"pre_tap"`
	MainTap      uint32 `yaml:"main_tap" json:"main_tap"`
	PostTap      uint32 `yaml:"post_tap" json:"post_tap"`
}

type StreamType uint8

const (
	StreamUnicast StreamType = iota
	StreamMulticast
)

func (s StreamType) String() string {
	if s == StreamMulticast {
		return "multicast"
	}
	return "unicast"
}

type QueueSettings struct {
	ID            int        `yaml:"id" json:"id"`
	Stream        StreamType `yaml:"stream" json:"stream"`
	Weight        int        `yaml:"weight" json:"weight"`
	ReservedBytes int        `yaml:"reserved_bytes" json:"reserved_bytes"`
}

// DesiredPort is the declarative target state for one port. Backends read
// it and never mutate it. Vlans is kept sorted by VLAN ID.
type DesiredPort struct {
	ID               PortID           `yaml:"id" json:"id"`
	Name             string           `yaml:"name" json:"name"`
	Enabled          bool             `yaml:"enabled" json:"enabled"`
	Speed            Speed            `yaml:"speed" json:"speed"`
	FEC              FECMode          `yaml:"fec" json:"fec"`
	IngressVlan      VlanID           `yaml:"ingress_vlan" json:"ingress_vlan"`
	Vlans            []VlanMembership `yaml:"vlans" json:"vlans"`
	Pause            PauseConfig      `yaml:"pause" json:"pause"`
	SflowIngressRate int              `yaml:"sflow_ingress_rate" json:"sflow_ingress_rate"`
	SflowEgressRate  int              `yaml:"sflow_egress_rate" json:"sflow_egress_rate"`
	Loopback         LoopbackMode     `yaml:"loopback" json:"loopback"`
	IngressMirror    string           `yaml:"ingress_mirror" json:"ingress_mirror"`
	EgressMirror     string           `yaml:"egress_mirror" json:"egress_mirror"`
	TxSettings       *TxSettings      `yaml:"tx_settings" json:"tx_settings,omitempty"`
	Queues           []QueueSettings  `yaml:"queues" json:"queues"`
	MTU              int              `yaml:"mtu" json:"mtu"`
}

func (p DesiredPort) Mirror(d Direction) string {
	if d == Ingress {
		return p.IngressMirror
	}
	return p.EgressMirror
}

func (p DesiredPort) Equal(o DesiredPort) bool {
	if p.ID != o.ID || p.Name != o.Name || p.Enabled != o.Enabled ||
		p.Speed != o.Speed || p.FEC != o.FEC ||
		p.IngressVlan != o.IngressVlan || p.Pause != o.Pause ||
		p.SflowIngressRate != o.SflowIngressRate ||
		p.SflowEgressRate != o.SflowEgressRate ||
		p.Loopback != o.Loopback ||
		p.IngressMirror != o.IngressMirror ||
		p.EgressMirror != o.EgressMirror ||
		p.MTU != o.MTU {
		return false
	}
	if len(p.Vlans) != len(o.Vlans) {
		return false
	}
	for i := range p.Vlans {
		if p.Vlans[i] != o.Vlans[i] {
			return false
		}
	}
	if (p.TxSettings == nil) != (o.TxSettings == nil) {
		return false
	}
	if p.TxSettings != nil && *p.TxSettings != *o.TxSettings {
		return false
	}
	if len(p.Queues) != len(o.Queues) {
		return false
	}
	for i := range p.Queues {
		if p.Queues[i] != o.Queues[i] {
			return false
		}
	}
	return true
}
