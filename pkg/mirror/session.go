// Package mirror manages mirror destinations: local SPAN ports and
// remote collectors reached over a GRE or UDP tunnel. Port bindings
// reference sessions by name; the registry owns the mapping from name
// to the destination allocated on the unit.
package mirror

import (
	"fmt"
	"net"

	"inet.af/netaddr"

	"github.com/veesix-networks/osvswitch/pkg/ports"
)

// Tunnel describes the encapsulation towards a remote collector. A zero
// UDPDst selects GRE encapsulation, otherwise the mirrored frames are
// wrapped in UDP with the given ports.
type Tunnel struct {
	Src        netaddr.IP `yaml:"src" json:"src"`
	Dst        netaddr.IP `yaml:"dst" json:"dst"`
	SrcMAC     string     `yaml:"src_mac" json:"src_mac"`
	DstMAC     string     `yaml:"dst_mac" json:"dst_mac"`
	TTL        uint8      `yaml:"ttl" json:"ttl"`
	UDPSrc     uint16     `yaml:"udp_src" json:"udp_src"`
	UDPDst     uint16     `yaml:"udp_dst" json:"udp_dst"`
	TruncateTo int        `yaml:"truncate_to" json:"truncate_to"`
}

// Session is one named mirror destination.
type Session struct {
	Name     string       `yaml:"name" json:"name"`
	DestPort ports.PortID `yaml:"dest_port" json:"dest_port"`
	Tunnel   *Tunnel      `yaml:"tunnel,omitempty" json:"tunnel,omitempty"`
}

// Validate checks the session is complete enough to program.
func (s Session) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("mirror session without a name")
	}
	if s.Tunnel == nil {
		return nil
	}
	t := s.Tunnel
	if t.Src.IsZero() || t.Dst.IsZero() {
		return fmt.Errorf("mirror session %q: tunnel needs src and dst addresses", s.Name)
	}
	if !t.Src.Is4() || !t.Dst.Is4() {
		return fmt.Errorf("mirror session %q: only IPv4 tunnels are supported", s.Name)
	}
	if _, err := net.ParseMAC(t.SrcMAC); err != nil {
		return fmt.Errorf("mirror session %q: src mac: %w", s.Name, err)
	}
	if _, err := net.ParseMAC(t.DstMAC); err != nil {
		return fmt.Errorf("mirror session %q: dst mac: %w", s.Name, err)
	}
	return nil
}

// Equal reports whether two sessions program identically.
func (s Session) Equal(o Session) bool {
	if s.Name != o.Name || s.DestPort != o.DestPort {
		return false
	}
	if (s.Tunnel == nil) != (o.Tunnel == nil) {
		return false
	}
	if s.Tunnel == nil {
		return true
	}
	return *s.Tunnel == *o.Tunnel
}
