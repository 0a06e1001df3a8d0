package mirror

import (
	"fmt"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/veesix-networks/osvswitch/pkg/southbound/sdk"
)

// erspanProto is the GRE protocol type carrying mirrored Ethernet
// frames (ERSPAN type II).
const erspanProto = 0x88be

const defaultTTL = 255

// BuildTunnel precomputes the encapsulation header the ASIC prepends to
// every mirrored frame. Returns nil for plain local SPAN sessions.
func BuildTunnel(s Session) (*sdk.MirrorTunnel, error) {
	if s.Tunnel == nil {
		return nil, nil
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	t := s.Tunnel

	srcMAC, _ := net.ParseMAC(t.SrcMAC)
	dstMAC, _ := net.ParseMAC(t.DstMAC)
	ttl := t.TTL
	if ttl == 0 {
		ttl = defaultTTL
	}

	eth := &layers.Ethernet{
		SrcMAC:       srcMAC,
		DstMAC:       dstMAC,
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      ttl,
		SrcIP:    t.Src.IPAddr().IP,
		DstIP:    t.Dst.IPAddr().IP,
		Protocol: layers.IPProtocolGRE,
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}

	var err error
	if t.UDPDst != 0 {
		ip.Protocol = layers.IPProtocolUDP
		udp := &layers.UDP{
			SrcPort: layers.UDPPort(t.UDPSrc),
			DstPort: layers.UDPPort(t.UDPDst),
		}
		if cerr := udp.SetNetworkLayerForChecksum(ip); cerr != nil {
			return nil, fmt.Errorf("mirror session %q: %w", s.Name, cerr)
		}
		err = gopacket.SerializeLayers(buf, opts, eth, ip, udp)
	} else {
		gre := &layers.GRE{Protocol: erspanProto}
		err = gopacket.SerializeLayers(buf, opts, eth, ip, gre)
	}
	if err != nil {
		return nil, fmt.Errorf("mirror session %q: building tunnel header: %w", s.Name, err)
	}

	header := make([]byte, len(buf.Bytes()))
	copy(header, buf.Bytes())
	return &sdk.MirrorTunnel{Header: header, TruncateTo: t.TruncateTo}, nil
}
