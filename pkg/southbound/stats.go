package southbound

import (
	"github.com/veesix-networks/osvswitch/pkg/stats"
)

// PortCounters is the flattened, export-ready view of one port's latest
// snapshot. Counter fields not yet collected read zero; Collected marks
// whether any cycle has completed at all.
type PortCounters struct {
	Port               string  `json:"port" prometheus:"label"`
	TimestampSec       int64   `json:"timestamp_sec" prometheus:"name=switch_port_stats_timestamp_seconds,help=Capture time of the snapshot,type=gauge"`
	InBytes            uint64  `json:"in_bytes" prometheus:"name=switch_port_in_bytes,help=Received bytes,type=counter"`
	InUnicastPkts      uint64  `json:"in_unicast_pkts" prometheus:"name=switch_port_in_unicast_pkts,help=Received unicast packets,type=counter"`
	InMulticastPkts    uint64  `json:"in_multicast_pkts" prometheus:"name=switch_port_in_multicast_pkts,help=Received multicast packets,type=counter"`
	InBroadcastPkts    uint64  `json:"in_broadcast_pkts" prometheus:"name=switch_port_in_broadcast_pkts,help=Received broadcast packets,type=counter"`
	InDiscards         uint64  `json:"in_discards" prometheus:"name=switch_port_in_discards,help=Received packets discarded,type=counter"`
	InErrors           uint64  `json:"in_errors" prometheus:"name=switch_port_in_errors,help=Receive errors,type=counter"`
	InPause            uint64  `json:"in_pause" prometheus:"name=switch_port_in_pause,help=Received pause frames,type=counter"`
	InIpv4HdrErrors    uint64  `json:"in_ipv4_hdr_errors" prometheus:"name=switch_port_in_ipv4_hdr_errors,help=IPv4 header errors,type=counter"`
	InIpv6HdrErrors    uint64  `json:"in_ipv6_hdr_errors" prometheus:"name=switch_port_in_ipv6_hdr_errors,help=IPv6 header errors,type=counter"`
	InNonPauseDiscards uint64  `json:"in_non_pause_discards" prometheus:"name=switch_port_in_non_pause_discards,help=Discards excluding dropped pause frames,type=counter"`
	OutBytes           uint64  `json:"out_bytes" prometheus:"name=switch_port_out_bytes,help=Transmitted bytes,type=counter"`
	OutUnicastPkts     uint64  `json:"out_unicast_pkts" prometheus:"name=switch_port_out_unicast_pkts,help=Transmitted unicast packets,type=counter"`
	OutMulticastPkts   uint64  `json:"out_multicast_pkts" prometheus:"name=switch_port_out_multicast_pkts,help=Transmitted multicast packets,type=counter"`
	OutBroadcastPkts   uint64  `json:"out_broadcast_pkts" prometheus:"name=switch_port_out_broadcast_pkts,help=Transmitted broadcast packets,type=counter"`
	OutDiscards        uint64  `json:"out_discards" prometheus:"name=switch_port_out_discards,help=Transmit discards,type=counter"`
	OutErrors          uint64  `json:"out_errors" prometheus:"name=switch_port_out_errors,help=Transmit errors,type=counter"`
	OutPause           uint64  `json:"out_pause" prometheus:"name=switch_port_out_pause,help=Transmitted pause frames,type=counter"`
	OutEcn             uint64  `json:"out_ecn" prometheus:"name=switch_port_out_ecn,help=ECN marked packets,type=counter"`
	QueueLenAvg        float64 `json:"queue_len_avg" prometheus:"name=switch_port_queue_len_avg,help=Rolling average egress queue depth,type=gauge"`
	Collected          bool    `json:"collected"`
}

// BuildPortCounters flattens a snapshot for the named port. A nil
// snapshot yields a zero view with Collected false.
func BuildPortCounters(portName string, s *stats.Snapshot) PortCounters {
	pc := PortCounters{Port: portName}
	if s == nil {
		return pc
	}
	pc.Collected = true
	pc.TimestampSec = s.TimestampSec
	pc.QueueLenAvg = s.QueueLenAvg
	get := func(name string) uint64 {
		v, _ := s.Counter(name)
		return v
	}
	pc.InBytes = get(stats.InBytes)
	pc.InUnicastPkts = get(stats.InUnicastPkts)
	pc.InMulticastPkts = get(stats.InMulticastPkts)
	pc.InBroadcastPkts = get(stats.InBroadcastPkts)
	pc.InDiscards = get(stats.InDiscards)
	pc.InErrors = get(stats.InErrors)
	pc.InPause = get(stats.InPause)
	pc.InIpv4HdrErrors = get(stats.InIpv4HdrErrors)
	pc.InIpv6HdrErrors = get(stats.InIpv6HdrErrors)
	pc.InNonPauseDiscards = get(stats.InNonPauseDiscards)
	pc.OutBytes = get(stats.OutBytes)
	pc.OutUnicastPkts = get(stats.OutUnicastPkts)
	pc.OutMulticastPkts = get(stats.OutMulticastPkts)
	pc.OutBroadcastPkts = get(stats.OutBroadcastPkts)
	pc.OutDiscards = get(stats.OutDiscards)
	pc.OutErrors = get(stats.OutErrors)
	pc.OutPause = get(stats.OutPause)
	pc.OutEcn = get(stats.OutEcn)
	return pc
}

// CounterMap expands a snapshot into the externally visible key scheme,
// "<portName>.<counter>". Uncollected counters are omitted.
func CounterMap(portName string, s *stats.Snapshot) map[string]uint64 {
	if s == nil {
		return nil
	}
	out := make(map[string]uint64, len(s.Counters))
	for name, v := range s.Counters {
		out[stats.StatKey(portName, name)] = v
	}
	return out
}
