package metrics

import (
	"github.com/veesix-networks/osvswitch/pkg/southbound"
	"github.com/veesix-networks/osvswitch/pkg/state/paths"
)

// portLink projects the fields of the port status document that make
// sense as time series. The remaining status fields stay JSON only.
type portLink struct {
	Name      string `json:"name" prometheus:"label"`
	Enabled   bool   `json:"enabled" prometheus:"name=switch_port_enabled,help=Port administratively enabled,type=gauge"`
	Up        bool   `json:"up" prometheus:"name=switch_port_up,help=Port operational link state,type=gauge"`
	SpeedMbps int32  `json:"speed_mbps" prometheus:"name=switch_port_speed_mbps,help=Configured port speed in Mbps,type=gauge"`
}

func init() {
	RegisterMetricMulti[southbound.PortCounters](paths.PortsCounters)
	RegisterMetricMulti[portLink](paths.PortsStatus)
}
