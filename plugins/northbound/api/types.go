package api

import (
	"github.com/veesix-networks/osvswitch/pkg/mirror"
	"github.com/veesix-networks/osvswitch/pkg/ports"
)

type Status struct {
	State         string `json:"state"`
	ListenAddress string `json:"listen_address"`
	Running       bool   `json:"running"`
}

type PathsResponse struct {
	Paths []string `json:"paths"`
}

// PortsRequest is the full desired port table. A POST replaces the
// table as a whole; ports absent from the request are removed.
type PortsRequest struct {
	Ports []ports.DesiredPort `json:"ports"`
}

// DeltaResponse summarizes what one table update reconciled.
type DeltaResponse struct {
	Added   []ports.PortID `json:"added"`
	Changed []ports.PortID `json:"changed"`
	Removed []ports.PortID `json:"removed"`
}

// MirrorInfo is one registered mirror session and the destination it
// resolved to on the unit.
type MirrorInfo struct {
	Session mirror.Session `json:"session"`
	DestID  int            `json:"dest_id"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
