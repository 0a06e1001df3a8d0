// Package qsfp resolves the transmitter technology of pluggable optics.
// The production source talks to the transceiver daemon over its unix
// socket; a static source serves fixed answers for boards without one.
package qsfp

import (
	"context"

	"github.com/veesix-networks/osvswitch/pkg/ports"
)

// Source answers transmitter technology queries for front panel ports.
type Source interface {
	// TransmitterTech classifies the media attached to the named port.
	// Returning TransmitterUnknown with a nil error means the module
	// genuinely cannot tell, and callers fall back to defaults.
	TransmitterTech(ctx context.Context, portName string) (ports.TransmitterTech, error)
}

// Static serves technology answers from a fixed table.
type Static struct {
	byPort map[string]ports.TransmitterTech
}

// NewStatic builds a source from a port name to technology table.
func NewStatic(byPort map[string]ports.TransmitterTech) *Static {
	m := make(map[string]ports.TransmitterTech, len(byPort))
	for name, tech := range byPort {
		m[name] = tech
	}
	return &Static{byPort: m}
}

func (s *Static) TransmitterTech(ctx context.Context, portName string) (ports.TransmitterTech, error) {
	if tech, ok := s.byPort[portName]; ok {
		return tech, nil
	}
	return ports.TransmitterUnknown, nil
}
