package southbound

import "github.com/veesix-networks/osvswitch/pkg/ports"

// interfaceModes maps a port speed and the attached transmitter
// technology to the serdes interface mode to program. Unknown media is a
// real table column, not a fallback: speeds that behave the same either
// way carry an explicit entry, and combinations absent from the table
// are genuinely unprogrammable.
var interfaceModes = map[ports.Speed]map[ports.TransmitterTech]ports.InterfaceMode{
	ports.SpeedHundredG: {
		ports.TransmitterCopper:  ports.ModeCR4,
		ports.TransmitterOptical: ports.ModeCAUI,
		ports.TransmitterUnknown: ports.ModeCAUI,
	},
	ports.SpeedFiftyG: {
		ports.TransmitterCopper:  ports.ModeCR2,
		ports.TransmitterOptical: ports.ModeCAUI,
		ports.TransmitterUnknown: ports.ModeCR2,
	},
	ports.SpeedFortyG: {
		ports.TransmitterCopper:  ports.ModeCR4,
		ports.TransmitterOptical: ports.ModeXLAUI,
		ports.TransmitterUnknown: ports.ModeXLAUI,
	},
	ports.SpeedTwentyFiveG: {
		ports.TransmitterCopper:  ports.ModeCR,
		ports.TransmitterOptical: ports.ModeCAUI,
		ports.TransmitterUnknown: ports.ModeCR,
	},
	ports.SpeedTwentyG: {
		ports.TransmitterCopper:  ports.ModeCR,
		ports.TransmitterUnknown: ports.ModeCR,
	},
	ports.SpeedXG: {
		ports.TransmitterCopper:  ports.ModeCR,
		ports.TransmitterOptical: ports.ModeSFI,
		ports.TransmitterUnknown: ports.ModeCR,
	},
	ports.SpeedGigE: {
		ports.TransmitterCopper:  ports.ModeGMII,
		ports.TransmitterUnknown: ports.ModeGMII,
	},
}

// ResolveInterfaceMode returns the interface mode for the given speed
// and media combination, or an UnsupportedError when the combination has
// no entry.
func ResolveInterfaceMode(speed ports.Speed, tech ports.TransmitterTech) (ports.InterfaceMode, error) {
	byTech, ok := interfaceModes[speed]
	if !ok {
		return ports.ModeUnknown, Unsupportedf("no interface mode for speed %v", speed)
	}
	mode, ok := byTech[tech]
	if !ok {
		return ports.ModeUnknown, Unsupportedf("no interface mode for speed %v over %v media", speed, tech)
	}
	return mode, nil
}
