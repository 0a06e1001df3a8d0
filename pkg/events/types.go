package events

import "github.com/veesix-networks/osvswitch/pkg/ports"

// PortLinkEvent is published on TopicPortLink for every debounced
// physical link transition.
type PortLinkEvent struct {
	Port ports.PortID
	Name string
	Up   bool
}

// ConfigAppliedEvent is published on TopicConfigApplied after a desired
// port table has been reconciled into hardware.
type ConfigAppliedEvent struct {
	Added   int
	Changed int
	Removed int
}

// BootEvent is published once on TopicBoot when the agent finishes
// initializing.
type BootEvent struct {
	BootID   string
	WarmBoot bool
	Platform string
}

// MirrorStateEvent is published on TopicMirrorState when a mirror
// session is resolved into or removed from hardware.
type MirrorStateEvent struct {
	Name     string
	Resolved bool
}
