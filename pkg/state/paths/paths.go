package paths

// Prefix namespaces every state document stored in the oper cache.
const Prefix = "osvswitch:state:"

type Path string

const (
	PortsStatus   Path = "ports.status"
	PortsCounters Path = "ports.counters"
	MirrorsState  Path = "mirrors.state"
	SystemBoot    Path = "system.boot"
	SystemEvents  Path = "system.events"
	SystemRuntime Path = "system.runtime"
)

func (p Path) String() string {
	return string(p)
}

// Key is the full cache key the collectors write to.
func (p Path) Key() string {
	return Prefix + string(p)
}
