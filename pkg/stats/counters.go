package stats

// Exported counter names. The externally visible key for a counter is
// "<portName>.<counter>", so renaming a port retires every key under the
// old name.
const (
	InBytes            = "inBytes"
	InUnicastPkts      = "inUnicastPkts"
	InMulticastPkts    = "inMulticastPkts"
	InBroadcastPkts    = "inBroadcastPkts"
	InDiscards         = "inDiscards"
	InErrors           = "inErrors"
	InPause            = "inPause"
	InIpv4HdrErrors    = "inIpv4HdrErrors"
	InIpv6HdrErrors    = "inIpv6HdrErrors"
	InNonPauseDiscards = "inNonPauseDiscards"
	OutBytes           = "outBytes"
	OutUnicastPkts     = "outUnicastPkts"
	OutMulticastPkts   = "outMulticastPkts"
	OutBroadcastPkts   = "outBroadcastPkts"
	OutDiscards        = "outDiscards"
	OutErrors          = "outErrors"
	OutPause           = "outPause"
	OutEcn             = "outEcn"
)

// rawCounterNames are the counters fetched directly from hardware, in
// fetch order. InNonPauseDiscards is derived, not fetched.
var rawCounterNames = []string{
	InBytes,
	InUnicastPkts,
	InMulticastPkts,
	InBroadcastPkts,
	InDiscards,
	InErrors,
	InPause,
	InIpv4HdrErrors,
	InIpv6HdrErrors,
	OutBytes,
	OutUnicastPkts,
	OutMulticastPkts,
	OutBroadcastPkts,
	OutDiscards,
	OutErrors,
	OutPause,
	OutEcn,
}

// RawCounterNames returns the hardware-fetched counter set in a stable
// order. Callers must not mutate the returned slice.
func RawCounterNames() []string {
	return rawCounterNames
}

// AllCounterNames is RawCounterNames plus derived counters.
func AllCounterNames() []string {
	names := make([]string, 0, len(rawCounterNames)+1)
	names = append(names, rawCounterNames...)
	names = append(names, InNonPauseDiscards)
	return names
}

func StatKey(portName, counter string) string {
	return portName + "." + counter
}

// NonPauseDelta computes the increment for the derived non-pause discard
// counter from two consecutive cumulative samples. The second return is
// false when a sample went backwards (hardware counter rollover), in
// which case the cycle is skipped rather than corrected.
//
// Pause counting may lag discard counting slightly between the two
// independent hardware reads, so the difference is clamped at zero.
func NonPauseDelta(prevDiscards, curDiscards, prevPause, curPause uint64) (uint64, bool) {
	if curDiscards < prevDiscards || curPause < prevPause {
		return 0, false
	}
	deltaDiscards := curDiscards - prevDiscards
	deltaPause := curPause - prevPause
	if deltaPause > deltaDiscards {
		return 0, true
	}
	return deltaDiscards - deltaPause, true
}
