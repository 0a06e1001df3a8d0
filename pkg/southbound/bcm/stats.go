package bcm

import (
	"time"

	"github.com/veesix-networks/osvswitch/pkg/southbound"
	"github.com/veesix-networks/osvswitch/pkg/southbound/sdk"
	"github.com/veesix-networks/osvswitch/pkg/stats"
)

// statSources pairs each exported counter with the hardware register it
// is fetched from, in fetch order.
var statSources = []struct {
	name string
	stat sdk.StatType
}{
	{stats.InBytes, sdk.StatInBytes},
	{stats.InUnicastPkts, sdk.StatInUnicastPkts},
	{stats.InMulticastPkts, sdk.StatInMulticastPkts},
	{stats.InBroadcastPkts, sdk.StatInBroadcastPkts},
	{stats.InDiscards, sdk.StatInDiscards},
	{stats.InErrors, sdk.StatInErrors},
	{stats.InPause, sdk.StatInPause},
	{stats.InIpv4HdrErrors, sdk.StatInIpv4HdrErrors},
	{stats.InIpv6HdrErrors, sdk.StatInIpv6HdrErrors},
	{stats.OutBytes, sdk.StatOutBytes},
	{stats.OutUnicastPkts, sdk.StatOutUnicastPkts},
	{stats.OutMulticastPkts, sdk.StatOutMulticastPkts},
	{stats.OutBroadcastPkts, sdk.StatOutBroadcastPkts},
	{stats.OutDiscards, sdk.StatOutDiscards},
	{stats.OutErrors, sdk.StatOutErrors},
	{stats.OutPause, sdk.StatOutPause},
	{stats.OutEcn, sdk.StatOutEcn},
}

// updateStats runs one collection cycle. It is a no-op until the port
// has a name to report under. Counters are fetched independently from
// the software-accumulated registers; a single failed fetch keeps that
// counter at its previous value and never aborts the cycle. The
// finished snapshot replaces the published one in a single swap, so
// concurrent readers always see one complete cycle.
func (p *Port) updateStats(now time.Time) {
	p.mu.Lock()
	name := p.name
	prev := p.prev
	p.mu.Unlock()
	if name == "" {
		return
	}

	unit := p.sw.unit
	next := prev.Clone(now)

	for _, src := range statSources {
		v, err := unit.StatGet(p.id, src.stat)
		if err != nil {
			serr := &southbound.StatError{Counter: src.name, Port: p.id, Err: err}
			p.logger.Warn("counter fetch failed, keeping previous value", "counter", src.name, "error", serr)
			continue
		}
		next.Counters[src.name] = v
	}

	p.deriveNonPauseDiscards(prev, next)

	if depth, err := p.queues.TotalLength(); err != nil {
		p.logger.Warn("queue length sample failed", "error", err)
	} else {
		p.queueAvg.Add(depth)
		next.QueueLenAvg = p.queueAvg.Value()
	}

	if in, out, err := unit.PortPktLenHistograms(p.id); err != nil {
		p.logger.Warn("packet length histogram read failed", "error", err)
	} else {
		p.histMu.Lock()
		for i := 0; i < stats.NumPktLenBuckets; i++ {
			next.InPktLens[i] = in[i]
			next.OutPktLens[i] = out[i]
		}
		p.histMu.Unlock()
	}

	p.latest.Store(next)
	p.mu.Lock()
	p.prev = next
	p.mu.Unlock()
}

// deriveNonPauseDiscards folds the discard and pause deltas into the
// cumulative non-pause discard counter. Only lossy MMUs drop received
// pause frames into the discard counter, so the derivation is gated on
// that mode, and it needs both previous samples before a delta exists.
// A negative delta on either side means the hardware counter rolled
// over; the cycle is skipped rather than guessed at.
func (p *Port) deriveNonPauseDiscards(prev, next *stats.Snapshot) {
	if !p.sw.mmuLossy {
		return
	}
	prevDiscards, okD := prev.Counter(stats.InDiscards)
	prevPause, okP := prev.Counter(stats.InPause)
	if !okD || !okP {
		return
	}
	curDiscards, _ := next.Counter(stats.InDiscards)
	curPause, _ := next.Counter(stats.InPause)
	inc, ok := stats.NonPauseDelta(prevDiscards, curDiscards, prevPause, curPause)
	if !ok {
		p.logger.Warn("counter rollover detected, skipping non-pause discard derivation",
			"discards", curDiscards, "pause", curPause)
		return
	}
	cum, _ := next.Counter(stats.InNonPauseDiscards)
	next.Counters[stats.InNonPauseDiscards] = cum + inc
}
