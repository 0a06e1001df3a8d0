package sai

import (
	"time"

	"github.com/veesix-networks/osvswitch/pkg/stats"
)

// statSources pairs each exported counter with its adapter stat ID, in
// fetch order.
var statSources = []struct {
	name string
	id   StatID
}{
	{stats.InBytes, StatIfInOctets},
	{stats.InUnicastPkts, StatIfInUcastPkts},
	{stats.InMulticastPkts, StatIfInMulticastPkts},
	{stats.InBroadcastPkts, StatIfInBroadcastPkts},
	{stats.InDiscards, StatIfInDiscards},
	{stats.InErrors, StatIfInErrors},
	{stats.InPause, StatIfInPauseFrames},
	{stats.InIpv4HdrErrors, StatIfInIpv4HdrErrors},
	{stats.InIpv6HdrErrors, StatIfInIpv6HdrErrors},
	{stats.OutBytes, StatIfOutOctets},
	{stats.OutUnicastPkts, StatIfOutUcastPkts},
	{stats.OutMulticastPkts, StatIfOutMulticastPkts},
	{stats.OutBroadcastPkts, StatIfOutBroadcastPkts},
	{stats.OutDiscards, StatIfOutDiscards},
	{stats.OutErrors, StatIfOutErrors},
	{stats.OutPause, StatIfOutPauseFrames},
	{stats.OutEcn, StatIfOutEcnMarked},
}

func allStatIDs() []StatID {
	ids := make([]StatID, len(statSources))
	for i, src := range statSources {
		ids[i] = src.id
	}
	return ids
}

// UpdateStats runs one collection cycle over every named handle. The
// adapter serves all counters in one bulk read; counters absent from
// the result keep their previous value. The derived non-pause discard
// math is shared with the other backend through the stats package.
func (m *Manager) UpdateStats(now time.Time) {
	for _, id := range m.handleIDs() {
		h := m.handle(id)
		if h == nil {
			continue
		}
		m.updatePortStats(h, now)
	}
}

func (m *Manager) updatePortStats(h *handle, now time.Time) {
	h.mu.Lock()
	name := h.name
	prev := h.prev
	h.mu.Unlock()
	if name == "" {
		return
	}

	next := prev.Clone(now)

	values, err := m.adapter.GetPortStats(h.oid, allStatIDs())
	if err != nil {
		m.logger.Warn("bulk counter read failed, keeping previous values", "port", h.id, "error", err)
		values = nil
	}
	for _, src := range statSources {
		v, ok := values[src.id]
		if !ok {
			continue
		}
		next.Counters[src.name] = v
	}

	if m.mmuLossy && prev != nil {
		prevDiscards, okD := prev.Counter(stats.InDiscards)
		prevPause, okP := prev.Counter(stats.InPause)
		if okD && okP {
			curDiscards, _ := next.Counter(stats.InDiscards)
			curPause, _ := next.Counter(stats.InPause)
			if inc, ok := stats.NonPauseDelta(prevDiscards, curDiscards, prevPause, curPause); ok {
				cum, _ := next.Counter(stats.InNonPauseDiscards)
				next.Counters[stats.InNonPauseDiscards] = cum + inc
			} else {
				m.logger.Warn("counter rollover detected, skipping non-pause discard derivation", "port", h.id)
			}
		}
	}

	h.latest.Store(next)
	h.mu.Lock()
	h.prev = next
	h.mu.Unlock()
}
