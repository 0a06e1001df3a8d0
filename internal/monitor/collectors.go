package monitor

import (
	"context"
	"encoding/json"
	"runtime"
	"time"

	"github.com/veesix-networks/osvswitch/pkg/events"
	"github.com/veesix-networks/osvswitch/pkg/state"
	statepaths "github.com/veesix-networks/osvswitch/pkg/state/paths"
)

// RuntimeInfo is the agent process view stored in the oper cache.
type RuntimeInfo struct {
	Goroutines    int    `json:"goroutines"`
	HeapAllocB    uint64 `json:"heap_alloc_bytes"`
	TotalAllocB   uint64 `json:"total_alloc_bytes"`
	NumGC         uint32 `json:"num_gc"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

func init() {
	state.RegisterType("system.runtime", func(provider interface{}) state.CollectorFactory {
		mon := provider.(*Component)
		return func(deps *state.CollectorDeps) (state.MetricCollector, error) {
			return state.NewGenericCollector(
				"system.runtime",
				[]string{statepaths.SystemRuntime.String()},
				func(ctx context.Context) ([]byte, error) { return mon.RuntimeJSON() },
				deps.Cache,
				deps.Config,
				deps.Logger,
			), nil
		}
	})
	state.RegisterType("system.events", func(provider interface{}) state.CollectorFactory {
		bus := provider.(events.Bus)
		return func(deps *state.CollectorDeps) (state.MetricCollector, error) {
			return state.NewGenericCollector(
				"system.events",
				[]string{statepaths.SystemEvents.String()},
				func(ctx context.Context) ([]byte, error) { return json.Marshal(bus.Stats()) },
				deps.Cache,
				deps.Config,
				deps.Logger,
			), nil
		}
	})
}

func (c *Component) RuntimeJSON() ([]byte, error) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return json.Marshal(RuntimeInfo{
		Goroutines:    runtime.NumGoroutine(),
		HeapAllocB:    ms.HeapAlloc,
		TotalAllocB:   ms.TotalAlloc,
		NumGC:         ms.NumGC,
		UptimeSeconds: int64(time.Since(c.startedAt) / time.Second),
	})
}
