package hal

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/veesix-networks/osvswitch/pkg/state"
	statepaths "github.com/veesix-networks/osvswitch/pkg/state/paths"
)

// PortStateProvider is the slice of the HAL the state collectors read.
type PortStateProvider interface {
	PortStatusesJSON() ([]byte, error)
	PortCountersJSON() ([]byte, error)
	BootInfoJSON() ([]byte, error)
	MirrorsJSON() ([]byte, error)
}

func init() {
	state.RegisterType("ports.status", func(provider interface{}) state.CollectorFactory {
		hal := provider.(PortStateProvider)
		return func(deps *state.CollectorDeps) (state.MetricCollector, error) {
			return state.NewGenericCollector(
				"ports.status",
				[]string{statepaths.PortsStatus.String()},
				func(ctx context.Context) ([]byte, error) { return hal.PortStatusesJSON() },
				deps.Cache,
				deps.Config,
				deps.Logger,
			), nil
		}
	})
	state.RegisterType("ports.counters", func(provider interface{}) state.CollectorFactory {
		hal := provider.(PortStateProvider)
		return func(deps *state.CollectorDeps) (state.MetricCollector, error) {
			return state.NewGenericCollector(
				"ports.counters",
				[]string{statepaths.PortsCounters.String()},
				func(ctx context.Context) ([]byte, error) { return hal.PortCountersJSON() },
				deps.Cache,
				deps.Config,
				deps.Logger,
			), nil
		}
	})
	state.RegisterType("mirrors.state", func(provider interface{}) state.CollectorFactory {
		hal := provider.(PortStateProvider)
		return func(deps *state.CollectorDeps) (state.MetricCollector, error) {
			return state.NewGenericCollector(
				"mirrors.state",
				[]string{statepaths.MirrorsState.String()},
				func(ctx context.Context) ([]byte, error) { return hal.MirrorsJSON() },
				deps.Cache,
				deps.Config,
				deps.Logger,
			), nil
		}
	})
	state.RegisterType("system.boot", func(provider interface{}) state.CollectorFactory {
		hal := provider.(PortStateProvider)
		return func(deps *state.CollectorDeps) (state.MetricCollector, error) {
			return state.NewGenericCollector(
				"system.boot",
				[]string{statepaths.SystemBoot.String()},
				func(ctx context.Context) ([]byte, error) { return hal.BootInfoJSON() },
				deps.Cache,
				deps.Config,
				deps.Logger,
			), nil
		}
	})
}

func (c *Component) registerCollectors() {
	if c.collectorRegistry == nil {
		return
	}
	for _, name := range []string{"ports.status", "ports.counters", "mirrors.state", "system.boot"} {
		c.collectorRegistry.SetProvider(name, c)
	}
}

func (c *Component) PortStatusesJSON() ([]byte, error) {
	return json.Marshal(c.sw.PortStatuses())
}

func (c *Component) PortCountersJSON() ([]byte, error) {
	return json.Marshal(c.sw.PortCounters())
}

// BootInfo is the system view served through the cache and the API.
type BootInfo struct {
	BootID   string `json:"boot_id"`
	WarmBoot bool   `json:"warm_boot"`
	Platform string `json:"platform"`
	Backend  string `json:"backend"`
}

// MirrorState is one registered session as stored in the oper cache.
type MirrorState struct {
	Name     string `json:"name"`
	DestPort uint32 `json:"dest_port"`
	Tunneled bool   `json:"tunneled"`
	DestID   int    `json:"dest_id"`
}

func (c *Component) MirrorsJSON() ([]byte, error) {
	out := []MirrorState{}
	if c.mirrors != nil {
		names := c.mirrors.Names()
		sort.Strings(names)
		for _, name := range names {
			ms, ok := c.mirrors.Lookup(name)
			if !ok {
				continue
			}
			s := ms.Config()
			out = append(out, MirrorState{
				Name:     s.Name,
				DestPort: uint32(s.DestPort),
				Tunneled: s.Tunnel != nil,
				DestID:   int(ms.ID()),
			})
		}
	}
	return json.Marshal(out)
}

func (c *Component) BootInfoJSON() ([]byte, error) {
	return json.Marshal(BootInfo{
		BootID:   c.bootID,
		WarmBoot: c.warm,
		Platform: c.plat.Name(),
		Backend:  c.cfg.Backend,
	})
}
