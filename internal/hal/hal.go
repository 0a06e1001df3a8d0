// Package hal is the hardware abstraction component: it owns the
// southbound switch, decides the boot type, applies the configured port
// table, drives the stats collection tick and feeds the oper cache.
package hal

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/veesix-networks/osvswitch/pkg/component"
	"github.com/veesix-networks/osvswitch/pkg/config"
	"github.com/veesix-networks/osvswitch/pkg/delta"
	"github.com/veesix-networks/osvswitch/pkg/events"
	"github.com/veesix-networks/osvswitch/pkg/hostif"
	"github.com/veesix-networks/osvswitch/pkg/logger"
	"github.com/veesix-networks/osvswitch/pkg/mirror"
	"github.com/veesix-networks/osvswitch/pkg/platform"
	"github.com/veesix-networks/osvswitch/pkg/ports"
	"github.com/veesix-networks/osvswitch/pkg/southbound"
	"github.com/veesix-networks/osvswitch/pkg/state"
	"github.com/veesix-networks/osvswitch/pkg/warmboot"
)

type Component struct {
	*component.Base

	logger *slog.Logger
	cfg    *config.Config

	sw      *southbound.Switch
	mirrors *mirror.Registry
	plat    platform.Platform
	wb      *warmboot.Manager
	hostif  *hostif.Mirror
	bus     events.Bus

	collectorRegistry *state.CollectorRegistry

	bootID string
	warm   bool
}

type Config struct {
	Config            *config.Config
	Switch            *southbound.Switch
	Mirrors           *mirror.Registry
	Platform          platform.Platform
	Warmboot          *warmboot.Manager
	Hostif            *hostif.Mirror
	EventBus          events.Bus
	CollectorRegistry *state.CollectorRegistry
}

func New(cfg Config) *Component {
	return &Component{
		Base:              component.NewBase(logger.ComponentHAL),
		logger:            logger.Component(logger.HAL),
		cfg:               cfg.Config,
		sw:                cfg.Switch,
		mirrors:           cfg.Mirrors,
		plat:              cfg.Platform,
		wb:                cfg.Warmboot,
		hostif:            cfg.Hostif,
		bus:               cfg.EventBus,
		collectorRegistry: cfg.CollectorRegistry,
		bootID:            uuid.New().String(),
	}
}

// BootID identifies this agent run.
func (c *Component) BootID() string { return c.bootID }

// WarmBooted reports whether this run adopted the previous run's
// hardware state.
func (c *Component) WarmBooted() bool { return c.warm }

func (c *Component) Start(ctx context.Context) error {
	c.StartContext(ctx)

	cleanShutdown := false
	if c.wb != nil {
		var err error
		cleanShutdown, err = c.wb.DetermineBootType(ctx)
		if err != nil {
			return fmt.Errorf("determining boot type: %w", err)
		}
	}

	if err := c.sw.Init(ctx); err != nil {
		return fmt.Errorf("initializing switch: %w", err)
	}

	// A warm boot needs both sides intact: hardware still holds the
	// previous run's state and that run shut down cleanly. Either one
	// missing forces a full cold reprogram.
	c.warm = cleanShutdown && c.sw.WarmBooted()
	if cleanShutdown && !c.sw.WarmBooted() {
		c.logger.Warn("clean shutdown recorded but hardware state was lost, booting cold")
	}

	if c.mirrors != nil {
		if err := c.mirrors.Sync(c.cfg.Mirrors); err != nil {
			return fmt.Errorf("syncing mirror sessions: %w", err)
		}
		if c.bus != nil {
			for _, name := range c.mirrors.Names() {
				c.bus.Publish(events.TopicMirrorState, events.Event{
					Source: c.Name(),
					Data:   events.MirrorStateEvent{Name: name, Resolved: true},
				})
			}
		}
	}

	if c.warm && c.wb != nil {
		applied, err := c.wb.AppliedPorts(ctx)
		if err != nil {
			return fmt.Errorf("loading persisted port table: %w", err)
		}
		if err := c.sw.SeedApplied(applied); err != nil {
			return fmt.Errorf("seeding applied port table: %w", err)
		}
		c.logger.Info("warm boot: adopted previous port table", "ports", len(applied))
	}

	if err := c.applyPorts(); err != nil {
		return err
	}

	c.GoTick(c.cfg.Switch.StatsInterval, c.sw.UpdateStats)

	c.registerCollectors()

	if c.bus != nil {
		c.bus.Publish(events.TopicBoot, events.Event{
			Source: c.Name(),
			Data: events.BootEvent{
				BootID:   c.bootID,
				WarmBoot: c.warm,
				Platform: c.plat.Name(),
			},
		})
	}
	c.logger.Info("hal started", "boot_id", c.bootID, "warm_boot", c.warm, "platform", c.plat.Name())
	return nil
}

// UpdatePorts reconciles a new desired port table into hardware and
// refreshes the host interface mirror. Serialized by the switch's apply
// lock, so northbound updates and startup application never interleave.
func (c *Component) UpdatePorts(desired map[ports.PortID]ports.DesiredPort) (delta.Delta, error) {
	d, err := c.sw.Apply(desired)
	if err != nil {
		return d, err
	}
	if c.bus != nil && !d.Empty() {
		c.bus.Publish(events.TopicConfigApplied, events.Event{
			Source: c.Name(),
			Data: events.ConfigAppliedEvent{
				Added:   len(d.Added),
				Changed: len(d.Changed),
				Removed: len(d.Removed),
			},
		})
	}
	c.reconcileHostif()
	return d, nil
}

func (c *Component) applyPorts() error {
	desired := c.cfg.DesiredPorts()
	d, err := c.sw.Apply(desired)
	if err != nil {
		return fmt.Errorf("applying port configuration: %w", err)
	}
	c.logger.Info("port configuration applied",
		"added", len(d.Added), "changed", len(d.Changed), "removed", len(d.Removed))

	if c.bus != nil {
		c.bus.Publish(events.TopicConfigApplied, events.Event{
			Source: c.Name(),
			Data: events.ConfigAppliedEvent{
				Added:   len(d.Added),
				Changed: len(d.Changed),
				Removed: len(d.Removed),
			},
		})
	}
	c.reconcileHostif()
	return nil
}

func (c *Component) reconcileHostif() {
	if c.hostif == nil {
		return
	}
	managed := make(map[string]bool)
	for _, pp := range c.plat.Ports() {
		managed[pp.Name] = true
	}
	statuses := c.sw.PortStatuses()
	up := make(map[string]bool, len(statuses))
	for _, st := range statuses {
		up[st.Name] = st.Up
	}

	var links []hostif.DesiredLink
	for id, p := range c.sw.Applied() {
		managed[p.Name] = true
		links = append(links, hostif.DesiredLink{
			Port: id,
			Name: p.Name,
			MTU:  p.MTU,
			Up:   up[p.Name],
		})
	}
	if err := c.hostif.Reconcile(links, managed); err != nil {
		c.logger.Warn("host interface reconcile failed", "error", err)
	}
}

func (c *Component) Stop(ctx context.Context) error {
	c.StopContext()

	if c.wb != nil {
		if err := c.wb.RecordCleanShutdown(ctx, c.sw.Applied()); err != nil {
			// Without a persisted table the next start must boot cold;
			// tear hardware down now so it is not left half owned.
			c.logger.Error("recording clean shutdown failed, tearing down", "error", err)
			if cerr := c.sw.Close(); cerr != nil {
				c.logger.Warn("switch teardown failed", "error", cerr)
			}
			return err
		}
		c.logger.Info("clean shutdown recorded, leaving hardware for warm restart")
		return nil
	}

	// No warm boot store: cold teardown.
	return c.sw.Close()
}
