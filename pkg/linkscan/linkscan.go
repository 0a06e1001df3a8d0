// Package linkscan turns the unit's debounced link events into cached
// backend state, bus events and host interface updates.
package linkscan

import (
	"context"
	"log/slog"
	"time"

	"github.com/veesix-networks/osvswitch/pkg/component"
	"github.com/veesix-networks/osvswitch/pkg/events"
	"github.com/veesix-networks/osvswitch/pkg/logger"
	"github.com/veesix-networks/osvswitch/pkg/platform"
	"github.com/veesix-networks/osvswitch/pkg/ports"
	"github.com/veesix-networks/osvswitch/pkg/southbound"
	"github.com/veesix-networks/osvswitch/pkg/southbound/sdk"
)

// Source is the slice of the unit surface the watcher consumes.
type Source interface {
	LinkscanEnable(interval time.Duration) error
	LinkscanDisable() error
	LinkEvents() <-chan sdk.LinkEvent
}

// Notifier receives link transitions after the backend's cached state
// has been updated. The host interface mirror registers one.
type Notifier interface {
	PortLinkChanged(id ports.PortID, name string, up bool)
}

// Watcher is the linkscan component.
type Watcher struct {
	*component.Base
	source    Source
	sw        *southbound.Switch
	plat      platform.Platform
	bus       events.Bus
	notifiers []Notifier
	interval  time.Duration
	logger    *slog.Logger
}

func New(source Source, sw *southbound.Switch, plat platform.Platform, bus events.Bus, interval time.Duration) *Watcher {
	return &Watcher{
		Base:     component.NewBase(logger.ComponentLinkscan),
		source:   source,
		sw:       sw,
		plat:     plat,
		bus:      bus,
		interval: interval,
		logger:   logger.Component(logger.Linkscan),
	}
}

// AddNotifier registers a transition consumer. Not safe after Start.
func (w *Watcher) AddNotifier(n Notifier) {
	w.notifiers = append(w.notifiers, n)
}

func (w *Watcher) Start(ctx context.Context) error {
	w.StartContext(ctx)
	if err := w.source.LinkscanEnable(w.interval); err != nil {
		return err
	}
	w.Go(w.run)
	w.logger.Info("linkscan started", "interval", w.interval)
	return nil
}

func (w *Watcher) run() {
	ch := w.source.LinkEvents()
	for {
		select {
		case <-w.Ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			w.handle(ev)
		}
	}
}

func (w *Watcher) handle(ev sdk.LinkEvent) {
	w.sw.UpdateLinkStatus(ev.Port, ev.Up)

	name, err := w.plat.PortName(ev.Port)
	if err != nil {
		w.logger.Warn("link event for unknown port", "port", ev.Port, "up", ev.Up)
		return
	}
	w.logger.Info("link transition", "port", ev.Port, "name", name, "up", ev.Up)

	if w.bus != nil {
		w.bus.Publish(events.TopicPortLink, events.Event{
			Source: w.Name(),
			Data:   events.PortLinkEvent{Port: ev.Port, Name: name, Up: ev.Up},
		})
	}
	for _, n := range w.notifiers {
		n.PortLinkChanged(ev.Port, name, ev.Up)
	}
}

func (w *Watcher) Stop(ctx context.Context) error {
	if err := w.source.LinkscanDisable(); err != nil {
		w.logger.Warn("disabling linkscan failed", "error", err)
	}
	w.StopContext()
	return nil
}
