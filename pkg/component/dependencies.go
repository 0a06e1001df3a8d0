package component

import (
	"github.com/veesix-networks/osvswitch/pkg/cache"
	"github.com/veesix-networks/osvswitch/pkg/config"
	"github.com/veesix-networks/osvswitch/pkg/events"
	"github.com/veesix-networks/osvswitch/pkg/southbound"
	"github.com/veesix-networks/osvswitch/pkg/state"
)

type Dependencies struct {
	EventBus          events.Bus
	Cache             cache.Cache
	Switch            *southbound.Switch
	Config            *config.Config
	CollectorRegistry *state.CollectorRegistry
}
