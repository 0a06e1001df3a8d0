package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/veesix-networks/osvswitch/pkg/component"
	"github.com/veesix-networks/osvswitch/pkg/config"
	"github.com/veesix-networks/osvswitch/pkg/delta"
	"github.com/veesix-networks/osvswitch/pkg/logger"
	"github.com/veesix-networks/osvswitch/pkg/mirror"
	"github.com/veesix-networks/osvswitch/pkg/ports"
	"github.com/veesix-networks/osvswitch/pkg/southbound"
)

// PortService is the slice of the HAL the API writes through. Updates
// go through it rather than the switch directly so host interfaces and
// change events stay in step with hardware.
type PortService interface {
	UpdatePorts(desired map[ports.PortID]ports.DesiredPort) (delta.Delta, error)
	BootInfoJSON() ([]byte, error)
}

type Component struct {
	*component.Base
	logger  *slog.Logger
	sw      *southbound.Switch
	hal     PortService
	mirrors *mirror.Registry
	addr    string
	server  *http.Server
	mu      sync.RWMutex
	running bool
}

func NewComponent(deps component.Dependencies) (component.Component, error) {
	pluginCfgRaw, ok := config.GetPluginConfig(Namespace)
	if !ok {
		return nil, nil
	}

	pluginCfg, ok := pluginCfgRaw.(*Config)
	if !ok {
		return nil, fmt.Errorf("invalid config type for %s", Namespace)
	}

	if !pluginCfg.Enabled {
		return nil, nil
	}

	addr := pluginCfg.ListenAddress
	if addr == "" {
		addr = deps.Config.API.Listen
	}

	return &Component{
		Base:   component.NewBase(Namespace),
		logger: logger.Component(Namespace),
		sw:     deps.Switch,
		addr:   addr,
	}, nil
}

// SetServices attaches the HAL and the mirror registry. Called by the
// daemon after component construction, before Start.
func (c *Component) SetServices(hal PortService, mirrors *mirror.Registry) {
	c.hal = hal
	c.mirrors = mirrors
}

func (c *Component) Start(ctx context.Context) error {
	c.StartContext(ctx)
	c.logger.Info("Starting API server", "addr", c.addr)

	c.Go(func() {
		c.startServer()
	})

	return nil
}

func (c *Component) Stop(ctx context.Context) error {
	c.logger.Info("Stopping API server")

	if c.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		c.server.Shutdown(shutdownCtx)
	}

	c.mu.Lock()
	c.running = false
	c.mu.Unlock()

	c.StopContext()
	return nil
}

func (c *Component) GetStatus() *Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	state := "stopped"
	if c.running {
		state = "running"
	}

	return &Status{
		State:         state,
		ListenAddress: c.addr,
		Running:       c.running,
	}
}

func (c *Component) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api", c.handlePaths)
	mux.HandleFunc("GET /api/ports", c.handlePorts)
	mux.HandleFunc("GET /api/ports/{id}", c.handlePort)
	mux.HandleFunc("GET /api/ports/{id}/counters", c.handlePortCounters)
	mux.HandleFunc("GET /api/counters", c.handleCounters)
	mux.HandleFunc("GET /api/mirrors", c.handleMirrors)
	mux.HandleFunc("GET /api/system/boot", c.handleBoot)
	mux.HandleFunc("GET /api/config/ports", c.handleGetPortConfig)
	mux.HandleFunc("POST /api/config/ports", c.handleSetPortConfig)
	mux.HandleFunc("GET /openapi.json", c.handleOpenAPI)

	return mux
}

func (c *Component) startServer() {
	c.server = &http.Server{
		Addr:    c.addr,
		Handler: c.routes(),
	}

	c.mu.Lock()
	c.running = true
	c.mu.Unlock()

	c.logger.Info("API server listening", "addr", c.addr)
	if err := c.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		c.logger.Error("API server error", "error", err)
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}
}
