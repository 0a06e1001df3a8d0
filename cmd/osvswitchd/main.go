package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/veesix-networks/osvswitch/internal/hal"
	"github.com/veesix-networks/osvswitch/internal/monitor"
	"github.com/veesix-networks/osvswitch/pkg/cache/memory"
	"github.com/veesix-networks/osvswitch/pkg/component"
	"github.com/veesix-networks/osvswitch/pkg/config"
	"github.com/veesix-networks/osvswitch/pkg/events/local"
	"github.com/veesix-networks/osvswitch/pkg/hostif"
	"github.com/veesix-networks/osvswitch/pkg/linkscan"
	"github.com/veesix-networks/osvswitch/pkg/logger"
	"github.com/veesix-networks/osvswitch/pkg/mirror"
	"github.com/veesix-networks/osvswitch/pkg/opdb/sqlite"
	"github.com/veesix-networks/osvswitch/pkg/platform"
	"github.com/veesix-networks/osvswitch/pkg/ports"
	"github.com/veesix-networks/osvswitch/pkg/qsfp"
	"github.com/veesix-networks/osvswitch/pkg/southbound"
	"github.com/veesix-networks/osvswitch/pkg/southbound/bcm"
	"github.com/veesix-networks/osvswitch/pkg/southbound/sai"
	"github.com/veesix-networks/osvswitch/pkg/southbound/sdk/sim"
	"github.com/veesix-networks/osvswitch/pkg/state"
	statepaths "github.com/veesix-networks/osvswitch/pkg/state/paths"
	"github.com/veesix-networks/osvswitch/pkg/version"
	"github.com/veesix-networks/osvswitch/pkg/warmboot"
	"github.com/veesix-networks/osvswitch/plugins/northbound/api"

	_ "github.com/veesix-networks/osvswitch/plugins/exporter/prometheus"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Configure(cfg.Logging.Format, cfg.Logging.Level, cfg.Logging.Components)

	mainLog := logger.Component(logger.ComponentMain)
	mainLog.Info("Starting osvswitch", "version", version.Full(),
		"platform", cfg.Platform.Name, "backend", cfg.Backend)

	plat, err := platform.New(cfg.Platform.Name, cfg.Platform.Lossless)
	if err != nil {
		log.Fatalf("Failed to load platform: %v", err)
	}

	var qsfpSrc qsfp.Source
	if cfg.QSFP.Socket != "" {
		qsfpSrc = qsfp.NewClient(cfg.QSFP.Socket)
	} else {
		qsfpSrc = qsfp.NewStatic(nil)
	}

	// Both backends currently attach to their software units: the BCM
	// style backend to the register level simulator, the SAI style one
	// to the in-memory adapter. A vendor SDK drops in behind the same
	// interfaces.
	var (
		sw         *southbound.Switch
		mirrors    *mirror.Registry
		linkSource linkscan.Source
	)
	switch cfg.Backend {
	case config.BackendBCM:
		var ids []ports.PortID
		for _, pp := range plat.Ports() {
			ids = append(ids, pp.ID)
		}
		unit := sim.New(ids)
		mirrors = mirror.NewRegistry(unit)
		sw = southbound.NewSwitch(bcm.NewSwitch(unit, plat, mirrors, qsfpSrc))
		linkSource = unit
	case config.BackendSAI:
		sw = southbound.NewSwitch(sai.NewManager(sai.NewMock(), plat, qsfpSrc))
	default:
		log.Fatalf("Unknown backend %q", cfg.Backend)
	}

	if err := os.MkdirAll(cfg.Warmboot.Dir, 0o755); err != nil {
		log.Fatalf("Failed to create warmboot dir: %v", err)
	}
	store, err := sqlite.Open(filepath.Join(cfg.Warmboot.Dir, "oper.db"))
	if err != nil {
		log.Fatalf("Failed to open operational store: %v", err)
	}
	defer store.Close()

	wb := warmboot.New(cfg.Warmboot.Dir, store)
	if err := wb.AcquireLock(); err != nil {
		log.Fatalf("Failed to acquire agent lock: %v", err)
	}
	defer wb.ReleaseLock()

	var hostifMirror *hostif.Mirror
	if cfg.Hostif.Enabled {
		if cfg.Hostif.Netns != "" {
			hostifMirror, err = hostif.NewInNamespace(cfg.Hostif.Netns)
			if err != nil {
				log.Fatalf("Failed to attach to netns %q: %v", cfg.Hostif.Netns, err)
			}
		} else {
			hostifMirror = hostif.New()
		}
	}

	eventBus := local.NewBus()
	if len(cfg.Events.DebugTopics) > 0 {
		eventBus.SetDebugTopics(cfg.Events.DebugTopics)
	}
	cache := memory.New()
	collectorRegistry := state.DefaultRegistry()

	halComp := hal.New(hal.Config{
		Config:            cfg,
		Switch:            sw,
		Mirrors:           mirrors,
		Platform:          plat,
		Warmboot:          wb,
		Hostif:            hostifMirror,
		EventBus:          eventBus,
		CollectorRegistry: collectorRegistry,
	})

	var linkWatcher *linkscan.Watcher
	if linkSource != nil {
		linkWatcher = linkscan.New(linkSource, sw, plat, eventBus, cfg.Switch.LinkscanInterval)
		if hostifMirror != nil {
			linkWatcher.AddNotifier(hostifMirror)
		}
	}

	monitorComp := monitor.New(monitor.Config{
		Cache:             cache,
		EventBus:          eventBus,
		CollectorRegistry: collectorRegistry,
		CollectorConfig: state.CollectorConfig{
			Interval:   cfg.State.CollectInterval,
			TTL:        cfg.State.TTL,
			PathPrefix: statepaths.Prefix,
		},
		EnabledCollectors: cfg.State.Collectors,
	})

	deps := component.Dependencies{
		EventBus:          eventBus,
		Cache:             cache,
		Switch:            sw,
		Config:            cfg,
		CollectorRegistry: collectorRegistry,
	}

	orch := component.NewOrchestrator()
	orch.Register(halComp)
	if linkWatcher != nil {
		orch.Register(linkWatcher)
	}
	orch.Register(monitorComp)

	pluginComponents, err := component.LoadAll(deps)
	if err != nil {
		log.Fatalf("Failed to load plugin components: %v", err)
	}
	for _, comp := range pluginComponents {
		mainLog.Info("Loaded plugin component", "name", comp.Name())
		orch.Register(comp)
		if apiPlugin, ok := comp.(interface {
			SetServices(api.PortService, *mirror.Registry)
		}); ok {
			apiPlugin.SetServices(halComp, mirrors)
		}
	}

	ctx := context.Background()
	if err := orch.Start(ctx); err != nil {
		log.Fatalf("Failed to start components: %v", err)
	}

	mainLog.Info("osvswitch started successfully")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	mainLog.Info("Shutting down osvswitch...")

	if err := orch.Stop(ctx); err != nil {
		mainLog.Error("Error stopping components", "error", err)
	}

	mainLog.Info("osvswitch stopped")
}
