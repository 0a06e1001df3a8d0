// Package config holds the agent's YAML configuration: platform and
// backend selection, the desired port table, mirror sessions, and the
// ambient subsystems. Load applies defaults and validates before the
// configuration reaches any component.
package config

import (
	"fmt"
	"time"

	"github.com/veesix-networks/osvswitch/pkg/logger"
	"github.com/veesix-networks/osvswitch/pkg/mirror"
	"github.com/veesix-networks/osvswitch/pkg/ports"
)

const (
	BackendBCM = "bcm"
	BackendSAI = "sai"
)

type Config struct {
	Logging  LoggingConfig          `json:"logging,omitempty" yaml:"logging,omitempty"`
	Platform PlatformConfig         `json:"platform,omitempty" yaml:"platform,omitempty"`
	Backend  string                 `json:"backend,omitempty" yaml:"backend,omitempty"`
	Switch   SwitchConfig           `json:"switch,omitempty" yaml:"switch,omitempty"`
	Ports    []ports.DesiredPort    `json:"ports,omitempty" yaml:"ports,omitempty"`
	Mirrors  []mirror.Session       `json:"mirrors,omitempty" yaml:"mirrors,omitempty"`
	Hostif   HostifConfig           `json:"hostif,omitempty" yaml:"hostif,omitempty"`
	Warmboot WarmbootConfig         `json:"warmboot,omitempty" yaml:"warmboot,omitempty"`
	QSFP     QSFPConfig             `json:"qsfp,omitempty" yaml:"qsfp,omitempty"`
	API      APIConfig              `json:"api,omitempty" yaml:"api,omitempty"`
	Events   EventsConfig           `json:"events,omitempty" yaml:"events,omitempty"`
	State    StateConfig            `json:"state,omitempty" yaml:"state,omitempty"`
	Plugins  map[string]interface{} `json:"plugins,omitempty" yaml:"plugins,omitempty"`
}

type LoggingConfig struct {
	Format     string                     `json:"format,omitempty" yaml:"format,omitempty"`
	Level      logger.LogLevel            `json:"level,omitempty" yaml:"level,omitempty"`
	Components map[string]logger.LogLevel `json:"components,omitempty" yaml:"components,omitempty"`
}

type PlatformConfig struct {
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	Lossless bool   `json:"lossless,omitempty" yaml:"lossless,omitempty"`
}

type SwitchConfig struct {
	StatsInterval    time.Duration `json:"stats_interval,omitempty" yaml:"stats_interval,omitempty"`
	LinkscanInterval time.Duration `json:"linkscan_interval,omitempty" yaml:"linkscan_interval,omitempty"`
}

type HostifConfig struct {
	Enabled bool   `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Netns   string `json:"netns,omitempty" yaml:"netns,omitempty"`
}

type WarmbootConfig struct {
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`
}

type QSFPConfig struct {
	Socket string `json:"socket,omitempty" yaml:"socket,omitempty"`
}

type APIConfig struct {
	Listen string `json:"listen,omitempty" yaml:"listen,omitempty"`
}

type EventsConfig struct {
	// DebugTopics lists bus topics whose events are echoed to the log.
	DebugTopics []string `json:"debug_topics,omitempty" yaml:"debug_topics,omitempty"`
}

type StateConfig struct {
	CollectInterval time.Duration `json:"collect_interval,omitempty" yaml:"collect_interval,omitempty"`
	TTL             time.Duration `json:"ttl,omitempty" yaml:"ttl,omitempty"`
	Collectors      []string      `json:"collectors,omitempty" yaml:"collectors,omitempty"`
}

func (c *Config) applyDefaults() {
	if c.Backend == "" {
		c.Backend = BackendBCM
	}
	if c.Platform.Name == "" {
		c.Platform.Name = "fake"
	}
	if c.Switch.StatsInterval == 0 {
		c.Switch.StatsInterval = time.Second
	}
	if c.Switch.LinkscanInterval == 0 {
		c.Switch.LinkscanInterval = 250 * time.Millisecond
	}
	if c.Warmboot.Dir == "" {
		c.Warmboot.Dir = "/var/lib/osvswitch"
	}
	if c.API.Listen == "" {
		c.API.Listen = "127.0.0.1:8480"
	}
	if c.State.CollectInterval == 0 {
		c.State.CollectInterval = 5 * time.Second
	}
	if c.State.TTL == 0 {
		c.State.TTL = 30 * time.Second
	}
}

func (c *Config) Validate() error {
	switch c.Backend {
	case BackendBCM, BackendSAI:
	default:
		return fmt.Errorf("backend must be %q or %q, got %q", BackendBCM, BackendSAI, c.Backend)
	}

	seen := make(map[ports.PortID]bool, len(c.Ports))
	names := make(map[string]bool, len(c.Ports))
	for i, p := range c.Ports {
		if p.ID == 0 {
			return fmt.Errorf("ports[%d]: id is required", i)
		}
		if seen[p.ID] {
			return fmt.Errorf("ports[%d]: port %d configured twice", i, p.ID)
		}
		seen[p.ID] = true
		if p.Name == "" {
			return fmt.Errorf("ports[%d]: name is required", i)
		}
		if names[p.Name] {
			return fmt.Errorf("ports[%d]: name %q configured twice", i, p.Name)
		}
		names[p.Name] = true
		for _, v := range p.Vlans {
			if v.Vlan == 0 || v.Vlan > 4094 {
				return fmt.Errorf("ports[%d]: vlan %d out of range", i, v.Vlan)
			}
		}
	}

	mirrorNames := make(map[string]bool, len(c.Mirrors))
	for _, s := range c.Mirrors {
		if err := s.Validate(); err != nil {
			return err
		}
		if mirrorNames[s.Name] {
			return fmt.Errorf("mirror session %q configured twice", s.Name)
		}
		mirrorNames[s.Name] = true
	}
	for i, p := range c.Ports {
		for _, name := range []string{p.IngressMirror, p.EgressMirror} {
			if name != "" && !mirrorNames[name] {
				return fmt.Errorf("ports[%d]: references unknown mirror %q", i, name)
			}
		}
	}
	return nil
}

// DesiredPorts returns the configured port table keyed by ID.
func (c *Config) DesiredPorts() map[ports.PortID]ports.DesiredPort {
	out := make(map[ports.PortID]ports.DesiredPort, len(c.Ports))
	for _, p := range c.Ports {
		out[p.ID] = p
	}
	return out
}
