package config

import (
	"fmt"
	"os"
	"reflect"

	"gopkg.in/yaml.v3"
)

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes, defaults and validates a raw YAML document. Plugin
// namespaces with a registered config type are decoded into it; unknown
// namespaces stay as raw maps.
func Parse(data []byte) (*Config, error) {
	var rawConfig map[string]interface{}
	if err := yaml.Unmarshal(data, &rawConfig); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if pluginsRaw, ok := rawConfig["plugins"].(map[string]interface{}); ok {
		cfg.Plugins = make(map[string]interface{})
		for namespace, pluginCfgRaw := range pluginsRaw {
			cfgType, ok := getPluginConfigType(namespace)
			if !ok {
				cfg.Plugins[namespace] = pluginCfgRaw
				continue
			}

			pluginData, err := yaml.Marshal(pluginCfgRaw)
			if err != nil {
				return nil, fmt.Errorf("marshal plugin config for %s: %w", namespace, err)
			}
			typedConfig := reflect.New(cfgType).Interface()
			if err := yaml.Unmarshal(pluginData, typedConfig); err != nil {
				return nil, fmt.Errorf("unmarshal plugin config for %s: %w", namespace, err)
			}
			SetPluginConfig(namespace, typedConfig)
			cfg.Plugins[namespace] = typedConfig
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
