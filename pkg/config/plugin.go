package config

import (
	"fmt"
	"reflect"
	"sync"
)

type pluginConfigRegistry struct {
	mu      sync.RWMutex
	types   map[string]reflect.Type
	configs map[string]interface{}
}

var pluginConfigs = &pluginConfigRegistry{
	types:   make(map[string]reflect.Type),
	configs: make(map[string]interface{}),
}

// RegisterPluginConfig declares the config type a plugin namespace
// decodes into. Plugins call it from init().
func RegisterPluginConfig(namespace string, configInstance interface{}) {
	pluginConfigs.mu.Lock()
	defer pluginConfigs.mu.Unlock()

	t := reflect.TypeOf(configInstance)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if _, exists := pluginConfigs.types[namespace]; exists {
		panic(fmt.Sprintf("plugin config already registered for namespace: %s", namespace))
	}
	pluginConfigs.types[namespace] = t
}

func GetPluginConfig(namespace string) (interface{}, bool) {
	pluginConfigs.mu.RLock()
	defer pluginConfigs.mu.RUnlock()
	cfg, ok := pluginConfigs.configs[namespace]
	return cfg, ok
}

func SetPluginConfig(namespace string, config interface{}) {
	pluginConfigs.mu.Lock()
	defer pluginConfigs.mu.Unlock()
	pluginConfigs.configs[namespace] = config
}

func getPluginConfigType(namespace string) (reflect.Type, bool) {
	pluginConfigs.mu.RLock()
	defer pluginConfigs.mu.RUnlock()
	t, ok := pluginConfigs.types[namespace]
	return t, ok
}
