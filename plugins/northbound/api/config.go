package api

import (
	"github.com/veesix-networks/osvswitch/pkg/component"
	"github.com/veesix-networks/osvswitch/pkg/config"
)

const Namespace = "northbound.api"

type Config struct {
	Enabled       bool   `json:"enabled" yaml:"enabled"`
	ListenAddress string `json:"listen_address,omitempty" yaml:"listen_address,omitempty"`
}

func init() {
	config.RegisterPluginConfig(Namespace, Config{})
	component.Register(Namespace, NewComponent)
}
