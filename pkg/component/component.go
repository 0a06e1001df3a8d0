// Package component defines the agent's lifecycle contract. The
// orchestrator starts registered components in order and plugins opt in
// through the registry.
package component

import "context"

type Component interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
