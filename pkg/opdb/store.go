// Package opdb is the agent's operational database: a namespaced
// key/value store holding state that must survive a restart, such as
// the warm boot record and the last applied port table.
package opdb

import "context"

type Store interface {
	Put(ctx context.Context, namespace, key string, value []byte) error
	Delete(ctx context.Context, namespace, key string) error
	Load(ctx context.Context, namespace string, fn LoadFunc) error
	Clear(ctx context.Context, namespace string) error
	Close() error
}

type LoadFunc func(key string, value []byte) error

const NamespaceWarmboot = "warmboot"
