// Package warmboot decides how the agent boots and persists the state a
// warm restart needs: a clean-shutdown flag and the last applied port
// table. A lock file keeps a second agent instance off the same switch.
package warmboot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/veesix-networks/osvswitch/pkg/logger"
	"github.com/veesix-networks/osvswitch/pkg/opdb"
	"github.com/veesix-networks/osvswitch/pkg/ports"
)

const (
	lockFileName = "agent.lock"

	keyCleanShutdown = "clean_shutdown"
	keyAppliedPorts  = "applied_ports"
)

type Manager struct {
	dir      string
	store    opdb.Store
	lockFile *os.File
	logger   *slog.Logger
}

func New(dir string, store opdb.Store) *Manager {
	return &Manager{
		dir:    dir,
		store:  store,
		logger: logger.Get(logger.Warmboot),
	}
}

// AcquireLock takes the exclusive agent lock. A second instance fails
// fast instead of fighting over the unit.
func (m *Manager) AcquireLock() error {
	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return err
	}
	path := filepath.Join(m.dir, lockFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return err
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return fmt.Errorf("another agent instance holds %s: %w", path, err)
	}
	m.lockFile = f
	return nil
}

func (m *Manager) ReleaseLock() error {
	if m.lockFile == nil {
		return nil
	}
	f := m.lockFile
	m.lockFile = nil
	unix.Flock(int(f.Fd()), unix.LOCK_UN)
	return f.Close()
}

// DetermineBootType reports whether this start may warm boot. The
// clean-shutdown flag is consumed: a crash before the next clean
// shutdown forces the following start cold.
func (m *Manager) DetermineBootType(ctx context.Context) (warm bool, err error) {
	err = m.store.Load(ctx, opdb.NamespaceWarmboot, func(key string, value []byte) error {
		if key == keyCleanShutdown && string(value) == "1" {
			warm = true
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	if warm {
		if err := m.store.Delete(ctx, opdb.NamespaceWarmboot, keyCleanShutdown); err != nil {
			return false, err
		}
	}
	m.logger.Info("boot type determined", "warm", warm)
	return warm, nil
}

// AppliedPorts loads the port table persisted by the previous clean
// shutdown. An absent record yields an empty table, not an error.
func (m *Manager) AppliedPorts(ctx context.Context) (map[ports.PortID]ports.DesiredPort, error) {
	table := make(map[ports.PortID]ports.DesiredPort)
	err := m.store.Load(ctx, opdb.NamespaceWarmboot, func(key string, value []byte) error {
		if key != keyAppliedPorts {
			return nil
		}
		var list []ports.DesiredPort
		if err := json.Unmarshal(value, &list); err != nil {
			return fmt.Errorf("decoding persisted port table: %w", err)
		}
		for _, p := range list {
			table[p.ID] = p
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return table, nil
}

// RecordCleanShutdown persists the applied table and arms the warm-boot
// flag for the next start.
func (m *Manager) RecordCleanShutdown(ctx context.Context, applied map[ports.PortID]ports.DesiredPort) error {
	list := make([]ports.DesiredPort, 0, len(applied))
	for _, p := range applied {
		list = append(list, p)
	}
	data, err := json.Marshal(list)
	if err != nil {
		return err
	}
	if err := m.store.Put(ctx, opdb.NamespaceWarmboot, keyAppliedPorts, data); err != nil {
		return err
	}
	if err := m.store.Put(ctx, opdb.NamespaceWarmboot, keyCleanShutdown, []byte("1")); err != nil {
		return err
	}
	m.logger.Info("clean shutdown recorded", "ports", len(list))
	return nil
}
