package mirror

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/veesix-networks/osvswitch/pkg/logger"
	"github.com/veesix-networks/osvswitch/pkg/ports"
	"github.com/veesix-networks/osvswitch/pkg/southbound/sdk"
)

// Action starts or stops mirroring on a port binding.
type Action int

const (
	Start Action = iota
	Stop
)

func (a Action) String() string {
	if a == Start {
		return "start"
	}
	return "stop"
}

// MirrorSession is a registered session bound to a destination on the
// unit. Port controllers apply start and stop actions through it.
type MirrorSession struct {
	unit    sdk.Unit
	session Session
	id      sdk.MirrorDestID
}

// ID returns the destination allocated on the unit.
func (m *MirrorSession) ID() sdk.MirrorDestID { return m.id }

// Config returns the session definition.
func (m *MirrorSession) Config() Session { return m.session }

// ApplyAction binds or unbinds the session on (port, direction).
func (m *MirrorSession) ApplyAction(port ports.PortID, action Action, dir ports.Direction) error {
	if action == Start {
		return m.unit.PortMirrorEnable(port, dir, m.id)
	}
	return m.unit.PortMirrorDisable(port, dir, m.id)
}

// Registry owns the mirror destinations of one unit and resolves
// binding names to them.
type Registry struct {
	mu       sync.Mutex
	unit     sdk.Unit
	sessions map[string]*MirrorSession
	logger   *slog.Logger
}

func NewRegistry(unit sdk.Unit) *Registry {
	return &Registry{
		unit:     unit,
		sessions: make(map[string]*MirrorSession),
		logger:   logger.Component(logger.Mirror),
	}
}

// Lookup resolves a session name. A bound port whose session name fails
// the lookup means registry and port state have diverged; callers treat
// that as an internal consistency fault, not a user error.
func (r *Registry) Lookup(name string) (*MirrorSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.sessions[name]
	return m, ok
}

// Names lists the registered session names.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.sessions))
	for name := range r.sessions {
		out = append(out, name)
	}
	return out
}

// Sync reconciles the registry against the configured session set.
// New sessions get a destination allocated, sessions that changed are
// reallocated, and sessions no longer configured are destroyed. A
// destination still bound to ports refuses destruction; callers must
// unbind ports before removing the session from the configuration.
func (r *Registry) Sync(configured []Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	want := make(map[string]Session, len(configured))
	for _, s := range configured {
		if err := s.Validate(); err != nil {
			return err
		}
		if _, dup := want[s.Name]; dup {
			return fmt.Errorf("mirror session %q configured twice", s.Name)
		}
		want[s.Name] = s
	}

	for name, m := range r.sessions {
		s, keep := want[name]
		if keep && m.session.Equal(s) {
			delete(want, name)
			continue
		}
		if err := r.unit.MirrorDestDestroy(m.id); err != nil {
			return fmt.Errorf("destroying mirror destination %q: %w", name, err)
		}
		r.logger.Info("destroyed mirror destination", "session", name, "id", m.id)
		delete(r.sessions, name)
	}

	for name, s := range want {
		tunnel, err := BuildTunnel(s)
		if err != nil {
			return err
		}
		id, err := r.unit.MirrorDestCreate(sdk.MirrorDest{DestPort: s.DestPort, Tunnel: tunnel})
		if err != nil {
			return fmt.Errorf("creating mirror destination %q: %w", name, err)
		}
		r.sessions[name] = &MirrorSession{unit: r.unit, session: s, id: id}
		r.logger.Info("created mirror destination", "session", name, "id", id, "dest_port", s.DestPort, "tunneled", tunnel != nil)
	}
	return nil
}

// Close destroys every destination. Ports must already be unbound.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var firstErr error
	for name, m := range r.sessions {
		if err := r.unit.MirrorDestDestroy(m.id); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("destroying mirror destination %q: %w", name, err)
			}
			continue
		}
		delete(r.sessions, name)
	}
	return firstErr
}
