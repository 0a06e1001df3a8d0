package bcm

import (
	"github.com/veesix-networks/osvswitch/pkg/mirror"
	"github.com/veesix-networks/osvswitch/pkg/ports"
	"github.com/veesix-networks/osvswitch/pkg/southbound"
	"github.com/veesix-networks/osvswitch/pkg/southbound/sdk"
)

// updateMirror rebinds the named session on one direction. The old
// binding is stopped unconditionally, even when old and new names are
// equal: any earlier programming step may have reset the hardware
// session, and stop-then-start re-asserts it. An empty name leaves the
// direction unmirrored.
func (p *Port) updateMirror(name string, dir ports.Direction) error {
	p.mu.Lock()
	old := p.mirrors[dir]
	p.mu.Unlock()

	if old != "" {
		sess, ok := p.sw.mirrors.Lookup(old)
		if !ok {
			return southbound.Consistencyf("port %d %v bound to unknown mirror %q", p.id, dir, old)
		}
		if err := sess.ApplyAction(p.id, mirror.Stop, dir); err != nil && !sdk.IsNotFound(err) {
			return southbound.CheckSDK(err, "stop mirror "+old, p.id)
		}
	}

	p.mu.Lock()
	if name == "" {
		delete(p.mirrors, dir)
	} else {
		p.mirrors[dir] = name
	}
	p.mu.Unlock()

	if name == "" {
		return nil
	}
	sess, ok := p.sw.mirrors.Lookup(name)
	if !ok {
		return southbound.Consistencyf("port %d %v wants unknown mirror %q", p.id, dir, name)
	}
	if err := sess.ApplyAction(p.id, mirror.Start, dir); err != nil && !sdk.IsExists(err) {
		return southbound.CheckSDK(err, "start mirror "+name, p.id)
	}
	return nil
}

// teardownMirrors stops both directions regardless of port state so no
// hardware mirror session outlives its owner. Failures are logged, not
// propagated: teardown runs on removal and shutdown paths that must
// make progress.
func (p *Port) teardownMirrors() {
	p.mu.Lock()
	bound := make(map[ports.Direction]string, len(p.mirrors))
	for dir, name := range p.mirrors {
		bound[dir] = name
	}
	p.mirrors = make(map[ports.Direction]string)
	p.mu.Unlock()

	for dir, name := range bound {
		sess, ok := p.sw.mirrors.Lookup(name)
		if !ok {
			p.logger.Warn("bound mirror vanished from registry", "mirror", name, "direction", dir.String())
			continue
		}
		if err := sess.ApplyAction(p.id, mirror.Stop, dir); err != nil && !sdk.IsNotFound(err) {
			p.logger.Warn("stopping mirror failed", "mirror", name, "direction", dir.String(), "error", err)
		}
	}
}
