// Package hostif mirrors front panel ports as Linux dummy netdevs so
// host tooling sees the switch's port inventory, names, MTU and oper
// status.
package hostif

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/vishvananda/netlink"
	"github.com/vishvananda/netns"

	"github.com/veesix-networks/osvswitch/pkg/logger"
	"github.com/veesix-networks/osvswitch/pkg/ports"
)

// DesiredLink is one netdev the mirror should maintain.
type DesiredLink struct {
	Port ports.PortID
	Name string
	MTU  int
	Up   bool
}

type linkEntry struct {
	name string
	up   bool
}

type Mirror struct {
	mu            sync.Mutex
	links         map[ports.PortID]*linkEntry
	logger        *slog.Logger
	netlinkHandle *netlink.Handle
}

// New builds a mirror operating in the agent's own network namespace.
func New() *Mirror {
	return &Mirror{
		links:  make(map[ports.PortID]*linkEntry),
		logger: logger.Get(logger.Hostif),
	}
}

// NewInNamespace builds a mirror whose links live in the named network
// namespace.
func NewInNamespace(name string) (*Mirror, error) {
	ns, err := netns.GetFromName(name)
	if err != nil {
		return nil, fmt.Errorf("open netns %q: %w", name, err)
	}
	handle, err := netlink.NewHandleAt(ns)
	if err != nil {
		ns.Close()
		return nil, fmt.Errorf("netlink handle in netns %q: %w", name, err)
	}
	m := New()
	m.netlinkHandle = handle
	return m, nil
}

// SetNetlinkHandle overrides the handle, used by tests and netns setup.
func (m *Mirror) SetNetlinkHandle(h *netlink.Handle) {
	m.netlinkHandle = h
}

// Reconcile converges the kernel's dummy links with desired: existing
// matching links are adopted, missing ones created, links for ports no
// longer desired are deleted. managedNames bounds deletion to names this
// mirror is responsible for, so unrelated host links are never touched.
func (m *Mirror) Reconcile(desired []DesiredLink, managedNames map[string]bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, err := m.discoverDummies(managedNames)
	if err != nil {
		return err
	}

	wanted := make(map[string]bool, len(desired))
	next := make(map[ports.PortID]*linkEntry, len(desired))
	for _, d := range desired {
		wanted[d.Name] = true
		if _, ok := existing[d.Name]; ok {
			m.logger.Debug("adopted existing link", "name", d.Name)
		} else if err := m.createDummy(d); err != nil {
			m.logger.Error("creating link failed", "name", d.Name, "error", err)
			continue
		}
		if err := m.applyState(d); err != nil {
			m.logger.Warn("applying link state failed", "name", d.Name, "error", err)
		}
		next[d.Port] = &linkEntry{name: d.Name, up: d.Up}
	}

	for name := range existing {
		if wanted[name] {
			continue
		}
		m.deleteDummy(name)
		m.logger.Info("removed stale link", "name", name)
	}

	m.links = next
	return nil
}

// PortLinkChanged reflects an oper status transition onto the netdev.
// Satisfies the linkscan notifier contract.
func (m *Mirror) PortLinkChanged(id ports.PortID, name string, up bool) {
	m.mu.Lock()
	entry, ok := m.links[id]
	if ok {
		entry.up = up
		name = entry.name
	}
	m.mu.Unlock()
	if !ok {
		return
	}

	link, err := m.nlLinkByName(name)
	if err != nil {
		m.logger.Warn("link lookup failed", "name", name, "error", err)
		return
	}
	if up {
		err = m.nlLinkSetUp(link)
	} else {
		err = m.nlLinkSetDown(link)
	}
	if err != nil {
		m.logger.Warn("setting link state failed", "name", name, "up", up, "error", err)
	}
}

// Close tears down every managed link.
func (m *Mirror) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, entry := range m.links {
		m.deleteDummy(entry.name)
	}
	m.links = make(map[ports.PortID]*linkEntry)
	return nil
}

func (m *Mirror) createDummy(d DesiredLink) error {
	link := &netlink.Dummy{LinkAttrs: netlink.LinkAttrs{Name: d.Name}}
	if err := m.nlLinkAdd(link); err != nil {
		return fmt.Errorf("netlink link add: %w", err)
	}
	m.logger.Info("created link", "name", d.Name, "port", d.Port)
	return nil
}

func (m *Mirror) applyState(d DesiredLink) error {
	link, err := m.nlLinkByName(d.Name)
	if err != nil {
		return err
	}
	if d.MTU > 0 && link.Attrs().MTU != d.MTU {
		if err := m.nlLinkSetMTU(link, d.MTU); err != nil {
			return fmt.Errorf("set mtu: %w", err)
		}
	}
	if d.Up {
		return m.nlLinkSetUp(link)
	}
	return m.nlLinkSetDown(link)
}

func (m *Mirror) deleteDummy(name string) {
	link, err := m.nlLinkByName(name)
	if err != nil {
		return
	}
	if err := m.nlLinkDel(link); err != nil {
		m.logger.Warn("deleting link failed", "name", name, "error", err)
	}
}

// discoverDummies lists existing dummy links restricted to the managed
// name set.
func (m *Mirror) discoverDummies(managedNames map[string]bool) (map[string]netlink.Link, error) {
	links, err := m.nlLinkList()
	if err != nil {
		return nil, fmt.Errorf("netlink link list: %w", err)
	}
	result := make(map[string]netlink.Link)
	for _, link := range links {
		if _, ok := link.(*netlink.Dummy); !ok {
			continue
		}
		name := link.Attrs().Name
		if managedNames[name] {
			result[name] = link
		}
	}
	return result, nil
}

func (m *Mirror) nlLinkAdd(link netlink.Link) error {
	if m.netlinkHandle != nil {
		return m.netlinkHandle.LinkAdd(link)
	}
	return netlink.LinkAdd(link)
}

func (m *Mirror) nlLinkSetUp(link netlink.Link) error {
	if m.netlinkHandle != nil {
		return m.netlinkHandle.LinkSetUp(link)
	}
	return netlink.LinkSetUp(link)
}

func (m *Mirror) nlLinkSetDown(link netlink.Link) error {
	if m.netlinkHandle != nil {
		return m.netlinkHandle.LinkSetDown(link)
	}
	return netlink.LinkSetDown(link)
}

func (m *Mirror) nlLinkSetMTU(link netlink.Link, mtu int) error {
	if m.netlinkHandle != nil {
		return m.netlinkHandle.LinkSetMTU(link, mtu)
	}
	return netlink.LinkSetMTU(link, mtu)
}

func (m *Mirror) nlLinkDel(link netlink.Link) error {
	if m.netlinkHandle != nil {
		return m.netlinkHandle.LinkDel(link)
	}
	return netlink.LinkDel(link)
}

func (m *Mirror) nlLinkByName(name string) (netlink.Link, error) {
	if m.netlinkHandle != nil {
		return m.netlinkHandle.LinkByName(name)
	}
	return netlink.LinkByName(name)
}

func (m *Mirror) nlLinkList() ([]netlink.Link, error) {
	if m.netlinkHandle != nil {
		return m.netlinkHandle.LinkList()
	}
	return netlink.LinkList()
}
