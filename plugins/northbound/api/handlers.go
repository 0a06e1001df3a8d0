package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"github.com/veesix-networks/osvswitch/pkg/delta"
	"github.com/veesix-networks/osvswitch/pkg/ports"
	"github.com/veesix-networks/osvswitch/pkg/southbound"
)

func (c *Component) handlePaths(w http.ResponseWriter, r *http.Request) {
	resp := PathsResponse{
		Paths: []string{
			"GET /api/ports",
			"GET /api/ports/{id}",
			"GET /api/ports/{id}/counters",
			"GET /api/counters",
			"GET /api/mirrors",
			"GET /api/system/boot",
			"GET /api/config/ports",
			"POST /api/config/ports",
			"GET /openapi.json",
		},
	}

	w.Header().Set("Content-Type", "application/json")
	c.writeJSON(w, resp)
}

func (c *Component) handlePorts(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	c.writeJSON(w, c.sw.PortStatuses())
}

func (c *Component) portID(w http.ResponseWriter, r *http.Request) (ports.PortID, bool) {
	raw := r.PathValue("id")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		c.writeError(w, http.StatusBadRequest, "invalid port id: "+raw)
		return 0, false
	}
	return ports.PortID(id), true
}

func (c *Component) handlePort(w http.ResponseWriter, r *http.Request) {
	id, ok := c.portID(w, r)
	if !ok {
		return
	}

	st, err := c.sw.PortStatus(id)
	if err != nil {
		c.writeError(w, http.StatusNotFound, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	c.writeJSON(w, st)
}

func (c *Component) handlePortCounters(w http.ResponseWriter, r *http.Request) {
	id, ok := c.portID(w, r)
	if !ok {
		return
	}

	st, err := c.sw.PortStatus(id)
	if err != nil {
		c.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	snap, _ := c.sw.Snapshot(id)

	w.Header().Set("Content-Type", "application/json")
	c.writeJSON(w, southbound.BuildPortCounters(st.Name, snap))
}

func (c *Component) handleCounters(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	c.writeJSON(w, c.sw.PortCounters())
}

func (c *Component) handleMirrors(w http.ResponseWriter, r *http.Request) {
	if c.mirrors == nil {
		c.writeError(w, http.StatusServiceUnavailable, "mirror registry not attached")
		return
	}

	infos := make([]MirrorInfo, 0)
	for _, name := range c.mirrors.Names() {
		ms, ok := c.mirrors.Lookup(name)
		if !ok {
			continue
		}
		infos = append(infos, MirrorInfo{
			Session: ms.Config(),
			DestID:  int(ms.ID()),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	c.writeJSON(w, infos)
}

func (c *Component) handleBoot(w http.ResponseWriter, r *http.Request) {
	if c.hal == nil {
		c.writeError(w, http.StatusServiceUnavailable, "hal not attached")
		return
	}

	data, err := c.hal.BootInfoJSON()
	if err != nil {
		c.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (c *Component) handleGetPortConfig(w http.ResponseWriter, r *http.Request) {
	applied := c.sw.Applied()
	list := make([]ports.DesiredPort, 0, len(applied))
	for _, p := range applied {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })

	w.Header().Set("Content-Type", "application/json")
	c.writeJSON(w, PortsRequest{Ports: list})
}

func (c *Component) handleSetPortConfig(w http.ResponseWriter, r *http.Request) {
	if c.hal == nil {
		c.writeError(w, http.StatusServiceUnavailable, "hal not attached")
		return
	}

	var req PortsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	desired, err := c.validatePorts(req.Ports)
	if err != nil {
		c.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	d, err := c.hal.UpdatePorts(desired)
	if err != nil {
		c.logger.Error("port table update failed", "error", err)
		c.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	c.logger.Info("port table updated", "delta", d.String())

	w.Header().Set("Content-Type", "application/json")
	c.writeJSON(w, deltaResponse(d))
}

func (c *Component) validatePorts(list []ports.DesiredPort) (map[ports.PortID]ports.DesiredPort, error) {
	desired := make(map[ports.PortID]ports.DesiredPort, len(list))
	names := make(map[string]bool, len(list))
	for i, p := range list {
		if p.ID == 0 {
			return nil, fmt.Errorf("ports[%d]: id is required", i)
		}
		if _, dup := desired[p.ID]; dup {
			return nil, fmt.Errorf("ports[%d]: port %d configured twice", i, p.ID)
		}
		if p.Name == "" {
			return nil, fmt.Errorf("ports[%d]: name is required", i)
		}
		if names[p.Name] {
			return nil, fmt.Errorf("ports[%d]: name %q configured twice", i, p.Name)
		}
		names[p.Name] = true
		for _, v := range p.Vlans {
			if v.Vlan == 0 || v.Vlan > 4094 {
				return nil, fmt.Errorf("ports[%d]: vlan %d out of range", i, v.Vlan)
			}
		}
		for _, name := range []string{p.IngressMirror, p.EgressMirror} {
			if name == "" {
				continue
			}
			if c.mirrors == nil {
				return nil, fmt.Errorf("ports[%d]: mirror %q referenced but no registry attached", i, name)
			}
			if _, ok := c.mirrors.Lookup(name); !ok {
				return nil, fmt.Errorf("ports[%d]: references unknown mirror %q", i, name)
			}
		}
		desired[p.ID] = p
	}
	return desired, nil
}

func deltaResponse(d delta.Delta) DeltaResponse {
	resp := DeltaResponse{
		Added:   []ports.PortID{},
		Changed: []ports.PortID{},
		Removed: []ports.PortID{},
	}
	for _, p := range d.Added {
		resp.Added = append(resp.Added, p.ID)
	}
	for _, ch := range d.Changed {
		resp.Changed = append(resp.Changed, ch.New.ID)
	}
	for _, p := range d.Removed {
		resp.Removed = append(resp.Removed, p.ID)
	}
	return resp
}

func (c *Component) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	c.writeJSON(w, openAPISpec())
}

func (c *Component) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	c.writeJSON(w, ErrorResponse{Error: message})
}

func (c *Component) writeJSON(w http.ResponseWriter, v interface{}) {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	encoder.Encode(v)
}
