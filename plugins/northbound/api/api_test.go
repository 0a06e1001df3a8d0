package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/veesix-networks/osvswitch/pkg/component"
	"github.com/veesix-networks/osvswitch/pkg/delta"
	"github.com/veesix-networks/osvswitch/pkg/logger"
	"github.com/veesix-networks/osvswitch/pkg/mirror"
	"github.com/veesix-networks/osvswitch/pkg/platform"
	"github.com/veesix-networks/osvswitch/pkg/ports"
	"github.com/veesix-networks/osvswitch/pkg/southbound"
	"github.com/veesix-networks/osvswitch/pkg/southbound/bcm"
	"github.com/veesix-networks/osvswitch/pkg/southbound/sdk/sim"
)

type testHAL struct {
	sw *southbound.Switch
}

func (h *testHAL) UpdatePorts(desired map[ports.PortID]ports.DesiredPort) (delta.Delta, error) {
	return h.sw.Apply(desired)
}

func (h *testHAL) BootInfoJSON() ([]byte, error) {
	return []byte(`{"boot_id":"test","warm_boot":false,"platform":"fake","backend":"bcm"}`), nil
}

func newTestComponent(t *testing.T) (*Component, *southbound.Switch) {
	t.Helper()
	plat := platform.NewFake(false)
	var ids []ports.PortID
	for _, pp := range plat.Ports() {
		ids = append(ids, pp.ID)
	}
	unit := sim.New(ids)
	reg := mirror.NewRegistry(unit)
	if err := reg.Sync([]mirror.Session{{Name: "span1", DestPort: 30}}); err != nil {
		t.Fatalf("syncing mirrors: %v", err)
	}
	sw := southbound.NewSwitch(bcm.NewSwitch(unit, plat, reg, nil))
	if err := sw.Init(context.Background()); err != nil {
		t.Fatalf("initializing switch: %v", err)
	}

	c := &Component{
		Base:   component.NewBase(Namespace),
		logger: logger.Component(Namespace),
		sw:     sw,
	}
	c.SetServices(&testHAL{sw: sw}, reg)
	return c, sw
}

func postPorts(t *testing.T, srv *httptest.Server, req PortsRequest) (*http.Response, DeltaResponse) {
	t.Helper()
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshaling request: %v", err)
	}
	resp, err := http.Post(srv.URL+"/api/config/ports", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST ports: %v", err)
	}
	var d DeltaResponse
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&d); err != nil {
			t.Fatalf("decoding delta: %v", err)
		}
	}
	resp.Body.Close()
	return resp, d
}

func TestPortTableRoundTrip(t *testing.T) {
	c, sw := newTestComponent(t)
	srv := httptest.NewServer(c.routes())
	defer srv.Close()

	req := PortsRequest{Ports: []ports.DesiredPort{
		{ID: 1, Name: "port1", Enabled: true, IngressVlan: 1},
		{ID: 2, Name: "port2", Enabled: true, IngressVlan: 1},
	}}
	resp, d := postPorts(t, srv, req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST status = %d", resp.StatusCode)
	}
	if len(d.Added) != 2 || len(d.Changed) != 0 || len(d.Removed) != 0 {
		t.Errorf("delta = %+v, want 2 added", d)
	}

	resp, err := http.Get(srv.URL + "/api/ports")
	if err != nil {
		t.Fatalf("GET ports: %v", err)
	}
	var statuses []southbound.PortStatus
	if err := json.NewDecoder(resp.Body).Decode(&statuses); err != nil {
		t.Fatalf("decoding statuses: %v", err)
	}
	resp.Body.Close()
	if len(statuses) != 2 {
		t.Fatalf("GET ports returned %d entries, want 2", len(statuses))
	}

	resp, err = http.Get(srv.URL + "/api/ports/1")
	if err != nil {
		t.Fatalf("GET port 1: %v", err)
	}
	var st southbound.PortStatus
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decoding status: %v", err)
	}
	resp.Body.Close()
	if st.ID != 1 || st.Name != "port1" || !st.Enabled {
		t.Errorf("port 1 status = %+v", st)
	}

	resp, err = http.Get(srv.URL + "/api/ports/999")
	if err != nil {
		t.Fatalf("GET unknown port: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown port status = %d, want 404", resp.StatusCode)
	}

	sw.UpdateStats(time.Now())
	resp, err = http.Get(srv.URL + "/api/ports/1/counters")
	if err != nil {
		t.Fatalf("GET counters: %v", err)
	}
	var pc southbound.PortCounters
	if err := json.NewDecoder(resp.Body).Decode(&pc); err != nil {
		t.Fatalf("decoding counters: %v", err)
	}
	resp.Body.Close()
	if pc.Port != "port1" || !pc.Collected {
		t.Errorf("counters = %+v, want collected snapshot for port1", pc)
	}
}

func TestPortTableValidation(t *testing.T) {
	c, _ := newTestComponent(t)
	srv := httptest.NewServer(c.routes())
	defer srv.Close()

	cases := []struct {
		name string
		req  PortsRequest
	}{
		{"duplicate id", PortsRequest{Ports: []ports.DesiredPort{
			{ID: 1, Name: "a"}, {ID: 1, Name: "b"},
		}}},
		{"missing name", PortsRequest{Ports: []ports.DesiredPort{{ID: 1}}}},
		{"unknown mirror", PortsRequest{Ports: []ports.DesiredPort{
			{ID: 1, Name: "a", IngressMirror: "nope"},
		}}},
		{"vlan out of range", PortsRequest{Ports: []ports.DesiredPort{
			{ID: 1, Name: "a", Vlans: []ports.VlanMembership{{Vlan: 4095}}},
		}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, _ := postPorts(t, srv, tc.req)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestMirrorsEndpoint(t *testing.T) {
	c, _ := newTestComponent(t)
	srv := httptest.NewServer(c.routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/mirrors")
	if err != nil {
		t.Fatalf("GET mirrors: %v", err)
	}
	defer resp.Body.Close()
	var infos []MirrorInfo
	if err := json.NewDecoder(resp.Body).Decode(&infos); err != nil {
		t.Fatalf("decoding mirrors: %v", err)
	}
	if len(infos) != 1 || infos[0].Session.Name != "span1" || infos[0].Session.DestPort != 30 {
		t.Errorf("mirrors = %+v", infos)
	}
}

func TestBootEndpoint(t *testing.T) {
	c, _ := newTestComponent(t)
	srv := httptest.NewServer(c.routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/system/boot")
	if err != nil {
		t.Fatalf("GET boot: %v", err)
	}
	defer resp.Body.Close()
	var info map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		t.Fatalf("decoding boot info: %v", err)
	}
	if info["boot_id"] != "test" || info["warm_boot"] != false {
		t.Errorf("boot info = %+v", info)
	}
}

func TestOpenAPIDocument(t *testing.T) {
	c, _ := newTestComponent(t)
	srv := httptest.NewServer(c.routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/openapi.json")
	if err != nil {
		t.Fatalf("GET openapi: %v", err)
	}
	defer resp.Body.Close()
	var doc struct {
		OpenAPI string                     `json:"openapi"`
		Paths   map[string]json.RawMessage `json:"paths"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		t.Fatalf("decoding document: %v", err)
	}
	if doc.OpenAPI != "3.0.3" {
		t.Errorf("openapi version = %q", doc.OpenAPI)
	}
	for _, p := range []string{"/api/ports", "/api/ports/{id}", "/api/config/ports", "/api/system/boot"} {
		if _, ok := doc.Paths[p]; !ok {
			t.Errorf("document missing path %s", p)
		}
	}
}
