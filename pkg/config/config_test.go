package config

import (
	"strings"
	"testing"
	"time"

	"github.com/veesix-networks/osvswitch/pkg/ports"
)

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte("platform:\n  name: fake\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Backend != BackendBCM {
		t.Errorf("backend = %q, want default %q", cfg.Backend, BackendBCM)
	}
	if cfg.Switch.StatsInterval != time.Second {
		t.Errorf("stats interval = %v, want 1s", cfg.Switch.StatsInterval)
	}
	if cfg.Warmboot.Dir == "" || cfg.API.Listen == "" {
		t.Error("warmboot dir / api listen defaults missing")
	}
}

func TestParseFullDocument(t *testing.T) {
	doc := `
backend: sai
platform:
  name: tomahawk
  lossless: true
ports:
  - id: 1
    name: eth1/1/1
    enabled: true
    speed: 100000
    fec: 1
    ingress_vlan: 10
    vlans:
      - vlan: 100
        tagged: true
    ingress_mirror: span1
mirrors:
  - name: span1
    dest_port: 32
`
	cfg, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Backend != BackendSAI || cfg.Platform.Name != "tomahawk" || !cfg.Platform.Lossless {
		t.Errorf("header decoded wrong: %+v", cfg)
	}
	table := cfg.DesiredPorts()
	p, ok := table[1]
	if !ok {
		t.Fatal("port 1 missing from desired table")
	}
	if p.Speed != ports.SpeedHundredG || p.FEC != ports.FECOn || p.IngressVlan != 10 {
		t.Errorf("port decoded wrong: %+v", p)
	}
	if len(p.Vlans) != 1 || p.Vlans[0].Vlan != 100 || !p.Vlans[0].Tagged {
		t.Errorf("vlan membership decoded wrong: %+v", p.Vlans)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "unknown backend",
			doc:  "backend: thrift\n",
			want: "backend",
		},
		{
			name: "duplicate port id",
			doc: `ports:
  - {id: 1, name: a}
  - {id: 1, name: b}
`,
			want: "configured twice",
		},
		{
			name: "duplicate port name",
			doc: `ports:
  - {id: 1, name: a}
  - {id: 2, name: a}
`,
			want: "configured twice",
		},
		{
			name: "missing port name",
			doc:  "ports:\n  - {id: 3}\n",
			want: "name is required",
		},
		{
			name: "vlan out of range",
			doc: `ports:
  - id: 1
    name: a
    vlans:
      - vlan: 4095
`,
			want: "out of range",
		},
		{
			name: "unknown mirror reference",
			doc: `ports:
  - {id: 1, name: a, ingress_mirror: nope}
`,
			want: "unknown mirror",
		},
		{
			name: "duplicate mirror session",
			doc: `mirrors:
  - {name: m1, dest_port: 2}
  - {name: m1, dest_port: 3}
`,
			want: "configured twice",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.doc))
			if err == nil {
				t.Fatal("Parse accepted invalid document")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

type fakePluginConfig struct {
	Listen  string `yaml:"listen"`
	Verbose bool   `yaml:"verbose"`
}

func TestPluginNamespaceDecoding(t *testing.T) {
	RegisterPluginConfig("faketest", &fakePluginConfig{})

	doc := `
plugins:
  faketest:
    listen: ":9100"
    verbose: true
  unregistered:
    anything: goes
`
	cfg, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	typed, ok := cfg.Plugins["faketest"].(*fakePluginConfig)
	if !ok {
		t.Fatalf("plugin config type = %T, want *fakePluginConfig", cfg.Plugins["faketest"])
	}
	if typed.Listen != ":9100" || !typed.Verbose {
		t.Errorf("plugin config = %+v", typed)
	}
	if _, ok := cfg.Plugins["unregistered"]; !ok {
		t.Error("unregistered namespace dropped instead of kept raw")
	}
	if got, ok := GetPluginConfig("faketest"); !ok || got != typed {
		t.Error("registry does not serve the decoded plugin config")
	}
}
