package qsfp

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/veesix-networks/osvswitch/pkg/ports"
)

func TestStaticSource(t *testing.T) {
	s := NewStatic(map[string]ports.TransmitterTech{
		"eth1/1/1": ports.TransmitterOptical,
		"eth1/2/1": ports.TransmitterCopper,
	})
	tech, err := s.TransmitterTech(context.Background(), "eth1/1/1")
	if err != nil || tech != ports.TransmitterOptical {
		t.Errorf("TransmitterTech = (%v, %v)", tech, err)
	}
	tech, err = s.TransmitterTech(context.Background(), "eth9/9/9")
	if err != nil || tech != ports.TransmitterUnknown {
		t.Errorf("unknown port = (%v, %v)", tech, err)
	}
}

func serveQSFP(t *testing.T, handler http.Handler) string {
	t.Helper()
	socket := filepath.Join(t.TempDir(), "qsfpd.sock")
	ln, err := net.Listen("unix", socket)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	t.Cleanup(func() { srv.Close() })
	return socket
}

func TestClientQuery(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/transceivers/{port}", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(transceiverState{
			Port:            r.PathValue("port"),
			Present:         true,
			TransmitterTech: "optical",
		})
	})
	c := NewClient(serveQSFP(t, mux))

	tech, err := c.TransmitterTech(context.Background(), "eth1/4/1")
	if err != nil {
		t.Fatalf("TransmitterTech: %v", err)
	}
	if tech != ports.TransmitterOptical {
		t.Errorf("tech = %v, want optical", tech)
	}
}

func TestClientModuleAbsent(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/transceivers/{port}", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(transceiverState{Port: r.PathValue("port")})
	})
	c := NewClient(serveQSFP(t, mux))

	tech, err := c.TransmitterTech(context.Background(), "eth1/4/1")
	if err != nil {
		t.Fatalf("TransmitterTech: %v", err)
	}
	if tech != ports.TransmitterUnknown {
		t.Errorf("absent module tech = %v, want unknown", tech)
	}
}

func TestClientRetriesThenFails(t *testing.T) {
	c := NewClient(filepath.Join(t.TempDir(), "missing.sock"))
	c.retries = 1

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tech, err := c.TransmitterTech(ctx, "eth1/1/1")
	if err == nil {
		t.Fatal("expected error for unreachable daemon")
	}
	if tech != ports.TransmitterUnknown {
		t.Errorf("tech on failure = %v, want unknown", tech)
	}
}

func TestParseTech(t *testing.T) {
	cases := map[string]ports.TransmitterTech{
		"copper":  ports.TransmitterCopper,
		"optical": ports.TransmitterOptical,
		"":        ports.TransmitterUnknown,
		"plasma":  ports.TransmitterUnknown,
	}
	for in, want := range cases {
		if got := parseTech(in); got != want {
			t.Errorf("parseTech(%q) = %v, want %v", in, got, want)
		}
	}
}
