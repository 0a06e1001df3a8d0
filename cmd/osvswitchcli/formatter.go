package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/veesix-networks/osvswitch/pkg/southbound"
	"github.com/veesix-networks/osvswitch/plugins/northbound/api"
)

func newTable() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
}

func linkString(up bool) string {
	if up {
		return "up"
	}
	return "down"
}

func (c *CLI) showPorts() error {
	var statuses []southbound.PortStatus
	if err := c.get("/api/ports", &statuses); err != nil {
		return err
	}

	w := newTable()
	fmt.Fprintln(w, "ID\tNAME\tADMIN\tLINK\tSPEED\tVLAN\tMEDIA")
	for _, st := range statuses {
		admin := "disabled"
		if st.Enabled {
			admin = "enabled"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%d\t%s\n",
			st.ID, st.Name, admin, linkString(st.Up), st.SpeedMbps, st.IngressVlan, st.Transmitter)
	}
	return w.Flush()
}

func (c *CLI) showPort(id string) error {
	var st southbound.PortStatus
	if err := c.get("/api/ports/"+id, &st); err != nil {
		return err
	}

	fmt.Printf("Port %d (%s)\n", st.ID, st.Name)
	fmt.Printf("  Admin:        %v\n", st.Enabled)
	fmt.Printf("  Link:         %s\n", linkString(st.Up))
	fmt.Printf("  Speed:        %d Mbps\n", st.SpeedMbps)
	fmt.Printf("  FEC:          %v\n", st.FECEnabled)
	fmt.Printf("  Loopback:     %s\n", st.Loopback)
	fmt.Printf("  Ingress VLAN: %d\n", st.IngressVlan)
	fmt.Printf("  Media:        %s\n", st.Transmitter)
	for dir, name := range st.Mirrors {
		fmt.Printf("  Mirror:       %s -> %s\n", dir, name)
	}

	var pc southbound.PortCounters
	if err := c.get("/api/ports/"+id+"/counters", &pc); err != nil {
		return err
	}
	if !pc.Collected {
		fmt.Println("  Counters:     not collected yet")
		return nil
	}
	fmt.Printf("  Collected at: %s\n", time.Unix(pc.TimestampSec, 0).Format(time.RFC3339))
	fmt.Printf("  In bytes:     %d\n", pc.InBytes)
	fmt.Printf("  Out bytes:    %d\n", pc.OutBytes)
	fmt.Printf("  In discards:  %d (non-pause %d)\n", pc.InDiscards, pc.InNonPauseDiscards)
	fmt.Printf("  In errors:    %d\n", pc.InErrors)
	fmt.Printf("  Out errors:   %d\n", pc.OutErrors)
	return nil
}

func (c *CLI) showCounters() error {
	var counters []southbound.PortCounters
	if err := c.get("/api/counters", &counters); err != nil {
		return err
	}

	w := newTable()
	fmt.Fprintln(w, "PORT\tIN_BYTES\tOUT_BYTES\tIN_DISC\tNON_PAUSE\tIN_ERR\tOUT_ERR")
	for _, pc := range counters {
		if !pc.Collected {
			fmt.Fprintf(w, "%s\t-\t-\t-\t-\t-\t-\n", pc.Port)
			continue
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t%d\n",
			pc.Port, pc.InBytes, pc.OutBytes, pc.InDiscards, pc.InNonPauseDiscards, pc.InErrors, pc.OutErrors)
	}
	return w.Flush()
}

func (c *CLI) showMirrors() error {
	var infos []api.MirrorInfo
	if err := c.get("/api/mirrors", &infos); err != nil {
		return err
	}

	w := newTable()
	fmt.Fprintln(w, "NAME\tDEST_PORT\tENCAP\tDEST_ID")
	for _, info := range infos {
		encap := "span"
		if t := info.Session.Tunnel; t != nil {
			if t.UDPDst != 0 {
				encap = fmt.Sprintf("udp %s->%s:%d", t.Src, t.Dst, t.UDPDst)
			} else {
				encap = fmt.Sprintf("gre %s->%s", t.Src, t.Dst)
			}
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%d\n", info.Session.Name, info.Session.DestPort, encap, info.DestID)
	}
	return w.Flush()
}

func (c *CLI) showBoot() error {
	var info struct {
		BootID   string `json:"boot_id"`
		WarmBoot bool   `json:"warm_boot"`
		Platform string `json:"platform"`
		Backend  string `json:"backend"`
	}
	if err := c.get("/api/system/boot", &info); err != nil {
		return err
	}

	fmt.Printf("Boot ID:   %s\n", info.BootID)
	fmt.Printf("Warm boot: %v\n", info.WarmBoot)
	fmt.Printf("Platform:  %s\n", info.Platform)
	fmt.Printf("Backend:   %s\n", info.Backend)
	return nil
}

func (c *CLI) showPortConfig() error {
	var req api.PortsRequest
	if err := c.get("/api/config/ports", &req); err != nil {
		return err
	}

	w := newTable()
	fmt.Fprintln(w, "ID\tNAME\tENABLED\tSPEED\tVLAN\tMTU\tMIRRORS")
	for _, p := range req.Ports {
		mirrors := "-"
		if p.IngressMirror != "" || p.EgressMirror != "" {
			mirrors = ""
			if p.IngressMirror != "" {
				mirrors += "in:" + p.IngressMirror
			}
			if p.EgressMirror != "" {
				if mirrors != "" {
					mirrors += " "
				}
				mirrors += "out:" + p.EgressMirror
			}
		}
		fmt.Fprintf(w, "%d\t%s\t%v\t%d\t%d\t%d\t%s\n",
			p.ID, p.Name, p.Enabled, p.Speed, p.IngressVlan, p.MTU, mirrors)
	}
	return w.Flush()
}
