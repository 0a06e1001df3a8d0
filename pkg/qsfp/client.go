package qsfp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/jpillora/backoff"

	"github.com/veesix-networks/osvswitch/pkg/logger"
	"github.com/veesix-networks/osvswitch/pkg/ports"
)

const defaultSocket = "/run/qsfpd/qsfpd.sock"

// Client queries the transceiver daemon over its unix socket. The
// daemon restarts independently of the agent, so transient connection
// failures are retried with backoff within the caller's deadline.
type Client struct {
	http    *http.Client
	socket  string
	retries int
	logger  *slog.Logger
}

// NewClient returns a client for the daemon socket. An empty socket
// path selects the default location.
func NewClient(socket string) *Client {
	if socket == "" {
		socket = defaultSocket
	}
	c := &Client{
		socket:  socket,
		retries: 4,
		logger:  logger.Component(logger.QSFP),
	}
	c.http = &http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", c.socket)
			},
		},
		Timeout: 5 * time.Second,
	}
	return c
}

// transceiverState is the daemon's per-port answer.
type transceiverState struct {
	Port            string `json:"port"`
	Present         bool   `json:"present"`
	TransmitterTech string `json:"transmitter_tech"`
}

func (c *Client) TransmitterTech(ctx context.Context, portName string) (ports.TransmitterTech, error) {
	b := &backoff.Backoff{
		Min:    100 * time.Millisecond,
		Max:    2 * time.Second,
		Factor: 2,
		Jitter: true,
	}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ports.TransmitterUnknown, ctx.Err()
			case <-time.After(b.Duration()):
			}
		}
		state, err := c.fetch(ctx, portName)
		if err != nil {
			lastErr = err
			c.logger.Debug("transceiver query failed", "port", portName, "attempt", attempt, "error", err)
			continue
		}
		if !state.Present {
			return ports.TransmitterUnknown, nil
		}
		return parseTech(state.TransmitterTech), nil
	}
	return ports.TransmitterUnknown, fmt.Errorf("querying transceiver for %s: %w", portName, lastErr)
}

func (c *Client) fetch(ctx context.Context, portName string) (*transceiverState, error) {
	u := "http://qsfpd/api/v1/transceivers/" + url.PathEscape(portName)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("qsfpd returned %s", resp.Status)
	}
	var state transceiverState
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return nil, fmt.Errorf("decoding transceiver state: %w", err)
	}
	return &state, nil
}

func parseTech(s string) ports.TransmitterTech {
	switch s {
	case "copper":
		return ports.TransmitterCopper
	case "optical":
		return ports.TransmitterOptical
	}
	return ports.TransmitterUnknown
}
