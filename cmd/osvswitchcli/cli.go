package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/veesix-networks/osvswitch/pkg/version"
)

type CLI struct {
	serverAddr string
	http       *http.Client
	rl         *readline.Instance
	running    bool
}

func NewCLI(serverAddr string) *CLI {
	return &CLI{
		serverAddr: serverAddr,
		http:       &http.Client{Timeout: 10 * time.Second},
		running:    true,
	}
}

func (c *CLI) Run() error {
	var err error
	c.rl, err = readline.NewEx(&readline.Config{
		Prompt:          "osvswitch> ",
		HistoryFile:     os.ExpandEnv("$HOME/.osvswitchcli_history"),
		AutoComplete:    completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer c.rl.Close()

	c.printBanner()

	for c.running {
		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				if len(line) == 0 {
					break
				}
				continue
			} else if err == io.EOF {
				break
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if err := c.processCommand(line); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}

	return nil
}

func (c *CLI) Stop() {
	c.running = false
}

func (c *CLI) printBanner() {
	fmt.Println("=====================================")
	fmt.Println("    osvswitch Interactive CLI")
	fmt.Println("=====================================")
	fmt.Printf("Version: %s\n", version.Full())
	fmt.Printf("Connected to: %s\n", c.serverAddr)
	fmt.Println("Type 'help' for available commands")
	fmt.Println("Type 'exit' or 'quit' to exit")
	fmt.Println()
}

func completer() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("show",
			readline.PcItem("ports"),
			readline.PcItem("port"),
			readline.PcItem("counters"),
			readline.PcItem("mirrors"),
			readline.PcItem("system",
				readline.PcItem("boot"),
			),
			readline.PcItem("config",
				readline.PcItem("ports"),
			),
		),
		readline.PcItem("help"),
		readline.PcItem("exit"),
		readline.PcItem("quit"),
	)
}

func (c *CLI) processCommand(line string) error {
	switch {
	case line == "exit" || line == "quit":
		c.running = false
		return nil
	case line == "help" || line == "?":
		printHelp()
		return nil
	}

	fields := strings.Fields(line)
	if len(fields) == 0 || fields[0] != "show" {
		return fmt.Errorf("unknown command %q, try 'help'", line)
	}

	args := fields[1:]
	switch {
	case len(args) == 1 && args[0] == "ports":
		return c.showPorts()
	case len(args) == 2 && args[0] == "port":
		return c.showPort(args[1])
	case len(args) == 1 && args[0] == "counters":
		return c.showCounters()
	case len(args) == 1 && args[0] == "mirrors":
		return c.showMirrors()
	case len(args) == 2 && args[0] == "system" && args[1] == "boot":
		return c.showBoot()
	case len(args) == 2 && args[0] == "config" && args[1] == "ports":
		return c.showPortConfig()
	}
	return fmt.Errorf("unknown show command %q, try 'help'", strings.Join(args, " "))
}

func printHelp() {
	fmt.Println("Available commands:")
	fmt.Println("  show ports           Live status of all ports")
	fmt.Println("  show port <id>       Detailed status of one port")
	fmt.Println("  show counters        Latest counter snapshots")
	fmt.Println("  show mirrors         Registered mirror sessions")
	fmt.Println("  show system boot     Boot identity and warm boot state")
	fmt.Println("  show config ports    Applied desired port table")
	fmt.Println("  exit | quit          Leave the shell")
}

func (c *CLI) get(path string, out interface{}) error {
	resp, err := c.http.Get("http://" + c.serverAddr + path)
	if err != nil {
		return fmt.Errorf("is osvswitchd running? %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("%s", apiErr.Error)
		}
		return fmt.Errorf("server returned %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
