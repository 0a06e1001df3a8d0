package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
)

var serverAddr = flag.String("server", "127.0.0.1:8480", "osvswitchd API address")

func main() {
	flag.Parse()

	cli := NewCLI(*serverAddr)

	// One-shot mode: `osvswitchcli show ports` runs the command and
	// exits instead of entering the shell.
	if args := flag.Args(); len(args) > 0 {
		if err := cli.processCommand(strings.Join(args, " ")); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nShutting down...")
		cli.Stop()
		os.Exit(0)
	}()

	if err := cli.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
