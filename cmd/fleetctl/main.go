package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/fleetview/internal/fleetctl"
)

func main() {
	if len(os.Args) < 2 || os.Args[1] == "help" || os.Args[1] == "--help" || os.Args[1] == "-h" {
		fleetctl.ShowHelp(os.Stdout)
		return
	}

	cfg, err := fleetctl.ParseArgs(os.Args[1:], os.Stdout)
	if err != nil {
		os.Stderr.WriteString("invalid arguments: " + err.Error() + "\n")
		fleetctl.ShowHelp(os.Stderr)
		os.Exit(2)
	}

	if err := fleetctl.SetupLogging(cfg.Verbose); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := fleetctl.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("fleetctl " + cfg.Command + ": " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}
}
