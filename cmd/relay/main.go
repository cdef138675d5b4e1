// Command relay runs a satellite relay node: it forwards opaque envelope
// bytes one hop closer to the sink without ever decoding them, recomputing
// the next hop through its own routing table when the envelope belongs to
// its administrative group (spec §4.3).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/shurlinet/satrelay/internal/bootstrap"
	"github.com/shurlinet/satrelay/internal/relay"
	"github.com/shurlinet/satrelay/internal/routing"
	"github.com/shurlinet/satrelay/internal/table"
	"github.com/shurlinet/satrelay/internal/termcolor"
)

// Set via -ldflags at build time.
var version = "dev"

func main() {
	configPath := flag.String("config", "relay.yaml", "path to node configuration")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "relay: usage: relay [--config path] <satellite-id> [route <target-id>]")
		os.Exit(1)
	}
	overrideID, err := strconv.Atoi(args[0])
	if err != nil || overrideID < 1 || overrideID > 10 {
		fmt.Fprintf(os.Stderr, "relay: satellite id must be an integer 1..10, got %q\n", args[0])
		os.Exit(1)
	}

	if len(args) >= 3 && args[1] == "route" {
		runRoute(*configPath, overrideID, args[2])
		return
	}

	rt, err := bootstrap.Load(*configPath, overrideID, version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "relay: %v\n", err)
		os.Exit(1)
	}

	termcolor.Green("starting relay satellite %d", rt.Config.ID)

	planner := routing.NewPlanner(rt.Oracle)
	forwarder := relay.New(rt.Node, planner, rt.Metrics)
	rt.Node.Capabilities = forwarder

	if err := rt.StartServer(); err != nil {
		fmt.Fprintf(os.Stderr, "relay: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go rt.Node.RunScanner(ctx)
	go rt.RunWatchdog(ctx)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rt.Shutdown(shutdownCtx)
}

// runRoute implements the `relay <id> route <target-id>` diagnostic
// subcommand (spec §4.11, §6).
func runRoute(configPath string, ownID int, targetArg string) {
	target, err := strconv.Atoi(targetArg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "relay: route target must be an integer peer id, got %q\n", targetArg)
		os.Exit(1)
	}
	rt, err := bootstrap.Load(configPath, ownID, version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "relay: %v\n", err)
		os.Exit(1)
	}
	if err := bootstrap.PrintRoute(rt, table.PeerID(target), 3*time.Second); err != nil {
		fmt.Fprintf(os.Stderr, "relay: %v\n", err)
		os.Exit(1)
	}
}
