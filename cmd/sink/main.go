// Command sink runs the ground station: it decodes, decrypts, validates,
// and persists inbound turbine telemetry, raising a threshold alert when
// reported power diverges too far from the modeled estimate (spec §4.8).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/shurlinet/satrelay/internal/bootstrap"
	"github.com/shurlinet/satrelay/internal/groundstation"
	"github.com/shurlinet/satrelay/internal/table"
	"github.com/shurlinet/satrelay/internal/termcolor"
)

// Set via -ldflags at build time.
var version = "dev"

func main() {
	configPath := flag.String("config", "sink.yaml", "path to node configuration")
	flag.Parse()

	if args := flag.Args(); len(args) >= 2 && args[0] == "route" {
		runRoute(*configPath, args[1])
		return
	}

	rt, err := bootstrap.Load(*configPath, 0, version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sink: %v\n", err)
		os.Exit(1)
	}
	if rt.Keys.Private == nil {
		fmt.Fprintf(os.Stderr, "sink: keys dir %s has no usable private key\n", rt.Config.KeysDir)
		os.Exit(1)
	}

	csvPath := filepath.Join(rt.Config.DataDir, "turbine_data.csv")
	csvLog, err := groundstation.NewCSVLog(csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sink: %v\n", err)
		os.Exit(1)
	}

	termcolor.Green("starting ground station, logging to %s", csvPath)

	receiver := groundstation.New(rt.Node, rt.Keys.Private, csvLog, rt.Metrics, rt.Config.FEC.Codec, rt.Config.FEC.Compress)
	rt.Node.Capabilities = receiver

	if err := rt.StartServer(); err != nil {
		fmt.Fprintf(os.Stderr, "sink: %v\n", err)
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

	if err := csvLog.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "sink: close csv log: %v\n", err)
	}
}

// runRoute implements the `sink route <id>` diagnostic subcommand
// (spec §4.11, §6).
func runRoute(configPath, targetArg string) {
	target, err := strconv.Atoi(targetArg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sink: route target must be an integer peer id, got %q\n", targetArg)
		os.Exit(1)
	}
	rt, err := bootstrap.Load(configPath, 0, version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sink: %v\n", err)
		os.Exit(1)
	}
	if err := bootstrap.PrintRoute(rt, table.PeerID(target), 3*time.Second); err != nil {
		fmt.Fprintf(os.Stderr, "sink: %v\n", err)
		os.Exit(1)
	}
}
