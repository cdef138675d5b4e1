// Command source runs the windfarm source node: it generates simulated
// turbine telemetry on a fixed cadence and sends it one hop toward the
// sink, holding anything it can't currently deliver in an in-memory queue
// (spec §4.2, §5).
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
	"github.com/shurlinet/satrelay/internal/channel"
	"github.com/shurlinet/satrelay/internal/queue"
	"github.com/shurlinet/satrelay/internal/routing"
	"github.com/shurlinet/satrelay/internal/table"
	"github.com/shurlinet/satrelay/internal/telemetry"
	"github.com/shurlinet/satrelay/internal/termcolor"
	"github.com/shurlinet/satrelay/internal/watchdog"
	"github.com/shurlinet/satrelay/internal/windfarm"
)

// Set via -ldflags at build time.
var version = "dev"

func main() {
	configPath := flag.String("config", "source.yaml", "path to node configuration")
	flag.Parse()

	if args := flag.Args(); len(args) >= 2 && args[0] == "route" {
		runRoute(*configPath, args[1])
		return
	}

	rt, err := bootstrap.Load(*configPath, 0, version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "source: %v\n", err)
		os.Exit(1)
	}
	if rt.Keys.Public == nil {
		fmt.Fprintf(os.Stderr, "source: keys dir %s has no usable sink public key\n", rt.Config.KeysDir)
		os.Exit(1)
	}

	termcolor.Green("starting source node (turbine count %d)", telemetry.NumTurbines)

	weather := telemetry.NewWeatherClient()
	selfPos := rt.Oracle.Position(table.SourceID, time.Now())
	gen := telemetry.NewGenerator(weather, selfPos.Latitude, selfPos.Longitude)

	planner := routing.NewPlanner(rt.Oracle)
	q := queue.New()
	sender := windfarm.New(rt.Node, q, gen, planner, rt.Metrics, rt.Keys.Public, rt.Config.FEC.Codec, rt.Config.FEC.Compress, rt.Config.GroupID)
	rt.Node.Capabilities = sender

	if err := rt.StartServer(); err != nil {
		fmt.Fprintf(os.Stderr, "source: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sender.Run(ctx, rt.Config.SendInterval)
	go rt.Node.RunScanner(ctx)
	go rt.RunWatchdog(ctx, watchdog.HealthCheck{
		Name: "channel-codec",
		Check: func() error {
			if rt.Config.FEC.Codec != channel.CodecHamming74 && rt.Config.FEC.Codec != channel.CodecReedSolomon {
				return fmt.Errorf("unknown FEC codec %q", rt.Config.FEC.Codec)
			}
			return nil
		},
	})

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rt.Shutdown(shutdownCtx)
}

// runRoute implements the `source route <id>` diagnostic subcommand
// (spec §4.11, §6): scan once, then print the routing table and planned
// path to the given target id as JSON.
func runRoute(configPath, targetArg string) {
	target, err := strconv.Atoi(targetArg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "source: route target must be an integer peer id, got %q\n", targetArg)
		os.Exit(1)
	}
	rt, err := bootstrap.Load(configPath, 0, version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "source: %v\n", err)
		os.Exit(1)
	}
	if err := bootstrap.PrintRoute(rt, table.PeerID(target), 3*time.Second); err != nil {
		fmt.Fprintf(os.Stderr, "source: %v\n", err)
		os.Exit(1)
	}
}
