// Package bootstrap holds the startup/shutdown sequence shared by the
// three cmd/ entrypoints (source, relay, sink): load config, identity
// keys, and static positions, build the peer runtime, and wire the
// optional metrics listener and watchdog loop. Role-specific capability
// construction stays in each cmd/ main.go; this package only builds what
// every role needs identically.
package bootstrap

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shurlinet/satrelay/internal/config"
	"github.com/shurlinet/satrelay/internal/identity"
	"github.com/shurlinet/satrelay/internal/metrics"
	"github.com/shurlinet/satrelay/internal/peer"
	"github.com/shurlinet/satrelay/internal/position"
	"github.com/shurlinet/satrelay/internal/reputation"
	"github.com/shurlinet/satrelay/internal/routing"
	"github.com/shurlinet/satrelay/internal/table"
	"github.com/shurlinet/satrelay/internal/termcolor"
	"github.com/shurlinet/satrelay/internal/watchdog"
)

// Runtime bundles everything a cmd/ entrypoint needs after startup and
// before it wires its role-specific peer.Capabilities.
type Runtime struct {
	Config  *config.Config
	Logger  *slog.Logger
	Keys    *identity.KeyPair
	Oracle  *position.Oracle
	Node    *peer.Node
	Metrics *metrics.Metrics
	History *reputation.PeerHistory

	server        *peer.Server
	metricsServer *http.Server
}

// Load reads configuration, identity keys, and static positions, and
// builds the Node (with no Capabilities assigned yet — the caller wires
// that in before calling StartServer). overrideID is applied when
// positive, letting a relay's CLI argument take precedence over the
// config file's id field (spec §6) — the config file must still carry
// some nonzero placeholder id, since config.Load itself requires one for
// relays before this override ever runs.
func Load(configPath string, overrideID int, version string) (*Runtime, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if overrideID > 0 {
		cfg.ID = overrideID
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// A relay forwards ciphertext without ever decoding it and needs no
	// key at all, so a missing/unusable keys directory is only a warning
	// here; source (needs the sink's public key) and sink (needs its own
	// private key) each check for the half they require and fail loudly
	// if it's absent.
	keys, err := identity.Load(cfg.KeysDir)
	if err != nil {
		logger.Warn("no usable identity keys loaded", "dir", cfg.KeysDir, "error", err)
		keys = &identity.KeyPair{}
	} else if keys.Public != nil {
		logger.Info("loaded identity keypair", "fingerprint", identity.Fingerprint(keys.Public))
	}

	statics, err := position.LoadStatics(filepath.Join(cfg.AssetsDir, "device_positions.csv"))
	if err != nil {
		return nil, fmt.Errorf("load device positions: %w", err)
	}
	oracle := position.NewOracle(statics)

	host, portStr, err := net.SplitHostPort(cfg.Listen)
	if err != nil {
		return nil, fmt.Errorf("parse listen address %q: %w", cfg.Listen, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("parse listen port %q: %w", portStr, err)
	}
	self := table.PeerEndpoint{Host: host, Port: port}
	tb := table.New(table.PeerID(cfg.ID), self)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(string(cfg.Role), cfg.ID, version)
	}

	node := peer.NewNode(cfg, table.PeerID(cfg.ID), tb, oracle, nil, m, logger)

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	history := reputation.NewPeerHistory(filepath.Join(cfg.DataDir, "peer_history.json"))
	node.History = history

	return &Runtime{
		Config:  cfg,
		Logger:  logger,
		Keys:    keys,
		Oracle:  oracle,
		Node:    node,
		Metrics: m,
		History: history,
	}, nil
}

// StartServer binds and serves the peer HTTP endpoints, and, if metrics
// are enabled, the Prometheus exposition endpoint. Call after the
// caller's Capabilities implementation has been assigned to rt.Node.
func (rt *Runtime) StartServer() error {
	srv, err := peer.NewServer(rt.Node, rt.Config.Listen)
	if err != nil {
		return err
	}
	rt.server = srv
	go func() {
		if err := srv.Serve(); err != nil && err != http.ErrServerClosed {
			rt.Logger.Error("peer server exited", "error", err)
		}
	}()
	termcolor.Green("%s node %d listening on %s", rt.Config.Role, rt.Config.ID, srv.Addr())

	if rt.Metrics != nil && rt.Config.Metrics.Listen != "" {
		rt.metricsServer = &http.Server{Addr: rt.Config.Metrics.Listen, Handler: rt.Metrics.Handler()}
		go func() {
			if err := rt.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				rt.Logger.Error("metrics server exited", "error", err)
			}
		}()
		termcolor.Faint("metrics exposed on %s/metrics\n", rt.Config.Metrics.Listen)
	}
	return nil
}

// RunWatchdog starts the systemd watchdog heartbeat loop (spec §4.9
// ambient stack) until ctx is canceled. checks are in addition to the
// always-present routing-table liveness check.
func (rt *Runtime) RunWatchdog(ctx context.Context, checks ...watchdog.HealthCheck) {
	all := append([]watchdog.HealthCheck{{
		Name: "routing-table",
		Check: func() error {
			if _, ok := rt.Node.Table.Get(rt.Node.ID); !ok {
				return fmt.Errorf("node missing its own routing table entry")
			}
			return nil
		},
	}}, checks...)

	if err := watchdog.Ready(); err != nil {
		rt.Logger.Warn("sd_notify READY failed", "error", err)
	}
	watchdog.Run(ctx, watchdog.Config{Interval: 30 * time.Second}, all)
}

// routeReport is the JSON shape printed by the `route` subcommand
// (spec §4.11, §6).
type routeReport struct {
	From             int                            `json:"from"`
	To               int                            `json:"to"`
	Path             []int                          `json:"path"`
	FirstHopDistance float64                        `json:"first_hop_distance_km"`
	Table            map[int]string                 `json:"routing_table"`
	History          map[int]*reputation.PeerRecord `json:"peer_history,omitempty"`
}

// PrintRoute runs one discovery scan pass (up to scanWait), then prints the
// resulting routing table and the Dijkstra path from this node to target
// as JSON (spec §4.11 "satnode route <id>"). It does not start the peer
// HTTP server.
func PrintRoute(rt *Runtime, target table.PeerID, scanWait time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), scanWait)
	defer cancel()
	rt.Node.RunScanner(ctx)

	snapshot := rt.Node.Table.Snapshot()
	planner := routing.NewPlanner(rt.Oracle)
	res, ok := planner.UpdateNearestSatellite(rt.Node.ID, target, snapshot, nil)

	report := routeReport{
		From:  int(rt.Node.ID),
		To:    int(target),
		Table: make(map[int]string, len(snapshot)),
	}
	for id, ep := range snapshot {
		report.Table[int(id)] = fmt.Sprintf("%s:%d", ep.Host, ep.Port)
	}
	if rt.Node.History != nil {
		report.History = make(map[int]*reputation.PeerRecord, len(snapshot))
		for id := range snapshot {
			if rec := rt.Node.History.Get(int(id)); rec != nil {
				report.History[int(id)] = rec
			}
		}
	}
	if ok {
		report.FirstHopDistance = res.FirstHopDistance
		for _, id := range res.Path {
			report.Path = append(report.Path, int(id))
		}
	}

	if rt.History != nil {
		if err := rt.History.Save(); err != nil {
			rt.Logger.Warn("peer history save", "error", err)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// Shutdown stops the peer and metrics servers, giving in-flight requests
// up to the given context's deadline to finish.
func (rt *Runtime) Shutdown(ctx context.Context) {
	_ = watchdog.Stopping()
	if rt.History != nil {
		if err := rt.History.Save(); err != nil {
			rt.Logger.Warn("peer history save", "error", err)
		}
	}
	if rt.server != nil {
		if err := rt.server.Shutdown(ctx); err != nil {
			rt.Logger.Warn("peer server shutdown", "error", err)
		}
	}
	if rt.metricsServer != nil {
		if err := rt.metricsServer.Shutdown(ctx); err != nil {
			rt.Logger.Warn("metrics server shutdown", "error", err)
		}
	}
	termcolor.Yellow("%s node %d shut down", rt.Config.Role, rt.Config.ID)
}
