// Package peer implements the common peer runtime every node — source,
// relay, and sink — shares (spec §4.1, §9 "Dynamic dispatch across
// roles"): the HTTP server exposing GET /, GET /down, POST /, the
// background discovery scanner, and peer-down gossip. Role-specific
// behavior plugs in through the Capabilities interface.
package peer

import (
	"context"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/shurlinet/satrelay/internal/config"
	"github.com/shurlinet/satrelay/internal/envelope"
	"github.com/shurlinet/satrelay/internal/metrics"
	"github.com/shurlinet/satrelay/internal/position"
	"github.com/shurlinet/satrelay/internal/reputation"
	"github.com/shurlinet/satrelay/internal/table"
)

// speedOfLightKmPerMs is carried over from the original simulator's timing
// model verbatim: the unit label says km/ms but the value is the raw speed
// of light in m/s, an artifact of a unit conversion that cancels itself
// out in the source. Preserving it keeps the simulated hop delay in the
// same (small) range the original produced.
const speedOfLightKmPerMs = 299_792_458.0

// IngestResult is the outcome of handling one POST / envelope, echoed back
// to the caller as the HTTP response body (spec §4.1, §4.8, §7.2).
type IngestResult struct {
	Message string
}

// Capabilities is the role-specific behavior a Node plugs in: relays
// re-forward, the source produces records, the sink consumes and
// persists them (spec §9 "Dynamic dispatch across roles"). A relay
// dispatches its forwarding work to a detached goroutine internally and
// returns immediately with an acknowledgement; the sink decodes and
// validates synchronously and returns the real outcome (spec §4.1).
type Capabilities interface {
	Ingest(ctx context.Context, data []byte, dest envelope.Destination) IngestResult
}

// Node is the shared peer runtime. One Node per process.
type Node struct {
	ID      table.PeerID
	Role    config.Role
	GroupID string

	Table  *table.Table
	Oracle *position.Oracle

	Client  *http.Client
	Metrics *metrics.Metrics
	Logger  *slog.Logger

	Capabilities Capabilities

	// History is the node's best-effort peer interaction log (spec §5
	// Shared-resource policy): set by the caller after NewNode, never
	// consulted by routing or gossip decisions, only recorded into and
	// read back by the `route` diagnostic subcommand.
	History *reputation.PeerHistory

	AssetsDir    string
	ScanInterval time.Duration
	HTTPTimeout  time.Duration

	gossipLimiter *rate.Limiter
	rng           *rand.Rand
}

// NewNode builds a Node around an already-seeded routing table.
func NewNode(cfg *config.Config, id table.PeerID, tb *table.Table, oracle *position.Oracle, caps Capabilities, m *metrics.Metrics, logger *slog.Logger) *Node {
	if logger == nil {
		logger = slog.Default()
	}
	return &Node{
		ID:      id,
		Role:    cfg.Role,
		GroupID: cfg.GroupID,

		Table:  tb,
		Oracle: oracle,

		Client:  &http.Client{Timeout: cfg.HTTPTimeout},
		Metrics: m,
		Logger:  logger.With("role", string(cfg.Role), "id", int(id)),

		Capabilities: caps,

		AssetsDir:    cfg.AssetsDir,
		ScanInterval: cfg.ScanInterval,
		HTTPTimeout:  cfg.HTTPTimeout,

		// One down-gossip burst per message is normal; cap sustained
		// storms at 5/s with a small burst allowance.
		gossipLimiter: rate.NewLimiter(rate.Limit(5), 10),
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// LeoDelay simulates one hop's LEO propagation delay between a and b at
// the current instant, with jitter (spec §4.6/§4.5, grounded on the
// original's simulate_leo_delay).
func (n *Node) LeoDelay(a, b table.PeerID) time.Duration {
	now := time.Now()
	pa := n.Oracle.Position(a, now)
	pb := n.Oracle.Position(b, now)
	distanceKm := position.Haversine(pa, pb)

	baseMs := distanceKm / speedOfLightKmPerMs
	jitterMs := 2 + n.rng.Float64()*6 // uniform(2, 8)
	return time.Duration((baseMs + jitterMs) * float64(time.Millisecond))
}

// SleepDelay blocks for the simulated LEO delay between a and b.
func (n *Node) SleepDelay(a, b table.PeerID) {
	time.Sleep(n.LeoDelay(a, b))
}
