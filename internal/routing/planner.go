package routing

import (
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/shurlinet/satrelay/internal/position"
	"github.com/shurlinet/satrelay/internal/table"
)

// Planner computes paths to the sink against a live routing table,
// de-duplicating concurrent recomputation for the same destination when a
// burst of inbound messages all trigger update_nearest_satellite() at
// once (spec §4.2, §4.3).
type Planner struct {
	oracle *position.Oracle
	group  singleflight.Group
}

// NewPlanner builds a Planner around the shared position oracle.
func NewPlanner(oracle *position.Oracle) *Planner {
	return &Planner{oracle: oracle}
}

// UpdateNearestSatellite computes the shortest path from "from" to "to"
// against the given routing-table snapshot, excluding any peer in
// exclude. Concurrent calls sharing the same (from, to, snapshot size)
// key collapse into a single Dijkstra run.
func (p *Planner) UpdateNearestSatellite(from, to table.PeerID, snapshot map[table.PeerID]table.PeerEndpoint, exclude map[table.PeerID]bool) (Result, bool) {
	key := planKey(from, to, snapshot)
	v, _, _ := p.group.Do(key, func() (any, error) {
		g := NewGraph(snapshot, p.oracle, time.Now())
		res, ok := ShortestPath(g, from, to, exclude)
		return planOutcome{res: res, ok: ok}, nil
	})
	out := v.(planOutcome)
	return out.res, out.ok
}

type planOutcome struct {
	res Result
	ok  bool
}

// planKey is a cheap de-duplication key: concurrent recomputes for the
// same hop pair against a table of the same size are almost always
// identical work, since the table only changes between scan/gossip
// ticks, not within one send cycle.
func planKey(from, to table.PeerID, snapshot map[table.PeerID]table.PeerEndpoint) string {
	return strconv.Itoa(int(from)) + ":" + strconv.Itoa(int(to)) + ":" + strconv.Itoa(len(snapshot))
}
