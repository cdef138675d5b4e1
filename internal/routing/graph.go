// Package routing implements the orbital-position-weighted path planner
// (spec §4.4): a graph built from a routing-table snapshot and the
// position oracle, with Dijkstra's algorithm finding the lowest-weight
// path from a node to the sink.
package routing

import (
	"time"

	"github.com/shurlinet/satrelay/internal/channel"
	"github.com/shurlinet/satrelay/internal/position"
	"github.com/shurlinet/satrelay/internal/table"
)

// Graph is a snapshot of the known peers at an instant, ready for path
// computation. It never mutates once built, so callers may run Dijkstra
// against it without holding any table lock.
type Graph struct {
	ids []table.PeerID
	pos map[table.PeerID]position.Position
	at  time.Time
}

// NewGraph builds a Graph from a routing-table snapshot: every known peer
// id gets a position from the oracle at instant at.
func NewGraph(snapshot map[table.PeerID]table.PeerEndpoint, oracle *position.Oracle, at time.Time) *Graph {
	g := &Graph{
		ids: make([]table.PeerID, 0, len(snapshot)),
		pos: make(map[table.PeerID]position.Position, len(snapshot)),
		at:  at,
	}
	for id := range snapshot {
		g.ids = append(g.ids, id)
		g.pos[id] = oracle.Position(id, at)
	}
	return g
}

// directSourceSink reports whether (a, b) is the forbidden direct
// source-sink pair (spec §4.4: "distance between -1 and 0 directly is
// forbidden").
func directSourceSink(a, b table.PeerID) bool {
	return (a == table.SourceID && b == table.SinkID) || (a == table.SinkID && b == table.SourceID)
}

// edge returns the (weight, distance) of the edge between a and b, and
// whether that edge exists in this graph at all.
func (g *Graph) edge(a, b table.PeerID) (weight, distance float64, ok bool) {
	if a == b || directSourceSink(a, b) {
		return 0, 0, false
	}
	pa, aok := g.pos[a]
	pb, bok := g.pos[b]
	if !aok || !bok {
		return 0, 0, false
	}
	distance = position.Distance(pa, pb)
	quality := channel.LinkQuality(distance)
	weight = distance / quality
	return weight, distance, true
}

// Neighbors returns every peer id this graph knows about other than id
// itself, excluding the forbidden direct source-sink pair.
func (g *Graph) Neighbors(id table.PeerID) []table.PeerID {
	out := make([]table.PeerID, 0, len(g.ids))
	for _, other := range g.ids {
		if _, _, ok := g.edge(id, other); ok {
			out = append(out, other)
		}
	}
	return out
}
