// Package table holds the dynamic routing table every peer node keeps: a
// mutex-guarded map from PeerID to PeerEndpoint, mutated by the discovery
// scanner, by peer-down gossip, and by send-failure (spec §3, §5).
package table

import (
	"sync"
)

// PeerID identifies a node. -1 is the sink, 0 is the source, positive
// values are relays.
type PeerID int

const (
	SinkID   PeerID = -1
	SourceID PeerID = 0
)

// PeerEndpoint is where a peer can be reached over HTTP.
type PeerEndpoint struct {
	Host string
	Port int
}

// Table is the shared mutable routing state inside a node. Reads come from
// HTTP handlers, forwarders, and the scanner; writes come from the scanner
// (insert), gossip-down (delete), and send-failure (delete). All access is
// serialized by mu; path computation takes a Snapshot so Dijkstra never
// runs while holding the lock.
type Table struct {
	mu      sync.RWMutex
	entries map[PeerID]PeerEndpoint
}

// New creates a routing table seeded with the node's own id and endpoint,
// preserving the invariant that a node's own id always maps to its own
// endpoint.
func New(self PeerID, endpoint PeerEndpoint) *Table {
	return &Table{
		entries: map[PeerID]PeerEndpoint{self: endpoint},
	}
}

// Set inserts or updates a peer's endpoint.
func (t *Table) Set(id PeerID, ep PeerEndpoint) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[id] = ep
}

// Delete removes a peer, used by gossip-down and send-failure.
func (t *Table) Delete(id PeerID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, id)
}

// Get returns a peer's endpoint and whether it is known.
func (t *Table) Get(id PeerID) (PeerEndpoint, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ep, ok := t.entries[id]
	return ep, ok
}

// Len returns the number of known peers, including self.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Snapshot returns a copy of the table's contents, safe to read without
// holding the lock — used before a Dijkstra run so path computation never
// blocks readers or writers.
func (t *Table) Snapshot() map[PeerID]PeerEndpoint {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[PeerID]PeerEndpoint, len(t.entries))
	for id, ep := range t.entries {
		out[id] = ep
	}
	return out
}

// IDs returns every known peer id, including self.
func (t *Table) IDs() []PeerID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]PeerID, 0, len(t.entries))
	for id := range t.entries {
		ids = append(ids, id)
	}
	return ids
}
