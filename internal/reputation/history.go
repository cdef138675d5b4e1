// Package reputation keeps a node's local, best-effort history of its peers:
// when each was first/last seen reachable, how often it has been gossiped
// down, and a running average of observed hop latency. It backs operator
// diagnostics (the route subcommand) and is never consulted by the routing
// or gossip logic itself — the routing table is the sole source of truth
// for what is currently reachable (spec §5 Shared-resource policy).
package reputation

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// PeerRecord holds interaction history for a single peer.
type PeerRecord struct {
	PeerID          int       `json:"peer_id"`
	FirstSeen       time.Time `json:"first_seen"`
	LastSeen        time.Time `json:"last_seen"`
	ConnectionCount int       `json:"connection_count"`
	AvgLatencyMs    float64   `json:"avg_latency_ms"`
	DownCount       int       `json:"down_count"`
	LastDownAt      time.Time `json:"last_down_at,omitempty"`
}

// PeerHistory manages the local interaction history file.
type PeerHistory struct {
	mu      sync.RWMutex
	path    string
	records map[int]*PeerRecord
}

// NewPeerHistory creates or loads a peer history from the given file path.
func NewPeerHistory(path string) *PeerHistory {
	h := &PeerHistory{
		path:    path,
		records: make(map[int]*PeerRecord),
	}
	_ = h.Load() // best-effort load
	return h
}

// RecordSeen updates connection count, last_seen, and running average
// latency for a peer observed reachable (announce response or successful
// forward).
func (h *PeerHistory) RecordSeen(peerID int, latencyMs float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r := h.recordLocked(peerID)
	r.LastSeen = time.Now()
	r.ConnectionCount++

	if latencyMs > 0 {
		r.AvgLatencyMs += (latencyMs - r.AvgLatencyMs) / float64(r.ConnectionCount)
	}
}

// RecordDown records that peerID was gossiped down.
func (h *PeerHistory) RecordDown(peerID int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r := h.recordLocked(peerID)
	r.DownCount++
	r.LastDownAt = time.Now()
}

func (h *PeerHistory) recordLocked(peerID int) *PeerRecord {
	r, ok := h.records[peerID]
	if !ok {
		r = &PeerRecord{PeerID: peerID, FirstSeen: time.Now()}
		h.records[peerID] = r
	}
	return r
}

// Get returns a copy of the record for the given peer, or nil if not found.
func (h *PeerHistory) Get(peerID int) *PeerRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()

	r, ok := h.records[peerID]
	if !ok {
		return nil
	}
	copy := *r
	return &copy
}

// Count returns the number of peers tracked.
func (h *PeerHistory) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.records)
}

// Load reads the history file from disk.
func (h *PeerHistory) Load() error {
	data, err := os.ReadFile(h.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read history: %w", err)
	}

	var records map[int]*PeerRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("failed to parse history: %w", err)
	}

	h.mu.Lock()
	h.records = records
	h.mu.Unlock()
	return nil
}

// Save writes the history file to disk atomically.
func (h *PeerHistory) Save() error {
	h.mu.RLock()
	data, err := json.MarshalIndent(h.records, "", "  ")
	h.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	tmpPath := h.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, h.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
