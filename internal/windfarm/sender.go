// Package windfarm implements the source node's generate-and-send loop
// (spec §4.2): produce a telemetry record (or dequeue one held back from a
// prior failure), encrypt/encode/noise-inject it, and send it one hop
// toward the sink, retrying around failed peers and holding undeliverable
// records in the queue until a path exists again.
package windfarm

import (
	"bytes"
	"context"
	"crypto/rsa"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/shurlinet/satrelay/internal/channel"
	"github.com/shurlinet/satrelay/internal/envelope"
	"github.com/shurlinet/satrelay/internal/metrics"
	"github.com/shurlinet/satrelay/internal/peer"
	"github.com/shurlinet/satrelay/internal/queue"
	"github.com/shurlinet/satrelay/internal/routing"
	"github.com/shurlinet/satrelay/internal/table"
	"github.com/shurlinet/satrelay/internal/telemetry"
)

// Sender implements peer.Capabilities for the source node and drives its
// background send loop.
type Sender struct {
	Node      *peer.Node
	Queue     *queue.Queue
	Generator *telemetry.Generator
	Planner   *routing.Planner
	Metrics   *metrics.Metrics
	SinkKey   *rsa.PublicKey
	Codec     string
	Compress  bool
	GroupID   string

	rng *rand.Rand
}

// New builds a Sender. codec selects the channel-layer FEC scheme
// (channel.CodecHamming74 or channel.CodecReedSolomon); compress enables
// zstd-compressing the record before encryption (spec §4.10).
func New(n *peer.Node, q *queue.Queue, gen *telemetry.Generator, planner *routing.Planner, m *metrics.Metrics, sinkKey *rsa.PublicKey, codec string, compress bool, groupID string) *Sender {
	return &Sender{
		Node:      n,
		Queue:     q,
		Generator: gen,
		Planner:   planner,
		Metrics:   m,
		SinkKey:   sinkKey,
		Codec:     codec,
		Compress:  compress,
		GroupID:   groupID,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Ingest satisfies peer.Capabilities. The source is not expected to
// receive data envelopes — every send it issues is addressed toward the
// sink — so an inbound POST / is logged and acknowledged, never acted on.
func (s *Sender) Ingest(ctx context.Context, data []byte, dest envelope.Destination) peer.IngestResult {
	s.Node.Logger.Warn("source received unexpected data envelope", "bytes", len(data))
	return peer.IngestResult{Message: "received"}
}

// Run drives the send loop at the given cadence until ctx is canceled
// (spec §4.2, §5: "a send-loop task that generates and sends at a
// 5-second cadence").
func (s *Sender) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SendStatusUpdate(ctx, true)
		}
	}
}

// SendStatusUpdate implements spec §4.2's send_status_update: generate a
// fresh record (or dequeue the oldest held-back one), attempt delivery,
// and on success drain whatever else the queue is holding.
func (s *Sender) SendStatusUpdate(ctx context.Context, generate bool) {
	if generate {
		rec := s.Generator.Generate(ctx)
		if s.trySend(ctx, rec) {
			s.drainQueue(ctx)
		} else {
			s.Queue.Enqueue(rec)
			s.recordQueueDepth()
		}
		return
	}
	s.drainQueue(ctx)
}

// drainQueue attempts to deliver every queued record in enqueue order,
// stopping at (and preserving) the first one that still can't be sent
// (spec §8 "Queue drain").
func (s *Sender) drainQueue(ctx context.Context) {
	s.Queue.Drain(func(rec telemetry.Record) bool {
		ok := s.trySend(ctx, rec)
		s.recordQueueDepth()
		return ok
	})
}

// trySend resolves a path to the sink and, if one exists, sends rec one
// hop. It returns false (record should be queued) when no path is
// currently available or the send failed, having already run the
// gossip-down-and-remove machinery for the latter case.
func (s *Sender) trySend(ctx context.Context, rec telemetry.Record) bool {
	snapshot := s.Node.Table.Snapshot()
	res, ok := s.Planner.UpdateNearestSatellite(table.SourceID, table.SinkID, snapshot, nil)
	if !ok || len(res.Path) < 2 {
		if s.Metrics != nil {
			s.Metrics.PathNotFoundTot.Inc()
		}
		return false
	}

	next := res.Path[1]
	ep, ok := s.Node.Table.Get(next)
	if !ok {
		return false
	}

	body, err := s.encodeRecord(rec, res.FirstHopDistance)
	if err != nil {
		s.Node.Logger.Error("failed to encode record, dropping", "error", err)
		return true // not retriable; don't requeue a record we can never encode
	}

	dest := envelope.Destination{ID: table.SinkID, IP: ep.Host, Port: ep.Port, GroupID: s.GroupID}

	s.Node.SleepDelay(table.SourceID, next)
	err = s.post(ctx, ep, body, dest)
	s.Node.SleepDelay(table.SourceID, next)

	if err != nil {
		s.Node.Logger.Warn("send failed, gossiping peer down", "next_hop", int(next), "error", err)
		if s.Metrics != nil {
			s.Metrics.SendsTotal.WithLabelValues("error").Inc()
		}
		gctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.Node.GossipDown(gctx, next, table.SourceID)
		s.Node.Table.Delete(next)
		return false
	}

	if s.Metrics != nil {
		s.Metrics.SendsTotal.WithLabelValues("ok").Inc()
	}
	return true
}

// encodeRecord builds the wire envelope: JSON, RSA-encrypt, FEC-encode,
// then noise-inject over the simulated first-hop distance (spec §3, §4.7).
func (s *Sender) encodeRecord(rec telemetry.Record, firstHopDistanceKm float64) ([]byte, error) {
	plaintext, err := rec.Marshal()
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	if s.Compress {
		plaintext = channel.Compress(plaintext)
	}

	cipher, err := envelope.Encrypt(s.SinkKey, plaintext)
	if err != nil {
		return nil, fmt.Errorf("encrypt record: %w", err)
	}

	var encoded []byte
	switch s.Codec {
	case channel.CodecReedSolomon:
		encoded, err = channel.EncodeReedSolomon(cipher)
		if err != nil {
			return nil, fmt.Errorf("reed-solomon encode: %w", err)
		}
	default:
		encoded = channel.EncodeHamming74(cipher)
	}

	return channel.Inject(encoded, firstHopDistanceKm, s.rng), nil
}

// post delivers the envelope bytes to the chosen next hop.
func (s *Sender) post(ctx context.Context, ep table.PeerEndpoint, body []byte, dest envelope.Destination) error {
	url := fmt.Sprintf("http://%s:%d/", ep.Host, ep.Port)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	dest.SetHeaders(req.Header)
	resp, err := s.Node.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("next hop returned status %d", resp.StatusCode)
	}
	return nil
}

func (s *Sender) recordQueueDepth() {
	if s.Metrics == nil {
		return
	}
	s.Metrics.QueueDepth.Set(float64(s.Queue.Len()))
}
