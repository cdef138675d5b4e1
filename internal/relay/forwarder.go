// Package relay implements the relay node's forward logic (spec §4.3): a
// relay never decodes the envelope, it only decides the next hop and
// moves the opaque bytes one link closer to the sink.
package relay

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shurlinet/satrelay/internal/envelope"
	"github.com/shurlinet/satrelay/internal/metrics"
	"github.com/shurlinet/satrelay/internal/peer"
	"github.com/shurlinet/satrelay/internal/routing"
	"github.com/shurlinet/satrelay/internal/table"
)

// Forwarder implements peer.Capabilities for a relay node.
type Forwarder struct {
	Node    *peer.Node
	Planner *routing.Planner
	Metrics *metrics.Metrics
}

// New builds a Forwarder bound to a peer Node.
func New(n *peer.Node, planner *routing.Planner, m *metrics.Metrics) *Forwarder {
	return &Forwarder{Node: n, Planner: planner, Metrics: m}
}

// Ingest answers POST / by spawning a detached forward and returning
// immediately with an acknowledgement (spec §4.1, §4.3).
func (f *Forwarder) Ingest(ctx context.Context, data []byte, dest envelope.Destination) peer.IngestResult {
	go f.forward(data, dest, f.Node.ID)
	return peer.IngestResult{Message: "received"}
}

// forward runs the relay's re-route-and-send logic (spec §4.3). immediateSource
// is this relay's own id, excluded from any down-gossip this forward triggers
// since the relay is the one observing the failure, not a peer reporting it.
func (f *Forwarder) forward(data []byte, dest envelope.Destination, immediateSource table.PeerID) {
	next, nextDest, ok := f.resolveNextHop(dest)
	if !ok {
		f.Node.Logger.Info("no next hop resolved, dropping message", "destination_id", int(dest.ID))
		if f.Metrics != nil {
			f.Metrics.PathNotFoundTot.Inc()
		}
		return
	}
	f.send(data, next, nextDest, immediateSource)
}

// resolveNextHop implements spec §4.3 step 1: recompute via the routing
// engine when the envelope belongs to this relay's administrative group,
// otherwise honor the destination headers verbatim.
func (f *Forwarder) resolveNextHop(dest envelope.Destination) (table.PeerID, envelope.Destination, bool) {
	if dest.GroupID == f.Node.GroupID {
		snapshot := f.Node.Table.Snapshot()
		res, ok := f.Planner.UpdateNearestSatellite(f.Node.ID, table.SinkID, snapshot, nil)
		if !ok || len(res.Path) < 2 {
			return 0, envelope.Destination{}, false
		}
		next := res.Path[1]
		ep, ok := f.Node.Table.Get(next)
		if !ok {
			return 0, envelope.Destination{}, false
		}
		return next, envelope.Destination{ID: table.SinkID, IP: ep.Host, Port: ep.Port, GroupID: dest.GroupID}, true
	}

	if dest.IP == "" || dest.Port == 0 {
		return 0, envelope.Destination{}, false
	}
	// Non-group traffic is honored verbatim; the next hop id is whatever
	// destination id the header names, since there's no table entry to
	// confirm it against.
	return dest.ID, dest, true
}

// send delivers the opaque payload one hop, simulating propagation delay
// before and after the POST, and gossiping + retrying on failure
// (spec §4.3 steps 3-4, §4.5).
func (f *Forwarder) send(data []byte, next table.PeerID, dest envelope.Destination, immediateSource table.PeerID) {
	f.Node.SleepDelay(f.Node.ID, next)
	err := f.postEnvelope(dest, data)
	f.Node.SleepDelay(f.Node.ID, next)

	if err != nil {
		f.Node.Logger.Warn("forward failed, gossiping peer down", "next_hop", int(next), "error", err)
		if f.Metrics != nil {
			f.Metrics.ForwardsTotal.WithLabelValues("error").Inc()
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		f.Node.GossipDown(ctx, next, immediateSource)
		f.Node.Table.Delete(next)

		// Recompute and retry against the now-updated table, forcing a
		// fresh route through this node's own group rather than reusing
		// the stale next hop.
		if nextNext, nextDest, ok := f.resolveNextHop(envelope.Destination{ID: dest.ID, GroupID: f.Node.GroupID}); ok {
			f.send(data, nextNext, nextDest, f.Node.ID)
			return
		}
		return
	}

	if f.Metrics != nil {
		f.Metrics.ForwardsTotal.WithLabelValues("ok").Inc()
	}
}

// postEnvelope sends the opaque envelope bytes unchanged to ep, carrying
// the destination headers (spec §4.3: "the relay never alters the
// payload").
func (f *Forwarder) postEnvelope(dest envelope.Destination, data []byte) error {
	url := fmt.Sprintf("http://%s:%d/", dest.IP, dest.Port)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	dest.SetHeaders(req.Header)
	resp, err := f.Node.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("next hop returned status %d", resp.StatusCode)
	}
	return nil
}
