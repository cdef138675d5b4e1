package peer

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/shurlinet/satrelay/internal/table"
)

// GossipDown notifies every peer in the routing table, except down itself
// and immediateSource (the peer this failure was first observed relaying
// for), that peer `down` is unreachable (spec §4.5). Gossip failures are
// logged but never fail the caller's primary send; the caller removes
// `down` from its own table regardless of gossip outcome.
func (n *Node) GossipDown(ctx context.Context, down, immediateSource table.PeerID) {
	if n.History != nil {
		n.History.RecordDown(int(down))
	}

	snapshot := n.Table.Snapshot()

	g, ctx := errgroup.WithContext(ctx)
	for id, ep := range snapshot {
		if id == down || id == immediateSource || id == n.ID {
			continue
		}
		id, ep := id, ep
		g.Go(func() error {
			if err := n.gossipLimiter.Wait(ctx); err != nil {
				return nil
			}
			n.SleepDelay(n.ID, id)
			err := n.notifyDown(ctx, ep, down)
			n.SleepDelay(n.ID, id)
			if err != nil {
				n.Logger.Warn("down-gossip failed", "peer", int(id), "down", int(down), "error", err)
				if n.Metrics != nil {
					n.Metrics.GossipDownTotal.WithLabelValues("error").Inc()
				}
				return nil
			}
			if n.Metrics != nil {
				n.Metrics.GossipDownTotal.WithLabelValues("ok").Inc()
			}
			return nil
		})
	}
	_ = g.Wait() // errors are already logged per-peer; gossip never fails the caller
}

func (n *Node) notifyDown(ctx context.Context, ep table.PeerEndpoint, down table.PeerID) error {
	url := fmt.Sprintf("http://%s:%d/down?device-id=%d", ep.Host, ep.Port, down)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := n.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}
