package peer

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/shurlinet/satrelay/internal/envelope"
	"github.com/shurlinet/satrelay/internal/table"
)

// identifyResponse is the body returned from GET / (spec §4.1, §6).
type identifyResponse struct {
	DeviceType string `json:"device-type"`
	DeviceID   int    `json:"device-id"`
	GroupID    string `json:"group-id"`
}

// messageResponse is the generic {"message": "..."} body on POST / and
// transport-level failures.
type messageResponse struct {
	Message string `json:"message"`
}

// Mux builds the three peer HTTP endpoints (spec §4.1).
func (n *Node) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", n.handleIdentify)
	mux.HandleFunc("GET /down", n.handleDown)
	mux.HandleFunc("POST /", n.handleIngest)
	return mux
}

// handleIdentify answers GET /?device-id=X&device-port=Y: it registers
// the caller in the routing table (keyed by its announced id, at its
// observed source IP and announced port) and identifies this node.
func (n *Node) handleIdentify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if idStr := q.Get("device-id"); idStr != "" {
		if id, err := strconv.Atoi(idStr); err == nil {
			if port, err := strconv.Atoi(q.Get("device-port")); err == nil {
				host := remoteHost(r)
				if host != "" && table.PeerID(id) != n.ID {
					n.Table.Set(table.PeerID(id), table.PeerEndpoint{Host: host, Port: port})
				}
			}
		}
	}

	n.recordTableSize()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(identifyResponse{
		DeviceType: string(n.Role),
		DeviceID:   int(n.ID),
		GroupID:    n.GroupID,
	})
}

// handleDown answers GET /down?device-id=X: gossip that peer X is
// unreachable, so this node removes it from its own routing table
// (spec §4.5).
func (n *Node) handleDown(w http.ResponseWriter, r *http.Request) {
	idStr := r.URL.Query().Get("device-id")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, "invalid device-id", http.StatusBadRequest)
		return
	}
	n.Table.Delete(table.PeerID(id))
	n.recordTableSize()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(messageResponse{Message: "ok"})
}

// handleIngest answers POST /: the body is an opaque encoded envelope;
// destination metadata rides on headers. What Ingest does before
// returning is role-specific: a relay's Capabilities dispatches the
// actual forward to a detached goroutine and replies "received"
// immediately, while the sink's Capabilities decodes and validates
// synchronously and this response carries the real outcome (spec §4.1).
func (n *Node) handleIngest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	dest := envelope.DestinationFromHeaders(r.Header)
	if groupID := r.Header.Get(envelope.HeaderGroupID); groupID != "" {
		dest.GroupID = groupID
	}
	correlationID := uuid.NewString()
	n.Logger.Debug("envelope received", "correlation_id", correlationID, "bytes", len(body))

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()
	result := n.Capabilities.Ingest(ctx, body, dest)
	n.Logger.Debug("envelope handled", "correlation_id", correlationID, "result", result.Message)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(messageResponse{Message: result.Message})
}

// recordTableSize updates the routing-table-size gauge, if metrics are
// wired.
func (n *Node) recordTableSize() {
	if n.Metrics == nil {
		return
	}
	n.Metrics.RoutingTableSize.WithLabelValues(string(n.Role)).Set(float64(n.Table.Len()))
}

// remoteHost extracts the caller's IP from the request, stripping any
// port.
func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
