package peer

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shurlinet/satrelay/internal/config"
	"github.com/shurlinet/satrelay/internal/envelope"
	"github.com/shurlinet/satrelay/internal/position"
	"github.com/shurlinet/satrelay/internal/table"
)

type recordingCapabilities struct {
	mu    sync.Mutex
	calls []envelope.Destination
	done  chan struct{}
}

func newRecordingCapabilities() *recordingCapabilities {
	return &recordingCapabilities{done: make(chan struct{}, 10)}
}

func (c *recordingCapabilities) Ingest(ctx context.Context, data []byte, dest envelope.Destination) IngestResult {
	c.mu.Lock()
	c.calls = append(c.calls, dest)
	c.mu.Unlock()
	c.done <- struct{}{}
	return IngestResult{Message: "received"}
}

func testOracle() *position.Oracle {
	return position.NewOracle(&position.Statics{
		Source: position.Position{ID: table.SourceID, Latitude: 0, Longitude: 0},
		Sink:   position.Position{ID: table.SinkID, Latitude: 1, Longitude: 1},
	})
}

func testNode(id table.PeerID, caps Capabilities) *Node {
	cfg := config.Defaults()
	cfg.Role = config.RoleRelay
	cfg.HTTPTimeout = time.Second
	tb := table.New(id, table.PeerEndpoint{Host: "127.0.0.1", Port: 33001})
	return NewNode(&cfg, id, tb, testOracle(), caps, nil, nil)
}

func TestHandleIdentifyRegistersCallerAndReturnsSelf(t *testing.T) {
	n := testNode(table.PeerID(1), newRecordingCapabilities())
	srv := httptest.NewServer(n.Mux())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/?device-id=2&device-port=33002")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body identifyResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, 1, body.DeviceID)
	require.Equal(t, "relay", body.DeviceType)

	ep, ok := n.Table.Get(table.PeerID(2))
	require.True(t, ok)
	require.Equal(t, 33002, ep.Port)
}

func TestHandleDownRemovesPeer(t *testing.T) {
	n := testNode(table.PeerID(1), newRecordingCapabilities())
	n.Table.Set(table.PeerID(5), table.PeerEndpoint{Host: "10.0.0.5", Port: 33005})

	srv := httptest.NewServer(n.Mux())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/down?device-id=5")
	require.NoError(t, err)
	resp.Body.Close()

	_, ok := n.Table.Get(table.PeerID(5))
	require.False(t, ok)
}

func TestHandleIngestCallsCapabilitiesAndReturnsItsResult(t *testing.T) {
	caps := newRecordingCapabilities()
	n := testNode(table.PeerID(1), caps)
	srv := httptest.NewServer(n.Mux())
	defer srv.Close()

	req, err := http.NewRequest(http.MethodPost, srv.URL, bytes.NewReader([]byte("opaque-envelope-bytes")))
	require.NoError(t, err)
	req.Header.Set(envelope.HeaderDestinationID, "-1")
	req.Header.Set(envelope.HeaderGroupID, "windfarm-a")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	var body messageResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	resp.Body.Close()
	require.Equal(t, "received", body.Message)

	select {
	case <-caps.done:
	case <-time.After(2 * time.Second):
		t.Fatal("Ingest was not called")
	}

	caps.mu.Lock()
	defer caps.mu.Unlock()
	require.Len(t, caps.calls, 1)
	require.Equal(t, table.PeerID(-1), caps.calls[0].ID)
	require.Equal(t, "windfarm-a", caps.calls[0].GroupID)
}

// TestSelfEntrySurvivesIdentifyTraffic implements spec §8's "Routing-table
// self-entry" invariant under concurrent handler traffic.
func TestSelfEntrySurvivesIdentifyTraffic(t *testing.T) {
	n := testNode(table.PeerID(1), newRecordingCapabilities())
	srv := httptest.NewServer(n.Mux())
	defer srv.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := srv.Client().Get(srv.URL + "/?device-id=1&device-port=33001")
			if err == nil {
				resp.Body.Close()
			}
		}(i)
	}
	wg.Wait()

	ep, ok := n.Table.Get(table.PeerID(1))
	require.True(t, ok)
	require.Equal(t, table.PeerEndpoint{Host: "127.0.0.1", Port: 33001}, ep)
}
