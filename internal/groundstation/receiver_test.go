package groundstation

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/shurlinet/satrelay/internal/channel"
	"github.com/shurlinet/satrelay/internal/config"
	"github.com/shurlinet/satrelay/internal/envelope"
	"github.com/shurlinet/satrelay/internal/metrics"
	"github.com/shurlinet/satrelay/internal/peer"
	"github.com/shurlinet/satrelay/internal/position"
	"github.com/shurlinet/satrelay/internal/table"
	"github.com/shurlinet/satrelay/internal/telemetry"
)

func testSinkNode(t *testing.T) *peer.Node {
	t.Helper()
	cfg := config.Defaults()
	cfg.Role = config.RoleSink
	oracle := position.NewOracle(&position.Statics{
		Source: position.Position{ID: table.SourceID},
		Sink:   position.Position{ID: table.SinkID},
	})
	tb := table.New(table.SinkID, table.PeerEndpoint{Host: "127.0.0.1", Port: 33999})
	return peer.NewNode(&cfg, table.SinkID, tb, oracle, nil, nil, nil)
}

func encodeForWire(t *testing.T, pub *rsa.PublicKey, rec telemetry.Record) []byte {
	t.Helper()
	plaintext, err := rec.Marshal()
	require.NoError(t, err)
	cipher, err := envelope.Encrypt(pub, plaintext)
	require.NoError(t, err)
	return channel.EncodeHamming74(cipher)
}

func sampleRecord() telemetry.Record {
	return telemetry.Record{
		Timestamp: 1700000000.5,
		TurbineID: table.SourceID,
		Turbines: map[string]telemetry.Reading{
			"turbine-a0": {TemperatureC: 12, PressurePa: 1010, WindSpeedMS: 8, PowerKW: 1200},
		},
	}
}

// TestIngestRoundTripsAndPersists implements spec §8 scenario 1's sink
// half: a clean envelope decodes and persists one CSV row per turbine.
// Threshold alerting is covered by the two alert tests below.
func TestIngestRoundTripsAndPersists(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	csvPath := filepath.Join(t.TempDir(), "turbine_data.csv")
	log, err := NewCSVLog(csvPath)
	require.NoError(t, err)
	defer log.Close()

	r := New(testSinkNode(t), priv, log, nil, channel.CodecHamming74, false)

	rec := sampleRecord()
	wire := encodeForWire(t, &priv.PublicKey, rec)

	result := r.Ingest(context.Background(), wire, envelope.Destination{})
	require.NotContains(t, result.Message, failureMarker)

	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 2) // header + one turbine row
	require.Contains(t, lines[1], "turbine-a0")
}

// TestIngestCorrectsSingleBitFlip implements spec §8 scenario 4: a single
// bit flip in the Hamming layer still decodes to the original payload.
func TestIngestCorrectsSingleBitFlip(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	csvPath := filepath.Join(t.TempDir(), "turbine_data.csv")
	log, err := NewCSVLog(csvPath)
	require.NoError(t, err)
	defer log.Close()

	r := New(testSinkNode(t), priv, log, nil, channel.CodecHamming74, false)

	rec := sampleRecord()
	wire := encodeForWire(t, &priv.PublicKey, rec)
	wire[0] ^= 1 << 3 // flip one bit within the first 7-bit block

	result := r.Ingest(context.Background(), wire, envelope.Destination{})
	require.NotContains(t, result.Message, failureMarker)
}

// TestIngestReturnsFailureMarkerOnBadCiphertext implements spec §8
// scenario 5: an undecryptable payload yields a failure response and the
// CSV is left unchanged.
func TestIngestReturnsFailureMarkerOnBadCiphertext(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	csvPath := filepath.Join(t.TempDir(), "turbine_data.csv")
	log, err := NewCSVLog(csvPath)
	require.NoError(t, err)
	defer log.Close()

	r := New(testSinkNode(t), priv, log, nil, channel.CodecHamming74, false)

	garbage := channel.EncodeHamming74(make([]byte, 256)) // not valid ciphertext for this key
	result := r.Ingest(context.Background(), garbage, envelope.Destination{})
	require.Contains(t, result.Message, failureMarker)

	before, err := os.ReadFile(csvPath)
	require.NoError(t, err)

	// A second failing call must not add rows either.
	result = r.Ingest(context.Background(), garbage, envelope.Destination{})
	require.Contains(t, result.Message, failureMarker)
	after, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestIngestRecordsThresholdAlert(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	csvPath := filepath.Join(t.TempDir(), "turbine_data.csv")
	log, err := NewCSVLog(csvPath)
	require.NoError(t, err)
	defer log.Close()

	m := metrics.New("sink", -1, "test")
	r := New(testSinkNode(t), priv, log, m, channel.CodecHamming74, false)

	rec := sampleRecord()
	reading := rec.Turbines["turbine-a0"]
	reading.PowerKW = 999999 // wildly implausible given the reported weather
	rec.Turbines["turbine-a0"] = reading

	wire := encodeForWire(t, &priv.PublicKey, rec)
	result := r.Ingest(context.Background(), wire, envelope.Destination{})
	require.NotContains(t, result.Message, failureMarker)
	require.Equal(t, float64(1), testutil.ToFloat64(m.ThresholdAlertTotal))
}

func TestIngestNoAlertForPlausibleReading(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	csvPath := filepath.Join(t.TempDir(), "turbine_data.csv")
	log, err := NewCSVLog(csvPath)
	require.NoError(t, err)
	defer log.Close()

	m := metrics.New("sink", -1, "test")
	r := New(testSinkNode(t), priv, log, m, channel.CodecHamming74, false)

	rec := sampleRecord()
	reading := rec.Turbines["turbine-a0"]
	reading.PowerKW = r.Calculator.EstimatePowerOutput(reading.WindSpeedMS, reading.TemperatureC, reading.PressurePa)
	rec.Turbines["turbine-a0"] = reading

	wire := encodeForWire(t, &priv.PublicKey, rec)
	result := r.Ingest(context.Background(), wire, envelope.Destination{})
	require.NotContains(t, result.Message, failureMarker)
	require.Equal(t, float64(0), testutil.ToFloat64(m.ThresholdAlertTotal))
}
