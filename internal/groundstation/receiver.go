// Package groundstation implements the sink node's receive pipeline
// (spec §4.8): Hamming-decode, RSA-decrypt, validate and parse JSON,
// append the turbine CSV log, and compare reported against estimated
// power output for a threshold alert. Unlike a relay, the sink answers
// POST / synchronously with the real outcome of this pipeline.
package groundstation

import (
	"context"
	"fmt"
	"math"
	"time"

	"crypto/rsa"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"

	"github.com/shurlinet/satrelay/internal/channel"
	"github.com/shurlinet/satrelay/internal/envelope"
	"github.com/shurlinet/satrelay/internal/metrics"
	"github.com/shurlinet/satrelay/internal/peer"
	"github.com/shurlinet/satrelay/internal/telemetry"
)

// powerThresholdKW is the alert threshold for estimated-vs-reported power
// divergence (spec §4.8).
const powerThresholdKW = 200.0

// failureMarker is the text every permanent-decode-failure response
// carries, so callers (and §8 scenario 5) can recognize it without
// parsing the rest of the message.
const failureMarker = "decode failure"

// Receiver implements peer.Capabilities for the sink node.
type Receiver struct {
	PrivateKey *rsa.PrivateKey
	Calculator *telemetry.Calculator
	Log        *CSVLog
	Metrics    *metrics.Metrics
	Node       *peer.Node
	Codec      string
	Compress   bool
}

// New builds a Receiver writing to the given CSV log. compress must match
// the sender's FECConfig.Compress setting (spec §4.10).
func New(n *peer.Node, priv *rsa.PrivateKey, log *CSVLog, m *metrics.Metrics, codec string, compress bool) *Receiver {
	return &Receiver{
		PrivateKey: priv,
		Calculator: telemetry.NewCalculator(),
		Log:        log,
		Metrics:    m,
		Node:       n,
		Codec:      codec,
		Compress:   compress,
	}
}

// Ingest runs the full decode-validate-persist pipeline synchronously and
// returns its real outcome (spec §4.1, §4.8, §7.2).
func (r *Receiver) Ingest(ctx context.Context, data []byte, dest envelope.Destination) peer.IngestResult {
	rec, err := r.decode(data)
	if err != nil {
		r.Node.Logger.Warn("decode failure", "error", err)
		return peer.IngestResult{Message: fmt.Sprintf("%s: %v", failureMarker, err)}
	}

	sec := int64(rec.Timestamp)
	nsec := int64((rec.Timestamp - float64(sec)) * 1e9)
	delay := time.Since(time.Unix(sec, nsec))
	r.Node.Logger.Info("telemetry received", "turbine_id", int(rec.TurbineID), "end_to_end_delay", delay)

	if err := r.Log.Append(rec); err != nil {
		r.Node.Logger.Error("failed to persist telemetry", "error", err)
	}

	r.checkThresholds(rec)

	return peer.IngestResult{Message: "Data received at Ground Station"}
}

// decode runs Hamming/Reed-Solomon decode, RSA decrypt, UTF-8 validation,
// and JSON parsing, in that order (spec §4.8, §7.2 "permanent decode").
func (r *Receiver) decode(data []byte) (telemetry.Record, error) {
	var corrected []byte
	var err error
	switch r.Codec {
	case channel.CodecReedSolomon:
		corrected, err = channel.DecodeReedSolomon(data)
	default:
		corrected, err = channel.DecodeHamming74(data)
	}
	if err != nil {
		r.countFailure("hamming")
		return telemetry.Record{}, fmt.Errorf("channel decode: %w", err)
	}

	plaintext, err := envelope.Decrypt(r.PrivateKey, corrected)
	if err != nil {
		r.countFailure("rsa")
		return telemetry.Record{}, fmt.Errorf("rsa decrypt: %w", err)
	}

	if r.Compress {
		plaintext, err = channel.Decompress(plaintext)
		if err != nil {
			r.countFailure("zstd")
			return telemetry.Record{}, fmt.Errorf("zstd decode: %w", err)
		}
	}

	text, err := validateUTF8(plaintext)
	if err != nil {
		r.countFailure("utf8")
		return telemetry.Record{}, fmt.Errorf("utf-8 validation: %w", err)
	}

	rec, err := telemetry.Unmarshal(text)
	if err != nil {
		r.countFailure("json")
		return telemetry.Record{}, fmt.Errorf("json parse: %w", err)
	}
	return rec, nil
}

// validateUTF8 confirms plaintext is well-formed UTF-8 before it's handed
// to the JSON parser (spec §4.8, §7.2), via x/text's UTF8Validator
// transformer rather than a bare utf8.Valid check.
func validateUTF8(data []byte) ([]byte, error) {
	out, _, err := transform.Bytes(encoding.UTF8Validator, data)
	if err != nil {
		return nil, fmt.Errorf("invalid utf-8 byte sequence: %w", err)
	}
	return out, nil
}

// checkThresholds compares each turbine's reported power output against
// the calculator's estimate and records an alert for any divergence past
// powerThresholdKW (spec §4.8).
func (r *Receiver) checkThresholds(rec telemetry.Record) {
	for name, reading := range rec.Turbines {
		estimated := r.Calculator.EstimatePowerOutput(reading.WindSpeedMS, reading.TemperatureC, reading.PressurePa)
		if math.Abs(estimated-reading.PowerKW) > powerThresholdKW {
			r.Node.Logger.Warn("threshold alert",
				"turbine", name,
				"estimated_kw", estimated,
				"reported_kw", reading.PowerKW,
			)
			if r.Metrics != nil {
				r.Metrics.ThresholdAlertTotal.Inc()
			}
		}
	}
}

func (r *Receiver) countFailure(stage string) {
	if r.Metrics != nil {
		r.Metrics.DecodeFailuresTotal.WithLabelValues(stage).Inc()
	}
}
