// Package metrics exposes the node's Prometheus collectors.
//
// Each node owns an isolated prometheus.Registry rather than registering on
// the global default registry, so a process can construct more than one
// Metrics instance (tests spin up several nodes in one binary) without
// collector name collisions.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every Prometheus collector the peer runtime publishes.
type Metrics struct {
	Registry *prometheus.Registry

	// HTTP API (GET /, GET /down, POST /)
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Forwarding / sending
	SendsTotal     *prometheus.CounterVec // labels: outcome ("ok","error")
	ForwardsTotal  *prometheus.CounterVec // labels: outcome
	HopDelaySecond *prometheus.HistogramVec

	// Discovery and routing
	RoutingTableSize *prometheus.GaugeVec
	GossipDownTotal  *prometheus.CounterVec // labels: outcome
	ScanFoundTotal   prometheus.Counter
	PathNotFoundTot  prometheus.Counter

	// Queue
	QueueDepth prometheus.Gauge

	// Channel model / sink
	DecodeFailuresTotal *prometheus.CounterVec // labels: stage ("hamming","rsa","zstd","utf8","json")
	ThresholdAlertTotal prometheus.Counter

	BuildInfo *prometheus.GaugeVec
}

// New creates a Metrics instance with all collectors registered on a fresh,
// private registry. role is recorded only on BuildInfo, and id is not
// recorded on any series; per-series
// labels are kept low-cardinality so a long-running node doesn't grow an
// unbounded set of time series.
func New(role string, id int, version string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector())
	reg.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Metrics{
		Registry: reg,

		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "satrelay_requests_total",
			Help: "Total inbound HTTP requests handled by the peer endpoints.",
		}, []string{"method", "path", "status"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "satrelay_request_duration_seconds",
			Help:    "Duration of inbound HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),

		SendsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "satrelay_sends_total",
			Help: "Total outbound envelope sends attempted by the source.",
		}, []string{"outcome"}),

		ForwardsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "satrelay_forwards_total",
			Help: "Total hop-to-hop forwards attempted by a relay.",
		}, []string{"outcome"}),

		HopDelaySecond: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "satrelay_hop_delay_seconds",
			Help:    "Simulated LEO propagation delay applied per hop.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 10),
		}, []string{"role"}),

		RoutingTableSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "satrelay_routing_table_size",
			Help: "Number of entries currently held in the routing table.",
		}, []string{"role"}),

		GossipDownTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "satrelay_gossip_down_total",
			Help: "Total down-gossip notifications sent to peers.",
		}, []string{"outcome"}),

		ScanFoundTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "satrelay_scan_peers_found_total",
			Help: "Total peers discovered by the background scanner.",
		}),

		PathNotFoundTot: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "satrelay_path_not_found_total",
			Help: "Total path computations that found no route to the sink.",
		}),

		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "satrelay_queue_depth",
			Help: "Current depth of the source's undeliverable-record queue.",
		}),

		DecodeFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "satrelay_decode_failures_total",
			Help: "Total permanent decode failures observed at the sink.",
		}, []string{"stage"}),

		ThresholdAlertTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "satrelay_threshold_alerts_total",
			Help: "Total turbine readings whose power estimate diverged past the alert threshold.",
		}),

		BuildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "satrelay_info",
			Help: "Build and identity information for the running node.",
		}, []string{"role", "version"}),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.SendsTotal,
		m.ForwardsTotal,
		m.HopDelaySecond,
		m.RoutingTableSize,
		m.GossipDownTotal,
		m.ScanFoundTotal,
		m.PathNotFoundTot,
		m.QueueDepth,
		m.DecodeFailuresTotal,
		m.ThresholdAlertTotal,
		m.BuildInfo,
	)

	m.BuildInfo.WithLabelValues(role, version).Set(1)
	_ = id // reserved for a future per-id series if cardinality allows

	return m
}

// Handler returns the Prometheus exposition HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
