// Package observability exposes the simulator's Prometheus metrics and
// OpenTelemetry tracing, used by the cmd/satgen binary (cmd/replay does not
// use it).
//
// Grounded on the now-deleted internal/platform/observability/metrics.go's
// namespace/subsystem/promauto structure and singleton-via-sync.Once
// pattern, trimmed from its SaaS/robotics/security metric families down to
// the simulation-tick ones this module actually produces.
package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "celestial"

// Metrics holds every Prometheus collector the simulator reports. It
// implements simulator.Observer.
type Metrics struct {
	tickDuration     prometheus.Histogram
	stageDuration    *prometheus.HistogramVec
	activeSatellites prometheus.Gauge
	machineDiffs     prometheus.Counter
	linkDiffs        prometheus.Counter
	archiveBytes     prometheus.Counter
}

var (
	once     sync.Once
	instance *Metrics
)

// New registers and returns the process-wide Metrics singleton. Calling it
// more than once returns the same instance; promauto panics on duplicate
// registration otherwise, and exactly one simulator run per process is the
// supported shape (spec.md §6's satgen/replay binaries each run once).
func New(reg prometheus.Registerer) *Metrics {
	once.Do(func() {
		factory := promauto.With(reg)
		instance = &Metrics{
			tickDuration: factory.NewHistogram(prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "tick",
				Name:      "duration_seconds",
				Help:      "Wall-clock time to compute and persist one tick.",
				Buckets:   prometheus.DefBuckets,
			}),
			stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "stage",
				Name:      "duration_seconds",
				Help:      "Wall-clock time of one pipeline stage within a tick.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"stage"}),
			activeSatellites: factory.NewGauge(prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "satellites_active",
				Help:      "Number of satellites currently classified ACTIVE across all shells.",
			}),
			machineDiffs: factory.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "diff",
				Name:      "machine_total",
				Help:      "Total machine-state diffs emitted.",
			}),
			linkDiffs: factory.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "diff",
				Name:      "link_total",
				Help:      "Total link-state diffs emitted.",
			}),
			archiveBytes: factory.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "archive",
				Name:      "bytes_total",
				Help:      "Total bytes written to the archive across all tick entries.",
			}),
		}
	})
	return instance
}

// ObserveTick satisfies simulator.Observer.
func (m *Metrics) ObserveTick(tick int, elapsed time.Duration, activeSatellites, machineDiffs, linkDiffs int) {
	m.tickDuration.Observe(elapsed.Seconds())
	m.activeSatellites.Set(float64(activeSatellites))
	m.machineDiffs.Add(float64(machineDiffs))
	m.linkDiffs.Add(float64(linkDiffs))
}

// ObserveStage records one named pipeline stage's duration within a tick.
func (m *Metrics) ObserveStage(stage string, elapsed time.Duration) {
	m.stageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// AddArchiveBytes accounts for bytes flushed to the archive writer.
func (m *Metrics) AddArchiveBytes(n int) {
	m.archiveBytes.Add(float64(n))
}

// Handler returns the /metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}
