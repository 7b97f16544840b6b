// Package metrics records calculation activity, both as Prometheus collectors
// and as an in-process snapshot served by the status endpoint.
package metrics

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ramonehamilton/deck-winrate/internal/matchup"
)

// Calculation sources.
const (
	SourceHTTP      = "http"
	SourceWebSocket = "websocket"
	SourceProfile   = "profile"
)

// Calculation outcomes.
const (
	OutcomeOK         = "ok"
	OutcomeNoMatchups = "no_matchups"
	OutcomeError      = "error"
)

// Prometheus metrics
var (
	calculationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "winrate_calculations_total",
		Help: "Total number of winrate calculations by source and outcome",
	}, []string{"source", "outcome"})

	calculationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "winrate_calculation_duration_seconds",
		Help:    "Duration of winrate calculations",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 8),
	}, []string{"source"})

	websocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "winrate_websocket_clients",
		Help: "Current number of connected WebSocket clients",
	})

	profileReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "winrate_profile_reloads_total",
		Help: "Total number of watched profile reloads by outcome",
	}, []string{"outcome"})
)

// Recorder tracks calculation activity.
type Recorder struct {
	Latency *Window

	calculations atomic.Uint64
	failures     atomic.Uint64
	reloads      atomic.Uint64
	clients      atomic.Int64

	startTime time.Time
}

// NewRecorder creates a recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		Latency:   NewWindow(10000),
		startTime: time.Now(),
	}
}

// Outcome classifies a calculation error.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, matchup.ErrNoMatchups):
		return OutcomeNoMatchups
	default:
		return OutcomeError
	}
}

// ObserveCalculation records one calculation from source.
func (r *Recorder) ObserveCalculation(source string, d time.Duration, err error) {
	outcome := Outcome(err)
	calculationsTotal.WithLabelValues(source, outcome).Inc()
	calculationDuration.WithLabelValues(source).Observe(d.Seconds())

	r.calculations.Add(1)
	if err != nil {
		r.failures.Add(1)
	}
	r.Latency.Record(d)
}

// ObserveProfileReload records a watched profile reload.
func (r *Recorder) ObserveProfileReload(err error) {
	profileReloads.WithLabelValues(Outcome(err)).Inc()
	r.reloads.Add(1)
}

// SetWebSocketClients records the number of connected clients.
func (r *Recorder) SetWebSocketClients(n int) {
	websocketClients.Set(float64(n))
	r.clients.Store(int64(n))
}

// Stats is a snapshot of a Recorder.
type Stats struct {
	Latency          LatencyStats `json:"latency"`
	Calculations     uint64       `json:"calculations"`
	Failures         uint64       `json:"failures"`
	SuccessRate      float64      `json:"success_rate"` // percentage
	ProfileReloads   uint64       `json:"profile_reloads"`
	WebSocketClients int64        `json:"websocket_clients"`
	Uptime           string       `json:"uptime"`
}

// Snapshot returns the current statistics.
func (r *Recorder) Snapshot() *Stats {
	calculations := r.calculations.Load()
	failures := r.failures.Load()

	successRate := 0.0
	if calculations > 0 {
		successRate = float64(calculations-failures) / float64(calculations) * 100
	}

	return &Stats{
		Latency:          r.Latency.Summary(),
		Calculations:     calculations,
		Failures:         failures,
		SuccessRate:      successRate,
		ProfileReloads:   r.reloads.Load(),
		WebSocketClients: r.clients.Load(),
		Uptime:           time.Since(r.startTime).Round(time.Second).String(),
	}
}
