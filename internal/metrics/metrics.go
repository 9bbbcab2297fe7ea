// Package metrics records one invocation's counters and writes them
// to a Prometheus textfile-collector file on exit. The process is
// episodic — one cron-triggered run per poll interval, not a
// long-lived daemon — so a pull-based /metrics HTTP endpoint would
// never be scraped while it is up; the textfile collector pattern
// (a node_exporter sidecar ingests the file between runs) fits an
// episodic process instead.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder is one invocation's metric set, registered in a private
// registry so concurrent test runs never collide on the default
// global registry.
type Recorder struct {
	registry *prometheus.Registry

	OrdersPlaced    *prometheus.CounterVec
	TakeProfits     *prometheus.CounterVec
	DustSkips       *prometheus.CounterVec
	GridRebuilds    *prometheus.CounterVec
	PollDuration    prometheus.Histogram
	InvocationError *prometheus.CounterVec
}

// NewRecorder builds a Recorder with account as a constant label on
// every metric, so one textfile directory can hold every account's
// output without name collisions once node_exporter aggregates them.
func NewRecorder(account string) *Recorder {
	reg := prometheus.NewRegistry()
	labels := prometheus.Labels{"account": account}

	r := &Recorder{
		registry: reg,
		OrdersPlaced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "gridtrader_orders_placed_total",
			Help:        "Orders placed, by pair and side.",
			ConstLabels: labels,
		}, []string{"pair", "side"}),
		TakeProfits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "gridtrader_take_profits_issued_total",
			Help:        "Take-profit sells issued in response to buy fills.",
			ConstLabels: labels,
		}, []string{"pair"}),
		DustSkips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "gridtrader_dust_skips_total",
			Help:        "Rung placements skipped as dust or insufficient balance.",
			ConstLabels: labels,
		}, []string{"pair", "side"}),
		GridRebuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "gridtrader_grid_rebuilds_total",
			Help:        "Ladder rebuilds, by pair, side and reason (exhausted|elevate).",
			ConstLabels: labels,
		}, []string{"pair", "side", "reason"}),
		PollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "gridtrader_poll_duration_seconds",
			Help:        "Wall-clock time spent in one poll invocation.",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}),
		InvocationError: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "gridtrader_invocation_errors_total",
			Help:        "Uncaught errors aborting an invocation, by verb.",
			ConstLabels: labels,
		}, []string{"verb"}),
	}

	reg.MustRegister(r.OrdersPlaced, r.TakeProfits, r.DustSkips, r.GridRebuilds, r.PollDuration, r.InvocationError)
	return r
}

// WriteTextfile renders every registered metric to path in the
// Prometheus text exposition format, for a node_exporter textfile
// collector directory to pick up.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("metrics: write textfile %s: %w", path, err)
	}
	return nil
}
