// Package metrics holds run-level report metrics and pushes the registry
// to a Prometheus Pushgateway when a report finishes. Request, pagination
// and rate limit metrics are defined in their own packages (client,
// pagination, ratelimit) and registered with the same default registry.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Registry is the registerer all idp metrics use.
var Registry = prometheus.DefaultRegisterer

// Gatherer is what gets pushed.
var Gatherer prometheus.Gatherer = prometheus.DefaultGatherer

var (
	runDurationSeconds = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "idp_report_last_run_duration_seconds",
		Help: "Duration of the last report run",
	}, []string{"report"})

	runRowsWritten = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "idp_report_last_run_rows",
		Help: "Rows written by the last report run",
	}, []string{"report"})

	runLastSuccess = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "idp_report_last_success_timestamp_seconds",
		Help: "Unix time of the last successful report run",
	}, []string{"report"})

	runFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "idp_report_failures_total",
		Help: "Report runs that ended with an error",
	}, []string{"report"})
)

// RecordRun stores the outcome of one report run.
func RecordRun(report string, rows int, duration time.Duration, err error) {
	runDurationSeconds.WithLabelValues(report).Set(duration.Seconds())
	runRowsWritten.WithLabelValues(report).Set(float64(rows))
	if err != nil {
		runFailuresTotal.WithLabelValues(report).Inc()
		return
	}
	runLastSuccess.WithLabelValues(report).SetToCurrentTime()
}

// Pusher sends the gathered metrics to a Pushgateway. A Pusher with an
// empty URL does nothing.
type Pusher struct {
	url      string
	job      string
	gatherer prometheus.Gatherer
}

// NewPusher creates a pusher for job. url may be empty.
func NewPusher(url, job string) *Pusher {
	return &Pusher{
		url:      url,
		job:      job,
		gatherer: Gatherer,
	}
}

// Enabled reports whether a Pushgateway URL is configured.
func (p *Pusher) Enabled() bool {
	return p != nil && p.url != ""
}

// Push replaces the job's metric group on the Pushgateway, grouped by report.
func (p *Pusher) Push(ctx context.Context, report string) error {
	if !p.Enabled() {
		return nil
	}
	err := push.New(p.url, p.job).
		Gatherer(p.gatherer).
		Grouping("report", report).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("push metrics to %s: %w", p.url, err)
	}
	return nil
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - idp_requests_total{method, endpoint, status} (Counter)
//   - idp_request_duration_seconds{method, endpoint} (Histogram)
//   - idp_errors_total{class} (Counter): client, server, rate_limit, network
//   - idp_rate_limit_retries_total (Counter): requests repeated after 429
//   - idp_rate_limit_retries_exhausted_total (Counter)
//
// Rate Limit Metrics (pkg/ratelimit):
//   - idp_rate_limit_remaining (Gauge)
//   - idp_rate_limit_waits_total (Counter)
//   - idp_rate_limit_wait_seconds (Histogram)
//
// Pagination Metrics (pkg/pagination):
//   - idp_pages_fetched_total (Counter)
//   - idp_records_fetched_total (Counter)
//   - idp_partial_fetches_total (Counter)
//
// Run Metrics (this package):
//   - idp_report_last_run_duration_seconds{report} (Gauge)
//   - idp_report_last_run_rows{report} (Gauge)
//   - idp_report_last_success_timestamp_seconds{report} (Gauge)
//   - idp_report_failures_total{report} (Counter)
