package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Sale submission outcomes.
const (
	OutcomeCommitted        = "committed"
	OutcomePending          = "pending"
	OutcomeCompletionFailed = "completion_failed"
	OutcomeCommitFailed     = "commit_failed"
	OutcomeRejected         = "rejected"
)

// POSMetrics tracks the reservation engine and the sale workflow.
type POSMetrics struct {
	submissions  *prometheus.CounterVec
	rejections   *prometheus.CounterVec
	saleTotal    prometheus.Histogram
	snapshotAge  prometheus.Gauge
	openSessions prometheus.Gauge
}

// NewPOSMetrics registers the engine metrics on the provided registerer. A nil
// registerer yields a no-op recorder.
func NewPOSMetrics(reg prometheus.Registerer) *POSMetrics {
	if reg == nil {
		return &POSMetrics{}
	}
	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sale_submissions_total",
		Help:      "Sale submissions by outcome.",
	}, []string{"outcome"})
	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reservation_rejections_total",
		Help:      "Cart mutations refused because stock was insufficient or not loaded.",
	}, []string{"reason"})
	saleTotal := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "sale_total_amount",
		Help:      "Totals of created sales in the configured currency.",
		Buckets:   prometheus.ExponentialBuckets(1000, 4, 10),
	})
	snapshotAge := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "snapshot_last_refresh_timestamp_seconds",
		Help:      "Unix time of the last successful stock snapshot refresh.",
	})
	openSessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "terminal_sessions_open",
		Help:      "Terminal sessions currently open.",
	})
	reg.MustRegister(submissions, rejections, saleTotal, snapshotAge, openSessions)
	return &POSMetrics{
		submissions:  submissions,
		rejections:   rejections,
		saleTotal:    saleTotal,
		snapshotAge:  snapshotAge,
		openSessions: openSessions,
	}
}

// IncSubmission counts one sale submission with the given outcome.
func (m *POSMetrics) IncSubmission(outcome string) {
	if m == nil || m.submissions == nil {
		return
	}
	m.submissions.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncRejection counts a refused cart mutation.
func (m *POSMetrics) IncRejection(reason string) {
	if m == nil || m.rejections == nil {
		return
	}
	m.rejections.WithLabelValues(normalizeLabel(reason)).Inc()
}

// ObserveSaleTotal records the total of a created sale.
func (m *POSMetrics) ObserveSaleTotal(total float64) {
	if m == nil || m.saleTotal == nil {
		return
	}
	m.saleTotal.Observe(total)
}

// SetSnapshotRefreshed records the time of the last successful refresh.
func (m *POSMetrics) SetSnapshotRefreshed(at time.Time) {
	if m == nil || m.snapshotAge == nil {
		return
	}
	m.snapshotAge.Set(float64(at.Unix()))
}

// SetOpenSessions reports the number of live terminal sessions.
func (m *POSMetrics) SetOpenSessions(n int) {
	if m == nil || m.openSessions == nil {
		return
	}
	m.openSessions.Set(float64(n))
}
