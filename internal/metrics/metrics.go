// Package metrics exposes Prometheus collectors for judging, content loads
// and remote document-service traffic.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Judging metrics
	judgementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ronten_judgements_total",
			Help: "Total number of answer judgements",
		},
		[]string{"method", "result"},
	)

	scoreDistribution = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ronten_score_distribution",
			Help:    "Distribution of similarity scores (0-100)",
			Buckets: []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
	)

	// Load metrics
	loadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ronten_content_loads_total",
			Help: "Total number of content loads by source and status",
		},
		[]string{"source", "status"},
	)

	loadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ronten_content_load_duration_seconds",
			Help:    "Duration of content loads in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	questionsLoaded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ronten_questions_loaded",
			Help: "Number of questions in the current content tree",
		},
	)

	// Remote metrics
	remoteCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ronten_remote_call_duration_seconds",
			Help:    "Duration of calls to the remote document service",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)

	retryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ronten_remote_retry_total",
			Help: "Total number of remote retries by reason",
		},
		[]string{"reason"},
	)

	circuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ronten_circuit_breaker_state",
			Help: "Current state of circuit breaker (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// Session metrics
	sessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ronten_sessions_active",
			Help: "Number of live study sessions",
		},
	)

	studySeconds = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ronten_study_seconds_total",
			Help: "Study time credited to the ledger",
		},
	)
)

// Recorder records metrics. A nil or disabled Recorder is a no-op.
type Recorder struct {
	enabled bool
}

func NewRecorder(enabled bool) *Recorder {
	return &Recorder{enabled: enabled}
}

func (m *Recorder) on() bool { return m != nil && m.enabled }

// RecordJudgement records one judged attempt.
func (m *Recorder) RecordJudgement(method string, score float64, perfect bool) {
	if !m.on() {
		return
	}
	result := "partial"
	if perfect {
		result = "perfect"
	}
	judgementsTotal.WithLabelValues(method, result).Inc()
	scoreDistribution.Observe(score)
}

// RecordLoad records a content load pass for one source kind.
func (m *Recorder) RecordLoad(source, status string, seconds float64) {
	if !m.on() {
		return
	}
	loadsTotal.WithLabelValues(source, status).Inc()
	loadDuration.WithLabelValues(source).Observe(seconds)
}

// RecordQuestions sets the size of the live content tree.
func (m *Recorder) RecordQuestions(n int) {
	if !m.on() {
		return
	}
	questionsLoaded.Set(float64(n))
}

// RecordRemoteCall records a single remote API call.
func (m *Recorder) RecordRemoteCall(status string, seconds float64) {
	if !m.on() {
		return
	}
	remoteCallDuration.WithLabelValues(status).Observe(seconds)
}

// RecordRetry records a remote retry.
func (m *Recorder) RecordRetry(reason string) {
	if !m.on() {
		return
	}
	retryTotal.WithLabelValues(reason).Inc()
}

// RecordCircuitBreakerState records circuit breaker state.
func (m *Recorder) RecordCircuitBreakerState(name string, state int) {
	if !m.on() {
		return
	}
	circuitBreakerState.WithLabelValues(name).Set(float64(state))
}

// RecordSessions sets the live session count.
func (m *Recorder) RecordSessions(n int) {
	if !m.on() {
		return
	}
	sessionsActive.Set(float64(n))
}

// RecordStudySeconds adds credited study time.
func (m *Recorder) RecordStudySeconds(seconds float64) {
	if !m.on() || seconds <= 0 {
		return
	}
	studySeconds.Add(seconds)
}

// Handler returns an HTTP handler for Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
