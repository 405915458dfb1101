// Package observability provides logging, metrics, and tracing adapters.
//
// Metrics cover the HTTP surface, calls to the external model provider,
// audit job processing, and the distribution of engine scores.
package observability

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"route", "method"},
	)

	AIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_requests_total",
			Help: "Total number of model requests by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)
	AIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_request_duration_seconds",
			Help:    "Model request duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"operation"},
	)
	AICacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_response_cache_total",
			Help: "Response cache lookups by result (hit/miss/error)",
		},
		[]string{"result"},
	)

	AuditsEnqueuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_jobs_enqueued_total",
			Help: "Total number of audit jobs enqueued",
		},
	)
	AuditsProcessing = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "audit_jobs_processing",
			Help: "Number of audit jobs currently processing",
		},
	)
	AuditsCompletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_jobs_completed_total",
			Help: "Total number of audit jobs finished, by outcome",
		},
		[]string{"outcome"},
	)

	// CandidateScoreHistogram tracks the engine score distribution; the
	// score domain is [20,100] by construction.
	CandidateScoreHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scoring_candidate_score",
			Help:    "Distribution of candidate scores ([20,100])",
			Buckets: []float64{20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
	)
	ConfidenceMarginHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scoring_confidence_margin",
			Help:    "Distribution of confidence margins ([0,15])",
			Buckets: []float64{0, 3, 6, 9, 12, 15},
		},
	)
)

// InitMetrics registers all collectors once per process.
func InitMetrics() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(AIRequestsTotal)
	prometheus.MustRegister(AIRequestDuration)
	prometheus.MustRegister(AICacheHitsTotal)
	prometheus.MustRegister(AuditsEnqueuedTotal)
	prometheus.MustRegister(AuditsProcessing)
	prometheus.MustRegister(AuditsCompletedTotal)
	prometheus.MustRegister(CandidateScoreHistogram)
	prometheus.MustRegister(ConfidenceMarginHistogram)
}

// ObserveScores records the score and margin of every ranked candidate.
func ObserveScores(ranking []int, margins []int) {
	for _, s := range ranking {
		CandidateScoreHistogram.Observe(float64(s))
	}
	for _, m := range margins {
		ConfidenceMarginHistogram.Observe(float64(m))
	}
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		// Route pattern may be unavailable outside chi router; guard nil
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}
		HTTPRequestsTotal.WithLabelValues(route, r.Method, http.StatusText(ww.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(dur)
	})
}
