package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "transbuddy"

// Session metrics (incremented by the dictation controller).
var (
	SessionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_total",
		Help:      "Dictation sessions by outcome.",
	}, []string{"outcome"})

	TriggersIgnoredTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "triggers_ignored_total",
		Help:      "Hotkey triggers rejected by the trigger guard.",
	}, []string{"reason"})

	TranscriptionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "transcription_duration_seconds",
		Help:      "Transcription backend round-trip time in seconds.",
		Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 60},
	}, []string{"backend"})

	RecordingDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "recording_duration_seconds",
		Help:      "Length of recordings when stopped.",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80, 160},
	})
)

// HTTP metrics for the control API.
var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total control API requests processed.",
	}, []string{"method", "path_pattern", "status_code"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Control API request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path_pattern"})
)

func init() {
	prometheus.MustRegister(
		SessionsTotal,
		TriggersIgnoredTotal,
		TranscriptionDuration,
		RecordingDuration,
		HTTPRequestsTotal,
		HTTPRequestDuration,
	)
}

// Recorder feeds controller observations into the package metrics.
type Recorder struct{}

func (Recorder) SessionFinished(outcome string) {
	SessionsTotal.WithLabelValues(outcome).Inc()
}

func (Recorder) TriggerIgnored(reason string) {
	TriggersIgnoredTotal.WithLabelValues(reason).Inc()
}

func (Recorder) RecordingObserved(d time.Duration) {
	RecordingDuration.Observe(d.Seconds())
}

func (Recorder) TranscriptionObserved(backend string, d time.Duration) {
	TranscriptionDuration.WithLabelValues(backend).Observe(d.Seconds())
}

// InstrumentHandler records request metrics labelled by chi route pattern.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		pattern := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			pattern = rctx.RoutePattern()
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, pattern, strconv.Itoa(sw.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, pattern).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
