package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recovery completion outcomes.
const (
	OutcomeSuccess      = "success"
	OutcomeInvalidToken = "invalid_token"
	OutcomeWeakPassword = "weak_password"
	OutcomeError        = "error"
)

// Recorder owns a private registry so tests can build as many as they like.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	recoveryRequests    prometheus.Counter
	tokensIssued        prometheus.Counter
	recoveryCompletions *prometheus.CounterVec
	tokensSwept         prometheus.Counter
	mailFailures        *prometheus.CounterVec
	accessDenied        *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		recoveryRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "petcare_recovery_requests_total",
			Help: "Password reset requests received.",
		}),
		tokensIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "petcare_recovery_tokens_issued_total",
			Help: "Password reset tokens issued.",
		}),
		recoveryCompletions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "petcare_recovery_completions_total",
			Help: "Password reset completion attempts by outcome.",
		}, []string{"outcome"}),
		tokensSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "petcare_recovery_tokens_swept_total",
			Help: "Expired reset tokens deleted.",
		}),
		mailFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "petcare_mail_dispatch_failures_total",
			Help: "Mail messages that could not be handed to the transport.",
		}, []string{"kind"}),
		accessDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "petcare_access_denied_total",
			Help: "Requests refused by the permission gate.",
		}, []string{"action"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.recoveryRequests,
		r.tokensIssued,
		r.recoveryCompletions,
		r.tokensSwept,
		r.mailFailures,
		r.accessDenied,
		r.httpRequests,
		r.httpDuration,
	)
	return r
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) RecoveryRequested() {
	if r == nil {
		return
	}
	r.recoveryRequests.Inc()
}

func (r *Recorder) TokenIssued() {
	if r == nil {
		return
	}
	r.tokensIssued.Inc()
}

func (r *Recorder) RecoveryCompleted(outcome string) {
	if r == nil {
		return
	}
	r.recoveryCompletions.WithLabelValues(outcome).Inc()
}

func (r *Recorder) TokensSwept(n int64) {
	if r == nil || n <= 0 {
		return
	}
	r.tokensSwept.Add(float64(n))
}

func (r *Recorder) MailDispatchFailed(kind string) {
	if r == nil {
		return
	}
	r.mailFailures.WithLabelValues(kind).Inc()
}

func (r *Recorder) AccessDenied(action string) {
	if r == nil {
		return
	}
	r.accessDenied.WithLabelValues(action).Inc()
}

func (r *Recorder) ObserveHTTP(method, path, status string, seconds float64) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(method, path, status).Inc()
	r.httpDuration.WithLabelValues(method, path, status).Observe(seconds)
}
