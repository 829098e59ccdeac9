// Package metrics exposes Prometheus collectors for the bosswatch service.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	pollsTotal              *prometheus.CounterVec
	scrapeDurationSeconds   prometheus.Histogram
	notificationsTotal      *prometheus.CounterVec
	bossCountdownSeconds    prometheus.Gauge
	consecutiveFailures     prometheus.Gauge
	expeditionClicksTotal   prometheus.Counter
	httpRequestsTotal       *prometheus.CounterVec
	httpRequestDurationSecs *prometheus.HistogramVec

	once sync.Once
)

// Poll outcome labels.
const (
	OutcomeOK             = "ok"
	OutcomeTransportError = "transport_error"
	OutcomeSessionExpired = "session_expired"
	OutcomeParseError     = "parse_error"
)

// Init initializes the Prometheus collectors.
// It is safe to call multiple times.
func Init() {
	once.Do(func() {
		pollsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bosswatch_polls_total",
				Help: "Total poll iterations, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		scrapeDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "bosswatch_scrape_duration_seconds",
				Help:    "Histogram of fetch+parse latency per poll.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
		)

		notificationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bosswatch_notifications_total",
				Help: "Total notification attempts, labeled by transition kind and result.",
			},
			[]string{"kind", "result"},
		)

		bossCountdownSeconds = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "bosswatch_boss_countdown_seconds",
				Help: "Seconds until the headline boss spawns; 0 while active.",
			},
		)

		consecutiveFailures = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "bosswatch_consecutive_poll_failures",
				Help: "Length of the current failed-poll streak, fetch and parse alike.",
			},
		)

		expeditionClicksTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "bosswatch_expedition_clicks_total",
				Help: "Total expedition button clicks performed.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bosswatch_http_requests_total",
				Help: "Total inbound HTTP requests, labeled by method and code class.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSecs = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bosswatch_http_request_duration_seconds",
				Help:    "Histogram of inbound HTTP request latencies.",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler exposing the Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePoll records one poll iteration.
func ObservePoll(outcome string, duration time.Duration) {
	pollsTotal.WithLabelValues(outcome).Inc()
	scrapeDurationSeconds.Observe(duration.Seconds())
}

// ObserveNotification records one notification attempt.
func ObserveNotification(kind string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	notificationsTotal.WithLabelValues(kind, result).Inc()
}

// SetCountdown publishes the current countdown gauge.
func SetCountdown(seconds int) {
	bossCountdownSeconds.Set(float64(seconds))
}

// SetFailureStreak publishes the consecutive failed-poll gauge. The streak
// counts fetch and parse failures alike; the per-poll cause is on the
// outcome label of bosswatch_polls_total.
func SetFailureStreak(n int) {
	consecutiveFailures.Set(float64(n))
}

// ObserveExpeditionClick counts one expedition click.
func ObserveExpeditionClick() {
	expeditionClicksTotal.Inc()
}

// ObserveHTTPRequest records one inbound request.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, codeClass(code)).Inc()
	httpRequestDurationSecs.WithLabelValues(method, route).Observe(duration.Seconds())
}

func codeClass(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "other"
	}
}
