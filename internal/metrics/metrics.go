// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"eventsphere/internal/apperr"
)

var (
	BoothTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventsphere_booth_transitions_total",
		Help: "Booth state transition attempts by action and outcome",
	}, []string{"action", "outcome"})

	RegistrationTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventsphere_registration_transitions_total",
		Help: "Exhibitor registration workflow operations by action and outcome",
	}, []string{"action", "outcome"})

	NotificationsDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventsphere_notifications_delivered_total",
		Help: "Notifications handed to subscriber buffers, by event",
	}, []string{"event"})

	NotificationsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventsphere_notifications_dropped_total",
		Help: "Notifications dropped because a subscriber buffer was full, by event",
	}, []string{"event"})

	Subscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "eventsphere_realtime_subscribers",
		Help: "Open real-time subscriptions (WebSocket and SSE)",
	})

	ReservationsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "eventsphere_reservations_expired_total",
		Help: "Booth reservations released because their hold expired",
	})

	HTTPRequests = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "eventsphere_http_request_duration_seconds",
		Help:    "HTTP request latency by method, route and status",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// Outcome labels an error for the transition counters by its taxonomy kind.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return apperr.KindOf(err).String()
}

func Handler() http.Handler {
	return promhttp.Handler()
}
