package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PollsTotal      = promauto.NewCounter(prometheus.CounterOpts{Namespace: "carwatch", Name: "polls_total", Help: "Successful feed polls"})
	PollErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: "carwatch", Name: "poll_errors_total", Help: "Failed feed polls (retried)"})
	MatchesTotal    = promauto.NewCounter(prometheus.CounterOpts{Namespace: "carwatch", Name: "matches_total", Help: "Terminal matches emitted by search sessions"})

	SubscriptionsActive     = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "carwatch", Name: "subscriptions_active", Help: "Background subscriptions currently polling"})
	NotificationsSentTotal  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "carwatch", Name: "notifications_sent_total", Help: "Push notifications handed off successfully"})
	NotificationErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: "carwatch", Name: "notification_errors_total", Help: "Push handoffs rejected by the transport"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "carwatch", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "carwatch",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
