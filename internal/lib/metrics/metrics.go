// Package metrics счётчики Prometheus, общие для HTTP-слоя и сервисов.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestDuration длительность HTTP-запросов по маршруту, методу и коду ответа.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wisepicks_http_request_duration_seconds",
		Help:    "Duration of HTTP requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method", "status"})

	RegistrationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wisepicks_registrations_total",
		Help: "Total number of successful registrations.",
	})
	LoginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wisepicks_logins_total",
		Help: "Login attempts by outcome.",
	}, []string{"outcome"})
	TipsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wisepicks_tips_created_total",
		Help: "Total number of published tips.",
	})
	CheckoutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wisepicks_checkouts_total",
		Help: "Checkouts started by plan.",
	}, []string{"plan"})
	PremiumActivationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wisepicks_premium_activations_total",
		Help: "Premium activations by source.",
	}, []string{"source"})
	AdminActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wisepicks_admin_actions_total",
		Help: "Successful admin moderation actions.",
	}, []string{"action"})
	RateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wisepicks_rate_limited_requests_total",
		Help: "Requests rejected by the rate limiter.",
	})
)
