package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	slugConflictRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "site_slug_conflict_retries_total",
			Help: "Slug candidates rejected by the unique index at write time",
		},
	)
	slugFallbackLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "site_slug_fallback_lookups_total",
			Help: "Slug lookups that missed the slug column and scanned titles, by outcome",
		},
		[]string{"outcome"},
	)
	notificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "site_notifications_total",
			Help: "Outbound notification emails by form kind and success",
		},
		[]string{"kind", "success"},
	)
)
