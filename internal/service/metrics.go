package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	applyTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "giapha_apply_total",
		Help: "Apply outcomes by result (applied, skipped, failed).",
	}, []string{"result"})

	contributionsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "giapha_contributions_submitted_total",
		Help: "Contributions accepted into the moderation queue.",
	})

	contributionsReviewed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "giapha_contributions_reviewed_total",
		Help: "Review decisions by status.",
	}, []string{"status"})
)
