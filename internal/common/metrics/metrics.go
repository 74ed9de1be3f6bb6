package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	joinOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "giveaway",
			Subsystem: "participation",
			Name:      "join_outcomes_total",
			Help:      "Join attempts by outcome.",
		},
		[]string{"outcome"},
	)

	lockContention = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "giveaway",
			Subsystem: "participation",
			Name:      "lock_contention_total",
			Help:      "Coordination lock acquisitions that timed out.",
		},
		[]string{"scope"},
	)

	rejectedReferrals = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "giveaway",
			Subsystem: "participation",
			Name:      "rejected_referrals_total",
			Help:      "Self or circular referrals dropped at registration.",
		},
	)

	bonusGrants = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "giveaway",
			Subsystem: "bonus",
			Name:      "grants_total",
			Help:      "Bonus grant attempts by category and result.",
		},
		[]string{"category", "granted"},
	)

	draws = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "giveaway",
			Subsystem: "draw",
			Name:      "completed_total",
			Help:      "Finished draws by resulting giveaway status.",
		},
		[]string{"status"},
	)

	drawWinners = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "giveaway",
			Subsystem: "draw",
			Name:      "winners",
			Help:      "Number of winners selected per draw.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		},
	)
)

func init() {
	Registry.MustRegister(joinOutcomes, lockContention, rejectedReferrals, bonusGrants, draws, drawWinners)
}

// Handler exposes the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

func RecordJoin(outcome string) {
	joinOutcomes.WithLabelValues(outcome).Inc()
}

func RecordLockContention(scope string) {
	lockContention.WithLabelValues(scope).Inc()
}

func RecordRejectedReferral() {
	rejectedReferrals.Inc()
}

func RecordBonusGrant(category string, granted bool) {
	bonusGrants.WithLabelValues(category, strconv.FormatBool(granted)).Inc()
}

func RecordDraw(status string, winners int) {
	draws.WithLabelValues(status).Inc()
	drawWinners.Observe(float64(winners))
}
