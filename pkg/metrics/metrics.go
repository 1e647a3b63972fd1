package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Record metrics
	RecordsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "omzet_records_total",
			Help: "Total number of records by collection and status",
		},
		[]string{"collection", "status"},
	)

	RecordsAssigned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "omzet_records_assigned_total",
			Help: "Total number of records handed out to staff",
		},
	)

	AssignShortfalls = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "omzet_assign_shortfalls_total",
			Help: "Total number of assignment requests satisfied only partially",
		},
	)

	// Reservation metrics
	ReservationsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "omzet_reservations_total",
			Help: "Total number of reservations by status",
		},
		[]string{"status"},
	)

	ReservationsExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "omzet_reservations_expired_total",
			Help: "Total number of reservations expired by the grace-period sweep",
		},
	)

	ResolverMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "omzet_resolver_mutations_total",
			Help: "Total number of record mutations applied by the conflict resolver",
		},
		[]string{"action"},
	)

	// Deposit metrics
	DepositsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "omzet_deposits_total",
			Help: "Total number of deposits in the ledger",
		},
	)

	DepositsWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "omzet_deposits_written_total",
			Help: "Total number of deposit mutations by operation",
		},
		[]string{"operation"},
	)

	ClassificationFlips = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "omzet_classification_flips_total",
			Help: "Total number of deposits whose customer type changed on recompute",
		},
	)

	// Report metrics
	ReportBuildDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "omzet_report_build_duration_seconds",
			Help:    "Daily report build duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	InvariantViolations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "omzet_invariant_violations_total",
			Help: "Total number of consistency violations detected",
		},
	)

	// Repair metrics
	RepairRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "omzet_repair_runs_total",
			Help: "Total number of repair runs by outcome",
		},
		[]string{"outcome"},
	)

	// Scheduler metrics
	ScheduledJobRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "omzet_scheduled_job_runs_total",
			Help: "Total number of scheduled job runs by job and outcome",
		},
		[]string{"job", "outcome"},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "omzet_api_requests_total",
			Help: "Total number of API requests by method and status",
		},
		[]string{"method", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "omzet_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(RecordsTotal)
	prometheus.MustRegister(RecordsAssigned)
	prometheus.MustRegister(AssignShortfalls)
	prometheus.MustRegister(ReservationsTotal)
	prometheus.MustRegister(ReservationsExpired)
	prometheus.MustRegister(ResolverMutations)
	prometheus.MustRegister(DepositsTotal)
	prometheus.MustRegister(DepositsWritten)
	prometheus.MustRegister(ClassificationFlips)
	prometheus.MustRegister(ReportBuildDuration)
	prometheus.MustRegister(InvariantViolations)
	prometheus.MustRegister(RepairRuns)
	prometheus.MustRegister(ScheduledJobRuns)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
