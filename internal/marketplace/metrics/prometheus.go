package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	startTime = time.Now()

	// UptimeSeconds tracks the service uptime in seconds
	UptimeSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "bountyhive",
		Subsystem: "marketplace",
		Name:      "uptime_seconds",
		Help:      "Time passed since the marketplace service started in seconds",
	})

	// TasksCreated counts created tasks by type
	TasksCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bountyhive",
		Subsystem: "marketplace",
		Name:      "tasks_created_total",
		Help:      "Total number of tasks created",
	}, []string{"task_type"})

	// TaskTransitions counts lifecycle transitions by edge
	TaskTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bountyhive",
		Subsystem: "marketplace",
		Name:      "task_transitions_total",
		Help:      "Total number of task status transitions",
	}, []string{"from", "to"})

	// SubmissionsReceived counts accepted submissions
	SubmissionsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bountyhive",
		Subsystem: "marketplace",
		Name:      "submissions_received_total",
		Help:      "Total number of submissions accepted",
	})

	// ChallengesFiled counts accepted challenge filings
	ChallengesFiled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bountyhive",
		Subsystem: "marketplace",
		Name:      "challenges_filed_total",
		Help:      "Total number of challenges filed",
	})

	// BallotsCast counts cast jury ballots
	BallotsCast = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bountyhive",
		Subsystem: "marketplace",
		Name:      "ballots_cast_total",
		Help:      "Total number of jury ballots cast",
	})

	// SettlementsRecorded counts settlements by terminal status
	SettlementsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bountyhive",
		Subsystem: "marketplace",
		Name:      "settlements_recorded_total",
		Help:      "Total number of settlement records written",
	}, []string{"status"})

	// SweepDuration observes scheduler sweep latency
	SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "bountyhive",
		Subsystem: "marketplace",
		Name:      "scheduler_sweep_duration_seconds",
		Help:      "Duration of scheduler lifecycle sweeps",
		Buckets:   prometheus.DefBuckets,
	})

	// SweepErrors counts failed per-task sweep operations by phase
	SweepErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bountyhive",
		Subsystem: "marketplace",
		Name:      "scheduler_sweep_errors_total",
		Help:      "Total number of failed sweep operations",
	}, []string{"phase"})

	// EscrowCalls counts payment rail calls by operation and result
	EscrowCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bountyhive",
		Subsystem: "marketplace",
		Name:      "escrow_calls_total",
		Help:      "Total number of payment rail calls",
	}, []string{"operation", "status"})

	// OracleCalls counts scoring oracle calls by result
	OracleCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bountyhive",
		Subsystem: "marketplace",
		Name:      "oracle_calls_total",
		Help:      "Total number of scoring oracle calls",
	}, []string{"status"})
)
