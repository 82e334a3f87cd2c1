package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchmap_request_transitions_total",
			Help: "Lifecycle status transitions applied to analysis requests",
		},
		[]string{"to"},
	)

	RequestsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchmap_requests_created_total",
			Help: "Analysis requests created, by initial status",
		},
		[]string{"status"},
	)

	BillingDenied = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matchmap_billing_denied_total",
			Help: "Request creations rejected by the billing gate",
		},
	)

	WorkflowTriggers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchmap_workflow_triggers_total",
			Help: "Workflow trigger attempts by outcome",
		},
		[]string{"outcome"},
	)

	WorkflowTriggerDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "matchmap_workflow_trigger_duration_seconds",
			Help:    "Latency of the synchronous workflow trigger call",
			Buckets: prometheus.DefBuckets,
		},
	)

	Callbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchmap_callbacks_total",
			Help: "Workflow callbacks received by outcome",
		},
		[]string{"outcome"},
	)

	RequestsExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matchmap_requests_expired_total",
			Help: "Requests failed by the stale request sweep",
		},
	)

	DBQueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "matchmap_db_query_duration_seconds",
			Help:    "Duration of SQL statements issued through the pgx pool",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchmap_http_requests_total",
			Help: "HTTP requests served by method and status",
		},
		[]string{"method", "status"},
	)

	WSClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "matchmap_ws_clients",
			Help: "Connected dashboard websocket clients",
		},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchmap_cache_lookups_total",
			Help: "Membership cache lookups by result",
		},
		[]string{"result"},
	)
)

// Outcome labels shared by the counters above.
const (
	OutcomeSuccess      = "success"
	OutcomeFailure      = "failure"
	OutcomeBadSignature = "bad_signature"
	OutcomeInvalid      = "invalid"
	OutcomeNotFound     = "not_found"

	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)
