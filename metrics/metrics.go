package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Intake metrics
	CasesCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "case_registry_cases_created_total",
			Help: "Total number of cases registered",
		},
		[]string{"type", "channel"},
	)

	CodeCollisions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "case_registry_code_collisions_total",
			Help: "Total number of intake retries caused by a duplicate case code",
		},
	)

	// Lifecycle metrics
	StatusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "case_registry_status_transitions_total",
			Help: "Total number of case status transitions",
		},
		[]string{"from", "to"},
	)

	TrackingEntriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "case_registry_tracking_entries_total",
			Help: "Total number of tracking entries written",
		},
	)

	OverdueCases = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "case_registry_overdue_cases",
			Help: "Open cases past their due date, as of the last scan",
		},
		[]string{"type"},
	)

	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "case_registry_operation_duration_seconds",
			Help:    "Duration of case lifecycle operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Attachment and notification metrics
	AttachmentsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "case_registry_attachments_recorded_total",
			Help: "Total number of attachments recorded",
		},
		[]string{"category"},
	)

	CertificatesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "case_registry_certificates_sent_total",
			Help: "Total number of certificate emails attempted",
		},
		[]string{"trigger", "result"},
	)

	// HTTP metrics
	RateLimitedRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "case_registry_rate_limited_requests_total",
			Help: "Total number of requests rejected by a rate limiter",
		},
		[]string{"limiter"},
	)
)

// Channel labels for CasesCreated
const (
	ChannelPublic = "public"
	ChannelStaff  = "staff"
)

// Trigger labels for CertificatesSent
const (
	TriggerExplicit  = "explicit"
	TriggerAutomatic = "automatic"
)

// Result returns the label value for an operation outcome
func Result(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
