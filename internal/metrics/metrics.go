package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// Voting
	MetricVotesCast        = "urna_votes_cast_total"
	MetricVoteRejections   = "urna_vote_rejections_total"
	MetricCastVoteDuration = "urna_cast_vote_duration_seconds"
	// Policy
	MetricPolicyDenials = "urna_policy_denials_total"
	// Notifications
	MetricNotificationsPublished = "urna_notifications_published_total"
	MetricNotificationsFailed    = "urna_notifications_failed_total"
	// Bulk tally
	MetricTallyAdjustments = "urna_tally_adjustments_total"
)

// MetricService owns the registry exposed on /metrics
type MetricService struct {
	MetricsMap map[string]prometheus.Collector
	registry   *prometheus.Registry
}

func NewMetricService() *MetricService {
	ms := make(map[string]prometheus.Collector)
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Voting
	votesCastMetric := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricVotesCast,
		Help: "Ballots committed to storage",
	})
	ms[MetricVotesCast] = votesCastMetric
	reg.MustRegister(votesCastMetric)

	voteRejectionsMetric := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: MetricVoteRejections,
		Help: "Cast attempts rejected, by error kind",
	}, []string{"kind"})
	ms[MetricVoteRejections] = voteRejectionsMetric
	reg.MustRegister(voteRejectionsMetric)

	castVoteDurationMetric := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    MetricCastVoteDuration,
		Help:    "Duration of the cast vote operation",
		Buckets: prometheus.DefBuckets,
	})
	ms[MetricCastVoteDuration] = castVoteDurationMetric
	reg.MustRegister(castVoteDurationMetric)

	// Policy
	policyDenialsMetric := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: MetricPolicyDenials,
		Help: "Authorization denials, by resource and action",
	}, []string{"resource", "action"})
	ms[MetricPolicyDenials] = policyDenialsMetric
	reg.MustRegister(policyDenialsMetric)

	// Notifications
	notificationsPublishedMetric := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: MetricNotificationsPublished,
		Help: "Change notifications published, by backend",
	}, []string{"backend"})
	ms[MetricNotificationsPublished] = notificationsPublishedMetric
	reg.MustRegister(notificationsPublishedMetric)

	notificationsFailedMetric := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: MetricNotificationsFailed,
		Help: "Change notifications that could not be published after retries",
	}, []string{"backend"})
	ms[MetricNotificationsFailed] = notificationsFailedMetric
	reg.MustRegister(notificationsFailedMetric)

	// Bulk tally
	tallyAdjustmentsMetric := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: MetricTallyAdjustments,
		Help: "Administrative tally operations, by kind",
	}, []string{"kind"})
	ms[MetricTallyAdjustments] = tallyAdjustmentsMetric
	reg.MustRegister(tallyAdjustmentsMetric)

	return &MetricService{
		MetricsMap: ms,
		registry:   reg,
	}
}

// Handler serves the registry in the Prometheus text format
func (m *MetricService) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry, mainly for tests
func (m *MetricService) Registry() *prometheus.Registry {
	return m.registry
}

// Voting
func (m *MetricService) IncVotesCast() {
	if m == nil {
		return
	}
	m.MetricsMap[MetricVotesCast].(prometheus.Counter).Inc()
}

func (m *MetricService) IncVoteRejection(kind string) {
	if m == nil {
		return
	}
	m.MetricsMap[MetricVoteRejections].(*prometheus.CounterVec).WithLabelValues(kind).Inc()
}

func (m *MetricService) ObserveCastVoteDuration(duration time.Duration) {
	if m == nil {
		return
	}
	m.MetricsMap[MetricCastVoteDuration].(prometheus.Histogram).Observe(duration.Seconds())
}

// Policy
func (m *MetricService) IncPolicyDenial(resource, action string) {
	if m == nil {
		return
	}
	m.MetricsMap[MetricPolicyDenials].(*prometheus.CounterVec).WithLabelValues(resource, action).Inc()
}

// Notifications
func (m *MetricService) IncNotificationPublished(backend string) {
	if m == nil {
		return
	}
	m.MetricsMap[MetricNotificationsPublished].(*prometheus.CounterVec).WithLabelValues(backend).Inc()
}

func (m *MetricService) IncNotificationFailed(backend string) {
	if m == nil {
		return
	}
	m.MetricsMap[MetricNotificationsFailed].(*prometheus.CounterVec).WithLabelValues(backend).Inc()
}

// Bulk tally
func (m *MetricService) IncTallyAdjustment(kind string) {
	if m == nil {
		return
	}
	m.MetricsMap[MetricTallyAdjustments].(*prometheus.CounterVec).WithLabelValues(kind).Inc()
}
