package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values shared by the counters below.
const (
	OutcomeSuccess     = "success"
	OutcomeFailure     = "failure"
	OutcomeCacheHit    = "cache_hit"
	OutcomeCircuitOpen = "circuit_open"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	TokenValidations          *prometheus.CounterVec
	DIDResolutions            *prometheus.CounterVec
	PresentationVerifications *prometheus.CounterVec
	CredentialsIssued         *prometheus.CounterVec
	CredentialDeliveries      *prometheus.CounterVec
	Revocations               prometheus.Counter
	EndpointLatency           *prometheus.HistogramVec
}

// New creates all metrics and registers them with reg. A nil reg uses the
// default Prometheus registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		TokenValidations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dcptck_token_validations_total",
			Help: "Token validations, labeled by policy and outcome",
		}, []string{"policy", "outcome"}),
		DIDResolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dcptck_did_resolutions_total",
			Help: "did:web resolutions, labeled by outcome",
		}, []string{"outcome"}),
		PresentationVerifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dcptck_presentation_verifications_total",
			Help: "Verifiable presentation verifications, labeled by outcome",
		}, []string{"outcome"}),
		CredentialsIssued: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dcptck_credentials_issued_total",
			Help: "Credentials generated by the issuer, labeled by credential type",
		}, []string{"credential_type"}),
		CredentialDeliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dcptck_credential_deliveries_total",
			Help: "Asynchronous credential deliveries to holders, labeled by outcome",
		}, []string{"outcome"}),
		Revocations: factory.NewCounter(prometheus.CounterOpts{
			Name: "dcptck_revocations_total",
			Help: "Status list entries marked revoked",
		}),
		EndpointLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dcptck_endpoint_latency_seconds",
			Help:    "Latency of endpoints in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
}

func outcome(ok bool) string {
	if ok {
		return OutcomeSuccess
	}
	return OutcomeFailure
}

// ObserveTokenValidation counts a validation for the named policy.
func (m *Metrics) ObserveTokenValidation(policy string, ok bool) {
	m.TokenValidations.WithLabelValues(policy, outcome(ok)).Inc()
}

// ObserveDIDResolution counts a resolution with an explicit outcome label.
func (m *Metrics) ObserveDIDResolution(result string) {
	m.DIDResolutions.WithLabelValues(result).Inc()
}

func (m *Metrics) ObservePresentationVerification(ok bool) {
	m.PresentationVerifications.WithLabelValues(outcome(ok)).Inc()
}

func (m *Metrics) IncrementCredentialsIssued(credentialType string) {
	m.CredentialsIssued.WithLabelValues(credentialType).Inc()
}

func (m *Metrics) ObserveCredentialDelivery(ok bool) {
	m.CredentialDeliveries.WithLabelValues(outcome(ok)).Inc()
}

func (m *Metrics) IncrementRevocations() {
	m.Revocations.Inc()
}

// ObserveEndpointLatency records the latency for a given endpoint
func (m *Metrics) ObserveEndpointLatency(endpoint string, durationSeconds float64) {
	m.EndpointLatency.WithLabelValues(endpoint).Observe(durationSeconds)
}
