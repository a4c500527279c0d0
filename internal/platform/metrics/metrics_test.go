package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveTokenValidation("audience", true)
	m.ObserveTokenValidation("audience", false)
	m.ObserveTokenValidation("audience", false)
	m.ObserveDIDResolution(OutcomeCacheHit)
	m.ObservePresentationVerification(true)
	m.IncrementCredentialsIssued("MembershipCredential")
	m.ObserveCredentialDelivery(false)
	m.IncrementRevocations()

	assert.InDelta(t, 1, testutil.ToFloat64(m.TokenValidations.WithLabelValues("audience", OutcomeSuccess)), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.TokenValidations.WithLabelValues("audience", OutcomeFailure)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.DIDResolutions.WithLabelValues(OutcomeCacheHit)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.PresentationVerifications.WithLabelValues(OutcomeSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.CredentialsIssued.WithLabelValues("MembershipCredential")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.CredentialDeliveries.WithLabelValues(OutcomeFailure)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Revocations), 0)
}

func TestMetrics_EndpointLatency(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveEndpointLatency("/presentations/query", 0.02)

	count, err := testutil.GatherAndCount(reg, "dcptck_endpoint_latency_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNew_SeparateRegistriesDoNotCollide(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}
