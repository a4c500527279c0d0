// Package httpclient builds the instrumented HTTP client used for every
// outbound call: DID document fetches, credential delivery, presentation
// queries and external STS token requests.
package httpclient

import (
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultTimeout bounds a single outbound request.
const DefaultTimeout = 10 * time.Second

// Option configures the client.
type Option func(*http.Client)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *http.Client) {
		if d > 0 {
			c.Timeout = d
		}
	}
}

// WithTransport replaces the base transport wrapped by the tracing layer.
// Tests pass httptest TLS transports through here.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *http.Client) {
		if rt != nil {
			c.Transport = rt
		}
	}
}

// New returns an http.Client whose requests emit OpenTelemetry client spans.
func New(opts ...Option) *http.Client {
	c := &http.Client{
		Timeout:   DefaultTimeout,
		Transport: http.DefaultTransport,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.Transport = otelhttp.NewTransport(c.Transport)
	return c
}
