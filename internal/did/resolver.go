package did

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/bluele/gcache"
	"golang.org/x/sync/singleflight"

	"dcptck/internal/platform/metrics"
	"dcptck/internal/platform/tracer"
	dErrors "dcptck/pkg/domain-errors"
	"dcptck/pkg/platform/circuit"
	"dcptck/pkg/platform/httpclient"
)

const (
	defaultCacheSize = 256
	maxDocumentBytes = 1 << 20
)

// Resolver fetches did:web documents over HTTP.
//
// Caching is off unless WithCache is given. Concurrent resolutions of the
// same document share one request, and a host that keeps failing is
// short-circuited by its breaker until the cooldown passes.
type Resolver struct {
	scheme   string
	client   *http.Client
	cache    gcache.Cache
	flight   singleflight.Group
	breakers *circuit.Group
	tracer   tracer.Tracer
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithHTTPS selects https (true) or http (false) document URLs.
func WithHTTPS(https bool) Option {
	return func(r *Resolver) {
		if https {
			r.scheme = "https"
		} else {
			r.scheme = "http"
		}
	}
}

// WithHTTPClient replaces the default instrumented client.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Resolver) {
		if c != nil {
			r.client = c
		}
	}
}

// WithCache enables an LRU document cache whose entries expire after ttl.
// A non-positive ttl leaves caching disabled.
func WithCache(ttl time.Duration, size int) Option {
	return func(r *Resolver) {
		if ttl <= 0 {
			return
		}
		if size <= 0 {
			size = defaultCacheSize
		}
		r.cache = gcache.New(size).LRU().Expiration(ttl).Build()
	}
}

// WithBreakers sets the per-host circuit breakers.
func WithBreakers(g *circuit.Group) Option {
	return func(r *Resolver) {
		if g != nil {
			r.breakers = g
		}
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(r *Resolver) {
		if t != nil {
			r.tracer = t
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver creates a resolver using https by default.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		scheme:   "https",
		client:   httpclient.New(),
		breakers: circuit.NewGroup(),
		tracer:   tracer.NewNoop(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Breakers exposes the per-host breakers for readiness reporting.
func (r *Resolver) Breakers() *circuit.Group {
	return r.breakers
}

// Resolve returns the document for did.
//
// Transport failures and non-2xx responses are internal errors; a body that
// is not a DID document is a bad request.
func (r *Resolver) Resolve(ctx context.Context, did string) (doc *Document, err error) {
	ctx, span := r.tracer.Start(ctx, tracer.SpanDIDResolve, tracer.String(tracer.AttrDID, did))
	defer func() { span.End(err) }()

	address, err := URLFromDID(did, r.scheme)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(tracer.String(tracer.AttrURL, address))

	if r.cache != nil {
		if cached, cacheErr := r.cache.Get(address); cacheErr == nil {
			span.SetAttributes(tracer.Bool(tracer.AttrCacheHit, true))
			r.observe(metrics.OutcomeCacheHit)
			return cached.(*Document), nil
		}
	}

	// The shared fetch outlives any single caller: a cancelled caller stops
	// waiting but the others still get the document.
	ch := r.flight.DoChan(address, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.fetchTimeout())
		defer cancel()
		return r.fetch(fetchCtx, address)
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, dErrors.Wrap(ctx.Err(), dErrors.CodeInternal, "Error resolving DID document")
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}
	doc = res.Val.(*Document)
	if r.cache != nil {
		_ = r.cache.Set(address, doc)
	}
	return doc, nil
}

func (r *Resolver) fetchTimeout() time.Duration {
	if r.client.Timeout > 0 {
		return r.client.Timeout
	}
	return httpclient.DefaultTimeout
}

// fetch guards get with the host's breaker. Only answers that say the host
// is unhealthy count against it; a 404 for one document leaves the other
// documents on the same host resolvable.
func (r *Resolver) fetch(ctx context.Context, address string) (*Document, error) {
	breaker := r.breakers.Get(hostOf(address))
	if !breaker.Allow() {
		r.observe(metrics.OutcomeCircuitOpen)
		return nil, dErrors.Newf(dErrors.CodeInternal, "DID host unavailable: %s", breaker.Name())
	}

	doc, hostDown, err := r.get(ctx, address)
	switch {
	case err == nil:
		if change := breaker.RecordSuccess(); change.Closed {
			r.logger.InfoContext(ctx, "circuit breaker closed", "circuit", breaker.Name())
		}
		r.observe(metrics.OutcomeSuccess)
	case hostDown:
		if change := breaker.RecordFailure(); change.Opened {
			r.logger.ErrorContext(ctx, "circuit breaker opened", "circuit", breaker.Name(), "error", err)
		}
		r.observe(metrics.OutcomeFailure)
	default:
		r.observe(metrics.OutcomeFailure)
	}
	return doc, err
}

// get fetches and parses one document. hostDown reports transport errors,
// unreadable bodies and 5xx answers.
func (r *Resolver) get(ctx context.Context, address string) (doc *Document, hostDown bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, address, nil)
	if err != nil {
		return nil, false, dErrors.Wrap(err, dErrors.CodeBadRequest, "Invalid DID document URL: "+address)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, !errors.Is(err, context.Canceled), dErrors.Wrap(err, dErrors.CodeInternal, "Error resolving DID document")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode >= 500, dErrors.Newf(dErrors.CodeInternal, "Unexpected response: %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return nil, !errors.Is(err, context.Canceled), dErrors.Wrap(err, dErrors.CodeInternal, "Error reading DID document")
	}
	doc = &Document{}
	if err := json.Unmarshal(body, doc); err != nil {
		return nil, false, dErrors.Wrap(fmt.Errorf("parse %s: %w", address, err), dErrors.CodeBadRequest, "Invalid DID document")
	}
	return doc, false, nil
}

func (r *Resolver) observe(outcome string) {
	if r.metrics != nil {
		r.metrics.ObserveDIDResolution(outcome)
	}
}
