// Package tracer provides a lightweight tracing abstraction for the
// verification engine.
//
// Resolution, token validation and presentation verification open spans
// through this interface, so the packages never import OpenTelemetry
// directly. NoopTracer serves tests; OTelTracer serves the running server.
package tracer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Span represents an active trace span.
type Span interface {
	// End completes the span, recording any error that occurred.
	// End must be called exactly once, typically via defer.
	End(err error)

	// SetAttributes adds key-value pairs to the span.
	SetAttributes(attrs ...Attribute)

	// AddEvent records a timestamped event within the span.
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans for distributed tracing.
// Implementations must be safe for concurrent use.
type Tracer interface {
	// Start creates a new span with the given name and attributes.
	//
	// Example:
	//   ctx, span := tr.Start(ctx, tracer.SpanDIDResolve,
	//       tracer.String(tracer.AttrDID, did),
	//   )
	//   defer span.End(err)
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute represents a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

// String creates a string attribute.
func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

// Bool creates a boolean attribute.
func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

// Int64 creates an int64 attribute.
func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Int creates an int attribute.
func Int(key string, value int) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration creates a duration attribute in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// HashToken returns a short SHA-256 digest of a token or jti so traces can be
// correlated without recording bearer material.
func HashToken(token string) string {
	if token == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:8])
}

// Span names.
const (
	SpanDIDResolve           = "did.resolve"
	SpanTokenValidate        = "token.validate"
	SpanPresentationVerify   = "presentation.verify"
	SpanCredentialVerify     = "presentation.credential"
	SpanPresentationQuery    = "cs.presentation_query"
	SpanCredentialDelivery   = "issuer.deliver"
	SpanVerifierTrigger      = "verifier.trigger"
	SpanExternalTokenRequest = "sts.external_token"
)

// Attribute keys.
const (
	AttrDID         = "did"
	AttrURL         = "url"
	AttrCacheHit    = "cache.hit"
	AttrJTIHash     = "jti_hash"
	AttrKID         = "kid"
	AttrPolicy      = "policy"
	AttrCredentials = "credentials"
	AttrStatusCode  = "http.status_code"
)
