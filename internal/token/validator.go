package token

//go:generate mockgen -source=validator.go -destination=mocks/mocks.go -package=mocks DocumentResolver

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"dcptck/internal/crypto/keys"
	"dcptck/internal/did"
	"dcptck/internal/platform/metrics"
	"dcptck/internal/platform/tracer"
	dErrors "dcptck/pkg/domain-errors"
	"dcptck/pkg/platform/middleware/requesttime"
	platformsync "dcptck/pkg/platform/sync"
)

// Policy names reported in metrics and spans.
const (
	PolicyCredential = "credential"
	PolicyAudience   = "audience"
)

// DocumentResolver resolves the DID named in a token's kid.
type DocumentResolver interface {
	Resolve(ctx context.Context, id string) (*did.Document, error)
}

// Validator checks a JWT's structure, single use, temporal claims and
// signature against the issuer's DID document. With an audience it also
// enforces aud membership and iss == sub.
//
// The only state is the set of jti values already seen; a validator is safe
// for concurrent use.
type Validator struct {
	resolver DocumentResolver
	audience string
	policy   string
	jtiTTL   time.Duration
	jtis     *platformsync.ConsumableSet
	tracer   tracer.Tracer
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

type Option func(*Validator)

// WithJTITTL forgets recorded jti values after ttl. By default they are kept
// for the life of the validator.
func WithJTITTL(ttl time.Duration) Option {
	return func(v *Validator) {
		v.jtiTTL = ttl
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(v *Validator) {
		if t != nil {
			v.tracer = t
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(v *Validator) {
		v.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(v *Validator) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// NewCredentialValidator validates VC and VP tokens without audience checks.
func NewCredentialValidator(resolver DocumentResolver, opts ...Option) *Validator {
	return newValidator(resolver, "", PolicyCredential, opts)
}

// NewAudienceValidator validates self-issued ID tokens addressed to audience.
func NewAudienceValidator(resolver DocumentResolver, audience string, opts ...Option) *Validator {
	if audience == "" {
		panic("audience validator requires an audience")
	}
	return newValidator(resolver, audience, PolicyAudience, opts)
}

func newValidator(resolver DocumentResolver, audience, policy string, opts []Option) *Validator {
	v := &Validator{
		resolver: resolver,
		audience: audience,
		policy:   policy,
		tracer:   tracer.NewNoop(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(v)
	}
	v.jtis = platformsync.NewConsumableSet(platformsync.WithTTL(v.jtiTTL))
	return v
}

// Sweep forgets jti values older than the configured TTL and reports how
// many were dropped.
func (v *Validator) Sweep() int {
	return v.jtis.Sweep()
}

// Audience returns the DID this validator requires in aud, "" for the
// credential policy.
func (v *Validator) Audience() string {
	return v.audience
}

// Validate runs every check in order and stops at the first failure.
// Failures are bad requests unless DID resolution reports otherwise.
func (v *Validator) Validate(ctx context.Context, raw string) (tok *Token, err error) {
	ctx, span := v.tracer.Start(ctx, tracer.SpanTokenValidate, tracer.String(tracer.AttrPolicy, v.policy))
	defer func() {
		span.End(err)
		if v.metrics != nil {
			v.metrics.ObserveTokenValidation(v.policy, err == nil)
		}
	}()

	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	parsed, parts, err := parser.ParseUnverified(raw, claims)
	if err != nil {
		return nil, invalid("Invalid JWT: " + err.Error())
	}
	sig, err := parser.DecodeSegment(parts[2])
	if err != nil {
		return nil, invalid("Invalid JWT: " + err.Error())
	}

	if v.audience != "" {
		if err := v.checkBinding(claims); err != nil {
			return nil, err
		}
	}

	jti, _ := claims["jti"].(string)
	if jti == "" {
		return nil, invalid("JTI not specified")
	}
	span.SetAttributes(tracer.String(tracer.AttrJTIHash, tracer.HashToken(jti)))
	if !v.jtis.Claim(jti) {
		return nil, invalid("JTI already used")
	}

	if err := checkTimes(claims, requesttime.Now(ctx)); err != nil {
		return nil, err
	}

	kid, _ := parsed.Header["kid"].(string)
	span.SetAttributes(tracer.String(tracer.AttrKID, kid))
	method, err := v.verificationMethod(ctx, kid)
	if err != nil {
		return nil, err
	}

	verifier, err := keys.VerifierForJWK(method.PublicKeyJwk)
	if err != nil {
		v.logger.WarnContext(ctx, "unusable verification method key", "kid", kid, "error", err)
		return nil, invalid("JWT verification failed")
	}
	if err := verifier.Verify(parsed.Method.Alg(), parts[0]+"."+parts[1], sig); err != nil {
		return nil, invalid("JWT verification failed")
	}

	return &Token{Raw: raw, Header: parsed.Header, Claims: claims}, nil
}

func (v *Validator) checkBinding(claims jwt.MapClaims) error {
	aud, _ := claims.GetAudience()
	if len(aud) == 0 {
		return invalid("Audience is empty")
	}
	if !slices.Contains(aud, v.audience) {
		return invalid(fmt.Sprintf("Audience does not match: [%s]", strings.Join(aud, ", ")))
	}
	iss, _ := claims.GetIssuer()
	sub, _ := claims.GetSubject()
	if iss != sub {
		return invalid("Issuer and subject do not match")
	}
	return nil
}

func checkTimes(claims jwt.MapClaims, now time.Time) error {
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return invalid("Expiration not specified")
	}
	if !now.Before(exp.Time) {
		return invalid("Token has expired")
	}

	iat, err := claims.GetIssuedAt()
	if err != nil || iat == nil {
		return invalid("IAT not specified")
	}
	if iat.After(now) {
		return invalid("Token issued in the future")
	}

	nbf, err := claims.GetNotBefore()
	if err == nil && nbf != nil && nbf.After(now) {
		return invalid("Token used before start")
	}
	return nil
}

func (v *Validator) verificationMethod(ctx context.Context, kid string) (did.VerificationMethod, error) {
	parts := strings.Split(kid, "#")
	if kid == "" || len(parts) > 2 {
		return did.VerificationMethod{}, invalid("Invalid kid: " + kid)
	}

	doc, err := v.resolver.Resolve(ctx, parts[0])
	if err != nil {
		return did.VerificationMethod{}, err
	}

	if len(parts) == 1 {
		if len(doc.VerificationMethods) != 1 {
			return did.VerificationMethod{}, invalid("Since no key id was specified, the DID document must have exactly one verification method")
		}
		return doc.VerificationMethods[0], nil
	}
	return doc.VerificationMethod("#" + parts[1])
}

func invalid(msg string) error {
	return dErrors.New(dErrors.CodeBadRequest, msg)
}
