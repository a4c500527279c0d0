// Package verifier checks verifiable presentations the way a DCP verifier
// does and hosts the verifier trigger that requests them from a holder.
package verifier

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"

	"golang.org/x/sync/errgroup"

	"dcptck/internal/message"
	"dcptck/internal/platform/metrics"
	"dcptck/internal/platform/tracer"
	"dcptck/internal/token"
	"dcptck/internal/vc"
	dErrors "dcptck/pkg/domain-errors"
	"dcptck/pkg/platform/middleware/requesttime"
)

// TokenValidator validates a signed JWT.
type TokenValidator interface {
	Validate(ctx context.Context, raw string) (*token.Token, error)
}

// RevocationChecker answers status list lookups for credentialStatus entries.
type RevocationChecker interface {
	IsRevoked(index int) bool
	Len() int
}

// PresentationVerifier verifies VP tokens and every credential inside them.
// Any failure rejects the whole presentation with 401.
type PresentationVerifier struct {
	verifierDID   string
	presentations TokenValidator
	credentials   TokenValidator
	revocation    RevocationChecker
	schemas       *SchemaValidator
	tracer        tracer.Tracer
	metrics       *metrics.Metrics
	logger        *slog.Logger
}

type Option func(*PresentationVerifier)

func WithTracer(t tracer.Tracer) Option {
	return func(v *PresentationVerifier) {
		if t != nil {
			v.tracer = t
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(v *PresentationVerifier) {
		v.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(v *PresentationVerifier) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// WithSchemas replaces the embedded schema set.
func WithSchemas(s *SchemaValidator) Option {
	return func(v *PresentationVerifier) {
		if s != nil {
			v.schemas = s
		}
	}
}

// NewPresentationVerifier builds a verifier for presentations addressed to
// verifierDID. presentations validates the VP tokens, credentials the VC
// tokens; neither should enforce an audience.
func NewPresentationVerifier(verifierDID string, presentations, credentials TokenValidator, revocation RevocationChecker, opts ...Option) *PresentationVerifier {
	v := &PresentationVerifier{
		verifierDID:   verifierDID,
		presentations: presentations,
		credentials:   credentials,
		revocation:    revocation,
		tracer:        tracer.NewNoop(),
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.schemas == nil {
		v.schemas = NewSchemaValidator()
	}
	return v
}

// VerifyResponse verifies every presentation of a PresentationResponseMessage.
func (v *PresentationVerifier) VerifyResponse(ctx context.Context, presentations []string) (err error) {
	defer func() {
		if v.metrics != nil {
			v.metrics.ObservePresentationVerification(err == nil)
		}
	}()
	if len(presentations) == 0 {
		return unauthorized("empty presentation array")
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, p := range presentations {
		g.Go(func() error {
			return v.Verify(gctx, p)
		})
	}
	return g.Wait()
}

// Verify checks one VP token and the credentials it carries.
func (v *PresentationVerifier) Verify(ctx context.Context, vpToken string) (err error) {
	ctx, span := v.tracer.Start(ctx, tracer.SpanPresentationVerify)
	defer func() { span.End(err) }()

	tok, err := v.presentations.Validate(ctx, vpToken)
	if err != nil {
		return dErrors.Recode(err, dErrors.CodeUnauthorized)
	}
	if !slices.Contains(tok.Audience(), v.verifierDID) {
		return unauthorized("missing audience: " + v.verifierDID)
	}
	holder := tok.Issuer()
	if holder != tok.Subject() {
		return unauthorized("iss != sub")
	}
	vpClaim, ok := tok.ObjectClaim(message.VPClaim)
	if !ok {
		return unauthorized("missing 'vp' claim")
	}
	vp, err := vc.DecodePresentation(vpClaim)
	if err != nil {
		return unauthorized("Invalid 'vp' claim: " + err.Error())
	}
	if len(vp.VerifiableCredential) == 0 {
		return unauthorized("No credentials received")
	}
	span.SetAttributes(tracer.Int(tracer.AttrCredentials, len(vp.VerifiableCredential)))

	for _, raw := range vp.VerifiableCredential {
		if err := v.verifyCredential(ctx, holder, raw); err != nil {
			v.logger.InfoContext(ctx, "credential rejected",
				"holder", holder,
				"reason", dErrors.Message(err),
			)
			return err
		}
	}
	return nil
}

func (v *PresentationVerifier) verifyCredential(ctx context.Context, holder, raw string) (err error) {
	ctx, span := v.tracer.Start(ctx, tracer.SpanCredentialVerify)
	defer func() { span.End(err) }()

	tok, err := v.credentials.Validate(ctx, raw)
	if err != nil {
		return dErrors.Recode(err, dErrors.CodeUnauthorized)
	}
	claim, ok := tok.ObjectClaim(message.VCClaim)
	if !ok {
		return unauthorized("missing 'vc' claim")
	}
	credential, err := vc.DecodeCredential(claim)
	if err != nil {
		return unauthorized("Invalid 'vc' claim: " + err.Error())
	}

	if subject, ok := credential.SubjectID(); ok && subject != holder {
		return unauthorized("Not all credential subject IDs match the holder ID")
	}

	now := requesttime.Now(ctx)
	expires, hasExpiry, err := credential.ExpiresAt()
	if err != nil {
		return unauthorized("Invalid expirationDate: " + credential.ExpirationDate)
	}
	if hasExpiry && expires.Before(now) {
		return unauthorized("Credential is expired")
	}
	issued, err := credential.IssuedAt()
	if err != nil {
		return unauthorized("Invalid issuanceDate: " + credential.IssuanceDate)
	}
	if issued.After(now) {
		return unauthorized("Credential is not yet valid")
	}

	if credential.CredentialStatus != nil {
		revoked, err := v.isRevoked(credential.CredentialStatus)
		if err != nil {
			return err
		}
		if revoked {
			return unauthorized("Credential is revoked")
		}
	}

	if credential.CredentialSchema != nil {
		if err := v.schemas.Validate(MembershipCredentialSchema, credential.CredentialSubject); err != nil {
			v.logger.DebugContext(ctx, "credential subject failed schema validation",
				"schema", credential.CredentialSchema.ID,
				"error", err,
			)
			return unauthorized("Credential schema validation failed")
		}
	}
	return nil
}

// isRevoked reads statusListIndex straight from the local status list
// rather than fetching the status list credential.
func (v *PresentationVerifier) isRevoked(status *vc.MetadataReference) (bool, error) {
	if v.revocation == nil {
		return false, nil
	}
	prop, ok := status.Property("statusListIndex")
	if !ok {
		return false, nil
	}
	index, err := strconv.Atoi(fmt.Sprint(prop))
	if err != nil || index < 0 || index >= v.revocation.Len() {
		return false, unauthorized(fmt.Sprintf("Invalid statusListIndex: %v", prop))
	}
	return v.revocation.IsRevoked(index), nil
}

func unauthorized(msg string) error {
	return dErrors.New(dErrors.CodeUnauthorized, msg)
}
