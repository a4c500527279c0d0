package verifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"dcptck/internal/did"
	"dcptck/internal/message"
	"dcptck/internal/platform/tracer"
	dErrors "dcptck/pkg/domain-errors"
	"dcptck/pkg/platform/httpclient"
	"dcptck/pkg/platform/httputil"
	"dcptck/pkg/platform/middleware/requesttime"
)

// IDTokenLifetime is the validity of the ID token the verifier presents to
// the holder's credential service.
const IDTokenLifetime = 600 * time.Second

const maxResponseBytes = 4 << 20

// Signer signs JWT claims with the verifier key.
type Signer interface {
	Sign(extraHeaders map[string]string, claims jwt.MapClaims) (string, error)
}

// DocumentResolver resolves the holder DID to find its credential service.
type DocumentResolver interface {
	Resolve(ctx context.Context, id string) (*did.Document, error)
}

// RemoteStatusError carries a non-2xx answer from the holder's credential
// service back to the trigger caller unchanged.
type RemoteStatusError struct {
	StatusCode int
	Status     string
}

func (e *RemoteStatusError) Error() string {
	return fmt.Sprintf("credential service answered %d: %s", e.StatusCode, e.Status)
}

// Trigger drives a presentation exchange: given an ID token from a holder it
// queries the holder's credential service for a membership presentation and
// verifies the answer.
type Trigger struct {
	verifierDID string
	idTokens    TokenValidator
	signer      Signer
	resolver    DocumentResolver
	verifier    *PresentationVerifier
	client      *http.Client
	tracer      tracer.Tracer
	logger      *slog.Logger
}

type TriggerOption func(*Trigger)

func WithHTTPClient(c *http.Client) TriggerOption {
	return func(t *Trigger) {
		if c != nil {
			t.client = c
		}
	}
}

func WithTriggerTracer(tr tracer.Tracer) TriggerOption {
	return func(t *Trigger) {
		if tr != nil {
			t.tracer = tr
		}
	}
}

func WithTriggerLogger(logger *slog.Logger) TriggerOption {
	return func(t *Trigger) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewTrigger wires a trigger. idTokens must require the verifier DID as
// audience.
func NewTrigger(verifierDID string, idTokens TokenValidator, signer Signer, resolver DocumentResolver, verifier *PresentationVerifier, opts ...TriggerOption) *Trigger {
	t := &Trigger{
		verifierDID: verifierDID,
		idTokens:    idTokens,
		signer:      signer,
		resolver:    resolver,
		verifier:    verifier,
		client:      httpclient.New(),
		tracer:      tracer.NewNoop(),
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Run performs the exchange for the holder that signed idToken.
//
// Token, transport and verification failures are unauthorized; a non-2xx
// answer from the credential service is returned as *RemoteStatusError.
func (t *Trigger) Run(ctx context.Context, idToken string) (err error) {
	ctx, span := t.tracer.Start(ctx, tracer.SpanVerifierTrigger)
	defer func() { span.End(err) }()

	tok, err := t.idTokens.Validate(ctx, idToken)
	if err != nil {
		return dErrors.Recode(err, dErrors.CodeUnauthorized)
	}
	accessToken := tok.StringClaim(message.TokenClaim)
	bearerDID := tok.Issuer()
	span.SetAttributes(tracer.String(tracer.AttrDID, bearerDID))

	verifierToken, err := t.signIDToken(ctx, accessToken, bearerDID)
	if err != nil {
		return err
	}
	endpoint, err := t.credentialService(ctx, bearerDID)
	if err != nil {
		return dErrors.Recode(err, dErrors.CodeUnauthorized)
	}

	resp, err := t.query(ctx, endpoint+message.PresentationQueryPath, verifierToken)
	if err != nil {
		return err
	}
	return t.verifier.VerifyResponse(ctx, resp.Presentation)
}

func (t *Trigger) signIDToken(ctx context.Context, accessToken, audience string) (string, error) {
	now := requesttime.Now(ctx)
	claims := jwt.MapClaims{
		"iss":              t.verifierDID,
		"sub":              t.verifierDID,
		"aud":              audience,
		"jti":              uuid.NewString(),
		"iat":              now.Unix(),
		"exp":              now.Add(IDTokenLifetime).Unix(),
		message.TokenClaim: accessToken,
	}
	signed, err := t.signer.Sign(nil, claims)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "Error signing verifier ID token")
	}
	return signed, nil
}

func (t *Trigger) credentialService(ctx context.Context, holderDID string) (string, error) {
	doc, err := t.resolver.Resolve(ctx, holderDID)
	if err != nil {
		return "", err
	}
	svc, err := doc.Service(message.CredentialServiceType)
	if err != nil {
		return "", err
	}
	return svc.ServiceEndpoint, nil
}

func (t *Trigger) query(ctx context.Context, url, bearer string) (*message.PresentationResponseMessage, error) {
	body, err := json.Marshal(message.NewPresentationQuery(message.MembershipScope))
	if err != nil {
		return nil, fmt.Errorf("encode presentation query: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, err.Error())
	}
	req.Header.Set("Content-Type", httputil.ContentTypeJSON)
	req.Header.Set(message.AuthorizationHeader, "Bearer "+bearer)

	res, err := t.client.Do(req)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, err.Error())
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		t.logger.InfoContext(ctx, "presentation query rejected",
			"url", url,
			"status", res.StatusCode,
		)
		return nil, &RemoteStatusError{StatusCode: res.StatusCode, Status: http.StatusText(res.StatusCode)}
	}

	data, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, err.Error())
	}
	msg, err := message.Decode[message.PresentationResponseMessage](data)
	if err != nil {
		return nil, dErrors.Recode(err, dErrors.CodeUnauthorized)
	}
	return msg, nil
}
