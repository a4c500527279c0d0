// Package cs is the holder's credential service: it answers presentation
// queries, stores credentials delivered by issuers and records offers.
package cs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"dcptck/internal/did"
	"dcptck/internal/message"
	"dcptck/internal/platform/tracer"
	"dcptck/internal/sts"
	"dcptck/internal/token"
	"dcptck/internal/vc"
	dErrors "dcptck/pkg/domain-errors"
	"dcptck/pkg/platform/httpclient"
	"dcptck/pkg/platform/httputil"
)

const maxResponseBytes = 1 << 20

// scopePattern splits a DCP scope into alias, credential type and access.
var scopePattern = regexp.MustCompile(`^(org\.eclipse\.dspace\.dcp\.vc\.type):(?P<type>.*):(.*)$`)

// Service is the holder credential service surface.
type Service interface {
	PresentationQuery(ctx context.Context, bearerDID, accessToken string, msg *message.PresentationQueryMessage) (*message.PresentationResponseMessage, error)
	WriteCredentials(ctx context.Context, idToken string, msg *message.CredentialMessage) error
	OfferCredentials(ctx context.Context, idToken string, msg *message.CredentialOfferMessage) error
	Credentials() []vc.Container
}

// TokenServer is the part of the holder STS the credential service needs.
type TokenServer interface {
	ObtainReadToken(ctx context.Context, bearerDID string, scopes []string) (string, error)
	ValidateReadToken(bearerDID, token string) ([]string, error)
	AuthorizeWrite(bearerDID, correlationID string, scopes []string)
	ValidateWrite(bearerDID, correlationID string) ([]string, error)
	ObtainWriteToken(ctx context.Context, bearerDID, audience string, signer sts.Signer) (string, error)
}

// TokenValidator validates ID tokens addressed to the holder.
type TokenValidator interface {
	Validate(ctx context.Context, raw string) (*token.Token, error)
}

// PresentationGenerator signs a presentation of credentials for audience.
type PresentationGenerator interface {
	Generate(ctx context.Context, audience string, credentials []vc.Container) (string, error)
}

// DocumentResolver finds the issuer service of an issuer DID.
type DocumentResolver interface {
	Resolve(ctx context.Context, id string) (*did.Document, error)
}

// CredentialService is the in-memory holder.
type CredentialService struct {
	holderDID string
	sts       TokenServer
	idTokens  TokenValidator
	generator PresentationGenerator
	signer    sts.Signer
	resolver  DocumentResolver
	client    *http.Client
	tracer    tracer.Tracer
	logger    *slog.Logger

	mu     sync.RWMutex
	byType map[string][]vc.Container
	offers []message.CredentialOfferMessage
}

type Option func(*CredentialService)

// WithSigner sets the holder key used for self-issued ID tokens.
func WithSigner(signer sts.Signer) Option {
	return func(s *CredentialService) {
		s.signer = signer
	}
}

// WithResolver enables RequestCredentials by locating issuer services.
func WithResolver(resolver DocumentResolver) Option {
	return func(s *CredentialService) {
		s.resolver = resolver
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(s *CredentialService) {
		if c != nil {
			s.client = c
		}
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *CredentialService) {
		if t != nil {
			s.tracer = t
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *CredentialService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewCredentialService creates a holder with an empty wallet. idTokens must
// require the holder DID as audience.
func NewCredentialService(holderDID string, tokenServer TokenServer, idTokens TokenValidator, generator PresentationGenerator, opts ...Option) *CredentialService {
	s := &CredentialService{
		holderDID: holderDID,
		sts:       tokenServer,
		idTokens:  idTokens,
		generator: generator,
		client:    httpclient.New(),
		tracer:    tracer.NewNoop(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		byType:    make(map[string][]vc.Container),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *CredentialService) HolderDID() string {
	return s.holderDID
}

// PresentationQuery answers a query from bearerDID presenting accessToken,
// a read token minted by the holder STS. The query names either scopes or a
// presentation definition.
func (s *CredentialService) PresentationQuery(ctx context.Context, bearerDID, accessToken string, msg *message.PresentationQueryMessage) (resp *message.PresentationResponseMessage, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanPresentationQuery, tracer.String(tracer.AttrDID, bearerDID))
	defer func() { span.End(err) }()

	granted, err := s.sts.ValidateReadToken(bearerDID, accessToken)
	if err != nil {
		return nil, dErrors.Recode(err, dErrors.CodeUnauthorized)
	}

	hasScope := len(msg.Scope) > 0
	hasDefinition := msg.PresentationDefinition != nil
	var selected []vc.Container
	switch {
	case hasScope && hasDefinition:
		return nil, dErrors.New(dErrors.CodeBadRequest, "Request cannot contain both a scope and presentation definition")
	case hasScope:
		selected, err = s.selectByScope(msg.Scope)
	case hasDefinition:
		selected, err = s.selectByDefinition(msg.PresentationDefinition)
	default:
		return nil, dErrors.New(dErrors.CodeBadRequest, "Request must contain a scope or presentation definition")
	}
	if err != nil {
		return nil, err
	}
	if len(selected) == 0 {
		return nil, dErrors.New(dErrors.CodeNotFound, "No credentials found")
	}
	if err := authorize(selected, granted); err != nil {
		return nil, err
	}
	span.SetAttributes(tracer.Int(tracer.AttrCredentials, len(selected)))

	vp, err := s.generator.Generate(ctx, bearerDID, selected)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "Error generating presentation")
	}
	out := message.NewPresentationResponse(vp)
	return &out, nil
}

func (s *CredentialService) selectByScope(scopes []string) ([]vc.Container, error) {
	types := make([]string, 0, len(scopes))
	for _, scope := range scopes {
		m := scopePattern.FindStringSubmatch(scope)
		if m == nil {
			return nil, dErrors.New(dErrors.CodeBadRequest, "Invalid scope type: "+scope)
		}
		types = append(types, m[scopePattern.SubexpIndex("type")])
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []vc.Container
	for _, t := range types {
		out = append(out, s.byType[t]...)
	}
	return out, nil
}

func (s *CredentialService) selectByDefinition(raw map[string]any) ([]vc.Container, error) {
	def, err := DecodePresentationDefinition(raw)
	if err != nil {
		return nil, err
	}
	return def.Select(s.Credentials())
}

// authorize requires every credential to carry a type that some granted
// scope starts with.
func authorize(credentials []vc.Container, granted []string) error {
	for _, c := range credentials {
		ok := slices.ContainsFunc(c.Credential.Type, func(typ string) bool {
			return slices.ContainsFunc(granted, func(scope string) bool {
				return strings.HasPrefix(scope, typ)
			})
		})
		if !ok {
			return dErrors.New(dErrors.CodeUnauthorized, "Access denied")
		}
	}
	return nil
}

// WriteCredentials stores credentials an issuer delivers. The delivery must
// match a write the holder authorized for the issuer and holderPid.
func (s *CredentialService) WriteCredentials(ctx context.Context, idToken string, msg *message.CredentialMessage) error {
	tok, err := s.idTokens.Validate(ctx, idToken)
	if err != nil {
		return dErrors.Recode(err, dErrors.CodeUnauthorized)
	}
	if err := msg.Validate(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "Invalid message")
	}
	if _, err := s.sts.ValidateWrite(tok.Issuer(), msg.HolderPid); err != nil {
		return dErrors.Recode(err, dErrors.CodeUnauthorized)
	}
	if msg.Status == message.StatusRejected {
		s.logger.InfoContext(ctx, "issuer rejected credential request",
			"issuer", tok.Issuer(),
			"holder_pid", msg.HolderPid,
		)
		return nil
	}

	containers := make([]vc.Container, 0, len(msg.Credentials))
	for _, c := range msg.Credentials {
		container, err := toContainer(c)
		if err != nil {
			return err
		}
		containers = append(containers, container)
	}

	s.mu.Lock()
	for i, c := range msg.Credentials {
		s.byType[c.CredentialType] = append(s.byType[c.CredentialType], containers[i])
	}
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "credentials stored",
		"issuer", tok.Issuer(),
		"holder_pid", msg.HolderPid,
		"count", len(containers),
	)
	return nil
}

func toContainer(c message.CredentialContainer) (vc.Container, error) {
	format, err := vc.ParseFormat(c.Format)
	if err != nil {
		return vc.Container{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "Invalid message")
	}
	parsed, _, err := jwt.NewParser().ParseUnverified(c.Payload, jwt.MapClaims{})
	if err != nil {
		return vc.Container{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "Invalid message")
	}
	claims, _ := parsed.Claims.(jwt.MapClaims)
	claim, ok := claims[message.VCClaim].(map[string]any)
	if !ok {
		return vc.Container{}, dErrors.New(dErrors.CodeBadRequest, "Invalid message")
	}
	credential, err := vc.DecodeCredential(claim)
	if err != nil {
		return vc.Container{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "Invalid message")
	}
	return vc.NewContainer(c.Payload, credential, format), nil
}

// OfferCredentials records an issuer's offer.
func (s *CredentialService) OfferCredentials(ctx context.Context, idToken string, msg *message.CredentialOfferMessage) error {
	if _, err := s.idTokens.Validate(ctx, idToken); err != nil {
		return dErrors.Recode(err, dErrors.CodeUnauthorized)
	}
	if err := msg.Validate(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "Invalid message")
	}
	s.mu.Lock()
	s.offers = append(s.offers, *msg)
	s.mu.Unlock()
	return nil
}

// Offers returns the offers received so far.
func (s *CredentialService) Offers() []message.CredentialOfferMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.offers)
}

// Credentials returns every stored credential ordered by credential type.
func (s *CredentialService) Credentials() []vc.Container {
	s.mu.RLock()
	defer s.mu.RUnlock()
	types := make([]string, 0, len(s.byType))
	for t := range s.byType {
		types = append(types, t)
	}
	sort.Strings(types)
	var out []vc.Container
	for _, t := range types {
		out = append(out, s.byType[t]...)
	}
	return out
}

// IssueAccessToken mints the self-issued ID token a verifier presents to
// trigger a presentation exchange: it carries a read token for scopes bound
// to audience.
func (s *CredentialService) IssueAccessToken(ctx context.Context, audience string, scopes []string) (string, error) {
	if s.signer == nil {
		return "", dErrors.New(dErrors.CodeInternal, "Holder signing key is not configured")
	}
	readToken, err := s.sts.ObtainReadToken(ctx, audience, scopes)
	if err != nil {
		return "", err
	}
	idToken, err := s.sts.ObtainWriteToken(ctx, s.holderDID, audience, tokenSigner{signer: s.signer, token: readToken})
	if err != nil {
		return "", err
	}
	return idToken, nil
}

// tokenSigner adds the access token claim to claims before signing.
type tokenSigner struct {
	signer sts.Signer
	token  string
}

func (t tokenSigner) Sign(extraHeaders map[string]string, claims jwt.MapClaims) (string, error) {
	claims[message.TokenClaim] = t.token
	return t.signer.Sign(extraHeaders, claims)
}

// RequestResult identifies a credential request sent to an issuer.
type RequestResult struct {
	HolderPid string
	Location  string
}

// RequestCredentials asks issuerDID for the credential objects in objects.
// The holder authorizes the matching write before sending the request so the
// issuer's delivery is accepted.
func (s *CredentialService) RequestCredentials(ctx context.Context, issuerDID string, objects []message.CredentialObject) (*RequestResult, error) {
	if s.signer == nil || s.resolver == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "Credential requests are not enabled")
	}
	holderPid := uuid.NewString()
	scopes := make([]string, 0, len(objects))
	for _, o := range objects {
		t := o.CredentialType
		if t == "" {
			t = o.ID
		}
		scopes = append(scopes, message.ScopeTypeAlias+t)
	}
	s.sts.AuthorizeWrite(issuerDID, holderPid, scopes)

	idToken, err := s.sts.ObtainWriteToken(ctx, s.holderDID, issuerDID, s.signer)
	if err != nil {
		return nil, err
	}
	doc, err := s.resolver.Resolve(ctx, issuerDID)
	if err != nil {
		return nil, err
	}
	svc, err := doc.Service(message.IssuerServiceType)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(message.CredentialRequestMessage{
		Context:     []string{message.DCPContext},
		Type:        message.TypeCredentialRequest,
		HolderPid:   holderPid,
		Credentials: objects,
	})
	if err != nil {
		return nil, fmt.Errorf("encode credential request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, svc.ServiceEndpoint+message.CredentialsPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build credential request: %w", err)
	}
	req.Header.Set("Content-Type", httputil.ContentTypeJSON)
	req.Header.Set(message.AuthorizationHeader, "Bearer "+idToken)

	res, err := s.client.Do(req)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "Error sending credential request")
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, maxResponseBytes))

	if res.StatusCode != http.StatusCreated {
		return nil, dErrors.Newf(dErrors.CodeInternal, "Credential request failed with HTTP code %d", res.StatusCode)
	}
	return &RequestResult{HolderPid: holderPid, Location: res.Header.Get("Location")}, nil
}
