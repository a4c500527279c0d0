// Package issuer is the in-memory issuer role: it issues the test profile
// credentials on request, delivers them to the holder asynchronously and
// reports request status.
package issuer

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"dcptck/internal/did"
	"dcptck/internal/message"
	"dcptck/internal/platform/metrics"
	"dcptck/internal/platform/tracer"
	"dcptck/internal/revocation"
	"dcptck/internal/token"
	"dcptck/internal/vc"
	dErrors "dcptck/pkg/domain-errors"
	"dcptck/pkg/platform/httpclient"
	"dcptck/pkg/platform/middleware/requesttime"
)

const (
	// DefaultDeliveryDelay separates accepting a request from delivering its
	// credentials.
	DefaultDeliveryDelay = 500 * time.Millisecond

	// DeliveryTokenLifetime is the validity of the token authorizing a
	// delivery at the holder.
	DeliveryTokenLifetime = 600 * time.Second
)

// Credential object ids the issuer can fulfil.
const (
	MembershipObjectID    = "credential-object-id1"
	SensitiveDataObjectID = "credential-object-id2"
)

// Signer signs delivery tokens with the issuer key.
type Signer interface {
	Sign(extraHeaders map[string]string, claims jwt.MapClaims) (string, error)
}

// CredentialGenerator secures a credential for delivery.
type CredentialGenerator interface {
	Generate(ctx context.Context, credential *vc.VerifiableCredential) (vc.Container, error)
}

// TokenValidator validates holder ID tokens addressed to the issuer.
type TokenValidator interface {
	Validate(ctx context.Context, raw string) (*token.Token, error)
}

// DocumentResolver locates the holder's credential service.
type DocumentResolver interface {
	Resolve(ctx context.Context, id string) (*did.Document, error)
}

type request struct {
	holderPid string
	holderDID string
	status    string
}

// Service issues credentials. Close stops pending deliveries.
type Service struct {
	issuerDID string
	signer    Signer
	generator CredentialGenerator
	idTokens  TokenValidator
	resolver  DocumentResolver
	supported map[string]message.CredentialObject

	revocation revocation.Service
	nextIndex  atomic.Int64
	schemaURL  string

	client  *http.Client
	delay   time.Duration
	retries uint64
	tracer  tracer.Tracer
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu       sync.RWMutex
	requests map[string]*request

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type Option func(*Service)

// WithRevocation attaches a status list entry to every issued credential.
func WithRevocation(svc revocation.Service) Option {
	return func(s *Service) {
		s.revocation = svc
	}
}

// WithMembershipSchema references the JSON schema at url from membership
// credentials.
func WithMembershipSchema(url string) Option {
	return func(s *Service) {
		s.schemaURL = url
	}
}

func WithDeliveryDelay(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.delay = d
		}
	}
}

// WithRetries sets how often a failed delivery is retried.
func WithRetries(n uint64) Option {
	return func(s *Service) {
		s.retries = n
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) {
		if c != nil {
			s.client = c
		}
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates an issuer. idTokens must require issuerDID as audience.
func NewService(issuerDID string, signer Signer, generator CredentialGenerator, idTokens TokenValidator, resolver DocumentResolver, opts ...Option) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		issuerDID: issuerDID,
		signer:    signer,
		generator: generator,
		idTokens:  idTokens,
		resolver:  resolver,
		supported: map[string]message.CredentialObject{
			MembershipObjectID:    supportedObject(MembershipObjectID, message.MembershipCredentialType),
			SensitiveDataObjectID: supportedObject(SensitiveDataObjectID, message.SensitiveDataCredentialType),
		},
		client:   httpclient.New(),
		delay:    DefaultDeliveryDelay,
		retries:  3,
		tracer:   tracer.NewNoop(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		requests: make(map[string]*request),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func supportedObject(id, credentialType string) message.CredentialObject {
	return message.CredentialObject{
		ID:             id,
		Type:           "CredentialObject",
		CredentialType: credentialType,
		BindingMethods: []string{"did:web"},
		Profile:        "vc11-sl2021/jwt",
	}
}

func (s *Service) DID() string {
	return s.issuerDID
}

// ProcessCredentialRequest accepts a request from the holder that signed
// idToken and returns the issuer pid under which its status is tracked.
// Credentials are generated immediately and delivered in the background.
func (s *Service) ProcessCredentialRequest(ctx context.Context, idToken string, msg *message.CredentialRequestMessage) (string, error) {
	tok, err := s.idTokens.Validate(ctx, idToken)
	if err != nil {
		return "", dErrors.Recode(err, dErrors.CodeUnauthorized)
	}
	if aud := tok.Audience(); len(aud) == 0 || aud[0] != s.issuerDID {
		return "", dErrors.Newf(dErrors.CodeUnauthorized, "Token audience is not the issuer: %v", aud)
	}
	holderDID := tok.Issuer()

	if err := msg.Validate(); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeBadRequest, "Invalid credential request message")
	}

	containers := make([]message.CredentialContainer, 0, len(msg.Credentials))
	for _, obj := range msg.Credentials {
		supported, ok := s.supported[obj.ID]
		if !ok {
			return "", dErrors.New(dErrors.CodeBadRequest, "No CredentialObject found for id: "+obj.ID)
		}
		container, err := s.issue(ctx, supported.CredentialType, holderDID, map[string]any{"bar": "baz"})
		if err != nil {
			return "", err
		}
		containers = append(containers, container)
	}

	issuerPid := uuid.NewString()
	s.mu.Lock()
	s.requests[issuerPid] = &request{holderPid: msg.HolderPid, holderDID: holderDID, status: message.StatusReceived}
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "credential request received",
		"holder", holderDID,
		"holder_pid", msg.HolderPid,
		"issuer_pid", issuerPid,
		"credentials", len(containers),
	)

	delivery := message.NewCredentialMessage(issuerPid, msg.HolderPid, containers)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.deliverLater(holderDID, &delivery)
	}()
	return issuerPid, nil
}

// issue generates one credential of credentialType for holderDID.
func (s *Service) issue(ctx context.Context, credentialType, holderDID string, claims map[string]any) (message.CredentialContainer, error) {
	subject := map[string]any{"id": holderDID}
	for k, v := range claims {
		subject[k] = v
	}
	b := vc.NewCredentialBuilder().
		ID(uuid.NewString()).
		Context(vc.ContextV1).
		Type(vc.TypeVerifiableCredential, credentialType).
		Issuer(s.issuerDID).
		IssuanceDate(requesttime.Now(ctx)).
		Subject(subject)
	if credentialType == message.MembershipCredentialType && s.schemaURL != "" {
		b.Schema(vc.NewMetadataReference(s.schemaURL, "JsonSchema", nil))
	}
	if s.revocation != nil {
		index := int(s.nextIndex.Add(1) - 1)
		if index >= s.revocation.Len() {
			return message.CredentialContainer{}, dErrors.New(dErrors.CodeInternal, "Status list exhausted")
		}
		b.Status(revocation.NewStatusEntry(s.revocation, index))
	}

	container, err := s.generator.Generate(ctx, b.Build())
	if err != nil {
		return message.CredentialContainer{}, dErrors.Wrap(err, dErrors.CodeInternal, "Error generating credential")
	}
	if s.metrics != nil {
		s.metrics.IncrementCredentialsIssued(credentialType)
	}
	return message.CredentialContainer{
		CredentialType: credentialType,
		Payload:        container.RawCredential,
		Format:         string(container.Format),
	}, nil
}

// CredentialStatus reports the state of the request issuerPid.
func (s *Service) CredentialStatus(ctx context.Context, idToken, issuerPid string) (*message.CredentialStatus, error) {
	if _, err := s.idTokens.Validate(ctx, idToken); err != nil {
		return nil, dErrors.Recode(err, dErrors.CodeUnauthorized)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.requests[issuerPid]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "No credential request found")
	}
	return &message.CredentialStatus{
		Context:   []string{message.DCPNamespace},
		Type:      message.TypeCredentialStatus,
		IssuerPid: issuerPid,
		HolderPid: req.holderPid,
		Status:    req.status,
	}, nil
}

// Metadata lists the credential objects the issuer supports.
func (s *Service) Metadata() message.IssuerMetadata {
	ids := make([]string, 0, len(s.supported))
	for id := range s.supported {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	objects := make([]message.CredentialObject, 0, len(ids))
	for _, id := range ids {
		obj := s.supported[id]
		obj.BindingMethods = slices.Clone(obj.BindingMethods)
		objects = append(objects, obj)
	}
	return message.IssuerMetadata{
		Context:              []string{message.DCPNamespace},
		Type:                 message.TypeIssuerMetadata,
		Issuer:               s.issuerDID,
		CredentialsSupported: objects,
	}
}

// PendingRequests counts requests not yet delivered.
func (s *Service) PendingRequests() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.requests {
		if r.status == message.StatusReceived {
			n++
		}
	}
	return n
}

func (s *Service) setStatus(issuerPid, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.requests[issuerPid]; ok {
		r.status = status
	}
}

// Close cancels pending deliveries and waits for them to stop.
func (s *Service) Close() {
	s.cancel()
	s.wg.Wait()
}
