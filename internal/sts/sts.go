// Package sts is the holder's secure token server. In embedded mode it mints
// opaque single-use read tokens; with an external URL configured it obtains
// them from a remote STS instead.
package sts

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"dcptck/internal/message"
	"dcptck/internal/platform/tracer"
	dErrors "dcptck/pkg/domain-errors"
	"dcptck/pkg/platform/httpclient"
	"dcptck/pkg/platform/middleware/requesttime"
	platformsync "dcptck/pkg/platform/sync"
)

// WriteTokenLifetime is the validity of ID tokens minted for write calls.
const WriteTokenLifetime = 600 * time.Second

const tokenSeparator = "::"

// Signer signs ID token claims.
type Signer interface {
	Sign(extraHeaders map[string]string, claims jwt.MapClaims) (string, error)
}

// Client obtains tokens for outbound DCP calls.
type Client interface {
	ObtainReadToken(ctx context.Context, bearerDID string, scopes []string) (string, error)
	ObtainWriteToken(ctx context.Context, bearerDID, audience string, signer Signer) (string, error)
}

// Server is the holder's token server. The zero value is not usable; call New.
type Server struct {
	readTokens *platformsync.ConsumableMap[string]
	writes     *platformsync.ConsumableMap[[]string]
	external   *externalSTS
	client     *http.Client
	tracer     tracer.Tracer
	logger     *slog.Logger
	ttl        time.Duration
	retries    uint64
}

type Option func(*Server)

// WithTTL expires unused read tokens and write authorizations after ttl.
func WithTTL(ttl time.Duration) Option {
	return func(s *Server) {
		s.ttl = ttl
	}
}

// WithExternal delegates read tokens to the STS at url.
func WithExternal(url, clientID, clientSecret string) Option {
	return func(s *Server) {
		if url == "" {
			return
		}
		s.external = &externalSTS{
			url:          strings.TrimSuffix(url, "/"),
			clientID:     clientID,
			clientSecret: clientSecret,
		}
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(s *Server) {
		if c != nil {
			s.client = c
		}
	}
}

// WithRetries sets how often a failed external token request is retried.
func WithRetries(n uint64) Option {
	return func(s *Server) {
		s.retries = n
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Server) {
		if t != nil {
			s.tracer = t
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a token server. It fails when an external STS is configured
// without client credentials.
func New(opts ...Option) (*Server, error) {
	s := &Server{
		client:  httpclient.New(),
		tracer:  tracer.NewNoop(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		retries: 3,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.external != nil && (s.external.clientID == "" || s.external.clientSecret == "") {
		return nil, errors.New("When overriding the STS URL, client ID and secret must be provided")
	}
	s.readTokens = platformsync.NewConsumableMap[string](platformsync.WithTTL(s.ttl))
	s.writes = platformsync.NewConsumableMap[[]string](platformsync.WithTTL(s.ttl))
	return s, nil
}

// External reports whether read tokens come from a remote STS.
func (s *Server) External() bool {
	return s.external != nil
}

// ObtainReadToken returns an access token bound to bearerDID granting the
// credential types named by scopes. Scopes must carry the DCP type alias
// prefix; anything else is a programming error and panics.
func (s *Server) ObtainReadToken(ctx context.Context, bearerDID string, scopes []string) (string, error) {
	if s.external != nil {
		return s.requestRemoteAccessToken(ctx, bearerDID, strings.Join(scopes, " "))
	}
	token := uuid.NewString() + tokenSeparator + bearerDID + tokenSeparator + strings.Join(scopeTypes(scopes), ",")
	s.readTokens.Put(token, token)
	return token, nil
}

// ValidateReadToken consumes token and returns the credential types it
// grants. A token validates at most once.
func (s *Server) ValidateReadToken(bearerDID, token string) ([]string, error) {
	if _, ok := s.readTokens.Take(token); !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "Token not valid")
	}
	parts := strings.Split(token, tokenSeparator)
	if len(parts) != 3 {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "Invalid token format")
	}
	if parts[1] != bearerDID {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "Token binding not valid")
	}
	return strings.Split(parts[2], ","), nil
}

// AuthorizeWrite records that bearerDID may write the credential types in
// scopes for the exchange identified by correlationID.
func (s *Server) AuthorizeWrite(bearerDID, correlationID string, scopes []string) {
	s.writes.Put(writeKey(bearerDID, correlationID), scopeTypes(scopes))
}

// ValidateWrite consumes a write authorization.
func (s *Server) ValidateWrite(bearerDID, correlationID string) ([]string, error) {
	types, ok := s.writes.Take(writeKey(bearerDID, correlationID))
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "Not authorized")
	}
	return types, nil
}

// ObtainWriteToken signs a self-issued ID token for bearerDID addressed to
// audience.
func (s *Server) ObtainWriteToken(ctx context.Context, bearerDID, audience string, signer Signer) (string, error) {
	now := requesttime.Now(ctx)
	signed, err := signer.Sign(nil, jwt.MapClaims{
		"iss": bearerDID,
		"sub": bearerDID,
		"aud": audience,
		"jti": uuid.NewString(),
		"iat": now.Unix(),
		"exp": now.Add(WriteTokenLifetime).Unix(),
	})
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "Error signing write token")
	}
	return signed, nil
}

func writeKey(bearerDID, correlationID string) string {
	return bearerDID + tokenSeparator + correlationID
}

func scopeTypes(scopes []string) []string {
	types := make([]string, 0, len(scopes))
	for _, scope := range scopes {
		t, ok := strings.CutPrefix(scope, message.ScopeTypeAlias)
		if !ok {
			panic("Invalid scope: " + scope)
		}
		types = append(types, t)
	}
	return types
}

// Sweep drops expired read tokens and write authorizations. It is a no-op
// without a TTL.
func (s *Server) Sweep() int {
	return s.readTokens.Sweep() + s.writes.Sweep()
}
