package cs_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"dcptck/internal/crypto/keys"
	"dcptck/internal/cs"
	"dcptck/internal/did"
	"dcptck/internal/message"
	"dcptck/internal/sts"
	"dcptck/internal/token"
	"dcptck/internal/vc"
	"dcptck/internal/vc/generation"
	"dcptck/pkg/testutil"
)

type world struct {
	dids         *testutil.DIDServer
	resolver     *did.Resolver
	holderKeys   *keys.Service
	issuerKeys   *keys.Service
	verifierKeys *keys.Service
	holderDID    string
	issuerDID    string
	verifierDID  string
	sts          *sts.Server
	holder       *cs.CredentialService
}

func newKeys(t *testing.T) *keys.Service {
	t.Helper()
	kp, err := keys.GenerateEC()
	require.NoError(t, err)
	svc, err := keys.NewService(kp)
	require.NoError(t, err)
	return svc
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newWorld(t *testing.T) *world {
	t.Helper()
	w := &world{
		dids:         testutil.NewDIDServer(t),
		resolver:     did.NewResolver(did.WithHTTPS(false)),
		holderKeys:   newKeys(t),
		issuerKeys:   newKeys(t),
		verifierKeys: newKeys(t),
	}
	w.holderDID = w.dids.DID("holder")
	w.issuerDID = w.dids.DID("issuer")
	w.verifierDID = w.dids.DID("verifier")
	w.dids.Put("holder", did.NewService(w.holderDID, w.dids.URL+"/holder", w.holderKeys).Document())
	w.dids.Put("issuer", did.NewIssuerService(w.issuerDID, w.dids.URL+"/issuer", w.issuerKeys).Document())
	w.dids.Put("verifier", did.NewService(w.verifierDID, w.dids.URL+"/verifier", w.verifierKeys).Document())

	server, err := sts.New()
	require.NoError(t, err)
	w.sts = server
	w.holder = cs.NewCredentialService(w.holderDID, w.sts,
		token.NewAudienceValidator(w.resolver, w.holderDID),
		generation.NewPresentationGenerator(w.holderDID, w.holderKeys),
		cs.WithSigner(w.holderKeys),
		cs.WithResolver(w.resolver),
		cs.WithLogger(discardLogger()),
	)
	return w
}

// sign signs claims with key as a self-issued token from iss addressed to aud.
func sign(t *testing.T, key *keys.Service, iss, aud string, extra jwt.MapClaims) string {
	t.Helper()
	claims := jwt.MapClaims{
		"iss": iss,
		"sub": iss,
		"aud": aud,
		"jti": uuid.NewString(),
		"iat": time.Now().Add(-time.Minute).Unix(),
		"exp": time.Now().Add(5 * time.Minute).Unix(),
	}
	for k, v := range extra {
		claims[k] = v
	}
	raw, err := key.Sign(nil, claims)
	require.NoError(t, err)
	return raw
}

func (w *world) issuerToken(t *testing.T) string {
	return sign(t, w.issuerKeys, w.issuerDID, w.holderDID, nil)
}

func (w *world) credential(t *testing.T, credentialType string, subject map[string]any) message.CredentialContainer {
	t.Helper()
	if subject == nil {
		subject = map[string]any{}
	}
	subject["id"] = w.holderDID
	c := vc.NewCredentialBuilder().
		ID(uuid.NewString()).
		Context(vc.ContextV1).
		Type(vc.TypeVerifiableCredential, credentialType).
		Issuer(w.issuerDID).
		IssuanceDate(time.Now().Add(-time.Hour)).
		Subject(subject).
		Build()
	container, err := generation.NewCredentialGenerator(w.issuerDID, w.issuerKeys).Generate(context.Background(), c)
	require.NoError(t, err)
	return message.CredentialContainer{
		CredentialType: credentialType,
		Payload:        container.RawCredential,
		Format:         string(vc.FormatVC1JWT),
	}
}

// deliver stores membership and sensitive data credentials in the holder the
// way an issuer delivery does.
func (w *world) deliver(t *testing.T) {
	t.Helper()
	pid := uuid.NewString()
	w.sts.AuthorizeWrite(w.issuerDID, pid, []string{
		message.ScopeTypeAlias + message.MembershipCredentialType,
		message.ScopeTypeAlias + message.SensitiveDataCredentialType,
	})
	msg := message.NewCredentialMessage(uuid.NewString(), pid, []message.CredentialContainer{
		w.credential(t, message.MembershipCredentialType, map[string]any{"foo": "bar"}),
		w.credential(t, message.SensitiveDataCredentialType, map[string]any{"foo": "baz"}),
	})
	require.NoError(t, w.holder.WriteCredentials(context.Background(), w.issuerToken(t), &msg))
}

func (w *world) readToken(t *testing.T, scopes ...string) string {
	t.Helper()
	tok, err := w.sts.ObtainReadToken(context.Background(), w.verifierDID, scopes)
	require.NoError(t, err)
	return tok
}

// presentedCredentials returns the credential JWTs inside the single VP of resp.
func presentedCredentials(t *testing.T, resp *message.PresentationResponseMessage) (jwt.MapClaims, []any) {
	t.Helper()
	require.Len(t, resp.Presentation, 1)
	parsed, _, err := jwt.NewParser().ParseUnverified(resp.Presentation[0], jwt.MapClaims{})
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	vp, ok := claims[message.VPClaim].(map[string]any)
	require.True(t, ok)
	creds, _ := vp[message.VerifiableCredentialClaim].([]any)
	return claims, creds
}
