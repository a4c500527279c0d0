package verifier_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"dcptck/internal/crypto/keys"
	"dcptck/internal/did"
	"dcptck/internal/vc"
	"dcptck/internal/vc/generation"
	"dcptck/pkg/testutil"
)

// world hosts holder, issuer and verifier DID documents on one fixture server.
type world struct {
	dids        *testutil.DIDServer
	resolver    *did.Resolver
	holderKeys  *keys.Service
	issuerKeys  *keys.Service
	verifierKey *keys.Service
	holderDID   string
	issuerDID   string
	verifierDID string
}

func newKeys(t *testing.T) *keys.Service {
	t.Helper()
	kp, err := keys.GenerateEC()
	require.NoError(t, err)
	svc, err := keys.NewService(kp)
	require.NoError(t, err)
	return svc
}

func newWorld(t *testing.T, holderEndpoint string) *world {
	t.Helper()
	w := &world{
		dids:        testutil.NewDIDServer(t),
		resolver:    did.NewResolver(did.WithHTTPS(false)),
		holderKeys:  newKeys(t),
		issuerKeys:  newKeys(t),
		verifierKey: newKeys(t),
	}
	w.holderDID = w.dids.DID("holder")
	w.issuerDID = w.dids.DID("issuer")
	w.verifierDID = w.dids.DID("verifier")
	w.dids.Put("holder", did.NewService(w.holderDID, holderEndpoint, w.holderKeys).Document())
	w.dids.Put("issuer", did.NewIssuerService(w.issuerDID, w.dids.URL+"/issuer", w.issuerKeys).Document())
	w.dids.Put("verifier", did.NewService(w.verifierDID, w.dids.URL+"/verifier", w.verifierKey).Document())
	return w
}

// credential returns a membership credential for the holder; edit adjusts
// the builder before it is built.
func (w *world) credential(edit func(*vc.CredentialBuilder)) *vc.VerifiableCredential {
	b := vc.NewCredentialBuilder().
		ID("urn:uuid:"+uuid.NewString()).
		Context(vc.ContextV1).
		Type(vc.TypeVerifiableCredential, "MembershipCredential").
		Issuer(w.issuerDID).
		IssuanceDate(time.Now().Add(-time.Hour)).
		Subject(map[string]any{"id": w.holderDID})
	if edit != nil {
		edit(b)
	}
	return b.Build()
}

func (w *world) vcJWT(t *testing.T, c *vc.VerifiableCredential) vc.Container {
	t.Helper()
	container, err := generation.NewCredentialGenerator(w.issuerDID, w.issuerKeys).Generate(context.Background(), c)
	require.NoError(t, err)
	return container
}

func (w *world) vpJWT(t *testing.T, audience string, credentials ...vc.Container) string {
	t.Helper()
	raw, err := generation.NewPresentationGenerator(w.holderDID, w.holderKeys).Generate(context.Background(), audience, credentials)
	require.NoError(t, err)
	return raw
}

// holderToken signs arbitrary claims with the holder key.
func (w *world) holderToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	base := jwt.MapClaims{
		"iss": w.holderDID,
		"sub": w.holderDID,
		"jti": uuid.NewString(),
		"iat": time.Now().Add(-time.Minute).Unix(),
		"exp": time.Now().Add(5 * time.Minute).Unix(),
	}
	for k, v := range claims {
		base[k] = v
	}
	raw, err := w.holderKeys.Sign(nil, base)
	require.NoError(t, err)
	return raw
}

type fakeStatusList struct {
	revoked map[int]bool
}

func (f *fakeStatusList) IsRevoked(index int) bool { return f.revoked[index] }
func (f *fakeStatusList) Len() int                 { return 16384 }
