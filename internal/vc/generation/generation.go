// Package generation mints JWT-secured credentials and presentations for the
// issuer and holder roles.
package generation

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"dcptck/internal/message"
	"dcptck/internal/vc"
	"dcptck/pkg/platform/middleware/requesttime"
)

// TokenLifetime is the validity window of generated credential and
// presentation JWTs.
const TokenLifetime = 300 * time.Second

// Signer signs JWT claims with a role key.
type Signer interface {
	Sign(extraHeaders map[string]string, claims jwt.MapClaims) (string, error)
	KeyID() string
}

// CredentialGenerator secures credentials as VC 1.0 JWTs.
type CredentialGenerator struct {
	issuerDID string
	signer    Signer
}

func NewCredentialGenerator(issuerDID string, signer Signer) *CredentialGenerator {
	return &CredentialGenerator{issuerDID: issuerDID, signer: signer}
}

// Format is the format of every credential this generator produces.
func (g *CredentialGenerator) Format() vc.Format {
	return vc.FormatVC1JWT
}

// Generate signs credential. A credential issued by anyone other than the
// generator's issuer is a programming error and panics.
func (g *CredentialGenerator) Generate(ctx context.Context, credential *vc.VerifiableCredential) (vc.Container, error) {
	if credential.Issuer != g.issuerDID {
		panic(fmt.Sprintf("Credential issuer '%s' not equal to issuer DID: %s", credential.Issuer, g.issuerDID))
	}
	now := requesttime.Now(ctx)
	claims := jwt.MapClaims{
		"iss":           g.issuerDID,
		"sub":           credential.ID,
		"jti":           uuid.NewString(),
		"nbf":           now.Unix(),
		"iat":           now.Unix(),
		"exp":           now.Add(TokenLifetime).Unix(),
		message.VCClaim: credential.ToMap(),
	}
	raw, err := g.signer.Sign(map[string]string{"kid": keyID(g.issuerDID, g.signer)}, claims)
	if err != nil {
		return vc.Container{}, fmt.Errorf("generate credential %s: %w", credential.ID, err)
	}
	return vc.NewContainer(raw, credential, vc.FormatVC1JWT), nil
}

// PresentationGenerator wraps credential JWTs in a VP JWT signed by the holder.
type PresentationGenerator struct {
	holderDID string
	signer    Signer
}

func NewPresentationGenerator(holderDID string, signer Signer) *PresentationGenerator {
	return &PresentationGenerator{holderDID: holderDID, signer: signer}
}

// Generate presents credentials to audience.
func (g *PresentationGenerator) Generate(ctx context.Context, audience string, credentials []vc.Container) (string, error) {
	raws := make([]string, 0, len(credentials))
	for _, c := range credentials {
		raws = append(raws, c.RawCredential)
	}
	now := requesttime.Now(ctx)
	claims := jwt.MapClaims{
		"iss":           g.holderDID,
		"sub":           g.holderDID,
		"aud":           audience,
		"jti":           uuid.NewString(),
		"nbf":           now.Unix(),
		"iat":           now.Unix(),
		"exp":           now.Add(TokenLifetime).Unix(),
		message.VPClaim: vc.NewJWTPresentation(raws...).ToMap(),
	}
	raw, err := g.signer.Sign(map[string]string{"kid": keyID(g.holderDID, g.signer)}, claims)
	if err != nil {
		return "", fmt.Errorf("generate presentation: %w", err)
	}
	return raw, nil
}

func keyID(did string, s Signer) string {
	return did + "#" + s.KeyID()
}
