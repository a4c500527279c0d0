package keys

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"fmt"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/golang-jwt/jwt/v5"
)

// Algorithm families accepted by NewVerifier, matched case-insensitively.
const (
	AlgorithmEC      = "ec"
	AlgorithmECDSA   = "ecdsa"
	AlgorithmEdDSA   = "eddsa"
	AlgorithmEd25519 = "ed25519"
	AlgorithmRSA     = "rsa"
)

type family int

const (
	familyEC family = iota
	familyEdDSA
	familyRSA
)

// Verifier checks JWS signatures for one public key.
type Verifier struct {
	family family
	key    crypto.PublicKey
}

// NewVerifier builds a verifier for the named algorithm family. An unknown
// family, or a key that does not belong to it, is a programming error and
// panics.
func NewVerifier(algorithm string, key crypto.PublicKey) *Verifier {
	var f family
	switch strings.ToLower(algorithm) {
	case AlgorithmEC, AlgorithmECDSA:
		f = familyEC
	case AlgorithmEdDSA, AlgorithmEd25519:
		f = familyEdDSA
	case AlgorithmRSA:
		f = familyRSA
	default:
		panic("Unsupported algorithm: " + strings.ToLower(algorithm))
	}
	if kf, ok := familyOf(key); !ok || kf != f {
		panic(fmt.Sprintf("key type %T does not match algorithm %s", key, algorithm))
	}
	return &Verifier{family: f, key: key}
}

// VerifierForJWK parses a verification method's publicKeyJwk and builds the
// matching verifier.
func VerifierForJWK(jwk map[string]any) (*Verifier, error) {
	key, err := ParseJWK(jwk)
	if err != nil {
		return nil, err
	}
	f, ok := familyOf(key)
	if !ok {
		return nil, fmt.Errorf("unsupported key type %T", key)
	}
	return &Verifier{family: f, key: key}, nil
}

// Verify checks sig over signingInput for the JWS algorithm alg.
func (v *Verifier) Verify(alg, signingInput string, sig []byte) error {
	method := jwt.GetSigningMethod(alg)
	if method == nil {
		return fmt.Errorf("unsupported signing algorithm %q", alg)
	}
	if !v.accepts(method) {
		return fmt.Errorf("signing algorithm %q does not match key type %T", alg, v.key)
	}
	return method.Verify(signingInput, sig, v.key)
}

func (v *Verifier) accepts(method jwt.SigningMethod) bool {
	switch method.(type) {
	case *jwt.SigningMethodECDSA:
		_, ok := v.key.(*ecdsa.PublicKey)
		return v.family == familyEC && ok
	case *signingMethodES256K:
		_, ok := v.key.(*secp256k1.PublicKey)
		return v.family == familyEC && ok
	case *jwt.SigningMethodEd25519:
		return v.family == familyEdDSA
	case *jwt.SigningMethodRSA, *jwt.SigningMethodRSAPSS:
		return v.family == familyRSA
	default:
		return false
	}
}

func familyOf(key crypto.PublicKey) (family, bool) {
	switch key.(type) {
	case *ecdsa.PublicKey, *secp256k1.PublicKey:
		return familyEC, true
	case ed25519.PublicKey:
		return familyEdDSA, true
	case *rsa.PublicKey:
		return familyRSA, true
	default:
		return 0, false
	}
}
