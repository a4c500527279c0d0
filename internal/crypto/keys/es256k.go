package keys

import (
	"crypto/sha256"
	"errors"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	secpecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/golang-jwt/jwt/v5"
)

// SigningMethodES256K signs with ECDSA over secp256k1 and SHA-256. Signatures
// are the 64 byte R||S concatenation.
var SigningMethodES256K = &signingMethodES256K{}

type signingMethodES256K struct{}

func init() {
	jwt.RegisterSigningMethod(SigningMethodES256K.Alg(), func() jwt.SigningMethod {
		return SigningMethodES256K
	})
}

func (m *signingMethodES256K) Alg() string { return "ES256K" }

func (m *signingMethodES256K) Sign(signingString string, key any) ([]byte, error) {
	priv, ok := key.(*secp256k1.PrivateKey)
	if !ok {
		return nil, jwt.ErrInvalidKeyType
	}
	hash := sha256.Sum256([]byte(signingString))
	sig := secpecdsa.Sign(priv, hash[:])
	r, s := sig.R(), sig.S()
	rb, sb := r.Bytes(), s.Bytes()
	out := make([]byte, 0, 64)
	out = append(out, rb[:]...)
	return append(out, sb[:]...), nil
}

func (m *signingMethodES256K) Verify(signingString string, sig []byte, key any) error {
	pub, ok := key.(*secp256k1.PublicKey)
	if !ok {
		return jwt.ErrInvalidKeyType
	}
	if len(sig) != 64 {
		return errors.New("invalid ES256K signature length")
	}
	var r, s secp256k1.ModNScalar
	if r.SetByteSlice(sig[:32]) || s.SetByteSlice(sig[32:]) {
		return jwt.ErrSignatureInvalid
	}
	hash := sha256.Sum256([]byte(signingString))
	if !secpecdsa.NewSignature(&r, &s).Verify(hash[:], pub) {
		return jwt.ErrSignatureInvalid
	}
	return nil
}
