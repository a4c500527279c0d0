package keys

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"math/big"
)

// EncodeEd25519X renders an Ed25519 point as the JWK "x" member: the
// big-endian Y coordinate reversed to little endian, with the top bit of the
// last byte flipped when X is odd, base64url without padding.
func EncodeEd25519X(y *big.Int, xOdd bool) string {
	b := y.FillBytes(make([]byte, ed25519.PublicKeySize))
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	if xOdd {
		b[len(b)-1] ^= 0x80
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

// NewEd25519VerifierFromPoint builds an EdDSA verifier from point coordinates.
func NewEd25519VerifierFromPoint(y *big.Int, xOdd bool) (*Verifier, error) {
	raw, err := base64.RawURLEncoding.DecodeString(EncodeEd25519X(y, xOdd))
	if err != nil {
		return nil, fmt.Errorf("decode ed25519 point: %w", err)
	}
	return NewVerifier(AlgorithmEd25519, ed25519.PublicKey(raw)), nil
}
