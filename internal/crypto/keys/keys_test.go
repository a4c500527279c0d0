package keys

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"math/big"
	"strings"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func splitToken(t *testing.T, token string) (header jwt.MapClaims, signingInput string, sig []byte, alg string) {
	t.Helper()
	parser := jwt.NewParser()
	parsed, parts, err := parser.ParseUnverified(token, jwt.MapClaims{})
	require.NoError(t, err)
	sig, err = parser.DecodeSegment(parts[2])
	require.NoError(t, err)
	return jwt.MapClaims(parsed.Header), parts[0] + "." + parts[1], sig, parsed.Method.Alg()
}

func TestService_SignAndVerify(t *testing.T) {
	generators := map[string]func() (*KeyPair, error){
		"ES256":  GenerateEC,
		"RS256":  GenerateRSA,
		"EdDSA":  GenerateEd25519,
		"ES256K": GenerateSecp256k1,
	}
	for wantAlg, gen := range generators {
		t.Run(wantAlg, func(t *testing.T) {
			key, err := gen()
			require.NoError(t, err)
			svc, err := NewService(key)
			require.NoError(t, err)

			token, err := svc.Sign(nil, jwt.MapClaims{"iss": "did:web:issuer", "sub": "did:web:issuer"})
			require.NoError(t, err)

			header, input, sig, alg := splitToken(t, token)
			assert.Equal(t, wantAlg, alg)
			assert.Equal(t, "JWT", header["typ"])
			assert.Equal(t, "did:web:issuer#"+key.ID(), header["kid"])

			verifier, err := VerifierForJWK(svc.PublicJWK())
			require.NoError(t, err)
			require.NoError(t, verifier.Verify(alg, input, sig))

			tampered := append([]byte{}, sig...)
			tampered[len(tampered)-1] ^= 0x01
			assert.Error(t, verifier.Verify(alg, input, tampered))
		})
	}
}

func TestService_SignHeaders(t *testing.T) {
	key, err := GenerateEC()
	require.NoError(t, err)
	svc, err := NewService(key)
	require.NoError(t, err)

	token, err := svc.Sign(map[string]string{"kid": "did:web:other#k", "x-test": "1"}, jwt.MapClaims{"iss": "did:web:issuer"})
	require.NoError(t, err)

	header, _, _, _ := splitToken(t, token)
	assert.Equal(t, "did:web:other#k", header["kid"])
	assert.Equal(t, "1", header["x-test"])
}

func TestPublicJWK(t *testing.T) {
	ec, err := GenerateEC()
	require.NoError(t, err)
	jwk, err := PublicJWK(ec.ID(), ec.Public())
	require.NoError(t, err)
	assert.Equal(t, "EC", jwk["kty"])
	assert.Equal(t, "P-256", jwk["crv"])
	assert.Equal(t, ec.ID(), jwk["kid"])
	assert.NotContains(t, jwk, "d")

	k1, err := GenerateSecp256k1()
	require.NoError(t, err)
	jwk, err = PublicJWK(k1.ID(), k1.Public())
	require.NoError(t, err)
	assert.Equal(t, "secp256k1", jwk["crv"])

	parsed, err := ParseJWK(jwk)
	require.NoError(t, err)
	require.IsType(t, &secp256k1.PublicKey{}, parsed)
	assert.True(t, k1.Public().(*secp256k1.PublicKey).IsEqual(parsed.(*secp256k1.PublicKey)))

	_, err = PublicJWK("x", "not a key")
	assert.Error(t, err)
}

func TestParseJWK_Rejects(t *testing.T) {
	_, err := ParseJWK(nil)
	assert.Error(t, err)
	_, err = ParseJWK(map[string]any{"kty": "EC", "crv": "secp256k1", "x": "AA", "y": "AA"})
	assert.Error(t, err)
	_, err = ParseJWK(map[string]any{"kty": "oct", "k": "AA"})
	assert.Error(t, err)
}

func TestNewVerifier_Dispatch(t *testing.T) {
	ec, _ := GenerateEC()
	ed, _ := GenerateEd25519()
	rs, _ := GenerateRSA()

	for _, alg := range []string{"EC", "ecdsa"} {
		assert.NotPanics(t, func() { NewVerifier(alg, ec.Public()) })
	}
	for _, alg := range []string{"EdDSA", "ED25519"} {
		assert.NotPanics(t, func() { NewVerifier(alg, ed.Public()) })
	}
	assert.NotPanics(t, func() { NewVerifier("RSA", rs.Public()) })

	assert.PanicsWithValue(t, "Unsupported algorithm: dsa", func() { NewVerifier("DSA", ec.Public()) })
	assert.Panics(t, func() { NewVerifier("rsa", ec.Public()) })
}

func TestVerifier_RejectsMismatchedAlgorithm(t *testing.T) {
	ec, _ := GenerateEC()
	v := NewVerifier("ec", ec.Public())

	assert.Error(t, v.Verify("RS256", "a.b", []byte("sig")))
	assert.Error(t, v.Verify("none-such", "a.b", []byte("sig")))
}

func TestEncodeEd25519X(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	// Recover (y, xOdd) from the RFC 8032 encoding.
	le := append([]byte{}, pub...)
	xOdd := le[31]&0x80 != 0
	le[31] &^= 0x80
	be := make([]byte, len(le))
	for i := range le {
		be[i] = le[len(le)-1-i]
	}
	y := new(big.Int).SetBytes(be)

	assert.Equal(t, base64.RawURLEncoding.EncodeToString(pub), EncodeEd25519X(y, xOdd))

	v, err := NewEd25519VerifierFromPoint(y, xOdd)
	require.NoError(t, err)
	input := "header.payload"
	sig := ed25519.Sign(priv, []byte(input))
	assert.NoError(t, v.Verify("EdDSA", input, sig))
}

func TestEncodeEd25519X_OddFlipsTopBit(t *testing.T) {
	even := EncodeEd25519X(big.NewInt(1), false)
	odd := EncodeEd25519X(big.NewInt(1), true)

	evenBytes, _ := base64.RawURLEncoding.DecodeString(even)
	oddBytes, _ := base64.RawURLEncoding.DecodeString(odd)
	assert.Equal(t, byte(0x01), evenBytes[0])
	assert.Equal(t, byte(0x00), evenBytes[31])
	assert.Equal(t, byte(0x80), oddBytes[31])
	assert.False(t, strings.Contains(odd, "="))
}
