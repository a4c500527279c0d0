// Package keys holds role key pairs, signs JWTs with them, converts public
// keys to and from JWK form and builds signature verifiers for resolved keys.
package keys

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/go-jose/go-jose/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// RSAKeySize is the modulus size of generated RSA keys.
const RSAKeySize = 2048

// KeyPair is an asymmetric key with its id and JWT signing method.
type KeyPair struct {
	id      string
	private any
	public  crypto.PublicKey
	method  jwt.SigningMethod
}

// ID returns the key id used as the verification method fragment.
func (k *KeyPair) ID() string { return k.id }

// Public returns the public half of the pair.
func (k *KeyPair) Public() crypto.PublicKey { return k.public }

// Method returns the JWT signing method for the key.
func (k *KeyPair) Method() jwt.SigningMethod { return k.method }

// GenerateEC creates a P-256 key for ES256 signing.
func GenerateEC() (*KeyPair, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate ec key: %w", err)
	}
	return newJoseKeyPair(priv, &priv.PublicKey, jwt.SigningMethodES256)
}

// GenerateRSA creates a 2048 bit RSA key for RS256 signing.
func GenerateRSA() (*KeyPair, error) {
	priv, err := rsa.GenerateKey(rand.Reader, RSAKeySize)
	if err != nil {
		return nil, fmt.Errorf("generate rsa key: %w", err)
	}
	return newJoseKeyPair(priv, &priv.PublicKey, jwt.SigningMethodRS256)
}

// GenerateEd25519 creates an Ed25519 key for EdDSA signing.
func GenerateEd25519() (*KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate ed25519 key: %w", err)
	}
	return newJoseKeyPair(priv, pub, jwt.SigningMethodEdDSA)
}

// GenerateSecp256k1 creates a secp256k1 key for ES256K signing.
func GenerateSecp256k1() (*KeyPair, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate secp256k1 key: %w", err)
	}
	return &KeyPair{
		id:      uuid.NewString(),
		private: priv,
		public:  priv.PubKey(),
		method:  SigningMethodES256K,
	}, nil
}

// newJoseKeyPair derives the key id from the RFC 7638 thumbprint.
func newJoseKeyPair(priv any, pub crypto.PublicKey, method jwt.SigningMethod) (*KeyPair, error) {
	jwk := jose.JSONWebKey{Key: pub}
	thumb, err := jwk.Thumbprint(crypto.SHA256)
	if err != nil {
		return nil, fmt.Errorf("key thumbprint: %w", err)
	}
	return &KeyPair{
		id:      base64.RawURLEncoding.EncodeToString(thumb),
		private: priv,
		public:  pub,
		method:  method,
	}, nil
}
