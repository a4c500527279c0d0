package keys

import (
	"fmt"
	"maps"

	"github.com/golang-jwt/jwt/v5"
)

// Service signs JWTs with a single role key.
type Service struct {
	key *KeyPair
	jwk map[string]any
}

// NewService wraps key. It fails only when the key cannot be rendered as a JWK.
func NewService(key *KeyPair) (*Service, error) {
	jwk, err := PublicJWK(key.ID(), key.Public())
	if err != nil {
		return nil, err
	}
	return &Service{key: key, jwk: jwk}, nil
}

// KeyID returns the id of the signing key.
func (s *Service) KeyID() string {
	return s.key.ID()
}

// PublicJWK returns a copy of the public key in JWK form.
func (s *Service) PublicJWK() map[string]any {
	return maps.Clone(s.jwk)
}

// Sign produces a compact JWS over claims.
//
// The kid header is "<iss claim>#<key id>" unless extraHeaders carries its own
// kid; every other extra header is copied as is.
func (s *Service) Sign(extraHeaders map[string]string, claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(s.key.Method(), claims)
	token.Header["typ"] = "JWT"
	if _, ok := extraHeaders["kid"]; !ok {
		iss, _ := claims["iss"].(string)
		token.Header["kid"] = iss + "#" + s.key.ID()
	}
	for k, v := range extraHeaders {
		token.Header[k] = v
	}
	signed, err := token.SignedString(s.key.private)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
