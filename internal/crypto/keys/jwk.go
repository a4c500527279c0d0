package keys

import (
	"crypto"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/go-jose/go-jose/v3"
)

const curveSecp256k1 = "secp256k1"

// PublicJWK renders a public key as a JWK map suitable for a DID document
// verification method.
func PublicJWK(kid string, pub crypto.PublicKey) (map[string]any, error) {
	if k, ok := pub.(*secp256k1.PublicKey); ok {
		return secp256k1JWK(kid, k), nil
	}
	jwk := jose.JSONWebKey{Key: pub, KeyID: kid, Use: "sig"}
	if !jwk.Valid() || !jwk.IsPublic() {
		return nil, fmt.Errorf("unsupported public key type %T", pub)
	}
	raw, err := jwk.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("marshal jwk: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode jwk: %w", err)
	}
	return out, nil
}

// ParseJWK extracts the public key from a JWK map. Private members, if
// present, are ignored.
func ParseJWK(m map[string]any) (crypto.PublicKey, error) {
	if len(m) == 0 {
		return nil, errors.New("empty jwk")
	}
	if m["kty"] == "EC" && m["crv"] == curveSecp256k1 {
		return parseSecp256k1JWK(m)
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode jwk: %w", err)
	}
	var jwk jose.JSONWebKey
	if err := jwk.UnmarshalJSON(raw); err != nil {
		return nil, fmt.Errorf("parse jwk: %w", err)
	}
	pub := jwk.Public()
	if pub.Key == nil {
		return nil, fmt.Errorf("jwk of type %v carries no public key", m["kty"])
	}
	return pub.Key, nil
}

func secp256k1JWK(kid string, k *secp256k1.PublicKey) map[string]any {
	x := k.X().FillBytes(make([]byte, 32))
	y := k.Y().FillBytes(make([]byte, 32))
	out := map[string]any{
		"kty": "EC",
		"crv": curveSecp256k1,
		"x":   base64.RawURLEncoding.EncodeToString(x),
		"y":   base64.RawURLEncoding.EncodeToString(y),
		"use": "sig",
	}
	if kid != "" {
		out["kid"] = kid
	}
	return out
}

func parseSecp256k1JWK(m map[string]any) (*secp256k1.PublicKey, error) {
	coord := func(name string) ([]byte, error) {
		s, _ := m[name].(string)
		b, err := base64.RawURLEncoding.DecodeString(s)
		if err != nil || len(b) != 32 {
			return nil, fmt.Errorf("invalid secp256k1 %s coordinate", name)
		}
		return b, nil
	}
	x, err := coord("x")
	if err != nil {
		return nil, err
	}
	y, err := coord("y")
	if err != nil {
		return nil, err
	}
	uncompressed := append([]byte{0x04}, append(x, y...)...)
	pub, err := secp256k1.ParsePubKey(uncompressed)
	if err != nil {
		return nil, fmt.Errorf("parse secp256k1 key: %w", err)
	}
	return pub, nil
}
