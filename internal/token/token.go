// Package token validates the signed JWTs exchanged in DCP flows: self-issued
// ID tokens, VP tokens and the VC tokens inside them.
package token

import (
	"maps"

	"github.com/golang-jwt/jwt/v5"
)

// Token is a JWT that passed validation.
type Token struct {
	Raw    string
	Header map[string]any
	Claims jwt.MapClaims
}

func (t *Token) Issuer() string {
	iss, _ := t.Claims.GetIssuer()
	return iss
}

func (t *Token) Subject() string {
	sub, _ := t.Claims.GetSubject()
	return sub
}

// Audience returns aud as a list whether it was sent as a string or an array.
func (t *Token) Audience() []string {
	aud, _ := t.Claims.GetAudience()
	return aud
}

// StringClaim returns a string claim, or "" when missing or not a string.
func (t *Token) StringClaim(name string) string {
	s, _ := t.Claims[name].(string)
	return s
}

// ObjectClaim returns a JSON object claim such as "vc" or "vp".
func (t *Token) ObjectClaim(name string) (map[string]any, bool) {
	m, ok := t.Claims[name].(map[string]any)
	if !ok {
		return nil, false
	}
	return maps.Clone(m), true
}
