package vc

import (
	"encoding/json"
	"maps"
	"slices"
)

// JWTPresentation is the "vp" claim of a presentation JWT. Credentials are
// the raw credential JWTs.
type JWTPresentation struct {
	Context              []string       `json:"@context"`
	Type                 []string       `json:"type"`
	VerifiableCredential []string       `json:"verifiableCredential"`
	Extensible           map[string]any `json:",remain"`
}

// DecodePresentation reads a presentation from a decoded "vp" claim.
func DecodePresentation(claim map[string]any) (*JWTPresentation, error) {
	var p JWTPresentation
	if err := decode(claim, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// NewJWTPresentation wraps raw credential JWTs in a v1 presentation.
func NewJWTPresentation(credentials ...string) *JWTPresentation {
	return &JWTPresentation{
		Context:              []string{ContextV1},
		Type:                 []string{TypeVerifiablePresentation},
		VerifiableCredential: slices.Clone(credentials),
	}
}

// ToMap renders the presentation for the "vp" claim.
func (p *JWTPresentation) ToMap() map[string]any {
	out := make(map[string]any, len(p.Extensible)+3)
	maps.Copy(out, p.Extensible)
	out["@context"] = ensureV1First(p.Context)
	out["type"] = slices.Clone(p.Type)
	out["verifiableCredential"] = nonNilStrings(p.VerifiableCredential)
	return out
}

func (p JWTPresentation) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.ToMap())
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return slices.Clone(s)
}
