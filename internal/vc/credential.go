package vc

import (
	"encoding/json"
	"maps"
	"slices"
	"time"
)

// VerifiableCredential is the credential carried in the "vc" claim of a JWT.
// Dates are kept as their RFC 3339 strings.
type VerifiableCredential struct {
	Context           []string           `json:"@context"`
	ID                string             `json:"id"`
	Type              []string           `json:"type"`
	Issuer            string             `json:"issuer"`
	IssuanceDate      string             `json:"issuanceDate"`
	ExpirationDate    string             `json:"expirationDate"`
	CredentialSubject map[string]any     `json:"credentialSubject"`
	CredentialSchema  *MetadataReference `json:"credentialSchema"`
	CredentialStatus  *MetadataReference `json:"credentialStatus"`
	Extensible        map[string]any     `json:",remain"`
}

// DecodeCredential reads a credential from a decoded JSON object such as the
// "vc" claim of a credential JWT.
func DecodeCredential(claim map[string]any) (*VerifiableCredential, error) {
	var c VerifiableCredential
	if err := decode(claim, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// SubjectID returns credentialSubject.id when present.
func (c *VerifiableCredential) SubjectID() (string, bool) {
	id, ok := c.CredentialSubject["id"].(string)
	return id, ok && id != ""
}

// IssuedAt parses issuanceDate.
func (c *VerifiableCredential) IssuedAt() (time.Time, error) {
	return time.Parse(time.RFC3339, c.IssuanceDate)
}

// ExpiresAt parses expirationDate. ok is false when the credential has none.
func (c *VerifiableCredential) ExpiresAt() (t time.Time, ok bool, err error) {
	if c.ExpirationDate == "" {
		return time.Time{}, false, nil
	}
	t, err = time.Parse(time.RFC3339, c.ExpirationDate)
	return t, true, err
}

// HasType reports whether typ is one of the credential types.
func (c *VerifiableCredential) HasType(typ string) bool {
	return slices.Contains(c.Type, typ)
}

// ToMap renders the credential as the JSON object placed in a "vc" claim.
func (c *VerifiableCredential) ToMap() map[string]any {
	out := make(map[string]any, len(c.Extensible)+10)
	maps.Copy(out, c.Extensible)
	out["@context"] = slices.Clone(c.Context)
	out["id"] = c.ID
	out["type"] = slices.Clone(c.Type)
	out["issuer"] = c.Issuer
	out["issuanceDate"] = c.IssuanceDate
	if c.ExpirationDate != "" {
		out["expirationDate"] = c.ExpirationDate
	}
	if c.CredentialSchema != nil {
		out["credentialSchema"] = c.CredentialSchema.ToMap()
	}
	if c.CredentialStatus != nil {
		out["credentialStatus"] = c.CredentialStatus.ToMap()
	}
	out["credentialSubject"] = maps.Clone(c.CredentialSubject)
	return out
}

func (c VerifiableCredential) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.ToMap())
}

func (c *VerifiableCredential) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	return decode(raw, c)
}

// CredentialBuilder accumulates a credential; Build returns a value the
// builder no longer references.
type CredentialBuilder struct {
	c VerifiableCredential
}

func NewCredentialBuilder() *CredentialBuilder {
	return &CredentialBuilder{}
}

func (b *CredentialBuilder) ID(id string) *CredentialBuilder {
	b.c.ID = id
	return b
}

func (b *CredentialBuilder) Context(ctx ...string) *CredentialBuilder {
	b.c.Context = append(b.c.Context, ctx...)
	return b
}

func (b *CredentialBuilder) Type(types ...string) *CredentialBuilder {
	b.c.Type = append(b.c.Type, types...)
	return b
}

func (b *CredentialBuilder) Issuer(issuer string) *CredentialBuilder {
	b.c.Issuer = issuer
	return b
}

func (b *CredentialBuilder) IssuanceDate(t time.Time) *CredentialBuilder {
	b.c.IssuanceDate = t.UTC().Format(time.RFC3339)
	return b
}

func (b *CredentialBuilder) ExpirationDate(t time.Time) *CredentialBuilder {
	b.c.ExpirationDate = t.UTC().Format(time.RFC3339)
	return b
}

func (b *CredentialBuilder) Subject(subject map[string]any) *CredentialBuilder {
	b.c.CredentialSubject = maps.Clone(subject)
	return b
}

func (b *CredentialBuilder) Schema(ref *MetadataReference) *CredentialBuilder {
	b.c.CredentialSchema = ref
	return b
}

func (b *CredentialBuilder) Status(ref *MetadataReference) *CredentialBuilder {
	b.c.CredentialStatus = ref
	return b
}

func (b *CredentialBuilder) Property(key string, value any) *CredentialBuilder {
	if b.c.Extensible == nil {
		b.c.Extensible = make(map[string]any)
	}
	b.c.Extensible[key] = value
	return b
}

// Build panics when the id is missing. A v1 context without a v2 context
// is moved to the front of the context list.
func (b *CredentialBuilder) Build() *VerifiableCredential {
	if b.c.ID == "" {
		panic("credential id is required")
	}
	c := b.c
	c.Context = ensureV1First(c.Context)
	c.Type = slices.Clone(c.Type)
	c.Extensible = maps.Clone(c.Extensible)
	if c.CredentialSubject == nil {
		c.CredentialSubject = map[string]any{}
	}
	return &c
}

func ensureV1First(ctx []string) []string {
	out := slices.Clone(ctx)
	if !slices.Contains(out, ContextV1) || slices.Contains(out, ContextV2) {
		return out
	}
	out = slices.DeleteFunc(out, func(s string) bool { return s == ContextV1 })
	return append([]string{ContextV1}, out...)
}
