package vc

import (
	"encoding/json"
	"maps"
)

// MetadataReference is a typed pointer such as credentialSchema or
// credentialStatus. Properties beyond id and type stay in Extensible.
type MetadataReference struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Extensible map[string]any `json:",remain"`
}

// NewMetadataReference panics when id or type is empty.
func NewMetadataReference(id, typ string, props map[string]any) *MetadataReference {
	if id == "" {
		panic("metadata reference id is required")
	}
	if typ == "" {
		panic("metadata reference type is required")
	}
	return &MetadataReference{ID: id, Type: typ, Extensible: maps.Clone(props)}
}

// Property returns an extensible property.
func (m *MetadataReference) Property(key string) (any, bool) {
	v, ok := m.Extensible[key]
	return v, ok
}

// ToMap renders the reference with type as a single element list and the
// extensible properties flattened alongside.
func (m *MetadataReference) ToMap() map[string]any {
	out := make(map[string]any, len(m.Extensible)+2)
	maps.Copy(out, m.Extensible)
	out["id"] = m.ID
	out["type"] = []string{m.Type}
	return out
}

func (m MetadataReference) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.ToMap())
}

func (m *MetadataReference) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	return decode(raw, m)
}
