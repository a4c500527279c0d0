package did

import (
	"encoding/json"
	"fmt"
	"maps"

	dErrors "dcptck/pkg/domain-errors"
)

// Context URIs placed on generated documents.
const (
	ContextDIDv1 = "https://www.w3.org/ns/did/v1"
)

// ServiceEntry is a DID document service endpoint.
type ServiceEntry struct {
	ID              string `json:"id"`
	Type            string `json:"type"`
	ServiceEndpoint string `json:"serviceEndpoint"`
}

// VerificationMethod carries a public key in JWK form.
type VerificationMethod struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`
	Controller   string         `json:"controller"`
	PublicKeyJwk map[string]any `json:"publicKeyJwk,omitempty"`
}

// Document is a parsed DID document. Top-level properties other than the
// four modelled ones are kept in Extensible and written back on marshal.
type Document struct {
	ID                  string
	Context             []string
	Services            []ServiceEntry
	VerificationMethods []VerificationMethod
	Extensible          map[string]any
}

// Service returns the first service entry of the given type.
func (d *Document) Service(serviceType string) (ServiceEntry, error) {
	for _, s := range d.Services {
		if s.Type == serviceType {
			return s, nil
		}
	}
	return ServiceEntry{}, dErrors.Newf(dErrors.CodeNotFound, "No service found for type %s", serviceType)
}

// VerificationMethod looks a method up by id. The id may be the full method
// id, a suffix appended to the document id, or a bare fragment.
func (d *Document) VerificationMethod(id string) (VerificationMethod, error) {
	for _, m := range d.VerificationMethods {
		if m.ID == id || m.ID == d.ID+id || m.ID == d.ID+"#"+id {
			return m, nil
		}
	}
	return VerificationMethod{}, dErrors.Newf(dErrors.CodeNotFound, "No verification method found for id %s", id)
}

var modelledKeys = map[string]struct{}{
	"id":                 {},
	"@context":           {},
	"service":            {},
	"verificationMethod": {},
}

// MarshalJSON flattens the extensible properties next to the modelled ones.
func (d Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Extensible)+4)
	maps.Copy(out, d.Extensible)
	out["id"] = d.ID
	out["@context"] = nonNil(d.Context)
	out["service"] = nonNil(d.Services)
	out["verificationMethod"] = nonNil(d.VerificationMethods)
	return json.Marshal(out)
}

// UnmarshalJSON requires a non-empty id. @context may be a string or a list.
func (d *Document) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var doc Document
	if v, ok := raw["id"]; ok {
		if err := json.Unmarshal(v, &doc.ID); err != nil {
			return fmt.Errorf("id: %w", err)
		}
	}
	if doc.ID == "" {
		return fmt.Errorf("DID document id is required")
	}
	if v, ok := raw["@context"]; ok {
		ctx, err := stringOrList(v)
		if err != nil {
			return fmt.Errorf("@context: %w", err)
		}
		doc.Context = ctx
	}
	if v, ok := raw["service"]; ok {
		if err := json.Unmarshal(v, &doc.Services); err != nil {
			return fmt.Errorf("service: %w", err)
		}
	}
	if v, ok := raw["verificationMethod"]; ok {
		if err := json.Unmarshal(v, &doc.VerificationMethods); err != nil {
			return fmt.Errorf("verificationMethod: %w", err)
		}
	}
	for key, v := range raw {
		if _, known := modelledKeys[key]; known {
			continue
		}
		var value any
		if err := json.Unmarshal(v, &value); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if doc.Extensible == nil {
			doc.Extensible = make(map[string]any)
		}
		doc.Extensible[key] = value
	}
	*d = doc
	return nil
}

func stringOrList(raw json.RawMessage) ([]string, error) {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var single string
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, err
	}
	return []string{single}, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
