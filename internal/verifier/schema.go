package verifier

import (
	"embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const (
	MembershipCredentialSchema = "membership-credential-schema.json"
	PresentationQuerySchema    = "presentation-query-message-schema.json"
)

// SchemaValidator validates JSON documents against the embedded schemas.
type SchemaValidator struct {
	schemas map[string]*gojsonschema.Schema
	raw     map[string][]byte
}

// NewSchemaValidator compiles every embedded schema. A schema that fails to
// compile is a build defect and panics.
func NewSchemaValidator() *SchemaValidator {
	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		panic(fmt.Sprintf("read embedded schemas: %v", err))
	}
	v := &SchemaValidator{
		schemas: make(map[string]*gojsonschema.Schema, len(entries)),
		raw:     make(map[string][]byte, len(entries)),
	}
	for _, e := range entries {
		data, err := schemaFS.ReadFile("schemas/" + e.Name())
		if err != nil {
			panic(fmt.Sprintf("read schema %s: %v", e.Name(), err))
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
		if err != nil {
			panic(fmt.Sprintf("compile schema %s: %v", e.Name(), err))
		}
		v.schemas[e.Name()] = schema
		v.raw[e.Name()] = data
	}
	return v
}

// Validate checks document against the named schema and returns the
// violations joined into one error.
func (v *SchemaValidator) Validate(name string, document any) error {
	schema, ok := v.schemas[name]
	if !ok {
		return fmt.Errorf("unknown schema %q", name)
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(document))
	if err != nil {
		return fmt.Errorf("validate against %s: %w", name, err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}

// Raw returns the schema document as embedded.
func (v *SchemaValidator) Raw(name string) ([]byte, bool) {
	data, ok := v.raw[name]
	return data, ok
}
