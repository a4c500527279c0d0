package cs

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/mitchellh/mapstructure"

	"dcptck/internal/vc"
	dErrors "dcptck/pkg/domain-errors"
)

// PresentationDefinition is the subset of DIF Presentation Exchange the
// holder evaluates: input descriptors whose field constraints are JSONPath
// expressions over the credential with optional const or pattern filters.
type PresentationDefinition struct {
	ID               string            `json:"id"`
	InputDescriptors []InputDescriptor `json:"input_descriptors"`
}

type InputDescriptor struct {
	ID          string      `json:"id"`
	Constraints Constraints `json:"constraints"`
}

type Constraints struct {
	Fields []Field `json:"fields"`
}

type Field struct {
	Path   []string `json:"path"`
	Filter *Filter  `json:"filter,omitempty"`
}

type Filter struct {
	Type    string `json:"type,omitempty"`
	Const   any    `json:"const,omitempty"`
	Pattern string `json:"pattern,omitempty"`
}

// DecodePresentationDefinition reads the presentationDefinition member of a
// query.
func DecodePresentationDefinition(raw map[string]any) (*PresentationDefinition, error) {
	var def PresentationDefinition
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  &def,
	})
	if err != nil {
		return nil, fmt.Errorf("presentation definition decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "Invalid presentation definition")
	}
	if len(def.InputDescriptors) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "Invalid presentation definition: no input descriptors")
	}
	for _, d := range def.InputDescriptors {
		for _, f := range d.Constraints.Fields {
			if len(f.Path) == 0 {
				return nil, dErrors.Newf(dErrors.CodeBadRequest, "Invalid presentation definition: field without path in %s", d.ID)
			}
			if f.Filter != nil && f.Filter.Pattern != "" {
				if _, err := regexp.Compile(f.Filter.Pattern); err != nil {
					return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "Invalid presentation definition: bad pattern")
				}
			}
		}
	}
	return &def, nil
}

// Select returns the credentials matched by at least one input descriptor,
// in the order given.
func (d *PresentationDefinition) Select(credentials []vc.Container) ([]vc.Container, error) {
	var out []vc.Container
	for _, c := range credentials {
		doc, err := genericDocument(c.Credential)
		if err != nil {
			return nil, err
		}
		for _, desc := range d.InputDescriptors {
			ok, err := desc.matches(doc)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, c)
				break
			}
		}
	}
	return out, nil
}

// matches requires every field to resolve through one of its paths to a
// value the filter accepts.
func (d *InputDescriptor) matches(doc map[string]any) (bool, error) {
	for _, f := range d.Constraints.Fields {
		ok, err := f.matches(doc)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (f *Field) matches(doc map[string]any) (bool, error) {
	for _, path := range f.Path {
		value, err := jsonpath.Get(path, doc)
		if err != nil {
			if strings.HasPrefix(err.Error(), "unknown key") || strings.Contains(err.Error(), "out of bounds") {
				continue
			}
			return false, dErrors.Wrap(err, dErrors.CodeBadRequest, "Invalid presentation definition path: "+path)
		}
		if f.Filter == nil || f.Filter.accepts(value) {
			return true, nil
		}
	}
	return false, nil
}

// accepts tests value, or any element when value is a list.
func (f *Filter) accepts(value any) bool {
	if list, ok := value.([]any); ok {
		for _, v := range list {
			if f.accepts(v) {
				return true
			}
		}
		return false
	}
	if f.Const != nil && !reflect.DeepEqual(f.Const, value) && fmt.Sprint(f.Const) != fmt.Sprint(value) {
		return false
	}
	if f.Pattern != "" {
		s, ok := value.(string)
		if !ok || !regexp.MustCompile(f.Pattern).MatchString(s) {
			return false
		}
	}
	return true
}

// genericDocument renders a credential with JSON value types only, the shape
// JSONPath evaluation expects.
func genericDocument(c *vc.VerifiableCredential) (map[string]any, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode credential: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode credential: %w", err)
	}
	return doc, nil
}
