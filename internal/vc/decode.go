package vc

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// decode maps a generic JSON object (a "vc" claim, a stored credential) onto
// out. JSON-LD shorthand is normalised: a lone string where a list is expected
// becomes a one element list, a one element list or an {"id": ...} object
// where a string is expected becomes that string.
func decode(in map[string]any, out any) error {
	d, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:     out,
		TagName:    "json",
		DecodeHook: jsonLDShorthand(),
	})
	if err != nil {
		return fmt.Errorf("create decoder: %w", err)
	}
	if err := d.Decode(in); err != nil {
		return fmt.Errorf("decode credential: %w", err)
	}
	return nil
}

func jsonLDShorthand() mapstructure.DecodeHookFuncType {
	return func(_ reflect.Type, t reflect.Type, data any) (any, error) {
		switch t.Kind() {
		case reflect.String:
			switch v := data.(type) {
			case []any:
				if len(v) == 1 {
					return v[0], nil
				}
			case []string:
				if len(v) == 1 {
					return v[0], nil
				}
			case map[string]any:
				if id, ok := v["id"]; ok {
					return id, nil
				}
			}
		case reflect.Slice:
			if s, ok := data.(string); ok && t.Elem().Kind() == reflect.String {
				return []string{s}, nil
			}
		}
		return data, nil
	}
}
