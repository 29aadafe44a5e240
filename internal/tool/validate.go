package tool

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ValidateInput checks a call's input against the schema constraints a
// hosted engine is expected to enforce before Call runs: required fields,
// unknown-field rejection for closed objects, and minimum string lengths.
// Local engines (and test fakes) run it themselves so a malformed call
// never reaches Call.
func ValidateInput(spec Spec, input json.RawMessage) error {
	schema := spec.Parameters
	if schema == nil {
		return nil
	}
	if strings.TrimSpace(schema.Type) != "object" {
		return nil
	}

	var obj map[string]json.RawMessage
	if len(input) == 0 {
		obj = map[string]json.RawMessage{}
	} else if err := json.Unmarshal(input, &obj); err != nil {
		return fmt.Errorf("tool %s: decode input: %w", spec.Name, err)
	}

	for _, req := range schema.Required {
		if _, ok := obj[req]; !ok {
			return fmt.Errorf("tool %s: missing required field %q", spec.Name, req)
		}
	}
	for key, raw := range obj {
		prop, ok := schema.Properties[key]
		if !ok {
			return fmt.Errorf("tool %s: unexpected field %q", spec.Name, key)
		}
		if err := validateValue(spec.Name, key, prop, raw); err != nil {
			return err
		}
	}
	return nil
}

func validateValue(tool, field string, prop *Schema, raw json.RawMessage) error {
	if prop == nil {
		return nil
	}
	switch strings.TrimSpace(prop.Type) {
	case "string":
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return fmt.Errorf("tool %s: field %q must be a string", tool, field)
		}
		if prop.MinLength > 0 && int64(utf8.RuneCountInString(s)) < prop.MinLength {
			return fmt.Errorf("tool %s: field %q shorter than %d characters", tool, field, prop.MinLength)
		}
	}
	return nil
}
