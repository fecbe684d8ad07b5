package jsonschema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Parse decodes a JSON Schema document. Property order is preserved, boolean
// subschemas become empty (permissive) schemas and a "type" array such as
// ["string", "null"] is rewritten into an equivalent anyOf, so describers only
// ever see a single type per node. The original bytes are kept and returned
// by [Schema.Source].
func Parse(data []byte) (*Schema, error) {
	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse json schema: %w", err)
	}
	s.source = append([]byte(nil), data...)
	return &s, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Schema) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("true")) || bytes.Equal(trimmed, []byte("false")) {
		*s = Schema{}
		return nil
	}

	type plain Schema
	aux := struct {
		*plain
		Type                 json.RawMessage `json:"type,omitempty"`
		Properties           json.RawMessage `json:"properties,omitempty"`
		AdditionalProperties json.RawMessage `json:"additionalProperties,omitempty"`
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	props, order, err := decodeProperties(aux.Properties)
	if err != nil {
		return err
	}
	s.Properties, s.order = props, order

	if s.AdditionalProperties, err = decodeAdditional(aux.AdditionalProperties); err != nil {
		return err
	}

	types, err := decodeTypes(aux.Type)
	if err != nil {
		return err
	}
	s.applyTypes(types)
	return nil
}

func decodeProperties(raw json.RawMessage) (map[string]*Schema, []string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, fmt.Errorf("properties: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil, errors.New("properties: expected an object")
	}

	props := make(map[string]*Schema)
	var order []string
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, nil, fmt.Errorf("properties: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("properties: unexpected token %v", keyTok)
		}
		child := &Schema{}
		if err := dec.Decode(child); err != nil {
			return nil, nil, fmt.Errorf("properties.%s: %w", key, err)
		}
		if _, dup := props[key]; !dup {
			order = append(order, key)
		}
		props[key] = child
	}
	return props, order, nil
}

func decodeAdditional(raw json.RawMessage) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	switch {
	case len(trimmed) == 0 || string(trimmed) == "null":
		return nil, nil
	case string(trimmed) == "true":
		return true, nil
	case string(trimmed) == "false":
		return false, nil
	}
	child := &Schema{}
	if err := json.Unmarshal(trimmed, child); err != nil {
		return nil, fmt.Errorf("additionalProperties: %w", err)
	}
	return child, nil
}

func decodeTypes(raw json.RawMessage) ([]string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var types []string
		if err := json.Unmarshal(trimmed, &types); err != nil {
			return nil, fmt.Errorf("type: %w", err)
		}
		return types, nil
	}
	var single string
	if err := json.Unmarshal(trimmed, &single); err != nil {
		return nil, fmt.Errorf("type: %w", err)
	}
	return []string{single}, nil
}

// applyTypes sets Type from a decoded "type" keyword, splitting multi-type
// nodes into anyOf branches. Definitions stay on the outer node so local
// references keep resolving against it.
func (s *Schema) applyTypes(types []string) {
	var nonNull []string
	hasNull := false
	for _, t := range types {
		if t == TypeNull {
			hasNull = true
			continue
		}
		nonNull = append(nonNull, t)
	}

	switch {
	case len(types) == 0:
		return
	case len(nonNull) == 0:
		s.Type = TypeNull
		return
	case len(nonNull) == 1 && !hasNull:
		s.Type = nonNull[0]
		return
	}

	wrapper := Schema{
		Title:       s.Title,
		Description: s.Description,
		Default:     s.Default,
		Defs:        s.Defs,
		Definitions: s.Definitions,
	}
	base := *s
	base.Title, base.Description, base.Default = "", "", nil
	base.Defs, base.Definitions = nil, nil
	for _, t := range nonNull {
		branch := base
		branch.Type = t
		wrapper.AnyOf = append(wrapper.AnyOf, &branch)
	}
	if hasNull {
		wrapper.AnyOf = append(wrapper.AnyOf, &Schema{Type: TypeNull})
	}
	*s = wrapper
}
