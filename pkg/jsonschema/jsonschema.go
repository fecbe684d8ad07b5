package jsonschema

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Type names used in the "type" keyword.
const (
	TypeString  = "string"
	TypeNumber  = "number"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
	TypeNull    = "null"
	TypeArray   = "array"
	TypeObject  = "object"
)

// Schema is the subset of JSON Schema used to describe and validate the
// output expected from a model. It round-trips through encoding/json, so a
// Schema can be handed to any draft 2020-12 validator.
//
// Property order is not part of JSON Schema but matters when a schema is
// rendered into a prompt; it is tracked separately from the Properties map
// and populated by the generators and by [Parse].
type Schema struct {
	Type        string   `json:"type,omitempty"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Required    []string `json:"required,omitempty"`
	// Properties of an object schema, keyed by JSON field name.
	Properties map[string]*Schema `json:"properties,omitempty"`
	// Items is the schema of every element of an array.
	Items *Schema `json:"items,omitempty"`
	// AdditionalProperties is either a bool or a *Schema.
	AdditionalProperties any `json:"additionalProperties,omitempty"`
	Default              any `json:"default,omitempty"`
	// Enum lists the only values the instance may take.
	Enum  []any `json:"enum,omitempty"`
	Const any   `json:"const,omitempty"`

	AnyOf []*Schema `json:"anyOf,omitempty"`
	OneOf []*Schema `json:"oneOf,omitempty"`
	AllOf []*Schema `json:"allOf,omitempty"`

	Format    string   `json:"format,omitempty"`
	Pattern   string   `json:"pattern,omitempty"`
	Minimum   *float64 `json:"minimum,omitempty"`
	Maximum   *float64 `json:"maximum,omitempty"`
	MinLength *int     `json:"minLength,omitempty"`
	MaxLength *int     `json:"maxLength,omitempty"`
	MinItems  *int     `json:"minItems,omitempty"`
	MaxItems  *int     `json:"maxItems,omitempty"`

	// Ref is a JSON pointer into Defs (or Definitions), e.g. "#/$defs/node".
	Ref         string             `json:"$ref,omitempty"`
	Defs        map[string]*Schema `json:"$defs,omitempty"`
	Definitions map[string]*Schema `json:"definitions,omitempty"`

	order  []string
	source []byte
}

// Object returns an object schema whose properties keep the given order.
// Every property is required unless listed in optional.
func Object(props []Property, optional ...string) *Schema {
	s := &Schema{Type: TypeObject, Properties: make(map[string]*Schema, len(props))}
	skip := make(map[string]bool, len(optional))
	for _, name := range optional {
		skip[name] = true
	}
	for _, p := range props {
		s.SetProperty(p.Name, p.Schema, !skip[p.Name])
	}
	return s
}

// Property pairs a field name with its schema, for [Object].
type Property struct {
	Name   string
	Schema *Schema
}

// Prop is shorthand for a [Property] literal.
func Prop(name string, schema *Schema) Property {
	return Property{Name: name, Schema: schema}
}

// ArrayOf returns an array schema with the given item schema.
func ArrayOf(items *Schema) *Schema {
	return &Schema{Type: TypeArray, Items: items}
}

// Nullable wraps s so that null is also accepted.
func Nullable(s *Schema) *Schema {
	return &Schema{AnyOf: []*Schema{s, {Type: TypeNull}}}
}

// SetProperty adds or replaces a property, keeping first-insertion order.
func (s *Schema) SetProperty(name string, prop *Schema, required bool) {
	if s.Properties == nil {
		s.Properties = make(map[string]*Schema)
	}
	if _, exists := s.Properties[name]; !exists {
		s.order = append(s.order, name)
	}
	s.Properties[name] = prop
	if required && !s.IsRequired(name) {
		s.Required = append(s.Required, name)
	}
}

// PropertyNames returns the property names in declaration order. Names that
// were set directly on the Properties map, bypassing SetProperty, follow in
// lexical order.
func (s *Schema) PropertyNames() []string {
	if len(s.Properties) == 0 {
		return nil
	}
	names := make([]string, 0, len(s.Properties))
	seen := make(map[string]bool, len(s.Properties))
	for _, name := range s.order {
		if _, ok := s.Properties[name]; ok && !seen[name] {
			names = append(names, name)
			seen[name] = true
		}
	}
	var rest []string
	for name := range s.Properties {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

// IsRequired reports whether name is listed in Required.
func (s *Schema) IsRequired(name string) bool {
	for _, r := range s.Required {
		if r == name {
			return true
		}
	}
	return false
}

// Resolve looks up a local reference ("#/$defs/x" or "#/definitions/x")
// against the definitions of s.
func (s *Schema) Resolve(ref string) (*Schema, string, bool) {
	switch {
	case strings.HasPrefix(ref, "#/$defs/"):
		name := strings.TrimPrefix(ref, "#/$defs/")
		def, ok := s.Defs[name]
		return def, name, ok
	case strings.HasPrefix(ref, "#/definitions/"):
		name := strings.TrimPrefix(ref, "#/definitions/")
		def, ok := s.Definitions[name]
		return def, name, ok
	case ref == "#":
		return s, "", true
	}
	return nil, "", false
}

// Source returns the document s was parsed from, or nil when s was built in
// code. Validators prefer it over re-encoding, so keywords this type does not
// model are still enforced.
func (s *Schema) Source() []byte {
	return s.source
}

// JsonString converts the Schema to its JSON representation
// indent: optional bool parameter. If true, formats JSON with indentation. If false or omitted, returns compact JSON.
func (s *Schema) JsonString(indent ...bool) (string, error) {
	var jsonBytes []byte
	var err error

	if len(indent) > 0 && indent[0] {
		jsonBytes, err = json.MarshalIndent(s, "", "  ")
	} else {
		jsonBytes, err = json.Marshal(s)
	}

	if err != nil {
		return "", fmt.Errorf("failed to marshal schema to JSON: %w", err)
	}
	return string(jsonBytes), nil
}

// String returns the compact JSON representation of the schema.
func (s *Schema) String() string {
	jsonStr, err := s.JsonString()
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	return jsonStr
}
