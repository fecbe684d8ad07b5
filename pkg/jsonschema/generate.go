package jsonschema

import (
	"fmt"
	"log/slog"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var timeType = reflect.TypeFor[time.Time]()

// GenerateJSONSchema generates a JSON schema for T using reflection.
//
// Fields follow encoding/json naming: the json tag name when present, the Go
// field name otherwise, "-" skips the field and anonymous structs without a
// tag are flattened. A field is required unless it is a pointer or carries
// omitempty; a `jsonschema:"required"` tag forces it. Pointer fields also
// accept null. Struct types that refer to themselves are emitted once under
// $defs and referenced with $ref; a recursive root is itself a $ref.
func GenerateJSONSchema[T any]() (*Schema, error) {
	t := reflect.TypeFor[T]()
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() == reflect.Func || t.Kind() == reflect.Chan {
		return nil, fmt.Errorf("cannot generate a schema for %s", t)
	}

	gen := &generator{
		visited: make(map[reflect.Type]string),
		defs:    make(map[string]*Schema),
	}
	schema := gen.root(t)
	if len(gen.defs) > 0 {
		schema.Defs = gen.defs
	}
	return schema, nil
}

// generator tracks the state during schema generation to handle recursion
type generator struct {
	visited map[reflect.Type]string // Maps recursive types to their definition names
	defs    map[string]*Schema
}

func (g *generator) root(t reflect.Type) *Schema {
	if t.Kind() == reflect.Struct && t != timeType && hasRecursiveFields(t) {
		// the root refers to its own definition, so it cannot be inlined
		name := defName(t)
		g.visited[t] = name
		g.defs[name] = g.object(t)
		return &Schema{Ref: "#/$defs/" + name}
	}
	if t.Kind() == reflect.Struct && t != timeType {
		return g.object(t)
	}
	return g.field(t)
}

// field generates the schema for a value of type t in a non-root position.
func (g *generator) field(t reflect.Type) *Schema {
	switch t.Kind() {
	case reflect.String:
		return &Schema{Type: TypeString}
	case reflect.Bool:
		return &Schema{Type: TypeBoolean}
	case reflect.Float32, reflect.Float64:
		return &Schema{Type: TypeNumber}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &Schema{Type: TypeInteger}
	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			// encoding/json writes []byte as a base64 string
			return &Schema{Type: TypeString}
		}
		return ArrayOf(g.field(t.Elem()))
	case reflect.Map:
		return &Schema{Type: TypeObject, AdditionalProperties: g.field(t.Elem())}
	case reflect.Ptr:
		return Nullable(g.field(t.Elem()))
	case reflect.Struct:
		if t == timeType {
			return &Schema{Type: TypeString, Format: "date-time"}
		}
		return g.structRef(t)
	default:
		// interfaces accept any JSON value
		return &Schema{}
	}
}

// structRef inlines non-recursive structs and routes recursive ones through $defs.
func (g *generator) structRef(t reflect.Type) *Schema {
	if name, ok := g.visited[t]; ok {
		return &Schema{Ref: "#/$defs/" + name}
	}
	if !hasRecursiveFields(t) {
		return g.object(t)
	}

	name := defName(t)
	g.visited[t] = name
	g.defs[name] = g.object(t)
	return &Schema{Ref: "#/$defs/" + name}
}

func (g *generator) object(t reflect.Type) *Schema {
	obj := &Schema{Type: TypeObject, Properties: map[string]*Schema{}}
	g.addFields(obj, t)
	return obj
}

func (g *generator) addFields(obj *Schema, t reflect.Type) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		jsonTag := field.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}

		name, omitEmpty := parseJSONTag(jsonTag)
		if field.Anonymous && name == "" {
			embedded := field.Type
			if embedded.Kind() == reflect.Ptr {
				embedded = embedded.Elem()
			}
			if embedded.Kind() == reflect.Struct {
				g.addFields(obj, embedded)
				continue
			}
		}
		if !field.IsExported() {
			continue
		}
		if name == "" {
			name = field.Name
		}

		prop := g.field(field.Type)
		requiredByTag := false
		if prop.Ref == "" {
			target := prop
			if field.Type.Kind() == reflect.Ptr && len(prop.AnyOf) > 0 {
				target = prop.AnyOf[0]
			}
			var err error
			requiredByTag, err = applyJSONSchemaTag(field.Type, field.Tag, target)
			if err != nil {
				slog.Warn("ignoring invalid jsonschema tag", "field", name, "error", err)
			}
			if target != prop {
				prop.Description, target.Description = target.Description, ""
			}
		}

		required := (field.Type.Kind() != reflect.Ptr && !omitEmpty) || requiredByTag
		obj.SetProperty(name, prop, required)
	}
}

func parseJSONTag(tag string) (name string, omitEmpty bool) {
	if tag == "" {
		return "", false
	}
	name, opts, _ := strings.Cut(tag, ",")
	return name, strings.Contains(opts, "omitempty") || strings.Contains(opts, "omitzero")
}

// hasRecursiveFields checks if a struct type has fields that reference itself
func hasRecursiveFields(t reflect.Type) bool {
	return checkRecursion(t, t, make(map[reflect.Type]bool))
}

// checkRecursion reports whether target is reachable from the fields of current.
func checkRecursion(target, current reflect.Type, visited map[reflect.Type]bool) bool {
	if visited[current] {
		return false
	}
	visited[current] = true

	var next []reflect.Type
	switch current.Kind() {
	case reflect.Struct:
		for i := 0; i < current.NumField(); i++ {
			next = append(next, current.Field(i).Type)
		}
	case reflect.Slice, reflect.Array, reflect.Ptr, reflect.Map:
		next = append(next, current.Elem())
	}

	for _, ft := range next {
		for ft.Kind() == reflect.Ptr || ft.Kind() == reflect.Slice || ft.Kind() == reflect.Array || ft.Kind() == reflect.Map {
			ft = ft.Elem()
		}
		if ft == target {
			return true
		}
		if ft.Kind() == reflect.Struct && checkRecursion(target, ft, visited) {
			return true
		}
	}
	return false
}

// defName creates a definition name for a type
func defName(t reflect.Type) string {
	if t.Name() != "" {
		return strings.ToLower(t.Name())
	}
	return "anonymousStruct"
}

// applyJSONSchemaTag applies the jsonschema struct tag to schema and reports
// whether the tag marks the field as required.
// Supported keys:
//   - description=xxx
//   - title=xxx
//   - format=xxx
//   - enum=xxx (repeatable; values are converted to the field's kind)
//   - required
func applyJSONSchemaTag(fieldType reflect.Type, tag reflect.StructTag, schema *Schema) (bool, error) {
	jsonSchemaTag := tag.Get("jsonschema")
	if jsonSchemaTag == "" {
		return false, nil
	}
	for fieldType.Kind() == reflect.Ptr {
		fieldType = fieldType.Elem()
	}

	required := false
	for _, item := range strings.Split(jsonSchemaTag, ",") {
		key, value, hasValue := strings.Cut(item, "=")
		if !hasValue {
			if key == "required" {
				required = true
			}
			continue
		}

		switch key {
		case "description":
			schema.Description = value
		case "title":
			schema.Title = value
		case "format":
			schema.Format = value
		case "enum":
			v, err := enumValue(fieldType, value)
			if err != nil {
				return required, err
			}
			schema.Enum = append(schema.Enum, v)
		}
	}
	return required, nil
}

func enumValue(fieldType reflect.Type, value string) (any, error) {
	switch fieldType.Kind() {
	case reflect.String:
		return value, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse enum value %v to int64 failed: %w", value, err)
		}
		return v, nil
	case reflect.Float32, reflect.Float64:
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("parse enum value %v to float64 failed: %w", value, err)
		}
		return v, nil
	case reflect.Bool:
		v, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("parse enum value %v to bool failed: %w", value, err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("enum tag unsupported for field type: %v", fieldType)
	}
}
