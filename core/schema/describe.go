package schema

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/leofalp/jsontunnel/pkg/jsonschema"
)

// DefaultName is the declaration name used when Describe is given none.
const DefaultName = "Output"

// Describe renders def as a compact TypeScript-like declaration meant to be
// pasted into a prompt. Objects become an interface named name, anything else
// a type alias:
//
//	interface Person {
//	  name: string;
//	  age?: integer; // years
//	  role: "admin" | "user";
//	  tags: (string | number)[];
//	}
//
// Optional properties carry a "?" and nullable values a "| null"
// alternative. Recursive definitions are declared once after the main
// declaration and referenced by name.
func Describe(def *jsonschema.Schema, name string) string {
	if name == "" {
		name = DefaultName
	}
	r := &renderer{
		root:     def,
		rootName: name,
		aliases:  make(map[string]string),
		visiting: make(map[string]bool),
		pending:  make(map[string]*jsonschema.Schema),
		done:     make(map[string]bool),
	}
	if def != nil && def.Ref != "" {
		// a recursive root is a reference to its own definition
		if _, defName, ok := def.Resolve(def.Ref); ok && defName != "" {
			r.aliases[defName] = name
		}
	}

	var b strings.Builder
	b.WriteString(r.declaration(name, def))

	for len(r.pending) > 0 {
		names := make([]string, 0, len(r.pending))
		for n := range r.pending {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			d := r.pending[n]
			delete(r.pending, n)
			if r.done[n] {
				continue
			}
			r.done[n] = true
			r.visiting[n] = true
			b.WriteString("\n\n")
			b.WriteString(r.declaration(typeName(n), d))
			delete(r.visiting, n)
		}
	}
	return b.String()
}

type renderer struct {
	root     *jsonschema.Schema
	rootName string
	// aliases maps definitions that stand for the root to the root name.
	aliases map[string]string
	// visiting holds definition names currently being inlined.
	visiting map[string]bool
	// pending holds recursive definitions still to be declared.
	pending map[string]*jsonschema.Schema
	done    map[string]bool
}

func (r *renderer) declaration(name string, def *jsonschema.Schema) string {
	target := def
	if def != nil && def.Ref != "" {
		if resolved, _, ok := r.root.Resolve(def.Ref); ok {
			target = resolved
		}
	}
	if isObjectShape(target) {
		return "interface " + name + " " + r.object(target, 0)
	}
	return "type " + name + " = " + r.render(def, 0) + ";"
}

func (r *renderer) render(s *jsonschema.Schema, depth int) string {
	if s == nil {
		return "unknown"
	}
	if s.Ref != "" {
		return r.ref(s.Ref, depth)
	}
	if s.Const != nil {
		return literal(s.Const)
	}
	if len(s.Enum) > 0 {
		parts := make([]string, len(s.Enum))
		for i, v := range s.Enum {
			parts[i] = literal(v)
		}
		return strings.Join(parts, " | ")
	}
	if len(s.AllOf) > 0 {
		parts := make([]string, len(s.AllOf))
		for i, member := range s.AllOf {
			parts[i] = r.render(member, depth)
			if r.isUnion(member) {
				parts[i] = "(" + parts[i] + ")"
			}
		}
		return strings.Join(parts, " & ")
	}
	if alternatives := unionMembers(s); len(alternatives) > 0 {
		parts := make([]string, len(alternatives))
		for i, member := range alternatives {
			parts[i] = r.render(member, depth)
		}
		return strings.Join(parts, " | ")
	}

	switch s.Type {
	case jsonschema.TypeString, jsonschema.TypeNumber, jsonschema.TypeInteger,
		jsonschema.TypeBoolean, jsonschema.TypeNull:
		return s.Type
	case jsonschema.TypeArray:
		item := r.render(s.Items, depth)
		if r.isUnion(s.Items) || r.isIntersection(s.Items) {
			item = "(" + item + ")"
		}
		return item + "[]"
	case jsonschema.TypeObject, "":
		if len(s.Properties) > 0 {
			return r.object(s, depth)
		}
		if additional, ok := s.AdditionalProperties.(*jsonschema.Schema); ok {
			return "Record<string, " + r.render(additional, depth) + ">"
		}
		if s.Type == jsonschema.TypeObject {
			return "Record<string, unknown>"
		}
		return "unknown"
	default:
		return s.Type
	}
}

func (r *renderer) object(s *jsonschema.Schema, depth int) string {
	var b strings.Builder
	b.WriteString("{\n")
	inner := indent(depth + 1)
	for _, name := range s.PropertyNames() {
		prop := s.Properties[name]
		b.WriteString(inner)
		b.WriteString(propertyKey(name))
		if !s.IsRequired(name) {
			b.WriteString("?")
		}
		b.WriteString(": ")
		b.WriteString(r.render(prop, depth+1))
		b.WriteString(";")
		if prop != nil && prop.Description != "" {
			b.WriteString(" // ")
			b.WriteString(strings.Join(strings.Fields(prop.Description), " "))
		}
		b.WriteString("\n")
	}
	if additional, ok := s.AdditionalProperties.(*jsonschema.Schema); ok {
		b.WriteString(inner)
		b.WriteString("[key: string]: ")
		b.WriteString(r.render(additional, depth+1))
		b.WriteString(";\n")
	}
	b.WriteString(indent(depth))
	b.WriteString("}")
	return b.String()
}

func (r *renderer) ref(ref string, depth int) string {
	def, name, ok := r.root.Resolve(ref)
	if !ok {
		return "unknown"
	}
	if name == "" {
		return r.rootName
	}
	if alias, ok := r.aliases[name]; ok {
		return alias
	}
	if r.visiting[name] || r.done[name] {
		if !r.done[name] {
			r.pending[name] = def
		}
		return typeName(name)
	}
	r.visiting[name] = true
	out := r.render(def, depth)
	delete(r.visiting, name)
	return out
}

// isUnion reports whether s renders as a top-level "|" alternation.
func (r *renderer) isUnion(s *jsonschema.Schema) bool {
	s = r.deref(s)
	if s == nil || s.Const != nil {
		return false
	}
	if len(s.Enum) > 1 {
		return true
	}
	return len(s.Enum) == 0 && len(s.AllOf) == 0 && len(unionMembers(s)) > 1
}

// isIntersection reports whether s renders as a top-level "&" intersection.
func (r *renderer) isIntersection(s *jsonschema.Schema) bool {
	s = r.deref(s)
	return s != nil && s.Const == nil && len(s.Enum) == 0 && len(s.AllOf) > 1
}

// deref follows a reference unless it would render as a name.
func (r *renderer) deref(s *jsonschema.Schema) *jsonschema.Schema {
	if s == nil || s.Ref == "" {
		return s
	}
	def, name, ok := r.root.Resolve(s.Ref)
	if !ok || name == "" || r.visiting[name] || r.done[name] {
		return nil
	}
	if _, aliased := r.aliases[name]; aliased {
		return nil
	}
	return def
}

func unionMembers(s *jsonschema.Schema) []*jsonschema.Schema {
	if len(s.AnyOf) > 0 {
		return s.AnyOf
	}
	return s.OneOf
}

func isObjectShape(s *jsonschema.Schema) bool {
	return s != nil && (s.Type == jsonschema.TypeObject || s.Type == "") &&
		len(s.Properties) > 0 && s.Ref == "" && len(s.AnyOf) == 0 && len(s.OneOf) == 0 &&
		len(s.AllOf) == 0 && len(s.Enum) == 0 && s.Const == nil
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

func propertyKey(name string) string {
	if identifierPattern.MatchString(name) {
		return name
	}
	return strconv.Quote(name)
}

func typeName(defName string) string {
	if defName == "" {
		return "Unknown"
	}
	return strings.ToUpper(defName[:1]) + defName[1:]
}

func literal(v any) string {
	encoded, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(encoded)
}

func indent(depth int) string {
	return strings.Repeat("  ", depth)
}
