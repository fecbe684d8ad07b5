package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	jsv "github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/leofalp/jsontunnel/pkg/jsonschema"
)

// compiledCacheSize bounds the number of compiled validators kept in memory.
const compiledCacheSize = 128

// compiled caches validators by schema document, so tunnels built from the
// same schema share one compilation.
var compiled = mustCache()

func mustCache() *lru.Cache[string, *jsv.Schema] {
	c, err := lru.New[string, *jsv.Schema](compiledCacheSize)
	if err != nil {
		panic(err)
	}
	return c
}

// printer is a default English printer for localized error messages.
var printer = message.NewPrinter(language.English)

// JSONSchema is a Schema backed by a compiled JSON Schema (draft 2020-12
// unless the document declares otherwise).
type JSONSchema struct {
	def      *jsonschema.Schema
	compiled *jsv.Schema
}

var _ Schema = (*JSONSchema)(nil)

// Compile builds a validator for def. When def was produced by
// [jsonschema.Parse] its original document is compiled, so keywords that the
// jsonschema.Schema type does not model are still enforced.
func Compile(def *jsonschema.Schema) (*JSONSchema, error) {
	if def == nil {
		return nil, fmt.Errorf("%w: nil schema", ErrCompile)
	}

	doc := def.Source()
	if doc == nil {
		var err error
		if doc, err = json.Marshal(def); err != nil {
			return nil, fmt.Errorf("%w: marshaling schema: %w", ErrCompile, err)
		}
	}

	key := string(doc)
	if cached, ok := compiled.Get(key); ok {
		return &JSONSchema{def: def, compiled: cached}, nil
	}

	value, err := jsv.UnmarshalJSON(bytes.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("%w: decoding schema: %w", ErrCompile, err)
	}

	compiler := jsv.NewCompiler()
	if err := compiler.AddResource("schema.json", value); err != nil {
		return nil, fmt.Errorf("%w: adding schema resource: %w", ErrCompile, err)
	}
	sch, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompile, err)
	}

	compiled.Add(key, sch)
	return &JSONSchema{def: def, compiled: sch}, nil
}

// FromJSON parses and compiles a JSON Schema document.
func FromJSON(data []byte) (*JSONSchema, error) {
	def, err := jsonschema.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompile, err)
	}
	return Compile(def)
}

// For compiles the schema generated from the Go type T.
func For[T any]() (*JSONSchema, error) {
	def, err := jsonschema.GenerateJSONSchema[T]()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompile, err)
	}
	return Compile(def)
}

// MustCompile is like Compile but panics on error. Intended for package-level
// schema variables.
func MustCompile(def *jsonschema.Schema) *JSONSchema {
	s, err := Compile(def)
	if err != nil {
		panic(err)
	}
	return s
}

// Definition implements Schema.
func (s *JSONSchema) Definition() *jsonschema.Schema {
	return s.def
}

// Validate implements Schema.
func (s *JSONSchema) Validate(value any) (any, error) {
	err := s.compiled.Validate(value)
	if err == nil {
		return value, nil
	}
	return nil, &ValidationError{Issues: issuesFrom(err)}
}

// issuesFrom flattens a validation error into its leaf failures, in the
// order the validator produced them.
func issuesFrom(err error) []Issue {
	var validationErr *jsv.ValidationError
	if !errors.As(err, &validationErr) {
		return []Issue{{Message: err.Error()}}
	}

	var issues []Issue
	seen := make(map[string]bool)
	collectIssues(validationErr, &issues, seen)
	if len(issues) == 0 {
		issues = append(issues, Issue{
			Path:    validationErr.InstanceLocation,
			Message: validationErr.ErrorKind.LocalizedString(printer),
		})
	}
	return issues
}

func collectIssues(err *jsv.ValidationError, issues *[]Issue, seen map[string]bool) {
	if len(err.Causes) == 0 && err.ErrorKind != nil {
		if required, ok := err.ErrorKind.(*kind.Required); ok {
			for _, missing := range required.Missing {
				path := append(append([]string{}, err.InstanceLocation...), missing)
				appendIssue(issues, seen, Issue{Path: path, Message: "required property is missing"})
			}
			return
		}
		appendIssue(issues, seen, Issue{
			Path:    append([]string{}, err.InstanceLocation...),
			Message: err.ErrorKind.LocalizedString(printer),
		})
		return
	}

	for _, cause := range err.Causes {
		collectIssues(cause, issues, seen)
	}
}

func appendIssue(issues *[]Issue, seen map[string]bool, issue Issue) {
	key := issue.PathString() + "\x00" + issue.Message
	if seen[key] {
		return
	}
	seen[key] = true
	*issues = append(*issues, issue)
}
