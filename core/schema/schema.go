package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leofalp/jsontunnel/pkg/jsonschema"
)

// ErrCompile is returned when a schema document cannot be compiled into a
// validator.
var ErrCompile = errors.New("jsontunnel: schema compilation failed")

// Schema is the capability the extraction loop needs from a validation
// schema: validate a decoded JSON value, and expose its structure so it can
// be described to a model.
type Schema interface {
	// Validate checks value and returns the accepted value. Shape failures
	// are reported as a *ValidationError.
	Validate(value any) (any, error)
	// Definition returns the structure used to render the schema into a
	// prompt. It must not be modified by callers.
	Definition() *jsonschema.Schema
}

// Issue is a single validation failure.
type Issue struct {
	// Path holds the field names and array indices leading to the offending
	// value; empty when the issue concerns the whole value.
	Path    []string
	Message string
}

// RootPath is the path marker used for issues on the whole value.
const RootPath = "<root>"

// PathString joins the path with dots, or returns RootPath.
func (i Issue) PathString() string {
	if len(i.Path) == 0 {
		return RootPath
	}
	return strings.Join(i.Path, ".")
}

// ValidationError carries the issues found by a Schema, in the order the
// validator reported them.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	switch len(e.Issues) {
	case 0:
		return "schema validation failed"
	case 1:
		return fmt.Sprintf("schema validation failed: %s: %s", e.Issues[0].PathString(), e.Issues[0].Message)
	default:
		return fmt.Sprintf("schema validation failed with %d issues, first: %s: %s",
			len(e.Issues), e.Issues[0].PathString(), e.Issues[0].Message)
	}
}

// Format renders the issues with [FormatIssues].
func (e *ValidationError) Format() string {
	return FormatIssues(e.Issues)
}

// IssuesOf returns the issues carried by err. Errors that are not a
// *ValidationError become a single root issue with the error text.
func IssuesOf(err error) []Issue {
	if err == nil {
		return nil
	}
	var validationErr *ValidationError
	if errors.As(err, &validationErr) && len(validationErr.Issues) > 0 {
		return validationErr.Issues
	}
	return []Issue{{Message: err.Error()}}
}

// Custom adapts a hand-written validation function to Schema. def is only
// used for describing the expected shape; validate alone decides what is
// accepted and returns nil issues on success.
func Custom(def *jsonschema.Schema, validate func(value any) []Issue) Schema {
	return customSchema{def: def, validate: validate}
}

type customSchema struct {
	def      *jsonschema.Schema
	validate func(value any) []Issue
}

func (c customSchema) Validate(value any) (any, error) {
	if issues := c.validate(value); len(issues) > 0 {
		return nil, &ValidationError{Issues: issues}
	}
	return value, nil
}

func (c customSchema) Definition() *jsonschema.Schema {
	return c.def
}
