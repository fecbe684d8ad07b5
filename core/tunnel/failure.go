package tunnel

import (
	"fmt"

	"github.com/leofalp/jsontunnel/core/schema"
)

// FailureKind classifies why an attempt's output was rejected.
type FailureKind int

const (
	// NoJSON means the output held no balanced JSON object or array.
	NoJSON FailureKind = iota
	// InvalidJSON means a balanced span was found but did not decode.
	InvalidJSON
	// SchemaMismatch means the JSON decoded but the schema rejected it.
	SchemaMismatch
)

func (k FailureKind) String() string {
	switch k {
	case NoJSON:
		return "no_json"
	case InvalidJSON:
		return "invalid_json"
	case SchemaMismatch:
		return "schema_mismatch"
	default:
		return fmt.Sprintf("failure_kind(%d)", int(k))
	}
}

// Failure records one rejected attempt. Which fields are set depends on Kind:
//
//	NoJSON          RawOutput
//	InvalidJSON     RawOutput, JSONText, ParseMessage
//	SchemaMismatch  RawOutput, JSONText, IssuesText, Issues
type Failure struct {
	Kind      FailureKind
	RawOutput string
	// JSONText is the balanced span found in RawOutput.
	JSONText     string
	ParseMessage string
	// IssuesText is Issues rendered with schema.FormatIssues.
	IssuesText string
	Issues     []schema.Issue
}

// Message is the one-sentence explanation put after "Error: " in a
// corrective prompt. It panics on an unknown Kind.
func (f Failure) Message() string {
	switch f.Kind {
	case NoJSON:
		return "No JSON object or array was found in your response."
	case InvalidJSON:
		return "The JSON in your response could not be parsed: " + f.ParseMessage
	case SchemaMismatch:
		return "The JSON in your response does not match the required type."
	default:
		panic(fmt.Sprintf("tunnel: unknown failure kind %d", int(f.Kind)))
	}
}
