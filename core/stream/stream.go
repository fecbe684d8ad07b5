package stream

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/leofalp/jsontunnel/core/extract"
	"github.com/leofalp/jsontunnel/core/schema"
	"github.com/leofalp/jsontunnel/providers/observability"
)

// Kind classifies the accumulated buffer after a push.
type Kind int

const (
	// NoJSONYet means the buffer holds no balanced object or array so far.
	NoJSONYet Kind = iota
	// InvalidJSON means a balanced span was found but does not decode.
	InvalidJSON
	// InvalidSchema means the span decodes but the schema rejects it.
	InvalidSchema
	// Valid means the span decodes and the schema accepts it.
	Valid
)

func (k Kind) String() string {
	switch k {
	case NoJSONYet:
		return "no_json_yet"
	case InvalidJSON:
		return "invalid_json"
	case InvalidSchema:
		return "invalid_schema"
	case Valid:
		return "valid"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Result reports on the buffer as it stood after one push. No kind is final:
// pushing more text produces a new report on the larger buffer.
type Result struct {
	Kind   Kind
	Buffer string
	// JSONText is the balanced span, empty for NoJSONYet.
	JSONText string
	// Data is the validated value, set only for Valid.
	Data any
	// Message is the decoder error for InvalidJSON and the validation
	// summary for InvalidSchema.
	Message    string
	IssuesText string
	Issues     []schema.Issue
}

// Option configures a Validator.
type Option func(*Validator)

// WithRepair lets balanced but malformed spans be repaired before they are
// reported as InvalidJSON.
func WithRepair() Option {
	return func(v *Validator) {
		v.extractOpts = append(v.extractOpts, extract.WithRepair())
	}
}

// Validator applies extraction and schema validation to text that arrives
// in chunks. Every push re-examines the whole buffer, so results depend only
// on the accumulated text and never on where chunks were split.
//
// A Validator serves a single producer; concurrent pushes need external
// locking.
type Validator struct {
	schema      schema.Schema
	extractOpts []extract.Option
	buffer      strings.Builder
	chunks      int
}

// NewValidator creates a Validator for s with an empty buffer.
func NewValidator(s schema.Schema, opts ...Option) *Validator {
	v := &Validator{schema: s}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Push appends chunk to the buffer and classifies the result.
func (v *Validator) Push(chunk string) Result {
	v.buffer.WriteString(chunk)
	v.chunks++
	return v.classify(v.buffer.String())
}

// Reset empties the buffer so the Validator can follow another stream.
func (v *Validator) Reset() {
	v.buffer.Reset()
	v.chunks = 0
}

// Buffer returns the text pushed since the last Reset.
func (v *Validator) Buffer() string {
	return v.buffer.String()
}

func (v *Validator) classify(buffer string) Result {
	res := extract.Parse(buffer, v.extractOpts...)
	switch res.Kind {
	case extract.NotFound:
		return Result{Kind: NoJSONYet, Buffer: buffer}
	case extract.ParseError:
		return Result{Kind: InvalidJSON, Buffer: buffer, JSONText: res.JSONText, Message: res.Message}
	case extract.Found:
	default:
		panic(fmt.Sprintf("stream: unknown extraction kind %s", res.Kind))
	}

	data, err := v.schema.Validate(res.Value)
	if err != nil {
		issues := schema.IssuesOf(err)
		return Result{
			Kind:       InvalidSchema,
			Buffer:     buffer,
			JSONText:   res.JSONText,
			Message:    err.Error(),
			IssuesText: schema.FormatIssues(issues),
			Issues:     issues,
		}
	}
	return Result{Kind: Valid, Buffer: buffer, JSONText: res.JSONText, Data: data}
}

// Consume pushes every chunk of chunks and returns the first Valid result,
// or the last result if the sequence ends without one. A chunk error or ctx
// ending stops consumption and is returned with the last result.
//
//	v := stream.NewValidator(s)
//	res, err := v.Consume(ctx, llm.Stream(ctx, prompt))
//	if err == nil && res.Kind == stream.Valid {
//	    use(res.Data)
//	}
func (v *Validator) Consume(ctx context.Context, chunks iter.Seq2[string, error]) (Result, error) {
	last := Result{Kind: NoJSONYet, Buffer: v.Buffer()}
	for chunk, err := range chunks {
		if err != nil {
			return last, fmt.Errorf("stream: reading chunk %d: %w", v.chunks, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return last, ctxErr
		}
		last = v.Push(chunk)
		if last.Kind == Valid {
			break
		}
	}

	if observer := observability.ObserverFromContext(ctx); observer != nil {
		observer.Debug(ctx, "stream consumed",
			observability.Int(observability.AttrStreamChunks, v.chunks),
			observability.Int(observability.AttrStreamBufferSize, len(last.Buffer)),
			observability.String(observability.AttrStreamKind, last.Kind.String()))
	}
	return last, nil
}
