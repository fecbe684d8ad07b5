package tunnel

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/leofalp/jsontunnel/core/extract"
	"github.com/leofalp/jsontunnel/core/schema"
	"github.com/leofalp/jsontunnel/internal/utils"
	"github.com/leofalp/jsontunnel/providers/observability"
)

// AttemptContext describes the attempt a Runner is being called for.
type AttemptContext struct {
	// Attempt is zero-based.
	Attempt    int
	MaxRetries int
	// LastFailure is the previous attempt's failure, nil on attempt 0.
	LastFailure *Failure
}

// Helpers is what a Runner receives on each attempt.
type Helpers struct {
	// InjectSchema returns the prompt to send for this attempt. On attempt 0
	// it wraps userText with the output rules and the schema description, and
	// the trimmed userText becomes the run's intent. On later attempts
	// userText is ignored and a corrective prompt built from the intent and
	// the last failure is returned.
	InjectSchema func(userText string) string
	Context      AttemptContext
}

// Runner produces raw model output for one attempt. Errors it returns end the
// run immediately and are not retried.
type Runner func(ctx context.Context, helpers Helpers) (string, error)

// Prompt returns the common Runner: send InjectSchema(userPrompt) to
// complete and return its text.
func Prompt(userPrompt string, complete func(ctx context.Context, prompt string) (string, error)) Runner {
	return func(ctx context.Context, helpers Helpers) (string, error) {
		return complete(ctx, helpers.InjectSchema(userPrompt))
	}
}

// Tunnel turns free-form model output into values of type T that satisfy a
// schema, re-prompting the model with what went wrong until the output is
// accepted or the retry budget is spent.
//
// A Tunnel is safe for concurrent use; every Run owns its own state.
type Tunnel[T any] struct {
	schema      schema.Schema
	config      Config
	observer    observability.Provider
	description string
	// rules is the output rules followed by the description, shared by every
	// prompt.
	rules       string
	extractOpts []extract.Option
}

// New creates a Tunnel validating against s. The schema description is
// rendered once here.
func New[T any](s schema.Schema, opts ...Option) (*Tunnel[T], error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil schema", ErrInvalidConfig)
	}

	o := options{config: DefaultConfig()}
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.config.validate(); err != nil {
		return nil, err
	}

	description := schema.Describe(s.Definition(), o.config.SchemaName)
	t := &Tunnel[T]{
		schema:      s,
		config:      o.config,
		observer:    o.observer,
		description: description,
		rules:       outputRules + sectionSeparator + description,
	}
	if o.config.RepairJSON {
		t.extractOpts = append(t.extractOpts, extract.WithRepair())
	}
	return t, nil
}

// NewFor creates a Tunnel whose schema is generated from T.
func NewFor[T any](opts ...Option) (*Tunnel[T], error) {
	s, err := schema.For[T]()
	if err != nil {
		return nil, err
	}
	return New[T](s, opts...)
}

// Description returns the rendered schema description used in prompts.
func (t *Tunnel[T]) Description() string {
	return t.description
}

// Schema returns the schema outputs are validated against.
func (t *Tunnel[T]) Schema() schema.Schema {
	return t.schema
}

// Config returns the tunnel configuration.
func (t *Tunnel[T]) Config() Config {
	return t.config
}

// Run calls runner until its output holds JSON the schema accepts, at most
// MaxRetries+1 times, and returns that value decoded into T.
//
// When every attempt is rejected the error is a *MaxRetriesError holding the
// failures in order. A runner error is returned wrapped, without further
// attempts. If ctx is done before an attempt starts or while the runner is
// running, ctx.Err() is returned and that attempt is not recorded.
func (t *Tunnel[T]) Run(ctx context.Context, runner Runner) (T, error) {
	var zero T
	if runner == nil {
		return zero, fmt.Errorf("%w: nil runner", ErrInvalidConfig)
	}

	ctx, obs := t.startObserving(ctx)
	state := &runState{}
	var failures []Failure
	var last *Failure

	for attempt := 0; attempt <= t.config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			obs.failed(ctx, attempt, err)
			return zero, err
		}

		attemptCtx := AttemptContext{Attempt: attempt, MaxRetries: t.config.MaxRetries, LastFailure: last}
		helpers := Helpers{
			InjectSchema: t.injector(ctx, obs, state, attemptCtx),
			Context:      attemptCtx,
		}

		obs.attempt(ctx, attempt)
		timer := utils.NewTimer()
		output, err := runner(ctx, helpers)
		elapsed := timer.Stop()

		if ctxErr := ctx.Err(); ctxErr != nil {
			obs.failed(ctx, attempt+1, ctxErr)
			return zero, ctxErr
		}
		if err != nil {
			err = fmt.Errorf("tunnel: runner failed on attempt %d: %w", attempt, err)
			obs.failed(ctx, attempt+1, err)
			return zero, err
		}
		obs.output(ctx, attempt, output, elapsed)

		value, failure := t.evaluate(output)
		if failure == nil {
			obs.succeeded(ctx, attempt+1)
			return value, nil
		}

		failures = append(failures, *failure)
		obs.rejected(ctx, attempt, *failure)
		last = failure
	}

	err := &MaxRetriesError{Attempts: len(failures), Failures: failures}
	obs.failed(ctx, len(failures), err)
	return zero, err
}

// injector returns the InjectSchema helper of one attempt.
func (t *Tunnel[T]) injector(ctx context.Context, obs *runObserver, state *runState, attempt AttemptContext) func(string) string {
	return func(userText string) string {
		var prompt string
		if attempt.Attempt == 0 || attempt.LastFailure == nil {
			trimmed := strings.TrimSpace(userText)
			state.lock(trimmed)
			prompt = t.initialPrompt(trimmed)
		} else {
			prompt = t.correctivePrompt(state.intent, *attempt.LastFailure)
		}
		obs.prompt(ctx, attempt.Attempt, prompt)
		return prompt
	}
}

// evaluate extracts, validates and decodes output. A nil failure means
// value is the accepted result.
func (t *Tunnel[T]) evaluate(output string) (T, *Failure) {
	var zero T

	res := extract.Parse(output, t.extractOpts...)
	switch res.Kind {
	case extract.NotFound:
		return zero, &Failure{Kind: NoJSON, RawOutput: output}
	case extract.ParseError:
		return zero, &Failure{
			Kind:         InvalidJSON,
			RawOutput:    output,
			JSONText:     res.JSONText,
			ParseMessage: res.Message,
		}
	case extract.Found:
	default:
		panic(fmt.Sprintf("tunnel: unknown extraction kind %s", res.Kind))
	}

	accepted, err := t.schema.Validate(res.Value)
	if err == nil {
		var value T
		value, err = decodeAs[T](accepted)
		if err == nil {
			return value, nil
		}
	}

	issues := schema.IssuesOf(err)
	return zero, &Failure{
		Kind:       SchemaMismatch,
		RawOutput:  output,
		JSONText:   res.JSONText,
		IssuesText: schema.FormatIssues(issues),
		Issues:     issues,
	}
}

// decodeAs converts a validated JSON value into T. Values already of type T,
// which includes every value when T is any, are returned as they are.
func decodeAs[T any](value any) (T, error) {
	if typed, ok := value.(T); ok {
		return typed, nil
	}
	var out T
	encoded, err := json.Marshal(value)
	if err != nil {
		return out, fmt.Errorf("cannot re-encode value: %w", err)
	}
	if err := json.Unmarshal(encoded, &out); err != nil {
		return out, fmt.Errorf("value does not fit %T: %w", out, err)
	}
	return out, nil
}
