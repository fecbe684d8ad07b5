package tunnel

import (
	"fmt"

	"github.com/leofalp/jsontunnel/core/schema"
	"github.com/leofalp/jsontunnel/providers/observability"
)

// Config holds the settings of a Tunnel. It is fixed once New returns.
type Config struct {
	// MaxRetries is the number of corrective attempts after the first one, so
	// a run makes at most MaxRetries+1 runner calls. Zero means a single
	// attempt.
	MaxRetries int

	// SystemPrompt, when set, opens every prompt of a run.
	SystemPrompt string

	// SchemaName names the rendered type declaration, e.g. "interface Output".
	SchemaName string

	// MaxFailureOutputChars bounds, in characters, how much of a rejected
	// response is echoed back in the next corrective prompt.
	MaxFailureOutputChars int

	// RepairJSON lets a balanced but malformed span be repaired before it is
	// counted as invalid JSON.
	RepairJSON bool
}

// DefaultConfig returns the configuration used when New gets no options.
func DefaultConfig() Config {
	return Config{
		MaxRetries:            2,
		SchemaName:            schema.DefaultName,
		MaxFailureOutputChars: 4000,
	}
}

func (c Config) validate() error {
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: MaxRetries must not be negative, got %d", ErrInvalidConfig, c.MaxRetries)
	}
	if c.MaxFailureOutputChars <= 0 {
		return fmt.Errorf("%w: MaxFailureOutputChars must be positive, got %d", ErrInvalidConfig, c.MaxFailureOutputChars)
	}
	return nil
}

// options collects what Option functions set: the Config plus the
// collaborators that are not part of it.
type options struct {
	config   Config
	observer observability.Provider
}

// Option configures a Tunnel.
type Option func(*options)

// WithConfig replaces the whole configuration. Options after it still apply.
func WithConfig(config Config) Option {
	return func(o *options) {
		o.config = config
	}
}

// WithMaxRetries sets Config.MaxRetries.
func WithMaxRetries(n int) Option {
	return func(o *options) {
		o.config.MaxRetries = n
	}
}

// WithSystemPrompt sets Config.SystemPrompt.
func WithSystemPrompt(prompt string) Option {
	return func(o *options) {
		o.config.SystemPrompt = prompt
	}
}

// WithSchemaName sets Config.SchemaName.
func WithSchemaName(name string) Option {
	return func(o *options) {
		o.config.SchemaName = name
	}
}

// WithMaxFailureOutputChars sets Config.MaxFailureOutputChars.
func WithMaxFailureOutputChars(n int) Option {
	return func(o *options) {
		o.config.MaxFailureOutputChars = n
	}
}

// WithJSONRepair sets Config.RepairJSON.
func WithJSONRepair() Option {
	return func(o *options) {
		o.config.RepairJSON = true
	}
}

// WithObserver reports runs to provider. Without it the provider carried by
// the run context, if any, is used.
func WithObserver(provider observability.Provider) Option {
	return func(o *options) {
		o.observer = provider
	}
}
