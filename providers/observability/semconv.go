package observability

// Attribute keys, span names and metric names shared by every component that
// reports through a Provider.

// --- Tunnel Attributes ---

const (
	// AttrTunnelRunID identifies one Run call across its attempts.
	AttrTunnelRunID = "tunnel.run_id"

	// AttrTunnelAttempt is the zero-based attempt index.
	AttrTunnelAttempt = "tunnel.attempt"

	// AttrTunnelMaxRetries is the retry budget of the run.
	AttrTunnelMaxRetries = "tunnel.max_retries"

	// AttrTunnelAttempts is the number of attempts a run made.
	AttrTunnelAttempts = "tunnel.attempts"

	// AttrTunnelFailureKind is "no_json", "invalid_json" or "schema_mismatch".
	AttrTunnelFailureKind = "tunnel.failure.kind"

	// AttrTunnelIssues is the number of schema issues of a failed attempt.
	AttrTunnelIssues = "tunnel.failure.issues"

	// AttrTunnelSchemaName is the declaration name used in prompts.
	AttrTunnelSchemaName = "tunnel.schema_name"

	// AttrTunnelPrompt is the prompt handed to the runner.
	AttrTunnelPrompt = "tunnel.prompt"

	// AttrTunnelOutput is the raw runner output.
	AttrTunnelOutput = "tunnel.output"

	// AttrTunnelRepaired marks JSON accepted only after repair.
	AttrTunnelRepaired = "tunnel.repaired"
)

// --- Stream Attributes ---

const (
	// AttrStreamChunks is the number of chunks pushed.
	AttrStreamChunks = "stream.chunks"

	// AttrStreamBufferSize is the accumulated buffer length in bytes.
	AttrStreamBufferSize = "stream.buffer.size"

	// AttrStreamKind is the classification of the latest push.
	AttrStreamKind = "stream.kind"
)

// --- LLM Provider Attributes ---

const (
	// AttrLLMProvider is the name of the provider, e.g. "openai".
	AttrLLMProvider = "llm.provider"

	// AttrLLMModel is the model identifier.
	AttrLLMModel = "llm.model"

	// AttrLLMEndpoint is the API endpoint URL.
	AttrLLMEndpoint = "llm.endpoint"

	// AttrLLMFinishReason is the reason the generation finished.
	AttrLLMFinishReason = "llm.finish_reason"

	// AttrLLMTokensTotal is the total number of tokens reported by the provider.
	AttrLLMTokensTotal = "llm.tokens.total" // #nosec G101 -- token counts, not credentials
)

// --- HTTP Attributes ---

const (
	// AttrHTTPMethod is the HTTP method.
	AttrHTTPMethod = "http.method"

	// AttrHTTPStatusCode is the HTTP response status code.
	AttrHTTPStatusCode = "http.status_code"

	// AttrHTTPURL is the full request URL.
	AttrHTTPURL = "http.url"

	// AttrHTTPRequestBodySize is the request body size in bytes.
	AttrHTTPRequestBodySize = "http.request.body.size"

	// AttrHTTPResponseBodySize is the response body size in bytes.
	AttrHTTPResponseBodySize = "http.response.body.size"
)

// --- General Attributes ---

const (
	// AttrError is the error message.
	AttrError = "error"

	// AttrDuration is the operation duration.
	AttrDuration = "duration"

	// AttrStatus is the operation outcome, "success" or "failure".
	AttrStatus = "status"
)

// --- Span Names ---

const (
	// SpanTunnelRun wraps one Run call.
	SpanTunnelRun = "tunnel.run"

	// SpanLLMRequest wraps one HTTP call to a model endpoint.
	SpanLLMRequest = "llm.request"
)

// --- Event Names ---

const (
	// EventTunnelAttempt is added to the run span for every attempt.
	EventTunnelAttempt = "tunnel.attempt"

	// EventTunnelFailure is added when an attempt is rejected.
	EventTunnelFailure = "tunnel.failure"
)

// --- Metric Names ---

const (
	// MetricTunnelRuns counts finished runs by AttrStatus.
	MetricTunnelRuns = "tunnel.runs"

	// MetricTunnelAttempts counts runner invocations.
	MetricTunnelAttempts = "tunnel.attempts"

	// MetricTunnelFailures counts rejected attempts by AttrTunnelFailureKind.
	MetricTunnelFailures = "tunnel.failures"

	// MetricTunnelRunnerDuration records runner latency in milliseconds.
	MetricTunnelRunnerDuration = "tunnel.runner.duration_ms"

	// MetricLLMRequests counts HTTP calls to model endpoints.
	MetricLLMRequests = "llm.requests"
)

// Status values for AttrStatus.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)
