package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"os"
	"strings"

	"github.com/leofalp/jsontunnel/internal/utils"
	"github.com/leofalp/jsontunnel/providers/observability"
)

const (
	defaultBaseURL          = "https://api.openai.com/v1"
	defaultModel            = "gpt-4o-mini"
	chatCompletionsEndpoint = "/chat/completions"
	providerName            = "openai"
)

// ErrMissingAPIKey is returned when no API key was configured.
var ErrMissingAPIKey = errors.New("openai: API key is not set")

// ErrEmptyResponse is returned when a completion carries no choices.
var ErrEmptyResponse = errors.New("openai: response has no choices")

// Client sends single-turn prompts to an OpenAI-compatible chat completions
// endpoint. Its Complete method fits tunnel.Prompt and its Stream method
// fits stream.Validator.Consume.
type Client struct {
	apiKey      string
	baseURL     string
	model       string
	temperature *float64
	maxTokens   *int
	jsonMode    bool
	client      *http.Client
	observer    observability.Provider
	headers     []utils.HeaderOption
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey overrides OPENAI_API_KEY.
func WithAPIKey(apiKey string) Option {
	return func(c *Client) {
		c.apiKey = apiKey
	}
}

// WithBaseURL overrides OPENAI_API_BASE_URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithModel sets the model identifier.
func WithModel(model string) Option {
	return func(c *Client) {
		c.model = model
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(temperature float64) Option {
	return func(c *Client) {
		c.temperature = &temperature
	}
}

// WithMaxTokens caps the completion length.
func WithMaxTokens(n int) Option {
	return func(c *Client) {
		c.maxTokens = &n
	}
}

// WithJSONMode asks the endpoint to constrain output to a JSON object.
func WithJSONMode() Option {
	return func(c *Client) {
		c.jsonMode = true
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// WithObserver reports requests to provider instead of the provider carried
// by the request context.
func WithObserver(provider observability.Provider) Option {
	return func(c *Client) {
		c.observer = provider
	}
}

// WithHeader adds a header to every request, e.g. for OpenRouter's
// HTTP-Referer.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers = append(c.headers, utils.HeaderOption{Key: key, Value: value})
	}
}

// New creates a Client from OPENAI_API_KEY, OPENAI_API_BASE_URL and
// OPENAI_MODEL, then applies opts.
func New(opts ...Option) *Client {
	c := &Client{
		apiKey:  os.Getenv("OPENAI_API_KEY"),
		baseURL: strings.TrimRight(os.Getenv("OPENAI_API_BASE_URL"), "/"),
		model:   os.Getenv("OPENAI_MODEL"),
		client:  &http.Client{},
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.model == "" {
		c.model = defaultModel
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// Complete sends prompt as a single user message and returns the text of the
// first choice.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", ErrMissingAPIKey
	}

	ctx, span, observer := c.startRequest(ctx, false)
	defer span.End()

	resp, err := utils.DoPostSync[chatResponse](ctx, c.client, c.baseURL+chatCompletionsEndpoint, c.apiKey, c.request(prompt, false), c.headers...)
	if err != nil {
		c.requestFailed(ctx, span, observer, err)
		return "", err
	}
	if len(resp.Choices) == 0 {
		c.requestFailed(ctx, span, observer, ErrEmptyResponse)
		return "", ErrEmptyResponse
	}

	choice := resp.Choices[0]
	attrs := []observability.Attribute{
		observability.String(observability.AttrLLMFinishReason, choice.FinishReason),
	}
	if resp.Usage != nil {
		attrs = append(attrs, observability.Int(observability.AttrLLMTokensTotal, resp.Usage.TotalTokens))
	}
	span.SetAttributes(attrs...)
	span.SetStatus(observability.StatusOK, "")
	observer.Counter(observability.MetricLLMRequests).Add(ctx, 1,
		observability.String(observability.AttrStatus, observability.StatusSuccess))
	observer.Debug(ctx, "openai completion received", attrs...)

	return choice.Message.Content, nil
}

// Stream sends prompt with stream=true and yields content deltas as they
// arrive. The response body is released when iteration ends, including when
// the caller stops early. Request and transport errors are yielded once, as
// the final element.
func (c *Client) Stream(ctx context.Context, prompt string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if c.apiKey == "" {
			yield("", ErrMissingAPIKey)
			return
		}

		ctx, span, observer := c.startRequest(ctx, true)
		defer span.End()

		res, err := utils.DoPostStream(ctx, c.client, c.baseURL+chatCompletionsEndpoint, c.apiKey, c.request(prompt, true), c.headers...)
		if err != nil {
			c.requestFailed(ctx, span, observer, err)
			yield("", err)
			return
		}
		defer utils.CloseWithLog(res.Body)

		scanner := utils.NewSSEScanner(res.Body)
		for {
			if ctx.Err() != nil {
				c.requestFailed(ctx, span, observer, ctx.Err())
				yield("", ctx.Err())
				return
			}

			payload, err := scanner.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				err = fmt.Errorf("openai: SSE read error: %w", err)
				c.requestFailed(ctx, span, observer, err)
				yield("", err)
				return
			}

			chunk, err := unmarshalStreamChunk(payload)
			if err != nil {
				err = fmt.Errorf("openai: failed to parse streaming chunk: %w", err)
				c.requestFailed(ctx, span, observer, err)
				yield("", err)
				return
			}
			if chunk.Usage != nil {
				span.SetAttributes(observability.Int(observability.AttrLLMTokensTotal, chunk.Usage.TotalTokens))
			}
			for _, choice := range chunk.Choices {
				if choice.FinishReason != nil {
					span.SetAttributes(observability.String(observability.AttrLLMFinishReason, *choice.FinishReason))
				}
				if choice.Index != 0 || choice.Delta.Content == nil || *choice.Delta.Content == "" {
					continue
				}
				if !yield(*choice.Delta.Content, nil) {
					span.SetStatus(observability.StatusOK, "stopped by caller")
					return
				}
			}
		}

		span.SetStatus(observability.StatusOK, "")
		observer.Counter(observability.MetricLLMRequests).Add(ctx, 1,
			observability.String(observability.AttrStatus, observability.StatusSuccess))
	}
}

func (c *Client) request(prompt string, stream bool) chatRequest {
	req := chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}
	if c.jsonMode {
		req.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	if stream {
		req.Stream = true
		req.StreamOptions = &streamOptions{IncludeUsage: true}
	}
	return req
}

// startRequest opens the llm.request span on the configured or contextual
// observer, falling back to observability.Nop.
func (c *Client) startRequest(ctx context.Context, streaming bool) (context.Context, observability.Span, observability.Provider) {
	observer := c.observer
	if observer == nil {
		observer = observability.ObserverFromContext(ctx)
	}
	if observer == nil {
		observer = observability.Nop()
	}

	attrs := []observability.Attribute{
		observability.String(observability.AttrLLMProvider, providerName),
		observability.String(observability.AttrLLMModel, c.model),
		observability.String(observability.AttrLLMEndpoint, c.baseURL),
		observability.Bool("llm.streaming", streaming),
	}
	ctx, span := observer.StartSpan(ctx, observability.SpanLLMRequest, attrs...)
	observer.Trace(ctx, "openai request prepared", attrs...)
	return ctx, span, observer
}

func (c *Client) requestFailed(ctx context.Context, span observability.Span, observer observability.Provider, err error) {
	span.RecordError(err)
	span.SetStatus(observability.StatusError, err.Error())
	observer.Counter(observability.MetricLLMRequests).Add(ctx, 1,
		observability.String(observability.AttrStatus, observability.StatusFailure))
	observer.Warn(ctx, "openai request failed", observability.Error(err))
}
