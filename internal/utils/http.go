package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/leofalp/jsontunnel/providers/observability"
)

// maxResponseBodySize caps how much of a response body is read into memory.
const maxResponseBodySize int64 = 10 * 1024 * 1024

// HeaderOption is an extra request header. Headers are applied after the
// defaults, so they can override Authorization or Content-Type.
type HeaderOption struct {
	Key   string
	Value string
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	// Body holds at most maxResponseBodySize bytes of the response.
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("non-2xx status %d: %s", e.StatusCode, e.Body)
}

// CloseWithLog closes c and logs a failure instead of returning it, for use
// in defer statements where a close error must not mask the primary one.
func CloseWithLog(c io.Closer) {
	if err := c.Close(); err != nil {
		slog.Warn("failed to close", "error", err.Error())
	}
}

// DoPostSync posts body as JSON and decodes a 2xx JSON response into
// Output. A non-empty apiKey is sent as a bearer token. When ctx carries a
// span, request and response events are added to it.
func DoPostSync[Output any](ctx context.Context, client *http.Client, url, apiKey string, body any, headers ...HeaderOption) (*Output, error) {
	res, err := post(ctx, client, url, apiKey, body, "application/json", headers)
	if err != nil {
		return nil, err
	}
	defer CloseWithLog(res.Body)

	payload, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBodySize))
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}
	if span := observability.SpanFromContext(ctx); span != nil {
		span.AddEvent("http.response.received",
			observability.Int(observability.AttrHTTPStatusCode, res.StatusCode),
			observability.Int(observability.AttrHTTPResponseBodySize, len(payload)),
		)
	}

	var out Output
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("error decoding response body (status %d): %w; body: %s",
			res.StatusCode, err, TruncateRunes(string(payload), 500))
	}
	return &out, nil
}

// DoPostStream posts body as JSON asking for an event stream, and returns
// the response with its body open. The caller must close it. On a non-2xx
// status the body is drained, closed and returned inside a *StatusError.
func DoPostStream(ctx context.Context, client *http.Client, url, apiKey string, body any, headers ...HeaderOption) (*http.Response, error) {
	res, err := post(ctx, client, url, apiKey, body, "text/event-stream", headers)
	if err != nil {
		return nil, err
	}
	if span := observability.SpanFromContext(ctx); span != nil {
		span.AddEvent("http.stream.started", observability.Int(observability.AttrHTTPStatusCode, res.StatusCode))
	}
	return res, nil
}

func post(ctx context.Context, client *http.Client, url, apiKey string, body any, accept string, headers []HeaderOption) (*http.Response, error) {
	if client == nil {
		client = http.DefaultClient
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("error marshaling body: %w", err)
	}

	span := observability.SpanFromContext(ctx)
	if span != nil {
		span.AddEvent("http.request.prepared",
			observability.String(observability.AttrHTTPMethod, http.MethodPost),
			observability.String(observability.AttrHTTPURL, url),
			observability.Int(observability.AttrHTTPRequestBodySize, len(encoded)),
		)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", accept)
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	for _, header := range headers {
		req.Header.Set(header.Key, header.Value)
	}

	timer := NewTimer()
	res, err := client.Do(req)
	elapsed := timer.Stop()
	if err != nil {
		if span != nil {
			span.AddEvent("http.request.error", observability.Error(err), observability.Duration(observability.AttrDuration, elapsed))
		}
		return nil, fmt.Errorf("error sending request: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		defer CloseWithLog(res.Body)
		payload, readErr := io.ReadAll(io.LimitReader(res.Body, maxResponseBodySize))
		if readErr != nil {
			return nil, fmt.Errorf("non-2xx status %d (failed to read body: %w)", res.StatusCode, readErr)
		}
		return nil, &StatusError{StatusCode: res.StatusCode, Body: string(payload)}
	}
	return res, nil
}
