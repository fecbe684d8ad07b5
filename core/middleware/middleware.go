package middleware

import (
	"context"
	"iter"
)

// CompleteFunc sends one prompt to a model and returns its reply text. It is
// the shape of tunnel.Prompt's completer and of openai.Client.Complete.
type CompleteFunc func(ctx context.Context, prompt string) (string, error)

// StreamFunc sends one prompt and yields reply deltas, like
// openai.Client.Stream.
type StreamFunc func(ctx context.Context, prompt string) iter.Seq2[string, error]

// Middleware wraps a CompleteFunc.
type Middleware func(next CompleteFunc) CompleteFunc

// StreamMiddleware wraps a StreamFunc.
type StreamMiddleware func(next StreamFunc) StreamFunc

// Chain wraps fn so that the first middleware is the outermost:
// Chain(fn, a, b) calls a, then b, then fn.
//
//	complete := middleware.Chain(client.Complete,
//	    middleware.Logging(logger, middleware.LogLevelStandard),
//	    middleware.Retry(middleware.RetryConfig{MaxRetries: 3}),
//	    middleware.Timeout(30*time.Second),
//	)
func Chain(fn CompleteFunc, middlewares ...Middleware) CompleteFunc {
	for i := len(middlewares) - 1; i >= 0; i-- {
		fn = middlewares[i](fn)
	}
	return fn
}

// ChainStream is Chain for StreamFunc.
func ChainStream(fn StreamFunc, middlewares ...StreamMiddleware) StreamFunc {
	for i := len(middlewares) - 1; i >= 0; i-- {
		fn = middlewares[i](fn)
	}
	return fn
}
