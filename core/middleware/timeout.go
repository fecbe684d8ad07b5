package middleware

import (
	"context"
	"iter"
	"time"
)

// Timeout bounds each call with a deadline. A shorter deadline already on
// the caller's context still wins.
func Timeout(timeout time.Duration) Middleware {
	return func(next CompleteFunc) CompleteFunc {
		return func(ctx context.Context, prompt string) (string, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			return next(ctx, prompt)
		}
	}
}

// TimeoutStream bounds the whole lifetime of a stream, not only the time to
// its first delta. The deadline is released when iteration ends, errors, or
// is abandoned by the caller.
func TimeoutStream(timeout time.Duration) StreamMiddleware {
	return func(next StreamFunc) StreamFunc {
		return func(ctx context.Context, prompt string) iter.Seq2[string, error] {
			return func(yield func(string, error) bool) {
				ctx, cancel := context.WithTimeout(ctx, timeout)
				defer cancel()

				for chunk, err := range next(ctx, prompt) {
					if !yield(chunk, err) || err != nil {
						return
					}
				}
			}
		}
	}
}
