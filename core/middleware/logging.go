package middleware

import (
	"context"
	"iter"
	"log/slog"
	"time"

	"github.com/leofalp/jsontunnel/internal/utils"
)

// LogLevel controls how much the logging middleware records per call.
type LogLevel int

const (
	// LogLevelMinimal logs duration and outcome only.
	LogLevelMinimal LogLevel = iota

	// LogLevelStandard adds prompt and reply sizes.
	LogLevelStandard

	// LogLevelVerbose adds the prompt and reply text, truncated.
	//
	// WARNING: prompts and replies may contain personal data. Do not use
	// verbose logging in production.
	LogLevelVerbose
)

// truncateLen bounds text included in verbose records.
const truncateLen = 500

// Logging records every call on logger: "llm complete" before it, then
// "llm complete finished" or "llm complete failed". The logger must not be
// nil.
func Logging(logger *slog.Logger, level LogLevel) Middleware {
	return func(next CompleteFunc) CompleteFunc {
		return func(ctx context.Context, prompt string) (string, error) {
			logger.InfoContext(ctx, "llm complete", promptAttrs(prompt, level)...)

			timer := utils.NewTimer()
			text, err := next(ctx, prompt)
			elapsed := timer.Stop()

			if err != nil {
				logger.ErrorContext(ctx, "llm complete failed",
					slog.Duration("duration", elapsed),
					slog.String("error", err.Error()),
				)
				return "", err
			}

			attrs := []any{slog.Duration("duration", elapsed)}
			attrs = append(attrs, replyAttrs(text, level)...)
			logger.InfoContext(ctx, "llm complete finished", attrs...)
			return text, nil
		}
	}
}

// LoggingStream is Logging for streams. The final record is written when
// iteration ends; a stream the caller stops early is logged as abandoned.
func LoggingStream(logger *slog.Logger, level LogLevel) StreamMiddleware {
	return func(next StreamFunc) StreamFunc {
		return func(ctx context.Context, prompt string) iter.Seq2[string, error] {
			return func(yield func(string, error) bool) {
				logger.InfoContext(ctx, "llm stream", promptAttrs(prompt, level)...)

				timer := utils.NewTimer()
				chunks := 0
				size := 0
				for chunk, err := range next(ctx, prompt) {
					if err != nil {
						logger.ErrorContext(ctx, "llm stream failed",
							slog.Duration("duration", timer.Stop()),
							slog.Int("chunks", chunks),
							slog.String("error", err.Error()),
						)
						yield(chunk, err)
						return
					}
					chunks++
					size += len(chunk)
					if !yield(chunk, nil) {
						logger.InfoContext(ctx, "llm stream abandoned",
							slog.Duration("duration", timer.Stop()),
							slog.Int("chunks", chunks),
						)
						return
					}
				}

				attrs := []any{slog.Duration("duration", timer.Stop()), slog.Int("chunks", chunks)}
				if level >= LogLevelStandard {
					attrs = append(attrs, slog.Int("reply_bytes", size))
				}
				logger.InfoContext(ctx, "llm stream finished", attrs...)
			}
		}
	}
}

func promptAttrs(prompt string, level LogLevel) []any {
	var attrs []any
	if level >= LogLevelStandard {
		attrs = append(attrs, slog.Int("prompt_bytes", len(prompt)))
	}
	if level >= LogLevelVerbose {
		attrs = append(attrs, slog.String("prompt", utils.TruncateRunes(prompt, truncateLen)))
	}
	return attrs
}

func replyAttrs(text string, level LogLevel) []any {
	var attrs []any
	if level >= LogLevelStandard {
		attrs = append(attrs, slog.Int("reply_bytes", len(text)))
	}
	if level >= LogLevelVerbose {
		attrs = append(attrs, slog.String("reply", utils.TruncateRunes(text, truncateLen)))
	}
	return attrs
}
