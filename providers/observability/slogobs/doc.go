// Package slogobs implements observability.Provider on top of log/slog.
//
// Records are rendered by [Handler] in a compact, pretty or JSON format and
// can be written to a size-rotated file with [WithRotatingFile]. Spans and
// metric updates are logged at DEBUG; prompts and raw model output at
// [LevelTrace].
package slogobs
