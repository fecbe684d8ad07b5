// Package observability defines the tracing, metrics and logging interfaces
// the tunnel and the HTTP providers report through, plus the attribute and
// metric names they use.
//
// [Provider] composes [Tracer], [Metrics] and [Logger]. A provider is either
// configured explicitly on a component or carried on the context with
// [ContextWithObserver]; [Nop] discards everything. The slogobs subpackage
// implements Provider on top of log/slog.
package observability
