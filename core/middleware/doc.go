// Package middleware wraps model completers with retries, deadlines and
// logging. Middlewares compose with [Chain] and apply to any function of the
// [CompleteFunc] shape, so the same stack serves a real client in
// production and a stub in tests.
package middleware
