// Package utils holds small helpers shared by the providers and the
// tunnel: JSON-over-HTTP requests ([DoPostSync], [DoPostStream]), an
// event-stream reader ([SSEScanner]), rune-safe truncation and a latency
// [Timer].
package utils
