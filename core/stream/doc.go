// Package stream validates model output while it is still arriving.
//
// A [Validator] accumulates chunks and, after each one, reports whether the
// buffer so far holds no JSON yet, malformed JSON, JSON the schema rejects,
// or a valid value. Reports are informational; the caller decides when to
// stop reading.
package stream
