// Package jsonschema models the JSON Schema documents that describe the
// output expected from a language model.
//
// A [Schema] can be built in three ways: derived from a Go type with
// [GenerateJSONSchema] (or [Reflect], backed by invopop/jsonschema), decoded
// from an existing document with [Parse], or assembled by hand with [Object],
// [ArrayOf] and [Nullable]. In every case the declaration order of object
// properties is preserved so that prompt renderings read the way the type was
// written. Recursive Go types are emitted once under $defs and referenced
// with $ref.
package jsonschema
