// Package schema validates decoded JSON values and describes their expected
// shape to a language model.
//
// A [Schema] is anything that can validate a value and expose a
// [jsonschema.Schema] definition. [Compile], [FromJSON] and [For] return the
// default implementation, backed by a compiled JSON Schema validator;
// [Custom] wraps a hand-written check.
//
// [Describe] turns a definition into a short TypeScript-like declaration,
// and [FormatIssues] renders validation failures as a bullet list. Both are
// meant to be embedded in prompts.
package schema
