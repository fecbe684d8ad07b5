// Package extract locates and decodes JSON embedded in free-form model
// output. Language models frequently wrap JSON in narrative prose or markdown
// code fences; [FindSpan] isolates the first balanced object or array without
// a full grammar pass, and [Parse] decodes it, telling apart text that holds
// no JSON at all from text whose JSON is malformed.
package extract
