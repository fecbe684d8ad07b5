package tunnel

import (
	"strings"

	"github.com/leofalp/jsontunnel/internal/utils"
)

const outputRules = `Respond with a single JSON value that matches the type below.
- Output only the JSON: no markdown code fences, no text before or after it.
- Include every required field. Fields marked with "?" are optional.
- Use double quotes for keys and strings, and no trailing commas.`

// CorrectionPreamble opens every corrective prompt.
const CorrectionPreamble = "Your previous response was invalid and could not be accepted. Correct it and try again."

const sectionSeparator = "\n\n"

// runState is owned by a single Run call.
type runState struct {
	// intent is the trimmed user text of attempt 0, empty until locked.
	intent string
	locked bool
}

// lock records text as the run's intent unless one is already set.
func (s *runState) lock(text string) {
	if !s.locked && text != "" {
		s.intent = text
		s.locked = true
	}
}

// initialPrompt builds the attempt-0 prompt around userText.
func (t *Tunnel[T]) initialPrompt(userText string) string {
	sections := t.openingSections()
	sections = append(sections, t.rules)
	if userText != "" {
		sections = append(sections, userText)
	}
	return strings.Join(sections, sectionSeparator)
}

// correctivePrompt builds the prompt of a retry from the locked intent and
// the previous attempt's failure.
func (t *Tunnel[T]) correctivePrompt(intent string, last Failure) string {
	sections := t.openingSections()
	sections = append(sections,
		CorrectionPreamble,
		t.rules,
		"Error: "+last.Message(),
	)
	if last.Kind == SchemaMismatch && last.IssuesText != "" {
		sections = append(sections, "Validation issues:\n"+last.IssuesText)
	}
	if intent != "" {
		sections = append(sections, "Original context:\n"+intent)
	}
	sections = append(sections,
		"Your previous response:\n"+utils.TruncateRunes(last.RawOutput, t.config.MaxFailureOutputChars))
	return strings.Join(sections, sectionSeparator)
}

func (t *Tunnel[T]) openingSections() []string {
	if system := strings.TrimSpace(t.config.SystemPrompt); system != "" {
		return []string{system}
	}
	return nil
}
