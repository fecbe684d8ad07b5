package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// Kind classifies the outcome of [Parse].
type Kind int

const (
	// NotFound means no balanced object or array exists in the text.
	NotFound Kind = iota
	// Found means a span was located and decoded.
	Found
	// ParseError means a balanced span was located but is not valid JSON.
	ParseError
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case Found:
		return "found"
	case ParseError:
		return "parse_error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Result is the outcome of a single [Parse] call.
type Result struct {
	Kind Kind
	// JSONText is the exact balanced substring located in the input. Empty
	// when Kind is NotFound.
	JSONText string
	// Decoded is the text that was actually decoded: JSONText, or its repaired
	// form when repair is enabled and was needed.
	Decoded string
	// Value is the decoded structure when Kind is Found.
	Value any
	// Message is the decoder error when Kind is ParseError.
	Message string
	// Repaired reports that JSONText only decoded after repair.
	Repaired bool
}

// Option configures [Parse].
type Option func(*options)

type options struct {
	repair bool
}

// WithRepair lets Parse run a balanced but malformed span through
// jsonrepair before giving up on it. Off by default: a strict parse reports
// trailing commas, single quotes and similar slips as ParseError so that the
// model can be asked to correct them.
func WithRepair() Option {
	return func(o *options) {
		o.repair = true
	}
}

// FindSpan locates the first balanced JSON object or array in text and
// returns its byte offsets as a half-open range [start, end).
//
// The scan starts at the earlier of the first '{' and the first '['. From
// there it counts nesting depth on brackets and braces that occur outside
// string literals, honouring backslash escapes inside strings, and stops at
// the first position where depth returns to zero. Brackets are not matched
// by type; the decoder rejects "{]" afterwards. If depth never returns to
// zero ok is false.
func FindSpan(text string) (start, end int, ok bool) {
	start = strings.IndexAny(text, "{[")
	if start < 0 {
		return 0, 0, false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return start, i + 1, true
			}
		}
	}
	return 0, 0, false
}

// Span returns the first balanced JSON object or array in text.
func Span(text string) (string, bool) {
	start, end, ok := FindSpan(text)
	if !ok {
		return "", false
	}
	return text[start:end], true
}

// Parse locates the first balanced span in text and decodes it.
func Parse(text string, opts ...Option) Result {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	span, ok := Span(text)
	if !ok {
		return Result{Kind: NotFound}
	}

	value, err := decode(span)
	if err == nil {
		return Result{Kind: Found, JSONText: span, Decoded: span, Value: value}
	}

	if o.repair {
		if repaired, repairErr := jsonrepair.JSONRepair(span); repairErr == nil {
			if value, decodeErr := decode(repaired); decodeErr == nil {
				return Result{Kind: Found, JSONText: span, Decoded: repaired, Value: value, Repaired: true}
			}
		}
	}

	return Result{Kind: ParseError, JSONText: span, Message: err.Error()}
}

func decode(text string) (any, error) {
	var value any
	if err := json.Unmarshal([]byte(text), &value); err != nil {
		return nil, err
	}
	return value, nil
}
