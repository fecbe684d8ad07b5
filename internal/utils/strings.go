package utils

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// JSONToString encodes object as JSON, indented with two spaces when indent
// is true. Encoding failures are returned as a JSON error object so the
// result is always printable.
func JSONToString(object any, indent ...bool) string {
	var encoded []byte
	var err error
	if len(indent) > 0 && indent[0] {
		encoded, err = json.MarshalIndent(object, "", "  ")
	} else {
		encoded, err = json.Marshal(object)
	}
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, "failed to marshal to JSON: "+err.Error())
	}
	return string(encoded)
}

// TruncateRunes keeps the first limit runes of s and appends a marker naming
// how many runes were dropped. It never splits a multi-byte character. A
// non-positive limit disables truncation.
func TruncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	total := utf8.RuneCountInString(s)
	if total <= limit {
		return s
	}

	cut := 0
	for i := range s {
		if limit == 0 {
			cut = i
			break
		}
		limit--
	}
	return fmt.Sprintf("%s\n...[truncated %d characters]", s[:cut], total-utf8.RuneCountInString(s[:cut]))
}
