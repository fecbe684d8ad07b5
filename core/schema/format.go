package schema

import "strings"

// FormatIssues renders issues one per line as "- path: message", using
// RootPath for issues on the whole value. The output is stable for a given
// slice, so it can be embedded verbatim in a corrective prompt.
func FormatIssues(issues []Issue) string {
	lines := make([]string, len(issues))
	for i, issue := range issues {
		lines[i] = "- " + issue.PathString() + ": " + issue.Message
	}
	return strings.Join(lines, "\n")
}
