package utils

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// maxSSELineSize bounds a single event line; bufio's 64 KiB default is too
// small for long completions.
const maxSSELineSize = 1024 * 1024

// SSEScanner reads the data payloads of a Server-Sent Events stream.
type SSEScanner struct {
	scanner *bufio.Scanner
}

// NewSSEScanner wraps r. Lines longer than 1 MiB make Next fail with an
// error wrapping bufio.ErrTooLong.
func NewSSEScanner(r io.Reader) *SSEScanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSSELineSize)
	return &SSEScanner{scanner: scanner}
}

// Next returns the next event payload. Consecutive "data:" lines of one
// event are joined with newlines; comments and other fields are skipped.
// It returns io.EOF at the end of the stream or on the "[DONE]" sentinel.
func (s *SSEScanner) Next() (string, error) {
	var data []string
	for s.scanner.Scan() {
		line := s.scanner.Text()
		switch {
		case line == "":
			if len(data) > 0 {
				return strings.Join(data, "\n"), nil
			}
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "data:"):
			payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if payload == "[DONE]" {
				return "", io.EOF
			}
			data = append(data, payload)
		}
	}
	if err := s.scanner.Err(); err != nil {
		return "", fmt.Errorf("SSE scanner error: %w", err)
	}
	if len(data) > 0 {
		return strings.Join(data, "\n"), nil
	}
	return "", io.EOF
}
