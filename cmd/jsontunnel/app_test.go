package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const personSchema = `{
  "type": "object",
  "properties": {
    "name": {"type": "string", "description": "full name"},
    "age": {"type": "integer"}
  },
  "required": ["name"]
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

type result struct {
	code   int
	stdout string
	stderr string
}

func execute(stdin string, args ...string) result {
	var stdout, stderr bytes.Buffer
	code := newApp(strings.NewReader(stdin), &stdout, &stderr).run(args)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

// modelServer answers chat completions with reply(prompt) and counts calls.
func modelServer(t *testing.T, reply func(prompt string) string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req struct {
			Stream   bool `json:"stream"`
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) == 0 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		text := reply(req.Messages[0].Content)

		if req.Stream {
			w.Header().Set("Content-Type", "text/event-stream")
			for _, piece := range strings.SplitAfter(text, ",") {
				fmt.Fprintf(w, "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", piece)
			}
			fmt.Fprint(w, "data: [DONE]\n\n")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{
				"message":       map[string]string{"role": "assistant", "content": text},
				"finish_reason": "stop",
			}},
		})
	}))
	t.Cleanup(server.Close)

	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("OPENAI_API_BASE_URL", server.URL)
	t.Setenv("JSONTUNNEL_LOG_FILE", "")
	return server, &calls
}

func TestUsage(t *testing.T) {
	assert.Equal(t, exitUsage, execute("").code)
	assert.Equal(t, exitOK, execute("", "help").code)

	res := execute("", "frobnicate")
	assert.Equal(t, exitUsage, res.code)
	assert.Contains(t, res.stderr, `unknown command "frobnicate"`)

	assert.Equal(t, exitUsage, execute("", "describe").code)
	assert.Equal(t, exitUsage, execute("", "describe", "-nope").code)
	assert.Equal(t, exitOK, execute("", "describe", "-h").code)
}

func TestDescribe(t *testing.T) {
	path := writeFile(t, "person.json", personSchema)

	res := execute("", "describe", "-schema", path, "-name", "Person")
	require.Equal(t, exitOK, res.code, res.stderr)
	assert.Equal(t, "interface Person {\n  name: string; // full name\n  age?: integer;\n}\n", res.stdout)

	res = execute("", "describe", "-schema", writeFile(t, "bad.json", `{"type": 12}`))
	assert.Equal(t, exitFailure, res.code)
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name   string
		stdin  string
		args   []string
		code   int
		stdout string
	}{
		{
			name:   "prose around json",
			stdin:  "Here you go: {\"a\": [1, 2]} bye",
			code:   exitOK,
			stdout: "{\n  \"a\": [\n    1,\n    2\n  ]\n}\n",
		},
		{
			name:   "jq query",
			stdin:  `{"items": [{"id": 1}, {"id": 2}]}`,
			args:   []string{"-query", ".items[].id"},
			code:   exitOK,
			stdout: "1\n2\n",
		},
		{name: "no json", stdin: "nothing", code: exitFailure},
		{name: "malformed", stdin: `{"a": 1,}`, code: exitFailure},
		{name: "repaired", stdin: `{"a": 1,}`, args: []string{"-repair", "-query", ".a"}, code: exitOK, stdout: "1\n"},
		{name: "bad query", stdin: `{}`, args: []string{"-query", ".["}, code: exitUsage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := execute(tt.stdin, append([]string{"extract"}, tt.args...)...)
			assert.Equal(t, tt.code, res.code, res.stderr)
			if tt.stdout != "" {
				assert.Equal(t, tt.stdout, res.stdout)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	path := writeFile(t, "person.json", personSchema)

	res := execute(`Sure: {"name": "Ada", "age": 36}`, "validate", "-schema", path, "-chunk", "8")
	require.Equal(t, exitOK, res.code, res.stderr)
	lines := strings.Split(strings.TrimSpace(res.stdout), "\n")
	assert.Equal(t, "8 bytes: no_json_yet", lines[0])
	assert.Equal(t, "32 bytes: valid", lines[len(lines)-1])

	res = execute(`{"age": "old"}`, "validate", "-schema", path)
	assert.Equal(t, exitFailure, res.code)
	assert.Contains(t, res.stdout, "invalid_schema")
	assert.Contains(t, res.stdout, "- name: required property is missing")

	assert.Equal(t, exitUsage, execute("", "validate", "-schema", path, "-chunk", "0").code)
}

func TestRunCorrectsModelOutput(t *testing.T) {
	_, calls := modelServer(t, func(prompt string) string {
		if strings.Contains(prompt, "Your previous response was invalid") {
			return `{"name": "Ada Lovelace", "age": 36}`
		}
		return `{"age": 36}`
	})
	path := writeFile(t, "person.json", personSchema)

	res := execute("", "run", "-schema", path, "-prompt", "Who wrote the first program?", "-query", ".name")
	require.Equal(t, exitOK, res.code, res.stderr)
	assert.Equal(t, "\"Ada Lovelace\"\n", res.stdout)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRunConvertsHTMLDocument(t *testing.T) {
	var seen atomic.Value
	modelServer(t, func(prompt string) string {
		seen.Store(prompt)
		return `{"name": "Ada"}`
	})
	schemaPath := writeFile(t, "person.json", personSchema)
	docPath := writeFile(t, "page.html", "<html><body><h1>Ada Lovelace</h1><p>Born <b>1815</b>.</p></body></html>")

	res := execute("", "run", "-schema", schemaPath, "-prompt", "Extract the person.", "-document", docPath)
	require.Equal(t, exitOK, res.code, res.stderr)

	prompt, _ := seen.Load().(string)
	assert.Contains(t, prompt, "Extract the person.\n\nDocument:\n# Ada Lovelace")
	assert.Contains(t, prompt, "**1815**")
	assert.NotContains(t, prompt, "<h1>")
}

func TestRunStreaming(t *testing.T) {
	modelServer(t, func(string) string {
		return `{"name": "Ada", "age": 36} and some trailing words, which are ignored`
	})
	path := writeFile(t, "person.json", personSchema)

	res := execute("", "run", "-schema", path, "-prompt", "Ada", "-stream", "-query", ".age")
	require.Equal(t, exitOK, res.code, res.stderr)
	assert.Equal(t, "36\n", res.stdout)
}

func TestRunExhaustsRetries(t *testing.T) {
	_, calls := modelServer(t, func(string) string { return "I cannot help with that." })
	path := writeFile(t, "person.json", personSchema)

	res := execute("", "run", "-schema", path, "-prompt", "Ada", "-retries", "1")
	assert.Equal(t, exitFailure, res.code)
	assert.Contains(t, res.stderr, "failed to produce valid output after 2 attempts")
	assert.Equal(t, int32(2), calls.Load())

	assert.Equal(t, exitUsage, execute("", "run", "-schema", path).code)
}

func TestBatch(t *testing.T) {
	modelServer(t, func(prompt string) string {
		for _, name := range []string{"Ada", "Grace", "Edsger"} {
			if strings.HasSuffix(prompt, name) {
				return fmt.Sprintf(`{"name": %q}`, name)
			}
		}
		return "no idea"
	})
	schemaPath := writeFile(t, "person.json", personSchema)
	promptsPath := writeFile(t, "prompts.txt", "Ada\n\nGrace\nnobody\nEdsger\n")

	res := execute("", "batch", "-schema", schemaPath, "-prompts", promptsPath, "-concurrency", "2", "-retries", "0")
	assert.Equal(t, exitFailure, res.code)
	assert.Contains(t, res.stderr, "1 of 4 prompts failed")

	lines := strings.Split(strings.TrimSpace(res.stdout), "\n")
	require.Len(t, lines, 4)
	var results []batchResult
	for _, line := range lines {
		var r batchResult
		require.NoError(t, json.Unmarshal([]byte(line), &r))
		results = append(results, r)
	}
	assert.Equal(t, map[string]any{"name": "Ada"}, results[0].Output)
	assert.Equal(t, "Grace", results[1].Prompt)
	assert.Equal(t, 3, results[3].Index)
	assert.Contains(t, results[2].Error, "failed to produce valid output")
	assert.Nil(t, results[2].Output)

	assert.Equal(t, exitUsage, execute("", "batch", "-schema", schemaPath).code)
	assert.Equal(t, exitUsage, execute("", "batch", "-schema", schemaPath, "-prompts", writeFile(t, "empty.txt", "\n\n")).code)
}

func TestIsHTML(t *testing.T) {
	assert.True(t, isHTML("page.HTM", nil))
	assert.True(t, isHTML("page.txt", []byte("  <!DOCTYPE html><html></html>")))
	assert.False(t, isHTML("notes.md", []byte("# Notes")))
}

func TestRunRetriesTransientHTTPErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = fmt.Fprint(w, `{"choices": [{"message": {"role": "assistant", "content": "{\"name\": \"Ada\"}"}}]}`)
	}))
	defer server.Close()
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("OPENAI_API_BASE_URL", server.URL)
	t.Setenv("JSONTUNNEL_LOG_FILE", "")
	path := writeFile(t, "person.json", personSchema)

	res := execute("", "run", "-schema", path, "-prompt", "Ada", "-http-retries", "1")
	require.Equal(t, exitOK, res.code, res.stderr)
	assert.Equal(t, int32(2), calls.Load())
	assert.Contains(t, res.stderr, "llm complete failed")

	calls.Store(0)
	res = execute("", "run", "-schema", path, "-prompt", "Ada", "-http-retries", "0")
	assert.Equal(t, exitFailure, res.code)
	assert.Contains(t, res.stderr, "non-2xx status 503")
}
