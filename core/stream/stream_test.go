package stream

import (
	"bytes"
	"context"
	"errors"
	"iter"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leofalp/jsontunnel/core/schema"
	"github.com/leofalp/jsontunnel/pkg/jsonschema"
	"github.com/leofalp/jsontunnel/providers/observability"
	"github.com/leofalp/jsontunnel/providers/observability/slogobs"
)

func numberSchema() schema.Schema {
	return schema.MustCompile(jsonschema.Object([]jsonschema.Property{
		jsonschema.Prop("a", &jsonschema.Schema{Type: jsonschema.TypeInteger}),
	}))
}

func chunksOf(parts ...string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, part := range parts {
			if !yield(part, nil) {
				return
			}
		}
	}
}

func TestPushStates(t *testing.T) {
	tests := []struct {
		name   string
		chunks []string
		want   []Kind
	}{
		{
			name:   "split document",
			chunks: []string{`Here: {"a":`, ` 1}`, ` done`},
			want:   []Kind{NoJSONYet, Valid, Valid},
		},
		{
			name:   "schema mismatch",
			chunks: []string{`{"a": `, `"x"}`},
			want:   []Kind{NoJSONYet, InvalidSchema},
		},
		{
			name:   "malformed then more text",
			chunks: []string{`{"a" 1}`, `{"a": 1}`},
			want:   []Kind{InvalidJSON, InvalidJSON},
		},
		{
			name:   "prose only",
			chunks: []string{"thinking", " about it"},
			want:   []Kind{NoJSONYet, NoJSONYet},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator(numberSchema())
			var got []Kind
			for _, chunk := range tt.chunks {
				got = append(got, v.Push(chunk).Kind)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPushResultPayloads(t *testing.T) {
	v := NewValidator(numberSchema())

	res := v.Push(`x {"a": "one"} y`)
	assert.Equal(t, InvalidSchema, res.Kind)
	assert.Equal(t, `x {"a": "one"} y`, res.Buffer)
	assert.Equal(t, `{"a": "one"}`, res.JSONText)
	assert.Equal(t, []string{"a"}, res.Issues[0].Path)
	assert.Contains(t, res.IssuesText, "- a: ")
	assert.Contains(t, res.Message, "schema validation failed")
	assert.Nil(t, res.Data)

	v.Reset()
	res = v.Push(`{"a": 2}`)
	assert.Equal(t, Valid, res.Kind)
	assert.Equal(t, map[string]any{"a": float64(2)}, res.Data)
	assert.Empty(t, res.Message)

	v.Reset()
	res = v.Push(`[1,]`)
	assert.Equal(t, InvalidJSON, res.Kind)
	assert.Equal(t, `[1,]`, res.JSONText)
	assert.NotEmpty(t, res.Message)
}

func TestSplitChunksMatchWholeDocument(t *testing.T) {
	split := NewValidator(numberSchema())
	split.Push(`{"a":`)
	got := split.Push(` 1}`)

	whole := NewValidator(numberSchema()).Push(`{"a": 1}`)
	assert.Equal(t, whole.Kind, got.Kind)
	assert.Equal(t, whole.Data, got.Data)
	assert.Equal(t, whole.Buffer, got.Buffer)
}

func TestChunkBoundaryInvariance(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	documents := []string{
		`Sure: {"a": 12} thanks`,
		`{"a": "twelve"}`,
		`{"a": 1,,}`,
		`no json here`,
		`{"a": {"nested": [1, "}"]}}`,
		`prefix [1, 2, {"a": 3}] suffix`,
	}

	properties.Property("result depends only on the accumulated text", prop.ForAll(
		func(index int, cuts []int) bool {
			document := documents[index]
			v := NewValidator(numberSchema())
			var last Result
			start := 0
			for _, cut := range cuts {
				end := start + cut%(len(document)-start+1)
				last = v.Push(document[start:end])
				start = end
			}
			last = v.Push(document[start:])

			whole := NewValidator(numberSchema()).Push(document)
			return last.Kind == whole.Kind && last.Buffer == document && last.JSONText == whole.JSONText
		},
		gen.IntRange(0, len(documents)-1),
		gen.SliceOf(gen.IntRange(0, 8)),
	))

	properties.TestingRun(t)
}

func TestResetAndBuffer(t *testing.T) {
	v := NewValidator(numberSchema())
	v.Push("abc")
	v.Push("def")
	assert.Equal(t, "abcdef", v.Buffer())

	v.Reset()
	assert.Empty(t, v.Buffer())
	assert.Equal(t, NoJSONYet, v.Push("").Kind)
}

func TestWithRepair(t *testing.T) {
	strict := NewValidator(numberSchema())
	assert.Equal(t, InvalidJSON, strict.Push(`{'a': 1,}`).Kind)

	lenient := NewValidator(numberSchema(), WithRepair())
	res := lenient.Push(`{'a': 1,}`)
	assert.Equal(t, Valid, res.Kind)
	assert.Equal(t, map[string]any{"a": float64(1)}, res.Data)
}

func TestConsume(t *testing.T) {
	t.Run("stops at the first valid result", func(t *testing.T) {
		v := NewValidator(numberSchema())
		pulled := 0
		chunks := func(yield func(string, error) bool) {
			for _, part := range []string{`{"a"`, `: 1}`, ` trailing`} {
				pulled++
				if !yield(part, nil) {
					return
				}
			}
		}

		res, err := v.Consume(context.Background(), chunks)
		require.NoError(t, err)
		assert.Equal(t, Valid, res.Kind)
		assert.Equal(t, 2, pulled)
		assert.Equal(t, `{"a": 1}`, v.Buffer())
	})

	t.Run("returns the last result", func(t *testing.T) {
		res, err := NewValidator(numberSchema()).Consume(context.Background(), chunksOf(`{"a":`, ` "b"}`))
		require.NoError(t, err)
		assert.Equal(t, InvalidSchema, res.Kind)
	})

	t.Run("empty sequence", func(t *testing.T) {
		res, err := NewValidator(numberSchema()).Consume(context.Background(), chunksOf())
		require.NoError(t, err)
		assert.Equal(t, NoJSONYet, res.Kind)
	})

	t.Run("chunk error", func(t *testing.T) {
		boom := errors.New("connection reset")
		chunks := func(yield func(string, error) bool) {
			if !yield(`{"a":`, nil) {
				return
			}
			yield("", boom)
		}
		res, err := NewValidator(numberSchema()).Consume(context.Background(), chunks)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, NoJSONYet, res.Kind)
		assert.Equal(t, `{"a":`, res.Buffer)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		v := NewValidator(numberSchema())
		_, err := v.Consume(ctx, chunksOf(`{"a": 1}`))
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, v.Buffer())
	})

	t.Run("logs to the context observer", func(t *testing.T) {
		var buf bytes.Buffer
		observer := slogobs.New(slogobs.WithFormat(slogobs.FormatJSON), slogobs.WithLevel(slogobs.LevelTrace), slogobs.WithOutput(&buf))
		ctx := observability.ContextWithObserver(context.Background(), observer)

		_, err := NewValidator(numberSchema()).Consume(ctx, chunksOf(`{"a":`, `1}`))
		require.NoError(t, err)
		assert.Contains(t, buf.String(), `"stream.kind":"valid"`)
		assert.Contains(t, buf.String(), `"stream.chunks":2`)
	})
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "no_json_yet", NoJSONYet.String())
	assert.Equal(t, "invalid_schema", InvalidSchema.String())
	assert.Equal(t, "kind(7)", Kind(7).String())
}
