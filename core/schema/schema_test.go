package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leofalp/jsontunnel/pkg/jsonschema"
)

func personSchema() *jsonschema.Schema {
	return jsonschema.Object([]jsonschema.Property{
		jsonschema.Prop("name", &jsonschema.Schema{Type: jsonschema.TypeString, Description: "full\nname"}),
		jsonschema.Prop("age", &jsonschema.Schema{Type: jsonschema.TypeInteger}),
		jsonschema.Prop("role", &jsonschema.Schema{Type: jsonschema.TypeString, Enum: []any{"admin", "user"}}),
		jsonschema.Prop("tags", jsonschema.ArrayOf(&jsonschema.Schema{AnyOf: []*jsonschema.Schema{
			{Type: jsonschema.TypeString},
			{Type: jsonschema.TypeNumber},
		}})),
		jsonschema.Prop("nickname", jsonschema.Nullable(&jsonschema.Schema{Type: jsonschema.TypeString})),
		jsonschema.Prop("first-name", &jsonschema.Schema{Type: jsonschema.TypeString}),
	}, "age", "nickname")
}

func issuePaths(issues []Issue) []string {
	paths := make([]string, len(issues))
	for i, issue := range issues {
		paths[i] = issue.PathString()
	}
	return paths
}

func TestValidateAcceptsConformingValue(t *testing.T) {
	s, err := Compile(personSchema())
	require.NoError(t, err)

	value := map[string]any{
		"name":       "Ada",
		"age":        float64(36),
		"role":       "admin",
		"tags":       []any{"math", float64(1)},
		"nickname":   nil,
		"first-name": "Ada",
	}
	got, err := s.Validate(value)
	require.NoError(t, err)
	assert.Equal(t, value, got)
}

func TestValidateReportsIssuesWithPaths(t *testing.T) {
	s, err := Compile(personSchema())
	require.NoError(t, err)

	_, err = s.Validate(map[string]any{
		"name": float64(1),
		"role": "boss",
		"tags": []any{"ok", true},
	})
	require.Error(t, err)

	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))

	paths := issuePaths(validationErr.Issues)
	assert.Contains(t, paths, "name")
	assert.Contains(t, paths, "role")
	assert.Contains(t, paths, "tags.1")
	assert.Contains(t, paths, "first-name")
	assert.NotContains(t, paths, "age")

	for _, issue := range validationErr.Issues {
		assert.NotEmpty(t, issue.Message)
		if issue.PathString() == "first-name" {
			assert.Equal(t, "required property is missing", issue.Message)
		}
	}
}

func TestValidateReportsEachMissingProperty(t *testing.T) {
	s, err := Compile(personSchema())
	require.NoError(t, err)

	_, err = s.Validate(map[string]any{"tags": []any{}})
	issues := IssuesOf(err)

	assert.Equal(t, []Issue{
		{Path: []string{"name"}, Message: "required property is missing"},
		{Path: []string{"role"}, Message: "required property is missing"},
		{Path: []string{"first-name"}, Message: "required property is missing"},
	}, issues)
}

func TestValidateRootTypeMismatch(t *testing.T) {
	s, err := Compile(personSchema())
	require.NoError(t, err)

	_, err = s.Validate([]any{float64(1)})
	issues := IssuesOf(err)
	require.Len(t, issues, 1)
	assert.Equal(t, RootPath, issues[0].PathString())
	assert.Contains(t, issues[0].Message, "object")
}

func TestCompileSharesCachedValidator(t *testing.T) {
	a, err := Compile(personSchema())
	require.NoError(t, err)
	b, err := Compile(personSchema())
	require.NoError(t, err)

	assert.Same(t, a.compiled, b.compiled)
	assert.NotSame(t, a.def, b.def)
}

func TestCompileRejectsInvalidSchema(t *testing.T) {
	_, err := Compile(nil)
	assert.ErrorIs(t, err, ErrCompile)

	_, err = FromJSON([]byte(`{"type": 12}`))
	assert.ErrorIs(t, err, ErrCompile)

	_, err = FromJSON([]byte(`{"type": "object", "pattern": "("}`))
	assert.ErrorIs(t, err, ErrCompile)

	assert.Panics(t, func() { MustCompile(nil) })
}

func TestFromJSONEnforcesUnmodeledKeywords(t *testing.T) {
	s, err := FromJSON([]byte(`{
		"type": "object",
		"properties": {"a": {"type": "string"}},
		"minProperties": 1
	}`))
	require.NoError(t, err)

	_, err = s.Validate(map[string]any{})
	issues := IssuesOf(err)
	require.Len(t, issues, 1)
	assert.Equal(t, RootPath, issues[0].PathString())

	_, err = s.Validate(map[string]any{"a": "x"})
	assert.NoError(t, err)
}

type account struct {
	Email string `json:"email" jsonschema:"description=contact address"`
	Age   *int   `json:"age"`
}

func TestForGeneratesFromGoType(t *testing.T) {
	s, err := For[account]()
	require.NoError(t, err)

	_, err = s.Validate(map[string]any{"age": nil})
	assert.Equal(t, []Issue{{Path: []string{"email"}, Message: "required property is missing"}}, IssuesOf(err))

	_, err = s.Validate(map[string]any{"email": "a@b.c", "age": float64(3)})
	assert.NoError(t, err)

	assert.Equal(t, "interface Account {\n  email: string; // contact address\n  age?: integer | null;\n}",
		Describe(s.Definition(), "Account"))
}

func TestCustomSchema(t *testing.T) {
	def := &jsonschema.Schema{Type: jsonschema.TypeString}
	s := Custom(def, func(value any) []Issue {
		if str, ok := value.(string); ok && str != "" {
			return nil
		}
		return []Issue{{Message: "expected a non-empty string"}}
	})

	got, err := s.Validate("hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", got)

	_, err = s.Validate(float64(3))
	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "- <root>: expected a non-empty string", validationErr.Format())
	assert.Same(t, def, s.Definition())
}

func TestIssuesOf(t *testing.T) {
	assert.Nil(t, IssuesOf(nil))
	assert.Equal(t, []Issue{{Message: "boom"}}, IssuesOf(errors.New("boom")))
}

func TestValidationErrorMessage(t *testing.T) {
	assert.Equal(t, "schema validation failed", (&ValidationError{}).Error())
	assert.Equal(t, "schema validation failed: a: bad",
		(&ValidationError{Issues: []Issue{{Path: []string{"a"}, Message: "bad"}}}).Error())
	assert.Equal(t, "schema validation failed with 2 issues, first: <root>: x",
		(&ValidationError{Issues: []Issue{{Message: "x"}, {Message: "y"}}}).Error())
}

func TestFormatIssues(t *testing.T) {
	issues := []Issue{
		{Message: "expected object"},
		{Path: []string{"items", "0", "id"}, Message: "required property is missing"},
	}
	want := "- <root>: expected object\n- items.0.id: required property is missing"
	assert.Equal(t, want, FormatIssues(issues))
	assert.Equal(t, FormatIssues(issues), FormatIssues(issues))
	assert.Empty(t, FormatIssues(nil))
}
