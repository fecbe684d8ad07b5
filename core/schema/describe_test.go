package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leofalp/jsontunnel/pkg/jsonschema"
)

func TestDescribeObject(t *testing.T) {
	want := `interface Person {
  name: string; // full name
  age?: integer;
  role: "admin" | "user";
  tags: (string | number)[];
  nickname?: string | null;
  "first-name": string;
}`
	assert.Equal(t, want, Describe(personSchema(), "Person"))
}

func TestDescribeNonObjects(t *testing.T) {
	tests := []struct {
		name string
		def  *jsonschema.Schema
		want string
	}{
		{name: "nil", def: nil, want: "type Output = unknown;"},
		{name: "empty", def: &jsonschema.Schema{}, want: "type Output = unknown;"},
		{name: "string", def: &jsonschema.Schema{Type: jsonschema.TypeString}, want: "type Output = string;"},
		{name: "const", def: &jsonschema.Schema{Const: "fixed"}, want: `type Output = "fixed";`},
		{name: "numeric enum", def: &jsonschema.Schema{Enum: []any{1, 2.5, nil}}, want: "type Output = 1 | 2.5 | null;"},
		{
			name: "map",
			def:  &jsonschema.Schema{Type: jsonschema.TypeObject, AdditionalProperties: &jsonschema.Schema{Type: jsonschema.TypeNumber}},
			want: "type Output = Record<string, number>;",
		},
		{name: "bare object", def: &jsonschema.Schema{Type: jsonschema.TypeObject}, want: "type Output = Record<string, unknown>;"},
		{
			name: "array of objects",
			def: jsonschema.ArrayOf(jsonschema.Object([]jsonschema.Property{
				jsonschema.Prop("id", &jsonschema.Schema{Type: jsonschema.TypeInteger}),
			})),
			want: "type Output = {\n  id: integer;\n}[];",
		},
		{
			name: "intersection items",
			def: jsonschema.ArrayOf(&jsonschema.Schema{AllOf: []*jsonschema.Schema{
				{Type: jsonschema.TypeString},
				{Type: jsonschema.TypeNumber},
			}}),
			want: "type Output = (string & number)[];",
		},
		{
			name: "union inside intersection",
			def: &jsonschema.Schema{AllOf: []*jsonschema.Schema{
				{OneOf: []*jsonschema.Schema{{Type: jsonschema.TypeString}, {Type: jsonschema.TypeNumber}}},
				{Type: jsonschema.TypeString},
			}},
			want: "type Output = (string | number) & string;",
		},
		{name: "enum items", def: jsonschema.ArrayOf(&jsonschema.Schema{Enum: []any{"a", "b"}}), want: `type Output = ("a" | "b")[];`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Describe(tt.def, ""))
		})
	}
}

func TestDescribeParsedDocument(t *testing.T) {
	def, err := jsonschema.Parse([]byte(`{
		"type": "object",
		"properties": {
			"id": {"type": ["integer", "null"]},
			"home": {"$ref": "#/$defs/address"},
			"extra": {"type": "object", "properties": {"note": {"type": "string"}}, "additionalProperties": {"type": "boolean"}}
		},
		"required": ["id", "home"],
		"$defs": {
			"address": {
				"type": "object",
				"properties": {"city": {"type": "string", "description": "city name"}},
				"required": ["city"]
			}
		}
	}`))
	require.NoError(t, err)

	want := `interface Output {
  id: integer | null;
  home: {
    city: string; // city name
  };
  extra?: {
    note?: string;
    [key: string]: boolean;
  };
}`
	assert.Equal(t, want, Describe(def, ""))
}

type treeNode struct {
	Value    int         `json:"value"`
	Children []*treeNode `json:"children"`
}

type forest struct {
	Trees []treeNode `json:"trees"`
}

func TestDescribeRecursiveRoot(t *testing.T) {
	def, err := jsonschema.GenerateJSONSchema[treeNode]()
	require.NoError(t, err)

	want := `interface Tree {
  value: integer;
  children: (Tree | null)[];
}`
	assert.Equal(t, want, Describe(def, "Tree"))
}

func TestDescribeNestedRecursion(t *testing.T) {
	def, err := jsonschema.GenerateJSONSchema[forest]()
	require.NoError(t, err)

	want := `interface Output {
  trees: {
    value: integer;
    children: (Treenode | null)[];
  }[];
}

interface Treenode {
  value: integer;
  children: (Treenode | null)[];
}`
	assert.Equal(t, want, Describe(def, ""))
}

func TestDescribeIsDeterministic(t *testing.T) {
	def := &jsonschema.Schema{Type: jsonschema.TypeObject, Properties: map[string]*jsonschema.Schema{
		"b": {Type: jsonschema.TypeString},
		"a": {Type: jsonschema.TypeString},
	}, Required: []string{"a"}}

	first := Describe(def, "")
	for range 10 {
		assert.Equal(t, first, Describe(def, ""))
	}
	assert.Equal(t, "interface Output {\n  a: string;\n  b?: string;\n}", first)
}
