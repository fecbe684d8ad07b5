package jsonschema

import (
	"encoding/json"
	"fmt"
	"reflect"

	invopop "github.com/invopop/jsonschema"
)

// Reflect builds the schema of T with invopop/jsonschema instead of the
// built-in generator. It understands invopop's richer tag vocabulary
// (jsonschema:"minLength=1", oneof_required, jsonschema_extras, ...) and
// disallows unknown properties, which makes it the stricter choice when the
// output must match a Go struct exactly.
func Reflect[T any]() (*Schema, error) {
	t := reflect.TypeFor[T]()
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	r := &invopop.Reflector{
		ExpandedStruct: true,
	}
	reflected := r.ReflectFromType(t)

	data, err := json.Marshal(reflected)
	if err != nil {
		return nil, fmt.Errorf("marshal reflected schema for %s: %w", t, err)
	}
	return Parse(data)
}
