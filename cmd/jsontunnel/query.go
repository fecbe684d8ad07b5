package main

import (
	"errors"
	"fmt"

	"github.com/itchyny/gojq"
)

// runQuery evaluates a jq expression against value and returns every result.
// A runtime error from the expression stops evaluation; "halt" ends it
// quietly.
func runQuery(expression string, value any) ([]any, error) {
	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid jq expression: %v", errUsage, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to compile jq expression: %v", errUsage, err)
	}

	var results []any
	iter := code.Run(value)
	for {
		v, ok := iter.Next()
		if !ok {
			return results, nil
		}
		if err, isErr := v.(error); isErr {
			var haltErr *gojq.HaltError
			if errors.As(err, &haltErr) && haltErr.Value() == nil {
				return results, nil
			}
			return results, fmt.Errorf("jq: %w", err)
		}
		results = append(results, v)
	}
}
