package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/leofalp/jsontunnel/core/extract"
	"github.com/leofalp/jsontunnel/core/schema"
	"github.com/leofalp/jsontunnel/core/stream"
	"github.com/leofalp/jsontunnel/internal/utils"
)

var (
	errNoJSON        = errors.New("no JSON object or array found")
	errInvalidOutput = errors.New("input did not validate")
)

func (a *app) describe(args []string) error {
	fs := a.flagSet("describe")
	schemaPath := fs.String("schema", "", "JSON Schema file")
	name := fs.String("name", schema.DefaultName, "name of the rendered type")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := requireFlag("schema", *schemaPath); err != nil {
		return err
	}

	s, err := loadSchema(*schemaPath)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, schema.Describe(s.Definition(), *name))
	return nil
}

func (a *app) extract(args []string) error {
	fs := a.flagSet("extract")
	query := fs.String("query", "", "jq expression applied to the extracted value")
	repair := fs.Bool("repair", false, "repair malformed JSON before giving up")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	input, err := io.ReadAll(a.stdin)
	if err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}

	var opts []extract.Option
	if *repair {
		opts = append(opts, extract.WithRepair())
	}
	res := extract.Parse(string(input), opts...)
	switch res.Kind {
	case extract.NotFound:
		return errNoJSON
	case extract.ParseError:
		return fmt.Errorf("invalid JSON %s: %s", utils.TruncateRunes(res.JSONText, 200), res.Message)
	case extract.Found:
		return a.printValue(res.Value, *query)
	default:
		panic(fmt.Sprintf("unknown extraction kind %s", res.Kind))
	}
}

// validate pushes stdin through a stream validator in fixed-size chunks and
// prints a line every time the classification changes.
func (a *app) validate(args []string) error {
	fs := a.flagSet("validate")
	schemaPath := fs.String("schema", "", "JSON Schema file")
	chunkSize := fs.Int("chunk", 64, "bytes per pushed chunk")
	repair := fs.Bool("repair", false, "repair malformed JSON before reporting it")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := requireFlag("schema", *schemaPath); err != nil {
		return err
	}
	if *chunkSize <= 0 {
		return fmt.Errorf("%w: -chunk must be positive", errUsage)
	}

	s, err := loadSchema(*schemaPath)
	if err != nil {
		return err
	}
	input, err := io.ReadAll(a.stdin)
	if err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}

	var opts []stream.Option
	if *repair {
		opts = append(opts, stream.WithRepair())
	}
	v := stream.NewValidator(s, opts...)

	last := stream.Result{Kind: stream.NoJSONYet}
	changed := false
	for start := 0; start < len(input); start += *chunkSize {
		end := min(start+*chunkSize, len(input))
		res := v.Push(string(input[start:end]))
		if !changed || res.Kind != last.Kind {
			fmt.Fprintf(a.stdout, "%d bytes: %s\n", end, res.Kind)
			changed = true
		}
		last = res
	}

	switch last.Kind {
	case stream.Valid:
		return nil
	case stream.InvalidSchema:
		fmt.Fprintln(a.stdout, last.IssuesText)
	case stream.InvalidJSON:
		fmt.Fprintln(a.stdout, last.Message)
	}
	return errInvalidOutput
}

// printValue writes value as indented JSON, or the results of query over it
// one per line.
func (a *app) printValue(value any, query string) error {
	if query == "" {
		fmt.Fprintln(a.stdout, utils.JSONToString(value, true))
		return nil
	}
	results, err := runQuery(query, value)
	if err != nil {
		return err
	}
	for _, result := range results {
		fmt.Fprintln(a.stdout, utils.JSONToString(result))
	}
	return nil
}
