package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/leofalp/jsontunnel/core/schema"
	"github.com/leofalp/jsontunnel/providers/observability/slogobs"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// errUsage marks errors that should print usage and exit with exitUsage.
var errUsage = errors.New("usage error")

const usageText = `usage: jsontunnel <command> [flags]

commands:
  describe  print the type description of a JSON Schema
  extract   find and decode the first JSON value in stdin
  validate  feed stdin to the stream validator and report each state change
  run       prompt a model until it returns JSON matching a schema
  batch     run one prompt per line of a file, concurrently

Run "jsontunnel <command> -h" for the flags of a command.
`

type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *app {
	return &app{stdin: stdin, stdout: stdout, stderr: stderr}
}

type command func(a *app, args []string) error

var commands = map[string]command{
	"describe": (*app).describe,
	"extract":  (*app).extract,
	"validate": (*app).validate,
	"run":      (*app).runPrompt,
	"batch":    (*app).batch,
}

// run executes one command line and returns the process exit code.
func (a *app) run(args []string) int {
	if len(args) == 0 {
		fmt.Fprint(a.stderr, usageText)
		return exitUsage
	}
	if args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		fmt.Fprint(a.stdout, usageText)
		return exitOK
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(a.stderr, "jsontunnel: unknown command %q\n\n%s", args[0], usageText)
		return exitUsage
	}

	err := cmd(a, args[1:])
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, flag.ErrHelp):
		return exitOK
	case errors.Is(err, errUsage):
		fmt.Fprintf(a.stderr, "jsontunnel %s: %v\n", args[0], err)
		return exitUsage
	default:
		fmt.Fprintf(a.stderr, "jsontunnel %s: %v\n", args[0], err)
		return exitFailure
	}
}

// flagSet returns a FlagSet whose parse errors are reported as errUsage.
func (a *app) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: unexpected arguments %s", errUsage, strings.Join(fs.Args(), " "))
	}
	return nil
}

func requireFlag(name, value string) error {
	if value == "" {
		return fmt.Errorf("%w: -%s is required", errUsage, name)
	}
	return nil
}

// loadSchema reads and compiles a JSON Schema file.
func loadSchema(path string) (*schema.JSONSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema: %w", err)
	}
	s, err := schema.FromJSON(data)
	if err != nil {
		return nil, fmt.Errorf("loading schema %s: %w", path, err)
	}
	return s, nil
}

// newObserver logs to stderr, or to a rotated file when JSONTUNNEL_LOG_FILE
// is set. Format and level follow JSONTUNNEL_LOG_FORMAT and
// JSONTUNNEL_LOG_LEVEL.
func (a *app) newObserver(cfg envConfig) *slogobs.Observer {
	if cfg.LogFile != "" {
		return slogobs.New(slogobs.WithRotatingFile(cfg.LogFile, slogobs.RotationConfig{}))
	}
	return slogobs.New(slogobs.WithOutput(a.stderr))
}
