package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/sync/errgroup"

	"github.com/leofalp/jsontunnel/core/middleware"
	"github.com/leofalp/jsontunnel/core/schema"
	"github.com/leofalp/jsontunnel/core/stream"
	"github.com/leofalp/jsontunnel/core/tunnel"
	"github.com/leofalp/jsontunnel/providers/observability/slogobs"
	"github.com/leofalp/jsontunnel/providers/openai"
)

// modelFlags are shared by run and batch.
type modelFlags struct {
	schemaPath string
	system     string
	name       string
	model      string
	retries    int
	repair     bool
	jsonMode   bool
	timeout    time.Duration
	httpRetry  int
}

// model is the pair of completers a command calls, wrapped in middleware.
type model struct {
	complete middleware.CompleteFunc
	stream   middleware.StreamFunc
}

func (m *modelFlags) register(a *app, name string, cfg envConfig) *flag.FlagSet {
	fs := a.flagSet(name)
	fs.StringVar(&m.schemaPath, "schema", "", "JSON Schema file")
	fs.StringVar(&m.system, "system", "", "system prompt opening every prompt")
	fs.StringVar(&m.name, "name", "", "name of the rendered type (default Output)")
	fs.StringVar(&m.model, "model", cfg.Model, "model identifier")
	fs.IntVar(&m.retries, "retries", cfg.MaxRetries, "corrective attempts after the first")
	fs.BoolVar(&m.repair, "repair", false, "repair malformed JSON before rejecting it")
	fs.BoolVar(&m.jsonMode, "json-mode", false, "ask the endpoint for JSON mode")
	fs.DurationVar(&m.timeout, "timeout", cfg.Timeout, "deadline of one model call")
	fs.IntVar(&m.httpRetry, "http-retries", cfg.HTTPRetries, "re-sends of a call failing with a transient HTTP status")
	return fs
}

// tunnelFor builds the tunnel and model a command runs prompts through.
func (m *modelFlags) tunnelFor(cfg envConfig, observer *slogobs.Observer) (*tunnel.Tunnel[any], model, error) {
	s, err := loadSchema(m.schemaPath)
	if err != nil {
		return nil, model{}, err
	}

	opts := []tunnel.Option{
		tunnel.WithMaxRetries(m.retries),
		tunnel.WithSystemPrompt(m.system),
		tunnel.WithObserver(observer),
	}
	if m.name != "" {
		opts = append(opts, tunnel.WithSchemaName(m.name))
	}
	if m.repair {
		opts = append(opts, tunnel.WithJSONRepair())
	}
	t, err := tunnel.New[any](s, opts...)
	if err != nil {
		return nil, model{}, err
	}

	clientOpts := []openai.Option{openai.WithModel(m.model), openai.WithObserver(observer)}
	if cfg.APIKey != "" {
		clientOpts = append(clientOpts, openai.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, openai.WithBaseURL(cfg.BaseURL))
	}
	if m.jsonMode {
		clientOpts = append(clientOpts, openai.WithJSONMode())
	}
	client := openai.New(clientOpts...)

	logger := observer.Logger()
	completeStack := []middleware.Middleware{middleware.Logging(logger, middleware.LogLevelStandard)}
	if m.httpRetry > 0 {
		completeStack = append(completeStack, middleware.Retry(middleware.RetryConfig{MaxRetries: m.httpRetry}))
	}
	streamStack := []middleware.StreamMiddleware{middleware.LoggingStream(logger, middleware.LogLevelStandard)}
	if m.timeout > 0 {
		completeStack = append(completeStack, middleware.Timeout(m.timeout))
		streamStack = append(streamStack, middleware.TimeoutStream(m.timeout))
	}

	return t, model{
		complete: middleware.Chain(client.Complete, completeStack...),
		stream:   middleware.ChainStream(client.Stream, streamStack...),
	}, nil
}

func (a *app) runPrompt(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var m modelFlags
	fs := m.register(a, "run", cfg)
	prompt := fs.String("prompt", "", "what to extract")
	document := fs.String("document", "", "file appended to the prompt as context; HTML is converted to markdown")
	query := fs.String("query", "", "jq expression applied to the result")
	streaming := fs.Bool("stream", false, "stream completions and stop reading once the output validates")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := requireFlag("schema", m.schemaPath); err != nil {
		return err
	}
	if *prompt == "" && *document == "" {
		return fmt.Errorf("%w: -prompt or -document is required", errUsage)
	}

	text := *prompt
	if *document != "" {
		doc, err := loadDocument(*document)
		if err != nil {
			return err
		}
		text = strings.TrimSpace(text + "\n\nDocument:\n" + doc)
	}

	observer := a.newObserver(cfg)
	defer observer.Close()

	t, llm, err := m.tunnelFor(cfg, observer)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	runner := tunnel.Prompt(text, llm.complete)
	if *streaming {
		runner = streamingRunner(text, t.Schema(), llm.stream)
	}
	value, err := t.Run(ctx, runner)
	if err != nil {
		return err
	}
	return a.printValue(value, *query)
}

// streamingRunner reads a streamed completion through a stream validator and
// stops pulling chunks as soon as the buffer validates. The tunnel then
// re-checks the returned buffer.
func streamingRunner(userPrompt string, s schema.Schema, chunks middleware.StreamFunc) tunnel.Runner {
	return func(ctx context.Context, helpers tunnel.Helpers) (string, error) {
		v := stream.NewValidator(s)
		res, err := v.Consume(ctx, chunks(ctx, helpers.InjectSchema(userPrompt)))
		if err != nil {
			return "", err
		}
		return res.Buffer, nil
	}
}

// loadDocument reads a context file, converting HTML to markdown.
func loadDocument(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading document: %w", err)
	}
	if !isHTML(path, data) {
		return string(data), nil
	}
	markdown, err := htmltomarkdown.ConvertString(string(data))
	if err != nil {
		return "", fmt.Errorf("converting %s to markdown: %w", path, err)
	}
	return markdown, nil
}

func isHTML(path string, data []byte) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm", ".xhtml":
		return true
	}
	head := bytes.ToLower(bytes.TrimSpace(data[:min(len(data), 512)]))
	return bytes.HasPrefix(head, []byte("<!doctype html")) || bytes.HasPrefix(head, []byte("<html"))
}

// batchResult is one JSON line of batch output.
type batchResult struct {
	Index  int    `json:"index"`
	Prompt string `json:"prompt"`
	Output any    `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

// batch runs every non-empty line of a prompts file through the tunnel with
// bounded concurrency and prints one JSON line per prompt, in file order.
func (a *app) batch(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var m modelFlags
	fs := m.register(a, "batch", cfg)
	promptsPath := fs.String("prompts", "", "file with one prompt per line")
	concurrency := fs.Int("concurrency", cfg.Concurrency, "prompts run at the same time")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := requireFlag("schema", m.schemaPath); err != nil {
		return err
	}
	if err := requireFlag("prompts", *promptsPath); err != nil {
		return err
	}
	if *concurrency <= 0 {
		return fmt.Errorf("%w: -concurrency must be positive", errUsage)
	}

	prompts, err := readPrompts(*promptsPath)
	if err != nil {
		return err
	}

	observer := a.newObserver(cfg)
	defer observer.Close()

	t, llm, err := m.tunnelFor(cfg, observer)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results := make([]batchResult, len(prompts))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(*concurrency)
	for i, prompt := range prompts {
		g.Go(func() error {
			results[i] = batchResult{Index: i, Prompt: prompt}
			value, err := t.Run(ctx, tunnel.Prompt(prompt, llm.complete))
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				results[i].Error = err.Error()
				return nil
			}
			results[i].Output = value
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	failed := 0
	encoder := json.NewEncoder(a.stdout)
	for _, result := range results {
		if result.Error != "" {
			failed++
		}
		if err := encoder.Encode(result); err != nil {
			return fmt.Errorf("writing results: %w", err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d prompts failed", failed, len(results))
	}
	return nil
}

func readPrompts(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading prompts: %w", err)
	}
	defer f.Close()

	var prompts []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			prompts = append(prompts, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading prompts: %w", err)
	}
	if len(prompts) == 0 {
		return nil, fmt.Errorf("%w: %s holds no prompts", errUsage, path)
	}
	return prompts, nil
}
