package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/nguyentantai21042004/voice-merge/internal/ai"
	"github.com/nguyentantai21042004/voice-merge/internal/ai/gemini"
	"github.com/nguyentantai21042004/voice-merge/internal/ai/openai"
	"github.com/nguyentantai21042004/voice-merge/internal/clipboard"
	"github.com/nguyentantai21042004/voice-merge/internal/config"
	"github.com/nguyentantai21042004/voice-merge/internal/export"
	"github.com/nguyentantai21042004/voice-merge/internal/logger"
	"github.com/nguyentantai21042004/voice-merge/internal/metrics"
	"github.com/nguyentantai21042004/voice-merge/internal/preview"
	"github.com/nguyentantai21042004/voice-merge/internal/processor"
	"github.com/nguyentantai21042004/voice-merge/internal/queue"
	"github.com/nguyentantai21042004/voice-merge/internal/retry"
	"github.com/nguyentantai21042004/voice-merge/internal/server"
	"github.com/nguyentantai21042004/voice-merge/internal/session"
	"github.com/nguyentantai21042004/voice-merge/internal/watcher"
)

const defaultConfigPath = "config.yaml"

// errRunFailed reports a batch or summary failure the processor has already
// logged and recorded in the session.
var errRunFailed = errors.New("run failed")

// settleDelay gives copies into the drop folder time to finish.
const settleDelay = 500 * time.Millisecond

type options struct {
	configPath string
	out        string
	summary    bool
	copy       bool
	serve      bool
	files      []string
}

// app holds the wired session components shared by both modes.
type app struct {
	cfg       *config.Config
	log       logger.Logger
	metrics   *metrics.Metrics
	previews  *preview.Registry
	queue     *queue.Queue
	session   *session.Session
	processor processor.Processor
	clipboard clipboard.Writer

	// stdout receives the document when no -out file is given.
	stdout io.Writer
}

func main() {
	opts := parseFlags()

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}

	if opts.serve {
		err = a.serve(ctx)
	} else {
		err = a.runOnce(ctx, opts)
	}
	if errors.Is(err, errRunFailed) {
		os.Exit(1)
	}
	if err != nil {
		a.log.Error(ctx, "%v", err)
		os.Exit(1)
	}
}

func parseFlags() options {
	var opts options
	flag.StringVar(&opts.configPath, "config", defaultConfigPath, "path to the YAML config file")
	flag.StringVar(&opts.out, "out", "", "write the document to this .txt, .md or .docx file instead of stdout")
	flag.BoolVar(&opts.summary, "summary", false, "summarize the document after transcription")
	flag.BoolVar(&opts.copy, "copy", false, "copy the document to the clipboard")
	flag.BoolVar(&opts.serve, "serve", false, "start the local UI server and drop-folder watcher")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] file...\n       %s -serve [flags]\n\n", os.Args[0], os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	opts.files = flag.Args()

	if !opts.serve && len(opts.files) == 0 {
		flag.Usage()
		os.Exit(2)
	}
	return opts
}

// loadConfig falls back to built-in defaults when the default config file is
// absent. An explicitly named file must exist.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if path == defaultConfigPath && errors.Is(err, fs.ErrNotExist) {
		return config.Default(), nil
	}
	return nil, err
}

func newApp(cfg *config.Config) (*app, error) {
	// stdout carries the document in one-shot mode, so logs go to stderr.
	log := logger.NewWithWriter(os.Stderr, cfg.Logging.Level)
	m := metrics.New()

	backend, models, err := newBackend(cfg)
	if err != nil {
		return nil, err
	}
	policy := retry.Policy{
		MaxAttempts:  cfg.Retry.MaxAttempts,
		InitialDelay: cfg.Retry.InitialDelay,
	}
	client := ai.New(backend, models, policy, m, log)

	previews := preview.NewRegistry(server.PreviewPrefix, func(n int) { m.LivePreviews.Set(float64(n)) })
	q := queue.New(previews, log)
	q.Subscribe(func(n int) { m.QueuedFiles.Set(float64(n)) })
	sess := session.New()

	return &app{
		cfg:       cfg,
		log:       log,
		metrics:   m,
		previews:  previews,
		queue:     q,
		session:   sess,
		processor: processor.New(cfg, q, sess, client, m, log),
		clipboard: clipboard.New(),
		stdout:    os.Stdout,
	}, nil
}

func newBackend(cfg *config.Config) (ai.Backend, ai.Models, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		return gemini.New(ai.EnvKey(cfg.Gemini.APIKeyEnv), cfg.Gemini.BaseURL),
			ai.Models{Transcribe: cfg.Gemini.TranscribeModel, Summarize: cfg.Gemini.SummaryModel}, nil
	case config.ProviderOpenAI:
		return openai.New(ai.EnvKey(cfg.OpenAI.APIKeyEnv), cfg.OpenAI.BaseURL),
			ai.Models{Transcribe: cfg.OpenAI.TranscribeModel, Summarize: cfg.OpenAI.SummaryModel}, nil
	default:
		return nil, ai.Models{}, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// runOnce transcribes the given files as one batch and writes the document.
// A failed batch or summary still writes what was produced, then reports
// errRunFailed.
func (a *app) runOnce(ctx context.Context, opts options) error {
	defer a.queue.Close()

	for _, path := range opts.files {
		if _, err := a.queue.Add(filepath.Base(path), path); err != nil {
			return err
		}
	}

	a.log.Info(ctx, "Transcribing %d files with %s", a.queue.Len(), a.cfg.Provider)
	runErr := a.processor.TranscribeAll(ctx)
	if runErr == nil && opts.summary {
		runErr = a.processor.Summarize(ctx)
	}

	st := a.session.Snapshot()
	doc := export.Document{Title: "Transkripsiyon", Text: st.Text, Summary: st.Summary}
	if opts.out != "" {
		if err := export.Write(opts.out, doc); err != nil {
			return err
		}
		a.log.Info(ctx, "Document written to %s", opts.out)
	} else if err := export.Render(a.stdout, export.FormatText, doc); err != nil {
		return fmt.Errorf("write document: %w", err)
	}

	if opts.copy {
		if err := a.clipboard.WriteAll(st.Text); err != nil {
			a.log.Warn(ctx, "Clipboard copy failed: %v", err)
		}
	}
	if runErr != nil {
		return errRunFailed
	}
	return nil
}

// serve runs the local UI and the drop-folder watcher until ctx is cancelled.
func (a *app) serve(ctx context.Context) error {
	if err := os.MkdirAll(a.cfg.Paths.Input, 0755); err != nil {
		return fmt.Errorf("create input dir %s: %w", a.cfg.Paths.Input, err)
	}

	srv, err := server.New(a.cfg, server.Deps{
		Queue:     a.queue,
		Previews:  a.previews,
		Session:   a.session,
		Processor: a.processor,
		Clipboard: a.clipboard,
		Metrics:   a.metrics,
		Logger:    a.log,
	})
	if err != nil {
		return err
	}

	enqueue := func(ctx context.Context, path string) error {
		_, err := a.queue.Add(filepath.Base(path), path)
		return err
	}
	w, err := watcher.New(a.cfg.Paths.Input, enqueue, a.log, settleDelay)
	if err != nil {
		return err
	}
	defer w.Stop()

	errChan := make(chan error, 2)
	go func() {
		if err := w.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errChan <- fmt.Errorf("watcher: %w", err)
		}
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			errChan <- fmt.Errorf("server: %w", err)
		}
	}()

	a.log.Info(ctx, "Provider: %s", a.cfg.Provider)
	a.log.Info(ctx, "Drop folder: %s", a.cfg.Paths.Input)
	a.log.Info(ctx, "Press Ctrl+C to stop")

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info(ctx, "Shutdown signal received")
	case runErr = <-errChan:
	}

	a.log.Info(ctx, "Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Warn(shutdownCtx, "Server shutdown: %v", err)
	}
	return runErr
}
