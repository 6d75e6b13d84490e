package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/c360studio/ampdesign/config"
	"github.com/c360studio/ampdesign/events"
	"github.com/c360studio/ampdesign/llm"
	"github.com/c360studio/ampdesign/llm/providers"
	"github.com/c360studio/ampdesign/pipeline"
	"github.com/c360studio/ampdesign/prompts"
	"github.com/c360studio/ampdesign/sandbox"
	"github.com/c360studio/ampdesign/storage"
	"github.com/c360studio/ampdesign/web"
)

// App wires the pipeline and its collaborators from a Config.
type App struct {
	cfg       *config.Config
	logger    *slog.Logger
	registry  *prometheus.Registry
	prompts   *prompts.Library
	publisher events.Publisher
	nats      *events.NATSPublisher
	runs      *storage.RunStore
	pipeline  *pipeline.Pipeline
}

// NewApp builds every component. Close releases the NATS connection.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{
		cfg:       cfg,
		logger:    logger,
		registry:  prometheus.NewRegistry(),
		publisher: events.Nop{},
	}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	lib, err := prompts.NewLibrary(cfg.Prompts.Dir, prompts.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}
	a.prompts = lib

	if cfg.NATS.URL != "" {
		nc, err := events.Dial(cfg.NATS.URL)
		if err != nil {
			return nil, err
		}
		a.nats = events.NewNATSPublisher(nc, cfg.NATS.SubjectPrefix, events.WithLogger(logger))
		a.publisher = a.nats
		logger.Info("Publishing run events", "url", cfg.NATS.URL, "prefix", cfg.NATS.SubjectPrefix)

		if cfg.NATS.RunBucket != "" {
			a.runs = a.openRunStore(nc)
		}
	}

	registry, err := cfg.Registry()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("build model registry: %w", err)
	}
	client := llm.NewClient(registry, providers.Default(),
		llm.WithRetryConfig(cfg.LLM.Retry),
		llm.WithHTTPClient(&http.Client{Timeout: cfg.LLM.RequestTimeout}),
		llm.WithLogger(logger),
		llm.WithCallRecorder(events.NewCallRecorder(a.publisher, logger)),
	)

	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithPublisher(a.publisher),
		pipeline.WithMetrics(pipeline.NewMetrics(a.registry)),
		pipeline.WithStageTimeout(cfg.Pipeline.StageTimeout),
		pipeline.WithMaxRevisions(cfg.Pipeline.MaxRevisions),
		pipeline.WithBias(cfg.Pipeline.Bias),
		pipeline.WithSweep(cfg.Pipeline.Sweep),
		pipeline.WithTemperature(cfg.LLM.Temperature),
		pipeline.WithMaxTokens(cfg.LLM.MaxTokens),
	}
	if a.runs != nil {
		opts = append(opts, pipeline.WithStore(a.runs))
	}
	if cfg.Sandbox.Enabled {
		opts = append(opts, pipeline.WithRunner(sandbox.NewRunner(
			sandbox.WithInterpreter(cfg.Sandbox.Interpreter),
			sandbox.WithTimeout(cfg.Sandbox.Timeout),
			sandbox.WithTempDir(cfg.Sandbox.TempDir),
			sandbox.WithLogger(logger),
		)))
	}
	a.pipeline = pipeline.New(client, lib, opts...)
	return a, nil
}

// openRunStore returns nil when JetStream is unavailable; runs are then
// only streamed as events.
func (a *App) openRunStore(nc *nats.Conn) *storage.RunStore {
	js, err := jetstream.New(nc)
	if err != nil {
		a.logger.Warn("JetStream unavailable, runs will not be saved", "error", err)
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := storage.NewRunStore(ctx, js, a.cfg.NATS.RunBucket, a.cfg.NATS.RunTTL)
	if err != nil {
		a.logger.Warn("Runs will not be saved", "bucket", a.cfg.NATS.RunBucket, "error", err)
		return nil
	}
	a.logger.Info("Saving runs", "bucket", a.cfg.NATS.RunBucket, "ttl", a.cfg.NATS.RunTTL)
	return store
}

// WebOptions returns the server options backed by this app.
func (a *App) WebOptions() []web.Option {
	opts := []web.Option{
		web.WithGatherer(a.registry),
		web.WithLogger(a.logger),
		web.WithRunTimeout(a.cfg.Server.RunTimeout),
		web.WithSweep(a.cfg.Pipeline.Sweep),
	}
	if a.runs != nil {
		opts = append(opts, web.WithRunStore(a.runs))
	}
	return opts
}

// WatchPrompts reloads prompt overrides until ctx ends, when enabled.
func (a *App) WatchPrompts(ctx context.Context) {
	if !a.cfg.Prompts.Watch {
		return
	}
	if err := a.prompts.Watch(ctx); err != nil {
		a.logger.Warn("Prompt overrides will not be reloaded", "dir", a.cfg.Prompts.Dir, "error", err)
	}
}

// Close drains the NATS connection, if any.
func (a *App) Close() {
	if a.nats == nil {
		return
	}
	if err := a.nats.Close(); err != nil {
		a.logger.Warn("Failed to drain NATS connection", "error", err)
	}
}
