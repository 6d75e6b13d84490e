// Package pipeline runs a design request through the fixed sequence of
// stages, from parameter extraction to plotting code.
//
// Deterministic stages (extraction, small-signal analysis, validation)
// never depend on model output being usable. When a model call fails, the
// stage is marked failed and the run continues.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/c360studio/ampdesign/circuit"
	"github.com/c360studio/ampdesign/events"
	"github.com/c360studio/ampdesign/llm"
	"github.com/c360studio/ampdesign/nodal"
	"github.com/c360studio/ampdesign/prompts"
	"github.com/c360studio/ampdesign/reference"
	"github.com/c360studio/ampdesign/sandbox"
	"github.com/c360studio/ampdesign/smallsignal"
	"github.com/c360studio/ampdesign/validation"
)

// Stage names one step of the pipeline.
type Stage string

const (
	StageAnalysis           Stage = "analysis"
	StageComponentSelection Stage = "component-selection"
	StageSmallSignal        Stage = "small-signal"
	StageFormulas           Stage = "formulas"
	StageNetlist            Stage = "netlist"
	StagePySpice            Stage = "pyspice"
	StageSimulation         Stage = "simulation"
	StageValidation         Stage = "validation"
	StageCodeGeneration     Stage = "code-generation"
)

// Stages returns every stage in execution order.
func Stages() []Stage {
	return []Stage{
		StageAnalysis,
		StageComponentSelection,
		StageSmallSignal,
		StageFormulas,
		StageNetlist,
		StagePySpice,
		StageSimulation,
		StageValidation,
		StageCodeGeneration,
	}
}

func stageIndex(s Stage) int {
	for i, st := range Stages() {
		if st == s {
			return i
		}
	}
	return -1
}

// StageStatus is the outcome of one stage execution.
type StageStatus string

const (
	StatusCompleted StageStatus = "completed"
	StatusFailed    StageStatus = "failed"
	StatusSkipped   StageStatus = "skipped"
)

// StageResult records one execution of a stage. A stage appears more than
// once when a revision sends the run back.
type StageResult struct {
	Stage      Stage       `json:"stage"`
	Status     StageStatus `json:"status"`
	Revision   int         `json:"revision"`
	StartedAt  time.Time   `json:"started_at"`
	DurationMs int64       `json:"duration_ms"`
	Output     string      `json:"output,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// Where the analysed design came from.
const (
	DesignExtracted = "extracted"
	DesignModel     = "model"
)

// Result is everything a run produced.
type Result struct {
	RunID       string    `json:"run_id"`
	Request     string    `json:"request"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`

	Analysis circuit.Analysis `json:"analysis"`
	Summary  string           `json:"summary,omitempty"`

	Components   reference.ComponentSheet `json:"components"`
	Design       smallsignal.Design       `json:"design"`
	DesignSource string                   `json:"design_source"`

	SmallSignal smallsignal.Result `json:"small_signal"`
	NodalGain   *float64           `json:"nodal_gain,omitempty"`
	NodalError  string             `json:"nodal_error,omitempty"`
	Sweep       []nodal.Point      `json:"sweep,omitempty"`
	Bandwidth   float64            `json:"bandwidth,omitempty"`

	Formulas    reference.FormulaSheet `json:"formulas"`
	Explanation string                 `json:"explanation,omitempty"`

	Netlist         string   `json:"netlist,omitempty"`
	NetlistWarnings []string `json:"netlist_warnings,omitempty"`

	PySpice    string                 `json:"pyspice,omitempty"`
	Syntax     *sandbox.SyntaxReport  `json:"syntax,omitempty"`
	Simulation *sandbox.Result        `json:"simulation,omitempty"`
	Validation validation.Report      `json:"validation"`
	PlotCode   string                 `json:"plot_code,omitempty"`
	Revisions  int                    `json:"revisions"`
	Stages     []StageResult          `json:"stages"`

	feedback string
}

// Stage returns the latest execution of s.
func (r *Result) Stage(s Stage) (StageResult, bool) {
	for i := len(r.Stages) - 1; i >= 0; i-- {
		if r.Stages[i].Stage == s {
			return r.Stages[i], true
		}
	}
	return StageResult{}, false
}

// SmallSignalReport renders the small-signal results as plain text.
func (r *Result) SmallSignalReport() string {
	return smallSignalText(r)
}

// Failed lists the stages whose latest execution failed.
func (r *Result) Failed() []Stage {
	var failed []Stage
	for _, s := range Stages() {
		if sr, ok := r.Stage(s); ok && sr.Status == StatusFailed {
			failed = append(failed, s)
		}
	}
	return failed
}

// ErrEmptyRequest is returned for a blank design request.
var ErrEmptyRequest = errors.New("design request is empty")

// Pipeline runs design requests. It is safe for concurrent use; every run
// keeps its own state.
type Pipeline struct {
	llm          llm.Completer
	prompts      *prompts.Library
	runner       *sandbox.Runner
	publisher    events.Publisher
	store        ResultStore
	metrics      *Metrics
	logger       *slog.Logger
	stageTimeout time.Duration
	maxRevisions int
	temperature  *float64
	maxTokens    int
	bias         smallsignal.Bias
	sweep        nodal.SweepConfig
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRunner enables the simulation stage.
func WithRunner(r *sandbox.Runner) Option {
	return func(p *Pipeline) {
		p.runner = r
	}
}

// WithPublisher sets where stage events go.
func WithPublisher(pub events.Publisher) Option {
	return func(p *Pipeline) {
		p.publisher = pub
	}
}

// ResultStore keeps finished runs.
type ResultStore interface {
	Save(ctx context.Context, r *Result) error
}

// WithStore saves every finished run, including cancelled ones.
func WithStore(s ResultStore) Option {
	return func(p *Pipeline) {
		p.store = s
	}
}

// WithMetrics sets the Prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = l
	}
}

// WithStageTimeout bounds every stage.
func WithStageTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		p.stageTimeout = d
	}
}

// WithMaxRevisions lets a failed validation send the run back up to n times.
func WithMaxRevisions(n int) Option {
	return func(p *Pipeline) {
		p.maxRevisions = n
	}
}

// WithTemperature sets the sampling temperature of every model call.
func WithTemperature(t float64) Option {
	return func(p *Pipeline) {
		p.temperature = &t
	}
}

// WithMaxTokens limits every model response.
func WithMaxTokens(n int) Option {
	return func(p *Pipeline) {
		p.maxTokens = n
	}
}

// WithBias sets the operating point assumed for extracted designs.
func WithBias(b smallsignal.Bias) Option {
	return func(p *Pipeline) {
		p.bias = b
	}
}

// WithSweep sets the frequency range of the response sweep.
func WithSweep(c nodal.SweepConfig) Option {
	return func(p *Pipeline) {
		p.sweep = c
	}
}

// New creates a pipeline that asks client for model output using the
// prompts in lib.
func New(client llm.Completer, lib *prompts.Library, opts ...Option) *Pipeline {
	p := &Pipeline{
		llm:          client,
		prompts:      lib,
		publisher:    events.Nop{},
		logger:       slog.Default(),
		stageTimeout: 3 * time.Minute,
		bias:         smallsignal.DefaultBias(),
		sweep:        nodal.DefaultSweep(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes every stage for request. The returned error is only set for
// a blank request or when ctx ended before the run finished; stage failures
// are reported in Result.Stages.
func (p *Pipeline) Run(ctx context.Context, request string) (*Result, error) {
	request = strings.TrimSpace(request)
	if request == "" {
		return nil, ErrEmptyRequest
	}

	r := &Result{
		RunID:     uuid.New().String(),
		Request:   request,
		StartedAt: time.Now(),
	}
	logger := p.logger.With("run_id", r.RunID)
	logger.Info("Design run started")
	p.publish(ctx, events.Event{Kind: events.KindRunStarted, RunID: r.RunID, Time: r.StartedAt})

	stages := Stages()
	for i := 0; i < len(stages); i++ {
		if ctx.Err() != nil {
			break
		}
		stage := stages[i]
		p.runStage(ctx, r, stage, logger)

		if stage == StageValidation {
			if target, ok := p.revisionTarget(r); ok {
				r.Revisions++
				r.feedback = feedback(r.Validation)
				p.metrics.observeRevision()
				logger.Info("Requirements not met, revising",
					"failed", r.Validation.FailedParameters,
					"redirect_to", target,
					"revision", r.Revisions)
				i = stageIndex(target) - 1
			}
		}
	}

	r.CompletedAt = time.Now()
	outcome := "completed"
	if err := ctx.Err(); err != nil {
		outcome = "cancelled"
	} else if len(r.Failed()) > 0 {
		outcome = "degraded"
	}
	p.metrics.observeRun(outcome)
	p.publish(ctx, events.Event{
		Kind:       events.KindRunCompleted,
		RunID:      r.RunID,
		Time:       r.CompletedAt,
		DurationMs: r.CompletedAt.Sub(r.StartedAt).Milliseconds(),
		Revision:   r.Revisions,
	})
	if p.store != nil {
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		if err := p.store.Save(saveCtx, r); err != nil {
			logger.Warn("Failed to save run", "error", err)
		}
		cancel()
	}
	logger.Info("Design run finished",
		"outcome", outcome,
		"duration", r.CompletedAt.Sub(r.StartedAt),
		"revisions", r.Revisions)

	if err := ctx.Err(); err != nil {
		return r, fmt.Errorf("design run %s: %w", r.RunID, err)
	}
	return r, nil
}

func (p *Pipeline) revisionTarget(r *Result) (Stage, bool) {
	if r.Validation.MatchesRequirements || r.Revisions >= p.maxRevisions {
		return "", false
	}
	target := Stage(r.Validation.RedirectTo)
	if idx := stageIndex(target); idx < 0 || idx >= stageIndex(StageValidation) {
		return "", false
	}
	return target, true
}

func feedback(rep validation.Report) string {
	var b strings.Builder
	for _, c := range rep.Checks {
		if c.Pass {
			continue
		}
		fmt.Fprintf(&b, "- %s: required %g, achieved %g (%s)\n", c.Parameter, c.Required, c.Achieved, c.Direction)
	}
	return b.String()
}

// skipError marks a stage that had nothing to do.
type skipError struct{ reason string }

func (e skipError) Error() string { return e.reason }

func skip(reason string) error { return skipError{reason: reason} }

type stageFunc func(ctx context.Context, r *Result) (string, error)

func (p *Pipeline) stageFunc(s Stage) stageFunc {
	switch s {
	case StageAnalysis:
		return p.analysis
	case StageComponentSelection:
		return p.componentSelection
	case StageSmallSignal:
		return p.smallSignal
	case StageFormulas:
		return p.formulas
	case StageNetlist:
		return p.netlist
	case StagePySpice:
		return p.pyspice
	case StageSimulation:
		return p.simulation
	case StageValidation:
		return p.validation
	case StageCodeGeneration:
		return p.codeGeneration
	}
	return nil
}

func (p *Pipeline) runStage(ctx context.Context, r *Result, stage Stage, logger *slog.Logger) {
	sr := StageResult{Stage: stage, Revision: r.Revisions, StartedAt: time.Now()}
	p.publish(ctx, events.Event{Kind: events.KindStageStarted, RunID: r.RunID, Stage: string(stage), Time: sr.StartedAt, Revision: r.Revisions})

	stageCtx, cancel := context.WithTimeout(ctx, p.stageTimeout)
	stageCtx = llm.ContextWithTrace(stageCtx, llm.Trace{RunID: r.RunID, Stage: string(stage)})
	out, err := p.stageFunc(stage)(stageCtx, r)
	cancel()

	elapsed := time.Since(sr.StartedAt)
	sr.DurationMs = elapsed.Milliseconds()
	sr.Output = out

	kind := events.KindStageCompleted
	var skipped skipError
	switch {
	case err == nil:
		sr.Status = StatusCompleted
		logger.Debug("Stage completed", "stage", stage, "duration", elapsed)
	case errors.As(err, &skipped):
		sr.Status = StatusSkipped
		sr.Output = skipped.reason
		logger.Debug("Stage skipped", "stage", stage, "reason", skipped.reason)
	default:
		sr.Status = StatusFailed
		sr.Error = err.Error()
		kind = events.KindStageFailed
		logger.Warn("Stage failed", "stage", stage, "duration", elapsed, "error", err)
	}

	r.Stages = append(r.Stages, sr)
	p.metrics.observeStage(stage, sr.Status, elapsed)
	p.publish(ctx, events.Event{
		Kind:       kind,
		RunID:      r.RunID,
		Stage:      string(stage),
		Time:       time.Now(),
		DurationMs: sr.DurationMs,
		Revision:   r.Revisions,
		Error:      sr.Error,
	})
}

// publish delivers e even after ctx was cancelled, so the end of a
// cancelled run is still visible.
func (p *Pipeline) publish(ctx context.Context, e events.Event) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := p.publisher.Publish(pubCtx, e); err != nil {
		p.logger.Debug("Event not delivered", "kind", e.Kind, "stage", e.Stage, "error", err)
	}
}
