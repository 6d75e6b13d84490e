// Package web serves the design form, the JSON API and the metrics
// endpoint.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/c360studio/ampdesign/nodal"
	"github.com/c360studio/ampdesign/pipeline"
	"github.com/c360studio/ampdesign/storage"
)

// maxRequestBodySize limits POST body sizes.
const maxRequestBodySize = 1 << 20 // 1 MB

//go:embed templates/*.html
var templateFS embed.FS

// Examples are shown on the form as starting points.
var Examples = []string{
	"Design an amplifier with gain 10. Make use of resistors and capacitors. AC=200mV, DC=25V",
	"Design a common source amplifier with gain 10, Rd = 10kΩ, Rg = 1MΩ, VDD = 5V",
	"Design a source follower with Rs = 2kΩ, Rg = 1MΩ and bias current 2mA",
	"Design a common gate amplifier with Rd = 5kΩ, Rs = 1kΩ and bandwidth 10MHz",
}

// Runner runs a design request end to end.
type Runner interface {
	Run(ctx context.Context, request string) (*pipeline.Result, error)
}

// RunStore reads saved runs.
type RunStore interface {
	Get(ctx context.Context, runID string) (*pipeline.Result, error)
	List(ctx context.Context) ([]storage.Summary, error)
}

// Server holds the HTTP handlers.
type Server struct {
	runner     Runner
	store      RunStore
	gatherer   prometheus.Gatherer
	logger     *slog.Logger
	sweep      nodal.SweepConfig
	runTimeout time.Duration
	pages      *template.Template
}

// Option configures a Server.
type Option func(*Server)

// WithGatherer exposes the metrics of g on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithRunStore enables listing and fetching saved runs.
func WithRunStore(rs RunStore) Option {
	return func(s *Server) {
		s.store = rs
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithSweep sets the frequency range of plotted responses.
func WithSweep(c nodal.SweepConfig) Option {
	return func(s *Server) {
		s.sweep = c
	}
}

// WithRunTimeout bounds each pipeline run started over HTTP.
func WithRunTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.runTimeout = d
	}
}

// New creates a server. A nil runner disables /design and /api/runs.
func New(runner Runner, opts ...Option) (*Server, error) {
	pages, err := template.New("pages").Funcs(template.FuncMap{
		"join": strings.Join,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	s := &Server{
		runner:     runner,
		logger:     slog.Default(),
		sweep:      nodal.DefaultSweep(),
		runTimeout: 15 * time.Minute,
		pages:      pages,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Handler returns a mux with every route registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterHTTPHandlers(mux)
	return mux
}

// RegisterHTTPHandlers registers the handlers on mux:
//
//	GET  /
//	POST /design
//	POST /api/extract
//	POST /api/analyze
//	POST /api/plot.svg
//	POST /api/runs
//	GET  /api/runs
//	GET  /api/runs/{id}
//	GET  /healthz
//	GET  /metrics
func (s *Server) RegisterHTTPHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/design", s.handleDesign)
	mux.HandleFunc("/api/extract", s.handleExtract)
	mux.HandleFunc("/api/analyze", s.handleAnalyze)
	mux.HandleFunc("/api/plot.svg", s.handlePlot)
	mux.HandleFunc("/api/runs", s.handleRuns)
	mux.HandleFunc("/api/runs/", s.handleRun)
	mux.HandleFunc("/healthz", s.handleHealth)
	if s.gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
