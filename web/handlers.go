package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strings"

	"github.com/c360studio/ampdesign/circuit"
	"github.com/c360studio/ampdesign/extract"
	"github.com/c360studio/ampdesign/nodal"
	"github.com/c360studio/ampdesign/pipeline"
	"github.com/c360studio/ampdesign/plot"
	"github.com/c360studio/ampdesign/smallsignal"
	"github.com/c360studio/ampdesign/storage"
)

type pageData struct {
	Examples []string
	Prompt   string
	Error    string
	Result   *pipeline.Result
	Bode     template.HTML
}

func (s *Server) render(w http.ResponseWriter, status int, data pageData) {
	data.Examples = Examples

	var buf bytes.Buffer
	if err := s.pages.ExecuteTemplate(&buf, "index.html", data); err != nil {
		s.logger.Error("Failed to render page", "error", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.render(w, http.StatusOK, pageData{})
}

// handleDesign runs the pipeline for the submitted form and renders the
// results below it.
func (s *Server) handleDesign(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	data := pageData{Prompt: strings.TrimSpace(r.PostForm.Get("prompt"))}
	if data.Prompt == "" {
		data.Error = "Describe the amplifier you need."
		s.render(w, http.StatusBadRequest, data)
		return
	}
	if s.runner == nil {
		data.Error = "The design pipeline is not configured."
		s.render(w, http.StatusServiceUnavailable, data)
		return
	}

	res, err := s.run(r.Context(), data.Prompt)
	data.Result = res
	status := http.StatusOK
	if err != nil {
		data.Error = err.Error()
		status = runErrorStatus(err)
	}
	if res != nil && len(res.Sweep) > 0 {
		var svg bytes.Buffer
		if err := plot.WriteSVG(&svg, res.Sweep, res.Design.Topology.DisplayName()+" response"); err != nil {
			s.logger.Warn("Bode plot not rendered", "run_id", res.RunID, "error", err)
		} else {
			data.Bode = template.HTML(svg.String())
		}
	}
	s.render(w, status, data)
}

func (s *Server) run(ctx context.Context, prompt string) (*pipeline.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()
	return s.runner.Run(ctx, prompt)
}

func runErrorStatus(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrEmptyRequest):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

type extractRequest struct {
	Text string `json:"text"`
}

// handleExtract runs parameter extraction only.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	writeJSON(w, http.StatusOK, extract.Extract(req.Text))
}

func decodeDesign(w http.ResponseWriter, r *http.Request) (smallsignal.Design, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var d smallsignal.Design
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		writeError(w, http.StatusBadRequest, "invalid design: "+err.Error())
		return d, false
	}
	return d, true
}

// handleAnalyze runs the small-signal calculator. An unknown topology is
// not a transport error: the result payload carries it.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	d, ok := decodeDesign(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, smallsignal.Analyze(d))
}

// handlePlot sweeps the design and returns the Bode magnitude chart.
func (s *Server) handlePlot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	d, ok := decodeDesign(w, r)
	if !ok {
		return
	}
	d.Topology = circuit.ParseTopology(string(d.Topology))

	points, err := nodal.Sweep(d, s.sweep)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	var svg bytes.Buffer
	if err := plot.WriteSVG(&svg, points, d.Topology.DisplayName()+" response"); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = svg.WriteTo(w)
}

type runRequest struct {
	Prompt string `json:"prompt"`
}

// handleRuns lists saved runs on GET. On POST it runs the full pipeline
// and returns the result as JSON; a run cut short by its timeout still
// returns the partial result.
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listRuns(w, r)
		return
	case http.MethodPost:
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.runner == nil {
		writeError(w, http.StatusServiceUnavailable, "design pipeline is not configured")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := s.run(r.Context(), req.Prompt)
	if err != nil {
		status := runErrorStatus(err)
		if res == nil {
			writeError(w, status, err.Error())
			return
		}
		writeJSON(w, status, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "run storage is not configured")
		return
	}
	runs, err := s.store.List(r.Context())
	if err != nil {
		s.logger.Error("Failed to list runs", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// handleRun returns one saved run.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.store == nil {
		writeError(w, http.StatusNotFound, "run storage is not configured")
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/runs/")
	res, err := s.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "run not found: "+id)
			return
		}
		s.logger.Error("Failed to load run", "run_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load run")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
