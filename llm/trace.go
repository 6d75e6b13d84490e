package llm

import (
	"context"
	"time"
)

// Trace identifies the pipeline run and stage a call belongs to.
type Trace struct {
	RunID string `json:"run_id,omitempty"`
	Stage string `json:"stage,omitempty"`
}

type traceKey struct{}

// ContextWithTrace attaches t to ctx.
func ContextWithTrace(ctx context.Context, t Trace) context.Context {
	return context.WithValue(ctx, traceKey{}, t)
}

// TraceFromContext returns the trace attached to ctx, or the zero Trace.
func TraceFromContext(ctx context.Context) Trace {
	t, _ := ctx.Value(traceKey{}).(Trace)
	return t
}

// CallRecord describes one Complete call.
type CallRecord struct {
	RequestID     string     `json:"request_id"`
	Trace         Trace      `json:"trace"`
	Capability    string     `json:"capability"`
	Model         string     `json:"model,omitempty"`
	Provider      string     `json:"provider,omitempty"`
	Messages      []Message  `json:"messages"`
	Response      string     `json:"response,omitempty"`
	Usage         TokenUsage `json:"usage"`
	FinishReason  string     `json:"finish_reason,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   time.Time  `json:"completed_at"`
	DurationMs    int64      `json:"duration_ms"`
	Error         string     `json:"error,omitempty"`
	Retries       int        `json:"retries"`
	FallbacksUsed []string   `json:"fallbacks_used,omitempty"`
}

// CallRecorder receives a record after every call. Implementations must not
// block for long; failures are theirs to log.
type CallRecorder interface {
	RecordCall(ctx context.Context, record *CallRecord)
}
