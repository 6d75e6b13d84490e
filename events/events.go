// Package events publishes pipeline progress so other processes can follow
// a design run.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/c360studio/semstreams/pkg/retry"
	"github.com/nats-io/nats.go"

	"github.com/c360studio/ampdesign/llm"
)

// Kind identifies what happened.
type Kind string

const (
	KindRunStarted     Kind = "run.started"
	KindRunCompleted   Kind = "run.completed"
	KindStageStarted   Kind = "stage.started"
	KindStageCompleted Kind = "stage.completed"
	KindStageFailed    Kind = "stage.failed"
	KindLLMCall        Kind = "llm.call"
)

// Event is one pipeline notification.
type Event struct {
	Kind       Kind            `json:"kind"`
	RunID      string          `json:"run_id"`
	Stage      string          `json:"stage,omitempty"`
	Time       time.Time       `json:"time"`
	DurationMs int64           `json:"duration_ms,omitempty"`
	Revision   int             `json:"revision,omitempty"`
	Error      string          `json:"error,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Subject returns <prefix>.run.<run_id>.<stage>. Events that do not belong
// to a stage use "run" as the last token.
func Subject(prefix string, e Event) string {
	return strings.Join([]string{prefix, "run", token(e.RunID, "unscoped"), token(e.Stage, "run")}, ".")
}

// token makes s safe as a single subject token.
func token(s, fallback string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, s)
	if s == "" {
		return fallback
	}
	return s
}

// conn is the part of *nats.Conn the publisher needs.
type conn interface {
	Publish(subj string, data []byte) error
	Drain() error
}

// NATSPublisher publishes events as JSON on core NATS.
type NATSPublisher struct {
	nc     conn
	prefix string
	logger *slog.Logger
}

// Option configures a NATSPublisher.
type Option func(*NATSPublisher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *NATSPublisher) {
		p.logger = logger
	}
}

// Dial connects to url, reconnecting forever once connected.
func Dial(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("ampdesign"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}

// NewNATSPublisher wraps an existing connection. Close drains it.
func NewNATSPublisher(nc *nats.Conn, prefix string, opts ...Option) *NATSPublisher {
	return newNATSPublisher(nc, prefix, opts...)
}

func newNATSPublisher(nc conn, prefix string, opts ...Option) *NATSPublisher {
	p := &NATSPublisher{
		nc:     nc,
		prefix: prefix,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish sends e, retrying transient connection errors.
func (p *NATSPublisher) Publish(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	subject := Subject(p.prefix, e)

	err = retry.Do(ctx, retry.DefaultConfig(), func() error {
		if err := p.nc.Publish(subject, data); err != nil {
			if permanent(err) {
				return retry.NonRetryable(err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		p.logger.Warn("Failed to publish event",
			"subject", subject,
			"kind", e.Kind,
			"error", err,
			"retryable", !retry.IsNonRetryable(err))
		return fmt.Errorf("publish %s: %w", subject, err)
	}

	p.logger.Debug("Published event", "subject", subject, "kind", e.Kind)
	return nil
}

func permanent(err error) bool {
	return errors.Is(err, nats.ErrConnectionClosed) ||
		errors.Is(err, nats.ErrBadSubject) ||
		errors.Is(err, nats.ErrMaxPayload)
}

// Close drains the connection.
func (p *NATSPublisher) Close() error {
	return p.nc.Drain()
}

// CallRecorder turns llm call records into KindLLMCall events.
type CallRecorder struct {
	pub    Publisher
	logger *slog.Logger
}

// NewCallRecorder creates a recorder publishing through pub.
func NewCallRecorder(pub Publisher, logger *slog.Logger) *CallRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &CallRecorder{pub: pub, logger: logger}
}

// RecordCall implements llm.CallRecorder. Prompt messages are left out of
// the event; the response text is kept.
func (r *CallRecorder) RecordCall(ctx context.Context, record *llm.CallRecord) {
	summary := *record
	summary.Messages = nil

	data, err := json.Marshal(summary)
	if err != nil {
		r.logger.Warn("Failed to marshal LLM call record", "request_id", record.RequestID, "error", err)
		return
	}

	e := Event{
		Kind:       KindLLMCall,
		RunID:      record.Trace.RunID,
		Stage:      record.Trace.Stage,
		Time:       record.CompletedAt,
		DurationMs: record.DurationMs,
		Error:      record.Error,
		Data:       data,
	}
	if err := r.pub.Publish(ctx, e); err != nil {
		r.logger.Debug("LLM call event dropped", "request_id", record.RequestID, "error", err)
	}
}
