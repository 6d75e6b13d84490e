// Package storage keeps finished design runs in a NATS KV bucket.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360studio/ampdesign/pipeline"
)

// BucketRuns is the default bucket name.
const BucketRuns = "AMPDESIGN_RUNS"

// Summary is the listing form of a stored run.
type Summary struct {
	RunID               string    `json:"run_id"`
	Request             string    `json:"request"`
	StartedAt           time.Time `json:"started_at"`
	Topology            string    `json:"topology"`
	Revisions           int       `json:"revisions"`
	MatchesRequirements bool      `json:"matches_requirements"`
	FailedStages        []string  `json:"failed_stages,omitempty"`
}

func summarize(r *pipeline.Result) Summary {
	s := Summary{
		RunID:               r.RunID,
		Request:             r.Request,
		StartedAt:           r.StartedAt,
		Topology:            string(r.Design.Topology),
		Revisions:           r.Revisions,
		MatchesRequirements: r.Validation.MatchesRequirements,
	}
	for _, st := range r.Failed() {
		s.FailedStages = append(s.FailedStages, string(st))
	}
	return s
}

// RunStore saves pipeline results keyed by run ID.
type RunStore struct {
	runs jetstream.KeyValue
}

// NewRunStore opens bucket, creating it when it does not exist. Entries
// older than ttl are expired by the server; zero keeps them forever.
func NewRunStore(ctx context.Context, js jetstream.JetStream, bucket string, ttl time.Duration) (*RunStore, error) {
	if bucket == "" {
		bucket = BucketRuns
	}
	kv, err := getOrCreateBucket(ctx, js, bucket, ttl)
	if err != nil {
		return nil, fmt.Errorf("create runs bucket: %w", err)
	}
	return newRunStore(kv), nil
}

func newRunStore(kv jetstream.KeyValue) *RunStore {
	return &RunStore{runs: kv}
}

func getOrCreateBucket(ctx context.Context, js jetstream.JetStream, name string, ttl time.Duration) (jetstream.KeyValue, error) {
	kv, err := js.KeyValue(ctx, name)
	if err == nil {
		return kv, nil
	}
	if !errors.Is(err, jetstream.ErrBucketNotFound) {
		return nil, err
	}
	return js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      name,
		Description: "ampdesign run results",
		History:     1,
		TTL:         ttl,
	})
}

// Save stores r under its run ID, replacing an earlier copy.
func (s *RunStore) Save(ctx context.Context, r *pipeline.Result) error {
	if !validKey(r.RunID) {
		return fmt.Errorf("invalid run ID %q", r.RunID)
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}
	if _, err := s.runs.Put(ctx, r.RunID, data); err != nil {
		return fmt.Errorf("store run %s: %w", r.RunID, err)
	}
	return nil
}

// Get returns the run with the given ID.
func (s *RunStore) Get(ctx context.Context, runID string) (*pipeline.Result, error) {
	if !validKey(runID) {
		return nil, ErrNotFound
	}
	entry, err := s.runs.Get(ctx, runID)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}

	var r pipeline.Result
	if err := json.Unmarshal(entry.Value(), &r); err != nil {
		return nil, fmt.Errorf("unmarshal run %s: %w", runID, err)
	}
	return &r, nil
}

// List returns a summary of every stored run, newest first.
func (s *RunStore) List(ctx context.Context) ([]Summary, error) {
	keys, err := s.runs.Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return []Summary{}, nil
		}
		return nil, fmt.Errorf("list run keys: %w", err)
	}

	summaries := make([]Summary, 0, len(keys))
	for _, key := range keys {
		r, err := s.Get(ctx, key)
		if err != nil {
			continue // Skip entries that fail to load
		}
		summaries = append(summaries, summarize(r))
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].StartedAt.After(summaries[j].StartedAt)
	})
	return summaries, nil
}

// validKey reports whether id can be used as a KV key.
func validKey(id string) bool {
	if id == "" || strings.HasPrefix(id, ".") || strings.HasSuffix(id, ".") {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '=', r == '/', r == '.':
		default:
			return false
		}
	}
	return true
}
