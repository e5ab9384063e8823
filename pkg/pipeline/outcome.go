package pipeline

import (
	"context"
	"sync"
	"time"
)

// Status is the result of processing one file in one ruleset.
type Status string

const (
	StatusApplied Status = "applied"
	StatusDryRun  Status = "dry-run"
	StatusNoMatch Status = "no-match"
	StatusError   Status = "error"
)

// Outcome reports what happened to one file in one ruleset.
type Outcome struct {
	Time        time.Time     `json:"time"`
	Err         error         `json:"-"`
	RunID       string        `json:"run_id"`
	Ruleset     string        `json:"ruleset"`
	Rule        string        `json:"rule,omitempty"`
	Source      string        `json:"source"`
	Destination string        `json:"destination,omitempty"`
	Action      string        `json:"action,omitempty"`
	Status      Status        `json:"status"`
	ErrorKind   string        `json:"error_kind,omitempty"`
	Error       string        `json:"error,omitempty"`
	RuleIndex   int           `json:"rule_index"`
	Duration    time.Duration `json:"duration"`
	// InPlace is set when the destination already was the source file.
	InPlace bool `json:"in_place,omitempty"`
}

// OutcomeSink receives outcomes as they complete. Implementations must be
// safe for concurrent use.
type OutcomeSink interface {
	Record(ctx context.Context, o Outcome)
}

// SinkFunc adapts a function to [OutcomeSink].
type SinkFunc func(ctx context.Context, o Outcome)

// Record calls f.
func (f SinkFunc) Record(ctx context.Context, o Outcome) { f(ctx, o) }

// MultiSink forwards outcomes to every sink in order.
type MultiSink []OutcomeSink

// Record implements [OutcomeSink].
func (m MultiSink) Record(ctx context.Context, o Outcome) {
	for _, s := range m {
		if s != nil {
			s.Record(ctx, o)
		}
	}
}

// Summary counts outcomes per status.
type Summary struct {
	Applied int `json:"applied"`
	DryRun  int `json:"dry_run"`
	NoMatch int `json:"no_match"`
	Errors  int `json:"errors"`
}

// Total returns the number of outcomes counted.
func (s Summary) Total() int {
	return s.Applied + s.DryRun + s.NoMatch + s.Errors
}

func (s *Summary) add(st Status) {
	switch st {
	case StatusApplied:
		s.Applied++
	case StatusDryRun:
		s.DryRun++
	case StatusNoMatch:
		s.NoMatch++
	case StatusError:
		s.Errors++
	}
}

type summaryCounter struct {
	summary Summary
	mu      sync.Mutex
}

func (c *summaryCounter) Record(_ context.Context, o Outcome) {
	c.mu.Lock()
	c.summary.add(o.Status)
	c.mu.Unlock()
}

func (c *summaryCounter) get() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.summary
}
