package run

import (
	"fmt"
	"time"

	"enforcement_watch_bot/internal/domain/record"

	"github.com/google/uuid"
)

// State names the pipeline stage a run is in. A run advances strictly
// forward through the stages; StateFailed terminates a run from any stage
// before StateDone.
type State string

const (
	StateFetching    State = "FETCHING"
	StateNormalizing State = "NORMALIZING"
	StateDiffing     State = "DIFFING"
	StatePersisting  State = "PERSISTING"
	StateNotifying   State = "NOTIFYING"
	StateDone        State = "DONE"
	StateFailed      State = "FAILED"
)

// Outcome is the per-record result of a notification attempt.
type Outcome string

const (
	OutcomeSent   Outcome = "sent"
	OutcomeFailed Outcome = "failed"
)

// Run is one pipeline invocation. It lives only for the duration of that
// invocation; its durable effects are store writes and published posts.
type Run struct {
	ID         string
	StartedAt  time.Time
	State      State
	Candidates []*record.EnforcementRecord
	NewKeys    []string
	Outcomes   map[string]Outcome // keyed by identity key, restricted to NewKeys
}

// New constructs a run entering its first stage.
func New(now time.Time) *Run {
	return &Run{
		ID:        NewID(now),
		StartedAt: now,
		State:     StateFetching,
		Outcomes:  make(map[string]Outcome),
	}
}

// NewID returns a run identifier: a UTC timestamp prefix so ids sort by
// start time, plus a short uuid suffix so manual re-runs within the same
// second stay distinct.
func NewID(now time.Time) string {
	return fmt.Sprintf("%s-%s", now.UTC().Format("20060102T150405Z"), uuid.NewString()[:8])
}

// Summary is what survives a run: the counters for the final log line and
// the operator surface. The Run itself is discarded once this is logged.
type Summary struct {
	RunID        string
	State        State
	Started      time.Time
	Finished     time.Time
	Candidates   int
	Skipped      int // candidates dropped by normalization
	New          int
	Known        int
	Sent         int
	DeliveryGaps []string // identity keys stored but never announced
	Outcomes     map[string]Outcome
}
