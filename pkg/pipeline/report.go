package pipeline

import (
	"time"

	"github.com/beatlab/onsets/pkg/expand"
	"github.com/beatlab/onsets/pkg/summary"
	"github.com/beatlab/onsets/pkg/trial"
)

// SourceReport holds everything derived from one raw onset encoding:
// the expanded (and optionally filtered) observations, the per-row
// failures, and the plot-ready series.
type SourceReport struct {
	Observations []trial.Observation `json:"observations"`
	RowErrors    []expand.RowError   `json:"row_errors,omitempty"`
	FailedTrials []string            `json:"failed_trials,omitempty"`
	Summary      summary.Summary     `json:"summary"`
}

// RunReport is the structured outcome of one analysis run. Successes and
// failures travel together: row errors never remove other trials'
// observations from the report.
type RunReport struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	DurationMs int64     `json:"duration_ms"`
	TrialCount int       `json:"trial_count"`

	// Delimited is derived from the comma-separated onset column
	Delimited SourceReport `json:"delimited"`

	// Payload is derived from the JSON payload column
	Payload SourceReport `json:"payload"`
}

// Failed reports whether any row in either source failed.
func (r *RunReport) Failed() bool {
	return len(r.Delimited.RowErrors) > 0 || len(r.Payload.RowErrors) > 0
}

// ObservationCount returns the total observations across both sources.
func (r *RunReport) ObservationCount() int {
	return len(r.Delimited.Observations) + len(r.Payload.Observations)
}
