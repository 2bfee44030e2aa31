package expand

import "github.com/beatlab/onsets/pkg/trial"

// RowError pairs a failed trial with the error that caused the failure.
// Row errors never displace observations expanded from other trials.
type RowError struct {
	TrialID string `json:"trial_id"`
	Err     error  `json:"-"`

	// Message mirrors Err for serialized reports
	Message string `json:"message"`
}

// Result holds the outcome of one expansion pass: every observation that
// could be derived, plus a structured list of per-row failures.
type Result struct {
	Observations []trial.Observation `json:"observations"`
	RowErrors    []RowError          `json:"row_errors,omitempty"`
}

// Failed reports whether any row failed to expand.
func (r *Result) Failed() bool {
	return len(r.RowErrors) > 0
}

// FailedTrials returns the distinct trial ids with at least one failure,
// in first-failure order. This is the batch summary reported to callers.
func (r *Result) FailedTrials() []string {
	seen := make(map[string]struct{}, len(r.RowErrors))
	var ids []string
	for _, re := range r.RowErrors {
		if _, ok := seen[re.TrialID]; ok {
			continue
		}
		seen[re.TrialID] = struct{}{}
		ids = append(ids, re.TrialID)
	}
	return ids
}

func (r *Result) addError(trialID string, err error) {
	r.RowErrors = append(r.RowErrors, RowError{TrialID: trialID, Err: err, Message: err.Error()})
}

// Merge appends another result's observations and row errors to this one.
func (r *Result) Merge(other Result) {
	r.Observations = append(r.Observations, other.Observations...)
	r.RowErrors = append(r.RowErrors, other.RowErrors...)
}
