// Package trial defines the data model shared by the expansion pipeline:
// raw trial records as exported by the experiment platform, and the
// long-format onset observations derived from them.
package trial

// Record represents one experimental trial as exported by the platform.
// The onset-bearing fields keep their raw text encoding; expansion into
// observations happens downstream. Records are read-only inputs.
type Record struct {
	// ParticipantID identifies the participant (categorical, e.g. "P1")
	ParticipantID string `json:"participant_id"`

	// TrialID uniquely identifies the trial (e.g. "t1_music")
	TrialID string `json:"trial_id"`

	// StimName is the stimulus played during the trial, if any
	StimName string `json:"stim_name,omitempty"`

	// RawOnsets holds a comma-delimited list of onset times in milliseconds.
	// Nil means the column was absent or null for this trial; an empty
	// string means the trial produced no onsets.
	RawOnsets *string `json:"raw_onsets,omitempty"`

	// Output holds the serialized analysis payload (a JSON object) produced
	// upstream. The payload may contain fields unrelated to onsets.
	Output *string `json:"output,omitempty"`

	// Extra carries any additional export columns untouched
	Extra map[string]string `json:"extra,omitempty"`
}

// Observation is the atomic unit after expansion: one detected tap onset,
// joined back to its originating trial and participant.
type Observation struct {
	ParticipantID string  `json:"participant_id"`
	TrialID       string  `json:"trial_id"`
	OnsetMs       float64 `json:"onset_ms"`
}

// Dataset is an in-memory collection of trial records for one analysis run.
type Dataset struct {
	Records []Record
}

// Len returns the number of trial records in the dataset.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// Participants returns the distinct participant identifiers in record order.
func (d *Dataset) Participants() []string {
	if d == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(d.Records))
	var ids []string
	for _, r := range d.Records {
		if _, ok := seen[r.ParticipantID]; ok {
			continue
		}
		seen[r.ParticipantID] = struct{}{}
		ids = append(ids, r.ParticipantID)
	}
	return ids
}
