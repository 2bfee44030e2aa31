// Package expand converts the raw per-trial onset encodings found in
// experiment exports into long-format onset observations, one row per
// detected tap. Both expanders are pure single-pass transforms: they
// collect per-row failures alongside successes instead of aborting the
// batch, so a corrupt trial never costs the rest of the run.
package expand

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/beatlab/onsets/pkg/trial"
)

// Delimited expands a comma-delimited onset text field into one observation
// per value.
type Delimited struct {
	config Config
	logger *zap.Logger
}

// NewDelimited creates a delimited-string expander.
// The logger is required; configuration is validated up front.
func NewDelimited(config Config, logger *zap.Logger) (*Delimited, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Delimited{config: config, logger: logger}, nil
}

// Expand processes every record in a single pass. For a field holding N
// delimited numeric values it emits exactly N observations carrying the
// record's participant and trial ids. An empty field yields zero rows and
// is not an error; a null field follows the configured NullFieldPolicy.
func (d *Delimited) Expand(records []trial.Record) Result {
	var result Result
	result.Observations = make([]trial.Observation, 0, len(records))

	for _, rec := range records {
		if rec.RawOnsets == nil {
			if d.config.NullField == NullFieldFail {
				result.addError(rec.TrialID, NewNullFieldError(rec.TrialID, fieldRawOnsets))
				continue
			}
			d.logger.Warn("Skipping trial with null onset field",
				zap.String("trial_id", rec.TrialID),
				zap.String("participant_id", rec.ParticipantID))
			continue
		}

		d.expandRow(rec, *rec.RawOnsets, &result)
	}

	return result
}

// fieldRawOnsets names the delimited export column in error reports.
const fieldRawOnsets = "raw_onsets"

func (d *Delimited) expandRow(rec trial.Record, raw string, result *Result) {
	if strings.TrimSpace(raw) == "" {
		// Zero detected onsets is a legitimate trial outcome
		return
	}

	tokens := strings.Split(raw, d.config.Delimiter)

	// A trailing delimiter leaves one empty token at the end; dropping it
	// must not hide empty tokens elsewhere in the list.
	if last := len(tokens) - 1; last >= 0 && strings.TrimSpace(tokens[last]) == "" {
		tokens = tokens[:last]
	}

	for _, tok := range tokens {
		trimmed := strings.TrimSpace(tok)
		if trimmed == "" {
			result.addError(rec.TrialID, NewValueError(rec.TrialID, fieldRawOnsets, tok))
			continue
		}

		value, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			result.addError(rec.TrialID, NewValueError(rec.TrialID, fieldRawOnsets, tok))
			continue
		}

		result.Observations = append(result.Observations, trial.Observation{
			ParticipantID: rec.ParticipantID,
			TrialID:       rec.TrialID,
			OnsetMs:       value,
		})
	}
}
