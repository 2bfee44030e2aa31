package expand

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/beatlab/onsets/pkg/trial"
)

// Payload extracts a named numeric array out of a JSON payload field and
// expands it into one observation per element. Payload fields unrelated to
// the configured onset key are ignored.
type Payload struct {
	config Config
	logger *zap.Logger
}

// NewPayload creates a structured-payload extractor.
// The logger is required; configuration is validated up front.
func NewPayload(config Config, logger *zap.Logger) (*Payload, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Payload{config: config, logger: logger}, nil
}

// fieldOutput names the payload export column in error reports.
const fieldOutput = "output"

// Expand processes every record in a single pass. A malformed payload is a
// hard error for that row and is collected rather than aborting the batch;
// a well-formed payload without the onset key yields zero rows. Elements of
// the onset array may be numbers or numeric strings.
func (p *Payload) Expand(records []trial.Record) Result {
	var result Result
	result.Observations = make([]trial.Observation, 0, len(records))

	for _, rec := range records {
		if rec.Output == nil {
			if p.config.NullField == NullFieldFail {
				result.addError(rec.TrialID, NewNullFieldError(rec.TrialID, fieldOutput))
				continue
			}
			p.logger.Warn("Skipping trial with null payload field",
				zap.String("trial_id", rec.TrialID),
				zap.String("participant_id", rec.ParticipantID))
			continue
		}

		p.expandRow(rec, *rec.Output, &result)
	}

	if result.Failed() {
		p.logger.Warn("Payload expansion finished with row failures",
			zap.Int("failed_rows", len(result.RowErrors)),
			zap.Strings("trial_ids", result.FailedTrials()))
	}

	return result
}

func (p *Payload) expandRow(rec trial.Record, payload string, result *Result) {
	if !gjson.Valid(payload) {
		result.addError(rec.TrialID, NewPayloadError(rec.TrialID, "payload is not valid JSON", nil))
		return
	}

	parsed := gjson.Parse(payload)
	if !parsed.IsObject() {
		result.addError(rec.TrialID, NewPayloadError(rec.TrialID, "payload is not a JSON object", nil))
		return
	}

	field := parsed.Get(p.config.OnsetKey)
	if !field.Exists() || field.Type == gjson.Null {
		// No detected events for this trial
		return
	}
	if !field.IsArray() {
		result.addError(rec.TrialID, NewPayloadError(rec.TrialID,
			fmt.Sprintf("field %q is not an array", p.config.OnsetKey), nil))
		return
	}

	for _, el := range field.Array() {
		value, err := numericElement(el)
		if err != nil {
			result.addError(rec.TrialID, NewValueError(rec.TrialID, fieldOutput, el.Raw))
			continue
		}

		result.Observations = append(result.Observations, trial.Observation{
			ParticipantID: rec.ParticipantID,
			TrialID:       rec.TrialID,
			OnsetMs:       value,
		})
	}
}

// numericElement coerces an array element to float64. Numbers pass through;
// numeric strings are parsed explicitly. Anything else is an error.
func numericElement(el gjson.Result) (float64, error) {
	switch el.Type {
	case gjson.Number:
		return el.Num, nil
	case gjson.String:
		trimmed := strings.TrimSpace(el.Str)
		if trimmed == "" {
			return 0, fmt.Errorf("empty string element")
		}
		return strconv.ParseFloat(trimmed, 64)
	default:
		return 0, fmt.Errorf("element is %s, not numeric", el.Type)
	}
}
