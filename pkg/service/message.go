package service

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/beatlab/onsets/pkg/pipeline"
	"github.com/beatlab/onsets/pkg/trial"
)

// RunRequest is the message the experiment platform publishes to request an
// analysis run over a batch of trial records.
type RunRequest struct {
	// RequestID correlates the result with the request
	RequestID string `json:"request_id"`

	// Records are the trial rows to analyze
	Records []trial.Record `json:"records"`
}

// Validate checks the request is processable.
func (r *RunRequest) Validate() error {
	if r.RequestID == "" {
		return fmt.Errorf("request_id is required")
	}
	if len(r.Records) == 0 {
		return fmt.Errorf("records cannot be empty")
	}
	return nil
}

// RunResult is published on the result subject after a run completes or
// fails. Row-level failures ride inside the report; Error is set only when
// the run itself could not produce a report.
type RunResult struct {
	RequestID    string    `json:"request_id"`
	RunID        string    `json:"run_id,omitempty"`
	CompletedAt  time.Time `json:"completed_at"`
	ReportURL    string    `json:"report_url,omitempty"`
	Observations int       `json:"observations"`
	FailedTrials []string  `json:"failed_trials,omitempty"`
	Error        string    `json:"error,omitempty"`
}

func successResult(requestID, reportURL string, report *pipeline.RunReport) RunResult {
	failed := append([]string{}, report.Delimited.FailedTrials...)
	failed = append(failed, report.Payload.FailedTrials...)
	return RunResult{
		RequestID:    requestID,
		RunID:        report.RunID,
		CompletedAt:  time.Now(),
		ReportURL:    reportURL,
		Observations: report.ObservationCount(),
		FailedTrials: failed,
	}
}

func errorResult(requestID string, err error) RunResult {
	return RunResult{
		RequestID:   requestID,
		CompletedAt: time.Now(),
		Error:       err.Error(),
	}
}

func decodeRequest(data []byte) (*RunRequest, error) {
	var req RunRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse run request: %w", err)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &req, nil
}
