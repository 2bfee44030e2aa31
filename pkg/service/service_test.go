package service

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/beatlab/onsets/pkg/pipeline"
	"github.com/beatlab/onsets/pkg/trial"
)

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig("nats://localhost:4222")
	require.NoError(t, cfg.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty url", func(c *Config) { c.URL = "" }},
		{"empty stream", func(c *Config) { c.Stream = "" }},
		{"empty consumer", func(c *Config) { c.Consumer = "" }},
		{"empty result subject", func(c *Config) { c.ResultSubject = "" }},
		{"zero batch size", func(c *Config) { c.BatchSize = 0 }},
		{"zero workers", func(c *Config) { c.NumWorkers = 0 }},
		{"zero timeout", func(c *Config) { c.ProcessTimeout = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig("nats://localhost:4222")
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestNewWorkerValidation(t *testing.T) {
	pipe, err := pipeline.New(pipeline.DefaultConfig(), zap.NewNop())
	require.NoError(t, err)

	if _, err := NewWorker(DefaultConfig("nats://localhost:4222"), nil, nil, zap.NewNop()); err == nil {
		t.Fatal("expected error for nil pipeline")
	}
	if _, err := NewWorker(DefaultConfig("nats://localhost:4222"), pipe, nil, nil); err == nil {
		t.Fatal("expected error for nil logger")
	}
	if _, err := NewWorker(DefaultConfig(""), pipe, nil, zap.NewNop()); err == nil {
		t.Fatal("expected error for invalid config")
	}

	w, err := NewWorker(DefaultConfig("nats://localhost:4222"), pipe, nil, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, w)
}

func TestDecodeRequest(t *testing.T) {
	raw := `{"request_id":"req-1","records":[{"participant_id":"P1","trial_id":"t1","raw_onsets":"1,2"}]}`
	req, err := decodeRequest([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "req-1", req.RequestID)
	require.Len(t, req.Records, 1)
	require.NotNil(t, req.Records[0].RawOnsets)
	assert.Equal(t, "1,2", *req.Records[0].RawOnsets)

	_, err = decodeRequest([]byte(`{not json`))
	assert.Error(t, err)

	_, err = decodeRequest([]byte(`{"request_id":"","records":[{}]}`))
	assert.Error(t, err, "request id is required")

	_, err = decodeRequest([]byte(`{"request_id":"req-2","records":[]}`))
	assert.Error(t, err, "records are required")
}

func TestRunResultConstruction(t *testing.T) {
	report := &pipeline.RunReport{
		RunID: "run-9",
		Delimited: pipeline.SourceReport{
			Observations: []trial.Observation{{ParticipantID: "P1", TrialID: "t1", OnsetMs: 1}},
			FailedTrials: []string{"t_bad"},
		},
		Payload: pipeline.SourceReport{
			FailedTrials: []string{"t_worse"},
		},
	}

	res := successResult("req-9", "https://example.invalid/report", report)
	assert.Equal(t, "req-9", res.RequestID)
	assert.Equal(t, "run-9", res.RunID)
	assert.Equal(t, 1, res.Observations)
	assert.Equal(t, []string{"t_bad", "t_worse"}, res.FailedTrials)
	assert.Empty(t, res.Error)

	errRes := errorResult("req-10", assert.AnError)
	assert.Equal(t, "req-10", errRes.RequestID)
	assert.NotEmpty(t, errRes.Error)
	assert.Empty(t, errRes.RunID)

	// Results serialize cleanly for the wire
	data, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"run_id":"run-9"`)
}
