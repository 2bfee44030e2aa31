// Package storage persists analysis run reports as JSON blobs so the
// surrounding experiment platform can fetch them later. Trial inputs are
// never written: only derived reports, keyed by run id.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/beatlab/onsets/pkg/pipeline"
)

// RunReportClient provides operations for storing and retrieving run reports.
type RunReportClient struct {
	blobClient BlobStorageClient
	logger     *zap.Logger
}

// NewRunReportClient creates a new run report client.
func NewRunReportClient(blobClient BlobStorageClient, logger *zap.Logger) *RunReportClient {
	if logger == nil {
		logger, _ = zap.NewProduction()
	}
	return &RunReportClient{
		blobClient: blobClient,
		logger:     logger,
	}
}

// RunReportPath returns the standard blob path for a run's report.
func RunReportPath(runID string) string {
	return fmt.Sprintf("runs/%s/report.json", runID)
}

// SaveReport serializes a run report and uploads it, returning the blob URL.
func (c *RunReportClient) SaveReport(ctx context.Context, report *pipeline.RunReport) (string, error) {
	if c.blobClient == nil {
		return "", fmt.Errorf("blob client not initialized")
	}
	if report == nil || report.RunID == "" {
		return "", fmt.Errorf("report with run id is required")
	}

	data, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("failed to marshal run report: %w", err)
	}

	blobPath := RunReportPath(report.RunID)
	blobURL, err := c.blobClient.UploadReport(ctx, blobPath, data, map[string]string{
		"run_id":       report.RunID,
		"trial_count":  fmt.Sprintf("%d", report.TrialCount),
		"observations": fmt.Sprintf("%d", report.ObservationCount()),
		"stored_at":    time.Now().Format(time.RFC3339),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload run report: %w", err)
	}

	c.logger.Info("Stored run report",
		zap.String("run_id", report.RunID),
		zap.String("blob_path", blobPath),
		zap.Int("size_bytes", len(data)))

	return blobURL, nil
}

// GetReport downloads and parses a run report by run id.
func (c *RunReportClient) GetReport(ctx context.Context, runID string) (*pipeline.RunReport, error) {
	if c.blobClient == nil {
		return nil, fmt.Errorf("blob client not initialized")
	}
	if runID == "" {
		return nil, fmt.Errorf("run id is required")
	}

	data, err := c.blobClient.DownloadReport(ctx, RunReportPath(runID))
	if err != nil {
		return nil, fmt.Errorf("failed to download run report: %w", err)
	}

	var report pipeline.RunReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to parse run report: %w", err)
	}

	return &report, nil
}
