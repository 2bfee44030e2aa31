// Package pipeline runs one tap-timing analysis end to end: expand both raw
// onset encodings into long-format observations, apply the optional scripted
// filter, and prepare the plot series. Each trial row expands independently,
// so the expansion fans out over a bounded worker pool.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	onseterrors "github.com/beatlab/onsets/pkg/errors"
	"github.com/beatlab/onsets/pkg/expand"
	"github.com/beatlab/onsets/pkg/filter"
	"github.com/beatlab/onsets/pkg/summary"
	"github.com/beatlab/onsets/pkg/trial"
)

// Pipeline executes analysis runs over in-memory datasets.
type Pipeline struct {
	config     Config
	logger     *zap.Logger
	tracer     trace.Tracer
	delimited  *expand.Delimited
	payload    *expand.Payload
	filter     *filter.Filter
	summarizer *summary.Summarizer
}

// New creates a pipeline. The logger is required; all stage configurations
// are validated up front.
func New(config Config, logger *zap.Logger) (*Pipeline, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	delimited, err := expand.NewDelimited(config.Expand, logger)
	if err != nil {
		return nil, err
	}
	payload, err := expand.NewPayload(config.Expand, logger)
	if err != nil {
		return nil, err
	}
	f, err := filter.New(config.Filter, logger)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		config:     config,
		logger:     logger,
		tracer:     otel.Tracer("onsets/pipeline"),
		delimited:  delimited,
		payload:    payload,
		filter:     f,
		summarizer: summary.NewSummarizer(config.Summary),
	}, nil
}

// Run performs one analysis run. The dataset is read-only input; the report
// is derived and recomputed on every run. Per-row expansion failures are
// collected into the report rather than failing the run; Run itself errors
// only on empty input, a broken filter script, or cancellation.
func (p *Pipeline) Run(ctx context.Context, dataset *trial.Dataset) (*RunReport, error) {
	if dataset.Len() == 0 {
		return nil, onseterrors.NewError("EMPTY_DATASET", "no trial records to analyze", onseterrors.ErrEmptyDataset)
	}

	runID := uuid.NewString()
	start := time.Now()

	ctx, span := p.tracer.Start(ctx, "pipeline.Run",
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.Int("run.trials", dataset.Len()),
		))
	defer span.End()

	p.logger.Info("Starting analysis run",
		zap.String("run_id", runID),
		zap.Int("trials", dataset.Len()),
		zap.Int("workers", p.config.workers()))

	delimitedResult, payloadResult, err := p.expandAll(ctx, dataset.Records)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	report := &RunReport{
		RunID:      runID,
		StartedAt:  start,
		TrialCount: dataset.Len(),
	}

	report.Delimited, err = p.finishSource(ctx, "delimited", delimitedResult)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	report.Payload, err = p.finishSource(ctx, "payload", payloadResult)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	report.DurationMs = time.Since(start).Milliseconds()
	span.SetAttributes(
		attribute.Int("run.observations", report.ObservationCount()),
		attribute.Int("run.failed_rows", len(report.Delimited.RowErrors)+len(report.Payload.RowErrors)),
	)
	span.SetStatus(codes.Ok, "Run completed")

	p.logger.Info("Analysis run completed",
		zap.String("run_id", runID),
		zap.Int("observations", report.ObservationCount()),
		zap.Int("failed_rows", len(report.Delimited.RowErrors)+len(report.Payload.RowErrors)),
		zap.Int64("duration_ms", report.DurationMs))

	return report, nil
}

// expandAll fans record expansion out over the worker pool. Results are
// reassembled in record order so identical inputs produce identical reports.
func (p *Pipeline) expandAll(ctx context.Context, records []trial.Record) (expand.Result, expand.Result, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.expand")
	defer span.End()

	type rowResult struct {
		delimited expand.Result
		payload   expand.Result
	}

	numWorkers := p.config.workers()
	if numWorkers > len(records) {
		numWorkers = len(records)
	}

	results := make([]rowResult, len(records))
	workCh := make(chan int, len(records))

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range workCh {
				select {
				case <-ctx.Done():
					return
				default:
				}
				row := records[idx : idx+1]
				results[idx] = rowResult{
					delimited: p.delimited.Expand(row),
					payload:   p.payload.Expand(row),
				}
			}
		}()
	}

	for i := range records {
		workCh <- i
	}
	close(workCh)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return expand.Result{}, expand.Result{}, err
	}

	var delimited, payload expand.Result
	for _, rr := range results {
		delimited.Merge(rr.delimited)
		payload.Merge(rr.payload)
	}

	span.SetAttributes(
		attribute.Int("expand.delimited_rows", len(delimited.Observations)),
		attribute.Int("expand.payload_rows", len(payload.Observations)),
	)
	return delimited, payload, nil
}

// finishSource applies the filter and prepares the plot series for one
// expansion result.
func (p *Pipeline) finishSource(ctx context.Context, source string, result expand.Result) (SourceReport, error) {
	_, span := p.tracer.Start(ctx, "pipeline.finish",
		trace.WithAttributes(attribute.String("source", source)))
	defer span.End()

	observations := result.Observations
	if p.filter.Enabled() {
		filtered, err := p.filter.Apply(observations)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return SourceReport{}, err
		}
		p.logger.Info("Filtered observations",
			zap.String("source", source),
			zap.Int("before", len(observations)),
			zap.Int("after", len(filtered)))
		observations = filtered
	}

	if result.Failed() {
		p.logger.Warn("Expansion finished with row failures",
			zap.String("source", source),
			zap.Strings("trial_ids", result.FailedTrials()))
	}

	return SourceReport{
		Observations: observations,
		RowErrors:    result.RowErrors,
		FailedTrials: result.FailedTrials(),
		Summary:      p.summarizer.Summarize(observations),
	}, nil
}
