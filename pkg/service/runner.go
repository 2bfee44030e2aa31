// Package service runs the analysis pipeline as a JetStream worker: the
// experiment platform publishes run requests onto a stream, the worker pulls
// them in batches, runs the expansion pipeline, optionally persists the run
// report, and publishes a result message per request. The core library stays
// network-free; this package is the integration surface around it.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	onseterrors "github.com/beatlab/onsets/pkg/errors"
	"github.com/beatlab/onsets/pkg/pipeline"
	"github.com/beatlab/onsets/pkg/trial"
)

// ReportStore persists run reports. storage.RunReportClient satisfies it;
// a nil store disables persistence.
type ReportStore interface {
	SaveReport(ctx context.Context, report *pipeline.RunReport) (string, error)
}

// Worker consumes run requests from a JetStream stream and publishes results.
type Worker struct {
	config   Config
	pipeline *pipeline.Pipeline
	store    ReportStore
	logger   *zap.Logger

	conn *nats.Conn
	js   nats.JetStreamContext
	sub  *nats.Subscription
}

// NewWorker creates a worker around a constructed pipeline. The store may be
// nil; the logger is required.
func NewWorker(config Config, pipe *pipeline.Pipeline, store ReportStore, logger *zap.Logger) (*Worker, error) {
	if pipe == nil {
		return nil, errors.New("pipeline cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Worker{
		config:   config,
		pipeline: pipe,
		store:    store,
		logger:   logger,
	}, nil
}

// Connect establishes the NATS connection, ensures the request stream
// exists, and creates the durable pull subscription.
func (w *Worker) Connect(ctx context.Context) error {
	if w.conn != nil && w.conn.IsConnected() {
		return nil
	}

	conn, err := nats.Connect(w.config.URL,
		nats.Name(w.config.Name),
		nats.MaxReconnects(w.config.MaxReconnects),
		nats.ReconnectWait(w.config.ReconnectWait),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	w.conn = conn

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		w.conn = nil
		return fmt.Errorf("JetStream is not enabled on the NATS server: %w", err)
	}
	w.js = js

	if err := w.ensureStream(); err != nil {
		conn.Close()
		w.conn = nil
		return fmt.Errorf("failed to ensure stream '%s' exists: %w", w.config.Stream, err)
	}

	sub, err := js.PullSubscribe("", w.config.Consumer, nats.BindStream(w.config.Stream))
	if err != nil {
		conn.Close()
		w.conn = nil
		return fmt.Errorf("failed to create pull subscription: %w", err)
	}
	w.sub = sub

	w.logger.Info("Connected to NATS",
		zap.String("url", w.config.URL),
		zap.String("stream", w.config.Stream),
		zap.String("consumer", w.config.Consumer))

	return nil
}

// ensureStream creates the request stream if it doesn't exist.
func (w *Worker) ensureStream() error {
	info, err := w.js.StreamInfo(w.config.Stream)
	if err != nil {
		if err != nats.ErrStreamNotFound {
			return fmt.Errorf("failed to get stream info for '%s': %w", w.config.Stream, err)
		}

		w.logger.Info("Creating JetStream stream", zap.String("stream", w.config.Stream))

		streamConfig := &nats.StreamConfig{
			Name:     w.config.Stream,
			Subjects: []string{fmt.Sprintf("%s.*", w.config.Stream)},
			Storage:  nats.FileStorage,
			MaxAge:   24 * time.Hour,
			Replicas: 1,
		}
		if _, err := w.js.AddStream(streamConfig); err != nil {
			return fmt.Errorf("failed to create stream '%s': %w", w.config.Stream, err)
		}

		w.logger.Info("Successfully created JetStream stream",
			zap.String("stream", w.config.Stream),
			zap.Strings("subjects", streamConfig.Subjects))
		return nil
	}

	w.logger.Info("JetStream stream already exists",
		zap.String("stream", w.config.Stream),
		zap.Uint64("messages", info.State.Msgs))
	return nil
}

// Close drains the connection.
func (w *Worker) Close() {
	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
		w.js = nil
		w.sub = nil
	}
}

// Run starts the request processing loop. It spawns worker goroutines and
// pulls request batches until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if w.conn == nil || !w.conn.IsConnected() {
		return onseterrors.ErrNotConnected
	}

	requestChan := make(chan *nats.Msg, w.config.BatchSize)

	var wg sync.WaitGroup
	for i := 0; i < w.config.NumWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for {
				select {
				case msg, ok := <-requestChan:
					if !ok {
						return
					}
					w.processRequest(ctx, workerID, msg)
				case <-ctx.Done():
					return
				}
			}
		}(i)
	}

	go func() {
		defer close(requestChan)

		backoffDelay := 100 * time.Millisecond
		maxBackoff := 5 * time.Second

		for {
			select {
			case <-ctx.Done():
				w.logger.Info("Shutting down request puller...")
				return
			default:
			}

			msgs, err := w.sub.Fetch(w.config.BatchSize, nats.Context(ctx))
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if errors.Is(err, nats.ErrTimeout) {
					continue
				}
				w.logger.Error("Error pulling run requests", zap.Error(err))
				time.Sleep(backoffDelay)
				if backoffDelay < maxBackoff {
					backoffDelay *= 2
				}
				continue
			}
			backoffDelay = 100 * time.Millisecond

			for _, msg := range msgs {
				select {
				case requestChan <- msg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		wg.Wait()
	}()

	select {
	case <-done:
		w.logger.Info("Worker completed")
		return nil
	case <-ctx.Done():
		w.logger.Info("Worker stopped due to context cancellation")
		return ctx.Err()
	}
}

// processRequest handles one run request end to end.
func (w *Worker) processRequest(ctx context.Context, workerID int, msg *nats.Msg) {
	req, err := decodeRequest(msg.Data)
	if err != nil {
		// Redelivery cannot fix a malformed request
		w.logger.Error("Discarding malformed run request",
			zap.Int("workerID", workerID),
			zap.Error(err))
		if termErr := msg.Term(); termErr != nil {
			w.logger.Error("Error terminating malformed request", zap.Error(termErr))
		}
		return
	}

	runCtx, cancel := context.WithTimeout(ctx, w.config.ProcessTimeout)
	defer cancel()

	start := time.Now()
	w.logger.Info("Processing run request",
		zap.Int("workerID", workerID),
		zap.String("request_id", req.RequestID),
		zap.Int("records", len(req.Records)))

	report, err := w.pipeline.Run(runCtx, &trial.Dataset{Records: req.Records})
	if err != nil {
		w.logger.Error("Run failed",
			zap.Int("workerID", workerID),
			zap.String("request_id", req.RequestID),
			zap.Error(err))
		w.publishResult(errorResult(req.RequestID, err))
		if ackErr := msg.Ack(); ackErr != nil {
			w.logger.Error("Error acking failed request", zap.Error(ackErr))
		}
		return
	}

	var reportURL string
	if w.store != nil {
		reportURL, err = w.store.SaveReport(runCtx, report)
		if err != nil {
			// The run succeeded; report the result without a URL
			w.logger.Error("Failed to persist run report",
				zap.String("request_id", req.RequestID),
				zap.String("run_id", report.RunID),
				zap.Error(err))
			reportURL = ""
		}
	}

	w.publishResult(successResult(req.RequestID, reportURL, report))

	w.logger.Info("Run request completed",
		zap.Int("workerID", workerID),
		zap.String("request_id", req.RequestID),
		zap.String("run_id", report.RunID),
		zap.Int("observations", report.ObservationCount()),
		zap.Duration("processingTime", time.Since(start)))

	if ackErr := msg.Ack(); ackErr != nil {
		w.logger.Error("Error acking completed request", zap.Error(ackErr))
	}
}

func (w *Worker) publishResult(result RunResult) {
	data, err := json.Marshal(result)
	if err != nil {
		w.logger.Error("Failed to marshal run result",
			zap.String("request_id", result.RequestID),
			zap.Error(err))
		return
	}

	if _, err := w.js.Publish(w.config.ResultSubject, data); err != nil {
		w.logger.Error("Failed to publish run result",
			zap.String("request_id", result.RequestID),
			zap.String("subject", w.config.ResultSubject),
			zap.Error(err))
	}
}
