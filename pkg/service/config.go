package service

import (
	"errors"
	"time"
)

// Config holds configuration for the analysis worker's NATS connection and
// JetStream consumption.
type Config struct {
	// URL is the NATS server URL (e.g., "nats://localhost:4222")
	URL string

	// Name is the client name for identifying this connection
	Name string

	// Stream is the JetStream stream holding run requests
	Stream string

	// Consumer is the durable consumer name
	Consumer string

	// ResultSubject is the subject where run results are published
	ResultSubject string

	// BatchSize is how many requests to pull at once
	BatchSize int

	// NumWorkers is the number of concurrent run processors
	NumWorkers int

	// ProcessTimeout bounds a single analysis run
	ProcessTimeout time.Duration

	// MaxReconnects is the maximum number of reconnection attempts.
	// Use -1 for unlimited reconnects.
	MaxReconnects int

	// ReconnectWait is the time to wait between reconnection attempts
	ReconnectWait time.Duration
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig(url string) Config {
	return Config{
		URL:            url,
		Name:           "onsets-worker",
		Stream:         "TAP_RUNS",
		Consumer:       "onsets-analyzer",
		ResultSubject:  "tap.results",
		BatchSize:      16,
		NumWorkers:     4,
		ProcessTimeout: 2 * time.Minute,
		MaxReconnects:  10,
		ReconnectWait:  2 * time.Second,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.URL == "" {
		return errors.New("url cannot be empty")
	}
	if c.Stream == "" {
		return errors.New("stream name cannot be empty")
	}
	if c.Consumer == "" {
		return errors.New("consumer name cannot be empty")
	}
	if c.ResultSubject == "" {
		return errors.New("result subject cannot be empty")
	}
	if c.BatchSize <= 0 {
		return errors.New("batchSize must be greater than 0")
	}
	if c.NumWorkers <= 0 {
		return errors.New("numWorkers must be greater than 0")
	}
	if c.ProcessTimeout <= 0 {
		return errors.New("processTimeout must be greater than 0")
	}
	return nil
}
