package pipeline

import (
	"errors"
	"runtime"

	"github.com/beatlab/onsets/pkg/expand"
	"github.com/beatlab/onsets/pkg/filter"
	"github.com/beatlab/onsets/pkg/summary"
)

// Config assembles the stage configurations for one analysis run.
type Config struct {
	// Expand configures both onset expanders
	Expand expand.Config `json:"expand"`

	// Filter configures the optional scripted observation filter
	Filter filter.Config `json:"filter"`

	// Summary configures the plot-preparation resolutions
	Summary summary.Config `json:"summary"`

	// NumWorkers bounds the per-trial expansion worker pool.
	// Zero means one worker per CPU.
	NumWorkers int `json:"num_workers"`
}

// DefaultConfig returns a configuration matching the experiment platform's
// exports, with a pass-through filter.
func DefaultConfig() Config {
	return Config{
		Expand:  expand.DefaultConfig(),
		Filter:  filter.DefaultConfig(),
		Summary: summary.DefaultConfig(),
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := c.Expand.Validate(); err != nil {
		return err
	}
	if err := c.Filter.Validate(); err != nil {
		return err
	}
	if c.NumWorkers < 0 {
		return errors.New("numWorkers cannot be negative")
	}
	return nil
}

func (c *Config) workers() int {
	if c.NumWorkers > 0 {
		return c.NumWorkers
	}
	return runtime.NumCPU()
}
