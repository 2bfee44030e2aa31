// Package filter applies an optional user-supplied JavaScript predicate to
// expanded onset observations, for example to drop onsets recorded outside
// the tapping window of a trial. Scripts run inside a sandboxed VM with no
// host access.
package filter

import (
	"fmt"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/beatlab/onsets/pkg/trial"
)

// Filter runs a sandboxed keep(observation) predicate over observations.
type Filter struct {
	config Config
	logger *zap.Logger
}

// New creates a filter. The logger is required; configuration is validated
// up front. An empty script produces a pass-through filter.
func New(config Config, logger *zap.Logger) (*Filter, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Filter{config: config, logger: logger}, nil
}

// Enabled reports whether a script is configured.
func (f *Filter) Enabled() bool {
	return f.config.Script != ""
}

// Apply evaluates the predicate against each observation and returns the
// retained ones in input order. Script failures are returned as a single
// error: a broken script invalidates the whole filtered view, unlike the
// per-row expansion errors upstream.
func (f *Filter) Apply(observations []trial.Observation) ([]trial.Observation, error) {
	if !f.Enabled() {
		return observations, nil
	}

	vm := goja.New()
	if err := newSandbox(f.config).apply(vm); err != nil {
		return nil, NewScriptError("sandbox setup failed", err)
	}

	if _, err := vm.RunString(f.config.Script); err != nil {
		return nil, NewScriptError("script failed to compile", err)
	}

	keepFn, ok := goja.AssertFunction(vm.Get("keep"))
	if !ok {
		return nil, NewScriptError("script must define keep(observation)", nil)
	}

	kept := make([]trial.Observation, 0, len(observations))
	for _, obs := range observations {
		arg := vm.ToValue(map[string]interface{}{
			"participant_id": obs.ParticipantID,
			"trial_id":       obs.TrialID,
			"onset_ms":       obs.OnsetMs,
		})

		verdict, err := keepFn(goja.Undefined(), arg)
		if err != nil {
			return nil, NewScriptError(
				fmt.Sprintf("keep() threw for trial %s", obs.TrialID), err)
		}
		if verdict.ToBoolean() {
			kept = append(kept, obs)
		}
	}

	f.logger.Debug("Applied observation filter",
		zap.Int("input", len(observations)),
		zap.Int("kept", len(kept)))

	return kept, nil
}
