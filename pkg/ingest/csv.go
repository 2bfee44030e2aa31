// Package ingest reads trial exports (CSV with a header row) into the
// in-memory dataset consumed by the expansion pipeline.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	onseterrors "github.com/beatlab/onsets/pkg/errors"
	"github.com/beatlab/onsets/pkg/trial"
)

// Options maps export column names onto the trial record fields.
type Options struct {
	// ParticipantColumn names the participant id column
	ParticipantColumn string

	// TrialColumn names the trial id column
	TrialColumn string

	// RawOnsetsColumn names the delimited onset column, if present
	RawOnsetsColumn string

	// OutputColumn names the JSON payload column, if present
	OutputColumn string

	// StimColumn names the stimulus column, if present
	StimColumn string
}

// DefaultOptions returns the column names used by the experiment platform's
// trial exports.
func DefaultOptions() Options {
	return Options{
		ParticipantColumn: "participant_id",
		TrialColumn:       "trial_id",
		RawOnsetsColumn:   "raw_onsets",
		OutputColumn:      "output",
		StimColumn:        "stim_name",
	}
}

// Loader parses trial exports into datasets.
type Loader struct {
	opts   Options
	logger *zap.Logger
}

// NewLoader creates a loader. The logger is required; the two identifier
// columns must be named.
func NewLoader(opts Options, logger *zap.Logger) (*Loader, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if opts.ParticipantColumn == "" {
		return nil, fmt.Errorf("participant column name cannot be empty")
	}
	if opts.TrialColumn == "" {
		return nil, fmt.Errorf("trial column name cannot be empty")
	}
	return &Loader{opts: opts, logger: logger}, nil
}

// Load reads a CSV export. The first row is the header; the identifier
// columns are required and their absence is an error. Onset-bearing columns
// are optional: an absent column, or an empty cell in a present column,
// leaves the corresponding record field null so the expanders apply their
// null-field policy. Records are never mutated after loading.
func (l *Loader) Load(r io.Reader) (*trial.Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, onseterrors.NewError("EMPTY_EXPORT", "export has no header row", onseterrors.ErrEmptyDataset)
	}
	if err != nil {
		return nil, NewFormatError(1, "failed to read header row", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}

	required := []string{l.opts.ParticipantColumn, l.opts.TrialColumn}
	for _, col := range required {
		if _, ok := index[col]; !ok {
			return nil, onseterrors.NewError("MISSING_COLUMN",
				fmt.Sprintf("column %q not found in export header", col),
				onseterrors.ErrMissingColumn)
		}
	}

	named := map[string]struct{}{}
	for _, col := range []string{
		l.opts.ParticipantColumn, l.opts.TrialColumn,
		l.opts.RawOnsetsColumn, l.opts.OutputColumn, l.opts.StimColumn,
	} {
		if col != "" {
			named[col] = struct{}{}
		}
	}

	dataset := &trial.Dataset{}
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, NewFormatError(line, "malformed CSV row", err)
		}

		rec := trial.Record{
			ParticipantID: cell(row, index, l.opts.ParticipantColumn),
			TrialID:       cell(row, index, l.opts.TrialColumn),
			StimName:      cell(row, index, l.opts.StimColumn),
			RawOnsets:     optionalCell(row, index, l.opts.RawOnsetsColumn),
			Output:        optionalCell(row, index, l.opts.OutputColumn),
		}
		if rec.TrialID == "" {
			return nil, NewFormatError(line, "row has empty trial id", nil)
		}

		for name, i := range index {
			if _, ok := named[name]; ok {
				continue
			}
			if i >= len(row) || row[i] == "" {
				continue
			}
			if rec.Extra == nil {
				rec.Extra = make(map[string]string)
			}
			rec.Extra[name] = row[i]
		}

		dataset.Records = append(dataset.Records, rec)
	}

	if dataset.Len() == 0 {
		return nil, onseterrors.NewError("EMPTY_EXPORT", "export has no trial rows", onseterrors.ErrEmptyDataset)
	}

	l.logger.Info("Loaded trial export",
		zap.Int("records", dataset.Len()),
		zap.Int("participants", len(dataset.Participants())))

	return dataset, nil
}

func cell(row []string, index map[string]int, column string) string {
	if column == "" {
		return ""
	}
	i, ok := index[column]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

// optionalCell distinguishes "column absent or empty" (null, nil pointer)
// from a populated cell.
func optionalCell(row []string, index map[string]int, column string) *string {
	if column == "" {
		return nil
	}
	i, ok := index[column]
	if !ok || i >= len(row) {
		return nil
	}
	if row[i] == "" {
		return nil
	}
	v := row[i]
	return &v
}
