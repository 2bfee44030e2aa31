package expand

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	onseterrors "github.com/beatlab/onsets/pkg/errors"
	"github.com/beatlab/onsets/pkg/trial"
)

func strptr(s string) *string { return &s }

func newDelimited(t *testing.T) *Delimited {
	t.Helper()
	d, err := NewDelimited(DefaultConfig(), zap.NewNop())
	require.NoError(t, err)
	return d
}

func TestNewDelimited_Validation(t *testing.T) {
	if _, err := NewDelimited(DefaultConfig(), nil); err == nil {
		t.Fatal("expected error for nil logger")
	}

	cfg := DefaultConfig()
	cfg.Delimiter = ""
	if _, err := NewDelimited(cfg, zap.NewNop()); err == nil {
		t.Fatal("expected error for empty delimiter")
	}

	cfg = DefaultConfig()
	cfg.NullField = "explode"
	if _, err := NewDelimited(cfg, zap.NewNop()); err == nil {
		t.Fatal("expected error for unknown null field policy")
	}
}

func TestDelimited_Expand_MixedWhitespace(t *testing.T) {
	d := newDelimited(t)

	result := d.Expand([]trial.Record{
		{ParticipantID: "P1", TrialID: "t1_music", RawOnsets: strptr("100, 250,400")},
	})

	require.False(t, result.Failed())
	assert.Equal(t, []trial.Observation{
		{ParticipantID: "P1", TrialID: "t1_music", OnsetMs: 100},
		{ParticipantID: "P1", TrialID: "t1_music", OnsetMs: 250},
		{ParticipantID: "P1", TrialID: "t1_music", OnsetMs: 400},
	}, result.Observations)
}

func TestDelimited_Expand_RowCountConservation(t *testing.T) {
	d := newDelimited(t)

	for n := 0; n <= 50; n++ {
		values := make([]string, n)
		for i := range values {
			values[i] = strconv.FormatFloat(float64(i)*12.5, 'f', -1, 64)
		}
		raw := strings.Join(values, ",")

		result := d.Expand([]trial.Record{
			{ParticipantID: "P1", TrialID: fmt.Sprintf("t%d", n), RawOnsets: &raw},
		})

		require.False(t, result.Failed(), "n=%d", n)
		require.Len(t, result.Observations, n, "n=%d", n)
	}
}

func TestDelimited_Expand_EdgeCases(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		want     []float64
		wantErrs int
	}{
		{"empty field yields zero rows", "", nil, 0},
		{"whitespace-only field yields zero rows", "   ", nil, 0},
		{"trailing delimiter drops empty token", "100,250,", []float64{100, 250}, 0},
		{"trailing delimiter with space", "100, 250, ", []float64{100, 250}, 0},
		{"single value", "42.5", []float64{42.5}, 0},
		{"negative and scientific", "-3.5,1e3", []float64{-3.5, 1000}, 0},
		{"interior empty token fails loudly", "100,,250", []float64{100, 250}, 1},
		{"leading empty token fails loudly", ",100", []float64{100}, 1},
		{"non-numeric token fails loudly", "100,abc,250", []float64{100, 250}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDelimited(t)
			result := d.Expand([]trial.Record{
				{ParticipantID: "P1", TrialID: "t1", RawOnsets: &tt.raw},
			})

			var got []float64
			for _, obs := range result.Observations {
				got = append(got, obs.OnsetMs)
			}
			assert.Equal(t, tt.want, got)
			assert.Len(t, result.RowErrors, tt.wantErrs)
		})
	}
}

func TestDelimited_Expand_ParseErrorCarriesTrialAndFragment(t *testing.T) {
	d := newDelimited(t)

	result := d.Expand([]trial.Record{
		{ParticipantID: "P3", TrialID: "t7_music", RawOnsets: strptr("10,oops,30")},
	})

	require.Len(t, result.RowErrors, 1)
	re := result.RowErrors[0]
	assert.Equal(t, "t7_music", re.TrialID)
	assert.True(t, onseterrors.IsValueParse(re.Err))

	var verr *ValueError
	require.True(t, errors.As(re.Err, &verr))
	assert.Equal(t, "oops", verr.Fragment)
	assert.Equal(t, fieldRawOnsets, verr.Field)

	// The good values on either side of the bad token are preserved
	require.Len(t, result.Observations, 2)
}

func TestDelimited_Expand_NullFieldPolicies(t *testing.T) {
	records := []trial.Record{
		{ParticipantID: "P1", TrialID: "t_null", RawOnsets: nil},
		{ParticipantID: "P1", TrialID: "t_ok", RawOnsets: strptr("5")},
	}

	d := newDelimited(t)
	result := d.Expand(records)
	require.False(t, result.Failed(), "skip policy must not record errors")
	require.Len(t, result.Observations, 1)
	assert.Equal(t, "t_ok", result.Observations[0].TrialID)

	cfg := DefaultConfig()
	cfg.NullField = NullFieldFail
	strict, err := NewDelimited(cfg, zap.NewNop())
	require.NoError(t, err)

	result = strict.Expand(records)
	require.Len(t, result.RowErrors, 1)
	assert.Equal(t, "t_null", result.RowErrors[0].TrialID)
	assert.True(t, errors.Is(result.RowErrors[0].Err, onseterrors.ErrNullField))
	require.Len(t, result.Observations, 1)
}

func TestDelimited_Expand_IdentifierPropagation(t *testing.T) {
	d := newDelimited(t)

	records := []trial.Record{
		{ParticipantID: "P1", TrialID: "t1", RawOnsets: strptr("1,2")},
		{ParticipantID: "P2", TrialID: "t2", RawOnsets: strptr("3")},
		{ParticipantID: "P2", TrialID: "t3", RawOnsets: strptr("4,5,6")},
	}
	result := d.Expand(records)
	require.Len(t, result.Observations, 6)

	counts := make(map[string]int)
	for _, obs := range result.Observations {
		counts[obs.ParticipantID+"/"+obs.TrialID]++
	}
	assert.Equal(t, map[string]int{"P1/t1": 2, "P2/t2": 1, "P2/t3": 3}, counts)
}

// Formatting expanded values back to text and re-expanding them must yield
// the same numbers.
func TestDelimited_Expand_RoundTrip(t *testing.T) {
	d := newDelimited(t)

	raw := "100.25,33.333,0.001,9999"
	first := d.Expand([]trial.Record{{ParticipantID: "P1", TrialID: "t1", RawOnsets: &raw}})
	require.False(t, first.Failed())

	formatted := make([]string, len(first.Observations))
	for i, obs := range first.Observations {
		formatted[i] = strconv.FormatFloat(obs.OnsetMs, 'f', -1, 64)
	}
	rejoined := strings.Join(formatted, ",")

	second := d.Expand([]trial.Record{{ParticipantID: "P1", TrialID: "t1", RawOnsets: &rejoined}})
	require.False(t, second.Failed())
	assert.Equal(t, first.Observations, second.Observations)
}
