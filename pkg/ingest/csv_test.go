package ingest

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	onseterrors "github.com/beatlab/onsets/pkg/errors"
)

func newLoader(t *testing.T) *Loader {
	t.Helper()
	l, err := NewLoader(DefaultOptions(), zap.NewNop())
	require.NoError(t, err)
	return l
}

func TestLoader_Load(t *testing.T) {
	export := strings.Join([]string{
		`participant_id,trial_id,stim_name,raw_onsets,output,age`,
		`P1,t1_music,music_1,"100, 250,400","{""tapping_detected_onsets"":[50,75]}",31`,
		`P2,t2_music,music_2,,,`,
	}, "\n")

	ds, err := newLoader(t).Load(strings.NewReader(export))
	require.NoError(t, err)
	require.Equal(t, 2, ds.Len())

	first := ds.Records[0]
	assert.Equal(t, "P1", first.ParticipantID)
	assert.Equal(t, "t1_music", first.TrialID)
	assert.Equal(t, "music_1", first.StimName)
	require.NotNil(t, first.RawOnsets)
	assert.Equal(t, "100, 250,400", *first.RawOnsets)
	require.NotNil(t, first.Output)
	assert.Equal(t, `{"tapping_detected_onsets":[50,75]}`, *first.Output)
	assert.Equal(t, map[string]string{"age": "31"}, first.Extra)

	second := ds.Records[1]
	assert.Nil(t, second.RawOnsets, "empty cell loads as null")
	assert.Nil(t, second.Output)
	assert.Nil(t, second.Extra)

	assert.Equal(t, []string{"P1", "P2"}, ds.Participants())
}

func TestLoader_Load_MissingRequiredColumn(t *testing.T) {
	export := "participant_id,stim_name\nP1,music_1\n"

	_, err := newLoader(t).Load(strings.NewReader(export))
	require.Error(t, err)
	assert.True(t, errors.Is(err, onseterrors.ErrMissingColumn))
	assert.Contains(t, err.Error(), "trial_id")
}

func TestLoader_Load_OnsetColumnsOptional(t *testing.T) {
	export := "participant_id,trial_id\nP1,t1\n"

	ds, err := newLoader(t).Load(strings.NewReader(export))
	require.NoError(t, err)
	require.Equal(t, 1, ds.Len())
	assert.Nil(t, ds.Records[0].RawOnsets)
	assert.Nil(t, ds.Records[0].Output)
}

func TestLoader_Load_EmptyExport(t *testing.T) {
	_, err := newLoader(t).Load(strings.NewReader(""))
	require.Error(t, err)
	assert.True(t, errors.Is(err, onseterrors.ErrEmptyDataset))

	_, err = newLoader(t).Load(strings.NewReader("participant_id,trial_id\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, onseterrors.ErrEmptyDataset))
}

func TestLoader_Load_EmptyTrialID(t *testing.T) {
	export := "participant_id,trial_id\nP1,\n"

	_, err := newLoader(t).Load(strings.NewReader(export))
	require.Error(t, err)
	var ferr *FormatError
	require.True(t, errors.As(err, &ferr))
	assert.Equal(t, 2, ferr.Line)
}

func TestNewLoader_Validation(t *testing.T) {
	if _, err := NewLoader(DefaultOptions(), nil); err == nil {
		t.Fatal("expected error for nil logger")
	}

	opts := DefaultOptions()
	opts.TrialColumn = ""
	if _, err := NewLoader(opts, zap.NewNop()); err == nil {
		t.Fatal("expected error for empty trial column")
	}
}
