package trial

import (
	"reflect"
	"testing"
)

func TestDataset_Participants(t *testing.T) {
	ds := &Dataset{Records: []Record{
		{ParticipantID: "P2", TrialID: "t1"},
		{ParticipantID: "P1", TrialID: "t2"},
		{ParticipantID: "P2", TrialID: "t3"},
	}}

	got := ds.Participants()
	want := []string{"P2", "P1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Participants() = %v, want %v", got, want)
	}
}

func TestDataset_NilSafe(t *testing.T) {
	var ds *Dataset
	if ds.Len() != 0 {
		t.Errorf("Len() on nil dataset = %d, want 0", ds.Len())
	}
	if ds.Participants() != nil {
		t.Errorf("Participants() on nil dataset should be nil")
	}
}
