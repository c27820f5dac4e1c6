package constraint

import (
	"math"
	"slices"
	"testing"

	"github.com/matzehuels/pointfit/pkg/errors"
)

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name    string
		entries []Constraint
		wantErr bool
	}{
		{"empty", nil, false},
		{"single", []Constraint{{"A", "B", 5}}, false},
		{"zero distance", []Constraint{{"A", "B", 0}}, false},
		{"duplicates allowed", []Constraint{{"A", "B", 5}, {"A", "B", 5}}, false},

		{"self-loop", []Constraint{{"A", "B", 5}, {"C", "C", 1}}, true},
		{"negative distance", []Constraint{{"A", "B", -1}}, true},
		{"nan distance", []Constraint{{"A", "B", math.NaN()}}, true},
		{"empty from", []Constraint{{"", "B", 1}}, true},
		{"empty to", []Constraint{{"A", "", 1}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.entries)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Errorf("New() code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidInput)
			}
		})
	}
}

func TestNewCopiesInput(t *testing.T) {
	in := []Constraint{{"A", "B", 5}}
	s := MustNew(in)
	in[0].Distance = 99

	if got := s.At(0).Distance; got != 5 {
		t.Errorf("At(0).Distance = %v after caller mutation, want 5", got)
	}

	out := s.Entries()
	out[0].Distance = 42
	if got := s.At(0).Distance; got != 5 {
		t.Errorf("At(0).Distance = %v after Entries mutation, want 5", got)
	}
}

func TestPointsFirstEncounteredOrder(t *testing.T) {
	s := MustNew([]Constraint{
		{"B", "C", 1},
		{"A", "B", 1},
		{"C", "D", 1},
		{"D", "A", 1},
	})

	want := []string{"B", "C", "A", "D"}
	if got := s.Points(); !slices.Equal(got, want) {
		t.Errorf("Points() = %v, want %v", got, want)
	}
}

func TestDuplicate(t *testing.T) {
	s := MustNew([]Constraint{{"A", "B", 1}, {"B", "C", 2}})
	d := s.Duplicate()

	if d.Len() != 4 {
		t.Fatalf("Duplicate().Len() = %d, want 4", d.Len())
	}
	for i := 0; i < s.Len(); i++ {
		if d.At(i) != s.At(i) || d.At(i+s.Len()) != s.At(i) {
			t.Errorf("Duplicate entry %d mismatch", i)
		}
	}
	if !slices.Equal(d.Points(), s.Points()) {
		t.Errorf("Duplicate().Points() = %v, want %v", d.Points(), s.Points())
	}
	if s.Len() != 2 {
		t.Errorf("original Len() = %d after Duplicate, want 2", s.Len())
	}
}

func TestHash(t *testing.T) {
	a := MustNew([]Constraint{{"A", "B", 1}, {"B", "C", 2}})
	b := MustNew([]Constraint{{"A", "B", 1}, {"B", "C", 2}})
	reordered := MustNew([]Constraint{{"B", "C", 2}, {"A", "B", 1}})
	ambiguous := MustNew([]Constraint{{"AB", "C", 1}, {"B", "C", 2}})

	if a.Hash() != b.Hash() {
		t.Error("equal sets should hash equal")
	}
	if a.Hash() == reordered.Hash() {
		t.Error("order should affect the hash")
	}
	if a.Hash() == ambiguous.Hash() {
		t.Error("id boundaries should affect the hash")
	}
	if len(a.Hash()) != 64 {
		t.Errorf("Hash length = %d, want 64", len(a.Hash()))
	}
}
