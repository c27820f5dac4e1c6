package constraint

import (
	"testing"

	"github.com/matzehuels/pointfit/pkg/errors"
)

func TestDegreesInvariant(t *testing.T) {
	s := MustNew([]Constraint{
		{"A", "B", 1},
		{"B", "C", 1},
		{"A", "C", 2},
		{"C", "D", 1},
		{"C", "D", 1},
	})

	deg := Degrees(s)
	want := map[string]int{"A": 2, "B": 2, "C": 4, "D": 2}
	for id, d := range want {
		if deg[id] != d {
			t.Errorf("Degrees()[%s] = %d, want %d", id, deg[id], d)
		}
	}

	sum := 0
	for _, d := range deg {
		sum += d
	}
	if sum != 2*s.Len() {
		t.Errorf("sum of degrees = %d, want %d", sum, 2*s.Len())
	}

	for _, id := range s.Points() {
		count := 0
		for _, c := range s.Entries() {
			if c.From == id {
				count++
			}
			if c.To == id {
				count++
			}
		}
		if deg[id] != count {
			t.Errorf("Degrees()[%s] = %d, entries referencing it = %d", id, deg[id], count)
		}
	}
}

func TestSelectHub(t *testing.T) {
	tests := []struct {
		name    string
		entries []Constraint
		want    Hub
	}{
		{
			name:    "collinear triple ties resolve to first point",
			entries: []Constraint{{"A", "B", 10}, {"B", "C", 10}, {"A", "C", 20}},
			want:    Hub{ID: "A", Degree: 2},
		},
		{
			name:    "path picks B",
			entries: []Constraint{{"A", "B", 10}, {"B", "C", 10}},
			want:    Hub{ID: "B", Degree: 2},
		},
		{
			name:    "tie goes to first encountered",
			entries: []Constraint{{"X", "Y", 1}},
			want:    Hub{ID: "X", Degree: 1},
		},
		{
			name:    "duplicates add weight",
			entries: []Constraint{{"A", "B", 1}, {"C", "D", 1}, {"C", "D", 1}},
			want:    Hub{ID: "C", Degree: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SelectHub(MustNew(tt.entries))
			if err != nil {
				t.Fatalf("SelectHub() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("SelectHub() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSelectHubEmpty(t *testing.T) {
	_, err := SelectHub(MustNew(nil))
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("SelectHub(empty) error = %v, want INVALID_INPUT", err)
	}
}
