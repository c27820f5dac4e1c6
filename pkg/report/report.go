// Package report turns a finished estimate into the figures pointfit shows
// its users: error statistics and a normalized view of the coordinates.
//
// Normalization maps every axis independently onto [-1, 1]. The average
// squared distance of the normalized points from the origin is a rough
// measure of how evenly the estimate fills its bounding box.
package report

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/pointfit/pkg/checkpoint"
	"github.com/matzehuels/pointfit/pkg/points"
	"github.com/matzehuels/pointfit/pkg/relax"
)

// Summary holds the error statistics of a run.
type Summary struct {
	Cumulative  float64 `json:"cumulative_error"`
	Average     float64 `json:"average_error"`
	Max         float64 `json:"max_error"`
	Constraints int     `json:"constraints"`
	Duplicated  bool    `json:"duplicated"`
}

// Summarize computes the summary of a final error snapshot. constraints is
// the number of constraints the optimizer evaluated, which for a
// duplicated run is twice the input size.
func Summarize(final relax.ErrorSnapshot, constraints int, duplicated bool) Summary {
	return Summary{
		Cumulative:  final.Cumulative,
		Average:     final.Average(constraints),
		Max:         final.Max,
		Constraints: constraints,
		Duplicated:  duplicated,
	}
}

// Point is a normalized coordinate.
type Point struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	Z  float64 `json:"z"`
}

// Report is the complete view of a run.
type Report struct {
	RunID   string       `json:"run_id,omitempty"`
	Status  relax.Status `json:"status"`
	Rounds  int          `json:"rounds"`
	Summary Summary      `json:"summary"`
	// CenterDistance is the average squared distance of the normalized
	// points from the origin.
	CenterDistance float64 `json:"center_distance"`
	Points         []Point `json:"points"`
}

// Build assembles a report from a final store.
func Build(store *points.Store, final relax.ErrorSnapshot, constraints int, duplicated bool) Report {
	norm := Normalize(store.Coords())
	ids := store.IDs()
	pts := make([]Point, len(ids))
	for i, id := range ids {
		pts[i] = Point{ID: id, X: norm[i].X, Y: norm[i].Y, Z: norm[i].Z}
	}
	return Report{
		Summary:        Summarize(final, constraints, duplicated),
		CenterDistance: AverageCenterDistance(norm),
		Points:         pts,
	}
}

// FromCheckpoint builds a report from a saved run without recomputing
// anything.
func FromCheckpoint(st checkpoint.State) (Report, error) {
	store, err := st.Store()
	if err != nil {
		return Report{}, err
	}
	r := Build(store, st.Final(), st.Constraints, st.Duplicated)
	r.RunID = st.RunID
	r.Status = st.Status
	r.Rounds = st.Round
	return r, nil
}

// Normalize maps each axis of coords onto [-1, 1] using that axis' minimum
// and maximum. An axis with no spread maps to 0.
func Normalize(coords []r3.Vec) []r3.Vec {
	out := make([]r3.Vec, len(coords))
	if len(coords) == 0 {
		return out
	}

	lo, hi := coords[0], coords[0]
	for _, c := range coords[1:] {
		lo = r3.Vec{X: min(lo.X, c.X), Y: min(lo.Y, c.Y), Z: min(lo.Z, c.Z)}
		hi = r3.Vec{X: max(hi.X, c.X), Y: max(hi.Y, c.Y), Z: max(hi.Z, c.Z)}
	}
	for i, c := range coords {
		out[i] = r3.Vec{
			X: scale(c.X, lo.X, hi.X),
			Y: scale(c.Y, lo.Y, hi.Y),
			Z: scale(c.Z, lo.Z, hi.Z),
		}
	}
	return out
}

func scale(v, lo, hi float64) float64 {
	if hi == lo {
		return 0
	}
	return 2*(v-lo)/(hi-lo) - 1
}

// AverageCenterDistance returns the mean squared norm of coords, or 0 for
// no coordinates.
func AverageCenterDistance(coords []r3.Vec) float64 {
	if len(coords) == 0 {
		return 0
	}
	var sum float64
	for _, c := range coords {
		sum += r3.Norm2(c)
	}
	return sum / float64(len(coords))
}
