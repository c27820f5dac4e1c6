package relax

import (
	"math"

	"github.com/matzehuels/pointfit/pkg/constraint"
	"github.com/matzehuels/pointfit/pkg/errors"
	"github.com/matzehuels/pointfit/pkg/points"
)

// ErrorSnapshot summarizes how well a placement matches the measurements.
type ErrorSnapshot struct {
	// Cumulative is the sum over all constraints of |estimated - measured|.
	Cumulative float64 `json:"cumulative"`
	// Max is the largest single-constraint error.
	Max float64 `json:"max"`
}

// Average returns Cumulative divided by n, or 0 when n is 0.
func (e ErrorSnapshot) Average(n int) float64 {
	if n == 0 {
		return 0
	}
	return e.Cumulative / float64(n)
}

// Evaluate computes the error of store against every constraint in set.
// It has no side effects. Every point referenced by set must be in store.
func Evaluate(store *points.Store, set *constraint.Set) (ErrorSnapshot, error) {
	var snap ErrorSnapshot
	for i := 0; i < set.Len(); i++ {
		c := set.At(i)
		a, ok := store.Get(c.From)
		if !ok {
			return ErrorSnapshot{}, errors.New(errors.ErrCodeInvalidInput, "constraint %d: point %q missing from store", i, c.From)
		}
		b, ok := store.Get(c.To)
		if !ok {
			return ErrorSnapshot{}, errors.New(errors.ErrCodeInvalidInput, "constraint %d: point %q missing from store", i, c.To)
		}
		snap.add(math.Abs(points.Distance(a, b) - c.Distance))
	}
	return snap, nil
}

// evaluateEdges is Evaluate over pre-resolved slots.
func evaluateEdges(store *points.Store, edges []edge) ErrorSnapshot {
	var snap ErrorSnapshot
	for _, e := range edges {
		snap.add(math.Abs(points.Distance(store.At(e.from), store.At(e.to)) - e.distance))
	}
	return snap
}

func (e *ErrorSnapshot) add(err float64) {
	e.Cumulative += err
	if err > e.Max {
		e.Max = err
	}
}
