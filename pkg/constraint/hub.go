package constraint

import "github.com/matzehuels/pointfit/pkg/errors"

// Hub is the anchor point chosen for an optimization run.
type Hub struct {
	ID     string `json:"id"`
	Degree int    `json:"degree"`
}

// Degrees returns, for every point in s, the number of entries that
// reference it. The sum over all points is always 2*s.Len().
func Degrees(s *Set) map[string]int {
	deg := make(map[string]int, len(s.points))
	for _, c := range s.entries {
		deg[c.From]++
		deg[c.To]++
	}
	return deg
}

// SelectHub returns the point with the highest degree. Ties go to the point
// that appears first in the constraint list.
func SelectHub(s *Set) (Hub, error) {
	if s.Empty() {
		return Hub{}, errors.New(errors.ErrCodeInvalidInput, "cannot select a hub from an empty constraint set")
	}

	deg := Degrees(s)
	var best Hub
	for _, id := range s.points {
		if d := deg[id]; d > best.Degree {
			best = Hub{ID: id, Degree: d}
		}
	}
	return best, nil
}
