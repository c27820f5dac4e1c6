// Package points holds the evolving solution of a position estimate: a
// table of 3-D coordinates keyed by point id.
//
// The table is deliberately index-based. [Store.Index] resolves an id once
// and [Store.At]/[Store.SetAt] then operate on a flat slice of [r3.Vec]
// values, which keeps the optimizer's inner loop free of map lookups and
// makes [Store.Snapshot]/[Store.Restore] a single slice copy.
//
// A Store never grows: the set of ids is fixed at construction.
package points

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/pointfit/pkg/errors"
)

// DefaultRange is the half-width of the box used for random initialization.
const DefaultRange = 1.0

// Store maps point ids to mutable coordinates.
type Store struct {
	ids    []string
	index  map[string]int
	coords []r3.Vec
}

// Snapshot is an immutable copy of a store's coordinates, used for
// rollback.
type Snapshot struct {
	coords []r3.Vec
}

// New creates a store with every id placed at the origin.
// Duplicate ids are rejected.
func New(ids []string) (*Store, error) {
	s := &Store{
		ids:    make([]string, len(ids)),
		index:  make(map[string]int, len(ids)),
		coords: make([]r3.Vec, len(ids)),
	}
	for i, id := range ids {
		if _, dup := s.index[id]; dup {
			return nil, errors.New(errors.ErrCodeInvalidInput, "duplicate point id %q", id)
		}
		s.ids[i] = id
		s.index[id] = i
	}
	return s, nil
}

// NewRandom creates a store with one coordinate per id, each axis drawn
// uniformly from [-r, r] using rng. Ids are consumed in order, so a fixed
// seed and id order give a fixed placement.
func NewRandom(ids []string, rng *rand.Rand, r float64) (*Store, error) {
	if r <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidOptions, "init range must be positive, got %v", r)
	}
	s, err := New(ids)
	if err != nil {
		return nil, err
	}
	for i := range s.coords {
		s.coords[i] = r3.Vec{
			X: (rng.Float64()*2 - 1) * r,
			Y: (rng.Float64()*2 - 1) * r,
			Z: (rng.Float64()*2 - 1) * r,
		}
	}
	return s, nil
}

// FromCoords creates a store from explicit coordinates. ids and coords must
// have the same length.
func FromCoords(ids []string, coords []r3.Vec) (*Store, error) {
	if len(ids) != len(coords) {
		return nil, errors.New(errors.ErrCodeInvalidInput, "got %d ids but %d coordinates", len(ids), len(coords))
	}
	s, err := New(ids)
	if err != nil {
		return nil, err
	}
	copy(s.coords, coords)
	return s, nil
}

// Len returns the number of points.
func (s *Store) Len() int { return len(s.ids) }

// IDs returns the point ids in store order.
func (s *Store) IDs() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// Has reports whether id is in the store.
func (s *Store) Has(id string) bool {
	_, ok := s.index[id]
	return ok
}

// Index returns the slot of id, or false if id is unknown.
func (s *Store) Index(id string) (int, bool) {
	i, ok := s.index[id]
	return i, ok
}

// Get returns the coordinate of id.
func (s *Store) Get(id string) (r3.Vec, bool) {
	i, ok := s.index[id]
	if !ok {
		return r3.Vec{}, false
	}
	return s.coords[i], true
}

// Set replaces the coordinate of id. Unknown ids are rejected; a store
// never gains points after construction.
func (s *Store) Set(id string, v r3.Vec) error {
	i, ok := s.index[id]
	if !ok {
		return errors.New(errors.ErrCodeInvalidInput, "unknown point id %q", id)
	}
	s.coords[i] = v
	return nil
}

// At returns the coordinate in slot i.
func (s *Store) At(i int) r3.Vec { return s.coords[i] }

// SetAt replaces the coordinate in slot i.
func (s *Store) SetAt(i int, v r3.Vec) { s.coords[i] = v }

// Coords returns a copy of all coordinates in store order.
func (s *Store) Coords() []r3.Vec {
	out := make([]r3.Vec, len(s.coords))
	copy(out, s.coords)
	return out
}

// Snapshot returns a deep copy of the current coordinates.
func (s *Store) Snapshot() Snapshot {
	return Snapshot{coords: s.Coords()}
}

// Restore replaces the current coordinates with snap. The snapshot must come
// from this store (or a clone of it).
func (s *Store) Restore(snap Snapshot) {
	copy(s.coords, snap.coords)
}

// Clone returns an independent copy of the store.
func (s *Store) Clone() *Store {
	c, _ := FromCoords(s.ids, s.coords)
	return c
}

// Distance returns the Euclidean distance between two coordinates.
func Distance(a, b r3.Vec) float64 {
	return r3.Norm(r3.Sub(a, b))
}

// Map returns a copy of the coordinates keyed by id.
func (s *Store) Map() map[string]r3.Vec {
	out := make(map[string]r3.Vec, len(s.ids))
	for i, id := range s.ids {
		out[id] = s.coords[i]
	}
	return out
}
