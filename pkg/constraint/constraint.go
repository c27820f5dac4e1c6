package constraint

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"io"
	"math"

	"github.com/matzehuels/pointfit/pkg/errors"
)

// Constraint is one observed distance measurement between two points.
type Constraint struct {
	From     string  `json:"from"`
	To       string  `json:"to"`
	Distance float64 `json:"distance"`
}

// Set is an immutable, ordered collection of constraints.
type Set struct {
	entries []Constraint
	points  []string
}

// New validates entries and returns a Set holding a private copy of them.
// An empty slice yields an empty set; callers that cannot work without
// evidence (the optimizer) reject it themselves.
func New(entries []Constraint) (*Set, error) {
	s := &Set{entries: make([]Constraint, len(entries))}
	seen := make(map[string]struct{})

	for i, c := range entries {
		if err := errors.ValidatePointID(c.From); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "constraint %d: departure point", i)
		}
		if err := errors.ValidatePointID(c.To); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "constraint %d: arrival point", i)
		}
		if c.From == c.To {
			return nil, errors.New(errors.ErrCodeInvalidInput, "constraint %d: self-loop on point %q", i, c.From)
		}
		if err := errors.ValidateDistance(c.Distance); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "constraint %d: %q -> %q", i, c.From, c.To)
		}

		s.entries[i] = c
		for _, id := range [2]string{c.From, c.To} {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				s.points = append(s.points, id)
			}
		}
	}
	return s, nil
}

// MustNew is like [New] but panics on invalid input. Intended for tests and
// static fixtures.
func MustNew(entries []Constraint) *Set {
	s, err := New(entries)
	if err != nil {
		panic(err)
	}
	return s
}

// Len returns the number of entries, counting duplicates.
func (s *Set) Len() int { return len(s.entries) }

// Empty reports whether the set has no entries.
func (s *Set) Empty() bool { return len(s.entries) == 0 }

// At returns the i-th entry in input order.
func (s *Set) At(i int) Constraint { return s.entries[i] }

// Entries returns a copy of all entries in input order.
func (s *Set) Entries() []Constraint {
	out := make([]Constraint, len(s.entries))
	copy(out, s.entries)
	return out
}

// Points returns the unique point ids referenced by the set, in the order
// they first appear (departure before arrival within an entry).
func (s *Set) Points() []string {
	out := make([]string, len(s.points))
	copy(out, s.points)
	return out
}

// Duplicate returns a set whose entries are this set's entries followed by
// the same entries again. Doubling the evidence doubles every edge's weight
// in the error sum without changing the optimum.
func (s *Set) Duplicate() *Set {
	entries := make([]Constraint, 0, 2*len(s.entries))
	entries = append(entries, s.entries...)
	entries = append(entries, s.entries...)
	return &Set{entries: entries, points: s.points}
}

// Hash returns a SHA-256 content hash over the entries in order. Two sets
// hash equal iff they hold the same entries in the same order.
func (s *Set) Hash() string {
	h := sha256.New()
	var buf [8]byte
	for _, c := range s.entries {
		writeString(h, c.From)
		writeString(h, c.To)
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(c.Distance))
		h.Write(buf[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}

func writeString(h io.Writer, s string) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(len(s)))
	h.Write(buf[:])
	h.Write([]byte(s))
}
