package checkpoint

import (
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/pointfit/pkg/constraint"
	"github.com/matzehuels/pointfit/pkg/errors"
	"github.com/matzehuels/pointfit/pkg/points"
	"github.com/matzehuels/pointfit/pkg/relax"
)

// Point is one estimated coordinate.
type Point struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	Z  float64 `json:"z"`
}

// Vec returns the coordinate as an r3.Vec.
func (p Point) Vec() r3.Vec { return r3.Vec{X: p.X, Y: p.Y, Z: p.Z} }

// State is the decoded content of a checkpoint.
type State struct {
	RunID          string         `json:"run_id"`
	CreatedAt      time.Time      `json:"created_at"`
	ConstraintHash string         `json:"constraint_hash"`
	Constraints    int            `json:"constraints"`
	Duplicated     bool           `json:"duplicated"`
	Hub            constraint.Hub `json:"hub"`
	Options        relax.Options  `json:"options"`

	Status   relax.Status `json:"status"`
	StepSize float64      `json:"step_size"`
	Round    int          `json:"round"`
	RNG      []byte       `json:"rng,omitempty"`

	Points           []Point   `json:"points"`
	CumulativeErrors []float64 `json:"cumulative_errors"`
	MaxErrors        []float64 `json:"max_errors"`
}

// New builds a checkpoint for a run over set. The set is the one the
// optimizer actually ran on, so a duplicated run records the doubled
// constraint count. A fresh run id is assigned.
func New(set *constraint.Set, hub constraint.Hub, opts relax.Options, st relax.State, duplicated bool) State {
	ids := st.Store.IDs()
	coords := st.Store.Coords()
	pts := make([]Point, len(ids))
	for i, id := range ids {
		pts[i] = Point{ID: id, X: coords[i].X, Y: coords[i].Y, Z: coords[i].Z}
	}

	return State{
		RunID:            uuid.NewString(),
		CreatedAt:        time.Now().UTC(),
		ConstraintHash:   set.Hash(),
		Constraints:      set.Len(),
		Duplicated:       duplicated,
		Hub:              hub,
		Options:          opts,
		Status:           st.Status,
		StepSize:         st.StepSize,
		Round:            st.Round,
		RNG:              st.RNG,
		Points:           pts,
		CumulativeErrors: append([]float64(nil), st.CumulativeErrors...),
		MaxErrors:        append([]float64(nil), st.MaxErrors...),
	}
}

// Validate checks internal consistency.
func (s State) Validate() error {
	if err := errors.ValidateRunID(s.RunID); err != nil {
		return err
	}
	if len(s.CumulativeErrors) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "checkpoint has no error history")
	}
	if len(s.CumulativeErrors) != len(s.MaxErrors) {
		return errors.New(errors.ErrCodeInvalidInput, "checkpoint has %d cumulative and %d max errors",
			len(s.CumulativeErrors), len(s.MaxErrors))
	}
	if len(s.Points) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "checkpoint has no points")
	}
	seen := make(map[string]struct{}, len(s.Points))
	for _, p := range s.Points {
		if _, dup := seen[p.ID]; dup {
			return errors.New(errors.ErrCodeInvalidInput, "checkpoint lists point %q twice", p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return nil
}

// Store rebuilds the point store in checkpoint order.
func (s State) Store() (*points.Store, error) {
	ids := make([]string, len(s.Points))
	coords := make([]r3.Vec, len(s.Points))
	for i, p := range s.Points {
		ids[i] = p.ID
		coords[i] = p.Vec()
	}
	return points.FromCoords(ids, coords)
}

// Final returns the last recorded error snapshot.
func (s State) Final() relax.ErrorSnapshot {
	n := len(s.CumulativeErrors)
	if n == 0 {
		return relax.ErrorSnapshot{}
	}
	return relax.ErrorSnapshot{Cumulative: s.CumulativeErrors[n-1], Max: s.MaxErrors[n-1]}
}

// RelaxState converts the checkpoint into optimizer resume state.
func (s State) RelaxState() (relax.State, error) {
	store, err := s.Store()
	if err != nil {
		return relax.State{}, err
	}
	return relax.State{
		Store:            store,
		CumulativeErrors: append([]float64(nil), s.CumulativeErrors...),
		MaxErrors:        append([]float64(nil), s.MaxErrors...),
		StepSize:         s.StepSize,
		Round:            s.Round,
		Status:           s.Status,
		RNG:              s.RNG,
	}, nil
}

// Matches reports whether set is the constraint set this checkpoint was
// produced from.
func (s State) Matches(set *constraint.Set) bool {
	return s.ConstraintHash == set.Hash() && s.Constraints == set.Len()
}
