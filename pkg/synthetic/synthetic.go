// Package synthetic generates test datasets: points sampled from a known
// shape and a sparse set of noisy distance measurements between them.
//
// Datasets are deterministic for a given seed. Estimating a generated
// dataset and comparing the normalized result against the true shape is
// the quickest way to judge a parameter change.
package synthetic

import (
	"math"
	"math/rand/v2"
	"strconv"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/pointfit/pkg/constraint"
	"github.com/matzehuels/pointfit/pkg/errors"
	"github.com/matzehuels/pointfit/pkg/points"
)

// Shape names a point distribution.
type Shape string

// Supported shapes.
const (
	Cube     Shape = "cube"
	Sphere   Shape = "sphere"
	Disc     Shape = "disc"
	Cylinder Shape = "cylinder"
	Line     Shape = "line"
)

// Shapes lists every supported shape.
var Shapes = []Shape{Cube, Sphere, Disc, Cylinder, Line}

// Defaults for [Options].
const (
	DefaultPoints   = 500
	DefaultFraction = 0.05
)

// Options configures [Generate].
type Options struct {
	Shape Shape
	// Points is the number of points, named P1..Pn.
	Points int
	// Fraction is the share of all n(n-1)/2 pairs that get a measurement.
	// Every point gets at least one measurement regardless.
	Fraction float64
	// Noise scales each measurement by 1-U(-Noise, Noise).
	Noise float64
	Seed  uint64
}

// Validate checks the options.
func (o Options) Validate() error {
	valid := false
	for _, s := range Shapes {
		if o.Shape == s {
			valid = true
		}
	}
	switch {
	case !valid:
		return errors.New(errors.ErrCodeInvalidOptions, "unknown shape %q", o.Shape)
	case o.Points < 2:
		return errors.New(errors.ErrCodeInvalidOptions, "need at least 2 points, got %d", o.Points)
	case !(o.Fraction >= 0 && o.Fraction <= 1):
		return errors.New(errors.ErrCodeInvalidOptions, "fraction must be in [0, 1], got %v", o.Fraction)
	case !(o.Noise >= 0 && o.Noise < 1):
		return errors.New(errors.ErrCodeInvalidOptions, "noise must be in [0, 1), got %v", o.Noise)
	}
	return nil
}

// Dataset is a generated problem with its ground truth.
type Dataset struct {
	Truth       *points.Store
	Constraints []constraint.Constraint
}

// Generate samples a dataset.
func Generate(opts Options) (*Dataset, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0xdeadbeef))

	ids := make([]string, opts.Points)
	for i := range ids {
		ids[i] = "P" + strconv.Itoa(i+1)
	}
	truth, err := points.FromCoords(ids, sample(rng, opts.Shape, opts.Points))
	if err != nil {
		return nil, err
	}

	pairs := connect(rng, opts.Points, int(opts.Fraction*float64(opts.Points*(opts.Points-1)/2)))
	entries := make([]constraint.Constraint, len(pairs))
	for k, p := range pairs {
		d := points.Distance(truth.At(p[0]), truth.At(p[1]))
		noise := 1 - uniform(rng, -opts.Noise, opts.Noise)
		entries[k] = constraint.Constraint{From: ids[p[0]], To: ids[p[1]], Distance: noise * d}
	}
	return &Dataset{Truth: truth, Constraints: entries}, nil
}

func uniform(rng *rand.Rand, a, b float64) float64 {
	return rng.Float64()*(b-a) + a
}

func sample(rng *rand.Rand, shape Shape, n int) []r3.Vec {
	a := uniform(rng, 1, 10)
	out := make([]r3.Vec, n)

	switch shape {
	case Cube:
		mid := r3.Vec{X: uniform(rng, -10, 10), Y: uniform(rng, -10, 10), Z: uniform(rng, -10, 10)}
		h := a / 2
		for i := range out {
			p := r3.Vec{
				X: uniform(rng, mid.X-h, mid.X+h),
				Y: uniform(rng, mid.Y-h, mid.Y+h),
				Z: uniform(rng, mid.Z-h, mid.Z+h),
			}
			// Pin one axis to a face.
			switch rng.IntN(6) {
			case 0:
				p.X = mid.X - h
			case 1:
				p.X = mid.X + h
			case 2:
				p.Y = mid.Y - h
			case 3:
				p.Y = mid.Y + h
			case 4:
				p.Z = mid.Z - h
			case 5:
				p.Z = mid.Z + h
			}
			out[i] = p
		}

	case Sphere:
		for i := range out {
			x := uniform(rng, -a, a)
			ry := math.Sqrt(max(a*a-x*x, 0))
			y := uniform(rng, -ry, ry)
			z := math.Sqrt(max(a*a-x*x-y*y, 0))
			if rng.IntN(2) == 0 {
				z = -z
			}
			out[i] = r3.Vec{X: x, Y: y, Z: z}
		}

	case Disc:
		z := uniform(rng, -10, 10)
		for i := range out {
			x := uniform(rng, -a, a)
			ry := math.Sqrt(max(a*a-x*x, 0))
			out[i] = r3.Vec{X: x, Y: uniform(rng, -ry, ry), Z: z}
		}

	case Cylinder:
		height := uniform(rng, 1, 10)
		for i := range out {
			x := uniform(rng, -a, a)
			y := math.Sqrt(max(a*a-x*x, 0))
			if rng.IntN(2) == 0 {
				y = -y
			}
			out[i] = r3.Vec{X: x, Y: y, Z: uniform(rng, -height/2, height/2)}
		}

	case Line:
		b := uniform(rng, 1, 10)
		z := uniform(rng, -10, 10)
		for i := range out {
			x := uniform(rng, -a, a)
			out[i] = r3.Vec{X: x, Y: a*x + b, Z: z}
		}
	}
	return out
}

// connect picks distinct unordered pairs over n points. Every point is
// first given one partner, then random pairs are added until target pairs
// exist or no free pair is left.
func connect(rng *rand.Rand, n, target int) [][2]int {
	used := make([]bool, n*n)
	free := make([]int, n)
	for i := range free {
		free[i] = n - 1
	}
	var pairs [][2]int

	link := func(i int) {
		var candidates []int
		for j := 0; j < n; j++ {
			if j != i && !used[i*n+j] {
				candidates = append(candidates, j)
			}
		}
		j := candidates[rng.IntN(len(candidates))]
		used[i*n+j], used[j*n+i] = true, true
		free[i]--
		free[j]--
		pairs = append(pairs, [2]int{i, j})
	}

	for i := 0; i < n; i++ {
		if free[i] > 0 {
			link(i)
		}
	}
	for len(pairs) < target {
		var open []int
		for i, f := range free {
			if f > 0 {
				open = append(open, i)
			}
		}
		if len(open) == 0 {
			break
		}
		link(open[rng.IntN(len(open))])
	}
	return pairs
}
