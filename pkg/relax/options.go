package relax

import (
	"github.com/charmbracelet/log"

	"github.com/matzehuels/pointfit/pkg/errors"
	"github.com/matzehuels/pointfit/pkg/points"
)

// Defaults for [Options].
const (
	DefaultStepSize     = 0.5
	DefaultMaxRounds    = 250
	DefaultTolerance    = 0.001
	DefaultShrinkFactor = 1.05
	DefaultSeed         = uint64(42)
)

// Options configures an [Optimizer].
type Options struct {
	// StepSize is the initial movement multiplier applied to the vector
	// between two endpoints. Default: 0.5.
	StepSize float64 `json:"step_size"`

	// MaxRounds bounds the total number of rounds, accepted or not.
	// Default: 250.
	MaxRounds int `json:"max_rounds"`

	// Tolerance ends the run as converged once the step size falls below
	// it. Default: 0.001.
	Tolerance float64 `json:"tolerance"`

	// ShrinkFactor divides the step size after every rejected round. Must be
	// greater than 1. Default: 1.05.
	ShrinkFactor float64 `json:"shrink_factor"`

	// InitRange is the half-width of the box used for the random initial
	// placement. Default: 1.
	InitRange float64 `json:"init_range"`

	// Seed seeds the single random source used for placement, visiting
	// order and endpoint choice. Default: 42.
	Seed uint64 `json:"seed"`

	// Progress, if set, is called synchronously after every round.
	Progress func(RoundEvent) `json:"-"`

	// Logger receives debug output. Defaults to log.Default().
	Logger *log.Logger `json:"-"`
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		StepSize:     DefaultStepSize,
		MaxRounds:    DefaultMaxRounds,
		Tolerance:    DefaultTolerance,
		ShrinkFactor: DefaultShrinkFactor,
		InitRange:    points.DefaultRange,
		Seed:         DefaultSeed,
	}
}

// SetDefaults fills zero-valued fields with defaults. Seed 0 is a valid
// seed and is left alone.
func (o *Options) SetDefaults() {
	if o.StepSize == 0 {
		o.StepSize = DefaultStepSize
	}
	if o.MaxRounds == 0 {
		o.MaxRounds = DefaultMaxRounds
	}
	if o.Tolerance == 0 {
		o.Tolerance = DefaultTolerance
	}
	if o.ShrinkFactor == 0 {
		o.ShrinkFactor = DefaultShrinkFactor
	}
	if o.InitRange == 0 {
		o.InitRange = points.DefaultRange
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
}

// Validate checks that every numeric option is usable.
func (o Options) Validate() error {
	switch {
	case !(o.StepSize > 0):
		return errors.New(errors.ErrCodeInvalidOptions, "step size must be positive, got %v", o.StepSize)
	case o.MaxRounds <= 0:
		return errors.New(errors.ErrCodeInvalidOptions, "max rounds must be positive, got %d", o.MaxRounds)
	case !(o.Tolerance > 0):
		return errors.New(errors.ErrCodeInvalidOptions, "tolerance must be positive, got %v", o.Tolerance)
	case !(o.ShrinkFactor > 1):
		return errors.New(errors.ErrCodeInvalidOptions, "shrink factor must be greater than 1, got %v", o.ShrinkFactor)
	case !(o.InitRange > 0):
		return errors.New(errors.ErrCodeInvalidOptions, "init range must be positive, got %v", o.InitRange)
	}
	return nil
}
