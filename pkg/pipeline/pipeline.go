// Package pipeline runs position estimates end to end for the CLI and the
// HTTP API.
//
// A run takes a constraint set through the optimizer, checkpoints the
// final state, and builds a report. The [Runner] adds the parts both entry
// points share:
//
//   - Result caching keyed by the constraint hash and every option that
//     changes the outcome, so repeating an estimate is free
//   - Checkpoints saved under a run id, which [Runner.Resume] and
//     [Runner.Report] load again
//   - Observability hooks around every run
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	res, err := runner.Estimate(ctx, set, pipeline.Options{Seed: 7})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.RunID, res.Report.Summary.Average)
//
// Multiple seeds can be tried in parallel with [Runner.Sweep].
package pipeline

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pointfit/pkg/cache"
	"github.com/matzehuels/pointfit/pkg/checkpoint"
	"github.com/matzehuels/pointfit/pkg/constraint"
	"github.com/matzehuels/pointfit/pkg/relax"
	"github.com/matzehuels/pointfit/pkg/report"
)

// Options configures a run. Zero numeric fields take the optimizer
// defaults.
type Options struct {
	StepSize     float64 `json:"step_size,omitempty"`
	MaxRounds    int     `json:"max_rounds,omitempty"`
	Tolerance    float64 `json:"tolerance,omitempty"`
	ShrinkFactor float64 `json:"shrink_factor,omitempty"`
	InitRange    float64 `json:"init_range,omitempty"`
	Seed         uint64  `json:"seed,omitempty"`

	// Duplicate appends a reversed copy of every constraint before
	// optimizing.
	Duplicate bool `json:"duplicate,omitempty"`

	// Refresh skips the result cache lookup. The new result is still
	// cached.
	Refresh bool `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger   *log.Logger            `json:"-"`
	Progress func(relax.RoundEvent) `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// FromRelax copies the optimizer settings of o into pipeline options.
func FromRelax(o relax.Options) Options {
	return Options{
		StepSize:     o.StepSize,
		MaxRounds:    o.MaxRounds,
		Tolerance:    o.Tolerance,
		ShrinkFactor: o.ShrinkFactor,
		InitRange:    o.InitRange,
		Seed:         o.Seed,
		Logger:       o.Logger,
		Progress:     o.Progress,
	}
}

// ValidateAndSetDefaults fills zero fields and validates the result. It is
// idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	ro := o.RelaxOptions()
	ro.SetDefaults()
	if err := ro.Validate(); err != nil {
		return err
	}
	o.StepSize = ro.StepSize
	o.MaxRounds = ro.MaxRounds
	o.Tolerance = ro.Tolerance
	o.ShrinkFactor = ro.ShrinkFactor
	o.InitRange = ro.InitRange
	if o.Logger == nil {
		o.Logger = ro.Logger
	}
	o.validated = true
	return nil
}

// RelaxOptions returns the optimizer options for o.
func (o Options) RelaxOptions() relax.Options {
	return relax.Options{
		StepSize:     o.StepSize,
		MaxRounds:    o.MaxRounds,
		Tolerance:    o.Tolerance,
		ShrinkFactor: o.ShrinkFactor,
		InitRange:    o.InitRange,
		Seed:         o.Seed,
		Progress:     o.Progress,
		Logger:       o.Logger,
	}
}

// ResultKeyOpts returns the options that take part in the result cache key.
func (o Options) ResultKeyOpts() cache.ResultKeyOpts {
	return cache.ResultKeyOpts{
		StepSize:     o.StepSize,
		MaxRounds:    o.MaxRounds,
		Tolerance:    o.Tolerance,
		ShrinkFactor: o.ShrinkFactor,
		InitRange:    o.InitRange,
		Seed:         o.Seed,
		Duplicated:   o.Duplicate,
	}
}

// Result is the outcome of a run.
type Result struct {
	RunID   string              `json:"run_id"`
	Status  relax.Status        `json:"status"`
	Rounds  int                 `json:"rounds"`
	Hub     constraint.Hub      `json:"hub"`
	Initial relax.ErrorSnapshot `json:"initial"`
	Final   relax.ErrorSnapshot `json:"final"`
	Report  report.Report       `json:"report"`
	Stats   Stats               `json:"stats"`

	// CacheHit is true if the result came from the result cache.
	CacheHit bool `json:"cache_hit"`

	// Checkpoint is the saved state of the run.
	Checkpoint checkpoint.State `json:"-"`
}

// Stats contains run statistics. Accepted, Rejected, Skipped and Duration
// cover only the rounds executed by this call and are zero on a cache hit.
type Stats struct {
	Points      int           `json:"points"`
	Constraints int           `json:"constraints"`
	Accepted    int           `json:"accepted"`
	Rejected    int           `json:"rejected"`
	Skipped     int           `json:"skipped"`
	Duration    time.Duration `json:"duration"`
}

// fromCheckpoint builds a result that only needs the checkpoint.
func fromCheckpoint(cp checkpoint.State) (*Result, error) {
	rep, err := report.FromCheckpoint(cp)
	if err != nil {
		return nil, err
	}
	var initial relax.ErrorSnapshot
	if len(cp.CumulativeErrors) > 0 {
		initial = relax.ErrorSnapshot{Cumulative: cp.CumulativeErrors[0], Max: cp.MaxErrors[0]}
	}
	return &Result{
		RunID:      cp.RunID,
		Status:     cp.Status,
		Rounds:     cp.Round,
		Hub:        cp.Hub,
		Initial:    initial,
		Final:      cp.Final(),
		Report:     rep,
		Checkpoint: cp,
		Stats: Stats{
			Points:      len(cp.Points),
			Constraints: cp.Constraints,
		},
	}, nil
}
