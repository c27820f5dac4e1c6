package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/pointfit/pkg/config"
	"github.com/matzehuels/pointfit/pkg/pipeline"
	"github.com/matzehuels/pointfit/pkg/relax"
)

// optimizerFlags holds the optimizer flags shared by estimate and sweep.
// Flags the user did not set fall back to the config file.
type optimizerFlags struct {
	stepSize     float64
	maxRounds    int
	tolerance    float64
	shrinkFactor float64
	initRange    float64
	seed         uint64
	duplicate    bool
	refresh      bool
}

func (f *optimizerFlags) register(cmd *cobra.Command) {
	d := relax.DefaultOptions()
	fs := cmd.Flags()
	fs.Float64Var(&f.stepSize, "step", d.StepSize, "initial step size")
	fs.IntVar(&f.maxRounds, "max-rounds", d.MaxRounds, "maximum number of rounds")
	fs.Float64Var(&f.tolerance, "tolerance", d.Tolerance, "stop once the step size falls below this")
	fs.Float64Var(&f.shrinkFactor, "shrink", d.ShrinkFactor, "step size divisor after a rejected round")
	fs.Float64Var(&f.initRange, "init-range", d.InitRange, "half-width of the random initial placement box")
	fs.Uint64Var(&f.seed, "seed", d.Seed, "random seed")
	fs.BoolVar(&f.duplicate, "duplicate", false, "evaluate every constraint twice (append a copy of the list)")
	fs.BoolVar(&f.refresh, "refresh", false, "ignore cached results")
}

// options merges flags over cfg. Only flags changed on the command line
// override config values.
func (f *optimizerFlags) options(cmd *cobra.Command, cfg config.Optimizer) pipeline.Options {
	opts := pipeline.Options{
		StepSize:     cfg.StepSize,
		MaxRounds:    cfg.MaxRounds,
		Tolerance:    cfg.Tolerance,
		ShrinkFactor: cfg.ShrinkFactor,
		InitRange:    cfg.InitRange,
		Seed:         cfg.Seed,
		Duplicate:    cfg.Duplicate,
		Refresh:      f.refresh,
	}
	changed := cmd.Flags().Changed
	if changed("step") {
		opts.StepSize = f.stepSize
	}
	if changed("max-rounds") {
		opts.MaxRounds = f.maxRounds
	}
	if changed("tolerance") {
		opts.Tolerance = f.tolerance
	}
	if changed("shrink") {
		opts.ShrinkFactor = f.shrinkFactor
	}
	if changed("init-range") {
		opts.InitRange = f.initRange
	}
	if changed("seed") {
		opts.Seed = f.seed
	}
	if changed("duplicate") {
		opts.Duplicate = f.duplicate
	}
	return opts
}
