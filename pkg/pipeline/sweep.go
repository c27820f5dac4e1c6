package pipeline

import (
	"context"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/pointfit/pkg/constraint"
	"github.com/matzehuels/pointfit/pkg/errors"
)

// DefaultSweepParallelism bounds concurrent runs in [Runner.Sweep].
const DefaultSweepParallelism = 4

// Sweep estimates set once per seed, running up to parallel optimizers at
// a time. Results are returned in seed order. The first failing run
// cancels the remaining ones.
func (r *Runner) Sweep(ctx context.Context, set *constraint.Set, opts Options, seeds []uint64, parallel int) ([]*Result, error) {
	if len(seeds) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidOptions, "sweep needs at least one seed")
	}
	if parallel <= 0 {
		parallel = DefaultSweepParallelism
	}

	results := make([]*Result, len(seeds))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, seed := range seeds {
		runOpts := opts
		runOpts.Seed = seed
		// Round callbacks are not synchronized across runs.
		runOpts.Progress = nil
		g.Go(func() error {
			res, err := r.Estimate(ctx, set, runOpts)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Best returns the result with the lowest final cumulative error. Ties go
// to the earlier result. It returns nil for an empty slice.
func Best(results []*Result) *Result {
	if len(results) == 0 {
		return nil
	}
	return slices.MinFunc(results, func(a, b *Result) int {
		switch {
		case a.Final.Cumulative < b.Final.Cumulative:
			return -1
		case a.Final.Cumulative > b.Final.Cumulative:
			return 1
		}
		return 0
	})
}

// Seeds returns n consecutive seeds starting at first.
func Seeds(first uint64, n int) []uint64 {
	seeds := make([]uint64, n)
	for i := range seeds {
		seeds[i] = first + uint64(i)
	}
	return seeds
}
