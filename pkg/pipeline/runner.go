package pipeline

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/pointfit/pkg/cache"
	"github.com/matzehuels/pointfit/pkg/checkpoint"
	"github.com/matzehuels/pointfit/pkg/constraint"
	"github.com/matzehuels/pointfit/pkg/errors"
	"github.com/matzehuels/pointfit/pkg/observability"
	"github.com/matzehuels/pointfit/pkg/relax"
	"github.com/matzehuels/pointfit/pkg/report"
)

// Runner encapsulates run execution with caching and checkpointing.
// Both CLI and API use it so they behave the same.
//
// The Runner is stateless except for the cache and logger. Multiple
// goroutines can safely use the same Runner for independent runs.
type Runner struct {
	Cache       cache.Cache
	Keyer       cache.Keyer
	Logger      *log.Logger
	Checkpoints *checkpoint.Store
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching and checkpoints disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:       c,
		Keyer:       keyer,
		Logger:      logger,
		Checkpoints: checkpoint.NewStore(c, keyer),
	}
}

// Estimate optimizes a fresh random placement of set.
//
// Unless opts.Refresh is set, a previous result for the same constraints
// and options is returned from the cache. A canceled run is checkpointed
// and returned together with the context error so it can be resumed.
func (r *Runner) Estimate(ctx context.Context, set *constraint.Set, opts Options) (*Result, error) {
	if set == nil || set.Empty() {
		return nil, errors.New(errors.ErrCodeInvalidInput, "constraint set is empty")
	}
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	work := set
	if opts.Duplicate {
		work = set.Duplicate()
	}
	key := r.Keyer.ResultKey(set.Hash(), opts.ResultKeyOpts())

	if !opts.Refresh {
		if res, ok := r.cachedResult(ctx, key, work); ok {
			r.Logger.Info("using cached estimate", "run", res.RunID, "status", res.Status)
			return res, nil
		}
	}

	runID := uuid.NewString()
	opt, err := relax.New(work, r.relaxOptions(ctx, runID, opts))
	if err != nil {
		return nil, err
	}

	res, runErr := r.run(ctx, runID, work, opt, opts, opts.Duplicate)
	if res == nil {
		return nil, runErr
	}
	if runErr == nil && res.Status.Terminated() {
		r.storeResult(ctx, key, res.Checkpoint)
	}
	return res, runErr
}

// Resume continues the checkpointed run id. set must be the constraint set
// the run was started with, before duplication. If opts.MaxRounds is
// non-zero it replaces the saved round limit, which allows extending an
// exhausted run. Other numeric options come from the checkpoint.
func (r *Runner) Resume(ctx context.Context, id string, set *constraint.Set, opts Options) (*Result, error) {
	cp, err := r.Checkpoints.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.ResumeFrom(ctx, cp, set, opts)
}

// ResumeFrom continues the run saved in cp. See [Runner.Resume].
func (r *Runner) ResumeFrom(ctx context.Context, cp checkpoint.State, set *constraint.Set, opts Options) (*Result, error) {
	if set == nil || set.Empty() {
		return nil, errors.New(errors.ErrCodeInvalidInput, "constraint set is empty")
	}
	work := set
	if cp.Duplicated {
		work = set.Duplicate()
	}
	if !cp.Matches(work) {
		return nil, errors.New(errors.ErrCodeInvalidInput,
			"constraints do not match checkpoint %s (%d constraints, hash %.12s)", cp.RunID, cp.Constraints, cp.ConstraintHash)
	}

	resumed := FromRelax(cp.Options)
	resumed.Duplicate = cp.Duplicated
	resumed.Logger = opts.Logger
	resumed.Progress = opts.Progress
	if opts.MaxRounds != 0 {
		resumed.MaxRounds = opts.MaxRounds
	}
	r.applyLogger(&resumed)
	if err := resumed.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	st, err := cp.RelaxState()
	if err != nil {
		return nil, err
	}
	opt, err := relax.New(work, r.relaxOptions(ctx, cp.RunID, resumed))
	if err != nil {
		return nil, err
	}
	if err := opt.Resume(st); err != nil {
		return nil, err
	}
	r.Logger.Info("resuming run", "run", cp.RunID, "round", cp.Round, "step", cp.StepSize)
	return r.run(ctx, cp.RunID, work, opt, resumed, cp.Duplicated)
}

// run executes opt and checkpoints the outcome under runID.
func (r *Runner) run(ctx context.Context, runID string, work *constraint.Set, opt *relax.Optimizer, opts Options, duplicated bool) (*Result, error) {
	hooks := observability.Pipeline()
	hooks.OnEstimateStart(ctx, runID, len(work.Points()), work.Len())

	res, runErr := opt.Run(ctx)
	if res == nil {
		hooks.OnEstimateComplete(ctx, runID, "", 0, 0, runErr)
		return nil, runErr
	}

	st, err := opt.State()
	if err != nil {
		hooks.OnEstimateComplete(ctx, runID, res.Status.String(), res.Rounds, res.Duration, err)
		return nil, err
	}
	cp := checkpoint.New(work, opt.Hub(), opts.RelaxOptions(), st, duplicated)
	cp.RunID = runID

	// A canceled context must not prevent the checkpoint from being saved.
	saveCtx := context.WithoutCancel(ctx)
	if _, err := r.Checkpoints.Save(saveCtx, cp); err != nil {
		r.Logger.Warn("could not save checkpoint", "run", runID, "err", err)
	}

	rep := report.Build(res.Store, res.Final, work.Len(), duplicated)
	rep.RunID = runID
	rep.Status = res.Status
	rep.Rounds = res.Rounds

	out := &Result{
		RunID:      runID,
		Status:     res.Status,
		Rounds:     res.Rounds,
		Hub:        res.Hub,
		Initial:    res.Initial,
		Final:      res.Final,
		Report:     rep,
		Checkpoint: cp,
		Stats: Stats{
			Points:      res.Store.Len(),
			Constraints: work.Len(),
			Accepted:    res.Accepted,
			Rejected:    res.Rejected,
			Skipped:     res.Skipped,
			Duration:    res.Duration,
		},
	}
	hooks.OnEstimateComplete(ctx, runID, res.Status.String(), res.Rounds, res.Duration, runErr)

	r.Logger.Info("estimate finished",
		"run", runID,
		"status", res.Status,
		"rounds", res.Rounds,
		"average_error", rep.Summary.Average,
		"max_error", rep.Summary.Max,
		"duration", res.Duration)
	return out, runErr
}

// Load returns the checkpoint of run id.
func (r *Runner) Load(ctx context.Context, id string) (checkpoint.State, error) {
	return r.Checkpoints.Load(ctx, id)
}

// Report builds the report of run id from its checkpoint.
func (r *Runner) Report(ctx context.Context, id string) (report.Report, error) {
	cp, err := r.Checkpoints.Load(ctx, id)
	if err != nil {
		return report.Report{}, err
	}
	return report.FromCheckpoint(cp)
}

// Delete removes the checkpoint of run id.
func (r *Runner) Delete(ctx context.Context, id string) error {
	return r.Checkpoints.Delete(ctx, id)
}

func (r *Runner) cachedResult(ctx context.Context, key string, work *constraint.Set) (*Result, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil || !hit {
		observability.Cache().OnCacheMiss(ctx, key)
		return nil, false
	}
	cp, err := checkpoint.Decode(data)
	if err != nil || !cp.Matches(work) {
		// Unreadable or colliding entries are recomputed and overwritten.
		observability.Cache().OnCacheMiss(ctx, key)
		return nil, false
	}
	res, err := fromCheckpoint(cp)
	if err != nil {
		observability.Cache().OnCacheMiss(ctx, key)
		return nil, false
	}
	observability.Cache().OnCacheHit(ctx, key)
	res.CacheHit = true
	return res, true
}

func (r *Runner) storeResult(ctx context.Context, key string, cp checkpoint.State) {
	data, err := checkpoint.Encode(cp)
	if err != nil {
		return
	}
	if err := r.Cache.Set(ctx, key, data, cache.TTLResult); err != nil {
		r.Logger.Debug("could not cache result", "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, key, len(data))
}

// relaxOptions wires the round hook into the optimizer options.
func (r *Runner) relaxOptions(ctx context.Context, runID string, opts Options) relax.Options {
	ro := opts.RelaxOptions()
	progress := opts.Progress
	ro.Progress = func(ev relax.RoundEvent) {
		observability.Pipeline().OnRound(ctx, runID, ev.Round, ev.Accepted, ev.Error.Cumulative)
		if progress != nil {
			progress(ev)
		}
	}
	return ro
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
