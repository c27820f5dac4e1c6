package relax

import (
	"context"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/pointfit/pkg/constraint"
	"github.com/matzehuels/pointfit/pkg/errors"
	"github.com/matzehuels/pointfit/pkg/points"
)

// RoundEvent describes one finished round. It is passed to
// [Options.Progress].
type RoundEvent struct {
	Round        int           // 1-based round number
	MaxRounds    int           // configured round limit
	Accepted     bool          // whether the round was kept
	StepSize     float64       // step size used during the round
	NextStepSize float64       // step size for the next round
	Error        ErrorSnapshot // error measured after the round's moves
	Best         ErrorSnapshot // error of the last accepted state
	Skipped      int           // edges skipped because their endpoints coincided
	Status       Status        // status after the round
}

// Result is the outcome of [Optimizer.Run].
type Result struct {
	Status   Status          `json:"status"`
	Rounds   int             `json:"rounds"`
	Accepted int             `json:"accepted"`
	Rejected int             `json:"rejected"`
	Skipped  int             `json:"skipped"`
	StepSize float64         `json:"step_size"`
	Hub      constraint.Hub  `json:"hub"`
	Initial  ErrorSnapshot   `json:"initial"`
	Final    ErrorSnapshot   `json:"final"`
	Duration time.Duration   `json:"duration"`
	Store    *points.Store   `json:"-"`
	History  []ErrorSnapshot `json:"-"`
}

// State is everything needed to continue or report a run: the placement,
// the error history of accepted rounds, the step size, the round counter
// and the random generator state.
type State struct {
	Store            *points.Store
	CumulativeErrors []float64
	MaxErrors        []float64
	StepSize         float64
	Round            int
	Status           Status
	RNG              []byte
}

// edge is a constraint with both endpoints resolved to store slots.
type edge struct {
	from, to int
	distance float64
}

// Optimizer runs the relaxation. It is not safe for concurrent use; run
// independent optimizers for independent runs.
type Optimizer struct {
	set    *constraint.Set
	opts   Options
	logger *log.Logger
	hub    constraint.Hub

	src *rand.PCG
	rng *rand.Rand

	store   *points.Store
	edges   []edge
	hubSlot int

	history []ErrorSnapshot
	step    float64
	round   int
	status  Status

	accepted, rejected, skipped int
}

// New validates set and opts and prepares an optimizer. The hub is selected
// here, once. An empty set fails with INVALID_INPUT before any optimization
// state exists.
func New(set *constraint.Set, opts Options) (*Optimizer, error) {
	if set == nil || set.Empty() {
		return nil, errors.New(errors.ErrCodeInvalidInput, "constraint set is empty")
	}
	opts.SetDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	hub, err := constraint.SelectHub(set)
	if err != nil {
		return nil, err
	}

	src := rand.NewPCG(opts.Seed, opts.Seed^0xdeadbeef)
	return &Optimizer{
		set:    set,
		opts:   opts,
		logger: opts.Logger,
		hub:    hub,
		src:    src,
		rng:    rand.New(src),
		step:   opts.StepSize,
	}, nil
}

// Hub returns the anchor point selected for this run.
func (o *Optimizer) Hub() constraint.Hub { return o.hub }

// Status returns the current state-machine position.
func (o *Optimizer) Status() Status { return o.status }

// Init places every point uniformly at random and records the initial
// error. It is called implicitly by [Optimizer.Run] when neither Init nor
// [Optimizer.Resume] has been called.
func (o *Optimizer) Init() error {
	store, err := points.NewRandom(o.set.Points(), o.rng, o.opts.InitRange)
	if err != nil {
		return err
	}
	if err := o.attach(store); err != nil {
		return err
	}
	o.history = []ErrorSnapshot{evaluateEdges(o.store, o.edges)}
	o.step = o.opts.StepSize
	o.round = 0
	o.status = StatusRunning
	return nil
}

// Resume continues from a saved state instead of a random placement. The
// store must contain every point of the constraint set and the histories
// must be non-empty and of equal length. If st.RNG is empty the generator
// keeps its seeded state.
func (o *Optimizer) Resume(st State) error {
	if st.Store == nil {
		return errors.New(errors.ErrCodeInvalidInput, "resume state has no point store")
	}
	if len(st.CumulativeErrors) == 0 || len(st.CumulativeErrors) != len(st.MaxErrors) {
		return errors.New(errors.ErrCodeInvalidInput, "resume state has %d cumulative and %d max errors",
			len(st.CumulativeErrors), len(st.MaxErrors))
	}
	if !(st.StepSize > 0) {
		return errors.New(errors.ErrCodeInvalidInput, "resume state has step size %v", st.StepSize)
	}
	if len(st.RNG) > 0 {
		if err := o.src.UnmarshalBinary(st.RNG); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "restore random generator")
		}
	}
	if err := o.attach(st.Store.Clone()); err != nil {
		return err
	}

	o.history = make([]ErrorSnapshot, len(st.CumulativeErrors))
	for i := range st.CumulativeErrors {
		o.history[i] = ErrorSnapshot{Cumulative: st.CumulativeErrors[i], Max: st.MaxErrors[i]}
	}
	o.step = st.StepSize
	o.round = st.Round
	o.status = StatusRunning
	if o.step < o.opts.Tolerance {
		o.status = StatusConverged
	}
	return nil
}

// attach resolves every constraint against store and locates the hub.
func (o *Optimizer) attach(store *points.Store) error {
	edges := make([]edge, o.set.Len())
	for i := range edges {
		c := o.set.At(i)
		from, ok := store.Index(c.From)
		if !ok {
			return errors.New(errors.ErrCodeInvalidInput, "constraint %d: point %q missing from store", i, c.From)
		}
		to, ok := store.Index(c.To)
		if !ok {
			return errors.New(errors.ErrCodeInvalidInput, "constraint %d: point %q missing from store", i, c.To)
		}
		edges[i] = edge{from: from, to: to, distance: c.Distance}
	}
	hubSlot, _ := store.Index(o.hub.ID)

	o.store = store
	o.edges = edges
	o.hubSlot = hubSlot
	return nil
}

// Run executes rounds until the optimizer converges, exhausts its round
// budget, or ctx is done. Cancellation is only observed between rounds; a
// canceled run returns its result so far together with ctx.Err().
func (o *Optimizer) Run(ctx context.Context) (*Result, error) {
	if o.store == nil {
		if err := o.Init(); err != nil {
			return nil, err
		}
	}
	if o.status == StatusCanceled {
		o.status = StatusRunning
	}

	start := time.Now()
	o.logger.Debug("starting relaxation",
		"points", o.store.Len(),
		"constraints", len(o.edges),
		"hub", o.hub.ID,
		"hub_degree", o.hub.Degree,
		"seed", o.opts.Seed)

	for o.status == StatusRunning {
		if o.round >= o.opts.MaxRounds {
			o.status = StatusExhausted
			break
		}
		if err := ctx.Err(); err != nil {
			o.status = StatusCanceled
			res := o.result(time.Since(start))
			return res, err
		}
		ev := o.runRound()
		if o.opts.Progress != nil {
			o.opts.Progress(ev)
		}
	}

	res := o.result(time.Since(start))
	o.logger.Debug("relaxation finished",
		"status", res.Status,
		"rounds", res.Rounds,
		"accepted", res.Accepted,
		"rejected", res.Rejected,
		"cumulative_error", res.Final.Cumulative,
		"max_error", res.Final.Max)
	return res, nil
}

// runRound performs one full pass over the constraints followed by the
// accept/reject decision.
func (o *Optimizer) runRound() RoundEvent {
	o.round++
	best := o.history[len(o.history)-1]
	snap := o.store.Snapshot()
	step := o.step

	skipped := 0
	for _, k := range o.rng.Perm(len(o.edges)) {
		if !o.relaxEdge(o.edges[k], step) {
			skipped++
		}
	}
	o.skipped += skipped

	current := evaluateEdges(o.store, o.edges)
	ev := RoundEvent{
		Round:     o.round,
		MaxRounds: o.opts.MaxRounds,
		StepSize:  step,
		Error:     current,
		Skipped:   skipped,
	}

	// A NaN error compares false and is rejected along with worse rounds.
	if current.Cumulative <= best.Cumulative {
		o.history = append(o.history, current)
		o.accepted++
		ev.Accepted = true
		ev.Best = current
	} else {
		o.store.Restore(snap)
		o.step /= o.opts.ShrinkFactor
		o.rejected++
		ev.Best = best
		if o.step < o.opts.Tolerance {
			o.status = StatusConverged
		}
	}
	if o.status == StatusRunning && o.round >= o.opts.MaxRounds {
		o.status = StatusExhausted
	}

	ev.NextStepSize = o.step
	ev.Status = o.status
	o.logger.Debug("round",
		"round", o.round,
		"accepted", ev.Accepted,
		"step", step,
		"cumulative_error", current.Cumulative,
		"max_error", current.Max)
	return ev
}

// relaxEdge moves one endpoint of e toward or away from the other. It
// returns false if the move was skipped because the endpoints coincide.
func (o *Optimizer) relaxEdge(e edge, step float64) bool {
	from, to := o.store.At(e.from), o.store.At(e.to)
	vec := r3.Sub(to, from)
	dist := r3.Norm(vec)

	var moveTo bool
	switch o.hubSlot {
	case e.from:
		moveTo = true
	case e.to:
		moveTo = false
	default:
		moveTo = o.rng.IntN(2) == 1
	}

	if dist == e.distance {
		return true
	}
	if dist == 0 {
		ids := o.store.IDs()
		o.logger.Debug("skipping edge",
			"err", errors.New(errors.ErrCodeNumericDegeneracy, "points %q and %q coincide", ids[e.from], ids[e.to]))
		return false
	}

	// Too far apart: departure moves along +vec, arrival along -vec.
	// Too close: the signs flip.
	scale := step
	if dist < e.distance {
		scale = -step
	}
	if moveTo {
		o.store.SetAt(e.to, r3.Sub(to, r3.Scale(scale, vec)))
	} else {
		o.store.SetAt(e.from, r3.Add(from, r3.Scale(scale, vec)))
	}
	return true
}

// State returns a copy of the optimizer's current state, suitable for
// checkpointing.
func (o *Optimizer) State() (State, error) {
	if o.store == nil {
		return State{}, errors.New(errors.ErrCodeInternal, "optimizer has not been initialized")
	}
	rngState, err := o.src.MarshalBinary()
	if err != nil {
		return State{}, errors.Wrap(errors.ErrCodeInternal, err, "snapshot random generator")
	}
	cum, maxes := o.histories()
	return State{
		Store:            o.store.Clone(),
		CumulativeErrors: cum,
		MaxErrors:        maxes,
		StepSize:         o.step,
		Round:            o.round,
		Status:           o.status,
		RNG:              rngState,
	}, nil
}

func (o *Optimizer) histories() ([]float64, []float64) {
	cum := make([]float64, len(o.history))
	maxes := make([]float64, len(o.history))
	for i, h := range o.history {
		cum[i], maxes[i] = h.Cumulative, h.Max
	}
	return cum, maxes
}

func (o *Optimizer) result(d time.Duration) *Result {
	return &Result{
		Status:   o.status,
		Rounds:   o.round,
		Accepted: o.accepted,
		Rejected: o.rejected,
		Skipped:  o.skipped,
		StepSize: o.step,
		Hub:      o.hub,
		Initial:  o.history[0],
		Final:    o.history[len(o.history)-1],
		Duration: d,
		Store:    o.store.Clone(),
		History:  slices.Clone(o.history),
	}
}
