package relax

import (
	"context"
	stderrors "errors"
	"io"
	"math"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pointfit/pkg/constraint"
	"github.com/matzehuels/pointfit/pkg/errors"
)

func quietOptions() Options {
	opts := DefaultOptions()
	opts.Logger = log.New(io.Discard)
	return opts
}

func collinear() *constraint.Set {
	return constraint.MustNew([]constraint.Constraint{
		{From: "A", To: "B", Distance: 10},
		{From: "B", To: "C", Distance: 10},
		{From: "A", To: "C", Distance: 20},
	})
}

func square() *constraint.Set {
	return constraint.MustNew([]constraint.Constraint{
		{From: "P1", To: "P2", Distance: 3},
		{From: "P2", To: "P3", Distance: 3},
		{From: "P3", To: "P4", Distance: 3},
		{From: "P4", To: "P1", Distance: 3},
		{From: "P1", To: "P3", Distance: 4.2426},
		{From: "P2", To: "P4", Distance: 4.2426},
		{From: "P1", To: "P5", Distance: 1.5},
	})
}

func TestNewRejectsEmptySet(t *testing.T) {
	empty, err := constraint.New(nil)
	if err != nil {
		t.Fatalf("constraint.New(nil) error: %v", err)
	}
	if _, err := New(empty, quietOptions()); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("New(empty) error = %v, want INVALID_INPUT", err)
	}
	if _, err := New(nil, quietOptions()); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("New(nil) error = %v, want INVALID_INPUT", err)
	}
}

func TestNewRejectsBadOptions(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Options)
	}{
		{"negative step", func(o *Options) { o.StepSize = -1 }},
		{"negative rounds", func(o *Options) { o.MaxRounds = -3 }},
		{"negative tolerance", func(o *Options) { o.Tolerance = -0.1 }},
		{"shrink of one", func(o *Options) { o.ShrinkFactor = 1 }},
		{"shrink below one", func(o *Options) { o.ShrinkFactor = 0.5 }},
		{"nan step", func(o *Options) { o.StepSize = math.NaN() }},
		{"negative range", func(o *Options) { o.InitRange = -2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := quietOptions()
			tt.modify(&opts)
			if _, err := New(collinear(), opts); !errors.Is(err, errors.ErrCodeInvalidOptions) {
				t.Errorf("New() error = %v, want INVALID_OPTIONS", err)
			}
		})
	}
}

func TestSetDefaultsKeepsZeroSeed(t *testing.T) {
	var opts Options
	opts.SetDefaults()
	if opts.Seed != 0 {
		t.Errorf("Seed = %d, want 0", opts.Seed)
	}
	if opts.StepSize != DefaultStepSize || opts.MaxRounds != DefaultMaxRounds ||
		opts.Tolerance != DefaultTolerance || opts.ShrinkFactor != DefaultShrinkFactor {
		t.Errorf("SetDefaults() = %+v", opts)
	}
	if opts.Logger == nil {
		t.Error("SetDefaults() left Logger nil")
	}
}

func TestRunErrorMonotonic(t *testing.T) {
	for _, seed := range []uint64{1, 7, 42, 1234} {
		var events []RoundEvent
		opts := quietOptions()
		opts.Seed = seed
		opts.Progress = func(ev RoundEvent) { events = append(events, ev) }

		opt, err := New(square(), opts)
		if err != nil {
			t.Fatalf("New() error: %v", err)
		}
		res, err := opt.Run(context.Background())
		if err != nil {
			t.Fatalf("Run() error: %v", err)
		}

		for i := 1; i < len(res.History); i++ {
			if res.History[i].Cumulative > res.History[i-1].Cumulative {
				t.Errorf("seed %d: history[%d] = %v > history[%d] = %v",
					seed, i, res.History[i].Cumulative, i-1, res.History[i-1].Cumulative)
			}
		}
		if res.Final.Cumulative > res.Initial.Cumulative {
			t.Errorf("seed %d: final %v > initial %v", seed, res.Final.Cumulative, res.Initial.Cumulative)
		}
		if len(res.History) != res.Accepted+1 {
			t.Errorf("seed %d: len(History) = %d, want accepted+1 = %d", seed, len(res.History), res.Accepted+1)
		}
		if len(events) != res.Rounds {
			t.Errorf("seed %d: got %d events for %d rounds", seed, len(events), res.Rounds)
		}
	}
}

func TestRunStepSizeNonIncreasing(t *testing.T) {
	var events []RoundEvent
	opts := quietOptions()
	opts.Progress = func(ev RoundEvent) { events = append(events, ev) }

	opt, err := New(square(), opts)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if _, err := opt.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	prev := opts.StepSize
	for _, ev := range events {
		if ev.StepSize != prev {
			t.Fatalf("round %d: step %v, want carried-over %v", ev.Round, ev.StepSize, prev)
		}
		switch {
		case ev.Accepted && ev.NextStepSize != ev.StepSize:
			t.Errorf("round %d: accepted round changed step %v -> %v", ev.Round, ev.StepSize, ev.NextStepSize)
		case !ev.Accepted && !(ev.NextStepSize < ev.StepSize):
			t.Errorf("round %d: rejected round did not shrink step %v -> %v", ev.Round, ev.StepSize, ev.NextStepSize)
		}
		prev = ev.NextStepSize
	}
}

func TestRunTermination(t *testing.T) {
	tests := []struct {
		name      string
		maxRounds int
		tolerance float64
	}{
		{"tight round budget", 5, 0.001},
		{"default budget", 250, 0.001},
		{"loose tolerance", 1000, 0.3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := quietOptions()
			opts.MaxRounds = tt.maxRounds
			opts.Tolerance = tt.tolerance
			opt, err := New(square(), opts)
			if err != nil {
				t.Fatalf("New() error: %v", err)
			}
			res, err := opt.Run(context.Background())
			if err != nil {
				t.Fatalf("Run() error: %v", err)
			}
			if res.Rounds > tt.maxRounds {
				t.Errorf("Rounds = %d, want <= %d", res.Rounds, tt.maxRounds)
			}
			if res.Accepted+res.Rejected != res.Rounds {
				t.Errorf("Accepted+Rejected = %d, want %d", res.Accepted+res.Rejected, res.Rounds)
			}
			converged := res.StepSize < tt.tolerance
			if (res.Status == StatusConverged) != converged {
				t.Errorf("Status = %v with step %v and tolerance %v", res.Status, res.StepSize, tt.tolerance)
			}
			if res.Status == StatusExhausted && res.Rounds != tt.maxRounds {
				t.Errorf("exhausted after %d rounds, want %d", res.Rounds, tt.maxRounds)
			}
			if !res.Status.Terminated() {
				t.Errorf("Status = %v, want a terminal status", res.Status)
			}
		})
	}
}

func TestRunHubNeverMoves(t *testing.T) {
	opts := quietOptions()

	before, err := New(square(), opts)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := before.Init(); err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	initial, err := before.State()
	if err != nil {
		t.Fatalf("State() error: %v", err)
	}

	opt, err := New(square(), opts)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	res, err := opt.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if res.Hub.ID != "P1" {
		t.Fatalf("Hub = %q, want P1", res.Hub.ID)
	}
	want, _ := initial.Store.Get("P1")
	got, _ := res.Store.Get("P1")
	if got != want {
		t.Errorf("hub moved from %v to %v", want, got)
	}
}

func TestRunCollinear(t *testing.T) {
	opt, err := New(collinear(), quietOptions())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if got := opt.Hub(); got.ID != "A" || got.Degree != 2 {
		t.Errorf("Hub() = %+v, want A with degree 2", got)
	}
	res, err := opt.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !(res.Final.Cumulative < res.Initial.Cumulative) {
		t.Errorf("final error %v not below initial %v", res.Final.Cumulative, res.Initial.Cumulative)
	}
	if res.Store.Len() != 3 {
		t.Errorf("Store.Len() = %d, want 3", res.Store.Len())
	}
}

func TestRunSingleEdgeOneRound(t *testing.T) {
	set := constraint.MustNew([]constraint.Constraint{{From: "A", To: "B", Distance: 5}})
	opts := quietOptions()
	opts.MaxRounds = 1

	opt, err := New(set, opts)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	res, err := opt.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if res.Rounds != 1 || res.Status != StatusExhausted {
		t.Fatalf("Rounds = %d, Status = %v; want 1 exhausted", res.Rounds, res.Status)
	}
	// Initial points lie in the unit cube, so the first round pushes B out
	// from A and always improves.
	if res.Accepted != 1 {
		t.Errorf("Accepted = %d, want 1", res.Accepted)
	}
	if !(res.Final.Cumulative < res.Initial.Cumulative) {
		t.Errorf("final error %v not below initial %v", res.Final.Cumulative, res.Initial.Cumulative)
	}
	if res.Final.Max != res.Final.Cumulative {
		t.Errorf("single edge: Max %v != Cumulative %v", res.Final.Max, res.Final.Cumulative)
	}
}

func TestRunDeterministic(t *testing.T) {
	run := func() *Result {
		opt, err := New(square(), quietOptions())
		if err != nil {
			t.Fatalf("New() error: %v", err)
		}
		res, err := opt.Run(context.Background())
		if err != nil {
			t.Fatalf("Run() error: %v", err)
		}
		return res
	}
	a, b := run(), run()
	if a.Final != b.Final || a.Rounds != b.Rounds {
		t.Errorf("runs differ: %+v vs %+v", a.Final, b.Final)
	}
}

func TestResumeMatchesUninterruptedRun(t *testing.T) {
	opts := quietOptions()
	opts.MaxRounds = 60

	full, err := New(square(), opts)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	want, err := full.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	partialOpts := opts
	partialOpts.MaxRounds = 20
	partial, err := New(square(), partialOpts)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if _, err := partial.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	st, err := partial.State()
	if err != nil {
		t.Fatalf("State() error: %v", err)
	}

	resumed, err := New(square(), opts)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := resumed.Resume(st); err != nil {
		t.Fatalf("Resume() error: %v", err)
	}
	got, err := resumed.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if got.Final != want.Final {
		t.Errorf("resumed final = %+v, want %+v", got.Final, want.Final)
	}
	if got.Rounds != want.Rounds || got.Status != want.Status {
		t.Errorf("resumed rounds/status = %d/%v, want %d/%v", got.Rounds, got.Status, want.Rounds, want.Status)
	}
	wantCoords, gotCoords := want.Store.Coords(), got.Store.Coords()
	for i := range wantCoords {
		if wantCoords[i] != gotCoords[i] {
			t.Errorf("coord %d = %v, want %v", i, gotCoords[i], wantCoords[i])
		}
	}
}

func TestResumeValidation(t *testing.T) {
	opt, err := New(square(), quietOptions())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := opt.Init(); err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	good, err := opt.State()
	if err != nil {
		t.Fatalf("State() error: %v", err)
	}

	other, err := New(collinear(), quietOptions())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	tests := []struct {
		name   string
		modify func(*State)
	}{
		{"nil store", func(s *State) { s.Store = nil }},
		{"empty history", func(s *State) { s.CumulativeErrors, s.MaxErrors = nil, nil }},
		{"mismatched history", func(s *State) { s.MaxErrors = append(s.MaxErrors, 1) }},
		{"zero step", func(s *State) { s.StepSize = 0 }},
		{"bad rng", func(s *State) { s.RNG = []byte("garbage") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := good
			st.CumulativeErrors = append([]float64(nil), good.CumulativeErrors...)
			st.MaxErrors = append([]float64(nil), good.MaxErrors...)
			tt.modify(&st)
			fresh, _ := New(square(), quietOptions())
			if err := fresh.Resume(st); !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Errorf("Resume() error = %v, want INVALID_INPUT", err)
			}
		})
	}

	t.Run("store missing points", func(t *testing.T) {
		if err := other.Resume(good); !errors.Is(err, errors.ErrCodeInvalidInput) {
			t.Errorf("Resume() error = %v, want INVALID_INPUT", err)
		}
	})
}

func TestResumeBelowToleranceIsConverged(t *testing.T) {
	opt, err := New(square(), quietOptions())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := opt.Init(); err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	st, _ := opt.State()
	st.StepSize = DefaultTolerance / 2

	resumed, _ := New(square(), quietOptions())
	if err := resumed.Resume(st); err != nil {
		t.Fatalf("Resume() error: %v", err)
	}
	res, err := resumed.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.Status != StatusConverged || res.Rounds != 0 {
		t.Errorf("Status = %v after %d rounds, want converged after 0", res.Status, res.Rounds)
	}
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := quietOptions()
	opts.Progress = func(ev RoundEvent) {
		if ev.Round == 3 {
			cancel()
		}
	}
	opt, err := New(square(), opts)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	res, err := opt.Run(ctx)
	if !stderrors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if res == nil {
		t.Fatal("Run() returned nil result on cancel")
	}
	if res.Status != StatusCanceled || res.Rounds != 3 {
		t.Errorf("Status = %v after %d rounds, want canceled after 3", res.Status, res.Rounds)
	}
	if res.Status.Terminated() {
		t.Error("canceled status reports terminated")
	}

	res, err = opt.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run() error: %v", err)
	}
	if !res.Status.Terminated() || res.Rounds <= 3 {
		t.Errorf("second Run() = %v after %d rounds", res.Status, res.Rounds)
	}
}

func TestRunCoincidentPointsSkipped(t *testing.T) {
	set := constraint.MustNew([]constraint.Constraint{
		{From: "A", To: "B", Distance: 2},
		{From: "B", To: "C", Distance: 2},
	})
	opt, err := New(set, quietOptions())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := opt.Init(); err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	st, _ := opt.State()
	a, _ := st.Store.Get("A")
	for _, id := range []string{"B", "C"} {
		if err := st.Store.Set(id, a); err != nil {
			t.Fatalf("Set(%s) error: %v", id, err)
		}
	}
	st.CumulativeErrors = []float64{4}
	st.MaxErrors = []float64{2}

	opts := quietOptions()
	opts.MaxRounds = 1
	resumed, _ := New(set, opts)
	if err := resumed.Resume(st); err != nil {
		t.Fatalf("Resume() error: %v", err)
	}
	res, err := resumed.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2", res.Skipped)
	}
	if math.IsNaN(res.Final.Cumulative) {
		t.Error("final error is NaN")
	}
}

func TestStateBeforeInit(t *testing.T) {
	opt, err := New(square(), quietOptions())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if _, err := opt.State(); !errors.Is(err, errors.ErrCodeInternal) {
		t.Errorf("State() error = %v, want INTERNAL_ERROR", err)
	}
}
