package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/matzehuels/pointfit/pkg/buildinfo"
	"github.com/matzehuels/pointfit/pkg/cache"
	"github.com/matzehuels/pointfit/pkg/constraint"
	"github.com/matzehuels/pointfit/pkg/errors"
	pfio "github.com/matzehuels/pointfit/pkg/io"
	"github.com/matzehuels/pointfit/pkg/pipeline"
	"github.com/matzehuels/pointfit/pkg/report"
)

// Run states.
const (
	StateQueued  = "queued"
	StateRunning = "running"
	StateDone    = "done"
	StateFailed  = "failed"
)

// CreateRunRequest is the body of POST /v1/runs. Exactly one of
// Constraints and CSV must be set.
type CreateRunRequest struct {
	Constraints []constraint.Constraint `json:"constraints,omitempty"`
	// CSV is constraint data in the CLI's CSV format, header included.
	CSV     string           `json:"csv,omitempty"`
	Options pipeline.Options `json:"options"`
}

// Run is the record of one API run.
type Run struct {
	ID        string           `json:"id"`
	State     string           `json:"state"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
	Error     *ErrorBody       `json:"error,omitempty"`
	Result    *pipeline.Result `json:"result,omitempty"`
}

// PointsResponse is the body of GET /v1/runs/{id}/points.
type PointsResponse struct {
	RunID      string         `json:"run_id"`
	Normalized bool           `json:"normalized"`
	Points     []report.Point `json:"points"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"build":  buildinfo.Get(),
	})
}

func (s *Server) createRun(w http.ResponseWriter, r *http.Request) {
	var req CreateRunRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		respondError(w, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode request"))
		return
	}
	set, err := req.constraintSet()
	if err != nil {
		respondError(w, err)
		return
	}
	if set.Empty() {
		respondError(w, errors.New(errors.ErrCodeInvalidInput, "constraint set is empty"))
		return
	}
	opts := req.Options
	if err := opts.ValidateAndSetDefaults(); err != nil {
		respondError(w, err)
		return
	}
	opts.Logger = s.logger

	now := time.Now().UTC()
	run := &Run{ID: uuid.NewString(), State: StateQueued, CreatedAt: now, UpdatedAt: now}

	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		s.execute(r.Context(), run, set, opts)
		respondJSON(w, http.StatusOK, run)
		return
	}

	if err := s.saveRun(r.Context(), run); err != nil {
		respondError(w, err)
		return
	}
	accepted := *run
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.execute(s.ctx, run, set, opts)
	}()

	w.Header().Set("Location", "/v1/runs/"+run.ID)
	respondJSON(w, http.StatusAccepted, &accepted)
}

func (req CreateRunRequest) constraintSet() (*constraint.Set, error) {
	switch {
	case req.CSV != "" && len(req.Constraints) > 0:
		return nil, errors.New(errors.ErrCodeInvalidInput, "set either constraints or csv, not both")
	case req.CSV != "":
		return pfio.ReadConstraintsCSV(strings.NewReader(req.CSV))
	default:
		return constraint.New(req.Constraints)
	}
}

// execute waits for a worker slot, runs the estimate and records the
// outcome. Record updates use a context that outlives the request.
func (s *Server) execute(ctx context.Context, run *Run, set *constraint.Set, opts pipeline.Options) {
	store := context.WithoutCancel(ctx)

	select {
	case s.slots <- struct{}{}:
		defer func() { <-s.slots }()
	case <-ctx.Done():
		s.finish(store, run, nil, ctx.Err())
		return
	}

	run.State = StateRunning
	run.UpdatedAt = time.Now().UTC()
	if err := s.saveRun(store, run); err != nil {
		s.logger.Warn("could not save run", "run", run.ID, "err", err)
	}

	res, err := s.runner.Estimate(ctx, set, opts)
	s.finish(store, run, res, err)
}

func (s *Server) finish(ctx context.Context, run *Run, res *pipeline.Result, err error) {
	run.UpdatedAt = time.Now().UTC()
	run.Result = res
	if err != nil {
		run.State = StateFailed
		run.Error = errorBody(err)
		s.logger.Warn("run failed", "run", run.ID, "err", err)
	} else {
		run.State = StateDone
	}
	if err := s.saveRun(ctx, run); err != nil {
		s.logger.Warn("could not save run", "run", run.ID, "err", err)
	}
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.loadRun(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, run)
}

func (s *Server) getPoints(w http.ResponseWriter, r *http.Request) {
	run, err := s.loadRun(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		respondError(w, err)
		return
	}
	if run.Result == nil {
		respondError(w, errors.New(errors.ErrCodeNotFound, "run %s has no result (state %s)", run.ID, run.State))
		return
	}

	cp, err := s.runner.Load(r.Context(), run.Result.RunID)
	if err != nil {
		respondError(w, err)
		return
	}
	normalized, _ := strconv.ParseBool(r.URL.Query().Get("normalized"))
	resp := PointsResponse{RunID: cp.RunID, Normalized: normalized}
	if normalized {
		rep, err := report.FromCheckpoint(cp)
		if err != nil {
			respondError(w, err)
			return
		}
		resp.Points = rep.Points
	} else {
		resp.Points = make([]report.Point, len(cp.Points))
		for i, p := range cp.Points {
			resp.Points[i] = report.Point{ID: p.ID, X: p.X, Y: p.Y, Z: p.Z}
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

// loadRun returns the API record of id. Runs started from the CLI have no
// record; their checkpoint is reported as a finished run instead.
func (s *Server) loadRun(ctx context.Context, id string) (*Run, error) {
	if err := errors.ValidateRunID(id); err != nil {
		return nil, err
	}
	data, ok, err := s.runner.Cache.Get(ctx, s.runner.Keyer.RunKey(id))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "load run %s", id)
	}
	if ok {
		var run Run
		if err := json.Unmarshal(data, &run); err != nil {
			return nil, errors.Wrap(errors.ErrCodeCorruptCheckpoint, err, "decode run %s", id)
		}
		return &run, nil
	}

	cp, err := s.runner.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	rep, err := report.FromCheckpoint(cp)
	if err != nil {
		return nil, err
	}
	return &Run{
		ID:        cp.RunID,
		State:     StateDone,
		CreatedAt: cp.CreatedAt,
		UpdatedAt: cp.CreatedAt,
		Result: &pipeline.Result{
			RunID:  cp.RunID,
			Status: cp.Status,
			Rounds: cp.Round,
			Hub:    cp.Hub,
			Final:  cp.Final(),
			Report: rep,
		},
	}, nil
}

func (s *Server) saveRun(ctx context.Context, run *Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode run %s", run.ID)
	}
	if err := s.runner.Cache.Set(ctx, s.runner.Keyer.RunKey(run.ID), data, cache.TTLResult); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "save run %s", run.ID)
	}
	return nil
}
