// Package api serves pointfit over HTTP.
//
// Routes:
//
//	POST /v1/runs              start an estimate (add ?wait=true to block until it finishes)
//	GET  /v1/runs/{id}         run state and, once finished, its result
//	GET  /v1/runs/{id}/points  estimated coordinates (?normalized=true for [-1, 1] per axis)
//	GET  /healthz              liveness and build information
//
// Runs execute in the background on a bounded number of workers. Run
// records and checkpoints live in the runner's cache, so any backend the
// CLI supports can back the server.
package api

import (
	"context"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/pointfit/pkg/pipeline"
)

// DefaultMaxBodyBytes bounds request bodies.
const DefaultMaxBodyBytes = 32 << 20

// Options configures a [Server].
type Options struct {
	// MaxConcurrent bounds the number of estimates running at once.
	// Further runs wait in the queue. Default: 4.
	MaxConcurrent int
	// MaxBodyBytes bounds request bodies. Default: 32 MiB.
	MaxBodyBytes int64
}

// Server is the HTTP API. It is safe for concurrent use.
type Server struct {
	runner *pipeline.Runner
	logger *log.Logger
	opts   Options

	slots chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a server backed by runner.
func New(runner *pipeline.Runner, logger *log.Logger, opts Options) *Server {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 4
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if logger == nil {
		logger = log.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		runner: runner,
		logger: logger.WithPrefix("api"),
		opts:   opts,
		slots:  make(chan struct{}, opts.MaxConcurrent),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(s.logger))
	r.Use(hooks)

	r.Get("/healthz", s.health)
	r.Route("/v1/runs", func(r chi.Router) {
		r.Post("/", s.createRun)
		r.Get("/{runID}", s.getRun)
		r.Get("/{runID}/points", s.getPoints)
	})
	return r
}

// Shutdown cancels background runs and waits for them to checkpoint, or
// for ctx to end.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
