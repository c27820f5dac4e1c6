// Package pkg provides the core libraries for pointfit, an iterative 3-D
// position estimator.
//
// # Overview
//
// pointfit recovers the coordinates of a set of named points from a list of
// measured pairwise distances. Starting from a random placement, every round
// nudges one endpoint of each measurement toward its target distance; rounds
// that make the cumulative error worse are rolled back and the step size
// shrinks until it drops below a tolerance.
//
// # Architecture
//
// The typical data flow:
//
//	constraints.csv / constraints.json
//	         ↓
//	    [io] package (parse and validate measurements)
//	         ↓
//	    [constraint] package (constraint set + hub selection)
//	         ↓
//	    [relax] package (relaxation rounds over a [points] store)
//	         ↓
//	    [checkpoint] package (persisted, resumable run state)
//	         ↓
//	    [report] package (normalized coordinates + error summary)
//
// # Quick Start
//
//	set, _ := io.ImportConstraints("constraints.csv")
//
//	runner := pipeline.NewRunner(cache.NewMemoryCache(), cache.NewDefaultKeyer(), nil)
//	res, err := runner.Estimate(ctx, set, pipeline.Options{Seed: 7})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(res.Report.Summary)
//
// # Main Packages
//
// [constraint] - Measured distances between named points, validation and the
// hub (most connected point) that anchors each run.
//
// [points] - Ordered coordinate store with snapshot and restore used for
// round rollback.
//
// [relax] - The optimizer state machine: init, rounds, accept or reject,
// convergence and cancellation.
//
// [checkpoint] - zstd-compressed run state including the random generator,
// so a resumed run continues exactly where it stopped.
//
// [report] - Normalization to the unit cube and the human-readable error
// summary.
//
// [pipeline] - Orchestration (validate → estimate → checkpoint → report) used
// by the CLI and the HTTP API, plus multi-seed sweeps.
//
// [synthetic] - Generators for test problems with known ground truth.
//
// [render] - Measurement-graph drawings through Graphviz and SVG conversion.
//
// ## Infrastructure
//
// [cache] - Key-value backends for results and checkpoints: file, memory,
// Redis, MongoDB and S3-compatible object storage.
//
// [config] - TOML or YAML configuration with environment overrides.
//
// [observability] - Hooks for pipeline, cache and HTTP events.
//
// [errors] - Coded errors shared by every package.
//
// # Testing
//
//	go test ./...                        # All tests
//	go test -tags integration ./pkg/...  # Include backend integration tests
//
// [io]: https://pkg.go.dev/github.com/matzehuels/pointfit/pkg/io
// [constraint]: https://pkg.go.dev/github.com/matzehuels/pointfit/pkg/constraint
// [points]: https://pkg.go.dev/github.com/matzehuels/pointfit/pkg/points
// [relax]: https://pkg.go.dev/github.com/matzehuels/pointfit/pkg/relax
// [checkpoint]: https://pkg.go.dev/github.com/matzehuels/pointfit/pkg/checkpoint
// [report]: https://pkg.go.dev/github.com/matzehuels/pointfit/pkg/report
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/pointfit/pkg/pipeline
// [synthetic]: https://pkg.go.dev/github.com/matzehuels/pointfit/pkg/synthetic
// [render]: https://pkg.go.dev/github.com/matzehuels/pointfit/pkg/render
// [cache]: https://pkg.go.dev/github.com/matzehuels/pointfit/pkg/cache
// [config]: https://pkg.go.dev/github.com/matzehuels/pointfit/pkg/config
// [observability]: https://pkg.go.dev/github.com/matzehuels/pointfit/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/pointfit/pkg/errors
package pkg
