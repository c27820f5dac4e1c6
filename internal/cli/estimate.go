package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pointfit/pkg/checkpoint"
	pfio "github.com/matzehuels/pointfit/pkg/io"
	"github.com/matzehuels/pointfit/pkg/pipeline"
	"github.com/matzehuels/pointfit/pkg/relax"
)

// outputOpts are the output flags shared by estimate, resume and sweep.
type outputOpts struct {
	output     string // points file; format from extension
	checkpoint string // optional checkpoint file
	noCache    bool
	tui        bool
}

func (o *outputOpts) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "points output file, .csv or .json (default: <input>.points.csv)")
	cmd.Flags().StringVar(&o.checkpoint, "checkpoint", "", "also write the checkpoint to this file")
	cmd.Flags().BoolVar(&o.noCache, "no-cache", false, "disable result cache and checkpoint storage")
	cmd.Flags().BoolVar(&o.tui, "tui", false, "show live progress in a terminal UI")
}

// estimateCommand creates the estimate command.
func (c *CLI) estimateCommand() *cobra.Command {
	var (
		flags optimizerFlags
		out   outputOpts
	)

	cmd := &cobra.Command{
		Use:   "estimate [constraints.csv]",
		Short: "Estimate point positions from distance measurements",
		Long: `Estimate point positions from distance measurements.

The input is a CSV file with the header departure_point,arrival_point,measurement_value
(or a JSON array of {"from","to","distance"} objects). Points are placed at random
and relaxed until the round limit is reached or the step size falls below the
tolerance.

The final state is checkpointed under a run id, which 'resume' and 'report' accept.
Identical runs are served from the result cache.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := flags.options(cmd, c.Config.Optimizer)
			return c.runEstimate(cmd.Context(), args[0], opts, out)
		},
	}

	flags.register(cmd)
	out.register(cmd)
	return cmd
}

// runEstimate loads the constraints, runs the estimate and writes output.
func (c *CLI) runEstimate(ctx context.Context, input string, opts pipeline.Options, out outputOpts) error {
	set, err := pfio.ImportConstraints(input)
	if err != nil {
		return fmt.Errorf("load constraints %s: %w", input, err)
	}
	c.Logger.Debug("loaded constraints", "file", input, "constraints", set.Len(), "points", len(set.Points()))

	runner, err := c.newRunner(ctx, out.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()
	opts.Logger = c.Logger

	res, err := c.execute(ctx, opts, out.tui, func(ctx context.Context, opts pipeline.Options) (*pipeline.Result, error) {
		return runner.Estimate(ctx, set, opts)
	})
	if err != nil && res == nil {
		return fmt.Errorf("estimate: %w", err)
	}
	if werr := writeOutputs(res, input, out); werr != nil {
		return werr
	}
	printResult(res, out.noCache)
	return err
}

// execute runs fn with a spinner, or with the progress UI if tui is set.
func (c *CLI) execute(ctx context.Context, opts pipeline.Options, tui bool,
	fn func(context.Context, pipeline.Options) (*pipeline.Result, error)) (*pipeline.Result, error) {
	if tui {
		return runWithProgress(ctx, opts, fn)
	}

	spinner := newSpinnerWithContext(ctx, "Relaxing positions...")
	spinner.Start()
	opts.Progress = func(ev relax.RoundEvent) {
		if ev.Round%10 == 0 {
			spinner.SetMessage(roundMessage(ev))
		}
	}
	res, err := fn(ctx, opts)
	switch {
	case err == nil:
		spinner.Stop()
	case stderrors.Is(err, context.Canceled) && res != nil:
		spinner.StopWithError(fmt.Sprintf("Canceled after %d rounds", res.Rounds))
	default:
		spinner.StopWithError("Estimate failed")
	}
	return res, err
}

func roundMessage(ev relax.RoundEvent) string {
	return fmt.Sprintf("Round %d/%d · error %s · step %s",
		ev.Round, ev.MaxRounds, formatError(ev.Best.Cumulative), formatError(ev.NextStepSize))
}

// writeOutputs writes the points file and, if requested, the checkpoint file.
func writeOutputs(res *pipeline.Result, input string, out outputOpts) error {
	store, err := res.Checkpoint.Store()
	if err != nil {
		return err
	}
	path := out.output
	if path == "" {
		path = strings.TrimSuffix(input, filepath.Ext(input)) + ".points.csv"
	}
	if err := pfio.ExportPoints(path, store); err != nil {
		return fmt.Errorf("write points %s: %w", path, err)
	}
	printFile(path)

	if out.checkpoint != "" {
		if err := checkpoint.WriteFile(out.checkpoint, res.Checkpoint); err != nil {
			return err
		}
		printFile(out.checkpoint)
	}
	return nil
}

// printResult prints the outcome of a run.
func printResult(res *pipeline.Result, noCache bool) {
	switch res.Status {
	case relax.StatusCanceled:
		printWarning("Run %s canceled after %d rounds", res.RunID, res.Rounds)
	default:
		printSuccess("Estimate %s (%s after %d rounds)", res.RunID, res.Status, res.Rounds)
	}
	printSummary(res.Report.Summary, res.Hub.ID)
	printStats(res.Stats.Points, res.Stats.Constraints, res.CacheHit)
	printNewline()
	if noCache {
		printDetail("Checkpoint storage disabled; use --checkpoint to keep this run")
		return
	}
	if res.Status == relax.StatusCanceled || res.Status == relax.StatusExhausted {
		printNextStep("Continue", fmt.Sprintf("%s resume %s --constraints <file>", appName, res.RunID))
	}
	printNextStep("Report", fmt.Sprintf("%s report %s", appName, res.RunID))
}
