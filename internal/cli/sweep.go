package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	pfio "github.com/matzehuels/pointfit/pkg/io"
	"github.com/matzehuels/pointfit/pkg/pipeline"
)

// sweepCommand creates the sweep command.
func (c *CLI) sweepCommand() *cobra.Command {
	var (
		flags    optimizerFlags
		out      outputOpts
		runs     int
		parallel int
	)

	cmd := &cobra.Command{
		Use:   "sweep [constraints.csv]",
		Short: "Run the estimate with several seeds and keep the best",
		Long: `Run the estimate with several seeds and keep the best.

Seeds --seed, --seed+1, ... are run in parallel. The points file is written
for the run with the lowest final error; every run is checkpointed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := flags.options(cmd, c.Config.Optimizer)
			return c.runSweep(cmd.Context(), args[0], opts, runs, parallel, out)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&out.output, "output", "o", "", "points output file for the best run (default: <input>.points.csv)")
	cmd.Flags().StringVar(&out.checkpoint, "checkpoint", "", "also write the best run's checkpoint to this file")
	cmd.Flags().BoolVar(&out.noCache, "no-cache", false, "disable result cache and checkpoint storage")
	cmd.Flags().IntVarP(&runs, "runs", "n", 8, "number of seeds")
	cmd.Flags().IntVarP(&parallel, "parallel", "p", pipeline.DefaultSweepParallelism, "concurrent runs")

	return cmd
}

func (c *CLI) runSweep(ctx context.Context, input string, opts pipeline.Options, runs, parallel int, out outputOpts) error {
	set, err := pfio.ImportConstraints(input)
	if err != nil {
		return fmt.Errorf("load constraints %s: %w", input, err)
	}

	runner, err := c.newRunner(ctx, out.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()
	opts.Logger = c.Logger

	seeds := pipeline.Seeds(opts.Seed, runs)
	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Running %d seeds...", len(seeds)))
	spinner.Start()
	prog := newProgress(c.Logger)
	results, err := runner.Sweep(ctx, set, opts, seeds, parallel)
	if err != nil {
		spinner.StopWithError("Sweep failed")
		return fmt.Errorf("sweep: %w", err)
	}
	spinner.Stop()
	prog.done(fmt.Sprintf("Finished %d runs", len(results)))

	best := pipeline.Best(results)
	rows := make([][]string, len(results))
	for i, res := range results {
		rows[i] = []string{
			fmt.Sprint(seeds[i]),
			res.Status.String(),
			fmt.Sprint(res.Rounds),
			formatError(res.Report.Summary.Average),
			formatError(res.Report.Summary.Max),
			res.RunID,
		}
	}
	fmt.Println(renderTable([]string{"seed", "status", "rounds", "avg error", "max error", "run"}, rows,
		slices.Index(results, best)))

	if err := writeOutputs(best, input, out); err != nil {
		return err
	}
	printResult(best, out.noCache)
	return nil
}
