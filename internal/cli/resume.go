package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pointfit/pkg/checkpoint"
	pfio "github.com/matzehuels/pointfit/pkg/io"
	"github.com/matzehuels/pointfit/pkg/pipeline"
)

// resumeCommand creates the resume command.
func (c *CLI) resumeCommand() *cobra.Command {
	var (
		constraints string
		maxRounds   int
		out         outputOpts
	)

	cmd := &cobra.Command{
		Use:   "resume [run-id | checkpoint file]",
		Short: "Continue a checkpointed run",
		Long: `Continue a checkpointed run.

The argument is either a run id printed by 'estimate' or a checkpoint file
written with --checkpoint. The constraints must be the file the run was
started with. Use --max-rounds to extend a run that hit its round limit.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runResume(cmd.Context(), args[0], constraints, maxRounds, out)
		},
	}

	cmd.Flags().StringVarP(&constraints, "constraints", "c", "", "constraints file the run was started with (required)")
	cmd.Flags().IntVar(&maxRounds, "max-rounds", 0, "new round limit (default: keep the saved limit)")
	out.register(cmd)
	_ = cmd.MarkFlagRequired("constraints")

	return cmd
}

func (c *CLI) runResume(ctx context.Context, ref, constraints string, maxRounds int, out outputOpts) error {
	set, err := pfio.ImportConstraints(constraints)
	if err != nil {
		return fmt.Errorf("load constraints %s: %w", constraints, err)
	}

	runner, err := c.newRunner(ctx, out.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	cp, err := c.loadCheckpoint(ctx, runner, ref)
	if err != nil {
		return err
	}

	opts := pipeline.Options{MaxRounds: maxRounds, Logger: c.Logger}
	res, err := c.execute(ctx, opts, out.tui, func(ctx context.Context, opts pipeline.Options) (*pipeline.Result, error) {
		return runner.ResumeFrom(ctx, cp, set, opts)
	})
	if err != nil && res == nil {
		return fmt.Errorf("resume: %w", err)
	}
	if werr := writeOutputs(res, constraints, out); werr != nil {
		return werr
	}
	printResult(res, out.noCache)
	return err
}

// loadCheckpoint reads ref as a checkpoint file if one exists at that path,
// and otherwise as a run id.
func (c *CLI) loadCheckpoint(ctx context.Context, runner *pipeline.Runner, ref string) (checkpoint.State, error) {
	if info, err := os.Stat(ref); err == nil && !info.IsDir() {
		c.Logger.Debug("reading checkpoint file", "path", ref)
		return checkpoint.ReadFile(ref)
	}
	cp, err := runner.Load(ctx, ref)
	if err != nil {
		return checkpoint.State{}, fmt.Errorf("load run %s: %w", ref, err)
	}
	return cp, nil
}
