package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pointfit/pkg/report"
)

// reportCommand creates the report command.
func (c *CLI) reportCommand() *cobra.Command {
	var (
		asJSON     bool
		showPoints bool
	)

	cmd := &cobra.Command{
		Use:   "report [run-id | checkpoint file]",
		Short: "Show error statistics of a saved run",
		Long: `Show error statistics of a saved run.

Nothing is recomputed: the figures come from the checkpoint. For runs with
duplicated constraints the average uses the duplicated constraint count.
With --points the normalized coordinates (each axis mapped onto [-1, 1]) are
listed as well.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runReport(cmd.Context(), args[0], asJSON, showPoints)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	cmd.Flags().BoolVar(&showPoints, "points", false, "list normalized coordinates")

	return cmd
}

func (c *CLI) runReport(ctx context.Context, ref string, asJSON, showPoints bool) error {
	runner, err := c.newRunner(ctx, false)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	cp, err := c.loadCheckpoint(ctx, runner, ref)
	if err != nil {
		return err
	}
	rep, err := report.FromCheckpoint(cp)
	if err != nil {
		return fmt.Errorf("build report: %w", err)
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}

	fmt.Println(StyleTitle.Render("Run " + rep.RunID))
	printKeyValue("status", rep.Status.String())
	printKeyValue("rounds", fmt.Sprint(rep.Rounds))
	printKeyValue("constraints", fmt.Sprint(rep.Summary.Constraints))
	printSummary(rep.Summary, cp.Hub.ID)
	printKeyValue("center distance", formatError(rep.CenterDistance))

	if showPoints {
		rows := make([][]string, len(rep.Points))
		for i, p := range rep.Points {
			rows[i] = []string{p.ID, formatCoord(p.X), formatCoord(p.Y), formatCoord(p.Z)}
		}
		printNewline()
		fmt.Println(renderTable([]string{"point", "x", "y", "z"}, rows, -1))
	}
	return nil
}
