package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	pfio "github.com/matzehuels/pointfit/pkg/io"
	"github.com/matzehuels/pointfit/pkg/synthetic"
)

// generateCommand creates the generate command for synthetic test data.
func (c *CLI) generateCommand() *cobra.Command {
	var (
		output string
		truth  string
		shape  string
	)
	opts := synthetic.Options{
		Points:   synthetic.DefaultPoints,
		Fraction: synthetic.DefaultFraction,
		Seed:     1,
	}

	shapes := make([]string, len(synthetic.Shapes))
	for i, s := range synthetic.Shapes {
		shapes[i] = string(s)
	}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a synthetic constraint file",
		Long: `Generate a synthetic constraint file.

Points P1..Pn are sampled from a shape and a fraction of all point pairs is
measured. Every point gets at least one measurement. With --noise each
distance is scaled by 1-U(-noise, noise).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Shape = synthetic.Shape(shape)
			ds, err := synthetic.Generate(opts)
			if err != nil {
				return err
			}
			if err := pfio.ExportConstraints(output, ds.Constraints); err != nil {
				return fmt.Errorf("write constraints %s: %w", output, err)
			}
			printSuccess("Generated %d constraints over %d points (%s)", len(ds.Constraints), ds.Truth.Len(), shape)
			printFile(output)
			if truth != "" {
				if err := pfio.ExportPoints(truth, ds.Truth); err != nil {
					return fmt.Errorf("write truth %s: %w", truth, err)
				}
				printFile(truth)
			}
			printNewline()
			printNextStep("Estimate", fmt.Sprintf("%s estimate %s", appName, output))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "constraints.csv", "constraints output file")
	cmd.Flags().StringVar(&truth, "truth", "", "also write the true coordinates to this file")
	cmd.Flags().StringVar(&shape, "shape", string(synthetic.Cube), "point distribution: "+strings.Join(shapes, ", "))
	cmd.Flags().IntVarP(&opts.Points, "points", "n", opts.Points, "number of points")
	cmd.Flags().Float64Var(&opts.Fraction, "fraction", opts.Fraction, "share of point pairs to measure")
	cmd.Flags().Float64Var(&opts.Noise, "noise", 0, "relative measurement noise")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", opts.Seed, "random seed")

	_ = cmd.RegisterFlagCompletionFunc("shape", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return shapes, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}
