package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	pfio "github.com/matzehuels/pointfit/pkg/io"
	"github.com/matzehuels/pointfit/pkg/render/dot"
)

// Graph output formats.
const (
	formatDOT = "dot"
	formatSVG = "svg"
	formatPDF = "pdf"
	formatPNG = "png"
)

// validFormats is the set of supported graph output formats.
var validFormats = map[string]bool{formatDOT: true, formatSVG: true, formatPDF: true, formatPNG: true}

// graphCommand creates the graph command that draws the constraint graph.
func (c *CLI) graphCommand() *cobra.Command {
	var (
		output     string
		formatsStr string
		run        string
		labels     bool
	)

	cmd := &cobra.Command{
		Use:   "graph [constraints.csv]",
		Short: "Draw the constraint graph",
		Long: `Draw the constraint graph with Graphviz.

The hub (the point with the most measurements, which never moves during an
estimate) is highlighted. With --run the edges are colored by how well that
run's estimate satisfies each measurement: grey within 2%, orange within 10%,
red otherwise.

PDF and PNG output require rsvg-convert.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formats := parseFormats(formatsStr)
			if err := validateFormats(formats); err != nil {
				return err
			}
			return c.runGraph(cmd.Context(), args[0], output, formats, run, labels)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output base path (default: <input>.graph)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), dot, pdf, png (comma-separated)")
	cmd.Flags().StringVar(&run, "run", "", "run id or checkpoint file whose estimate colors the edges")
	cmd.Flags().BoolVar(&labels, "labels", false, "label edges with measured distances")

	return cmd
}

func (c *CLI) runGraph(ctx context.Context, input, output string, formats []string, run string, labels bool) error {
	set, err := pfio.ImportConstraints(input)
	if err != nil {
		return fmt.Errorf("load constraints %s: %w", input, err)
	}

	opts := dot.Options{Labels: labels}
	if run != "" {
		runner, err := c.newRunner(ctx, false)
		if err != nil {
			return fmt.Errorf("initialize runner: %w", err)
		}
		defer runner.Close()
		cp, err := c.loadCheckpoint(ctx, runner, run)
		if err != nil {
			return err
		}
		if opts.Store, err = cp.Store(); err != nil {
			return err
		}
	}

	src := dot.ToDOT(set, opts)
	base := output
	if base == "" {
		base = strings.TrimSuffix(input, filepath.Ext(input)) + ".graph"
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))

	for _, format := range formats {
		data, err := renderGraph(src, format)
		if err != nil {
			return fmt.Errorf("render %s: %w", format, err)
		}
		path := base + "." + format
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		printFile(path)
	}
	printSuccess("Drew %d points and %d constraints", len(set.Points()), set.Len())
	return nil
}

func renderGraph(src, format string) ([]byte, error) {
	switch format {
	case formatDOT:
		return []byte(src), nil
	case formatPDF:
		return dot.RenderPDF(src)
	case formatPNG:
		return dot.RenderPNG(src, 2.0)
	default:
		return dot.RenderSVG(src)
	}
}

// parseFormats parses the --format flag into a slice of output formats.
// If empty, defaults to ["svg"].
func parseFormats(s string) []string {
	if s == "" {
		return []string{formatSVG}
	}
	return strings.Split(s, ",")
}

// validateFormats checks that all requested formats are valid.
func validateFormats(formats []string) error {
	for _, f := range formats {
		if !validFormats[f] {
			return fmt.Errorf("invalid format: %s (must be 'svg', 'dot', 'pdf', or 'png')", f)
		}
	}
	return nil
}
