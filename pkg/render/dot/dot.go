package dot

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/pointfit/pkg/constraint"
	"github.com/matzehuels/pointfit/pkg/errors"
	"github.com/matzehuels/pointfit/pkg/points"
	"github.com/matzehuels/pointfit/pkg/render"
)

// Options configures graph rendering.
type Options struct {
	// Labels adds the measured distance to every edge.
	Labels bool
	// Store, if set, colors edges by how well it satisfies each measurement.
	Store *points.Store
}

// Residual thresholds for edge coloring, relative to the measurement.
const (
	goodResidual = 0.02
	fairResidual = 0.10
)

// ToDOT converts a constraint set to Graphviz DOT source.
func ToDOT(set *constraint.Set, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("graph G {\n")
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  overlap=false;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=circle, style=filled, fillcolor=white, fontsize=14];\n")
	buf.WriteString("  edge [color=grey40, fontsize=10];\n")
	buf.WriteString("\n")

	hub, _ := constraint.SelectHub(set)
	for _, id := range set.Points() {
		attrs := []string{fmt.Sprintf("label=%q", id)}
		if id == hub.ID {
			attrs = append(attrs, "fillcolor=\"#f4a261\"", "penwidth=2")
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", id, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, c := range set.Entries() {
		attrs := fmtEdgeAttrs(c, opts)
		if len(attrs) == 0 {
			fmt.Fprintf(&buf, "  %q -- %q;\n", c.From, c.To)
			continue
		}
		fmt.Fprintf(&buf, "  %q -- %q [%s];\n", c.From, c.To, strings.Join(attrs, ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtEdgeAttrs(c constraint.Constraint, opts Options) []string {
	var attrs []string
	if opts.Labels {
		attrs = append(attrs, fmt.Sprintf("label=%q", strconv.FormatFloat(c.Distance, 'g', 4, 64)))
	}
	if opts.Store == nil {
		return attrs
	}
	a, okA := opts.Store.Get(c.From)
	b, okB := opts.Store.Get(c.To)
	if !okA || !okB {
		return attrs
	}
	return append(attrs, "color="+residualColor(points.Distance(a, b), c.Distance))
}

func residualColor(estimated, measured float64) string {
	diff := math.Abs(estimated - measured)
	rel := diff
	if measured > 0 {
		rel = diff / measured
	}
	switch {
	case rel <= goodResidual:
		return "grey40"
	case rel <= fairResidual:
		return "orange"
	default:
		return "red"
	}
}

// RenderSVG renders DOT source to SVG using Graphviz.
// Returns the SVG bytes ready for display or further conversion with [render.ToPDF] or [render.ToPNG].
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "init graphviz")
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse DOT")
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "render")
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the root element to a zero-origin viewBox with
// matching width and height.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}

// RenderPDF renders DOT source as PDF via SVG conversion.
func RenderPDF(dot string) ([]byte, error) {
	svg, err := RenderSVG(dot)
	if err != nil {
		return nil, err
	}
	return render.ToPDF(svg)
}

// RenderPNG renders DOT source as PNG via SVG conversion.
// A scale of 2.0 produces a 2x resolution image suitable for high-DPI displays.
func RenderPNG(dot string, scale float64) ([]byte, error) {
	svg, err := RenderSVG(dot)
	if err != nil {
		return nil, err
	}
	return render.ToPNG(svg, scale)
}
