// Package render provides output conversion shared by pointfit's
// renderers.
//
// The [ToPDF] and [ToPNG] functions convert any SVG to other formats using
// the external rsvg-convert tool (from librsvg).
//
// The [dot] subpackage draws the measurement graph of a constraint set
// with Graphviz:
//
//	src := dot.ToDOT(set, dot.Options{Labels: true})
//	svg, err := dot.RenderSVG(src)
//	png, err := render.ToPNG(svg, 2.0)  // 2x scale
//
// [dot]: github.com/matzehuels/pointfit/pkg/render/dot
package render
