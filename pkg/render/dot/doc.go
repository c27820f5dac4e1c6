// Package dot renders a constraint set as an undirected Graphviz graph.
//
// Every point becomes a node and every measurement an edge. The hub is
// drawn filled so the anchor of a run is easy to spot. When an estimate is
// supplied, edges are colored by their relative residual:
//
//	grey    within 2% of the measurement
//	orange  within 10%
//	red     worse
//
// Duplicate measurements appear as parallel edges.
//
// # Usage
//
//	src := dot.ToDOT(set, dot.Options{Labels: true, Store: res.Store})
//	svg, err := dot.RenderSVG(src)
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering. PDF and PNG conversion requires librsvg (rsvg-convert).
package dot
