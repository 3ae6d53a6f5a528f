// Package diagram draws the composition of a query: the root relation, its
// children and the mappers applied to the combined result.
//
// [ToDOT] produces Graphviz DOT text; [RenderSVG] lays it out with the
// bundled Graphviz library:
//
//	dot := diagram.ToDOT(outline)
//	svg, err := diagram.RenderSVG(ctx, dot)
package diagram

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	errs "github.com/matzehuels/relgraph/pkg/errors"
)

// Output formats.
const (
	FormatDOT = "dot"
	FormatSVG = "svg"
)

// Vertex is one relation in an outline.
type Vertex struct {
	// Relation is the registered relation name.
	Relation string `json:"relation"`
	// Kind is the relation variant: plain, curried, composite or graph.
	Kind string `json:"kind"`
	// Label describes the relation after its operations, e.g. "tasks.for_users".
	Label string `json:"label"`
	// Ops are the operation names applied, in order.
	Ops []string `json:"ops,omitempty"`
}

// Outline is the shape of a composed query.
type Outline struct {
	Root    Vertex   `json:"root"`
	Nodes   []Vertex `json:"nodes"`
	Mappers []string `json:"mappers,omitempty"`
}

// ValidateFormat checks that format is dot or svg.
func ValidateFormat(format string) error {
	switch format {
	case FormatDOT, FormatSVG:
		return nil
	}
	return errs.New(errs.ErrCodeInvalidInput, "invalid diagram format %q (must be one of: dot, svg)", format)
}

// ToDOT converts an outline to Graphviz DOT. The root points at each child
// with an edge labelled by the child's position; mappers hang off the root
// in application order.
func ToDOT(o Outline) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("\n")

	fmt.Fprintf(&buf, "  %q [%s];\n", "root", strings.Join(attrs(o.Root, true), ", "))
	for i, n := range o.Nodes {
		fmt.Fprintf(&buf, "  %q [%s];\n", nodeID(i), strings.Join(attrs(n, false), ", "))
	}
	prev := "root"
	for i, m := range o.Mappers {
		id := "mapper_" + strconv.Itoa(i)
		fmt.Fprintf(&buf, "  %q [label=%q, shape=ellipse, fillcolor=lightyellow];\n", id, m)
		fmt.Fprintf(&buf, "  %q -> %q [style=dashed];\n", prev, id)
		prev = id
	}

	buf.WriteString("\n")
	for i := range o.Nodes {
		fmt.Fprintf(&buf, "  %q -> %q [label=%q];\n", "root", nodeID(i), strconv.Itoa(i))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeID(i int) string { return "node_" + strconv.Itoa(i) }

func attrs(v Vertex, root bool) []string {
	label := v.Label
	if label == "" {
		label = v.Relation
	}
	out := []string{fmt.Sprintf("label=%q", label+"\n("+v.Kind+")")}
	switch {
	case root:
		out = append(out, "fillcolor=lightblue", "penwidth=2")
	case v.Kind == "curried":
		out = append(out, "style=\"rounded,filled,dashed\"", "fillcolor=lightgrey")
	}
	return out
}

// RenderSVG lays out a DOT graph and renders it as SVG.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInternal, err, "init graphviz")
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "parse DOT")
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInternal, err, "render")
	}
	return normalizeViewBox(buf.Bytes()), nil
}

// Render returns the outline in format.
func Render(ctx context.Context, o Outline, format string) ([]byte, error) {
	if err := ValidateFormat(format); err != nil {
		return nil, err
	}
	dot := ToDOT(o)
	if format == FormatDOT {
		return []byte(dot), nil
	}
	return RenderSVG(ctx, dot)
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's point-based svg header with one whose
// viewBox starts at the origin, so the diagram scales in a browser.
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

	header := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(header))
}
