package diagram

import (
	"context"
	"strings"
	"testing"
)

func outline() Outline {
	return Outline{
		Root: Vertex{Relation: "users", Kind: "graph", Label: "users", Ops: []string{"by_name"}},
		Nodes: []Vertex{
			{Relation: "tasks", Kind: "curried", Label: "tasks.for_users"},
			{Relation: "posts", Kind: "plain"},
		},
		Mappers: []string{"combine"},
	}
}

func TestToDOT(t *testing.T) {
	dot := ToDOT(outline())

	for _, want := range []string{
		"digraph G {",
		`"root" [label="users\n(graph)", fillcolor=lightblue, penwidth=2];`,
		`"node_0" [label="tasks.for_users\n(curried)", style="rounded,filled,dashed", fillcolor=lightgrey];`,
		`"node_1" [label="posts\n(plain)"];`,
		`"root" -> "node_0" [label="0"];`,
		`"root" -> "node_1" [label="1"];`,
		`"mapper_0" [label="combine", shape=ellipse, fillcolor=lightyellow];`,
		`"root" -> "mapper_0" [style=dashed];`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %s\n%s", want, dot)
		}
	}
}

func TestToDOT_NoNodes(t *testing.T) {
	dot := ToDOT(Outline{Root: Vertex{Relation: "users", Kind: "graph"}})
	if strings.Contains(dot, "->") {
		t.Errorf("empty outline should have no edges:\n%s", dot)
	}
}

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"dot", false},
		{"svg", false},
		{"png", true},
		{"SVG", true},
		{"", true},
	}
	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
	}
}

func TestRender(t *testing.T) {
	ctx := context.Background()
	dot, err := Render(ctx, outline(), FormatDOT)
	if err != nil {
		t.Fatalf("Render dot: %v", err)
	}
	if string(dot) != ToDOT(outline()) {
		t.Error("dot output should equal ToDOT")
	}

	svg, err := Render(ctx, outline(), FormatSVG)
	if err != nil {
		t.Fatalf("Render svg: %v", err)
	}
	if !strings.Contains(string(svg), `viewBox="0 0 `) {
		t.Errorf("svg viewBox not normalized: %.200s", svg)
	}

	if _, err := Render(ctx, outline(), "png"); err == nil {
		t.Error("Render should reject unknown formats")
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="10pt" height="20pt" viewBox="0.00 0.00 10.00 20.00" xmlns="x"><g/></svg>`)
	got := string(normalizeViewBox(in))
	want := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 10.00 20.00" width="10" height="20"><g/></svg>`
	if got != want {
		t.Errorf("normalizeViewBox = %s", got)
	}
	plain := []byte("<svg><g/></svg>")
	if string(normalizeViewBox(plain)) != string(plain) {
		t.Error("svg without viewBox should be unchanged")
	}
}
