package regions

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/blobstack/pkg/volume"
)

// Edge connects two regions that share at least one voxel face. A < B.
type Edge struct {
	A, B uint32
	// Contacts is the number of face-adjacent voxel pairs between A and B.
	Contacts int
}

// Adjacency returns the region adjacency edges of labels, sorted by (A, B).
// Two regions are adjacent when a voxel of one shares a face with a voxel of
// the other. Background is not a region.
func Adjacency(labels *volume.Volume) []Edge {
	s := labels.Shape
	counts := make(map[[2]uint32]int)
	add := func(a, b uint32) {
		if a == 0 || b == 0 || a == b {
			return
		}
		if a > b {
			a, b = b, a
		}
		counts[[2]uint32{a, b}]++
	}

	for i, l := range labels.Data {
		z, y, x := s.Coords(i)
		if x+1 < s.X {
			add(l, labels.Data[i+1])
		}
		if y+1 < s.Y {
			add(l, labels.Data[i+s.X])
		}
		if z+1 < s.Z {
			add(l, labels.Data[i+s.X*s.Y])
		}
	}

	edges := make([]Edge, 0, len(counts))
	for k, n := range counts {
		edges = append(edges, Edge{A: k[0], B: k[1], Contacts: n})
	}
	slices.SortFunc(edges, func(a, b Edge) int {
		return cmp.Or(cmp.Compare(a.A, b.A), cmp.Compare(a.B, b.B))
	})
	return edges
}

// ToDOT converts the table and its adjacency edges to an undirected Graphviz
// graph. Nodes are labelled with the region ID and area; edge weights are
// contact counts.
func ToDOT(t *Table, edges []Edge) string {
	var buf bytes.Buffer
	buf.WriteString("graph regions {\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=circle, style=filled, fillcolor=white, fontsize=12];\n")
	buf.WriteString("\n")

	for _, r := range t.Rows {
		fmt.Fprintf(&buf, "  r%d [label=\"%d\\n%d vx\"];\n", r.ID, r.ID, r.Area)
	}

	buf.WriteString("\n")
	for _, e := range edges {
		fmt.Fprintf(&buf, "  r%d -- r%d [weight=%d, label=\"%d\"];\n", e.A, e.B, e.Contacts, e.Contacts)
	}

	buf.WriteString("}\n")
	return buf.String()
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
