package main

import (
	"path/filepath"
	"testing"

	"github.com/kestrelgraph/pswgraph/engine"
	"github.com/kestrelgraph/pswgraph/shardfmt"
	"github.com/kestrelgraph/pswgraph/sharder"
)

// buildMSFGraph shards the weighted 4-cycle (0,1,1.0)(1,2,2.0)(2,3,3.0)
// (3,0,4.0): the minimum spanning forest drops the heaviest edge (3,0),
// keeping (0,1),(1,2),(2,3) for a total weight of 6.0.
func buildMSFGraph(t *testing.T) (base string, blockSize shardfmt.BlockSize) {
	t.Helper()
	dir := t.TempDir()
	base = filepath.Join(dir, "g")
	blockSize = 64

	s := sharder.New[MSFEdge, *MSFEdge](sharder.Options{
		BasePath:  base,
		NumShards: 2,
		BlockSize: blockSize,
	})
	type weighted struct {
		Src, Dst uint32
		W        float64
	}
	edges := []weighted{
		{0, 1, 1.0},
		{1, 2, 2.0},
		{2, 3, 3.0},
		{3, 0, 4.0},
	}
	for _, e := range edges {
		if err := s.AddEdgeWithValue(e.Src, e.Dst, MSFEdge{Weight: e.W}); err != nil {
			t.Fatalf("AddEdgeWithValue: %v", err)
		}
	}
	if _, err := s.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	return base, blockSize
}

func TestMSFSelectsMinimumSpanningForestOnCycle(t *testing.T) {
	base, blockSize := buildMSFGraph(t)

	opts := engine.Options{
		BasePath:      base,
		NumShards:     2,
		NumIterations: 8,
		ExecThreads:   2,
		IOThreads:     2,
		BlockSize:     blockSize,
	}
	g, err := engine.Open[MSFVertex, MSFEdge, *MSFVertex, *MSFEdge](opts)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer g.Close()

	if err := g.Run(MSF{}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	n := g.NumVertices()
	vertices, err := g.VertexData(0, n-1)
	if err != nil {
		t.Fatalf("VertexData: %v", err)
	}

	forest, totalWeight := combineForest(n, vertices)
	if len(forest) != 3 {
		t.Fatalf("forest has %d edges, want 3", len(forest))
	}
	if totalWeight != 6.0 {
		t.Fatalf("forest weight = %v, want 6.0", totalWeight)
	}

	want := map[[2]uint32]bool{{0, 1}: true, {1, 2}: true, {2, 3}: true}
	for _, e := range forest {
		if !want[[2]uint32{e.U, e.V}] {
			t.Fatalf("unexpected forest edge (%d,%d)", e.U, e.V)
		}
	}
}
