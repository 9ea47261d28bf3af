package main

import (
	"path/filepath"
	"testing"

	"github.com/kestrelgraph/pswgraph/engine"
	"github.com/kestrelgraph/pswgraph/shardfmt"
	"github.com/kestrelgraph/pswgraph/sharder"
)

// buildTinyCCGraph shards (0,1)(1,2)(3,4)(4,5)(5,3): two components, the
// path {0,1,2} and the triangle {3,4,5}.
func buildTinyCCGraph(t *testing.T) (base string, blockSize shardfmt.BlockSize) {
	t.Helper()
	dir := t.TempDir()
	base = filepath.Join(dir, "g")
	blockSize = 64

	s := sharder.New[shardfmt.Uint32, *shardfmt.Uint32](sharder.Options{
		BasePath:  base,
		NumShards: 2,
		BlockSize: blockSize,
	})
	edges := [][2]uint32{{0, 1}, {1, 2}, {3, 4}, {4, 5}, {5, 3}}
	for _, e := range edges {
		if err := s.AddEdge(e[0], e[1]); err != nil {
			t.Fatalf("AddEdge: %v", err)
		}
	}
	if _, err := s.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	return base, blockSize
}

func TestCCConvergesOnTwoComponents(t *testing.T) {
	base, blockSize := buildTinyCCGraph(t)

	opts := engine.Options{
		BasePath:      base,
		NumShards:     2,
		NumIterations: 4,
		ExecThreads:   2,
		IOThreads:     2,
		BlockSize:     blockSize,
	}
	g, err := engine.Open[shardfmt.Uint32, shardfmt.Uint32, *shardfmt.Uint32, *shardfmt.Uint32](opts)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer g.Close()

	if err := g.Run(CC{}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	stored, err := g.VertexData(0, g.NumVertices()-1)
	if err != nil {
		t.Fatalf("VertexData: %v", err)
	}

	labels := make([]uint32, len(stored))
	for id, v := range stored {
		labels[id] = Label(v.Value)
	}
	want := []uint32{0, 0, 0, 3, 3, 3}
	for id, l := range labels {
		if l != want[id] {
			t.Fatalf("vertex %d label = %d, want %d", id, l, want[id])
		}
	}
}
