package slidingshard

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/kestrelgraph/pswgraph/shardfmt"
	"github.com/kestrelgraph/pswgraph/sharder"
	"github.com/kestrelgraph/pswgraph/stripedio"
)

func buildShard(t *testing.T) (base string, numShards int, blockSize shardfmt.BlockSize, totalEdgesShard0 int) {
	t.Helper()
	dir := t.TempDir()
	base = filepath.Join(dir, "g")
	blockSize = 64
	s := sharder.New[shardfmt.Uint32, *shardfmt.Uint32](sharder.Options{
		BasePath:  base,
		NumShards: 2,
		BlockSize: blockSize,
	})
	edges := [][2]uint32{{0, 1}, {1, 2}, {2, 3}, {3, 0}, {1, 3}}
	for i, e := range edges {
		if err := s.AddEdgeWithValue(e[0], e[1], shardfmt.Uint32{Value: uint32(i)}); err != nil {
			t.Fatalf("AddEdgeWithValue: %v", err)
		}
	}
	if _, err := s.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	// Shard 0 ends up owning destinations [0,2]: (3,0), (0,1), (1,2).
	return base, 2, blockSize, 3
}

func TestReadNextVerticesRespectsWindowEnd(t *testing.T) {
	base, numShards, blockSize, totalEdges := buildShard(t)
	adjPath := fmt.Sprintf("%s.shard.%d_of_%d.adj", base, 0, numShards)
	edataDir := shardfmt.EdataDir(base, 0, numShards, blockSize)
	bc, err := shardfmt.NewBlockCodec(false)
	if err != nil {
		t.Fatalf("NewBlockCodec: %v", err)
	}
	defer bc.Close()
	valuesPerBlock := int(blockSize) / (shardfmt.Uint32{}).ByteSize()

	mgr := stripedio.NewManager(stripedio.Options{})
	defer mgr.Close()

	shard, err := Open[shardfmt.Uint32, *shardfmt.Uint32](mgr, adjPath, edataDir, bc, valuesPerBlock, totalEdges)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer shard.Close()

	// Sources in shard 0's adjacency are 0..3 (dense over the whole graph,
	// I2); windowEnd=1 should surface src 0 and src 1 only, leaving src 2
	// (no out-edge within this shard) and src 3 (edge 3->0) for later.
	win, err := shard.ReadNextVertices(10, 1, false)
	if err != nil {
		t.Fatalf("ReadNextVertices: %v", err)
	}
	if len(win) != 2 {
		t.Fatalf("got %d windows, want 2 (src 0 and src 1): %+v", len(win), win)
	}
	if win[0].Src != 0 || len(win[0].OutEdges) != 1 || win[0].OutEdges[0].Dst != 1 {
		t.Fatalf("window 0 = %+v, want src 0 -> dst 1", win[0])
	}
	if win[1].Src != 1 || len(win[1].OutEdges) != 1 || win[1].OutEdges[0].Dst != 2 {
		t.Fatalf("window 1 = %+v, want src 1 -> dst 2", win[1])
	}

	win2, err := shard.ReadNextVertices(10, 10, false)
	if err != nil {
		t.Fatalf("ReadNextVertices (second call): %v", err)
	}
	if !shard.Done() {
		t.Fatalf("expected adjacency stream exhausted after reading the rest")
	}
	var sawSrc3 bool
	for _, w := range win2 {
		if w.Src == 3 {
			sawSrc3 = true
			if len(w.OutEdges) != 1 || w.OutEdges[0].Dst != 0 {
				t.Fatalf("src 3 window = %+v, want dst 0", w)
			}
		}
	}
	if !sawSrc3 {
		t.Fatalf("expected to see src 3 (edge 3->0) in second window batch: %+v", win2)
	}
}

func TestSetValueAndCommitRoundTrips(t *testing.T) {
	base, numShards, blockSize, totalEdges := buildShard(t)
	adjPath := fmt.Sprintf("%s.shard.%d_of_%d.adj", base, 0, numShards)
	edataDir := shardfmt.EdataDir(base, 0, numShards, blockSize)
	bc, err := shardfmt.NewBlockCodec(false)
	if err != nil {
		t.Fatalf("NewBlockCodec: %v", err)
	}
	defer bc.Close()
	valuesPerBlock := int(blockSize) / (shardfmt.Uint32{}).ByteSize()

	mgr := stripedio.NewManager(stripedio.Options{})
	defer mgr.Close()

	shard, err := Open[shardfmt.Uint32, *shardfmt.Uint32](mgr, adjPath, edataDir, bc, valuesPerBlock, totalEdges)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	win, err := shard.ReadNextVertices(10, 3, false)
	if err != nil {
		t.Fatalf("ReadNextVertices: %v", err)
	}
	var edgeFromSrc0 OutEdge
	for _, w := range win {
		if w.Src == 0 {
			edgeFromSrc0 = w.OutEdges[0]
		}
	}
	shard.SetValue(edgeFromSrc0.ValIdx, shardfmt.Uint32{Value: 999})
	if err := shard.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := shard.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open[shardfmt.Uint32, *shardfmt.Uint32](mgr, adjPath, edataDir, bc, valuesPerBlock, totalEdges)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if _, err := reopened.ReadNextVertices(10, 3, false); err != nil {
		t.Fatalf("ReadNextVertices after reopen: %v", err)
	}
	if got := reopened.Value(edgeFromSrc0.ValIdx); got.Value != 999 {
		t.Fatalf("value after commit+reopen = %d, want 999", got.Value)
	}
}
