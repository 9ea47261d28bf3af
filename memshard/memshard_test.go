package memshard

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/kestrelgraph/pswgraph/shardfmt"
	"github.com/kestrelgraph/pswgraph/sharder"
)

// buildShard runs the sharder over a tiny fixed edge set and returns the
// base path and shard layout info, for memshard tests to load directly.
func buildShard(t *testing.T) (base string, numShards int, blockSize shardfmt.BlockSize) {
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
	return base, 2, blockSize
}

func TestShardLoadInvertsAdjacencyByDestination(t *testing.T) {
	base, numShards, blockSize := buildShard(t)

	// Shard 0 owns destinations [0,2]; load it with the narrower range
	// [0,1] and check every in-edge it should see for those destinations
	// is present, keyed by destination rather than source.
	adjPath := fmt.Sprintf("%s.shard.%d_of_%d.adj", base, 0, numShards)
	edataDir := shardfmt.EdataDir(base, 0, numShards, blockSize)
	bc, err := shardfmt.NewBlockCodec(false)
	if err != nil {
		t.Fatalf("NewBlockCodec: %v", err)
	}
	defer bc.Close()

	valuesPerBlock := int(blockSize) / (shardfmt.Uint32{}).ByteSize()

	shard, err := Load[shardfmt.Uint32, *shardfmt.Uint32](adjPath, edataDir, bc, valuesPerBlock, 0, 1)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// Edges (3,0) and (0,1) land in the loaded range [0,1]: 0 is a
	// destination of 3 only, and 1 is a destination of 0 only.
	in0 := shard.InEdges(0)
	if len(in0) != 1 || in0[0].Src != 3 {
		t.Fatalf("InEdges(0) = %+v, want one in-edge from src 3", in0)
	}
	in1 := shard.InEdges(1)
	if len(in1) != 1 || in1[0].Src != 0 {
		t.Fatalf("InEdges(1) = %+v, want one in-edge from src 0", in1)
	}

	// The value at the recorded ValIdx must match what was written: edge
	// (3,0) was the 4th AddEdgeWithValue call, value 3.
	if got := shard.Values[in0[0].ValIdx].Value; got != 3 {
		t.Fatalf("edge (3,0) value = %d, want 3", got)
	}
}

func TestShardOutEdgesIndexesSameShardSources(t *testing.T) {
	base, numShards, blockSize := buildShard(t)
	adjPath := fmt.Sprintf("%s.shard.%d_of_%d.adj", base, 0, numShards)
	edataDir := shardfmt.EdataDir(base, 0, numShards, blockSize)
	bc, err := shardfmt.NewBlockCodec(false)
	if err != nil {
		t.Fatalf("NewBlockCodec: %v", err)
	}
	defer bc.Close()
	valuesPerBlock := int(blockSize) / (shardfmt.Uint32{}).ByteSize()

	// Shard 0's real destination interval is [0,2]: (3,0), (0,1), (1,2).
	// Loading with that true boundary lets OutEdges surface src 0's and
	// src 1's out-edges, both of which land inside this same shard.
	shard, err := Load[shardfmt.Uint32, *shardfmt.Uint32](adjPath, edataDir, bc, valuesPerBlock, 0, 2)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	out0 := shard.OutEdges(0)
	if len(out0) != 1 || out0[0].Dst != 1 {
		t.Fatalf("OutEdges(0) = %+v, want one out-edge to dst 1", out0)
	}
	out1 := shard.OutEdges(1)
	if len(out1) != 1 || out1[0].Dst != 2 {
		t.Fatalf("OutEdges(1) = %+v, want one out-edge to dst 2", out1)
	}
	// src 2's only out-edge (2,3) lands in the other shard -- nothing to
	// surface here.
	if out2 := shard.OutEdges(2); len(out2) != 0 {
		t.Fatalf("OutEdges(2) = %+v, want none", out2)
	}

	if got := shard.Values[out0[0].ValIdx].Value; got != 0 {
		t.Fatalf("edge (0,1) value = %d, want 0", got)
	}
}

func TestShardWriteBackRoundTrips(t *testing.T) {
	base, numShards, blockSize := buildShard(t)
	adjPath := fmt.Sprintf("%s.shard.%d_of_%d.adj", base, 0, numShards)
	edataDir := shardfmt.EdataDir(base, 0, numShards, blockSize)
	bc, err := shardfmt.NewBlockCodec(false)
	if err != nil {
		t.Fatalf("NewBlockCodec: %v", err)
	}
	defer bc.Close()
	valuesPerBlock := int(blockSize) / (shardfmt.Uint32{}).ByteSize()

	shard, err := Load[shardfmt.Uint32, *shardfmt.Uint32](adjPath, edataDir, bc, valuesPerBlock, 0, 1)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for i := range shard.Values {
		shard.Values[i].Value += 100
	}
	if err := shard.WriteBack(edataDir, bc, valuesPerBlock); err != nil {
		t.Fatalf("WriteBack: %v", err)
	}

	reloaded, err := Load[shardfmt.Uint32, *shardfmt.Uint32](adjPath, edataDir, bc, valuesPerBlock, 0, 1)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	for i := range shard.Values {
		if reloaded.Values[i].Value != shard.Values[i].Value {
			t.Fatalf("value %d = %d, want %d", i, reloaded.Values[i].Value, shard.Values[i].Value)
		}
	}
}
