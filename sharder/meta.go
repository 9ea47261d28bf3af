package sharder

import (
	"bufio"
	"fmt"
	"os"
)

// writeShardEdgeCounts persists each shard's final edge count alongside
// the intervals file, so a later process opening the shards (the engine)
// doesn't have to re-scan every adjacency file just to size its edge-value
// blocks.
func writeShardEdgeCounts(base string, numShards int, counts []uint64) error {
	f, err := os.Create(fmt.Sprintf("%s.%d.shardedges", base, numShards))
	if err != nil {
		return err
	}
	defer f.Close()
	for _, c := range counts {
		if _, err := fmt.Fprintf(f, "%d\n", c); err != nil {
			return err
		}
	}
	return nil
}

// ReadIntervals reads back a <base>.<P>.intervals file written by
// Finalize, returning the inclusive upper bound hi_p of each shard's
// destination interval.
func ReadIntervals(base string, numShards int) ([]uint32, error) {
	return readUint32Lines(fmt.Sprintf("%s.%d.intervals", base, numShards))
}

// ReadShardEdgeCounts reads back a <base>.<P>.shardedges file.
func ReadShardEdgeCounts(base string, numShards int) ([]uint64, error) {
	f, err := os.Open(fmt.Sprintf("%s.%d.shardedges", base, numShards))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []uint64
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var v uint64
		if _, err := fmt.Sscanf(sc.Text(), "%d", &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, sc.Err()
}

// ReadNumVertices reads back a <base>.numvertices file.
func ReadNumVertices(base string) (uint32, error) {
	f, err := os.Open(base + ".numvertices")
	if err != nil {
		return 0, err
	}
	defer f.Close()
	var n uint32
	if _, err := fmt.Fscanf(f, "%d", &n); err != nil {
		return 0, err
	}
	return n, nil
}

func readUint32Lines(path string) ([]uint32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []uint32
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var v uint32
		if _, err := fmt.Sscanf(sc.Text(), "%d", &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, sc.Err()
}
