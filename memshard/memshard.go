// Package memshard implements the PSW engine's memory shard (spec.md
// §4.4, component C6): the one shard fully loaded for the current
// execution interval. It inverts the adjacency file's src-major layout
// into a dst-major index so a vertex in the execution interval can find
// all of its in-edges, and the slot holding each edge's value, in time
// proportional to its own in-degree rather than the shard's total size.
package memshard

import (
	"os"

	"github.com/kestrelgraph/pswgraph/shardfmt"
)

// InEdge is one in-edge of a vertex inside the memory shard's interval:
// the neighboring source vertex, and the index into Values holding the
// edge's current value.
type InEdge struct {
	Src    uint32
	ValIdx uint32
}

// OutEdge is one out-edge of a vertex inside the memory shard's interval
// whose destination also falls in [Lo, Hi] -- a same-shard out-edge,
// surfaced without a sliding-shard read since the memory shard's own
// blob already holds its value.
type OutEdge struct {
	Dst    uint32
	ValIdx uint32
}

// ShardOf is one fully-loaded destination-interval shard: every in-edge
// for every vertex in [Lo, Hi], and the edge values themselves in the
// exact order the adjacency codec enumerated them (I3). Values is mutated
// directly by vertex programs and written back whole at commit time
// (spec.md §4.4, §4.6 step c). E is the edge value type; PE its Codec.
type ShardOf[E any, PE shardfmt.Codec[E]] struct {
	Lo, Hi uint32

	Values   []E
	inEdges  [][]InEdge
	outEdges [][]OutEdge
}

// Load reads shard p's adjacency file and all of its edge-value blocks,
// covering exactly the destination interval [lo, hi], and builds both the
// dst-major in-edge index and the src-major same-shard out-edge index:
// the shard's own file is already dense over every source id (I2), so a
// source vertex's out-edges landing inside [lo, hi] can be grouped by
// source during the same scan that builds the in-edge index, without a
// second pass or a separate sliding-shard reader.
func Load[E any, PE shardfmt.Codec[E]](adjPath string, edataDir string, bc *shardfmt.BlockCodec, valuesPerBlock int, lo, hi uint32) (*ShardOf[E, PE], error) {
	s := &ShardOf[E, PE]{Lo: lo, Hi: hi}
	s.inEdges = make([][]InEdge, hi-lo+1)
	s.outEdges = make([][]OutEdge, hi-lo+1)

	adjFile, err := os.Open(adjPath)
	if err != nil {
		return nil, err
	}
	defer adjFile.Close()
	ar := shardfmt.NewAdjacencyReader(adjFile)

	var valIdx uint32
	for {
		src, dsts, ok, err := ar.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		srcInRange := src >= lo && src <= hi
		for _, d := range dsts {
			if d >= lo && d <= hi {
				s.inEdges[d-lo] = append(s.inEdges[d-lo], InEdge{Src: src, ValIdx: valIdx})
			}
			if srcInRange {
				s.outEdges[src-lo] = append(s.outEdges[src-lo], OutEdge{Dst: d, ValIdx: valIdx})
			}
			valIdx++
		}
	}

	total := int(valIdx)
	s.Values = make([]E, total)
	loaded := 0
	for i := 0; loaded < total; i++ {
		count := valuesPerBlock
		if total-loaded < count {
			count = total - loaded
		}
		block, err := shardfmt.ReadBlockFile[E, PE](edataDir, i, bc, count)
		if err != nil {
			return nil, err
		}
		copy(s.Values[loaded:loaded+count], block)
		loaded += count
	}

	return s, nil
}

// InEdges returns the in-edge list for destination vertex v, which must
// satisfy Lo <= v <= Hi.
func (s *ShardOf[E, PE]) InEdges(v uint32) []InEdge {
	return s.inEdges[v-s.Lo]
}

// OutEdges returns vertex v's out-edges that land inside this same shard,
// which must satisfy Lo <= v <= Hi. Out-edges landing in other shards are
// not covered here; the engine retrieves those from the other shards'
// sliding-shard cursors.
func (s *ShardOf[E, PE]) OutEdges(v uint32) []OutEdge {
	return s.outEdges[v-s.Lo]
}

// Value returns the current value of the out-edge/in-edge at valIdx.
// Shared method name/signature with slidingshard.Shard so engine code can
// address either kind of shard through one small interface.
func (s *ShardOf[E, PE]) Value(valIdx uint32) E {
	return s.Values[valIdx]
}

// SetValue mutates the edge value at valIdx in place. The memory shard has
// no per-block dirty tracking -- WriteBack always re-encodes the whole
// Values slice -- so this is a plain assignment.
func (s *ShardOf[E, PE]) SetValue(valIdx uint32, v E) {
	s.Values[valIdx] = v
}

// WriteBack re-encodes the (possibly modified) Values slice and
// overwrites every block file in edataDir, per spec.md §4.6's "memory
// shard writes its whole edge-value blob" commit rule.
func (s *ShardOf[E, PE]) WriteBack(edataDir string, bc *shardfmt.BlockCodec, valuesPerBlock int) error {
	return shardfmt.WriteBlockFiles[E, PE](edataDir, bc, s.Values, valuesPerBlock)
}
