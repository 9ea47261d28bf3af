// Package sharder is the external-memory preprocessor (spec.md §4.1, §4.9
// component C9): it converts an unordered (src, dst, value) edge stream
// into the ordered on-disk shard set the engine requires, via a sort
// (shovel phase), a k-way merge, and a shard-cut policy that respects "a
// dst belongs to exactly one shard" (I1).
package sharder

import (
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/kestrelgraph/pswgraph/degree"
	"github.com/kestrelgraph/pswgraph/enforce"
	"github.com/kestrelgraph/pswgraph/shardfmt"
)

// Options configures a Sharder run.
type Options struct {
	BasePath string // shard files are written as <BasePath>.shard.*, etc.

	// NumShards is P. Zero means "auto": computed from MemBudgetMB per
	// spec.md §4.1 step 2.
	NumShards int
	MemBudgetMB int

	// DynamicEdgeData quadruples the auto shard-count numerator (larger
	// per-edge working set).
	DynamicEdgeData bool

	// CompactDuplicates, when true, collapses adjacent duplicate
	// (src,dst) pairs encountered during shard finalize by keeping
	// whichever arrived first (accept_first). When false (the default),
	// a duplicate pair trips enforce.ENFORCE (spec.md §9 open question (b)).
	CompactDuplicates bool

	BlockSize shardfmt.BlockSize // default 1 MiB if zero
	Compress  bool

	ShovelEdges int // RAM buffer size in edges before a shovel flush; default 1<<20
}

const defaultBlockSize = 1 << 20 // 1 MiB, spec.md §6 io.blocksize default
const defaultShovelEdges = 1 << 20

// Result summarizes a completed sharding run.
type Result struct {
	NumShards   int
	TotalEdges  uint64
	MaxVertexID uint32
	Intervals   []uint32 // hi_p for each shard, inclusive
	ShardEdges  []uint64 // edge count actually written to each shard, post-dedupe
}

// Sharder accumulates edges via AddEdge/AddEdgeWithValue and produces the
// on-disk shard set on Finalize. E is the edge value type; PE is its
// Codec. Not safe for concurrent use -- the shovel/ingestion phase is
// intentionally single-threaded per spec.md §4.1 (callers wanting
// concurrent ingestion should shard their own input and call AddEdge from
// one goroutine, as GraphChi's own ingestion tools do).
type Sharder[E any, PE shardfmt.Codec[E]] struct {
	opts Options

	buf       []shovelRecord[E]
	shovelCap int
	shovels   []string

	seq         uint64
	totalEdges  uint64
	maxVertexID uint32
	sawVertex   bool
}

// New creates a Sharder. Shard files do not yet exist; they are created on
// Finalize. Per spec.md §4.1 "Failure", a partial shard set from a prior
// failed run must be removed before calling New again with the same
// BasePath.
func New[E any, PE shardfmt.Codec[E]](opts Options) *Sharder[E, PE] {
	if opts.ShovelEdges <= 0 {
		opts.ShovelEdges = defaultShovelEdges
	}
	if opts.BlockSize <= 0 {
		opts.BlockSize = defaultBlockSize
	}
	return &Sharder[E, PE]{
		opts:      opts,
		shovelCap: opts.ShovelEdges,
	}
}

// AddEdge records an edge with the zero value of E.
func (s *Sharder[E, PE]) AddEdge(src, dst uint32) error {
	var zero E
	return s.AddEdgeWithValue(src, dst, zero)
}

// AddEdgeWithValue records an edge with an explicit value. Self-edges
// (src == dst) are silently dropped (I4).
func (s *Sharder[E, PE]) AddEdgeWithValue(src, dst uint32, val E) error {
	if src == dst {
		return nil
	}
	s.track(src)
	s.track(dst)
	s.buf = append(s.buf, shovelRecord[E]{Src: src, Dst: dst, Val: val, seq: s.seq})
	s.seq++
	s.totalEdges++
	if len(s.buf) >= s.shovelCap {
		return s.flush()
	}
	return nil
}

func (s *Sharder[E, PE]) track(id uint32) {
	if !s.sawVertex || id > s.maxVertexID {
		s.maxVertexID = id
		s.sawVertex = true
	}
}

func (s *Sharder[E, PE]) shovelPath(i int) string {
	return fmt.Sprintf("%s.shovel.%d", s.opts.BasePath, i)
}

func (s *Sharder[E, PE]) flush() error {
	if len(s.buf) == 0 {
		return nil
	}
	path := s.shovelPath(len(s.shovels))
	if err := writeShovel[E, PE](path, s.buf); err != nil {
		return err
	}
	s.shovels = append(s.shovels, path)
	s.buf = s.buf[:0]
	log.Debug().Str("path", path).Msg("flushed shovel")
	return nil
}

// autoShardCount implements spec.md §4.1 step 2: P = ceil(2 + edges *
// sizeof(E) / (M/8)), with the numerator quadrupled for dynamic edge data.
func autoShardCount(edges uint64, valueSize int, memBudgetMB int, dynamicEdgeData bool) int {
	if memBudgetMB <= 0 {
		memBudgetMB = 1024
	}
	m := float64(memBudgetMB) * 1024 * 1024
	numerator := float64(edges) * float64(valueSize)
	if dynamicEdgeData {
		numerator *= 4
	}
	p := math.Ceil(2 + numerator/(m/8))
	if p < 1 {
		p = 1
	}
	return int(p)
}

// Finalize flushes any remaining buffered edges, merges all shovels, cuts
// and emits shards, and writes the intervals/degree/numvertices files.
// Shovel files are removed once no longer needed.
func (s *Sharder[E, PE]) Finalize() (*Result, error) {
	if err := s.flush(); err != nil {
		return nil, err
	}
	defer s.cleanupShovels()

	var zero E
	valSize := PE(&zero).ByteSize()

	numShards := s.opts.NumShards
	if numShards <= 0 {
		numShards = autoShardCount(s.totalEdges, valSize, s.opts.MemBudgetMB, s.opts.DynamicEdgeData)
	}
	enforce.ENFORCE(numShards > 0, "shard count must be positive")

	edgesPerShard := uint64(0)
	if numShards > 0 && s.totalEdges > 0 {
		edgesPerShard = (s.totalEdges + uint64(numShards) - 1) / uint64(numShards)
	}
	if edgesPerShard == 0 {
		edgesPerShard = 1
	}

	degStore := degree.NewStore(s.maxVertexID + 1)

	var intervals []uint32
	var shardEdges []uint64
	var curShard []shovelRecord[E]
	var prevDst uint32
	haveCur := false

	finalizeShard := func(lastDst uint32) error {
		p := len(intervals)
		n, err := finalizeOneShard[E, PE](s.opts, p, numShards, curShard, degStore, s.maxVertexID)
		if err != nil {
			return err
		}
		intervals = append(intervals, lastDst)
		shardEdges = append(shardEdges, uint64(n))
		curShard = nil
		return nil
	}

	err := kwayMerge[E, PE](s.shovels, func(rec shovelRecord[E]) error {
		if haveCur && uint64(len(curShard)) >= edgesPerShard && rec.Dst != prevDst {
			if err := finalizeShard(prevDst); err != nil {
				return err
			}
			haveCur = false
		}
		curShard = append(curShard, rec)
		prevDst = rec.Dst
		haveCur = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(curShard) > 0 || len(intervals) == 0 {
		if err := finalizeShard(s.maxVertexID); err != nil {
			return nil, err
		}
	}
	// The last shard's interval must reach maxVertexID even if the last
	// edge's dst was smaller (trailing sink vertices with no in-edges).
	if n := len(intervals); n > 0 && intervals[n-1] < s.maxVertexID {
		intervals[n-1] = s.maxVertexID
	}

	if err := writeIntervals(s.opts.BasePath, intervals); err != nil {
		return nil, err
	}
	if err := writeShardEdgeCounts(s.opts.BasePath, len(intervals), shardEdges); err != nil {
		return nil, err
	}
	if err := writeNumVertices(s.opts.BasePath, s.maxVertexID+1); err != nil {
		return nil, err
	}
	degFile, err := os.Create(s.opts.BasePath + ".degree")
	if err != nil {
		return nil, err
	}
	defer degFile.Close()
	if _, err := degStore.WriteTo(degFile); err != nil {
		return nil, err
	}

	return &Result{
		NumShards:   len(intervals),
		TotalEdges:  s.totalEdges,
		MaxVertexID: s.maxVertexID,
		Intervals:   intervals,
		ShardEdges:  shardEdges,
	}, nil
}

func (s *Sharder[E, PE]) cleanupShovels() {
	for _, p := range s.shovels {
		if err := os.Remove(p); err != nil {
			log.Warn().Err(err).Str("path", p).Msg("failed to remove shovel file")
		}
	}
}

func writeIntervals(base string, intervals []uint32) error {
	f, err := os.Create(fmt.Sprintf("%s.%d.intervals", base, len(intervals)))
	if err != nil {
		return err
	}
	defer f.Close()
	for _, hi := range intervals {
		if _, err := fmt.Fprintf(f, "%d\n", hi); err != nil {
			return err
		}
	}
	return nil
}

func writeNumVertices(base string, n uint32) error {
	f, err := os.Create(base + ".numvertices")
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintf(f, "%d\n", n)
	return err
}

// finalizeOneShard implements spec.md §4.1 step 5: re-sort by src, dedupe,
// emit adjacency + edge-value blocks, accumulate degree. Returns the
// shard's final (post-dedupe) edge count.
func finalizeOneShard[E any, PE shardfmt.Codec[E]](opts Options, p, numShards int, recs []shovelRecord[E], degStore *degree.Store, maxVertexID uint32) (int, error) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Src != recs[j].Src {
			return recs[i].Src < recs[j].Src
		}
		if recs[i].Dst != recs[j].Dst {
			return recs[i].Dst < recs[j].Dst
		}
		return recs[i].seq < recs[j].seq
	})

	recs = dedupe[E](recs, opts)

	adjPath := fmt.Sprintf("%s.shard.%d_of_%d.adj", opts.BasePath, p, numShards)
	adjFile, err := os.Create(adjPath)
	if err != nil {
		return 0, err
	}
	defer adjFile.Close()
	aw := shardfmt.NewAdjacencyWriter(adjFile)

	var values []E

	i := 0
	for i < len(recs) {
		j := i
		src := recs[i].Src
		var dsts []uint32
		for j < len(recs) && recs[j].Src == src {
			dsts = append(dsts, recs[j].Dst)
			values = append(values, recs[j].Val)
			degStore.AddOut(src)
			degStore.AddIn(recs[j].Dst)
			j++
		}
		if err := aw.WriteVertex(src, dsts); err != nil {
			return 0, err
		}
		i = j
	}
	if err := aw.Close(maxVertexID); err != nil {
		return 0, err
	}

	bc, err := shardfmt.NewBlockCodec(opts.Compress)
	if err != nil {
		return 0, err
	}
	defer bc.Close()

	var zero E
	valSize := PE(&zero).ByteSize()
	valuesPerBlock := 1
	if valSize > 0 {
		valuesPerBlock = int(opts.BlockSize) / valSize
		if valuesPerBlock < 1 {
			valuesPerBlock = 1
		}
	}
	dir := shardfmt.EdataDir(opts.BasePath, p, numShards, opts.BlockSize)
	if err := shardfmt.WriteBlockFiles[E, PE](dir, bc, values, valuesPerBlock); err != nil {
		return 0, err
	}
	return len(values), nil
}

func dedupe[E any](recs []shovelRecord[E], opts Options) []shovelRecord[E] {
	if len(recs) < 2 {
		return recs
	}
	out := recs[:1]
	for i := 1; i < len(recs); i++ {
		last := &out[len(out)-1]
		if last.Src == recs[i].Src && last.Dst == recs[i].Dst {
			enforce.ENFORCE(opts.CompactDuplicates, "duplicate edge (src,dst) encountered outside CompactDuplicates mode")
			continue
		}
		out = append(out, recs[i])
	}
	return out
}
