// Package engine is the PSW iteration driver (spec.md §4.6, component
// C8): it turns a finished shard set into a sequence of iterations, each
// sweeping every shard's execution interval in sub-interval batches,
// running a vertex program's update over the resulting vertex array, and
// committing modified edge values back before moving on.
package engine

import (
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/kestrelgraph/pswgraph/memshard"
	"github.com/kestrelgraph/pswgraph/schedule"
	"github.com/kestrelgraph/pswgraph/shardfmt"
	"github.com/kestrelgraph/pswgraph/sharder"
	"github.com/kestrelgraph/pswgraph/slidingshard"
	"github.com/kestrelgraph/pswgraph/stripedio"
)

// Graph is an opened shard set plus everything needed to run a vertex
// program over it. V is the vertex data type, E the edge value type; PV
// and PE are their respective Codecs.
type Graph[V any, E any, PV shardfmt.Codec[V], PE shardfmt.Codec[E]] struct {
	opts Options

	numShards   int
	intervals   []uint32 // hi_p per shard, inclusive; lo_p = intervals[p-1]+1
	shardEdges  []uint64
	numVertices uint32

	mgr *stripedio.Manager
	bc  *shardfmt.BlockCodec

	sched         *schedule.Scheduler
	vdata         *vertexData[V, PV]
	degIdx        *degreeIndex
	lastIteration atomic.Bool
}

// Open reads back a shard set's layout (written by sharder.Sharder) and
// prepares a Graph ready to Run. Unless InitializeEdgesBeforeRun is set
// (which loads and rewrites every shard once), it does not load any shard
// into memory.
func Open[V any, E any, PV shardfmt.Codec[V], PE shardfmt.Codec[E]](opts Options) (*Graph[V, E, PV, PE], error) {
	numShards := opts.NumShards
	var intervals []uint32
	var err error
	if numShards > 0 {
		intervals, err = sharder.ReadIntervals(opts.BasePath, numShards)
	} else {
		numShards, intervals, err = discoverIntervals(opts.BasePath)
	}
	if err != nil {
		return nil, fmt.Errorf("engine: reading intervals: %w", err)
	}

	shardEdges, err := sharder.ReadShardEdgeCounts(opts.BasePath, numShards)
	if err != nil {
		return nil, fmt.Errorf("engine: reading shard edge counts: %w", err)
	}
	numVertices, err := sharder.ReadNumVertices(opts.BasePath)
	if err != nil {
		return nil, fmt.Errorf("engine: reading vertex count: %w", err)
	}

	bc, err := shardfmt.NewBlockCodec(opts.Compress)
	if err != nil {
		return nil, err
	}

	stripeSize := opts.StripeSize
	if stripeSize <= 0 && opts.BlockSize > 0 {
		stripeSize = int64(opts.BlockSize) / 2
	}

	g := &Graph[V, E, PV, PE]{
		opts:        opts,
		numShards:   numShards,
		intervals:   intervals,
		shardEdges:  shardEdges,
		numVertices: numVertices,
		mgr:         stripedio.NewManager(stripedio.Options{NumStripes: opts.IOThreads, StripeSize: stripeSize}),
		bc:          bc,
		sched:       schedule.New(numVertices),
	}

	vdata, err := openVertexData[V, PV](opts.BasePath+".vdata", numVertices, opts.ResetVertexData)
	if err != nil {
		g.mgr.Close()
		return nil, fmt.Errorf("engine: opening vertex data: %w", err)
	}
	g.vdata = vdata

	degIdx, err := openDegreeIndex(g.mgr, opts.BasePath+".degree", opts.PreloadMaxMB)
	if err != nil {
		g.Close()
		return nil, fmt.Errorf("engine: opening degree index: %w", err)
	}
	g.degIdx = degIdx

	if opts.InitializeEdgesBeforeRun {
		if err := g.initializeEdges(); err != nil {
			g.Close()
			return nil, fmt.Errorf("engine: initializing edges: %w", err)
		}
	}

	return g, nil
}

// discoverIntervals implements Options.NumShards == 0: it globs for
// "<base>.*.intervals" and uses the one with the largest shard count,
// mirroring the one-sharding-run-per-basepath assumption the sharder
// itself makes.
func discoverIntervals(base string) (int, []uint32, error) {
	matches, err := filepath.Glob(base + ".*.intervals")
	if err != nil {
		return 0, nil, err
	}
	if len(matches) == 0 {
		return 0, nil, fmt.Errorf("no *.intervals file found for base %q", base)
	}
	n := -1
	for _, m := range matches {
		var count int
		if _, err := fmt.Sscanf(filepath.Base(m), filepath.Base(base)+".%d.intervals", &count); err != nil {
			return 0, nil, fmt.Errorf("parsing shard count from %q: %w", m, err)
		}
		if count > n {
			n = count
		}
	}
	intervals, err := sharder.ReadIntervals(base, n)
	return n, intervals, err
}

// Close releases the I/O manager, block codec, and vertex data file.
func (g *Graph[V, E, PV, PE]) Close() error {
	if g.vdata != nil {
		g.vdata.Close()
	}
	if g.degIdx != nil {
		g.degIdx.Close()
	}
	g.bc.Close()
	g.mgr.Close()
	return nil
}

// NumVertices returns 1 + the largest vertex id seen while sharding.
func (g *Graph[V, E, PV, PE]) NumVertices() uint32 { return g.numVertices }

// VertexData reads back the inclusive vertex-id range [lo, hi] of the
// vertex data file, e.g. to collect final results after Run returns.
func (g *Graph[V, E, PV, PE]) VertexData(lo, hi uint32) ([]V, error) {
	return g.vdata.ReadRange(lo, hi)
}

// SetVertexData writes values starting at vertex id lo, e.g. to seed a
// non-zero initial value (a BFS root's distance, a PageRank prior) before
// the first Run call -- the vertex data file otherwise starts zero-filled.
func (g *Graph[V, E, PV, PE]) SetVertexData(lo uint32, values []V) error {
	return g.vdata.WriteRange(lo, values)
}

func (g *Graph[V, E, PV, PE]) lo(p int) uint32 {
	if p == 0 {
		return 0
	}
	return g.intervals[p-1] + 1
}

func (g *Graph[V, E, PV, PE]) hi(p int) uint32 { return g.intervals[p] }

func (g *Graph[V, E, PV, PE]) valuesPerBlock() int {
	var zero E
	sz := PE(&zero).ByteSize()
	if sz == 0 {
		return 1
	}
	n := int(g.opts.BlockSize) / sz
	if n < 1 {
		n = 1
	}
	return n
}

func (g *Graph[V, E, PV, PE]) adjPath(p int) string {
	return fmt.Sprintf("%s.shard.%d_of_%d.adj", g.opts.BasePath, p, g.numShards)
}

func (g *Graph[V, E, PV, PE]) edataDir(p int) string {
	return shardfmt.EdataDir(g.opts.BasePath, p, g.numShards, g.opts.BlockSize)
}

func (g *Graph[V, E, PV, PE]) openMemShard(p int) (*memshard.ShardOf[E, PE], error) {
	return memshard.Load[E, PE](g.adjPath(p), g.edataDir(p), g.bc, g.valuesPerBlock(), g.lo(p), g.hi(p))
}

func (g *Graph[V, E, PV, PE]) openSlidingShard(q int) (*slidingshard.Shard[E, PE], error) {
	return slidingshard.Open[E, PE](g.mgr, g.adjPath(q), g.edataDir(q), g.bc, g.valuesPerBlock(), int(g.shardEdges[q]))
}

// initializeEdges zero-fills every shard's edge-value blocks (spec.md
// §4.6 "Reset policy" / set_initialize_edges_before_run), reusing the
// memory shard's own load/write-back path rather than a separate
// zero-fill writer.
func (g *Graph[V, E, PV, PE]) initializeEdges() error {
	for p := 0; p < g.numShards; p++ {
		mem, err := g.openMemShard(p)
		if err != nil {
			return err
		}
		var zero E
		for i := range mem.Values {
			mem.Values[i] = zero
		}
		if err := mem.WriteBack(g.edataDir(p), g.bc, g.valuesPerBlock()); err != nil {
			return err
		}
	}
	return nil
}

// Run executes the PSW outer loop (spec.md §4.6) until niters is reached
// or the program calls context.SetLastIteration.
func (g *Graph[V, E, PV, PE]) Run(prog VertexProgram[V, E]) error {
	beforeIter, _ := any(prog).(BeforeIterationHook)
	afterIter, _ := any(prog).(AfterIterationHook)
	beforeInterval, _ := any(prog).(BeforeExecIntervalHook)
	afterInterval, _ := any(prog).(AfterExecIntervalHook)

	for iteration := 0; iteration < g.opts.NumIterations; iteration++ {
		if beforeIter != nil {
			beforeIter.BeforeIteration(iteration)
		}

		// One sliding-shard cursor per shard, opened once for the whole
		// iteration: every shard's adjacency is scanned exactly once per
		// iteration as the execution interval sweeps p = 0..P-1, so the
		// cursor must advance monotonically across that whole sweep, not
		// reset every time a new shard becomes the memory shard.
		sliding := make([]*slidingshard.Shard[E, PE], g.numShards)
		for q := 0; q < g.numShards; q++ {
			s, err := g.openSlidingShard(q)
			if err != nil {
				return err
			}
			sliding[q] = s
		}

		for p := 0; p < g.numShards; p++ {
			lo, hi := g.lo(p), g.hi(p)
			if beforeInterval != nil {
				beforeInterval.BeforeExecInterval(iteration, lo, hi)
			}
			if err := g.execInterval(iteration, p, lo, hi, sliding, prog); err != nil {
				return err
			}
			if afterInterval != nil {
				afterInterval.AfterExecInterval(iteration, lo, hi)
			}
		}

		for _, s := range sliding {
			s.Close()
		}

		g.sched.Advance()
		if afterIter != nil {
			afterIter.AfterIteration(iteration)
		}
		log.Info().Int("iteration", iteration).Int("tasks", g.sched.NumTasks()).Msg("iteration complete")
		if g.lastIteration.Load() {
			break
		}
	}
	return nil
}

// execInterval loads shard p as the memory shard and sweeps [lo, hi] in
// sub-intervals of at most SubWindow vertices, reading from the
// iteration's shared sliding-shard cursors.
func (g *Graph[V, E, PV, PE]) execInterval(iteration, p int, lo, hi uint32, sliding []*slidingshard.Shard[E, PE], prog VertexProgram[V, E]) error {
	mem, err := g.openMemShard(p)
	if err != nil {
		return err
	}

	for s := lo; s <= hi; {
		e := s + g.opts.SubWindow - 1
		if e > hi || g.opts.SubWindow == 0 {
			e = hi
		}
		if err := g.execSubInterval(iteration, p, s, e, mem, sliding, prog); err != nil {
			return err
		}
		s = e + 1
	}

	if err := mem.WriteBack(g.edataDir(p), g.bc, g.valuesPerBlock()); err != nil {
		return err
	}
	// sliding[p]'s own-index cursor ran alongside mem throughout this
	// interval and may have cached a now-stale copy of a block mem just
	// rewrote (see slidingshard.Shard.Invalidate); every later interval's
	// cross-shard reads into shard p must see mem's fresh write, not that
	// cache.
	return sliding[p].Invalidate()
}

// execSubInterval runs one sub-interval [s, e] of the active execution
// interval: every sliding shard's cursor (including the memory shard's
// own index p, whose window is discarded since its out-edges already live
// in mem) is advanced to e, windows are assembled into per-vertex edge
// lists, and updates run in parallel over the window (spec.md §4.6 step
// c).
func (g *Graph[V, E, PV, PE]) execSubInterval(iteration, ownShard int, s, e uint32, mem *memshard.ShardOf[E, PE], sliding []*slidingshard.Shard[E, PE], prog VertexProgram[V, E]) error {
	n := int(e-s) + 1
	windows := make([][]slidingshard.Window, g.numShards)
	for q, sh := range sliding {
		w, err := sh.ReadNextVertices(n, e, false)
		if err != nil {
			return err
		}
		windows[q] = w
	}

	vdataVals, err := g.vdata.ReadRange(s, e)
	if err != nil {
		return err
	}

	vertices := make([]Vertex[V, E], n)
	for i := range vertices {
		id := s + uint32(i)
		vertices[i] = g.buildVertex(id, &vdataVals[i], ownShard, mem, sliding, windows)
	}

	ctx := &Context{Iteration: iteration, sched: g.sched, lastIter: &g.lastIteration}
	group := new(errgroup.Group)
	group.SetLimit(g.opts.ExecThreads)
	for i := range vertices {
		v := &vertices[i]
		if g.opts.SelectiveScheduling && !g.sched.HasTask(v.id) {
			continue
		}
		group.Go(func() error {
			prog.Update(v, ctx)
			if g.opts.SelectiveScheduling {
				g.sched.RemoveTask(v.id)
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}
	if err := g.vdata.WriteRange(s, vdataVals); err != nil {
		return err
	}

	for q, sh := range sliding {
		if q == ownShard {
			continue
		}
		if err := sh.Commit(); err != nil {
			return err
		}
	}
	return nil
}

// buildVertex assembles one vertex's in-edges (from the memory shard) and
// out-edges (same-shard ones from the memory shard, cross-shard ones from
// the matching sliding-shard window). Each sliding shard's window for this
// sub-interval is dense over [s, e] in source-id order (I2), so the window
// entry for vertex id is found by scanning for a matching Src. ownShard's
// window is skipped -- its out-edges already live in mem, and its
// ReadNextVertices call happens only to keep its cursor advancing in step
// with every other shard's.
func (g *Graph[V, E, PV, PE]) buildVertex(id uint32, data *V, ownShard int, mem *memshard.ShardOf[E, PE], sliding []*slidingshard.Shard[E, PE], windows [][]slidingshard.Window) Vertex[V, E] {
	v := Vertex[V, E]{id: id, data: data}

	if rec, err := g.degIdx.At(id); err == nil {
		v.in = make([]Edge[E], 0, rec.In)
		v.out = make([]Edge[E], 0, rec.Out)
	}

	for _, ie := range mem.InEdges(id) {
		v.in = append(v.in, Edge[E]{vid: ie.Src, valIdx: ie.ValIdx, store: mem})
	}

	for _, oe := range mem.OutEdges(id) {
		v.out = append(v.out, Edge[E]{vid: oe.Dst, valIdx: oe.ValIdx, store: mem})
	}
	for q, sh := range sliding {
		if q == ownShard {
			continue
		}
		w := findWindow(windows[q], id)
		if w == nil {
			continue
		}
		for _, oe := range w.OutEdges {
			v.out = append(v.out, Edge[E]{vid: oe.Dst, valIdx: oe.ValIdx, store: sh})
		}
	}

	return v
}

func findWindow(windows []slidingshard.Window, id uint32) *slidingshard.Window {
	for i := range windows {
		if windows[i].Src == id {
			return &windows[i]
		}
	}
	return nil
}
