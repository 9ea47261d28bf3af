package main

import (
	"flag"

	"github.com/rs/zerolog/log"

	"github.com/kestrelgraph/pswgraph/cmd/common"
	"github.com/kestrelgraph/pswgraph/engine"
	"github.com/kestrelgraph/pswgraph/outstream"
)

// disjointSet is a plain slice-backed union-find over vertex ids, used
// only to combine per-vertex Boruvka nominations into a cycle-free forest
// (no pack library covers this narrow a concern, and the teacher itself
// has no minimum-spanning-forest algorithm to imitate here).
type disjointSet struct{ parent []uint32 }

func newDisjointSet(n uint32) *disjointSet {
	parent := make([]uint32, n)
	for i := range parent {
		parent[i] = uint32(i)
	}
	return &disjointSet{parent: parent}
}

func (d *disjointSet) find(x uint32) uint32 {
	for d.parent[x] != x {
		d.parent[x] = d.parent[d.parent[x]]
		x = d.parent[x]
	}
	return x
}

func (d *disjointSet) union(a, b uint32) { d.parent[d.find(a)] = d.find(b) }

// forestEdge is one edge selected into the minimum spanning forest.
type forestEdge struct {
	U, V uint32
	W    float64
}

// combineForest turns every vertex's Boruvka nomination into a cycle-free
// forest via a union-find: a nomination is kept only if its two endpoints
// are still in different components at the time it's visited, and each
// undirected edge is counted once regardless of which endpoint nominated
// it first.
func combineForest(n uint32, vertices []MSFVertex) (forest []forestEdge, totalWeight float64) {
	ds := newDisjointSet(n)
	seen := make(map[[2]uint32]bool)

	for id := uint32(0); id < n; id++ {
		mv := vertices[id]
		if mv.HasBest == 0 {
			continue
		}
		a, b := ds.find(id), ds.find(mv.BestTarget)
		if a == b {
			continue
		}
		ds.union(a, b)

		u, w := id, mv.BestTarget
		if u > w {
			u, w = w, u
		}
		key := [2]uint32{u, w}
		if seen[key] {
			continue
		}
		seen[key] = true
		forest = append(forest, forestEdge{U: u, V: w, W: mv.BestWeight})
		totalWeight += mv.BestWeight
	}
	return forest, totalWeight
}

// Launch point. Runs component-label propagation and per-vertex boundary
// edge nomination to convergence, then combines the nominated edges into a
// minimum spanning forest with a driver-side union-find (spec.md §8
// scenario 4).
func main() {
	itersPtr := flag.Int("msf_iters", 16, "Iterations to let component propagation and edge nomination converge.")
	opts := engine.FlagsToOptions()
	opts.NumIterations = *itersPtr

	g, err := engine.Open[MSFVertex, MSFEdge, *MSFVertex, *MSFEdge](opts)
	if err != nil {
		log.Fatal().Err(err).Msg("opening shard set")
	}
	defer g.Close()

	if err := g.Run(MSF{}); err != nil {
		log.Fatal().Err(err).Msg("running engine")
	}

	n := g.NumVertices()
	vertices, err := g.VertexData(0, n-1)
	if err != nil {
		log.Fatal().Err(err).Msg("reading final vertex state")
	}

	forest, totalWeight := combineForest(n, vertices)
	log.Info().Int("edges", len(forest)).Float64("total_weight", totalWeight).Msg("minimum spanning forest")

	name := common.ExtractGraphName(opts.BasePath)
	outPath := "results/" + name + "-msf.txt"
	w, err := outstream.NewTextWriter(outPath)
	if err != nil {
		log.Fatal().Err(err).Msg("opening results file")
	}
	for _, e := range forest {
		if err := w.WriteLine("%d %d %g", e.U, e.V, e.W); err != nil {
			log.Fatal().Err(err).Msg("writing result")
		}
	}
	if err := w.Close(); err != nil {
		log.Fatal().Err(err).Msg("closing results file")
	}
}
