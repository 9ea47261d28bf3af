package main

import (
	"math"

	"github.com/kestrelgraph/pswgraph/engine"
	"github.com/kestrelgraph/pswgraph/shardfmt"
)

// unvisited marks a vertex that has not yet been reached from the root.
const unvisited = uint32(math.MaxUint32)

// BFS computes shortest hop-count distance from a single root (spec.md §8
// scenario 2). Distance lives on vertex data; an edge value carries the
// distance the vertex that last updated it is offering its neighbour,
// encoded as offered_distance+1 so 0 unambiguously means "nothing
// announced on this edge yet" (offered_distance is always >= 0).
type BFS struct{}

func (BFS) Update(v *engine.Vertex[shardfmt.Uint32, shardfmt.Uint32], ctx *engine.Context) {
	orig := v.Data().Value
	best := orig
	for i := 0; i < v.NumEdges(); i++ {
		if cand := v.Edge(i).GetData().Value; cand != 0 && cand < best {
			best = cand
		}
	}

	// A seed vertex (the root, initialized to a finite distance before
	// the first Run) has nothing incoming to improve on, but still needs
	// to announce itself on iteration 0.
	isSeed := ctx.Iteration == 0 && orig != unvisited
	if best == orig && !isSeed {
		return
	}

	v.SetData(shardfmt.Uint32{Value: best})
	for i := 0; i < v.NumEdges(); i++ {
		e := v.Edge(i)
		e.SetData(shardfmt.Uint32{Value: best + 1})
		ctx.ScheduleTask(e.VertexID())
	}
}
