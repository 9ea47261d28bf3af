package main

import (
	"github.com/kestrelgraph/pswgraph/engine"
	"github.com/kestrelgraph/pswgraph/shardfmt"
)

// CC is the propagate-minimum-label connected-components vertex program
// (spec.md §8 property P6): a vertex's label starts at its own id, and an
// update takes the minimum of its own label and every neighbour's label,
// broadcasting a change back out onto every incident edge so the
// neighbour picks it up next iteration.
//
// Labels are stored on disk as id+1: a freshly sharded run's vertex data
// file reads back as all zeros, and 0 is used here to mean "not
// initialized yet" rather than a legitimate label for vertex 0.
type CC struct{}

func (CC) Update(v *engine.Vertex[shardfmt.Uint32, shardfmt.Uint32], ctx *engine.Context) {
	label := v.Data().Value
	if label == 0 {
		label = v.ID() + 1
	}
	for i := 0; i < v.NumEdges(); i++ {
		if d := v.Edge(i).GetData().Value; d != 0 && d < label {
			label = d
		}
	}

	changed := label != v.Data().Value
	v.SetData(shardfmt.Uint32{Value: label})
	if !changed {
		return
	}
	for i := 0; i < v.NumEdges(); i++ {
		e := v.Edge(i)
		e.SetData(shardfmt.Uint32{Value: label})
		ctx.ScheduleTask(e.VertexID())
	}
}

// Label returns the 0-based component label (undoing the id+1 encoding
// Update stores on disk).
func Label(stored uint32) uint32 {
	if stored == 0 {
		return 0
	}
	return stored - 1
}
