package main

import (
	"github.com/kestrelgraph/pswgraph/engine"
	"github.com/kestrelgraph/pswgraph/shardfmt"
)

// Template is a do-nothing vertex program: a starting point for a new
// algorithm. Swap shardfmt.Empty for a real vertex/edge value type and fill
// in Update.
type Template struct{}

func (Template) Update(v *engine.Vertex[shardfmt.Empty, shardfmt.Empty], ctx *engine.Context) {
	// Read v.Data()/v.Edge(i), write v.SetData(...)/e.SetData(...), and
	// call ctx.ScheduleTask(id) to request another visit next iteration.
}

// BeforeIteration is optional; remove if unused.
func (Template) BeforeIteration(iteration int) {}
