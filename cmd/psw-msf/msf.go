package main

import (
	"math"

	"github.com/kestrelgraph/pswgraph/engine"
)

// MSFVertex is a vertex's Boruvka state: the component it currently
// belongs to (propagated the same way CC propagates a component label),
// and the lightest edge it has found so far leading to a different
// component.
type MSFVertex struct {
	Component  uint32
	BestWeight float64
	BestTarget uint32
	HasBest    byte
}

func (MSFVertex) ByteSize() int { return 17 }

func (m *MSFVertex) Encode(buf []byte) {
	putUint32(buf[0:4], m.Component)
	putFloat64(buf[4:12], m.BestWeight)
	putUint32(buf[12:16], m.BestTarget)
	buf[16] = m.HasBest
}

func (m *MSFVertex) Decode(buf []byte) {
	m.Component = getUint32(buf[0:4])
	m.BestWeight = getFloat64(buf[4:12])
	m.BestTarget = getUint32(buf[12:16])
	m.HasBest = buf[16]
}

// MSFEdge is an edge's weight plus the last component its writing
// endpoint announced on it (spec.md §8 scenario 4's weighted 4-cycle).
type MSFEdge struct {
	Weight    float64
	Component uint32
}

func (MSFEdge) ByteSize() int { return 12 }

func (e *MSFEdge) Encode(buf []byte) {
	putFloat64(buf[0:8], e.Weight)
	putUint32(buf[8:12], e.Component)
}

func (e *MSFEdge) Decode(buf []byte) {
	e.Weight = getFloat64(buf[0:8])
	e.Component = getUint32(buf[8:12])
}

// MSF is the reference Boruvka minimum-spanning-forest vertex program: each
// vertex maintains a component label (merging toward the smallest id seen,
// exactly as CC does) and, independently, the lightest incident edge it
// has observed leading outside its own component. A driver-side
// union-find combines every vertex's nominated edge into the forest after
// Run converges (msf.go's Update alone cannot avoid two endpoints of the
// same edge both being counted, or a cycle from two components nominating
// each other through different edges -- that combination step belongs to
// the caller, not the per-vertex update).
type MSF struct{}

func (MSF) Update(v *engine.Vertex[MSFVertex, MSFEdge], ctx *engine.Context) {
	data := v.Data()
	origComponent, origWeight, origTarget, origHasBest := data.Component, data.BestWeight, data.BestTarget, data.HasBest

	if data.Component == 0 {
		data.Component = v.ID() + 1
		data.HasBest = 0
	}

	for i := 0; i < v.NumEdges(); i++ {
		e := v.Edge(i)
		ed := e.GetData()

		if ed.Component != 0 && ed.Component < data.Component {
			data.Component = ed.Component
		}
		// A neighbour that hasn't announced a component yet (ed.Component
		// == 0) is treated as cross-component, since nothing has merged
		// with it yet either way.
		crossComponent := ed.Component == 0 || ed.Component != data.Component
		if crossComponent && (data.HasBest == 0 || ed.Weight < data.BestWeight) {
			// Ties keep whichever candidate was already selected (open
			// question (a)): strict "<" never replaces an equal-weight
			// incumbent.
			data.BestWeight = ed.Weight
			data.BestTarget = e.VertexID()
			data.HasBest = 1
		}
	}

	changed := data.Component != origComponent || data.BestWeight != origWeight ||
		data.BestTarget != origTarget || data.HasBest != origHasBest
	v.SetData(data)
	if !changed {
		return
	}
	for i := 0; i < v.NumEdges(); i++ {
		e := v.Edge(i)
		ed := e.GetData()
		ed.Component = data.Component
		e.SetData(ed)
		ctx.ScheduleTask(e.VertexID())
	}
}

func putUint32(buf []byte, v uint32) {
	buf[0], buf[1], buf[2], buf[3] = byte(v), byte(v>>8), byte(v>>16), byte(v>>24)
}

func getUint32(buf []byte) uint32 {
	return uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24
}

func putUint64(buf []byte, v uint64) {
	for i := 0; i < 8; i++ {
		buf[i] = byte(v >> (8 * i))
	}
}

func getUint64(buf []byte) (v uint64) {
	for i := 0; i < 8; i++ {
		v |= uint64(buf[i]) << (8 * i)
	}
	return v
}

func putFloat64(buf []byte, f float64) { putUint64(buf, math.Float64bits(f)) }
func getFloat64(buf []byte) float64    { return math.Float64frombits(getUint64(buf)) }
