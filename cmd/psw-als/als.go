package main

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/kestrelgraph/pswgraph/engine"
)

// factors is the number of latent dimensions (spec.md §8 scenario 6 uses
// two).
const factors = 2

// ALSVertex is a vertex's current latent factor vector, whether it is a
// row or a column of the ratings matrix.
type ALSVertex struct {
	Factor [factors]float64
}

func (ALSVertex) ByteSize() int { return 8 * factors }

func (v *ALSVertex) Encode(buf []byte) {
	for i, f := range v.Factor {
		putFloat64(buf[i*8:i*8+8], f)
	}
}

func (v *ALSVertex) Decode(buf []byte) {
	for i := range v.Factor {
		v.Factor[i] = getFloat64(buf[i*8 : i*8+8])
	}
}

// ALSEdge is one observed rating: Rating is fixed at sharding time,
// Factor is the announcing endpoint's latent vector from its last update
// -- the same "propagate the neighbour's current state over the edge"
// idiom CC and MSF use, since a vertex program only sees its own data and
// its incident edges, never a neighbour's data directly.
type ALSEdge struct {
	Rating float64
	Factor [factors]float64
}

func (ALSEdge) ByteSize() int { return 8 + 8*factors }

func (e *ALSEdge) Encode(buf []byte) {
	putFloat64(buf[0:8], e.Rating)
	for i, f := range e.Factor {
		putFloat64(buf[8+i*8:8+i*8+8], f)
	}
}

func (e *ALSEdge) Decode(buf []byte) {
	e.Rating = getFloat64(buf[0:8])
	for i := range e.Factor {
		e.Factor[i] = getFloat64(buf[8+i*8 : 8+i*8+8])
	}
}

// seedFactor derives a vertex's starting latent value deterministically
// from its id and factor index, so every run starting from the same shard
// set reaches the same result without a shared mutable RNG that parallel
// updates would have to coordinate over.
func seedFactor(id uint32, k int) float64 {
	x := math.Sin(float64(id)*12.9898+float64(k)*78.233) * 43758.5453
	return x - math.Floor(x)
}

// ALS is a reference alternating-least-squares matrix factorization
// (spec.md §8 scenario 6): rows and columns of the ratings matrix are
// both ordinary vertices of a bipartite graph, ratings are edges. Every
// iteration, each vertex re-solves its own small normal-equations system
// from its neighbours' latest announced factors and re-broadcasts.
type ALS struct{}

// regularization is kept small: the smoke-test ratings matrix is
// constructed to be exactly rank-2 (spec.md §8 scenario 6), so a large
// regularization term would bias the converged factors away from the
// exact fit the spec's RMSE threshold requires.
const regularization = 0.001

func (ALS) Update(v *engine.Vertex[ALSVertex, ALSEdge], ctx *engine.Context) {
	data := v.Data()

	// Iteration 0 only seeds and broadcasts: solving immediately would
	// see every neighbour's announcement still at its zero-filled
	// default, collapsing every vertex's factor to the same all-zero
	// fixed point regularization alone converges to.
	if ctx.Iteration == 0 {
		for k := 0; k < factors; k++ {
			data.Factor[k] = seedFactor(v.ID(), k)
		}
		v.SetData(data)
		for i := 0; i < v.NumOutEdges(); i++ {
			e := v.OutEdge(i)
			ed := e.GetData()
			ed.Factor = data.Factor
			e.SetData(ed)
			ctx.ScheduleTask(e.VertexID())
		}
		return
	}

	a := mat.NewDense(factors, factors, nil)
	b := mat.NewVecDense(factors, nil)
	for k := 0; k < factors; k++ {
		a.Set(k, k, regularization)
	}

	// Only in-edges carry a neighbour's announcement: out-edges hold
	// whatever this vertex itself last broadcast, so folding them into
	// the same sum would treat this vertex's own prior factor as if it
	// were a neighbour's rating.
	numIn := v.NumInEdges()
	for i := 0; i < numIn; i++ {
		ed := v.InEdge(i).GetData()
		for r := 0; r < factors; r++ {
			b.SetVec(r, b.AtVec(r)+ed.Rating*ed.Factor[r])
			for c := 0; c < factors; c++ {
				a.Set(r, c, a.At(r, c)+ed.Factor[r]*ed.Factor[c])
			}
		}
	}

	var x mat.VecDense
	if numIn > 0 {
		if err := x.SolveVec(a, b); err == nil {
			for k := 0; k < factors; k++ {
				data.Factor[k] = x.AtVec(k)
			}
		}
	}

	v.SetData(data)
	numOut := v.NumOutEdges()
	for i := 0; i < numOut; i++ {
		e := v.OutEdge(i)
		ed := e.GetData()
		ed.Factor = data.Factor
		e.SetData(ed)
		ctx.ScheduleTask(e.VertexID())
	}
}

func putFloat64(buf []byte, f float64) { putUint64(buf, math.Float64bits(f)) }
func getFloat64(buf []byte) float64    { return math.Float64frombits(getUint64(buf)) }

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
