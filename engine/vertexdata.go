package engine

import (
	"os"

	"github.com/kestrelgraph/pswgraph/shardfmt"
)

// vertexData is the flat fixed-size-record file backing a vertex
// program's per-vertex state (spec.md §4.6 "Vertex data"), paged in and
// out one sub-interval at a time rather than held wholly in RAM. A run
// whose vertex value type has zero ByteSize (shardfmt.Empty) still gets
// the file, but it stays empty and stores no records -- that's how
// "vertex data disabled" is expressed (spec.md
// §4.6: "May be disabled per-run, for programs storing all state on edges
// or in memory").
type vertexData[V any, PV shardfmt.Codec[V]] struct {
	f       *os.File
	recSize int
}

// openVertexData opens (creating if necessary) the vertex data file at
// path, sized for numVertices records, zero-filling it first if reset is
// set (spec.md §4.6 "Reset policy" / set_reset_vertexdata).
func openVertexData[V any, PV shardfmt.Codec[V]](path string, numVertices uint32, reset bool) (*vertexData[V, PV], error) {
	var zero V
	recSize := PV(&zero).ByteSize()

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}
	if reset {
		if err := f.Truncate(0); err != nil {
			f.Close()
			return nil, err
		}
	}
	want := int64(numVertices) * int64(recSize)
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.Size() < want {
		if err := f.Truncate(want); err != nil {
			f.Close()
			return nil, err
		}
	}
	return &vertexData[V, PV]{f: f, recSize: recSize}, nil
}

func (vd *vertexData[V, PV]) Close() error { return vd.f.Close() }

// ReadRange loads the inclusive vertex-id window [lo, hi].
func (vd *vertexData[V, PV]) ReadRange(lo, hi uint32) ([]V, error) {
	n := int(hi-lo) + 1
	out := make([]V, n)
	if vd.recSize == 0 || n == 0 {
		return out, nil
	}
	buf := make([]byte, n*vd.recSize)
	if _, err := vd.f.ReadAt(buf, int64(lo)*int64(vd.recSize)); err != nil {
		return nil, err
	}
	for i := range out {
		PV(&out[i]).Decode(buf[i*vd.recSize : (i+1)*vd.recSize])
	}
	return out, nil
}

// WriteRange writes values back starting at vertex id lo.
func (vd *vertexData[V, PV]) WriteRange(lo uint32, values []V) error {
	if vd.recSize == 0 || len(values) == 0 {
		return nil
	}
	buf := make([]byte, len(values)*vd.recSize)
	for i := range values {
		PV(&values[i]).Encode(buf[i*vd.recSize : (i+1)*vd.recSize])
	}
	_, err := vd.f.WriteAt(buf, int64(lo)*int64(vd.recSize))
	return err
}
