package sharder

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"
	"sort"

	"github.com/kestrelgraph/pswgraph/shardfmt"
)

// shovelRecord is one (src, dst, value) triple as it travels through the
// external sort: buffered in RAM, sorted, flushed to a shovel file, and
// merged back in dst-then-src order (spec.md §4.1 step 1/3). seq is the
// edge's global arrival index, assigned once by the Sharder at AddEdge
// time and carried through to disk -- it is the final tie-break for
// multi-valued (duplicate src,dst) edges so "accept first" dedup means
// what it says regardless of which shovel file a duplicate landed in.
type shovelRecord[E any] struct {
	Src, Dst uint32
	Val      E
	seq      uint64
}

func lessShovel[E any](a, b shovelRecord[E]) bool {
	if a.Dst != b.Dst {
		return a.Dst < b.Dst
	}
	if a.Src != b.Src {
		return a.Src < b.Src
	}
	return a.seq < b.seq
}

const shovelHeaderSize = 16 // src(4) + dst(4) + seq(8)

// writeShovel sorts recs in place by (dst, src, seq) and flushes them as
// raw fixed-size records to path.
func writeShovel[E any, PE shardfmt.Codec[E]](path string, recs []shovelRecord[E]) error {
	sort.Slice(recs, func(i, j int) bool { return lessShovel(recs[i], recs[j]) })

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriterSize(f, 1<<20)

	var zero E
	valSize := PE(&zero).ByteSize()
	buf := make([]byte, shovelHeaderSize+valSize)
	for _, r := range recs {
		binary.LittleEndian.PutUint32(buf[0:4], r.Src)
		binary.LittleEndian.PutUint32(buf[4:8], r.Dst)
		binary.LittleEndian.PutUint64(buf[8:16], r.seq)
		PE(&r.Val).Encode(buf[shovelHeaderSize:])
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return w.Flush()
}

// shovelReader streams a sorted shovel file back as shovelRecords, in the
// same (dst, src, seq) order it was written in.
type shovelReader[E any, PE shardfmt.Codec[E]] struct {
	f       *os.File
	r       *bufio.Reader
	recSize int
}

func openShovelReader[E any, PE shardfmt.Codec[E]](path string) (*shovelReader[E, PE], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	var zero E
	return &shovelReader[E, PE]{
		f:       f,
		r:       bufio.NewReaderSize(f, 1<<20),
		recSize: shovelHeaderSize + PE(&zero).ByteSize(),
	}, nil
}

func (sr *shovelReader[E, PE]) next() (shovelRecord[E], bool, error) {
	buf := make([]byte, sr.recSize)
	if _, err := io.ReadFull(sr.r, buf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return shovelRecord[E]{}, false, nil
		}
		return shovelRecord[E]{}, false, err
	}
	var rec shovelRecord[E]
	rec.Src = binary.LittleEndian.Uint32(buf[0:4])
	rec.Dst = binary.LittleEndian.Uint32(buf[4:8])
	rec.seq = binary.LittleEndian.Uint64(buf[8:16])
	PE(&rec.Val).Decode(buf[shovelHeaderSize:])
	return rec, true, nil
}

func (sr *shovelReader[E, PE]) close() error {
	return sr.f.Close()
}
