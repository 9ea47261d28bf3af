package shardfmt

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/kestrelgraph/pswgraph/enforce"
)

// Adjacency record layout (spec.md §3):
//
//	count byte c
//	  c == 0            : zero-run. Next byte k (0<=k<=254) means "skip k+1
//	                       source ids with no edges in this shard". Repeated
//	                       zero/k pairs encode longer runs.
//	  0 < c < 0xff       : c destination ids follow, varint delta-encoded
//	                       ascending (I2).
//	  c == 0xff          : next 4 bytes (little-endian uint32) give the
//	                       literal count, followed by that many varint
//	                       delta-encoded destination ids.
const (
	maxLiteralCount = 0xff - 1
	extendedMarker  = 0xff
	maxZeroRun      = 254
)

// AdjacencyWriter streams adjacency records for a single shard, in
// ascending source-id order, to an io.Writer. It is the sharder's only
// means of producing an adjacency file; once written, the bytes are
// immutable (spec.md §4.3).
type AdjacencyWriter struct {
	w         io.Writer
	buf       []byte
	lastSrc   int64 // -1 before the first record
	pendingZR uint32
}

func NewAdjacencyWriter(w io.Writer) *AdjacencyWriter {
	return &AdjacencyWriter{w: w, buf: make([]byte, 0, 4096), lastSrc: -1}
}

// WriteVertex appends the record for source vertex src. dsts must already be
// sorted ascending (I2). If src is not immediately after the previous
// source, the gap is encoded as one or more zero-runs first.
func (aw *AdjacencyWriter) WriteVertex(src uint32, dsts []uint32) error {
	gap := int64(src) - aw.lastSrc - 1
	enforce.ENFORCE(gap >= 0, "adjacency records must be written in ascending source order")
	for gap > 0 {
		run := gap - 1
		if run > maxZeroRun {
			run = maxZeroRun
		}
		aw.buf = append(aw.buf[:0], 0, byte(run))
		if _, err := aw.w.Write(aw.buf); err != nil {
			return err
		}
		gap -= run + 1
	}
	aw.lastSrc = int64(src)

	aw.buf = aw.buf[:0]
	if len(dsts) <= maxLiteralCount {
		aw.buf = append(aw.buf, byte(len(dsts)))
	} else {
		var lenBuf [4]byte
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(dsts)))
		aw.buf = append(aw.buf, extendedMarker)
		aw.buf = append(aw.buf, lenBuf[:]...)
	}
	var varintBuf [binary.MaxVarintLen32]byte
	prev := uint32(0)
	for i, d := range dsts {
		enforce.ENFORCE(i == 0 || d > dsts[i-1], "adjacency dst ids must be strictly ascending within a record")
		var delta uint32
		if i == 0 {
			delta = d
		} else {
			delta = d - prev - 1 // strictly ascending, so delta-1 never underflows
		}
		n := binary.PutUvarint(varintBuf[:], uint64(delta))
		aw.buf = append(aw.buf, varintBuf[:n]...)
		prev = d
	}
	_, err := aw.w.Write(aw.buf)
	return err
}

// Close flushes any trailing zero-run needed to cover source ids up to (and
// including) maxSrc that were never written (i.e. sinks with no in-shard
// edges at the tail of the interval).
func (aw *AdjacencyWriter) Close(maxSrc uint32) error {
	gap := int64(maxSrc) - aw.lastSrc
	for gap > 0 {
		run := gap - 1
		if run > maxZeroRun {
			run = maxZeroRun
		}
		if _, err := aw.w.Write([]byte{0, byte(run)}); err != nil {
			return err
		}
		gap -= run + 1
	}
	return nil
}

// AdjacencyReader decodes an adjacency file sequentially, one source vertex
// at a time, in ascending order. Used by both the sliding shard (streaming,
// one sub-interval ahead) and the memory shard (loaded whole).
type AdjacencyReader struct {
	r         *bufio.Reader
	nextSrc   uint32
	zerosLeft uint32
}

func NewAdjacencyReader(r io.Reader) *AdjacencyReader {
	return &AdjacencyReader{r: bufio.NewReader(r)}
}

// Next decodes the next source record, returning its source id
// and destination list. Returns ok=false at EOF. Source ids skipped by
// zero-runs are surfaced as records with a nil dst list so callers can
// still advance their own per-vertex bookkeeping.
func (ar *AdjacencyReader) Next() (src uint32, dsts []uint32, ok bool, err error) {
	if ar.zerosLeft > 0 {
		ar.zerosLeft--
		src = ar.nextSrc
		ar.nextSrc++
		return src, nil, true, nil
	}
	c, err := ar.r.ReadByte()
	if err == io.EOF {
		return 0, nil, false, nil
	}
	if err != nil {
		return 0, nil, false, err
	}
	if c == 0 {
		k, err := ar.r.ReadByte()
		if err != nil {
			return 0, nil, false, err
		}
		ar.zerosLeft = uint32(k) // one of the k+1 is returned now
		src = ar.nextSrc
		ar.nextSrc++
		return src, nil, true, nil
	}
	count := uint32(c)
	if c == extendedMarker {
		var lenBuf [4]byte
		if _, err := io.ReadFull(ar.r, lenBuf[:]); err != nil {
			return 0, nil, false, err
		}
		count = binary.LittleEndian.Uint32(lenBuf[:])
	}
	dsts = make([]uint32, count)
	prev := uint32(0)
	for i := uint32(0); i < count; i++ {
		delta, err := binary.ReadUvarint(ar.r)
		if err != nil {
			return 0, nil, false, err
		}
		if i == 0 {
			prev = uint32(delta)
		} else {
			prev = prev + uint32(delta) + 1
		}
		dsts[i] = prev
	}
	src = ar.nextSrc
	ar.nextSrc++
	return src, dsts, true, nil
}
