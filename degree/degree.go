// Package degree stores and accumulates per-vertex in/out degree: the
// sharder counts degrees and writes the degree file, and the engine reads
// it back to presize each vertex's edge lists. The on-disk degree file is
// a flat array of fixed-size records, indexed directly by (dense,
// zero-based) vertex id.
package degree

import (
	"encoding/binary"
	"io"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/rs/zerolog/log"

	"github.com/kestrelgraph/pswgraph/utils"
)

// Record is one vertex's degree pair, 8 bytes on disk (in, out uint32).
type Record struct {
	In  uint32
	Out uint32
}

const recordSize = 8

func (r Record) encode(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], r.In)
	binary.LittleEndian.PutUint32(buf[4:8], r.Out)
}

func (r *Record) decode(buf []byte) {
	r.In = binary.LittleEndian.Uint32(buf[0:4])
	r.Out = binary.LittleEndian.Uint32(buf[4:8])
}

// Store accumulates degree counts for every vertex seen during the
// sharder's shovel/finalize passes. Counts are always kept in RAM as a
// dense slice indexed by vertex id, grown to cover the largest id seen;
// there is no memory-budget check and no on-disk fallback. RoaringBitmap
// only tracks which vertex ids have been observed at all; it does not
// replace the dense slice.
type Store struct {
	counts  []Record
	present *roaring.Bitmap
}

// NewStore creates a degree accumulator. capacityHint should be the
// caller's best estimate of the number of distinct vertices; it's used to
// presize the backing slice and is not a hard limit -- AddOut/AddIn grow it
// as needed.
func NewStore(capacityHint uint32) *Store {
	return &Store{
		counts:  make([]Record, capacityHint),
		present: roaring.New(),
	}
}

func (s *Store) grow(id uint32) {
	if int(id) < len(s.counts) {
		return
	}
	grown := make([]Record, utils.RoundUpPow(uint64(id)+1))
	copy(grown, s.counts)
	s.counts = grown
}

// AddOut records one outgoing edge from src.
func (s *Store) AddOut(src uint32) {
	s.grow(src)
	s.counts[src].Out++
	s.present.Add(src)
}

// AddIn records one incoming edge to dst.
func (s *Store) AddIn(dst uint32) {
	s.grow(dst)
	s.counts[dst].In++
	s.present.Add(dst)
}

// NumVertices returns the count of distinct vertex ids observed by either
// AddOut or AddIn, which may be smaller than len(s.counts) if the id space
// is sparse.
func (s *Store) NumVertices() uint64 {
	return s.present.GetCardinality()
}

// MaxID returns the largest vertex id observed, or 0 if none have been.
func (s *Store) MaxID() uint32 {
	if s.present.IsEmpty() {
		return 0
	}
	return s.present.Maximum()
}

// Get returns the degree record for id, or the zero record if id was never
// observed.
func (s *Store) Get(id uint32) Record {
	if int(id) >= len(s.counts) {
		return Record{}
	}
	return s.counts[id]
}

// WriteTo serializes every record from 0 up to and including MaxID() to w,
// in vertex-id order, so the resulting file can be indexed by
// id*recordSize for O(1) lookup (spec.md §3 degree file).
func (s *Store) WriteTo(w io.Writer) (int64, error) {
	max := s.MaxID()
	buf := make([]byte, recordSize*4096)
	var written int64
	id := uint32(0)
	for id <= max {
		n := 0
		for n < len(buf) && id <= max {
			rec := s.Get(id)
			rec.encode(buf[n : n+recordSize])
			n += recordSize
			id++
		}
		nw, err := w.Write(buf[:n])
		written += int64(nw)
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

// Reader provides random-access lookups into an on-disk degree file via
// ReadAt, without loading the whole file into RAM -- used by the engine
// when sizing per-vertex edge buffers during a run.
type Reader struct {
	ra io.ReaderAt
}

func NewReader(ra io.ReaderAt) *Reader {
	return &Reader{ra: ra}
}

// At returns the degree record for vertex id.
func (r *Reader) At(id uint32) (Record, error) {
	var buf [recordSize]byte
	if _, err := r.ra.ReadAt(buf[:], int64(id)*recordSize); err != nil {
		log.Debug().Err(err).Uint32("id", id).Msg("degree read past end of file, treating as zero")
		return Record{}, err
	}
	var rec Record
	rec.decode(buf[:])
	return rec, nil
}
