// Package slidingshard implements the PSW engine's sliding shard (spec.md
// §4.3, component C5): every shard other than the one currently fully
// loaded in memory. Its adjacency is streamed forward, one source vertex
// at a time, never further than the active sub-interval's window_end;
// its edge-value blocks are faulted in on demand and, for out-edges
// touched by the current sub-interval, read ahead of need and written
// back asynchronously once the caller is done with them.
package slidingshard

import (
	"bufio"
	"context"
	"os"

	"github.com/kestrelgraph/pswgraph/shardfmt"
	"github.com/kestrelgraph/pswgraph/stripedio"
)

// OutEdge is one out-edge surfaced by ReadNextVertices: its destination
// vertex and the ordinal position of its value in this shard's
// edge-value stream (I3), used to locate the owning block.
type OutEdge struct {
	Dst    uint32
	ValIdx uint32
}

// Window is one source vertex's out-edges as returned by a single
// ReadNextVertices call.
type Window struct {
	Src      uint32
	OutEdges []OutEdge
}

// Shard streams one shard's adjacency forward and fetches edge-value
// blocks on demand. E is the edge value type; PE its Codec.
type Shard[E any, PE shardfmt.Codec[E]] struct {
	mgr *stripedio.Manager

	adjFile *os.File
	ar      *shardfmt.AdjacencyReader

	edataDir       string
	bc             *shardfmt.BlockCodec
	valuesPerBlock int
	valSize        int
	lastBlockCount int // element count of the final (possibly short) block
	numBlocks      int
	totalValues    int

	blocks      map[int][]E
	dirty       map[int]bool
	prefetch    map[int]*stripedio.Future
	prefetchRaw map[int][]byte
	blockFiles  map[int]*stripedio.File

	nextValIdx uint32 // ordinal of the next out-edge to be assigned a ValIdx
	eof        bool

	// pending holds one record read past windowEnd and not yet handed to
	// a caller -- the adjacency reader itself has no pushback, so a
	// record that belongs to a later sub-interval has to be buffered
	// here rather than discarded (a discarded zero-out-degree vertex
	// would silently never get its turn to run).
	havePending bool
	pendingSrc  uint32
	pendingDsts []uint32
}

// Open opens a shard's adjacency file for sequential streaming and
// prepares on-demand access to its edge-value blocks. totalValues is the
// shard's total out-edge count (its degree file, or the sharder's
// Result, gives this); it is needed up front to size the last block
// correctly.
func Open[E any, PE shardfmt.Codec[E]](mgr *stripedio.Manager, adjPath, edataDir string, bc *shardfmt.BlockCodec, valuesPerBlock int, totalValues int) (*Shard[E, PE], error) {
	f, err := os.Open(adjPath)
	if err != nil {
		return nil, err
	}
	var zero E
	valSize := PE(&zero).ByteSize()
	numBlocks := 0
	lastCount := 0
	if totalValues > 0 {
		numBlocks = (totalValues + valuesPerBlock - 1) / valuesPerBlock
		lastCount = totalValues - (numBlocks-1)*valuesPerBlock
	}
	return &Shard[E, PE]{
		mgr:            mgr,
		adjFile:        f,
		ar:             shardfmt.NewAdjacencyReader(bufio.NewReader(f)),
		edataDir:       edataDir,
		bc:             bc,
		valuesPerBlock: valuesPerBlock,
		valSize:        valSize,
		lastBlockCount: lastCount,
		numBlocks:      numBlocks,
		totalValues:    totalValues,
		blocks:         make(map[int][]E),
		dirty:          make(map[int]bool),
		prefetch:       make(map[int]*stripedio.Future),
		prefetchRaw:    make(map[int][]byte),
		blockFiles:     make(map[int]*stripedio.File),
	}, nil
}

// Close releases the adjacency file handle and every block file handle
// opened along the way. It does not flush dirty blocks; call Commit
// first.
func (s *Shard[E, PE]) Close() error {
	for _, fh := range s.blockFiles {
		fh.Close()
	}
	return s.adjFile.Close()
}

// blockFile returns the (cached) striped-I/O handle for block index,
// opening it on first use.
func (s *Shard[E, PE]) blockFile(index int) (*stripedio.File, error) {
	if fh, ok := s.blockFiles[index]; ok {
		return fh, nil
	}
	fh, err := s.mgr.Open(shardfmt.BlockPath(s.edataDir, index), false)
	if err != nil {
		return nil, err
	}
	s.blockFiles[index] = fh
	return fh, nil
}

func (s *Shard[E, PE]) blockCount(index int) int {
	if index == s.numBlocks-1 {
		return s.lastBlockCount
	}
	return s.valuesPerBlock
}

// ReadNextVertices advances the adjacency cursor, returning up to limit
// source vertices whose id is <= windowEnd, per sub-interval (spec.md
// §4.6 step b). It stops early, short of limit, once a vertex beyond
// windowEnd is encountered (the cursor is left positioned on it for the
// next sub-interval). readOnly is part of the call's contract with the
// engine -- a read-only sub-interval pass never calls SetValue on any
// edge it sees here -- but the shard itself doesn't need to branch on it:
// dirtiness is tracked per actual SetValue call, not per read.
func (s *Shard[E, PE]) ReadNextVertices(limit int, windowEnd uint32, readOnly bool) ([]Window, error) {
	var out []Window
	for len(out) < limit {
		src, dsts, ok, err := s.nextRecord()
		if err != nil {
			return out, err
		}
		if !ok {
			break
		}
		if src > windowEnd {
			s.pushback(src, dsts)
			break
		}
		w := Window{Src: src}
		for _, d := range dsts {
			idx := s.nextValIdx
			s.nextValIdx++
			if err := s.ensureBlockLoaded(int(idx) / s.valuesPerBlock); err != nil {
				return out, err
			}
			w.OutEdges = append(w.OutEdges, OutEdge{Dst: d, ValIdx: idx})
		}
		out = append(out, w)
	}
	return out, nil
}

// nextRecord returns the pending pushed-back record if there is one,
// otherwise reads the next record straight from the adjacency stream.
func (s *Shard[E, PE]) nextRecord() (uint32, []uint32, bool, error) {
	if s.havePending {
		s.havePending = false
		return s.pendingSrc, s.pendingDsts, true, nil
	}
	if s.eof {
		return 0, nil, false, nil
	}
	src, dsts, ok, err := s.ar.Next()
	if err != nil {
		return 0, nil, false, err
	}
	if !ok {
		s.eof = true
		return 0, nil, false, nil
	}
	return src, dsts, true, nil
}

func (s *Shard[E, PE]) pushback(src uint32, dsts []uint32) {
	s.havePending = true
	s.pendingSrc = src
	s.pendingDsts = dsts
}

// Done reports whether the adjacency stream has been fully consumed, with
// no pushed-back record left for a future sub-interval to claim.
func (s *Shard[E, PE]) Done() bool { return s.eof && !s.havePending }

// Value returns the current value of the out-edge at valIdx. The owning
// block must already have been loaded by a prior ReadNextVertices call.
func (s *Shard[E, PE]) Value(valIdx uint32) E {
	block := s.blocks[int(valIdx)/s.valuesPerBlock]
	return block[int(valIdx)%s.valuesPerBlock]
}

// SetValue mutates the out-edge at valIdx and marks its block dirty for
// the next Commit.
func (s *Shard[E, PE]) SetValue(valIdx uint32, v E) {
	idx := int(valIdx) / s.valuesPerBlock
	block := s.blocks[idx]
	block[int(valIdx)%s.valuesPerBlock] = v
	s.dirty[idx] = true
}

// ensureBlockLoaded makes sure block index is resident, synchronously
// fetching it if necessary, and kicks off an async prefetch of the next
// block so the following ReadNextVertices call rarely blocks on I/O.
func (s *Shard[E, PE]) ensureBlockLoaded(index int) error {
	if _, ok := s.blocks[index]; ok {
		return nil
	}
	if fut, ok := s.prefetch[index]; ok {
		if _, err := fut.Wait(); err != nil {
			return err
		}
		raw := s.prefetchRaw[index]
		delete(s.prefetch, index)
		delete(s.prefetchRaw, index)
		decoded, err := s.decode(raw, index)
		if err != nil {
			return err
		}
		s.blocks[index] = decoded
	} else {
		values, err := shardfmt.ReadBlockFile[E, PE](s.edataDir, index, s.bc, s.blockCount(index))
		if err != nil {
			return err
		}
		s.blocks[index] = values
	}
	s.prefetchNext(index + 1)
	return nil
}

func (s *Shard[E, PE]) decode(raw []byte, index int) ([]E, error) {
	count := s.blockCount(index)
	decompressed, err := s.bc.Decompress(raw, count*s.valSize)
	if err != nil {
		return nil, err
	}
	return shardfmt.DecodeBlock[E, PE](decompressed, count), nil
}

// prefetchNext kicks off an async read of block index's raw on-disk
// bytes. Only done when blocks are stored uncompressed, since a
// compressed block's on-disk size isn't known without a stat -- for a
// compressed shard ensureBlockLoaded always falls back to the
// synchronous ReadBlockFile path, which already does its own stat+read.
func (s *Shard[E, PE]) prefetchNext(index int) {
	if s.bc.Compress {
		return
	}
	if index >= s.numBlocks {
		return
	}
	if _, ok := s.blocks[index]; ok {
		return
	}
	if _, ok := s.prefetch[index]; ok {
		return
	}
	count := s.blockCount(index)
	raw := make([]byte, count*s.valSize)
	fh, err := s.blockFile(index)
	if err != nil {
		return
	}
	fut, err := s.mgr.ReadAsync(context.Background(), fh, raw, 0)
	if err != nil {
		return
	}
	s.prefetch[index] = fut
	s.prefetchRaw[index] = raw
}

// Invalidate drops every currently cached edge-value block (waiting on any
// in-flight prefetch first so its async slot is released), forcing the
// next access to reload from disk. Call this on a shard's own-index
// cursor right after that shard's memory-shard pass writes its blob back:
// the own-index cursor's block cache may already hold a copy of a block
// straddling this shard's boundary with the next one, faulted in before
// the write-back happened, and left uninvalidated it would go stale
// relative to what the memory shard just wrote (spec.md §4.6's guarantee
// that every shard is scanned fresh exactly once per iteration).
func (s *Shard[E, PE]) Invalidate() error {
	for index, fut := range s.prefetch {
		if _, err := fut.Wait(); err != nil {
			return err
		}
		delete(s.prefetch, index)
		delete(s.prefetchRaw, index)
	}
	for index := range s.blocks {
		delete(s.blocks, index)
	}
	return nil
}

// Commit writes back every block mutated since the last Commit, using
// async writes gathered and waited on together (spec.md §4.3 "commit-back
// of modified out-edges"; §5's ordering guarantee lets these races freely
// against the next sub-interval's reads of other shards).
func (s *Shard[E, PE]) Commit() error {
	var futs []*stripedio.Future
	for index := range s.dirty {
		raw := shardfmt.EncodeBlock[E, PE](s.blocks[index])
		fh, err := s.blockFile(index)
		if err != nil {
			return err
		}
		fut, err := s.mgr.WriteAsync(context.Background(), fh, raw, 0)
		if err != nil {
			return err
		}
		futs = append(futs, fut)
	}
	if err := stripedio.WaitAll(futs); err != nil {
		return err
	}
	for index := range s.dirty {
		delete(s.dirty, index)
	}
	return nil
}
