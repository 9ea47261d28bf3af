package engine

import (
	"github.com/kestrelgraph/pswgraph/degree"
	"github.com/kestrelgraph/pswgraph/stripedio"
)

// degreeIndex wraps the sharder's on-disk degree store (spec.md §3 Degree
// file) for random-access lookups during a run: buildVertex uses it to
// presize a vertex's in/out edge slices instead of growing them one
// append at a time. It's small and read once per vertex per sub-interval,
// so it's a pinning candidate under the preload budget (spec.md §4.2
// Pinning, §6 preload.max_megabytes).
type degreeIndex struct {
	mgr *stripedio.Manager
	fh  *stripedio.File
	r   *degree.Reader
}

// readerAtFunc adapts a plain function to io.ReaderAt, letting degree.Reader
// read through the striped I/O manager without a dedicated wrapper type.
type readerAtFunc func(p []byte, off int64) (int, error)

func (f readerAtFunc) ReadAt(p []byte, off int64) (int, error) { return f(p, off) }

// openDegreeIndex opens path (the sharder's "<base>.degree" file) and pins
// it wholly in memory when it fits preloadMaxMB.
func openDegreeIndex(mgr *stripedio.Manager, path string, preloadMaxMB int) (*degreeIndex, error) {
	fh, err := mgr.Open(path, false)
	if err != nil {
		return nil, err
	}
	idx := &degreeIndex{mgr: mgr, fh: fh}
	idx.r = degree.NewReader(readerAtFunc(idx.readAt))

	if preloadMaxMB > 0 && fh.Size() <= int64(preloadMaxMB)*(1<<20) {
		if err := fh.Pin(); err != nil {
			fh.Close()
			return nil, err
		}
	}
	return idx, nil
}

func (idx *degreeIndex) readAt(buf []byte, off int64) (int, error) {
	return idx.mgr.ReadNow(idx.fh, buf, off)
}

// At returns vertex id's degree record, or the zero record if reading past
// the end of the file (a sparse/trailing vertex id with no edges at all).
func (idx *degreeIndex) At(id uint32) (degree.Record, error) {
	return idx.r.At(id)
}

func (idx *degreeIndex) Close() error { return idx.fh.Close() }
