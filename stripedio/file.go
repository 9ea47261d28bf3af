package stripedio

import (
	"os"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/kestrelgraph/pswgraph/enforce"
)

// File is a handle into the striped I/O manager's view of one on-disk
// file: the underlying *os.File plus optional whole-file pinning. All
// positioned reads/writes against it go through the owning Manager so they
// are load-balanced across the manager's stripe workers instead of
// contending on one goroutine.
type File struct {
	path  string
	f     *os.File
	start int // this session's start stripe (spec.md §4.2)

	mu     sync.RWMutex
	pinned []byte // non-nil once pinned; read under mu
}

func openFile(path string, create bool) (*os.File, error) {
	if create {
		return os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	}
	return os.OpenFile(path, os.O_RDWR, 0644)
}

// Size returns the current on-disk size of the file.
func (fh *File) Size() int64 {
	info, err := fh.f.Stat()
	enforce.ENFORCE(err)
	return info.Size()
}

// Close releases the underlying descriptor. The manager must have no
// in-flight tasks against fh when this is called.
func (fh *File) Close() error {
	return fh.f.Close()
}

// Pin loads the entire file into memory once, so subsequent reads against
// it are served from RAM instead of going through a stripe worker at all.
// Intended for small, frequently-reread files such as the degree store or
// interval index, mirroring GraphChi's memory-pinning of hot metadata
// files (spec.md §4.2).
func (fh *File) Pin() error {
	fh.mu.Lock()
	defer fh.mu.Unlock()
	if fh.pinned != nil {
		return nil
	}
	size := fh.Size()
	buf := make([]byte, size)
	if _, err := fh.f.ReadAt(buf, 0); err != nil {
		log.Error().Err(err).Str("path", fh.path).Msg("failed to pin file")
		return err
	}
	fh.pinned = buf
	return nil
}

// Unpin drops the in-memory copy, reverting to normal striped access.
func (fh *File) Unpin() {
	fh.mu.Lock()
	fh.pinned = nil
	fh.mu.Unlock()
}

func (fh *File) readPinned(buf []byte, off int64) bool {
	fh.mu.RLock()
	defer fh.mu.RUnlock()
	if fh.pinned == nil {
		return false
	}
	n := copy(buf, fh.pinned[off:])
	enforce.ENFORCE(n == len(buf), "pinned read ran past end of pinned buffer")
	return true
}
