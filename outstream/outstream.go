// Package outstream implements the PSW engine's output streams (spec.md
// §4.7, component C10): a vertex program's way of emitting results while
// running, either as line-oriented text or as a freshly sharded graph.
// Both variants are safe for concurrent use by parallel vertex update
// callbacks -- each guards its state behind one lock, the same shape the
// teacher uses for its own file-backed writers (graph/io.go).
package outstream

import (
	"bufio"
	"fmt"
	"os"
	"sync"

	"github.com/kestrelgraph/pswgraph/shardfmt"
	"github.com/kestrelgraph/pswgraph/sharder"
)

// TextWriter is a line-oriented output stream backed by one file: the (a)
// variant of spec.md §4.7. A vertex program calls WriteLine from inside
// Update; concurrent callers are serialized behind a mutex rather than
// each opening their own file handle.
type TextWriter struct {
	mu sync.Mutex
	f  *os.File
	w  *bufio.Writer
}

// NewTextWriter creates (truncating any existing contents of) the output
// file at path.
func NewTextWriter(path string) (*TextWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &TextWriter{f: f, w: bufio.NewWriter(f)}, nil
}

// WriteLine formats and appends one line, newline-terminated. Safe to call
// from many goroutines at once.
func (t *TextWriter) WriteLine(format string, args ...any) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := fmt.Fprintf(t.w, format, args...); err != nil {
		return err
	}
	return t.w.WriteByte('\n')
}

// Close flushes buffered output and closes the underlying file.
func (t *TextWriter) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.w.Flush(); err != nil {
		t.f.Close()
		return err
	}
	return t.f.Close()
}

// ShardedWriter is the (b) variant of spec.md §4.7: output edges fed
// straight into a nested sharder.Sharder, producing a new on-disk shard
// set (e.g. the output of a graph transformation run as a PSW program).
// Sharder.AddEdge/AddEdgeWithValue are not safe for concurrent use on
// their own (spec.md §4.1's single-threaded ingestion assumption), so
// every call here is serialized behind a mutex.
type ShardedWriter[E any, PE shardfmt.Codec[E]] struct {
	mu sync.Mutex
	s  *sharder.Sharder[E, PE]
}

// NewShardedWriter wraps a freshly constructed Sharder for concurrent use
// by parallel vertex update callbacks.
func NewShardedWriter[E any, PE shardfmt.Codec[E]](opts sharder.Options) *ShardedWriter[E, PE] {
	return &ShardedWriter[E, PE]{s: sharder.New[E, PE](opts)}
}

// AddEdge records an output edge with the zero value of E.
func (w *ShardedWriter[E, PE]) AddEdge(src, dst uint32) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.s.AddEdge(src, dst)
}

// AddEdgeWithValue records an output edge with an explicit value.
func (w *ShardedWriter[E, PE]) AddEdgeWithValue(src, dst uint32, val E) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.s.AddEdgeWithValue(src, dst, val)
}

// Finalize flushes and shards the accumulated output edges, returning the
// same summary sharder.Sharder.Finalize would. Callers must not call
// AddEdge/AddEdgeWithValue after Finalize.
func (w *ShardedWriter[E, PE]) Finalize() (*sharder.Result, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.s.Finalize()
}
