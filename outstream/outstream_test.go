package outstream

import (
	"bufio"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/kestrelgraph/pswgraph/sharder"
	"github.com/kestrelgraph/pswgraph/shardfmt"
)

func TestTextWriterConcurrentWriteLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	w, err := NewTextWriter(path)
	if err != nil {
		t.Fatalf("NewTextWriter: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := w.WriteLine("%d visited", i); err != nil {
				t.Errorf("WriteLine: %v", err)
			}
		}(i)
	}
	wg.Wait()
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()
	lines := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines++
	}
	if lines != 50 {
		t.Fatalf("got %d lines, want 50", lines)
	}
}

func TestShardedWriterConcurrentAddEdge(t *testing.T) {
	base := filepath.Join(t.TempDir(), "g")
	w := NewShardedWriter[shardfmt.Empty, *shardfmt.Empty](sharder.Options{
		BasePath:  base,
		NumShards: 2,
	})

	var wg sync.WaitGroup
	for i := uint32(0); i < 20; i++ {
		wg.Add(1)
		go func(i uint32) {
			defer wg.Done()
			if err := w.AddEdge(i, i+1); err != nil {
				t.Errorf("AddEdge: %v", err)
			}
		}(i)
	}
	wg.Wait()

	result, err := w.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if result.TotalEdges != 20 {
		t.Fatalf("TotalEdges = %d, want 20", result.TotalEdges)
	}
}
