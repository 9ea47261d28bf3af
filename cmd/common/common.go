// Package common holds the small bits of glue every psw-* binary under
// cmd/ repeats: deriving a results filename from the input base path, and
// writing a vertex program's final per-vertex values out as one line per
// vertex.
package common

import (
	"strings"

	"github.com/kestrelgraph/pswgraph/outstream"
)

// ExtractGraphName derives a bare graph name from a shard base path, for
// building a results filename (e.g. "results/<name>-cc.txt").
func ExtractGraphName(basePath string) string {
	parts := strings.Split(basePath, "/")
	name := parts[len(parts)-1]
	if dot := strings.LastIndex(name, "."); dot > 0 {
		name = name[:dot]
	}
	return name
}

// WriteVertexValues writes one line per vertex, "<id> <value>", id running
// from 0 to len(values)-1. format renders a single vertex's value; callers
// typically pass fmt.Sprintf("%d", ...) or similar.
func WriteVertexValues[V any](path string, values []V, format func(id uint32, v V) string) error {
	w, err := outstream.NewTextWriter(path)
	if err != nil {
		return err
	}
	for id, v := range values {
		if err := w.WriteLine("%d %s", uint32(id), format(uint32(id), v)); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}
