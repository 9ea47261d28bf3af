package engine

import (
	"path/filepath"
	"testing"

	"github.com/kestrelgraph/pswgraph/shardfmt"
)

func TestVertexDataRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "g.vdata")
	vd, err := openVertexData[shardfmt.Uint32, *shardfmt.Uint32](path, 4, false)
	if err != nil {
		t.Fatalf("openVertexData: %v", err)
	}
	defer vd.Close()

	got, err := vd.ReadRange(0, 3)
	if err != nil {
		t.Fatalf("ReadRange: %v", err)
	}
	for i, v := range got {
		if v.Value != 0 {
			t.Fatalf("vertex %d = %d, want 0 on a fresh file", i, v.Value)
		}
	}

	if err := vd.WriteRange(1, []shardfmt.Uint32{{Value: 10}, {Value: 20}}); err != nil {
		t.Fatalf("WriteRange: %v", err)
	}

	got, err = vd.ReadRange(0, 3)
	if err != nil {
		t.Fatalf("ReadRange after write: %v", err)
	}
	want := []uint32{0, 10, 20, 0}
	for i, v := range got {
		if v.Value != want[i] {
			t.Fatalf("vertex %d = %d, want %d", i, v.Value, want[i])
		}
	}
}

func TestVertexDataEmptyTypeIsNoOp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "g.vdata")
	vd, err := openVertexData[shardfmt.Empty, *shardfmt.Empty](path, 4, false)
	if err != nil {
		t.Fatalf("openVertexData: %v", err)
	}
	defer vd.Close()

	if vd.recSize != 0 {
		t.Fatalf("recSize = %d, want 0 for shardfmt.Empty", vd.recSize)
	}
	got, err := vd.ReadRange(0, 3)
	if err != nil {
		t.Fatalf("ReadRange: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("ReadRange returned %d values, want 4", len(got))
	}
	if err := vd.WriteRange(0, got); err != nil {
		t.Fatalf("WriteRange: %v", err)
	}
}

func TestVertexDataResetZeroFillsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "g.vdata")
	vd, err := openVertexData[shardfmt.Uint32, *shardfmt.Uint32](path, 2, false)
	if err != nil {
		t.Fatalf("openVertexData: %v", err)
	}
	if err := vd.WriteRange(0, []shardfmt.Uint32{{Value: 7}, {Value: 8}}); err != nil {
		t.Fatalf("WriteRange: %v", err)
	}
	vd.Close()

	reopened, err := openVertexData[shardfmt.Uint32, *shardfmt.Uint32](path, 2, true)
	if err != nil {
		t.Fatalf("reopen with reset: %v", err)
	}
	defer reopened.Close()
	got, err := reopened.ReadRange(0, 1)
	if err != nil {
		t.Fatalf("ReadRange: %v", err)
	}
	for i, v := range got {
		if v.Value != 0 {
			t.Fatalf("vertex %d = %d, want 0 after reset", i, v.Value)
		}
	}
}
