package degree

import (
	"bytes"
	"testing"
)

func TestStoreAccumulateAndWrite(t *testing.T) {
	s := NewStore(4)
	s.AddOut(0)
	s.AddOut(0)
	s.AddIn(1)
	s.AddOut(5)
	s.AddIn(5)

	if got := s.NumVertices(); got != 3 {
		t.Fatalf("NumVertices() = %d, want 3", got)
	}
	if got := s.MaxID(); got != 5 {
		t.Fatalf("MaxID() = %d, want 5", got)
	}

	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	r := NewReader(bytes.NewReader(buf.Bytes()))
	rec, err := r.At(0)
	if err != nil {
		t.Fatalf("At(0): %v", err)
	}
	if rec.Out != 2 {
		t.Fatalf("vertex 0 Out = %d, want 2", rec.Out)
	}
	rec, err = r.At(1)
	if err != nil {
		t.Fatalf("At(1): %v", err)
	}
	if rec.In != 1 {
		t.Fatalf("vertex 1 In = %d, want 1", rec.In)
	}
	rec, err = r.At(5)
	if err != nil {
		t.Fatalf("At(5): %v", err)
	}
	if rec.In != 1 || rec.Out != 1 {
		t.Fatalf("vertex 5 = %+v, want In=1 Out=1", rec)
	}
}
