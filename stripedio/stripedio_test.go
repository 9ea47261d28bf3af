package stripedio

import (
	"context"
	"path/filepath"
	"testing"
)

func TestManagerWriteNowThenReadNowRoundTrips(t *testing.T) {
	dir := t.TempDir()
	mgr := NewManager(Options{NumStripes: 2})
	defer mgr.Close()

	fh, err := mgr.Open(filepath.Join(dir, "f"), true)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer fh.Close()

	want := []byte("striped write-then-read")
	if n, err := mgr.WriteNow(fh, want, 0); err != nil || n != len(want) {
		t.Fatalf("WriteNow: n=%d err=%v", n, err)
	}

	got := make([]byte, len(want))
	if n, err := mgr.ReadNow(fh, got, 0); err != nil || n != len(got) {
		t.Fatalf("ReadNow: n=%d err=%v", n, err)
	}
	if string(got) != string(want) {
		t.Fatalf("ReadNow = %q, want %q", got, want)
	}
}

func TestManagerAsyncRoundTripsAndWaitAll(t *testing.T) {
	dir := t.TempDir()
	mgr := NewManager(Options{NumStripes: 2, AsyncLimit: 4})
	defer mgr.Close()

	fh, err := mgr.Open(filepath.Join(dir, "f"), true)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer fh.Close()

	ctx := context.Background()
	want := []byte("prefetch and writeback both go through a stripe worker")
	wf, err := mgr.WriteAsync(ctx, fh, want, 0)
	if err != nil {
		t.Fatalf("WriteAsync: %v", err)
	}
	if err := WaitAll([]*Future{wf}); err != nil {
		t.Fatalf("WaitAll(write): %v", err)
	}

	got := make([]byte, len(want))
	rf, err := mgr.ReadAsync(ctx, fh, got, 0)
	if err != nil {
		t.Fatalf("ReadAsync: %v", err)
	}
	if err := WaitAll([]*Future{rf}); err != nil {
		t.Fatalf("WaitAll(read): %v", err)
	}
	if string(got) != string(want) {
		t.Fatalf("async round trip = %q, want %q", got, want)
	}
}

func TestFilePinServesReadsFromMemory(t *testing.T) {
	dir := t.TempDir()
	mgr := NewManager(Options{NumStripes: 2})
	defer mgr.Close()

	fh, err := mgr.Open(filepath.Join(dir, "f"), true)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer fh.Close()

	want := []byte("hot metadata file pinned in RAM")
	if _, err := mgr.WriteNow(fh, want, 0); err != nil {
		t.Fatalf("WriteNow: %v", err)
	}
	if err := fh.Pin(); err != nil {
		t.Fatalf("Pin: %v", err)
	}

	got := make([]byte, len(want))
	if _, err := mgr.ReadNow(fh, got, 0); err != nil {
		t.Fatalf("ReadNow after Pin: %v", err)
	}
	if string(got) != string(want) {
		t.Fatalf("pinned read = %q, want %q", got, want)
	}

	fh.Unpin()
	got2 := make([]byte, len(want))
	if _, err := mgr.ReadNow(fh, got2, 0); err != nil {
		t.Fatalf("ReadNow after Unpin: %v", err)
	}
	if string(got2) != string(want) {
		t.Fatalf("unpinned read = %q, want %q", got2, want)
	}
}

// TestStripeForSpreadsSingleBlockFilesAcrossStripes guards against the
// manager degenerating into a single-queue dispatcher for the engine's
// actual traffic pattern: one small file per edge-value block, every
// access at offset 0. Distinct sessions must still land on distinct
// stripes by virtue of their path-derived start stripe.
func TestStripeForSpreadsSingleBlockFilesAcrossStripes(t *testing.T) {
	dir := t.TempDir()
	mgr := NewManager(Options{NumStripes: 8})
	defer mgr.Close()

	seen := make(map[*stripe]bool)
	for i := 0; i < 32; i++ {
		fh, err := mgr.Open(filepath.Join(dir, "block"+string(rune('a'+i))), true)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		defer fh.Close()
		seen[mgr.stripeFor(fh, 0)] = true
	}
	if len(seen) < 2 {
		t.Fatalf("32 distinct single-block sessions all landed on %d stripe(s), want spread across several", len(seen))
	}
}

// TestStripeForSplitsLargeSessionByStripeSize confirms a single session's
// own byte range still fans out across stripes once it spans more than
// one stripe's worth of bytes, per spec.md §4.2's ⌊o/Z⌋ mod M mapping.
func TestStripeForSplitsLargeSessionByStripeSize(t *testing.T) {
	dir := t.TempDir()
	mgr := NewManager(Options{NumStripes: 4, StripeSize: 64})
	defer mgr.Close()

	fh, err := mgr.Open(filepath.Join(dir, "big"), true)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer fh.Close()

	seen := make(map[*stripe]bool)
	for chunk := 0; chunk < 16; chunk++ {
		seen[mgr.stripeFor(fh, int64(chunk)*64)] = true
	}
	if len(seen) < 2 {
		t.Fatalf("16 chunks of one session all landed on %d stripe(s), want spread across several", len(seen))
	}
}
