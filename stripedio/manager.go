// Package stripedio is the engine's striped positioned-I/O path: the
// sliding shard's edge-block prefetches and write-backs and the engine's
// degree-file reads go through a Manager so they are load-balanced across
// a fixed pool of stripe workers rather than serialized behind one
// goroutine's blocking syscalls (spec.md §4.2). Adjacency streaming,
// shovel files, whole-block reads and writes in shardfmt, and the small
// metadata files use the os package directly.
package stripedio

import (
	"context"
	"hash/fnv"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/kestrelgraph/pswgraph/utils"
)

// defaultStripeSize is spec.md §4.2's "~512 KiB" default for Z, the
// logical-byte-range size one stripe covers.
const defaultStripeSize = 512 * 1024

type action int

const (
	actionRead action = iota
	actionWrite
)

// ioTask is one unit of work handed to a stripe worker. done is a
// buffered-1 channel the submitter receives the result on; priority tasks
// (synchronous reads/writes) are drained by a worker ahead of any queued
// async (prefetch/writeback) tasks.
type ioTask struct {
	act    action
	fh     *File
	buf    []byte
	offset int64
	n      int
	err    error
	done   chan struct{}
}

const stripeQueueCap = 1024

// stripe owns one worker goroutine and its two task queues.
type stripe struct {
	priority utils.RingBuffMPSC[*ioTask]
	async    utils.RingBuffMPSC[*ioTask]
	wake     chan struct{}
}

func newStripe() *stripe {
	s := &stripe{wake: make(chan struct{}, 1)}
	s.priority.Init(stripeQueueCap)
	s.async.Init(stripeQueueCap)
	return s
}

func (s *stripe) submit(t *ioTask, prio bool) {
	q := &s.async
	if prio {
		q = &s.priority
	}
	pos, ok := q.PutFastMP(t)
	if !ok {
		q.PutSlowMP(t, pos)
	}
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *stripe) run(ctx context.Context) {
	for {
		if t, ok := s.priority.Accept(); ok {
			execute(t)
			continue
		}
		if t, ok := s.async.Accept(); ok {
			execute(t)
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-s.wake:
		}
	}
}

func execute(t *ioTask) {
	if t.fh.readPinned(t.buf, t.offset) && t.act == actionRead {
		t.n = len(t.buf)
		close(t.done)
		return
	}
	switch t.act {
	case actionRead:
		t.n, t.err = preadFile(t.fh.f, t.buf, t.offset)
	case actionWrite:
		t.n, t.err = pwriteFile(t.fh.f, t.buf, t.offset)
	}
	close(t.done)
}

// Manager fans reads and writes for a set of Files out across a fixed pool
// of stripe workers. NumStripes should be sized to the number of
// independent disks/spindles available; on a single SSD a small number
// (2-4) is usually enough to keep the device's queue full without wasting
// goroutines.
type Manager struct {
	stripes    []*stripe
	stripeSize int64
	group      *errgroup.Group
	cancel     context.CancelFunc

	asyncSem *semaphore.Weighted
}

// Options configures a Manager.
type Options struct {
	NumStripes int
	// StripeSize is Z from spec.md §4.2: the logical-byte-range size one
	// stripe covers within a session. Zero means defaultStripeSize.
	StripeSize int64
	// AsyncLimit bounds the number of async (non-priority) tasks in
	// flight across the whole manager, so a runaway prefetch loop can't
	// starve memory. Zero means unbounded.
	AsyncLimit int64
}

// NewManager starts a Manager's stripe worker pool. Call Close when done.
func NewManager(opts Options) *Manager {
	if opts.NumStripes <= 0 {
		opts.NumStripes = 4
	}
	if opts.StripeSize <= 0 {
		opts.StripeSize = defaultStripeSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	group, gctx := errgroup.WithContext(ctx)

	m := &Manager{cancel: cancel, group: group, stripeSize: opts.StripeSize}
	if opts.AsyncLimit > 0 {
		m.asyncSem = semaphore.NewWeighted(opts.AsyncLimit)
	}
	m.stripes = make([]*stripe, opts.NumStripes)
	for i := range m.stripes {
		s := newStripe()
		m.stripes[i] = s
		group.Go(func() error {
			s.run(gctx)
			return nil
		})
	}
	return m
}

// Close stops all stripe workers. Outstanding tasks are abandoned; callers
// must Wait() on anything they still care about before calling Close.
func (m *Manager) Close() {
	m.cancel()
	m.group.Wait()
}

// Open opens path for striped access, creating it if create is true. Each
// session is assigned a start stripe derived from its path's hash (spec.md
// §4.2's "per-session start offset"), so small single-block files -- one
// per on-disk edge-value block -- still fan out across every stripe
// instead of every session landing on stripe 0.
func (m *Manager) Open(path string, create bool) (*File, error) {
	f, err := openFile(path, create)
	if err != nil {
		return nil, err
	}
	h := fnv.New32a()
	h.Write([]byte(path))
	start := int(h.Sum32() % uint32(len(m.stripes)))
	return &File{path: path, f: f, start: start}, nil
}

// stripeFor maps a session's logical offset to a stripe: ⌊o/Z⌋ (+ the
// session's start stripe) mod M (spec.md §4.2). Z-sized chunks of one
// session's byte range fan out round-robin starting from its own start
// stripe, and distinct sessions (distinct per-block files, in this
// engine) start at different points in that round-robin by construction.
func (m *Manager) stripeFor(fh *File, offset int64) *stripe {
	idx := (int(offset/m.stripeSize) + fh.start) % len(m.stripes)
	return m.stripes[idx]
}

// ReadNow performs a synchronous positioned read, blocking until complete.
// It is submitted at priority so it overtakes any queued async prefetch
// work on its stripe.
func (m *Manager) ReadNow(fh *File, buf []byte, offset int64) (int, error) {
	t := &ioTask{act: actionRead, fh: fh, buf: buf, offset: offset, done: make(chan struct{})}
	m.stripeFor(fh, offset).submit(t, true)
	<-t.done
	return t.n, t.err
}

// WriteNow performs a synchronous positioned write, blocking until complete.
func (m *Manager) WriteNow(fh *File, buf []byte, offset int64) (int, error) {
	t := &ioTask{act: actionWrite, fh: fh, buf: buf, offset: offset, done: make(chan struct{})}
	m.stripeFor(fh, offset).submit(t, true)
	<-t.done
	return t.n, t.err
}

// Future is a handle to an in-flight async task.
type Future struct {
	t   *ioTask
	rel func()
}

// Wait blocks until the task completes and returns its result.
func (fut *Future) Wait() (int, error) {
	<-fut.t.done
	if fut.rel != nil {
		fut.rel()
	}
	return fut.t.n, fut.t.err
}

// ReadAsync queues a non-blocking prefetch read, used by the sliding shard
// to read ahead of the engine's current sub-interval.
func (m *Manager) ReadAsync(ctx context.Context, fh *File, buf []byte, offset int64) (*Future, error) {
	return m.submitAsync(ctx, actionRead, fh, buf, offset)
}

// WriteAsync queues a non-blocking writeback write, used by the sliding
// shard to flush modified out-edges without stalling the main loop.
func (m *Manager) WriteAsync(ctx context.Context, fh *File, buf []byte, offset int64) (*Future, error) {
	return m.submitAsync(ctx, actionWrite, fh, buf, offset)
}

func (m *Manager) submitAsync(ctx context.Context, act action, fh *File, buf []byte, offset int64) (*Future, error) {
	var release func()
	if m.asyncSem != nil {
		if err := m.asyncSem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		release = func() { m.asyncSem.Release(1) }
	}
	t := &ioTask{act: act, fh: fh, buf: buf, offset: offset, done: make(chan struct{})}
	m.stripeFor(fh, offset).submit(t, false)
	return &Future{t: t, rel: release}, nil
}

// WaitAll blocks until every future in futs has completed, returning the
// first error encountered (if any). Matches the sliding shard's
// "wait_for_reads"/"wait_for_writes" barrier before advancing sub-intervals.
func WaitAll(futs []*Future) error {
	var first error
	for _, fut := range futs {
		if _, err := fut.Wait(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
