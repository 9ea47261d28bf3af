package engine

import (
	"sync/atomic"

	"github.com/kestrelgraph/pswgraph/schedule"
)

// Context is the handle passed to a vertex program's Update call: the
// current iteration number, and access to the selective scheduler and the
// engine's cancellation switch (spec.md §4.6's set_last_iteration).
type Context struct {
	Iteration int

	sched    *schedule.Scheduler
	lastIter *atomic.Bool
}

// ScheduleTask marks id to run on the next iteration. A no-op if selective
// scheduling was not enabled for this run (the scheduler still exists, but
// nothing consults it).
func (c *Context) ScheduleTask(id uint32) {
	c.sched.AddTask(id)
}

// SetLastIteration requests the engine stop after the current iteration
// completes (spec.md §4.6 "Cancellation"). Safe to call from any vertex
// update concurrently; the request is observed once, at the end of the
// iteration, by every caller.
func (c *Context) SetLastIteration() {
	c.lastIter.Store(true)
}
