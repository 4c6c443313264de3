// Package scheduler implements the deadline-ordered task queue the engine
// posts work onto. Tasks run on the dispatch thread when their deadline has
// passed; there is no cancellation.
package scheduler

import (
	"container/heap"
	"sync"

	"golang.org/x/sys/unix"
)

// Runner executes a task handed back by the scheduler.
type Runner func(payload interface{})

type entry struct {
	deadline uint64 // monotonic nanoseconds
	seq      uint64 // insertion order, breaks deadline ties FIFO
	payload  interface{}
}

type taskHeap []entry

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].deadline != h[j].deadline {
		return h[i].deadline < h[j].deadline
	}
	return h[i].seq < h[j].seq
}

func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *taskHeap) Push(x interface{}) { *h = append(*h, x.(entry)) }

func (h *taskHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// Scheduler is safe for concurrent PostTask against a single DrainDue caller;
// the engine's worker threads post while the dispatch thread drains.
type Scheduler struct {
	mu    sync.Mutex
	tasks taskHeap
	seq   uint64
	run   Runner
}

// New creates a scheduler that hands due tasks to run.
func New(run Runner) *Scheduler {
	return &Scheduler{run: run}
}

// PostTask enqueues a task for execution at deadline (monotonic nanoseconds).
func (s *Scheduler) PostTask(deadline uint64, payload interface{}) {
	s.mu.Lock()
	heap.Push(&s.tasks, entry{deadline: deadline, seq: s.seq, payload: payload})
	s.seq++
	s.mu.Unlock()
}

// DrainDue executes every task whose deadline is at or before now, in
// deadline order, and stops at the first task scheduled in the future.
// now is a single logical instant for the whole pass. Returns the number
// of tasks executed.
func (s *Scheduler) DrainDue(now uint64) int {
	ran := 0
	for {
		s.mu.Lock()
		if len(s.tasks) == 0 || s.tasks[0].deadline > now {
			s.mu.Unlock()
			return ran
		}
		e := heap.Pop(&s.tasks).(entry)
		s.mu.Unlock()

		// Run outside the lock: the task may post again.
		s.run(e.payload)
		ran++
	}
}

// Pending returns the number of tasks not yet due.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Now returns the scheduler's monotonic clock in nanoseconds. It matches the
// engine's CLOCK_MONOTONIC task deadlines.
func Now() uint64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return 0
	}
	return uint64(ts.Sec)*1e9 + uint64(ts.Nsec)
}
