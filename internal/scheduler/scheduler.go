// Package scheduler implements the single-worker, priority-preemptive
// decode queue from spec §4.8: a binary heap keyed (priority,
// submit_order) with exactly one goroutine performing decode at any
// instant. Grounded on container/heap (no priority-queue library
// appears anywhere in the retrieved corpus, so this is the one
// justified standard-library component — see DESIGN.md) and on the
// teacher's producer/consumer goroutine-plus-channel shutdown idiom.
package scheduler

import (
	"container/heap"
	"log/slog"
	"sync"
	"time"

	"github.com/wkmp/ap/pkg/timing"
	"github.com/wkmp/ap/pkg/types"
)

// DecodeRequest names one passage to decode and the priority at which
// to schedule it.
type DecodeRequest struct {
	QueueEntryID string
	Priority     types.Priority
	FilePath     string
	StartTick    timing.Tick
	EndTick      timing.Tick
	EndTickSet   bool

	submitOrder uint64
}

// Handler performs the actual decode work for one request. shouldYield
// reports whether a strictly higher-priority request is now pending or
// Shutdown has been called;
// the handler must check it between chunks and return promptly when
// true so the scheduler can switch (restart-at-chunk-boundary, per the
// Open Question decision recorded in SPEC_FULL.md). Decode returns
// complete=false when it returned early because shouldYield fired
// (rather than finishing or failing terminally); unless Shutdown has
// been called, the scheduler re-submits the same request in that case
// so a preempted passage's
// buffer eventually reaches Ready instead of being stuck mid-decode
// (spec §4.8 step 3: "re-queue the current request ... and switch").
type Handler interface {
	Decode(req DecodeRequest, shouldYield func() bool) (complete bool)
}

type requestHeap []DecodeRequest

func (h requestHeap) Len() int { return len(h) }
func (h requestHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority < h[j].Priority
	}
	return h[i].submitOrder < h[j].submitOrder
}
func (h requestHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *requestHeap) Push(x any)   { *h = append(*h, x.(DecodeRequest)) }
func (h *requestHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// SerialScheduler is the single-worker decode queue.
type SerialScheduler struct {
	handler Handler

	mu      sync.Mutex
	cond    *sync.Cond
	heap    requestHeap
	nextSeq uint64
	stopped bool

	done chan struct{}
}

// New creates a scheduler bound to handler. Call Run to start the
// worker goroutine.
func New(handler Handler) *SerialScheduler {
	s := &SerialScheduler{handler: handler, done: make(chan struct{})}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Submit enqueues a decode request, ordered by (priority, submission
// order). Callers must have already called BufferManager.Allocate for
// req.QueueEntryID before submitting (spec §4.8 submission protocol).
func (s *SerialScheduler) Submit(req DecodeRequest) {
	s.mu.Lock()
	req.submitOrder = s.nextSeq
	s.nextSeq++
	heap.Push(&s.heap, req)
	s.mu.Unlock()
	s.cond.Signal()
}

// Run drives the worker loop until Shutdown is called. It blocks the
// calling goroutine; callers invoke it with `go scheduler.Run()`.
func (s *SerialScheduler) Run() {
	defer close(s.done)
	for {
		s.mu.Lock()
		for s.heap.Len() == 0 && !s.stopped {
			s.cond.Wait()
		}
		if s.stopped && s.heap.Len() == 0 {
			s.mu.Unlock()
			return
		}
		req := heap.Pop(&s.heap).(DecodeRequest)
		s.mu.Unlock()

		shouldYield := func() bool {
			s.mu.Lock()
			stopped := s.stopped
			s.mu.Unlock()
			return stopped || s.higherPriorityPending(req.Priority)
		}
		complete := s.handler.Decode(req, shouldYield)
		s.mu.Lock()
		stopped := s.stopped
		s.mu.Unlock()
		if !complete && !stopped {
			s.Submit(req)
		}
	}
}

func (s *SerialScheduler) higherPriorityPending(current types.Priority) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.heap.Len() > 0 && s.heap[0].Priority < current
}

// Shutdown sets the stop flag and waits up to timeout for the worker to
// drain to its next chunk boundary and exit. Once the flag is set,
// shouldYield reports true, so the in-flight request and any still
// queued return at their next chunk check and are not re-submitted.
func (s *SerialScheduler) Shutdown(timeout time.Duration) {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	s.cond.Broadcast()

	select {
	case <-s.done:
	case <-time.After(timeout):
		slog.Warn("scheduler: worker did not exit within shutdown timeout", "timeout", timeout)
	}
}

// Pending returns the number of requests currently queued (not
// counting the one in flight), for monitoring.
func (s *SerialScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.heap.Len()
}
