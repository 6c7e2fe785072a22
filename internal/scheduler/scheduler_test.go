package scheduler

import (
	"sync"
	"testing"
	"time"

	"github.com/wkmp/ap/pkg/types"
)

type recordingHandler struct {
	mu      sync.Mutex
	order   []string
	release chan struct{}

	// yieldTimes, when non-zero, makes Decode return complete=false (as
	// if shouldYield fired) that many times before finally completing.
	yieldTimes int
}

func (h *recordingHandler) Decode(req DecodeRequest, shouldYield func() bool) bool {
	h.mu.Lock()
	h.order = append(h.order, req.QueueEntryID)
	h.mu.Unlock()
	if h.release != nil {
		<-h.release
	}
	if h.yieldTimes > 0 {
		h.yieldTimes--
		return false
	}
	return true
}

func TestHeapOrdersByPriorityThenSubmitOrder(t *testing.T) {
	var h requestHeap
	push := func(id string, p types.Priority, seq uint64) {
		h = append(h, DecodeRequest{QueueEntryID: id, Priority: p, submitOrder: seq})
	}
	push("c", types.PriorityPrefetch, 0)
	push("a", types.PriorityImmediate, 1)
	push("b", types.PriorityNext, 2)
	push("a2", types.PriorityImmediate, 3)

	// simple selection sort using Less, mirroring what container/heap would produce
	less := func(i, j int) bool { return h.Less(i, j) }
	for i := 0; i < len(h); i++ {
		min := i
		for j := i + 1; j < len(h); j++ {
			if less(j, min) {
				min = j
			}
		}
		h[i], h[min] = h[min], h[i]
	}

	want := []string{"a", "a2", "b", "c"}
	for i, id := range want {
		if h[i].QueueEntryID != id {
			t.Errorf("position %d: got %s, want %s", i, h[i].QueueEntryID, id)
		}
	}
}

func TestSchedulerRunsRequestsAndShutsDown(t *testing.T) {
	handler := &recordingHandler{}
	s := New(handler)
	go s.Run()

	s.Submit(DecodeRequest{QueueEntryID: "x", Priority: types.PriorityNext})
	s.Submit(DecodeRequest{QueueEntryID: "y", Priority: types.PriorityImmediate})

	deadline := time.Now().Add(time.Second)
	for {
		handler.mu.Lock()
		n := len(handler.order)
		handler.mu.Unlock()
		if n >= 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for both requests to be handled")
		}
		time.Sleep(time.Millisecond)
	}

	handler.mu.Lock()
	if handler.order[0] != "y" {
		t.Errorf("first handled = %s, want y (immediate beats next)", handler.order[0])
	}
	handler.mu.Unlock()

	s.Shutdown(time.Second)
}

func TestShutdownTimesOutIfHandlerWedged(t *testing.T) {
	handler := &recordingHandler{release: make(chan struct{})}
	s := New(handler)
	go s.Run()
	s.Submit(DecodeRequest{QueueEntryID: "stuck", Priority: types.PriorityNext})

	start := time.Now()
	s.Shutdown(50 * time.Millisecond)
	if time.Since(start) < 50*time.Millisecond {
		t.Fatal("Shutdown returned before its timeout elapsed")
	}
	close(handler.release)
}

func TestHigherPriorityPendingDetection(t *testing.T) {
	handler := &recordingHandler{release: make(chan struct{})}
	s := New(handler)
	go s.Run()

	s.Submit(DecodeRequest{QueueEntryID: "first", Priority: types.PriorityNext})
	// give the worker time to pop "first" and block in Decode
	time.Sleep(20 * time.Millisecond)
	s.Submit(DecodeRequest{QueueEntryID: "urgent", Priority: types.PriorityImmediate})

	if !s.higherPriorityPending(types.PriorityNext) {
		t.Error("expected an Immediate-priority request to be detected as higher priority than Next")
	}
	close(handler.release)
	s.Shutdown(time.Second)
}

func TestYieldedRequestIsResubmittedUntilComplete(t *testing.T) {
	handler := &recordingHandler{yieldTimes: 2}
	s := New(handler)
	go s.Run()

	s.Submit(DecodeRequest{QueueEntryID: "preempted", Priority: types.PriorityNext})

	deadline := time.Now().Add(time.Second)
	for {
		handler.mu.Lock()
		n := len(handler.order)
		handler.mu.Unlock()
		if n >= 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for the preempted request to be re-submitted and completed")
		}
		time.Sleep(time.Millisecond)
	}

	handler.mu.Lock()
	defer handler.mu.Unlock()
	if len(handler.order) != 3 {
		t.Fatalf("got %d Decode calls, want exactly 3 (2 yields + 1 completion)", len(handler.order))
	}
	for _, id := range handler.order {
		if id != "preempted" {
			t.Errorf("unexpected request id %s in resubmission chain", id)
		}
	}

	s.Shutdown(time.Second)
}
