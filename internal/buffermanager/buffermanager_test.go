package buffermanager

import (
	"testing"

	"github.com/wkmp/ap/pkg/frame"
)

func TestAllocateDuplicateRejected(t *testing.T) {
	m := New(16)
	if _, err := m.Allocate("a", 1024, 16, 100); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Allocate("a", 1024, 16, 100); err == nil {
		t.Fatal("expected error on duplicate allocation")
	}
}

func TestIsManaged(t *testing.T) {
	m := New(16)
	if m.IsManaged("a") {
		t.Fatal("should not be managed before allocation")
	}
	m.Allocate("a", 1024, 16, 100)
	if !m.IsManaged("a") {
		t.Fatal("should be managed after allocation")
	}
	m.Remove("a")
	if m.IsManaged("a") {
		t.Fatal("should not be managed after removal")
	}
}

func TestReadyForStartEmittedOnce(t *testing.T) {
	m := New(16)
	m.Allocate("a", 1024, 16, 10)

	frames := make([]frame.Frame, 10)
	m.PushFrames("a", frames)
	m.PushFrames("a", frames) // crossing threshold again should not re-notify

	readyCount := 0
	drain := true
	for drain {
		select {
		case ev := <-m.Events():
			if ev.Kind == ReadyForStart {
				readyCount++
			}
		default:
			drain = false
		}
	}
	if readyCount != 1 {
		t.Fatalf("ReadyForStart emitted %d times, want 1", readyCount)
	}
}

func TestFinalizeMarksExhaustedOnceDrained(t *testing.T) {
	m := New(16)
	m.Allocate("a", 1024, 16, 1000)
	frames := make([]frame.Frame, 4)
	m.PushFrames("a", frames)
	m.Finalize("a", 4)

	exhausted, err := m.IsExhausted("a")
	if err != nil {
		t.Fatal(err)
	}
	if exhausted {
		t.Fatal("should not be exhausted: frames still buffered")
	}

	ring, _ := m.Ring("a")
	for i := 0; i < 4; i++ {
		ring.PopFrame()
	}
	exhausted, _ = m.IsExhausted("a")
	if !exhausted {
		t.Fatal("should be exhausted after draining a finalized buffer")
	}
}

func TestStateTransitionsFollowLifecycle(t *testing.T) {
	m := New(16)
	m.Allocate("a", 1024, 16, 10)
	state, _ := m.GetState("a")
	if state != Empty {
		t.Fatalf("initial state = %v, want Empty", state)
	}

	frames := make([]frame.Frame, 20)
	m.PushFrames("a", frames)
	state, _ = m.GetState("a")
	if state != Ready {
		t.Fatalf("state after crossing threshold = %v, want Ready", state)
	}

	m.StartPlayback("a")
	state, _ = m.GetState("a")
	if state != Playing {
		t.Fatalf("state after StartPlayback = %v, want Playing", state)
	}
}
