package engine

import (
	"testing"

	"github.com/wkmp/ap/internal/settings"
	"github.com/wkmp/ap/pkg/timing"
)

func TestEnqueueAssignsIDAndAppendsToQueue(t *testing.T) {
	e := New(nil, settings.DefaultValues())
	id := e.Enqueue(settings.Passage{FilePath: "a.mp3", StartTime: 0, EndTime: timing.MsToTicks(1000)})
	if id == "" {
		t.Fatal("expected a non-empty queue_entry_id")
	}
	q := e.GetQueue()
	if len(q) != 1 || q[0].QueueEntryID != id {
		t.Fatalf("queue = %+v, want one entry with id %s", q, id)
	}
}

func TestSkipNextOnEmptyQueueFailsCleanly(t *testing.T) {
	e := New(nil, settings.DefaultValues())
	if err := e.SkipNext(); err != ErrQueueEmpty {
		t.Fatalf("err = %v, want ErrQueueEmpty", err)
	}
}

func TestSkipNextAdvancesQueue(t *testing.T) {
	e := New(nil, settings.DefaultValues())
	idA := e.Enqueue(settings.Passage{FilePath: "a.mp3", EndTime: timing.MsToTicks(1000)})
	e.Enqueue(settings.Passage{FilePath: "b.mp3", EndTime: timing.MsToTicks(1000)})

	if err := e.SkipNext(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	q := e.GetQueue()
	if len(q) != 1 {
		t.Fatalf("queue len = %d, want 1", len(q))
	}
	if q[0].QueueEntryID == idA {
		t.Error("skip_next should have dropped the first passage")
	}
}

func TestRemoveUnknownIDFails(t *testing.T) {
	e := New(nil, settings.DefaultValues())
	if err := e.Remove("does-not-exist"); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCrossfadeStartComputesOverlapMidpoint(t *testing.T) {
	a := settings.Passage{
		StartTime: 0, EndTime: timing.MsToTicks(60_000),
		FadeOutPoint: tickPtr(timing.MsToTicks(58_000)),
	}
	b := settings.Passage{
		StartTime: timing.MsToTicks(60_000), EndTime: timing.MsToTicks(120_000),
		FadeInPoint: tickPtr(timing.MsToTicks(62_000)),
	}
	start, overlap := crossfadeStart(a, b)
	wantOverlap := timing.MsToTicks(2_000)
	if overlap != wantOverlap {
		t.Errorf("overlap = %v, want %v", overlap, wantOverlap)
	}
	wantStart := timing.MsToTicks(58_000)
	if start != wantStart {
		t.Errorf("start = %v, want %v", start, wantStart)
	}
}

func TestCrossfadeStartOneSidedWhenOtherHasNoFade(t *testing.T) {
	// b has no fade-in point: the overlap should equal a's own
	// fade-out span, not zero (spec.md §8's one-sided fade boundary).
	a := settings.Passage{
		StartTime: 0, EndTime: timing.MsToTicks(60_000),
		FadeOutPoint: tickPtr(timing.MsToTicks(55_000)),
	}
	b := settings.Passage{
		StartTime: timing.MsToTicks(60_000), EndTime: timing.MsToTicks(120_000),
	}
	start, overlap := crossfadeStart(a, b)
	wantOverlap := timing.MsToTicks(5_000)
	if overlap != wantOverlap {
		t.Errorf("overlap = %v, want %v", overlap, wantOverlap)
	}
	wantStart := timing.MsToTicks(55_000)
	if start != wantStart {
		t.Errorf("start = %v, want %v", start, wantStart)
	}

	// symmetric case: a has no fade-out point, b's fade-in span wins.
	c := settings.Passage{StartTime: 0, EndTime: timing.MsToTicks(60_000)}
	d := settings.Passage{
		StartTime: timing.MsToTicks(60_000), EndTime: timing.MsToTicks(120_000),
		FadeInPoint: tickPtr(timing.MsToTicks(63_000)),
	}
	start2, overlap2 := crossfadeStart(c, d)
	wantOverlap2 := timing.MsToTicks(3_000)
	if overlap2 != wantOverlap2 {
		t.Errorf("overlap = %v, want %v", overlap2, wantOverlap2)
	}
	wantStart2 := timing.MsToTicks(57_000)
	if start2 != wantStart2 {
		t.Errorf("start = %v, want %v", start2, wantStart2)
	}
}

func tickPtr(t timing.Tick) *timing.Tick { return &t }
