package mixer

import (
	"math"
	"testing"

	"github.com/wkmp/ap/pkg/frame"
	"github.com/wkmp/ap/pkg/timing"
	"github.com/wkmp/ap/pkg/types"
)

func fillRing(t *testing.T, r *frame.PlayoutRing, n int, gain float32) {
	t.Helper()
	frames := make([]frame.Frame, n)
	for i := range frames {
		frames[i] = frame.Frame{L: gain, R: gain}
	}
	r.PushFrames(frames)
}

func TestSinglePassageNoFadePassesThrough(t *testing.T) {
	m := New(16, timing.Rate44100)
	r := frame.NewPlayoutRing(1024, 16)
	fillRing(t, r, 4, 0.5)
	m.StartPassage("a", r, types.Linear, 0)

	f := m.GetNextFrame()
	if math.Abs(float64(f.L)-0.5) > 1e-6 {
		t.Errorf("L = %v, want 0.5 (no fade-in configured)", f.L)
	}
}

func TestSinglePassageFadeInStartsAtZero(t *testing.T) {
	m := New(16, timing.Rate44100)
	r := frame.NewPlayoutRing(1024, 16)
	fillRing(t, r, 4, 1.0)
	m.StartPassage("a", r, types.Linear, 100)

	f := m.GetNextFrame()
	if f.L != 0 {
		t.Errorf("first fade-in sample should be silent, got %v", f.L)
	}
}

func TestSinglePassageExhaustionTriggersSelfCompletion(t *testing.T) {
	m := New(16, timing.Rate44100)
	r := frame.NewPlayoutRing(1024, 16)
	fillRing(t, r, 2, 1.0)
	r.MarkDecodeComplete(2)
	m.StartPassage("a", r, types.Linear, 0)

	m.GetNextFrame()
	m.GetNextFrame()
	m.GetNextFrame() // ring now empty and decode_complete: should self-complete

	id, ok := m.TakeSelfCompleted()
	if !ok || id != "a" {
		t.Fatalf("expected self-completion for 'a', got ok=%v id=%q", ok, id)
	}
	if m.State() != Idle {
		t.Errorf("state after self-completion = %v, want Idle", m.State())
	}
}

func TestUnderrunWhenBufferEmptyButNotExhausted(t *testing.T) {
	m := New(16, timing.Rate44100)
	r := frame.NewPlayoutRing(1024, 16) // empty, decode not complete
	m.StartPassage("a", r, types.Linear, 0)

	f := m.GetNextFrame()
	if f != frame.Silence {
		t.Errorf("expected silence on underrun, got %+v", f)
	}
	if m.State() != Underrun {
		t.Fatalf("state = %v, want Underrun", m.State())
	}

	fillRing(t, r, 1, 0.25)
	f = m.GetNextFrame()
	if math.Abs(float64(f.L)-0.25) > 1e-6 {
		t.Errorf("after recovery, L = %v, want 0.25", f.L)
	}
	if m.State() != SinglePassage {
		t.Errorf("state after recovery = %v, want SinglePassage", m.State())
	}
}

func TestCrossfadeCompletesExactlyOnce(t *testing.T) {
	m := New(16, timing.Rate44100)
	outRing := frame.NewPlayoutRing(1024, 16)
	inRing := frame.NewPlayoutRing(1024, 16)
	fillRing(t, outRing, 10, 1.0)
	fillRing(t, inRing, 10, 1.0)

	m.StartPassage("out", outRing, types.Linear, 0)
	m.StartCrossfade("in", inRing, types.Linear, 4, types.Linear, 4)

	completions := 0
	for i := 0; i < 6; i++ {
		m.GetNextFrame()
		if _, ok := m.TakeCrossfadeCompleted(); ok {
			completions++
		}
	}
	if completions != 1 {
		t.Fatalf("crossfade completed signal fired %d times, want 1", completions)
	}
	if m.State() != SinglePassage {
		t.Errorf("state after crossfade = %v, want SinglePassage", m.State())
	}
}

func TestCrossfadeZeroDurationFadeIsUnmultiplied(t *testing.T) {
	m := New(16, timing.Rate44100)
	outRing := frame.NewPlayoutRing(1024, 16)
	inRing := frame.NewPlayoutRing(1024, 16)
	fillRing(t, outRing, 4, 0.3)
	fillRing(t, inRing, 4, 0.2)

	m.StartPassage("out", outRing, types.Linear, 0)
	// Zero-duration fade-out and fade-in: both sides' first (only)
	// overlap frame must pass through unmultiplied (spec.md §8).
	m.StartCrossfade("in", inRing, types.Linear, 0, types.Linear, 0)

	f := m.GetNextFrame()
	want := 0.3 + 0.2
	if math.Abs(float64(f.L)-want) > 1e-6 {
		t.Errorf("L = %v, want %v (unmultiplied sum, not silenced by a zero-length fade)", f.L, want)
	}
}

func TestPauseDecaySequence(t *testing.T) {
	m := New(16, timing.Rate44100)
	r := frame.NewPlayoutRing(2048, 16)
	fillRing(t, r, 2000, 1.0)
	m.StartPassage("a", r, types.Linear, 0)
	m.GetNextFrame() // consume one frame in SinglePassage to avoid skew
	m.Pause()

	nonZero := 0
	gain := 1.0
	for i := 0; i < 400; i++ {
		f := m.GetNextFrame()
		if f.L != 0 {
			nonZero++
			if math.Abs(float64(f.L)-gain) > 1e-6 {
				t.Fatalf("sample %d: gain = %v, want %v", i, f.L, gain)
			}
		}
		if gain >= DefaultPauseDecayFloor {
			gain *= DefaultPauseDecayFactor
		}
	}
	// spec's literal worked example: ~275 non-zero samples before the floor.
	if nonZero < 250 || nonZero > 300 {
		t.Errorf("non-zero decay samples = %d, want ~275", nonZero)
	}
}

func TestResumeAppliesFreshFadeIn(t *testing.T) {
	m := New(16, timing.Rate44100)
	r := frame.NewPlayoutRing(2048, 16)
	fillRing(t, r, 2000, 1.0)
	m.StartPassage("a", r, types.Linear, 0)
	m.Pause()
	m.Resume(types.Linear, 10)

	f := m.GetNextFrame()
	if f.L != 0 {
		t.Errorf("first resume sample should be silent (fresh fade-in), got %v", f.L)
	}
	if m.State() != Resuming {
		t.Errorf("state = %v, want Resuming", m.State())
	}
}
