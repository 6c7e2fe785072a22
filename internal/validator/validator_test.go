package validator

import "testing"

func TestCheckPassageWithinToleranceIsSuccess(t *testing.T) {
	c := Counters{QueueEntryID: "a", DecoderOutputFrames: 1000, BufferWriteFrames: 1000, BufferReadFrames: 500, MixerConsumedFrames: 500}
	sev, _, _ := checkPassage(c, 8192)
	if sev != Success {
		t.Errorf("severity = %v, want Success", sev)
	}
}

func TestCheckPassageOverToleranceIsFailure(t *testing.T) {
	c := Counters{QueueEntryID: "a", DecoderOutputFrames: 20000, BufferWriteFrames: 1000, BufferReadFrames: 500, MixerConsumedFrames: 500}
	sev, law, _ := checkPassage(c, 8192)
	if sev != Failure {
		t.Errorf("severity = %v, want Failure", sev)
	}
	if law != 1 {
		t.Errorf("law = %d, want 1", law)
	}
}

func TestCheckPassageNearToleranceIsWarning(t *testing.T) {
	c := Counters{QueueEntryID: "a", DecoderOutputFrames: 8000, BufferWriteFrames: 1000, BufferReadFrames: 500, MixerConsumedFrames: 500}
	sev, _, _ := checkPassage(c, 8192)
	if sev != Warning {
		t.Errorf("severity = %v, want Warning (diff=7000 is >80%% of 8192)", sev)
	}
}

func TestCheckPassageFIFOViolationIsFailure(t *testing.T) {
	c := Counters{QueueEntryID: "a", DecoderOutputFrames: 1000, BufferWriteFrames: 500, BufferReadFrames: 600, MixerConsumedFrames: 500}
	sev, law, _ := checkPassage(c, 8192)
	if sev != Failure || law != 2 {
		t.Errorf("severity=%v law=%d, want Failure/2", sev, law)
	}
}

type fakeSource struct {
	counters []Counters
}

func (f fakeSource) SampleCounters() []Counters { return f.counters }

func TestCheckOnceRecordsFailureTrace(t *testing.T) {
	src := fakeSource{counters: []Counters{
		{QueueEntryID: "a", DecoderOutputFrames: 20000, BufferWriteFrames: 1000, BufferReadFrames: 500, MixerConsumedFrames: 500},
	}}
	v := New(src, 0, 8192, 16)
	v.checkOnce()

	trace := v.LastFailureTrace()
	if len(trace) != 1 || trace[0].QueueEntryID != "a" {
		t.Fatalf("expected failure trace to capture the sample, got %+v", trace)
	}
}
