package frame

import (
	"testing"
	"time"
)

func TestOutputRingPopWhenFull(t *testing.T) {
	o := NewOutputRing(8, 50*time.Millisecond)
	o.PushFrames([]Frame{{L: 1, R: 1}})
	base := time.Unix(0, 0)
	f, underrun := o.PopFrame(base)
	if underrun {
		t.Fatal("unexpected underrun with data present")
	}
	if f.L != 1 {
		t.Errorf("PopFrame = %+v, want {1 1}", f)
	}
}

func TestOutputRingUnderrunWithinGrace(t *testing.T) {
	o := NewOutputRing(8, 50*time.Millisecond)
	base := time.Unix(0, 0)
	f, underrun := o.PopFrame(base)
	if underrun {
		t.Fatal("first empty pop should be within grace period")
	}
	if f != Silence {
		t.Errorf("PopFrame on empty ring = %+v, want Silence", f)
	}
	_, underrun = o.PopFrame(base.Add(10 * time.Millisecond))
	if underrun {
		t.Fatal("10ms into a 50ms grace period should not yet be an underrun")
	}
}

func TestOutputRingUnderrunPastGrace(t *testing.T) {
	o := NewOutputRing(8, 50*time.Millisecond)
	base := time.Unix(0, 0)
	o.PopFrame(base)
	_, underrun := o.PopFrame(base.Add(60 * time.Millisecond))
	if !underrun {
		t.Fatal("60ms into a 50ms grace period should be a genuine underrun")
	}
}

func TestOutputRingUnderrunResetsOnRecovery(t *testing.T) {
	o := NewOutputRing(8, 50*time.Millisecond)
	base := time.Unix(0, 0)
	o.PopFrame(base)
	o.PushFrames([]Frame{{L: 9}})
	f, underrun := o.PopFrame(base.Add(60 * time.Millisecond))
	if underrun {
		t.Fatal("should not be an underrun once data has arrived")
	}
	if f.L != 9 {
		t.Errorf("PopFrame = %+v, want {9 0}", f)
	}
	_, underrun = o.PopFrame(base.Add(61 * time.Millisecond))
	if underrun {
		t.Fatal("grace window should restart after the ring recovered")
	}
}

func TestOutputRingUnderrunCount(t *testing.T) {
	o := NewOutputRing(8, 50*time.Millisecond)
	base := time.Unix(0, 0)
	o.PopFrame(base)
	o.PopFrame(base.Add(time.Millisecond))
	if o.UnderrunCount() != 2 {
		t.Errorf("UnderrunCount = %d, want 2", o.UnderrunCount())
	}
}
