package settings

import "testing"

func TestClampMaximumDecodeStreams(t *testing.T) {
	cases := map[int]int{0: 2, 1: 2, 2: 2, 12: 12, 32: 32, 33: 32, 1000: 32}
	for in, want := range cases {
		if got := ClampMaximumDecodeStreams(in); got != want {
			t.Errorf("ClampMaximumDecodeStreams(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestDefaultValues(t *testing.T) {
	d := DefaultValues()
	if d.MaximumDecodeStreams != 12 {
		t.Errorf("MaximumDecodeStreams = %d, want 12", d.MaximumDecodeStreams)
	}
	if d.PlayoutRingbufferSize != 661_941 {
		t.Errorf("PlayoutRingbufferSize = %d, want 661941", d.PlayoutRingbufferSize)
	}
	if d.PauseDecayFactor != 0.96875 {
		t.Errorf("PauseDecayFactor = %v, want 0.96875", d.PauseDecayFactor)
	}
}
