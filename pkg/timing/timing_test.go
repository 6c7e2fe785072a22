package timing

import "testing"

var supportedRates = []SampleRate{
	Rate8000, Rate11025, Rate16000, Rate22050, Rate32000,
	Rate44100, Rate48000, Rate88200, Rate96000, Rate176400, Rate192000,
}

func TestMsToTicksRoundTrip(t *testing.T) {
	for _, ms := range []int64{0, 1, 2, 500, 999, 1000, 3000, 86_400_000} {
		ticks := MsToTicks(ms)
		if got := TicksToMs(ticks); got != ms {
			t.Errorf("TicksToMs(MsToTicks(%d)) = %d, want %d", ms, got, ms)
		}
	}
}

func TestSamplesToTicksRoundTrip(t *testing.T) {
	for _, rate := range supportedRates {
		for _, n := range []int64{0, 1, 2, 100, 44100, 1_000_000} {
			ticks, err := SamplesToTicks(n, rate)
			if err != nil {
				t.Fatalf("SamplesToTicks(%d, %d): %v", n, rate, err)
			}
			got, err := TicksToSamples(ticks, rate)
			if err != nil {
				t.Fatalf("TicksToSamples: %v", err)
			}
			if got != n {
				t.Errorf("rate %d: TicksToSamples(SamplesToTicks(%d)) = %d, want %d", rate, n, got, n)
			}
		}
	}
}

func TestUnsupportedSampleRate(t *testing.T) {
	if _, err := TicksPerSample(SampleRate(12345)); err == nil {
		t.Fatal("expected error for unsupported rate")
	}
	if IsSupported(SampleRate(12345)) {
		t.Fatal("12345 Hz should not be supported")
	}
}

func Test48kExampleScenario(t *testing.T) {
	// Scenario 3: 48kHz source, 1000ms passage -> exactly 44100 output
	// frames once resampled to the 44.1kHz working rate is verified at
	// the resampler/decoder level; here we check the tick math in
	// isolation: 1000ms at 48kHz covers exactly 48000 source samples.
	ticks := MsToTicks(1000)
	samples, err := TicksToSamples(ticks, Rate48000)
	if err != nil {
		t.Fatal(err)
	}
	if samples != 48000 {
		t.Errorf("got %d samples, want 48000", samples)
	}

	workingSamples, err := TicksToSamples(ticks, Rate44100)
	if err != nil {
		t.Fatal(err)
	}
	if workingSamples != 44100 {
		t.Errorf("got %d working-rate samples, want 44100", workingSamples)
	}
}

func TestTicksPerSampleExactness(t *testing.T) {
	for _, rate := range supportedRates {
		tps, err := TicksPerSample(rate)
		if err != nil {
			t.Fatal(err)
		}
		if tps*int64(rate) != TicksPerSecond {
			t.Errorf("rate %d: ticks_per_sample*rate = %d, want %d", rate, tps*int64(rate), TicksPerSecond)
		}
	}
}

func TestZeroDurationBoundary(t *testing.T) {
	if MsToTicks(0) != 0 {
		t.Error("0ms should be 0 ticks")
	}
	if TicksToMs(0) != 0 {
		t.Error("0 ticks should be 0ms")
	}
}
