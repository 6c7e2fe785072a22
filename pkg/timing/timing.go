// Package timing implements the tick-based time model shared by every
// other package in this module. A tick is 1/28,224,000 s, the LCM of
// every PCM rate this player supports, so any sample boundary at any
// supported rate maps to an exact integer number of ticks and back.
package timing

import (
	"errors"
	"fmt"
)

// Tick is a signed count of 1/TicksPerSecond second units.
type Tick int64

// TicksPerSecond is the fixed tick rate: LCM(8000, 11025, 16000, 22050,
// 32000, 44100, 48000, 88200, 96000, 176400, 192000).
const TicksPerSecond = 28_224_000

// ticksPerMs is exact because TicksPerSecond is divisible by 1000.
const ticksPerMs = TicksPerSecond / 1000

// SampleRate is a supported PCM sample rate in Hz.
type SampleRate int

// Supported sample rates, per spec.
const (
	Rate8000   SampleRate = 8000
	Rate11025  SampleRate = 11025
	Rate16000  SampleRate = 16000
	Rate22050  SampleRate = 22050
	Rate32000  SampleRate = 32000
	Rate44100  SampleRate = 44100
	Rate48000  SampleRate = 48000
	Rate88200  SampleRate = 88200
	Rate96000  SampleRate = 96000
	Rate176400 SampleRate = 176400
	Rate192000 SampleRate = 192000
)

// ErrUnsupportedSampleRate is returned for any rate outside the supported set.
var ErrUnsupportedSampleRate = errors.New("timing: unsupported sample rate")

// ticksPerSample holds TicksPerSecond/rate for every supported rate; the
// division is exact by construction (TicksPerSecond is their LCM). The
// table is a plain literal, computed once at package init, matching the
// spec's "compile-time lookup... Lookup-table pre-computation is
// permitted."
var ticksPerSample = map[SampleRate]int64{
	Rate8000:   TicksPerSecond / 8000,
	Rate11025:  TicksPerSecond / 11025,
	Rate16000:  TicksPerSecond / 16000,
	Rate22050:  TicksPerSecond / 22050,
	Rate32000:  TicksPerSecond / 32000,
	Rate44100:  TicksPerSecond / 44100,
	Rate48000:  TicksPerSecond / 48000,
	Rate88200:  TicksPerSecond / 88200,
	Rate96000:  TicksPerSecond / 96000,
	Rate176400: TicksPerSecond / 176400,
	Rate192000: TicksPerSecond / 192000,
}

// TicksPerSample returns TicksPerSecond/rate, the exact number of ticks
// spanned by one sample at rate.
func TicksPerSample(rate SampleRate) (int64, error) {
	tps, ok := ticksPerSample[rate]
	if !ok {
		return 0, fmt.Errorf("%w: %d Hz", ErrUnsupportedSampleRate, rate)
	}
	return tps, nil
}

// IsSupported reports whether rate is one of the eleven supported rates.
func IsSupported(rate SampleRate) bool {
	_, ok := ticksPerSample[rate]
	return ok
}

// MsToTicks converts integer milliseconds to ticks. Exact for every
// integer ms because TicksPerSecond is divisible by 1000.
func MsToTicks(ms int64) Tick {
	return Tick(ms * ticksPerMs)
}

// TicksToMs converts ticks to milliseconds, rounding to the nearest ms.
// Rounding only ever happens at this API boundary, per spec.
func TicksToMs(t Tick) int64 {
	v := int64(t)
	if v >= 0 {
		return (v + ticksPerMs/2) / ticksPerMs
	}
	return -((-v + ticksPerMs/2) / ticksPerMs)
}

// TicksToSamples converts a tick count to a sample count at rate, by
// truncation: (t * rate) / TicksPerSecond.
func TicksToSamples(t Tick, rate SampleRate) (int64, error) {
	if !IsSupported(rate) {
		return 0, fmt.Errorf("%w: %d Hz", ErrUnsupportedSampleRate, rate)
	}
	return (int64(t) * int64(rate)) / TicksPerSecond, nil
}

// SamplesToTicks converts a sample count at rate to a tick count. The
// per-sample tick count is an exact integer for every supported rate.
func SamplesToTicks(n int64, rate SampleRate) (Tick, error) {
	tps, err := TicksPerSample(rate)
	if err != nil {
		return 0, err
	}
	return Tick(n * tps), nil
}
