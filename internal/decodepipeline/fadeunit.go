package decodepipeline

import (
	"encoding/binary"

	"github.com/wkmp/ap/pkg/frame"
	"github.com/wkmp/ap/pkg/types"
)

// FadeParams describes one passage's timing fields in working-rate
// sample indices (already converted from ticks via
// timing.TicksToSamples), the inputs FadeUnit needs to compute a gain
// per sample without any further tick math (spec §4.6).
type FadeParams struct {
	StartSample  int64
	EndSample    int64
	FadeInPoint  *int64 // nil ⇒ no fade-in
	FadeOutPoint *int64 // nil ⇒ no fade-out
	FadeInCurve  types.Curve
	FadeOutCurve types.Curve
}

// PCM16ToFrames converts interleaved 16-bit PCM to stereo Frames,
// duplicating a mono channel across L and R.
func PCM16ToFrames(pcm16 []byte, channels int) []frame.Frame {
	bytesPerFrame := 2 * channels
	n := len(pcm16) / bytesPerFrame
	out := make([]frame.Frame, n)
	for i := 0; i < n; i++ {
		off := i * bytesPerFrame
		l := int16(binary.LittleEndian.Uint16(pcm16[off:]))
		var r int16
		if channels >= 2 {
			r = int16(binary.LittleEndian.Uint16(pcm16[off+2:]))
		} else {
			r = l
		}
		out[i] = frame.Frame{L: int16ToFloat(l), R: int16ToFloat(r)}
	}
	return out
}

func int16ToFloat(v int16) float32 {
	return float32(v) / 32768.0
}

// ApplyFades multiplies frames in place by the fade-in/fade-out
// envelope, given chunkStartSample: the working-rate sample index (from
// the passage's own start_time origin) of frames[0]. Samples outside
// both fade regions are left unchanged (idempotent on that subrange).
func ApplyFades(frames []frame.Frame, chunkStartSample int64, p FadeParams) {
	for i := range frames {
		s := chunkStartSample + int64(i)
		gain := fadeGainAt(s, p)
		if gain == 1.0 {
			continue
		}
		frames[i] = frames[i].Scale(gain)
	}
}

func fadeGainAt(s int64, p FadeParams) float64 {
	if p.FadeInPoint != nil && s < *p.FadeInPoint {
		span := *p.FadeInPoint - p.StartSample
		if span <= 0 {
			return 1.0
		}
		progress := float64(s-p.StartSample) / float64(span)
		return p.FadeInCurve.Gain(progress)
	}
	if p.FadeOutPoint != nil && s >= *p.FadeOutPoint {
		span := p.EndSample - *p.FadeOutPoint
		if span <= 0 {
			return 1.0
		}
		progress := float64(s-*p.FadeOutPoint) / float64(span)
		return p.FadeOutCurve.Gain(1 - progress)
	}
	return 1.0
}
