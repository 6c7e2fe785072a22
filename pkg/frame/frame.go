// Package frame defines the stereo sample pair every ring buffer, the
// fade unit, and the mixer operate on, plus the lock-free SPSC ring
// buffer used both between decoder and mixer (the "playout buffer") and
// between the mixer-feed task and the real-time audio callback (the
// "output buffer").
//
// The ring itself is grounded on the teacher's pkg/ringbuffer.RingBuffer
// (power-of-2 masking, atomic read/write cursors) and
// pkg/audioframeringbuffer.AudioFrameRingBuffer (typed-element variant),
// generalized here to one float32 stereo Frame type shared by both ring
// flavors instead of a generic byte/AudioFrame split.
package frame

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Frame is one stereo sample pair at the working sample rate.
type Frame struct {
	L, R float32
}

// Silence is the zero-value frame, used to fill gaps and underruns.
var Silence = Frame{}

// Clamp hard-clips both channels to [-1, +1], as required after any
// summation (crossfade mixing, pause attenuation).
func (f Frame) Clamp() Frame {
	return Frame{L: clamp1(f.L), R: clamp1(f.R)}
}

func clamp1(v float32) float32 {
	if v > 1.0 {
		return 1.0
	}
	if v < -1.0 {
		return -1.0
	}
	return v
}

// Scale multiplies both channels by gain.
func (f Frame) Scale(gain float64) Frame {
	return Frame{L: f.L * float32(gain), R: f.R * float32(gain)}
}

// Add sums two frames channel-wise (unclamped; callers clamp once after
// all sources are summed).
func (f Frame) Add(o Frame) Frame {
	return Frame{L: f.L + o.L, R: f.R + o.R}
}

// marshaledSize is the wire size of one Frame: two IEEE-754 float32s.
const marshaledSize = 8

// Marshal serializes a Frame to 8 little-endian bytes, grounded on the
// teacher's audioframe.AudioFrame.Marshal.
func (f Frame) Marshal() []byte {
	buf := make([]byte, marshaledSize)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(f.L))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(f.R))
	return buf
}

// Unmarshal deserializes a Frame from 8 little-endian bytes.
func (f *Frame) Unmarshal(data []byte) error {
	if len(data) < marshaledSize {
		return fmt.Errorf("frame: buffer too small: got %d bytes, need %d", len(data), marshaledSize)
	}
	f.L = math.Float32frombits(binary.LittleEndian.Uint32(data[0:4]))
	f.R = math.Float32frombits(binary.LittleEndian.Uint32(data[4:8]))
	return nil
}

// MarshalFrames serializes a slice of frames back to back.
func MarshalFrames(frames []Frame) []byte {
	buf := make([]byte, 0, len(frames)*marshaledSize)
	for _, f := range frames {
		buf = append(buf, f.Marshal()...)
	}
	return buf
}

// UnmarshalFrames deserializes a back-to-back Frame trace produced by
// MarshalFrames.
func UnmarshalFrames(data []byte) ([]Frame, error) {
	if len(data)%marshaledSize != 0 {
		return nil, fmt.Errorf("frame: trace length %d is not a multiple of %d", len(data), marshaledSize)
	}
	out := make([]Frame, len(data)/marshaledSize)
	for i := range out {
		if err := out[i].Unmarshal(data[i*marshaledSize:]); err != nil {
			return nil, err
		}
	}
	return out, nil
}
