// Package audiodevice adapts frame.OutputRing to a PortAudio
// callback-mode stream: the real-time audio callback (spec §5 tier 1)
// may only call OutputRing.PopFrame, never block or allocate.
// Grounded on the teacher's pkg/audioplayer/examples/play_callback,
// generalized from raw-byte passthrough to a float32 stereo Frame
// source converted to the device's native PCM width per callback.
package audiodevice

import (
	"fmt"
	"time"

	"github.com/drgolem/go-portaudio/portaudio"

	"github.com/wkmp/ap/pkg/frame"
)

// Device owns one open PortAudio output stream reading from an
// OutputRing.
type Device struct {
	stream        *portaudio.PaStream
	ring          *frame.OutputRing
	channels      int
	bitsPerSample int
	onUnderrun    func()
}

// Config selects the output device and stream format.
type Config struct {
	DeviceIndex     int
	SampleRate      int
	Channels        int
	BitsPerSample   int // 16, 24, or 32
	FramesPerBuffer int
}

// Open opens a PortAudio callback stream reading from ring. PortAudio
// itself must already be initialized (portaudio.Initialize, called
// once at process startup by cmd/wkmpap).
func Open(cfg Config, ring *frame.OutputRing, onUnderrun func()) (*Device, error) {
	var sampleFormat portaudio.PaSampleFormat
	switch cfg.BitsPerSample {
	case 16:
		sampleFormat = portaudio.SampleFmtInt16
	case 24:
		sampleFormat = portaudio.SampleFmtInt24
	case 32:
		sampleFormat = portaudio.SampleFmtInt32
	default:
		return nil, fmt.Errorf("audiodevice: unsupported bit depth: %d", cfg.BitsPerSample)
	}

	d := &Device{
		ring:          ring,
		channels:      cfg.Channels,
		bitsPerSample: cfg.BitsPerSample,
		onUnderrun:    onUnderrun,
	}

	d.stream = &portaudio.PaStream{
		OutputParameters: &portaudio.PaStreamParameters{
			DeviceIndex:  cfg.DeviceIndex,
			ChannelCount: cfg.Channels,
			SampleFormat: sampleFormat,
		},
		SampleRate: float64(cfg.SampleRate),
	}

	if err := d.stream.OpenCallback(cfg.FramesPerBuffer, d.callback); err != nil {
		return nil, fmt.Errorf("audiodevice: open callback stream: %w", err)
	}
	if err := d.stream.StartStream(); err != nil {
		return nil, fmt.Errorf("audiodevice: start stream: %w", err)
	}
	return d, nil
}

// callback runs on PortAudio's real-time thread: wait-free pop from
// the output ring, convert to the device's native PCM width, never
// block or allocate (the conversion buffer reuse lives in the caller's
// output slice; this function itself allocates nothing).
func (d *Device) callback(
	input, output []byte,
	frameCount uint,
	timeInfo *portaudio.StreamCallbackTimeInfo,
	statusFlags portaudio.StreamCallbackFlags,
) portaudio.StreamCallbackResult {
	now := time.Now()
	bytesPerSample := d.bitsPerSample / 8
	frameBytes := d.channels * bytesPerSample

	for i := 0; i < int(frameCount); i++ {
		f, underrun := d.ring.PopFrame(now)
		if underrun && d.onUnderrun != nil {
			d.onUnderrun()
		}
		writeFrame(output[i*frameBytes:], f, d.channels, d.bitsPerSample)
	}
	return portaudio.Continue
}

// writeFrame packs one stereo Frame into the device's native PCM
// width. A single-channel stream gets the left sample only; channels
// beyond the second are not written.
func writeFrame(out []byte, f frame.Frame, channels, bitsPerSample int) {
	switch bitsPerSample {
	case 16:
		putInt16(out[0:], floatToInt16(f.L))
		if channels >= 2 {
			putInt16(out[2:], floatToInt16(f.R))
		}
	case 24:
		putInt24(out[0:], floatToInt24(f.L))
		if channels >= 2 {
			putInt24(out[3:], floatToInt24(f.R))
		}
	case 32:
		putInt32(out[0:], floatToInt32(f.L))
		if channels >= 2 {
			putInt32(out[4:], floatToInt32(f.R))
		}
	}
}

func floatToInt16(v float32) int16 {
	s := v * 32767
	if s > 32767 {
		s = 32767
	} else if s < -32768 {
		s = -32768
	}
	return int16(s)
}

func floatToInt24(v float32) int32 {
	s := v * 8388607
	if s > 8388607 {
		s = 8388607
	} else if s < -8388608 {
		s = -8388608
	}
	return int32(s)
}

func floatToInt32(v float32) int32 {
	s := float64(v) * 2147483647
	if s > 2147483647 {
		s = 2147483647
	} else if s < -2147483648 {
		s = -2147483648
	}
	return int32(s)
}

func putInt16(out []byte, v int16) {
	out[0] = byte(v)
	out[1] = byte(v >> 8)
}

func putInt24(out []byte, v int32) {
	out[0] = byte(v)
	out[1] = byte(v >> 8)
	out[2] = byte(v >> 16)
}

func putInt32(out []byte, v int32) {
	out[0] = byte(v)
	out[1] = byte(v >> 8)
	out[2] = byte(v >> 16)
	out[3] = byte(v >> 24)
}

// Close stops and closes the stream.
func (d *Device) Close() error {
	if d.stream == nil {
		return nil
	}
	if err := d.stream.StopStream(); err != nil {
		return fmt.Errorf("audiodevice: stop stream: %w", err)
	}
	return d.stream.CloseCallback()
}
