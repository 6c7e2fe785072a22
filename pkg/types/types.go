// Package types holds the shared interfaces and small value types used
// across the decode, buffer, and mixer packages, mirrored on the
// teacher's own pkg/types package: one place for the cross-cutting
// contracts so no package pair needs to import each other directly.
package types

import "errors"

// AudioDecoder is the common interface every container-format decoder
// (MP3, FLAC, WAV, Vorbis, Opus) implements. StreamingDecoder drives one
// of these per open passage.
type AudioDecoder interface {
	// Open opens an audio file for decoding.
	Open(fileName string) error

	// Close closes the decoder and releases resources.
	Close() error

	// GetFormat returns the audio format information: sample rate (Hz),
	// channels (1=mono, 2=stereo), bits per sample (8/16/24/32).
	GetFormat() (rate, channels, bitsPerSample int)

	// DecodeSamples decodes up to `samples` samples into audio, which
	// must be at least samples*channels*(bitsPerSample/8) bytes.
	// Returns the number of samples actually decoded; 0 with a nil
	// error means end of stream.
	DecodeSamples(samples int, audio []byte) (int, error)
}

// Curve is a fade envelope shape, applied by the fade unit.
type Curve int

// Supported fade curves.
const (
	Linear Curve = iota
	Exponential
	Logarithmic
	SCurve
	Cosine
)

// String renders the curve name for logging.
func (c Curve) String() string {
	switch c {
	case Linear:
		return "linear"
	case Exponential:
		return "exponential"
	case Logarithmic:
		return "logarithmic"
	case SCurve:
		return "s-curve"
	case Cosine:
		return "cosine"
	default:
		return "unknown"
	}
}

// Common ringbuffer error sentinels. The pkg/frame rings report partial
// pushes and pops through their counts and do not return these.
var (
	ErrInsufficientSpace = errors.New("insufficient space in ring buffer")
	ErrInsufficientData  = errors.New("insufficient data in ring buffer")
)

// Priority orders decode requests in the scheduler's heap.
// Immediate < Next < Prefetch (lower value = higher priority).
type Priority int

// Scheduler priorities, ordered highest-priority first.
const (
	PriorityImmediate Priority = iota
	PriorityNext
	PriorityPrefetch
)

// String renders the priority name for logging.
func (p Priority) String() string {
	switch p {
	case PriorityImmediate:
		return "immediate"
	case PriorityNext:
		return "next"
	case PriorityPrefetch:
		return "prefetch"
	default:
		return "unknown"
	}
}
