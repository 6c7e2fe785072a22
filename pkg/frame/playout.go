package frame

import "sync/atomic"

// DefaultPlayoutCapacity is playout_ringbuffer_size: ~15.01s at 44.1kHz.
const DefaultPlayoutCapacity = 661_941

// DefaultPlayoutHeadroom is playout_ringbuffer_headroom: ~10ms at 44.1kHz.
const DefaultPlayoutHeadroom = 441

// PlayoutRing is the per-passage SPSC ring between the decode pipeline
// (producer) and the mixer-feed task (consumer), implementing spec
// §4.2's contract. One PlayoutRing exists per allocated playout buffer;
// BufferManager owns the lifecycle, this type owns only the ring
// mechanics and pause/exhaustion math.
type PlayoutRing struct {
	r               ring
	headroomReserve uint64
	decodeComplete  atomic.Bool
	totalFrames     atomic.Int64 // valid only once decodeComplete is set
}

// NewPlayoutRing creates a playout ring with the given logical capacity
// (the physical backing array is rounded up to the next power of 2
// internally, but Capacity/ShouldDecoderPause/FillPercent all measure
// against the requested size) and headroom reserve.
func NewPlayoutRing(capacity, headroomReserve uint64) *PlayoutRing {
	return &PlayoutRing{
		r:               newRing(capacity),
		headroomReserve: headroomReserve,
	}
}

// PushFrames writes as many frames as fit; producer-only. Returns the
// number actually written.
func (p *PlayoutRing) PushFrames(frames []Frame) int {
	return p.r.push(frames)
}

// PopFrame removes and returns the oldest frame; consumer-only,
// wait-free. ok is false when the ring is currently empty.
func (p *PlayoutRing) PopFrame() (Frame, bool) {
	return p.r.pop()
}

// FillLevel is the number of frames currently buffered (not yet read).
func (p *PlayoutRing) FillLevel() uint64 {
	return p.r.availableRead()
}

// FillPercent is FillLevel as a percentage of capacity.
func (p *PlayoutRing) FillPercent() float32 {
	return float32(p.FillLevel()) / float32(p.r.capacity()) * 100
}

// Headroom is the free space remaining for the producer to write into.
func (p *PlayoutRing) Headroom() uint64 {
	return p.r.availableWrite()
}

// Capacity returns the ring's configured (logical) frame capacity.
func (p *PlayoutRing) Capacity() uint64 {
	return p.r.capacity()
}

// ShouldDecoderPause reports whether fill_level >= capacity - headroom,
// the backpressure signal the scheduler's worker polls.
func (p *PlayoutRing) ShouldDecoderPause() bool {
	return p.FillLevel() >= p.r.capacity()-p.headroomReserve
}

// MarkDecodeComplete records that the decoder has emitted its final
// sample for this passage. Producer-only.
func (p *PlayoutRing) MarkDecodeComplete(totalFrames int64) {
	p.totalFrames.Store(totalFrames)
	p.decodeComplete.Store(true)
}

// DecodeComplete reports whether MarkDecodeComplete has been called.
func (p *PlayoutRing) DecodeComplete() bool {
	return p.decodeComplete.Load()
}

// TotalFrames returns the sealed total frame count; only meaningful once
// DecodeComplete is true.
func (p *PlayoutRing) TotalFrames() int64 {
	return p.totalFrames.Load()
}

// IsExhausted reports decode_complete && read_pos >= write_pos: there is
// nothing left to produce and nothing left buffered.
func (p *PlayoutRing) IsExhausted() bool {
	return p.decodeComplete.Load() && p.r.readCursor() >= p.r.writeCursor()
}

// ReadPos and WritePos expose the monotonic frame cursors, used by the
// engine to compute crossfade trigger points and by the validator for
// conservation-law checks.
func (p *PlayoutRing) ReadPos() uint64  { return p.r.readCursor() }
func (p *PlayoutRing) WritePos() uint64 { return p.r.writeCursor() }
