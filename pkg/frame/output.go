package frame

import "time"

// DefaultOutputCapacity is output_ringbuffer_size: ~186ms at 44.1kHz.
const DefaultOutputCapacity = 8192

// DefaultUnderrunGracePeriod is ring_buffer_grace_period_ms: the window
// after an OutputRing goes empty during which a gap is still classified
// as "expected" (e.g. a brief scheduling hiccup) rather than a genuine
// underrun worth a warn-level log.
const DefaultUnderrunGracePeriod = 2000 * time.Millisecond

// OutputRing is the SPSC ring between the mixer-feed cooperative task
// (producer) and the real-time audio callback (consumer). It is
// intentionally small: its job is only to absorb scheduling jitter
// between the two tasks, not to buffer whole passages.
type OutputRing struct {
	r ring

	gracePeriod   time.Duration
	emptySince    time.Time
	wasEmpty      bool
	underrunCount uint64
}

// NewOutputRing creates an output ring with the given logical capacity
// (the physical backing array is rounded up to the next power of 2
// internally, but Capacity measures against the requested size) and
// underrun grace period.
func NewOutputRing(capacity uint64, gracePeriod time.Duration) *OutputRing {
	return &OutputRing{
		r:           newRing(capacity),
		gracePeriod: gracePeriod,
	}
}

// PushFrames writes as many frames as fit; producer-only (mixer-feed
// task). Returns the number actually written.
func (o *OutputRing) PushFrames(frames []Frame) int {
	return o.r.push(frames)
}

// PopFrame is called from the real-time audio callback: wait-free, never
// allocates, never blocks. When the ring is empty it returns Silence and
// starts (or continues) tracking the underrun window.
func (o *OutputRing) PopFrame(now time.Time) (f Frame, underrun bool) {
	f, ok := o.r.pop()
	if ok {
		o.wasEmpty = false
		return f, false
	}
	if !o.wasEmpty {
		o.wasEmpty = true
		o.emptySince = now
	}
	o.underrunCount++
	return Silence, now.Sub(o.emptySince) >= o.gracePeriod
}

// FillLevel is the number of frames currently buffered.
func (o *OutputRing) FillLevel() uint64 {
	return o.r.availableRead()
}

// Headroom is the free space remaining for the producer to write into.
func (o *OutputRing) Headroom() uint64 {
	return o.r.availableWrite()
}

// Capacity returns the ring's configured (logical) frame capacity.
func (o *OutputRing) Capacity() uint64 {
	return o.r.capacity()
}

// UnderrunCount is the cumulative number of PopFrame calls that found the
// ring empty, for metrics/logging.
func (o *OutputRing) UnderrunCount() uint64 {
	return o.underrunCount
}
