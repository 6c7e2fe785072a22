package frame

import "sync/atomic"

// ring is the lock-free single-producer/single-consumer circular buffer
// of Frames shared by PlayoutRing and OutputRing. The physical backing
// array is rounded up to a power of 2 so indices can be masked instead
// of taken modulo, grounded on the teacher's pkg/ringbuffer.RingBuffer;
// the caller-requested logical capacity is tracked separately so
// callers see the configured size (spec's literal default values, e.g.
// playout_ringbuffer_size = 661,941) rather than the rounded physical
// one in Capacity()/ShouldDecoderPause()/FillPercent() thresholds.
type ring struct {
	buf         []Frame
	size        uint64 // physical, power-of-2, used for index masking
	mask        uint64
	logicalSize uint64 // caller-requested capacity
	writePos    atomic.Uint64
	readPos     atomic.Uint64
}

func newRing(capacity uint64) ring {
	physical := nextPowerOf2(capacity)
	return ring{
		buf:         make([]Frame, physical),
		size:        physical,
		mask:        physical - 1,
		logicalSize: capacity,
	}
}

// push writes as many of frames as fit, producer-only, non-blocking.
func (r *ring) push(frames []Frame) int {
	if len(frames) == 0 {
		return 0
	}
	available := r.availableWrite()
	toWrite := uint64(len(frames))
	if toWrite > available {
		toWrite = available
	}
	if toWrite == 0 {
		return 0
	}

	writePos := r.writePos.Load()
	for i := uint64(0); i < toWrite; i++ {
		r.buf[(writePos+i)&r.mask] = frames[i]
	}
	r.writePos.Store(writePos + toWrite)
	return int(toWrite)
}

// pop removes and returns the oldest frame, consumer-only, non-blocking,
// wait-free: suitable for the real-time path.
func (r *ring) pop() (Frame, bool) {
	readPos := r.readPos.Load()
	writePos := r.writePos.Load()
	if readPos >= writePos {
		return Frame{}, false
	}
	f := r.buf[readPos&r.mask]
	r.readPos.Store(readPos + 1)
	return f, true
}

// availableWrite is bounded by the logical (caller-requested) capacity,
// not the rounded-up physical backing array, so a ring never actually
// holds more than its configured size even though the backing array
// could.
func (r *ring) availableWrite() uint64 {
	return r.logicalSize - (r.writePos.Load() - r.readPos.Load())
}

func (r *ring) availableRead() uint64 {
	return r.writePos.Load() - r.readPos.Load()
}

// capacity returns the caller-requested logical capacity (spec's
// configured ringbuffer sizes), not the power-of-2-rounded physical
// backing array size.
func (r *ring) capacity() uint64 {
	return r.logicalSize
}

func (r *ring) writeCursor() uint64 {
	return r.writePos.Load()
}

func (r *ring) readCursor() uint64 {
	return r.readPos.Load()
}

func nextPowerOf2(n uint64) uint64 {
	if n == 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	n++
	return n
}
