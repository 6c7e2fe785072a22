// Package buffermanager registers and owns per-passage playout
// buffers, tracking each through the Empty→Filling→Ready→Playing
// lifecycle and emitting buffer events over a bounded channel
// (spec §4.7). Finalize seals a buffer and emits EventFinished without
// changing its lifecycle state; nothing in this package sets Finished. Grounded on the teacher's pkg/audioframeringbuffer for
// the registry-over-ring-buffer shape, generalized from one ring to a
// UUID-keyed map of them.
package buffermanager

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/wkmp/ap/pkg/frame"
)

// State is a PlayoutBuffer's lifecycle state.
type State int

// Lifecycle states, in their transition order. Finished is declared but
// no BufferManager method assigns it.
const (
	Empty State = iota
	Filling
	Ready
	Playing
	Finished
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Filling:
		return "filling"
	case Ready:
		return "ready"
	case Playing:
		return "playing"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

// EventKind identifies a BufferManager event.
type EventKind int

const (
	StateChanged EventKind = iota
	ReadyForStart
	Exhausted
	EventFinished
)

// Event is emitted over Events() as a PlayoutBuffer transitions.
type Event struct {
	Kind          EventKind
	QueueEntryID  string
	State         State
	FramesBuffered uint64
}

// entry pairs a PlayoutRing with its BufferManager-owned lifecycle
// bookkeeping.
type entry struct {
	ring           *frame.PlayoutRing
	state          State
	readyNotified  bool
	readyThreshold uint64
}

// BufferManager owns every active PlayoutBuffer, keyed by
// queue_entry_id, and emits lifecycle events to a single bounded
// channel the engine drains.
type BufferManager struct {
	mu      sync.RWMutex
	buffers map[string]*entry

	events chan Event
}

// New creates a BufferManager with the given event channel capacity.
func New(eventBuffer int) *BufferManager {
	return &BufferManager{
		buffers: make(map[string]*entry),
		events:  make(chan Event, eventBuffer),
	}
}

// Events returns the channel the engine drains for buffer transitions.
func (m *BufferManager) Events() <-chan Event {
	return m.events
}

func (m *BufferManager) emit(ev Event) {
	select {
	case m.events <- ev:
	default:
		slog.Warn("buffermanager: event channel full, dropping event",
			"kind", ev.Kind, "queue_entry_id", ev.QueueEntryID)
	}
}

// IsManaged is a presence check the engine uses to dedupe decode
// requests (spec §4.7 invariant).
func (m *BufferManager) IsManaged(queueEntryID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.buffers[queueEntryID]
	return ok
}

// Allocate registers a new, empty playout buffer for queueEntryID. At
// most one allocation per queueEntryID is permitted.
func (m *BufferManager) Allocate(queueEntryID string, capacity, headroom, readyThreshold uint64) (*frame.PlayoutRing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.buffers[queueEntryID]; exists {
		return nil, fmt.Errorf("buffermanager: %s already allocated", queueEntryID)
	}

	ring := frame.NewPlayoutRing(capacity, headroom)
	m.buffers[queueEntryID] = &entry{ring: ring, state: Empty, readyThreshold: readyThreshold}
	return ring, nil
}

// PushFrames delegates to the ring and handles the Empty→Filling and
// Filling→Ready transitions (the latter emitting ReadyForStart exactly
// once via ready_notified).
func (m *BufferManager) PushFrames(queueEntryID string, frames []frame.Frame) (int, error) {
	m.mu.Lock()
	e, ok := m.buffers[queueEntryID]
	if !ok {
		m.mu.Unlock()
		return 0, fmt.Errorf("buffermanager: %s not managed", queueEntryID)
	}

	if e.state == Empty {
		e.state = Filling
		m.emit(Event{Kind: StateChanged, QueueEntryID: queueEntryID, State: Filling})
	}
	m.mu.Unlock()

	n := e.ring.PushFrames(frames)

	m.mu.Lock()
	defer m.mu.Unlock()
	if e.state == Filling && !e.readyNotified && e.ring.WritePos() >= e.readyThreshold {
		e.state = Ready
		e.readyNotified = true
		m.emit(Event{Kind: StateChanged, QueueEntryID: queueEntryID, State: Ready})
		m.emit(Event{Kind: ReadyForStart, QueueEntryID: queueEntryID, FramesBuffered: e.ring.WritePos()})
	}
	return n, nil
}

// StartPlayback transitions Ready → Playing.
func (m *BufferManager) StartPlayback(queueEntryID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.buffers[queueEntryID]
	if !ok {
		return fmt.Errorf("buffermanager: %s not managed", queueEntryID)
	}
	e.state = Playing
	m.emit(Event{Kind: StateChanged, QueueEntryID: queueEntryID, State: Playing})
	return nil
}

// AdvanceReadPosition only checks that queueEntryID is managed; it
// records nothing and n is unused. The mixer advances the ring's own
// read cursor directly; this exists for parity with the spec's named
// operation.
func (m *BufferManager) AdvanceReadPosition(queueEntryID string, n uint64) error {
	m.mu.RLock()
	_, ok := m.buffers[queueEntryID]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("buffermanager: %s not managed", queueEntryID)
	}
	return nil
}

// Finalize marks decode_complete and seals total_frames.
func (m *BufferManager) Finalize(queueEntryID string, totalFrames int64) error {
	m.mu.Lock()
	e, ok := m.buffers[queueEntryID]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("buffermanager: %s not managed", queueEntryID)
	}
	e.ring.MarkDecodeComplete(totalFrames)
	m.emit(Event{Kind: EventFinished, QueueEntryID: queueEntryID})
	return nil
}

// Remove deallocates a passage's playout buffer.
func (m *BufferManager) Remove(queueEntryID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.buffers, queueEntryID)
}

// GetState returns the current lifecycle state.
func (m *BufferManager) GetState(queueEntryID string) (State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.buffers[queueEntryID]
	if !ok {
		return Empty, fmt.Errorf("buffermanager: %s not managed", queueEntryID)
	}
	return e.state, nil
}

// GetHeadroom returns the free space remaining in the passage's ring.
func (m *BufferManager) GetHeadroom(queueEntryID string) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.buffers[queueEntryID]
	if !ok {
		return 0, fmt.Errorf("buffermanager: %s not managed", queueEntryID)
	}
	return e.ring.Headroom(), nil
}

// IsExhausted reports decode_complete && read_pos >= write_pos.
func (m *BufferManager) IsExhausted(queueEntryID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.buffers[queueEntryID]
	if !ok {
		return false, fmt.Errorf("buffermanager: %s not managed", queueEntryID)
	}
	return e.ring.IsExhausted(), nil
}

// Ring returns the underlying PlayoutRing for direct mixer/decoder
// access to the hot path (push_frames/pop_frame), per spec §5: the
// registry lock is never held across the SPSC ring's own operations.
func (m *BufferManager) Ring(queueEntryID string) (*frame.PlayoutRing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.buffers[queueEntryID]
	if !ok {
		return nil, fmt.Errorf("buffermanager: %s not managed", queueEntryID)
	}
	return e.ring, nil
}

// EmitExhausted lets callers (the mixer-feed path) report an exhaustion
// observed on the hot path without taking the registry lock themselves.
func (m *BufferManager) EmitExhausted(queueEntryID string) {
	m.emit(Event{Kind: Exhausted, QueueEntryID: queueEntryID})
}
