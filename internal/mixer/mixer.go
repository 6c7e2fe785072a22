// Package mixer implements CrossfadeMixer, the six-state machine of
// spec §4.9 that produces one stereo Frame per call to GetNextFrame,
// consuming from one or two playout buffers and applying crossfade and
// pause envelopes. Grounded on the teacher's pkg/audioplayer.Player
// state handling (play/pause/stop transitions driving a single mixing
// loop) generalized from a single-source player to a two-source
// crossfading one; the envelope math itself is grounded on
// pkg/types.Curve (see pkg/types/curve.go).
package mixer

import (
	"log/slog"
	"sync"

	"github.com/wkmp/ap/pkg/frame"
	"github.com/wkmp/ap/pkg/timing"
	"github.com/wkmp/ap/pkg/types"
)

// State is the mixer's current mode.
type State int

const (
	Idle State = iota
	SinglePassage
	Crossfading
	Underrun
	Paused
	Resuming
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case SinglePassage:
		return "single_passage"
	case Crossfading:
		return "crossfading"
	case Underrun:
		return "underrun"
	case Paused:
		return "paused"
	case Resuming:
		return "resuming"
	default:
		return "unknown"
	}
}

// DefaultPauseDecayFactor and DefaultPauseDecayFloor are pause_decay_factor
// and pause_decay_floor from spec §6.
const (
	DefaultPauseDecayFactor = 31.0 / 32.0
	DefaultPauseDecayFloor  = 1.778e-4
)

// DefaultPositionEventInterval is ~100ms of frames at 44.1kHz.
const DefaultPositionEventInterval = 4410

// source pairs a playout ring with the fade envelope applied to it.
type source struct {
	queueEntryID string
	ring         *frame.PlayoutRing
	curve        types.Curve
}

// EventKind identifies a mixer event.
type EventKind int

const (
	PositionUpdate EventKind = iota
)

// Event is emitted over Events() for the engine to drain.
type Event struct {
	Kind         EventKind
	QueueEntryID string
	Ticks        int64 // samples_to_ticks(read_pos, working_rate)
}

// Mixer is the crossfade state machine. Not safe for concurrent use by
// more than one mixer-feed goroutine; GetNextFrame is meant to be
// called serially from a single cooperative task (spec §5 tier 2).
type Mixer struct {
	mu    sync.Mutex
	state State

	current *source // the sole source in SinglePassage, or the incoming source during Crossfading
	outPassage *source // the outgoing source during Crossfading

	fadeInProgress, fadeInTotal   int64
	fadeOutProgress, fadeOutTotal int64

	decayGain        float64
	pauseDecayFactor float64
	pauseDecayFloor  float64
	resumeTo         State
	lastEmitted      frame.Frame

	underrunSource *source

	crossfadeCompleted *string // set once, consumed by TakeCrossfadeCompleted
	selfCompleted      *string

	positionEventInterval int64
	framesSincePosition   int64
	workingRate           timing.SampleRate

	events chan Event
}

// New creates an idle mixer producing frames at workingRate.
func New(eventBuffer int, workingRate timing.SampleRate) *Mixer {
	return &Mixer{
		state:                 Idle,
		pauseDecayFactor:      DefaultPauseDecayFactor,
		pauseDecayFloor:       DefaultPauseDecayFloor,
		positionEventInterval: DefaultPositionEventInterval,
		workingRate:           workingRate,
		events:                make(chan Event, eventBuffer),
	}
}

// Events returns the channel the engine drains for position updates.
func (m *Mixer) Events() <-chan Event { return m.events }

func (m *Mixer) emit(ev Event) {
	select {
	case m.events <- ev:
	default:
		slog.Warn("mixer: event channel full, dropping event", "kind", ev.Kind)
	}
}

// State returns the current mixer state.
func (m *Mixer) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// StartPassage transitions Idle -> SinglePassage. fadeInDurationSamples
// may be 0 to skip the envelope entirely.
func (m *Mixer) StartPassage(queueEntryID string, ring *frame.PlayoutRing, fadeInCurve types.Curve, fadeInDurationSamples int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = &source{queueEntryID: queueEntryID, ring: ring, curve: fadeInCurve}
	m.fadeInProgress = 0
	m.fadeInTotal = fadeInDurationSamples
	m.state = SinglePassage
}

// StartCrossfade transitions SinglePassage -> Crossfading. The current
// passage becomes the outgoing source; inRing is the incoming passage.
func (m *Mixer) StartCrossfade(inQueueEntryID string, inRing *frame.PlayoutRing, fadeInCurve types.Curve, fadeInDurationSamples int64, fadeOutCurve types.Curve, fadeOutDurationSamples int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outPassage = m.current
	if m.outPassage != nil {
		m.outPassage.curve = fadeOutCurve
	}
	m.current = &source{queueEntryID: inQueueEntryID, ring: inRing, curve: fadeInCurve}
	m.fadeOutProgress = 0
	m.fadeOutTotal = fadeOutDurationSamples
	m.fadeInProgress = 0
	m.fadeInTotal = fadeInDurationSamples
	m.state = Crossfading
}

// Pause transitions any state to Paused, starting the exponential decay
// from gain 1.0.
func (m *Mixer) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Paused {
		return
	}
	m.resumeTo = m.state
	m.decayGain = 1.0
	m.state = Paused
}

// Resume transitions Paused -> Resuming -> (SinglePassage|Crossfading)
// with a fresh fade-in envelope of the given duration.
func (m *Mixer) Resume(fadeInCurve types.Curve, fadeInDurationSamples int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Paused {
		return
	}
	m.state = Resuming
	m.fadeInProgress = 0
	m.fadeInTotal = fadeInDurationSamples
	if m.current != nil {
		m.current.curve = fadeInCurve
	}
}

// TakeCrossfadeCompleted consumes and returns the queue_entry_id of the
// passage that just finished crossfading out, if any. This is the sole
// race-free completion signal during Crossfading (spec §4.9); it
// returns ok=false on every call after the first for a given
// completion.
func (m *Mixer) TakeCrossfadeCompleted() (queueEntryID string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.crossfadeCompleted == nil {
		return "", false
	}
	id := *m.crossfadeCompleted
	m.crossfadeCompleted = nil
	return id, true
}

// TakeSelfCompleted consumes and returns the queue_entry_id of a
// SinglePassage that exhausted its buffer and drove the mixer to Idle.
func (m *Mixer) TakeSelfCompleted() (queueEntryID string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.selfCompleted == nil {
		return "", false
	}
	id := *m.selfCompleted
	m.selfCompleted = nil
	return id, true
}

// GetNextFrame produces the next output frame, advancing all relevant
// state. It never blocks: an empty source buffer whose decode is not
// yet complete drives the mixer into Underrun; a fully exhausted one
// drives completion.
func (m *Mixer) GetNextFrame() frame.Frame {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out frame.Frame
	switch m.state {
	case Idle:
		return frame.Silence
	case Paused:
		return m.stepPaused()
	case Resuming:
		out = m.stepResuming()
	case Underrun:
		out = m.stepUnderrun()
	case SinglePassage:
		out = m.stepSinglePassage()
	case Crossfading:
		out = m.stepCrossfading()
	default:
		return frame.Silence
	}
	m.lastEmitted = out
	return out
}

// stepPaused never pops from any source ring: the paused source's
// read_pos is frozen (spec §4.9, "source does not drain while
// paused"). Output is the last emitted frame decaying toward silence.
func (m *Mixer) stepPaused() frame.Frame {
	if m.decayGain < m.pauseDecayFloor {
		return frame.Silence
	}
	out := m.lastEmitted.Scale(m.decayGain)
	m.decayGain *= m.pauseDecayFactor
	return out.Clamp()
}

func (m *Mixer) stepResuming() frame.Frame {
	f := m.popWithFadeIn(m.current)
	m.fadeInProgress++
	if m.fadeInProgress >= m.fadeInTotal {
		if m.outPassage != nil {
			m.state = Crossfading
		} else {
			m.state = SinglePassage
		}
	}
	return f.Clamp()
}

func (m *Mixer) stepUnderrun() frame.Frame {
	if m.underrunSource == nil {
		m.state = m.resumeTo
		return frame.Silence
	}
	f, ok := m.underrunSource.ring.PopFrame()
	if ok {
		m.state = m.resumeTo
		return f.Clamp()
	}
	return frame.Silence
}

func (m *Mixer) stepSinglePassage() frame.Frame {
	src := m.current
	if src == nil {
		m.state = Idle
		return frame.Silence
	}
	f, ok := src.ring.PopFrame()
	if !ok {
		if src.ring.IsExhausted() {
			id := src.queueEntryID
			m.selfCompleted = &id
			m.state = Idle
			m.current = nil
			return frame.Silence
		}
		m.resumeTo = SinglePassage
		m.underrunSource = src
		m.state = Underrun
		return frame.Silence
	}
	gain := m.fadeInGain()
	m.fadeInProgress++
	m.bumpPosition(src)
	return f.Scale(gain).Clamp()
}

func (m *Mixer) stepCrossfading() frame.Frame {
	out := frame.Silence

	if m.outPassage != nil {
		f, ok := m.outPassage.ring.PopFrame()
		if !ok && !m.outPassage.ring.IsExhausted() {
			m.resumeTo = Crossfading
			m.underrunSource = m.outPassage
			m.state = Underrun
			return frame.Silence
		}
		if ok {
			gain := crossfadeGain(m.outPassage.curve, m.fadeOutProgress, m.fadeOutTotal, true)
			out = out.Add(f.Scale(gain))
		}
		m.fadeOutProgress++
	} else {
		m.fadeOutProgress = m.fadeOutTotal
	}

	if m.current != nil {
		f, ok := m.current.ring.PopFrame()
		if !ok && !m.current.ring.IsExhausted() {
			m.resumeTo = Crossfading
			m.underrunSource = m.current
			m.state = Underrun
			return frame.Silence
		}
		if ok {
			gain := crossfadeGain(m.current.curve, m.fadeInProgress, m.fadeInTotal, false)
			out = out.Add(f.Scale(gain))
			m.bumpPosition(m.current)
		}
		m.fadeInProgress++
	} else {
		m.fadeInProgress = m.fadeInTotal
	}

	if m.fadeOutProgress >= m.fadeOutTotal && m.fadeInProgress >= m.fadeInTotal {
		if m.outPassage != nil {
			id := m.outPassage.queueEntryID
			m.crossfadeCompleted = &id
		}
		m.outPassage = nil
		m.state = SinglePassage
	}

	return out.Clamp()
}

func (m *Mixer) popWithFadeIn(src *source) frame.Frame {
	if src == nil {
		return frame.Silence
	}
	f, ok := src.ring.PopFrame()
	if !ok {
		return frame.Silence
	}
	progress := float64(m.fadeInProgress) / float64(max64(m.fadeInTotal, 1))
	gain := src.curve.Gain(clamp01(progress))
	m.bumpPosition(src)
	return f.Scale(gain)
}

func (m *Mixer) fadeInGain() float64 {
	if m.fadeInTotal <= 0 {
		return 1.0
	}
	progress := float64(m.fadeInProgress) / float64(m.fadeInTotal)
	return m.current.curve.Gain(clamp01(progress))
}

// crossfadeGain computes one side's gain during a crossfade. A
// zero-duration fade on that side yields an unmultiplied sample
// (instant start/stop, spec.md §8), matching fadeInGain's guard for
// the single-passage fade-in case instead of dividing by a total of 0
// and evaluating the curve at progress 0 (which Gain defines as silent
// for fade-in curves).
func crossfadeGain(curve types.Curve, progress, total int64, fadeOut bool) float64 {
	if total <= 0 {
		return 1.0
	}
	p := clamp01(float64(progress) / float64(total))
	if fadeOut {
		p = 1 - p
	}
	return curve.Gain(p)
}

func (m *Mixer) bumpPosition(src *source) {
	m.framesSincePosition++
	if m.framesSincePosition >= m.positionEventInterval {
		m.framesSincePosition = 0
		ticks, err := timing.SamplesToTicks(int64(src.ring.ReadPos()), m.workingRate)
		if err != nil {
			slog.Warn("mixer: position tick conversion failed", "err", err)
			return
		}
		m.emit(Event{Kind: PositionUpdate, QueueEntryID: src.queueEntryID, Ticks: int64(ticks)})
	}
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
