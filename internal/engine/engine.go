// Package engine implements PlaybackEngine, the orchestrator of spec
// §4.10: queue advancement, crossfade triggering, decode request
// issuance, and command/event routing. Grounded on the teacher's
// cmd/player.go main loop (a periodic tick driving state transitions)
// and pkg/audioplayer.Player's play/pause/stop command surface,
// generalized from one passage to a current/next/queued pipeline.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wkmp/ap/internal/buffermanager"
	"github.com/wkmp/ap/internal/mixer"
	"github.com/wkmp/ap/internal/scheduler"
	"github.com/wkmp/ap/internal/settings"
	"github.com/wkmp/ap/pkg/frame"
	"github.com/wkmp/ap/pkg/timing"
	"github.com/wkmp/ap/pkg/types"
)

// DefaultTickInterval is the engine main loop's period (spec §4.10).
const DefaultTickInterval = 100 * time.Millisecond

// Failure kinds returned by commands (spec §4.10).
var (
	ErrNotFound              = fmt.Errorf("not found")
	ErrQueueEmpty            = fmt.Errorf("queue empty")
	ErrInvalidTiming         = fmt.Errorf("invalid timing")
	ErrDecodeError           = fmt.Errorf("decode error")
	ErrDeviceError           = fmt.Errorf("device error")
	ErrUnsupportedSampleRate = fmt.Errorf("unsupported sample rate")
)

// EventKind identifies an engine-level event, the surface the (out of
// scope) API layer subscribes to.
type EventKind int

const (
	PassageStarted EventKind = iota
	PassageCompleted
	PassageFailed
	PlaybackProgress
	ValidationEvent
)

// Event is emitted over Events() for the API layer to drain.
type Event struct {
	Kind            EventKind
	QueueEntryID    string
	ActualDurationMs int64
	Reason          string
	PositionTicks   timing.Tick
}

// PlaybackEngine owns the queue, the buffer manager, the scheduler, the
// mixer, and device volume; it is the only component that crosses
// between the cooperative decode/mixer tiers and external command
// callers (spec §5).
type PlaybackEngine struct {
	mu sync.Mutex

	q         *queue
	buffers   *buffermanager.BufferManager
	sched     *scheduler.SerialScheduler
	mix       *mixer.Mixer
	outRing   *frame.OutputRing
	feed      *mixerFeed
	store     settings.Store
	defaults  settings.Defaults
	worker    *decodeWorker
	playing   bool
	volume    float64

	events chan Event
}

// New wires a PlaybackEngine. store may be nil for a purely in-memory
// engine (tests); production callers pass a *settings.SQLiteStore.
func New(store settings.Store, defaults settings.Defaults) *PlaybackEngine {
	buffers := buffermanager.New(256)
	mix := mixer.New(256, defaults.WorkingSampleRate)
	worker := newDecodeWorker(buffers, defaults.WorkingSampleRate, defaults)
	outRing := frame.NewOutputRing(defaults.OutputRingbufferSize, defaults.RingBufferGracePeriod)
	feed := newMixerFeed(mix, outRing, defaults.OutputRingbufferSize/2, defaults.OutputRefillPeriod)

	e := &PlaybackEngine{
		q:        newQueue(),
		buffers:  buffers,
		mix:      mix,
		outRing:  outRing,
		feed:     feed,
		store:    store,
		defaults: defaults,
		worker:   worker,
		volume:   1.0,
		events:   make(chan Event, 256),
	}
	worker.onFailed = e.handlePassageFailed
	e.sched = scheduler.New(worker)
	return e
}

// OutputRing exposes the ring the audiodevice callback reads from.
func (e *PlaybackEngine) OutputRing() *frame.OutputRing { return e.outRing }

// Events returns the channel the API layer drains.
func (e *PlaybackEngine) Events() <-chan Event { return e.events }

func (e *PlaybackEngine) emit(ev Event) {
	select {
	case e.events <- ev:
	default:
		slog.Warn("engine: event channel full, dropping event", "kind", ev.Kind)
	}
}

// Run starts the scheduler worker and the main loop; it blocks until
// ctx is cancelled.
func (e *PlaybackEngine) Run(ctx context.Context) {
	go e.sched.Run()
	defer e.sched.Shutdown(time.Second)
	go e.feed.run(ctx)

	ticker := time.NewTicker(DefaultTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.tick()
		}
	}
}

func (e *PlaybackEngine) tick() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.drainBufferEvents()
	e.drainMixerEvents()
	e.handleCrossfadeCompletion()
	e.handleSelfCompletion()
	e.ensureDecodeRequests()
}

func (e *PlaybackEngine) drainBufferEvents() {
	for {
		select {
		case ev := <-e.buffers.Events():
			e.handleBufferEvent(ev)
		default:
			return
		}
	}
}

func (e *PlaybackEngine) handleBufferEvent(ev buffermanager.Event) {
	if ev.Kind != buffermanager.ReadyForStart {
		return
	}
	cur := e.q.current()
	next := e.q.next()

	switch {
	case cur != nil && cur.QueueEntryID == ev.QueueEntryID && e.mix.State() == mixer.Idle:
		ring, err := e.buffers.Ring(ev.QueueEntryID)
		if err != nil {
			return
		}
		fadeInSamples := ticksOrZero(cur.FadeInPoint, cur.StartTime, e.defaults.WorkingSampleRate)
		e.mix.StartPassage(cur.QueueEntryID, ring, cur.FadeInCurve, fadeInSamples)
		e.buffers.StartPlayback(ev.QueueEntryID)
		e.emit(Event{Kind: PassageStarted, QueueEntryID: cur.QueueEntryID})

	case cur != nil && next != nil && next.QueueEntryID == ev.QueueEntryID && e.playing:
		e.maybeStartCrossfade(*cur, *next)
	}
}

func (e *PlaybackEngine) maybeStartCrossfade(cur, next settings.Passage) {
	if e.mix.State() != mixer.SinglePassage {
		return
	}
	ring, err := e.buffers.Ring(cur.QueueEntryID)
	if err != nil {
		return
	}
	state, _ := e.buffers.GetState(next.QueueEntryID)
	if state < buffermanager.Ready {
		return
	}

	startTicks, overlapTicks := crossfadeStart(cur, next)
	triggerSamples, err := timing.TicksToSamples(startTicks-cur.StartTime, e.defaults.WorkingSampleRate)
	if err != nil {
		return
	}
	if int64(ring.ReadPos()) < triggerSamples {
		return
	}

	inRing, err := e.buffers.Ring(next.QueueEntryID)
	if err != nil {
		return
	}
	overlapSamples, err := timing.TicksToSamples(overlapTicks, e.defaults.WorkingSampleRate)
	if err != nil {
		return
	}
	e.buffers.StartPlayback(next.QueueEntryID)
	e.mix.StartCrossfade(next.QueueEntryID, inRing, next.FadeInCurve, overlapSamples, cur.FadeOutCurve, overlapSamples)
}

// crossfadeStart computes the position in `a` at which `b`'s fade-in
// must begin so both fade midpoints align (spec §4.10). A passage with
// no fade point on the relevant side has no span of its own to bound
// the overlap with, so that side imposes no limit: the overlap is then
// just the other side's span, yielding the one-sided fade spec.md §8
// requires ("a crossfade between two passages where one has no fade
// yields a one-sided fade equal to the other's duration").
func crossfadeStart(a, b settings.Passage) (startTicks, overlapTicks timing.Tick) {
	var outSpan, inSpan timing.Tick
	outSpanSet := a.FadeOutPoint != nil
	if outSpanSet {
		outSpan = a.EndTime - *a.FadeOutPoint
	}
	inSpanSet := b.FadeInPoint != nil
	if inSpanSet {
		inSpan = *b.FadeInPoint - b.StartTime
	}

	var overlap timing.Tick
	switch {
	case outSpanSet && inSpanSet:
		overlap = outSpan
		if inSpan < overlap {
			overlap = inSpan
		}
	case outSpanSet:
		overlap = outSpan
	case inSpanSet:
		overlap = inSpan
	default:
		overlap = 0
	}
	if overlap < 0 {
		overlap = 0
	}
	return a.EndTime - overlap, overlap
}

func ticksOrZero(p *timing.Tick, base timing.Tick, rate timing.SampleRate) int64 {
	if p == nil {
		return 0
	}
	n, err := timing.TicksToSamples(*p-base, rate)
	if err != nil {
		return 0
	}
	return n
}

func (e *PlaybackEngine) drainMixerEvents() {
	for {
		select {
		case ev := <-e.mix.Events():
			if ev.Kind == mixer.PositionUpdate {
				e.emit(Event{Kind: PlaybackProgress, QueueEntryID: ev.QueueEntryID, PositionTicks: timing.Tick(ev.Ticks)})
			}
		default:
			return
		}
	}
}

func (e *PlaybackEngine) handleCrossfadeCompletion() {
	qid, ok := e.mix.TakeCrossfadeCompleted()
	if !ok {
		return
	}
	e.emit(Event{Kind: PassageCompleted, QueueEntryID: qid})
	e.q.advance()
	e.buffers.Remove(qid)
	e.persistState()
}

func (e *PlaybackEngine) handleSelfCompletion() {
	qid, ok := e.mix.TakeSelfCompleted()
	if !ok {
		return
	}
	e.emit(Event{Kind: PassageCompleted, QueueEntryID: qid})
	e.q.advance()
	e.buffers.Remove(qid)
	e.persistState()

	if cur := e.q.current(); cur != nil {
		if state, err := e.buffers.GetState(cur.QueueEntryID); err == nil && state >= buffermanager.Ready {
			ring, err := e.buffers.Ring(cur.QueueEntryID)
			if err == nil {
				fadeInSamples := ticksOrZero(cur.FadeInPoint, cur.StartTime, e.defaults.WorkingSampleRate)
				e.mix.StartPassage(cur.QueueEntryID, ring, cur.FadeInCurve, fadeInSamples)
				e.buffers.StartPlayback(cur.QueueEntryID)
				e.emit(Event{Kind: PassageStarted, QueueEntryID: cur.QueueEntryID})
			}
		}
	}
}

func (e *PlaybackEngine) handlePassageFailed(queueEntryID, reason string) {
	e.emit(Event{Kind: PassageFailed, QueueEntryID: queueEntryID, Reason: reason})
}

// ensureDecodeRequests submits Immediate for current, Next for next,
// and up to maximum_decode_streams-2 Prefetch requests for the tail,
// skipping anything already managed (spec §4.10 step 5).
func (e *PlaybackEngine) ensureDecodeRequests() {
	if !e.playing {
		return
	}
	if cur := e.q.current(); cur != nil && !e.buffers.IsManaged(cur.QueueEntryID) {
		e.submitDecode(*cur, types.PriorityImmediate)
	}
	if next := e.q.next(); next != nil && !e.buffers.IsManaged(next.QueueEntryID) {
		e.submitDecode(*next, types.PriorityNext)
	}
	max := settings.ClampMaximumDecodeStreams(e.defaults.MaximumDecodeStreams)
	for _, p := range e.q.prefetchTail(max - 2) {
		if !e.buffers.IsManaged(p.QueueEntryID) {
			e.submitDecode(p, types.PriorityPrefetch)
		}
	}
}

func (e *PlaybackEngine) submitDecode(p settings.Passage, priority types.Priority) {
	_, err := e.buffers.Allocate(p.QueueEntryID, e.defaults.PlayoutRingbufferSize, e.defaults.PlayoutRingbufferHeadroom, 22050)
	if err != nil {
		return
	}
	e.sched.Submit(scheduler.DecodeRequest{
		QueueEntryID: p.QueueEntryID,
		Priority:     priority,
		FilePath:     p.FilePath,
		StartTick:    p.StartTime,
		EndTick:      p.EndTime,
		EndTickSet:   p.EndTimeSet,
	})
}

// Enqueue adds a passage to the tail of the queue, assigning it a fresh
// queue_entry_id.
func (e *PlaybackEngine) Enqueue(p settings.Passage) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	p.QueueEntryID = uuid.NewString()
	e.q.enqueue(p)
	e.persistQueue()
	return p.QueueEntryID
}

// Remove deletes a queued passage by id.
func (e *PlaybackEngine) Remove(queueEntryID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.q.remove(queueEntryID) {
		return ErrNotFound
	}
	e.buffers.Remove(queueEntryID)
	e.persistQueue()
	return nil
}

// Reorder moves a queued passage to newIndex.
func (e *PlaybackEngine) Reorder(queueEntryID string, newIndex int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.q.reorder(queueEntryID, newIndex) {
		return ErrNotFound
	}
	e.persistQueue()
	return nil
}

// Play starts (or resumes) playback.
func (e *PlaybackEngine) Play() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mix.State() == mixer.Paused {
		e.mix.Resume(types.Linear, 0)
	}
	e.playing = true
}

// Pause stops advancing playback, decaying the mixer output, and
// persists (queue, current, read_pos) for restart (spec §4.10).
func (e *PlaybackEngine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mix.Pause()
	e.playing = false
	e.persistQueue()
	e.persistState()
}

// SkipNext advances the queue immediately. Fails with ErrQueueEmpty
// when the queue is empty.
func (e *PlaybackEngine) SkipNext() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.q.isEmpty() {
		return ErrQueueEmpty
	}
	cur := e.q.current()
	e.q.advance()
	if cur != nil {
		e.buffers.Remove(cur.QueueEntryID)
		e.emit(Event{Kind: PassageCompleted, QueueEntryID: cur.QueueEntryID})
	}
	if next := e.q.current(); next != nil {
		e.emit(Event{Kind: PassageStarted, QueueEntryID: next.QueueEntryID})
	}
	return nil
}

// SetVolume sets device volume in [0, 1].
func (e *PlaybackEngine) SetVolume(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	e.volume = v
}

// GetQueue returns a snapshot of the current queue.
func (e *PlaybackEngine) GetQueue() []settings.Passage {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.q.snapshot()
}

// GetState returns the mixer's current state, for `get_state` callers.
func (e *PlaybackEngine) GetState() mixer.State {
	return e.mix.State()
}

func (e *PlaybackEngine) persistQueue() {
	if e.store == nil {
		return
	}
	if err := e.store.SaveQueue(e.q.snapshot()); err != nil {
		slog.Warn("engine: persist queue failed", "err", err)
	}
}

func (e *PlaybackEngine) persistState() {
	if e.store == nil {
		return
	}
	cur := e.q.current()
	if cur == nil {
		return
	}
	ring, err := e.buffers.Ring(cur.QueueEntryID)
	if err != nil {
		return
	}
	ticks, err := timing.SamplesToTicks(int64(ring.ReadPos()), e.defaults.WorkingSampleRate)
	if err != nil {
		return
	}
	if err := e.store.SavePlaybackState(cur.QueueEntryID, ticks); err != nil {
		slog.Warn("engine: persist playback state failed", "err", err)
	}
}
