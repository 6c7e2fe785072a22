package engine

import (
	"log/slog"
	"time"

	"github.com/wkmp/ap/internal/buffermanager"
	"github.com/wkmp/ap/internal/decodepipeline"
	"github.com/wkmp/ap/internal/scheduler"
	"github.com/wkmp/ap/internal/settings"
	"github.com/wkmp/ap/pkg/timing"
)

// decodeWorker implements scheduler.Handler: it drives one passage's
// streaming decode → resample → playout-buffer chain per request,
// yielding at chunk boundaries when a higher-priority request is
// pending (spec §4.8's restart-at-chunk-boundary preemption). No fade
// envelope is applied on this path: frames enter the playout buffer as
// the resampler produced them. A preempted passage's buffer is left
// exactly where it is; the scheduler re-submits the request (same
// queue_entry_id, same Allocate), and Decode then opens a fresh
// StreamingDecoder at the tick just past the frames already buffered
// rather than trying to resume mid-decoder-state.
type decodeWorker struct {
	buffers      *buffermanager.BufferManager
	workingRate  timing.SampleRate
	chunkSeconds float64
	onFailed     func(queueEntryID string, reason string)
	onEndpoint   func(queueEntryID string, endTick timing.Tick)
}

func newDecodeWorker(buffers *buffermanager.BufferManager, workingRate timing.SampleRate, defaults settings.Defaults) *decodeWorker {
	return &decodeWorker{
		buffers:      buffers,
		workingRate:  workingRate,
		chunkSeconds: decodepipeline.DefaultChunkDuration,
	}
}

// Decode implements scheduler.Handler. It returns complete=false only
// when it bailed out early because shouldYield fired; the scheduler
// re-submits the request in that case (restart-at-chunk-boundary, spec
// §4.8 step 3). Every other return path — terminal failure or a
// normal finish — is complete=true, since nothing should be
// resubmitted for those.
func (w *decodeWorker) Decode(req scheduler.DecodeRequest, shouldYield func() bool) bool {
	// A re-submitted (preempted) request continues after the frames its
	// buffer already holds, so none of them is appended a second time.
	startTick := req.StartTick
	var totalFrames int64
	if ring, err := w.buffers.Ring(req.QueueEntryID); err == nil && ring.WritePos() > 0 {
		if done, err := timing.SamplesToTicks(int64(ring.WritePos()), w.workingRate); err == nil {
			startTick += done
			totalFrames = int64(ring.WritePos())
		}
	}
	sd, err := decodepipeline.Open(req.FilePath, startTick, req.EndTick, req.EndTickSet)
	if err != nil {
		slog.Warn("decodeworker: open failed", "queue_entry_id", req.QueueEntryID, "err", err)
		w.fail(req.QueueEntryID, err.Error())
		return true
	}
	defer sd.Close()

	resampler, err := decodepipeline.NewResampler(sd.Rate(), int(w.workingRate), sd.Channels())
	if err != nil {
		slog.Warn("decodeworker: resampler create failed", "queue_entry_id", req.QueueEntryID, "err", err)
		w.fail(req.QueueEntryID, err.Error())
		return true
	}

	for !sd.IsFinished() {
		if shouldYield() {
			// Restart-at-chunk-boundary: leave the buffer as-is and
			// return; the scheduler re-runs the higher-priority
			// request first, then re-submits this one, which resumes
			// after the frames already buffered.
			return false
		}

		ring, err := w.buffers.Ring(req.QueueEntryID)
		if err != nil {
			return true // buffer was removed out from under us (passage cancelled)
		}
		for ring.ShouldDecoderPause() {
			if shouldYield() {
				return false
			}
			time.Sleep(50 * time.Millisecond)
		}

		chunk, err := sd.DecodeChunk(w.chunkSeconds)
		if err != nil {
			slog.Warn("decodeworker: decode chunk failed", "queue_entry_id", req.QueueEntryID, "err", err)
			w.finalizeOnFailure(req.QueueEntryID, totalFrames, err.Error())
			return true
		}
		if chunk == nil {
			break
		}

		pcm, err := resampler.Process(chunk.PCM16)
		if err != nil {
			slog.Warn("decodeworker: resample failed", "queue_entry_id", req.QueueEntryID, "err", err)
			w.finalizeOnFailure(req.QueueEntryID, totalFrames, err.Error())
			return true
		}

		frames := decodepipeline.PCM16ToFrames(pcm, sd.Channels())
		n, _ := w.buffers.PushFrames(req.QueueEntryID, frames)
		totalFrames += int64(n)
	}

	if tail, err := resampler.Close(); err == nil && len(tail) > 0 {
		frames := decodepipeline.PCM16ToFrames(tail, sd.Channels())
		n, _ := w.buffers.PushFrames(req.QueueEntryID, frames)
		totalFrames += int64(n)
	}

	if endpoint, ok := sd.GetDiscoveredEndpoint(); ok && w.onEndpoint != nil {
		w.onEndpoint(req.QueueEntryID, endpoint)
	}

	w.buffers.Finalize(req.QueueEntryID, totalFrames)
	return true
}

func (w *decodeWorker) fail(queueEntryID, reason string) {
	w.buffers.Remove(queueEntryID)
	if w.onFailed != nil {
		w.onFailed(queueEntryID, reason)
	}
}

// finalizeOnFailure treats a mid-stream DecodeError as end-of-passage:
// the buffer is sealed with whatever was already appended so the mixer
// can drain it normally, and PassageFailed is still emitted (spec §9).
func (w *decodeWorker) finalizeOnFailure(queueEntryID string, framesAppended int64, reason string) {
	w.buffers.Finalize(queueEntryID, framesAppended)
	if w.onFailed != nil {
		w.onFailed(queueEntryID, reason)
	}
}
