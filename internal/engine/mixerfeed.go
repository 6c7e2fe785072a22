package engine

import (
	"context"
	"time"

	"github.com/wkmp/ap/internal/mixer"
	"github.com/wkmp/ap/pkg/frame"
)

// mixerFeed is the cooperative, single-threaded task of spec §5 tier 2:
// it refills the output ring from the mixer until the ring is at
// target fill, waking on a fixed interval and whenever notified that
// the output ring dropped below its low-water mark.
type mixerFeed struct {
	mix          *mixer.Mixer
	out          *frame.OutputRing
	targetFill   uint64
	refillPeriod time.Duration
	lowWater     chan struct{}
}

func newMixerFeed(mix *mixer.Mixer, out *frame.OutputRing, targetFill uint64, refillPeriod time.Duration) *mixerFeed {
	return &mixerFeed{
		mix:          mix,
		out:          out,
		targetFill:   targetFill,
		refillPeriod: refillPeriod,
		lowWater:     make(chan struct{}, 1),
	}
}

// notifyLowWater wakes the feed loop early instead of waiting for the
// next fixed tick. Nothing in this package calls it, so run refills on
// the fixed interval only.
func (mf *mixerFeed) notifyLowWater() {
	select {
	case mf.lowWater <- struct{}{}:
	default:
	}
}

func (mf *mixerFeed) run(ctx context.Context) {
	ticker := time.NewTicker(mf.refillPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			mf.refill()
		case <-mf.lowWater:
			mf.refill()
		}
	}
}

// refill pulls frames from the mixer until the output ring reaches its
// target fill level. One-frame-at-a-time is deliberate: GetNextFrame
// advances the mixer's entire state machine (fade progress, position
// events, completion signals) per call, so there is no batched variant.
func (mf *mixerFeed) refill() {
	for mf.out.FillLevel() < mf.targetFill {
		f := mf.mix.GetNextFrame()
		if mf.out.PushFrames([]frame.Frame{f}) == 0 {
			return
		}
	}
}
