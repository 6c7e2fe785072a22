// Package settings defines the external key/value collaborator the core
// engine reads tunables and queue state from, plus the concrete
// SQLite-backed adapter used by cmd/wkmpap. The engine itself depends
// only on the Store interface (spec §1's "external collaborators"
// boundary): persistent settings and queue storage are out of the
// core's scope.
package settings

import (
	"time"

	"github.com/wkmp/ap/pkg/timing"
	"github.com/wkmp/ap/pkg/types"
)

// Store is the persistence boundary the engine uses to load tunables
// and persist/reload queue + playback position across restarts.
type Store interface {
	// GetSetting returns the raw string value for key, or ok=false if
	// the key has never been set (callers apply the §6 default table).
	GetSetting(key string) (value string, ok bool, err error)
	SetSetting(key string, value string) error

	// LoadQueue returns the persisted queue in order: current, next,
	// then queued.
	LoadQueue() ([]Passage, error)
	SaveQueue(passages []Passage) error

	// SavePlaybackState persists the resume point used on restart.
	SavePlaybackState(currentQueueEntryID string, readPosTicks timing.Tick) error
	LoadPlaybackState() (currentQueueEntryID string, readPosTicks timing.Tick, ok bool, err error)
}

// Passage is the persisted representation of a queue entry: the six
// tick-typed timing fields plus curve selectors, per spec §3 and §6.
type Passage struct {
	QueueEntryID string
	FilePath     string

	StartTime  timing.Tick
	EndTime    timing.Tick
	EndTimeSet bool // false means "play until end of file" (spec §9 ephemeral passage)

	FadeInPoint  *timing.Tick
	FadeOutPoint *timing.Tick
	LeadInPoint  *timing.Tick
	LeadOutPoint *timing.Tick

	FadeInCurve  types.Curve
	FadeOutCurve types.Curve
}

// Defaults holds the recognized settings table from spec §6 as a typed
// snapshot, filled by DefaultValues; no code in this package parses the
// Store's string values into it. Non-hot-reloadable by design (spec §9:
// "one initialization at startup").
type Defaults struct {
	WorkingSampleRate         timing.SampleRate
	OutputRingbufferSize      uint64
	OutputRefillPeriod        time.Duration
	MaximumDecodeStreams      int
	PlayoutRingbufferSize     uint64
	PlayoutRingbufferHeadroom uint64
	MinimumBufferThreshold    time.Duration
	PauseDecayFactor          float64
	PauseDecayFloor           float64
	RingBufferGracePeriod     time.Duration
	ValidationEnabled         bool
	ValidationInterval        time.Duration
	ValidationToleranceSamples uint64
}

// DefaultValues returns the §6 defaults. It does not consult any Store.
func DefaultValues() Defaults {
	return Defaults{
		WorkingSampleRate:          timing.Rate44100,
		OutputRingbufferSize:       8192,
		OutputRefillPeriod:         90 * time.Millisecond,
		MaximumDecodeStreams:       12,
		PlayoutRingbufferSize:      661_941,
		PlayoutRingbufferHeadroom:  441,
		MinimumBufferThreshold:     3000 * time.Millisecond,
		PauseDecayFactor:           0.96875,
		PauseDecayFloor:            0.0001778,
		RingBufferGracePeriod:      2000 * time.Millisecond,
		ValidationEnabled:          true,
		ValidationInterval:         10 * time.Second,
		ValidationToleranceSamples: 8192,
	}
}

// ClampMaximumDecodeStreams enforces the [2, 32] bound from spec §6.
func ClampMaximumDecodeStreams(n int) int {
	if n < 2 {
		return 2
	}
	if n > 32 {
		return 32
	}
	return n
}
