package decodepipeline

import (
	"bytes"
	"fmt"

	soxr "github.com/zaf/resample"
)

// Resampler converts a stream of 16-bit PCM chunks from a source rate
// to the working rate, preserving soxr's filter state across chunk
// boundaries (spec §4.5). Grounded on cmd/transform.go's one-shot
// resampleAudio, adapted here to a long-lived streaming writer instead
// of resampling a whole file at once.
type Resampler struct {
	r   *soxr.Resampler
	buf bytes.Buffer

	sourceRate int
	workingRate int
	channels    int
}

// NewResampler creates a resampler from sourceRate to workingRate for
// the given channel count. When sourceRate == workingRate, Process is a
// pass-through and no soxr instance is created.
func NewResampler(sourceRate, workingRate, channels int) (*Resampler, error) {
	rs := &Resampler{sourceRate: sourceRate, workingRate: workingRate, channels: channels}
	if sourceRate == workingRate {
		return rs, nil
	}

	r, err := soxr.New(&rs.buf, float64(sourceRate), float64(workingRate), channels, soxr.I16, soxr.HighQ)
	if err != nil {
		return nil, fmt.Errorf("decodepipeline: create resampler: %w", err)
	}
	rs.r = r
	return rs, nil
}

// Process resamples one chunk of interleaved 16-bit PCM and returns the
// working-rate 16-bit PCM bytes produced so far. soxr buffers internally
// across calls, so a given call's output is not guaranteed proportional
// to its input; callers push whatever comes back into the playout
// buffer and rely on eventual consistency across the passage.
func (rs *Resampler) Process(pcm16 []byte) ([]byte, error) {
	if rs.r == nil {
		return pcm16, nil
	}

	if _, err := rs.r.Write(pcm16); err != nil {
		return nil, fmt.Errorf("decodepipeline: resample: %w", err)
	}
	out := rs.buf.Bytes()
	produced := make([]byte, len(out))
	copy(produced, out)
	rs.buf.Reset()
	return produced, nil
}

// Close flushes the remaining filter tail and returns any final bytes.
func (rs *Resampler) Close() ([]byte, error) {
	if rs.r == nil {
		return nil, nil
	}
	if err := rs.r.Close(); err != nil {
		return nil, fmt.Errorf("decodepipeline: close resampler: %w", err)
	}
	out := rs.buf.Bytes()
	produced := make([]byte, len(out))
	copy(produced, out)
	rs.buf.Reset()
	return produced, nil
}
