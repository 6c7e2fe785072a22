// Package decodepipeline implements the chunked decode → resample →
// fade chain a scheduler worker drives per passage, grounded on the
// teacher's pkg/decoders/stream.StreamDecoder (chunked packet delivery)
// and cmd/transform.go (soxr streaming resample, PCM bit-depth math).
package decodepipeline

import (
	"fmt"

	"github.com/wkmp/ap/pkg/decoders"
	"github.com/wkmp/ap/pkg/timing"
	"github.com/wkmp/ap/pkg/types"
)

// DefaultChunkDuration is the chunk length in seconds; DecodeChunk
// converts it to frames at the decoder's own source rate.
const DefaultChunkDuration = 1.0 // seconds; spec's configurable [512ms, 2s] range

// Chunk is the source-rate, source-channel PCM payload returned by one
// DecodeChunk call, already trimmed to [start_sample_idx, end_sample_idx).
type Chunk struct {
	PCM16          []byte // interleaved 16-bit signed little-endian
	Frames         int    // sample frames (not bytes)
	SourceRate     int
	SourceChannels int
}

// StreamingDecoder drives one types.AudioDecoder across a passage's
// [start_time, end_time) window, emitting chunks instead of decoding
// the whole file in one call (spec §4.4).
type StreamingDecoder struct {
	decoder  types.AudioDecoder
	rate     int
	channels int
	bps      int

	startSampleIdx int64
	endSampleIdx   int64 // -1 when end_time was NULL ("until EOF")
	framesRead     int64 // source-rate frames consumed since startSampleIdx

	finished           bool
	discoveredEndpoint timing.Tick
	hasDiscovered      bool
}

// Open opens path and positions the decoder at startTick, computing the
// sample-index window at the file's native rate. There is no native
// seek in types.AudioDecoder, so positioning discards samples up to
// start_sample_idx by decoding (and dropping) them; this still bounds
// worst-case latency the same way chunked decode does for the rest of
// the passage.
func Open(path string, startTick, endTick timing.Tick, endTickIsSet bool) (*StreamingDecoder, error) {
	decoder, err := decoders.NewDecoder(path)
	if err != nil {
		return nil, fmt.Errorf("decodepipeline: open %s: %w", path, err)
	}

	rate, channels, bps := decoder.GetFormat()
	startIdx, err := timing.TicksToSamples(startTick, timing.SampleRate(rate))
	if err != nil {
		decoder.Close()
		return nil, fmt.Errorf("decodepipeline: %w", err)
	}

	endIdx := int64(-1)
	if endTickIsSet {
		endIdx, err = timing.TicksToSamples(endTick, timing.SampleRate(rate))
		if err != nil {
			decoder.Close()
			return nil, fmt.Errorf("decodepipeline: %w", err)
		}
	}

	sd := &StreamingDecoder{
		decoder:        decoder,
		rate:           rate,
		channels:       channels,
		bps:            bps,
		startSampleIdx: startIdx,
		endSampleIdx:   endIdx,
	}

	if err := sd.skipToStart(); err != nil {
		decoder.Close()
		return nil, err
	}
	return sd, nil
}

func (sd *StreamingDecoder) skipToStart() error {
	if sd.startSampleIdx <= 0 {
		return nil
	}
	const discardChunk = 8192
	buf := make([]byte, discardChunk*sd.channels*(sd.bps/8))
	remaining := sd.startSampleIdx
	for remaining > 0 {
		want := discardChunk
		if int64(want) > remaining {
			want = int(remaining)
		}
		n, err := sd.decoder.DecodeSamples(want, buf)
		if n == 0 {
			if err != nil {
				return fmt.Errorf("decodepipeline: seek to start: %w", err)
			}
			sd.finished = true
			return nil
		}
		remaining -= int64(n)
	}
	return nil
}

// Rate, Channels, BitsPerSample expose the source file's native format.
func (sd *StreamingDecoder) Rate() int          { return sd.rate }
func (sd *StreamingDecoder) Channels() int       { return sd.channels }
func (sd *StreamingDecoder) BitsPerSample() int { return sd.bps }

// DecodeChunk decodes roughly chunkDurationSeconds worth of source-rate
// audio trimmed to [start_sample_idx, end_sample_idx), normalized to
// 16-bit PCM. Returns nil when the passage end (or EOF) has been
// reached; subsequent calls continue to return nil.
func (sd *StreamingDecoder) DecodeChunk(chunkDurationSeconds float64) (*Chunk, error) {
	if sd.finished {
		return nil, nil
	}

	wantFrames := int(float64(sd.rate) * chunkDurationSeconds)
	if wantFrames <= 0 {
		wantFrames = sd.rate
	}

	if sd.endSampleIdx >= 0 {
		remaining := sd.endSampleIdx - (sd.startSampleIdx + sd.framesRead)
		if remaining <= 0 {
			sd.finished = true
			return nil, nil
		}
		if int64(wantFrames) > remaining {
			wantFrames = int(remaining)
		}
	}

	bytesPerSample := sd.bps / 8
	raw := make([]byte, wantFrames*sd.channels*bytesPerSample)
	n, err := sd.decoder.DecodeSamples(wantFrames, raw)
	if n == 0 {
		sd.finished = true
		if sd.endSampleIdx < 0 {
			// NULL end_time: the file ended before any explicit
			// boundary, so this is the discovered endpoint.
			endTick, convErr := timing.SamplesToTicks(sd.startSampleIdx+sd.framesRead, timing.SampleRate(sd.rate))
			if convErr == nil {
				sd.discoveredEndpoint = endTick
				sd.hasDiscovered = true
			}
		}
		if err != nil {
			return nil, fmt.Errorf("decodepipeline: decode chunk: %w", err)
		}
		return nil, nil
	}

	sd.framesRead += int64(n)
	pcm16 := normalizeTo16Bit(raw[:n*sd.channels*bytesPerSample], sd.bps)

	return &Chunk{
		PCM16:          pcm16,
		Frames:         n,
		SourceRate:     sd.rate,
		SourceChannels: sd.channels,
	}, nil
}

// IsFinished reflects end-of-passage or end-of-file.
func (sd *StreamingDecoder) IsFinished() bool {
	return sd.finished
}

// GetDiscoveredEndpoint returns the tick position the file actually
// ended at, when end_time was NULL (ephemeral passage, spec §9).
func (sd *StreamingDecoder) GetDiscoveredEndpoint() (timing.Tick, bool) {
	return sd.discoveredEndpoint, sd.hasDiscovered
}

// Close releases the underlying decoder.
func (sd *StreamingDecoder) Close() error {
	return sd.decoder.Close()
}

// normalizeTo16Bit downmixes any supported bit depth to 16-bit signed
// little-endian PCM, grounded on the teacher's WAV decoder's bit-depth
// switch and the climp example's FLAC 24-bit shift-and-clamp.
func normalizeTo16Bit(audio []byte, bitsPerSample int) []byte {
	if bitsPerSample == 16 {
		return audio
	}

	bytesPerSample := bitsPerSample / 8
	count := len(audio) / bytesPerSample
	out := make([]byte, count*2)

	for i := 0; i < count; i++ {
		off := i * bytesPerSample
		var sample int32
		switch bitsPerSample {
		case 8:
			sample = (int32(audio[off]) - 128) << 8
		case 24:
			s := int32(audio[off]) | int32(audio[off+1])<<8 | int32(audio[off+2])<<16
			if s&0x800000 != 0 {
				s |= ^0xFFFFFF
			}
			sample = s >> 8
		case 32:
			s := int32(audio[off]) | int32(audio[off+1])<<8 | int32(audio[off+2])<<16 | int32(audio[off+3])<<24
			sample = s >> 16
		default:
			sample = 0
		}
		if sample > 32767 {
			sample = 32767
		} else if sample < -32768 {
			sample = -32768
		}
		out[i*2] = byte(sample)
		out[i*2+1] = byte(sample >> 8)
	}
	return out
}
