package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/wkmp/ap/internal/buffermanager"
	"github.com/wkmp/ap/internal/decodepipeline"
	"github.com/wkmp/ap/internal/validator"
	"github.com/wkmp/ap/pkg/timing"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Run a file through the decode pipeline without playback and report conservation counters",
	Args:  cobra.ExactArgs(1),
	Run:   runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

// runValidate drives one file through StreamingDecoder + Resampler +
// BufferManager exactly as decodeWorker would, then drains the
// resulting ring the way a mixer consumer would, and reports the
// three conservation counters spec §4.11 checks, as a standalone
// smoke test with no audio device and no scheduler involved.
func runValidate(cmd *cobra.Command, args []string) {
	path := args[0]
	workingRate := timing.Rate44100

	sd, err := decodepipeline.Open(path, 0, 0, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open %s: %v\n", path, err)
		os.Exit(1)
	}
	defer sd.Close()

	resampler, err := decodepipeline.NewResampler(sd.Rate(), int(workingRate), sd.Channels())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create resampler: %v\n", err)
		os.Exit(1)
	}

	buffers := buffermanager.New(16)
	const queueEntryID = "validate"
	ring, err := buffers.Allocate(queueEntryID, 661_941, 441, 22050)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to allocate buffer: %v\n", err)
		os.Exit(1)
	}

	var decoderOutputFrames int64

	for {
		chunk, err := sd.DecodeChunk(decodepipeline.DefaultChunkDuration)
		if err != nil {
			fmt.Fprintf(os.Stderr, "decode error: %v\n", err)
			break
		}
		if chunk == nil {
			break
		}
		decoderOutputFrames += int64(chunk.Frames)

		resampled, err := resampler.Process(chunk.PCM16)
		if err != nil {
			fmt.Fprintf(os.Stderr, "resample error: %v\n", err)
			break
		}
		frames := decodepipeline.PCM16ToFrames(resampled, sd.Channels())
		if _, err := buffers.PushFrames(queueEntryID, frames); err != nil {
			fmt.Fprintf(os.Stderr, "push frames error: %v\n", err)
			break
		}

		if sd.IsFinished() {
			break
		}
	}

	tail, err := resampler.Close()
	if err == nil && len(tail) > 0 {
		frames := decodepipeline.PCM16ToFrames(tail, sd.Channels())
		buffers.PushFrames(queueEntryID, frames)
	}

	endpoint, _ := sd.GetDiscoveredEndpoint()
	totalFrames, _ := timing.TicksToSamples(endpoint, workingRate)
	if totalFrames == 0 {
		totalFrames = int64(ring.WritePos())
	}
	buffers.Finalize(queueEntryID, totalFrames)

	bufferWriteFrames := int64(ring.WritePos())

	var mixerConsumedFrames int64
	for {
		if _, ok := ring.PopFrame(); !ok {
			break
		}
		mixerConsumedFrames++
	}
	bufferReadFrames := int64(ring.ReadPos())

	counters := validator.Counters{
		QueueEntryID:        queueEntryID,
		DecoderOutputFrames: decoderOutputFrames,
		BufferWriteFrames:   bufferWriteFrames,
		BufferReadFrames:    bufferReadFrames,
		MixerConsumedFrames: mixerConsumedFrames,
	}

	fmt.Printf("file: %s\n", path)
	fmt.Printf("decoder_output_frames: %d\n", counters.DecoderOutputFrames)
	fmt.Printf("buffer_write_frames:   %d\n", counters.BufferWriteFrames)
	fmt.Printf("buffer_read_frames:    %d\n", counters.BufferReadFrames)
	fmt.Printf("mixer_consumed_frames: %d\n", counters.MixerConsumedFrames)

	source := fixedCounterSource{counters: []validator.Counters{counters}}
	v := validator.New(source, 10*time.Millisecond, 8192, 4)
	stop := make(chan struct{})
	go v.Run(stop)

	select {
	case ev := <-v.Events():
		fmt.Printf("law %d: %s — %s\n", ev.Law, ev.Severity, ev.Detail)
	case <-time.After(500 * time.Millisecond):
		fmt.Println("validator produced no event within timeout")
	}
	close(stop)
}

type fixedCounterSource struct {
	counters []validator.Counters
}

func (f fixedCounterSource) SampleCounters() []validator.Counters {
	return f.counters
}
