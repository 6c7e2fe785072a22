package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/drgolem/go-portaudio/portaudio"
	"github.com/spf13/cobra"

	"github.com/wkmp/ap/internal/audiodevice"
	"github.com/wkmp/ap/internal/engine"
	"github.com/wkmp/ap/internal/settings"
	"github.com/wkmp/ap/pkg/timing"
	"github.com/wkmp/ap/pkg/types"
)

var (
	playDeviceIdx int
	playFrames    int
	playVerbose   bool
	playDBPath    string
)

// playCmd enqueues every file argument as a whole-file passage and runs
// the engine until the queue drains, grounded on the teacher's
// runPlayer but driven through the full engine/mixer/scheduler stack
// instead of one producer/consumer pair per file.
var playCmd = &cobra.Command{
	Use:   "play <files...>",
	Short: "Enqueue files and play them gaplessly with crossfades",
	Args:  cobra.MinimumNArgs(1),
	Run:   runPlay,
}

func init() {
	rootCmd.AddCommand(playCmd)
	playCmd.Flags().IntVarP(&playDeviceIdx, "device", "d", 0, "Audio output device index")
	playCmd.Flags().IntVarP(&playFrames, "frames", "f", 512, "Audio frames per buffer")
	playCmd.Flags().BoolVarP(&playVerbose, "verbose", "v", false, "Verbose output (debug logging)")
	playCmd.Flags().StringVar(&playDBPath, "db", "wkmpap.db", "Settings/queue database path")
}

func runPlay(cmd *cobra.Command, args []string) {
	level := slog.LevelInfo
	if playVerbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	store, err := settings.OpenSQLiteStore(playDBPath)
	if err != nil {
		slog.Error("failed to open settings store", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	defaults := settings.DefaultValues()
	eng := engine.New(store, defaults)

	for _, path := range args {
		eng.Enqueue(settings.Passage{
			FilePath:     path,
			StartTime:    0,
			EndTimeSet:   false,
			FadeInCurve:  types.Linear,
			FadeOutCurve: types.Linear,
		})
	}

	slog.Info("initializing PortAudio")
	if err := portaudio.Initialize(); err != nil {
		slog.Error("failed to initialize PortAudio", "err", err)
		os.Exit(1)
	}
	defer portaudio.Terminate()
	slog.Info("PortAudio initialized", "version", portaudio.GetVersion())

	dev, err := audiodevice.Open(audiodevice.Config{
		DeviceIndex:     playDeviceIdx,
		SampleRate:      int(defaults.WorkingSampleRate),
		Channels:        2,
		BitsPerSample:   16,
		FramesPerBuffer: playFrames,
	}, eng.OutputRing(), func() {
		slog.Debug("output ring underrun")
	})
	if err != nil {
		slog.Error("failed to open audio device", "err", err)
		os.Exit(1)
	}
	defer dev.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("shutting down")
		cancel()
	}()

	go logEvents(eng)

	eng.Play()
	go eng.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(200 * time.Millisecond):
			if len(eng.GetQueue()) == 0 {
				slog.Info("queue drained, exiting")
				return
			}
		}
	}
}

func logEvents(eng *engine.PlaybackEngine) {
	for ev := range eng.Events() {
		switch ev.Kind {
		case engine.PassageStarted:
			slog.Info("PassageStarted", "queue_entry_id", ev.QueueEntryID)
		case engine.PassageCompleted:
			slog.Info("PassageCompleted", "queue_entry_id", ev.QueueEntryID)
		case engine.PassageFailed:
			slog.Warn("PassageFailed", "queue_entry_id", ev.QueueEntryID, "reason", ev.Reason)
		case engine.PlaybackProgress:
			slog.Debug("PlaybackProgress", "queue_entry_id", ev.QueueEntryID, "ms", timing.TicksToMs(ev.PositionTicks))
		}
	}
}
