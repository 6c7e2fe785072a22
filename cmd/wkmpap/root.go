package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "wkmpap",
	Short: "Sample-accurate, crossfading, gapless passage player",
	Long: `wkmpap drives the WKMP audio playback engine: a tick-based timing
model, a streaming priority-preemptible decoder, per-passage lock-free
playout buffers, and a crossfade mixer, feeding a real-time PortAudio
output callback.

Commands:
  - play: enqueue files and run the engine until the queue drains
  - devices: list PortAudio output devices
  - validate: run a file through the decode pipeline without playback`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Called once by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
