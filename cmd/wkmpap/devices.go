package cmd

import (
	"fmt"
	"os"

	"github.com/drgolem/go-portaudio/portaudio"
	"github.com/spf13/cobra"

	"github.com/wkmp/ap/internal/audiodevice"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List PortAudio output devices",
	Run:   runDevices,
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}

func runDevices(cmd *cobra.Command, args []string) {
	if err := portaudio.Initialize(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize PortAudio: %v\n", err)
		os.Exit(1)
	}
	defer portaudio.Terminate()

	infos, err := audiodevice.ListOutputDevices()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to enumerate devices: %v\n", err)
		os.Exit(1)
	}

	if len(infos) == 0 {
		fmt.Println("no output devices found")
		return
	}

	for _, info := range infos {
		fmt.Printf("[%d] %s (max output channels: %d, default rate: %.0f Hz)\n",
			info.Index, info.Name, info.MaxOutputChans, info.DefaultSampleRate)
	}
}
