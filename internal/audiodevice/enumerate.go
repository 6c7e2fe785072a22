package audiodevice

import "github.com/drgolem/go-portaudio/portaudio"

// Info describes one enumerated output device, for the `devices` CLI
// subcommand. No corpus source shows device enumeration (the retrieved
// examples only ever open a hardcoded device index), so this mirrors
// the PortAudio C API's conventional Pa_GetDeviceCount/Pa_GetDeviceInfo
// naming under the same portaudio package used for streaming; see
// DESIGN.md for the caveat.
type Info struct {
	Index          int
	Name           string
	MaxOutputChans int
	DefaultSampleRate float64
}

// ListOutputDevices enumerates every device with at least one output
// channel.
func ListOutputDevices() ([]Info, error) {
	count, err := portaudio.GetDeviceCount()
	if err != nil {
		return nil, err
	}

	var out []Info
	for i := 0; i < count; i++ {
		di, err := portaudio.GetDeviceInfo(i)
		if err != nil {
			continue
		}
		if di.MaxOutputChannels <= 0 {
			continue
		}
		out = append(out, Info{
			Index:             i,
			Name:              di.Name,
			MaxOutputChans:    di.MaxOutputChannels,
			DefaultSampleRate: di.DefaultSampleRate,
		})
	}
	return out, nil
}
