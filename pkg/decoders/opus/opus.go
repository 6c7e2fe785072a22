// Package opus adapts the go-opus binding to types.AudioDecoder,
// grounded on the teacher's mp3 and flac decoders: both wrap a drgolem
// C-library binding behind the identical Open/Close/GetFormat/
// DecodeSamples shape, and go-opus follows the same family convention.
package opus

import (
	"fmt"

	"github.com/drgolem/go-opus/opus"
)

// Decoder wraps opus.Decoder to implement types.AudioDecoder.
type Decoder struct {
	decoder  *opus.Decoder
	rate     int
	channels int
}

// NewDecoder creates an unopened Opus decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Open opens an Ogg Opus file for decoding.
func (d *Decoder) Open(fileName string) error {
	decoder, err := opus.NewDecoder()
	if err != nil {
		return fmt.Errorf("opus: create decoder: %w", err)
	}

	if err := decoder.Open(fileName); err != nil {
		decoder.Delete()
		return fmt.Errorf("opus: open %s: %w", fileName, err)
	}

	rate, channels := decoder.GetFormat()

	d.decoder = decoder
	d.rate = rate
	d.channels = channels
	return nil
}

// Close closes the decoder and releases native resources.
func (d *Decoder) Close() error {
	if d.decoder != nil {
		d.decoder.Close()
		d.decoder.Delete()
		d.decoder = nil
	}
	return nil
}

// GetFormat returns sample rate, channel count, and bits per sample.
// libopus always decodes to 16-bit signed PCM.
func (d *Decoder) GetFormat() (rate, channels, bitsPerSample int) {
	return d.rate, d.channels, 16
}

// DecodeSamples decodes up to samples samples into audio.
func (d *Decoder) DecodeSamples(samples int, audio []byte) (int, error) {
	if d.decoder == nil {
		return 0, fmt.Errorf("opus: decoder not initialized")
	}
	return d.decoder.DecodeSamples(samples, audio)
}
