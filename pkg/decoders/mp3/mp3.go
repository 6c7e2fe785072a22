// Package mp3 adapts the mpg123 binding to the types.AudioDecoder
// interface, grounded on the teacher's pkg/decoders/mp3.
package mp3

import (
	"fmt"

	"github.com/drgolem/go-mpg123/mpg123"
)

// Decoder wraps mpg123.Decoder to implement types.AudioDecoder.
type Decoder struct {
	decoder  *mpg123.Decoder
	rate     int
	channels int
	encoding int
}

// NewDecoder creates an unopened MP3 decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Open opens and initializes an MP3 file for decoding.
func (d *Decoder) Open(fileName string) error {
	decoder, err := mpg123.NewDecoder("")
	if err != nil {
		return fmt.Errorf("mp3: create decoder: %w", err)
	}

	if err := decoder.Open(fileName); err != nil {
		decoder.Delete()
		return fmt.Errorf("mp3: open %s: %w", fileName, err)
	}

	rate, channels, encoding := decoder.GetFormat()

	d.decoder = decoder
	d.rate = rate
	d.channels = channels
	d.encoding = encoding
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
func (d *Decoder) GetFormat() (rate, channels, bitsPerSample int) {
	return d.rate, d.channels, bitsPerSample_(d.encoding)
}

// DecodeSamples decodes up to samples samples into audio.
func (d *Decoder) DecodeSamples(samples int, audio []byte) (int, error) {
	if d.decoder == nil {
		return 0, fmt.Errorf("mp3: decoder not initialized")
	}
	return d.decoder.DecodeSamples(samples, audio)
}

// bitsPerSample_ maps an mpg123 encoding constant to its bit depth.
// mpg123 exposes several encodings per bit depth (signed, unsigned,
// float); only the depth matters to our resampler and mixer, which
// always receive samples already normalized by DecodeSamples.
func bitsPerSample_(encoding int) int {
	switch encoding {
	case mpg123.ENC_SIGNED_8, mpg123.ENC_UNSIGNED_8, mpg123.ENC_ULAW_8, mpg123.ENC_ALAW_8:
		return 8
	case mpg123.ENC_SIGNED_24, mpg123.ENC_UNSIGNED_24:
		return 24
	case mpg123.ENC_SIGNED_32, mpg123.ENC_UNSIGNED_32, mpg123.ENC_FLOAT_32:
		return 32
	default:
		return 16
	}
}
