// Package wav adapts go-wav to types.AudioDecoder, grounded on the
// teacher's pkg/decoders/wav.
package wav

import (
	"fmt"
	"io"
	"os"

	"github.com/youpy/go-wav"
)

// Decoder wraps go-wav to implement types.AudioDecoder.
type Decoder struct {
	file     *os.File
	reader   *wav.Reader
	rate     int
	channels int
	bps      int
	format   uint16
}

// NewDecoder creates an unopened WAV decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Open opens a WAV file for decoding. Only PCM is supported.
func (d *Decoder) Open(fileName string) error {
	file, err := os.Open(fileName)
	if err != nil {
		return fmt.Errorf("wav: open %s: %w", fileName, err)
	}

	reader := wav.NewReader(file)
	format, err := reader.Format()
	if err != nil {
		file.Close()
		return fmt.Errorf("wav: read format: %w", err)
	}

	if format.AudioFormat != wav.AudioFormatPCM {
		file.Close()
		return fmt.Errorf("wav: unsupported format %d, only PCM supported", format.AudioFormat)
	}

	d.file = file
	d.reader = reader
	d.rate = int(format.SampleRate)
	d.channels = int(format.NumChannels)
	d.bps = int(format.BitsPerSample)
	d.format = format.AudioFormat
	return nil
}

// Close closes the underlying file.
func (d *Decoder) Close() error {
	if d.file != nil {
		return d.file.Close()
	}
	return nil
}

// GetFormat returns sample rate, channel count, and bits per sample.
func (d *Decoder) GetFormat() (rate, channels, bitsPerSample int) {
	return d.rate, d.channels, d.bps
}

// DecodeSamples decodes up to samples samples into audio. The buffer
// must hold samples*channels*(bitsPerSample/8) bytes.
func (d *Decoder) DecodeSamples(samples int, audio []byte) (int, error) {
	if d.reader == nil {
		return 0, fmt.Errorf("wav: decoder not initialized")
	}

	bytesPerSample := d.bps / 8
	total := 0

	for i := 0; i < samples; i++ {
		samplesData, err := d.reader.ReadSamples(1)
		if err != nil {
			if err == io.EOF {
				return total, nil
			}
			return total, err
		}
		if len(samplesData) == 0 {
			return total, nil
		}

		for ch := 0; ch < d.channels; ch++ {
			if ch >= len(samplesData[0].Values) {
				break
			}
			value := samplesData[0].Values[ch]
			offset := (total*d.channels + ch) * bytesPerSample
			if offset+bytesPerSample > len(audio) {
				return total, nil
			}

			switch d.bps {
			case 8:
				audio[offset] = byte(value)
			case 16:
				audio[offset] = byte(value & 0xFF)
				audio[offset+1] = byte((value >> 8) & 0xFF)
			case 24:
				audio[offset] = byte(value & 0xFF)
				audio[offset+1] = byte((value >> 8) & 0xFF)
				audio[offset+2] = byte((value >> 16) & 0xFF)
			case 32:
				audio[offset] = byte(value & 0xFF)
				audio[offset+1] = byte((value >> 8) & 0xFF)
				audio[offset+2] = byte((value >> 16) & 0xFF)
				audio[offset+3] = byte((value >> 24) & 0xFF)
			default:
				return total, fmt.Errorf("wav: unsupported bits per sample: %d", d.bps)
			}
		}
		total++
	}

	return total, nil
}
