// Package vorbis adapts jfreymuth/oggvorbis to types.AudioDecoder.
// Grounded on the oggDecoder in other_examples' climp player decoder,
// which wraps the same library; adapted here to the teacher's
// Open/Close/GetFormat/DecodeSamples shape instead of an io.ReadSeeker.
package vorbis

import (
	"fmt"
	"io"
	"os"

	"github.com/jfreymuth/oggvorbis"
)

// Decoder wraps oggvorbis.Reader to implement types.AudioDecoder,
// emitting 16-bit signed PCM regardless of the stream's internal
// float32 representation.
type Decoder struct {
	file     *os.File
	reader   *oggvorbis.Reader
	rate     int
	channels int

	tmpSamples []float32 // reusable decode buffer, grow-only
}

// NewDecoder creates an unopened Ogg Vorbis decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Open opens an Ogg Vorbis file for decoding.
func (d *Decoder) Open(fileName string) error {
	file, err := os.Open(fileName)
	if err != nil {
		return fmt.Errorf("vorbis: open %s: %w", fileName, err)
	}

	reader, err := oggvorbis.NewReader(file)
	if err != nil {
		file.Close()
		return fmt.Errorf("vorbis: decode %s: %w", fileName, err)
	}

	d.file = file
	d.reader = reader
	d.rate = reader.SampleRate()
	d.channels = reader.Channels()
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
// Vorbis output is always normalized to 16-bit signed PCM here.
func (d *Decoder) GetFormat() (rate, channels, bitsPerSample int) {
	return d.rate, d.channels, 16
}

// DecodeSamples decodes up to samples interleaved samples into audio as
// 16-bit signed little-endian PCM.
func (d *Decoder) DecodeSamples(samples int, audio []byte) (int, error) {
	if d.reader == nil {
		return 0, fmt.Errorf("vorbis: decoder not initialized")
	}

	need := samples * d.channels
	if cap(d.tmpSamples) < need {
		d.tmpSamples = make([]float32, need)
	}
	buf := d.tmpSamples[:need]

	n, err := d.reader.Read(buf)
	if n == 0 {
		if err == io.EOF {
			return 0, nil
		}
		return 0, err
	}

	frames := n / d.channels
	for i := 0; i < n; i++ {
		s := buf[i]
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		v := int16(s * 32767)
		audio[i*2] = byte(v)
		audio[i*2+1] = byte(v >> 8)
	}

	return frames, nil
}
