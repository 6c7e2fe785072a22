// Package decoders selects and opens the container-format decoder for a
// file, grounded on the teacher's pkg/decoders/factory.go, extended
// here with Ogg Vorbis and Ogg Opus.
package decoders

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/wkmp/ap/pkg/decoders/flac"
	"github.com/wkmp/ap/pkg/decoders/mp3"
	"github.com/wkmp/ap/pkg/decoders/opus"
	"github.com/wkmp/ap/pkg/decoders/vorbis"
	"github.com/wkmp/ap/pkg/decoders/wav"
	"github.com/wkmp/ap/pkg/types"
)

// NewDecoder creates and opens the appropriate decoder based on file
// extension. Supports .mp3, .flac, .fla, .wav, .ogg, and .opus.
func NewDecoder(fileName string) (types.AudioDecoder, error) {
	ext := strings.ToLower(filepath.Ext(fileName))

	var decoder types.AudioDecoder

	switch ext {
	case ".mp3":
		decoder = mp3.NewDecoder()
	case ".flac", ".fla":
		decoder = flac.NewDecoder()
	case ".wav":
		decoder = wav.NewDecoder()
	case ".ogg":
		decoder = vorbis.NewDecoder()
	case ".opus":
		decoder = opus.NewDecoder()
	default:
		return nil, fmt.Errorf("unsupported file format: %s (supported: .mp3, .flac, .fla, .wav, .ogg, .opus)", ext)
	}

	if err := decoder.Open(fileName); err != nil {
		return nil, fmt.Errorf("open %s: %w", fileName, err)
	}

	return decoder, nil
}
