package audio

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cwbudde/algo-dsp/dsp/dither"
	"github.com/cwbudde/wav"
	goaudio "github.com/go-audio/audio"
)

// WriteWAV writes the segment to path as a 16-bit stereo WAV file,
// creating parent directories as needed.
func WriteWAV(path string, s *Segment) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return EncodeWAV(f, s)
}

// EncodeWAV encodes the segment as 16-bit stereo PCM. The float mix is
// dithered onto the 16-bit grid per channel before encoding so quiet click
// tails don't collapse into bare truncation noise.
func EncodeWAV(w io.WriteSeeker, s *Segment) error {
	if s == nil || s.SampleRate <= 0 {
		return fmt.Errorf("invalid segment")
	}

	left, err := dither.NewQuantizer(float64(s.SampleRate), dither.WithBitDepth(16))
	if err != nil {
		return err
	}
	right, err := dither.NewQuantizer(float64(s.SampleRate), dither.WithBitDepth(16))
	if err != nil {
		return err
	}

	data := make([]float32, len(s.Data))
	for i := 0; i+1 < len(s.Data); i += 2 {
		data[i] = float32(left.ProcessSample(float64(s.Data[i])))
		data[i+1] = float32(right.ProcessSample(float64(s.Data[i+1])))
	}

	enc := wav.NewEncoder(w, s.SampleRate, 16, 2, 1)
	defer enc.Close()

	buf := &goaudio.Float32Buffer{
		Format: &goaudio.Format{
			SampleRate:  s.SampleRate,
			NumChannels: 2,
		},
		Data:           data,
		SourceBitDepth: 16,
	}
	return enc.Write(buf)
}
