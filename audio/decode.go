package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cwbudde/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/mewkiz/flac"
)

// ErrUnsupportedCodec is returned for file extensions no decoder handles.
var ErrUnsupportedCodec = errors.New("unsupported audio codec")

// SupportedExtension reports whether a decoder exists for the extension.
func SupportedExtension(ext string) bool {
	switch strings.ToLower(ext) {
	case ".wav", ".mp3", ".ogg", ".flac":
		return true
	}
	return false
}

// DecodeFile decodes a sample file into a stereo segment at its native
// sample rate. The codec is picked from the file extension.
func DecodeFile(path string) (*Segment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f, filepath.Ext(path))
}

// Decode decodes a sample stream into a stereo segment. Supported codecs:
// .wav, .mp3, .ogg, .flac. Mono sources are duplicated onto both channels;
// sources with more than two channels keep the first two.
func Decode(r io.ReadSeeker, ext string) (*Segment, error) {
	switch strings.ToLower(ext) {
	case ".wav":
		return decodeWAV(r)
	case ".mp3":
		return decodeMP3(r)
	case ".ogg":
		return decodeOGG(r)
	case ".flac":
		return decodeFLAC(r)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedCodec, ext)
}

func decodeWAV(r io.ReadSeeker) (*Segment, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("invalid wav file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("wav: %w", err)
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, fmt.Errorf("wav: empty buffer")
	}
	if buf.Format.SampleRate <= 0 {
		return nil, fmt.Errorf("wav: invalid sample rate %d", buf.Format.SampleRate)
	}

	numCh := buf.Format.NumChannels
	frames := len(buf.Data) / numCh
	data := make([]float32, frames*2)
	if numCh == 1 {
		for i := range frames {
			v := buf.Data[i]
			data[i*2] = v
			data[i*2+1] = v
		}
	} else {
		for i := range frames {
			data[i*2] = buf.Data[i*numCh]
			data[i*2+1] = buf.Data[i*numCh+1]
		}
	}
	return &Segment{Data: data, SampleRate: buf.Format.SampleRate}, nil
}

func decodeMP3(r io.Reader) (*Segment, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("mp3: %w", err)
	}

	// The decoded stream is always 16-bit little endian stereo, so one
	// frame is four bytes.
	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("mp3: %w", err)
	}
	frames := len(raw) / 4
	data := make([]float32, frames*2)
	for i := range frames {
		l := int16(uint16(raw[i*4]) | uint16(raw[i*4+1])<<8)
		r := int16(uint16(raw[i*4+2]) | uint16(raw[i*4+3])<<8)
		data[i*2] = float32(l) / 32768
		data[i*2+1] = float32(r) / 32768
	}
	return &Segment{Data: data, SampleRate: dec.SampleRate()}, nil
}

func decodeOGG(r io.Reader) (*Segment, error) {
	pcm, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("ogg: %w", err)
	}
	if format.Channels < 1 {
		return nil, fmt.Errorf("ogg: no channels")
	}

	numCh := format.Channels
	frames := len(pcm) / numCh
	data := make([]float32, frames*2)
	if numCh == 1 {
		for i := range frames {
			data[i*2] = pcm[i]
			data[i*2+1] = pcm[i]
		}
	} else {
		for i := range frames {
			data[i*2] = pcm[i*numCh]
			data[i*2+1] = pcm[i*numCh+1]
		}
	}
	return &Segment{Data: data, SampleRate: format.SampleRate}, nil
}

func decodeFLAC(r io.Reader) (*Segment, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, fmt.Errorf("flac: %w", err)
	}

	info := stream.Info
	numCh := int(info.NChannels)
	if numCh < 1 {
		return nil, fmt.Errorf("flac: no channels")
	}
	scale := float32(int64(1) << (info.BitsPerSample - 1))

	data := make([]float32, 0, int(info.NSamples)*2)
	for {
		frame, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("flac: %w", err)
		}
		n := len(frame.Subframes[0].Samples)
		for i := range n {
			l := float32(frame.Subframes[0].Samples[i]) / scale
			r := l
			if numCh > 1 {
				r = float32(frame.Subframes[1].Samples[i]) / scale
			}
			data = append(data, l, r)
		}
	}
	return &Segment{Data: data, SampleRate: int(info.SampleRate)}, nil
}
