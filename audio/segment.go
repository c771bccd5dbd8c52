// Package audio holds decoded PCM segments and the mixing primitives used
// by the render engine: resampling, pitch shifting with a cached variant
// table, additive overlay, and peak normalization.
package audio

import (
	"fmt"
	"math"
	"sync"

	dspcore "github.com/cwbudde/algo-dsp/dsp/core"
	dspresample "github.com/cwbudde/algo-dsp/dsp/resample"
)

// Segment is a decoded audio clip: interleaved stereo float32 samples at a
// fixed sample rate. Segments are the unit the clickpack hands to the
// renderer and the buffer the renderer mixes into.
type Segment struct {
	// Data is interleaved stereo (L, R, L, R, ...), normalized to [-1, 1].
	Data       []float32
	SampleRate int

	mu    sync.Mutex
	pitch map[int]*Segment // quantized multiplier -> resampled variant
}

// NewSegment wraps interleaved stereo data in a segment.
func NewSegment(sampleRate int, data []float32) *Segment {
	return &Segment{Data: data, SampleRate: sampleRate}
}

// Silent creates an all-zero segment spanning the given duration.
func Silent(sampleRate int, seconds float64) *Segment {
	frames := int(math.Ceil(seconds * float64(sampleRate)))
	if frames < 0 {
		frames = 0
	}
	return &Segment{
		Data:       make([]float32, frames*2),
		SampleRate: sampleRate,
	}
}

// Frames returns the number of stereo frames.
func (s *Segment) Frames() int {
	return len(s.Data) / 2
}

// Duration returns the segment length in seconds.
func (s *Segment) Duration() float64 {
	if s.SampleRate <= 0 {
		return 0
	}
	return float64(s.Frames()) / float64(s.SampleRate)
}

// Mono mixes both channels down to a single float64 signal.
func (s *Segment) Mono() []float64 {
	frames := s.Frames()
	out := make([]float64, frames)
	for i := range frames {
		out[i] = 0.5 * (float64(s.Data[i*2]) + float64(s.Data[i*2+1]))
	}
	return out
}

// RMS returns the root-mean-square level across both channels.
func (s *Segment) RMS() float64 {
	if len(s.Data) == 0 {
		return 0
	}
	var sum float64
	for _, v := range s.Data {
		f := float64(v)
		sum += f * f
	}
	return math.Sqrt(sum / float64(len(s.Data)))
}

// Peak returns the largest absolute sample value.
func (s *Segment) Peak() float64 {
	var peak float64
	for _, v := range s.Data {
		if a := math.Abs(float64(v)); a > peak {
			peak = a
		}
	}
	return peak
}

// Resampled converts the segment to a new sample rate. The receiver is
// returned unchanged when the rates already match.
func (s *Segment) Resampled(toRate int) (*Segment, error) {
	if toRate <= 0 {
		return nil, fmt.Errorf("invalid target sample rate: %d", toRate)
	}
	if s.SampleRate == toRate {
		return s, nil
	}
	data, err := resampleStereo(s.Data, float64(s.SampleRate), float64(toRate))
	if err != nil {
		return nil, err
	}
	return &Segment{Data: data, SampleRate: toRate}, nil
}

// Pitched returns a variant of the segment shifted by the given pitch
// multiplier (>1 is higher and shorter). Variants are cached per quantized
// multiplier so repeated draws of the same pitch reuse one resampled copy.
// A multiplier of 1 returns the receiver.
func (s *Segment) Pitched(mult float64) (*Segment, error) {
	if mult <= 0 {
		return nil, fmt.Errorf("invalid pitch multiplier: %f", mult)
	}
	key := pitchKey(mult)
	if key == pitchKey(1.0) {
		return s, nil
	}

	s.mu.Lock()
	if v, ok := s.pitch[key]; ok {
		s.mu.Unlock()
		return v, nil
	}
	s.mu.Unlock()

	// Resampling from rate*mult back to rate shortens the clip by 1/mult;
	// played at the original rate that raises the pitch by mult.
	data, err := resampleStereo(s.Data, float64(s.SampleRate)*mult, float64(s.SampleRate))
	if err != nil {
		return nil, err
	}
	v := &Segment{Data: data, SampleRate: s.SampleRate}

	s.mu.Lock()
	if s.pitch == nil {
		s.pitch = make(map[int]*Segment)
	}
	s.pitch[key] = v
	s.mu.Unlock()
	return v, nil
}

// OverlayAt mixes src into the segment starting at startFrame, scaled by
// vol. Writes past either end are clipped.
func (s *Segment) OverlayAt(src *Segment, startFrame int, vol float64) {
	s.mixAt(src, startFrame, vol, 0)
}

// OverlayAtUpTo mixes src into the segment starting at startFrame but
// stops before frame limit. The parallel mixer uses it to confine each
// worker's writes to its own buffer window.
func (s *Segment) OverlayAtUpTo(src *Segment, startFrame int, vol float64, limit int) {
	s.mixBounded(src, startFrame, vol, 0, limit)
}

// CancelTail subtracts src's contribution from frame `from` onward, undoing
// the tail of an earlier OverlayAt(src, startFrame, vol). The cut-sounds
// write mode uses this to truncate the previous click when a new one lands
// on top of it.
func (s *Segment) CancelTail(src *Segment, startFrame int, vol float64, from int) {
	skip := from - startFrame
	if skip < 0 {
		skip = 0
	}
	s.mixAt(src, startFrame+skip, -vol, skip)
}

// mixAt adds src frames (starting at src frame `skip`) into the buffer at
// dstFrame, scaled by vol.
func (s *Segment) mixAt(src *Segment, dstFrame int, vol float64, skip int) {
	s.mixBounded(src, dstFrame, vol, skip, s.Frames())
}

func (s *Segment) mixBounded(src *Segment, dstFrame int, vol float64, skip, limit int) {
	if src == nil || vol == 0 {
		return
	}
	if max := s.Frames(); limit > max {
		limit = max
	}
	srcFrames := src.Frames()
	for i := skip; i < srcFrames; i++ {
		j := dstFrame + i - skip
		if j < 0 {
			continue
		}
		if j >= limit {
			break
		}
		s.Data[j*2] += src.Data[i*2] * float32(vol)
		s.Data[j*2+1] += src.Data[i*2+1] * float32(vol)
	}
}

// Normalize scales the buffer so the peak absolute value lands at 1.0.
// Silent buffers are left untouched.
func (s *Segment) Normalize() {
	peak := s.Peak()
	if peak == 0 {
		return
	}
	gain := float32(1.0 / peak)
	for i := range s.Data {
		s.Data[i] *= gain
	}
}

// Clamp hard-limits every sample into [-1, 1].
func (s *Segment) Clamp() {
	for i, v := range s.Data {
		s.Data[i] = float32(dspcore.Clamp(float64(v), -1, 1))
	}
}

func pitchKey(mult float64) int {
	return int(math.Round(mult * 1e6))
}

func resampleStereo(data []float32, fromRate, toRate float64) ([]float32, error) {
	frames := len(data) / 2
	left := make([]float64, frames)
	right := make([]float64, frames)
	for i := range frames {
		left[i] = float64(data[i*2])
		right[i] = float64(data[i*2+1])
	}

	left, err := resampleChannel(left, fromRate, toRate)
	if err != nil {
		return nil, err
	}
	right, err = resampleChannel(right, fromRate, toRate)
	if err != nil {
		return nil, err
	}

	n := len(left)
	if len(right) < n {
		n = len(right)
	}
	out := make([]float32, n*2)
	for i := range n {
		out[i*2] = float32(left[i])
		out[i*2+1] = float32(right[i])
	}
	return out, nil
}

func resampleChannel(in []float64, fromRate, toRate float64) ([]float64, error) {
	r, err := dspresample.NewForRates(
		fromRate,
		toRate,
		dspresample.WithQuality(dspresample.QualityBest),
	)
	if err != nil {
		return nil, err
	}
	return r.Process(in), nil
}
