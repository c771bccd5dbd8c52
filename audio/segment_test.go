package audio

import (
	"math"
	"path/filepath"
	"testing"

	dspcore "github.com/cwbudde/algo-dsp/dsp/core"
	"github.com/cwbudde/algo-dsp/dsp/signal"
	algofft "github.com/cwbudde/algo-fft"
)

func TestSilentSegment(t *testing.T) {
	s := Silent(44100, 1.5)
	if got, want := s.Frames(), 66150; got != want {
		t.Fatalf("unexpected frame count: got=%d want=%d", got, want)
	}
	if math.Abs(s.Duration()-1.5) > 1e-9 {
		t.Fatalf("unexpected duration: %f", s.Duration())
	}
	if s.Peak() != 0 {
		t.Fatalf("silent segment has nonzero peak: %f", s.Peak())
	}
}

func TestOverlayAtSums(t *testing.T) {
	dst := Silent(100, 0.1) // 10 frames
	src := NewSegment(100, []float32{1, 1, 1, 1})

	dst.OverlayAt(src, 2, 0.5)
	dst.OverlayAt(src, 3, 0.5)

	want := []float32{0, 0, 0.5, 1.0, 0.5, 0}
	for i, w := range want {
		if got := dst.Data[i*2]; math.Abs(float64(got-w)) > 1e-6 {
			t.Fatalf("frame %d: got=%f want=%f", i, got, w)
		}
	}
}

func TestOverlayAtClipsAtEnd(t *testing.T) {
	dst := Silent(100, 0.03) // 3 frames
	src := NewSegment(100, []float32{1, 1, 1, 1, 1, 1, 1, 1, 1, 1})

	dst.OverlayAt(src, 1, 1.0)
	if got := dst.Data[2*2]; got != 1 {
		t.Fatalf("expected last frame written, got %f", got)
	}
	// no panic and nothing lost: writing entirely past the end is a no-op
	dst.OverlayAt(src, 10, 1.0)
}

func TestCancelTailRemovesContribution(t *testing.T) {
	dst := Silent(100, 0.1)
	src := NewSegment(100, []float32{0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5})

	dst.OverlayAt(src, 1, 1.0)
	dst.CancelTail(src, 1, 1.0, 3)

	// frames 1-2 keep the sample, frames 3-4 are back to silence
	if got := dst.Data[2*2]; math.Abs(float64(got)-0.5) > 1e-6 {
		t.Fatalf("head frame altered: %f", got)
	}
	for i := 3; i < 5; i++ {
		if got := dst.Data[i*2]; math.Abs(float64(got)) > 1e-6 {
			t.Fatalf("tail frame %d not canceled: %f", i, got)
		}
	}
}

func TestNormalize(t *testing.T) {
	s := NewSegment(100, []float32{0.1, -0.1, 0.25, 0.2, -0.5, 0.3})
	s.Normalize()
	if math.Abs(s.Peak()-1.0) > 1e-6 {
		t.Fatalf("peak after normalize: %f", s.Peak())
	}

	// idempotent
	before := append([]float32(nil), s.Data...)
	s.Normalize()
	for i := range before {
		if s.Data[i] != before[i] {
			t.Fatalf("normalize not idempotent at %d", i)
		}
	}

	// silent buffers stay silent
	z := Silent(100, 0.01)
	z.Normalize()
	if z.Peak() != 0 {
		t.Fatalf("normalize altered a silent buffer")
	}
}

func TestClamp(t *testing.T) {
	s := NewSegment(100, []float32{1.7, -2.5, 0.5, -0.25})
	s.Clamp()
	want := []float32{1, -1, 0.5, -0.25}
	for i, w := range want {
		if s.Data[i] != w {
			t.Fatalf("sample %d: got=%f want=%f", i, s.Data[i], w)
		}
	}
}

func TestResampledLength(t *testing.T) {
	cases := []struct {
		from, to int
	}{
		{44100, 48000},
		{48000, 44100},
		{44100, 22050},
	}
	for _, tc := range cases {
		s := sineSegment(t, tc.from, 440, 0.25)
		out, err := s.Resampled(tc.to)
		if err != nil {
			t.Fatalf("resample %d->%d: %v", tc.from, tc.to, err)
		}
		if out.SampleRate != tc.to {
			t.Fatalf("wrong output rate: %d", out.SampleRate)
		}
		want := float64(s.Frames()) * float64(tc.to) / float64(tc.from)
		if math.Abs(float64(out.Frames())-want) > 64 {
			t.Fatalf("resample %d->%d frames: got=%d want=%.0f", tc.from, tc.to, out.Frames(), want)
		}
	}
}

func TestResampledIdentity(t *testing.T) {
	s := sineSegment(t, 44100, 440, 0.1)
	out, err := s.Resampled(44100)
	if err != nil {
		t.Fatalf("resample: %v", err)
	}
	if out != s {
		t.Fatalf("expected the same segment back for equal rates")
	}
}

func TestPitchedCacheReuse(t *testing.T) {
	s := sineSegment(t, 44100, 440, 0.25)

	a, err := s.Pitched(1.05)
	if err != nil {
		t.Fatalf("pitch: %v", err)
	}
	b, err := s.Pitched(1.05)
	if err != nil {
		t.Fatalf("pitch: %v", err)
	}
	if a != b {
		t.Fatalf("expected cached variant for repeated multiplier")
	}

	same, err := s.Pitched(1.0)
	if err != nil {
		t.Fatalf("pitch: %v", err)
	}
	if same != s {
		t.Fatalf("multiplier 1 should return the receiver")
	}
}

func TestPitchedShiftsSpectrum(t *testing.T) {
	cases := []struct {
		mult float64
	}{
		{1.25},
		{0.8},
	}
	for _, tc := range cases {
		s := sineSegment(t, 44100, 440, 0.5)
		p, err := s.Pitched(tc.mult)
		if err != nil {
			t.Fatalf("pitch %f: %v", tc.mult, err)
		}

		want := 440 * tc.mult
		got := dominantFrequency(t, p)
		if math.Abs(got-want) > 15 {
			t.Fatalf("pitch %f: dominant frequency got=%.1f want=%.1f", tc.mult, got, want)
		}

		wantFrames := float64(s.Frames()) / tc.mult
		if math.Abs(float64(p.Frames())-wantFrames) > 64 {
			t.Fatalf("pitch %f: frames got=%d want=%.0f", tc.mult, p.Frames(), wantFrames)
		}
	}
}

func TestWriteWAVRoundTrip(t *testing.T) {
	s := sineSegment(t, 44100, 440, 0.1)
	path := filepath.Join(t.TempDir(), "out.wav")
	if err := WriteWAV(path, s); err != nil {
		t.Fatalf("write: %v", err)
	}

	back, err := DecodeFile(path)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if back.SampleRate != 44100 {
		t.Fatalf("round-trip sample rate: %d", back.SampleRate)
	}
	if back.Frames() != s.Frames() {
		t.Fatalf("round-trip frames: got=%d want=%d", back.Frames(), s.Frames())
	}
	for i := range s.Data {
		if math.Abs(float64(back.Data[i]-s.Data[i])) > 1e-3 {
			t.Fatalf("sample %d drifted: got=%f want=%f", i, back.Data[i], s.Data[i])
		}
	}
}

func TestDecodeUnknownExtension(t *testing.T) {
	if _, err := DecodeFile(filepath.Join(t.TempDir(), "sample.xyz")); err == nil {
		t.Fatalf("expected error for unknown extension")
	}
}

// sineSegment builds a stereo test tone with the deterministic generator.
func sineSegment(t *testing.T, sampleRate int, freq, seconds float64) *Segment {
	t.Helper()
	g := signal.NewGenerator(dspcore.WithSampleRate(float64(sampleRate)))
	mono, err := g.Sine(freq, 0.5, int(seconds*float64(sampleRate)))
	if err != nil {
		t.Fatalf("sine: %v", err)
	}
	data := make([]float32, len(mono)*2)
	for i, v := range mono {
		data[i*2] = float32(v)
		data[i*2+1] = float32(v)
	}
	return NewSegment(sampleRate, data)
}

// dominantFrequency returns the frequency of the strongest FFT bin.
func dominantFrequency(t *testing.T, s *Segment) float64 {
	t.Helper()
	const fftSize = 8192
	mono := s.Mono()
	if len(mono) < fftSize {
		t.Fatalf("segment too short for fft: %d frames", len(mono))
	}

	in := make([]complex128, fftSize)
	for i := range fftSize {
		// Hann window against spectral leakage.
		w := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(fftSize-1)))
		in[i] = complex(mono[i]*w, 0)
	}

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		t.Fatalf("fft plan: %v", err)
	}
	out := make([]complex128, fftSize)
	if err := plan.Forward(out, in); err != nil {
		t.Fatalf("fft: %v", err)
	}

	best, bestMag := 0, 0.0
	for i := 1; i < fftSize/2; i++ {
		if m := cmplxAbs(out[i]); m > bestMag {
			best, bestMag = i, m
		}
	}
	return float64(best) * float64(s.SampleRate) / fftSize
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}
