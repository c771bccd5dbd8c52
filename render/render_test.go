package render

import (
	"errors"
	"math"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/zeozeozeo/zcb3/audio"
	"github.com/zeozeozeo/zcb3/clickpack"
	"github.com/zeozeozeo/zcb3/replay"
)

func TestClassifySyntheticGaps(t *testing.T) {
	tm := Timings{Hard: 2.0, Regular: 0.15, Soft: 0.025}
	// presses at gaps: first, 2.5 (hard), 0.2 (regular), 0.05 (soft), 0.01 (micro)
	r := makeReplay(
		replay.Action{Player: replay.P1, Kind: replay.Press, Time: 0},
		replay.Action{Player: replay.P1, Kind: replay.Press, Time: 2.5},
		replay.Action{Player: replay.P1, Kind: replay.Press, Time: 2.7},
		replay.Action{Player: replay.P1, Kind: replay.Press, Time: 2.75},
		replay.Action{Player: replay.P1, Kind: replay.Press, Time: 2.76},
	)
	want := []clickpack.Category{
		clickpack.Click, // first of kind
		clickpack.Hardclick,
		clickpack.Click,
		clickpack.Softclick,
		clickpack.Microclick,
	}
	got := Classify(r, tm)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("action %d: got %v want %v", i, got[i], want[i])
		}
	}
}

func TestClassifySameKindOnly(t *testing.T) {
	tm := Timings{Hard: 2.0, Regular: 0.15, Soft: 0.025}
	// press at 0, release at 0.08: the release is first of its kind, so it
	// classifies regular even though only 0.08s passed since the press
	r := makeReplay(
		replay.Action{Player: replay.P1, Kind: replay.Press, Time: 0},
		replay.Action{Player: replay.P1, Kind: replay.Release, Time: 0.08},
	)
	got := Classify(r, tm)
	if got[1] != clickpack.Release {
		t.Fatalf("first-of-kind release: got %v want %v", got[1], clickpack.Release)
	}

	// with a prior release, the 0.08s release-to-release gap is soft
	r = makeReplay(
		replay.Action{Player: replay.P1, Kind: replay.Press, Time: 0},
		replay.Action{Player: replay.P1, Kind: replay.Release, Time: 0.5},
		replay.Action{Player: replay.P1, Kind: replay.Press, Time: 0.52},
		replay.Action{Player: replay.P1, Kind: replay.Release, Time: 0.58},
	)
	got = Classify(r, tm)
	if got[3] != clickpack.Softrelease {
		t.Fatalf("0.08s release gap: got %v want %v", got[3], clickpack.Softrelease)
	}
}

func TestClassifyPerPlayer(t *testing.T) {
	tm := Timings{Hard: 2.0, Regular: 0.15, Soft: 0.025}
	// interleaved players: each fold is independent
	r := makeReplay(
		replay.Action{Player: replay.P1, Kind: replay.Press, Time: 0},
		replay.Action{Player: replay.P2, Kind: replay.Press, Time: 0.01},
		replay.Action{Player: replay.P1, Kind: replay.Press, Time: 3.0},
		replay.Action{Player: replay.P2, Kind: replay.Press, Time: 3.01},
	)
	got := Classify(r, tm)
	want := []clickpack.Category{
		clickpack.Click, clickpack.Click,
		clickpack.Hardclick, clickpack.Hardclick,
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("action %d: got %v want %v", i, got[i], want[i])
		}
	}
}

func TestSpamOffsetMonotonicAndClamped(t *testing.T) {
	s := Spam{Enabled: true, Time: 0.3, OffsetFactor: 0.9, MaxOffset: 0.3}
	prev := math.Inf(1)
	for gap := 0.0; gap <= 0.4; gap += 0.01 {
		off := spamOffset(gap, s)
		if off < 0 {
			t.Fatalf("gap %f: negative offset %f", gap, off)
		}
		if off > s.MaxOffset {
			t.Fatalf("gap %f: offset %f exceeds clamp", gap, off)
		}
		if off > prev {
			t.Fatalf("gap %f: offset increased with gap (%f > %f)", gap, off, prev)
		}
		prev = off
	}
	if spamOffset(0.3, s) != 0 {
		t.Fatalf("offset at the spam window boundary should be 0")
	}
	if spamOffset(0.01, Spam{}) != 0 {
		t.Fatalf("disabled spam should yield 0")
	}
}

func TestDrawPitchQuantized(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	p := Pitch{From: 0.98, To: 1.02, Step: 0.0005, Enabled: true}
	for range 2000 {
		m := drawPitch(rng, p)
		if m < p.From-1e-9 || m > p.To+1e-9 {
			t.Fatalf("multiplier %f outside [%f, %f]", m, p.From, p.To)
		}
		steps := m / p.Step
		if math.Abs(steps-math.Round(steps)) > 1e-6 {
			t.Fatalf("multiplier %f is not a multiple of %f", m, p.Step)
		}
	}
}

func TestRenderBasic(t *testing.T) {
	pack := testPack(t, map[string]int{"clicks": 2, "releases": 1})
	r := makeReplay(
		replay.Action{Player: replay.P1, Kind: replay.Press, Time: 0},
		replay.Action{Player: replay.P1, Kind: replay.Release, Time: 0.5},
	)

	cfg := quietConfig()
	out, err := Render(r, pack, cfg)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out.SampleRate != cfg.SampleRate {
		t.Fatalf("output rate: %d", out.SampleRate)
	}
	if out.Peak() == 0 {
		t.Fatalf("rendered buffer is silent")
	}
	// the release's decay must fit: buffer extends past the last action
	if out.Duration() <= 0.5 {
		t.Fatalf("buffer truncates the final click: %f s", out.Duration())
	}
}

func TestRenderFallbackCategory(t *testing.T) {
	// hardclicks empty, clicks populated: a hard press renders via fallback
	pack := testPack(t, map[string]int{"clicks": 1})
	r := makeReplay(
		replay.Action{Player: replay.P1, Kind: replay.Press, Time: 0},
		replay.Action{Player: replay.P1, Kind: replay.Press, Time: 3.0}, // hard
	)
	if _, err := Render(r, pack, quietConfig()); err != nil {
		t.Fatalf("fallback render failed: %v", err)
	}
}

func TestRenderCrossFamilyFallback(t *testing.T) {
	// no release samples at all: releases borrow the click family
	pack := testPack(t, map[string]int{"clicks": 1})
	r := makeReplay(
		replay.Action{Player: replay.P1, Kind: replay.Press, Time: 0},
		replay.Action{Player: replay.P1, Kind: replay.Release, Time: 0.2},
	)
	if _, err := Render(r, pack, quietConfig()); err != nil {
		t.Fatalf("cross-family fallback failed: %v", err)
	}
}

func TestRenderErrors(t *testing.T) {
	pack := testPack(t, map[string]int{"clicks": 1})

	empty := &replay.Replay{}
	if _, err := Render(empty, pack, quietConfig()); err == nil {
		t.Fatalf("expected error for empty timeline")
	}

	r := makeReplay(replay.Action{Player: replay.P1, Kind: replay.Press, Time: 0})
	cfg := quietConfig()
	cfg.SampleRate = 0
	if _, err := Render(r, pack, cfg); err == nil {
		t.Fatalf("expected error for zero sample rate")
	}
}

func TestRenderDeterministicSeeds(t *testing.T) {
	pack := testPack(t, map[string]int{"clicks": 3, "releases": 2})
	r := spamReplay(40, 0.05)

	cfg := DefaultConfig()
	cfg.Seed = 42
	a, err := Render(r, pack, cfg)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	b, err := Render(r, pack, cfg)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(a.Data) != len(b.Data) {
		t.Fatalf("length mismatch: %d vs %d", len(a.Data), len(b.Data))
	}
	for i := range a.Data {
		if a.Data[i] != b.Data[i] {
			t.Fatalf("sample %d differs under equal seeds", i)
		}
	}

	cfg.Seed = 43
	c, err := Render(r, pack, cfg)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	same := len(a.Data) == len(c.Data)
	if same {
		for i := range a.Data {
			if a.Data[i] != c.Data[i] {
				same = false
				break
			}
		}
	}
	if same {
		t.Fatalf("different seeds produced identical buffers")
	}
}

func TestRenderParallelMatchesSequential(t *testing.T) {
	pack := testPack(t, map[string]int{"clicks": 2, "releases": 2})
	r := spamReplay(120, 0.02)

	cfg := quietConfig()
	cfg.Seed = 7
	seq, err := Render(r, pack, cfg)
	if err != nil {
		t.Fatalf("sequential render: %v", err)
	}

	cfg.Workers = 4
	par, err := Render(r, pack, cfg)
	if err != nil {
		t.Fatalf("parallel render: %v", err)
	}

	if len(seq.Data) != len(par.Data) {
		t.Fatalf("length mismatch: %d vs %d", len(seq.Data), len(par.Data))
	}
	for i := range seq.Data {
		if math.Abs(float64(seq.Data[i]-par.Data[i])) > 1e-5 {
			t.Fatalf("sample %d: sequential %f parallel %f", i, seq.Data[i], par.Data[i])
		}
	}
}

func TestRenderCutSounds(t *testing.T) {
	// one long constant-amplitude click; two regular presses 0.2s apart so
	// both land in the same category lane and the sample spans the gap
	pack := testPackFrames(t, map[string]int{"clicks": 1}, 12000)
	r := makeReplay(
		replay.Action{Player: replay.P1, Kind: replay.Press, Time: 0},
		replay.Action{Player: replay.P1, Kind: replay.Press, Time: 0.2},
	)

	cfg := quietConfig()
	cfg.CutSounds = true
	out, err := Render(r, pack, cfg)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	// after the second press's start the first sample's tail is cut, so
	// the amplitude stays at one sample's worth instead of doubling
	cut := int(math.Round(0.2 * float64(cfg.SampleRate)))
	head := float64(out.Data[(cut-10)*2])
	tail := float64(out.Data[(cut+10)*2])
	if math.Abs(head-sampleAmplitude) > 1e-3 {
		t.Fatalf("head amplitude: got %f want %f", head, sampleAmplitude)
	}
	if math.Abs(tail-sampleAmplitude) > 1e-3 {
		t.Fatalf("cut region amplitude: got %f want %f (tail not truncated?)", tail, sampleAmplitude)
	}

	// the same render without cutting sums to double amplitude
	cfg.CutSounds = false
	summed, err := Render(r, pack, cfg)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got := float64(summed.Data[(cut+10)*2]); math.Abs(got-2*sampleAmplitude) > 1e-3 {
		t.Fatalf("summed amplitude: got %f want %f", got, 2*sampleAmplitude)
	}
}

func TestRenderCutSoundsKeepsOtherCategories(t *testing.T) {
	// truncation lanes are per (player, category): a micro press landing on
	// a soft click's tail must sum with it, not cut it
	pack := testPack(t, map[string]int{"clicks": 1, "softclicks": 1, "microclicks": 1})
	r := makeReplay(
		replay.Action{Player: replay.P1, Kind: replay.Press, Time: 0},    // first of kind
		replay.Action{Player: replay.P1, Kind: replay.Press, Time: 0.05}, // soft
		replay.Action{Player: replay.P1, Kind: replay.Press, Time: 0.06}, // micro
	)

	cfg := quietConfig()
	cfg.CutSounds = true
	out, err := Render(r, pack, cfg)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	at := int(math.Round(0.06*float64(cfg.SampleRate))) + 10
	if got := float64(out.Data[at*2]); math.Abs(got-2*sampleAmplitude) > 1e-3 {
		t.Fatalf("overlap amplitude: got %f want %f (tail cut across categories?)", got, 2*sampleAmplitude)
	}
}

func TestRenderNormalize(t *testing.T) {
	pack := testPack(t, map[string]int{"clicks": 1})
	r := makeReplay(replay.Action{Player: replay.P1, Kind: replay.Press, Time: 0})

	cfg := quietConfig()
	cfg.Normalize = true
	out, err := Render(r, pack, cfg)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if math.Abs(out.Peak()-1.0) > 1e-6 {
		t.Fatalf("normalized peak: %f", out.Peak())
	}
}

func TestRenderNoiseOverlay(t *testing.T) {
	pack := testPackWithNoise(t)
	r := makeReplay(replay.Action{Player: replay.P1, Kind: replay.Press, Time: 1.0})

	cfg := quietConfig()
	cfg.Noise = true
	cfg.NoiseVolume = 1.0
	out, err := Render(r, pack, cfg)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	// silence before the click is filled by the looped noise floor
	if out.Data[100] == 0 {
		t.Fatalf("noise overlay missing before the first click")
	}

	cfg.Noise = false
	quiet, err := Render(r, pack, cfg)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if quiet.Data[100] != 0 {
		t.Fatalf("noise rendered while disabled")
	}
}

func TestRenderExpressionValue(t *testing.T) {
	pack := testPack(t, map[string]int{"clicks": 1})
	r := makeReplay(replay.Action{Player: replay.P1, Kind: replay.Press, Time: 0})

	cfg := quietConfig()
	cfg.Expr = "0.5"
	cfg.ExprVar = ExprValue
	out, err := Render(r, pack, cfg)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := sampleAmplitude * 1.5
	if got := out.Peak(); math.Abs(got-want) > 1e-3 {
		t.Fatalf("expression volume: got %f want %f", got, want)
	}
}

func TestRenderExpressionTimeOffset(t *testing.T) {
	pack := testPack(t, map[string]int{"clicks": 1})
	r := makeReplay(replay.Action{Player: replay.P1, Kind: replay.Press, Time: 0})

	cfg := quietConfig()
	cfg.Expr = "0.5"
	cfg.ExprVar = ExprTimeOffset
	out, err := Render(r, pack, cfg)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	shift := int(math.Round(0.5 * float64(cfg.SampleRate)))
	if out.Data[0] != 0 {
		t.Fatalf("click rendered at t=0 despite time offset")
	}
	if out.Data[(shift+10)*2] == 0 {
		t.Fatalf("click missing at the offset position")
	}
}

func TestRenderExpressionVariables(t *testing.T) {
	pack := testPack(t, map[string]int{"clicks": 1})
	r := makeReplay(
		replay.Action{Player: replay.P1, Kind: replay.Press, Time: 0},
		replay.Action{Player: replay.P1, Kind: replay.Press, Time: 1.0},
	)
	r.FPS = 60
	r.Extended[1].Frame = 60

	// "p" is 0 for the first action and 1 for the last
	cfg := quietConfig()
	cfg.Expr = "p * 0.5"
	cfg.ExprVar = ExprValue
	if _, err := Render(r, pack, cfg); err != nil {
		t.Fatalf("render with variables: %v", err)
	}
}

func TestRenderExpressionCompileError(t *testing.T) {
	pack := testPack(t, map[string]int{"clicks": 1})
	r := makeReplay(replay.Action{Player: replay.P1, Kind: replay.Press, Time: 0})

	cfg := quietConfig()
	cfg.Expr = "((("
	cfg.ExprVar = ExprValue
	_, err := Render(r, pack, cfg)
	var re *Error
	if !errors.As(err, &re) || re.Stage != "expression" {
		t.Fatalf("expected expression-stage error, got %v", err)
	}
}

func TestRenderCancel(t *testing.T) {
	pack := testPack(t, map[string]int{"clicks": 1})
	r := spamReplay(10, 0.1)

	cfg := quietConfig()
	calls := 0
	cfg.Cancel = func() bool {
		calls++
		return calls > 3
	}
	_, err := Render(r, pack, cfg)
	if !errors.Is(err, ErrCanceled) {
		t.Fatalf("expected ErrCanceled, got %v", err)
	}
}

func TestRenderProgress(t *testing.T) {
	pack := testPack(t, map[string]int{"clicks": 1})
	r := spamReplay(8, 0.1)

	cfg := quietConfig()
	var done int
	cfg.Progress = func(d, total int) {
		done = d
		if total != 8 {
			t.Fatalf("total: got %d want 8", total)
		}
	}
	if _, err := Render(r, pack, cfg); err != nil {
		t.Fatalf("render: %v", err)
	}
	if done != 8 {
		t.Fatalf("progress stopped at %d", done)
	}
}

func TestParseExprVariable(t *testing.T) {
	cases := map[string]ExprVariable{
		"":            ExprNone,
		"none":        ExprNone,
		"variation":   ExprVariation,
		"value":       ExprValue,
		"time-offset": ExprTimeOffset,
	}
	for s, want := range cases {
		got, ok := ParseExprVariable(s)
		if !ok || got != want {
			t.Fatalf("%q: got %v ok=%v", s, got, ok)
		}
	}
	if _, ok := ParseExprVariable("bogus"); ok {
		t.Fatalf("bogus variable accepted")
	}
}

const sampleAmplitude = 0.5

// quietConfig disables every random element so amplitudes are exact.
func quietConfig() Config {
	cfg := DefaultConfig()
	cfg.Pitch.Enabled = false
	cfg.Volume.Variation = 0
	cfg.Spam.Enabled = false
	cfg.Normalize = false
	cfg.Seed = 1
	return cfg
}

// makeReplay builds a normalized replay straight from actions.
func makeReplay(actions ...replay.Action) *replay.Replay {
	r := &replay.Replay{Actions: actions}
	r.Extended = make([]replay.ExtendedAction, len(actions))
	for i, a := range actions {
		r.Extended[i] = replay.ExtendedAction{
			Down:    a.Kind == replay.Press,
			Player2: a.Player == replay.P2,
		}
	}
	if len(actions) > 0 {
		r.Duration = actions[len(actions)-1].Time
	}
	return r
}

// spamReplay alternates presses and releases at a fixed gap.
func spamReplay(n int, gap float64) *replay.Replay {
	actions := make([]replay.Action, n)
	for i := range actions {
		kind := replay.Press
		if i%2 == 1 {
			kind = replay.Release
		}
		actions[i] = replay.Action{Player: replay.P1, Kind: kind, Time: float64(i) * gap}
	}
	return makeReplay(actions...)
}

// testPack loads a pack from generated constant-amplitude WAV samples.
// Counts map category directory names to the number of samples.
func testPack(t *testing.T, counts map[string]int) *clickpack.Pack {
	t.Helper()
	return testPackFrames(t, counts, 2000)
}

func testPackFrames(t *testing.T, counts map[string]int, frames int) *clickpack.Pack {
	t.Helper()
	dir := t.TempDir()
	for sub, n := range counts {
		for i := range n {
			writeTestWAV(t, filepath.Join(dir, sub, name(i)), 44100, frames)
		}
	}
	pack, err := clickpack.Load(dir, clickpack.Options{})
	if err != nil {
		t.Fatalf("load pack: %v", err)
	}
	return pack
}

func testPackWithNoise(t *testing.T) *clickpack.Pack {
	t.Helper()
	dir := t.TempDir()
	writeTestWAV(t, filepath.Join(dir, "clicks", "a.wav"), 44100, 2000)
	writeTestWAV(t, filepath.Join(dir, "noise.wav"), 44100, 4410)
	pack, err := clickpack.Load(dir, clickpack.Options{})
	if err != nil {
		t.Fatalf("load pack: %v", err)
	}
	return pack
}

func name(i int) string {
	return string(rune('a'+i)) + ".wav"
}

func writeTestWAV(t *testing.T, path string, rate, frames int) {
	t.Helper()
	data := make([]float32, frames*2)
	for i := range data {
		data[i] = sampleAmplitude
	}
	if err := audio.WriteWAV(path, audio.NewSegment(rate, data)); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
