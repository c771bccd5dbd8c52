package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/zeozeozeo/zcb3/render"
)

func TestLoadAppliesPartialOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")
	content := `{
  "pitch_from": 0.95,
  "pitch_to": 1.05,
  "global_volume": 0.8,
  "cut_sounds": true,
  "expr_variable": "value",
  "volume_expr": "p * 0.5",
  "clickpack": "packs/steel"
}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write settings: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Render.Pitch.From != 0.95 || cfg.Render.Pitch.To != 1.05 {
		t.Fatalf("pitch range mismatch: %+v", cfg.Render.Pitch)
	}
	if cfg.Render.Volume.Global != 0.8 || !cfg.Render.CutSounds {
		t.Fatalf("volume fields mismatch: %+v", cfg.Render)
	}
	if cfg.Render.ExprVar != render.ExprValue || cfg.Render.Expr != "p * 0.5" {
		t.Fatalf("expression fields mismatch: %+v", cfg.Render)
	}
	// untouched fields keep their defaults
	def := Default()
	if cfg.Render.Timings != def.Render.Timings {
		t.Fatalf("timings changed by unrelated overlay: %+v", cfg.Render.Timings)
	}
	if cfg.Render.Pitch.Step != def.Render.Pitch.Step {
		t.Fatalf("pitch step changed: %f", cfg.Render.Pitch.Step)
	}
	if !cfg.Replay.SortActions || !cfg.Replay.DiscardDeaths {
		t.Fatalf("normalizer defaults lost: %+v", cfg.Replay)
	}
	// relative clickpack resolves against the settings file
	if want := filepath.Join(dir, "packs", "steel"); cfg.Clickpack != want {
		t.Fatalf("clickpack path: got %q want %q", cfg.Clickpack, want)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")

	cfg := Default()
	cfg.Render.Seed = 99
	cfg.Render.Workers = 3
	cfg.Render.Noise = true
	cfg.Render.ExprVar = render.ExprTimeOffset
	cfg.Replay.OverrideFPS = 120
	cfg.Replay.SwapPlayers = true
	cfg.Clickpack = filepath.Join(dir, "pack")

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	a, b := got.Render, cfg.Render
	if a.Timings != b.Timings || a.Pitch != b.Pitch || a.Volume != b.Volume || a.Spam != b.Spam {
		t.Fatalf("render parameter mismatch:\n got %+v\nwant %+v", a, b)
	}
	if a.SampleRate != b.SampleRate || a.CutSounds != b.CutSounds ||
		a.Noise != b.Noise || a.NoiseVolume != b.NoiseVolume ||
		a.Expr != b.Expr || a.ExprVar != b.ExprVar || a.ExprNegative != b.ExprNegative ||
		a.Normalize != b.Normalize || a.Workers != b.Workers || a.Seed != b.Seed {
		t.Fatalf("render field mismatch:\n got %+v\nwant %+v", a, b)
	}
	if got.Replay != cfg.Replay {
		t.Fatalf("replay options mismatch: %+v", got.Replay)
	}
	if got.Clickpack != cfg.Clickpack {
		t.Fatalf("clickpack mismatch: %q", got.Clickpack)
	}
}

func TestApplyRejectsInvalidValues(t *testing.T) {
	bad := []struct {
		name string
		f    File
	}{
		{"negative volume", File{GlobalVolume: f64(-1)}},
		{"zero pitch step", File{PitchStep: f64(0)}},
		{"inverted pitch range", File{PitchFrom: f64(1.1), PitchTo: f64(0.9)}},
		{"inverted timings", File{HardTiming: f64(0.1)}},
		{"zero sample rate", File{SampleRate: i(0)}},
		{"negative workers", File{Workers: i(-1)}},
		{"unknown expr variable", File{ExprVariable: str("bogus")}},
		{"negative noise volume", File{NoiseVolume: f64(-0.1)}},
	}
	for _, tc := range bad {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			if err := Apply(&cfg, &tc.f); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for malformed json")
	}
}

func f64(v float64) *float64 { return &v }
func i(v int) *int           { return &v }
func str(v string) *string   { return &v }
