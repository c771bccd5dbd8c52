// Package config loads and saves the JSON settings file. A settings file
// is a partial overlay: only the fields present override the defaults, so
// a two-line file tweaking the pitch range is valid.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zeozeozeo/zcb3/render"
	"github.com/zeozeozeo/zcb3/replay"
)

// Config is the full settings snapshot: render parameters, timeline
// normalization options and the clickpack location.
type Config struct {
	Render render.Config
	Replay replay.Options

	// Clickpack is the pack directory. Relative paths in a settings file
	// resolve against the file's directory.
	Clickpack string
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Render: render.DefaultConfig(),
		Replay: replay.DefaultOptions(),
	}
}

// File is the JSON schema for settings files. Pointer fields distinguish
// "absent" from zero so partial files only override what they name.
type File struct {
	HardTiming    *float64 `json:"hard_timing"`
	RegularTiming *float64 `json:"regular_timing"`
	SoftTiming    *float64 `json:"soft_timing"`

	PitchFrom    *float64 `json:"pitch_from"`
	PitchTo      *float64 `json:"pitch_to"`
	PitchStep    *float64 `json:"pitch_step"`
	PitchEnabled *bool    `json:"pitch_enabled"`

	GlobalVolume    *float64 `json:"global_volume"`
	VolumeVariation *float64 `json:"volume_variation"`
	ChangeReleases  *bool    `json:"change_releases_volume"`

	SpamEnabled      *bool    `json:"spam_enabled"`
	SpamTime         *float64 `json:"spam_time"`
	SpamOffsetFactor *float64 `json:"spam_offset_factor"`
	SpamMaxOffset    *float64 `json:"spam_max_offset"`

	SampleRate   *int     `json:"sample_rate"`
	CutSounds    *bool    `json:"cut_sounds"`
	Noise        *bool    `json:"noise"`
	NoiseVolume  *float64 `json:"noise_volume"`
	Expr         *string  `json:"volume_expr"`
	ExprVariable *string  `json:"expr_variable"`
	ExprNegative *bool    `json:"expr_negative"`
	Normalize    *bool    `json:"normalize"`
	Workers      *int     `json:"workers"`
	Seed         *int64   `json:"seed"`

	OverrideFPS   *float64 `json:"override_fps"`
	SwapPlayers   *bool    `json:"swap_players"`
	DiscardDeaths *bool    `json:"discard_deaths"`
	SortActions   *bool    `json:"sort_actions"`

	Clickpack string `json:"clickpack"`
}

// Load reads a settings file and applies it on top of the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	if err := Apply(&cfg, &f); err != nil {
		return cfg, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}

	if cfg.Clickpack != "" && !filepath.IsAbs(cfg.Clickpack) {
		base := filepath.Dir(path)
		cfg.Clickpack = filepath.Clean(filepath.Join(base, cfg.Clickpack))
	}
	return cfg, nil
}

// Save writes the full snapshot so a saved file round-trips through Load.
func Save(path string, cfg Config) error {
	b, err := json.MarshalIndent(snapshot(cfg), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}

// Apply applies a parsed settings file onto an existing config.
func Apply(dst *Config, f *File) error {
	if dst == nil {
		return fmt.Errorf("nil destination config")
	}
	if f == nil {
		return nil
	}

	if f.HardTiming != nil {
		dst.Render.Timings.Hard = *f.HardTiming
	}
	if f.RegularTiming != nil {
		dst.Render.Timings.Regular = *f.RegularTiming
	}
	if f.SoftTiming != nil {
		dst.Render.Timings.Soft = *f.SoftTiming
	}
	t := dst.Render.Timings
	if t.Soft <= 0 || t.Regular <= t.Soft || t.Hard <= t.Regular {
		return fmt.Errorf("timings must satisfy hard > regular > soft > 0")
	}

	if f.PitchFrom != nil {
		if *f.PitchFrom <= 0 {
			return fmt.Errorf("pitch_from must be > 0")
		}
		dst.Render.Pitch.From = *f.PitchFrom
	}
	if f.PitchTo != nil {
		dst.Render.Pitch.To = *f.PitchTo
	}
	if f.PitchStep != nil {
		if *f.PitchStep <= 0 {
			return fmt.Errorf("pitch_step must be > 0")
		}
		dst.Render.Pitch.Step = *f.PitchStep
	}
	if f.PitchEnabled != nil {
		dst.Render.Pitch.Enabled = *f.PitchEnabled
	}
	if dst.Render.Pitch.To < dst.Render.Pitch.From {
		return fmt.Errorf("pitch_to must be >= pitch_from")
	}

	if f.GlobalVolume != nil {
		if *f.GlobalVolume < 0 {
			return fmt.Errorf("global_volume must be >= 0")
		}
		dst.Render.Volume.Global = *f.GlobalVolume
	}
	if f.VolumeVariation != nil {
		if *f.VolumeVariation < 0 {
			return fmt.Errorf("volume_variation must be >= 0")
		}
		dst.Render.Volume.Variation = *f.VolumeVariation
	}
	if f.ChangeReleases != nil {
		dst.Render.Volume.ChangeReleases = *f.ChangeReleases
	}

	if f.SpamEnabled != nil {
		dst.Render.Spam.Enabled = *f.SpamEnabled
	}
	if f.SpamTime != nil {
		if *f.SpamTime < 0 {
			return fmt.Errorf("spam_time must be >= 0")
		}
		dst.Render.Spam.Time = *f.SpamTime
	}
	if f.SpamOffsetFactor != nil {
		if *f.SpamOffsetFactor < 0 {
			return fmt.Errorf("spam_offset_factor must be >= 0")
		}
		dst.Render.Spam.OffsetFactor = *f.SpamOffsetFactor
	}
	if f.SpamMaxOffset != nil {
		if *f.SpamMaxOffset < 0 {
			return fmt.Errorf("spam_max_offset must be >= 0")
		}
		dst.Render.Spam.MaxOffset = *f.SpamMaxOffset
	}

	if f.SampleRate != nil {
		if *f.SampleRate <= 0 {
			return fmt.Errorf("sample_rate must be > 0")
		}
		dst.Render.SampleRate = *f.SampleRate
	}
	if f.CutSounds != nil {
		dst.Render.CutSounds = *f.CutSounds
	}
	if f.Noise != nil {
		dst.Render.Noise = *f.Noise
	}
	if f.NoiseVolume != nil {
		if *f.NoiseVolume < 0 {
			return fmt.Errorf("noise_volume must be >= 0")
		}
		dst.Render.NoiseVolume = *f.NoiseVolume
	}
	if f.Expr != nil {
		dst.Render.Expr = strings.TrimSpace(*f.Expr)
	}
	if f.ExprVariable != nil {
		v, ok := render.ParseExprVariable(*f.ExprVariable)
		if !ok {
			return fmt.Errorf("invalid expr_variable %q", *f.ExprVariable)
		}
		dst.Render.ExprVar = v
	}
	if f.ExprNegative != nil {
		dst.Render.ExprNegative = *f.ExprNegative
	}
	if f.Normalize != nil {
		dst.Render.Normalize = *f.Normalize
	}
	if f.Workers != nil {
		if *f.Workers < 0 {
			return fmt.Errorf("workers must be >= 0")
		}
		dst.Render.Workers = *f.Workers
	}
	if f.Seed != nil {
		dst.Render.Seed = *f.Seed
	}

	if f.OverrideFPS != nil {
		if *f.OverrideFPS < 0 {
			return fmt.Errorf("override_fps must be >= 0")
		}
		dst.Replay.OverrideFPS = *f.OverrideFPS
	}
	if f.SwapPlayers != nil {
		dst.Replay.SwapPlayers = *f.SwapPlayers
	}
	if f.DiscardDeaths != nil {
		dst.Replay.DiscardDeaths = *f.DiscardDeaths
	}
	if f.SortActions != nil {
		dst.Replay.SortActions = *f.SortActions
	}

	if f.Clickpack != "" {
		dst.Clickpack = strings.TrimSpace(f.Clickpack)
	}
	return nil
}

// snapshot fills every field of a File from a config.
func snapshot(cfg Config) *File {
	r := cfg.Render
	exprVar := r.ExprVar.String()
	return &File{
		HardTiming:    &r.Timings.Hard,
		RegularTiming: &r.Timings.Regular,
		SoftTiming:    &r.Timings.Soft,

		PitchFrom:    &r.Pitch.From,
		PitchTo:      &r.Pitch.To,
		PitchStep:    &r.Pitch.Step,
		PitchEnabled: &r.Pitch.Enabled,

		GlobalVolume:    &r.Volume.Global,
		VolumeVariation: &r.Volume.Variation,
		ChangeReleases:  &r.Volume.ChangeReleases,

		SpamEnabled:      &r.Spam.Enabled,
		SpamTime:         &r.Spam.Time,
		SpamOffsetFactor: &r.Spam.OffsetFactor,
		SpamMaxOffset:    &r.Spam.MaxOffset,

		SampleRate:   &r.SampleRate,
		CutSounds:    &r.CutSounds,
		Noise:        &r.Noise,
		NoiseVolume:  &r.NoiseVolume,
		Expr:         &r.Expr,
		ExprVariable: &exprVar,
		ExprNegative: &r.ExprNegative,
		Normalize:    &r.Normalize,
		Workers:      &r.Workers,
		Seed:         &r.Seed,

		OverrideFPS:   &cfg.Replay.OverrideFPS,
		SwapPlayers:   &cfg.Replay.SwapPlayers,
		DiscardDeaths: &cfg.Replay.DiscardDeaths,
		SortActions:   &cfg.Replay.SortActions,

		Clickpack: cfg.Clickpack,
	}
}
