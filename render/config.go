package render

import "github.com/zeozeozeo/zcb3/clickpack"

// Timings are the classification thresholds in seconds. They must satisfy
// Hard > Regular > Soft.
type Timings struct {
	Hard    float64
	Regular float64
	Soft    float64
}

// Pitch configures the random pitch multiplier drawn per click.
type Pitch struct {
	From    float64
	To      float64
	Step    float64
	Enabled bool
}

// active reports whether pitch variation does anything with these settings.
func (p Pitch) active() bool {
	return p.Enabled && p.Step > 0 && p.To > p.From
}

// Volume configures base volume and per-click jitter.
type Volume struct {
	Global    float64
	Variation float64
	// ChangeReleases applies jitter and spam dynamics to releases too.
	// When off, releases play at the base volume.
	ChangeReleases bool
}

// Spam configures the volume dampening applied during rapid input runs.
type Spam struct {
	Enabled bool
	// Time is the gap below which a run counts as spam, in seconds.
	Time float64
	// OffsetFactor scales how much the volume drops as gaps shrink.
	OffsetFactor float64
	// MaxOffset clamps the drop.
	MaxOffset float64
}

// ExprVariable selects which render variable a volume expression perturbs.
type ExprVariable uint8

const (
	ExprNone ExprVariable = iota
	ExprVariation
	ExprValue
	ExprTimeOffset
)

func (v ExprVariable) String() string {
	switch v {
	case ExprVariation:
		return "variation"
	case ExprValue:
		return "value"
	case ExprTimeOffset:
		return "time-offset"
	}
	return "none"
}

// ParseExprVariable maps the user-facing variable names onto ExprVariable.
func ParseExprVariable(s string) (ExprVariable, bool) {
	switch s {
	case "", "none":
		return ExprNone, true
	case "variation":
		return ExprVariation, true
	case "value":
		return ExprValue, true
	case "time-offset":
		return ExprTimeOffset, true
	}
	return ExprNone, false
}

// Config is the immutable parameter snapshot for one render job.
type Config struct {
	Timings Timings
	Pitch   Pitch
	Volume  Volume
	Spam    Spam

	// SampleRate of the output buffer.
	SampleRate int

	// CutSounds truncates the previous overlapping click of the same
	// player and category instead of summing into it.
	CutSounds bool

	// Noise overlays the pack's noise sample across the whole buffer.
	Noise       bool
	NoiseVolume float64

	// Expr is an optional volume expression evaluated per action; ExprVar
	// picks the variable its result perturbs.
	Expr    string
	ExprVar ExprVariable
	// ExprNegative permits negative jitter, doubling the variation range.
	ExprNegative bool

	// Normalize scales the final buffer so its peak hits full scale;
	// otherwise the buffer is hard-clipped into range.
	Normalize bool

	// Fallback overrides the category fallback tables. Nil entries use the
	// defaults.
	Fallback *clickpack.FallbackTable

	// Workers bounds the parallel mix fan-out. Values below 2 mix on the
	// calling goroutine.
	Workers int

	// Seed makes the render reproducible.
	Seed int64

	// Progress, when set, is invoked per prepared action.
	Progress func(done, total int)
	// Cancel, when set, is polled between actions; returning true aborts
	// the render with ErrCanceled.
	Cancel func() bool
}

// DefaultConfig returns the render defaults.
func DefaultConfig() Config {
	return Config{
		Timings: Timings{Hard: 2.0, Regular: 0.15, Soft: 0.025},
		Pitch:   Pitch{From: 0.98, To: 1.02, Step: 0.0005, Enabled: true},
		Volume:  Volume{Global: 1.0, Variation: 0.2},
		Spam: Spam{
			Enabled:      true,
			Time:         0.3,
			OffsetFactor: 0.9,
			MaxOffset:    0.3,
		},
		SampleRate:   44100,
		NoiseVolume:  1.0,
		ExprNegative: true,
		Normalize:    true,
	}
}
