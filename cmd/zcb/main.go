package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/zeozeozeo/zcb3/audio"
	"github.com/zeozeozeo/zcb3/clickpack"
	"github.com/zeozeozeo/zcb3/config"
	"github.com/zeozeozeo/zcb3/render"
	"github.com/zeozeozeo/zcb3/replay"
)

func main() {
	// Command-line flags
	replayPath := flag.String("replay", "", "Replay file path (required)")
	packDir := flag.String("clickpack", "", "Clickpack directory")
	output := flag.String("output", "output.wav", "Output WAV file path")
	configPath := flag.String("config", "", "Settings JSON file path (optional)")
	formatName := flag.String("format", "", "Replay format name, overrides sniffing (e.g. \"gdr2\", \"plain text\")")
	dumpText := flag.Bool("dump-text", false, "Also write the plain-text form of the timeline next to the output")

	sampleRate := flag.Int("sample-rate", 44100, "Output sample rate in Hz")
	hardTiming := flag.Float64("hard-timing", 2.0, "Gap above which a click counts as hard, in seconds")
	regularTiming := flag.Float64("regular-timing", 0.15, "Gap above which a click counts as regular, in seconds")
	softTiming := flag.Float64("soft-timing", 0.025, "Gap above which a click counts as soft, in seconds")

	pitchEnabled := flag.Bool("pitch", true, "Randomize pitch per click")
	pitchFrom := flag.Float64("pitch-from", 0.98, "Lowest pitch multiplier")
	pitchTo := flag.Float64("pitch-to", 1.02, "Highest pitch multiplier")
	pitchStep := flag.Float64("pitch-step", 0.0005, "Pitch quantization step")

	volume := flag.Float64("volume", 1.0, "Base click volume")
	volumeVar := flag.Float64("volume-variation", 0.2, "Random per-click volume jitter")
	changeReleases := flag.Bool("change-releases-volume", false, "Apply volume dynamics to releases too")

	spamEnabled := flag.Bool("spam", true, "Dampen volume during rapid input runs")
	spamTime := flag.Float64("spam-time", 0.3, "Gap below which a run counts as spam, in seconds")
	spamOffsetFactor := flag.Float64("spam-offset-factor", 0.9, "How much volume drops as spam gaps shrink")
	spamMaxOffset := flag.Float64("spam-max-offset", 0.3, "Largest spam volume drop")

	cutSounds := flag.Bool("cut-sounds", false, "Truncate overlapping clicks instead of summing them")
	noise := flag.Bool("noise", false, "Overlay the pack's noise sample across the whole output")
	noiseVolume := flag.Float64("noise-volume", 1.0, "Noise overlay volume")
	exprSrc := flag.String("expr", "", "Volume expression evaluated per action")
	exprVar := flag.String("expr-var", "", "Variable the expression perturbs: variation, value or time-offset")
	exprNegative := flag.Bool("expr-negative", true, "Permit negative volume jitter")
	normalize := flag.Bool("normalize", true, "Scale the output so its peak hits full scale (otherwise hard-clip)")
	workers := flag.Int("workers", 0, "Parallel mix workers (0 or 1 mixes on one goroutine)")
	seed := flag.Int64("seed", 0, "Random seed; equal seeds reproduce the render")

	overrideFPS := flag.Float64("override-fps", 0, "Replace the FPS declared by frame-based replays (0 keeps the file's)")
	swapPlayers := flag.Bool("swap-players", false, "Exchange the two players")
	discardDeaths := flag.Bool("discard-deaths", true, "Drop actions at or after the final recorded death")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fatalf("Error loading settings %q: %v", *configPath, err)
		}
	}

	// Flags the user actually passed override the settings file.
	overlay := &config.File{}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "sample-rate":
			overlay.SampleRate = sampleRate
		case "hard-timing":
			overlay.HardTiming = hardTiming
		case "regular-timing":
			overlay.RegularTiming = regularTiming
		case "soft-timing":
			overlay.SoftTiming = softTiming
		case "pitch":
			overlay.PitchEnabled = pitchEnabled
		case "pitch-from":
			overlay.PitchFrom = pitchFrom
		case "pitch-to":
			overlay.PitchTo = pitchTo
		case "pitch-step":
			overlay.PitchStep = pitchStep
		case "volume":
			overlay.GlobalVolume = volume
		case "volume-variation":
			overlay.VolumeVariation = volumeVar
		case "change-releases-volume":
			overlay.ChangeReleases = changeReleases
		case "spam":
			overlay.SpamEnabled = spamEnabled
		case "spam-time":
			overlay.SpamTime = spamTime
		case "spam-offset-factor":
			overlay.SpamOffsetFactor = spamOffsetFactor
		case "spam-max-offset":
			overlay.SpamMaxOffset = spamMaxOffset
		case "cut-sounds":
			overlay.CutSounds = cutSounds
		case "noise":
			overlay.Noise = noise
		case "noise-volume":
			overlay.NoiseVolume = noiseVolume
		case "expr":
			overlay.Expr = exprSrc
		case "expr-var":
			overlay.ExprVariable = exprVar
		case "expr-negative":
			overlay.ExprNegative = exprNegative
		case "normalize":
			overlay.Normalize = normalize
		case "workers":
			overlay.Workers = workers
		case "seed":
			overlay.Seed = seed
		case "override-fps":
			overlay.OverrideFPS = overrideFPS
		case "swap-players":
			overlay.SwapPlayers = swapPlayers
		case "discard-deaths":
			overlay.DiscardDeaths = discardDeaths
		case "clickpack":
			overlay.Clickpack = *packDir
		}
	})
	if err := config.Apply(&cfg, overlay); err != nil {
		fatalf("Error: %v", err)
	}

	if *replayPath == "" {
		fatalf("Error: -replay is required")
	}
	if cfg.Clickpack == "" {
		fatalf("Error: no clickpack directory (use -clickpack or the settings file)")
	}

	r, err := loadReplay(*replayPath, *formatName, cfg.Replay)
	if err != nil {
		fatalf("Error parsing replay %q: %v", *replayPath, err)
	}
	fmt.Printf("Parsed %d actions (%.2fs", len(r.Actions), r.Duration)
	if r.FPS > 0 {
		fmt.Printf(", %g fps", r.FPS)
	}
	fmt.Println(")")

	pack, err := clickpack.Load(cfg.Clickpack, clickpack.Options{
		SampleRate: cfg.Render.SampleRate,
		Workers:    cfg.Render.Workers,
	})
	if err != nil {
		fatalf("Error loading clickpack %q: %v", cfg.Clickpack, err)
	}
	for _, w := range pack.Warnings {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
	}

	out, err := render.Render(r, pack, cfg.Render)
	if err != nil {
		fatalf("Error rendering: %v", err)
	}

	if err := audio.WriteWAV(*output, out); err != nil {
		fatalf("Error writing %q: %v", *output, err)
	}
	fmt.Printf("Successfully wrote %s (%.2fs)\n", *output, out.Duration())

	if *dumpText {
		path := textPath(*output)
		if err := writeText(path, r); err != nil {
			fatalf("Error writing %q: %v", path, err)
		}
		fmt.Printf("Wrote timeline %s\n", path)
	}
}

// loadReplay parses with an explicit format when one is named, otherwise
// sniffs from the file name and payload.
func loadReplay(path, formatName string, opts replay.Options) (*replay.Replay, error) {
	if formatName == "" {
		return replay.ParseFile(path, opts)
	}
	format, ok := replay.ParseFormat(formatName)
	if !ok {
		return nil, fmt.Errorf("unknown format name %q", formatName)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return replay.Parse(format, data, opts)
}

func writeText(path string, r *replay.Replay) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return replay.WritePlainText(f, r)
}

// textPath swaps the output extension for .txt.
func textPath(output string) string {
	if i := strings.LastIndexByte(output, '.'); i > 0 {
		return output[:i] + ".txt"
	}
	return output + ".txt"
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
