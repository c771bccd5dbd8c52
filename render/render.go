// Package render turns a normalized action timeline and a loaded clickpack
// into one mixed PCM buffer. Classification, sample selection, pitch and
// volume shaping happen in a sequential pass that emits flat render
// instructions; mixing those into the output buffer can fan out across
// workers that own disjoint buffer windows.
package render

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/zeozeozeo/zcb3/audio"
	"github.com/zeozeozeo/zcb3/clickpack"
	"github.com/zeozeozeo/zcb3/replay"
)

// ErrCanceled reports a render aborted through the cooperative cancel flag.
var ErrCanceled = errors.New("render canceled")

// Error names the stage and, when applicable, the action a render failed
// at.
type Error struct {
	Stage  string
	Action int // -1 when the failure isn't tied to one action
	Err    error
}

func (e *Error) Error() string {
	if e.Action >= 0 {
		return fmt.Sprintf("render %s (action %d): %v", e.Stage, e.Action, e.Err)
	}
	return fmt.Sprintf("render %s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func renderErrorf(stage string, action int, format string, args ...any) error {
	return &Error{Stage: stage, Action: action, Err: fmt.Errorf(format, args...)}
}

// instruction is one fully-resolved click placement: everything the mix
// pass needs, with no remaining randomness or shared state.
type instruction struct {
	seg      *audio.Segment
	vol      float64
	start    int // output frame offset
	player   replay.Player
	category clickpack.Category
}

// Render mixes the timeline into a new output buffer. All randomness flows
// from cfg.Seed, so equal inputs and seed produce identical buffers.
func Render(r *replay.Replay, pack *clickpack.Pack, cfg Config) (*audio.Segment, error) {
	if len(r.Actions) == 0 {
		return nil, renderErrorf("validate", -1, "empty timeline")
	}
	if cfg.SampleRate <= 0 {
		return nil, renderErrorf("validate", -1, "invalid sample rate %d", cfg.SampleRate)
	}
	if !pack.HasSamples() {
		return nil, renderErrorf("validate", -1, "clickpack has no samples")
	}

	var ve *volumeExpr
	if cfg.Expr != "" {
		var err error
		if ve, err = compileExpr(cfg.Expr); err != nil {
			return nil, &Error{Stage: "expression", Action: -1, Err: err}
		}
	}

	instrs, err := prepare(r, pack, cfg, ve)
	if err != nil {
		return nil, err
	}

	buf := allocate(r, instrs, cfg.SampleRate)
	if cfg.CutSounds {
		mixCut(buf, instrs)
	} else if cfg.Workers > 1 {
		mixParallel(buf, instrs, cfg.Workers)
	} else {
		for _, in := range instrs {
			buf.OverlayAt(in.seg, in.start, in.vol)
		}
	}

	if cfg.Noise && pack.Noise() != nil && cfg.NoiseVolume > 0 {
		overlayNoise(buf, pack.Noise(), cfg.NoiseVolume)
	}

	if cfg.Normalize {
		buf.Normalize()
	} else {
		buf.Clamp()
	}
	return buf, nil
}

// prepare runs the sequential per-action pass: classification, category
// fallback, sample pick, pitch and volume shaping. It owns all shared
// state (rng, previous picks, per-player timing folds) so the mix pass can
// run in parallel.
func prepare(r *replay.Replay, pack *clickpack.Pack, cfg Config, ve *volumeExpr) ([]instruction, error) {
	rng := rand.New(rand.NewSource(cfg.Seed))
	cats := Classify(r, cfg.Timings)
	gaps := spamGaps(r)

	lastPick := make(map[pickKey]int)
	instrs := make([]instruction, 0, len(r.Actions))

	for i, a := range r.Actions {
		if cfg.Cancel != nil && cfg.Cancel() {
			return nil, &Error{Stage: "prepare", Action: i, Err: ErrCanceled}
		}

		pl, cat, ok := pack.Resolve(a.Player, cats[i], cfg.Fallback)
		if !ok {
			// the whole kind family is empty on both sides; borrow the
			// opposite family before giving up
			pl, cat, ok = pack.Resolve(a.Player, counterpart(cats[i]), cfg.Fallback)
		}
		if !ok {
			return nil, renderErrorf("select", i, "no sample for category %s", cats[i])
		}

		pool := pack.Lookup(pl, cat)
		idx := pickSample(rng, len(pool), lastPick, pickKey{pl, cat})
		seg := pool[idx]

		if cfg.Pitch.active() {
			mult := drawPitch(rng, cfg.Pitch)
			var err error
			if seg, err = seg.Pitched(mult); err != nil {
				return nil, renderErrorf("pitch", i, "resample: %v", err)
			}
		}

		vol := cfg.Volume.Global
		shaped := a.Kind == replay.Press || cfg.Volume.ChangeReleases
		if shaped {
			vol += drawJitter(rng, cfg.Volume.Variation, cfg.ExprNegative)
			vol -= spamOffset(gaps[i], cfg.Spam)
		}

		time := a.Time
		if ve != nil {
			v := ve.eval(r, i, rng)
			switch cfg.ExprVar {
			case ExprValue:
				vol += v
			case ExprVariation:
				vol += drawRange(rng, 0, v)
			case ExprTimeOffset:
				time += v
			}
		}
		if vol < 0 {
			vol = 0
		}

		instrs = append(instrs, instruction{
			seg:      seg,
			vol:      vol,
			start:    int(math.Round(time * float64(cfg.SampleRate))),
			player:   a.Player,
			category: cat,
		})
		if cfg.Progress != nil {
			cfg.Progress(i+1, len(r.Actions))
		}
	}
	return instrs, nil
}

type pickKey struct {
	player   replay.Player
	category clickpack.Category
}

// pickSample draws a uniform pool index, excluding the previous pick for
// the same player and category when the pool has alternatives.
func pickSample(rng *rand.Rand, n int, last map[pickKey]int, key pickKey) int {
	if n == 1 {
		return 0
	}
	idx := rng.Intn(n)
	if prev, ok := last[key]; ok && idx == prev {
		idx = (idx + 1 + rng.Intn(n-1)) % n
	}
	last[key] = idx
	return idx
}

// drawPitch picks a quantized multiplier: a uniform step index inside
// [From, To], so every draw is an exact multiple of Step and the cached
// variant table stays small.
func drawPitch(rng *rand.Rand, p Pitch) float64 {
	const eps = 1e-9
	lo := int(math.Ceil(p.From/p.Step - eps))
	hi := int(math.Floor(p.To/p.Step + eps))
	if hi < lo {
		return p.From
	}
	return float64(lo+rng.Intn(hi-lo+1)) * p.Step
}

// drawJitter draws the per-click volume jitter. With negative variation
// permitted the range doubles to [-v, v]; otherwise it is [0, v].
func drawJitter(rng *rand.Rand, v float64, negative bool) float64 {
	if v <= 0 {
		return 0
	}
	if negative {
		return drawRange(rng, -v, v)
	}
	return drawRange(rng, 0, v)
}

func drawRange(rng *rand.Rand, lo, hi float64) float64 {
	if hi < lo {
		lo, hi = hi, lo
	}
	if hi == lo {
		return lo
	}
	return lo + rng.Float64()*(hi-lo)
}

// counterpart maps a category onto the same loudness class of the other
// kind family.
func counterpart(c clickpack.Category) clickpack.Category {
	if c.IsRelease() {
		return c - 1
	}
	return c + 1
}

// allocate sizes the output so the last click's decay fits: the timeline
// duration or the furthest instruction end, whichever is later.
func allocate(r *replay.Replay, instrs []instruction, rate int) *audio.Segment {
	frames := int(math.Round(r.Duration * float64(rate)))
	for _, in := range instrs {
		if end := in.start + in.seg.Frames(); end > frames {
			frames = end
		}
	}
	if frames < 1 {
		frames = 1
	}
	return audio.NewSegment(rate, make([]float32, frames*2))
}

// mixCut writes instructions in order, truncating the tail of the
// previous overlapping click of the same player and category before each
// write. Write order matters here, so this path never parallelizes.
func mixCut(buf *audio.Segment, instrs []instruction) {
	var prev [2][clickpack.NumCategories]*instruction
	for i := range instrs {
		in := &instrs[i]
		if p := prev[in.player][in.category]; p != nil && p.start+p.seg.Frames() > in.start {
			buf.CancelTail(p.seg, p.start, p.vol, in.start)
		}
		buf.OverlayAt(in.seg, in.start, in.vol)
		prev[in.player][in.category] = in
	}
}

// mixParallel partitions the buffer into contiguous frame windows, one
// worker each. A worker writes only inside its own window; whatever spills
// past the window boundary lands in a private tail scratch, reduced into
// the shared buffer sequentially after the join.
func mixParallel(buf *audio.Segment, instrs []instruction, workers int) {
	frames := buf.Frames()
	window := (frames + workers - 1) / workers
	if window < 1 {
		window = 1
	}

	var longest int
	for _, in := range instrs {
		if n := in.seg.Frames(); n > longest {
			longest = n
		}
	}

	sorted := make([]instruction, len(instrs))
	copy(sorted, instrs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].start < sorted[j].start
	})

	type tail struct {
		seg *audio.Segment
		at  int
	}
	// indexed per worker so the sequential reduce below has a fixed order
	tails := make([]tail, workers)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		lo := w * window
		hi := lo + window
		if hi > frames {
			hi = frames
		}
		if lo >= hi {
			break
		}
		// instructions starting inside [lo, hi); starts before 0 belong to
		// the first window
		first := sort.Search(len(sorted), func(i int) bool { return sorted[i].start >= lo })
		if w == 0 {
			first = 0
		}
		limit := sort.Search(len(sorted), func(i int) bool { return sorted[i].start >= hi })
		if first >= limit {
			continue
		}

		wg.Add(1)
		go func(w int, batch []instruction, hi int) {
			defer wg.Done()
			var scratch *audio.Segment
			for _, in := range batch {
				buf.OverlayAtUpTo(in.seg, in.start, in.vol, hi)
				if in.start+in.seg.Frames() > hi {
					if scratch == nil {
						scratch = audio.NewSegment(buf.SampleRate, make([]float32, longest*2))
					}
					// frames at and past hi land at scratch offset 0
					scratch.OverlayAt(in.seg, in.start-hi, in.vol)
				}
			}
			tails[w] = tail{seg: scratch, at: hi}
		}(w, sorted[first:limit], hi)
	}
	wg.Wait()

	for _, t := range tails {
		if t.seg != nil {
			buf.OverlayAt(t.seg, t.at, 1)
		}
	}
}

// overlayNoise tiles the noise sample end to end across the whole buffer.
func overlayNoise(buf, noise *audio.Segment, vol float64) {
	step := noise.Frames()
	if step <= 0 {
		return
	}
	for at := 0; at < buf.Frames(); at += step {
		buf.OverlayAt(noise, at, vol)
	}
}
