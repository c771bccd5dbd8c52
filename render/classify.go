package render

import (
	"math"

	"github.com/zeozeozeo/zcb3/clickpack"
	"github.com/zeozeozeo/zcb3/replay"
)

// Classify labels every action with a click category from the elapsed time
// since the player's previous action of the same kind (press to press,
// release to release). The first action of its kind for a player has no
// predecessor and classifies as regular.
func Classify(r *replay.Replay, t Timings) []clickpack.Category {
	out := make([]clickpack.Category, len(r.Actions))
	var prev [2][2]float64
	var seen [2][2]bool

	for i, a := range r.Actions {
		elapsed := math.Inf(1)
		first := !seen[a.Player][a.Kind]
		if !first {
			elapsed = a.Time - prev[a.Player][a.Kind]
		}
		prev[a.Player][a.Kind] = a.Time
		seen[a.Player][a.Kind] = true

		out[i] = classify(elapsed, first, t, a.Kind == replay.Release)
	}
	return out
}

func classify(elapsed float64, first bool, t Timings, release bool) clickpack.Category {
	var c clickpack.Category
	switch {
	case first:
		c = clickpack.Click
	case elapsed >= t.Hard:
		c = clickpack.Hardclick
	case elapsed >= t.Regular:
		c = clickpack.Click
	case elapsed >= t.Soft:
		c = clickpack.Softclick
	default:
		c = clickpack.Microclick
	}
	if release {
		c++ // the release family sits one slot after each click category
	}
	return c
}

// spamGaps returns, per action, the elapsed time since the player's
// previous action of any kind. The first action of a player reports +Inf.
func spamGaps(r *replay.Replay) []float64 {
	out := make([]float64, len(r.Actions))
	var prev [2]float64
	var seen [2]bool

	for i, a := range r.Actions {
		if seen[a.Player] {
			out[i] = a.Time - prev[a.Player]
		} else {
			out[i] = math.Inf(1)
		}
		prev[a.Player] = a.Time
		seen[a.Player] = true
	}
	return out
}

// spamOffset computes the volume drop for one gap. It is zero at or above
// the spam window, grows as the gap shrinks and clamps at MaxOffset.
func spamOffset(gap float64, s Spam) float64 {
	if !s.Enabled || gap >= s.Time {
		return 0
	}
	offset := s.OffsetFactor * (s.Time - gap)
	if offset < 0 {
		return 0
	}
	return math.Min(offset, s.MaxOffset)
}
