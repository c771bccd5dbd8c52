// Package replay decodes recorded game-input replays into one canonical,
// time-ordered action timeline. Each supported encoding has its own decoder;
// all of them produce raw events that a single normalization pass converts
// to seconds, deduplicates, and sorts.
package replay

import (
	"fmt"
	"math"
	"sort"
)

// Player identifies which side performed an action.
type Player uint8

const (
	P1 Player = iota
	P2
)

func (p Player) String() string {
	if p == P2 {
		return "player2"
	}
	return "player1"
}

// Kind is the direction of an input edge.
type Kind uint8

const (
	Press Kind = iota
	Release
)

func (k Kind) String() string {
	if k == Release {
		return "release"
	}
	return "press"
}

// Button distinguishes platformer-style inputs. Formats without button
// information always produce ButtonJump.
type Button uint8

const (
	ButtonJump  Button = 1
	ButtonLeft  Button = 2
	ButtonRight Button = 3
)

func (b Button) String() string {
	switch b {
	case ButtonLeft:
		return "left"
	case ButtonRight:
		return "right"
	default:
		return "jump"
	}
}

// Action is one normalized input event on the timeline.
type Action struct {
	Player Player
	Kind   Kind
	Button Button
	// Time since the start of the replay, in seconds.
	Time float64
}

// ExtendedAction carries the per-input state consumed by the volume
// expression namespace. Extended[i] describes Actions[i].
type ExtendedAction struct {
	Frame   uint32
	Down    bool
	Player2 bool
	X       float64
	Y       float64
	Rot     float64
	YAccel  float64
}

// Replay is a normalized action timeline. It is immutable once built.
type Replay struct {
	// FPS the source format declared, or 0 for purely time-based formats.
	FPS float64
	// Duration is the time of the last action in seconds.
	Duration float64
	Actions  []Action
	Extended []ExtendedAction
}

// LastFrame returns the frame index of the final action.
func (r *Replay) LastFrame() uint32 {
	if len(r.Extended) == 0 {
		return 0
	}
	last := r.Extended[0].Frame
	for _, e := range r.Extended[1:] {
		if e.Frame > last {
			last = e.Frame
		}
	}
	return last
}

// Options configure normalization of a parsed replay.
type Options struct {
	// OverrideFPS replaces the FPS declared by frame-based formats.
	OverrideFPS float64
	// SwapPlayers exchanges the two players before normalization.
	SwapPlayers bool
	// DiscardDeaths drops actions at or after the final recorded death,
	// for formats that record deaths.
	DiscardDeaths bool
	// SortActions stable-sorts events by time before deduplication. When
	// off, the file order is trusted.
	SortActions bool
}

// DefaultOptions returns the options used when none are supplied.
func DefaultOptions() Options {
	return Options{
		DiscardDeaths: true,
		SortActions:   true,
	}
}

// Sanity bounds for corrupt files.
const (
	maxFrame  = 100_000_000
	maxEvents = 10_000_000
)

// rawEvent is one input produced by a format decoder before normalization.
type rawEvent struct {
	// byTime marks events whose time is already in seconds; otherwise
	// frame is divided by the replay FPS.
	byTime  bool
	frame   uint32
	time    float64
	down    bool
	player2 bool
	button  Button

	// optional physics, for the expression namespace
	x, y, rot, yaccel float64
}

// parseResult is what each format decoder hands to the normalizer.
type parseResult struct {
	events []rawEvent
	// fps declared by the file; 0 for time-based formats.
	fps float64
	// timeBased formats ignore FPS overrides.
	timeBased bool
	// frames of recorded deaths, for DiscardDeaths.
	deaths []uint32
}

// TimelineError reports invalid time or frame data in a parsed replay.
type TimelineError struct {
	Reason string
}

func (e *TimelineError) Error() string {
	return "timeline: " + e.Reason
}

func timelineErrorf(format string, args ...any) error {
	return &TimelineError{Reason: fmt.Sprintf(format, args...)}
}

// normalize turns decoder output into a canonical Replay.
func normalize(res parseResult, opts Options) (*Replay, error) {
	if len(res.events) > maxEvents {
		return nil, timelineErrorf("event count %d exceeds limit", len(res.events))
	}

	fps := res.fps
	if opts.OverrideFPS > 0 && !res.timeBased {
		fps = opts.OverrideFPS
	}

	events := res.events
	if !res.timeBased && len(events) > 0 {
		if fps <= 0 || math.IsNaN(fps) || math.IsInf(fps, 0) {
			return nil, timelineErrorf("invalid fps %f", fps)
		}
	}

	// resolve times and validate
	resolved := make([]rawEvent, 0, len(events))
	for _, ev := range events {
		if !ev.byTime {
			if ev.frame > maxFrame {
				return nil, timelineErrorf("frame %d exceeds limit", ev.frame)
			}
			ev.time = float64(ev.frame) / fps
		} else if ev.frame == 0 && fps > 0 {
			ev.frame = uint32(math.Round(ev.time * fps))
		}
		if ev.time < 0 || math.IsNaN(ev.time) {
			return nil, timelineErrorf("negative time %f", ev.time)
		}
		if ev.button == 0 {
			ev.button = ButtonJump
		}
		if opts.SwapPlayers {
			ev.player2 = !ev.player2
		}
		resolved = append(resolved, ev)
	}

	if opts.SortActions {
		sort.SliceStable(resolved, func(i, j int) bool {
			return resolved[i].time < resolved[j].time
		})
	}

	if opts.DiscardDeaths && len(res.deaths) > 0 && fps > 0 {
		last := res.deaths[0]
		for _, d := range res.deaths[1:] {
			if d > last {
				last = d
			}
		}
		cutoff := float64(last) / fps
		kept := resolved[:0]
		for _, ev := range resolved {
			if ev.time < cutoff {
				kept = append(kept, ev)
			}
		}
		resolved = kept
	}

	// drop events that repeat the player's current state
	r := &Replay{FPS: fps}
	var held [2]bool
	for _, ev := range resolved {
		p := P1
		if ev.player2 {
			p = P2
		}
		if ev.down == held[p] {
			continue
		}
		held[p] = ev.down

		kind := Release
		if ev.down {
			kind = Press
		}
		r.Actions = append(r.Actions, Action{
			Player: p,
			Kind:   kind,
			Button: ev.button,
			Time:   ev.time,
		})
		r.Extended = append(r.Extended, ExtendedAction{
			Frame:   ev.frame,
			Down:    ev.down,
			Player2: ev.player2,
			X:       ev.x,
			Y:       ev.y,
			Rot:     ev.rot,
			YAccel:  ev.yaccel,
		})
	}

	if len(r.Actions) > 0 {
		r.Duration = r.Actions[len(r.Actions)-1].Time
	}
	return r, nil
}
