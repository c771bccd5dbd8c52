package replay

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestNormalizeMonotonic(t *testing.T) {
	res := parseResult{
		fps: 60,
		events: []rawEvent{
			{frame: 120, down: true},
			{frame: 30, down: true, player2: true},
			{frame: 60, down: false, player2: true},
			{frame: 150, down: false},
		},
	}
	r, err := normalize(res, DefaultOptions())
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	for i := 1; i < len(r.Actions); i++ {
		if r.Actions[i].Time < r.Actions[i-1].Time {
			t.Fatalf("time decreased at %d: %f < %f", i, r.Actions[i].Time, r.Actions[i-1].Time)
		}
	}
	if r.Duration != r.Actions[len(r.Actions)-1].Time {
		t.Fatalf("duration %f != last action time", r.Duration)
	}
}

func TestNormalizeDedup(t *testing.T) {
	res := parseResult{
		fps: 100,
		events: []rawEvent{
			{frame: 0, down: true},
			{frame: 10, down: true},  // repeated press, dropped
			{frame: 20, down: false},
			{frame: 30, down: false}, // repeated release, dropped
			{frame: 40, down: true},
		},
	}
	r, err := normalize(res, DefaultOptions())
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if len(r.Actions) != 3 {
		t.Fatalf("expected 3 actions after dedup, got %d", len(r.Actions))
	}
	wantKinds := []Kind{Press, Release, Press}
	for i, k := range wantKinds {
		if r.Actions[i].Kind != k {
			t.Fatalf("action %d: got %v want %v", i, r.Actions[i].Kind, k)
		}
	}
}

func TestNormalizeDedupPerPlayer(t *testing.T) {
	// both players press on the same frame; neither is a duplicate
	res := parseResult{
		fps: 100,
		events: []rawEvent{
			{frame: 0, down: true},
			{frame: 0, down: true, player2: true},
		},
	}
	r, err := normalize(res, DefaultOptions())
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if len(r.Actions) != 2 {
		t.Fatalf("expected 2 actions, got %d", len(r.Actions))
	}
}

func TestNormalizeSwapPlayers(t *testing.T) {
	res := parseResult{
		fps:    100,
		events: []rawEvent{{frame: 0, down: true}},
	}
	opts := DefaultOptions()
	opts.SwapPlayers = true
	r, err := normalize(res, opts)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if r.Actions[0].Player != P2 {
		t.Fatalf("expected swapped player, got %v", r.Actions[0].Player)
	}
}

func TestNormalizeOverrideFPS(t *testing.T) {
	res := parseResult{
		fps:    60,
		events: []rawEvent{{frame: 120, down: true}},
	}
	opts := DefaultOptions()
	opts.OverrideFPS = 240
	r, err := normalize(res, opts)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if r.Actions[0].Time != 0.5 {
		t.Fatalf("expected time 0.5 at 240 fps, got %f", r.Actions[0].Time)
	}

	// time-based formats ignore the override
	res = parseResult{
		timeBased: true,
		events:    []rawEvent{{byTime: true, time: 2, down: true}},
	}
	r, err = normalize(res, opts)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if r.Actions[0].Time != 2 {
		t.Fatalf("time-based event rescaled: %f", r.Actions[0].Time)
	}
}

func TestNormalizeDiscardDeaths(t *testing.T) {
	res := parseResult{
		fps: 100,
		events: []rawEvent{
			{frame: 0, down: true},
			{frame: 50, down: false},
			{frame: 200, down: true}, // at the death cutoff
			{frame: 300, down: false},
		},
		deaths: []uint32{100, 200},
	}
	r, err := normalize(res, DefaultOptions())
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if len(r.Actions) != 2 {
		t.Fatalf("expected 2 actions before the final death, got %d", len(r.Actions))
	}

	opts := DefaultOptions()
	opts.DiscardDeaths = false
	r, err = normalize(res, opts)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if len(r.Actions) != 4 {
		t.Fatalf("expected all 4 actions with DiscardDeaths off, got %d", len(r.Actions))
	}
}

func TestNormalizeErrors(t *testing.T) {
	cases := []struct {
		name string
		res  parseResult
	}{
		{"zero fps", parseResult{fps: 0, events: []rawEvent{{frame: 1, down: true}}}},
		{"negative time", parseResult{timeBased: true, events: []rawEvent{{byTime: true, time: -1, down: true}}}},
		{"frame above limit", parseResult{fps: 60, events: []rawEvent{{frame: maxFrame + 1, down: true}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := normalize(tc.res, DefaultOptions())
			if err == nil {
				t.Fatalf("expected error")
			}
			var te *TimelineError
			if !errors.As(err, &te) {
				t.Fatalf("expected TimelineError, got %T: %v", err, err)
			}
		})
	}
}

func TestPlainTextRoundTrip(t *testing.T) {
	src := "240\n0 1 0\n12 0 0\n30 1 1\n48 0 1\n120 1 0\n"
	r, err := Parse(FormatPlainText, []byte(src), DefaultOptions())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	var buf bytes.Buffer
	if err := WritePlainText(&buf, r); err != nil {
		t.Fatalf("write: %v", err)
	}
	back, err := Parse(FormatPlainText, buf.Bytes(), DefaultOptions())
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}

	if len(back.Actions) != len(r.Actions) {
		t.Fatalf("action count changed: %d -> %d", len(r.Actions), len(back.Actions))
	}
	for i := range r.Actions {
		if back.Actions[i] != r.Actions[i] {
			t.Fatalf("action %d changed: %+v -> %+v", i, r.Actions[i], back.Actions[i])
		}
	}
}

func TestPlainTextErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"empty", ""},
		{"bad fps", "sixty\n"},
		{"negative fps", "-1\n"},
		{"short record", "60\n1 0\n"},
		{"bad flag", "60\n1 2 0\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse(FormatPlainText, []byte(tc.src), DefaultOptions()); err == nil {
				t.Fatalf("expected error for %q", tc.src)
			}
		})
	}
}

func TestLastFrame(t *testing.T) {
	r, err := Parse(FormatPlainText, []byte("60\n5 1 0\n90 0 0\n30 1 1\n"), DefaultOptions())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := r.LastFrame(); got != 90 {
		t.Fatalf("last frame: got %d want 90", got)
	}
}

func TestParseFileUnknownExtension(t *testing.T) {
	if _, err := GuessFormat("replay.bin", nil); err == nil {
		t.Fatalf("expected unknown format error")
	} else if !strings.Contains(err.Error(), "unknown replay format") {
		t.Fatalf("unexpected error: %v", err)
	}
}
