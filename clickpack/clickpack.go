// Package clickpack loads a directory of categorized click samples into
// typed per-player pools the render engine draws from. File discovery and
// codec decoding happen here, at load time; the renderer only ever sees
// decoded PCM segments.
package clickpack

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/zeozeozeo/zcb3/audio"
	"github.com/zeozeozeo/zcb3/replay"
)

// Category is a click loudness class. Presses and releases form two
// parallel families; any category may be absent from a clickpack.
type Category uint8

const (
	Hardclick Category = iota
	Hardrelease
	Click
	Release
	Softclick
	Softrelease
	Microclick
	Microrelease

	NumCategories
)

var categoryDirs = [NumCategories]string{
	Hardclick:    "hardclicks",
	Hardrelease:  "hardreleases",
	Click:        "clicks",
	Release:      "releases",
	Softclick:    "softclicks",
	Softrelease:  "softreleases",
	Microclick:   "microclicks",
	Microrelease: "microreleases",
}

func (c Category) String() string {
	if c < NumCategories {
		return categoryDirs[c]
	}
	return "unknown"
}

// IsRelease reports whether the category belongs to the release family.
func (c Category) IsRelease() bool {
	return c == Hardrelease || c == Release || c == Softrelease || c == Microrelease
}

// playerDirs maps the optional player-scoping directories onto pool
// indexes. The left/right variants come from platformer clickpacks and
// merge into their player's pools.
var playerDirs = map[string]replay.Player{
	"player1": replay.P1,
	"player2": replay.P2,
	"left1":   replay.P1,
	"right1":  replay.P1,
	"left2":   replay.P2,
	"right2":  replay.P2,
}

// Options configure clickpack loading.
type Options struct {
	// SampleRate every sample is resampled to at load. Defaults to 44100.
	SampleRate int
	// Workers bounds the parallel decode fan-out. Defaults to the number
	// of files when zero or negative.
	Workers int
}

// Pack is the in-memory catalog of one loaded clickpack. It is immutable
// after Load and may be shared across renders.
type Pack struct {
	pools [2][NumCategories][]*audio.Segment
	noise *audio.Segment

	// Warnings lists sample files that were skipped because they failed
	// to decode. A non-empty list is not a load failure.
	Warnings []string

	sampleRate int
	longest    float64
}

// Load reads a clickpack directory into sample pools. Files that fail to
// decode are skipped and recorded in Pack.Warnings; only an unreadable
// directory or a pack with no samples at all is an error.
func Load(dir string, opts Options) (*Pack, error) {
	if opts.SampleRate <= 0 {
		opts.SampleRate = 44100
	}
	p := &Pack{sampleRate: opts.SampleRate}

	jobs, err := discover(dir)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("clickpack %q: no sample files found", dir)
	}

	decoded := p.decodeAll(jobs, opts.Workers)
	for i, job := range jobs {
		seg := decoded[i]
		if seg == nil {
			continue
		}
		if job.noise {
			// root noise wins over player-scoped copies; discovery orders
			// the root candidate first
			if p.noise == nil {
				p.noise = seg
			}
			continue
		}
		if d := seg.Duration(); d > p.longest {
			p.longest = d
		}
		for _, pl := range job.players {
			p.pools[pl][job.category] = append(p.pools[pl][job.category], seg)
		}
	}

	if !p.HasSamples() {
		return nil, fmt.Errorf("clickpack %q: no sample decoded successfully", dir)
	}
	return p, nil
}

// Lookup returns the samples for one player and category. The slice may be
// empty and must not be modified.
func (p *Pack) Lookup(player replay.Player, c Category) []*audio.Segment {
	if c >= NumCategories {
		return nil
	}
	return p.pools[player][c]
}

// Noise returns the pack's noise sample, or nil if it has none.
func (p *Pack) Noise() *audio.Segment {
	return p.noise
}

// SampleRate returns the rate every sample was resampled to at load.
func (p *Pack) SampleRate() int {
	return p.sampleRate
}

// LongestSample returns the duration of the longest click sample in
// seconds, used to size render buffers so no click decay is truncated.
func (p *Pack) LongestSample() float64 {
	return p.longest
}

// HasSamples reports whether any category of any player holds a sample.
func (p *Pack) HasSamples() bool {
	for pl := range p.pools {
		for c := range p.pools[pl] {
			if len(p.pools[pl][c]) > 0 {
				return true
			}
		}
	}
	return false
}

// decodeJob is one discovered sample file.
type decodeJob struct {
	path     string
	players  []replay.Player
	category Category
	noise    bool
}

// discover walks the clickpack layout and lists every candidate sample
// file. Noise candidates are ordered root first so the first decodable one
// is the preferred copy.
func discover(dir string) ([]decodeJob, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	bothPlayers := []replay.Player{replay.P1, replay.P2}
	var jobs []decodeJob

	// root-level noise candidates first
	jobs = append(jobs, noiseCandidates(dir, entries)...)

	scoped := false
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		pl, ok := playerDirs[strings.ToLower(e.Name())]
		if !ok {
			continue
		}
		scoped = true
		sub := filepath.Join(dir, e.Name())
		subEntries, err := os.ReadDir(sub)
		if err != nil {
			continue
		}
		jobs = append(jobs, noiseCandidates(sub, subEntries)...)
		jobs = append(jobs, categoryJobs(sub, subEntries, []replay.Player{pl})...)
	}
	if !scoped {
		// flat layout: both players share the root pools
		jobs = append(jobs, categoryJobs(dir, entries, bothPlayers)...)
	}
	return jobs, nil
}

func categoryJobs(dir string, entries []os.DirEntry, players []replay.Player) []decodeJob {
	var jobs []decodeJob
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		c, ok := categoryForDir(e.Name())
		if !ok {
			continue
		}
		sub := filepath.Join(dir, e.Name())
		files, err := os.ReadDir(sub)
		if err != nil {
			continue
		}
		names := make([]string, 0, len(files))
		for _, f := range files {
			if !f.IsDir() && audio.SupportedExtension(filepath.Ext(f.Name())) {
				names = append(names, f.Name())
			}
		}
		// deterministic pool order regardless of directory iteration
		sort.Strings(names)
		for _, name := range names {
			jobs = append(jobs, decodeJob{
				path:     filepath.Join(sub, name),
				players:  players,
				category: c,
			})
		}
	}
	return jobs
}

func noiseCandidates(dir string, entries []os.DirEntry) []decodeJob {
	var jobs []decodeJob
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := strings.ToLower(e.Name())
		if !strings.HasPrefix(name, "noise") && !strings.HasPrefix(name, "whitenoise") {
			continue
		}
		if !audio.SupportedExtension(filepath.Ext(name)) {
			continue
		}
		jobs = append(jobs, decodeJob{path: filepath.Join(dir, e.Name()), noise: true})
	}
	return jobs
}

func categoryForDir(name string) (Category, bool) {
	name = strings.ToLower(name)
	for c, d := range categoryDirs {
		if d == name {
			return Category(c), true
		}
	}
	return 0, false
}

// decodeAll decodes every job with a bounded worker fan-out, resampling to
// the pack rate. Failed files leave a nil slot and a warning.
func (p *Pack) decodeAll(jobs []decodeJob, workers int) []*audio.Segment {
	if workers <= 0 || workers > len(jobs) {
		workers = len(jobs)
	}
	out := make([]*audio.Segment, len(jobs))
	warnings := make([]string, len(jobs))

	var wg sync.WaitGroup
	next := make(chan int)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range next {
				seg, err := audio.DecodeFile(jobs[i].path)
				if err == nil {
					seg, err = seg.Resampled(p.sampleRate)
				}
				if err != nil {
					warnings[i] = fmt.Sprintf("skipping %s: %v", jobs[i].path, err)
					continue
				}
				out[i] = seg
			}
		}()
	}
	for i := range jobs {
		next <- i
	}
	close(next)
	wg.Wait()

	for _, w := range warnings {
		if w != "" {
			p.Warnings = append(p.Warnings, w)
		}
	}
	return out
}
