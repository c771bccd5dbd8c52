package clickpack

import "github.com/zeozeozeo/zcb3/replay"

// FallbackTable lists, per category, the categories to try in order when
// the wanted pool is empty. Every row stays within one kind family so a
// press never resolves to a release sample.
type FallbackTable [NumCategories][]Category

// DefaultFallback returns the standard priority order: a missing category
// resolves to its nearest neighbor by loudness, ending at the far end of
// the family.
func DefaultFallback() *FallbackTable {
	return &FallbackTable{
		Hardclick:    {Hardclick, Click, Softclick, Microclick},
		Hardrelease:  {Hardrelease, Release, Softrelease, Microrelease},
		Click:        {Click, Hardclick, Softclick, Microclick},
		Release:      {Release, Hardrelease, Softrelease, Microrelease},
		Softclick:    {Softclick, Microclick, Click, Hardclick},
		Softrelease:  {Softrelease, Microrelease, Release, Hardrelease},
		Microclick:   {Microclick, Softclick, Click, Hardclick},
		Microrelease: {Microrelease, Softrelease, Release, Hardrelease},
	}
}

// Resolve walks the table and returns the first category with samples for
// the player, falling back to the other player's pools when the whole
// family is empty on this side. The boolean is false when no pool matched.
func (p *Pack) Resolve(player replay.Player, c Category, table *FallbackTable) (replay.Player, Category, bool) {
	if table == nil {
		table = DefaultFallback()
	}
	if c >= NumCategories {
		return player, c, false
	}
	for _, cand := range table[c] {
		if len(p.Lookup(player, cand)) > 0 {
			return player, cand, true
		}
	}
	other := replay.P1
	if player == replay.P1 {
		other = replay.P2
	}
	for _, cand := range table[c] {
		if len(p.Lookup(other, cand)) > 0 {
			return other, cand, true
		}
	}
	return player, c, false
}
