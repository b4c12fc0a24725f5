package canonical

import (
	"slices"

	"github.com/lox/vpstrat/internal/deck"
)

// AllKeys returns every distinct canonical key reachable from a 52-card deck,
// or a 53-card deck when withJoker is set, sorted by byte value. This walks
// all C(52,5) (or C(53,5)) hands and takes on the order of a second.
func AllKeys(withJoker bool) []Key {
	cards := deck.FullDeck(withJoker)
	n := len(cards)
	seen := make(map[Key]struct{}, 1<<18)

	var h deck.Hand
	for a := 0; a < n-4; a++ {
		h[0] = cards[a]
		for b := a + 1; b < n-3; b++ {
			h[1] = cards[b]
			for c := b + 1; c < n-2; c++ {
				h[2] = cards[c]
				for d := c + 1; d < n-1; d++ {
					h[3] = cards[d]
					for e := d + 1; e < n; e++ {
						h[4] = cards[e]
						seen[Of(h)] = struct{}{}
					}
				}
			}
		}
	}

	keys := make([]Key, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
