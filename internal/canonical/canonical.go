// Package canonical collapses a dealt five-card hand into the suit-invariant
// key that strategy tables are sorted and searched by.
//
// Cards are sorted by rank and each suit is renamed 'a'..'d' in the order it
// is first met in that sorted walk, so any two hands that differ only by a
// relabeling of suits share one key. Among cards of equal rank, suits that
// were already named come first; otherwise dealt position breaks the tie. The
// Permutation returned alongside the key maps sorted positions back to dealt
// positions; hold masks in a table refer to sorted positions.
package canonical

import (
	"fmt"

	"github.com/lox/vpstrat/internal/deck"
)

// KeyLen is the length in bytes of a canonical key: a rank char and a suit
// letter per card. The joker is written "Ww".
const KeyLen = 2 * len(deck.Hand{})

// Key is a canonical hand key such as "9aJbQbKbAb".
type Key string

// Bytes returns the key as a byte slice for table search.
func (k Key) Bytes() []byte {
	return []byte(k)
}

// Permutation maps canonical (sorted) position to dealt position:
// perm[sortedPos] = dealtPos.
type Permutation [5]int

// Identity is the permutation of a hand already in canonical order
var Identity = Permutation{0, 1, 2, 3, 4}

// Canonicalize returns the canonical key of h and the sorted-to-dealt
// permutation needed to translate table results back to h.
func Canonicalize(h deck.Hand) (Key, Permutation) {
	perm := Identity

	// Insertion sort keeps equal ranks in dealt order.
	for i := 1; i < len(perm); i++ {
		for j := i; j > 0 && h[perm[j-1]].Rank > h[perm[j]].Rank; j-- {
			perm[j-1], perm[j] = perm[j], perm[j-1]
		}
	}

	var letters [4]byte
	next := byte('a')
	letterOf := func(c deck.Card) byte {
		if c.IsJoker() || letters[c.Suit] == 0 {
			return 'z'
		}
		return letters[c.Suit]
	}

	var buf [KeyLen]byte
	for start := 0; start < len(perm); {
		end := start + 1
		for end < len(perm) && h[perm[end]].Rank == h[perm[start]].Rank {
			end++
		}

		// Within a run of equal ranks, suits that already have a letter go
		// first in letter order; new suits keep dealt order. This keeps the
		// key identical under suit relabeling and consistent with tables
		// generated in suit order.
		for i := start + 1; i < end; i++ {
			for j := i; j > start && letterOf(h[perm[j-1]]) > letterOf(h[perm[j]]); j-- {
				perm[j-1], perm[j] = perm[j], perm[j-1]
			}
		}

		for pos := start; pos < end; pos++ {
			c := h[perm[pos]]
			if c.IsJoker() {
				buf[2*pos] = 'W'
				buf[2*pos+1] = 'w'
				continue
			}
			if letters[c.Suit] == 0 {
				letters[c.Suit] = next
				next++
			}
			buf[2*pos] = c.Rank.Char()
			buf[2*pos+1] = letters[c.Suit]
		}
		start = end
	}

	return Key(buf[:]), perm
}

// CanonicalizeCards is Canonicalize for a card slice. It panics unless
// exactly five cards are given; anything else is a caller bug.
func CanonicalizeCards(cards []deck.Card) (Key, Permutation) {
	if len(cards) != len(deck.Hand{}) {
		panic(fmt.Sprintf("canonical: hand must have exactly 5 cards, got %d", len(cards)))
	}
	return Canonicalize(deck.Hand(cards))
}

// Of returns only the key of h.
func Of(h deck.Hand) Key {
	k, _ := Canonicalize(h)
	return k
}

// CanonicalToOriginal maps canonical positions (e.g. a decoded hold) to dealt
// positions. Positions outside [0,5) are dropped.
func CanonicalToOriginal(perm Permutation, canonicalIndices []int) []int {
	out := make([]int, 0, len(canonicalIndices))
	for _, i := range canonicalIndices {
		if i < 0 || i >= len(perm) {
			continue
		}
		out = append(out, perm[i])
	}
	return out
}

// OriginalToCanonical maps dealt positions (e.g. the player's chosen hold)
// to canonical positions. Positions outside [0,5) are dropped.
func OriginalToCanonical(perm Permutation, originalIndices []int) []int {
	inv := perm.Inverse()
	out := make([]int, 0, len(originalIndices))
	for _, i := range originalIndices {
		if i < 0 || i >= len(inv) {
			continue
		}
		out = append(out, inv[i])
	}
	return out
}

// Inverse returns the dealt-to-sorted permutation.
func (p Permutation) Inverse() Permutation {
	var inv Permutation
	for sorted, orig := range p {
		inv[orig] = sorted
	}
	return inv
}
