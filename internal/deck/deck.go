package deck

import (
	rand "math/rand/v2"
)

const goldenRatio64 = 0x9e3779b97f4a7c15

// NewRand returns a *rand.Rand seeded deterministically from seed so that
// sampled hands are reproducible across runs.
func NewRand(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}

// Deck represents a video poker deck: 52 cards, plus a joker for wild games
type Deck struct {
	cards []Card
	next  int
	rng   *rand.Rand
}

// NewDeck creates a new unshuffled deck. withJoker adds a single joker.
func NewDeck(rng *rand.Rand, withJoker bool) *Deck {
	d := &Deck{
		cards: FullDeck(withJoker),
		rng:   rng,
	}
	return d
}

// FullDeck returns every card of the deck in a fixed order.
func FullDeck(withJoker bool) []Card {
	cards := make([]Card, 0, 53)
	for _, suit := range Suits {
		for rank := Two; rank <= Ace; rank++ {
			cards = append(cards, NewCard(suit, rank))
		}
	}
	if withJoker {
		cards = append(cards, JokerCard())
	}
	return cards
}

// Shuffle restores all dealt cards and randomizes their order (Fisher-Yates)
func (d *Deck) Shuffle() {
	d.next = 0
	for i := len(d.cards) - 1; i > 0; i-- {
		j := d.rng.IntN(i + 1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// DealHand shuffles and deals a fresh five-card hand.
func (d *Deck) DealHand() Hand {
	d.Shuffle()
	var h Hand
	copy(h[:], d.cards[:len(h)])
	d.next = len(h)
	return h
}

// CardsRemaining returns the number of cards left in the deck
func (d *Deck) CardsRemaining() int {
	return len(d.cards) - d.next
}
