package deck

import (
	"fmt"
	"strings"
)

// Suit represents a card suit
type Suit int

const (
	Spades Suit = iota
	Hearts
	Diamonds
	Clubs
)

// NoSuit is carried by the joker
const NoSuit Suit = -1

// Suits lists the four real suits in deck order
var Suits = [4]Suit{Spades, Hearts, Diamonds, Clubs}

// String returns the string representation of a suit
func (s Suit) String() string {
	switch s {
	case Spades:
		return "♠"
	case Hearts:
		return "♥"
	case Diamonds:
		return "♦"
	case Clubs:
		return "♣"
	default:
		return "?"
	}
}

// Code returns the lower-case letter used in card notation ("s", "h", "d", "c")
func (s Suit) Code() byte {
	switch s {
	case Spades:
		return 's'
	case Hearts:
		return 'h'
	case Diamonds:
		return 'd'
	case Clubs:
		return 'c'
	default:
		return 'w'
	}
}

// Rank represents a card rank
type Rank int

const (
	Two Rank = iota + 2
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
	// Joker sorts above every natural rank.
	Joker
)

// Char returns the single character used for the rank in canonical keys.
func (r Rank) Char() byte {
	switch {
	case r >= Two && r <= Nine:
		return byte('0' + int(r))
	case r == Ten:
		return 'T'
	case r == Jack:
		return 'J'
	case r == Queen:
		return 'Q'
	case r == King:
		return 'K'
	case r == Ace:
		return 'A'
	case r == Joker:
		return 'W'
	default:
		return '?'
	}
}

// String returns the string representation of a rank
func (r Rank) String() string {
	return string(r.Char())
}

// Card represents a playing card
type Card struct {
	Suit Suit
	Rank Rank
}

// NewCard creates a new card
func NewCard(suit Suit, rank Rank) Card {
	return Card{Suit: suit, Rank: rank}
}

// JokerCard returns the joker used by wild-card paytables.
func JokerCard() Card {
	return Card{Suit: NoSuit, Rank: Joker}
}

// IsJoker reports whether the card is the joker
func (c Card) IsJoker() bool {
	return c.Rank == Joker
}

// String returns the display form of a card (e.g., "A♠")
func (c Card) String() string {
	if c.IsJoker() {
		return "🃏"
	}
	return fmt.Sprintf("%s%s", c.Rank, c.Suit)
}

// Notation returns the two-letter parseable form of a card (e.g., "As")
func (c Card) Notation() string {
	return string([]byte{c.Rank.Char(), c.Suit.Code()})
}

// Hand is a dealt five-card hand in dealt order.
type Hand [5]Card

// NewHand builds a Hand from exactly five cards.
func NewHand(cards []Card) (Hand, error) {
	var h Hand
	if len(cards) != len(h) {
		return h, fmt.Errorf("hand must have exactly %d cards, got %d", len(h), len(cards))
	}
	copy(h[:], cards)
	return h, nil
}

// MustHand builds a Hand and panics if cards is not exactly five long.
func MustHand(cards []Card) Hand {
	h, err := NewHand(cards)
	if err != nil {
		panic(err)
	}
	return h
}

// ParseHand parses card notation into a Hand.
func ParseHand(s string) (Hand, error) {
	cards, err := ParseCards(s)
	if err != nil {
		return Hand{}, err
	}
	return NewHand(cards)
}

// MustParseHand parses a hand and panics on error (for tests)
func MustParseHand(s string) Hand {
	h, err := ParseHand(s)
	if err != nil {
		panic(fmt.Sprintf("failed to parse hand '%s': %v", s, err))
	}
	return h
}

// HasJoker reports whether any card in the hand is the joker
func (h Hand) HasJoker() bool {
	for _, c := range h {
		if c.IsJoker() {
			return true
		}
	}
	return false
}

func (h Hand) String() string {
	var sb strings.Builder
	for i, c := range h {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(c.String())
	}
	return sb.String()
}

// Notation returns the parseable form of the hand, e.g. "AhKhQhJh9c".
func (h Hand) Notation() string {
	var sb strings.Builder
	for _, c := range h {
		sb.WriteString(c.Notation())
	}
	return sb.String()
}
