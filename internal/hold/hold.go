// Package hold converts hold decisions between 5-bit masks and card positions.
//
// Bit i of a Mask means "hold the card at position i". Strategy tables index
// masks by canonical (sorted) position, not by dealt position.
package hold

import (
	"math/bits"
	"strings"
)

// NumCards is the number of cards a mask covers
const NumCards = 5

// NumMasks is the number of distinct hold choices
const NumMasks = 1 << NumCards

// Mask is a hold bitmask in 0..31
type Mask uint8

const (
	// None discards all five cards
	None Mask = 0
	// All holds all five cards
	All Mask = NumMasks - 1
)

// FromIndices builds a mask from card positions. Positions outside [0,5) are
// ignored.
func FromIndices(indices []int) Mask {
	var m Mask
	for _, i := range indices {
		if i >= 0 && i < NumCards {
			m |= 1 << i
		}
	}
	return m
}

// Indices returns the held positions in ascending order.
func (m Mask) Indices() []int {
	m &= All
	out := make([]int, 0, bits.OnesCount8(uint8(m)))
	for i := 0; i < NumCards; i++ {
		if m&(1<<i) != 0 {
			out = append(out, i)
		}
	}
	return out
}

// Has reports whether position i is held
func (m Mask) Has(i int) bool {
	return i >= 0 && i < NumCards && m&(1<<i) != 0
}

// Count returns how many cards are held
func (m Mask) Count() int {
	return bits.OnesCount8(uint8(m & All))
}

// String renders the mask as five H/- characters, position 0 first.
func (m Mask) String() string {
	var sb strings.Builder
	for i := 0; i < NumCards; i++ {
		if m.Has(i) {
			sb.WriteByte('H')
		} else {
			sb.WriteByte('-')
		}
	}
	return sb.String()
}
