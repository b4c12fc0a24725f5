package hold

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndices(t *testing.T) {
	tests := []struct {
		mask Mask
		want []int
	}{
		{None, []int{}},
		{All, []int{0, 1, 2, 3, 4}},
		{0b00001, []int{0}},
		{0b10100, []int{2, 4}},
		{0b01111, []int{0, 1, 2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.mask.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.mask.Indices())
			assert.Equal(t, tt.mask, FromIndices(tt.want))
			assert.Equal(t, len(tt.want), tt.mask.Count())
		})
	}
}

func TestRoundTripAllMasks(t *testing.T) {
	for m := Mask(0); m < NumMasks; m++ {
		assert.Equal(t, m, FromIndices(m.Indices()))
	}
}

func TestFromIndicesIgnoresOutOfRange(t *testing.T) {
	assert.Equal(t, Mask(0b00011), FromIndices([]int{0, 1, 5, -1, 9}))
	// Duplicates collapse.
	assert.Equal(t, Mask(0b00100), FromIndices([]int{2, 2}))
}

func TestString(t *testing.T) {
	assert.Equal(t, "HH--H", Mask(0b10011).String())
	assert.True(t, Mask(0b10011).Has(4))
	assert.False(t, Mask(0b10011).Has(2))
}
