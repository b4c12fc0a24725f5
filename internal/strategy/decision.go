package strategy

import (
	"math"
	"slices"

	"github.com/lox/vpstrat/internal/canonical"
	"github.com/lox/vpstrat/internal/hold"
)

// Tolerance is the absolute EV difference under which two holds are
// considered equal. Fixed-point rounding in the tables makes exact
// comparison unreliable.
const Tolerance = 1e-4

// Decision is the strategy for one dealt hand. Masks index canonical card
// positions; use Perm (or BestHoldOriginal) to map back to dealt order.
type Decision struct {
	PaytableID string
	Key        canonical.Key
	Perm       canonical.Permutation
	BestHold   hold.Mask
	BestEV     float64
	EVs        [hold.NumMasks]float64
}

// Choice is one hold and its expected value.
type Choice struct {
	Hold hold.Mask
	EV   float64
}

// BestHoldOriginal returns the best hold as dealt-order card indices.
func (d *Decision) BestHoldOriginal() []int {
	return canonical.CanonicalToOriginal(d.Perm, d.BestHold.Indices())
}

// EV returns the expected value of holding mask.
func (d *Decision) EV(mask hold.Mask) float64 {
	return d.EVs[mask&hold.All]
}

// EVLoss is how much EV mask gives up against the best hold. It is never
// negative.
func (d *Decision) EVLoss(mask hold.Mask) float64 {
	return math.Max(0, d.BestEV-d.EV(mask))
}

// IsCorrect reports whether mask is within Tolerance of the best EV.
func (d *Decision) IsCorrect(mask hold.Mask) bool {
	return d.BestEV-d.EV(mask) < Tolerance
}

// Options lists every hold from highest to lowest EV. Equal EVs keep mask
// order.
func (d *Decision) Options() []Choice {
	choices := make([]Choice, hold.NumMasks)
	for m := range choices {
		choices[m] = Choice{Hold: hold.Mask(m), EV: d.EVs[m]}
	}
	slices.SortStableFunc(choices, func(a, b Choice) int {
		switch {
		case a.EV > b.EV:
			return -1
		case a.EV < b.EV:
			return 1
		default:
			return 0
		}
	})
	return choices
}

// TiedForBest returns the holds sharing the top rank. Each option is
// compared with the one before it, so a run of small steps stays tied.
func (d *Decision) TiedForBest() []hold.Mask {
	opts := d.Options()
	tied := []hold.Mask{opts[0].Hold}
	for i := 1; i < len(opts); i++ {
		if math.Abs(opts[i].EV-opts[i-1].EV) >= Tolerance {
			break
		}
		tied = append(tied, opts[i].Hold)
	}
	return tied
}

// RankOf returns the 1-based rank of Options()[i]. Options within
// Tolerance of their predecessor share its rank.
func (d *Decision) RankOf(i int) int {
	return ranks(d.Options(), i)
}

// RankOfHold returns the rank of mask among all holds.
func (d *Decision) RankOfHold(mask hold.Mask) int {
	opts := d.Options()
	i := slices.IndexFunc(opts, func(c Choice) bool { return c.Hold == mask&hold.All })
	return ranks(opts, i)
}

func ranks(opts []Choice, i int) int {
	if i < 0 || i >= len(opts) {
		return i + 1
	}
	rank := 1
	for j := 1; j <= i; j++ {
		if math.Abs(opts[j].EV-opts[j-1].EV) >= Tolerance {
			rank = j + 1
		}
	}
	return rank
}
