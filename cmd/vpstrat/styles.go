package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lox/vpstrat/internal/deck"
	"github.com/lox/vpstrat/internal/hold"
)

var (
	// Style definitions
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15"))

	heldStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("14"))

	discardStyle = lipgloss.NewStyle().
			Faint(true)

	goodStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	badStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12"))
)

// renderHold shows cards in dealt order with the held ones highlighted.
func renderHold(cards []deck.Card, heldOriginal []int) string {
	held := hold.FromIndices(heldOriginal)
	parts := make([]string, len(cards))
	for i, c := range cards {
		if held.Has(i) {
			parts[i] = heldStyle.Render("[" + c.String() + "]")
		} else {
			parts[i] = discardStyle.Render(" " + c.String() + " ")
		}
	}
	return strings.Join(parts, " ")
}

// holdCards lists the cards a canonical mask keeps, given the hand in
// canonical order.
func holdCards(sorted []deck.Card, mask hold.Mask) string {
	if mask == hold.None {
		return "discard all"
	}
	var parts []string
	for _, i := range mask.Indices() {
		parts = append(parts, sorted[i].String())
	}
	return strings.Join(parts, " ")
}

func verdict(ok bool) string {
	if ok {
		return goodStyle.Render("ok")
	}
	return badStyle.Render("FAIL")
}
