package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/lox/vpstrat/internal/deck"
	"github.com/lox/vpstrat/internal/strategy"
)

// LookupCmd shows the strategy for one dealt hand.
type LookupCmd struct {
	Cards    []string `arg:"" help:"Five cards in dealt order, e.g. 'Ah Kh Qh Jh 9c' or 'AhKhQhJh9c'"`
	Paytable string   `short:"p" required:"" help:"Paytable id, e.g. jacks-or-better-9-6"`
	Top      int      `short:"n" default:"5" help:"Number of hold options to list (0 = all)"`
	Held     string   `help:"Grade a hold given as dealt positions 1-5, e.g. '1234' (use '-' to discard all)"`
}

func (c *LookupCmd) Run(g *Globals) error {
	cards, err := deck.ParseCards(strings.Join(c.Cards, ""))
	if err != nil {
		return err
	}
	hand, err := deck.NewHand(cards)
	if err != nil {
		return err
	}

	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()

	d := a.service.Lookup(hand, c.Paytable)
	if d == nil {
		return fmt.Errorf("no strategy for %s under %s", hand.Notation(), c.Paytable)
	}
	printDecision(a, hand, d, c.Top)

	if c.Held == "" {
		return nil
	}
	held, err := parseHeld(c.Held)
	if err != nil {
		return err
	}
	grade, ok := a.service.Grade(hand, c.Paytable, held)
	if !ok {
		return fmt.Errorf("no strategy for %s under %s", hand.Notation(), c.Paytable)
	}
	printGrade(a, hand, grade, held)
	return nil
}

func sortedCards(hand deck.Hand, d *strategy.Decision) []deck.Card {
	sorted := make([]deck.Card, len(hand))
	for i, orig := range d.Perm {
		sorted[i] = hand[orig]
	}
	return sorted
}

func printDecision(a *app, hand deck.Hand, d *strategy.Decision, top int) {
	sorted := sortedCards(hand, d)
	out := a.out

	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("%s  %s", d.PaytableID, d.Key)))
	fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Hand:"), renderHold(hand[:], d.BestHoldOriginal()))
	fmt.Fprintf(out, "%s %s (EV %.4f)\n", labelStyle.Render("Best:"), holdCards(sorted, d.BestHold), d.BestEV)
	if tied := d.TiedForBest(); len(tied) > 1 {
		fmt.Fprintf(out, "%s %d holds tie for best\n", warnStyle.Render("Note:"), len(tied))
	}

	opts := d.Options()
	if top > 0 && top < len(opts) {
		opts = opts[:top]
	}
	fmt.Fprintln(out)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tHOLD\tEV\tLOSS")
	for i, o := range opts {
		fmt.Fprintf(w, "%d\t%s\t%.4f\t%.4f\n", d.RankOf(i), holdCards(sorted, o.Hold), o.EV, d.EVLoss(o.Hold))
	}
	w.Flush()
}

func printGrade(a *app, hand deck.Hand, g *strategy.Grade, held []int) {
	result := badStyle.Render("Wrong")
	if g.Correct {
		result = goodStyle.Render("Correct")
	}
	fmt.Fprintln(a.out)
	fmt.Fprintf(a.out, "%s %s\n", labelStyle.Render("Yours:"), renderHold(hand[:], held))
	fmt.Fprintf(a.out, "%s EV %.4f, rank %d, gives up %.4f\n", result, g.EV, g.Rank, g.Loss)
}

// parseHeld turns "134" (1-based dealt positions) into indices. "-" means
// hold nothing.
func parseHeld(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "-" {
		return []int{}, nil
	}
	var (
		held []int
		seen [5]bool
	)
	for _, ch := range strings.ReplaceAll(s, ",", "") {
		if ch < '1' || ch > '5' {
			return nil, fmt.Errorf("invalid hold position %q: use 1-5", ch)
		}
		i := int(ch - '1')
		if seen[i] {
			return nil, fmt.Errorf("position %c listed twice", ch)
		}
		seen[i] = true
		held = append(held, i)
	}
	return held, nil
}
