package main

import (
	"fmt"
	"time"

	"github.com/coder/quartz"

	"github.com/lox/vpstrat/internal/deck"
	"github.com/lox/vpstrat/internal/hold"
	"github.com/lox/vpstrat/internal/statistics"
)

// BenchCmd measures lookup latency over random hands.
type BenchCmd struct {
	Paytable string `short:"p" required:"" help:"Paytable id"`
	Hands    int    `short:"n" default:"100000" help:"Number of lookups"`
	Joker    bool   `help:"Deal from a 53-card deck with the joker"`
	Seed     *int64 `help:"Random seed for reproducible hands"`

	clock quartz.Clock
}

func seedOrNow(seed *int64, clock quartz.Clock) int64 {
	if seed != nil {
		return *seed
	}
	return clock.Now().UnixNano()
}

func (c *BenchCmd) Run(g *Globals) error {
	if c.clock == nil {
		c.clock = quartz.NewReal()
	}
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()

	start := c.clock.Now()
	if !a.service.Preload(c.Paytable) {
		return fmt.Errorf("no strategy table for %s", c.Paytable)
	}
	open := c.clock.Since(start)

	seed := seedOrNow(c.Seed, c.clock)
	d := deck.NewDeck(deck.NewRand(seed), c.Joker)

	var latency statistics.Sample
	misses := 0
	start = c.clock.Now()
	for range c.Hands {
		h := d.DealHand()
		t0 := c.clock.Now()
		dec := a.service.Lookup(h, c.Paytable)
		latency.Add(float64(c.clock.Since(t0).Nanoseconds()))
		if dec == nil {
			misses++
		}
	}
	total := c.clock.Since(start)

	stats := a.service.CacheStats()
	out := a.out
	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("%s: %d lookups (seed %d)", c.Paytable, c.Hands, seed)))
	fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Open:    "), open.Round(time.Microsecond))
	fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Total:   "), total.Round(time.Millisecond))
	fmt.Fprintf(out, "%s mean %.0fns  p50 %.0fns  p99 %.0fns  max %.0fns\n", labelStyle.Render("Latency: "),
		latency.Mean(), latency.Median(), latency.Percentile(0.99), latency.Max())
	fmt.Fprintf(out, "%s %d hits, %d misses, %d evictions\n", labelStyle.Render("Cache:   "),
		stats.Hits, stats.Misses, stats.Evictions)
	if misses > 0 {
		fmt.Fprintf(out, "%s %d hands had no strategy\n", warnStyle.Render("Missing: "), misses)
	}
	return nil
}

// DrillCmd plays a simple hold policy against the strategy and reports how
// much EV it gives up.
type DrillCmd struct {
	Paytable string `short:"p" required:"" help:"Paytable id"`
	Hands    int    `short:"n" default:"1000" help:"Number of hands to deal"`
	Policy   string `default:"random" enum:"random,none,all,best" help:"Hold policy to grade (random, none, all, best)"`
	Joker    bool   `help:"Deal from a 53-card deck with the joker"`
	Seed     *int64 `help:"Random seed for reproducible hands"`

	clock quartz.Clock
}

func (c *DrillCmd) Run(g *Globals) error {
	if c.clock == nil {
		c.clock = quartz.NewReal()
	}
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()

	seed := seedOrNow(c.Seed, c.clock)
	rng := deck.NewRand(seed)
	d := deck.NewDeck(rng, c.Joker)

	var session statistics.Session
	for range c.Hands {
		h := d.DealHand()
		var held []int
		switch c.Policy {
		case "random":
			held = hold.Mask(rng.IntN(hold.NumMasks)).Indices()
		case "all":
			held = hold.All.Indices()
		case "best":
			dec := a.service.Lookup(h, c.Paytable)
			if dec == nil {
				continue
			}
			held = dec.BestHoldOriginal()
		}
		grade, ok := a.service.Grade(h, c.Paytable, held)
		if !ok {
			continue
		}
		session.AddGrade(grade.Loss, grade.Correct, grade.Rank)
	}
	if session.Hands == 0 {
		return fmt.Errorf("no strategy for any dealt hand under %s", c.Paytable)
	}
	if err := session.Validate(); err != nil {
		return err
	}

	low, high := session.Loss.ConfidenceInterval95()
	out := a.out
	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("%s: %s policy over %d hands (seed %d)",
		c.Paytable, c.Policy, session.Hands, seed)))
	fmt.Fprintf(out, "%s %.1f%%\n", labelStyle.Render("Correct:  "), 100*session.Accuracy())
	fmt.Fprintf(out, "%s %.4f per hand (95%% CI %.4f to %.4f)\n", labelStyle.Render("EV loss:  "),
		session.Loss.Mean(), low, high)
	fmt.Fprintf(out, "%s %.4f\n", labelStyle.Render("Worst:    "), session.Loss.Max())
	return nil
}
