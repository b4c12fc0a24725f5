package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/lox/vpstrat/internal/canonical"
	"github.com/lox/vpstrat/internal/store"
	"github.com/lox/vpstrat/internal/table"
	"github.com/lox/vpstrat/internal/verify"
)

// VerifyCmd checks one or more tables.
type VerifyCmd struct {
	Paytables     []string `arg:"" optional:"" help:"Paytable ids (default: every available table)"`
	Coverage      bool     `help:"Also check that every canonical hand is present"`
	Joker         bool     `help:"Coverage uses a 53-card deck with the joker"`
	AgainstLegacy string   `name:"against-legacy" help:"Directory of legacy .vpstrat tables to compare against"`
	AgainstSQLite bool     `name:"against-sqlite" help:"Compare against the configured SQLite database"`
	Workers       int      `default:"0" help:"Tables checked in parallel (0 = GOMAXPROCS)"`
}

func (c *VerifyCmd) Run(g *Globals) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()

	ids := c.Paytables
	if len(ids) == 0 {
		ids = a.store.Available()
	}
	if len(ids) == 0 {
		return fmt.Errorf("no strategy tables to verify")
	}
	if c.AgainstSQLite && a.sqlite == nil {
		return fmt.Errorf("--against-sqlite needs a database: set strategy.sqlite_path or --sqlite")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := []verify.Option{verify.WithTolerance(a.cfg.Strategy.Tolerance)}
	if c.Workers > 0 {
		opts = append(opts, verify.WithWorkers(c.Workers))
	}
	reports, err := verify.New(a.logger, opts...).VerifyAll(ctx, a.store, ids)
	if err != nil {
		return err
	}

	var keys []canonical.Key
	if c.Coverage {
		keys = canonical.AllKeys(c.Joker)
	}

	failed := 0
	for _, r := range reports {
		ok := r.OK()
		fmt.Fprintf(a.out, "%s %s", verdict(ok), headerStyle.Render(r.PaytableID))
		if r.Err != nil {
			fmt.Fprintf(a.out, ": %v\n", r.Err)
			failed++
			continue
		}
		fmt.Fprintf(a.out, " %d hands in %s\n", r.Entries, r.Duration.Round(time.Millisecond))
		for _, p := range r.Problems {
			fmt.Fprintf(a.out, "    %s\n", p)
		}

		t, err := a.store.Table(r.PaytableID)
		if err != nil {
			return err
		}
		if c.Coverage {
			cov := verify.Coverage(t, keys)
			ok = ok && cov.Missing == 0
			fmt.Fprintf(a.out, "    coverage: %d of %d hands missing", cov.Missing, cov.Expected)
			if len(cov.Sample) > 0 {
				fmt.Fprintf(a.out, " (e.g. %s)", strings.Join(cov.Sample, ", "))
			}
			fmt.Fprintln(a.out)
		}
		if c.AgainstLegacy != "" {
			cmp, err := compareLegacy(t, c.AgainstLegacy, r.PaytableID, a.cfg.Strategy.Tolerance)
			if err != nil {
				fmt.Fprintf(a.out, "    legacy: %v\n", err)
			} else {
				ok = printComparison(a, "legacy", cmp) && ok
			}
		}
		if c.AgainstSQLite {
			cmp := verify.Compare(t, verify.SourceReference(a.sqlite, r.PaytableID), a.cfg.Strategy.Tolerance)
			ok = printComparison(a, "sqlite", cmp) && ok
		}
		if !ok {
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d tables failed verification", failed, len(reports))
	}
	return nil
}

func compareLegacy(t *table.Table, dir, paytableID string, tolerance float64) (verify.Comparison, error) {
	name := strings.TrimSuffix(store.FileName(paytableID), table.Ext) + table.LegacyExt
	legacy, err := table.OpenLegacy(filepath.Join(dir, name))
	if err != nil {
		return verify.Comparison{}, err
	}
	defer legacy.Close()
	return verify.Compare(t, verify.LegacyReference(legacy), tolerance), nil
}

func printComparison(a *app, name string, c verify.Comparison) bool {
	fmt.Fprintf(a.out, "    %s: %d compared, %d holds match, %d EVs match, %d missing\n",
		name, c.Compared, c.HoldMatches, c.EVMatches, c.Missing)
	for _, m := range c.Mismatches {
		if !m.RefFound {
			fmt.Fprintf(a.out, "      %s: not in %s\n", m.Key, name)
			continue
		}
		fmt.Fprintf(a.out, "      %s: %s %.4f vs %s %.4f\n", m.Key, m.Hold, m.EV, m.RefHold, m.RefEV)
	}
	return c.Compared == c.HoldMatches && c.Compared == c.EVMatches
}
