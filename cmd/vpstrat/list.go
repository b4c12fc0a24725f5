package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/lox/vpstrat/internal/table"
	"github.com/lox/vpstrat/internal/verify"
)

// ListCmd lists paytables with strategy data.
type ListCmd struct{}

func (c *ListCmd) Run(g *Globals) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()

	ids := a.service.AvailablePaytables()
	if len(ids) == 0 {
		fmt.Fprintln(a.out, warnStyle.Render("No strategy tables found"))
		return nil
	}

	resolver := a.store.Resolver()
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PAYTABLE\tSOURCE\tSIZE")
	for _, id := range ids {
		source, size := "sqlite", "-"
		if path, ok := resolver.Path(id); ok {
			source = "cache"
			if path == resolver.BundlePath(id) {
				source = "bundle"
			}
			if info, err := os.Stat(path); err == nil {
				size = humanize.Bytes(uint64(info.Size()))
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", id, source, size)
	}
	return w.Flush()
}

// InfoCmd describes one paytable's table.
type InfoCmd struct {
	Paytable string `arg:"" help:"Paytable id"`
}

func (c *InfoCmd) Run(g *Globals) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()

	t, err := a.store.Table(c.Paytable)
	if err != nil {
		if a.sqlite != nil && a.sqlite.HasData(c.Paytable) {
			n, _ := a.sqlite.Count(c.Paytable)
			fmt.Fprintf(a.out, "%s is served from SQLite (%d hands)\n", c.Paytable, n)
			return nil
		}
		return err
	}

	h := t.Header()
	size := h.Size(table.RecordSize)
	out := a.out
	fmt.Fprintln(out, headerStyle.Render(c.Paytable))
	fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Path:   "), t.Path())
	fmt.Fprintf(out, "%s %s v%d\n", labelStyle.Render("Format: "), h.Magic[:], h.Version)
	fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Hands:  "), humanize.Comma(int64(t.Len())))
	fmt.Fprintf(out, "%s %d bytes\n", labelStyle.Render("Key:    "), t.KeyLen())
	fmt.Fprintf(out, "%s %t\n", labelStyle.Render("Wild:   "), t.Wild())
	fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Size:   "), humanize.Bytes(uint64(size)))
	if t.Len() > 0 {
		fmt.Fprintf(out, "%s %s .. %s\n", labelStyle.Render("Keys:   "),
			verify.KeyString(t.KeyAt(0)), verify.KeyString(t.KeyAt(t.Len()-1)))
	}
	for _, info := range a.store.Loaded() {
		if info.PaytableID == c.Paytable {
			fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Loaded: "), humanize.Time(info.LoadedAt))
		}
	}
	return nil
}
